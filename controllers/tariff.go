package controllers

import (
	"net/http"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
)

// TariffController serves the yearly wage tables (tariffmal).
type TariffController struct {
	Tariffs *services.TariffService
}

type TariffInput struct {
	Year          int        `json:"year" binding:"required"`
	Position      string     `json:"position" binding:"required"`
	SeniorityFrom int        `json:"seniorityFrom"`
	SeniorityTo   *int       `json:"seniorityTo"`
	HourlyRate    float64    `json:"hourlyRate"`
	MonthlyPay    float64    `json:"monthlyPay"`
	Description   string     `json:"description"`
	ValidFrom     *time.Time `json:"validFrom"`
	ValidTo       *time.Time `json:"validTo"`
}

func (in TariffInput) apply(t *models.TariffTemplate) {
	t.Year = in.Year
	t.Position = in.Position
	t.SeniorityFrom = in.SeniorityFrom
	t.SeniorityTo = in.SeniorityTo
	t.HourlyRate = in.HourlyRate
	t.MonthlyPay = in.MonthlyPay
	t.Description = in.Description
	t.ValidTo = in.ValidTo
	if in.ValidFrom != nil {
		t.ValidFrom = *in.ValidFrom
	} else {
		t.ValidFrom = time.Time{}
	}
}

type CopyTariffInput struct {
	SourceYear    int     `json:"sourceYear" binding:"required"`
	TargetYear    int     `json:"targetYear" binding:"required"`
	AdjustmentPct float64 `json:"adjustmentPct"`
	Replace       bool    `json:"replace"`
}

func (tc *TariffController) List(c *gin.Context) {
	year, ok := parseYear(c, c.Query("year"))
	if !ok {
		return
	}
	rows, err := tc.Tariffs.ListYear(c.Request.Context(), year)
	if err != nil {
		respondError(c, err, "retrieve tariffs")
		return
	}
	c.JSON(http.StatusOK, gin.H{"year": year, "tariffs": rows})
}

func (tc *TariffController) Years(c *gin.Context) {
	years, err := tc.Tariffs.Years(c.Request.Context())
	if err != nil {
		respondError(c, err, "retrieve tariff years")
		return
	}
	c.JSON(http.StatusOK, years)
}

func (tc *TariffController) Create(c *gin.Context) {
	var input TariffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	var t models.TariffTemplate
	input.apply(&t)
	if err := services.ValidateTariff(&t); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.DB.Create(&t).Error; err != nil {
		respondError(c, err, "create tariff")
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (tc *TariffController) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input TariffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var t models.TariffTemplate
	if err := config.DB.First(&t, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve tariff")
		return
	}
	input.apply(&t)
	if err := services.ValidateTariff(&t); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.DB.Model(&t).Select("*").Omit("id", "created_at").Updates(&t).Error; err != nil {
		respondError(c, err, "update tariff")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (tc *TariffController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res := config.DB.Delete(&models.TariffTemplate{}, "id = ?", id)
	if res.Error != nil {
		respondError(c, res.Error, "delete tariff")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Tariff not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tariff deleted"})
}

// CopyYear copies a whole year into another with a percentage adjustment.
func (tc *TariffController) CopyYear(c *gin.Context) {
	var input CopyTariffInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.AdjustmentPct <= -100 {
		utils.RespondWithError(c, http.StatusBadRequest, "Adjustment must be above -100%")
		return
	}

	rows, err := tc.Tariffs.CopyYear(c.Request.Context(), input.SourceYear, input.TargetYear, input.AdjustmentPct, input.Replace)
	if err != nil {
		respondError(c, err, "copy tariff year")
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"year":    input.TargetYear,
		"copied":  len(rows),
		"tariffs": rows,
	})
}
