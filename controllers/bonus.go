package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BonusController serves bonus rules, calculations and supplier reports.
type BonusController struct {
	Bonus *services.BonusService
}

type BonusRuleInput struct {
	SupplierID         uuid.UUID  `json:"supplierId"`
	Name               string     `json:"name"`
	Brand              string     `json:"brand"`
	ProductType        string     `json:"productType" binding:"required"`
	LoyaltyPctChemical float64    `json:"loyaltyPctChemical"`
	LoyaltyPctResale   float64    `json:"loyaltyPctResale"`
	ReturnPctChemical  float64    `json:"returnPctChemical"`
	ReturnPctResale    float64    `json:"returnPctResale"`
	ValidFrom          time.Time  `json:"validFrom" binding:"required"`
	ValidTo            *time.Time `json:"validTo"`
	Priority           int        `json:"priority"`
	MinTurnover        float64    `json:"minTurnover"`
	MaxTurnover        *float64   `json:"maxTurnover"`
	IsActive           *bool      `json:"isActive"`
}

func (in BonusRuleInput) apply(r *models.BonusRule) {
	r.Name = in.Name
	r.Brand = in.Brand
	r.ProductType = in.ProductType
	r.LoyaltyPctChemical = in.LoyaltyPctChemical
	r.LoyaltyPctResale = in.LoyaltyPctResale
	r.ReturnPctChemical = in.ReturnPctChemical
	r.ReturnPctResale = in.ReturnPctResale
	r.ValidFrom = in.ValidFrom
	r.ValidTo = in.ValidTo
	r.Priority = in.Priority
	r.MinTurnover = in.MinTurnover
	r.MaxTurnover = in.MaxTurnover
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}
}

type CalculateInput struct {
	SupplierID string `json:"supplierId"`
	Year       int    `json:"year"`
}

type SendReportInput struct {
	SupplierID string `json:"supplierId"`
	Year       int    `json:"year"`
	Recipient  string `json:"recipient"`
}

type ApproveInput struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

func (bc *BonusController) ListRules(c *gin.Context) {
	supplierID, ok := requestSupplierID(c, c.Query("supplier_id"))
	if !ok {
		return
	}
	var rules []models.BonusRule
	if err := config.DB.Where("supplier_id = ?", supplierID).
		Order("priority DESC, valid_from DESC").Find(&rules).Error; err != nil {
		respondError(c, err, "retrieve bonus rules")
		return
	}
	c.JSON(http.StatusOK, rules)
}

func (bc *BonusController) CreateRule(c *gin.Context) {
	var input BonusRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	var supplier models.Supplier
	if err := config.DB.First(&supplier, "id = ?", input.SupplierID).Error; err != nil {
		respondError(c, err, "retrieve supplier")
		return
	}

	rule := models.BonusRule{SupplierID: supplier.ID, IsActive: true}
	input.apply(&rule)
	if err := services.ValidateRule(&rule); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.DB.Create(&rule).Error; err != nil {
		respondError(c, err, "create bonus rule")
		return
	}
	c.JSON(http.StatusCreated, rule)
}

func (bc *BonusController) UpdateRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input BonusRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var rule models.BonusRule
	if err := config.DB.First(&rule, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve bonus rule")
		return
	}
	input.apply(&rule)
	if err := services.ValidateRule(&rule); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := config.DB.Model(&rule).Select("*").Omit("id", "supplier_id", "created_at").Updates(&rule).Error; err != nil {
		respondError(c, err, "update bonus rule")
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (bc *BonusController) DeleteRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res := config.DB.Delete(&models.BonusRule{}, "id = ?", id)
	if res.Error != nil {
		respondError(c, res.Error, "delete bonus rule")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Bonus rule not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bonus rule deleted"})
}

func (bc *BonusController) Calculate(c *gin.Context) {
	var input CalculateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	supplierID, ok := requestSupplierID(c, input.SupplierID)
	if !ok {
		return
	}
	year, ok := parseYear(c, yearString(input.Year))
	if !ok {
		return
	}

	calcs, err := bc.Bonus.Calculate(c.Request.Context(), supplierID, year)
	if err != nil {
		respondError(c, err, "calculate bonus")
		return
	}
	config.RequestLogger(c).Info("Bonus calculated",
		zap.String("supplier_id", supplierID.String()),
		zap.Int("year", year),
		zap.Int("salons", len(calcs)))
	c.JSON(http.StatusOK, gin.H{"year": year, "calculations": calcs})
}

func yearString(year int) string {
	if year == 0 {
		return ""
	}
	return strconv.Itoa(year)
}

func (bc *BonusController) reportFor(c *gin.Context) (*services.BonusReport, bool) {
	supplierID, ok := requestSupplierID(c, c.Query("supplier_id"))
	if !ok {
		return nil, false
	}
	year, ok := parseYear(c, c.Query("year"))
	if !ok {
		return nil, false
	}
	report, err := bc.Bonus.Report(c.Request.Context(), supplierID, year)
	if err != nil {
		respondError(c, err, "build bonus report")
		return nil, false
	}
	return report, true
}

func (bc *BonusController) Report(c *gin.Context) {
	report, ok := bc.reportFor(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

var bonusCSVHeader = []string{
	"Salong", "Org.nr", "År", "Omsetning", "Vekstbonus", "Trinn",
	"Lojalitetsbonus", "Returprovisjon", "Total bonus", "Status",
}

func (bc *BonusController) ExportCSV(c *gin.Context) {
	report, ok := bc.reportFor(c)
	if !ok {
		return
	}

	rows := make([][]string, 0, len(report.Rows)+1)
	for _, r := range report.Rows {
		var name, org string
		if r.Salon != nil {
			name, org = r.Salon.Name, r.Salon.OrgNumber
		}
		rows = append(rows, []string{
			name, org, r.Period,
			utils.FormatAmount(r.TotalTurnover),
			utils.FormatAmount(r.GrowthBonusAmount),
			r.GrowthTier,
			utils.FormatAmount(r.LoyaltyBonusAmount),
			utils.FormatAmount(r.ReturnCommissionAmount),
			utils.FormatAmount(r.TotalBonus),
			r.Status,
		})
	}
	rows = append(rows, []string{
		"Sum", "", strconv.Itoa(report.Year),
		utils.FormatAmount(report.Totals.Turnover),
		utils.FormatAmount(report.Totals.GrowthBonus),
		"",
		utils.FormatAmount(report.Totals.LoyaltyBonus),
		utils.FormatAmount(report.Totals.ReturnCommission),
		utils.FormatAmount(report.Totals.TotalBonus),
		"",
	})

	data, err := utils.WriteCSV(bonusCSVHeader, rows)
	if err != nil {
		respondError(c, err, "export bonus report")
		return
	}
	utils.SendCSV(c, fmt.Sprintf("bonus-%s-%d.csv", utils.Slugify(report.SupplierName), report.Year), data)
}

func (bc *BonusController) SendReport(c *gin.Context) {
	var input SendReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	supplierID, ok := requestSupplierID(c, input.SupplierID)
	if !ok {
		return
	}
	year, ok := parseYear(c, yearString(input.Year))
	if !ok {
		return
	}

	report, err := bc.Bonus.SendReport(c.Request.Context(), supplierID, year, input.Recipient)
	if err != nil {
		respondError(c, err, "send bonus report")
		return
	}
	config.RequestLogger(c).Info("Bonus report sent",
		zap.String("supplier_id", supplierID.String()),
		zap.Int("year", year),
		zap.Int("rows", len(report.Rows)))
	c.JSON(http.StatusOK, report)
}

func (bc *BonusController) Approve(c *gin.Context) {
	var input ApproveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	n, err := bc.Bonus.Approve(c.Request.Context(), input.IDs)
	if err != nil {
		respondError(c, err, "approve calculations")
		return
	}
	c.JSON(http.StatusOK, gin.H{"approved": n})
}

func (bc *BonusController) Reopen(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bc.Bonus.Reopen(c.Request.Context(), id); err != nil {
		respondError(c, err, "reopen calculation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Calculation reopened"})
}

// SalonBonuses lists the stored calculations of one salon for a year.
func (bc *BonusController) SalonBonuses(c *gin.Context) {
	salonID, ok := requestSalonID(c, nil)
	if !ok {
		return
	}
	year, ok := parseYear(c, c.Query("year"))
	if !ok {
		return
	}
	var calcs []models.BonusCalculation
	if err := config.DB.Where("salon_id = ? AND period = ?", salonID, strconv.Itoa(year)).
		Order("total_bonus DESC").Find(&calcs).Error; err != nil {
		respondError(c, err, "retrieve bonuses")
		return
	}
	c.JSON(http.StatusOK, calcs)
}

func (bc *BonusController) ListOverrides(c *gin.Context) {
	query := config.DB.Model(&models.GrowthBonusOverride{})
	if supplier := c.Query("supplier_id"); supplier != "" {
		query = query.Where("supplier_id = ?", supplier)
	}
	if year := c.Query("year"); year != "" {
		query = query.Where("year = ?", year)
	}
	var overrides []models.GrowthBonusOverride
	if err := query.Order("year DESC").Find(&overrides).Error; err != nil {
		respondError(c, err, "retrieve overrides")
		return
	}
	c.JSON(http.StatusOK, overrides)
}

func (bc *BonusController) SetOverride(c *gin.Context) {
	var input services.OverrideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.SalonID == uuid.Nil || input.SupplierID == uuid.Nil || input.Year == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "salonId, supplierId and year are required")
		return
	}
	if input.PreviousTurnover < 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "Previous turnover cannot be negative")
		return
	}

	o, err := bc.Bonus.SetOverride(c.Request.Context(), callerID(c), input)
	if err != nil {
		respondError(c, err, "save override")
		return
	}
	c.JSON(http.StatusOK, o)
}

func (bc *BonusController) DeleteOverride(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bc.Bonus.DeleteOverride(c.Request.Context(), id); err != nil {
		respondError(c, err, "delete override")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Override deleted"})
}
