package controllers

import (
	"net/http"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// POAController serves the public power of attorney signing flow and the
// admin listing.
type POAController struct {
	POA *services.POAService
}

type VerifyOTPInput struct {
	Code string `json:"code" binding:"required"`
}

func (pc *POAController) Create(c *gin.Context) {
	var input services.POAInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	poa, err := pc.POA.Create(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "create power of attorney")
		return
	}
	c.JSON(http.StatusCreated, poa)
}

func (pc *POAController) SendOTP(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	expires, err := pc.POA.SendOTP(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "send code")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Code sent", "expiresAt": expires})
}

func (pc *POAController) Verify(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input VerifyOTPInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Code is required")
		return
	}

	poa, err := pc.POA.VerifyOTP(c.Request.Context(), id, input.Code, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		respondError(c, err, "verify code")
		return
	}
	config.RequestLogger(c).Info("Power of attorney signed",
		zap.String("poa_id", poa.ID.String()),
		zap.String("org_number", poa.OrgNumber))
	c.JSON(http.StatusOK, poa)
}

func (pc *POAController) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := config.DB.Model(&models.PowerOfAttorney{})
	switch c.Query("signed") {
	case "true":
		query = query.Where("signed = ?", true)
	case "false":
		query = query.Where("signed = ?", false)
	}
	if org := c.Query("org_number"); org != "" {
		query = query.Where("org_number = ?", utils.NormalizeOrgNumber(org))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err, "retrieve powers of attorney")
		return
	}
	var rows []models.PowerOfAttorney
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		respondError(c, err, "retrieve powers of attorney")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"powersOfAttorney": rows,
		"pagination":       utils.PageMeta(page, limit, total),
	})
}
