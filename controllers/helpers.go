package controllers

import (
	"errors"
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
	"gorm.io/gorm"
)

var (
	badRequestErrors = []error{
		models.ErrInvalidRole, models.ErrMissingSalon, models.ErrMissingDistrict,
		models.ErrMissingChain, models.ErrMissingSupplier,
		services.ErrInvalidEmail, services.ErrWeakPassword,
		services.ErrConsentRequired, services.ErrInvalidOrgNumber, services.ErrInvalidPhone,
		services.ErrOTPInvalid, services.ErrOTPNotSent,
		services.ErrInvalidSlug, services.ErrInvalidStatus, services.ErrScheduleInPast, services.ErrTitleRequired,
		services.ErrSameYear, services.ErrUnsupportedFile, services.ErrMissingColumns, services.ErrEmptyFile,
		services.ErrNotSalonRole, services.ErrEmployeeNoEmail, services.ErrEmployeeInactive, services.ErrNoRecipient,
	}
	notFoundErrors = []error{
		gorm.ErrRecordNotFound, services.ErrInvitationNotFound, services.ErrNoSourceRows,
		services.ErrCompanyNotFound, services.ErrNothingToReport,
	}
	conflictErrors = []error{
		gorm.ErrDuplicatedKey, services.ErrTariffYearExists, services.ErrEmailTaken,
		services.ErrInvitationAccepted, services.ErrSlugTaken, services.ErrEmployeeHasUser,
		services.ErrAlreadySigned, services.ErrCalculationFrozen,
	}
	unavailableErrors = []error{
		services.ErrFunctionsNotConfigured, services.ErrHubSpotNotConnected, services.ErrHubSpotNotConfigured,
	}
)

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// respondError maps service errors to HTTP statuses. Unexpected errors are
// logged and hidden behind "Failed to <action>".
func respondError(c *gin.Context, err error, action string) {
	var (
		apiErr *services.APIError
		fnErr  *services.FunctionError
	)
	status := http.StatusInternalServerError
	switch {
	case isAny(err, badRequestErrors):
		status = http.StatusBadRequest
	case isAny(err, notFoundErrors):
		utils.RespondWithError(c, http.StatusNotFound, "Not found")
		return
	case isAny(err, conflictErrors):
		status = http.StatusConflict
	case errors.Is(err, models.ErrAssociationNotFound):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrInvitationExpired), errors.Is(err, services.ErrOTPExpired):
		status = http.StatusGone
	case errors.Is(err, services.ErrTooManyAttempts), errors.Is(err, services.ErrTooManyCodes):
		status = http.StatusTooManyRequests
	case errors.Is(err, services.ErrSelfRoleChange):
		status = http.StatusForbidden
	case isAny(err, unavailableErrors):
		status = http.StatusServiceUnavailable
	case errors.As(err, &apiErr), errors.As(err, &fnErr):
		config.RequestLogger(c).Warn("Upstream call failed", zap.String("action", action), zap.Error(err))
		utils.RespondWithError(c, http.StatusBadGateway, "Upstream service failed to "+action)
		return
	}
	if status == http.StatusInternalServerError {
		config.RequestLogger(c).Error("Request failed", zap.String("action", action), zap.Error(err))
		utils.RespondWithError(c, status, "Failed to "+action)
		return
	}
	utils.RespondWithError(c, status, err.Error())
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseYear(c *gin.Context, raw string) (int, bool) {
	if raw == "" {
		return time.Now().Year(), true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2100 {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid year")
		return 0, false
	}
	return year, true
}

func callerRole(c *gin.Context) models.Role {
	return models.Role(c.GetString("role"))
}

func callerID(c *gin.Context) uuid.UUID {
	id, _ := utils.ContextUUID(c, "userId")
	return id
}

// canAccessSalon checks the salon against the caller's tenant keys.
func canAccessSalon(c *gin.Context, salonID uuid.UUID) (bool, error) {
	role := callerRole(c)
	switch {
	case role.IsAdmin():
		return true, nil
	case role.IsSalonRole():
		own, ok := utils.ContextUUID(c, "salonId")
		return ok && own == salonID, nil
	case role == models.RoleDistrictManager:
		return salonUnder(c, salonID, "district_id", "districtId")
	case role == models.RoleChainOwner:
		return salonUnder(c, salonID, "chain_id", "chainId")
	}
	return false, nil
}

// salonUnder reports whether the salon's column matches the caller's key.
func salonUnder(c *gin.Context, salonID uuid.UUID, column, key string) (bool, error) {
	parent, ok := utils.ContextUUID(c, key)
	if !ok {
		return false, nil
	}
	var count int64
	if err := config.DB.Model(&models.Salon{}).
		Where("id = ? AND "+column+" = ?", salonID, parent).
		Count(&count).Error; err != nil {
		config.RequestLogger(c).Error("Failed to check salon access",
			zap.String("salon_id", salonID.String()), zap.Error(err))
		return false, err
	}
	return count > 0, nil
}

// ensureSalonAccess responds with 403 (or 500 on a lookup failure) when the
// caller may not touch the salon.
func ensureSalonAccess(c *gin.Context, salonID uuid.UUID) bool {
	ok, err := canAccessSalon(c, salonID)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to check salon access")
		return false
	}
	if !ok {
		utils.RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
		return false
	}
	return true
}

// requestSalonID resolves the salon a request works on: salon roles always
// use their own salon, others pass ?salon_id= (or a body value).
func requestSalonID(c *gin.Context, fromBody *uuid.UUID) (uuid.UUID, bool) {
	if callerRole(c).IsSalonRole() {
		id, ok := utils.ContextUUID(c, "salonId")
		if !ok {
			utils.RespondWithError(c, http.StatusForbidden, "No salon on this account")
			return uuid.Nil, false
		}
		return id, true
	}

	var id uuid.UUID
	switch {
	case fromBody != nil && *fromBody != uuid.Nil:
		id = *fromBody
	case c.Query("salon_id") != "":
		parsed, err := uuid.Parse(c.Query("salon_id"))
		if err != nil {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid salon_id")
			return uuid.Nil, false
		}
		id = parsed
	default:
		utils.RespondWithError(c, http.StatusBadRequest, "salon_id is required")
		return uuid.Nil, false
	}
	if !ensureSalonAccess(c, id) {
		return uuid.Nil, false
	}
	return id, true
}

// requestSupplierID is requestSalonID for supplier scoped endpoints.
func requestSupplierID(c *gin.Context, raw string) (uuid.UUID, bool) {
	if callerRole(c).IsSupplierRole() {
		id, ok := utils.ContextUUID(c, "supplierId")
		if !ok {
			utils.RespondWithError(c, http.StatusForbidden, "No supplier on this account")
			return uuid.Nil, false
		}
		if raw != "" && raw != id.String() {
			utils.RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
			return uuid.Nil, false
		}
		return id, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid supplier id")
		return uuid.Nil, false
	}
	return id, true
}
