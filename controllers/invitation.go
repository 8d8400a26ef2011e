package controllers

import (
	"net/http"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvitationController handles invitations and the public onboarding flow.
type InvitationController struct {
	Invitations *services.InvitationService
}

// canInvite reports whether the caller may hand out role with scope.
// Admins invite anyone; salon and supplier managers invite into their own
// salon or supplier only.
func canInvite(c *gin.Context, role models.Role, scope models.RoleScope) bool {
	caller := callerRole(c)
	switch {
	case caller.IsAdmin():
		return caller == models.RoleSuperAdmin || role != models.RoleSuperAdmin
	case caller == models.RoleSalonOwner || caller == models.RoleDagligLeder:
		own, ok := utils.ContextUUID(c, "salonId")
		return ok && role.IsSalonRole() && scope.SalonID != nil && *scope.SalonID == own
	case caller == models.RoleSupplierAdmin:
		own, ok := utils.ContextUUID(c, "supplierId")
		return ok && role.IsSupplierRole() && scope.SupplierID != nil && *scope.SupplierID == own
	}
	return false
}

func (ic *InvitationController) Create(c *gin.Context) {
	var input services.InvitationInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if !models.IsValidRole(string(input.Role)) {
		utils.RespondWithError(c, http.StatusBadRequest, models.ErrInvalidRole.Error())
		return
	}
	if !canInvite(c, input.Role, input.Scope) {
		utils.RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
		return
	}

	inv, sent, err := ic.Invitations.Create(c.Request.Context(), callerID(c), input)
	if err != nil {
		respondError(c, err, "create invitation")
		return
	}
	config.RequestLogger(c).Info("Invitation created",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("role", string(inv.Role)),
		zap.Bool("email_sent", sent))

	c.JSON(http.StatusCreated, gin.H{
		"invitation": inv,
		"link":       ic.Invitations.Link(inv.Token),
		"emailSent":  sent,
	})
}

func (ic *InvitationController) List(c *gin.Context) {
	query := config.DB.Model(&models.Invitation{})
	switch role := callerRole(c); {
	case role.IsAdmin():
	case role.IsSalonRole():
		query = query.Where("salon_id = ?", c.GetString("salonId"))
	case role.IsSupplierRole():
		query = query.Where("supplier_id = ?", c.GetString("supplierId"))
	default:
		query = query.Where("invited_by = ?", c.GetString("userId"))
	}
	switch c.Query("status") {
	case "pending":
		query = query.Where("accepted = ?", false)
	case "accepted":
		query = query.Where("accepted = ?", true)
	}

	var invitations []models.Invitation
	if err := query.Order("created_at DESC").Find(&invitations).Error; err != nil {
		respondError(c, err, "retrieve invitations")
		return
	}
	c.JSON(http.StatusOK, invitations)
}

// loadInvitation checks the caller may manage the :id invitation.
func loadInvitation(c *gin.Context) (uuid.UUID, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	var inv models.Invitation
	if err := config.DB.First(&inv, "id = ?", id).Error; err != nil {
		respondError(c, services.ErrInvitationNotFound, "retrieve invitation")
		return uuid.Nil, false
	}
	if !canInvite(c, inv.Role, inv.Scope()) {
		utils.RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
		return uuid.Nil, false
	}
	return id, true
}

func (ic *InvitationController) Resend(c *gin.Context) {
	id, ok := loadInvitation(c)
	if !ok {
		return
	}
	inv, sent, err := ic.Invitations.Resend(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "resend invitation")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invitation": inv,
		"link":       ic.Invitations.Link(inv.Token),
		"emailSent":  sent,
	})
}

func (ic *InvitationController) Revoke(c *gin.Context) {
	id, ok := loadInvitation(c)
	if !ok {
		return
	}
	if err := ic.Invitations.Revoke(c.Request.Context(), id); err != nil {
		respondError(c, err, "revoke invitation")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation revoked"})
}

func parseToken(c *gin.Context) (uuid.UUID, bool) {
	token, err := uuid.Parse(c.Param("token"))
	if err != nil {
		utils.RespondWithError(c, http.StatusNotFound, services.ErrInvitationNotFound.Error())
		return uuid.Nil, false
	}
	return token, true
}

// Lookup is public: it tells the onboarding page who the invitation is for.
func (ic *InvitationController) Lookup(c *gin.Context) {
	token, ok := parseToken(c)
	if !ok {
		return
	}
	status, err := ic.Invitations.Lookup(c.Request.Context(), token)
	if err != nil {
		respondError(c, err, "retrieve invitation")
		return
	}
	c.JSON(http.StatusOK, status)
}

// Accept is public. On success the new user is logged in.
func (ic *InvitationController) Accept(c *gin.Context) {
	token, ok := parseToken(c)
	if !ok {
		return
	}
	var input services.AcceptInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}
	input.Phone = utils.CleanPhone(input.Phone)

	user, err := ic.Invitations.Accept(c.Request.Context(), token, input)
	if err != nil {
		respondError(c, err, "accept invitation")
		return
	}
	jwt, ok := issueToken(c, user)
	if !ok {
		return
	}
	config.RequestLogger(c).Info("Invitation accepted",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	c.JSON(http.StatusCreated, gin.H{
		"token": jwt,
		"user":  userSummary(user),
	})
}
