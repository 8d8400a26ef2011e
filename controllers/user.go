package controllers

import (
	"net/http"
	"strings"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/services"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserController is the admin user management surface.
type UserController struct {
	Users *services.UserService
}

type UpdateRoleInput struct {
	Role  models.Role      `json:"role" binding:"required"`
	Scope models.RoleScope `json:"scope"`
}

type BulkRoleInput struct {
	UserIDs []uuid.UUID      `json:"userIds" binding:"required"`
	Role    models.Role      `json:"role" binding:"required"`
	Scope   models.RoleScope `json:"scope"`
}

type SetActiveInput struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

func (uc *UserController) List(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)
	query := config.DB.Model(&models.User{})

	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if salon := c.Query("salon_id"); salon != "" {
		query = query.Where("salon_id = ?", salon)
	}
	if supplier := c.Query("supplier_id"); supplier != "" {
		query = query.Where("supplier_id = ?", supplier)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err, "retrieve users")
		return
	}
	var users []models.User
	if err := query.Order("name").Limit(limit).Offset(offset).Find(&users).Error; err != nil {
		respondError(c, err, "retrieve users")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"users":      users,
		"pagination": utils.PageMeta(page, limit, total),
	})
}

func (uc *UserController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var user models.User
	if err := config.DB.First(&user, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (uc *UserController) UpdateRole(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Role == models.RoleSuperAdmin && callerRole(c) != models.RoleSuperAdmin {
		utils.RespondWithError(c, http.StatusForbidden, "Only a superadmin can grant superadmin")
		return
	}

	user, err := uc.Users.UpdateRole(c.Request.Context(), callerID(c), services.RoleChange{
		UserID: id,
		Role:   input.Role,
		Scope:  input.Scope,
	})
	if err != nil {
		respondError(c, err, "update role")
		return
	}
	config.RequestLogger(c).Info("User role updated",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))
	c.JSON(http.StatusOK, user)
}

// BulkUpdateRole always answers 200; per-user failures are in the body.
func (uc *UserController) BulkUpdateRole(c *gin.Context) {
	var input BulkRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if len(input.UserIDs) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "No users selected")
		return
	}
	if input.Role == models.RoleSuperAdmin && callerRole(c) != models.RoleSuperAdmin {
		utils.RespondWithError(c, http.StatusForbidden, "Only a superadmin can grant superadmin")
		return
	}

	res := uc.Users.BulkUpdateRole(c.Request.Context(), callerID(c), input.UserIDs, input.Role, input.Scope)
	config.RequestLogger(c).Info("Bulk role update finished",
		zap.String("role", string(input.Role)),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed))
	c.JSON(http.StatusOK, res)
}

func (uc *UserController) RoleHistory(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	rows, err := uc.Users.RoleHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "retrieve role history")
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (uc *UserController) SetActive(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if id == callerID(c) {
		utils.RespondWithError(c, http.StatusForbidden, "You cannot deactivate yourself")
		return
	}
	var input SetActiveInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	res := config.DB.Model(&models.User{}).Where("id = ?", id).Update("is_active", *input.IsActive)
	if res.Error != nil {
		respondError(c, res.Error, "update user")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "isActive": *input.IsActive})
}

// Roles lists the assignable roles and the association each requires.
func (uc *UserController) Roles(c *gin.Context) {
	out := make([]gin.H, 0, len(models.AllRoles()))
	for _, r := range models.AllRoles() {
		out = append(out, gin.H{"role": r, "requires": r.Association()})
	}
	c.JSON(http.StatusOK, out)
}
