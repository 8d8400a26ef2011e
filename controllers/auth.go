package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateProfileInput struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func idString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

// issueToken signs a token for user and sets it as the "token" cookie.
func issueToken(c *gin.Context, user *models.User) (string, bool) {
	token, err := utils.GenerateToken(user.ID.String(), utils.Claims{
		Role:       string(user.Role),
		SalonID:    idString(user.SalonID),
		DistrictID: idString(user.DistrictID),
		ChainID:    idString(user.ChainID),
		SupplierID: idString(user.SupplierID),
	})
	if err != nil {
		config.RequestLogger(c).Error("Failed to generate token", zap.Error(err))
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return "", false
	}

	maxAge := 24 * 3600
	c.SetCookie("token", token, maxAge, "/", "", true, true)
	return token, true
}

// LoadPrincipal reads the caller's stored role, scope and status for the
// auth middleware.
func LoadPrincipal(c *gin.Context, userID string) (*utils.Principal, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return nil, utils.ErrUnknownPrincipal
	}
	var user models.User
	if err := config.DB.WithContext(c.Request.Context()).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrUnknownPrincipal
		}
		config.RequestLogger(c).Error("Failed to load caller", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return &utils.Principal{
		Role:       string(user.Role),
		SalonID:    idString(user.SalonID),
		DistrictID: idString(user.DistrictID),
		ChainID:    idString(user.ChainID),
		SupplierID: idString(user.SupplierID),
		Active:     user.IsActive,
	}, nil
}

func userSummary(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"name":       user.Name,
		"phone":      user.Phone,
		"role":       user.Role,
		"salonId":    user.SalonID,
		"districtId": user.DistrictID,
		"chainId":    user.ChainID,
		"supplierId": user.SupplierID,
	}
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))

	var user models.User
	if err := config.DB.Where("LOWER(email) = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		utils.RespondWithError(c, http.StatusForbidden, "Account is deactivated")
		return
	}

	token, ok := issueToken(c, &user)
	if !ok {
		return
	}

	now := time.Now()
	config.DB.Model(&user).Update("last_login", &now)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userSummary(&user),
	})
}

func Logout(c *gin.Context) {
	c.SetCookie("token", "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func Me(c *gin.Context) {
	var user models.User
	if err := config.DB.First(&user, "id = ?", c.GetString("userId")).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userSummary(&user)})
}

func UpdateProfile(c *gin.Context) {
	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", c.GetString("userId")).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Name cannot be empty")
			return
		}
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Phone != nil {
		if *input.Phone != "" && !utils.ValidatePhone(*input.Phone) {
			utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		user.Phone = utils.CleanPhone(*input.Phone)
	}

	if err := config.DB.Model(&user).Select("name", "phone").Updates(&user).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userSummary(&user)})
}

func ChangePassword(c *gin.Context) {
	var input ChangePasswordInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var user models.User
	if err := config.DB.First(&user, "id = ?", c.GetString("userId")).Error; err != nil {
		utils.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	if !utils.CheckPasswordHash(input.CurrentPassword, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	hashed, err := utils.HashPassword(input.NewPassword)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update password")
		return
	}
	if err := config.DB.Model(&user).Update("password", hashed).Error; err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to update password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
