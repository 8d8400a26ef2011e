package controllers

import (
	"net/http"
	"strings"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SupplierInput struct {
	Name              *string `json:"name"`
	ContactEmail      *string `json:"contactEmail"`
	ReportsCumulative *bool   `json:"reportsCumulative"`
	IsActive          *bool   `json:"isActive"`
}

type SupplierSalonInput struct {
	SalonID        uuid.UUID `json:"salonId" binding:"required"`
	CustomerNumber string    `json:"customerNumber"`
}

func GetSuppliers(c *gin.Context) {
	query := config.DB.Model(&models.Supplier{})
	if callerRole(c).IsSupplierRole() {
		query = query.Where("id = ?", c.GetString("supplierId"))
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var suppliers []models.Supplier
	if err := query.Order("name").Find(&suppliers).Error; err != nil {
		respondError(c, err, "retrieve suppliers")
		return
	}
	c.JSON(http.StatusOK, suppliers)
}

func GetSupplier(c *gin.Context) {
	id, ok := requestSupplierID(c, c.Param("id"))
	if !ok {
		return
	}
	var supplier models.Supplier
	if err := config.DB.Preload("Salons.Salon").First(&supplier, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve supplier")
		return
	}
	c.JSON(http.StatusOK, supplier)
}

func CreateSupplier(c *gin.Context) {
	var input SupplierInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	if input.Name == nil || strings.TrimSpace(*input.Name) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Supplier name is required")
		return
	}

	supplier := models.Supplier{Name: strings.TrimSpace(*input.Name), IsActive: true}
	if input.ContactEmail != nil {
		supplier.ContactEmail = strings.TrimSpace(*input.ContactEmail)
	}
	if input.ReportsCumulative != nil {
		supplier.ReportsCumulative = *input.ReportsCumulative
	}
	if err := config.DB.Create(&supplier).Error; err != nil {
		respondError(c, err, "create supplier")
		return
	}
	c.JSON(http.StatusCreated, supplier)
}

func UpdateSupplier(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SupplierInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var supplier models.Supplier
	if err := config.DB.First(&supplier, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve supplier")
		return
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			utils.RespondWithError(c, http.StatusBadRequest, "Supplier name is required")
			return
		}
		updates["name"] = name
	}
	if input.ContactEmail != nil {
		updates["contact_email"] = strings.TrimSpace(*input.ContactEmail)
	}
	if input.ReportsCumulative != nil {
		updates["reports_cumulative"] = *input.ReportsCumulative
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := config.DB.Model(&supplier).Updates(updates).Error; err != nil {
			respondError(c, err, "update supplier")
			return
		}
	}
	c.JSON(http.StatusOK, supplier)
}

// DeleteSupplier deactivates the supplier; bonus history stays.
func DeleteSupplier(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res := config.DB.Model(&models.Supplier{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		respondError(c, res.Error, "deactivate supplier")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Supplier not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Supplier deactivated"})
}

func GetSupplierSalons(c *gin.Context) {
	id, ok := requestSupplierID(c, c.Param("id"))
	if !ok {
		return
	}
	var links []models.SupplierSalon
	if err := config.DB.Preload("Salon").Where("supplier_id = ?", id).Find(&links).Error; err != nil {
		respondError(c, err, "retrieve supplier salons")
		return
	}
	c.JSON(http.StatusOK, links)
}

func LinkSupplierSalon(c *gin.Context) {
	supplierID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SupplierSalonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	for _, check := range []struct {
		model interface{}
		id    uuid.UUID
	}{{&models.Supplier{}, supplierID}, {&models.Salon{}, input.SalonID}} {
		if err := config.DB.First(check.model, "id = ?", check.id).Error; err != nil {
			respondError(c, err, "link salon")
			return
		}
	}

	link := models.SupplierSalon{
		SupplierID:     supplierID,
		SalonID:        input.SalonID,
		CustomerNumber: strings.TrimSpace(input.CustomerNumber),
	}
	if err := config.DB.Create(&link).Error; err != nil {
		respondError(c, err, "link salon")
		return
	}
	c.JSON(http.StatusCreated, link)
}

func UnlinkSupplierSalon(c *gin.Context) {
	supplierID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	salonID, ok := parseIDParam(c, "salonId")
	if !ok {
		return
	}
	res := config.DB.Where("supplier_id = ? AND salon_id = ?", supplierID, salonID).Delete(&models.SupplierSalon{})
	if res.Error != nil {
		respondError(c, res.Error, "unlink salon")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Link not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Salon unlinked"})
}

// GetSupplierTeam lists the portal users that belong to the supplier.
func GetSupplierTeam(c *gin.Context) {
	id, ok := requestSupplierID(c, c.Param("id"))
	if !ok {
		return
	}
	var users []models.User
	if err := config.DB.Where("supplier_id = ?", id).Order("name").Find(&users).Error; err != nil {
		respondError(c, err, "retrieve supplier team")
		return
	}
	c.JSON(http.StatusOK, users)
}
