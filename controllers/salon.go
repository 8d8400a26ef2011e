package controllers

import (
	"net/http"
	"strings"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NameInput struct {
	Name string `json:"name" binding:"required"`
}

type SalonInput struct {
	Name       *string    `json:"name"`
	ChainID    *uuid.UUID `json:"chainId"`
	DistrictID *uuid.UUID `json:"districtId"`
	OrgNumber  *string    `json:"orgNumber"`
	City       *string    `json:"city"`
	Address    *string    `json:"address"`
	Email      *string    `json:"email"`
	Phone      *string    `json:"phone"`
	IsActive   *bool      `json:"isActive"`
}

func (in SalonInput) apply(s *models.Salon) string {
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.ChainID != nil {
		s.ChainID = nilIfZero(in.ChainID)
	}
	if in.DistrictID != nil {
		s.DistrictID = nilIfZero(in.DistrictID)
	}
	if in.OrgNumber != nil {
		s.OrgNumber = utils.NormalizeOrgNumber(*in.OrgNumber)
	}
	if in.City != nil {
		s.City = *in.City
	}
	if in.Address != nil {
		s.Address = *in.Address
	}
	if in.Email != nil {
		s.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		s.Phone = utils.CleanPhone(*in.Phone)
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}

	switch {
	case s.Name == "":
		return "Salon name is required"
	case s.OrgNumber != "" && !utils.ValidateOrgNumber(s.OrgNumber):
		return "Invalid organization number"
	case s.Phone != "" && !utils.ValidatePhone(s.Phone):
		return "Invalid phone number format"
	}
	return ""
}

func nilIfZero(id *uuid.UUID) *uuid.UUID {
	if id == nil || *id == uuid.Nil {
		return nil
	}
	return id
}

// scopedSalons restricts a salon query to what the caller may see.
func scopedSalons(c *gin.Context, q *gorm.DB) *gorm.DB {
	role := callerRole(c)
	switch {
	case role.IsAdmin():
		return q
	case role == models.RoleDistrictManager:
		return q.Where("district_id = ?", c.GetString("districtId"))
	case role == models.RoleChainOwner:
		return q.Where("chain_id = ?", c.GetString("chainId"))
	case role.IsSalonRole():
		return q.Where("id = ?", c.GetString("salonId"))
	case role.IsSupplierRole():
		return q.Where("id IN (?)", config.DB.Model(&models.SupplierSalon{}).
			Select("salon_id").Where("supplier_id = ?", c.GetString("supplierId")))
	}
	return q.Where("1 = 0")
}

func GetSalons(c *gin.Context) {
	page, limit, offset := utils.Pagination(c)

	query := scopedSalons(c, config.DB.Model(&models.Salon{}))
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR org_number LIKE ?", like, like)
	}
	if district := c.Query("district_id"); district != "" {
		query = query.Where("district_id = ?", district)
	}
	if chain := c.Query("chain_id"); chain != "" {
		query = query.Where("chain_id = ?", chain)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(c, err, "retrieve salons")
		return
	}

	var salons []models.Salon
	if err := query.Order("name").Limit(limit).Offset(offset).Find(&salons).Error; err != nil {
		respondError(c, err, "retrieve salons")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"salons":     salons,
		"pagination": utils.PageMeta(page, limit, total),
	})
}

func GetSalon(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var salon models.Salon
	if err := scopedSalons(c, config.DB).First(&salon, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve salon")
		return
	}
	c.JSON(http.StatusOK, salon)
}

func CreateSalon(c *gin.Context) {
	var input SalonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	salon := models.Salon{IsActive: true}
	if msg := input.apply(&salon); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	if err := config.DB.Create(&salon).Error; err != nil {
		respondError(c, err, "create salon")
		return
	}
	c.JSON(http.StatusCreated, salon)
}

func UpdateSalon(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input SalonInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	var salon models.Salon
	if err := config.DB.First(&salon, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve salon")
		return
	}
	if msg := input.apply(&salon); msg != "" {
		utils.RespondWithError(c, http.StatusBadRequest, msg)
		return
	}
	if err := config.DB.Model(&salon).Select("*").Omit("id", "created_at").Updates(&salon).Error; err != nil {
		respondError(c, err, "update salon")
		return
	}
	c.JSON(http.StatusOK, salon)
}

// DeleteSalon deactivates the salon. Rows keyed by it stay for history.
func DeleteSalon(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	res := config.DB.Model(&models.Salon{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		respondError(c, res.Error, "deactivate salon")
		return
	}
	if res.RowsAffected == 0 {
		utils.RespondWithError(c, http.StatusNotFound, "Salon not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Salon deactivated"})
}

func GetChains(c *gin.Context) {
	var chains []models.Chain
	if err := config.DB.Order("name").Find(&chains).Error; err != nil {
		respondError(c, err, "retrieve chains")
		return
	}
	c.JSON(http.StatusOK, chains)
}

func CreateChain(c *gin.Context) {
	var input NameInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Chain name is required")
		return
	}
	chain := models.Chain{Name: strings.TrimSpace(input.Name)}
	if err := config.DB.Create(&chain).Error; err != nil {
		respondError(c, err, "create chain")
		return
	}
	c.JSON(http.StatusCreated, chain)
}

func UpdateChain(c *gin.Context) {
	renameOrg(c, &models.Chain{}, "chain")
}

// DeleteChain removes the chain and detaches its salons.
func DeleteChain(c *gin.Context) {
	deleteOrg(c, &models.Chain{}, "chain_id", "chain")
}

func GetDistricts(c *gin.Context) {
	var districts []models.District
	if err := config.DB.Order("name").Find(&districts).Error; err != nil {
		respondError(c, err, "retrieve districts")
		return
	}
	c.JSON(http.StatusOK, districts)
}

func CreateDistrict(c *gin.Context) {
	var input NameInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "District name is required")
		return
	}
	district := models.District{Name: strings.TrimSpace(input.Name)}
	if err := config.DB.Create(&district).Error; err != nil {
		respondError(c, err, "create district")
		return
	}
	c.JSON(http.StatusCreated, district)
}

func UpdateDistrict(c *gin.Context) {
	renameOrg(c, &models.District{}, "district")
}

func DeleteDistrict(c *gin.Context) {
	deleteOrg(c, &models.District{}, "district_id", "district")
}

func renameOrg(c *gin.Context, model interface{}, kind string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var input NameInput
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Name) == "" {
		utils.RespondWithError(c, http.StatusBadRequest, "Name is required")
		return
	}
	if err := config.DB.First(model, "id = ?", id).Error; err != nil {
		respondError(c, err, "retrieve "+kind)
		return
	}
	if err := config.DB.Model(model).Update("name", strings.TrimSpace(input.Name)).Error; err != nil {
		respondError(c, err, "update "+kind)
		return
	}
	c.JSON(http.StatusOK, model)
}

func deleteOrg(c *gin.Context, model interface{}, salonColumn, kind string) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(model, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Salon{}).Where(salonColumn+" = ?", id).Update(salonColumn, nil).Error; err != nil {
			return err
		}
		return tx.Delete(model, "id = ?", id).Error
	})
	if err != nil {
		respondError(c, err, "delete "+kind)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": strings.ToUpper(kind[:1]) + kind[1:] + " deleted"})
}
