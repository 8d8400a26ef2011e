package controllers

import (
	"net/http"
	"strconv"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AdminDashboard struct {
	Salons             int64             `json:"salons"`
	ActiveSalons       int64             `json:"activeSalons"`
	Users              int64             `json:"users"`
	Suppliers          int64             `json:"suppliers"`
	PendingInvitations int64             `json:"pendingInvitations"`
	UnsignedPOAs       int64             `json:"unsignedPowersOfAttorney"`
	RecentRoleChanges  []RoleChangeEntry `json:"recentRoleChanges"`
}

type RoleChangeEntry struct {
	UserName  string    `json:"userName"`
	OldRole   string    `json:"oldRole"`
	NewRole   string    `json:"newRole"`
	CreatedAt time.Time `json:"createdAt"`
}

type DistrictDashboard struct {
	Salons    int64 `json:"salons"`
	Employees int64 `json:"employees"`
	Users     int64 `json:"users"`
}

type SalonDashboard struct {
	Employees       int64   `json:"employees"`
	ActiveEmployees int64   `json:"activeEmployees"`
	Users           int64   `json:"users"`
	BonusYear       int     `json:"bonusYear"`
	TotalBonus      float64 `json:"totalBonus"`
	Turnover        float64 `json:"turnover"`
}

type SupplierDashboard struct {
	LinkedSalons int64   `json:"linkedSalons"`
	TeamMembers  int64   `json:"teamMembers"`
	BonusYear    int     `json:"bonusYear"`
	Calculations int64   `json:"calculations"`
	TotalBonus   float64 `json:"totalBonus"`
	Turnover     float64 `json:"turnover"`
}

// GetDashboardOverview returns the aggregates for the caller's role.
func GetDashboardOverview(c *gin.Context) {
	role := callerRole(c)
	var (
		body interface{}
		err  error
	)
	switch {
	case role.IsAdmin():
		body, err = adminDashboard()
	case role == models.RoleDistrictManager:
		body, err = districtDashboard(config.DB.Model(&models.Salon{}).Select("id").
			Where("district_id = ?", c.GetString("districtId")))
	case role == models.RoleChainOwner:
		body, err = districtDashboard(config.DB.Model(&models.Salon{}).Select("id").
			Where("chain_id = ?", c.GetString("chainId")))
	case role.IsSalonRole():
		body, err = salonDashboard(c.GetString("salonId"))
	case role.IsSupplierRole():
		body, err = supplierDashboard(c.GetString("supplierId"))
	default:
		utils.RespondWithError(c, http.StatusForbidden, "Insufficient permissions")
		return
	}
	if err != nil {
		respondError(c, err, "load dashboard")
		return
	}
	c.JSON(http.StatusOK, gin.H{"role": role, "dashboard": body})
}

func adminDashboard() (*AdminDashboard, error) {
	d := &AdminDashboard{RecentRoleChanges: []RoleChangeEntry{}}
	counts := []struct {
		dst   *int64
		query *gorm.DB
	}{
		{&d.Salons, config.DB.Model(&models.Salon{})},
		{&d.ActiveSalons, config.DB.Model(&models.Salon{}).Where("is_active = ?", true)},
		{&d.Users, config.DB.Model(&models.User{})},
		{&d.Suppliers, config.DB.Model(&models.Supplier{}).Where("is_active = ?", true)},
		{&d.PendingInvitations, config.DB.Model(&models.Invitation{}).
			Where("accepted = ? AND expires_at > ?", false, time.Now().UTC())},
		{&d.UnsignedPOAs, config.DB.Model(&models.PowerOfAttorney{}).Where("signed = ?", false)},
	}
	for _, q := range counts {
		if err := q.query.Count(q.dst).Error; err != nil {
			return nil, err
		}
	}

	err := config.DB.Table("role_change_audit").
		Select("users.name AS user_name, role_change_audit.old_role, role_change_audit.new_role, role_change_audit.created_at").
		Joins("JOIN users ON users.id = role_change_audit.user_id").
		Order("role_change_audit.created_at DESC").
		Limit(5).
		Scan(&d.RecentRoleChanges).Error
	return d, err
}

func districtDashboard(salons *gorm.DB) (*DistrictDashboard, error) {
	d := &DistrictDashboard{}
	if err := config.DB.Model(&models.Salon{}).Where("id IN (?)", salons).Count(&d.Salons).Error; err != nil {
		return nil, err
	}
	if err := config.DB.Model(&models.Employee{}).Where("salon_id IN (?)", salons).Count(&d.Employees).Error; err != nil {
		return nil, err
	}
	err := config.DB.Model(&models.User{}).Where("salon_id IN (?)", salons).Count(&d.Users).Error
	return d, err
}

func salonDashboard(salonID string) (*SalonDashboard, error) {
	year := time.Now().Year()
	d := &SalonDashboard{BonusYear: year}
	if err := config.DB.Model(&models.Employee{}).Where("salon_id = ?", salonID).Count(&d.Employees).Error; err != nil {
		return nil, err
	}
	if err := config.DB.Model(&models.Employee{}).
		Where("salon_id = ? AND is_active = ?", salonID, true).Count(&d.ActiveEmployees).Error; err != nil {
		return nil, err
	}
	if err := config.DB.Model(&models.User{}).Where("salon_id = ?", salonID).Count(&d.Users).Error; err != nil {
		return nil, err
	}
	agg, err := bonusTotals("salon_id", salonID, year)
	if err != nil {
		return nil, err
	}
	d.TotalBonus, d.Turnover = agg.TotalBonus, agg.Turnover
	return d, nil
}

func supplierDashboard(supplierID string) (*SupplierDashboard, error) {
	year := time.Now().Year()
	d := &SupplierDashboard{BonusYear: year}
	if err := config.DB.Model(&models.SupplierSalon{}).Where("supplier_id = ?", supplierID).Count(&d.LinkedSalons).Error; err != nil {
		return nil, err
	}
	if err := config.DB.Model(&models.User{}).Where("supplier_id = ?", supplierID).Count(&d.TeamMembers).Error; err != nil {
		return nil, err
	}
	agg, err := bonusTotals("supplier_id", supplierID, year)
	if err != nil {
		return nil, err
	}
	d.Calculations, d.TotalBonus, d.Turnover = agg.Calculations, agg.TotalBonus, agg.Turnover
	return d, nil
}

type bonusAggregate struct {
	Calculations int64
	TotalBonus   float64
	Turnover     float64
}

func bonusTotals(column, id string, year int) (bonusAggregate, error) {
	var agg bonusAggregate
	err := config.DB.Model(&models.BonusCalculation{}).
		Where(column+" = ? AND period = ?", id, strconv.Itoa(year)).
		Select("COUNT(*) AS calculations, COALESCE(SUM(total_bonus), 0) AS total_bonus, COALESCE(SUM(total_turnover), 0) AS turnover").
		Scan(&agg).Error
	return agg, err
}
