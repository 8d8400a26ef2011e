package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Supplier struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string    `gorm:"not null;uniqueIndex" json:"name"`
	ContactEmail     string    `json:"contactEmail"`
	HubSpotCompanyID *string   `gorm:"column:hubspot_company_id" json:"hubspotCompanyId"`
	// ReportsCumulative marks suppliers whose sales files carry running
	// year-to-date totals instead of per-period amounts.
	ReportsCumulative bool      `gorm:"default:false" json:"reportsCumulative"`
	IsActive          bool      `gorm:"default:true" json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`

	Salons []SupplierSalon `gorm:"foreignKey:SupplierID" json:"salons,omitempty"`
	Rules  []BonusRule     `gorm:"foreignKey:SupplierID" json:"-"`
}

// SupplierSalon is the partner link between a supplier and a salon.
type SupplierSalon struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SupplierID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_salon" json:"supplierId"`
	SalonID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_supplier_salon" json:"salonId"`
	CustomerNumber string    `json:"customerNumber"`
	CreatedAt      time.Time `json:"createdAt"`

	Salon Salon `gorm:"foreignKey:SalonID" json:"salon,omitempty"`
}

func (s *Supplier) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (s *SupplierSalon) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
