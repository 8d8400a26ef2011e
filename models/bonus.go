package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ProductTypeChemical = "chemical"
	ProductTypeResale   = "resale"
	ProductTypeBoth     = "both"

	BonusStatusDraft    = "draft"
	BonusStatusApproved = "approved"
	BonusStatusReported = "reported"
)

func IsValidProductType(t string) bool {
	switch t {
	case ProductTypeChemical, ProductTypeResale, ProductTypeBoth:
		return true
	}
	return false
}

type BonusRule struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SupplierID uuid.UUID `gorm:"type:uuid;index;not null" json:"supplierId"`
	Name       string    `json:"name"`
	// Brand empty means the rule applies to every brand of the supplier.
	Brand       string `gorm:"index" json:"brand"`
	ProductType string `gorm:"type:varchar(20);not null" json:"productType"`

	LoyaltyPctChemical float64 `gorm:"type:decimal(6,3);default:0" json:"loyaltyPctChemical"`
	LoyaltyPctResale   float64 `gorm:"type:decimal(6,3);default:0" json:"loyaltyPctResale"`
	ReturnPctChemical  float64 `gorm:"type:decimal(6,3);default:0" json:"returnPctChemical"`
	ReturnPctResale    float64 `gorm:"type:decimal(6,3);default:0" json:"returnPctResale"`

	ValidFrom   time.Time  `gorm:"not null" json:"validFrom"`
	ValidTo     *time.Time `json:"validTo"`
	Priority    int        `gorm:"default:0" json:"priority"`
	MinTurnover float64    `gorm:"type:decimal(14,2);default:0" json:"minTurnover"`
	MaxTurnover *float64   `gorm:"type:decimal(14,2)" json:"maxTurnover"`
	IsActive    bool       `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BonusCalculation is the materialized bonus for one salon, supplier and year.
type BonusCalculation struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SalonID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bonus_calc_key" json:"salonId"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bonus_calc_key" json:"supplierId"`
	Period     string    `gorm:"type:varchar(7);not null;uniqueIndex:idx_bonus_calc_key" json:"period"`

	TotalTurnover          float64        `gorm:"type:decimal(14,2)" json:"totalTurnover"`
	GrowthBonusAmount      float64        `gorm:"type:decimal(14,2)" json:"growthBonusAmount"`
	GrowthTier             string         `gorm:"type:varchar(16)" json:"growthTier"`
	LoyaltyBonusAmount     float64        `gorm:"type:decimal(14,2)" json:"loyaltyBonusAmount"`
	ReturnCommissionAmount float64        `gorm:"type:decimal(14,2)" json:"returnCommissionAmount"`
	TotalBonus             float64        `gorm:"type:decimal(14,2)" json:"totalBonus"`
	Status                 string         `gorm:"type:varchar(16);default:'draft'" json:"status"`
	CalculationDetails     datatypes.JSON `json:"calculationDetails"`

	CalculatedAt time.Time  `json:"calculatedAt"`
	ReportedAt   *time.Time `json:"reportedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Salon *Salon `gorm:"foreignKey:SalonID" json:"salon,omitempty"`
}

// GrowthBonusOverride replaces the prior-year comparison figures for a
// salon when historical data is incomplete or disputed.
type GrowthBonusOverride struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SalonID          uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_growth_override" json:"salonId"`
	SupplierID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_growth_override" json:"supplierId"`
	Year             int       `gorm:"not null;uniqueIndex:idx_growth_override" json:"year"`
	PreviousTurnover float64   `gorm:"type:decimal(14,2);not null" json:"previousTurnover"`
	Reason           string    `json:"reason"`
	SetBy            uuid.UUID `gorm:"type:uuid" json:"setBy"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (r *BonusRule) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

func (b *BonusCalculation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

func (o *GrowthBonusOverride) BeforeCreate(tx *gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
