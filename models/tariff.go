package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TariffTemplate is one row of the central wage table (tariffmal) for a year.
type TariffTemplate struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Year          int        `gorm:"not null;index" json:"year"`
	Position      string     `gorm:"not null" json:"position"`
	SeniorityFrom int        `gorm:"default:0" json:"seniorityFrom"`
	SeniorityTo   *int       `json:"seniorityTo"`
	HourlyRate    float64    `gorm:"type:decimal(10,2);not null" json:"hourlyRate"`
	MonthlyPay    float64    `gorm:"type:decimal(12,2);not null" json:"monthlyPay"`
	Description   string     `json:"description"`
	ValidFrom     time.Time  `gorm:"not null" json:"validFrom"`
	ValidTo       *time.Time `json:"validTo"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func (t *TariffTemplate) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
