package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ImportedSale is a raw row from a supplier sales file, kept as reported.
type ImportedSale struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SupplierID   uuid.UUID `gorm:"type:uuid;index;not null" json:"supplierId"`
	BatchID      uuid.UUID `gorm:"type:uuid;index;not null" json:"batchId"`
	RowNumber    int       `json:"rowNumber"`
	OrgNumber    string    `gorm:"type:varchar(9)" json:"orgNumber"`
	Period       string    `gorm:"type:varchar(7)" json:"period"`
	Brand        string    `json:"brand"`
	ProductGroup string    `json:"productGroup"`
	ProductType  string    `gorm:"type:varchar(20)" json:"productType"`
	Amount       float64   `gorm:"type:decimal(14,2)" json:"amount"`
	Normalized   bool      `gorm:"default:false" json:"normalized"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NormalizedSale holds per-period turnover for one salon. When the supplier
// reports cumulatively, Turnover is the derived delta and
// CumulativeTurnover the value as reported.
type NormalizedSale struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SupplierID         uuid.UUID `gorm:"type:uuid;not null;index:idx_norm_sale_lookup" json:"supplierId"`
	SalonID            uuid.UUID `gorm:"type:uuid;not null;index:idx_norm_sale_lookup" json:"salonId"`
	Period             string    `gorm:"type:varchar(7);not null;index:idx_norm_sale_lookup" json:"period"`
	Brand              string    `json:"brand"`
	ProductGroup       string    `json:"productGroup"`
	ProductType        string    `gorm:"type:varchar(20)" json:"productType"`
	Turnover           float64   `gorm:"type:decimal(14,2)" json:"turnover"`
	CumulativeTurnover *float64  `gorm:"type:decimal(14,2)" json:"cumulativeTurnover"`
	ImportBatchID      uuid.UUID `gorm:"type:uuid" json:"importBatchId"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

func (s *ImportedSale) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func (s *NormalizedSale) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
