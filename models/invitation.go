package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invitation struct {
	ID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email string    `gorm:"not null;index" json:"email"`
	Name  string    `json:"name"`
	Role  Role      `gorm:"type:varchar(32);not null" json:"role"`
	Token uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"-"`

	SalonID    *uuid.UUID `gorm:"type:uuid" json:"salonId"`
	DistrictID *uuid.UUID `gorm:"type:uuid" json:"districtId"`
	ChainID    *uuid.UUID `gorm:"type:uuid" json:"chainId"`
	SupplierID *uuid.UUID `gorm:"type:uuid" json:"supplierId"`

	InvitedBy  uuid.UUID  `gorm:"type:uuid" json:"invitedBy"`
	ExpiresAt  time.Time  `gorm:"not null" json:"expiresAt"`
	Accepted   bool       `gorm:"default:false" json:"accepted"`
	AcceptedAt *time.Time `json:"acceptedAt"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	if i.Token == uuid.Nil {
		i.Token = uuid.New()
	}
	return nil
}

func (i *Invitation) Scope() RoleScope {
	return RoleScope{SalonID: i.SalonID, DistrictID: i.DistrictID, ChainID: i.ChainID, SupplierID: i.SupplierID}
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}
