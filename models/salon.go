package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Chain struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Salons []Salon `gorm:"foreignKey:ChainID" json:"-"`
}

type District struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Salons []Salon `gorm:"foreignKey:DistrictID" json:"-"`
}

type Salon struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name       string     `gorm:"not null" json:"name"`
	ChainID    *uuid.UUID `gorm:"type:uuid;index" json:"chainId"`
	DistrictID *uuid.UUID `gorm:"type:uuid;index" json:"districtId"`
	OrgNumber  string     `gorm:"type:varchar(9);index:idx_salons_org_number,unique,where:org_number <> ''" json:"orgNumber"`
	City       string     `json:"city"`
	Address    string     `json:"address"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	IsActive   bool       `gorm:"default:true" json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`

	Employees []Employee `gorm:"foreignKey:SalonID" json:"-"`
	Users     []User     `gorm:"foreignKey:SalonID" json:"-"`
}

func (c *Chain) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

func (d *District) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}

func (s *Salon) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
