package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PowerOfAttorney (fullmakt) authorizes an insurance transfer on behalf of
// a salon. It is signed by entering a one-time code sent by SMS.
type PowerOfAttorney struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SalonID   *uuid.UUID `gorm:"type:uuid;index" json:"salonId"`
	OrgNumber string     `gorm:"type:varchar(9);not null" json:"orgNumber"`
	SalonName string     `gorm:"not null" json:"salonName"`

	ContactName  string `gorm:"not null" json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `gorm:"not null" json:"contactPhone"`

	ConsentTransfer  bool           `json:"consentTransfer"`
	ConsentPrivacy   bool           `json:"consentPrivacy"`
	PreviousInsurers datatypes.JSON `json:"previousInsurers"`

	OTPHash      string     `json:"-"`
	OTPExpiresAt *time.Time `json:"otpExpiresAt"`
	OTPAttempts  int        `gorm:"default:0" json:"otpAttempts"`
	OTPSends     int        `gorm:"default:0" json:"otpSends"`

	Signed          bool       `gorm:"default:false" json:"signed"`
	SignedAt        *time.Time `json:"signedAt"`
	SignedIP        string     `json:"signedIp,omitempty"`
	SignedUserAgent string     `json:"signedUserAgent,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p *PowerOfAttorney) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
