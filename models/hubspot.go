package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// HubSpotConnection stores the portal-wide OAuth tokens. There is at most
// one row.
type HubSpotConnection struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PortalID     string    `json:"portalId"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	ExpiresAt    time.Time `json:"expiresAt"`
	ConnectedBy  uuid.UUID `gorm:"type:uuid" json:"connectedBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (HubSpotConnection) TableName() string {
	return "hubspot_connections"
}

func (h *HubSpotConnection) BeforeCreate(tx *gorm.DB) error {
	ensureID(&h.ID)
	return nil
}
