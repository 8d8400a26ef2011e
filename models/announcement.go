package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	AnnouncementDraft     = "draft"
	AnnouncementPublished = "published"
	AnnouncementScheduled = "scheduled"
)

type Announcement struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title   string    `gorm:"not null" json:"title"`
	Slug    string    `gorm:"not null;uniqueIndex" json:"slug"`
	Content string    `gorm:"type:text" json:"content"`
	// ImageURL is produced by the image generation function.
	ImageURL     string         `json:"imageUrl"`
	Status       string         `gorm:"type:varchar(16);default:'draft'" json:"status"`
	PublishedAt  *time.Time     `json:"publishedAt"`
	TargetRoles  datatypes.JSON `json:"targetRoles"`
	DisplayOrder int            `gorm:"default:0;index" json:"displayOrder"`
	CreatedBy    uuid.UUID      `gorm:"type:uuid" json:"createdBy"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (a *Announcement) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}

func (a *Announcement) Roles() []Role {
	var roles []Role
	if len(a.TargetRoles) == 0 {
		return nil
	}
	if err := json.Unmarshal(a.TargetRoles, &roles); err != nil {
		return nil
	}
	return roles
}

func (a *Announcement) SetRoles(roles []Role) {
	if len(roles) == 0 {
		a.TargetRoles = datatypes.JSON("[]")
		return
	}
	b, _ := json.Marshal(roles)
	a.TargetRoles = datatypes.JSON(b)
}

// VisibleTo reports whether a published announcement targets role at now.
func (a *Announcement) VisibleTo(role Role, now time.Time) bool {
	switch a.Status {
	case AnnouncementPublished, AnnouncementScheduled:
		if a.PublishedAt != nil && a.PublishedAt.After(now) {
			return false
		}
	default:
		return false
	}
	roles := a.Roles()
	if len(roles) == 0 {
		return true
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
