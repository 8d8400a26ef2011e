package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrSlugTaken       = errors.New("slug is already in use")
	ErrInvalidSlug     = errors.New("slug may only contain a-z, 0-9 and dashes")
	ErrInvalidStatus   = errors.New("status must be draft, published or scheduled")
	ErrScheduleInPast  = errors.New("scheduled time must be in the future")
	ErrTitleRequired   = errors.New("title is required")
	ErrNoImageReturned = errors.New("image function returned no url")
)

type AnnouncementService struct {
	db        *gorm.DB
	functions FunctionInvoker
	now       func() time.Time
}

func NewAnnouncementService(db *gorm.DB, functions FunctionInvoker) *AnnouncementService {
	return &AnnouncementService{db: db, functions: functions, now: time.Now}
}

// AnnouncementInput is used for create and partial update; nil fields are
// left alone on update.
type AnnouncementInput struct {
	Title       *string       `json:"title"`
	Slug        *string       `json:"slug"`
	Content     *string       `json:"content"`
	Status      *string       `json:"status"`
	PublishedAt *time.Time    `json:"publishedAt"`
	TargetRoles []models.Role `json:"targetRoles"`
}

// applySchedule sets status and published_at: draft clears the date,
// published without a date means now, scheduled needs a future date.
func (s *AnnouncementService) applySchedule(a *models.Announcement, status string, at *time.Time) error {
	now := s.now()
	switch status {
	case models.AnnouncementDraft:
		a.PublishedAt = nil
	case models.AnnouncementPublished:
		if at == nil {
			at = &now
		}
		a.PublishedAt = at
	case models.AnnouncementScheduled:
		if at == nil || !at.After(now) {
			return ErrScheduleInPast
		}
		a.PublishedAt = at
	default:
		return ErrInvalidStatus
	}
	a.Status = status
	return nil
}

func (s *AnnouncementService) checkSlug(tx *gorm.DB, slug string, self uuid.UUID) error {
	if !utils.ValidateSlug(slug) {
		return ErrInvalidSlug
	}
	var count int64
	if err := tx.Model(&models.Announcement{}).Where("slug = ? AND id <> ?", slug, self).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSlugTaken
	}
	return nil
}

func (s *AnnouncementService) Create(ctx context.Context, createdBy uuid.UUID, in AnnouncementInput) (*models.Announcement, error) {
	if in.Title == nil || strings.TrimSpace(*in.Title) == "" {
		return nil, ErrTitleRequired
	}
	a := models.Announcement{
		Title:     strings.TrimSpace(*in.Title),
		CreatedBy: createdBy,
	}
	if in.Content != nil {
		a.Content = *in.Content
	}
	a.Slug = utils.Slugify(a.Title)
	if in.Slug != nil && *in.Slug != "" {
		a.Slug = *in.Slug
	}
	status := models.AnnouncementDraft
	if in.Status != nil {
		status = *in.Status
	}
	if err := s.applySchedule(&a, status, in.PublishedAt); err != nil {
		return nil, err
	}
	a.SetRoles(in.TargetRoles)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkSlug(tx, a.Slug, uuid.Nil); err != nil {
			return err
		}
		var maxOrder int
		if err := tx.Model(&models.Announcement{}).Select("COALESCE(MAX(display_order), -1)").Scan(&maxOrder).Error; err != nil {
			return err
		}
		a.DisplayOrder = maxOrder + 1
		return tx.Create(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AnnouncementService) Update(ctx context.Context, id uuid.UUID, in AnnouncementInput) (*models.Announcement, error) {
	var a models.Announcement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&a, "id = ?", id).Error; err != nil {
			return err
		}
		if in.Title != nil {
			if strings.TrimSpace(*in.Title) == "" {
				return ErrTitleRequired
			}
			a.Title = strings.TrimSpace(*in.Title)
		}
		if in.Content != nil {
			a.Content = *in.Content
		}
		if in.Slug != nil && *in.Slug != a.Slug {
			if err := s.checkSlug(tx, *in.Slug, a.ID); err != nil {
				return err
			}
			a.Slug = *in.Slug
		}
		if in.Status != nil || in.PublishedAt != nil {
			status := a.Status
			if in.Status != nil {
				status = *in.Status
			}
			at := in.PublishedAt
			if at == nil && status == a.Status {
				at = a.PublishedAt
			}
			if err := s.applySchedule(&a, status, at); err != nil {
				return err
			}
		}
		if in.TargetRoles != nil {
			a.SetRoles(in.TargetRoles)
		}
		return tx.Save(&a).Error
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AnnouncementService) Delete(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.Announcement{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns every announcement for the admin view.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	var rows []models.Announcement
	err := s.db.WithContext(ctx).Order("display_order, created_at DESC").Find(&rows).Error
	return rows, err
}

// Feed returns what role may see right now, in display order.
func (s *AnnouncementService) Feed(ctx context.Context, role models.Role) ([]models.Announcement, error) {
	now := s.now()
	var rows []models.Announcement
	if err := s.db.WithContext(ctx).
		Where("status IN ?", []string{models.AnnouncementPublished, models.AnnouncementScheduled}).
		Where("published_at IS NULL OR published_at <= ?", now).
		Order("display_order, published_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	feed := make([]models.Announcement, 0, len(rows))
	for i := range rows {
		if rows[i].VisibleTo(role, now) {
			feed = append(feed, rows[i])
		}
	}
	return feed, nil
}

// Reorder sets display_order to the position of each id in ids. Either
// every id is updated or none is.
func (s *AnnouncementService) Reorder(ctx context.Context, ids []uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, id := range ids {
			res := tx.Model(&models.Announcement{}).Where("id = ?", id).Update("display_order", i)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
}

type imageResponse struct {
	ImageURL string `json:"imageUrl"`
	URL      string `json:"url"`
}

// GenerateImage asks the image function for an illustration and stores the
// returned URL.
func (s *AnnouncementService) GenerateImage(ctx context.Context, id uuid.UUID, prompt string) (*models.Announcement, error) {
	var a models.Announcement
	if err := s.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if s.functions == nil {
		return nil, ErrFunctionsNotConfigured
	}
	if prompt == "" {
		prompt = a.Title
	}
	var out imageResponse
	if err := s.functions.Invoke(ctx, FnGenerateAnnouncementImage, map[string]string{
		"announcementId": a.ID.String(),
		"title":          a.Title,
		"prompt":         prompt,
	}, &out); err != nil {
		return nil, err
	}
	url := out.ImageURL
	if url == "" {
		url = out.URL
	}
	if url == "" {
		return nil, ErrNoImageReturned
	}
	if err := s.db.WithContext(ctx).Model(&a).Update("image_url", url).Error; err != nil {
		return nil, err
	}
	a.ImageURL = url
	return &a, nil
}
