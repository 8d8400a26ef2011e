package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"salonportal-backend/metrics"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationAccepted = errors.New("invitation already accepted")
	ErrEmailTaken         = errors.New("a user with this email already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

// Accepted invitations are kept; stale unaccepted ones are swept after this.
const invitationRetention = 30 * 24 * time.Hour

type InvitationService struct {
	db        *gorm.DB
	functions FunctionInvoker
	portalURL string
	ttl       time.Duration
	now       func() time.Time
}

func NewInvitationService(db *gorm.DB, functions FunctionInvoker, portalURL string, ttl time.Duration) *InvitationService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &InvitationService{
		db:        db,
		functions: functions,
		portalURL: strings.TrimRight(portalURL, "/"),
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type InvitationInput struct {
	Email string           `json:"email"`
	Name  string           `json:"name"`
	Role  models.Role      `json:"role"`
	Scope models.RoleScope `json:"scope"`
}

// Link is the onboarding URL sent to the invitee.
func (s *InvitationService) Link(token uuid.UUID) string {
	return s.portalURL + "/onboarding?token=" + token.String()
}

// Create stores a new invitation and emails the link. A previous pending
// invitation for the same address is replaced. The bool reports whether
// the email went out.
func (s *InvitationService) Create(ctx context.Context, invitedBy uuid.UUID, in InvitationInput) (*models.Invitation, bool, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, false, err
	}
	scope := in.Scope
	if err := scope.Validate(in.Role); err != nil {
		return nil, false, err
	}

	inv := models.Invitation{
		Email:     email,
		Name:      strings.TrimSpace(in.Name),
		Role:      in.Role,
		InvitedBy: invitedBy,
		ExpiresAt: s.now().Add(s.ttl),
	}
	inv.SalonID, inv.DistrictID, inv.ChainID, inv.SupplierID = scope.SalonID, scope.DistrictID, scope.ChainID, scope.SupplierID

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := scope.Exists(tx, in.Role); err != nil {
			return err
		}
		var count int64
		if err := tx.Model(&models.User{}).Where("LOWER(email) = ?", email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Where("LOWER(email) = ? AND accepted = ?", email, false).
			Delete(&models.Invitation{}).Error; err != nil {
			return err
		}
		return tx.Create(&inv).Error
	})
	if err != nil {
		return nil, false, err
	}

	metrics.InvitationsTotal.WithLabelValues("created").Inc()
	return &inv, s.send(ctx, &inv), nil
}

func (s *InvitationService) send(ctx context.Context, inv *models.Invitation) bool {
	return notify(ctx, s.functions, FnSendInvitationEmail, map[string]interface{}{
		"email":     inv.Email,
		"name":      inv.Name,
		"role":      inv.Role,
		"link":      s.Link(inv.Token),
		"expiresAt": inv.ExpiresAt,
	})
}

// InvitationStatus is what an invitee sees before accepting.
type InvitationStatus struct {
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	ExpiresAt time.Time   `json:"expiresAt"`
	DaysLeft  int         `json:"daysLeft"`
	Expired   bool        `json:"expired"`
	Accepted  bool        `json:"accepted"`
}

func (s *InvitationService) Lookup(ctx context.Context, token uuid.UUID) (*InvitationStatus, error) {
	inv, err := s.byToken(s.db.WithContext(ctx), token)
	if err != nil {
		return nil, err
	}
	now := s.now()
	status := &InvitationStatus{
		Email:     inv.Email,
		Name:      inv.Name,
		Role:      inv.Role,
		ExpiresAt: inv.ExpiresAt,
		Expired:   inv.IsExpired(now),
		Accepted:  inv.Accepted,
	}
	if !status.Expired {
		status.DaysLeft = utils.DaysBetween(now.UTC(), inv.ExpiresAt.UTC())
	}
	return status, nil
}

func (s *InvitationService) byToken(db *gorm.DB, token uuid.UUID) (*models.Invitation, error) {
	var inv models.Invitation
	if err := db.First(&inv, "token = ?", token).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

type AcceptInput struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Accept creates the user for a valid invitation. The association is
// checked again because the salon or supplier may have been removed since
// the invitation went out.
func (s *InvitationService) Accept(ctx context.Context, token uuid.UUID, in AcceptInput) (*models.User, error) {
	if len(in.Password) < 8 {
		return nil, ErrWeakPassword
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := s.byToken(tx, token)
		if err != nil {
			return err
		}
		if inv.Accepted {
			return ErrInvitationAccepted
		}
		now := s.now()
		if inv.IsExpired(now) {
			return ErrInvitationExpired
		}

		scope := inv.Scope()
		if err := scope.Validate(inv.Role); err != nil {
			return err
		}
		if err := scope.Exists(tx, inv.Role); err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.User{}).Where("LOWER(email) = ?", inv.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrEmailTaken
		}

		// Guards against two concurrent accepts of the same token.
		res := tx.Model(&models.Invitation{}).
			Where("id = ? AND accepted = ?", inv.ID, false).
			Updates(map[string]interface{}{"accepted": true, "accepted_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvitationAccepted
		}

		name := strings.TrimSpace(in.Name)
		if name == "" {
			name = inv.Name
		}
		if name == "" {
			name = inv.Email
		}
		user = models.User{
			Email:    inv.Email,
			Password: in.Password,
			Name:     name,
			Phone:    strings.TrimSpace(in.Phone),
			Role:     inv.Role,
			IsActive: true,
		}
		user.ApplyScope(scope)
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.InvitationsTotal.WithLabelValues("accepted").Inc()
	return &user, nil
}

// Resend rotates the token and expiry of a pending invitation and sends it
// again. The old link stops working.
func (s *InvitationService) Resend(ctx context.Context, id uuid.UUID) (*models.Invitation, bool, error) {
	var inv models.Invitation
	if err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrInvitationNotFound
		}
		return nil, false, err
	}
	if inv.Accepted {
		return nil, false, ErrInvitationAccepted
	}

	inv.Token = uuid.New()
	inv.ExpiresAt = s.now().Add(s.ttl)
	if err := s.db.WithContext(ctx).Model(&inv).
		Select("token", "expires_at").
		Updates(&inv).Error; err != nil {
		return nil, false, err
	}

	metrics.InvitationsTotal.WithLabelValues("resent").Inc()
	return &inv, s.send(ctx, &inv), nil
}

// Revoke deletes a pending invitation.
func (s *InvitationService) Revoke(ctx context.Context, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	res := db.Where("id = ? AND accepted = ?", id, false).Delete(&models.Invitation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		metrics.InvitationsTotal.WithLabelValues("revoked").Inc()
		return nil
	}
	var count int64
	if err := db.Model(&models.Invitation{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrInvitationAccepted
	}
	return ErrInvitationNotFound
}

// SweepExpired removes unaccepted invitations that expired more than 30
// days ago.
func (s *InvitationService) SweepExpired(ctx context.Context) (int64, error) {
	cutoff := s.now().Add(-invitationRetention)
	res := s.db.WithContext(ctx).
		Where("accepted = ? AND expires_at < ?", false, cutoff).
		Delete(&models.Invitation{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		metrics.InvitationsTotal.WithLabelValues("swept").Add(float64(res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
