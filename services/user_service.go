package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salonportal-backend/config"
	"salonportal-backend/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrSelfRoleChange = errors.New("you cannot change your own role")

type UserService struct {
	db        *gorm.DB
	events    EventPublisher
	functions FunctionInvoker
	now       func() time.Time
}

func NewUserService(db *gorm.DB, events EventPublisher, functions FunctionInvoker) *UserService {
	if events == nil {
		events = NoopPublisher{}
	}
	return &UserService{db: db, events: events, functions: functions, now: time.Now}
}

// RoleChange is a requested role and the keys that go with it.
type RoleChange struct {
	UserID uuid.UUID        `json:"userId"`
	Role   models.Role      `json:"role"`
	Scope  models.RoleScope `json:"scope"`
}

// UpdateRole validates the role and its association, stores it, and writes
// an audit row when the role itself changed. Notifications go out after
// the commit and never fail the change.
func (s *UserService) UpdateRole(ctx context.Context, changedBy uuid.UUID, ch RoleChange) (*models.User, error) {
	if ch.UserID == changedBy {
		return nil, ErrSelfRoleChange
	}
	scope := ch.Scope
	if err := scope.Validate(ch.Role); err != nil {
		return nil, err
	}

	var (
		user    models.User
		oldRole models.Role
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, "id = ?", ch.UserID).Error; err != nil {
			return err
		}
		if err := scope.Exists(tx, ch.Role); err != nil {
			return err
		}
		oldRole = user.Role
		user.Role = ch.Role
		user.ApplyScope(scope)
		if err := tx.Model(&user).
			Select("role", "salon_id", "district_id", "chain_id", "supplier_id").
			Updates(&user).Error; err != nil {
			return err
		}
		if oldRole == ch.Role {
			return nil
		}
		return tx.Create(&models.RoleChangeAudit{
			UserID:    user.ID,
			ChangedBy: changedBy,
			OldRole:   oldRole,
			NewRole:   ch.Role,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	if oldRole != ch.Role {
		s.announce(ctx, &user, oldRole, changedBy)
	}
	return &user, nil
}

func (s *UserService) announce(ctx context.Context, user *models.User, oldRole models.Role, changedBy uuid.UUID) {
	event := RoleChangedEvent{
		UserID:    user.ID,
		Email:     user.Email,
		OldRole:   oldRole,
		NewRole:   user.Role,
		ChangedBy: changedBy,
		ChangedAt: s.now(),
	}
	if err := s.events.Publish(SubjectRoleChanged, event); err != nil {
		config.Log().Warn("Failed to publish role change", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	notify(ctx, s.functions, FnSendRoleChangeNotification, map[string]interface{}{
		"email":   user.Email,
		"name":    user.Name,
		"oldRole": oldRole,
		"newRole": user.Role,
	})
}

type BulkError struct {
	UserID uuid.UUID `json:"userId"`
	Error  string    `json:"error"`
}

type BulkResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Errors    []BulkError `json:"errors"`
}

// BulkUpdateRole applies the same role to each user in turn. A failing user
// does not stop the rest; nothing is rolled back.
func (s *UserService) BulkUpdateRole(ctx context.Context, changedBy uuid.UUID, userIDs []uuid.UUID, role models.Role, scope models.RoleScope) BulkResult {
	res := BulkResult{Errors: []BulkError{}}
	for _, id := range userIDs {
		_, err := s.UpdateRole(ctx, changedBy, RoleChange{UserID: id, Role: role, Scope: scope})
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, BulkError{UserID: id, Error: describeUserError(err)})
			continue
		}
		res.Succeeded++
	}
	return res
}

// RoleHistory lists the audit rows of a user, newest first.
func (s *UserService) RoleHistory(ctx context.Context, userID uuid.UUID) ([]models.RoleChangeAudit, error) {
	var rows []models.RoleChangeAudit
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func describeUserError(err error) string {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "user not found"
	}
	return fmt.Sprint(err)
}
