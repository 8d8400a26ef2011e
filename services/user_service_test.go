package services

import (
	"context"
	"errors"
	"testing"

	"salonportal-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func seedUser(t *testing.T, db *gorm.DB, email string, role models.Role, scope models.RoleScope) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "passord123", Name: email, Role: role, IsActive: true}
	u.ApplyScope(scope)
	mustCreate(t, db, u)
	return u
}

func TestUpdateRoleWritesAuditAndPublishes(t *testing.T) {
	db := newTestDB(t)
	events := &fakePublisher{}
	fn := &fakeFunctions{}
	s := NewUserService(db, events, fn)
	ctx := context.Background()

	admin := seedUser(t, db, "admin@example.no", models.RoleAdmin, models.RoleScope{})
	supplier := &models.Supplier{Name: "Hårpleie AS", IsActive: true}
	mustCreate(t, db, supplier)
	salon := &models.Salon{Name: "Salong", OrgNumber: "974760673", IsActive: true}
	mustCreate(t, db, salon)
	user := seedUser(t, db, "ansatt@example.no", models.RoleStylist, models.RoleScope{SalonID: &salon.ID})

	updated, err := s.UpdateRole(ctx, admin.ID, RoleChange{
		UserID: user.ID,
		Role:   models.RoleSupplierSales,
		Scope:  models.RoleScope{SupplierID: &supplier.ID, SalonID: &salon.ID},
	})
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if updated.SalonID != nil {
		t.Fatalf("salon key should be cleared for supplier role")
	}

	var stored models.User
	if err := db.First(&stored, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.Role != models.RoleSupplierSales || stored.SupplierID == nil || stored.SalonID != nil {
		t.Fatalf("unexpected stored user: %+v", stored)
	}

	history, err := s.RoleHistory(ctx, user.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].OldRole != models.RoleStylist || history[0].NewRole != models.RoleSupplierSales || history[0].ChangedBy != admin.ID {
		t.Fatalf("unexpected audit: %+v", history)
	}
	if len(events.events) != 1 || events.events[0].Subject != SubjectRoleChanged {
		t.Fatalf("expected one role change event, got %+v", events.events)
	}
	if fn.count(FnSendRoleChangeNotification) != 1 {
		t.Fatalf("expected role change notification")
	}

	// Same role again only moves the association.
	if _, err := s.UpdateRole(ctx, admin.ID, RoleChange{
		UserID: user.ID,
		Role:   models.RoleSupplierSales,
		Scope:  models.RoleScope{SupplierID: &supplier.ID},
	}); err != nil {
		t.Fatalf("update role: %v", err)
	}
	history, _ = s.RoleHistory(ctx, user.ID)
	if len(history) != 1 || len(events.events) != 1 {
		t.Fatalf("unchanged role must not be audited")
	}
}

func TestUpdateRoleRejections(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db, nil, nil)
	ctx := context.Background()
	admin := seedUser(t, db, "admin@example.no", models.RoleAdmin, models.RoleScope{})
	user := seedUser(t, db, "bruker@example.no", models.RoleAdmin, models.RoleScope{})
	gone := uuid.New()

	if _, err := s.UpdateRole(ctx, admin.ID, RoleChange{UserID: admin.ID, Role: models.RoleStylist}); !errors.Is(err, ErrSelfRoleChange) {
		t.Fatalf("expected ErrSelfRoleChange got %v", err)
	}
	if _, err := s.UpdateRole(ctx, admin.ID, RoleChange{UserID: user.ID, Role: models.RoleChainOwner}); !errors.Is(err, models.ErrMissingChain) {
		t.Fatalf("expected ErrMissingChain got %v", err)
	}
	if _, err := s.UpdateRole(ctx, admin.ID, RoleChange{UserID: user.ID, Role: models.RoleDistrictManager, Scope: models.RoleScope{DistrictID: &gone}}); !errors.Is(err, models.ErrAssociationNotFound) {
		t.Fatalf("expected ErrAssociationNotFound got %v", err)
	}
	if _, err := s.UpdateRole(ctx, admin.ID, RoleChange{UserID: uuid.New(), Role: models.RoleAdmin}); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound got %v", err)
	}
}

func TestBulkUpdateRoleContinuesPastFailures(t *testing.T) {
	db := newTestDB(t)
	s := NewUserService(db, &fakePublisher{}, nil)
	ctx := context.Background()
	admin := seedUser(t, db, "admin@example.no", models.RoleAdmin, models.RoleScope{})
	chain := &models.Chain{Name: "Kjeden"}
	mustCreate(t, db, chain)
	a := seedUser(t, db, "a@example.no", models.RoleAdmin, models.RoleScope{})
	b := seedUser(t, db, "b@example.no", models.RoleAdmin, models.RoleScope{})
	missing := uuid.New()

	res := s.BulkUpdateRole(ctx, admin.ID, []uuid.UUID{a.ID, missing, admin.ID, b.ID}, models.RoleChainOwner, models.RoleScope{ChainID: &chain.ID})
	if res.Succeeded != 2 || res.Failed != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Errors[0].UserID != missing || res.Errors[0].Error != "user not found" {
		t.Fatalf("unexpected first error: %+v", res.Errors[0])
	}

	var owners int64
	db.Model(&models.User{}).Where("role = ? AND chain_id = ?", models.RoleChainOwner, chain.ID).Count(&owners)
	if owners != 2 {
		t.Fatalf("expected two chain owners got %d", owners)
	}
}
