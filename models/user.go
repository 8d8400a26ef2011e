package models

import (
	"errors"
	"time"

	"salonportal-backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleSuperAdmin      Role = "superadmin"
	RoleAdmin           Role = "admin"
	RoleDistrictManager Role = "district_manager"
	RoleChainOwner      Role = "chain_owner"
	RoleSalonOwner      Role = "salon_owner"
	RoleDagligLeder     Role = "daglig_leder"
	RoleAvdelingsleder  Role = "avdelingsleder"
	RoleStylist         Role = "stylist"
	RoleApprentice      Role = "apprentice"
	RoleEmployee        Role = "employee"
	RoleSupplierAdmin   Role = "supplier_admin"
	RoleSupplierSales   Role = "supplier_sales"
	RoleSupplierViewer  Role = "supplier_viewer"
)

// Association names the foreign key a role must carry.
type Association string

const (
	AssociationNone     Association = ""
	AssociationSalon    Association = "salon"
	AssociationDistrict Association = "district"
	AssociationChain    Association = "chain"
	AssociationSupplier Association = "supplier"
)

var (
	ErrInvalidRole         = errors.New("invalid role")
	ErrMissingSalon        = errors.New("role requires a salon")
	ErrMissingDistrict     = errors.New("role requires a district")
	ErrMissingChain        = errors.New("role requires a chain")
	ErrMissingSupplier     = errors.New("role requires a supplier")
	ErrAssociationNotFound = errors.New("associated record no longer exists")
)

var roleAssociations = map[Role]Association{
	RoleSuperAdmin:      AssociationNone,
	RoleAdmin:           AssociationNone,
	RoleDistrictManager: AssociationDistrict,
	RoleChainOwner:      AssociationChain,
	RoleSalonOwner:      AssociationSalon,
	RoleDagligLeder:     AssociationSalon,
	RoleAvdelingsleder:  AssociationSalon,
	RoleStylist:         AssociationSalon,
	RoleApprentice:      AssociationSalon,
	RoleEmployee:        AssociationSalon,
	RoleSupplierAdmin:   AssociationSupplier,
	RoleSupplierSales:   AssociationSupplier,
	RoleSupplierViewer:  AssociationSupplier,
}

func AllRoles() []Role {
	return []Role{
		RoleSuperAdmin, RoleAdmin, RoleDistrictManager, RoleChainOwner,
		RoleSalonOwner, RoleDagligLeder, RoleAvdelingsleder, RoleStylist,
		RoleApprentice, RoleEmployee, RoleSupplierAdmin, RoleSupplierSales,
		RoleSupplierViewer,
	}
}

func IsValidRole(r string) bool {
	_, ok := roleAssociations[Role(r)]
	return ok
}

func (r Role) Association() Association {
	return roleAssociations[r]
}

func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

func (r Role) IsSalonRole() bool {
	return r.Association() == AssociationSalon
}

func (r Role) IsSupplierRole() bool {
	return r.Association() == AssociationSupplier
}

// RoleScope carries the optional foreign keys that go with a role.
type RoleScope struct {
	SalonID    *uuid.UUID `json:"salonId"`
	DistrictID *uuid.UUID `json:"districtId"`
	ChainID    *uuid.UUID `json:"chainId"`
	SupplierID *uuid.UUID `json:"supplierId"`
}

// Validate checks that the key required by role is present. Keys not
// required by the role are cleared so stale ones do not linger.
func (s *RoleScope) Validate(role Role) error {
	assoc, ok := roleAssociations[role]
	if !ok {
		return ErrInvalidRole
	}
	switch assoc {
	case AssociationSalon:
		if isNil(s.SalonID) {
			return ErrMissingSalon
		}
	case AssociationDistrict:
		if isNil(s.DistrictID) {
			return ErrMissingDistrict
		}
	case AssociationChain:
		if isNil(s.ChainID) {
			return ErrMissingChain
		}
	case AssociationSupplier:
		if isNil(s.SupplierID) {
			return ErrMissingSupplier
		}
	}
	if assoc != AssociationSalon {
		s.SalonID = nil
	}
	if assoc != AssociationDistrict {
		s.DistrictID = nil
	}
	if assoc != AssociationChain {
		s.ChainID = nil
	}
	if assoc != AssociationSupplier {
		s.SupplierID = nil
	}
	return nil
}

// Exists checks that the row the role points at is still present.
func (s RoleScope) Exists(tx *gorm.DB, role Role) error {
	var (
		model interface{}
		id    *uuid.UUID
	)
	switch role.Association() {
	case AssociationSalon:
		model, id = &Salon{}, s.SalonID
	case AssociationDistrict:
		model, id = &District{}, s.DistrictID
	case AssociationChain:
		model, id = &Chain{}, s.ChainID
	case AssociationSupplier:
		model, id = &Supplier{}, s.SupplierID
	default:
		return nil
	}
	var count int64
	if err := tx.Model(model).Where("id = ?", *id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrAssociationNotFound
	}
	return nil
}

func isNil(id *uuid.UUID) bool {
	return id == nil || *id == uuid.Nil
}

type User struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email    string    `gorm:"uniqueIndex;not null" json:"email"`
	Password string    `gorm:"not null" json:"-"`
	Name     string    `gorm:"not null" json:"name"`
	Phone    string    `json:"phone"`

	Role       Role       `gorm:"type:varchar(32);not null;index" json:"role"`
	SalonID    *uuid.UUID `gorm:"type:uuid;index" json:"salonId"`
	DistrictID *uuid.UUID `gorm:"type:uuid;index" json:"districtId"`
	ChainID    *uuid.UUID `gorm:"type:uuid;index" json:"chainId"`
	SupplierID *uuid.UUID `gorm:"type:uuid;index" json:"supplierId"`

	LastLogin *time.Time `json:"lastLogin"`
	IsActive  bool       `gorm:"default:true" json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns the id and hashes the plain password.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	ensureID(&u.ID)
	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return err
	}
	u.Password = hashed
	return
}

func (u *User) Scope() RoleScope {
	return RoleScope{SalonID: u.SalonID, DistrictID: u.DistrictID, ChainID: u.ChainID, SupplierID: u.SupplierID}
}

func (u *User) ApplyScope(s RoleScope) {
	u.SalonID = s.SalonID
	u.DistrictID = s.DistrictID
	u.ChainID = s.ChainID
	u.SupplierID = s.SupplierID
}

type RoleChangeAudit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	ChangedBy uuid.UUID `gorm:"type:uuid;index" json:"changedBy"`
	OldRole   Role      `gorm:"type:varchar(32)" json:"oldRole"`
	NewRole   Role      `gorm:"type:varchar(32)" json:"newRole"`
	CreatedAt time.Time `json:"createdAt"`
}

func (RoleChangeAudit) TableName() string {
	return "role_change_audit"
}

func (a *RoleChangeAudit) BeforeCreate(tx *gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
