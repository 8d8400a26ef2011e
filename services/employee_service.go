package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"salonportal-backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEmployeeHasUser  = errors.New("employee already has a user account")
	ErrEmployeeNoEmail  = errors.New("employee has no email address")
	ErrNotSalonRole     = errors.New("role must be a salon role")
	ErrEmployeeInactive = errors.New("employee is inactive")
)

// EmployeeInput carries the editable HR fields. Nil fields are left alone
// on update.
type EmployeeInput struct {
	FirstName            *string    `json:"firstName"`
	LastName             *string    `json:"lastName"`
	Email                *string    `json:"email"`
	Phone                *string    `json:"phone"`
	EmploymentType       *string    `json:"employmentType"`
	EmploymentPercent    *float64   `json:"employmentPercent"`
	WageType             *string    `json:"wageType"`
	HourlyWage           *float64   `json:"hourlyWage"`
	MonthlySalary        *float64   `json:"monthlySalary"`
	ServiceCommissionPct *float64   `json:"serviceCommissionPct"`
	ProductCommissionPct *float64   `json:"productCommissionPct"`
	VacationType         *string    `json:"vacationType"`
	TariffPosition       *string    `json:"tariffPosition"`
	StartDate            *time.Time `json:"startDate"`
	IsActive             *bool      `json:"isActive"`
}

// Apply copies the set fields onto e and validates the result.
func (in EmployeeInput) Apply(e *models.Employee) error {
	if in.FirstName != nil {
		e.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		e.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Email != nil {
		e.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Phone != nil {
		e.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.EmploymentType != nil {
		e.EmploymentType = *in.EmploymentType
	}
	if in.EmploymentPercent != nil {
		e.EmploymentPercent = *in.EmploymentPercent
	}
	if in.WageType != nil {
		e.WageType = *in.WageType
	}
	if in.HourlyWage != nil {
		e.HourlyWage = *in.HourlyWage
	}
	if in.MonthlySalary != nil {
		e.MonthlySalary = *in.MonthlySalary
	}
	if in.ServiceCommissionPct != nil {
		e.ServiceCommissionPct = *in.ServiceCommissionPct
	}
	if in.ProductCommissionPct != nil {
		e.ProductCommissionPct = *in.ProductCommissionPct
	}
	if in.VacationType != nil {
		e.VacationType = *in.VacationType
	}
	if in.TariffPosition != nil {
		e.TariffPosition = *in.TariffPosition
	}
	if in.StartDate != nil {
		e.StartDate = in.StartDate
	}
	if in.IsActive != nil {
		e.IsActive = *in.IsActive
	}
	return ValidateEmployee(e)
}

// ValidateEmployee fills defaults and checks ranges and enums.
func ValidateEmployee(e *models.Employee) error {
	if e.EmploymentType == "" {
		e.EmploymentType = models.EmploymentFixed
	}
	if e.VacationType == "" {
		e.VacationType = models.Vacation5Weeks
	}
	switch {
	case e.FirstName == "" || e.LastName == "":
		return errors.New("first and last name are required")
	case !models.IsValidEmploymentType(e.EmploymentType):
		return errors.New("employment type must be fast, midlertidig or tilkalling")
	case !models.IsValidWageType(e.WageType):
		return errors.New("wage type must be hourly, salary or commission")
	case !models.IsValidVacationType(e.VacationType):
		return errors.New("invalid vacation type")
	case e.EmploymentPercent < 0 || e.EmploymentPercent > 100:
		return errors.New("employment percent must be between 0 and 100")
	case e.HourlyWage < 0 || e.MonthlySalary < 0:
		return errors.New("wages cannot be negative")
	case e.ServiceCommissionPct < 0 || e.ServiceCommissionPct > 100 ||
		e.ProductCommissionPct < 0 || e.ProductCommissionPct > 100:
		return errors.New("commission percent must be between 0 and 100")
	}
	return nil
}

type EmployeeService struct {
	db *gorm.DB
}

func NewEmployeeService(db *gorm.DB) *EmployeeService {
	return &EmployeeService{db: db}
}

type RowResult struct {
	Row   int        `json:"row"`
	ID    *uuid.UUID `json:"id,omitempty"`
	Error string     `json:"error,omitempty"`
}

type BulkImportResult struct {
	Created int         `json:"created"`
	Failed  int         `json:"failed"`
	Rows    []RowResult `json:"rows"`
}

// BulkImport creates one employee per row in salonID. Each row stands on
// its own; a bad row is reported and skipped.
func (s *EmployeeService) BulkImport(ctx context.Context, salonID uuid.UUID, rows []EmployeeInput) (*BulkImportResult, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Salon{}).Where("id = ?", salonID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	res := &BulkImportResult{Rows: make([]RowResult, 0, len(rows))}
	for i, in := range rows {
		e := models.Employee{SalonID: salonID, IsActive: true, EmploymentPercent: 100}
		rr := RowResult{Row: i + 1}
		if err := in.Apply(&e); err != nil {
			rr.Error = err.Error()
		} else if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
			rr.Error = err.Error()
		} else {
			id := e.ID
			rr.ID = &id
		}
		if rr.Error != "" {
			res.Failed++
		} else {
			res.Created++
		}
		res.Rows = append(res.Rows, rr)
	}
	return res, nil
}

// CreateUser gives an employee a portal login with a generated temporary
// password and links the two. The password is returned once.
func (s *EmployeeService) CreateUser(ctx context.Context, employeeID uuid.UUID, role models.Role) (*models.User, string, error) {
	if role == "" {
		role = models.RoleEmployee
	}
	if !role.IsSalonRole() {
		return nil, "", ErrNotSalonRole
	}
	password, err := temporaryPassword()
	if err != nil {
		return nil, "", err
	}

	var user models.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var e models.Employee
		if err := tx.First(&e, "id = ?", employeeID).Error; err != nil {
			return err
		}
		switch {
		case e.UserID != nil:
			return ErrEmployeeHasUser
		case e.Email == "":
			return ErrEmployeeNoEmail
		case !e.IsActive:
			return ErrEmployeeInactive
		}

		var taken int64
		if err := tx.Model(&models.User{}).Where("LOWER(email) = ?", strings.ToLower(e.Email)).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrEmailTaken
		}

		salonID := e.SalonID
		user = models.User{
			Email:    strings.ToLower(e.Email),
			Password: password,
			Name:     e.FullName(),
			Phone:    e.Phone,
			Role:     role,
			SalonID:  &salonID,
			IsActive: true,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Model(&e).Update("user_id", user.ID).Error
	})
	if err != nil {
		return nil, "", err
	}
	return &user, password, nil
}

func temporaryPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
