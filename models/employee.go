package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EmploymentFixed     = "fast"
	EmploymentTemporary = "midlertidig"
	EmploymentOnCall    = "tilkalling"

	WageHourly     = "hourly"
	WageSalary     = "salary"
	WageCommission = "commission"

	Vacation5Weeks      = "5_weeks"
	Vacation5WeeksPlus1 = "5_weeks_plus_1"
	Vacation4WeeksPlus1 = "4_weeks_plus_1"
)

// Employee (ansatt) is an HR record. It may or may not have a portal login.
type Employee struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	SalonID uuid.UUID  `gorm:"type:uuid;index;not null" json:"salonId"`
	UserID  *uuid.UUID `gorm:"type:uuid;uniqueIndex" json:"userId"`

	FirstName string `gorm:"not null" json:"firstName"`
	LastName  string `gorm:"not null" json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`

	EmploymentType       string     `gorm:"type:varchar(20);default:'fast'" json:"employmentType"`
	EmploymentPercent    float64    `gorm:"type:decimal(5,2);default:100" json:"employmentPercent"`
	WageType             string     `gorm:"type:varchar(20);not null" json:"wageType"`
	HourlyWage           float64    `gorm:"type:decimal(12,2);default:0" json:"hourlyWage"`
	MonthlySalary        float64    `gorm:"type:decimal(12,2);default:0" json:"monthlySalary"`
	ServiceCommissionPct float64    `gorm:"type:decimal(5,2);default:0" json:"serviceCommissionPct"`
	ProductCommissionPct float64    `gorm:"type:decimal(5,2);default:0" json:"productCommissionPct"`
	VacationType         string     `gorm:"type:varchar(20);default:'5_weeks'" json:"vacationType"`
	TariffPosition       string     `json:"tariffPosition"`
	StartDate            *time.Time `json:"startDate"`
	IsActive             bool       `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (e *Employee) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

func IsValidEmploymentType(t string) bool {
	switch t {
	case EmploymentFixed, EmploymentTemporary, EmploymentOnCall:
		return true
	}
	return false
}

func IsValidWageType(t string) bool {
	switch t {
	case WageHourly, WageSalary, WageCommission:
		return true
	}
	return false
}

func IsValidVacationType(t string) bool {
	switch t {
	case Vacation5Weeks, Vacation5WeeksPlus1, Vacation4WeeksPlus1:
		return true
	}
	return false
}
