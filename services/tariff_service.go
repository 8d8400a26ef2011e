package services

import (
	"context"
	"errors"
	"fmt"

	"salonportal-backend/config"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTariffYearExists = errors.New("target year already has tariff rows")
	ErrNoSourceRows     = errors.New("source year has no tariff rows")
	ErrSameYear         = errors.New("source and target year must differ")
)

type TariffService struct {
	db *gorm.DB
}

func NewTariffService(db *gorm.DB) *TariffService {
	return &TariffService{db: db}
}

func (s *TariffService) ListYear(ctx context.Context, year int) ([]models.TariffTemplate, error) {
	var rows []models.TariffTemplate
	err := s.db.WithContext(ctx).
		Where("year = ?", year).
		Order("position, seniority_from").
		Find(&rows).Error
	return rows, err
}

// Years lists the years that have tariff rows, newest first.
func (s *TariffService) Years(ctx context.Context) ([]int, error) {
	var years []int
	err := s.db.WithContext(ctx).
		Model(&models.TariffTemplate{}).
		Distinct("year").
		Order("year DESC").
		Pluck("year", &years).Error
	return years, err
}

// AdjustRate returns round(rate * (1 + pct/100), 2).
func AdjustRate(rate float64, pct decimal.Decimal) float64 {
	factor := decimal.NewFromInt(1).Add(pct.Div(decimal.NewFromInt(100)))
	return decimal.NewFromFloat(rate).Mul(factor).Round(2).InexactFloat64()
}

// CopyYear copies every row of source into target with hourly and monthly
// rates adjusted by adjustmentPct. Brackets and descriptions are kept,
// valid_from becomes January 1st of target and valid_to moves by the same
// number of years. If target already has rows the copy is refused unless
// replace is set, in which case they are replaced in the same transaction.
func (s *TariffService) CopyYear(ctx context.Context, source, target int, adjustmentPct float64, replace bool) ([]models.TariffTemplate, error) {
	if source == target {
		return nil, ErrSameYear
	}
	pct := decimal.NewFromFloat(adjustmentPct)
	shift := target - source

	var created []models.TariffTemplate
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.TariffTemplate
		if err := tx.Where("year = ?", source).Order("position, seniority_from").Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return ErrNoSourceRows
		}

		var existing int64
		if err := tx.Model(&models.TariffTemplate{}).Where("year = ?", target).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			if !replace {
				return fmt.Errorf("%w: %d has %d rows", ErrTariffYearExists, target, existing)
			}
			if err := tx.Where("year = ?", target).Delete(&models.TariffTemplate{}).Error; err != nil {
				return err
			}
		}

		created = make([]models.TariffTemplate, 0, len(rows))
		for _, r := range rows {
			row := models.TariffTemplate{
				Year:          target,
				Position:      r.Position,
				SeniorityFrom: r.SeniorityFrom,
				SeniorityTo:   r.SeniorityTo,
				HourlyRate:    AdjustRate(r.HourlyRate, pct),
				MonthlyPay:    AdjustRate(r.MonthlyPay, pct),
				Description:   r.Description,
				ValidFrom:     utils.FirstOfYear(target),
			}
			if r.ValidTo != nil {
				vt := r.ValidTo.AddDate(shift, 0, 0)
				row.ValidTo = &vt
			}
			created = append(created, row)
		}
		return tx.Create(&created).Error
	})
	if err != nil {
		return nil, err
	}

	config.Log().Info("Tariff year copied",
		zap.Int("source", source),
		zap.Int("target", target),
		zap.Float64("adjustment_pct", adjustmentPct),
		zap.Int("rows", len(created)))
	return created, nil
}

// ValidateTariff checks a single row before it is stored and defaults
// valid_from to January 1st of its year.
func ValidateTariff(t *models.TariffTemplate) error {
	switch {
	case t.Year < 2000 || t.Year > 2100:
		return errors.New("year out of range")
	case t.Position == "":
		return errors.New("position is required")
	case t.HourlyRate < 0 || t.MonthlyPay < 0:
		return errors.New("rates cannot be negative")
	case t.SeniorityTo != nil && *t.SeniorityTo < t.SeniorityFrom:
		return errors.New("seniority range is inverted")
	case t.ValidTo != nil && t.ValidTo.Before(t.ValidFrom):
		return errors.New("valid_to is before valid_from")
	}
	if t.ValidFrom.IsZero() {
		t.ValidFrom = utils.FirstOfYear(t.Year)
	}
	return nil
}
