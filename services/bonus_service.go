package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"salonportal-backend/bonus"
	"salonportal-backend/config"
	"salonportal-backend/metrics"
	"salonportal-backend/models"
	"salonportal-backend/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNoRecipient       = errors.New("supplier has no contact email")
	ErrNothingToReport   = errors.New("no bonus calculations for this period")
	ErrCalculationFrozen = errors.New("calculation is already reported")
)

type BonusService struct {
	db        *gorm.DB
	functions FunctionInvoker
	now       func() time.Time
}

func NewBonusService(db *gorm.DB, functions FunctionInvoker) *BonusService {
	return &BonusService{db: db, functions: functions, now: time.Now}
}

// CalculationDetails is stored as JSON next to each calculation so the
// figures can be explained later.
type CalculationDetails struct {
	Year        int                 `json:"year"`
	LatestMonth int                 `json:"latestMonth"`
	Current     decimal.Decimal     `json:"current"`
	SamePeriod  *decimal.Decimal    `json:"previousSamePeriod"`
	FullYear    *decimal.Decimal    `json:"previousFullYear"`
	Override    *decimal.Decimal    `json:"override,omitempty"`
	Growth      bonus.GrowthResult  `json:"growth"`
	Loyalty     bonus.LoyaltyResult `json:"loyalty"`
	RuleCount   int                 `json:"ruleCount"`
}

func toRule(r models.BonusRule) bonus.Rule {
	rule := bonus.Rule{
		ID:                 r.ID.String(),
		Brand:              r.Brand,
		ProductType:        r.ProductType,
		LoyaltyPctChemical: decimal.NewFromFloat(r.LoyaltyPctChemical),
		LoyaltyPctResale:   decimal.NewFromFloat(r.LoyaltyPctResale),
		ReturnPctChemical:  decimal.NewFromFloat(r.ReturnPctChemical),
		ReturnPctResale:    decimal.NewFromFloat(r.ReturnPctResale),
		ValidFrom:          r.ValidFrom,
		ValidTo:            r.ValidTo,
		Priority:           r.Priority,
		MinTurnover:        decimal.NewFromFloat(r.MinTurnover),
		Active:             r.IsActive,
	}
	if r.MaxTurnover != nil {
		max := decimal.NewFromFloat(*r.MaxTurnover)
		rule.MaxTurnover = &max
	}
	return rule
}

type salonSales struct {
	series  bonus.MonthlySeries
	current []bonus.Sale
}

// Calculate recomputes the bonus of every salon with sales from supplier in
// year and upserts the results. Approved and reported calculations are
// left untouched.
func (s *BonusService) Calculate(ctx context.Context, supplierID uuid.UUID, year int) ([]models.BonusCalculation, error) {
	db := s.db.WithContext(ctx)

	var supplier models.Supplier
	if err := db.First(&supplier, "id = ?", supplierID).Error; err != nil {
		return nil, err
	}

	var ruleRows []models.BonusRule
	if err := db.Where("supplier_id = ?", supplierID).Find(&ruleRows).Error; err != nil {
		return nil, err
	}
	rules := make([]bonus.Rule, 0, len(ruleRows))
	for _, r := range ruleRows {
		rules = append(rules, toRule(r))
	}

	var sales []models.NormalizedSale
	if err := db.Where("supplier_id = ? AND period >= ? AND period <= ?",
		supplierID, utils.FormatPeriod(year-1, time.January), utils.FormatPeriod(year, time.December)).
		Find(&sales).Error; err != nil {
		return nil, err
	}

	var overrides []models.GrowthBonusOverride
	if err := db.Where("supplier_id = ? AND year = ?", supplierID, year).Find(&overrides).Error; err != nil {
		return nil, err
	}
	overrideBySalon := make(map[uuid.UUID]decimal.Decimal, len(overrides))
	for _, o := range overrides {
		overrideBySalon[o.SalonID] = decimal.NewFromFloat(o.PreviousTurnover)
	}

	bySalon := make(map[uuid.UUID]*salonSales)
	for _, row := range sales {
		period, err := utils.ParsePeriod(row.Period)
		if err != nil {
			config.Log().Warn("Skipping sale with bad period", zap.String("id", row.ID.String()), zap.String("period", row.Period))
			continue
		}
		ss, ok := bySalon[row.SalonID]
		if !ok {
			ss = &salonSales{series: bonus.MonthlySeries{}}
			bySalon[row.SalonID] = ss
		}
		turnover := decimal.NewFromFloat(row.Turnover)
		ss.series[row.Period] = ss.series[row.Period].Add(turnover)
		if period.Year() == year {
			ss.current = append(ss.current, bonus.Sale{
				Period:      period,
				Brand:       row.Brand,
				ProductType: row.ProductType,
				Turnover:    turnover,
			})
		}
	}

	salonIDs := make([]uuid.UUID, 0, len(bySalon))
	for id := range bySalon {
		salonIDs = append(salonIDs, id)
	}
	sort.Slice(salonIDs, func(i, j int) bool { return salonIDs[i].String() < salonIDs[j].String() })

	period := strconv.Itoa(year)
	results := make([]models.BonusCalculation, 0, len(salonIDs))
	for _, salonID := range salonIDs {
		ss := bySalon[salonID]
		in, latest := bonus.GrowthInputFor(ss.series, year)
		if o, ok := overrideBySalon[salonID]; ok {
			o := o
			in.Override = &o
		}
		growth := bonus.CalculateGrowth(in)
		loyalty := bonus.CalculateLoyalty(rules, ss.current)
		total := bonus.Total(growth, loyalty)

		details, err := json.Marshal(CalculationDetails{
			Year:        year,
			LatestMonth: int(latest),
			Current:     in.Current,
			SamePeriod:  in.PreviousSamePeriod,
			FullYear:    in.PreviousFullYear,
			Override:    in.Override,
			Growth:      growth,
			Loyalty:     loyalty,
			RuleCount:   len(rules),
		})
		if err != nil {
			return nil, fmt.Errorf("encode calculation details: %w", err)
		}

		calc := models.BonusCalculation{
			SalonID:                salonID,
			SupplierID:             supplierID,
			Period:                 period,
			TotalTurnover:          in.Current.Round(2).InexactFloat64(),
			GrowthBonusAmount:      growth.Bonus.InexactFloat64(),
			GrowthTier:             string(growth.Tier),
			LoyaltyBonusAmount:     loyalty.Loyalty.InexactFloat64(),
			ReturnCommissionAmount: loyalty.Return.InexactFloat64(),
			TotalBonus:             total.Round(2).InexactFloat64(),
			Status:                 models.BonusStatusDraft,
			CalculationDetails:     datatypes.JSON(details),
			CalculatedAt:           s.now(),
		}
		saved, err := s.upsert(db, calc)
		if err != nil {
			return nil, err
		}
		tier := calc.GrowthTier
		if tier == "" {
			tier = "none"
		}
		metrics.BonusCalculationsTotal.WithLabelValues(tier).Inc()
		results = append(results, saved)
	}

	config.Log().Info("Bonus calculated",
		zap.String("supplier_id", supplierID.String()),
		zap.Int("year", year),
		zap.Int("salons", len(results)))
	return results, nil
}

func (s *BonusService) upsert(db *gorm.DB, calc models.BonusCalculation) (models.BonusCalculation, error) {
	var existing models.BonusCalculation
	err := db.Where("salon_id = ? AND supplier_id = ? AND period = ?", calc.SalonID, calc.SupplierID, calc.Period).
		First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := db.Create(&calc).Error; err != nil {
			return calc, err
		}
		return calc, nil
	case err != nil:
		return calc, err
	}
	if existing.Status != models.BonusStatusDraft {
		return existing, nil
	}
	calc.ID = existing.ID
	calc.CreatedAt = existing.CreatedAt
	if err := db.Save(&calc).Error; err != nil {
		return calc, err
	}
	return calc, nil
}

// RecalculateAll runs Calculate for every active supplier.
func (s *BonusService) RecalculateAll(ctx context.Context, year int) error {
	var suppliers []models.Supplier
	if err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&suppliers).Error; err != nil {
		return err
	}
	var errs []error
	for _, sup := range suppliers {
		if _, err := s.Calculate(ctx, sup.ID, year); err != nil {
			config.Log().Error("Bonus recalculation failed",
				zap.String("supplier_id", sup.ID.String()), zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type ReportTotals struct {
	Turnover         float64 `json:"turnover"`
	GrowthBonus      float64 `json:"growthBonus"`
	LoyaltyBonus     float64 `json:"loyaltyBonus"`
	ReturnCommission float64 `json:"returnCommission"`
	TotalBonus       float64 `json:"totalBonus"`
}

type BonusReport struct {
	SupplierID   uuid.UUID                 `json:"supplierId"`
	SupplierName string                    `json:"supplierName"`
	Year         int                       `json:"year"`
	Rows         []models.BonusCalculation `json:"rows"`
	Totals       ReportTotals              `json:"totals"`
}

// Report reads the stored calculations of a supplier and year. It has no
// side effects.
func (s *BonusService) Report(ctx context.Context, supplierID uuid.UUID, year int) (*BonusReport, error) {
	db := s.db.WithContext(ctx)
	var supplier models.Supplier
	if err := db.First(&supplier, "id = ?", supplierID).Error; err != nil {
		return nil, err
	}

	var rows []models.BonusCalculation
	if err := db.Preload("Salon").
		Where("supplier_id = ? AND period = ?", supplierID, strconv.Itoa(year)).
		Order("total_bonus DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	turnover, growth, loyalty, ret, total := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	for _, r := range rows {
		turnover = turnover.Add(decimal.NewFromFloat(r.TotalTurnover))
		growth = growth.Add(decimal.NewFromFloat(r.GrowthBonusAmount))
		loyalty = loyalty.Add(decimal.NewFromFloat(r.LoyaltyBonusAmount))
		ret = ret.Add(decimal.NewFromFloat(r.ReturnCommissionAmount))
		total = total.Add(decimal.NewFromFloat(r.TotalBonus))
	}
	return &BonusReport{
		SupplierID:   supplier.ID,
		SupplierName: supplier.Name,
		Year:         year,
		Rows:         rows,
		Totals: ReportTotals{
			Turnover:         turnover.Round(2).InexactFloat64(),
			GrowthBonus:      growth.Round(2).InexactFloat64(),
			LoyaltyBonus:     loyalty.Round(2).InexactFloat64(),
			ReturnCommission: ret.Round(2).InexactFloat64(),
			TotalBonus:       total.Round(2).InexactFloat64(),
		},
	}, nil
}

// SendReport emails the report through the report function and marks the
// calculations as reported. recipient defaults to the supplier contact.
func (s *BonusService) SendReport(ctx context.Context, supplierID uuid.UUID, year int, recipient string) (*BonusReport, error) {
	report, err := s.Report(ctx, supplierID, year)
	if err != nil {
		return nil, err
	}
	if len(report.Rows) == 0 {
		return nil, ErrNothingToReport
	}
	if recipient == "" {
		var supplier models.Supplier
		if err := s.db.WithContext(ctx).Select("contact_email").First(&supplier, "id = ?", supplierID).Error; err != nil {
			return nil, err
		}
		recipient = supplier.ContactEmail
	}
	if recipient == "" {
		return nil, ErrNoRecipient
	}
	if s.functions == nil {
		return nil, ErrFunctionsNotConfigured
	}

	payload := map[string]interface{}{
		"recipient": recipient,
		"report":    report,
	}
	if err := s.functions.Invoke(ctx, FnSendGrowthBonusReport, payload, nil); err != nil {
		return nil, fmt.Errorf("send bonus report: %w", err)
	}

	now := s.now()
	ids := make([]uuid.UUID, 0, len(report.Rows))
	for _, r := range report.Rows {
		ids = append(ids, r.ID)
	}
	if err := s.db.WithContext(ctx).Model(&models.BonusCalculation{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{"status": models.BonusStatusReported, "reported_at": now}).Error; err != nil {
		return nil, err
	}
	for i := range report.Rows {
		report.Rows[i].Status = models.BonusStatusReported
		report.Rows[i].ReportedAt = &now
	}
	return report, nil
}

// Approve moves draft calculations to approved and returns how many moved.
func (s *BonusService) Approve(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Model(&models.BonusCalculation{}).
		Where("id IN ? AND status = ?", ids, models.BonusStatusDraft).
		Update("status", models.BonusStatusApproved)
	return res.RowsAffected, res.Error
}

// Reopen puts an approved calculation back to draft so it is recalculated.
func (s *BonusService) Reopen(ctx context.Context, id uuid.UUID) error {
	var calc models.BonusCalculation
	if err := s.db.WithContext(ctx).First(&calc, "id = ?", id).Error; err != nil {
		return err
	}
	if calc.Status == models.BonusStatusReported {
		return ErrCalculationFrozen
	}
	return s.db.WithContext(ctx).Model(&calc).Update("status", models.BonusStatusDraft).Error
}

type OverrideInput struct {
	SalonID          uuid.UUID `json:"salonId"`
	SupplierID       uuid.UUID `json:"supplierId"`
	Year             int       `json:"year"`
	PreviousTurnover float64   `json:"previousTurnover"`
	Reason           string    `json:"reason"`
}

// SetOverride creates or replaces the prior-year figure for a salon.
func (s *BonusService) SetOverride(ctx context.Context, setBy uuid.UUID, in OverrideInput) (*models.GrowthBonusOverride, error) {
	if in.PreviousTurnover < 0 {
		return nil, errors.New("previous turnover cannot be negative")
	}
	var o models.GrowthBonusOverride
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("salon_id = ? AND supplier_id = ? AND year = ?", in.SalonID, in.SupplierID, in.Year).First(&o).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		o.SalonID = in.SalonID
		o.SupplierID = in.SupplierID
		o.Year = in.Year
		o.PreviousTurnover = decimal.NewFromFloat(in.PreviousTurnover).Round(2).InexactFloat64()
		o.Reason = in.Reason
		o.SetBy = setBy
		if o.ID == uuid.Nil {
			return tx.Create(&o).Error
		}
		return tx.Save(&o).Error
	})
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *BonusService) DeleteOverride(ctx context.Context, id uuid.UUID) error {
	res := s.db.WithContext(ctx).Delete(&models.GrowthBonusOverride{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ValidateRule checks a bonus rule before it is stored.
func ValidateRule(r *models.BonusRule) error {
	switch {
	case !models.IsValidProductType(r.ProductType):
		return errors.New("product type must be chemical, resale or both")
	case r.LoyaltyPctChemical < 0 || r.LoyaltyPctResale < 0 || r.ReturnPctChemical < 0 || r.ReturnPctResale < 0:
		return errors.New("percentages cannot be negative")
	case r.LoyaltyPctChemical > 100 || r.LoyaltyPctResale > 100 || r.ReturnPctChemical > 100 || r.ReturnPctResale > 100:
		return errors.New("percentages cannot exceed 100")
	case r.ValidFrom.IsZero():
		return errors.New("valid_from is required")
	case r.ValidTo != nil && r.ValidTo.Before(r.ValidFrom):
		return errors.New("valid_to is before valid_from")
	case r.MaxTurnover != nil && *r.MaxTurnover < r.MinTurnover:
		return errors.New("max turnover is below min turnover")
	}
	return nil
}
