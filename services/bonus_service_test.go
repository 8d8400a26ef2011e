package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonportal-backend/bonus"
	"salonportal-backend/models"

	"github.com/google/uuid"
)

type bonusFixture struct {
	svc      *BonusService
	fn       *fakeFunctions
	supplier *models.Supplier
	salon    *models.Salon
}

func newBonusFixture(t *testing.T) bonusFixture {
	t.Helper()
	db := newTestDB(t)
	fn := &fakeFunctions{}
	f := bonusFixture{
		svc:      NewBonusService(db, fn),
		fn:       fn,
		supplier: &models.Supplier{Name: "Hårpleie AS", ContactEmail: "bonus@harpleie.no", IsActive: true},
		salon:    &models.Salon{Name: "Salong Vest", OrgNumber: "923609016", IsActive: true},
	}
	mustCreate(t, db, f.supplier)
	mustCreate(t, db, f.salon)

	rule := &models.BonusRule{
		SupplierID:         f.supplier.ID,
		Name:               "Standard",
		ProductType:        models.ProductTypeChemical,
		LoyaltyPctChemical: 2,
		ReturnPctChemical:  1,
		ValidFrom:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		IsActive:           true,
	}
	if err := ValidateRule(rule); err != nil {
		t.Fatalf("validate rule: %v", err)
	}
	mustCreate(t, db, rule)

	for _, sale := range []models.NormalizedSale{
		{SupplierID: f.supplier.ID, SalonID: f.salon.ID, Period: "2024-03", Brand: "Redken", ProductType: models.ProductTypeChemical, Turnover: 100000},
		{SupplierID: f.supplier.ID, SalonID: f.salon.ID, Period: "2025-03", Brand: "Redken", ProductType: models.ProductTypeChemical, Turnover: 104000},
	} {
		sale := sale
		mustCreate(t, db, &sale)
	}
	return f
}

func (f bonusFixture) calculate(t *testing.T) models.BonusCalculation {
	t.Helper()
	calcs, err := f.svc.Calculate(context.Background(), f.supplier.ID, 2025)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if len(calcs) != 1 {
		t.Fatalf("expected one calculation got %d", len(calcs))
	}
	return calcs[0]
}

func TestBonusCalculate(t *testing.T) {
	f := newBonusFixture(t)

	calc := f.calculate(t)
	if calc.Period != "2025" || calc.Status != models.BonusStatusDraft {
		t.Fatalf("unexpected calculation: %+v", calc)
	}
	if calc.TotalTurnover != 104000 {
		t.Fatalf("turnover: %v", calc.TotalTurnover)
	}
	if calc.GrowthBonusAmount != 2600 || calc.GrowthTier != string(bonus.TierBase) {
		t.Fatalf("growth: %v %s", calc.GrowthBonusAmount, calc.GrowthTier)
	}
	if calc.LoyaltyBonusAmount != 2080 || calc.ReturnCommissionAmount != 1040 {
		t.Fatalf("loyalty: %v return: %v", calc.LoyaltyBonusAmount, calc.ReturnCommissionAmount)
	}
	if calc.TotalBonus != 5720 {
		t.Fatalf("total: %v", calc.TotalBonus)
	}

	again := f.calculate(t)
	if again.ID != calc.ID {
		t.Fatalf("recalculation must update the same row")
	}
}

func TestBonusOverrideAndApproval(t *testing.T) {
	f := newBonusFixture(t)
	ctx := context.Background()
	calc := f.calculate(t)

	o, err := f.svc.SetOverride(ctx, uuid.New(), OverrideInput{
		SalonID:          f.salon.ID,
		SupplierID:       f.supplier.ID,
		Year:             2025,
		PreviousTurnover: 50000,
		Reason:           "Manglende historikk",
	})
	if err != nil {
		t.Fatalf("set override: %v", err)
	}
	overridden := f.calculate(t)
	if overridden.GrowthBonusAmount != 10600 || overridden.TotalBonus != 13720 {
		t.Fatalf("override not applied: %+v", overridden)
	}

	n, err := f.svc.Approve(ctx, []uuid.UUID{calc.ID})
	if err != nil || n != 1 {
		t.Fatalf("approve: %d %v", n, err)
	}
	if err := f.svc.DeleteOverride(ctx, o.ID); err != nil {
		t.Fatalf("delete override: %v", err)
	}
	frozen := f.calculate(t)
	if frozen.Status != models.BonusStatusApproved || frozen.TotalBonus != 13720 {
		t.Fatalf("approved calculation changed: %+v", frozen)
	}

	if err := f.svc.Reopen(ctx, calc.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	reopened := f.calculate(t)
	if reopened.Status != models.BonusStatusDraft || reopened.TotalBonus != 5720 {
		t.Fatalf("reopened calculation not refreshed: %+v", reopened)
	}
}

func TestBonusReportAndSend(t *testing.T) {
	f := newBonusFixture(t)
	ctx := context.Background()

	if _, err := f.svc.SendReport(ctx, f.supplier.ID, 2025, ""); !errors.Is(err, ErrNothingToReport) {
		t.Fatalf("expected ErrNothingToReport got %v", err)
	}
	calc := f.calculate(t)

	report, err := f.svc.Report(ctx, f.supplier.ID, 2025)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if len(report.Rows) != 1 || report.Totals.TotalBonus != 5720 || report.SupplierName != "Hårpleie AS" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Rows[0].Salon == nil || report.Rows[0].Salon.Name != "Salong Vest" {
		t.Fatalf("salon not preloaded")
	}

	sent, err := f.svc.SendReport(ctx, f.supplier.ID, 2025, "")
	if err != nil {
		t.Fatalf("send report: %v", err)
	}
	if f.fn.count(FnSendGrowthBonusReport) != 1 {
		t.Fatalf("report function not called")
	}
	payload := f.fn.calls[0].Payload.(map[string]interface{})
	if payload["recipient"] != "bonus@harpleie.no" {
		t.Fatalf("recipient: %v", payload["recipient"])
	}
	if sent.Rows[0].Status != models.BonusStatusReported || sent.Rows[0].ReportedAt == nil {
		t.Fatalf("rows not marked reported")
	}
	if err := f.svc.Reopen(ctx, calc.ID); !errors.Is(err, ErrCalculationFrozen) {
		t.Fatalf("expected ErrCalculationFrozen got %v", err)
	}
}

func TestRecalculateAllSkipsInactiveSuppliers(t *testing.T) {
	f := newBonusFixture(t)
	inactive := &models.Supplier{Name: "Nedlagt AS"}
	mustCreate(t, f.svc.db, inactive)
	f.svc.db.Model(inactive).Update("is_active", false)

	if err := f.svc.RecalculateAll(context.Background(), 2025); err != nil {
		t.Fatalf("recalculate all: %v", err)
	}
	var count int64
	f.svc.db.Model(&models.BonusCalculation{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected one calculation got %d", count)
	}
}

func TestValidateRule(t *testing.T) {
	valid := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	max := 10.0
	bad := []models.BonusRule{
		{ProductType: "hair", ValidFrom: valid},
		{ProductType: models.ProductTypeBoth, LoyaltyPctResale: -1, ValidFrom: valid},
		{ProductType: models.ProductTypeBoth, ReturnPctChemical: 101, ValidFrom: valid},
		{ProductType: models.ProductTypeBoth},
		{ProductType: models.ProductTypeBoth, ValidFrom: valid, MinTurnover: 20, MaxTurnover: &max},
	}
	for i := range bad {
		if err := ValidateRule(&bad[i]); err == nil {
			t.Fatalf("rule %d: expected error", i)
		}
	}
}
