package bonus

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestCalculateGrowthTiers(t *testing.T) {
	cases := []struct {
		name     string
		previous string
		current  string
		bonus    string
		tier     Tier
	}{
		{"flat", "100000", "100000", "0", TierNone},
		{"four percent", "100000", "104000", "2600", TierBase},
		{"six percent", "100000", "106000", "5900", TierTop},
		{"exactly five percent", "100000", "105000", "5750", TierTop},
		{"new customer", "0", "50000", "7500", TierTop},
		{"decline", "100000", "90000", "0", TierNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := CalculateGrowth(GrowthInput{
				Current:            dec(tc.current),
				PreviousSamePeriod: decPtr(tc.previous),
			})
			if !res.Bonus.Equal(dec(tc.bonus)) {
				t.Fatalf("bonus: expected %s got %s", tc.bonus, res.Bonus)
			}
			if res.Tier != tc.tier {
				t.Fatalf("tier: expected %q got %q", tc.tier, res.Tier)
			}
		})
	}
}

func TestCalculateGrowthNoTurnover(t *testing.T) {
	res := CalculateGrowth(GrowthInput{Current: dec("0"), PreviousSamePeriod: decPtr("100")})
	if !res.Bonus.IsZero() || res.Tier != TierNone {
		t.Fatalf("expected no bonus, got %s %q", res.Bonus, res.Tier)
	}
	if res.Basis != BasisNoTurnover {
		t.Fatalf("expected basis %q got %q", BasisNoTurnover, res.Basis)
	}

	res = CalculateGrowth(GrowthInput{Current: dec("-10")})
	if !res.Bonus.IsZero() || res.NewCustomer {
		t.Fatalf("negative turnover must not be treated as new customer")
	}
}

func TestCalculateGrowthNewCustomerWithoutAnyHistory(t *testing.T) {
	res := CalculateGrowth(GrowthInput{Current: dec("50000")})
	if !res.NewCustomer {
		t.Fatalf("expected new customer")
	}
	if res.GrowthPercent != nil {
		t.Fatalf("new customer must not carry a growth percent")
	}
	if !res.Bonus.Equal(dec("7500")) {
		t.Fatalf("expected 7500 got %s", res.Bonus)
	}
}

func TestCalculateGrowthFullYearFallback(t *testing.T) {
	// 103% of last year's total: growth 3% through the fallback path.
	res := CalculateGrowth(GrowthInput{
		Current:          dec("103000"),
		PreviousFullYear: decPtr("100000"),
	})
	if res.Basis != BasisFullYear {
		t.Fatalf("expected full year basis got %q", res.Basis)
	}
	if res.Tier != TierBase || !res.Bonus.Equal(dec("2575")) {
		t.Fatalf("expected 2.5%% tier with 2575, got %q %s", res.Tier, res.Bonus)
	}

	// Zero same-period figure falls through to the full-year total.
	res = CalculateGrowth(GrowthInput{
		Current:            dec("120000"),
		PreviousSamePeriod: decPtr("0"),
		PreviousFullYear:   decPtr("100000"),
	})
	if res.Basis != BasisFullYear || res.Tier != TierTop {
		t.Fatalf("expected top tier via full year, got %q %q", res.Basis, res.Tier)
	}
	// 120000*0.05 + 20000*0.10
	if !res.Bonus.Equal(dec("8000")) {
		t.Fatalf("expected 8000 got %s", res.Bonus)
	}
}

func TestCalculateGrowthOverrideAppliedFirst(t *testing.T) {
	res := CalculateGrowth(GrowthInput{
		Current:            dec("104000"),
		PreviousSamePeriod: decPtr("50000"),
		Override:           decPtr("100000"),
	})
	if !res.Overridden {
		t.Fatalf("expected override flag")
	}
	if res.Tier != TierBase || !res.Bonus.Equal(dec("2600")) {
		t.Fatalf("override not applied before branching: %q %s", res.Tier, res.Bonus)
	}
	if res.GrowthPercent == nil || !res.GrowthPercent.Equal(dec("4")) {
		t.Fatalf("expected growth 4, got %v", res.GrowthPercent)
	}
}

func TestCalculateGrowthZeroOverrideMakesNewCustomer(t *testing.T) {
	res := CalculateGrowth(GrowthInput{
		Current:            dec("50000"),
		PreviousSamePeriod: decPtr("40000"),
		Override:           decPtr("0"),
	})
	if !res.NewCustomer || !res.Bonus.Equal(dec("7500")) {
		t.Fatalf("expected new customer bonus 7500, got %v %s", res.NewCustomer, res.Bonus)
	}
}
