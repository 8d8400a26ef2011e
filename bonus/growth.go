// Package bonus holds the supplier bonus arithmetic: the tiered growth
// bonus (vekstbonus), rule based loyalty and return commission, and the
// conversion of cumulative supplier figures into per-period deltas.
package bonus

import (
	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierNone Tier = ""
	TierTop  Tier = "5%+10%"
	TierBase Tier = "2.5%"
)

// Basis tells which comparison figure the growth was measured against.
type Basis string

const (
	BasisNoTurnover  Basis = "no_turnover"
	BasisSamePeriod  Basis = "same_period"
	BasisFullYear    Basis = "full_year"
	BasisNewCustomer Basis = "new_customer"
)

var (
	topThreshold  = decimal.NewFromInt(5)
	topBaseRate   = decimal.RequireFromString("0.05")
	topGrowthRate = decimal.RequireFromString("0.10")
	baseRate      = decimal.RequireFromString("0.025")
	hundred       = decimal.NewFromInt(100)
)

// GrowthInput is the pre-aggregated turnover of one salon with one
// supplier. Nil pointers mean the figure is not available.
type GrowthInput struct {
	// Current is the year-to-date turnover through the latest reported month.
	Current decimal.Decimal
	// PreviousSamePeriod is the prior year's turnover through the same month.
	PreviousSamePeriod *decimal.Decimal
	// PreviousFullYear is the prior year's December cumulative total.
	PreviousFullYear *decimal.Decimal
	// Override replaces both prior-year figures when set.
	Override *decimal.Decimal
}

type GrowthResult struct {
	Tier          Tier             `json:"tier"`
	Bonus         decimal.Decimal  `json:"bonus"`
	GrowthPercent *decimal.Decimal `json:"growthPercent"`
	Previous      decimal.Decimal  `json:"previous"`
	Basis         Basis            `json:"basis"`
	NewCustomer   bool             `json:"newCustomer"`
	Overridden    bool             `json:"overridden"`
}

// CalculateGrowth applies the growth tiers:
//
//	growth >= 5% or new customer: current*5% + (current-previous)*10%
//	0% < growth < 5%:             current*2.5%
//	growth <= 0%:                 nothing
//
// Missing or zero comparison figures never fail; they route the salon to
// the full-year fallback or to the new-customer branch.
func CalculateGrowth(in GrowthInput) GrowthResult {
	samePeriod, fullYear := in.PreviousSamePeriod, in.PreviousFullYear
	res := GrowthResult{Bonus: decimal.Zero}
	if in.Override != nil {
		samePeriod, fullYear = in.Override, in.Override
		res.Overridden = true
	}

	if !in.Current.IsPositive() {
		res.Basis = BasisNoTurnover
		return res
	}

	switch {
	case samePeriod != nil && samePeriod.IsPositive():
		res.Basis = BasisSamePeriod
		res.Previous = *samePeriod
		g := in.Current.Sub(*samePeriod).Div(*samePeriod).Mul(hundred)
		res.GrowthPercent = &g
	case fullYear != nil && fullYear.IsPositive():
		res.Basis = BasisFullYear
		res.Previous = *fullYear
		g := in.Current.Div(*fullYear).Mul(hundred).Sub(hundred)
		res.GrowthPercent = &g
	default:
		res.Basis = BasisNewCustomer
		res.NewCustomer = true
		res.Previous = decimal.Zero
	}

	switch {
	case res.NewCustomer || res.GrowthPercent.GreaterThanOrEqual(topThreshold):
		res.Tier = TierTop
		res.Bonus = in.Current.Mul(topBaseRate).
			Add(in.Current.Sub(res.Previous).Mul(topGrowthRate))
	case res.GrowthPercent.IsPositive():
		res.Tier = TierBase
		res.Bonus = in.Current.Mul(baseRate)
	default:
		res.Tier = TierNone
	}
	res.Bonus = res.Bonus.Round(2)
	if res.GrowthPercent != nil {
		g := res.GrowthPercent.Round(2)
		res.GrowthPercent = &g
	}
	return res
}
