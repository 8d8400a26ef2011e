package bonus

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const periodLayout = "2006-01"

// PeriodValue is a figure reported for a YYYY-MM period.
type PeriodValue struct {
	Period string
	Value  decimal.Decimal
}

// PeriodDelta keeps the reported cumulative value next to the derived delta.
type PeriodDelta struct {
	Period     string
	Cumulative decimal.Decimal
	Delta      decimal.Decimal
}

// DeriveDeltas converts year-to-date figures into per-period amounts:
// delta(p) = value(p) - value(previous reported period of the same year).
// The first reported period of each year keeps its value as the delta.
// Negative deltas are kept; they are supplier corrections.
func DeriveDeltas(values []PeriodValue) []PeriodDelta {
	sorted := make([]PeriodValue, len(values))
	copy(sorted, values)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Period < sorted[j].Period })

	out := make([]PeriodDelta, 0, len(sorted))
	prevYear := ""
	prev := decimal.Zero
	for _, v := range sorted {
		year := v.Period
		if len(year) >= 4 {
			year = year[:4]
		}
		if year != prevYear {
			prev = decimal.Zero
			prevYear = year
		}
		out = append(out, PeriodDelta{
			Period:     v.Period,
			Cumulative: v.Value,
			Delta:      v.Value.Sub(prev),
		})
		prev = v.Value
	}
	return out
}

// MonthlySeries maps YYYY-MM to the turnover (delta) of that month.
type MonthlySeries map[string]decimal.Decimal

// GrowthInputFor builds the comparison figures for year out of a monthly
// series. The current figure runs through the latest month reported in
// year; the same-period figure exists only if the prior year has a row for
// that month; the full-year figure exists only if the prior year has a
// December row.
func GrowthInputFor(series MonthlySeries, year int) (GrowthInput, time.Month) {
	var in GrowthInput
	latest := time.Month(0)
	for p := range series {
		t, err := time.Parse(periodLayout, p)
		if err != nil || t.Year() != year {
			continue
		}
		if t.Month() > latest {
			latest = t.Month()
		}
	}
	if latest == 0 {
		in.Current = decimal.Zero
	} else {
		in.Current = sumThrough(series, year, latest)
	}

	prevYear := year - 1
	if latest != 0 {
		if _, ok := series[periodKey(prevYear, latest)]; ok {
			v := sumThrough(series, prevYear, latest)
			in.PreviousSamePeriod = &v
		}
	}
	if _, ok := series[periodKey(prevYear, time.December)]; ok {
		v := sumThrough(series, prevYear, time.December)
		in.PreviousFullYear = &v
	}
	return in, latest
}

func sumThrough(series MonthlySeries, year int, through time.Month) decimal.Decimal {
	total := decimal.Zero
	for m := time.January; m <= through; m++ {
		if v, ok := series[periodKey(year, m)]; ok {
			total = total.Add(v)
		}
	}
	return total
}

func periodKey(year int, m time.Month) string {
	return time.Date(year, m, 1, 0, 0, 0, 0, time.UTC).Format(periodLayout)
}
