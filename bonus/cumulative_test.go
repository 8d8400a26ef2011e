package bonus

import (
	"testing"
	"time"
)

func TestDeriveDeltas(t *testing.T) {
	got := DeriveDeltas([]PeriodValue{
		{Period: "2025-02", Value: dec("250")},
		{Period: "2024-12", Value: dec("1200")},
		{Period: "2025-01", Value: dec("100")},
		{Period: "2025-04", Value: dec("240")},
	})
	want := []struct {
		period string
		delta  string
	}{
		{"2024-12", "1200"},
		{"2025-01", "100"},
		{"2025-02", "150"},
		{"2025-04", "-10"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d deltas got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Period != w.period || !got[i].Delta.Equal(dec(w.delta)) {
			t.Fatalf("row %d: expected %s/%s got %s/%s", i, w.period, w.delta, got[i].Period, got[i].Delta)
		}
	}
	if !got[2].Cumulative.Equal(dec("250")) {
		t.Fatalf("cumulative value must be preserved, got %s", got[2].Cumulative)
	}
}

func TestGrowthInputFor(t *testing.T) {
	series := MonthlySeries{
		"2024-01": dec("40000"),
		"2024-02": dec("60000"),
		"2024-12": dec("50000"),
		"2025-01": dec("50000"),
		"2025-02": dec("54000"),
	}
	in, latest := GrowthInputFor(series, 2025)
	if latest != time.February {
		t.Fatalf("expected February, got %s", latest)
	}
	if !in.Current.Equal(dec("104000")) {
		t.Fatalf("current: expected 104000 got %s", in.Current)
	}
	if in.PreviousSamePeriod == nil || !in.PreviousSamePeriod.Equal(dec("100000")) {
		t.Fatalf("same period: expected 100000 got %v", in.PreviousSamePeriod)
	}
	if in.PreviousFullYear == nil || !in.PreviousFullYear.Equal(dec("150000")) {
		t.Fatalf("full year: expected 150000 got %v", in.PreviousFullYear)
	}

	res := CalculateGrowth(in)
	if !res.Bonus.Equal(dec("2600")) {
		t.Fatalf("expected 2600 got %s", res.Bonus)
	}
}

func TestGrowthInputForMissingSameMonth(t *testing.T) {
	series := MonthlySeries{
		"2024-12": dec("100000"),
		"2025-03": dec("110000"),
	}
	in, _ := GrowthInputFor(series, 2025)
	if in.PreviousSamePeriod != nil {
		t.Fatalf("same period must be missing")
	}
	res := CalculateGrowth(in)
	if res.Basis != BasisFullYear {
		t.Fatalf("expected full year fallback, got %q", res.Basis)
	}
}
