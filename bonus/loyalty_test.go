package bonus

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func month(y int, m time.Month) time.Time {
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

func baseRule(id string) Rule {
	return Rule{
		ID:                 id,
		ProductType:        ProductBoth,
		LoyaltyPctChemical: dec("3"),
		LoyaltyPctResale:   dec("2"),
		ReturnPctChemical:  dec("1"),
		ReturnPctResale:    dec("0.5"),
		ValidFrom:          month(2024, time.January),
		MinTurnover:        decimal.Zero,
		Active:             true,
	}
}

func TestSelectRulePriorityAndBrand(t *testing.T) {
	generic := baseRule("a-generic")
	generic.Priority = 1

	branded := baseRule("b-branded")
	branded.Brand = "Wella"
	branded.Priority = 1

	urgent := baseRule("c-urgent")
	urgent.Priority = 5

	sale := Sale{Period: month(2025, time.March), Brand: "wella", ProductType: ProductChemical, Turnover: dec("1000")}

	got, ok := SelectRule([]Rule{generic, branded}, sale, dec("1000"))
	if !ok || got.ID != "b-branded" {
		t.Fatalf("brand specific rule should win a priority tie, got %q", got.ID)
	}

	got, _ = SelectRule([]Rule{generic, branded, urgent}, sale, dec("1000"))
	if got.ID != "c-urgent" {
		t.Fatalf("highest priority should win, got %q", got.ID)
	}

	other := sale
	other.Brand = "Redken"
	got, _ = SelectRule([]Rule{generic, branded}, other, dec("1000"))
	if got.ID != "a-generic" {
		t.Fatalf("generic rule expected for other brand, got %q", got.ID)
	}
}

func TestSelectRuleWindowTypeAndBounds(t *testing.T) {
	expired := baseRule("expired")
	end := month(2024, time.December)
	expired.ValidTo = &end

	resaleOnly := baseRule("resale")
	resaleOnly.ProductType = ProductResale

	bounded := baseRule("bounded")
	max := dec("5000")
	bounded.MinTurnover = dec("1000")
	bounded.MaxTurnover = &max

	inactive := baseRule("inactive")
	inactive.Active = false

	sale := Sale{Period: month(2025, time.February), ProductType: ProductChemical, Turnover: dec("200")}

	if _, ok := SelectRule([]Rule{expired, resaleOnly, inactive}, sale, dec("2000")); ok {
		t.Fatalf("no rule should match")
	}
	if _, ok := SelectRule([]Rule{bounded}, sale, dec("999")); ok {
		t.Fatalf("below min turnover must not match")
	}
	if _, ok := SelectRule([]Rule{bounded}, sale, dec("5001")); ok {
		t.Fatalf("above max turnover must not match")
	}
	if _, ok := SelectRule([]Rule{bounded}, sale, dec("5000")); !ok {
		t.Fatalf("bounds are inclusive")
	}
}

func TestCalculateLoyalty(t *testing.T) {
	rules := []Rule{baseRule("r1")}
	sales := []Sale{
		{Period: month(2025, time.January), Brand: "X", ProductType: ProductChemical, Turnover: dec("10000")},
		{Period: month(2025, time.February), Brand: "X", ProductType: ProductResale, Turnover: dec("4000")},
		{Period: month(2023, time.February), Brand: "X", ProductType: ProductResale, Turnover: dec("100")},
	}
	res := CalculateLoyalty(rules, sales)

	// 10000*3% + 4000*2%
	if !res.Loyalty.Equal(dec("380")) {
		t.Fatalf("loyalty: expected 380 got %s", res.Loyalty)
	}
	// 10000*1% + 4000*0.5%
	if !res.Return.Equal(dec("120")) {
		t.Fatalf("return: expected 120 got %s", res.Return)
	}
	if res.Unmatched != 1 {
		t.Fatalf("expected the 2023 row to be unmatched, got %d", res.Unmatched)
	}
	if !res.Turnover.Equal(dec("14100")) {
		t.Fatalf("turnover: expected 14100 got %s", res.Turnover)
	}

	growth := CalculateGrowth(GrowthInput{Current: dec("106000"), PreviousSamePeriod: decPtr("100000")})
	if total := Total(growth, res); !total.Equal(dec("6400")) {
		t.Fatalf("total: expected 6400 got %s", total)
	}
}
