package bonus

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ProductChemical = "chemical"
	ProductResale   = "resale"
	ProductBoth     = "both"
)

// Rule is the arithmetic view of a supplier bonus rule. Percentages are
// whole percent (2.5 means 2.5%).
type Rule struct {
	ID                 string
	Brand              string
	ProductType        string
	LoyaltyPctChemical decimal.Decimal
	LoyaltyPctResale   decimal.Decimal
	ReturnPctChemical  decimal.Decimal
	ReturnPctResale    decimal.Decimal
	ValidFrom          time.Time
	ValidTo            *time.Time
	Priority           int
	MinTurnover        decimal.Decimal
	MaxTurnover        *decimal.Decimal
	Active             bool
}

// Sale is one normalized sales row. Turnover is already a delta for
// cumulative suppliers.
type Sale struct {
	Period      time.Time
	Brand       string
	ProductType string
	Turnover    decimal.Decimal
}

type LoyaltyLine struct {
	Period      string          `json:"period"`
	Brand       string          `json:"brand"`
	ProductType string          `json:"productType"`
	Turnover    decimal.Decimal `json:"turnover"`
	RuleID      string          `json:"ruleId,omitempty"`
	Loyalty     decimal.Decimal `json:"loyalty"`
	Return      decimal.Decimal `json:"return"`
}

type LoyaltyResult struct {
	Lines     []LoyaltyLine   `json:"lines"`
	Turnover  decimal.Decimal `json:"turnover"`
	Loyalty   decimal.Decimal `json:"loyalty"`
	Return    decimal.Decimal `json:"return"`
	Unmatched int             `json:"unmatched"`
}

func (r Rule) matches(s Sale, salonTurnover decimal.Decimal) bool {
	if !r.Active {
		return false
	}
	if r.Brand != "" && !strings.EqualFold(strings.TrimSpace(r.Brand), strings.TrimSpace(s.Brand)) {
		return false
	}
	if r.ProductType != ProductBoth && r.ProductType != s.ProductType {
		return false
	}
	if s.Period.Before(r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && s.Period.After(*r.ValidTo) {
		return false
	}
	if salonTurnover.LessThan(r.MinTurnover) {
		return false
	}
	if r.MaxTurnover != nil && salonTurnover.GreaterThan(*r.MaxTurnover) {
		return false
	}
	return true
}

// SelectRule picks the rule for a sale: highest priority first, then a
// brand specific rule over a generic one, then the most recent ValidFrom,
// then the lowest id so the choice is stable.
func SelectRule(rules []Rule, s Sale, salonTurnover decimal.Decimal) (Rule, bool) {
	var candidates []Rule
	for _, r := range rules {
		if r.matches(s, salonTurnover) {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return Rule{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if (a.Brand != "") != (b.Brand != "") {
			return a.Brand != ""
		}
		if !a.ValidFrom.Equal(b.ValidFrom) {
			return a.ValidFrom.After(b.ValidFrom)
		}
		return a.ID < b.ID
	})
	return candidates[0], true
}

// CalculateLoyalty applies the selected rule to every sale and sums the
// loyalty bonus and return commission. The min/max turnover bounds are
// checked against the salon's total turnover across all given sales.
func CalculateLoyalty(rules []Rule, sales []Sale) LoyaltyResult {
	res := LoyaltyResult{Turnover: decimal.Zero, Loyalty: decimal.Zero, Return: decimal.Zero}
	for _, s := range sales {
		res.Turnover = res.Turnover.Add(s.Turnover)
	}

	for _, s := range sales {
		line := LoyaltyLine{
			Period:      s.Period.Format(periodLayout),
			Brand:       s.Brand,
			ProductType: s.ProductType,
			Turnover:    s.Turnover,
			Loyalty:     decimal.Zero,
			Return:      decimal.Zero,
		}
		rule, ok := SelectRule(rules, s, res.Turnover)
		if !ok {
			res.Unmatched++
			res.Lines = append(res.Lines, line)
			continue
		}
		loyaltyPct, returnPct := rule.LoyaltyPctChemical, rule.ReturnPctChemical
		if s.ProductType == ProductResale {
			loyaltyPct, returnPct = rule.LoyaltyPctResale, rule.ReturnPctResale
		}
		line.RuleID = rule.ID
		line.Loyalty = s.Turnover.Mul(loyaltyPct).Div(hundred).Round(2)
		line.Return = s.Turnover.Mul(returnPct).Div(hundred).Round(2)
		res.Loyalty = res.Loyalty.Add(line.Loyalty)
		res.Return = res.Return.Add(line.Return)
		res.Lines = append(res.Lines, line)
	}
	return res
}

// Total is growth bonus + loyalty + return commission.
func Total(growth GrowthResult, loyalty LoyaltyResult) decimal.Decimal {
	return growth.Bonus.Add(loyalty.Loyalty).Add(loyalty.Return)
}
