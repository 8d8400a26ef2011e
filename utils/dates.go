// utils/dates.go
package utils

import (
	"fmt"
	"time"
)

const PeriodLayout = "2006-01"

func BeginningOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

func DaysBetween(start, end time.Time) int {
	start = BeginningOfDay(start)
	end = BeginningOfDay(end)
	return int(end.Sub(start).Hours() / 24)
}

// ParsePeriod parses a YYYY-MM period into its first day (UTC).
func ParsePeriod(p string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, p)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid period %q, want YYYY-MM", p)
	}
	return t, nil
}

func FormatPeriod(year int, month time.Month) string {
	return fmt.Sprintf("%04d-%02d", year, int(month))
}

// FirstOfYear returns January 1st of year in UTC.
func FirstOfYear(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// FormatNorwegianDate renders dd.mm.yyyy, or "" for a nil time.
func FormatNorwegianDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("02.01.2006")
}
