package utils

import (
	"fmt"
	"time"
)

// Month keys are canonical "YYYY-MM" everywhere inside the service layer and
// the database. The payments HTTP surface historically speaks "MM-YYYY"; that
// format is accepted and emitted only at the boundary through these helpers.

const (
	monthKeyLayout       = "2006-01"
	legacyMonthKeyLayout = "01-2006"
	dateKeyLayout        = "2006-01-02"
)

// MonthKey identifies a calendar month ("YYYY-MM")
type MonthKey string

// ParseMonthKey parses a canonical "YYYY-MM" key.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(monthKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month key %q: expected YYYY-MM", s)
	}
	return MonthKey(t.Format(monthKeyLayout)), nil
}

// ParseLegacyMonthKey parses the legacy "MM-YYYY" wire format into a
// canonical key.
func ParseLegacyMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(legacyMonthKeyLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: expected MM-YYYY", s)
	}
	return MonthKey(t.Format(monthKeyLayout)), nil
}

// ParseAnyMonthKey accepts either the canonical or the legacy format.
func ParseAnyMonthKey(s string) (MonthKey, error) {
	if mk, err := ParseMonthKey(s); err == nil {
		return mk, nil
	}
	return ParseLegacyMonthKey(s)
}

// MonthKeyOf returns the month key of t in t's location.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey(t.Format(monthKeyLayout))
}

func (m MonthKey) String() string { return string(m) }

// Legacy renders the "MM-YYYY" wire format.
func (m MonthKey) Legacy() string {
	t, err := time.Parse(monthKeyLayout, string(m))
	if err != nil {
		return string(m)
	}
	return t.Format(legacyMonthKeyLayout)
}

// Time returns midnight UTC on the first day of the month.
func (m MonthKey) Time() time.Time {
	t, _ := time.Parse(monthKeyLayout, string(m))
	return t
}

// Prev returns the preceding calendar month.
func (m MonthKey) Prev() MonthKey {
	return MonthKey(m.Time().AddDate(0, -1, 0).Format(monthKeyLayout))
}

// Next returns the following calendar month.
func (m MonthKey) Next() MonthKey {
	return MonthKey(m.Time().AddDate(0, 1, 0).Format(monthKeyLayout))
}

// Before reports whether m precedes other.
func (m MonthKey) Before(other MonthKey) bool {
	return m.Time().Before(other.Time())
}

// MonthsBetween walks months from first to last inclusive. first after last
// yields an empty slice.
func MonthsBetween(first, last MonthKey) []MonthKey {
	var out []MonthKey
	for m := first; !last.Before(m); m = m.Next() {
		out = append(out, m)
	}
	return out
}

// DateKey renders the canonical "YYYY-MM-DD" key of t in t's location.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey parses a "YYYY-MM-DD" key.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}
