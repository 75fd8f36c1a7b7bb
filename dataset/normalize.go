package dataset

import (
	"fmt"
	"time"
)

// CanonicalDate returns the first day of the given month at midnight UTC
func CanonicalDate(year, month int) time.Time {
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
}

// PeriodLabel formats a (year, month) pair as "YYYY-MM"
func PeriodLabel(year, month int) string {
	return fmt.Sprintf("%04d-%02d", year, month)
}

// ParsePeriod parses a "YYYY-MM" label
func ParsePeriod(label string) (year, month int, ok bool) {
	if len(label) != 7 || label[4] != '-' {
		return 0, 0, false
	}
	if _, err := fmt.Sscanf(label, "%4d-%2d", &year, &month); err != nil {
		return 0, 0, false
	}
	if year <= 0 || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, month, true
}

// NextMonth advances one calendar month with year rollover
func NextMonth(year, month int) (int, int) {
	if month == 12 {
		return year + 1, 1
	}
	return year, month + 1
}

// NormalizeTime reconciles the time fields of a row so that date,
// year, month and period are populated and mutually consistent.
// Preference order: an existing timestamp wins; otherwise the date is
// reconstructed from the period label or from year/month. All
// timestamps are normalized to UTC exactly once here. Returns false
// when no time information is derivable; such rows keep their null
// fields and are excluded from aggregation by the caller.
func NormalizeTime(r *Row) bool {
	if !r.Date.IsZero() {
		r.Date = r.Date.UTC()
	}

	// Reconstruct the date from the period label when missing
	if r.Date.IsZero() && r.Period != "" {
		if y, m, ok := ParsePeriod(r.Period); ok {
			r.Date = CanonicalDate(y, m)
		}
	}

	// Reconstruct the date from explicit year/month when missing
	if r.Date.IsZero() && r.Year > 0 && r.Month >= 1 && r.Month <= 12 {
		r.Date = CanonicalDate(r.Year, r.Month)
	}

	if r.Date.IsZero() {
		// No derivable time information. Leave the fields null so the
		// row is visibly excluded rather than silently corrupted.
		r.Year, r.Month, r.Period = 0, 0, ""
		return false
	}

	// The timestamp is now authoritative for every derived field
	r.Year = r.Date.Year()
	r.Month = int(r.Date.Month())
	r.Period = PeriodLabel(r.Year, r.Month)
	return true
}

// NormalizeSales normalizes every line in place and returns the rows
// with resolvable time information plus the count of excluded rows
func NormalizeSales(lines []SalesLine) ([]SalesLine, int) {
	kept := make([]SalesLine, 0, len(lines))
	dropped := 0
	for i := range lines {
		if NormalizeTime(&lines[i].Row) {
			kept = append(kept, lines[i])
		} else {
			dropped++
		}
	}
	return kept, dropped
}
