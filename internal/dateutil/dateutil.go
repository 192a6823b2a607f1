// Package dateutil provides timezone-naive calendar date helpers.
//
// Dates travel through the app as YYYY-MM-DD strings and are always
// interpreted as local calendar dates, never UTC, so a transaction entered
// just before midnight lands on the day the user saw on the clock.
package dateutil

import (
	"fmt"
	"time"
)

const Layout = "2006-01-02"

// ParseISO parses a YYYY-MM-DD string as a local calendar date.
func ParseISO(iso string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, iso, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", iso, err)
	}
	return t, nil
}

// FormatISO renders the calendar date of t as YYYY-MM-DD.
func FormatISO(t time.Time) string {
	return t.Format(Layout)
}

// TodayISO returns the current local calendar date.
func TodayISO() string {
	return FormatISO(time.Now())
}

// AddDaysISO shifts an ISO date by n calendar days, rolling over month and
// year boundaries. n may be negative.
func AddDaysISO(iso string, n int) (string, error) {
	t, err := ParseISO(iso)
	if err != nil {
		return "", err
	}
	return FormatISO(t.AddDate(0, 0, n)), nil
}

// StartOfMonthISO returns the first day of the month containing iso, or of
// the current month when iso is empty.
func StartOfMonthISO(iso string) string {
	t := anchor(iso)
	return FormatISO(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local))
}

// EndOfMonthISO returns the last day of the month containing iso, or of the
// current month when iso is empty.
func EndOfMonthISO(iso string) string {
	t := anchor(iso)
	// Day zero of the next month is the last day of this one.
	return FormatISO(time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.Local))
}

// MonthOf truncates an ISO date to the first of its month, the canonical
// key for a budget period.
func MonthOf(iso string) string {
	if len(iso) >= 7 {
		return iso[:7] + "-01"
	}
	return StartOfMonthISO(iso)
}

func anchor(iso string) time.Time {
	if iso == "" {
		return time.Now()
	}
	t, err := ParseISO(iso)
	if err != nil {
		return time.Now()
	}
	return t
}

// FormatLocal renders an ISO date for display, e.g. "Aug 9, 2025".
// Malformed input is returned unchanged.
func FormatLocal(iso string) string {
	t, err := ParseISO(iso)
	if err != nil {
		return iso
	}
	return t.Format("Jan 2, 2006")
}

// RangeLabel renders a date range for display. A single-day range collapses
// to one full date; otherwise the start is shortened to month and day:
// "Aug 3 – Aug 9, 2025".
func RangeLabel(startISO, endISO string) string {
	if startISO == endISO {
		return FormatLocal(startISO)
	}
	s, err := ParseISO(startISO)
	if err != nil {
		return startISO + " – " + FormatLocal(endISO)
	}
	return s.Format("Jan 2") + " – " + FormatLocal(endISO)
}
