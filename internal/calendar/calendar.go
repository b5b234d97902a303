// Package calendar holds the date conventions shared by fee, attendance and
// reporting code: dates travel as YYYY-MM-DD and months are half-open
// [first day, first day of next month) ranges in UTC.
package calendar

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return t, nil
}

// ParseMonth parses YYYY-MM.
func ParseMonth(value string) (year int, month time.Month, err error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q, expected YYYY-MM", value)
	}
	return t.Year(), t.Month(), nil
}

// Today is the current date at midnight UTC.
func Today() time.Time {
	return Day(time.Now())
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FirstOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns [start, end) for the given month.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
