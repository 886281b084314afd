package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day in "2006-01-02" form. The ISO layout makes
// lexicographic comparison equal to chronological comparison.
type Date string

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// ParseDate validates a date string.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse(dateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date(s), nil
}

// Time returns the midnight UTC instant of the date.
func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Before reports whether d is chronologically before other.
func (d Date) Before(other Date) bool { return d < other }

// After reports whether d is chronologically after other.
func (d Date) After(other Date) bool { return d > other }

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// Days returns the number of days the range covers.
func (r DateRange) Days() int {
	if r.From > r.To {
		return 0
	}
	return int(r.To.Time().Sub(r.From.Time())/(24*time.Hour)) + 1
}

// Dates enumerates every day in the range in ascending order.
func (r DateRange) Dates() []Date {
	n := r.Days()
	out := make([]Date, 0, n)
	for d := r.From; !d.After(r.To); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}
