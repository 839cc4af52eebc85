package services

import (
	"fmt"
	"time"
)

const (
	// DateLayout is the canonical calendar date format used for every stored date.
	DateLayout = "2006-01-02"
	// MonthLayout identifies a calendar month for the make-up quota reset.
	MonthLayout = "2006-01"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
func SystemClock() Clock { return ClockFunc(time.Now) }

// Calendar resolves "today" in one fixed timezone so every operation agrees on the date boundary.
type Calendar struct {
	clock Clock
	loc   *time.Location
}

// NewCalendar returns a calendar for loc. A nil clock means the wall clock and a nil loc means UTC.
func NewCalendar(clock Clock, loc *time.Location) *Calendar {
	if clock == nil {
		clock = SystemClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{clock: clock, loc: loc}
}

// Now returns the current instant in the calendar's timezone.
func (c *Calendar) Now() time.Time {
	return c.clock.Now().In(c.loc)
}

// Today returns the current calendar date.
func (c *Calendar) Today() string {
	return c.Now().Format(DateLayout)
}

// Yesterday returns the calendar date before Today.
func (c *Calendar) Yesterday() string {
	d, _ := AddDays(c.Today(), -1)
	return d
}

// CurrentMonth returns the current calendar month.
func (c *Calendar) CurrentMonth() string {
	return c.Now().Format(MonthLayout)
}

// ParseDate accepts only the canonical YYYY-MM-DD form. The result is midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// AddDays shifts a canonical date by n calendar days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// DaysBetween returns to minus from in whole calendar days.
func DaysBetween(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	return int(t.Sub(f).Hours() / 24), nil
}

// MonthOf returns the YYYY-MM prefix of a canonical date.
func MonthOf(date string) string {
	if len(date) < len(MonthLayout) {
		return ""
	}
	return date[:len(MonthLayout)]
}

// MonthRange returns the first and last canonical dates of year-month.
func MonthRange(year int, month time.Month) (string, string, error) {
	if year < 1970 || year > 9999 || month < time.January || month > time.December {
		return "", "", fmt.Errorf("%w: %04d-%02d", ErrInvalidDate, year, int(month))
	}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first.Format(DateLayout), last.Format(DateLayout), nil
}
