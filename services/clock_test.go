package services

import (
	"errors"
	"testing"
	"time"
)

func TestCalendarUsesConfiguredZone(t *testing.T) {
	// 17:30 UTC on the 15th is already the 16th at UTC+8.
	instant := time.Date(2024, 3, 15, 17, 30, 0, 0, time.UTC)
	cal := NewCalendar(ClockFunc(func() time.Time { return instant }), testZone)

	if got := cal.Today(); got != "2024-03-16" {
		t.Errorf("Today = %s, want 2024-03-16", got)
	}
	if got := cal.Yesterday(); got != "2024-03-15" {
		t.Errorf("Yesterday = %s, want 2024-03-15", got)
	}
	if got := cal.CurrentMonth(); got != "2024-03" {
		t.Errorf("CurrentMonth = %s, want 2024-03", got)
	}
}

func TestDateHelpers(t *testing.T) {
	tests := []struct {
		date string
		n    int
		want string
	}{
		{"2024-03-01", -1, "2024-02-29"},
		{"2023-03-01", -1, "2023-02-28"},
		{"2024-12-31", 1, "2025-01-01"},
		{"2024-03-10", 0, "2024-03-10"},
	}
	for _, tt := range tests {
		got, err := AddDays(tt.date, tt.n)
		if err != nil {
			t.Fatalf("AddDays(%s, %d): %v", tt.date, tt.n, err)
		}
		if got != tt.want {
			t.Errorf("AddDays(%s, %d) = %s, want %s", tt.date, tt.n, got, tt.want)
		}
	}

	for _, bad := range []string{"", "2024-3-1", "2024/03/01", "2024-02-30", "yesterday"} {
		if _, err := ParseDate(bad); !errors.Is(err, ErrInvalidDate) {
			t.Errorf("ParseDate(%q) err = %v, want ErrInvalidDate", bad, err)
		}
	}

	if d, _ := DaysBetween("2024-02-28", "2024-03-01"); d != 2 {
		t.Errorf("DaysBetween across leap day = %d, want 2", d)
	}

	from, to, err := MonthRange(2024, time.February)
	if err != nil || from != "2024-02-01" || to != "2024-02-29" {
		t.Errorf("MonthRange(2024-02) = %s..%s, %v", from, to, err)
	}
	if _, _, err := MonthRange(2024, 13); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("MonthRange(2024-13) err = %v", err)
	}
}
