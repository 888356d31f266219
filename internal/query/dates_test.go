package query

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseDay(t *testing.T) {
	// Wednesday
	now := time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want int
	}{
		{"2025-04-01", 20250401},
		{"20250401", 20250401},
		{"today", 20250312},
		{"Tomorrow", 20250313},
		{"yesterday", 20250311},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDay(tt.in, now)
			if err != nil {
				t.Fatalf("ParseDay(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDay(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseDay_Phrase(t *testing.T) {
	now := time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)
	got, err := ParseDay("next friday", now)
	if err != nil {
		t.Fatalf("ParseDay failed: %v", err)
	}
	day, err := time.Parse("20060102", fmt.Sprint(got))
	if err != nil {
		t.Fatalf("ParseDay returned non-date %d", got)
	}
	if day.Weekday() != time.Friday {
		t.Errorf("ParseDay(next friday) = %d, a %s", got, day.Weekday())
	}
	if got <= 20250312 {
		t.Errorf("ParseDay(next friday) = %d, want a day after now", got)
	}
}

func TestParseDay_Invalid(t *testing.T) {
	now := time.Date(2025, time.March, 12, 9, 0, 0, 0, time.UTC)
	for _, in := range []string{"", "   ", "qwerty"} {
		if _, err := ParseDay(in, now); !errors.Is(err, ErrUnknownDay) {
			t.Errorf("ParseDay(%q) error = %v, want ErrUnknownDay", in, err)
		}
	}
}
