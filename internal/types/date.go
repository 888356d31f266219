package types

import (
	"fmt"
	"time"
)

// MaxDay is the largest YYYYMMDD value. Integers above it are read as
// epoch-millisecond timestamps.
const MaxDay = 99991231

// NormalizeDay converts a date field to a YYYYMMDD integer in the local time
// zone. Values up to MaxDay are returned unchanged.
func NormalizeDay(v int64) int {
	return NormalizeDayIn(v, time.Local)
}

// NormalizeDayIn is NormalizeDay with an explicit location. Timestamps past
// the end of year 9999 saturate at MaxDay.
func NormalizeDayIn(v int64, loc *time.Location) int {
	if v <= MaxDay {
		return int(v)
	}
	t := time.UnixMilli(v).In(loc)
	if t.Year() > 9999 {
		return MaxDay
	}
	return DayOf(t)
}

// DayOf encodes t's calendar date as YYYYMMDD in t's own location.
func DayOf(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// ParseDayInt decodes a YYYYMMDD integer into midnight of that day in loc.
func ParseDayInt(day int, loc *time.Location) (time.Time, error) {
	if day < 10000101 || day > MaxDay {
		return time.Time{}, fmt.Errorf("day %d is not a YYYYMMDD value", day)
	}
	y, m, d := day/10000, (day/100)%100, day%100
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, loc)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, fmt.Errorf("day %d is not a valid calendar date", day)
	}
	return t, nil
}

// FormatDay renders a YYYYMMDD integer as 2006-01-02. Values that are not
// eight digits render as "".
func FormatDay(day int) string {
	if day < 10000000 || day > 99999999 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", day/10000, (day/100)%100, day%100)
}
