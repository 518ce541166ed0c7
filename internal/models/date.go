package models

import (
	"fmt"
	"time"

	"github.com/jinzhu/now"
)

// DateOnly truncates t to midnight UTC of its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	return now.With(t.UTC()).BeginningOfDay()
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s", s, DateLayout)
	}
	return t, nil
}

// Weekday returns the three-letter English weekday used by experience availability.
func Weekday(t time.Time) string {
	return t.UTC().Weekday().String()[:3]
}
