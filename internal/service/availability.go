package service

import (
	"fmt"
	"slices"
	"time"

	"supperclub/internal/domain"
	"supperclub/internal/models"
)

// validateBookingDate checks date against the experience calendar and the
// booking window [today, today+maxAdvanceDays].
func validateBookingDate(op, bookingID string, exp *models.Experience, date, now time.Time, maxAdvanceDays int) error {
	day := models.DateOnly(date)
	today := models.DateOnly(now)

	if day.Before(today) {
		return domain.Validation(op, "booking", bookingID, "date is in the past")
	}
	if day.After(today.AddDate(0, 0, maxAdvanceDays)) {
		return domain.Validation(op, "booking", bookingID, fmt.Sprintf("date is more than %d days ahead", maxAdvanceDays))
	}

	weekday := models.Weekday(day)
	if !slices.Contains(exp.Availability.Days, weekday) {
		return domain.Validation(op, "booking", bookingID, fmt.Sprintf("experience does not run on %s", weekday))
	}
	if slices.Contains(exp.BlockedDates, day.Format(models.DateLayout)) {
		return domain.Validation(op, "booking", bookingID, fmt.Sprintf("host blocked %s", day.Format(models.DateLayout)))
	}
	return nil
}
