package service

import (
	"context"
	"testing"

	"supperclub/internal/domain"
	"supperclub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createConfirmed(t *testing.T, env *testEnv) *models.Booking {
	t.Helper()
	b := createPending(t, env)
	confirmed, err := env.bookings().ConfirmBooking(context.Background(), hostActor, b.ID)
	require.NoError(t, err)
	return confirmed
}

func TestRescheduleService_RequestAndAccept(t *testing.T) {
	env := newTestEnv(t, setupTestStore(t))
	env.seedExperience(t, nil)
	env.allowNotifications()
	svc := env.reschedules()
	b := createConfirmed(t, env)

	requested, err := svc.RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-28"))
	require.NoError(t, err)
	require.NotNil(t, requested.RescheduleRequest)
	assert.Equal(t, models.ReschedulePending, requested.RescheduleRequest.Status)
	assert.Equal(t, guestID, requested.RescheduleRequest.RequestedBy)
	env.notifier.AssertCalled(t, "Notify", mock.Anything, hostID, models.NotifyRescheduleRequested, b.ID)

	stored := env.getBooking(t, b.ID)
	assert.True(t, stored.HasPendingReschedule())
	assert.Equal(t, day("2026-10-23"), stored.BookingDate)

	accepted, err := svc.RespondToReschedule(context.Background(), hostActor, b.ID, true)
	require.NoError(t, err)
	assert.Equal(t, day("2026-10-28"), accepted.BookingDate)
	assert.Equal(t, models.RescheduleAccepted, accepted.RescheduleRequest.Status)
	env.notifier.AssertCalled(t, "Notify", mock.Anything, guestID, models.NotifyRescheduleAccepted, b.ID)

	stored = env.getBooking(t, b.ID)
	assert.Equal(t, day("2026-10-28"), stored.BookingDate.UTC())
	assert.Equal(t, models.RescheduleAccepted, stored.RescheduleRequest.Status)
	require.NotNil(t, stored.RescheduleRequest.RespondedAt)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
	assert.Equal(t, b.NumberOfGuests, stored.NumberOfGuests)
	assert.Equal(t, b.BasePrice, stored.BasePrice)
	assert.Equal(t, b.TotalPrice, stored.TotalPrice)
	assert.Equal(t, b.DiscountAmount, stored.DiscountAmount)
	assert.Equal(t, b.CouponID, stored.CouponID)
}

func TestRescheduleService_Decline(t *testing.T) {
	env := newTestEnv(t, setupTestStore(t))
	env.seedExperience(t, nil)
	env.allowNotifications()
	svc := env.reschedules()
	b := createConfirmed(t, env)

	_, err := svc.RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-28"))
	require.NoError(t, err)

	declined, err := svc.RespondToReschedule(context.Background(), hostActor, b.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.RescheduleDeclined, declined.RescheduleRequest.Status)
	env.notifier.AssertCalled(t, "Notify", mock.Anything, guestID, models.NotifyRescheduleDeclined, b.ID)

	stored := env.getBooking(t, b.ID)
	assert.Equal(t, day("2026-10-23"), stored.BookingDate.UTC())

	// a decline is final unless configured otherwise
	_, err = svc.RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-30"))
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	env.cfg.AllowRescheduleAfterDecline = true
	reopened, err := env.reschedules().RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-30"))
	require.NoError(t, err)
	assert.Equal(t, models.ReschedulePending, reopened.RescheduleRequest.Status)
}

func TestRescheduleService_RequestErrors(t *testing.T) {
	env := newTestEnv(t, setupTestStore(t))
	env.seedExperience(t, nil)
	env.allowNotifications()
	svc := env.reschedules()
	pending := createPending(t, env)
	confirmed := createConfirmed(t, env)

	tests := []struct {
		name      string
		actor     models.Actor
		bookingID string
		date      string
		wantErr   error
	}{
		{name: "missing booking", actor: guestActor, bookingID: "missing", date: "2026-10-28", wantErr: domain.ErrNotFound},
		{name: "host cannot request", actor: hostActor, bookingID: confirmed.ID, date: "2026-10-28", wantErr: domain.ErrPermissionDenied},
		{name: "booking not confirmed", actor: guestActor, bookingID: pending.ID, date: "2026-10-28", wantErr: domain.ErrInvalidStateTransition},
		{name: "same date", actor: guestActor, bookingID: confirmed.ID, date: "2026-10-23", wantErr: domain.ErrValidationFailed},
		{name: "blocked date", actor: guestActor, bookingID: confirmed.ID, date: "2026-10-24", wantErr: domain.ErrValidationFailed},
		{name: "unavailable weekday", actor: guestActor, bookingID: confirmed.ID, date: "2026-10-26", wantErr: domain.ErrValidationFailed},
		{name: "past date", actor: guestActor, bookingID: confirmed.ID, date: "2026-10-09", wantErr: domain.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RequestReschedule(context.Background(), tt.actor, tt.bookingID, day(tt.date))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Nil(t, env.getBooking(t, confirmed.ID).RescheduleRequest)
}

func TestRescheduleService_OnlyOnePendingRequest(t *testing.T) {
	env := newTestEnv(t, setupTestStore(t))
	env.seedExperience(t, nil)
	env.allowNotifications()
	svc := env.reschedules()
	b := createConfirmed(t, env)

	_, err := svc.RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-28"))
	require.NoError(t, err)

	_, err = svc.RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-30"))
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Equal(t, day("2026-10-28"), env.getBooking(t, b.ID).RescheduleRequest.NewDate.UTC())
}

func TestRescheduleService_RespondWithoutPendingRequest(t *testing.T) {
	env := newTestEnv(t, setupTestStore(t))
	env.seedExperience(t, nil)
	env.allowNotifications()
	svc := env.reschedules()
	b := createConfirmed(t, env)

	_, err := svc.RespondToReschedule(context.Background(), hostActor, b.ID, true)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	stored := env.getBooking(t, b.ID)
	assert.Nil(t, stored.RescheduleRequest)
	assert.Equal(t, day("2026-10-23"), stored.BookingDate.UTC())
}

func TestRescheduleService_RespondErrors(t *testing.T) {
	env := newTestEnv(t, setupTestStore(t))
	env.seedExperience(t, nil)
	env.allowNotifications()
	svc := env.reschedules()
	b := createConfirmed(t, env)

	_, err := svc.RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-28"))
	require.NoError(t, err)

	_, err = svc.RespondToReschedule(context.Background(), guestActor, b.ID, true)
	assert.ErrorIs(t, err, domain.ErrPermissionDenied)

	_, err = env.bookings().CancelBooking(context.Background(), guestActor, b.ID)
	require.NoError(t, err)

	_, err = svc.RespondToReschedule(context.Background(), hostActor, b.ID, true)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	assert.Equal(t, day("2026-10-23"), env.getBooking(t, b.ID).BookingDate.UTC())
}

func TestRescheduleService_AcceptRevalidatesDate(t *testing.T) {
	env := newTestEnv(t, setupTestStore(t))
	env.seedExperience(t, nil)
	env.allowNotifications()
	svc := env.reschedules()
	b := createConfirmed(t, env)

	_, err := svc.RequestReschedule(context.Background(), guestActor, b.ID, day("2026-10-28"))
	require.NoError(t, err)

	// host blocks the proposed date before answering
	env.seedExperience(t, func(e *models.Experience) {
		e.BlockedDates = append(e.BlockedDates, "2026-10-28")
	})

	_, err = svc.RespondToReschedule(context.Background(), hostActor, b.ID, true)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	stored := env.getBooking(t, b.ID)
	assert.True(t, stored.HasPendingReschedule())
}
