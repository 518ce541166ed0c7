package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateHelpers(t *testing.T) {
	t.Run("DateOnly", func(t *testing.T) {
		in := time.Date(2026, 11, 6, 22, 15, 0, 0, time.FixedZone("x", -3*3600))
		got := DateOnly(in)
		assert.Equal(t, time.Date(2026, 11, 7, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("ParseDate", func(t *testing.T) {
		got, err := ParseDate("2026-11-06")
		require.NoError(t, err)
		assert.Equal(t, "Fri", Weekday(got))

		_, err = ParseDate("06.11.2026")
		assert.Error(t, err)
	})
}

func TestTransitions(t *testing.T) {
	assert.True(t, CanTransitionBooking(StatusPending, StatusConfirmed))
	assert.True(t, CanTransitionBooking(StatusPending, StatusCancelled))
	assert.True(t, CanTransitionBooking(StatusConfirmed, StatusCancelled))
	assert.False(t, CanTransitionBooking(StatusConfirmed, StatusConfirmed))
	assert.False(t, CanTransitionBooking(StatusCancelled, StatusPending))
	assert.False(t, CanTransitionBooking(StatusCancelled, StatusConfirmed))

	assert.True(t, CanTransitionApplication(ApplicationPending, ApplicationApproved))
	assert.True(t, CanTransitionApplication(ApplicationChangesNeeded, ApplicationRejected))
	assert.False(t, CanTransitionApplication(ApplicationChangesNeeded, ApplicationChangesNeeded))
	assert.False(t, CanTransitionApplication(ApplicationApproved, ApplicationRejected))
	assert.False(t, CanTransitionApplication(ApplicationRejected, ApplicationApproved))
}

func TestBookingParties(t *testing.T) {
	b := &Booking{GuestID: "g1", HostID: "h1"}
	assert.True(t, b.IsParty("g1"))
	assert.True(t, b.IsParty("h1"))
	assert.False(t, b.IsParty("x"))
	assert.False(t, b.IsParty(""))
	assert.Equal(t, "h1", b.Counterparty("g1"))
	assert.Equal(t, "g1", b.Counterparty("h1"))
	assert.Equal(t, RoleBoth, PromotedRole(RoleGuest))
	assert.Equal(t, RoleHost, PromotedRole(RoleHost))
}
