package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
		kind     Kind
	}{
		{"not found", NotFound("ConfirmBooking", "booking", "b1"), ErrNotFound, KindNotFound},
		{"permission", PermissionDenied("CancelBooking", "booking", "b1", "actor is not a party"), ErrPermissionDenied, KindPermissionDenied},
		{"transition", InvalidTransition("ConfirmBooking", "booking", "b1", "Confirmed", "Confirmed"), ErrInvalidStateTransition, KindInvalidStateTransition},
		{"validation", Validation("CreateBooking", "experience", "e1", "guest count exceeds maxGuests"), ErrValidationFailed, KindValidationFailed},
		{"commit", CommitFailed("ApproveApplication", "application", "a1", errors.New("disk full")), ErrStoreCommitFailed, KindStoreCommitFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(tt.err))

			wrapped := fmt.Errorf("handler: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(wrapped))
		})
	}
}

func TestCommitFailedKeepsCause(t *testing.T) {
	cause := errors.New("database is locked")
	err := CommitFailed("ApproveApplication", "application", "a1", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Contains(t, err.Error(), "application a1")
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, KindValidationFailed, KindOf(fmt.Errorf("x: %w", ErrValidationFailed)))
}
