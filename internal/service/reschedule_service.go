package service

import (
	"context"
	"time"

	"supperclub/internal/domain"
	"supperclub/internal/events"
	"supperclub/internal/models"

	"github.com/rs/zerolog"
)

// RescheduleService negotiates a guest's request to move a confirmed booking.
type RescheduleService struct {
	store  domain.Store
	hooks  *Hooks
	cfg    BookingConfig
	now    func() time.Time
	logger *zerolog.Logger
}

func NewRescheduleService(store domain.Store, hooks *Hooks, cfg BookingConfig, logger *zerolog.Logger) *RescheduleService {
	if cfg.MaxAdvanceDays <= 0 {
		cfg.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RescheduleService{
		store:  store,
		hooks:  hooks,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// RequestReschedule records the guest's proposed new date on a confirmed booking.
func (s *RescheduleService) RequestReschedule(ctx context.Context, actor models.Actor, bookingID string, newDate time.Time) (*models.Booking, error) {
	const op = "RequestReschedule"
	now := s.now().UTC()
	date := models.DateOnly(newDate)

	var booking models.Booking
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		booking = models.Booking{}
		if err := tx.Get(models.CollectionBookings, bookingID, &booking); err != nil {
			return readError(op, "booking", bookingID, err)
		}
		if actor.ID != booking.GuestID {
			return domain.PermissionDenied(op, "booking", bookingID, "only the guest can request a reschedule")
		}
		if booking.Status != models.StatusConfirmed {
			return domain.InvalidTransition(op, "booking", bookingID, booking.Status, "reschedule requested")
		}
		if req := booking.RescheduleRequest; req != nil {
			reopen := req.Status == models.RescheduleDeclined && s.cfg.AllowRescheduleAfterDecline
			if !reopen {
				return domain.InvalidTransition(op, "rescheduleRequest", bookingID, req.Status, models.ReschedulePending)
			}
		}
		if date.Equal(models.DateOnly(booking.BookingDate)) {
			return domain.Validation(op, "booking", bookingID, "new date equals the current booking date")
		}

		var exp models.Experience
		if err := tx.Get(models.CollectionExperiences, booking.ExperienceID, &exp); err != nil {
			return readError(op, "experience", booking.ExperienceID, err)
		}
		if err := validateBookingDate(op, bookingID, &exp, date, now, s.cfg.MaxAdvanceDays); err != nil {
			return err
		}

		booking.RescheduleRequest = &models.RescheduleRequest{
			NewDate:     date,
			Status:      models.ReschedulePending,
			RequestedBy: actor.ID,
			RequestedAt: now,
		}
		booking.UpdatedAt = now
		return tx.Update(models.CollectionBookings, bookingID, map[string]any{
			"rescheduleRequest": booking.RescheduleRequest,
			"updatedAt":         now,
		})
	})
	if err != nil {
		err = txError(op, "booking", bookingID, err)
	}
	observe(op, err)
	if err != nil {
		return nil, err
	}

	s.hooks.notify(ctx, booking.HostID, models.NotifyRescheduleRequested, bookingID)
	s.publishEvent(events.EventRescheduleRequested, booking, actor.ID)
	return &booking, nil
}

// RespondToReschedule lets the host accept or decline the pending request.
// Accepting moves the booking date in the same commit.
func (s *RescheduleService) RespondToReschedule(ctx context.Context, actor models.Actor, bookingID string, accept bool) (*models.Booking, error) {
	const op = "RespondToReschedule"
	now := s.now().UTC()

	target := models.RescheduleDeclined
	if accept {
		target = models.RescheduleAccepted
	}

	var booking models.Booking
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		booking = models.Booking{}
		if err := tx.Get(models.CollectionBookings, bookingID, &booking); err != nil {
			return readError(op, "booking", bookingID, err)
		}
		if actor.ID != booking.HostID {
			return domain.PermissionDenied(op, "booking", bookingID, "only the host can respond to a reschedule")
		}
		if !booking.HasPendingReschedule() {
			from := "none"
			if booking.RescheduleRequest != nil {
				from = booking.RescheduleRequest.Status
			}
			return domain.InvalidTransition(op, "rescheduleRequest", bookingID, from, target)
		}
		if booking.Status != models.StatusConfirmed {
			return domain.InvalidTransition(op, "booking", bookingID, booking.Status, "rescheduled")
		}

		fields := map[string]any{
			"rescheduleRequest.status":      target,
			"rescheduleRequest.respondedAt": now,
			"updatedAt":                     now,
		}
		if accept {
			var exp models.Experience
			if err := tx.Get(models.CollectionExperiences, booking.ExperienceID, &exp); err != nil {
				return readError(op, "experience", booking.ExperienceID, err)
			}
			newDate := booking.RescheduleRequest.NewDate
			if err := validateBookingDate(op, bookingID, &exp, newDate, now, s.cfg.MaxAdvanceDays); err != nil {
				return err
			}
			fields["bookingDate"] = newDate
			booking.BookingDate = newDate
		}

		booking.RescheduleRequest.Status = target
		booking.RescheduleRequest.RespondedAt = &now
		booking.UpdatedAt = now
		return tx.Update(models.CollectionBookings, bookingID, fields)
	})
	if err != nil {
		err = txError(op, "booking", bookingID, err)
	}
	observe(op, err)
	if err != nil {
		return nil, err
	}

	notificationType := models.NotifyRescheduleDeclined
	if accept {
		notificationType = models.NotifyRescheduleAccepted
	}
	s.hooks.notify(ctx, booking.GuestID, notificationType, bookingID)
	s.publishEvent(events.EventRescheduleResponded, booking, actor.ID)
	return &booking, nil
}

func (s *RescheduleService) publishEvent(eventType string, booking models.Booking, changedBy string) {
	s.hooks.publish(eventType, events.BookingEventPayload{
		BookingID:    booking.ID,
		GuestID:      booking.GuestID,
		HostID:       booking.HostID,
		ExperienceID: booking.ExperienceID,
		Status:       booking.Status,
		Date:         booking.BookingDate,
		TotalPrice:   booking.TotalPrice,
		ChangedBy:    changedBy,
	})
}
