package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"supperclub/internal/coupon"
	"supperclub/internal/domain"
	"supperclub/internal/events"
	"supperclub/internal/metrics"
	"supperclub/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReasonCommitConflict is reported when a discounted booking could not be
// committed and was retried without its coupon.
const ReasonCommitConflict = "commit_conflict"

type BookingConfig struct {
	MaxAdvanceDays              int
	AllowRescheduleAfterDecline bool
}

type BookingService struct {
	store  domain.Store
	hooks  *Hooks
	cfg    BookingConfig
	now    func() time.Time
	logger *zerolog.Logger
}

func NewBookingService(store domain.Store, hooks *Hooks, cfg BookingConfig, logger *zerolog.Logger) *BookingService {
	if cfg.MaxAdvanceDays <= 0 {
		cfg.MaxAdvanceDays = models.DefaultMaxAdvanceDays
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &BookingService{
		store:  store,
		hooks:  hooks,
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

type CreateBookingRequest struct {
	ExperienceID string
	Date         time.Time
	Guests       int
	IsGift       bool
	CouponCode   string
}

// CouponOutcome tells the caller what happened to a supplied coupon code.
type CouponOutcome struct {
	Code     string `json:"code"`
	Applied  bool   `json:"applied"`
	Discount int64  `json:"discount"`
	Reason   string `json:"reason,omitempty"`
}

type BookingResult struct {
	Booking *models.Booking `json:"booking"`
	Coupon  *CouponOutcome  `json:"coupon,omitempty"`
}

// CreateBooking books an experience occurrence for actor. A coupon that cannot
// be applied never fails the booking; the booking is created at full price and
// the outcome explains why.
func (s *BookingService) CreateBooking(ctx context.Context, actor models.Actor, req CreateBookingRequest) (*BookingResult, error) {
	const op = "CreateBooking"

	result, err := s.createBooking(ctx, op, actor, req)
	observe(op, err)
	if err != nil {
		return nil, err
	}

	booking := result.Booking
	if c := result.Coupon; c != nil {
		if c.Applied {
			metrics.IncCoupon("applied")
		} else {
			metrics.IncCoupon(c.Reason)
		}
	}

	notificationType := models.NotifyBookingRequested
	if booking.Status == models.StatusConfirmed {
		notificationType = models.NotifyBookingConfirmed
	}
	s.hooks.notify(ctx, booking.HostID, notificationType, booking.ID)
	s.publishEvent(events.EventBookingCreated, *booking, actor.ID)

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("experience_id", booking.ExperienceID).
		Str("status", booking.Status).
		Int64("total_price", booking.TotalPrice).
		Msg("booking created")
	return result, nil
}

func (s *BookingService) createBooking(ctx context.Context, op string, actor models.Actor, req CreateBookingRequest) (*BookingResult, error) {
	if actor.ID == "" {
		return nil, domain.PermissionDenied(op, "booking", "", "authenticated guest required")
	}
	if req.Guests < 1 {
		return nil, domain.Validation(op, "booking", "", "numberOfGuests must be at least 1")
	}

	code := coupon.Normalize(req.CouponCode)
	result, err := s.commitBooking(ctx, op, actor, req, code)
	if err == nil || code == "" || !errors.Is(err, domain.ErrStoreCommitFailed) {
		return result, err
	}

	s.logger.Warn().Err(err).Str("coupon", code).Msg("discounted booking commit failed, retrying without coupon")
	result, err = s.commitBooking(ctx, op, actor, req, "")
	if err != nil {
		return nil, err
	}
	result.Coupon = &CouponOutcome{Code: code, Reason: ReasonCommitConflict}
	return result, nil
}

func (s *BookingService) commitBooking(ctx context.Context, op string, actor models.Actor, req CreateBookingRequest, code string) (*BookingResult, error) {
	id := uuid.NewString()
	now := s.now().UTC()
	date := models.DateOnly(req.Date)

	var result *BookingResult
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		var exp models.Experience
		if err := tx.Get(models.CollectionExperiences, req.ExperienceID, &exp); err != nil {
			return readError(op, "experience", req.ExperienceID, err)
		}
		if !exp.IsActive {
			return domain.Validation(op, "experience", exp.ID, "experience is not accepting bookings")
		}
		if exp.HostID == actor.ID {
			return domain.PermissionDenied(op, "experience", exp.ID, "hosts cannot book their own experience")
		}
		if req.Guests > exp.MaxGuests {
			return domain.Validation(op, "booking", id, fmt.Sprintf("numberOfGuests exceeds maxGuests %d", exp.MaxGuests))
		}
		if err := validateBookingDate(op, id, &exp, date, now, s.cfg.MaxAdvanceDays); err != nil {
			return err
		}

		var host models.Host
		if err := tx.Get(models.CollectionHosts, exp.HostID, &host); err != nil {
			return readError(op, "host", exp.HostID, err)
		}

		booking := models.Booking{
			ID:              id,
			GuestID:         actor.ID,
			ExperienceID:    exp.ID,
			HostID:          exp.HostID,
			ExperienceTitle: exp.Title,
			HostName:        host.Name,
			BookingDate:     date,
			NumberOfGuests:  req.Guests,
			BasePrice:       exp.PricePerGuest * int64(req.Guests),
			Status:          models.StatusPending,
			IsGift:          req.IsGift,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if req.IsGift || exp.InstantBook {
			booking.Status = models.StatusConfirmed
		}

		var outcome *CouponOutcome
		if code != "" {
			outcome = &CouponOutcome{Code: code}
			c, discount, err := coupon.Redeem(tx, code, booking.BasePrice, now)
			if rej, ok := coupon.AsRejection(err); ok {
				outcome.Reason = rej.Reason
			} else if err != nil {
				return err
			} else {
				booking.CouponID = c.Code
				booking.DiscountAmount = discount
				outcome.Applied = true
				outcome.Discount = discount
			}
		}
		booking.TotalPrice = booking.BasePrice - booking.DiscountAmount

		if err := tx.Create(models.CollectionBookings, id, booking); err != nil {
			return err
		}
		result = &BookingResult{Booking: &booking, Coupon: outcome}
		return nil
	})
	if err != nil {
		return nil, txError(op, "booking", id, err)
	}
	return result, nil
}

// ConfirmBooking accepts a pending booking and opens its conversation.
func (s *BookingService) ConfirmBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	const op = "ConfirmBooking"
	now := s.now().UTC()

	var booking models.Booking
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		booking = models.Booking{}
		if err := tx.Get(models.CollectionBookings, bookingID, &booking); err != nil {
			return readError(op, "booking", bookingID, err)
		}
		if actor.ID != booking.HostID {
			return domain.PermissionDenied(op, "booking", bookingID, "only the host can confirm")
		}
		if !models.CanTransitionBooking(booking.Status, models.StatusConfirmed) {
			return domain.InvalidTransition(op, "booking", bookingID, booking.Status, models.StatusConfirmed)
		}

		if err := tx.Update(models.CollectionBookings, bookingID, map[string]any{
			"status":    models.StatusConfirmed,
			"updatedAt": now,
		}); err != nil {
			return err
		}
		booking.Status = models.StatusConfirmed
		booking.UpdatedAt = now

		var existing models.Conversation
		err := tx.Get(models.CollectionConversations, bookingID, &existing)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrDocNotFound) {
			return err
		}
		return tx.Create(models.CollectionConversations, bookingID, models.Conversation{
			ID:              bookingID,
			BookingID:       bookingID,
			ExperienceID:    booking.ExperienceID,
			ExperienceTitle: booking.ExperienceTitle,
			Participants:    []string{booking.GuestID, booking.HostID},
			CreatedAt:       now,
		})
	})
	if err != nil {
		err = txError(op, "booking", bookingID, err)
	}
	observe(op, err)
	if err != nil {
		return nil, err
	}

	s.hooks.notify(ctx, booking.GuestID, models.NotifyBookingConfirmed, bookingID)
	s.publishEvent(events.EventBookingConfirmed, booking, actor.ID)
	return &booking, nil
}

// CancelBooking cancels a booking on behalf of its guest or host. Coupon usage
// is not refunded.
func (s *BookingService) CancelBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	const op = "CancelBooking"
	now := s.now().UTC()

	var booking models.Booking
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		booking = models.Booking{}
		if err := tx.Get(models.CollectionBookings, bookingID, &booking); err != nil {
			return readError(op, "booking", bookingID, err)
		}
		if !booking.IsParty(actor.ID) {
			return domain.PermissionDenied(op, "booking", bookingID, "only the guest or host can cancel")
		}
		if !models.CanTransitionBooking(booking.Status, models.StatusCancelled) {
			return domain.InvalidTransition(op, "booking", bookingID, booking.Status, models.StatusCancelled)
		}

		booking.Status = models.StatusCancelled
		booking.CancelledBy = actor.ID
		booking.UpdatedAt = now
		return tx.Update(models.CollectionBookings, bookingID, map[string]any{
			"status":      models.StatusCancelled,
			"cancelledBy": actor.ID,
			"updatedAt":   now,
		})
	})
	if err != nil {
		err = txError(op, "booking", bookingID, err)
	}
	observe(op, err)
	if err != nil {
		return nil, err
	}

	s.hooks.notify(ctx, booking.Counterparty(actor.ID), models.NotifyBookingCancelled, bookingID)
	s.publishEvent(events.EventBookingCancelled, booking, actor.ID)
	return &booking, nil
}

// GetBooking returns a booking visible to one of its parties or an admin.
func (s *BookingService) GetBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	const op = "GetBooking"

	var booking models.Booking
	if err := s.store.Get(ctx, models.CollectionBookings, bookingID, &booking); err != nil {
		if errors.Is(err, domain.ErrDocNotFound) {
			return nil, domain.NotFound(op, "booking", bookingID)
		}
		return nil, fmt.Errorf("failed to get booking %s: %w", bookingID, err)
	}
	if !booking.IsParty(actor.ID) && !actor.IsAdmin() {
		return nil, domain.PermissionDenied(op, "booking", bookingID, "only the guest, host or an admin can view")
	}
	return &booking, nil
}

// ListBookings returns every booking, for administrative reporting.
func (s *BookingService) ListBookings(ctx context.Context, actor models.Actor) ([]models.Booking, error) {
	const op = "ListBookings"
	if !actor.IsAdmin() {
		return nil, domain.PermissionDenied(op, "booking", "", "admin role required")
	}

	docs, err := s.store.List(ctx, models.CollectionBookings)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	bookings := make([]models.Booking, 0, len(docs))
	for _, doc := range docs {
		var b models.Booking
		if err := json.Unmarshal(doc, &b); err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, nil
}

func (s *BookingService) publishEvent(eventType string, booking models.Booking, changedBy string) {
	s.hooks.publish(eventType, events.BookingEventPayload{
		BookingID:      booking.ID,
		GuestID:        booking.GuestID,
		HostID:         booking.HostID,
		ExperienceID:   booking.ExperienceID,
		Status:         booking.Status,
		Date:           booking.BookingDate,
		TotalPrice:     booking.TotalPrice,
		DiscountAmount: booking.DiscountAmount,
		CouponID:       booking.CouponID,
		ChangedBy:      changedBy,
	})
}
