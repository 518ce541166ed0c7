package service

import (
	"context"
	"errors"
	"time"

	"supperclub/internal/coupon"
	"supperclub/internal/domain"
	"supperclub/internal/events"
	"supperclub/internal/models"

	"github.com/rs/zerolog"
)

// CouponService administers discount codes and previews discounts.
type CouponService struct {
	store  domain.Store
	hooks  *Hooks
	now    func() time.Time
	logger *zerolog.Logger
}

func NewCouponService(store domain.Store, hooks *Hooks, logger *zerolog.Logger) *CouponService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &CouponService{
		store:  store,
		hooks:  hooks,
		now:    time.Now,
		logger: logger,
	}
}

// SaveCoupon creates or replaces a coupon definition. The usage counter of an
// existing coupon is preserved.
func (s *CouponService) SaveCoupon(ctx context.Context, actor models.Actor, c models.Coupon) (*models.Coupon, error) {
	const op = "SaveCoupon"
	c.Code = coupon.Normalize(c.Code)
	if !actor.IsAdmin() {
		return nil, domain.PermissionDenied(op, "coupon", c.Code, "admin role required")
	}
	if rule := validateCoupon(&c); rule != "" {
		return nil, domain.Validation(op, "coupon", c.Code, rule)
	}

	now := s.now().UTC()
	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		var existing models.Coupon
		err := tx.Get(models.CollectionCoupons, c.Code, &existing)
		switch {
		case err == nil:
			c.TimesUsed = existing.TimesUsed
			c.CreatedAt = existing.CreatedAt
		case errors.Is(err, domain.ErrDocNotFound):
			c.TimesUsed = 0
			c.CreatedAt = now
		default:
			return err
		}
		c.UpdatedAt = now
		return tx.Set(models.CollectionCoupons, c.Code, c)
	})
	if err != nil {
		err = txError(op, "coupon", c.Code, err)
	}
	observe(op, err)
	if err != nil {
		return nil, err
	}

	s.hooks.audit(ctx, actor, "coupon.save", models.CollectionCoupons, c.Code, map[string]any{
		"discountType":  c.DiscountType,
		"discountValue": c.DiscountValue,
		"isActive":      c.IsActive,
	})
	s.hooks.publish(events.EventCouponChanged, events.CouponEventPayload{Code: c.Code, ChangedBy: actor.ID})
	return &c, nil
}

func validateCoupon(c *models.Coupon) string {
	switch {
	case c.Code == "":
		return "code is required"
	case c.DiscountType != models.DiscountFixed && c.DiscountType != models.DiscountPercentage:
		return "discountType must be fixed or percentage"
	case c.DiscountValue <= 0:
		return "discountValue must be positive"
	case c.DiscountType == models.DiscountPercentage && c.DiscountValue > 100:
		return "percentage discountValue must not exceed 100"
	case c.MinSpend != nil && *c.MinSpend < 0:
		return "minSpend must not be negative"
	case c.UsageLimit != nil && *c.UsageLimit < 0:
		return "usageLimit must not be negative"
	}
	return ""
}

// DeleteCoupon removes a coupon. Bookings keep their recorded discount.
func (s *CouponService) DeleteCoupon(ctx context.Context, actor models.Actor, code string) error {
	const op = "DeleteCoupon"
	code = coupon.Normalize(code)
	if !actor.IsAdmin() {
		return domain.PermissionDenied(op, "coupon", code, "admin role required")
	}

	err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
		var existing models.Coupon
		if err := tx.Get(models.CollectionCoupons, code, &existing); err != nil {
			return readError(op, "coupon", code, err)
		}
		return tx.Delete(models.CollectionCoupons, code)
	})
	if err != nil {
		err = txError(op, "coupon", code, err)
	}
	observe(op, err)
	if err != nil {
		return err
	}

	s.hooks.audit(ctx, actor, "coupon.delete", models.CollectionCoupons, code, nil)
	s.hooks.publish(events.EventCouponChanged, events.CouponEventPayload{Code: code, Deleted: true, ChangedBy: actor.ID})
	return nil
}

// Quote previews the discount a code grants on basePrice.
func (s *CouponService) Quote(ctx context.Context, code string, basePrice int64) (*CouponOutcome, error) {
	if basePrice <= 0 {
		return nil, domain.Validation("QuoteCoupon", "coupon", code, "basePrice must be positive")
	}
	code = coupon.Normalize(code)
	outcome := &CouponOutcome{Code: code}

	discount, err := coupon.Quote(ctx, s.store, code, basePrice, s.now().UTC())
	if rej, ok := coupon.AsRejection(err); ok {
		outcome.Reason = rej.Reason
		return outcome, nil
	}
	if err != nil {
		return nil, err
	}
	outcome.Applied = true
	outcome.Discount = discount
	return outcome, nil
}

// SeedCoupons stores coupons that do not exist yet; existing ones are left untouched.
func (s *CouponService) SeedCoupons(ctx context.Context, coupons []models.Coupon) (int, error) {
	seeded := 0
	now := s.now().UTC()
	for _, c := range coupons {
		c.Code = coupon.Normalize(c.Code)
		if rule := validateCoupon(&c); rule != "" {
			return seeded, domain.Validation("SeedCoupons", "coupon", c.Code, rule)
		}
		c.CreatedAt, c.UpdatedAt = now, now

		created := false
		err := s.store.RunTransaction(ctx, func(ctx context.Context, tx domain.Txn) error {
			created = false
			err := tx.Create(models.CollectionCoupons, c.Code, c)
			if errors.Is(err, domain.ErrDocExists) {
				return nil
			}
			created = err == nil
			return err
		})
		if err != nil {
			return seeded, txError("SeedCoupons", "coupon", c.Code, err)
		}
		if created {
			seeded++
		}
	}
	s.logger.Info().Int("seeded", seeded).Int("total", len(coupons)).Msg("coupons seeded")
	return seeded, nil
}
