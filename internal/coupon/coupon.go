// Package coupon validates discount codes and redeems them inside a ledger transaction.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"supperclub/internal/domain"
	"supperclub/internal/models"
)

// Rejection reasons.
const (
	ReasonNotFound          = "not_found"
	ReasonInactive          = "inactive"
	ReasonExpired           = "expired"
	ReasonBelowMinimumSpend = "below_minimum_spend"
	ReasonUsageLimitReached = "usage_limit_reached"
	ReasonMalformed         = "malformed"
)

// Rejection explains why a coupon cannot be applied to a purchase.
type Rejection struct {
	Code   string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("coupon %s rejected: %s", r.Code, r.Reason)
}

// Is lets callers match a rejection as a validation failure.
func (r *Rejection) Is(target error) bool {
	return target == domain.ErrValidationFailed
}

// AsRejection extracts the rejection from err, if any.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// Normalize returns the canonical storage key for a code as typed by a user.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate returns the discount c grants on basePrice at now.
// Fixed discounts never exceed the base price.
func Evaluate(c *models.Coupon, basePrice int64, now time.Time) (int64, error) {
	switch {
	case !c.IsActive:
		return 0, &Rejection{Code: c.Code, Reason: ReasonInactive}
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return 0, &Rejection{Code: c.Code, Reason: ReasonExpired}
	case c.MinSpend != nil && basePrice < *c.MinSpend:
		return 0, &Rejection{Code: c.Code, Reason: ReasonBelowMinimumSpend}
	case c.UsageLimit != nil && c.TimesUsed >= *c.UsageLimit:
		return 0, &Rejection{Code: c.Code, Reason: ReasonUsageLimitReached}
	}

	var discount int64
	switch c.DiscountType {
	case models.DiscountFixed:
		discount = c.DiscountValue
	case models.DiscountPercentage:
		// round half up in minor units
		discount = (basePrice*c.DiscountValue + 50) / 100
	default:
		return 0, &Rejection{Code: c.Code, Reason: ReasonMalformed}
	}

	if discount > basePrice {
		discount = basePrice
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// Redeem reads the coupon inside tx, re-checks it against the freshly read
// usage counter and increments timesUsed by one. The increment commits or
// rolls back with the rest of tx.
func Redeem(tx domain.Txn, code string, basePrice int64, now time.Time) (*models.Coupon, int64, error) {
	code = Normalize(code)

	var c models.Coupon
	if err := readError(code, tx.Get(models.CollectionCoupons, code, &c)); err != nil {
		return nil, 0, err
	}

	discount, err := Evaluate(&c, basePrice, now)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Increment(models.CollectionCoupons, code, "timesUsed", 1); err != nil {
		return nil, 0, fmt.Errorf("failed to increment coupon %s: %w", code, err)
	}
	c.TimesUsed++
	return &c, discount, nil
}

// Quote previews the discount code would grant on basePrice without redeeming it.
func Quote(ctx context.Context, store domain.Store, code string, basePrice int64, now time.Time) (int64, error) {
	code = Normalize(code)

	var c models.Coupon
	if err := readError(code, store.Get(ctx, models.CollectionCoupons, code, &c)); err != nil {
		return 0, err
	}
	return Evaluate(&c, basePrice, now)
}

// readError turns a missing or undecodable coupon into a rejection.
func readError(code string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDocNotFound):
		return &Rejection{Code: code, Reason: ReasonNotFound}
	case errors.Is(err, domain.ErrDocMalformed):
		return &Rejection{Code: code, Reason: ReasonMalformed}
	}
	return fmt.Errorf("failed to read coupon %s: %w", code, err)
}
