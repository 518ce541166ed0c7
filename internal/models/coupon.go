package models

import "time"

type Coupon struct {
	Code          string     `json:"code" yaml:"code"`
	DiscountType  string     `json:"discountType" yaml:"discount_type"` // fixed, percentage
	DiscountValue int64      `json:"discountValue" yaml:"discount_value"`
	IsActive      bool       `json:"isActive" yaml:"is_active"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty" yaml:"expires_at,omitempty"`
	MinSpend      *int64     `json:"minSpend,omitempty" yaml:"min_spend,omitempty"`
	UsageLimit    *int64     `json:"usageLimit,omitempty" yaml:"usage_limit,omitempty"`
	TimesUsed     int64      `json:"timesUsed" yaml:"times_used"`
	CreatedAt     time.Time  `json:"createdAt" yaml:"-"`
	UpdatedAt     time.Time  `json:"updatedAt" yaml:"-"`
}
