package model

import (
	"errors"
	"time"
)

var (
	ErrCouponNoDiscount   = errors.New("coupon must define a fixed or percentage discount")
	ErrCouponBothDiscount = errors.New("coupon cannot define both fixed and percentage discounts")
	ErrCouponPercentRange = errors.New("coupon percentage must be between 1 and 100")
)

// CouponTemplate is a reusable discount definition created by a seller.
// Exactly one of DiscountPoints and DiscountPercent is non-zero.
type CouponTemplate struct {
	ID              uint64     `json:"id"`
	SellerID        uint64     `json:"seller_id"`
	Name            string     `json:"name"`
	DiscountPoints  int64      `json:"discount_points,omitempty"`
	DiscountPercent int        `json:"discount_percent,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Validate checks the template at creation time.
func (t CouponTemplate) Validate() error {
	switch {
	case t.DiscountPoints < 0 || t.DiscountPercent < 0:
		return ErrCouponNoDiscount
	case t.DiscountPoints == 0 && t.DiscountPercent == 0:
		return ErrCouponNoDiscount
	case t.DiscountPoints > 0 && t.DiscountPercent > 0:
		return ErrCouponBothDiscount
	case t.DiscountPercent > 100:
		return ErrCouponPercentRange
	}
	return nil
}

// IsPercentage reports whether the template discounts by percentage.
func (t CouponTemplate) IsPercentage() bool { return t.DiscountPercent > 0 }

// Expired reports whether the template is past its expiry at now.
func (t CouponTemplate) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// UserCoupon is a single-use coupon issued to one user from a template.
type UserCoupon struct {
	ID         uint64         `json:"id"`
	TemplateID uint64         `json:"template_id"`
	UserID     uint64         `json:"user_id"`
	IssuedAt   time.Time      `json:"issued_at"`
	UsedAt     *time.Time     `json:"used_at,omitempty"`
	Template   CouponTemplate `json:"template"`
}

// Used reports whether the coupon has been consumed.
func (c UserCoupon) Used() bool { return c.UsedAt != nil }
