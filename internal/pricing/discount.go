// Package pricing computes what a customer pays for a session after coupon
// and points discounts. All amounts are integer points.
package pricing

import "errors"

// ErrPercentRange is returned by ValidatePercent for values outside 1..100.
var ErrPercentRange = errors.New("discount percent must be between 1 and 100")

// Coupon is the discount part of a coupon template. Percent takes effect
// when positive; otherwise FixedPoints is used.
type Coupon struct {
	FixedPoints int64
	Percent     int
}

// Quote is the breakdown of a price.
type Quote struct {
	Price          int64 `json:"price_points"`
	CouponDiscount int64 `json:"coupon_discount_points"`
	PointsUsed     int64 `json:"points_used"`
	Final          int64 `json:"final_points"`
}

// CouponDiscount returns the raw discount a coupon grants on price.
// Percentage discounts are floored.
func CouponDiscount(price int64, c *Coupon) int64 {
	if c == nil || price <= 0 {
		return 0
	}
	if c.Percent > 0 {
		return price * int64(c.Percent) / 100
	}
	if c.FixedPoints > 0 {
		return c.FixedPoints
	}
	return 0
}

// Calculate applies the coupon and the points to the list price. The
// reported coupon discount is capped at the price so the breakdown adds up;
// Final is max(0, price - discount - points) and never negative.
func Calculate(price int64, c *Coupon, pointsUsed int64) Quote {
	if price < 0 {
		price = 0
	}
	if pointsUsed < 0 {
		pointsUsed = 0
	}
	discount := CouponDiscount(price, c)
	if discount > price {
		discount = price
	}
	final := price - discount - pointsUsed
	if final < 0 {
		final = 0
	}
	return Quote{Price: price, CouponDiscount: discount, PointsUsed: pointsUsed, Final: final}
}

// MaxUsablePoints clamps a requested points amount to the balance and to
// what is left of the price after the coupon.
func MaxUsablePoints(requested, balance, price, couponDiscount int64) int64 {
	limit := price - couponDiscount
	if limit < 0 {
		limit = 0
	}
	n := requested
	if n > balance {
		n = balance
	}
	if n > limit {
		n = limit
	}
	if n < 0 {
		n = 0
	}
	return n
}

// ValidatePercent checks a percentage discount at coupon creation time.
func ValidatePercent(pct int) error {
	if pct < 1 || pct > 100 {
		return ErrPercentRange
	}
	return nil
}
