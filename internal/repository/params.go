package repository

import (
	"errors"

	"github.com/iliyamo/class-booking/internal/model"
)

// ReservationParams is the input of the atomic reservation create. The
// amounts are the quote computed before payment; the store trusts them and
// only decides on capacity, duplicates and the points balance.
type ReservationParams struct {
	UserID               uint64
	ClassID              uint64
	SlotID               uint64
	Status               model.ReservationStatus
	PricePoints          int64
	CouponDiscountPoints int64
	PointsUsed           int64
	PaidPoints           int64
	UserCouponID         *uint64
	OrderID              string
	PaymentRef           *string
}

// Reservation builds the row a successful create stores.
func (p ReservationParams) Reservation() model.Reservation {
	status := p.Status
	if status == "" {
		status = model.StatusBooked
	}
	return model.Reservation{
		UserID:               p.UserID,
		ClassID:              p.ClassID,
		SlotID:               p.SlotID,
		Status:               status,
		PricePoints:          p.PricePoints,
		CouponDiscountPoints: p.CouponDiscountPoints,
		PointsUsed:           p.PointsUsed,
		PaidPoints:           p.PaidPoints,
		UserCouponID:         p.UserCouponID,
		OrderID:              p.OrderID,
		PaymentRef:           p.PaymentRef,
	}
}

// ErrInvalidAdjustment is returned for a manual points movement that is not
// a positive CHARGE or a non-zero ADMIN correction.
var ErrInvalidAdjustment = errors.New("invalid points adjustment")

// ValidateAdjustment checks a manual ledger movement before it is written.
func ValidateAdjustment(typ model.PointsEntryType, amount int64) error {
	switch typ {
	case model.PointsCharge:
		if amount <= 0 {
			return ErrInvalidAdjustment
		}
	case model.PointsAdmin:
		if amount == 0 {
			return ErrInvalidAdjustment
		}
	default:
		return ErrInvalidAdjustment
	}
	return nil
}
