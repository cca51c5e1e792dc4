package model

import "time"

// ReservationStatus is the lifecycle state of a reservation.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusBooked    ReservationStatus = "BOOKED"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCanceled  ReservationStatus = "CANCELED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// Transitions only move forward; CANCELED and COMPLETED are terminal.
var validNext = map[ReservationStatus]map[ReservationStatus]bool{
	StatusPending:   {StatusBooked: true, StatusConfirmed: true, StatusCanceled: true},
	StatusBooked:    {StatusConfirmed: true, StatusCanceled: true, StatusCompleted: true},
	StatusConfirmed: {StatusCanceled: true, StatusCompleted: true},
	StatusCanceled:  {},
	StatusCompleted: {},
}

// CanTransition reports whether a reservation may move from one status to another.
func CanTransition(from, to ReservationStatus) bool {
	return validNext[from][to]
}

// Active reports whether the status still holds a seat.
func (s ReservationStatus) Active() bool {
	return s == StatusPending || s == StatusBooked || s == StatusConfirmed
}

// Reservation records a user's booking of one slot of one class. Amounts
// are snapshots taken at booking time so later price or coupon changes do
// not alter what was charged.
//
// Fields:
//
//	ID                   – primary key identifier.
//	UserID               – customer who booked.
//	ClassID              – class being booked.
//	SlotID               – booked slot.
//	Status               – lifecycle state.
//	PricePoints          – list price snapshot.
//	CouponDiscountPoints – discount granted by the coupon.
//	PointsUsed           – points debited from the balance.
//	PaidPoints           – remainder paid through the payment provider, never negative.
//	UserCouponID         – coupon consumed by the booking (nullable).
//	OrderID              – idempotency key of the booking attempt, unique.
//	PaymentRef           – external payment reference (nullable).
//	CreatedAt            – creation timestamp.
//	CanceledAt           – cancellation timestamp (nullable).
//	CompletedAt          – completion timestamp (nullable).
type Reservation struct {
	ID                   uint64            `json:"id"`
	UserID               uint64            `json:"user_id"`
	ClassID              uint64            `json:"class_id"`
	SlotID               uint64            `json:"slot_id"`
	Status               ReservationStatus `json:"status"`
	PricePoints          int64             `json:"price_points"`
	CouponDiscountPoints int64             `json:"coupon_discount_points"`
	PointsUsed           int64             `json:"points_used"`
	PaidPoints           int64             `json:"paid_points"`
	UserCouponID         *uint64           `json:"user_coupon_id,omitempty"`
	OrderID              string            `json:"order_id"`
	PaymentRef           *string           `json:"payment_ref,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	CanceledAt           *time.Time        `json:"canceled_at,omitempty"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
}
