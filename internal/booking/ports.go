// Package booking is the reservation transaction manager. It validates a
// booking against the slot, coupon and points balance, runs the payment
// phase when something is left to pay, and commits through a single atomic
// store call. Stores, the payment service and the event publisher are
// collaborators behind the interfaces below; the MySQL repositories and the
// in-memory store both implement them.
package booking

import (
	"context"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/payment"
	"github.com/iliyamo/class-booking/internal/queue"
	"github.com/iliyamo/class-booking/internal/repository"
)

// ClassStore reads classes.
type ClassStore interface {
	GetClass(ctx context.Context, id uint64) (*model.Class, error)
}

// SlotStore reads persisted slots.
type SlotStore interface {
	GetSlot(ctx context.Context, id uint64) (*model.Slot, error)
	ListSlots(ctx context.Context, classID uint64, from, to time.Time) ([]model.Slot, error)
}

// ReservationStore owns the atomic capacity check. CreateReservationAtomic
// either creates the reservation, increments the slot count, claims the
// coupon and debits the points, or changes nothing and returns
// repository.ErrSlotFull, ErrDuplicateBooking, ErrCouponUsed or
// ErrInsufficientPoints. Replaying an order id of the same user and slot
// returns the existing reservation.
type ReservationStore interface {
	CreateReservationAtomic(ctx context.Context, p repository.ReservationParams) (*model.Reservation, error)
	GetReservationByOrder(ctx context.Context, orderID string) (*model.Reservation, error)
	CancelReservation(ctx context.Context, reservationID, userID uint64) (*model.Reservation, error)
	CompleteReservation(ctx context.Context, reservationID uint64) (*model.Reservation, error)
	GetReservation(ctx context.Context, reservationID uint64) (*model.Reservation, error)
	ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error)
}

// CouponStore reads issued coupons. Coupons are claimed by
// CreateReservationAtomic.
type CouponStore interface {
	GetUserCoupon(ctx context.Context, id uint64) (*model.UserCoupon, error)
}

// PointsLedger reads balances and debits points outside a reservation.
type PointsLedger interface {
	Balance(ctx context.Context, userID uint64) (int64, error)
	Debit(ctx context.Context, userID uint64, amount int64, reservationID *uint64) (int64, error)
}

// PaymentConfirmer is the Payment Confirmation Service.
type PaymentConfirmer interface {
	Confirm(ctx context.Context, orderID, paymentToken string, amount int64) (payment.Result, error)
}

// EventPublisher announces committed changes and queues reconciliation
// tasks. Failures are logged by the caller and never undo a reservation.
type EventPublisher interface {
	ReservationCreated(ctx context.Context, r *model.Reservation) error
	ReservationCanceled(ctx context.Context, r *model.Reservation) error
	ReconciliationTask(ctx context.Context, t queue.ReconciliationTask) error
}

// Store is everything the manager reads and writes.
type Store interface {
	ClassStore
	SlotStore
	ReservationStore
	CouponStore
	PointsLedger
}

type nopPublisher struct{}

func (nopPublisher) ReservationCreated(context.Context, *model.Reservation) error        { return nil }
func (nopPublisher) ReservationCanceled(context.Context, *model.Reservation) error       { return nil }
func (nopPublisher) ReconciliationTask(context.Context, queue.ReconciliationTask) error { return nil }
