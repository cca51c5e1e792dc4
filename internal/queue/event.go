// Package queue defines message payloads exchanged over the message broker
// and the background consumers that process them.
package queue

import (
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/class-booking/internal/model"
)

// Queue names. Both queues are durable.
const (
	ReservationEventsQueue = "reservation.events"
	ReconcileQueue         = "booking.reconcile"
)

// EventType discriminates reservation events.
type EventType string

const (
	EventReservationCreated  EventType = "reservation.created"
	EventReservationCanceled EventType = "reservation.canceled"
)

// ReservationEvent is published after a reservation is committed or
// canceled. It contains enough information for downstream consumers to log,
// notify or push availability updates without querying the primary
// database.
type ReservationEvent struct {
	EventID              string    `json:"event_id"`
	Type                 EventType `json:"type"`
	ReservationID        uint64    `json:"reservation_id"`
	UserID               uint64    `json:"user_id"`
	ClassID              uint64    `json:"class_id"`
	SlotID               uint64    `json:"slot_id"`
	Status               string    `json:"status"`
	PricePoints          int64     `json:"price_points"`
	CouponDiscountPoints int64     `json:"coupon_discount_points"`
	PointsUsed           int64     `json:"points_used"`
	PaidPoints           int64     `json:"paid_points"`
	OrderID              string    `json:"order_id"`
	OccurredAt           string    `json:"occurred_at"`
}

// NewReservationEvent builds an event envelope for a reservation.
func NewReservationEvent(typ EventType, r *model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		EventID:              uuid.NewString(),
		Type:                 typ,
		ReservationID:        r.ID,
		UserID:               r.UserID,
		ClassID:              r.ClassID,
		SlotID:               r.SlotID,
		Status:               string(r.Status),
		PricePoints:          r.PricePoints,
		CouponDiscountPoints: r.CouponDiscountPoints,
		PointsUsed:           r.PointsUsed,
		PaidPoints:           r.PaidPoints,
		OrderID:              r.OrderID,
		OccurredAt:           at.UTC().Format(time.RFC3339),
	}
}

// TaskKind names a follow-up action that failed inline.
type TaskKind string

const (
	// TaskPaymentRefund records a confirmed payment whose reservation
	// could not be committed; it needs a refund.
	TaskPaymentRefund TaskKind = "payment_refund"
)

// ReconciliationTask is a best-effort side effect that did not complete
// inline. Tasks go to the booking.reconcile queue instead of being dropped.
type ReconciliationTask struct {
	TaskID     string   `json:"task_id"`
	Kind       TaskKind `json:"kind"`
	UserID     uint64   `json:"user_id,omitempty"`
	OrderID    string   `json:"order_id,omitempty"`
	PaymentRef string   `json:"payment_ref,omitempty"`
	Amount     int64    `json:"amount,omitempty"`
	Reason     string   `json:"reason"`
	CreatedAt  string   `json:"created_at"`
}

// NewTask stamps a task with an id and creation time.
func NewTask(kind TaskKind, reason string, at time.Time) ReconciliationTask {
	return ReconciliationTask{
		TaskID:    uuid.NewString(),
		Kind:      kind,
		Reason:    reason,
		CreatedAt: at.UTC().Format(time.RFC3339),
	}
}
