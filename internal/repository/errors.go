// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking manager and the handlers to distinguish between different
// failure scenarios. For example, ErrForbidden indicates that the current
// user is not authorized to perform an operation on a resource owned by
// someone else, while ErrSlotFull signals that the atomic capacity check
// of a booking failed. The in-memory store returns the same values so
// callers never depend on the backend.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as lowering a slot's capacity below the
// number of seats already reserved. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrSlotFull is returned by the atomic reservation create when the
// slot has no remaining seat or has been closed by the seller.
var ErrSlotFull = errors.New("slot is full")

// ErrDuplicateBooking is returned when the user already holds an
// active reservation for the slot, or when an order id is replayed
// by a different user.
var ErrDuplicateBooking = errors.New("duplicate booking")

// ErrInsufficientPoints is returned when a points debit would leave
// the user's balance negative. The surrounding transaction is rolled
// back so no partial reservation exists.
var ErrInsufficientPoints = errors.New("insufficient points")

// ErrNotCancelable is returned when a reservation is already
// CANCELED or COMPLETED.
var ErrNotCancelable = errors.New("reservation cannot be canceled")

// ErrNotCompletable is returned when a reservation is not in a state
// that can move to COMPLETED.
var ErrNotCompletable = errors.New("reservation cannot be completed")

// ErrCouponUsed is returned when a booking claims a coupon that already
// has a used_at timestamp or belongs to someone else.
var ErrCouponUsed = errors.New("coupon already used")
