// Package payment is the client side of the external Payment Confirmation
// Service. The booking core only needs the amount, the outcome and an
// idempotent confirmation keyed by order id; the provider's own protocol is
// hidden behind Confirmer.
package payment

import (
	"context"
	"errors"
)

var (
	// ErrDeclined is a terminal refusal by the provider.
	ErrDeclined = errors.New("payment declined")
	// ErrUnavailable covers network errors, timeouts and 5xx responses.
	// Callers may retry on explicit user action.
	ErrUnavailable = errors.New("payment service unavailable")
	// ErrInProgress means another confirmation for the same order id is
	// running right now.
	ErrInProgress = errors.New("payment confirmation already in progress")
)

// Result is a successful confirmation.
type Result struct {
	OrderID  string `json:"order_id"`
	Ref      string `json:"payment_ref"`
	Amount   int64  `json:"amount"`
	Replayed bool   `json:"-"`
}

// Confirmer confirms a payment for an order. Implementations must be
// idempotent on orderID: repeating a confirmed order returns the same
// result without charging again.
type Confirmer interface {
	Confirm(ctx context.Context, orderID, paymentToken string, amount int64) (Result, error)
}
