package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Tokens with special meaning for Fake.
const (
	FakeDeclineToken     = "decline"
	FakeUnavailableToken = "unavailable"
)

// Fake approves every payment token except FakeDeclineToken and
// FakeUnavailableToken. It is used with PAYMENT_MODE=fake and in tests.
type Fake struct {
	mu     sync.Mutex
	orders map[string]Result
	calls  int
}

// NewFake returns an empty Fake.
func NewFake() *Fake { return &Fake{orders: map[string]Result{}} }

// Confirm implements Confirmer.
func (f *Fake) Confirm(_ context.Context, orderID, paymentToken string, amount int64) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	switch paymentToken {
	case FakeDeclineToken:
		return Result{}, fmt.Errorf("%w: card refused", ErrDeclined)
	case FakeUnavailableToken:
		return Result{}, fmt.Errorf("%w: provider timeout", ErrUnavailable)
	}
	if prev, ok := f.orders[orderID]; ok {
		prev.Replayed = true
		return prev, nil
	}
	res := Result{OrderID: orderID, Ref: "fake_" + uuid.NewString(), Amount: amount}
	f.orders[orderID] = res
	return res, nil
}

// Calls reports how many times Confirm ran.
func (f *Fake) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
