package booking

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/iliyamo/class-booking/internal/payment"
	"github.com/iliyamo/class-booking/internal/repository"
)

var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("operation not allowed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidRequest     = errors.New("invalid request")
	ErrSlotUnavailable    = errors.New("slot no longer available")
	ErrDuplicateBooking   = errors.New("you already booked this slot")
	ErrCouponUnavailable  = errors.New("coupon is not available")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrPaymentRequired    = errors.New("payment token required")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrTransient          = errors.New("service temporarily unavailable, please retry")
	ErrNotCancelable      = errors.New("reservation cannot be canceled")
	ErrNotCompletable     = errors.New("reservation cannot be completed")
)

// ErrorKind groups errors by how a caller should react.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindConflict
	KindTransient
	KindInsufficientFunds
	KindNotFound
	KindForbidden
	KindUnauthenticated
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindTransient:
		return "transient"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindUnauthenticated:
		return "unauthenticated"
	}
	return "internal"
}

// Kind classifies an error returned by the manager. Conflicts are terminal
// and must not be retried automatically; transient errors may be retried by
// the user.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrPaymentRequired):
		return KindValidation
	case errors.Is(err, ErrSlotUnavailable), errors.Is(err, ErrDuplicateBooking),
		errors.Is(err, ErrCouponUnavailable), errors.Is(err, ErrNotCancelable),
		errors.Is(err, ErrNotCompletable), errors.Is(err, ErrPaymentDeclined):
		return KindConflict
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrInsufficientPoints):
		return KindInsufficientFunds
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	}
	return KindInternal
}

// storeErr translates store sentinels into manager errors. Errors that look
// like a dropped connection or a deadline become ErrTransient; anything else
// is returned wrapped as an internal error.
func storeErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrSlotFull):
		return ErrSlotUnavailable
	case errors.Is(err, repository.ErrDuplicateBooking):
		return ErrDuplicateBooking
	case errors.Is(err, repository.ErrInsufficientPoints):
		return ErrInsufficientPoints
	case errors.Is(err, repository.ErrNotCancelable):
		return ErrNotCancelable
	case errors.Is(err, repository.ErrNotCompletable):
		return ErrNotCompletable
	case errors.Is(err, repository.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, repository.ErrCouponUsed):
		return ErrCouponUnavailable
	case isTransient(err):
		return fmt.Errorf("%w: %s: %v", ErrTransient, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// paymentErr maps confirmation failures. Declines are terminal; everything
// else is left to the user to retry.
func paymentErr(err error) error {
	if errors.Is(err, payment.ErrDeclined) {
		return fmt.Errorf("%w: %v", ErrPaymentDeclined, err)
	}
	return fmt.Errorf("%w: payment: %v", ErrTransient, err)
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
