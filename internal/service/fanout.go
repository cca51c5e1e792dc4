package service

import (
	"context"
	"errors"

	"github.com/iliyamo/class-booking/internal/booking"
	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/queue"
)

// Fanout forwards every call to each publisher in order. All publishers
// are called even when one fails; the failures are joined.
type Fanout []booking.EventPublisher

func (f Fanout) ReservationCreated(ctx context.Context, r *model.Reservation) error {
	var errs []error
	for _, p := range f {
		errs = append(errs, p.ReservationCreated(ctx, r))
	}
	return errors.Join(errs...)
}

func (f Fanout) ReservationCanceled(ctx context.Context, r *model.Reservation) error {
	var errs []error
	for _, p := range f {
		errs = append(errs, p.ReservationCanceled(ctx, r))
	}
	return errors.Join(errs...)
}

func (f Fanout) ReconciliationTask(ctx context.Context, t queue.ReconciliationTask) error {
	var errs []error
	for _, p := range f {
		errs = append(errs, p.ReconciliationTask(ctx, t))
	}
	return errors.Join(errs...)
}
