package booking

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/class-booking/internal/metrics"
	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/pricing"
	"github.com/iliyamo/class-booking/internal/queue"
	"github.com/iliyamo/class-booking/internal/repository"
	"github.com/iliyamo/class-booking/internal/schedule"
)

// BookRequest is a customer's selection. UserCouponID and PointsToUse are
// optional. OrderID is the idempotency key of the attempt; when empty a new
// one is generated, so clients that want safe retries must send their own.
type BookRequest struct {
	SlotID       uint64
	UserCouponID *uint64
	PointsToUse  int64
	PaymentToken string
	OrderID      string
}

// Manager orchestrates booking, cancellation and completion. It holds no
// mutable state between calls; every operation re-reads what it needs.
type Manager struct {
	store    Store
	payments PaymentConfirmer
	events   EventPublisher
	now      func() time.Time
	newOrder func() string
}

// Option customizes a Manager.
type Option func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(m *Manager) { m.now = now } }

// WithOrderIDs replaces the order id generator.
func WithOrderIDs(gen func() string) Option { return func(m *Manager) { m.newOrder = gen } }

// NewManager wires a manager. store and payments are required; a nil
// publisher disables events.
func NewManager(store Store, payments PaymentConfirmer, events EventPublisher, opts ...Option) *Manager {
	if store == nil || payments == nil {
		panic("nil dependency passed to NewManager")
	}
	if events == nil {
		events = nopPublisher{}
	}
	m := &Manager{
		store:    store,
		payments: payments,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
		newOrder: uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// selection is a validated booking input with its price.
type selection struct {
	slot   *model.Slot
	class  *model.Class
	coupon *model.UserCoupon
	quote  pricing.Quote
}

// Quote previews the price of a booking without side effects.
func (m *Manager) Quote(ctx context.Context, sess Session, slotID uint64, userCouponID *uint64, points int64) (pricing.Quote, error) {
	if err := sess.Valid(m.now()); err != nil {
		return pricing.Quote{}, err
	}
	sel, err := m.selectSlot(ctx, sess, slotID, userCouponID, points)
	if err != nil {
		return pricing.Quote{}, err
	}
	return sel.quote, nil
}

// Book runs the selection, payment and commit phases. The store is called
// exactly once for the commit and a conflict is returned as is; the manager
// never retries into a second booking.
func (m *Manager) Book(ctx context.Context, sess Session, req BookRequest) (*model.Reservation, error) {
	start := time.Now()
	res, outcome, err := m.book(ctx, sess, req)
	metrics.BookingDuration.Observe(time.Since(start).Seconds())
	metrics.BookingsTotal.WithLabelValues(outcome).Inc()
	return res, err
}

func (m *Manager) book(ctx context.Context, sess Session, req BookRequest) (*model.Reservation, string, error) {
	if err := sess.Valid(m.now()); err != nil {
		return nil, "unauthenticated", err
	}
	if !sess.Is(RoleCustomer) {
		return nil, "forbidden", ErrForbidden
	}

	// A replayed order returns what the first attempt committed, even if
	// the slot has filled up or the coupon was consumed since.
	orderID := strings.TrimSpace(req.OrderID)
	if orderID != "" {
		prev, err := m.store.GetReservationByOrder(ctx, orderID)
		switch {
		case err == nil:
			if prev.UserID != sess.UserID || prev.SlotID != req.SlotID {
				return nil, "duplicate", ErrDuplicateBooking
			}
			return prev, "replayed", nil
		case !errors.Is(err, repository.ErrNotFound):
			return nil, "error", storeErr("lookup order", err)
		}
	} else {
		orderID = m.newOrder()
	}

	sel, err := m.selectSlot(ctx, sess, req.SlotID, req.UserCouponID, req.PointsToUse)
	if err != nil {
		return nil, outcomeOf(err), err
	}

	var paymentRef *string
	status := model.StatusBooked
	if sel.quote.Final > 0 {
		if strings.TrimSpace(req.PaymentToken) == "" {
			return nil, "payment_required", ErrPaymentRequired
		}
		pr, err := m.payments.Confirm(ctx, orderID, req.PaymentToken, sel.quote.Final)
		if err != nil {
			metrics.PaymentConfirmations.WithLabelValues(paymentResult(err)).Inc()
			log.Printf("booking: payment failed order_id=%s user_id=%d amount=%d: %v", orderID, sess.UserID, sel.quote.Final, err)
			perr := paymentErr(err)
			return nil, outcomeOf(perr), perr
		}
		if pr.Replayed {
			metrics.PaymentConfirmations.WithLabelValues("replayed").Inc()
		} else {
			metrics.PaymentConfirmations.WithLabelValues("succeeded").Inc()
		}
		ref := pr.Ref
		paymentRef = &ref
		status = model.StatusConfirmed
	}

	params := repository.ReservationParams{
		UserID:               sess.UserID,
		ClassID:              sel.class.ID,
		SlotID:               sel.slot.ID,
		Status:               status,
		PricePoints:          sel.quote.Price,
		CouponDiscountPoints: sel.quote.CouponDiscount,
		PointsUsed:           sel.quote.PointsUsed,
		PaidPoints:           sel.quote.Final,
		OrderID:              orderID,
		PaymentRef:           paymentRef,
	}
	if sel.coupon != nil {
		id := sel.coupon.ID
		params.UserCouponID = &id
	}

	res, err := m.store.CreateReservationAtomic(ctx, params)
	if err != nil {
		cerr := storeErr("create reservation", err)
		if paymentRef != nil {
			m.queueRefund(ctx, sess.UserID, orderID, *paymentRef, sel.quote.Final, cerr)
		}
		log.Printf("booking: commit failed order_id=%s user_id=%d slot_id=%d: %v", orderID, sess.UserID, sel.slot.ID, err)
		return nil, outcomeOf(cerr), cerr
	}

	if err := m.events.ReservationCreated(ctx, res); err != nil {
		metrics.BestEffortFailures.WithLabelValues("event_publish").Inc()
		log.Printf("booking: publish created reservation_id=%d failed: %v", res.ID, err)
	}
	log.Printf("booking: reserved reservation_id=%d user_id=%d slot_id=%d paid=%d points=%d coupon=%d",
		res.ID, res.UserID, res.SlotID, res.PaidPoints, res.PointsUsed, res.CouponDiscountPoints)
	return res, "booked", nil
}

// selectSlot validates the slot, coupon and points and prices the booking.
func (m *Manager) selectSlot(ctx context.Context, sess Session, slotID uint64, userCouponID *uint64, points int64) (*selection, error) {
	if slotID == 0 || points < 0 {
		return nil, ErrInvalidRequest
	}
	slot, err := m.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, storeErr("get slot", err)
	}
	if !schedule.Bookable(*slot) || !slot.StartAt.After(m.now()) {
		return nil, ErrSlotUnavailable
	}
	class, err := m.store.GetClass(ctx, slot.ClassID)
	if err != nil {
		return nil, storeErr("get class", err)
	}

	sel := &selection{slot: slot, class: class}
	var coupon *pricing.Coupon
	if userCouponID != nil {
		uc, err := m.store.GetUserCoupon(ctx, *userCouponID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCouponUnavailable
			}
			return nil, storeErr("get coupon", err)
		}
		if uc.UserID != sess.UserID || uc.Used() || uc.Template.Expired(m.now()) || uc.Template.SellerID != class.SellerID {
			return nil, ErrCouponUnavailable
		}
		sel.coupon = uc
		coupon = &pricing.Coupon{FixedPoints: uc.Template.DiscountPoints, Percent: uc.Template.DiscountPercent}
	}

	if points > 0 {
		balance, err := m.store.Balance(ctx, sess.UserID)
		if err != nil {
			return nil, storeErr("read balance", err)
		}
		discount := pricing.Calculate(class.PricePoints, coupon, 0).CouponDiscount
		points = pricing.MaxUsablePoints(points, balance, class.PricePoints, discount)
	}
	sel.quote = pricing.Calculate(class.PricePoints, coupon, points)
	return sel, nil
}

// queueRefund records a confirmed payment whose reservation was not
// committed.
func (m *Manager) queueRefund(ctx context.Context, userID uint64, orderID, ref string, amount int64, cause error) {
	metrics.BestEffortFailures.WithLabelValues(string(queue.TaskPaymentRefund)).Inc()
	task := queue.NewTask(queue.TaskPaymentRefund, cause.Error(), m.now())
	task.UserID = userID
	task.OrderID = orderID
	task.PaymentRef = ref
	task.Amount = amount
	if err := m.events.ReconciliationTask(ctx, task); err != nil {
		log.Printf("booking: queue refund order_id=%s payment_ref=%s amount=%d failed: %v", orderID, ref, amount, err)
	}
}

// Cancel cancels the caller's reservation. The store frees the seat and
// refunds the points in the same transaction; canceling a reservation that
// is already CANCELED or COMPLETED returns ErrNotCancelable.
func (m *Manager) Cancel(ctx context.Context, sess Session, reservationID uint64) (*model.Reservation, error) {
	if err := sess.Valid(m.now()); err != nil {
		return nil, err
	}
	if reservationID == 0 {
		return nil, ErrInvalidRequest
	}
	res, err := m.store.CancelReservation(ctx, reservationID, sess.UserID)
	if err != nil {
		return nil, storeErr("cancel reservation", err)
	}
	metrics.CancellationsTotal.Inc()
	if err := m.events.ReservationCanceled(ctx, res); err != nil {
		metrics.BestEffortFailures.WithLabelValues("event_publish").Inc()
		log.Printf("booking: publish canceled reservation_id=%d failed: %v", res.ID, err)
	}
	log.Printf("booking: canceled reservation_id=%d user_id=%d slot_id=%d refund=%d", res.ID, res.UserID, res.SlotID, res.PointsUsed)
	return res, nil
}

// Complete marks a reservation attended. Only the seller that owns the
// class may complete it.
func (m *Manager) Complete(ctx context.Context, sess Session, reservationID uint64) (*model.Reservation, error) {
	if err := sess.Valid(m.now()); err != nil {
		return nil, err
	}
	if !sess.Is(RoleSeller) {
		return nil, ErrForbidden
	}
	res, err := m.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr("get reservation", err)
	}
	class, err := m.store.GetClass(ctx, res.ClassID)
	if err != nil {
		return nil, storeErr("get class", err)
	}
	if class.SellerID != sess.UserID {
		return nil, ErrForbidden
	}
	res, err = m.store.CompleteReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr("complete reservation", err)
	}
	return res, nil
}

// Get returns a reservation visible to the caller: its owner, the seller of
// the class or an admin.
func (m *Manager) Get(ctx context.Context, sess Session, reservationID uint64) (*model.Reservation, error) {
	if err := sess.Valid(m.now()); err != nil {
		return nil, err
	}
	res, err := m.store.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, storeErr("get reservation", err)
	}
	switch {
	case res.UserID == sess.UserID, sess.Is(RoleAdmin):
		return res, nil
	case sess.Is(RoleSeller):
		class, err := m.store.GetClass(ctx, res.ClassID)
		if err != nil {
			return nil, storeErr("get class", err)
		}
		if class.SellerID == sess.UserID {
			return res, nil
		}
	}
	return nil, ErrForbidden
}

// List returns the caller's reservations, newest first.
func (m *Manager) List(ctx context.Context, sess Session) ([]model.Reservation, error) {
	if err := sess.Valid(m.now()); err != nil {
		return nil, err
	}
	out, err := m.store.ListReservations(ctx, sess.UserID)
	if err != nil {
		return nil, storeErr("list reservations", err)
	}
	return out, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrDuplicateBooking):
		return "duplicate"
	case errors.Is(err, ErrInsufficientPoints):
		return "insufficient_points"
	case errors.Is(err, ErrCouponUnavailable):
		return "coupon_unavailable"
	case errors.Is(err, ErrPaymentDeclined):
		return "payment_declined"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	}
	return "error"
}

func paymentResult(err error) string {
	if perr := paymentErr(err); errors.Is(perr, ErrPaymentDeclined) {
		return "declined"
	}
	return "unavailable"
}
