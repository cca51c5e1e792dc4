package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/repository"
)

func seedSlot(t *testing.T, s *Store, capacity int) model.Slot {
	t.Helper()
	ctx := context.Background()
	cls := &model.Class{SellerID: 1, Name: "Pilates", PricePoints: 1000, Capacity: capacity}
	if err := s.CreateClass(ctx, cls); err != nil {
		t.Fatalf("CreateClass: %v", err)
	}
	start := time.Date(2030, 1, 7, 10, 0, 0, 0, time.UTC)
	sl := &model.Slot{ClassID: cls.ID, StartAt: start, EndAt: start.Add(time.Hour), Capacity: capacity, IsOpen: true}
	if err := s.CreateSlot(ctx, sl); err != nil {
		t.Fatalf("CreateSlot: %v", err)
	}
	return *sl
}

func params(sl model.Slot, user uint64, order string) repository.ReservationParams {
	return repository.ReservationParams{UserID: user, ClassID: sl.ClassID, SlotID: sl.ID, OrderID: order, PricePoints: 1000, PaidPoints: 1000}
}

func TestCreateReservationAtomic_Concurrent(t *testing.T) {
	s := New()
	sl := seedSlot(t, s, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, full := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			_, err := s.CreateReservationAtomic(context.Background(), params(sl, user, fmt.Sprintf("o-%d", user)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrSlotFull):
				full++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(uint64(i + 1))
	}
	wg.Wait()
	if ok != 3 || full != 17 {
		t.Errorf("ok=%d full=%d, want 3 and 17", ok, full)
	}
	got, _ := s.GetSlot(context.Background(), sl.ID)
	if got.CurrentReservation != 3 {
		t.Errorf("current = %d, want 3", got.CurrentReservation)
	}
}

func TestCreateReservationAtomic_Rules(t *testing.T) {
	ctx := context.Background()
	s := New()
	sl := seedSlot(t, s, 5)

	first, err := s.CreateReservationAtomic(ctx, params(sl, 7, "a"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	replay, err := s.CreateReservationAtomic(ctx, params(sl, 7, "a"))
	if err != nil || replay.ID != first.ID {
		t.Errorf("replay = %v, %v; want reservation %d", replay, err, first.ID)
	}
	if _, err := s.CreateReservationAtomic(ctx, params(sl, 8, "a")); !errors.Is(err, repository.ErrDuplicateBooking) {
		t.Errorf("foreign order err = %v, want ErrDuplicateBooking", err)
	}
	other := seedSlot(t, s, 5)
	if _, err := s.CreateReservationAtomic(ctx, params(other, 7, "a")); !errors.Is(err, repository.ErrDuplicateBooking) {
		t.Errorf("order reused on another slot err = %v, want ErrDuplicateBooking", err)
	}
	if _, err := s.CreateReservationAtomic(ctx, params(sl, 7, "b")); !errors.Is(err, repository.ErrDuplicateBooking) {
		t.Errorf("second booking err = %v, want ErrDuplicateBooking", err)
	}

	p := params(sl, 9, "c")
	p.PointsUsed = 500
	if _, err := s.CreateReservationAtomic(ctx, p); !errors.Is(err, repository.ErrInsufficientPoints) {
		t.Errorf("points err = %v, want ErrInsufficientPoints", err)
	}
	got, _ := s.GetSlot(ctx, sl.ID)
	if got.CurrentReservation != 1 {
		t.Errorf("failed creates changed the count: %d", got.CurrentReservation)
	}
}

func TestCancelReservation_RefundsAndFloorsCount(t *testing.T) {
	ctx := context.Background()
	s := New()
	sl := seedSlot(t, s, 2)
	if _, err := s.AdjustPoints(ctx, 7, model.PointsCharge, 800, "top up"); err != nil {
		t.Fatalf("AdjustPoints: %v", err)
	}
	p := params(sl, 7, "a")
	p.PointsUsed = 300
	res, err := s.CreateReservationAtomic(ctx, p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if bal, _ := s.Balance(ctx, 7); bal != 500 {
		t.Errorf("balance after booking = %d, want 500", bal)
	}

	// Simulate a count that drifted to zero; cancel must not go negative.
	s.mu.Lock()
	drift := s.slots[sl.ID]
	drift.CurrentReservation = 0
	s.slots[sl.ID] = drift
	s.mu.Unlock()

	if _, err := s.CancelReservation(ctx, res.ID, 8); !errors.Is(err, repository.ErrForbidden) {
		t.Errorf("foreign cancel err = %v, want ErrForbidden", err)
	}
	canceled, err := s.CancelReservation(ctx, res.ID, 7)
	if err != nil || canceled.Status != model.StatusCanceled || canceled.CanceledAt == nil {
		t.Fatalf("cancel = %+v, %v", canceled, err)
	}
	got, _ := s.GetSlot(ctx, sl.ID)
	if got.CurrentReservation != 0 {
		t.Errorf("current = %d, want 0", got.CurrentReservation)
	}
	if bal, _ := s.Balance(ctx, 7); bal != 800 {
		t.Errorf("balance after refund = %d, want 800", bal)
	}
	if _, err := s.CancelReservation(ctx, res.ID, 7); !errors.Is(err, repository.ErrNotCancelable) {
		t.Errorf("second cancel err = %v, want ErrNotCancelable", err)
	}
	history, _ := s.PointsHistory(ctx, 7, 0)
	if len(history) != 3 || history[0].Type != model.PointsRefund || history[0].BalanceAfter != 800 {
		t.Errorf("history = %+v", history)
	}
}

func TestCreateSlots_SkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := New()
	sl := seedSlot(t, s, 4)
	next := sl
	next.ID = 0
	next.StartAt = sl.StartAt.Add(24 * time.Hour)
	next.EndAt = next.StartAt.Add(time.Hour)

	n, err := s.CreateSlots(ctx, []model.Slot{sl, next})
	if err != nil || n != 1 {
		t.Errorf("CreateSlots = %d, %v; want 1", n, err)
	}
	if err := s.CreateSlot(ctx, &next); !errors.Is(err, repository.ErrConflict) {
		t.Errorf("duplicate CreateSlot err = %v, want ErrConflict", err)
	}
	list, _ := s.ListSlots(ctx, sl.ClassID, sl.StartAt, sl.StartAt.Add(48*time.Hour))
	if len(list) != 2 {
		t.Errorf("slots = %d, want 2", len(list))
	}
}

func TestCreateReservationAtomic_CouponSingleUse(t *testing.T) {
	ctx := context.Background()
	s := New()
	tmpl := &model.CouponTemplate{SellerID: 1, Name: "ten", DiscountPoints: 10}
	if err := s.CreateCouponTemplate(ctx, tmpl); err != nil {
		t.Fatalf("template: %v", err)
	}
	uc, err := s.IssueCoupon(ctx, tmpl.ID, 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	const attempts = 8
	slots := make([]model.Slot, attempts)
	for i := range slots {
		slots[i] = seedSlot(t, s, 2)
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, used := 0, 0
	for i := range slots {
		wg.Add(1)
		go func(sl model.Slot, order string) {
			defer wg.Done()
			p := params(sl, 7, order)
			p.UserCouponID = &uc.ID
			_, err := s.CreateReservationAtomic(ctx, p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, repository.ErrCouponUsed):
				used++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(slots[i], fmt.Sprintf("c-%d", i))
	}
	wg.Wait()
	if ok != 1 || used != attempts-1 {
		t.Errorf("ok=%d used=%d, want 1 and %d", ok, used, attempts-1)
	}
	got, _ := s.GetUserCoupon(ctx, uc.ID)
	if !got.Used() {
		t.Errorf("coupon %d not marked used", uc.ID)
	}
	taken := 0
	for _, sl := range slots {
		g, _ := s.GetSlot(ctx, sl.ID)
		taken += g.CurrentReservation
	}
	if taken != 1 {
		t.Errorf("seats taken = %d, want 1", taken)
	}

	foreign, _ := s.IssueCoupon(ctx, tmpl.ID, 8)
	p := params(seedSlot(t, s, 2), 7, "foreign")
	p.UserCouponID = &foreign.ID
	if _, err := s.CreateReservationAtomic(ctx, p); !errors.Is(err, repository.ErrCouponUsed) {
		t.Errorf("foreign coupon err = %v, want ErrCouponUsed", err)
	}
}
