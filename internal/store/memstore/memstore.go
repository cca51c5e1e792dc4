// Package memstore is an in-memory implementation of every store the
// service uses. Each call holds a single mutex, so the capacity check and
// increment of a booking are atomic exactly like the row-locked MySQL
// transaction. It backs STORE_BACKEND=memory and the tests; nothing
// survives a restart.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/repository"
)

// Store holds all tables in maps keyed by id.
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	classes      map[uint64]model.Class
	slots        map[uint64]model.Slot
	reservations map[uint64]model.Reservation
	templates    map[uint64]model.CouponTemplate
	coupons      map[uint64]model.UserCoupon
	balances     map[uint64]int64
	ledger       []model.PointsEntry

	nextID uint64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:          func() time.Time { return time.Now().UTC() },
		classes:      map[uint64]model.Class{},
		slots:        map[uint64]model.Slot{},
		reservations: map[uint64]model.Reservation{},
		templates:    map[uint64]model.CouponTemplate{},
		coupons:      map[uint64]model.UserCoupon{},
		balances:     map[uint64]int64{},
	}
}

// SetClock replaces the timestamp source, for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) id() uint64 {
	s.nextID++
	return s.nextID
}

// ---- Classes ----

// CreateClass stores a class and fills in its ID and timestamps.
func (s *Store) CreateClass(_ context.Context, c *model.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.classes[c.ID] = *c
	return nil
}

// GetClass returns a class by id.
func (s *Store) GetClass(_ context.Context, id uint64) (*model.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

// ListClassesBySeller returns a seller's classes ordered by id.
func (s *Store) ListClassesBySeller(_ context.Context, sellerID uint64) ([]model.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Class, 0)
	for _, c := range s.classes {
		if c.SellerID == sellerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListScheduledClasses returns every class with a recurring schedule.
func (s *Store) ListScheduledClasses(_ context.Context) ([]model.Class, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Class, 0)
	for _, c := range s.classes {
		if c.Schedule != nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- Slots ----

func slotKey(classID uint64, start time.Time) [2]int64 {
	return [2]int64{int64(classID), start.UTC().Truncate(time.Minute).Unix()}
}

func (s *Store) slotExists(classID uint64, start time.Time) bool {
	k := slotKey(classID, start)
	for _, sl := range s.slots {
		if slotKey(sl.ClassID, sl.StartAt) == k {
			return true
		}
	}
	return false
}

// GetSlot returns a persisted slot by id.
func (s *Store) GetSlot(_ context.Context, id uint64) (*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sl, nil
}

// ListSlots returns the slots of a class starting in [from, to), ordered by
// start time.
func (s *Store) ListSlots(_ context.Context, classID uint64, from, to time.Time) ([]model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Slot, 0)
	for _, sl := range s.slots {
		if sl.ClassID != classID || sl.StartAt.Before(from) || !sl.StartAt.Before(to) {
			continue
		}
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

// CreateSlots inserts slots, skipping any whose (class, start minute)
// already exists. It returns how many were created.
func (s *Store) CreateSlots(_ context.Context, slots []model.Slot) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := 0
	for _, sl := range slots {
		if s.slotExists(sl.ClassID, sl.StartAt) {
			continue
		}
		sl.ID = s.id()
		sl.VirtualKey = ""
		sl.StartAt = sl.StartAt.UTC()
		sl.EndAt = sl.EndAt.UTC()
		sl.CreatedAt = s.now()
		s.slots[sl.ID] = sl
		created++
	}
	return created, nil
}

// CreateSlot inserts one slot; an existing slot at the same start is
// ErrConflict.
func (s *Store) CreateSlot(_ context.Context, sl *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slotExists(sl.ClassID, sl.StartAt) {
		return repository.ErrConflict
	}
	sl.ID = s.id()
	sl.VirtualKey = ""
	sl.StartAt = sl.StartAt.UTC()
	sl.EndAt = sl.EndAt.UTC()
	sl.CreatedAt = s.now()
	s.slots[sl.ID] = *sl
	return nil
}

// UpdateSlot changes capacity and/or the open flag. Capacity may not drop
// below the seats already reserved.
func (s *Store) UpdateSlot(_ context.Context, id uint64, capacity *int, isOpen *bool) (*model.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if capacity != nil {
		if *capacity < 1 || *capacity < sl.CurrentReservation {
			return nil, repository.ErrConflict
		}
		sl.Capacity = *capacity
	}
	if isOpen != nil {
		sl.IsOpen = *isOpen
	}
	s.slots[id] = sl
	return &sl, nil
}

// ---- Reservations ----

func (s *Store) byOrder(orderID string) (model.Reservation, bool) {
	for _, r := range s.reservations {
		if r.OrderID == orderID {
			return r, true
		}
	}
	return model.Reservation{}, false
}

// CreateReservationAtomic checks capacity, duplicates, the coupon and the
// points balance and, only if all pass, stores the reservation, takes the
// seat, claims the coupon and debits the points.
func (s *Store) CreateReservationAtomic(_ context.Context, p repository.ReservationParams) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byOrder(p.OrderID); ok {
		if prev.UserID != p.UserID || prev.SlotID != p.SlotID {
			return nil, repository.ErrDuplicateBooking
		}
		return &prev, nil
	}
	sl, ok := s.slots[p.SlotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !sl.IsOpen || sl.CurrentReservation >= sl.Capacity {
		return nil, repository.ErrSlotFull
	}
	for _, r := range s.reservations {
		if r.UserID == p.UserID && r.SlotID == p.SlotID && r.Status.Active() {
			return nil, repository.ErrDuplicateBooking
		}
	}
	var coupon model.UserCoupon
	if p.UserCouponID != nil {
		uc, ok := s.coupons[*p.UserCouponID]
		if !ok || uc.UserID != p.UserID || uc.Used() {
			return nil, repository.ErrCouponUsed
		}
		coupon = uc
	}
	if p.PointsUsed > s.balances[p.UserID] {
		return nil, repository.ErrInsufficientPoints
	}

	res := p.Reservation()
	res.ID = s.id()
	res.CreatedAt = s.now()
	if p.UserCouponID != nil {
		usedAt := res.CreatedAt
		coupon.UsedAt = &usedAt
		s.coupons[coupon.ID] = coupon
	}
	sl.CurrentReservation++
	s.slots[sl.ID] = sl
	s.reservations[res.ID] = res
	if p.PointsUsed > 0 {
		rid := res.ID
		if _, err := s.apply(p.UserID, model.PointsUse, -p.PointsUsed, &rid, "reservation"); err != nil {
			return nil, err
		}
	}
	return &res, nil
}

// GetReservationByOrder finds a reservation by its order id.
func (s *Store) GetReservationByOrder(_ context.Context, orderID string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byOrder(orderID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

// CancelReservation cancels the user's reservation, frees its seat and
// refunds the points used.
func (s *Store) CancelReservation(_ context.Context, reservationID, userID uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.UserID != userID {
		return nil, repository.ErrForbidden
	}
	if !model.CanTransition(r.Status, model.StatusCanceled) {
		return nil, repository.ErrNotCancelable
	}
	now := s.now()
	r.Status = model.StatusCanceled
	r.CanceledAt = &now
	s.reservations[r.ID] = r
	if sl, ok := s.slots[r.SlotID]; ok && sl.CurrentReservation > 0 {
		sl.CurrentReservation--
		s.slots[sl.ID] = sl
	}
	if r.PointsUsed > 0 {
		rid := r.ID
		if _, err := s.apply(r.UserID, model.PointsRefund, r.PointsUsed, &rid, "reservation canceled"); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// CompleteReservation marks a BOOKED or CONFIRMED reservation COMPLETED.
func (s *Store) CompleteReservation(_ context.Context, reservationID uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !model.CanTransition(r.Status, model.StatusCompleted) {
		return nil, repository.ErrNotCompletable
	}
	now := s.now()
	r.Status = model.StatusCompleted
	r.CompletedAt = &now
	s.reservations[r.ID] = r
	return &r, nil
}

// GetReservation returns a reservation by id.
func (s *Store) GetReservation(_ context.Context, reservationID uint64) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[reservationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

// ListReservations returns a user's reservations, newest first.
func (s *Store) ListReservations(_ context.Context, userID uint64) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, r := range s.reservations {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ---- Coupons ----

// CreateCouponTemplate validates and stores a template.
func (s *Store) CreateCouponTemplate(_ context.Context, t *model.CouponTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.id()
	t.CreatedAt = s.now()
	s.templates[t.ID] = *t
	return nil
}

// GetCouponTemplate returns a template by id.
func (s *Store) GetCouponTemplate(_ context.Context, id uint64) (*model.CouponTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

// IssueCoupon gives a user a single-use instance of a template.
func (s *Store) IssueCoupon(_ context.Context, templateID, userID uint64) (*model.UserCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	uc := model.UserCoupon{ID: s.id(), TemplateID: templateID, UserID: userID, IssuedAt: s.now(), Template: t}
	s.coupons[uc.ID] = uc
	return &uc, nil
}

// GetUserCoupon returns an issued coupon with its template.
func (s *Store) GetUserCoupon(_ context.Context, id uint64) (*model.UserCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uc, ok := s.coupons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &uc, nil
}

// ListUserCoupons returns a user's coupons ordered by id.
func (s *Store) ListUserCoupons(_ context.Context, userID uint64) ([]model.UserCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.UserCoupon, 0)
	for _, uc := range s.coupons {
		if uc.UserID == userID {
			out = append(out, uc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- Points ----

// apply writes one ledger entry and moves the balance. The caller holds mu.
func (s *Store) apply(userID uint64, typ model.PointsEntryType, amount int64, reservationID *uint64, memo string) (model.PointsEntry, error) {
	e := model.NewPointsEntry(userID, typ, amount, s.balances[userID], reservationID, memo)
	if err := e.Validate(); err != nil {
		if err == model.ErrLedgerNegative {
			return model.PointsEntry{}, repository.ErrInsufficientPoints
		}
		return model.PointsEntry{}, err
	}
	e.ID = s.id()
	e.CreatedAt = s.now()
	s.balances[userID] = e.BalanceAfter
	s.ledger = append(s.ledger, e)
	return e, nil
}

// Balance returns a user's points balance.
func (s *Store) Balance(_ context.Context, userID uint64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[userID], nil
}

// Debit takes points from a user and returns the new balance.
func (s *Store) Debit(_ context.Context, userID uint64, amount int64, reservationID *uint64) (int64, error) {
	if amount <= 0 {
		return 0, repository.ErrConflict
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.apply(userID, model.PointsUse, -amount, reservationID, "debit")
	if err != nil {
		return 0, err
	}
	return e.BalanceAfter, nil
}

// AdjustPoints records a CHARGE or ADMIN entry.
func (s *Store) AdjustPoints(_ context.Context, userID uint64, typ model.PointsEntryType, amount int64, memo string) (*model.PointsEntry, error) {
	if err := repository.ValidateAdjustment(typ, amount); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.apply(userID, typ, amount, nil, memo)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// PointsHistory returns up to limit ledger entries of a user, newest first.
func (s *Store) PointsHistory(_ context.Context, userID uint64, limit int) ([]model.PointsEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PointsEntry, 0)
	for i := len(s.ledger) - 1; i >= 0; i-- {
		if s.ledger[i].UserID != userID {
			continue
		}
		out = append(out, s.ledger[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
