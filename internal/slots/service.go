// Package slots serves the session listing of a class and the seller-side
// slot operations. Listings are computed per request from the class's
// recurring schedule and the persisted slot records; nothing is cached
// between requests, so a booking made a moment ago is always visible.
package slots

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/iliyamo/class-booking/internal/metrics"
	"github.com/iliyamo/class-booking/internal/model"
	"github.com/iliyamo/class-booking/internal/repository"
	"github.com/iliyamo/class-booking/internal/schedule"
)

// ErrInvalidRange is returned for a listing or materialization range that
// ends before it starts or spans more than the allowed number of days.
var ErrInvalidRange = errors.New("invalid date range")

// ErrInvalidSlot is returned when a single slot has no start time or a
// non-positive capacity.
var ErrInvalidSlot = errors.New("invalid slot")

// Store is what the service reads and writes.
type Store interface {
	GetClass(ctx context.Context, id uint64) (*model.Class, error)
	ListScheduledClasses(ctx context.Context) ([]model.Class, error)
	GetSlot(ctx context.Context, id uint64) (*model.Slot, error)
	ListSlots(ctx context.Context, classID uint64, from, to time.Time) ([]model.Slot, error)
	CreateSlots(ctx context.Context, slots []model.Slot) (int, error)
	CreateSlot(ctx context.Context, s *model.Slot) error
	UpdateSlot(ctx context.Context, id uint64, capacity *int, isOpen *bool) (*model.Slot, error)
}

// Service lists and materializes slots.
type Service struct {
	store   Store
	loc     *time.Location
	maxDays int
}

// NewService returns a service generating slots in loc. maxDays bounds the
// length of a listing or materialization range; 0 means 31.
func NewService(store Store, loc *time.Location, maxDays int) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if maxDays <= 0 {
		maxDays = 31
	}
	return &Service{store: store, loc: loc, maxDays: maxDays}
}

// Location is the zone schedules are interpreted in.
func (s *Service) Location() *time.Location { return s.loc }

// ListForDate lists the sessions of one calendar day.
func (s *Service) ListForDate(ctx context.Context, classID uint64, date time.Time) ([]schedule.SlotView, error) {
	return s.ListForRange(ctx, classID, date, date)
}

// ListForRange lists the sessions between two calendar days inclusive.
// Generated sessions are overlaid with their persisted records and
// persisted sessions outside the schedule are appended. A class without a
// usable schedule lists its persisted sessions only.
func (s *Service) ListForRange(ctx context.Context, classID uint64, from, to time.Time) ([]schedule.SlotView, error) {
	cls, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	first, last, err := s.days(from, to)
	if err != nil {
		return nil, err
	}
	persisted, err := s.store.ListSlots(ctx, classID, first, last.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	def := schedule.ParseString(cls.Schedule)
	virtual := schedule.GenerateRange(first, last, def, schedule.ClassRef{ID: cls.ID, Capacity: cls.Capacity})

	merged := schedule.Reconcile(virtual, persisted)
	merged = append(merged, schedule.Orphans(virtual, persisted)...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].StartAt.Before(merged[j].StartAt) })
	return schedule.Views(merged), nil
}

// Authorize returns the class when sellerID owns it.
func (s *Service) Authorize(ctx context.Context, sellerID, classID uint64) (*model.Class, error) {
	cls, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	if cls.SellerID != sellerID {
		return nil, repository.ErrForbidden
	}
	return cls, nil
}

// Materialize persists every generated session of the class between two
// calendar days that has no record yet and returns how many were created.
// Inserts skip existing (class, start) pairs, so concurrent runs are safe.
func (s *Service) Materialize(ctx context.Context, classID uint64, from, to time.Time) (int, error) {
	cls, err := s.store.GetClass(ctx, classID)
	if err != nil {
		return 0, err
	}
	return s.materialize(ctx, cls, from, to)
}

func (s *Service) materialize(ctx context.Context, cls *model.Class, from, to time.Time) (int, error) {
	first, last, err := s.days(from, to)
	if err != nil {
		return 0, err
	}
	def := schedule.ParseString(cls.Schedule)
	if def == nil {
		return 0, nil
	}
	persisted, err := s.store.ListSlots(ctx, cls.ID, first, last.AddDate(0, 0, 1))
	if err != nil {
		return 0, err
	}
	virtual := schedule.GenerateRange(first, last, def, schedule.ClassRef{ID: cls.ID, Capacity: cls.Capacity})
	missing := schedule.Unpersisted(virtual, persisted)
	if len(missing) == 0 {
		return 0, nil
	}
	n, err := s.store.CreateSlots(ctx, missing)
	if err != nil {
		return 0, err
	}
	metrics.SlotsMaterialized.Add(float64(n))
	return n, nil
}

// MaterializeAll runs Materialize for every class that has a schedule,
// from today through daysAhead days. Failures are logged per class.
func (s *Service) MaterializeAll(ctx context.Context, now time.Time, daysAhead int) int {
	classes, err := s.store.ListScheduledClasses(ctx)
	if err != nil {
		log.Printf("slots: list scheduled classes failed: %v", err)
		return 0
	}
	if daysAhead >= s.maxDays {
		daysAhead = s.maxDays - 1
	}
	from := now.In(s.loc)
	to := from.AddDate(0, 0, daysAhead)
	total := 0
	for i := range classes {
		n, err := s.materialize(ctx, &classes[i], from, to)
		if err != nil {
			log.Printf("slots: materialize class_id=%d failed: %v", classes[i].ID, err)
			continue
		}
		total += n
	}
	if total > 0 {
		log.Printf("slots: materialized %d slots across %d classes", total, len(classes))
	}
	return total
}

// CreateSingle persists one session outside the recurring schedule. A zero
// capacity takes the class default.
func (s *Service) CreateSingle(ctx context.Context, sellerID, classID uint64, start time.Time, capacity int) (*model.Slot, error) {
	cls, err := s.Authorize(ctx, sellerID, classID)
	if err != nil {
		return nil, err
	}
	if capacity == 0 {
		capacity = cls.Capacity
	}
	if start.IsZero() || capacity < 1 {
		return nil, ErrInvalidSlot
	}
	slot := &model.Slot{
		ClassID:  cls.ID,
		StartAt:  start.UTC(),
		EndAt:    start.UTC().Add(schedule.SlotDuration),
		Capacity: capacity,
		IsOpen:   true,
	}
	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// UpdateSlot changes a session's capacity or open flag. Capacity cannot
// drop below the seats already reserved (repository.ErrConflict).
func (s *Service) UpdateSlot(ctx context.Context, sellerID, slotID uint64, capacity *int, isOpen *bool) (*model.Slot, error) {
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Authorize(ctx, sellerID, slot.ClassID); err != nil {
		return nil, err
	}
	if capacity != nil && *capacity < 1 {
		return nil, ErrInvalidSlot
	}
	return s.store.UpdateSlot(ctx, slotID, capacity, isOpen)
}

// days converts a range to calendar days in the service zone.
func (s *Service) days(from, to time.Time) (time.Time, time.Time, error) {
	first := schedule.DayStart(from.In(s.loc))
	last := schedule.DayStart(to.In(s.loc))
	if last.Before(first) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	if last.Sub(first) >= time.Duration(s.maxDays)*24*time.Hour {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return first, last, nil
}
