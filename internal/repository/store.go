package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// Store bundles the MySQL repositories behind the method set the booking
// manager, the slot service and the handlers use. memstore.Store has the
// same methods.
type Store struct {
	Classes      *ClassRepo
	Slots        *SlotRepo
	Reservations *ReservationRepo
	Coupons      *CouponRepo
	Points       *PointsRepo
}

// NewStore builds every repository on one database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{
		Classes:      NewClassRepo(db),
		Slots:        NewSlotRepo(db),
		Reservations: NewReservationRepo(db),
		Coupons:      NewCouponRepo(db),
		Points:       NewPointsRepo(db),
	}
}

func (s *Store) CreateClass(ctx context.Context, c *model.Class) error { return s.Classes.Create(ctx, c) }

func (s *Store) GetClass(ctx context.Context, id uint64) (*model.Class, error) {
	return s.Classes.GetByID(ctx, id)
}

func (s *Store) ListClassesBySeller(ctx context.Context, sellerID uint64) ([]model.Class, error) {
	return s.Classes.ListBySeller(ctx, sellerID)
}

func (s *Store) ListScheduledClasses(ctx context.Context) ([]model.Class, error) {
	return s.Classes.ListScheduled(ctx)
}

func (s *Store) GetSlot(ctx context.Context, id uint64) (*model.Slot, error) {
	return s.Slots.GetByID(ctx, id)
}

func (s *Store) ListSlots(ctx context.Context, classID uint64, from, to time.Time) ([]model.Slot, error) {
	return s.Slots.ListByClassAndRange(ctx, classID, from, to)
}

func (s *Store) CreateSlots(ctx context.Context, slots []model.Slot) (int, error) {
	return s.Slots.CreateBulk(ctx, slots)
}

func (s *Store) CreateSlot(ctx context.Context, sl *model.Slot) error { return s.Slots.Create(ctx, sl) }

func (s *Store) UpdateSlot(ctx context.Context, id uint64, capacity *int, isOpen *bool) (*model.Slot, error) {
	return s.Slots.UpdateCapacityAndOpen(ctx, id, capacity, isOpen)
}

func (s *Store) CreateReservationAtomic(ctx context.Context, p ReservationParams) (*model.Reservation, error) {
	return s.Reservations.CreateAtomic(ctx, p)
}

func (s *Store) GetReservationByOrder(ctx context.Context, orderID string) (*model.Reservation, error) {
	return s.Reservations.GetByOrderID(ctx, orderID)
}

func (s *Store) CancelReservation(ctx context.Context, reservationID, userID uint64) (*model.Reservation, error) {
	return s.Reservations.Cancel(ctx, reservationID, userID)
}

func (s *Store) CompleteReservation(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	return s.Reservations.Complete(ctx, reservationID)
}

func (s *Store) GetReservation(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	return s.Reservations.GetByID(ctx, reservationID)
}

func (s *Store) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return s.Reservations.ListByUser(ctx, userID)
}

func (s *Store) CreateCouponTemplate(ctx context.Context, t *model.CouponTemplate) error {
	return s.Coupons.CreateTemplate(ctx, t)
}

func (s *Store) GetCouponTemplate(ctx context.Context, id uint64) (*model.CouponTemplate, error) {
	return s.Coupons.GetTemplate(ctx, id)
}

func (s *Store) IssueCoupon(ctx context.Context, templateID, userID uint64) (*model.UserCoupon, error) {
	return s.Coupons.Issue(ctx, templateID, userID)
}

func (s *Store) GetUserCoupon(ctx context.Context, id uint64) (*model.UserCoupon, error) {
	return s.Coupons.GetUserCoupon(ctx, id)
}

func (s *Store) ListUserCoupons(ctx context.Context, userID uint64) ([]model.UserCoupon, error) {
	return s.Coupons.ListByUser(ctx, userID)
}

func (s *Store) Balance(ctx context.Context, userID uint64) (int64, error) {
	return s.Points.Balance(ctx, userID)
}

func (s *Store) Debit(ctx context.Context, userID uint64, amount int64, reservationID *uint64) (int64, error) {
	return s.Points.Debit(ctx, userID, amount, reservationID)
}

func (s *Store) AdjustPoints(ctx context.Context, userID uint64, typ model.PointsEntryType, amount int64, memo string) (*model.PointsEntry, error) {
	return s.Points.Adjust(ctx, userID, typ, amount, memo)
}

func (s *Store) PointsHistory(ctx context.Context, userID uint64, limit int) ([]model.PointsEntry, error) {
	return s.Points.History(ctx, userID, limit)
}
