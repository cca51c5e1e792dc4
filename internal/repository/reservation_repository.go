package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// ReservationRepo provides access to the reservations table and owns the
// atomic booking transaction. Lock order is always the class_slots row
// first, then reservation rows, then user_coupons, then point_balances,
// for both create and cancel, so the two never deadlock against each other.
type ReservationRepo struct {
	db      *sql.DB
	slots   *SlotRepo
	coupons *CouponRepo
	points  *PointsRepo
	now     func() time.Time
}

// NewReservationRepo returns a ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo {
	return &ReservationRepo{
		db:      db,
		slots:   NewSlotRepo(db),
		coupons: NewCouponRepo(db),
		points:  NewPointsRepo(db),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Second) },
	}
}

const reservationColumns = `id, user_id, class_id, slot_id, status, price_points, coupon_discount_points,
        points_used, paid_points, user_coupon_id, order_id, payment_ref, created_at, canceled_at, completed_at`

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	var couponID sql.NullInt64
	var paymentRef sql.NullString
	var canceled, completed sql.NullTime
	if err := row.Scan(
		&res.ID, &res.UserID, &res.ClassID, &res.SlotID, &status, &res.PricePoints, &res.CouponDiscountPoints,
		&res.PointsUsed, &res.PaidPoints, &couponID, &res.OrderID, &paymentRef, &res.CreatedAt, &canceled, &completed,
	); err != nil {
		return nil, err
	}
	res.Status = model.ReservationStatus(status)
	res.UserCouponID = uint64Ptr(couponID)
	res.PaymentRef = stringPtr(paymentRef)
	res.CanceledAt = timePtr(canceled)
	res.CompletedAt = timePtr(completed)
	return &res, nil
}

// CreateAtomic books a seat in one transaction: lock the slot row, replay
// an existing order, reject a second active booking of the same user,
// take the seat with a conditional increment, claim the coupon, insert the
// reservation and debit the points. Any failure rolls everything back.
func (r *ReservationRepo) CreateAtomic(ctx context.Context, p ReservationParams) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := r.slots.LockTx(ctx, tx, p.SlotID); err != nil {
		return nil, err
	}

	prev, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE order_id = ? FOR UPDATE`, p.OrderID))
	switch {
	case err == nil:
		if prev.UserID != p.UserID || prev.SlotID != p.SlotID {
			return nil, ErrDuplicateBooking
		}
		return prev, nil
	case !errors.Is(err, sql.ErrNoRows):
		return nil, err
	}

	var active int
	const dupQ = `SELECT COUNT(*) FROM reservations
                  WHERE user_id = ? AND slot_id = ? AND status IN ('PENDING', 'BOOKED', 'CONFIRMED') FOR UPDATE`
	if err := tx.QueryRowContext(ctx, dupQ, p.UserID, p.SlotID).Scan(&active); err != nil {
		return nil, err
	}
	if active > 0 {
		return nil, ErrDuplicateBooking
	}

	const takeSeat = `UPDATE class_slots SET current_reservation = current_reservation + 1
                      WHERE id = ? AND is_open = 1 AND current_reservation < capacity`
	upd, err := tx.ExecContext(ctx, takeSeat, p.SlotID)
	if err != nil {
		return nil, err
	}
	taken, err := upd.RowsAffected()
	if err != nil {
		return nil, err
	}
	if taken == 0 {
		return nil, ErrSlotFull
	}

	res := p.Reservation()
	res.CreatedAt = r.now()
	if res.UserCouponID != nil {
		if err := r.coupons.ClaimTx(ctx, tx, *res.UserCouponID, res.UserID, res.CreatedAt); err != nil {
			return nil, err
		}
	}
	const ins = `INSERT INTO reservations (user_id, class_id, slot_id, status, price_points, coupon_discount_points,
                 points_used, paid_points, user_coupon_id, order_id, payment_ref, created_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, ins, res.UserID, res.ClassID, res.SlotID, string(res.Status), res.PricePoints,
		res.CouponDiscountPoints, res.PointsUsed, res.PaidPoints, nullUint64(res.UserCouponID), res.OrderID,
		nullString(res.PaymentRef), res.CreatedAt)
	if err != nil {
		if isDuplicateKey(err) {
			return nil, ErrDuplicateBooking
		}
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	res.ID = uint64(id)

	if res.PointsUsed > 0 {
		if _, err := r.points.DebitTx(ctx, tx, res.UserID, res.PointsUsed, &res.ID, "reservation"); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return &res, nil
}

// Cancel cancels the user's reservation, frees its seat (never below 0)
// and refunds the points used with a REFUND ledger entry.
func (r *ReservationRepo) Cancel(ctx context.Context, reservationID, userID uint64) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var slotID, owner uint64
	if err := tx.QueryRowContext(ctx, `SELECT slot_id, user_id FROM reservations WHERE id = ?`, reservationID).Scan(&slotID, &owner); err != nil {
		return nil, notFound(err)
	}
	if owner != userID {
		return nil, ErrForbidden
	}
	if _, err := r.slots.LockTx(ctx, tx, slotID); err != nil {
		return nil, err
	}
	res, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, reservationID))
	if err != nil {
		return nil, notFound(err)
	}
	if !model.CanTransition(res.Status, model.StatusCanceled) {
		return nil, ErrNotCancelable
	}

	now := r.now()
	if _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ?, canceled_at = ? WHERE id = ?`,
		string(model.StatusCanceled), now, reservationID); err != nil {
		return nil, err
	}
	const freeSeat = `UPDATE class_slots SET current_reservation = current_reservation - 1
                      WHERE id = ? AND current_reservation > 0`
	if _, err := tx.ExecContext(ctx, freeSeat, slotID); err != nil {
		return nil, err
	}
	if res.PointsUsed > 0 {
		if _, err := r.points.CreditTx(ctx, tx, res.UserID, model.PointsRefund, res.PointsUsed, &res.ID, "reservation canceled"); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	res.Status = model.StatusCanceled
	res.CanceledAt = &now
	return res, nil
}

// Complete moves a BOOKED or CONFIRMED reservation to COMPLETED.
func (r *ReservationRepo) Complete(ctx context.Context, reservationID uint64) (*model.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, reservationID))
	if err != nil {
		return nil, notFound(err)
	}
	if !model.CanTransition(res.Status, model.StatusCompleted) {
		return nil, ErrNotCompletable
	}
	now := r.now()
	if _, err := tx.ExecContext(ctx, `UPDATE reservations SET status = ?, completed_at = ? WHERE id = ?`,
		string(model.StatusCompleted), now, reservationID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	res.Status = model.StatusCompleted
	res.CompletedAt = &now
	return res, nil
}

// GetByID returns a reservation or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}

// GetByOrderID returns the reservation created for an order id.
func (r *ReservationRepo) GetByOrderID(ctx context.Context, orderID string) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE order_id = ?`, orderID))
	if err != nil {
		return nil, notFound(err)
	}
	return res, nil
}

// ListByUser returns a user's reservations, newest first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
