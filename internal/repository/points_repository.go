package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// PointsRepo maintains point balances and the append-only point_ledger.
// Every movement locks the user's point_balances row, writes a ledger entry
// with the before/after snapshot and updates the balance in the same
// transaction, so the latest entry's balance_after always equals the
// stored balance.
type PointsRepo struct {
	db *sql.DB
}

// NewPointsRepo returns a PointsRepo bound to the given database.
func NewPointsRepo(db *sql.DB) *PointsRepo { return &PointsRepo{db: db} }

// Balance returns the user's balance; a user without a row has 0.
func (r *PointsRepo) Balance(ctx context.Context, userID uint64) (int64, error) {
	var bal int64
	err := r.db.QueryRowContext(ctx, `SELECT balance FROM point_balances WHERE user_id = ?`, userID).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return bal, err
}

// DebitTx records a USE entry of amount points inside tx. A debit that
// would leave the balance negative returns ErrInsufficientPoints.
func (r *PointsRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID uint64, amount int64, reservationID *uint64, memo string) (*model.PointsEntry, error) {
	return r.applyTx(ctx, tx, userID, model.PointsUse, -amount, reservationID, memo)
}

// CreditTx records a positive entry (REFUND, CHARGE or ADMIN) inside tx.
func (r *PointsRepo) CreditTx(ctx context.Context, tx *sql.Tx, userID uint64, typ model.PointsEntryType, amount int64, reservationID *uint64, memo string) (*model.PointsEntry, error) {
	return r.applyTx(ctx, tx, userID, typ, amount, reservationID, memo)
}

func (r *PointsRepo) applyTx(ctx context.Context, tx *sql.Tx, userID uint64, typ model.PointsEntryType, amount int64, reservationID *uint64, memo string) (*model.PointsEntry, error) {
	if _, err := tx.ExecContext(ctx, `INSERT IGNORE INTO point_balances (user_id, balance) VALUES (?, 0)`, userID); err != nil {
		return nil, err
	}
	var before int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM point_balances WHERE user_id = ? FOR UPDATE`, userID).Scan(&before); err != nil {
		return nil, err
	}
	e := model.NewPointsEntry(userID, typ, amount, before, reservationID, memo)
	if err := e.Validate(); err != nil {
		if errors.Is(err, model.ErrLedgerNegative) {
			return nil, ErrInsufficientPoints
		}
		return nil, err
	}
	e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	if _, err := tx.ExecContext(ctx, `UPDATE point_balances SET balance = ? WHERE user_id = ?`, e.BalanceAfter, userID); err != nil {
		return nil, err
	}
	const ins = `INSERT INTO point_ledger (user_id, type, amount, balance_before, balance_after, reservation_id, memo, created_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, ins, userID, string(typ), e.Amount, e.BalanceBefore, e.BalanceAfter, nullUint64(reservationID), e.Memo, e.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	e.ID = uint64(id)
	return &e, nil
}

// Debit takes points outside a reservation and returns the new balance.
func (r *PointsRepo) Debit(ctx context.Context, userID uint64, amount int64, reservationID *uint64) (int64, error) {
	if amount <= 0 {
		return 0, ErrConflict
	}
	var after int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		e, err := r.DebitTx(ctx, tx, userID, amount, reservationID, "debit")
		if err != nil {
			return err
		}
		after = e.BalanceAfter
		return nil
	})
	return after, err
}

// Adjust records a manual CHARGE or ADMIN entry.
func (r *PointsRepo) Adjust(ctx context.Context, userID uint64, typ model.PointsEntryType, amount int64, memo string) (*model.PointsEntry, error) {
	if err := ValidateAdjustment(typ, amount); err != nil {
		return nil, err
	}
	var out *model.PointsEntry
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		e, err := r.CreditTx(ctx, tx, userID, typ, amount, nil, memo)
		out = e
		return err
	})
	return out, err
}

// History returns up to limit ledger entries of a user, newest first.
func (r *PointsRepo) History(ctx context.Context, userID uint64, limit int) ([]model.PointsEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, user_id, type, amount, balance_before, balance_after, reservation_id, memo, created_at
               FROM point_ledger WHERE user_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PointsEntry, 0)
	for rows.Next() {
		var e model.PointsEntry
		var typ string
		var resID sql.NullInt64
		if err := rows.Scan(&e.ID, &e.UserID, &typ, &e.Amount, &e.BalanceBefore, &e.BalanceAfter, &resID, &e.Memo, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Type = model.PointsEntryType(typ)
		e.ReservationID = uint64Ptr(resID)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *PointsRepo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
