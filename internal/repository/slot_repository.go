package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// SlotRepo provides access to the class_slots table. (class_id, start_at)
// is unique, which is what makes batch materialization safe to repeat.
type SlotRepo struct {
	db *sql.DB
}

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{db: db} }

const slotColumns = `id, class_id, start_at, end_at, capacity, current_reservation, is_open, created_at`

func scanSlot(row rowScanner) (*model.Slot, error) {
	var s model.Slot
	if err := row.Scan(&s.ID, &s.ClassID, &s.StartAt, &s.EndAt, &s.Capacity, &s.CurrentReservation, &s.IsOpen, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.StartAt = s.StartAt.UTC()
	s.EndAt = s.EndAt.UTC()
	return &s, nil
}

// GetByID returns a slot or ErrNotFound.
func (r *SlotRepo) GetByID(ctx context.Context, id uint64) (*model.Slot, error) {
	s, err := scanSlot(r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM class_slots WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// LockTx reads a slot with a row lock held until the transaction ends.
func (r *SlotRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Slot, error) {
	s, err := scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM class_slots WHERE id = ? FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// ListByClassAndRange returns the slots of a class starting in [from, to)
// ordered by start time.
func (r *SlotRepo) ListByClassAndRange(ctx context.Context, classID uint64, from, to time.Time) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM class_slots
               WHERE class_id = ? AND start_at >= ? AND start_at < ?
               ORDER BY start_at`
	rows, err := r.db.QueryContext(ctx, q, classID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// CreateBulk inserts slots in one statement, ignoring rows whose
// (class_id, start_at) already exists, and returns how many were inserted.
func (r *SlotRepo) CreateBulk(ctx context.Context, slots []model.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	placeholders := make([]string, 0, len(slots))
	args := make([]any, 0, len(slots)*5)
	for _, s := range slots {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?)")
		args = append(args, s.ClassID, s.StartAt.UTC(), s.EndAt.UTC(), s.Capacity, s.IsOpen)
	}
	q := `INSERT IGNORE INTO class_slots (class_id, start_at, end_at, capacity, is_open) VALUES ` + strings.Join(placeholders, ",")
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Create inserts one slot. An existing slot at the same start returns
// ErrConflict.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	const q = `INSERT INTO class_slots (class_id, start_at, end_at, capacity, is_open) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.ClassID, s.StartAt.UTC(), s.EndAt.UTC(), s.Capacity, s.IsOpen)
	if err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*s = *got
	return nil
}

// UpdateCapacityAndOpen changes capacity and/or the open flag under a row
// lock. Capacity below the seats already taken returns ErrConflict.
func (r *SlotRepo) UpdateCapacityAndOpen(ctx context.Context, id uint64, capacity *int, isOpen *bool) (*model.Slot, error) {
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

	s, err := r.LockTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if capacity != nil {
		if *capacity < 1 || *capacity < s.CurrentReservation {
			return nil, ErrConflict
		}
		s.Capacity = *capacity
	}
	if isOpen != nil {
		s.IsOpen = *isOpen
	}
	if _, err := tx.ExecContext(ctx, `UPDATE class_slots SET capacity = ?, is_open = ? WHERE id = ?`, s.Capacity, s.IsOpen, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	return s, nil
}
