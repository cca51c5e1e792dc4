package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/class-booking/internal/model"
)

// ClassRepo provides access to the classes table. The schedule column is
// JSON text and is returned raw; parsing belongs to the schedule package.
type ClassRepo struct {
	db *sql.DB
}

// NewClassRepo returns a ClassRepo bound to the given database.
func NewClassRepo(db *sql.DB) *ClassRepo { return &ClassRepo{db: db} }

const classColumns = `id, seller_id, name, price_points, capacity, schedule, created_at, updated_at`

func scanClass(row rowScanner) (*model.Class, error) {
	var c model.Class
	var sched sql.NullString
	if err := row.Scan(&c.ID, &c.SellerID, &c.Name, &c.PricePoints, &c.Capacity, &sched, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Schedule = stringPtr(sched)
	return &c, nil
}

// Create inserts a class and reads the row back so timestamps are set.
func (r *ClassRepo) Create(ctx context.Context, c *model.Class) error {
	const q = `INSERT INTO classes (seller_id, name, price_points, capacity, schedule) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, c.SellerID, c.Name, c.PricePoints, c.Capacity, nullString(c.Schedule))
	if err != nil {
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
	*c = *got
	return nil
}

// GetByID returns a class or ErrNotFound.
func (r *ClassRepo) GetByID(ctx context.Context, id uint64) (*model.Class, error) {
	c, err := scanClass(r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return c, nil
}

// ListBySeller returns a seller's classes ordered by id.
func (r *ClassRepo) ListBySeller(ctx context.Context, sellerID uint64) ([]model.Class, error) {
	return r.list(ctx, `SELECT `+classColumns+` FROM classes WHERE seller_id = ? ORDER BY id`, sellerID)
}

// ListScheduled returns the classes that carry a recurring schedule.
func (r *ClassRepo) ListScheduled(ctx context.Context) ([]model.Class, error) {
	return r.list(ctx, `SELECT `+classColumns+` FROM classes WHERE schedule IS NOT NULL ORDER BY id`)
}

func (r *ClassRepo) list(ctx context.Context, q string, args ...any) ([]model.Class, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Class, 0)
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
