package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/class-booking/internal/model"
)

// CouponRepo provides access to coupon_templates and user_coupons. A user
// coupon is single use: used_at is set at most once.
type CouponRepo struct {
	db *sql.DB
}

// NewCouponRepo returns a CouponRepo bound to the given database.
func NewCouponRepo(db *sql.DB) *CouponRepo { return &CouponRepo{db: db} }

const templateColumns = `t.id, t.seller_id, t.name, t.discount_points, t.discount_percent, t.expires_at, t.created_at`

func scanTemplate(dest *model.CouponTemplate, expires *sql.NullTime) []any {
	return []any{&dest.ID, &dest.SellerID, &dest.Name, &dest.DiscountPoints, &dest.DiscountPercent, expires, &dest.CreatedAt}
}

// CreateTemplate validates and inserts a template.
func (r *CouponRepo) CreateTemplate(ctx context.Context, t *model.CouponTemplate) error {
	if err := t.Validate(); err != nil {
		return err
	}
	var expires sql.NullTime
	if t.ExpiresAt != nil {
		expires = sql.NullTime{Time: t.ExpiresAt.UTC(), Valid: true}
	}
	const q = `INSERT INTO coupon_templates (seller_id, name, discount_points, discount_percent, expires_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.SellerID, t.Name, t.DiscountPoints, t.DiscountPercent, expires)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.GetTemplate(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *got
	return nil
}

// GetTemplate returns a template or ErrNotFound.
func (r *CouponRepo) GetTemplate(ctx context.Context, id uint64) (*model.CouponTemplate, error) {
	var t model.CouponTemplate
	var expires sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM coupon_templates t WHERE t.id = ?`, id).
		Scan(scanTemplate(&t, &expires)...)
	if err != nil {
		return nil, notFound(err)
	}
	t.ExpiresAt = timePtr(expires)
	return &t, nil
}

// Issue gives a user one coupon of the template.
func (r *CouponRepo) Issue(ctx context.Context, templateID, userID uint64) (*model.UserCoupon, error) {
	if _, err := r.GetTemplate(ctx, templateID); err != nil {
		return nil, err
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO user_coupons (template_id, user_id, issued_at) VALUES (?, ?, ?)`,
		templateID, userID, time.Now().UTC().Truncate(time.Second))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetUserCoupon(ctx, uint64(id))
}

const userCouponSelect = `SELECT uc.id, uc.template_id, uc.user_id, uc.issued_at, uc.used_at, ` + templateColumns + `
                          FROM user_coupons uc JOIN coupon_templates t ON t.id = uc.template_id`

func scanUserCoupon(row rowScanner) (*model.UserCoupon, error) {
	var uc model.UserCoupon
	var used, expires sql.NullTime
	dest := append([]any{&uc.ID, &uc.TemplateID, &uc.UserID, &uc.IssuedAt, &used}, scanTemplate(&uc.Template, &expires)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	uc.UsedAt = timePtr(used)
	uc.Template.ExpiresAt = timePtr(expires)
	return &uc, nil
}

// GetUserCoupon returns an issued coupon joined with its template.
func (r *CouponRepo) GetUserCoupon(ctx context.Context, id uint64) (*model.UserCoupon, error) {
	uc, err := scanUserCoupon(r.db.QueryRowContext(ctx, userCouponSelect+` WHERE uc.id = ?`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return uc, nil
}

// ListByUser returns a user's coupons ordered by id.
func (r *CouponRepo) ListByUser(ctx context.Context, userID uint64) ([]model.UserCoupon, error) {
	rows, err := r.db.QueryContext(ctx, userCouponSelect+` WHERE uc.user_id = ? ORDER BY uc.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.UserCoupon, 0)
	for rows.Next() {
		uc, err := scanUserCoupon(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *uc)
	}
	return out, rows.Err()
}

// ClaimTx stamps used_at on the user's coupon inside tx. The conditional
// update is the single-use guard: a coupon that is already used, or not
// the user's, returns ErrCouponUsed and the caller rolls back.
func (r *CouponRepo) ClaimTx(ctx context.Context, tx *sql.Tx, userCouponID, userID uint64, at time.Time) error {
	res, err := tx.ExecContext(ctx, `UPDATE user_coupons SET used_at = ? WHERE id = ? AND user_id = ? AND used_at IS NULL`,
		at, userCouponID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCouponUsed
	}
	return nil
}
