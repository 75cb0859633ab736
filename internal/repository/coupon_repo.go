package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type CouponRepo struct {
	db *sql.DB
}

func NewCouponRepo(db *sql.DB) *CouponRepo {
	return &CouponRepo{db: db}
}

// RedeemableCoupon is the row the redemption transaction locks and inspects.
type RedeemableCoupon struct {
	ID          int
	Code        string
	IsUsed      bool
	UsedAt      sql.NullTime
	CompanyName string
}

// GetAndLock loads the coupon matching (code, companyID) and takes a row lock
// on it for the rest of the transaction. Only the coupon row is locked; the
// company row joined for the receipt name is not. Returns nil when no row
// matches, which covers both an unknown code and a code owned by a different
// company.
func (r *CouponRepo) GetAndLock(ctx context.Context, tx *sql.Tx, code string, companyID int) (*RedeemableCoupon, error) {
	const query = `
		SELECT c.id, c.code, c.is_used, c.used_at, comp.name
		FROM coupons c
		JOIN companies comp ON comp.id = c.company_id
		WHERE c.code = $1 AND c.company_id = $2
		FOR UPDATE OF c
	`

	var c RedeemableCoupon
	err := tx.QueryRowContext(ctx, query, code, companyID).Scan(
		&c.ID, &c.Code, &c.IsUsed, &c.UsedAt, &c.CompanyName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// MarkUsed flips the coupon to used. The caller must hold the row lock taken
// by GetAndLock in the same transaction.
func (r *CouponRepo) MarkUsed(ctx context.Context, tx *sql.Tx, couponID int, phone string) (time.Time, error) {
	const query = `
		UPDATE coupons
		SET is_used = TRUE, used_at = now(), used_by = $2
		WHERE id = $1
		RETURNING used_at
	`

	var usedAt time.Time
	if err := tx.QueryRowContext(ctx, query, couponID, phone).Scan(&usedAt); err != nil {
		return time.Time{}, err
	}
	return usedAt, nil
}

// InsertIgnoringConflict inserts a freshly generated code for a company. It
// reports false when the code collided with an existing one; the conflict is
// absorbed by the statement so the surrounding transaction stays usable and
// the caller can re-roll the code.
func (r *CouponRepo) InsertIgnoringConflict(ctx context.Context, tx *sql.Tx, code string, companyID int) (bool, error) {
	const query = `
		INSERT INTO coupons (code, company_id)
		VALUES ($1, $2)
		ON CONFLICT (code) DO NOTHING
	`

	res, err := tx.ExecContext(ctx, query, code, companyID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
