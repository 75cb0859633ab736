package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"couponverify/internal/models"
)

// RecordFilter narrows the records listing. Zero values mean "no filter".
type RecordFilter struct {
	Date      string // calendar date, YYYY-MM-DD
	CompanyID int
}

// whereClause builds the predicate shared by Count and List so the total is
// always computed under the same filter as the returned page.
func (f RecordFilter) whereClause() (string, []interface{}) {
	conds := []string{}
	args := []interface{}{}
	if f.Date != "" {
		args = append(args, f.Date)
		conds = append(conds, fmt.Sprintf("vl.verification_time::date = $%d", len(args)))
	}
	if f.CompanyID > 0 {
		args = append(args, f.CompanyID)
		conds = append(conds, fmt.Sprintf("c.company_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo {
	return &RecordRepo{db: db}
}

// Count returns the number of log rows matching the filter.
func (r *RecordRepo) Count(ctx context.Context, f RecordFilter) (int, error) {
	where, args := f.whereClause()
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM verification_logs vl
		JOIN coupons c ON c.id = vl.coupon_id
		JOIN companies comp ON comp.id = c.company_id
		%s
	`, where)

	var total int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&total)
	return total, err
}

// List returns one page of redemption records, most recent first.
func (r *RecordRepo) List(ctx context.Context, f RecordFilter, limit, offset int) ([]models.RecordView, error) {
	where, args := f.whereClause()
	query := fmt.Sprintf(`
		SELECT vl.verification_time, c.code, comp.name, vl.user_phone, vl.ip_address
		FROM verification_logs vl
		JOIN coupons c ON c.id = vl.coupon_id
		JOIN companies comp ON comp.id = c.company_id
		%s
		ORDER BY vl.verification_time DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.RecordView{}
	for rows.Next() {
		var rec models.RecordView
		var ip sql.NullString
		if err := rows.Scan(&rec.VerificationTime, &rec.Code, &rec.CompanyName, &rec.UserPhone, &ip); err != nil {
			return nil, err
		}
		rec.IPAddress = ip.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Insert appends the audit row for a successful redemption. It must run in the
// same transaction that marks the coupon used.
func (r *RecordRepo) Insert(ctx context.Context, tx *sql.Tx, couponID int, phone, ip string) (time.Time, error) {
	const query = `
		INSERT INTO verification_logs (coupon_id, user_phone, ip_address)
		VALUES ($1, $2, $3)
		RETURNING verification_time
	`

	var verifiedAt time.Time
	err := tx.QueryRowContext(ctx, query, couponID, phone, ip).Scan(&verifiedAt)
	return verifiedAt, err
}
