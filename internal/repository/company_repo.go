package repository

import (
	"context"
	"database/sql"

	"couponverify/internal/models"
)

type CompanyRepo struct {
	db *sql.DB
}

func NewCompanyRepo(db *sql.DB) *CompanyRepo {
	return &CompanyRepo{db: db}
}

// ListActive returns active companies ordered by name, optionally narrowed by
// a case-insensitive substring match.
func (r *CompanyRepo) ListActive(ctx context.Context, search string) ([]models.Company, error) {
	query := `SELECT id, name FROM companies WHERE is_active = TRUE`
	args := []interface{}{}
	if search != "" {
		query += ` AND name ILIKE '%' || $1 || '%'`
		args = append(args, search)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// ExistsActive reports whether companyID refers to an active company. It runs
// on the caller's transaction so the answer stays valid for writes made later
// in that same transaction.
func (r *CompanyRepo) ExistsActive(ctx context.Context, tx *sql.Tx, companyID int) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM companies WHERE id = $1 AND is_active = TRUE)`

	var exists bool
	err := tx.QueryRowContext(ctx, query, companyID).Scan(&exists)
	return exists, err
}
