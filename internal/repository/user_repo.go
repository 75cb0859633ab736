package repository

import (
	"context"
	"database/sql"
	"errors"

	"couponverify/internal/models"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// FindActiveByPhone returns the active user with the given phone, or nil when
// the phone is unknown or the account is disabled.
func (r *UserRepo) FindActiveByPhone(ctx context.Context, phone string) (*models.User, error) {
	const query = `
		SELECT id, phone, password_hash, is_active, created_at, updated_at
		FROM users
		WHERE phone = $1 AND is_active = TRUE
	`

	var u models.User
	err := r.db.QueryRowContext(ctx, query, phone).Scan(
		&u.ID, &u.Phone, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
