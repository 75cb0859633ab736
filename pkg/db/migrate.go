package db

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// schema is applied in order at startup. Every statement is idempotent so the
// service can restart against an already-initialized database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		phone VARCHAR(11) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS companies (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) UNIQUE NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS coupons (
		id SERIAL PRIMARY KEY,
		code VARCHAR(8) UNIQUE NOT NULL,
		company_id INT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
		is_used BOOLEAN NOT NULL DEFAULT FALSE,
		used_at TIMESTAMPTZ,
		used_by VARCHAR(11),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS verification_logs (
		id SERIAL PRIMARY KEY,
		coupon_id INT NOT NULL REFERENCES coupons(id) ON DELETE CASCADE,
		user_phone VARCHAR(11) NOT NULL,
		verification_time TIMESTAMPTZ NOT NULL DEFAULT now(),
		ip_address VARCHAR(45)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_is_active ON users (is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_coupons_company_id ON coupons (company_id)`,
	`CREATE INDEX IF NOT EXISTS idx_coupons_is_used ON coupons (is_used)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_coupon_id ON verification_logs (coupon_id)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_user_phone ON verification_logs (user_phone)`,
	`CREATE INDEX IF NOT EXISTS idx_logs_verification_time ON verification_logs (verification_time)`,
}

// EnsureSchema creates the four tables and their indexes if they do not exist.
func EnsureSchema(ctx context.Context, conn *sql.DB) error {
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

var defaultCompanies = []string{
	"阿里巴巴集团",
	"腾讯科技",
	"百度公司",
	"京东集团",
	"美团点评",
}

const (
	defaultUserPhone    = "13800138000"
	defaultUserPassword = "123456"
)

// Seed inserts the default companies and the bootstrap staff account. Existing
// rows are left untouched.
func Seed(ctx context.Context, conn *sql.DB, bcryptCost int) error {
	for _, name := range defaultCompanies {
		if _, err := conn.ExecContext(ctx,
			`INSERT INTO companies (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name); err != nil {
			return fmt.Errorf("seed company %q: %w", name, err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(defaultUserPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}
	if _, err := conn.ExecContext(ctx,
		`INSERT INTO users (phone, password_hash) VALUES ($1, $2) ON CONFLICT (phone) DO NOTHING`,
		defaultUserPhone, string(hash)); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	return nil
}
