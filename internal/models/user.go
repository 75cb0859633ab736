package models

import "time"

// User is a staff account allowed to redeem coupons. Accounts are created by
// administrative seeding, not self-registration.
type User struct {
	ID           int
	Phone        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
