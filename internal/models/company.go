package models

import "time"

// Company is the tenant a coupon is redeemed against.
type Company struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	IsActive  bool      `json:"-"`
	CreatedAt time.Time `json:"-"`
}
