package models

import "time"

// Coupon is a single-use 8-character code bound to one company. company_id is
// fixed at creation; is_used flips false->true exactly once and used_at /
// used_by are never cleared afterwards.
type Coupon struct {
	ID        int
	Code      string
	CompanyID int
	IsUsed    bool
	UsedAt    *time.Time
	UsedBy    *string
	CreatedAt time.Time
}

// Receipt is returned to the caller on a successful redemption.
type Receipt struct {
	Code             string    `json:"code"`
	Company          string    `json:"company"`
	VerificationTime time.Time `json:"verificationTime"`
}
