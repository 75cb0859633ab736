package models

import "time"

// VerificationLog is the immutable audit row appended in the same transaction
// that marks a coupon used.
type VerificationLog struct {
	ID               int
	CouponID         int
	UserPhone        string
	VerificationTime time.Time
	IPAddress        string
}

// RecordView is one row of the records listing, joined across the log, coupon
// and company tables.
type RecordView struct {
	VerificationTime time.Time `json:"verification_time"`
	Code             string    `json:"code"`
	CompanyName      string    `json:"company_name"`
	UserPhone        string    `json:"user_phone"`
	IPAddress        string    `json:"ip_address"`
}

type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// RecordPage is one page of redemption records plus its pagination envelope.
type RecordPage struct {
	Records    []RecordView `json:"records"`
	Pagination Pagination   `json:"pagination"`
}
