package models

import "time"

// FeePayment records a single payment against an enrollment's course fee.
type FeePayment struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Amount       float64   `db:"amount" json:"amount"`
	Mode         string    `db:"mode" json:"mode"`
	ReceiptNo    string    `db:"receipt_no" json:"receipt_no"`
	Note         string    `db:"note" json:"note"`
	RecordedBy   string    `db:"recorded_by" json:"recorded_by"`
	PaidAt       time.Time `db:"paid_at" json:"paid_at"`
}

// FeeStatement summarises fee standing for one enrollment.
type FeeStatement struct {
	EnrollmentID string       `json:"enrollment_id"`
	CourseTitle  string       `json:"course_title"`
	TotalDue     float64      `json:"total_due"`
	TotalPaid    float64      `json:"total_paid"`
	Balance      float64      `json:"balance"`
	Payments     []FeePayment `json:"payments"`
}
