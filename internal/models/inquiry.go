package models

import "time"

// InquiryStatus tracks whether an admission inquiry was handled.
type InquiryStatus string

const (
	InquiryStatusOpen     InquiryStatus = "OPEN"
	InquiryStatusResolved InquiryStatus = "RESOLVED"
)

// Inquiry is a prospective-student message submitted from the public site.
type Inquiry struct {
	ID         string        `db:"id" json:"id"`
	FullName   string        `db:"full_name" json:"full_name"`
	Email      string        `db:"email" json:"email"`
	Phone      string        `db:"phone" json:"phone"`
	CourseID   *string       `db:"course_id" json:"course_id,omitempty"`
	Message    string        `db:"message" json:"message"`
	Status     InquiryStatus `db:"status" json:"status"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	ResolvedAt *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
}

// InquiryFilter provides filters for listing inquiries.
type InquiryFilter struct {
	Status   InquiryStatus
	CourseID string
	Page     int
	PageSize int
}
