package models

import "time"

// CertificateVerification is the flattened public record returned by the
// verification endpoints for an approved certificate.
type CertificateVerification struct {
	EnrollmentID           string     `db:"enrollment_id" json:"enrollment_id"`
	StudentID              string     `db:"student_id" json:"student_id"`
	CourseID               string     `db:"course_id" json:"course_id"`
	StudentName            string     `db:"student_name" json:"student_name"`
	CourseTitle            string     `db:"course_title" json:"course_title"`
	CourseDescription      string     `db:"course_description" json:"course_description"`
	CourseDuration         string     `db:"course_duration" json:"course_duration"`
	CertificateID          string     `db:"certificate_id" json:"certificate_id"`
	CompletionDate         *time.Time `json:"completion_date,omitempty"`
	ApprovedForCertificate bool       `json:"approved_for_certificate"`
	CertificateApprovedAt  *time.Time `db:"certificate_approved_at" json:"certificate_approved_at,omitempty"`
}
