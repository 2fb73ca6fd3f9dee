package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment captures a student's registration to a course.
//
// CertificateID is non-null only while the enrollment is approved for a
// certificate; revocation clears it together with the approval metadata.
type Enrollment struct {
	ID                     string           `db:"id" json:"id"`
	StudentID              string           `db:"student_id" json:"student_id"`
	CourseID               string           `db:"course_id" json:"course_id"`
	EnrolledAt             time.Time        `db:"enrolled_at" json:"enrolled_at"`
	Status                 EnrollmentStatus `db:"status" json:"status"`
	Progress               int              `db:"progress" json:"progress"`
	ApprovedForCertificate bool             `db:"approved_for_certificate" json:"approved_for_certificate"`
	CertificateID          *string          `db:"certificate_id" json:"certificate_id,omitempty"`
	CertificateApprovedAt  *time.Time       `db:"certificate_approved_at" json:"certificate_approved_at,omitempty"`
	CertificateApprovedBy  *string          `db:"certificate_approved_by" json:"certificate_approved_by,omitempty"`
}

// EnrollmentDetail enriches Enrollment with student and course info.
type EnrollmentDetail struct {
	Enrollment
	StudentName       string `db:"student_name" json:"student_name"`
	StudentEmail      string `db:"student_email" json:"student_email"`
	CourseTitle       string `db:"course_title" json:"course_title"`
	CourseDescription string `db:"course_description" json:"course_description"`
	CourseDuration    string `db:"course_duration" json:"course_duration"`
}

// EnrollmentView is the student-facing dashboard shape with derived
// completion information attached.
type EnrollmentView struct {
	EnrollmentDetail
	CompletionDate *time.Time `json:"completion_date,omitempty"`
	Completed      bool       `json:"completed"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	CourseID  string
	Status    EnrollmentStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
