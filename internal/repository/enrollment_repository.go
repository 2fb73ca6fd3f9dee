package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/prisma-institute/portal-api/internal/models"
)

// EnrollmentRepository handles persistence of enrollments, including the
// certificate approval columns.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `e.id, e.student_id, e.course_id, e.enrolled_at, e.status, e.progress,
        e.approved_for_certificate, e.certificate_id, e.certificate_approved_at, e.certificate_approved_by`

const enrollmentDetailColumns = enrollmentColumns + `,
        s.full_name AS student_name, s.email AS student_email,
        c.title AS course_title, c.description AS course_description, c.duration AS course_duration`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "s.full_name",
		"course_title": "c.title",
		"progress":     "e.progress",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "enrolled_at"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		enrollmentDetailColumns, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e WHERE e.id = $1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindByStudentAndCourse returns the enrollment linking a student to a
// course. When historical duplicates exist the earliest enrollment wins,
// which keeps repeated approve/revoke calls operating on the same row.
func (r *EnrollmentRepository) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        WHERE e.student_id = $1 AND e.course_id = $2
        ORDER BY e.enrolled_at ASC LIMIT 1`, enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ExistsEnrolled checks if the student holds a non-cancelled enrollment in
// the course. Completed enrollments still count; study materials stay
// available after the course ends.
func (r *EnrollmentRepository) ExistsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status <> $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.EnrollmentStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// ExistsActive checks if an active enrollment exists for the pair.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.EnrollmentStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, student_id, course_id, enrolled_at, status, progress,
        approved_for_certificate, certificate_id, certificate_approved_at, certificate_approved_by)
        VALUES (:id, :student_id, :course_id, :enrolled_at, :status, :progress,
        :approved_for_certificate, :certificate_id, :certificate_approved_at, :certificate_approved_by)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateProgress updates progress and status for an enrollment.
func (r *EnrollmentRepository) UpdateProgress(ctx context.Context, id string, progress int, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET progress = $2, status = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, progress, status); err != nil {
		return fmt.Errorf("update enrollment progress: %w", err)
	}
	return nil
}

// UpdateStatus updates only the status for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	const query = `UPDATE enrollments SET status = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// SetCertificateApproval writes the certificate approval columns and leaves
// every other field untouched.
func (r *EnrollmentRepository) SetCertificateApproval(ctx context.Context, id string, approved bool, certificateID *string, approvedAt *time.Time, approvedBy *string) error {
	const query = `UPDATE enrollments
        SET approved_for_certificate = $2, certificate_id = $3, certificate_approved_at = $4, certificate_approved_by = $5
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, approved, certificateID, approvedAt, approvedBy); err != nil {
		return fmt.Errorf("set certificate approval: %w", err)
	}
	return nil
}

// ListByStudent returns all enrollments for a student with course context.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.student_id = $1
        ORDER BY e.enrolled_at DESC`, enrollmentDetailColumns)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list student enrollments: %w", err)
	}
	return enrollments, nil
}

// FindApprovedDetailByID returns an approved enrollment joined with its
// student and course. Inner joins drop dangling references so a broken
// record is indistinguishable from a missing one.
func (r *EnrollmentRepository) FindApprovedDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1 AND e.approved_for_certificate = TRUE`, enrollmentDetailColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SearchApprovedByStudentName scans approved enrollments whose student name
// contains the query, case-insensitively.
func (r *EnrollmentRepository) SearchApprovedByStudentName(ctx context.Context, name string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.approved_for_certificate = TRUE AND LOWER(s.full_name) LIKE $1
        ORDER BY s.full_name ASC`, enrollmentDetailColumns)
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, "%"+strings.ToLower(name)+"%"); err != nil {
		return nil, fmt.Errorf("search approved enrollments by student: %w", err)
	}
	return details, nil
}

// SearchApprovedByCourseTitle scans approved enrollments whose course title
// contains the query, case-insensitively.
func (r *EnrollmentRepository) SearchApprovedByCourseTitle(ctx context.Context, title string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e
        JOIN students s ON s.id = e.student_id
        JOIN courses c ON c.id = e.course_id
        WHERE e.approved_for_certificate = TRUE AND LOWER(c.title) LIKE $1
        ORDER BY c.title ASC`, enrollmentDetailColumns)
	var details []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &details, query, "%"+strings.ToLower(title)+"%"); err != nil {
		return nil, fmt.Errorf("search approved enrollments by course: %w", err)
	}
	return details, nil
}
