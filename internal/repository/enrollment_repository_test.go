package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-institute/portal-api/internal/models"
)

func newEnrollmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "course_id", "enrolled_at", "status", "progress",
		"approved_for_certificate", "certificate_id", "certificate_approved_at", "certificate_approved_by"})
}

func TestEnrollmentRepositoryFindByStudentAndCourse(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := enrollmentRows().
		AddRow("e1", "s1", "c1", time.Now(), models.EnrollmentStatusActive, 40, false, nil, nil, nil)
	mock.ExpectQuery("SELECT (.+) FROM enrollments e\\s+WHERE e.student_id = \\$1 AND e.course_id = \\$2\\s+ORDER BY e.enrolled_at ASC LIMIT 1").
		WithArgs("s1", "c1").
		WillReturnRows(rows)

	enrollment, err := repo.FindByStudentAndCourse(context.Background(), "s1", "c1")
	require.NoError(t, err)
	assert.Equal(t, "e1", enrollment.ID)
	assert.False(t, enrollment.ApprovedForCertificate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryFindByStudentAndCourseMissing(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM enrollments e").
		WithArgs("s1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByStudentAndCourse(context.Background(), "s1", "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestEnrollmentRepositorySetCertificateApproval(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	certID := "PRC00042"
	now := time.Now().UTC()
	by := "admin-1"
	mock.ExpectExec("UPDATE enrollments\\s+SET approved_for_certificate = \\$2, certificate_id = \\$3, certificate_approved_at = \\$4, certificate_approved_by = \\$5\\s+WHERE id = \\$1").
		WithArgs("e1", true, certID, now, by).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetCertificateApproval(context.Background(), "e1", true, &certID, &now, &by)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySetCertificateApprovalClears(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE enrollments\\s+SET approved_for_certificate").
		WithArgs("e1", false, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetCertificateApproval(context.Background(), "e1", false, nil, nil, nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositorySearchApprovedByStudentName(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "student_id", "course_id", "enrolled_at", "status", "progress",
		"approved_for_certificate", "certificate_id", "certificate_approved_at", "certificate_approved_by",
		"student_name", "student_email", "course_title", "course_description", "course_duration"}).
		AddRow("e1", "s1", "c1", time.Now(), models.EnrollmentStatusActive, 100, true, "PRC00042", time.Now(), "admin-1",
			"Jane Doe", "jane@example.com", "Go Basics", "Introductory Go", "6 months")
	mock.ExpectQuery("SELECT (.+) FROM enrollments e\\s+JOIN students s ON s.id = e.student_id\\s+JOIN courses c ON c.id = e.course_id\\s+WHERE e.approved_for_certificate = TRUE AND LOWER\\(s.full_name\\) LIKE \\$1").
		WithArgs("%jane%").
		WillReturnRows(rows)

	details, err := repo.SearchApprovedByStudentName(context.Background(), "Jane")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "Jane Doe", details[0].StudentName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newEnrollmentMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{StudentID: "s1", CourseID: "c1"}
	err := repo.Create(context.Background(), enrollment)
	require.NoError(t, err)
	assert.NotEmpty(t, enrollment.ID)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}
