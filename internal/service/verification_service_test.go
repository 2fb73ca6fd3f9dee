package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
)

type mockVerificationStore struct {
	enrollments []models.EnrollmentDetail
}

func (m *mockVerificationStore) FindApprovedDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	for _, e := range m.enrollments {
		if e.ID == id && e.ApprovedForCertificate {
			copied := e
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockVerificationStore) SearchApprovedByStudentName(ctx context.Context, name string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.ApprovedForCertificate && strings.Contains(strings.ToLower(e.StudentName), strings.ToLower(name)) {
			result = append(result, e)
		}
	}
	return result, nil
}

func (m *mockVerificationStore) SearchApprovedByCourseTitle(ctx context.Context, title string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.ApprovedForCertificate && strings.Contains(strings.ToLower(e.CourseTitle), strings.ToLower(title)) {
			result = append(result, e)
		}
	}
	return result, nil
}

func newVerificationTestStore() *mockVerificationStore {
	certID := "PRC00042"
	approvedAt := time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC)
	return &mockVerificationStore{
		enrollments: []models.EnrollmentDetail{
			{
				Enrollment: models.Enrollment{
					ID:                     "e1",
					StudentID:              "s1",
					CourseID:               "c1",
					EnrolledAt:             time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
					ApprovedForCertificate: true,
					CertificateID:          &certID,
					CertificateApprovedAt:  &approvedAt,
				},
				StudentName:    "Rahul Sharma",
				CourseTitle:    "Diploma in Computer Applications",
				CourseDuration: "6 months",
			},
			{
				Enrollment: models.Enrollment{
					ID:         "e2",
					StudentID:  "s2",
					CourseID:   "c1",
					EnrolledAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				},
				StudentName:    "Priya Patel",
				CourseTitle:    "Diploma in Computer Applications",
				CourseDuration: "6 months",
			},
		},
	}
}

func TestVerificationServiceVerifyApproved(t *testing.T) {
	svc := NewVerificationService(newVerificationTestStore(), nil, time.Minute, nil)

	verification, err := svc.VerifyByEnrollmentID(context.Background(), "e1")
	require.NoError(t, err)

	assert.Equal(t, "PRC00042", verification.CertificateID)
	assert.Equal(t, "Rahul Sharma", verification.StudentName)
	require.NotNil(t, verification.CompletionDate)
	assert.Equal(t, time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC), *verification.CompletionDate)
}

func TestVerificationServiceHidesUnapproved(t *testing.T) {
	svc := NewVerificationService(newVerificationTestStore(), nil, time.Minute, nil)

	// An unapproved enrollment must be indistinguishable from a missing one.
	for _, id := range []string{"e2", "no-such-enrollment"} {
		_, err := svc.VerifyByEnrollmentID(context.Background(), id)
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
		assert.Equal(t, "certificate not found", appErr.Message)
	}
}

func TestVerificationServiceSearchByStudentName(t *testing.T) {
	svc := NewVerificationService(newVerificationTestStore(), nil, time.Minute, nil)

	results, err := svc.SearchByStudentName(context.Background(), "rahul")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "e1", results[0].EnrollmentID)

	// Priya's enrollment exists but is not approved, so it never surfaces.
	results, err = svc.SearchByStudentName(context.Background(), "priya")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestVerificationServiceSearchByCourseName(t *testing.T) {
	svc := NewVerificationService(newVerificationTestStore(), nil, time.Minute, nil)

	results, err := svc.SearchByCourseName(context.Background(), "diploma")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "PRC00042", results[0].CertificateID)
}

func TestVerificationServiceEmptyQuery(t *testing.T) {
	svc := NewVerificationService(newVerificationTestStore(), nil, time.Minute, nil)

	for _, query := range []string{"", "   "} {
		results, err := svc.SearchByStudentName(context.Background(), query)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = svc.SearchByCourseName(context.Background(), query)
		require.NoError(t, err)
		assert.Empty(t, results)
	}
}
