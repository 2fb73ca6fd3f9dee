package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]*models.Enrollment
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var result []models.EnrollmentDetail
	for _, e := range m.enrollments {
		result = append(result, models.EnrollmentDetail{Enrollment: *e})
	}
	return result, len(result), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	e, ok := m.enrollments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, studentID, courseID string) (bool, error) {
	for _, e := range m.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.Status == models.EnrollmentStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]*models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "generated-id"
	}
	copied := *enrollment
	m.enrollments[enrollment.ID] = &copied
	return nil
}

func (m *mockEnrollmentRepo) UpdateProgress(ctx context.Context, id string, progress int, status models.EnrollmentStatus) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Progress = progress
	e.Status = status
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	e, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	return nil
}

type mockStudentReader struct {
	students map[string]*models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	s, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return s, nil
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	c, ok := m.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

func newEnrollmentTestService(repo *mockEnrollmentRepo) *EnrollmentService {
	students := &mockStudentReader{students: map[string]*models.Student{
		"s1": {ID: "s1", FullName: "Rahul Sharma", Active: true},
		"s2": {ID: "s2", FullName: "Former Student", Active: false},
	}}
	courses := &mockCourseReader{courses: map[string]*models.Course{
		"c1": {ID: "c1", Title: "Tally with GST", Duration: "3 months", Published: true},
	}}
	return NewEnrollmentService(repo, students, courses, nil, nil)
}

func TestEnrollmentServiceEnroll(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentTestService(repo)

	enrollment, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", CourseID: "c1"})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.Len(t, repo.enrollments, 1)
}

func TestEnrollmentServiceEnrollDuplicate(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentTestService(repo)

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", CourseID: "c1"})
	require.NoError(t, err)

	_, err = svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", CourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollInactiveStudent(t *testing.T) {
	svc := newEnrollmentTestService(&mockEnrollmentRepo{})

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s2", CourseID: "c1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceEnrollUnknownCourse(t *testing.T) {
	svc := newEnrollmentTestService(&mockEnrollmentRepo{})

	_, err := svc.Enroll(context.Background(), EnrollStudentRequest{StudentID: "s1", CourseID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceProgressCompletesAtHundred(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive, EnrolledAt: time.Now()},
	}}
	svc := newEnrollmentTestService(repo)

	enrollment, err := svc.UpdateProgress(context.Background(), "e1", UpdateProgressRequest{Progress: 40}, "")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)

	enrollment, err = svc.UpdateProgress(context.Background(), "e1", UpdateProgressRequest{Progress: 100}, "")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, enrollment.Status)
	assert.Equal(t, 100, enrollment.Progress)
}

func TestEnrollmentServiceProgressOwnerMismatch(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentTestService(repo)

	_, err := svc.UpdateProgress(context.Background(), "e1", UpdateProgressRequest{Progress: 50}, "someone-else")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceProgressOutOfRange(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentTestService(repo)

	_, err := svc.UpdateProgress(context.Background(), "e1", UpdateProgressRequest{Progress: 120}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentServiceCancel(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]*models.Enrollment{
		"e1": {ID: "e1", StudentID: "s1", CourseID: "c1", Status: models.EnrollmentStatusActive},
	}}
	svc := newEnrollmentTestService(repo)

	enrollment, err := svc.Cancel(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, enrollment.Status)

	_, err = svc.Cancel(context.Background(), "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
