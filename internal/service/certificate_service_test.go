package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
	"github.com/prisma-institute/portal-api/pkg/export"
)

type mockCertEnrollmentStore struct {
	enrollments map[string]*models.EnrollmentDetail
	auditLogs   []models.AuditLog
}

func (m *mockCertEnrollmentStore) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	var earliest *models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.StudentID != studentID || e.CourseID != courseID {
			continue
		}
		if earliest == nil || e.EnrolledAt.Before(earliest.EnrolledAt) {
			earliest = e
		}
	}
	if earliest == nil {
		return nil, sql.ErrNoRows
	}
	enrollment := earliest.Enrollment
	return &enrollment, nil
}

func (m *mockCertEnrollmentStore) FindApprovedDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, ok := m.enrollments[id]
	if !ok || !detail.ApprovedForCertificate {
		return nil, sql.ErrNoRows
	}
	copied := *detail
	return &copied, nil
}

func (m *mockCertEnrollmentStore) SetCertificateApproval(ctx context.Context, id string, approved bool, certificateID *string, approvedAt *time.Time, approvedBy *string) error {
	detail, ok := m.enrollments[id]
	if !ok {
		return sql.ErrNoRows
	}
	detail.ApprovedForCertificate = approved
	detail.CertificateID = certificateID
	detail.CertificateApprovedAt = approvedAt
	detail.CertificateApprovedBy = approvedBy
	return nil
}

func (m *mockCertEnrollmentStore) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockCertEnrollmentStore) SearchApprovedByStudentName(ctx context.Context, name string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.ApprovedForCertificate && strings.Contains(strings.ToLower(e.StudentName), strings.ToLower(name)) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockCertEnrollmentStore) SearchApprovedByCourseTitle(ctx context.Context, title string) ([]models.EnrollmentDetail, error) {
	var result []models.EnrollmentDetail
	for _, e := range m.enrollments {
		if e.ApprovedForCertificate && strings.Contains(strings.ToLower(e.CourseTitle), strings.ToLower(title)) {
			result = append(result, *e)
		}
	}
	return result, nil
}

func (m *mockCertEnrollmentStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, *log)
	return nil
}

type memoryCacheRepo struct {
	entries map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func newCertTestStore() *mockCertEnrollmentStore {
	return &mockCertEnrollmentStore{
		enrollments: map[string]*models.EnrollmentDetail{
			"e1": {
				Enrollment: models.Enrollment{
					ID:         "e1",
					StudentID:  "s1",
					CourseID:   "c1",
					EnrolledAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
					Status:     models.EnrollmentStatusActive,
				},
				StudentName:    "Rahul Sharma",
				CourseTitle:    "Diploma in Computer Applications",
				CourseDuration: "6 months",
			},
		},
	}
}

var certificateIDFormat = regexp.MustCompile(`^PRC\d{5}$`)

func TestCertificateServiceApproveIssuesID(t *testing.T) {
	store := newCertTestStore()
	svc := NewCertificateService(store, store, nil, nil, nil, nil)

	resp, err := svc.Approve(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "e1", resp.EnrollmentID)
	assert.Regexp(t, certificateIDFormat, resp.CertificateID)

	stored := store.enrollments["e1"]
	assert.True(t, stored.ApprovedForCertificate)
	require.NotNil(t, stored.CertificateID)
	assert.Equal(t, resp.CertificateID, *stored.CertificateID)
	require.NotNil(t, stored.CertificateApprovedBy)
	assert.Equal(t, "admin-1", *stored.CertificateApprovedBy)

	require.Len(t, store.auditLogs, 1)
	assert.Equal(t, models.AuditActionCertificateApprove, store.auditLogs[0].Action)
}

func TestCertificateServiceReapprovalRotatesID(t *testing.T) {
	store := newCertTestStore()
	svc := NewCertificateService(store, store, nil, nil, nil, nil)

	first, err := svc.Approve(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1")
	require.NoError(t, err)
	second, err := svc.Approve(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1")
	require.NoError(t, err)

	// The previous ID is silently replaced; only the latest one is stored.
	stored := store.enrollments["e1"]
	require.NotNil(t, stored.CertificateID)
	assert.Equal(t, second.CertificateID, *stored.CertificateID)
	assert.Regexp(t, certificateIDFormat, first.CertificateID)
	assert.Regexp(t, certificateIDFormat, second.CertificateID)
}

func TestCertificateServiceApproveUnknownEnrollment(t *testing.T) {
	store := newCertTestStore()
	svc := NewCertificateService(store, store, nil, nil, nil, nil)

	_, err := svc.Approve(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "missing"}, "admin-1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestCertificateServiceRevokeClearsApproval(t *testing.T) {
	store := newCertTestStore()
	svc := NewCertificateService(store, store, nil, nil, nil, nil)

	_, err := svc.Approve(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1")
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1"))

	stored := store.enrollments["e1"]
	assert.False(t, stored.ApprovedForCertificate)
	assert.Nil(t, stored.CertificateID)
	assert.Nil(t, stored.CertificateApprovedAt)
	assert.Nil(t, stored.CertificateApprovedBy)
}

func TestCertificateServiceRevokeNeverApproved(t *testing.T) {
	store := newCertTestStore()
	svc := NewCertificateService(store, store, nil, nil, nil, nil)

	// Revoking an enrollment that was never approved is a harmless no-op.
	require.NoError(t, svc.Revoke(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1"))
	assert.False(t, store.enrollments["e1"].ApprovedForCertificate)
}

func TestCertificateServiceRenderRequiresApproval(t *testing.T) {
	store := newCertTestStore()
	svc := NewCertificateService(store, store, nil, nil, nil, nil)

	_, err := svc.RenderCertificate(context.Background(), "e1", "")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestCertificateServiceRenderAfterApproval(t *testing.T) {
	store := newCertTestStore()
	renderer := export.NewCertificateRenderer(export.IssuerInfo{Name: "Prisma Institute of Computer Technology"})
	svc := NewCertificateService(store, store, renderer, nil, nil, nil)

	resp, err := svc.Approve(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1")
	require.NoError(t, err)

	doc, err := svc.RenderCertificate(context.Background(), "e1", "")
	require.NoError(t, err)
	assert.Equal(t, "Certificate_"+resp.CertificateID+"_diploma_in_computer_applications.pdf", doc.Filename)
	assert.True(t, len(doc.Content) > 4)
	assert.Equal(t, "%PDF", string(doc.Content[:4]))
}

func TestCertificateServiceRenderOwnerMismatch(t *testing.T) {
	store := newCertTestStore()
	svc := NewCertificateService(store, store, nil, nil, nil, nil)

	_, err := svc.Approve(context.Background(), ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}, "admin-1")
	require.NoError(t, err)

	_, err = svc.RenderCertificate(context.Background(), "e1", "someone-else")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}

func TestCertificateServiceEnrollmentsWithApproval(t *testing.T) {
	store := newCertTestStore()
	fixed := time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)
	svc := NewCertificateService(store, store, nil, nil, nil, nil).WithClock(func() time.Time { return fixed })

	views, err := svc.EnrollmentsWithApproval(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, views, 1)

	// Enrolled 10 Jan 2024 on a 6 month course: done by 10 Jul 2024.
	require.NotNil(t, views[0].CompletionDate)
	assert.Equal(t, time.Date(2024, 7, 10, 0, 0, 0, 0, time.UTC), *views[0].CompletionDate)
	assert.True(t, views[0].Completed)
}

func TestCertificateServiceRevokeEvictsVerificationCache(t *testing.T) {
	store := newCertTestStore()
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	certSvc := NewCertificateService(store, store, nil, cache, nil, nil)
	verifySvc := NewVerificationService(store, cache, time.Minute, nil)
	req := ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}

	_, err := certSvc.Approve(context.Background(), req, "admin-1")
	require.NoError(t, err)

	// Prime the cache through the public lookup.
	verification, err := verifySvc.VerifyByEnrollmentID(context.Background(), "e1")
	require.NoError(t, err)
	require.NotEmpty(t, verification.CertificateID)

	require.NoError(t, certSvc.Revoke(context.Background(), req, "admin-1"))

	_, err = verifySvc.VerifyByEnrollmentID(context.Background(), "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCertificateServiceReapprovalEvictsVerificationCache(t *testing.T) {
	store := newCertTestStore()
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	certSvc := NewCertificateService(store, store, nil, cache, nil, nil)
	verifySvc := NewVerificationService(store, cache, time.Minute, nil)
	req := ApproveCertificateRequest{StudentID: "s1", CourseID: "c1"}

	_, err := certSvc.Approve(context.Background(), req, "admin-1")
	require.NoError(t, err)
	_, err = verifySvc.VerifyByEnrollmentID(context.Background(), "e1")
	require.NoError(t, err)

	second, err := certSvc.Approve(context.Background(), req, "admin-1")
	require.NoError(t, err)

	verification, err := verifySvc.VerifyByEnrollmentID(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, second.CertificateID, verification.CertificateID)
}
