package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-institute/portal-api/internal/middleware"
	"github.com/prisma-institute/portal-api/internal/models"
	"github.com/prisma-institute/portal-api/internal/service"
)

type fakeCertStore struct {
	detail *models.EnrollmentDetail
	audits int
}

func (f *fakeCertStore) FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error) {
	if f.detail != nil && f.detail.StudentID == studentID && f.detail.CourseID == courseID {
		enrollment := f.detail.Enrollment
		return &enrollment, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCertStore) FindApprovedDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if f.detail != nil && f.detail.ID == id && f.detail.ApprovedForCertificate {
		copied := *f.detail
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeCertStore) SetCertificateApproval(ctx context.Context, id string, approved bool, certificateID *string, approvedAt *time.Time, approvedBy *string) error {
	f.detail.ApprovedForCertificate = approved
	f.detail.CertificateID = certificateID
	f.detail.CertificateApprovedAt = approvedAt
	f.detail.CertificateApprovedBy = approvedBy
	return nil
}

func (f *fakeCertStore) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error) {
	if f.detail != nil && f.detail.StudentID == studentID {
		return []models.EnrollmentDetail{*f.detail}, nil
	}
	return nil, nil
}

func (f *fakeCertStore) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	f.audits++
	return nil
}

func newCertHandlerFixture() (*CertificateHandler, *fakeCertStore) {
	store := &fakeCertStore{detail: &models.EnrollmentDetail{
		Enrollment: models.Enrollment{
			ID:         "e1",
			StudentID:  "s1",
			CourseID:   "c1",
			EnrolledAt: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		},
		StudentName:    "Rahul Sharma",
		CourseTitle:    "Diploma in Computer Applications",
		CourseDuration: "6 months",
	}}
	svc := service.NewCertificateService(store, store, nil, nil, nil, nil)
	return NewCertificateHandler(svc), store
}

func adminContext(rec *httptest.ResponseRecorder, method, target string, body []byte) *gin.Context {
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	return c
}

func TestCertificateHandlerApprove(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newCertHandlerFixture()

	body, _ := json.Marshal(gin.H{"student_id": "s1", "course_id": "c1"})
	rec := httptest.NewRecorder()
	c := adminContext(rec, http.MethodPost, "/admin/certificates/approve", body)

	handler.Approve(c)

	require.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data service.ApproveCertificateResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "e1", envelope.Data.EnrollmentID)
	assert.Regexp(t, `^PRC\d{5}$`, envelope.Data.CertificateID)
	assert.True(t, store.detail.ApprovedForCertificate)
	assert.Equal(t, 1, store.audits)
}

func TestCertificateHandlerApproveUnknownEnrollment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newCertHandlerFixture()

	body, _ := json.Marshal(gin.H{"student_id": "s1", "course_id": "nope"})
	rec := httptest.NewRecorder()
	c := adminContext(rec, http.MethodPost, "/admin/certificates/approve", body)

	handler.Approve(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCertificateHandlerRevoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newCertHandlerFixture()

	body, _ := json.Marshal(gin.H{"student_id": "s1", "course_id": "c1"})
	rec := httptest.NewRecorder()
	handler.Approve(adminContext(rec, http.MethodPost, "/admin/certificates/approve", body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c := adminContext(rec, http.MethodPost, "/admin/certificates/revoke", body)
	handler.Revoke(c)
	// The handler writes no body, so flush the deferred status header to the recorder.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, store.detail.ApprovedForCertificate)
	assert.Nil(t, store.detail.CertificateID)
}

func TestCertificateHandlerDownloadBeforeApproval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newCertHandlerFixture()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/me/certificates/e1/pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, StudentID: "s1"})

	handler.Download(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestCertificateHandlerDownloadAfterApproval(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, store := newCertHandlerFixture()

	body, _ := json.Marshal(gin.H{"student_id": "s1", "course_id": "c1"})
	rec := httptest.NewRecorder()
	handler.Approve(adminContext(rec, http.MethodPost, "/admin/certificates/approve", body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/me/certificates/e1/pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, StudentID: "s1"})

	handler.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), *store.detail.CertificateID)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestCertificateHandlerDownloadOtherStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler, _ := newCertHandlerFixture()

	body, _ := json.Marshal(gin.H{"student_id": "s1", "course_id": "c1"})
	rec := httptest.NewRecorder()
	handler.Approve(adminContext(rec, http.MethodPost, "/admin/certificates/approve", body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/me/certificates/e1/pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u2", Role: models.RoleStudent, StudentID: "s9"})

	handler.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
