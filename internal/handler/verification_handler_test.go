package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-institute/portal-api/internal/models"
	"github.com/prisma-institute/portal-api/internal/service"
)

type fakeVerificationStore struct {
	details []models.EnrollmentDetail
}

func (f *fakeVerificationStore) FindApprovedDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	for _, d := range f.details {
		if d.ID == id && d.ApprovedForCertificate {
			copied := d
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeVerificationStore) SearchApprovedByStudentName(ctx context.Context, name string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, d := range f.details {
		if d.ApprovedForCertificate && strings.Contains(strings.ToLower(d.StudentName), strings.ToLower(name)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeVerificationStore) SearchApprovedByCourseTitle(ctx context.Context, title string) ([]models.EnrollmentDetail, error) {
	var out []models.EnrollmentDetail
	for _, d := range f.details {
		if d.ApprovedForCertificate && strings.Contains(strings.ToLower(d.CourseTitle), strings.ToLower(title)) {
			out = append(out, d)
		}
	}
	return out, nil
}

func newVerificationHandler() *VerificationHandler {
	certID := "PRC00042"
	store := &fakeVerificationStore{details: []models.EnrollmentDetail{
		{
			Enrollment: models.Enrollment{
				ID:                     "e1",
				StudentID:              "s1",
				CourseID:               "c1",
				EnrolledAt:             time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
				ApprovedForCertificate: true,
				CertificateID:          &certID,
			},
			StudentName:    "Rahul Sharma",
			CourseTitle:    "Diploma in Computer Applications",
			CourseDuration: "6 months",
		},
		{
			Enrollment: models.Enrollment{ID: "e2", StudentID: "s2", CourseID: "c1"},
			StudentName: "Priya Patel",
			CourseTitle: "Diploma in Computer Applications",
		},
	}}
	return NewVerificationHandler(service.NewVerificationService(store, nil, time.Minute, nil))
}

func TestVerificationHandlerVerifyApproved(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newVerificationHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/verify/e1", nil)
	c.Params = gin.Params{{Key: "id", Value: "e1"}}

	handler.Verify(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data models.CertificateVerification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "PRC00042", envelope.Data.CertificateID)
	assert.Equal(t, "Rahul Sharma", envelope.Data.StudentName)
}

func TestVerificationHandlerVerifyUnapprovedLooksMissing(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newVerificationHandler()

	for _, id := range []string{"e2", "missing"} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/verify/"+id, nil)
		c.Params = gin.Params{{Key: "id", Value: id}}

		handler.Verify(c)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestVerificationHandlerSearchByStudent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newVerificationHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/verify?student=rahul", nil)

	handler.Search(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.CertificateVerification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "e1", envelope.Data[0].EnrollmentID)
}

func TestVerificationHandlerSearchEmptyQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newVerificationHandler()

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/verify", nil)

	handler.Search(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data []models.CertificateVerification `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Empty(t, envelope.Data)
}
