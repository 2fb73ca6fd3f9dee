package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
	"github.com/prisma-institute/portal-api/pkg/export"
)

// certificateIDPrefix is fixed; issued IDs look like PRC00042.
const certificateIDPrefix = "PRC"

type certificateEnrollmentStore interface {
	FindByStudentAndCourse(ctx context.Context, studentID, courseID string) (*models.Enrollment, error)
	FindApprovedDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	SetCertificateApproval(ctx context.Context, id string, approved bool, certificateID *string, approvedAt *time.Time, approvedBy *string) error
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentDetail, error)
}

type certificateAuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ApproveCertificateRequest identifies the enrollment to approve.
type ApproveCertificateRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// ApproveCertificateResponse carries the freshly issued certificate ID.
type ApproveCertificateResponse struct {
	EnrollmentID  string    `json:"enrollment_id"`
	CertificateID string    `json:"certificate_id"`
	ApprovedAt    time.Time `json:"approved_at"`
}

// CertificateService is the authority over certificate approval state.
//
// Approving an already-approved enrollment issues a fresh certificate ID
// and silently invalidates the previous one; no ID history is kept.
// Approve and Revoke are plain read-then-write with no compare-and-swap,
// so concurrent admin actions on the same enrollment are last-write-wins.
type CertificateService struct {
	enrollments certificateEnrollmentStore
	audit       certificateAuditWriter
	renderer    *export.CertificateRenderer
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewCertificateService constructs CertificateService. The cache is the one
// the public verifier reads from; approval changes must evict it.
func NewCertificateService(enrollments certificateEnrollmentStore, audit certificateAuditWriter, renderer *export.CertificateRenderer, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CertificateService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewCertificateRenderer(export.IssuerInfo{})
	}
	return &CertificateService{
		enrollments: enrollments,
		audit:       audit,
		renderer:    renderer,
		cache:       cache,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *CertificateService) WithClock(now func() time.Time) *CertificateService {
	if now != nil {
		s.now = now
	}
	return s
}

// Approve marks the enrollment as certificate-approved and issues a new ID.
func (s *CertificateService) Approve(ctx context.Context, req ApproveCertificateRequest, approvedBy string) (*ApproveCertificateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid approval payload")
	}
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load enrollment")
	}

	certificateID := newCertificateID()
	approvedAt := s.now().UTC()
	if err := s.enrollments.SetCertificateApproval(ctx, enrollment.ID, true, &certificateID, &approvedAt, &approvedBy); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist approval")
	}

	s.invalidateVerification(ctx, enrollment.ID)
	s.writeAudit(ctx, approvedBy, models.AuditActionCertificateApprove, enrollment.ID, fmt.Sprintf(`{"certificate_id":%q}`, certificateID))
	s.logger.Info("certificate approved",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("certificate_id", certificateID),
		zap.String("approved_by", approvedBy))

	return &ApproveCertificateResponse{EnrollmentID: enrollment.ID, CertificateID: certificateID, ApprovedAt: approvedAt}, nil
}

// Revoke withdraws certificate approval and clears the issued ID. Revoking
// an enrollment that was never approved succeeds as a no-op mutation.
func (s *CertificateService) Revoke(ctx context.Context, req ApproveCertificateRequest, revokedBy string) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid revocation payload")
	}
	enrollment, err := s.enrollments.FindByStudentAndCourse(ctx, req.StudentID, req.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load enrollment")
	}

	if err := s.enrollments.SetCertificateApproval(ctx, enrollment.ID, false, nil, nil, nil); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to persist revocation")
	}

	s.invalidateVerification(ctx, enrollment.ID)
	s.writeAudit(ctx, revokedBy, models.AuditActionCertificateRevoke, enrollment.ID, `{"approved":false}`)
	s.logger.Info("certificate revoked",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("revoked_by", revokedBy))
	return nil
}

// EnrollmentsWithApproval returns a student's enrollments with derived
// completion information for the dashboard.
func (s *CertificateService) EnrollmentsWithApproval(ctx context.Context, studentID string) ([]models.EnrollmentView, error) {
	details, err := s.enrollments.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list enrollments")
	}
	now := s.now()
	views := make([]models.EnrollmentView, 0, len(details))
	for _, detail := range details {
		view := models.EnrollmentView{EnrollmentDetail: detail}
		if completion, ok := ComputeCompletionDate(detail.EnrolledAt, detail.CourseDuration); ok {
			completion := completion
			view.CompletionDate = &completion
			view.Completed = !now.Before(completion)
		}
		views = append(views, view)
	}
	return views, nil
}

// CertificateDocument bundles rendered PDF bytes with the download name.
type CertificateDocument struct {
	Filename string
	Content  []byte
}

// RenderCertificate builds and renders the certificate document for an
// approved enrollment. Approval is checked here, at the data layer, so the
// renderer itself stays a pure formatting function. When ownerStudentID is
// non-empty the enrollment must belong to that student.
func (s *CertificateService) RenderCertificate(ctx context.Context, enrollmentID, ownerStudentID string) (*CertificateDocument, error) {
	detail, err := s.enrollments.FindApprovedDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "certificate not yet approved by admin")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load enrollment")
	}
	if ownerStudentID != "" && detail.StudentID != ownerStudentID {
		return nil, appErrors.ErrForbidden
	}
	if detail.CertificateID == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "certificate not yet approved by admin")
	}

	completionText := "Not specified"
	if completion, ok := ComputeCompletionDate(detail.EnrolledAt, detail.CourseDuration); ok {
		completionText = completion.Format("02 Jan 2006")
	}

	data := export.CertificateData{
		StudentName:       detail.StudentName,
		CourseTitle:       detail.CourseTitle,
		CourseDescription: detail.CourseDescription,
		CompletionDate:    completionText,
		CertificateID:     *detail.CertificateID,
		CourseDuration:    detail.CourseDuration,
	}
	content, err := s.renderer.Render(data, s.now())
	if err != nil {
		return nil, err
	}
	return &CertificateDocument{
		Filename: export.CertificateFilename(*detail.CertificateID, detail.CourseTitle),
		Content:  content,
	}, nil
}

// invalidateVerification evicts the public verifier's cached answer for the
// enrollment. Without this a revoked certificate would keep verifying as
// valid until the cache entry expired.
func (s *CertificateService) invalidateVerification(ctx context.Context, enrollmentID string) {
	if err := s.cache.Invalidate(ctx, verificationCacheKey(enrollmentID)); err != nil {
		s.logger.Warn("failed to invalidate verification cache",
			zap.String("enrollment_id", enrollmentID),
			zap.Error(err))
	}
}

func (s *CertificateService) writeAudit(ctx context.Context, actorID, action, enrollmentID, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "certificate",
		ResourceID: &enrollmentID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record certificate audit log", zap.Error(err))
	}
}

// newCertificateID draws a uniform 5-digit suffix. No uniqueness check is
// performed; at institute scale a collision is one in a hundred thousand
// per issuance.
func newCertificateID() string {
	return fmt.Sprintf("%s%05d", certificateIDPrefix, rand.Intn(100000))
}
