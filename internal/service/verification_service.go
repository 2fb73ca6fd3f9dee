package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
)

// verificationCacheKey is shared with CertificateService, which evicts the
// entry whenever approval state changes.
func verificationCacheKey(enrollmentID string) string {
	return fmt.Sprintf("verify:enrollment:%s", enrollmentID)
}

type verificationEnrollmentStore interface {
	FindApprovedDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	SearchApprovedByStudentName(ctx context.Context, name string) ([]models.EnrollmentDetail, error)
	SearchApprovedByCourseTitle(ctx context.Context, title string) ([]models.EnrollmentDetail, error)
}

// VerificationService answers public, unauthenticated certificate lookups.
//
// An enrollment that exists but was never approved is reported exactly like
// one that does not exist, so the endpoint leaks nothing about unapproved
// students.
type VerificationService struct {
	enrollments verificationEnrollmentStore
	cache       *CacheService
	cacheTTL    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewVerificationService constructs VerificationService.
func NewVerificationService(enrollments verificationEnrollmentStore, cache *CacheService, cacheTTL time.Duration, logger *zap.Logger) *VerificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VerificationService{
		enrollments: enrollments,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (s *VerificationService) WithClock(now func() time.Time) *VerificationService {
	if now != nil {
		s.now = now
	}
	return s
}

// VerifyByEnrollmentID confirms an approved certificate for one enrollment.
func (s *VerificationService) VerifyByEnrollmentID(ctx context.Context, enrollmentID string) (*models.CertificateVerification, error) {
	if enrollmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
	}

	cacheKey := verificationCacheKey(enrollmentID)
	if s.cache.Enabled() {
		var cached models.CertificateVerification
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	detail, err := s.enrollments.FindApprovedDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load enrollment")
	}
	verification := s.toVerification(*detail)
	if verification == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate not found")
	}

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, verification, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache verification", zap.Error(err))
		}
	}
	return verification, nil
}

// SearchByStudentName scans approved certificates whose student name
// contains the query. An empty or unmatched query yields an empty list.
func (s *VerificationService) SearchByStudentName(ctx context.Context, query string) ([]models.CertificateVerification, error) {
	if strings.TrimSpace(query) == "" {
		return []models.CertificateVerification{}, nil
	}
	details, err := s.enrollments.SearchApprovedByStudentName(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to search certificates")
	}
	return s.toVerifications(details), nil
}

// SearchByCourseName scans approved certificates whose course title
// contains the query.
func (s *VerificationService) SearchByCourseName(ctx context.Context, query string) ([]models.CertificateVerification, error) {
	if strings.TrimSpace(query) == "" {
		return []models.CertificateVerification{}, nil
	}
	details, err := s.enrollments.SearchApprovedByCourseTitle(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to search certificates")
	}
	return s.toVerifications(details), nil
}

func (s *VerificationService) toVerifications(details []models.EnrollmentDetail) []models.CertificateVerification {
	verifications := make([]models.CertificateVerification, 0, len(details))
	for _, detail := range details {
		if v := s.toVerification(detail); v != nil {
			verifications = append(verifications, *v)
		}
	}
	return verifications
}

func (s *VerificationService) toVerification(detail models.EnrollmentDetail) *models.CertificateVerification {
	if !detail.ApprovedForCertificate || detail.CertificateID == nil {
		return nil
	}
	verification := &models.CertificateVerification{
		EnrollmentID:           detail.ID,
		StudentID:              detail.StudentID,
		CourseID:               detail.CourseID,
		StudentName:            detail.StudentName,
		CourseTitle:            detail.CourseTitle,
		CourseDescription:      detail.CourseDescription,
		CourseDuration:         detail.CourseDuration,
		CertificateID:          *detail.CertificateID,
		ApprovedForCertificate: true,
		CertificateApprovedAt:  detail.CertificateApprovedAt,
	}
	if completion, ok := ComputeCompletionDate(detail.EnrolledAt, detail.CourseDuration); ok {
		completion := completion
		verification.CompletionDate = &completion
	}
	return verification
}
