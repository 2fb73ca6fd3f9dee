package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
)

type inquiryRepository interface {
	Create(ctx context.Context, inquiry *models.Inquiry) error
	FindByID(ctx context.Context, id string) (*models.Inquiry, error)
	List(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, int, error)
	Resolve(ctx context.Context, id string, resolvedAt time.Time) error
}

// SubmitInquiryRequest is the public admission-inquiry form payload.
type SubmitInquiryRequest struct {
	FullName string  `json:"full_name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone"`
	CourseID *string `json:"course_id,omitempty"`
	Message  string  `json:"message" validate:"required"`
}

// InquiryService handles admission inquiries from the public site.
type InquiryService struct {
	repo      inquiryRepository
	courses   courseReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInquiryService constructs InquiryService.
func NewInquiryService(repo inquiryRepository, courses courseReader, validate *validator.Validate, logger *zap.Logger) *InquiryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InquiryService{repo: repo, courses: courses, validator: validate, logger: logger}
}

// Submit records a new inquiry. A course reference, when supplied, must
// point at a real course.
func (s *InquiryService) Submit(ctx context.Context, req SubmitInquiryRequest) (*models.Inquiry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid inquiry payload")
	}
	if req.CourseID != nil && *req.CourseID != "" {
		if _, err := s.courses.FindByID(ctx, *req.CourseID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
		}
	}
	inquiry := &models.Inquiry{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		CourseID: req.CourseID,
		Message:  req.Message,
		Status:   models.InquiryStatusOpen,
	}
	if err := s.repo.Create(ctx, inquiry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to record inquiry")
	}
	s.logger.Info("admission inquiry received", zap.String("inquiry_id", inquiry.ID))
	return inquiry, nil
}

// List returns inquiries for the admin inbox.
func (s *InquiryService) List(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, *models.Pagination, error) {
	inquiries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list inquiries")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return inquiries, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Resolve closes an inquiry.
func (s *InquiryService) Resolve(ctx context.Context, id string) (*models.Inquiry, error) {
	inquiry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "inquiry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load inquiry")
	}
	if inquiry.Status == models.InquiryStatusResolved {
		return inquiry, nil
	}
	resolvedAt := time.Now().UTC()
	if err := s.repo.Resolve(ctx, id, resolvedAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to resolve inquiry")
	}
	inquiry.Status = models.InquiryStatusResolved
	inquiry.ResolvedAt = &resolvedAt
	return inquiry, nil
}
