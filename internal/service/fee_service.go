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

type feeRepository interface {
	Create(ctx context.Context, payment *models.FeePayment) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.FeePayment, error)
	TotalPaid(ctx context.Context, enrollmentID string) (float64, error)
}

type feeEnrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

// RecordPaymentRequest registers a fee payment against an enrollment.
type RecordPaymentRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Mode      string  `json:"mode" validate:"required"`
	ReceiptNo string  `json:"receipt_no"`
	Note      string  `json:"note"`
}

// FeeService tracks course fee payments per enrollment.
type FeeService struct {
	repo        feeRepository
	enrollments feeEnrollmentStore
	courses     courseReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewFeeService constructs FeeService.
func NewFeeService(repo feeRepository, enrollments feeEnrollmentStore, courses courseReader, validate *validator.Validate, logger *zap.Logger) *FeeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeeService{repo: repo, enrollments: enrollments, courses: courses, validator: validate, logger: logger}
}

// RecordPayment stores a payment. recordedBy is the admin user making the
// entry.
func (s *FeeService) RecordPayment(ctx context.Context, enrollmentID string, req RecordPaymentRequest, recordedBy string) (*models.FeePayment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	if _, err := s.loadEnrollment(ctx, enrollmentID); err != nil {
		return nil, err
	}
	payment := &models.FeePayment{
		EnrollmentID: enrollmentID,
		Amount:       req.Amount,
		Mode:         req.Mode,
		ReceiptNo:    req.ReceiptNo,
		Note:         req.Note,
		RecordedBy:   recordedBy,
		PaidAt:       time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to record payment")
	}
	s.logger.Info("fee payment recorded",
		zap.String("enrollment_id", enrollmentID),
		zap.Float64("amount", req.Amount))
	return payment, nil
}

// Statement builds the fee standing for one enrollment. When ownerStudentID
// is non-empty the enrollment must belong to that student.
func (s *FeeService) Statement(ctx context.Context, enrollmentID, ownerStudentID string) (*models.FeeStatement, error) {
	enrollment, err := s.loadEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if ownerStudentID != "" && enrollment.StudentID != ownerStudentID {
		return nil, appErrors.ErrForbidden
	}
	course, err := s.courses.FindByID(ctx, enrollment.CourseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
	}
	payments, err := s.repo.ListByEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list payments")
	}
	paid, err := s.repo.TotalPaid(ctx, enrollmentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to total payments")
	}
	return &models.FeeStatement{
		EnrollmentID: enrollmentID,
		CourseTitle:  course.Title,
		TotalDue:     course.FeeAmount,
		TotalPaid:    paid,
		Balance:      course.FeeAmount - paid,
		Payments:     payments,
	}, nil
}

func (s *FeeService) loadEnrollment(ctx context.Context, id string) (*models.Enrollment, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load enrollment")
	}
	return enrollment, nil
}
