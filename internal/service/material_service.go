package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
	"github.com/prisma-institute/portal-api/pkg/storage"
)

type materialRepository interface {
	Create(ctx context.Context, material *models.Material) error
	FindByID(ctx context.Context, id string) (*models.Material, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.Material, error)
	Delete(ctx context.Context, id string) error
}

type materialEnrollmentStore interface {
	ExistsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
}

// UploadMaterialRequest describes a course material upload.
type UploadMaterialRequest struct {
	CourseID    string `validate:"required"`
	Title       string `validate:"required"`
	Filename    string `validate:"required"`
	ContentType string
	Size        int64
}

// MaterialService stores course PDFs and issues signed download links to
// enrolled students.
type MaterialService struct {
	repo        materialRepository
	enrollments materialEnrollmentStore
	courses     courseReader
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	maxSize     int64
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewMaterialService constructs MaterialService.
func NewMaterialService(repo materialRepository, enrollments materialEnrollmentStore, courses courseReader, store *storage.LocalStorage, signer *storage.SignedURLSigner, maxSize int64, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxSize <= 0 {
		maxSize = 25 << 20
	}
	return &MaterialService{
		repo:        repo,
		enrollments: enrollments,
		courses:     courses,
		store:       store,
		signer:      signer,
		maxSize:     maxSize,
		validator:   validate,
		logger:      logger,
	}
}

// Upload validates and stores a PDF, then records the material row.
// uploadedBy is the admin user performing the upload.
func (s *MaterialService) Upload(ctx context.Context, req UploadMaterialRequest, content io.Reader, uploadedBy string) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid material payload")
	}
	if req.ContentType != "" && req.ContentType != "application/pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF materials are accepted")
	}
	if !strings.EqualFold(filepath.Ext(req.Filename), ".pdf") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF materials are accepted")
	}
	if req.Size > s.maxSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("material exceeds the %d byte limit", s.maxSize))
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
	}

	id := uuid.NewString()
	relPath := filepath.Join(req.CourseID, id+".pdf")
	limited := io.LimitReader(content, s.maxSize+1)
	if _, err := s.store.SaveStream(relPath, limited); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store material")
	}

	material := &models.Material{
		ID:          id,
		CourseID:    req.CourseID,
		Title:       req.Title,
		FilePath:    relPath,
		SizeBytes:   req.Size,
		ContentType: "application/pdf",
		UploadedBy:  uploadedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, material); err != nil {
		if removeErr := s.store.Delete(relPath); removeErr != nil {
			s.logger.Warn("failed to remove orphaned material file", zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to record material")
	}
	s.logger.Info("course material uploaded",
		zap.String("material_id", material.ID),
		zap.String("course_id", material.CourseID))
	return material, nil
}

// ListByCourse returns materials for admin management.
func (s *MaterialService) ListByCourse(ctx context.Context, courseID string) ([]models.Material, error) {
	materials, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list materials")
	}
	return materials, nil
}

// ListForStudent returns materials for a course with signed download links.
// The student must hold a non-cancelled enrollment in the course.
func (s *MaterialService) ListForStudent(ctx context.Context, studentID, courseID string) ([]models.MaterialLink, error) {
	enrolled, err := s.enrollments.ExistsEnrolled(ctx, studentID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to check enrollment")
	}
	if !enrolled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not enrolled in this course")
	}
	materials, err := s.repo.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list materials")
	}
	links := make([]models.MaterialLink, 0, len(materials))
	for _, m := range materials {
		token, expiresAt, err := s.signer.Generate(m.ID, m.FilePath)
		if err != nil {
			s.logger.Warn("failed to sign material link", zap.String("material_id", m.ID), zap.Error(err))
			continue
		}
		links = append(links, models.MaterialLink{
			Material:    m,
			DownloadURL: "/api/v1/materials/download?token=" + token,
			ExpiresAt:   expiresAt,
		})
	}
	return links, nil
}

// ResolveDownload validates a signed token and opens the referenced file.
// The caller owns the returned file handle.
func (s *MaterialService) ResolveDownload(ctx context.Context, token string) (*models.Material, *os.File, error) {
	materialID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid or expired download link")
	}
	material, err := s.repo.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load material")
	}
	if material.FilePath != relPath {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download link")
	}
	file, err := s.store.Open(material.FilePath)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open material")
	}
	return material, file, nil
}

// Delete removes a material record and its file.
func (s *MaterialService) Delete(ctx context.Context, id string) error {
	material, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load material")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to delete material")
	}
	if err := s.store.Delete(material.FilePath); err != nil {
		s.logger.Warn("failed to delete material file", zap.String("material_id", id), zap.Error(err))
	}
	return nil
}
