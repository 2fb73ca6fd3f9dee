package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/prisma-institute/portal-api/internal/models"
	appErrors "github.com/prisma-institute/portal-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	SetPublished(ctx context.Context, id string, published bool) error
}

// CourseRequest carries course create and update payloads.
type CourseRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Duration    string  `json:"duration" validate:"required"`
	Level       string  `json:"level"`
	Syllabus    string  `json:"syllabus"`
	FeeAmount   float64 `json:"fee_amount" validate:"min=0"`
	Published   bool    `json:"published"`
}

// CourseService manages the course catalog. Public catalog reads go through
// the cache layer; admin writes invalidate it.
type CourseService struct {
	repo      courseRepository
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CourseService{repo: repo, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// Catalog returns published courses for the public catalog.
func (s *CourseService) Catalog(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	filter.PublishedOnly = true
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	type cachedCatalog struct {
		Courses []models.Course   `json:"courses"`
		Paging  models.Pagination `json:"paging"`
	}

	cacheKey := fmt.Sprintf("courses:catalog:%s:%s:%d:%d", filter.Search, filter.Level, filter.Page, filter.PageSize)
	if s.cache != nil && s.cache.Enabled() {
		var cached cachedCatalog
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached.Courses, &cached.Paging, nil
		}
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list courses")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}

	if s.cache != nil && s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, cachedCatalog{Courses: courses, Paging: *pagination}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache course catalog", zap.Error(err))
		}
	}
	return courses, pagination, nil
}

// List returns all courses including unpublished ones. Admin view.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list courses")
	}
	return courses, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get returns one course by ID.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load course")
	}
	return course, nil
}

// GetPublished returns a course only when it is visible in the catalog.
func (s *CourseService) GetPublished(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !course.Published {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	return course, nil
}

// Create adds a course to the catalog.
func (s *CourseService) Create(ctx context.Context, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course := &models.Course{
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Level:       req.Level,
		Syllabus:    req.Syllabus,
		FeeAmount:   req.FeeAmount,
		Published:   req.Published,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to create course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// Update replaces mutable course fields.
func (s *CourseService) Update(ctx context.Context, id string, req CourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	course.Title = req.Title
	course.Description = req.Description
	course.Duration = req.Duration
	course.Level = req.Level
	course.Syllabus = req.Syllabus
	course.FeeAmount = req.FeeAmount
	course.Published = req.Published
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update course")
	}
	s.invalidateCatalog(ctx)
	return course, nil
}

// SetPublished toggles catalog visibility.
func (s *CourseService) SetPublished(ctx context.Context, id string, published bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetPublished(ctx, id, published); err != nil {
		return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to update course visibility")
	}
	s.invalidateCatalog(ctx)
	return nil
}

func (s *CourseService) invalidateCatalog(ctx context.Context) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, "courses:catalog:*"); err != nil {
		s.logger.Warn("failed to invalidate course catalog cache", zap.Error(err))
	}
}
