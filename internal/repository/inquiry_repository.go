package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/prisma-institute/portal-api/internal/models"
)

// InquiryRepository handles persistence of admission inquiries.
type InquiryRepository struct {
	db *sqlx.DB
}

// NewInquiryRepository constructs the repository.
func NewInquiryRepository(db *sqlx.DB) *InquiryRepository {
	return &InquiryRepository{db: db}
}

const inquiryColumns = `id, full_name, email, phone, course_id, message, status, created_at, resolved_at`

// Create persists a new inquiry.
func (r *InquiryRepository) Create(ctx context.Context, inquiry *models.Inquiry) error {
	if inquiry.ID == "" {
		inquiry.ID = uuid.NewString()
	}
	if inquiry.CreatedAt.IsZero() {
		inquiry.CreatedAt = time.Now().UTC()
	}
	if inquiry.Status == "" {
		inquiry.Status = models.InquiryStatusOpen
	}
	const query = `INSERT INTO inquiries (id, full_name, email, phone, course_id, message, status, created_at)
        VALUES (:id, :full_name, :email, :phone, :course_id, :message, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, inquiry); err != nil {
		return fmt.Errorf("create inquiry: %w", err)
	}
	return nil
}

// FindByID returns an inquiry by its ID.
func (r *InquiryRepository) FindByID(ctx context.Context, id string) (*models.Inquiry, error) {
	query := fmt.Sprintf("SELECT %s FROM inquiries WHERE id = $1", inquiryColumns)
	var inquiry models.Inquiry
	if err := r.db.GetContext(ctx, &inquiry, query, id); err != nil {
		return nil, err
	}
	return &inquiry, nil
}

// List returns inquiries filtered by status and course.
func (r *InquiryRepository) List(ctx context.Context, filter models.InquiryFilter) ([]models.Inquiry, int, error) {
	base := "FROM inquiries"
	conditions := []string{"1=1"}
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", inquiryColumns, base+clause, size, offset)
	var inquiries []models.Inquiry
	if err := r.db.SelectContext(ctx, &inquiries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list inquiries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count inquiries: %w", err)
	}
	return inquiries, total, nil
}

// Resolve marks an inquiry as handled.
func (r *InquiryRepository) Resolve(ctx context.Context, id string, resolvedAt time.Time) error {
	const query = `UPDATE inquiries SET status = $2, resolved_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.InquiryStatusResolved, resolvedAt); err != nil {
		return fmt.Errorf("resolve inquiry: %w", err)
	}
	return nil
}
