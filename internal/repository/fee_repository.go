package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/prisma-institute/portal-api/internal/models"
)

// FeeRepository handles persistence of fee payments.
type FeeRepository struct {
	db *sqlx.DB
}

// NewFeeRepository constructs the repository.
func NewFeeRepository(db *sqlx.DB) *FeeRepository {
	return &FeeRepository{db: db}
}

const feeColumns = `id, enrollment_id, amount, mode, receipt_no, note, recorded_by, paid_at`

// Create records a payment against an enrollment.
func (r *FeeRepository) Create(ctx context.Context, payment *models.FeePayment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	if payment.ReceiptNo == "" {
		payment.ReceiptNo = uuid.NewString()
	}
	if payment.PaidAt.IsZero() {
		payment.PaidAt = time.Now().UTC()
	}
	const query = `INSERT INTO fee_payments (id, enrollment_id, amount, mode, receipt_no, note, recorded_by, paid_at)
        VALUES (:id, :enrollment_id, :amount, :mode, :receipt_no, :note, :recorded_by, :paid_at)`
	if _, err := r.db.NamedExecContext(ctx, query, payment); err != nil {
		return fmt.Errorf("create fee payment: %w", err)
	}
	return nil
}

// ListByEnrollment returns payments for one enrollment, newest first.
func (r *FeeRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.FeePayment, error) {
	query := fmt.Sprintf("SELECT %s FROM fee_payments WHERE enrollment_id = $1 ORDER BY paid_at DESC", feeColumns)
	var payments []models.FeePayment
	if err := r.db.SelectContext(ctx, &payments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list fee payments: %w", err)
	}
	return payments, nil
}

// TotalPaid sums recorded payments for an enrollment.
func (r *FeeRepository) TotalPaid(ctx context.Context, enrollmentID string) (float64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM fee_payments WHERE enrollment_id = $1`
	var total float64
	if err := r.db.GetContext(ctx, &total, query, enrollmentID); err != nil {
		return 0, fmt.Errorf("sum fee payments: %w", err)
	}
	return total, nil
}
