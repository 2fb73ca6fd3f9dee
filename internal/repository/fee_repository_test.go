package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prisma-institute/portal-api/internal/models"
)

func newFeeMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestFeeRepositoryCreateAssignsReceipt(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectExec("INSERT INTO fee_payments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	payment := &models.FeePayment{EnrollmentID: "e1", Amount: 5000, Mode: "CASH", RecordedBy: "admin-1"}
	err := repo.Create(context.Background(), payment)
	require.NoError(t, err)
	assert.NotEmpty(t, payment.ID)
	assert.NotEmpty(t, payment.ReceiptNo)
	assert.False(t, payment.PaidAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryTotalPaid(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	mock.ExpectQuery(`SELECT COALESCE\(SUM\(amount\), 0\) FROM fee_payments WHERE enrollment_id = \$1`).
		WithArgs("e1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(7500.0))

	total, err := repo.TotalPaid(context.Background(), "e1")
	require.NoError(t, err)
	assert.Equal(t, 7500.0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeeRepositoryListByEnrollment(t *testing.T) {
	db, mock, cleanup := newFeeMock(t)
	defer cleanup()
	repo := NewFeeRepository(db)

	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "amount", "mode", "receipt_no", "note", "recorded_by", "paid_at"}).
		AddRow("p1", "e1", 5000.0, "CASH", "r1", "", "admin-1", time.Now())
	mock.ExpectQuery("SELECT (.+) FROM fee_payments WHERE enrollment_id = \\$1 ORDER BY paid_at DESC").
		WithArgs("e1").
		WillReturnRows(rows)

	payments, err := repo.ListByEnrollment(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, 5000.0, payments[0].Amount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
