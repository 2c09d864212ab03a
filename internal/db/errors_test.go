package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diewo77/go-documents/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"pg unique", &pgconn.PgError{Code: "23505"}, KindUniqueViolation},
		{"pg fk wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23503"}), KindForeignKeyViolation},
		{"pg deadlock", &pgconn.PgError{Code: "40P01"}, KindDeadlock},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, KindSerialization},
		{"pg lock timeout", &pgconn.PgError{Code: "55P03"}, KindLockTimeout},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062}, KindUniqueViolation},
		{"mysql fk", &mysql.MySQLError{Number: 1452}, KindForeignKeyViolation},
		{"mysql deadlock", &mysql.MySQLError{Number: 1213}, KindDeadlock},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, KindLockTimeout},
		{"bad conn", driver.ErrBadConn, KindConnection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err), Classify(tt.err).String())
		})
	}
}

func TestIsUniqueViolationOnNamedIndex(t *testing.T) {
	pgNumber := &pgconn.PgError{Code: "23505", ConstraintName: models.IndexDocumentNumber}
	pgKey := &pgconn.PgError{Code: "23505", ConstraintName: models.IndexDocumentIdempotency}
	assert.True(t, IsUniqueViolationOn(pgNumber, models.IndexDocumentNumber))
	assert.False(t, IsUniqueViolationOn(pgKey, models.IndexDocumentNumber))

	myNumber := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '7-consultation-CONS202501230001' for key 'documents.idx_documents_scope_number'"}
	assert.True(t, IsUniqueViolationOn(myNumber, models.IndexDocumentNumber))
	assert.False(t, IsUniqueViolationOn(myNumber, models.IndexDocumentIdempotency))

	assert.False(t, IsUniqueViolationOn(&pgconn.PgError{Code: "23503", ConstraintName: models.IndexDocumentNumber}, models.IndexDocumentNumber))
}

func TestIsUniqueViolationOnSQLite(t *testing.T) {
	d := newTestDB(t)
	tenant := models.Tenant{Code: "t1", Name: "T1"}
	require.NoError(t, d.Create(&tenant).Error)

	key := "req-1"
	doc := func(number string, idem *string) *models.Document {
		return &models.Document{
			TenantID: tenant.ID, DocType: models.DocTypeInvoice, Number: number,
			SequenceDate: "20250123", SequenceNo: 1, Status: models.DocumentStatusUnpaid,
			Subtotal: decimal.Zero, TaxRate: decimal.Zero, Tax: decimal.Zero, DiscountRate: decimal.Zero,
			Discount: decimal.Zero, Rounding: decimal.Zero, Total: decimal.Zero, PaidAmount: decimal.Zero,
			IdempotencyKey: idem,
		}
	}
	require.NoError(t, d.Create(doc("INV202501230001", &key)).Error)

	err := d.Create(doc("INV202501230001", nil)).Error
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolationOn(err, models.IndexDocumentNumber, "documents.number"))
	assert.False(t, IsUniqueViolationOn(err, models.IndexDocumentIdempotency, "documents.idempotency_key"))

	err = d.Create(doc("INV202501230002", &key)).Error
	require.Error(t, err)
	assert.False(t, IsUniqueViolationOn(err, models.IndexDocumentNumber, "documents.number"))
	assert.True(t, IsUniqueViolationOn(err, models.IndexDocumentIdempotency, "documents.idempotency_key"))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&pgconn.PgError{Code: "40P01"}))
	assert.True(t, IsTransient(&mysql.MySQLError{Number: 1205}))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsTransient(errors.New("validation")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	assert.True(t, IsTransient(fmt.Errorf("commit: %w", ctx.Err())))
}
