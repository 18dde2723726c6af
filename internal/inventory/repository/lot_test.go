package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stocklot/stocklot-backend/pkg/database"
	apperrors "github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/testutil"
)

func newTestDB(mockDB *testutil.MockDB) *database.DB {
	return database.NewFromSqlx(mockDB.DB, logger.New("test", "test"))
}

func lotColumns() []string {
	return []string{
		"id", "product_id", "lot_number", "status", "source_type",
		"original_quantity", "current_quantity", "unit", "received_at",
		"created_by", "created_at", "updated_at",
	}
}

func TestLotRepository_GetByID_NotFound(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := NewLotRepository(newTestDB(mockDB))

	mockDB.ExpectQuery("SELECT * FROM inventory_lots WHERE id = $1").
		WithArgs("missing").
		WillReturnRows(testutil.MockRows(lotColumns()...))

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	mockDB.ExpectationsWereMet(t)
}

func TestLotRepository_ListByProduct_StatusFilter(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := NewLotRepository(newTestDB(mockDB))

	rows := testutil.MockRows(lotColumns()...).AddRow(
		"lot-1", "prod-1", "LOT-20260101-0001", "available", "purchase",
		"100", "100", "m", time.Now(), "user-1", time.Now(), time.Now(),
	)
	mockDB.ExpectQuery("SELECT * FROM inventory_lots").
		WithArgs("prod-1", "available").
		WillReturnRows(rows)

	lots, err := repo.ListByProduct(context.Background(), "prod-1", "available")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, "lot-1", lots[0].ID)
	mockDB.ExpectationsWereMet(t)
}

func TestLotRepository_GetForUpdate_LockTimeout(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := NewLotRepository(newTestDB(mockDB))

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT * FROM inventory_lots WHERE id = $1 FOR UPDATE").
		WithArgs("lot-1").
		WillReturnError(&pq.Error{Code: "55P03", Message: "could not obtain lock on row"})

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	_, err = repo.GetForUpdate(context.Background(), tx, "lot-1")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConcurrency))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.True(t, appErr.Retryable)
}

func TestProcessedItemRepository_TryMark(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	repo := NewProcessedItemRepository(newTestDB(mockDB))

	mockDB.ExpectBegin()
	mockDB.ExpectExec("INSERT INTO processed_document_items").
		WithArgs("doc-1", "item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectExec("INSERT INTO processed_document_items").
		WithArgs("doc-1", "item-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := mockDB.DB.Beginx()
	require.NoError(t, err)

	first, err := repo.TryMark(context.Background(), tx, "doc-1", "item-1")
	require.NoError(t, err)
	assert.True(t, first)

	second, err := repo.TryMark(context.Background(), tx, "doc-1", "item-1")
	require.NoError(t, err)
	assert.False(t, second)
	mockDB.ExpectationsWereMet(t)
}
