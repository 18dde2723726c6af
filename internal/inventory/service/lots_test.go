package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/internal/inventory/repository"
	"github.com/stocklot/stocklot-backend/pkg/database"
	apperrors "github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/testutil"
)

func newTestLotService(mockDB *testutil.MockDB, publisher *testutil.MockPublisher) *LotService {
	log := logger.New("test", "test")
	db := database.NewFromSqlx(mockDB.DB, log)

	lots := repository.NewLotRepository(db)
	splits := repository.NewSplitRepository(db)
	ledger := repository.NewLotTransactionRepository(db)
	products := repository.NewProductRepository(db)
	stock := NewStockService(lots, products, publisher, log)

	return NewLotService(db, lots, splits, ledger, products, stock, publisher, log)
}

func expectLockedLot(mockDB *testutil.MockDB, id, status, current, original string) {
	rows := testutil.MockRows(
		"id", "product_id", "lot_number", "status", "source_type",
		"original_quantity", "current_quantity", "unit", "received_at",
		"created_by", "created_at", "updated_at",
	).AddRow(
		id, "7f7b1c2a-9a1b-4a61-9a0f-2f4c8f1d0e11", "LOT-20260101-0001", status, "purchase",
		original, current, "m", time.Now(), "user-1", time.Now(), time.Now(),
	)
	mockDB.ExpectQuery("SELECT * FROM inventory_lots WHERE id = $1 FOR UPDATE").
		WithArgs(id).
		WillReturnRows(rows)
}

func TestAdjustQuantity_TerminalStateRejected(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "scrapped", "50", "100")
	mockDB.ExpectRollback()

	_, err := svc.AdjustQuantity(context.Background(), "lot-1", decimal.NewFromInt(-10), "count correction")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTerminalState))
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestAdjustQuantity_InsufficientQuantity(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "available", "10", "100")
	mockDB.ExpectRollback()

	_, err := svc.AdjustQuantity(context.Background(), "lot-1", decimal.NewFromInt(-20), "damage")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientQuantity))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "20", appErr.Details["need"])
	assert.Equal(t, "10", appErr.Details["have"])
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestAdjustQuantity_CannotExceedOriginal(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "available", "90", "100")
	mockDB.ExpectRollback()

	_, err := svc.AdjustQuantity(context.Background(), "lot-1", decimal.NewFromInt(20), "recount")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	mockDB.ExpectationsWereMet(t)
}

func TestAdjustQuantity_ValidatesInput(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	svc := newTestLotService(mockDB, testutil.NewMockPublisher())

	_, err := svc.AdjustQuantity(context.Background(), "lot-1", decimal.Zero, "reason")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = svc.AdjustQuantity(context.Background(), "lot-1", decimal.NewFromInt(1), "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestSetStatus_InvalidTransition(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "reserved", "50", "100")
	mockDB.ExpectRollback()

	_, err := svc.SetStatus(context.Background(), "lot-1", domain.StatusSplit, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "reserved", appErr.Details["from"])
	assert.Equal(t, "split", appErr.Details["to"])
	mockDB.ExpectationsWereMet(t)
}

func TestSetStatus_DepletedRequiresEmptyLot(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "available", "50", "100")
	mockDB.ExpectRollback()

	_, err := svc.SetStatus(context.Background(), "lot-1", domain.StatusDepleted, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestSetStatus_SplitRequiresEmptyLot(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "available", "100", "100")
	mockDB.ExpectRollback()

	_, err := svc.SetStatus(context.Background(), "lot-1", domain.StatusSplit, "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestScrap_RequiresReason(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	svc := newTestLotService(mockDB, testutil.NewMockPublisher())

	_, err := svc.Scrap(context.Background(), "lot-1", "")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestScrap_AlreadyScrapped(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "scrapped", "0", "100")
	mockDB.ExpectRollback()

	_, err := svc.Scrap(context.Background(), "lot-1", "damaged")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrTerminalState))
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestSplit_OverAllocation(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "available", "100", "100")
	mockDB.ExpectRollback()

	_, err := svc.Split(context.Background(), "lot-1", []domain.SplitAllocation{
		{Quantity: decimal.NewFromInt(60)},
		{Quantity: decimal.NewFromInt(50)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrOverAllocation))
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestSplit_SourceNotAvailable(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestLotService(mockDB, publisher)

	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	expectLockedLot(mockDB, "lot-1", "depleted", "0", "100")
	mockDB.ExpectRollback()

	_, err := svc.Split(context.Background(), "lot-1", []domain.SplitAllocation{
		{Quantity: decimal.NewFromInt(10)},
	})
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
	mockDB.ExpectationsWereMet(t)
}

func TestCreateLot_ValidatesInput(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	svc := newTestLotService(mockDB, testutil.NewMockPublisher())

	_, err := svc.CreateLot(context.Background(), CreateLotInput{
		ProductID:  "7f7b1c2a-9a1b-4a61-9a0f-2f4c8f1d0e11",
		Quantity:   decimal.Zero,
		SourceType: domain.SourcePurchase,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	_, err = svc.CreateLot(context.Background(), CreateLotInput{
		ProductID:  "7f7b1c2a-9a1b-4a61-9a0f-2f4c8f1d0e11",
		Quantity:   decimal.NewFromInt(10),
		SourceType: domain.SourceSplit,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}
