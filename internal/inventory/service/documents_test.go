package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stocklot/stocklot-backend/internal/inventory/repository"
	"github.com/stocklot/stocklot-backend/pkg/database"
	apperrors "github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
	"github.com/stocklot/stocklot-backend/pkg/testutil"
)

const (
	testProductID  = "7f7b1c2a-9a1b-4a61-9a0f-2f4c8f1d0e11"
	testDocumentID = "a3b8f9e1-5c2d-4e7f-8a9b-0c1d2e3f4a5b"
	testItemID     = "b4c9a0f2-6d3e-5f80-9b0c-1d2e3f4a5b6c"
)

func newTestDocumentService(mockDB *testutil.MockDB, publisher *testutil.MockPublisher) *DocumentService {
	log := logger.New("test", "test")
	db := database.NewFromSqlx(mockDB.DB, log)

	lots := repository.NewLotRepository(db)
	ledger := repository.NewLotTransactionRepository(db)
	processed := repository.NewProcessedItemRepository(db)
	products := repository.NewProductRepository(db)
	stock := NewStockService(lots, products, publisher, log)

	return NewDocumentService(db, lots, ledger, processed, products, stock, publisher, log)
}

func expectProduct(mockDB *testutil.MockDB, id string) {
	rows := testutil.MockRows(
		"id", "internal_code", "internal_name", "unit", "type",
		"min_stock_alert", "is_active", "created_at", "updated_at",
	).AddRow(
		id, "FAB-001", "Plain weave fabric", "m", "raw_material",
		"0", true, time.Now(), time.Now(),
	)
	mockDB.ExpectQuery("SELECT * FROM products WHERE id = $1").
		WithArgs(id).
		WillReturnRows(rows)
}

func orderEvent(quantity string) *messaging.DocumentCompletedEvent {
	return &messaging.DocumentCompletedEvent{
		DocumentID:   testDocumentID,
		DocumentType: DocumentTypeOrder,
		CompletedBy:  "user-1",
		CompletedAt:  time.Now().UTC(),
		Items: []messaging.DocumentCompletedItem{
			{ItemID: testItemID, ProductID: testProductID, Quantity: quantity, Unit: "m"},
		},
	}
}

func estimateEvent(quantity string) *messaging.DocumentCompletedEvent {
	evt := orderEvent(quantity)
	evt.DocumentType = DocumentTypeEstimate
	return evt
}

func TestOnDocumentCompleted_RejectsUnknownType(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	svc := newTestDocumentService(mockDB, testutil.NewMockPublisher())

	evt := orderEvent("10")
	evt.DocumentType = "invoice"
	err := svc.OnDocumentCompleted(context.Background(), evt)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestOnDocumentCompleted_RejectsEmptyItems(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	svc := newTestDocumentService(mockDB, testutil.NewMockPublisher())

	evt := orderEvent("10")
	evt.Items = nil
	err := svc.OnDocumentCompleted(context.Background(), evt)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestOnDocumentCompleted_DuplicateItemIsNoOp(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestDocumentService(mockDB, publisher)

	expectProduct(mockDB, testProductID)
	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	// Marker already present: zero rows inserted, the item is skipped and
	// the transaction still commits.
	mockDB.ExpectExec("INSERT INTO processed_document_items").
		WithArgs(testDocumentID, testItemID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectCommit()

	err := svc.OnDocumentCompleted(context.Background(), orderEvent("25"))
	require.NoError(t, err)
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestOnDocumentCompleted_InsufficientStockRollsBack(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestDocumentService(mockDB, publisher)

	expectProduct(mockDB, testProductID)
	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	mockDB.ExpectExec("INSERT INTO processed_document_items").
		WithArgs(testDocumentID, testItemID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Two available lots totalling 130 against a requirement of 200.
	candidates := testutil.MockRows(
		"id", "product_id", "lot_number", "status", "source_type",
		"original_quantity", "current_quantity", "unit", "received_at",
		"created_by", "created_at", "updated_at",
	).AddRow(
		"lot-1", testProductID, "LOT-20260101-0001", "available", "purchase",
		"80", "80", "m", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), "user-1", time.Now(), time.Now(),
	).AddRow(
		"lot-2", testProductID, "LOT-20260102-0002", "available", "purchase",
		"50", "50", "m", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC), "user-1", time.Now(), time.Now(),
	)
	mockDB.ExpectQuery("SELECT * FROM inventory_lots").
		WithArgs(testProductID).
		WillReturnRows(candidates)

	mockDB.ExpectRollback()

	err := svc.OnDocumentCompleted(context.Background(), estimateEvent("200"))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInsufficientStock))

	var appErr *apperrors.AppError
	require.True(t, apperrors.As(err, &appErr))
	assert.Equal(t, "200", appErr.Details["need"])
	assert.Equal(t, "130", appErr.Details["have"])
	publisher.AssertNoEventsPublished(t)
	mockDB.ExpectationsWereMet(t)
}

func TestOnDocumentCompleted_DefaultsReceivedAtWhenMissing(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	publisher := testutil.NewMockPublisher()
	svc := newTestDocumentService(mockDB, publisher)

	expectProduct(mockDB, testProductID)
	mockDB.ExpectBegin()
	mockDB.ExpectLockTimeout()
	mockDB.ExpectExec("INSERT INTO processed_document_items").
		WithArgs(testDocumentID, testItemID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mockDB.ExpectQuery("SELECT 'LOT-'").
		WillReturnRows(testutil.MockRows("lot_number").AddRow("LOT-20260101-0001"))
	mockDB.ExpectQuery("INSERT INTO inventory_lots").
		WithArgs(
			testutil.AnyUUID{}, testProductID, "LOT-20260101-0001", "available", "purchase",
			nil, testDocumentID, "25", "25", "m",
			nil, nil, nil, nil, testutil.NonZeroTime{}, "user-1",
		).
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(time.Now(), time.Now()))
	mockDB.ExpectQuery("INSERT INTO lot_transactions").
		WithArgs(
			testutil.AnyUUID{}, testutil.AnyUUID{}, "inbound", "25", "0", "25",
			testDocumentID, nil, "user-1",
		).
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))
	mockDB.ExpectCommit()

	evt := orderEvent("25")
	evt.CompletedAt = time.Time{}
	require.NoError(t, svc.OnDocumentCompleted(context.Background(), evt))
	publisher.AssertEventPublished(t, messaging.EventLotCreated)
	mockDB.ExpectationsWereMet(t)
}

func TestOnDocumentCompleted_RejectsNonPositiveQuantity(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()
	svc := newTestDocumentService(mockDB, testutil.NewMockPublisher())

	err := svc.OnDocumentCompleted(context.Background(), orderEvent("0"))
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	err = svc.OnDocumentCompleted(context.Background(), orderEvent("not-a-number"))
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}
