package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/pkg/database"
)

// LotTransaction is one entry in the append-only per-lot audit ledger.
// Every quantity or status mutation writes one of these in the same database
// transaction as the mutation itself.
type LotTransaction struct {
	ID              string          `db:"id" json:"id"`
	LotID           string          `db:"lot_id" json:"lot_id"`
	TransactionType string          `db:"transaction_type" json:"transaction_type"`
	Quantity        decimal.Decimal `db:"quantity" json:"quantity"`
	QuantityBefore  decimal.Decimal `db:"quantity_before" json:"quantity_before"`
	QuantityAfter   decimal.Decimal `db:"quantity_after" json:"quantity_after"`
	DocumentID      *string         `db:"document_id" json:"document_id,omitempty"`
	Notes           *string         `db:"notes" json:"notes,omitempty"`
	CreatedBy       string          `db:"created_by" json:"created_by"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// LotTransactionRepository handles audit ledger persistence
type LotTransactionRepository struct {
	db *database.DB
}

// NewLotTransactionRepository creates a new lot transaction repository
func NewLotTransactionRepository(db *database.DB) *LotTransactionRepository {
	return &LotTransactionRepository{db: db}
}

// Record appends an audit entry within the mutation's transaction.
func (r *LotTransactionRepository) Record(ctx context.Context, tx *sqlx.Tx, entry *LotTransaction) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	query := `
		INSERT INTO lot_transactions (
			id, lot_id, transaction_type, quantity, quantity_before,
			quantity_after, document_id, notes, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := tx.QueryRowxContext(ctx, query,
		entry.ID, entry.LotID, entry.TransactionType, entry.Quantity,
		entry.QuantityBefore, entry.QuantityAfter, entry.DocumentID,
		entry.Notes, entry.CreatedBy,
	).Scan(&entry.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// NewEntry builds an audit entry for a quantity change.
func NewEntry(lotID string, txType domain.TransactionType, before, after decimal.Decimal, createdBy string) *LotTransaction {
	return &LotTransaction{
		LotID:           lotID,
		TransactionType: string(txType),
		Quantity:        after.Sub(before).Abs(),
		QuantityBefore:  before,
		QuantityAfter:   after,
		CreatedBy:       createdBy,
	}
}

// ListByLot lists a lot's audit entries, oldest first.
func (r *LotTransactionRepository) ListByLot(ctx context.Context, lotID string) ([]*LotTransaction, error) {
	var entries []*LotTransaction
	query := `
		SELECT * FROM lot_transactions
		WHERE lot_id = $1
		ORDER BY created_at, id
	`
	if err := r.db.SelectContext(ctx, &entries, query, lotID); err != nil {
		return nil, err
	}
	return entries, nil
}
