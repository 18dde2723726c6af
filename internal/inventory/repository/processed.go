package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/stocklot/stocklot-backend/pkg/database"
)

// ProcessedItemRepository tracks which document items have already been
// applied to the ledger. Markers are checked-and-inserted atomically with
// the mutation they guard, so two concurrent deliveries of the same event
// cannot both pass the duplicate check.
type ProcessedItemRepository struct {
	db *database.DB
}

// NewProcessedItemRepository creates a new processed item repository
func NewProcessedItemRepository(db *database.DB) *ProcessedItemRepository {
	return &ProcessedItemRepository{db: db}
}

// TryMark inserts the processed marker for (documentID, itemID) inside the
// guarded mutation's transaction. It returns false when the marker already
// exists, meaning the item was processed before and the caller must no-op.
func (r *ProcessedItemRepository) TryMark(ctx context.Context, tx *sqlx.Tx, documentID, itemID string) (bool, error) {
	query := `
		INSERT INTO processed_document_items (document_id, item_id)
		VALUES ($1, $2)
		ON CONFLICT (document_id, item_id) DO NOTHING
	`

	result, err := tx.ExecContext(ctx, query, documentID, itemID)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return false, appErr
		}
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// IsProcessed reports whether the marker exists, outside any transaction.
// Only useful for diagnostics; the authoritative check is TryMark.
func (r *ProcessedItemRepository) IsProcessed(ctx context.Context, documentID, itemID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM processed_document_items
			WHERE document_id = $1 AND item_id = $2
		)
	`
	if err := r.db.GetContext(ctx, &exists, query, documentID, itemID); err != nil {
		return false, err
	}
	return exists, nil
}
