package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stocklot/stocklot-backend/pkg/database"
)

// SplitRecord is the append-only audit entry linking a split's parent lot to
// its children.
type SplitRecord struct {
	ID          string         `db:"id" json:"id"`
	SourceLotID string         `db:"source_lot_id" json:"source_lot_id"`
	ChildLotIDs pq.StringArray `db:"child_lot_ids" json:"child_lot_ids"`
	Quantities  pq.StringArray `db:"quantities" json:"quantities"`
	SplitBy     string         `db:"split_by" json:"split_by"`
	SplitAt     time.Time      `db:"split_at" json:"split_at"`
}

// SplitRepository handles split audit persistence
type SplitRepository struct {
	db *database.DB
}

// NewSplitRepository creates a new split repository
func NewSplitRepository(db *database.DB) *SplitRepository {
	return &SplitRepository{db: db}
}

// Create inserts a split record within the split's transaction.
func (r *SplitRepository) Create(ctx context.Context, tx *sqlx.Tx, record *SplitRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	query := `
		INSERT INTO lot_splits (id, source_lot_id, child_lot_ids, quantities, split_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING split_at
	`

	err := tx.QueryRowxContext(ctx, query,
		record.ID, record.SourceLotID, record.ChildLotIDs, record.Quantities, record.SplitBy,
	).Scan(&record.SplitAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// ListBySourceLot lists split records for a parent lot, newest first.
func (r *SplitRepository) ListBySourceLot(ctx context.Context, sourceLotID string) ([]*SplitRecord, error) {
	var records []*SplitRecord
	query := `
		SELECT * FROM lot_splits
		WHERE source_lot_id = $1
		ORDER BY split_at DESC
	`
	if err := r.db.SelectContext(ctx, &records, query, sourceLotID); err != nil {
		return nil, err
	}
	return records, nil
}
