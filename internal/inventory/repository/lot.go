package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// Lot represents an inventory lot
type Lot struct {
	ID               string           `db:"id" json:"id"`
	ProductID        string           `db:"product_id" json:"product_id"`
	LotNumber        string           `db:"lot_number" json:"lot_number"`
	Status           string           `db:"status" json:"status"`
	SourceType       string           `db:"source_type" json:"source_type"`
	SourceLotID      *string          `db:"source_lot_id" json:"source_lot_id,omitempty"`
	SourceDocumentID *string          `db:"source_document_id" json:"source_document_id,omitempty"`
	OriginalQuantity decimal.Decimal  `db:"original_quantity" json:"original_quantity"`
	CurrentQuantity  decimal.Decimal  `db:"current_quantity" json:"current_quantity"`
	Unit             string           `db:"unit" json:"unit"`
	UnitCost         *decimal.Decimal `db:"unit_cost" json:"unit_cost,omitempty"`
	SpecValue        *string          `db:"spec_value" json:"spec_value,omitempty"`
	Location         *string          `db:"location" json:"location,omitempty"`
	Notes            *string          `db:"notes" json:"notes,omitempty"`
	ReceivedAt       time.Time        `db:"received_at" json:"received_at"`
	CreatedBy        string           `db:"created_by" json:"created_by"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time        `db:"updated_at" json:"updated_at"`
}

// LotRepository handles lot persistence
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// NextLotNumber generates the next lot number inside the given transaction.
// Numbers are date-prefixed and sequence-backed so concurrent creations never
// collide.
func (r *LotRepository) NextLotNumber(ctx context.Context, tx *sqlx.Tx) (string, error) {
	var lotNumber string
	query := `SELECT 'LOT-' || to_char(now(), 'YYYYMMDD') || '-' || lpad(nextval('lot_number_seq')::text, 4, '0')`
	if err := tx.QueryRowxContext(ctx, query).Scan(&lotNumber); err != nil {
		return "", err
	}
	return lotNumber, nil
}

// Create inserts a new lot within a transaction.
func (r *LotRepository) Create(ctx context.Context, tx *sqlx.Tx, lot *Lot) error {
	if lot.ID == "" {
		lot.ID = uuid.New().String()
	}
	if lot.LotNumber == "" {
		lotNumber, err := r.NextLotNumber(ctx, tx)
		if err != nil {
			return err
		}
		lot.LotNumber = lotNumber
	}

	query := `
		INSERT INTO inventory_lots (
			id, product_id, lot_number, status, source_type, source_lot_id,
			source_document_id, original_quantity, current_quantity, unit,
			unit_cost, spec_value, location, notes, received_at, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	err := tx.QueryRowxContext(ctx, query,
		lot.ID, lot.ProductID, lot.LotNumber, lot.Status, lot.SourceType,
		lot.SourceLotID, lot.SourceDocumentID, lot.OriginalQuantity,
		lot.CurrentQuantity, lot.Unit, lot.UnitCost, lot.SpecValue,
		lot.Location, lot.Notes, lot.ReceivedAt, lot.CreatedBy,
	).Scan(&lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a lot by ID
func (r *LotRepository) GetByID(ctx context.Context, id string) (*Lot, error) {
	var lot Lot
	query := `SELECT * FROM inventory_lots WHERE id = $1`
	if err := r.db.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		return nil, err
	}
	return &lot, nil
}

// GetForUpdate loads a lot and takes its row lock. The bounded lock_timeout
// set by the enclosing ledger transaction turns a long wait into a retryable
// concurrency error.
func (r *LotRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id string) (*Lot, error) {
	var lot Lot
	query := `SELECT * FROM inventory_lots WHERE id = $1 FOR UPDATE`
	if err := tx.GetContext(ctx, &lot, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &lot, nil
}

// ListByProduct lists a product's lots ordered by received_at. An empty
// status lists all lots including terminal ones.
func (r *LotRepository) ListByProduct(ctx context.Context, productID string, status string) ([]*Lot, error) {
	var lots []*Lot

	if status != "" {
		query := `
			SELECT * FROM inventory_lots
			WHERE product_id = $1 AND status = $2
			ORDER BY received_at, created_at
		`
		if err := r.db.SelectContext(ctx, &lots, query, productID, status); err != nil {
			return nil, err
		}
		return lots, nil
	}

	query := `
		SELECT * FROM inventory_lots
		WHERE product_id = $1
		ORDER BY received_at, created_at
	`
	if err := r.db.SelectContext(ctx, &lots, query, productID); err != nil {
		return nil, err
	}
	return lots, nil
}

// ListAvailableForUpdate locks and returns all available lots for a product
// in received_at order. Lock acquisition follows FIFO order so concurrent
// sale decrements against the same product serialize without deadlocking.
func (r *LotRepository) ListAvailableForUpdate(ctx context.Context, tx *sqlx.Tx, productID string) ([]*Lot, error) {
	var lots []*Lot
	query := `
		SELECT * FROM inventory_lots
		WHERE product_id = $1 AND status = 'available'
		ORDER BY received_at, created_at
		FOR UPDATE
	`
	if err := tx.SelectContext(ctx, &lots, query, productID); err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return lots, nil
}

// ApplyQuantity writes a lot's new quantity and status under an already-held
// row lock. The caller computes both from validated domain rules.
func (r *LotRepository) ApplyQuantity(ctx context.Context, tx *sqlx.Tx, id string, quantity decimal.Decimal, status domain.LotStatus) (*Lot, error) {
	var lot Lot
	query := `
		UPDATE inventory_lots
		SET current_quantity = $2, status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	if err := tx.QueryRowxContext(ctx, query, id, quantity, string(status)).StructScan(&lot); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &lot, nil
}

// UpdateStatus writes a lot's status under an already-held row lock.
func (r *LotRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status domain.LotStatus) (*Lot, error) {
	var lot Lot
	query := `
		UPDATE inventory_lots
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING *
	`
	if err := tx.QueryRowxContext(ctx, query, id, string(status)).StructScan(&lot); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("lot")
		}
		if appErr := database.MapPQError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return &lot, nil
}

// GetLineage walks a lot's parent chain up to the root. Lineage is a forest,
// so the walk always terminates at a lot whose source_type is not split.
func (r *LotRepository) GetLineage(ctx context.Context, id string) ([]*Lot, error) {
	var chain []*Lot

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	chain = append(chain, current)

	for current.SourceLotID != nil {
		parent, err := r.GetByID(ctx, *current.SourceLotID)
		if err != nil {
			return nil, err
		}
		chain = append(chain, parent)
		current = parent
	}

	return chain, nil
}
