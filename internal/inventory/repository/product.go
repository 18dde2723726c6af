package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
)

// Product is a read-only view of the product registry. Stock fields are
// never stored here; they are derived from the lot set on every read.
type Product struct {
	ID            string          `db:"id" json:"id"`
	InternalCode  string          `db:"internal_code" json:"internal_code"`
	InternalName  string          `db:"internal_name" json:"internal_name"`
	Unit          string          `db:"unit" json:"unit"`
	Type          string          `db:"type" json:"type"`
	MinStockAlert decimal.Decimal `db:"min_stock_alert" json:"min_stock_alert"`
	IsActive      bool            `db:"is_active" json:"is_active"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// StockAggregate holds the derived stock figures for one product.
type StockAggregate struct {
	CurrentStock      decimal.Decimal `db:"current_stock" json:"current_stock"`
	AvailableQuantity decimal.Decimal `db:"available_quantity" json:"available_quantity"`
	LotCount          int             `db:"lot_count" json:"lot_count"`
}

// SnapshotRow is one line of the inventory export, joining the product
// registry with its derived stock.
type SnapshotRow struct {
	InternalCode  string          `db:"internal_code"`
	InternalName  string          `db:"internal_name"`
	Type          string          `db:"type"`
	Unit          string          `db:"unit"`
	CurrentStock  decimal.Decimal `db:"current_stock"`
	LotCount      int             `db:"lot_count"`
	MinStockAlert decimal.Decimal `db:"min_stock_alert"`
}

// ProductRepository reads the product registry and computes stock aggregates
type ProductRepository struct {
	db *database.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *database.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*Product, error) {
	var product Product
	query := `SELECT * FROM products WHERE id = $1`
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("product")
		}
		return nil, err
	}
	return &product, nil
}

// AggregateStock computes the derived stock figures from the live lot set.
// current_stock sums available and reserved lots, available_quantity sums
// available lots only. The query runs lock-free on a consistent snapshot.
func (r *ProductRepository) AggregateStock(ctx context.Context, productID string) (*StockAggregate, error) {
	var agg StockAggregate
	query := `
		SELECT
			COALESCE(SUM(current_quantity) FILTER (WHERE status IN ('available', 'reserved')), 0) AS current_stock,
			COALESCE(SUM(current_quantity) FILTER (WHERE status = 'available'), 0) AS available_quantity,
			COUNT(*) FILTER (WHERE status IN ('available', 'reserved')) AS lot_count
		FROM inventory_lots
		WHERE product_id = $1
	`
	if err := r.db.GetContext(ctx, &agg, query, productID); err != nil {
		return nil, err
	}
	return &agg, nil
}

// SnapshotRows returns the export rows for all active products with their
// derived stock, ordered by internal code.
func (r *ProductRepository) SnapshotRows(ctx context.Context) ([]*SnapshotRow, error) {
	var rows []*SnapshotRow
	query := `
		SELECT
			p.internal_code,
			p.internal_name,
			p.type,
			p.unit,
			COALESCE(SUM(l.current_quantity) FILTER (WHERE l.status IN ('available', 'reserved')), 0) AS current_stock,
			COUNT(l.id) FILTER (WHERE l.status IN ('available', 'reserved')) AS lot_count,
			p.min_stock_alert
		FROM products p
		LEFT JOIN inventory_lots l ON l.product_id = p.id
		WHERE p.is_active = true
		GROUP BY p.id, p.internal_code, p.internal_name, p.type, p.unit, p.min_stock_alert
		ORDER BY p.internal_code
	`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}
	return rows, nil
}

// FindNegativeQuantities reports lots whose current_quantity has gone
// negative. Read paths use this to log invariant violations without failing.
func (r *ProductRepository) FindNegativeQuantities(ctx context.Context, productID string) ([]string, error) {
	var ids []string
	query := `SELECT id FROM inventory_lots WHERE product_id = $1 AND current_quantity < 0`
	if err := r.db.SelectContext(ctx, &ids, query, productID); err != nil {
		return nil, err
	}
	return ids, nil
}
