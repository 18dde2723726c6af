package testutil

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InventoryMigrations returns the DDL statements for the inventory schema,
// in dependency order.
func InventoryMigrations() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS lot_number_seq`,

		`CREATE TABLE IF NOT EXISTS products (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			internal_code VARCHAR(50) UNIQUE NOT NULL,
			internal_name VARCHAR(255) NOT NULL,
			unit VARCHAR(20) NOT NULL,
			type VARCHAR(50) NOT NULL DEFAULT 'raw_material',
			min_stock_alert NUMERIC(14,3) NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS inventory_lots (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			product_id UUID NOT NULL REFERENCES products(id),
			lot_number VARCHAR(50) UNIQUE NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'available',
			source_type VARCHAR(20) NOT NULL,
			source_lot_id UUID REFERENCES inventory_lots(id),
			source_document_id UUID,
			original_quantity NUMERIC(14,3) NOT NULL,
			current_quantity NUMERIC(14,3) NOT NULL,
			unit VARCHAR(20) NOT NULL,
			unit_cost NUMERIC(14,4),
			spec_value VARCHAR(100),
			location VARCHAR(100),
			notes TEXT,
			received_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT lot_quantity_non_negative CHECK (current_quantity >= 0),
			CONSTRAINT lot_original_positive CHECK (original_quantity > 0),
			CONSTRAINT lot_status_valid CHECK (status IN ('available','reserved','split','depleted','scrapped')),
			CONSTRAINT lot_source_type_valid CHECK (source_type IN ('purchase','production','adjustment','split'))
		)`,

		`CREATE INDEX IF NOT EXISTS idx_lots_product_status
			ON inventory_lots (product_id, status)`,

		`CREATE INDEX IF NOT EXISTS idx_lots_received_at
			ON inventory_lots (product_id, received_at)`,

		`CREATE TABLE IF NOT EXISTS lot_splits (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			source_lot_id UUID NOT NULL REFERENCES inventory_lots(id),
			child_lot_ids UUID[] NOT NULL,
			quantities NUMERIC(14,3)[] NOT NULL,
			split_by UUID NOT NULL,
			split_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS lot_transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lot_id UUID NOT NULL REFERENCES inventory_lots(id),
			transaction_type VARCHAR(20) NOT NULL,
			quantity NUMERIC(14,3) NOT NULL,
			quantity_before NUMERIC(14,3) NOT NULL,
			quantity_after NUMERIC(14,3) NOT NULL,
			document_id UUID,
			notes TEXT,
			created_by UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT lot_tx_type_valid CHECK (transaction_type IN
				('inbound','outbound','adjust','split_out','reserve','unreserve','scrap'))
		)`,

		`CREATE INDEX IF NOT EXISTS idx_lot_transactions_lot
			ON lot_transactions (lot_id, created_at)`,

		`CREATE TABLE IF NOT EXISTS processed_document_items (
			document_id UUID NOT NULL,
			item_id UUID NOT NULL,
			processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (document_id, item_id)
		)`,
	}
}

// ApplyMigrations runs the given DDL statements against the database.
func ApplyMigrations(ctx context.Context, db *sqlx.DB, migrations []string) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, err)
		}
	}
	return nil
}
