// Package domain holds the pure ledger rules: the lot state machine, the
// FIFO allocation planner, and stock classification. Nothing in here touches
// a datastore, so every rule is testable in isolation.
package domain

import (
	"github.com/shopspring/decimal"
)

// LotStatus is the lifecycle state of an inventory lot.
type LotStatus string

const (
	StatusAvailable LotStatus = "available"
	StatusReserved  LotStatus = "reserved"
	StatusSplit     LotStatus = "split"
	StatusDepleted  LotStatus = "depleted"
	StatusScrapped  LotStatus = "scrapped"
)

// Valid reports whether s is a known lot status.
func (s LotStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSplit, StatusDepleted, StatusScrapped:
		return true
	}
	return false
}

// Terminal reports whether s rejects all further quantity changes.
// Reads remain available in terminal states.
func (s LotStatus) Terminal() bool {
	switch s {
	case StatusSplit, StatusDepleted, StatusScrapped:
		return true
	}
	return false
}

// CountsTowardStock reports whether a lot in this status contributes to a
// product's current_stock.
func (s LotStatus) CountsTowardStock() bool {
	return s == StatusAvailable || s == StatusReserved
}

type transition struct {
	from LotStatus
	to   LotStatus
}

// allowedTransitions is the closed edge set of the lot state machine.
// Everything not listed here is rejected.
var allowedTransitions = map[transition]bool{
	{StatusAvailable, StatusReserved}: true,
	{StatusReserved, StatusAvailable}: true,
	{StatusAvailable, StatusSplit}:    true,
	{StatusAvailable, StatusDepleted}: true,
	{StatusReserved, StatusDepleted}:  true,
	{StatusAvailable, StatusScrapped}: true,
	{StatusReserved, StatusScrapped}:  true,
	{StatusDepleted, StatusScrapped}:  true,
}

// CanTransition reports whether moving a lot from one status to another is
// an allowed edge.
func CanTransition(from, to LotStatus) bool {
	return allowedTransitions[transition{from, to}]
}

// SourceType records how a lot came into existence.
type SourceType string

const (
	SourcePurchase   SourceType = "purchase"
	SourceProduction SourceType = "production"
	SourceAdjustment SourceType = "adjustment"
	SourceSplit      SourceType = "split"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourcePurchase, SourceProduction, SourceAdjustment, SourceSplit:
		return true
	}
	return false
}

// TransactionType classifies an entry in the per-lot audit ledger.
type TransactionType string

const (
	TxInbound   TransactionType = "inbound"
	TxOutbound  TransactionType = "outbound"
	TxAdjust    TransactionType = "adjust"
	TxSplitOut  TransactionType = "split_out"
	TxReserve   TransactionType = "reserve"
	TxUnreserve TransactionType = "unreserve"
	TxScrap     TransactionType = "scrap"
)

// StockClassification is the derived stock level bucket for a product.
type StockClassification string

const (
	StockOutOfStock StockClassification = "out_of_stock"
	StockLow        StockClassification = "low"
	StockNormal     StockClassification = "normal"
)

// ClassifyStock buckets a product's derived current_stock against its
// minimum stock threshold. The classification is computed on read and never
// persisted.
func ClassifyStock(currentStock, minStockAlert decimal.Decimal) StockClassification {
	if currentStock.LessThanOrEqual(decimal.Zero) {
		return StockOutOfStock
	}
	if minStockAlert.GreaterThan(decimal.Zero) && currentStock.LessThan(minStockAlert) {
		return StockLow
	}
	return StockNormal
}
