package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Document workflow events (consumed)
	EventDocumentCompleted = "document.completed"

	// Lot lifecycle events (published)
	EventLotCreated    = "inventory.lot.created"
	EventLotSplit      = "inventory.lot.split"
	EventLotScrapped   = "inventory.lot.scrapped"
	EventStockAdjusted = "inventory.stock.adjusted"
	EventStockLow      = "inventory.stock.low"
)

// Exchange names
const (
	ExchangeDocumentEvents  = "document.events"
	ExchangeInventoryEvents = "inventory.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            uuid.New().String(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// Document events (consumed from the document workflow service)

// DocumentCompletedEvent is received when a document transitions to completed.
// Orders produce inbound lots; estimates consume stock FIFO.
type DocumentCompletedEvent struct {
	DocumentID   string                  `json:"document_id"`
	DocumentType string                  `json:"document_type"` // order | estimate
	CompletedBy  string                  `json:"completed_by"`
	CompletedAt  time.Time               `json:"completed_at"`
	Items        []DocumentCompletedItem `json:"items"`
}

// DocumentCompletedItem is a single line item on a completed document.
type DocumentCompletedItem struct {
	ItemID    string  `json:"item_id"`
	ProductID string  `json:"product_id"`
	Quantity  string  `json:"quantity"` // decimal string
	Unit      string  `json:"unit"`
	UnitPrice *string `json:"unit_price,omitempty"`
	SpecValue string  `json:"spec_value,omitempty"`
	Location  string  `json:"location,omitempty"`
}

// Inventory events (published)

// LotCreatedEvent is published when a new lot enters the ledger.
type LotCreatedEvent struct {
	LotID      string `json:"lot_id"`
	LotNumber  string `json:"lot_number"`
	ProductID  string `json:"product_id"`
	Quantity   string `json:"quantity"`
	Unit       string `json:"unit"`
	SourceType string `json:"source_type"`
	DocumentID string `json:"document_id,omitempty"`
	CreatedBy  string `json:"created_by"`
}

// LotSplitEvent is published when a lot is split into children.
type LotSplitEvent struct {
	SourceLotID string   `json:"source_lot_id"`
	ChildLotIDs []string `json:"child_lot_ids"`
	Quantities  []string `json:"quantities"`
	SplitBy     string   `json:"split_by"`
}

// LotScrappedEvent is published when a lot is scrapped.
type LotScrappedEvent struct {
	LotID      string `json:"lot_id"`
	ProductID  string `json:"product_id"`
	Quantity   string `json:"quantity"` // quantity written off
	Reason     string `json:"reason"`
	ScrappedBy string `json:"scrapped_by"`
}

// StockAdjustedEvent is published when a lot quantity changes outside of
// creation and splitting.
type StockAdjustedEvent struct {
	LotID       string `json:"lot_id"`
	ProductID   string `json:"product_id"`
	Delta       string `json:"delta"`
	NewQuantity string `json:"new_quantity"`
	Reason      string `json:"reason"`
	PerformedBy string `json:"performed_by"`
}

// StockLowEvent is published when a mutation leaves a product below its
// minimum stock threshold.
type StockLowEvent struct {
	ProductID     string `json:"product_id"`
	InternalCode  string `json:"internal_code"`
	CurrentStock  string `json:"current_stock"`
	MinStockAlert string `json:"min_stock_alert"`
}
