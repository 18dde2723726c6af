// Package events wires the lot ledger's outbound events onto the inventory
// exchange. Publishing is best effort: a broker outage must never fail the
// mutation that produced the event.
package events

import (
	"context"

	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// LotEventPublisher publishes lot lifecycle events to the inventory exchange.
type LotEventPublisher struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewLotEventPublisher creates a publisher bound to the inventory events
// exchange.
func NewLotEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*LotEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangeInventoryEvents, "inventory-service", log)
	if err != nil {
		return nil, err
	}

	return &LotEventPublisher{
		publisher: publisher,
		logger:    log.WithComponent("lot_event_publisher"),
	}, nil
}

// Publish publishes a lot event with the event type as routing key.
func (p *LotEventPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	return p.publisher.Publish(ctx, eventType, payload)
}
