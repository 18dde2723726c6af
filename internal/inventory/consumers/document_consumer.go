package consumers

import (
	"context"

	"github.com/stocklot/stocklot-backend/internal/inventory/service"
	"github.com/stocklot/stocklot-backend/pkg/actor"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// DocumentEventConsumer consumes document workflow events and feeds completed
// documents into the ledger. Idempotency markers make redeliveries safe.
type DocumentEventConsumer struct {
	consumer  *messaging.Consumer
	documents *service.DocumentService
	logger    *logger.Logger
}

// NewDocumentEventConsumer creates a new document event consumer
func NewDocumentEventConsumer(rmq *messaging.RabbitMQ, documents *service.DocumentService, log *logger.Logger) (*DocumentEventConsumer, error) {
	consumer, err := messaging.NewConsumer(rmq, "inventory-service.document-events", log)
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(messaging.ExchangeDocumentEvents, "document.#"); err != nil {
		return nil, err
	}

	c := &DocumentEventConsumer{
		consumer:  consumer,
		documents: documents,
		logger:    log,
	}

	consumer.RegisterHandler(messaging.EventDocumentCompleted, c.handleDocumentCompleted)

	return c, nil
}

// Start starts consuming messages
func (c *DocumentEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

func (c *DocumentEventConsumer) handleDocumentCompleted(ctx context.Context, event *messaging.Event) error {
	var data messaging.DocumentCompletedEvent
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	c.logger.Info().
		Str("document_id", data.DocumentID).
		Str("document_type", data.DocumentType).
		Int("items", len(data.Items)).
		Msg("received document completed event")

	ctx = actor.WithActor(ctx, actor.SystemActor())
	return c.documents.OnDocumentCompleted(ctx, &data)
}
