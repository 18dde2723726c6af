package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/internal/inventory/repository"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// Document types that move stock.
const (
	DocumentTypeOrder    = "order"    // inbound purchase
	DocumentTypeEstimate = "estimate" // outbound sale
)

// DocumentService translates completed trade documents into ledger
// mutations: orders become inbound lots, estimates become FIFO decrements.
// Each document item is applied in its own ledger transaction together with
// its idempotency marker, so a repeat delivery is a no-op and a failed item
// never leaves partial state behind.
type DocumentService struct {
	db        *database.DB
	lots      *repository.LotRepository
	ledger    *repository.LotTransactionRepository
	processed *repository.ProcessedItemRepository
	products  *repository.ProductRepository
	stock     *StockService
	publisher EventPublisher
	logger    *logger.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	db *database.DB,
	lots *repository.LotRepository,
	ledger *repository.LotTransactionRepository,
	processed *repository.ProcessedItemRepository,
	products *repository.ProductRepository,
	stock *StockService,
	publisher EventPublisher,
	log *logger.Logger,
) *DocumentService {
	return &DocumentService{
		db:        db,
		lots:      lots,
		ledger:    ledger,
		processed: processed,
		products:  products,
		stock:     stock,
		publisher: publisher,
		logger:    log.WithComponent("document_service"),
	}
}

// OnDocumentCompleted applies a completed document's items to the ledger.
// Items are processed independently: an insufficient-stock failure on one
// item does not roll back items already applied, and the failed item itself
// leaves no partial mutation. The error for the first failed item is
// returned after all items have been attempted.
func (s *DocumentService) OnDocumentCompleted(ctx context.Context, evt *messaging.DocumentCompletedEvent) error {
	if evt.DocumentType != DocumentTypeOrder && evt.DocumentType != DocumentTypeEstimate {
		return errors.Validation(map[string]string{
			"document_type": "must be one of: order, estimate",
		})
	}
	if len(evt.Items) == 0 {
		return errors.Validation(map[string]string{"items": "must not be empty"})
	}

	var firstErr error
	for _, item := range evt.Items {
		var err error
		switch evt.DocumentType {
		case DocumentTypeOrder:
			err = s.applyInboundItem(ctx, evt, item)
		case DocumentTypeEstimate:
			err = s.applyOutboundItem(ctx, evt, item)
		}
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("document_id", evt.DocumentID).
				Str("item_id", item.ItemID).
				Msg("failed to apply document item")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// applyInboundItem creates a fresh purchase lot for one order item. The
// idempotency marker and the lot insert commit together.
func (s *DocumentService) applyInboundItem(ctx context.Context, evt *messaging.DocumentCompletedEvent, item messaging.DocumentCompletedItem) error {
	quantity, err := decimal.NewFromString(item.Quantity)
	if err != nil || quantity.LessThanOrEqual(decimal.Zero) {
		return errors.Validation(map[string]string{"quantity": "must be a positive decimal"})
	}

	product, err := s.products.GetByID(ctx, item.ProductID)
	if err != nil {
		return err
	}

	// A zero completed_at would sort the lot first in every FIFO plan.
	receivedAt := evt.CompletedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	createdBy := evt.CompletedBy
	lot := &repository.Lot{
		ProductID:        item.ProductID,
		Status:           string(domain.StatusAvailable),
		SourceType:       string(domain.SourcePurchase),
		SourceDocumentID: &evt.DocumentID,
		OriginalQuantity: quantity,
		CurrentQuantity:  quantity,
		Unit:             product.Unit,
		ReceivedAt:       receivedAt,
		CreatedBy:        createdBy,
	}
	if item.Unit != "" {
		lot.Unit = item.Unit
	}
	if item.UnitPrice != nil {
		if cost, err := decimal.NewFromString(*item.UnitPrice); err == nil {
			lot.UnitCost = &cost
		}
	}
	if item.SpecValue != "" {
		lot.SpecValue = &item.SpecValue
	}
	if item.Location != "" {
		lot.Location = &item.Location
	}

	duplicate := false
	err = s.db.LedgerTransaction(ctx, func(tx *sqlx.Tx) error {
		inserted, err := s.processed.TryMark(ctx, tx, evt.DocumentID, item.ItemID)
		if err != nil {
			return err
		}
		if !inserted {
			duplicate = true
			return nil
		}

		if err := s.lots.Create(ctx, tx, lot); err != nil {
			return err
		}

		entry := repository.NewEntry(lot.ID, domain.TxInbound, decimal.Zero, quantity, createdBy)
		entry.DocumentID = &evt.DocumentID
		return s.ledger.Record(ctx, tx, entry)
	})
	if err != nil {
		return err
	}

	if duplicate {
		s.logger.Info().
			Str("document_id", evt.DocumentID).
			Str("item_id", item.ItemID).
			Msg("document item already processed, skipping")
		return nil
	}

	s.publish(ctx, messaging.EventLotCreated, messaging.LotCreatedEvent{
		LotID:      lot.ID,
		LotNumber:  lot.LotNumber,
		ProductID:  lot.ProductID,
		Quantity:   quantity.String(),
		Unit:       lot.Unit,
		SourceType: lot.SourceType,
		DocumentID: evt.DocumentID,
		CreatedBy:  createdBy,
	})

	return nil
}

// applyOutboundItem decrements a product's available lots FIFO by
// received_at for one estimate item. The plan is computed over the locked
// lot set, so the quantities it was validated against cannot move before
// they are applied. All-or-nothing: insufficient total stock fails the item
// with no mutation at all.
func (s *DocumentService) applyOutboundItem(ctx context.Context, evt *messaging.DocumentCompletedEvent, item messaging.DocumentCompletedItem) error {
	required, err := decimal.NewFromString(item.Quantity)
	if err != nil || required.LessThanOrEqual(decimal.Zero) {
		return errors.Validation(map[string]string{"quantity": "must be a positive decimal"})
	}

	if _, err := s.products.GetByID(ctx, item.ProductID); err != nil {
		return err
	}

	duplicate := false
	err = s.db.LedgerTransaction(ctx, func(tx *sqlx.Tx) error {
		inserted, err := s.processed.TryMark(ctx, tx, evt.DocumentID, item.ItemID)
		if err != nil {
			return err
		}
		if !inserted {
			duplicate = true
			return nil
		}

		// Lock all candidates up front in FIFO order, then plan against
		// the locked quantities.
		candidates, err := s.lots.ListAvailableForUpdate(ctx, tx, item.ProductID)
		if err != nil {
			return err
		}

		planInput := make([]domain.AllocationCandidate, 0, len(candidates))
		byID := make(map[string]*repository.Lot, len(candidates))
		for _, lot := range candidates {
			planInput = append(planInput, domain.AllocationCandidate{
				LotID:      lot.ID,
				Quantity:   lot.CurrentQuantity,
				ReceivedAt: lot.ReceivedAt,
			})
			byID[lot.ID] = lot
		}

		plan, err := domain.PlanFIFO(planInput, required)
		if err != nil {
			return err
		}

		for _, alloc := range plan {
			lot := byID[alloc.LotID]
			newQuantity := lot.CurrentQuantity.Sub(alloc.Delta)
			if newQuantity.IsNegative() {
				return errors.Concurrency(fmt.Sprintf("lot %s changed during allocation", lot.ID))
			}

			newStatus := domain.LotStatus(lot.Status)
			if newQuantity.IsZero() {
				newStatus = domain.StatusDepleted
			}

			if _, err := s.lots.ApplyQuantity(ctx, tx, lot.ID, newQuantity, newStatus); err != nil {
				return err
			}

			entry := repository.NewEntry(lot.ID, domain.TxOutbound, lot.CurrentQuantity, newQuantity, evt.CompletedBy)
			entry.DocumentID = &evt.DocumentID
			if err := s.ledger.Record(ctx, tx, entry); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	if duplicate {
		s.logger.Info().
			Str("document_id", evt.DocumentID).
			Str("item_id", item.ItemID).
			Msg("document item already processed, skipping")
		return nil
	}

	s.stock.EvaluateLowStock(ctx, item.ProductID)

	s.logger.Info().
		Str("document_id", evt.DocumentID).
		Str("item_id", item.ItemID).
		Str("product_id", item.ProductID).
		Str("quantity", required.String()).
		Msg("outbound stock decremented")

	return nil
}

func (s *DocumentService) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
