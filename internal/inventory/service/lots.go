package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/internal/inventory/repository"
	"github.com/stocklot/stocklot-backend/pkg/actor"
	"github.com/stocklot/stocklot-backend/pkg/database"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// EventPublisher publishes domain events. Publish failures are logged and
// never fail the mutation that triggered them.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// LotService owns every write path of the lot ledger: creation, quantity
// adjustment, status transitions, scrapping, and splitting. All mutations run
// as single ledger transactions with row locks on the affected lots.
type LotService struct {
	db        *database.DB
	lots      *repository.LotRepository
	splits    *repository.SplitRepository
	ledger    *repository.LotTransactionRepository
	products  *repository.ProductRepository
	stock     *StockService
	publisher EventPublisher
	logger    *logger.Logger
}

// NewLotService creates a new lot service
func NewLotService(
	db *database.DB,
	lots *repository.LotRepository,
	splits *repository.SplitRepository,
	ledger *repository.LotTransactionRepository,
	products *repository.ProductRepository,
	stock *StockService,
	publisher EventPublisher,
	log *logger.Logger,
) *LotService {
	return &LotService{
		db:        db,
		lots:      lots,
		splits:    splits,
		ledger:    ledger,
		products:  products,
		stock:     stock,
		publisher: publisher,
		logger:    log.WithComponent("lot_service"),
	}
}

// CreateLotInput describes a new inbound lot.
type CreateLotInput struct {
	ProductID  string
	Quantity   decimal.Decimal
	SourceType domain.SourceType
	Location   string
	SpecValue  string
	Notes      string
	UnitCost   *decimal.Decimal
	DocumentID string
	ReceivedAt time.Time
}

// CreateLot creates a fresh full-quantity lot for a product.
func (s *LotService) CreateLot(ctx context.Context, input CreateLotInput) (*repository.Lot, error) {
	if input.Quantity.LessThanOrEqual(decimal.Zero) {
		return nil, errors.Validation(map[string]string{"quantity": "must be positive"})
	}
	if !input.SourceType.Valid() || input.SourceType == domain.SourceSplit {
		return nil, errors.Validation(map[string]string{"source_type": "must be one of: purchase, production, adjustment"})
	}

	product, err := s.products.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	receivedAt := input.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	createdBy := actor.IDFromContext(ctx)
	lot := &repository.Lot{
		ProductID:        input.ProductID,
		Status:           string(domain.StatusAvailable),
		SourceType:       string(input.SourceType),
		OriginalQuantity: input.Quantity,
		CurrentQuantity:  input.Quantity,
		Unit:             product.Unit,
		UnitCost:         input.UnitCost,
		ReceivedAt:       receivedAt,
		CreatedBy:        createdBy,
	}
	if input.Location != "" {
		lot.Location = &input.Location
	}
	if input.SpecValue != "" {
		lot.SpecValue = &input.SpecValue
	}
	if input.Notes != "" {
		lot.Notes = &input.Notes
	}
	if input.DocumentID != "" {
		lot.SourceDocumentID = &input.DocumentID
	}

	err = s.db.LedgerTransaction(ctx, func(tx *sqlx.Tx) error {
		if err := s.lots.Create(ctx, tx, lot); err != nil {
			return err
		}

		entry := repository.NewEntry(lot.ID, domain.TxInbound, decimal.Zero, lot.CurrentQuantity, createdBy)
		entry.DocumentID = lot.SourceDocumentID
		return s.ledger.Record(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventLotCreated, messaging.LotCreatedEvent{
		LotID:      lot.ID,
		LotNumber:  lot.LotNumber,
		ProductID:  lot.ProductID,
		Quantity:   lot.CurrentQuantity.String(),
		Unit:       lot.Unit,
		SourceType: lot.SourceType,
		DocumentID: input.DocumentID,
		CreatedBy:  createdBy,
	})

	s.logger.Info().
		Str("lot_id", lot.ID).
		Str("lot_number", lot.LotNumber).
		Str("product_id", lot.ProductID).
		Str("quantity", lot.CurrentQuantity.String()).
		Msg("lot created")

	return lot, nil
}

// AdjustQuantity applies a signed delta to a lot's current quantity with a
// mandatory reason. The lot must be in available or reserved status; the
// result must stay within [0, original_quantity].
func (s *LotService) AdjustQuantity(ctx context.Context, lotID string, delta decimal.Decimal, reason string) (*repository.Lot, error) {
	if delta.IsZero() {
		return nil, errors.Validation(map[string]string{"delta": "must be non-zero"})
	}
	if reason == "" {
		return nil, errors.Validation(map[string]string{"reason": "is required"})
	}

	actorID := actor.IDFromContext(ctx)
	var updated *repository.Lot

	err := s.db.LedgerTransaction(ctx, func(tx *sqlx.Tx) error {
		lot, err := s.lots.GetForUpdate(ctx, tx, lotID)
		if err != nil {
			return err
		}

		status := domain.LotStatus(lot.Status)
		if status.Terminal() {
			return errors.TerminalState(lot.Status)
		}

		newQuantity := lot.CurrentQuantity.Add(delta)
		if newQuantity.IsNegative() {
			return errors.InsufficientQuantity(delta.Neg().String(), lot.CurrentQuantity.String())
		}
		if newQuantity.GreaterThan(lot.OriginalQuantity) {
			return errors.Validation(map[string]string{
				"delta": "adjustment would exceed the lot's original quantity",
			})
		}

		newStatus := status
		if newQuantity.IsZero() {
			newStatus = domain.StatusDepleted
		}

		updated, err = s.lots.ApplyQuantity(ctx, tx, lot.ID, newQuantity, newStatus)
		if err != nil {
			return err
		}

		entry := repository.NewEntry(lot.ID, domain.TxAdjust, lot.CurrentQuantity, newQuantity, actorID)
		entry.Notes = &reason
		return s.ledger.Record(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventStockAdjusted, messaging.StockAdjustedEvent{
		LotID:       updated.ID,
		ProductID:   updated.ProductID,
		Delta:       delta.String(),
		NewQuantity: updated.CurrentQuantity.String(),
		Reason:      reason,
		PerformedBy: actorID,
	})

	s.stock.EvaluateLowStock(ctx, updated.ProductID)

	return updated, nil
}

// SetStatus moves a lot along the transition table. Reservation and release
// are driven mechanically by external callers through this entry point.
// Depleted and split are quantity-driven states: they are only reachable here
// once the lot's current quantity is already zero.
func (s *LotService) SetStatus(ctx context.Context, lotID string, target domain.LotStatus, reason string) (*repository.Lot, error) {
	if !target.Valid() {
		return nil, errors.Validation(map[string]string{"status": "unknown status"})
	}

	actorID := actor.IDFromContext(ctx)
	var updated *repository.Lot

	err := s.db.LedgerTransaction(ctx, func(tx *sqlx.Tx) error {
		lot, err := s.lots.GetForUpdate(ctx, tx, lotID)
		if err != nil {
			return err
		}

		from := domain.LotStatus(lot.Status)
		if !domain.CanTransition(from, target) {
			return errors.InvalidStateTransition(lot.Status, string(target))
		}
		if (target == domain.StatusDepleted || target == domain.StatusSplit) && !lot.CurrentQuantity.IsZero() {
			return errors.Conflict(fmt.Sprintf(
				"lot still holds %s and cannot be marked %s; the quantity must reach zero first",
				lot.CurrentQuantity.String(), target,
			))
		}

		updated, err = s.lots.UpdateStatus(ctx, tx, lot.ID, target)
		if err != nil {
			return err
		}

		txType, ok := statusAuditType(from, target)
		if !ok {
			return nil
		}
		entry := repository.NewEntry(lot.ID, txType, lot.CurrentQuantity, lot.CurrentQuantity, actorID)
		if reason != "" {
			entry.Notes = &reason
		}
		return s.ledger.Record(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("lot_id", updated.ID).
		Str("status", updated.Status).
		Msg("lot status changed")

	return updated, nil
}

// statusAuditType maps a status transition to its audit entry type. Not
// every transition is audited as a standalone entry; quantity-driven ones
// are recorded by their quantity mutation instead.
func statusAuditType(from, to domain.LotStatus) (domain.TransactionType, bool) {
	switch {
	case to == domain.StatusReserved:
		return domain.TxReserve, true
	case from == domain.StatusReserved && to == domain.StatusAvailable:
		return domain.TxUnreserve, true
	case to == domain.StatusScrapped:
		return domain.TxScrap, true
	}
	return "", false
}

// Scrap disposes of a lot with a mandatory reason. The written-off quantity
// leaves the product's derived stock immediately.
func (s *LotService) Scrap(ctx context.Context, lotID string, reason string) (*repository.Lot, error) {
	if reason == "" {
		return nil, errors.Validation(map[string]string{"reason": "is required"})
	}

	actorID := actor.IDFromContext(ctx)
	var updated *repository.Lot
	var writtenOff decimal.Decimal

	err := s.db.LedgerTransaction(ctx, func(tx *sqlx.Tx) error {
		lot, err := s.lots.GetForUpdate(ctx, tx, lotID)
		if err != nil {
			return err
		}

		from := domain.LotStatus(lot.Status)
		if !domain.CanTransition(from, domain.StatusScrapped) {
			if from.Terminal() {
				return errors.TerminalState(lot.Status)
			}
			return errors.InvalidStateTransition(lot.Status, string(domain.StatusScrapped))
		}

		writtenOff = lot.CurrentQuantity
		updated, err = s.lots.UpdateStatus(ctx, tx, lot.ID, domain.StatusScrapped)
		if err != nil {
			return err
		}

		entry := repository.NewEntry(lot.ID, domain.TxScrap, lot.CurrentQuantity, lot.CurrentQuantity, actorID)
		entry.Notes = &reason
		return s.ledger.Record(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventLotScrapped, messaging.LotScrappedEvent{
		LotID:      updated.ID,
		ProductID:  updated.ProductID,
		Quantity:   writtenOff.String(),
		Reason:     reason,
		ScrappedBy: actorID,
	})

	s.stock.EvaluateLowStock(ctx, updated.ProductID)

	s.logger.Info().
		Str("lot_id", updated.ID).
		Str("reason", reason).
		Msg("lot scrapped")

	return updated, nil
}

// GetLot returns a single lot.
func (s *LotService) GetLot(ctx context.Context, lotID string) (*repository.Lot, error) {
	return s.lots.GetByID(ctx, lotID)
}

// GetLotHistory returns a lot's audit ledger entries, oldest first.
func (s *LotService) GetLotHistory(ctx context.Context, lotID string) ([]*repository.LotTransaction, error) {
	if _, err := s.lots.GetByID(ctx, lotID); err != nil {
		return nil, err
	}
	return s.ledger.ListByLot(ctx, lotID)
}

// GetLotLineage returns the lot's parent chain up to its root.
func (s *LotService) GetLotLineage(ctx context.Context, lotID string) ([]*repository.Lot, error) {
	return s.lots.GetLineage(ctx, lotID)
}

// GetSplitHistory returns the split records for a parent lot.
func (s *LotService) GetSplitHistory(ctx context.Context, lotID string) ([]*repository.SplitRecord, error) {
	if _, err := s.lots.GetByID(ctx, lotID); err != nil {
		return nil, err
	}
	return s.splits.ListBySourceLot(ctx, lotID)
}

func (s *LotService) publish(ctx context.Context, eventType string, payload interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event_type", eventType).Msg("failed to publish event")
	}
}
