package service

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/internal/inventory/repository"
	"github.com/stocklot/stocklot-backend/pkg/actor"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// Split divides a source lot into one or more child lots as one atomic unit.
// The withdrawn quantity exactly equals the sum of the children's original
// quantities; a split that empties the source flips it to the split status
// and it becomes a pure lineage node.
func (s *LotService) Split(ctx context.Context, sourceLotID string, allocations []domain.SplitAllocation) ([]*repository.Lot, error) {
	actorID := actor.IDFromContext(ctx)

	var children []*repository.Lot
	var record *repository.SplitRecord

	err := s.db.LedgerTransaction(ctx, func(tx *sqlx.Tx) error {
		source, err := s.lots.GetForUpdate(ctx, tx, sourceLotID)
		if err != nil {
			return err
		}

		total, err := domain.ValidateSplit(domain.LotStatus(source.Status), source.CurrentQuantity, allocations)
		if err != nil {
			return err
		}

		remainder := source.CurrentQuantity.Sub(total)
		newStatus := domain.StatusAvailable
		if remainder.IsZero() {
			newStatus = domain.StatusSplit
		}

		if _, err := s.lots.ApplyQuantity(ctx, tx, source.ID, remainder, newStatus); err != nil {
			return err
		}

		parentEntry := repository.NewEntry(source.ID, domain.TxSplitOut, source.CurrentQuantity, remainder, actorID)
		if err := s.ledger.Record(ctx, tx, parentEntry); err != nil {
			return err
		}

		childIDs := make(pq.StringArray, 0, len(allocations))
		quantities := make(pq.StringArray, 0, len(allocations))
		children = make([]*repository.Lot, 0, len(allocations))

		for _, alloc := range allocations {
			child := &repository.Lot{
				ProductID:        source.ProductID,
				Status:           string(domain.StatusAvailable),
				SourceType:       string(domain.SourceSplit),
				SourceLotID:      &source.ID,
				SourceDocumentID: source.SourceDocumentID,
				OriginalQuantity: alloc.Quantity,
				CurrentQuantity:  alloc.Quantity,
				Unit:             source.Unit,
				UnitCost:         source.UnitCost,
				SpecValue:        source.SpecValue,
				Location:         source.Location,
				ReceivedAt:       source.ReceivedAt,
				CreatedBy:        actorID,
			}
			// Per-allocation overrides
			if alloc.Location != "" {
				loc := alloc.Location
				child.Location = &loc
			}
			if alloc.SpecValue != "" {
				spec := alloc.SpecValue
				child.SpecValue = &spec
			}

			if err := s.lots.Create(ctx, tx, child); err != nil {
				return err
			}

			childEntry := repository.NewEntry(child.ID, domain.TxInbound, decimal.Zero, child.CurrentQuantity, actorID)
			if err := s.ledger.Record(ctx, tx, childEntry); err != nil {
				return err
			}

			children = append(children, child)
			childIDs = append(childIDs, child.ID)
			quantities = append(quantities, alloc.Quantity.String())
		}

		record = &repository.SplitRecord{
			SourceLotID: source.ID,
			ChildLotIDs: childIDs,
			Quantities:  quantities,
			SplitBy:     actorID,
		}
		return s.splits.Create(ctx, tx, record)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, messaging.EventLotSplit, messaging.LotSplitEvent{
		SourceLotID: sourceLotID,
		ChildLotIDs: record.ChildLotIDs,
		Quantities:  record.Quantities,
		SplitBy:     actorID,
	})

	s.logger.Info().
		Str("source_lot_id", sourceLotID).
		Int("children", len(children)).
		Msg("lot split")

	return children, nil
}
