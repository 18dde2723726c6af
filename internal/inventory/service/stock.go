package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/internal/inventory/repository"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// StockService is the read side of the ledger. Every figure it returns is
// derived from the live lot set; nothing here is authoritative state, so a
// recompute is always a full rebuild, never a counter repair.
type StockService struct {
	lots      *repository.LotRepository
	products  *repository.ProductRepository
	publisher EventPublisher
	logger    *logger.Logger
}

// NewStockService creates a new stock service
func NewStockService(
	lots *repository.LotRepository,
	products *repository.ProductRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *StockService {
	return &StockService{
		lots:      lots,
		products:  products,
		publisher: publisher,
		logger:    log.WithComponent("stock_service"),
	}
}

// StockSummary is the derived stock view for one product.
type StockSummary struct {
	ProductID         string                     `json:"product_id"`
	CurrentStock      decimal.Decimal            `json:"current_stock"`
	AvailableQuantity decimal.Decimal            `json:"available_quantity"`
	LotCount          int                        `json:"lot_count"`
	Classification    domain.StockClassification `json:"status_classification"`
}

// GetProductStockSummary computes a product's stock figures from its lot
// set. Detected invariant violations (negative quantities) are logged as
// warnings; the read still returns best-effort values.
func (s *StockService) GetProductStockSummary(ctx context.Context, productID string) (*StockSummary, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	agg, err := s.products.AggregateStock(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.warnOnNegativeQuantities(ctx, productID)

	return &StockSummary{
		ProductID:         productID,
		CurrentStock:      agg.CurrentStock,
		AvailableQuantity: agg.AvailableQuantity,
		LotCount:          agg.LotCount,
		Classification:    domain.ClassifyStock(agg.CurrentStock, product.MinStockAlert),
	}, nil
}

// ListLotsByProduct lists a product's lots ordered by received_at, with an
// optional status filter so façades can exclude terminal lineage nodes.
func (s *StockService) ListLotsByProduct(ctx context.Context, productID string, status string) ([]*repository.Lot, error) {
	if status != "" && !domain.LotStatus(status).Valid() {
		return nil, errors.Validation(map[string]string{"status": "unknown status filter"})
	}
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.lots.ListByProduct(ctx, productID, status)
}

// ExportInventorySnapshot writes the current stock of every active product
// as CSV rows for offline reporting.
func (s *StockService) ExportInventorySnapshot(ctx context.Context, w io.Writer) error {
	rows, err := s.products.SnapshotRows(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{"code", "name", "type", "unit", "current_stock", "lot_count", "min_stock_alert", "status_classification"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, row := range rows {
		classification := domain.ClassifyStock(row.CurrentStock, row.MinStockAlert)
		record := []string{
			row.InternalCode,
			row.InternalName,
			row.Type,
			row.Unit,
			row.CurrentStock.String(),
			strconv.Itoa(row.LotCount),
			row.MinStockAlert.String(),
			string(classification),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// EvaluateLowStock recomputes a product's classification after a mutation
// and publishes a low-stock event when it falls below its threshold. Best
// effort: failures are logged, never propagated.
func (s *StockService) EvaluateLowStock(ctx context.Context, productID string) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID).Msg("low-stock evaluation skipped")
		return
	}

	agg, err := s.products.AggregateStock(ctx, productID)
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID).Msg("low-stock evaluation skipped")
		return
	}

	classification := domain.ClassifyStock(agg.CurrentStock, product.MinStockAlert)
	if classification == domain.StockNormal {
		return
	}

	s.logger.Warn().
		Str("product_id", productID).
		Str("internal_code", product.InternalCode).
		Str("current_stock", agg.CurrentStock.String()).
		Str("min_stock_alert", product.MinStockAlert.String()).
		Str("classification", string(classification)).
		Msg("product stock below threshold")

	if s.publisher == nil {
		return
	}
	err = s.publisher.Publish(ctx, messaging.EventStockLow, messaging.StockLowEvent{
		ProductID:     productID,
		InternalCode:  product.InternalCode,
		CurrentStock:  agg.CurrentStock.String(),
		MinStockAlert: product.MinStockAlert.String(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("product_id", productID).Msg("failed to publish low-stock event")
	}
}

// warnOnNegativeQuantities logs any lot whose quantity has gone negative.
// Reads never fail on an invariant violation; visibility stays up even if a
// write-path bug exists upstream.
func (s *StockService) warnOnNegativeQuantities(ctx context.Context, productID string) {
	ids, err := s.products.FindNegativeQuantities(ctx, productID)
	if err != nil || len(ids) == 0 {
		return
	}
	s.logger.Warn().
		Str("product_id", productID).
		Strs("lot_ids", ids).
		Msg("negative lot quantity detected, returning best-effort aggregate")
}
