package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stocklot/stocklot-backend/internal/inventory/service"
	"github.com/stocklot/stocklot-backend/pkg/httputil"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

// StockHandler handles derived stock endpoints
type StockHandler struct {
	service *service.StockService
	logger  *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(svc *service.StockService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  log,
	}
}

// GetSummary returns a product's derived stock summary
func (h *StockHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	summary, err := h.service.GetProductStockSummary(r.Context(), productID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, summary)
}

// ListLots lists a product's lots ordered by received_at. The optional
// status query parameter filters to one lifecycle state.
func (h *StockHandler) ListLots(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	status := r.URL.Query().Get("status")

	lots, err := h.service.ListLotsByProduct(r.Context(), productID, status)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lots)
}

// ExportSnapshot serves the inventory snapshot as a CSV download
func (h *StockHandler) ExportSnapshot(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("inventory-snapshot-%s.csv", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := h.service.ExportInventorySnapshot(r.Context(), w); err != nil {
		h.logger.Error().Err(err).Msg("failed to export inventory snapshot")
		http.Error(w, "Failed to export snapshot", http.StatusInternalServerError)
		return
	}
}
