package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stocklot/stocklot-backend/internal/inventory/domain"
	"github.com/stocklot/stocklot-backend/internal/inventory/service"
	"github.com/stocklot/stocklot-backend/pkg/errors"
	"github.com/stocklot/stocklot-backend/pkg/httputil"
	"github.com/stocklot/stocklot-backend/pkg/logger"
)

// LotHandler handles lot endpoints
type LotHandler struct {
	service *service.LotService
	logger  *logger.Logger
}

// NewLotHandler creates a new lot handler
func NewLotHandler(svc *service.LotService, log *logger.Logger) *LotHandler {
	return &LotHandler{
		service: svc,
		logger:  log,
	}
}

// Create creates a new inbound lot
func (h *LotHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID  string  `json:"product_id" validate:"required,uuid"`
		Quantity   string  `json:"quantity" validate:"required"`
		SourceType string  `json:"source_type" validate:"required,oneof=purchase production adjustment"`
		Location   string  `json:"location"`
		SpecValue  string  `json:"spec_value"`
		Notes      string  `json:"notes"`
		UnitCost   *string `json:"unit_cost"`
		DocumentID string  `json:"document_id" validate:"omitempty,uuid"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	quantity, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"quantity": "must be a decimal number"}))
		return
	}

	input := service.CreateLotInput{
		ProductID:  req.ProductID,
		Quantity:   quantity,
		SourceType: domain.SourceType(req.SourceType),
		Location:   req.Location,
		SpecValue:  req.SpecValue,
		Notes:      req.Notes,
		DocumentID: req.DocumentID,
	}
	if req.UnitCost != nil {
		cost, err := decimal.NewFromString(*req.UnitCost)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{"unit_cost": "must be a decimal number"}))
			return
		}
		input.UnitCost = &cost
	}

	lot, err := h.service.CreateLot(r.Context(), input)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, lot)
}

// Get gets a lot by ID
func (h *LotHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lot, err := h.service.GetLot(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// AdjustQuantity applies a signed quantity delta to a lot
func (h *LotHandler) AdjustQuantity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Delta  string `json:"delta" validate:"required"`
		Reason string `json:"reason" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	delta, err := decimal.NewFromString(req.Delta)
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"delta": "must be a decimal number"}))
		return
	}

	lot, err := h.service.AdjustQuantity(r.Context(), id, delta, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// SetStatus moves a lot along the status transition table. Only the
// externally drivable states are accepted; depleted and split are reached
// through quantity mutations, not by request.
func (h *LotHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Status string `json:"status" validate:"required,oneof=available reserved scrapped"`
		Reason string `json:"reason"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	lot, err := h.service.SetStatus(r.Context(), id, domain.LotStatus(req.Status), req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// Scrap disposes of a lot
func (h *LotHandler) Scrap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Reason string `json:"reason" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	lot, err := h.service.Scrap(r.Context(), id, req.Reason)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, lot)
}

// Split divides a lot into child lots
func (h *LotHandler) Split(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Allocations []struct {
			Quantity  string `json:"quantity" validate:"required"`
			Location  string `json:"location"`
			SpecValue string `json:"spec_value"`
		} `json:"allocations" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	allocations := make([]domain.SplitAllocation, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		quantity, err := decimal.NewFromString(a.Quantity)
		if err != nil {
			httputil.Error(w, errors.Validation(map[string]string{"allocations": "quantities must be decimal numbers"}))
			return
		}
		allocations = append(allocations, domain.SplitAllocation{
			Quantity:  quantity,
			Location:  a.Location,
			SpecValue: a.SpecValue,
		})
	}

	children, err := h.service.Split(r.Context(), id, allocations)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, children)
}

// History returns a lot's audit ledger entries
func (h *LotHandler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.service.GetLotHistory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// Lineage returns a lot's parent chain up to its root
func (h *LotHandler) Lineage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	chain, err := h.service.GetLotLineage(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, chain)
}

// SplitHistory returns the split records where this lot was the parent
func (h *LotHandler) SplitHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	records, err := h.service.GetSplitHistory(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, records)
}
