package handler

import (
	"net/http"
	"time"

	"github.com/stocklot/stocklot-backend/internal/inventory/service"
	"github.com/stocklot/stocklot-backend/pkg/actor"
	"github.com/stocklot/stocklot-backend/pkg/httputil"
	"github.com/stocklot/stocklot-backend/pkg/logger"
	"github.com/stocklot/stocklot-backend/pkg/messaging"
)

// DocumentHandler exposes the document-completion hook for synchronous
// callers. Asynchronous delivery goes through the RabbitMQ consumer; both
// paths share the same idempotency markers.
type DocumentHandler struct {
	service *service.DocumentService
	logger  *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(svc *service.DocumentService, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: svc,
		logger:  log,
	}
}

// Completed applies a completed document to the ledger
func (h *DocumentHandler) Completed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID   string `json:"document_id" validate:"required,uuid"`
		DocumentType string `json:"document_type" validate:"required,oneof=order estimate"`
		Items        []struct {
			ItemID    string  `json:"item_id" validate:"required,uuid"`
			ProductID string  `json:"product_id" validate:"required,uuid"`
			Quantity  string  `json:"quantity" validate:"required"`
			Unit      string  `json:"unit"`
			UnitPrice *string `json:"unit_price"`
			SpecValue string  `json:"spec_value"`
			Location  string  `json:"location"`
		} `json:"items" validate:"required,min=1,dive"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	evt := &messaging.DocumentCompletedEvent{
		DocumentID:   req.DocumentID,
		DocumentType: req.DocumentType,
		CompletedBy:  actor.IDFromContext(r.Context()),
		CompletedAt:  time.Now().UTC(),
	}
	for _, item := range req.Items {
		evt.Items = append(evt.Items, messaging.DocumentCompletedItem{
			ItemID:    item.ItemID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Unit:      item.Unit,
			UnitPrice: item.UnitPrice,
			SpecValue: item.SpecValue,
			Location:  item.Location,
		})
	}

	if err := h.service.OnDocumentCompleted(r.Context(), evt); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]string{
		"document_id": req.DocumentID,
		"status":      "processed",
	})
}
