package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/diewo77/go-documents/auth"
	"github.com/diewo77/go-documents/httpx"
	"github.com/diewo77/go-documents/internal/logger"
	"github.com/diewo77/go-documents/internal/models"
	"github.com/diewo77/go-documents/internal/services"
)

// IdempotencyHeader may carry the idempotency key instead of the body field.
const IdempotencyHeader = "Idempotency-Key"

// DocumentService is what the HTTP layer needs from the engine.
type DocumentService interface {
	CreateDocument(ctx context.Context, in services.CreateInput) (*services.Result, error)
	UpdateDocument(ctx context.Context, in services.UpdateInput) (*services.Result, error)
	DeleteDocument(ctx context.Context, tenantID, documentID uint) error
	GetDocument(ctx context.Context, tenantID, documentID uint) (*models.Document, error)
}

type DocumentHandler struct {
	svc DocumentService
	log zerolog.Logger
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc, log: logger.WithComponent("http")}
}

// documentRequest is the body of create and update calls. Totals are never accepted.
type documentRequest struct {
	Date           *time.Time             `json:"date,omitempty"`
	Lines          []services.LineInput   `json:"lines"`
	TaxRate        decimal.Decimal        `json:"tax_rate"`
	DiscountRate   decimal.Decimal        `json:"discount_rate"`
	Payment        *services.PaymentInput `json:"payment,omitempty"`
	IdempotencyKey string                 `json:"idempotency_key,omitempty"`
}

// Routes mounts the document endpoints on r.
func (h *DocumentHandler) Routes(r chi.Router) {
	r.Post("/documents/{type}", h.Create)
	r.Get("/documents/{id}", h.Get)
	r.Put("/documents/{id}", h.Update)
	r.Delete("/documents/{id}", h.Delete)
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())

	var req documentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	in := services.CreateInput{
		TenantID:       tenantID,
		DocType:        models.DocType(chi.URLParam(r, "type")),
		Lines:          req.Lines,
		TaxRate:        req.TaxRate,
		DiscountRate:   req.DiscountRate,
		Payment:        req.Payment,
		IdempotencyKey: req.IdempotencyKey,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	if key := r.Header.Get(IdempotencyHeader); key != "" && in.IdempotencyKey == "" {
		in.IdempotencyKey = key
	}

	res, err := h.svc.CreateDocument(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	httpx.JSON(w, status, res)
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), tenantID, id)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	var req documentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	res, err := h.svc.UpdateDocument(r.Context(), services.UpdateInput{
		TenantID:     tenantID,
		DocumentID:   id,
		Lines:        req.Lines,
		TaxRate:      req.TaxRate,
		DiscountRate: req.DiscountRate,
		Payment:      req.Payment,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, res)
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	id, ok := documentID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteDocument(r.Context(), tenantID, id); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func documentID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	return pathID(w, r, "id")
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{param: "invalid"})
		return 0, false
	}
	return uint(id), true
}
