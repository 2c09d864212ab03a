package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/diewo77/go-documents/auth"
	"github.com/diewo77/go-documents/httpx"
	"github.com/diewo77/go-documents/internal/logger"
	"github.com/diewo77/go-documents/internal/models"
)

const pageSize = 20

// CatalogHandler exposes the read side of the item catalog and the ledger accounts.
type CatalogHandler struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db, log: logger.WithComponent("http")}
}

func (h *CatalogHandler) Routes(r chi.Router) {
	r.Get("/items", h.ListItems)
	r.Get("/items/{id}", h.ViewItem)
	r.Get("/accounts", h.ListAccounts)
}

type itemPage struct {
	Items []models.InventoryItem `json:"items"`
	Query string                 `json:"query,omitempty"`
	Page  int                    `json:"page"`
	Total int64                  `json:"total"`
	Limit int                    `json:"limit"`
}

func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	db := h.db.WithContext(r.Context()).Model(&models.InventoryItem{}).Where("tenant_id = ?", tenantID)
	if query != "" {
		like := "%" + strings.ToLower(query) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(sku) LIKE ?", like, like)
	}

	out := itemPage{Items: []models.InventoryItem{}, Query: query, Page: page, Limit: pageSize}
	if err := db.Count(&out.Total).Error; err != nil {
		h.fail(w, err)
		return
	}
	if err := db.Order("name").Limit(pageSize).Offset(offset).Find(&out.Items).Error; err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) ViewItem(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var item models.InventoryItem
	err := h.db.WithContext(r.Context()).Where("id = ? AND tenant_id = ?", id, tenantID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{"resource": "item", "id": id})
		return
	}
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *CatalogHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	tenantID, _ := auth.TenantIDFromContext(r.Context())
	accounts := []models.LedgerAccount{}
	if err := h.db.WithContext(r.Context()).Where("tenant_id = ?", tenantID).Order("name").Find(&accounts).Error; err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *CatalogHandler) fail(w http.ResponseWriter, err error) {
	h.log.Error().Err(err).Msg("catalog query failed")
	httpx.JSONError(w, http.StatusInternalServerError, "internal", nil)
}
