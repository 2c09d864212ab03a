package services

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/go-documents/internal/models"
)

// Stock movement reasons.
const (
	ReasonDocumentCreated = "document_created"
	ReasonDocumentUpdated = "document_updated"
	ReasonDocumentDeleted = "document_deleted"
)

// StockAlert flags an item left below zero or below its reorder level.
type StockAlert struct {
	ItemID       uint            `json:"item_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	ReorderLevel decimal.Decimal `json:"reorder_level"`
	Negative     bool            `json:"negative"`
}

// InventoryAdjuster applies signed stock deltas and records a movement for each.
type InventoryAdjuster struct {
	log zerolog.Logger
}

func NewInventoryAdjuster(log zerolog.Logger) *InventoryAdjuster {
	return &InventoryAdjuster{log: log}
}

// Adjust adds delta to the item's quantity in one atomic UPDATE and appends a
// StockMovement. Quantities may go negative; outbound moves that end below zero or
// below the reorder level return an alert.
func (a *InventoryAdjuster) Adjust(tx *gorm.DB, tenantID, itemID uint, delta decimal.Decimal, documentID uint, reason string) (*models.StockMovement, *StockAlert, error) {
	item, err := a.apply(tx, tenantID, itemID, delta, false)
	if err != nil {
		return nil, nil, err
	}
	mv := &models.StockMovement{
		TenantID:      tenantID,
		ItemID:        itemID,
		DocumentID:    documentID,
		Delta:         delta,
		QuantityAfter: item.Quantity,
		Reason:        reason,
	}
	if err := tx.Create(mv).Error; err != nil {
		return nil, nil, storageErr("record stock movement", err)
	}
	return mv, a.alertFor(item, delta), nil
}

// Reverse appends a compensating movement for every movement of the document not
// yet reversed and applies its delta. Items deleted since are still corrected.
func (a *InventoryAdjuster) Reverse(tx *gorm.DB, tenantID, documentID uint, reason string) ([]models.StockMovement, error) {
	var open []models.StockMovement
	err := tx.Where("tenant_id = ? AND document_id = ? AND reversal_of IS NULL", tenantID, documentID).
		Where("NOT EXISTS (SELECT 1 FROM stock_movements r WHERE r.reversal_of = stock_movements.id)").
		Order("id").
		Find(&open).Error
	if err != nil {
		return nil, storageErr("load stock movements", err)
	}

	reversed := make([]models.StockMovement, 0, len(open))
	for _, mv := range open {
		delta := mv.Delta.Neg()
		item, err := a.apply(tx, tenantID, mv.ItemID, delta, true)
		if err != nil {
			return nil, err
		}
		of := mv.ID
		comp := models.StockMovement{
			TenantID:      tenantID,
			ItemID:        mv.ItemID,
			DocumentID:    documentID,
			Delta:         delta,
			QuantityAfter: item.Quantity,
			Reason:        reason,
			ReversalOf:    &of,
		}
		if err := tx.Create(&comp).Error; err != nil {
			return nil, storageErr("record stock reversal", err)
		}
		reversed = append(reversed, comp)
	}
	if len(reversed) > 0 {
		a.log.Debug().Uint("document_id", documentID).Int("movements", len(reversed)).Str("reason", reason).Msg("stock movements reversed")
	}
	return reversed, nil
}

func (a *InventoryAdjuster) apply(tx *gorm.DB, tenantID, itemID uint, delta decimal.Decimal, unscoped bool) (*models.InventoryItem, error) {
	q := func() *gorm.DB {
		if unscoped {
			return tx.Unscoped()
		}
		return tx
	}
	res := q().Model(&models.InventoryItem{}).
		Where("id = ? AND tenant_id = ?", itemID, tenantID).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, storageErr(fmt.Sprintf("adjust item %d", itemID), res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "item", ID: itemID}
	}
	var item models.InventoryItem
	err := q().Where("id = ?", itemID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "item", ID: itemID}
	}
	if err != nil {
		return nil, storageErr(fmt.Sprintf("reload item %d", itemID), err)
	}
	return &item, nil
}

func (a *InventoryAdjuster) alertFor(item *models.InventoryItem, delta decimal.Decimal) *StockAlert {
	if !delta.IsNegative() {
		return nil
	}
	negative := item.Quantity.IsNegative()
	belowReorder := item.ReorderLevel.IsPositive() && item.Quantity.LessThan(item.ReorderLevel)
	if !negative && !belowReorder {
		return nil
	}
	return &StockAlert{
		ItemID:       item.ID,
		SKU:          item.SKU,
		Name:         item.Name,
		Quantity:     item.Quantity,
		ReorderLevel: item.ReorderLevel,
		Negative:     negative,
	}
}
