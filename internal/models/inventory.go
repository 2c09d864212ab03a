package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InventoryItem is a stock-keeping item. Quantity may go negative.
type InventoryItem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	TenantID     uint            `gorm:"not null;uniqueIndex:idx_items_tenant_sku,priority:1" json:"tenant_id"`
	SKU          string          `gorm:"size:64;not null;uniqueIndex:idx_items_tenant_sku,priority:2" json:"sku"`
	Name         string          `gorm:"size:255;not null" json:"name"`
	Category     string          `gorm:"size:100" json:"category,omitempty"`
	IsService    bool            `gorm:"not null;default:false" json:"is_service"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"reorder_level"`
}

// TracksStock reports whether documents move this item's quantity.
func (i *InventoryItem) TracksStock() bool {
	return !i.IsService
}

// StockMovement is the append-only audit of one inventory delta.
// A compensating movement points at the movement it reverses.
type StockMovement struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	TenantID      uint            `gorm:"index;not null" json:"tenant_id"`
	ItemID        uint            `gorm:"index;not null" json:"item_id"`
	DocumentID    uint            `gorm:"index;not null" json:"document_id"`
	Delta         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"delta"`
	QuantityAfter decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_after"`
	Reason        string          `gorm:"size:64;not null" json:"reason"`
	ReversalOf    *uint           `gorm:"uniqueIndex" json:"reversal_of,omitempty"`
}
