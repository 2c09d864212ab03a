package models

import "time"

// ScopeLock backs the row-lock strategy: one row per (tenant, date key) scope.
type ScopeLock struct {
	Key        string    `gorm:"primaryKey;size:191" json:"key"`
	TenantID   uint      `gorm:"index;not null" json:"tenant_id"`
	AcquiredAt time.Time `gorm:"not null" json:"acquired_at"`
}

// All returns every model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Tenant{},
		&InventoryItem{},
		&LedgerAccount{},
		&Document{},
		&DocumentLine{},
		&StockMovement{},
		&PaymentRecord{},
		&ScopeLock{},
	}
}
