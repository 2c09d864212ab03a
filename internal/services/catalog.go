package services

import (
	"errors"

	"gorm.io/gorm"

	"github.com/diewo77/go-documents/internal/models"
)

// ItemCatalog resolves inventory items referenced by document lines.
type ItemCatalog interface {
	Lookup(tx *gorm.DB, tenantID, itemID uint) (*models.InventoryItem, error)
}

// AccountDirectory resolves ledger accounts referenced by payments.
type AccountDirectory interface {
	Account(tx *gorm.DB, tenantID, accountID uint) (*models.LedgerAccount, error)
}

// GormCatalog reads items from the inventory_items table.
type GormCatalog struct{}

func (GormCatalog) Lookup(tx *gorm.DB, tenantID, itemID uint) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := tx.Where("id = ? AND tenant_id = ?", itemID, tenantID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "item", ID: itemID}
	}
	if err != nil {
		return nil, storageErr("lookup item", err)
	}
	return &item, nil
}

// GormAccounts reads accounts from the ledger_accounts table.
type GormAccounts struct{}

func (GormAccounts) Account(tx *gorm.DB, tenantID, accountID uint) (*models.LedgerAccount, error) {
	var acct models.LedgerAccount
	err := tx.Where("id = ? AND tenant_id = ?", accountID, tenantID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &NotFoundError{Resource: "account", ID: accountID}
	}
	if err != nil {
		return nil, storageErr("lookup account", err)
	}
	return &acct, nil
}
