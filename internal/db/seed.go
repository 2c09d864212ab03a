package db

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/diewo77/go-documents/internal/models"
)

// DemoTenantCode identifies the development tenant created by Seed.
const DemoTenantCode = "demo"

// Seed creates a demo tenant with a few items and accounts. Safe to run repeatedly.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		tenant := models.Tenant{Code: DemoTenantCode}
		if err := tx.Where("code = ?", DemoTenantCode).
			Attrs(models.Tenant{Name: "Demo Clinic", Timezone: "UTC"}).
			FirstOrCreate(&tenant).Error; err != nil {
			return fmt.Errorf("seed tenant: %w", err)
		}

		items := []models.InventoryItem{
			{SKU: "PARA-500", Name: "Paracetamol 500mg", Category: "medication", Quantity: decimal.NewFromInt(200), ReorderLevel: decimal.NewFromInt(20)},
			{SKU: "BAND-01", Name: "Bandage", Category: "supplies", Quantity: decimal.NewFromInt(50), ReorderLevel: decimal.NewFromInt(10)},
			{SKU: "CONSULT", Name: "General consultation", Category: "services", IsService: true},
		}
		for _, it := range items {
			item := models.InventoryItem{TenantID: tenant.ID, SKU: it.SKU}
			if err := tx.Where("tenant_id = ? AND sku = ?", tenant.ID, it.SKU).
				Attrs(models.InventoryItem{
					Name: it.Name, Category: it.Category, IsService: it.IsService,
					Quantity: it.Quantity, ReorderLevel: it.ReorderLevel,
				}).
				FirstOrCreate(&item).Error; err != nil {
				return fmt.Errorf("seed item %s: %w", it.SKU, err)
			}
		}

		for _, name := range []string{"Cash", "Bank"} {
			acct := models.LedgerAccount{TenantID: tenant.ID, Name: name}
			if err := tx.Where("tenant_id = ? AND name = ?", tenant.ID, name).
				Attrs(models.LedgerAccount{Balance: decimal.Zero}).
				FirstOrCreate(&acct).Error; err != nil {
				return fmt.Errorf("seed account %s: %w", name, err)
			}
		}
		return nil
	})
}
