package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-documents/internal/models"
)

var jan23 = time.Date(2025, 1, 23, 10, 0, 0, 0, time.UTC)

func openSQLite(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	for _, m := range models.All() {
		require.NoError(t, db.AutoMigrate(m))
	}
	return db
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return openSQLite(t, fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
}

type fixture struct {
	db      *gorm.DB
	tenant  models.Tenant
	itemA   models.InventoryItem
	itemB   models.InventoryItem
	service models.InventoryItem
	account models.LedgerAccount
	svc     *DocumentService
}

// newFixture seeds tenant 7 with two stocked items (A: 10, B: 5 reorder at 4),
// one service item and an account holding 1000.
func newFixture(t *testing.T, db *gorm.DB, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{db: db}
	f.tenant = models.Tenant{ID: 7, Code: "clinic-7", Name: "Clinic 7", Timezone: "UTC"}
	require.NoError(t, db.Create(&f.tenant).Error)

	f.itemA = models.InventoryItem{TenantID: 7, SKU: "A", Name: "Item A", Category: "goods", Quantity: dec("10"), ReorderLevel: decimal.Zero}
	f.itemB = models.InventoryItem{TenantID: 7, SKU: "B", Name: "Item B", Category: "goods", Quantity: dec("5"), ReorderLevel: dec("4")}
	f.service = models.InventoryItem{TenantID: 7, SKU: "SRV", Name: "Consultation fee", Category: "services", IsService: true, Quantity: decimal.Zero, ReorderLevel: decimal.Zero}
	for _, it := range []*models.InventoryItem{&f.itemA, &f.itemB, &f.service} {
		require.NoError(t, db.Create(it).Error)
	}
	f.account = models.LedgerAccount{TenantID: 7, Name: "Cash", Balance: dec("1000")}
	require.NoError(t, db.Create(&f.account).Error)

	base := []Option{WithClock(func() time.Time { return jan23 }), WithLogger(zerolog.Nop())}
	f.svc = NewDocumentService(db, append(base, opts...)...)
	return f
}

func (f *fixture) service2(opts ...Option) *DocumentService {
	base := []Option{WithClock(func() time.Time { return jan23 }), WithLogger(zerolog.Nop())}
	return NewDocumentService(f.db, append(base, opts...)...)
}

func (f *fixture) quantity(t *testing.T, item models.InventoryItem) decimal.Decimal {
	t.Helper()
	var got models.InventoryItem
	require.NoError(t, f.db.Unscoped().First(&got, item.ID).Error)
	return got.Quantity
}

func (f *fixture) balance(t *testing.T) decimal.Decimal {
	t.Helper()
	var got models.LedgerAccount
	require.NoError(t, f.db.First(&got, f.account.ID).Error)
	return got.Balance
}

func (f *fixture) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := f.db.Unscoped().Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (f *fixture) line(item models.InventoryItem, qty, price string) LineInput {
	id := item.ID
	return LineInput{ItemID: &id, Quantity: dec(qty), UnitPrice: dec(price)}
}

// invoiceLines is A 3 @ 100 and B 1 @ 50.
func (f *fixture) invoiceLines() []LineInput {
	return []LineInput{f.line(f.itemA, "3", "100"), f.line(f.itemB, "1", "50")}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	msg := fmt.Sprintf("want %s, got %s", want, got)
	if len(msgAndArgs) > 0 {
		msg += " (" + fmt.Sprint(msgAndArgs...) + ")"
	}
	assert.True(t, dec(want).Equal(got), msg)
}
