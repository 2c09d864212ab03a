package db

import (
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/diewo77/go-documents/internal/config"
	"github.com/diewo77/go-documents/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	d, err := Open(config.DatabaseConfig{Driver: "sqlite", RawDSN: dsn, MaxOpenConns: 1}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, Migrate(d, false))
	return d
}

func TestDialectorRejectsUnknownDriver(t *testing.T) {
	_, err := Dialector("oracle", "x")
	require.Error(t, err)
}

func TestMigrateCreatesTables(t *testing.T) {
	d := newTestDB(t)
	for _, m := range models.All() {
		assert.True(t, d.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, d.Migrator().HasIndex(&models.Document{}, models.IndexDocumentNumber))
	assert.True(t, d.Migrator().HasIndex(&models.Document{}, models.IndexDocumentIdempotency))
	// idempotent
	require.NoError(t, Migrate(d, false))
}

func TestSeedIdempotent(t *testing.T) {
	d := newTestDB(t)
	require.NoError(t, Seed(d))
	require.NoError(t, Seed(d))

	var tenants, items, accounts int64
	d.Model(&models.Tenant{}).Where("code = ?", DemoTenantCode).Count(&tenants)
	d.Model(&models.InventoryItem{}).Count(&items)
	d.Model(&models.LedgerAccount{}).Count(&accounts)
	assert.EqualValues(t, 1, tenants)
	assert.EqualValues(t, 3, items)
	assert.EqualValues(t, 2, accounts)

	var para models.InventoryItem
	require.NoError(t, d.Where("sku = ?", "PARA-500").First(&para).Error)
	assert.True(t, para.Quantity.Equal(decimal.NewFromInt(200)), "quantity %s", para.Quantity)
}

func TestGormLoggerModes(t *testing.T) {
	l := NewGormLogger(zerolog.Nop(), gormlogger.Warn)
	quiet := l.LogMode(gormlogger.Silent).(*GormLogger)
	assert.Equal(t, gormlogger.Silent, quiet.level)
	assert.Equal(t, gormlogger.Warn, l.level)
}
