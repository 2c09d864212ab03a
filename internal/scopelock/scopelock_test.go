package scopelock

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diewo77/go-documents/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Tenant{}, &models.ScopeLock{}))
	return db
}

func TestNew(t *testing.T) {
	tests := []struct {
		strategy, dialect string
		want              string
		wantErr           bool
	}{
		{StrategyAuto, "postgres", StrategyAdvisory, false},
		{StrategyAuto, "mysql", StrategyRow, false},
		{"", "sqlite", StrategyRow, false},
		{StrategyAdvisory, "postgres", StrategyAdvisory, false},
		{StrategyAdvisory, "sqlite", "", true},
		{StrategyRow, "postgres", StrategyRow, false},
		{StrategyNone, "mysql", StrategyNone, false},
		{"mutex", "postgres", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.strategy+"/"+tt.dialect, func(t *testing.T) {
			l, err := New(tt.strategy, tt.dialect, time.Second)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Name())
		})
	}
}

func TestHashKey(t *testing.T) {
	assert.Equal(t, HashKey("seq:7:20250123"), HashKey("seq:7:20250123"))
	assert.NotEqual(t, HashKey("seq:7:20250123"), HashKey("seq:7:20250124"))
	assert.NotEqual(t, HashKey("seq:7:20250123"), HashKey("seq:8:20250123"))
}

func TestRowLockCreatesAndReusesRow(t *testing.T) {
	db := newTestDB(t)
	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			require.True(t, Acquire(tx, Row{}, "seq:7:20250123", 7, zerolog.Nop()))
			return nil
		})
		require.NoError(t, err)
	}
	var rows []models.ScopeLock
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, "seq:7:20250123", rows[0].Key)
	assert.EqualValues(t, 7, rows[0].TenantID)
}

type failingLocker struct{}

func (failingLocker) Name() string { return "failing" }
func (failingLocker) Lock(tx *gorm.DB, key string, tenantID uint) error {
	// leave a partial write behind to prove the savepoint discards it
	if err := tx.Create(&models.ScopeLock{Key: key, TenantID: tenantID, AcquiredAt: time.Now()}).Error; err != nil {
		return err
	}
	return errors.New("lock timeout")
}

func TestAcquireFallsBackWhenLockingFails(t *testing.T) {
	db := newTestDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		assert.False(t, Acquire(tx, failingLocker{}, "seq:1:20250123", 1, zerolog.Nop()))
		// the transaction is still usable
		return tx.Create(&models.Tenant{Code: "after", Name: "After"}).Error
	})
	require.NoError(t, err)

	var locks, tenants int64
	db.Model(&models.ScopeLock{}).Count(&locks)
	db.Model(&models.Tenant{}).Count(&tenants)
	assert.Zero(t, locks, "partial lock write must be rolled back")
	assert.EqualValues(t, 1, tenants)
}

func TestAdvisoryOnSQLiteFallsBack(t *testing.T) {
	db := newTestDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		assert.False(t, Acquire(tx, Advisory{Timeout: time.Second}, "seq:1:20250123", 1, zerolog.Nop()))
		return nil
	})
	require.NoError(t, err)
}

func TestAcquireNoop(t *testing.T) {
	db := newTestDB(t)
	assert.True(t, Acquire(db, Noop{}, "k", 1, zerolog.Nop()))
	assert.False(t, Acquire(db, nil, "k", 1, zerolog.Nop()))
}

func TestMySQLLockWait(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int
	}{
		{time.Millisecond, 1},
		{time.Second, 1},
		{2500 * time.Millisecond, 3},
		{5 * time.Second, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mysqlLockWait(tt.in), tt.in.String())
	}
}

func TestWithLockTimeoutOnSQLiteRunsLockOnce(t *testing.T) {
	db := newTestDB(t)
	calls := 0
	err := withLockTimeout(db, time.Second, func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	sentinel := errors.New("boom")
	assert.ErrorIs(t, withLockTimeout(db, 0, func() error { return sentinel }), sentinel)
}

func TestRowLockWithTimeoutOnSQLite(t *testing.T) {
	db := newTestDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		assert.True(t, Acquire(tx, Row{Timeout: time.Second}, "seq:7:20250123", 7, zerolog.Nop()))
		return nil
	})
	require.NoError(t, err)
}
