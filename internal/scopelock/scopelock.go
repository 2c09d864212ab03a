// Package scopelock serializes writers of one (tenant, date) numbering scope with
// storage-native locks held until the surrounding transaction ends.
package scopelock

import (
	"fmt"
	"hash/fnv"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-documents/internal/models"
)

const (
	StrategyAuto     = "auto"
	StrategyAdvisory = "advisory"
	StrategyRow      = "row"
	StrategyNone     = "none"
)

const savepointName = "scope_lock"

// Locker takes an exclusive, transaction-scoped lock on key.
type Locker interface {
	Lock(tx *gorm.DB, key string, tenantID uint) error
	Name() string
}

// New returns the locker for strategy on the given gorm dialect ("postgres", "mysql", "sqlite").
func New(strategy, dialect string, timeout time.Duration) (Locker, error) {
	switch strategy {
	case StrategyAuto, "":
		if dialect == "postgres" {
			return Advisory{Timeout: timeout}, nil
		}
		return Row{Timeout: timeout}, nil
	case StrategyAdvisory:
		if dialect != "postgres" {
			return nil, fmt.Errorf("advisory locks need postgres, got %s", dialect)
		}
		return Advisory{Timeout: timeout}, nil
	case StrategyRow:
		return Row{Timeout: timeout}, nil
	case StrategyNone:
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown lock strategy %q", strategy)
	}
}

// Acquire takes the lock inside its own savepoint. When locking fails the
// savepoint is rolled back, a warning is logged and false is returned; the
// transaction stays usable and the caller proceeds unlocked.
func Acquire(tx *gorm.DB, l Locker, key string, tenantID uint, log zerolog.Logger) bool {
	if l == nil {
		return false
	}
	if _, ok := l.(Noop); ok {
		return true
	}
	if err := tx.SavePoint(savepointName).Error; err != nil {
		log.Warn().Err(err).Str("lock_key", key).Msg("scope lock savepoint failed, continuing unlocked")
		return false
	}
	if err := l.Lock(tx, key, tenantID); err != nil {
		if rbErr := tx.RollbackTo(savepointName).Error; rbErr != nil {
			log.Warn().Err(rbErr).Str("lock_key", key).Msg("scope lock rollback failed")
		}
		log.Warn().Err(err).Str("lock_key", key).Str("strategy", l.Name()).Msg("scope lock not acquired, continuing unlocked")
		return false
	}
	return true
}

// HashKey maps a scope key onto the int64 space of pg advisory locks.
func HashKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}

// Advisory uses pg_advisory_xact_lock, released at commit or rollback.
type Advisory struct {
	Timeout time.Duration
}

func (Advisory) Name() string { return StrategyAdvisory }

func (a Advisory) Lock(tx *gorm.DB, key string, _ uint) error {
	return withLockTimeout(tx, a.Timeout, func() error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", HashKey(key)).Error; err != nil {
			return fmt.Errorf("advisory lock %s: %w", key, err)
		}
		return nil
	})
}

// Row locks a scope_locks row: the row is created on first use, then updated so
// the writer holds its row lock until the transaction ends.
type Row struct {
	Timeout time.Duration
}

func (Row) Name() string { return StrategyRow }

func (r Row) Lock(tx *gorm.DB, key string, tenantID uint) error {
	return withLockTimeout(tx, r.Timeout, func() error {
		now := time.Now().UTC()
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ScopeLock{Key: key, TenantID: tenantID, AcquiredAt: now}).Error; err != nil {
			return fmt.Errorf("ensure lock row %s: %w", key, err)
		}
		res := tx.Model(&models.ScopeLock{}).Where(&models.ScopeLock{Key: key}).Update("acquired_at", now)
		if res.Error != nil {
			return fmt.Errorf("lock row %s: %w", key, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("lock row %s: not found", key)
		}
		return nil
	})
}

// Noop takes no lock; the numbering retry loop alone keeps numbers unique.
type Noop struct{}

func (Noop) Name() string { return StrategyNone }
func (Noop) Lock(*gorm.DB, string, uint) error { return nil }

// withLockTimeout bounds lock waits inside fn to d. Postgres gets a
// transaction-local lock_timeout; mysql gets a session innodb_lock_wait_timeout
// that is restored afterwards. sqlite relies on its busy timeout.
func withLockTimeout(tx *gorm.DB, d time.Duration, fn func() error) error {
	if d <= 0 {
		return fn()
	}
	switch tx.Dialector.Name() {
	case "postgres":
		// SET does not take bind parameters.
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())).Error; err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
		if err := fn(); err != nil {
			return err
		}
		if err := tx.Exec("SET LOCAL lock_timeout TO DEFAULT").Error; err != nil {
			return fmt.Errorf("reset lock_timeout: %w", err)
		}
		return nil
	case "mysql":
		var prev int
		if err := tx.Raw("SELECT @@SESSION.innodb_lock_wait_timeout").Scan(&prev).Error; err != nil {
			return fmt.Errorf("read innodb_lock_wait_timeout: %w", err)
		}
		if err := tx.Exec(fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", mysqlLockWait(d))).Error; err != nil {
			return fmt.Errorf("set innodb_lock_wait_timeout: %w", err)
		}
		err := fn()
		// session scoped, so it outlives the transaction unless restored
		if rerr := tx.Exec(fmt.Sprintf("SET SESSION innodb_lock_wait_timeout = %d", prev)).Error; rerr != nil && err == nil {
			err = fmt.Errorf("restore innodb_lock_wait_timeout: %w", rerr)
		}
		return err
	default:
		return fn()
	}
}

// mysqlLockWait converts d to whole seconds, rounding up, with mysql's minimum of 1.
func mysqlLockWait(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
