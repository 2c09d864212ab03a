package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
)

// Kind is the storage-independent class of a driver error.
type Kind int

const (
	KindUnknown Kind = iota
	KindUniqueViolation
	KindForeignKeyViolation
	KindDeadlock
	KindSerialization
	KindLockTimeout
	KindBusy
	KindConnection
)

func (k Kind) String() string {
	switch k {
	case KindUniqueViolation:
		return "unique_violation"
	case KindForeignKeyViolation:
		return "foreign_key_violation"
	case KindDeadlock:
		return "deadlock"
	case KindSerialization:
		return "serialization_failure"
	case KindLockTimeout:
		return "lock_timeout"
	case KindBusy:
		return "busy"
	case KindConnection:
		return "connection"
	default:
		return "unknown"
	}
}

// PostgreSQL SQLSTATE codes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgDeadlock            = "40P01"
	pgSerialization       = "40001"
	pgLockNotAvailable    = "55P03"
	pgQueryCanceled       = "57014"
)

// MySQL server error numbers.
const (
	myDuplicateEntry    = 1062
	myNoReferencedRow   = 1452
	myRowIsReferenced   = 1451
	myDeadlock          = 1213
	myLockWaitTimeout   = 1205
	myLockNowaitFailure = 3572
)

// Classify maps pgx, go-sql-driver/mysql and go-sqlite3 errors onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return KindUniqueViolation
		case pgForeignKeyViolation:
			return KindForeignKeyViolation
		case pgDeadlock:
			return KindDeadlock
		case pgSerialization:
			return KindSerialization
		case pgLockNotAvailable, pgQueryCanceled:
			return KindLockTimeout
		}
		return KindUnknown
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case myDuplicateEntry:
			return KindUniqueViolation
		case myNoReferencedRow, myRowIsReferenced:
			return KindForeignKeyViolation
		case myDeadlock:
			return KindDeadlock
		case myLockWaitTimeout, myLockNowaitFailure:
			return KindLockTimeout
		}
		return KindUnknown
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch {
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique || liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return KindUniqueViolation
		case liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return KindForeignKeyViolation
		case liteErr.Code == sqlite3.ErrBusy || liteErr.Code == sqlite3.ErrLocked:
			return KindBusy
		}
		return KindUnknown
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return KindConnection
	}
	return KindUnknown
}

// IsUniqueViolation reports a unique-constraint violation on any index.
func IsUniqueViolation(err error) bool {
	return Classify(err) == KindUniqueViolation
}

// IsUniqueViolationOn reports a unique violation of the named index. SQLite does not
// report index names, so it is matched on the qualified columns instead
// ("documents.number").
func IsUniqueViolationOn(err error, index string, columns ...string) bool {
	if !IsUniqueViolation(err) {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName == index
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		// "Duplicate entry '...' for key 'documents.idx_documents_scope_number'"
		return strings.HasSuffix(strings.TrimSuffix(myErr.Message, "'"), index)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		// "UNIQUE constraint failed: documents.tenant_id, documents.doc_type, documents.number"
		msg := liteErr.Error()
		for _, col := range columns {
			if !containsColumn(msg, col) {
				return false
			}
		}
		return len(columns) > 0
	}
	return false
}

func containsColumn(msg, col string) bool {
	_, list, ok := strings.Cut(msg, "failed: ")
	if !ok {
		return false
	}
	for _, c := range strings.Split(list, ",") {
		if strings.TrimSpace(c) == col {
			return true
		}
	}
	return false
}

// IsForeignKeyViolation reports a referential-integrity failure.
func IsForeignKeyViolation(err error) bool {
	return Classify(err) == KindForeignKeyViolation
}

// IsTransient reports errors worth retrying the whole transaction for.
func IsTransient(err error) bool {
	switch Classify(err) {
	case KindDeadlock, KindSerialization, KindLockTimeout, KindBusy, KindConnection:
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
