// Package numbering builds human-readable document numbers of the form
// <PREFIX><DATEKEY><counter> and computes the next candidate for a scope.
package numbering

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-documents/internal/models"
)

// DefaultWidth is the zero-padding of the counter part.
const DefaultWidth = 4

// DateRule decides how a number's date key is derived from the document date.
type DateRule string

const (
	Daily   DateRule = "daily"
	Monthly DateRule = "monthly"
	Yearly  DateRule = "yearly"
)

// Key formats t (already in the tenant's zone) as the rule's date key.
func (r DateRule) Key(t time.Time) string {
	switch r {
	case Monthly:
		return t.Format("200601")
	case Yearly:
		return t.Format("2006")
	default:
		return t.Format("20060102")
	}
}

// KeyLen is the length of the rule's date key.
func (r DateRule) KeyLen() int {
	switch r {
	case Monthly:
		return 6
	case Yearly:
		return 4
	default:
		return 8
	}
}

// Valid reports whether r is a known rule.
func (r DateRule) Valid() bool {
	switch r {
	case Daily, Monthly, Yearly:
		return true
	}
	return false
}

// Scope is the unit numbers are unique and sequential within.
type Scope struct {
	TenantID uint
	DocType  models.DocType
	Prefix   string
	Rule     DateRule
	DateKey  string
	Width    int
}

// NewScope resolves the date key of at in loc.
func NewScope(tenantID uint, docType models.DocType, prefix string, rule DateRule, at time.Time, loc *time.Location, width int) Scope {
	if loc == nil {
		loc = time.UTC
	}
	if width <= 0 {
		width = DefaultWidth
	}
	return Scope{
		TenantID: tenantID,
		DocType:  docType,
		Prefix:   prefix,
		Rule:     rule,
		DateKey:  rule.Key(at.In(loc)),
		Width:    width,
	}
}

// Format renders the number for counter. Counters wider than Width print unpadded.
func (s Scope) Format(counter int64) string {
	return fmt.Sprintf("%s%s%0*d", s.Prefix, s.DateKey, s.Width, counter)
}

// LockKey identifies the (tenant, date) serialization scope.
func (s Scope) LockKey() string {
	return fmt.Sprintf("seq:%d:%s", s.TenantID, s.DateKey)
}

func (s Scope) String() string {
	return fmt.Sprintf("%d/%s/%s", s.TenantID, s.DocType, s.DateKey)
}

var ErrMalformedNumber = errors.New("malformed_number")

// Parse splits number into its date key and counter for the given prefix and rule.
func Parse(number, prefix string, rule DateRule) (dateKey string, counter int64, err error) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok || len(rest) <= rule.KeyLen() {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	dateKey, digits := rest[:rule.KeyLen()], rest[rule.KeyLen():]
	if _, err := strconv.Atoi(dateKey); err != nil {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	counter, err = strconv.ParseInt(digits, 10, 64)
	if err != nil || counter <= 0 {
		return "", 0, fmt.Errorf("%w: %q", ErrMalformedNumber, number)
	}
	return dateKey, counter, nil
}

// Candidate is a proposed number and the counter it encodes.
type Candidate struct {
	Number  string
	Counter int64
}

// Allocator proposes the next number for a scope. When after > 0 the candidate
// is after+1 and storage is not consulted; this is how the retry loop resumes.
type Allocator interface {
	Next(tx *gorm.DB, scope Scope, after int64) (Candidate, error)
}

// StoreAllocator derives the next counter from the highest one already stored in
// the scope. Soft-deleted documents count, so numbers are never reused.
type StoreAllocator struct{}

func (StoreAllocator) Next(tx *gorm.DB, scope Scope, after int64) (Candidate, error) {
	if after > 0 {
		return Candidate{Number: scope.Format(after + 1), Counter: after + 1}, nil
	}
	last, err := LastCounter(tx, scope)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{Number: scope.Format(last + 1), Counter: last + 1}, nil
}

// LastCounter returns the highest counter used in scope, or 0.
func LastCounter(tx *gorm.DB, scope Scope) (int64, error) {
	var last int64
	err := tx.Unscoped().Model(&models.Document{}).
		Where("tenant_id = ? AND doc_type = ? AND sequence_date = ?", scope.TenantID, scope.DocType, scope.DateKey).
		Select("COALESCE(MAX(sequence_no), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("last counter for %s: %w", scope, err)
	}
	return last, nil
}
