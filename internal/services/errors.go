package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/go-documents/internal/db"
	"github.com/diewo77/go-documents/internal/numbering"
	"github.com/diewo77/go-documents/validation"
)

var (
	ErrValidation        = errors.New("validation_failed")
	ErrNotFound          = errors.New("not_found")
	ErrSequenceExhausted = errors.New("sequence_exhausted")
	ErrDuplicateRequest  = errors.New("duplicate_request")
	ErrStorage           = errors.New("storage_failure")
)

// ValidationError carries per-field violation codes. Returned before any transaction opens.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d violation(s)", len(e.Violations))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError names the missing resource.
type NotFoundError struct {
	Resource string
	ID       uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// SequenceExhaustedError reports a numbering scope where every attempt collided.
type SequenceExhaustedError struct {
	Scope         numbering.Scope
	Attempts      int
	LastCandidate string
}

func (e *SequenceExhaustedError) Error() string {
	return fmt.Sprintf("sequence exhausted for %s after %d attempts (last candidate %s)",
		e.Scope, e.Attempts, e.LastCandidate)
}

func (e *SequenceExhaustedError) Unwrap() error { return ErrSequenceExhausted }

// StorageError wraps a database failure with the step that hit it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorage, e.Err} }

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) || IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrSequenceExhausted) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// IsRetryable returns true if retrying the whole call may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorage) && db.IsTransient(err)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrDuplicateRequest)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
