package services

import (
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/diewo77/go-documents/internal/db"
	"github.com/diewo77/go-documents/internal/models"
	"github.com/diewo77/go-documents/internal/numbering"
)

// DefaultMaxAttempts bounds the number-collision retry loop.
const DefaultMaxAttempts = 50

// sequencer inserts a document under the next free number of its scope. Each
// attempt runs in its own savepoint; a collision on the number index rolls back
// to it and the next counter is tried.
type sequencer struct {
	alloc       numbering.Allocator
	maxAttempts int
	log         zerolog.Logger
}

func (s *sequencer) insert(tx *gorm.DB, scope numbering.Scope, doc *models.Document) error {
	var after int64
	var last string
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		cand, err := s.alloc.Next(tx, scope, after)
		if err != nil {
			return storageErr("allocate number", err)
		}
		last = cand.Number

		sp := fmt.Sprintf("seq_attempt_%d", attempt)
		if err := tx.SavePoint(sp).Error; err != nil {
			return storageErr("savepoint", err)
		}
		doc.ID = 0
		doc.Number = cand.Number
		doc.SequenceNo = cand.Counter
		doc.SequenceDate = scope.DateKey
		err = tx.Omit(clause.Associations).Create(doc).Error
		if err == nil {
			if attempt > 1 {
				s.log.Info().Str("scope", scope.String()).Str("number", cand.Number).Int("attempts", attempt).Msg("document number assigned after retries")
			}
			return nil
		}
		if rbErr := tx.RollbackTo(sp).Error; rbErr != nil {
			return storageErr("rollback to savepoint", rbErr)
		}

		switch {
		case db.IsUniqueViolationOn(err, models.IndexDocumentNumber, "documents.number"):
			s.log.Warn().Str("scope", scope.String()).Str("number", cand.Number).Int("attempt", attempt).Msg("document number collision, retrying")
			after = cand.Counter
		case db.IsUniqueViolationOn(err, models.IndexDocumentIdempotency, "documents.idempotency_key"):
			return fmt.Errorf("%w: idempotency key already used", ErrDuplicateRequest)
		case db.IsForeignKeyViolation(err):
			return &NotFoundError{Resource: "tenant", ID: doc.TenantID}
		default:
			return storageErr("insert document", err)
		}
	}
	s.log.Error().Str("scope", scope.String()).Str("last_candidate", last).Int("attempts", s.maxAttempts).Msg("sequence exhausted")
	return &SequenceExhaustedError{Scope: scope, Attempts: s.maxAttempts, LastCandidate: last}
}
