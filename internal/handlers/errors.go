package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-documents/httpx"
	"github.com/diewo77/go-documents/internal/services"
)

// writeServiceError maps engine errors to HTTP status codes and the JSON error envelope.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var (
		ve *services.ValidationError
		nf *services.NotFoundError
		ex *services.SequenceExhaustedError
	)
	switch {
	case errors.As(err, &ve):
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", ve.Violations)
	case errors.As(err, &nf):
		httpx.JSONError(w, http.StatusNotFound, "not_found", map[string]any{"resource": nf.Resource, "id": nf.ID})
	case errors.As(err, &ex):
		httpx.JSONError(w, http.StatusConflict, "sequence_exhausted", map[string]any{
			"scope":          ex.Scope.String(),
			"attempts":       ex.Attempts,
			"last_candidate": ex.LastCandidate,
		})
	case errors.Is(err, services.ErrDuplicateRequest):
		httpx.JSONError(w, http.StatusConflict, "duplicate_request", nil)
	default:
		log.Error().Err(err).Bool("retryable", services.IsRetryable(err)).Msg("request failed")
		httpx.JSONError(w, http.StatusInternalServerError, "internal", nil)
	}
}
