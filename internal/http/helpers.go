package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeBackendError maps domain errors onto status codes: unknown rows are
// 404, validation failures 422, everything else 500.
func (s *Server) writeBackendError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.reqLog.LogError(ctx, "Backend operation failed", err, log.ComponentBackend, "request")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// logMutation records a successful write for the audit trail.
func (s *Server) logMutation(r *http.Request, op, entity, id string) {
	s.reqLog.LogMutation(r.Context(), op, entity, id, session(r).UserID)
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrEmptyName, core.ErrInvalidType, core.ErrInvalidAmount,
		core.ErrInvalidDate, core.ErrEmptyAccount, core.ErrEmptyTitle,
		core.ErrEmptyPerson, core.ErrEmptySource, core.ErrInvalidStatus,
		core.ErrInvalidCurrency,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// session returns the authenticated session; the auth middleware guarantees
// it is present on every /api route.
func session(r *http.Request) auth.Session {
	s, _ := auth.SessionFromContext(r.Context())
	return s
}
