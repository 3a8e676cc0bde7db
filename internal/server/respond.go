package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/flowboardhq/flowboard/internal/errors"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps domain errors onto HTTP statuses: not-found lookups are
// 404, cycles and duplicates are 409 conflicts, validation failures are
// 400, everything else is 500.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "RESOURCE_NOT_FOUND"})
	case errors.Is(err, errors.ErrCircularDependency):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "CIRCULAR_DEPENDENCY"})
	case errors.Is(err, errors.ErrDuplicateID):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "DUPLICATE_ID"})
	case errors.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Code: "VALIDATION_FAILED"})
	case errors.Is(err, errors.ErrNoCandidates):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error(), Code: "NO_CANDIDATES"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error(), Code: "INTERNAL"})
	}
}

// requestLogger logs every request with method, path, status, and elapsed
// time through the structured logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
