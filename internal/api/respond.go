package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/san-kum/odelab/internal/solver"
)

type ctxKey string

const (
	requestIDKey    ctxKey = "requestID"
	RequestIDHeader        = "X-Request-ID"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string `json:"error"`
	Category  string `json:"category"`
	Fragment  string `json:"fragment,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// requestID tags each request with a uuid, reusing a well-formed incoming
// X-Request-ID.
func requestID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)
			logger.DebugContext(r.Context(), "request started",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
		})
	}
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (h *Handler) respondJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, status int, category solver.Category, fragment, message string) {
	id := RequestID(r.Context())
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"status", status, "category", category, "error", message, "request_id", id)
	} else {
		h.logger.DebugContext(r.Context(), "request rejected",
			"status", status, "category", category, "error", message, "request_id", id)
	}
	h.respondJSON(w, r, status, ErrorResponse{
		Error:     message,
		Category:  string(category),
		Fragment:  fragment,
		RequestID: id,
	})
}

// StatusFor maps a failure category to its HTTP status.
func StatusFor(c solver.Category) int {
	switch c {
	case solver.EmptyInput,
		solver.MalformedEquation,
		solver.MalformedInitialCondition,
		solver.UnsupportedOrder,
		solver.InvalidStepParameters,
		solver.Precondition:
		return http.StatusBadRequest
	case solver.ExternalSolveFailure, solver.NotExplicitForm:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
