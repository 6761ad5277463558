// Package api serves the solver over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/san-kum/odelab/internal/config"
	"github.com/san-kum/odelab/internal/solver"
)

const maxBodyBytes = 1 << 20

// Solver is the part of the solver service the handlers call.
type Solver interface {
	Solve(ctx context.Context, req solver.Request) (*solver.Result, error)
	SolveSystem(ctx context.Context, req solver.SystemRequest) (*solver.Result, error)
	Validate(ctx context.Context, req solver.ValidateRequest) (string, error)
}

type Handler struct {
	svc       Solver
	logger    *slog.Logger
	validator *validator.Validate
}

func NewHandler(svc Solver, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, logger: logger, validator: validator.New()}
}

// SolveResponse is a result tagged with the request id.
type SolveResponse struct {
	RequestID string `json:"request_id"`
	*solver.Result
}

type ValidateResponse struct {
	RequestID string `json:"request_id"`
	Feedback  string `json:"feedback"`
}

type PresetResponse struct {
	Name string `json:"name"`
	*config.Preset
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestID(h.logger))

	r.Get("/health", h.Health)
	r.Get("/presets", h.Presets)
	r.Post("/solve", h.Solve)
	r.Post("/solve/system", h.SolveSystem)
	r.Post("/validate", h.Validate)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Presets(w http.ResponseWriter, r *http.Request) {
	names := config.ListPresets()
	out := make([]PresetResponse, len(names))
	for i, name := range names {
		out[i] = PresetResponse{Name: name, Preset: config.GetPreset(name)}
	}
	h.respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) Solve(w http.ResponseWriter, r *http.Request) {
	var req solver.Request
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.Solve(r.Context(), req)
	if err != nil {
		h.respondSolveError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, SolveResponse{RequestID: RequestID(r.Context()), Result: res})
}

func (h *Handler) SolveSystem(w http.ResponseWriter, r *http.Request) {
	var req solver.SystemRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.SolveSystem(r.Context(), req)
	if err != nil {
		h.respondSolveError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, SolveResponse{RequestID: RequestID(r.Context()), Result: res})
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req solver.ValidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	feedback, err := h.svc.Validate(r.Context(), req)
	if err != nil {
		h.respondSolveError(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, ValidateResponse{RequestID: RequestID(r.Context()), Feedback: feedback})
}

// decode reads and validates a JSON body, writing the error response itself
// when it fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		h.respondError(w, r, http.StatusBadRequest, solver.Precondition, "", "invalid request body: "+err.Error())
		return false
	}
	if err := h.validator.Struct(v); err != nil {
		category := solver.Precondition
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Tag() == "required" && (fe.Field() == "Equation" || fe.Field() == "Equations") {
					category = solver.EmptyInput
				}
			}
		}
		h.respondError(w, r, http.StatusBadRequest, category, "", "validation error: "+err.Error())
		return false
	}
	return true
}

func (h *Handler) respondSolveError(w http.ResponseWriter, r *http.Request, err error) {
	var se *solver.Error
	if !errors.As(err, &se) {
		h.respondError(w, r, http.StatusInternalServerError, solver.Internal, "", "internal error")
		return
	}
	status := StatusFor(se.Category)
	msg := se.Err.Error()
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "unclassified solve failure", "error", se.Err)
		msg = "internal error"
	}
	h.respondError(w, r, status, se.Category, se.Fragment, msg)
}
