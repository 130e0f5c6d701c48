package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/maltedev/snack-catalog-crawler/internal/runs"
)

// RunService starts crawls and reports on them.
type RunService interface {
	Start(ctx context.Context, maxPages int) (*runs.Run, error)
	Get(ctx context.Context, id string) (*runs.Run, error)
	List(ctx context.Context) ([]*runs.Run, error)
}

type Handlers struct {
	runs     RunService
	maxPages int
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandlers uses defaultMaxPages for run requests that do not set max_pages.
func NewHandlers(runs RunService, defaultMaxPages int, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:     runs,
		maxPages: defaultMaxPages,
		validate: validator.New(),
		logger:   logger.With("component", "api"),
	}
}

// CreateRunRequest represents a crawl trigger. An empty body is allowed.
type CreateRunRequest struct {
	MaxPages *int `json:"max_pages" validate:"omitempty,gte=0,lte=1000"`
}

// CreateRunResponse represents the run creation response
type CreateRunResponse struct {
	RunID   string      `json:"run_id"`
	Status  runs.Status `json:"status"`
	Message string      `json:"message"`
}

// Health reports whether the run store is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	list, err := h.runs.List(r.Context())
	if err != nil {
		h.logger.Error("health check failed", "error", err)
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  "run store unavailable",
		})
		return
	}

	health := map[string]interface{}{"status": "ok"}
	if len(list) > 0 {
		health["last_run"] = map[string]interface{}{
			"id":     list[0].ID,
			"status": list[0].Status,
		}
	}
	h.respondJSON(w, http.StatusOK, health)
}

// CreateRun handles crawl triggers
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, http.StatusBadRequest, "max_pages must be between 0 and 1000")
		return
	}

	maxPages := h.maxPages
	if req.MaxPages != nil {
		maxPages = *req.MaxPages
	}

	run, err := h.runs.Start(r.Context(), maxPages)
	if errors.Is(err, runs.ErrRunInProgress) {
		h.respondError(w, http.StatusConflict, "a run is already in progress")
		return
	}
	if err != nil {
		h.logger.Error("failed to start run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to start run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, CreateRunResponse{
		RunID:   run.ID,
		Status:  run.Status,
		Message: "Run started",
	})
}

// GetRun handles run status retrieval
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		h.respondError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	run, err := h.runs.Get(r.Context(), runID)
	if errors.Is(err, runs.ErrRunNotFound) {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to get run", "run_id", runID, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

// ListRuns handles listing recent runs, newest first
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	list, err := h.runs.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if list == nil {
		list = []*runs.Run{}
	}

	h.respondJSON(w, http.StatusOK, list)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
