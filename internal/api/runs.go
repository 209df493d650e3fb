package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"ghostpace/pkg/store"
)

// RunsHandler serves the stored run library.
type RunsHandler struct {
	store store.RunStore
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(st store.RunStore) *RunsHandler {
	return &RunsHandler{store: st}
}

// HandleList handles GET /api/runs?limit=N
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		slog.Error("Failed to list runs", "error", err)
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// HandleGet handles GET /api/runs/{id}
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to get run", "id", id, "error", err)
		http.Error(w, "failed to get run", http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

// HandlePersonalBest handles GET /api/runs/best/{route}
func (h *RunsHandler) HandlePersonalBest(w http.ResponseWriter, r *http.Request) {
	route := r.PathValue("route")
	run, err := h.store.PersonalBest(r.Context(), route)
	if err != nil {
		slog.Error("Failed to get personal best", "route", route, "error", err)
		http.Error(w, "failed to get personal best", http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "no runs for route", http.StatusNotFound)
		return
	}
	writeJSON(w, run)
}
