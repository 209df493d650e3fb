package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ghostpace/pkg/ghost"
	"ghostpace/pkg/model"
	"ghostpace/pkg/race"
	"ghostpace/pkg/store"
)

// RaceHandler exposes race control and status endpoints.
type RaceHandler struct {
	session *race.Session
	store   store.RunStore
}

// NewRaceHandler creates a new RaceHandler.
func NewRaceHandler(session *race.Session, st store.RunStore) *RaceHandler {
	return &RaceHandler{session: session, store: st}
}

// HandleStatus handles GET /api/race/status
func (h *RaceHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.session.Snapshot())
}

// HandleLoadGhost handles POST /api/race/ghost/{id}
func (h *RaceHandler) HandleLoadGhost(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		slog.Error("Failed to load run", "id", id, "error", err)
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}

	if err := h.session.LoadGhost(run.Samples); err != nil {
		if errors.Is(err, ghost.ErrInvalidTrajectory) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"ghost": id})
}

// HandleClearGhost handles POST /api/race/ghost/clear
func (h *RaceHandler) HandleClearGhost(w http.ResponseWriter, r *http.Request) {
	h.session.ClearGhost()
	w.WriteHeader(http.StatusNoContent)
}

// HandleArm handles POST /api/race/arm
func (h *RaceHandler) HandleArm(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Arm(); err != nil {
		switch {
		case errors.Is(err, race.ErrNoGhost):
			http.Error(w, "no ghost loaded", http.StatusConflict)
		case errors.Is(err, race.ErrInvalidTransition):
			http.Error(w, err.Error(), http.StatusConflict)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, map[string]model.RaceState{"state": h.session.State()})
}

// HandleStop handles POST /api/race/stop
func (h *RaceHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.session.Stop()
	writeJSON(w, map[string]model.RaceState{"state": h.session.State()})
}

// HandleCancel handles POST /api/race/cancel
func (h *RaceHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.session.Cancel()
	writeJSON(w, map[string]model.RaceState{"state": h.session.State()})
}

// PositionRequest is one live fix delivered by a client. WallClockMs may be
// omitted; the server then stamps the fix on arrival.
type PositionRequest struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	WallClockMs int64   `json:"wall_clock_ms"`
}

// HandlePosition handles POST /api/position. It feeds the live fix stream;
// the response carries the pacing result the fix produced.
func (h *RaceHandler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lon < -180 || req.Lon > 180 {
		http.Error(w, "coordinates out of range", http.StatusBadRequest)
		return
	}
	if req.WallClockMs == 0 {
		req.WallClockMs = time.Now().UnixMilli()
	}

	res := h.session.OnPosition(model.Fix{
		Lat:         req.Lat,
		Lon:         req.Lon,
		WallClockMs: req.WallClockMs,
	})
	writeJSON(w, res)
}

// SaveRunRequest names the route a finished run is saved under.
type SaveRunRequest struct {
	Route string `json:"route"`
}

// HandleSaveRun handles POST /api/race/save. Only a finished run can be
// stored; anything shorter would poison the ghost library.
func (h *RaceHandler) HandleSaveRun(w http.ResponseWriter, r *http.Request) {
	var req SaveRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Route == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if h.session.State() != model.StateFinished {
		http.Error(w, "no finished run to save", http.StatusConflict)
		return
	}

	id, err := h.store.SaveRun(r.Context(), req.Route, h.session.LiveSamples())
	if err != nil {
		slog.Error("Failed to save run", "route", req.Route, "error", err)
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, map[string]string{"id": id})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
