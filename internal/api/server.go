package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ghostpace/pkg/version"
)

// NewServer creates and configures the HTTP server.
// It accepts handlers for all API endpoints and a shutdownFunc for graceful shutdown.
func NewServer(addr string, raceH *RaceHandler, runsH *RunsHandler, hub *Hub, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health Endpoint
	mux.HandleFunc("GET /health", handleHealth)

	// 2. Version Endpoint
	mux.HandleFunc("GET /api/version", handleVersion)

	// 3. Race Control Endpoints
	mux.HandleFunc("POST /api/position", raceH.HandlePosition)
	mux.HandleFunc("GET /api/race/status", raceH.HandleStatus)
	mux.HandleFunc("POST /api/race/ghost/clear", raceH.HandleClearGhost)
	mux.HandleFunc("POST /api/race/ghost/{id}", raceH.HandleLoadGhost)
	mux.HandleFunc("POST /api/race/arm", raceH.HandleArm)
	mux.HandleFunc("POST /api/race/stop", raceH.HandleStop)
	mux.HandleFunc("POST /api/race/cancel", raceH.HandleCancel)
	mux.HandleFunc("POST /api/race/save", raceH.HandleSaveRun)

	// 4. Run Library Endpoints
	mux.HandleFunc("GET /api/runs", runsH.HandleList)
	mux.HandleFunc("GET /api/runs/{id}", runsH.HandleGet)
	mux.HandleFunc("GET /api/runs/best/{route}", runsH.HandlePersonalBest)

	// 5. Event Stream
	if hub != nil {
		mux.HandleFunc("GET /ws/events", hub.HandleEvents)
	}

	// 6. Shutdown Endpoint
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Call shutdown in a goroutine to allow response to flush
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
