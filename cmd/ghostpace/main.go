package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ghostpace/internal/api"
	"ghostpace/pkg/audio"
	"ghostpace/pkg/config"
	"ghostpace/pkg/db"
	"ghostpace/pkg/feedback"
	"ghostpace/pkg/logging"
	"ghostpace/pkg/model"
	"ghostpace/pkg/probe"
	"ghostpace/pkg/race"
	"ghostpace/pkg/replay"
	"ghostpace/pkg/store"
	"ghostpace/pkg/version"
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	// Handle --init-config flag
	if *initConfig {
		if err := config.GenerateDefault("configs/ghostpace.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/ghostpace.yaml")
		return
	}

	if err := run(context.Background(), "configs/ghostpace.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("GhostPace Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	hub := api.NewHub()
	defer hub.Close()

	session := race.NewSession(race.Config{
		DeadbandMs:              appCfg.Race.DeadbandMs,
		StartProximityMeters:    appCfg.Race.StartProximityMeters,
		EndProximityMeters:      appCfg.Race.EndProximityMeters,
		MinFinishDistanceMeters: appCfg.Race.MinFinishDistanceMeters,
		MinPointDistanceMeters:  appCfg.Race.MinPointDistanceMeters,
	}, race.Callbacks{
		OnStateChanged: func(st model.RaceState) {
			slog.Info("Race state changed", "state", st)
			hub.Broadcast(api.Event{Type: "state", State: st})
		},
		OnPacingChanged: func(p model.PacingResult) {
			slog.Debug("Pacing changed", "status", p.Status, "delta_ms", p.TimeDeltaMs)
			hub.Broadcast(api.Event{Type: "pacing", Pacing: &p})
		},
	})

	coordinator := feedback.New(feedback.Config{
		MaxReferenceMs:     appCfg.Feedback.MaxReferenceMs,
		WhisperThreshold:   appCfg.Feedback.WhisperThreshold,
		HeartbeatThreshold: appCfg.Feedback.HeartbeatThreshold,
		WailThreshold:      appCfg.Feedback.WailThreshold,
		WhisperCooldown:    appCfg.Feedback.WhisperCooldown.Std(),
		HeartbeatCooldown:  appCfg.Feedback.HeartbeatCooldown.Std(),
		WailCooldown:       appCfg.Feedback.WailCooldown.Std(),
	})

	var audioMgr *audio.Manager
	if appCfg.Audio.Enabled {
		audioMgr = audio.New(appCfg.Audio, nil)
		defer audioMgr.Teardown()
	} else {
		slog.Info("Audio disabled")
	}

	if err := runStartupProbes(ctx, appCfg, dbConn, st); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	go feedbackLoop(ctx, appCfg, session, coordinator, audioMgr, hub)

	if appCfg.Replay.Enabled {
		if err := startReplay(ctx, appCfg, st, session); err != nil {
			return fmt.Errorf("failed to start replay: %w", err)
		}
	}

	return runServerLifecycle(ctx, appCfg, session, st, hub, cancel)
}

func runStartupProbes(ctx context.Context, appCfg *config.Config, dbConn *db.DB, st store.RunStore) error {
	probes := []probe.Probe{
		{
			Name:     "Database",
			Check:    dbConn.PingContext,
			Critical: true,
		},
	}

	if appCfg.Audio.Enabled {
		probes = append(probes, probe.Probe{
			Name: "Audio Assets",
			Check: func(context.Context) error {
				files := []string{appCfg.Audio.AmbientFile}
				for _, f := range appCfg.Audio.CueFiles {
					files = append(files, f)
				}
				for _, f := range files {
					if _, err := os.Stat(f); err != nil {
						return fmt.Errorf("missing audio file %s: %w", f, err)
					}
				}
				return nil
			},
			Critical: false, // Playback degrades gracefully without assets.
		})
	}

	if appCfg.Replay.Enabled {
		probes = append(probes, probe.Probe{
			Name: "Replay Run",
			Check: func(ctx context.Context) error {
				_, err := st.GetRun(ctx, appCfg.Replay.RunID)
				return err
			},
			Critical: true,
		})
	}

	return probe.AnalyzeResults(probe.Run(ctx, probes))
}

func initDB(appCfg *config.Config) (*db.DB, store.RunStore, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// feedbackLoop owns the coordinator and the audio adapter. It is the only
// goroutine that calls them, so neither needs its own locking.
func feedbackLoop(ctx context.Context, appCfg *config.Config, session *race.Session, coordinator *feedback.Coordinator, audioMgr *audio.Manager, hub *api.Hub) {
	interval := appCfg.Ticker.FeedbackLoop.Std()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	stopped := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UnixMilli()
			state := session.State()

			if state != model.StateRacing {
				if !stopped {
					tick := coordinator.Stop()
					applyFeedback(audioMgr, hub, tick)
					stopped = true
				}
				continue
			}
			stopped = false

			res := session.Tick(now)
			tick := coordinator.Tick(res, now)

			// The ghost crossing its own finish line while the runner is
			// still out is the high-severity event.
			snap := session.Snapshot()
			if snap.GhostLoaded && snap.ElapsedMs > snap.GhostDurationMs {
				if cue, ok := coordinator.TriggerWail(now); ok {
					tick.Cues = append(tick.Cues, cue)
				}
			}

			applyFeedback(audioMgr, hub, tick)
		}
	}
}

func applyFeedback(audioMgr *audio.Manager, hub *api.Hub, tick model.FeedbackTick) {
	if audioMgr != nil {
		audioMgr.Apply(tick)
	}
	hub.Broadcast(api.Event{Type: "feedback", Feedback: &tick})
}

// startReplay loads the configured run, races it against itself as the
// ghost, and feeds its fixes back in as the live position stream.
func startReplay(ctx context.Context, appCfg *config.Config, st store.RunStore, session *race.Session) error {
	run, err := st.GetRun(ctx, appCfg.Replay.RunID)
	if err != nil {
		return fmt.Errorf("replay run %q: %w", appCfg.Replay.RunID, err)
	}

	src, err := replay.New(run.Samples, replay.Config{
		SpeedFactor: appCfg.Replay.SpeedFactor,
		JitterM:     appCfg.Replay.JitterM,
	})
	if err != nil {
		return err
	}

	if err := session.LoadGhost(run.Samples); err != nil {
		return err
	}
	if err := session.Arm(); err != nil {
		return err
	}

	slog.Info("Replay source armed", "run", run.ID, "route", run.Route)
	go func() {
		if err := src.Run(ctx, func(fix model.Fix) {
			session.OnPosition(fix)
		}); err != nil && ctx.Err() == nil {
			slog.Error("Replay failed", "error", err)
		}
	}()
	return nil
}

func runServerLifecycle(ctx context.Context, appCfg *config.Config, session *race.Session, st store.RunStore, hub *api.Hub, cancel context.CancelFunc) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	shutdownFunc := func() {
		cancel()
	}

	srv := api.NewServer(
		appCfg.Server.Address,
		api.NewRaceHandler(session, st),
		api.NewRunsHandler(st),
		hub,
		shutdownFunc,
	)

	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	return srv.Shutdown(shutdownCtx)
}
