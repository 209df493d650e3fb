// Package race owns the live side of a ghost race: the session that turns
// raw fixes into pacing results, and the lifecycle state machine that gates
// when those results reach the feedback layer.
package race

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ghostpace/pkg/geo"
	"ghostpace/pkg/ghost"
	"ghostpace/pkg/livetrack"
	"ghostpace/pkg/model"
)

// ErrNoGhost is returned when an operation needs a loaded ghost.
var ErrNoGhost = errors.New("no ghost loaded")

// DefaultDeadbandMs is the delta band treated as parity so GPS jitter near
// even pacing cannot flip the status every fix.
const DefaultDeadbandMs = 2000

// Config holds the session tuning knobs.
type Config struct {
	DeadbandMs              int64
	StartProximityMeters    float64
	EndProximityMeters      float64
	MinFinishDistanceMeters float64
	MinPointDistanceMeters  float64
}

// Callbacks receive session output. Nil callbacks are skipped. They are
// invoked while the session lock is held, so they must not call back into
// the session.
type Callbacks struct {
	OnPacingChanged func(model.PacingResult)
	OnStateChanged  func(model.RaceState)
}

// Status is a read snapshot of the session for display layers.
type Status struct {
	SessionID       string             `json:"session_id"`
	State           model.RaceState    `json:"state"`
	Pacing          model.PacingResult `json:"pacing"`
	ElapsedMs       int64              `json:"elapsed_ms"`
	DistanceMeters  float64            `json:"distance_meters"`
	GhostLoaded     bool               `json:"ghost_loaded"`
	GhostDurationMs int64              `json:"ghost_duration_ms"`
	RouteDeviationM float64            `json:"route_deviation_m"`
	Lat             float64            `json:"lat"`
	Lon             float64            `json:"lon"`
	HasPosition     bool               `json:"has_position"`
	// Where the ghost is right now, while racing, and the compass bearing
	// from the runner toward it.
	GhostLat         float64 `json:"ghost_lat"`
	GhostLon         float64 `json:"ghost_lon"`
	GhostBearingDeg  float64 `json:"ghost_bearing_deg"`
	HasGhostPosition bool    `json:"has_ghost_position"`
	// StateSince is when the current lifecycle state was entered.
	StateSince time.Time `json:"state_since"`
}

// Session owns one optional ghost and the live run raced against it.
// Every mutation funnels through the mutex, so the fix feed and the clock
// tick can run in separate goroutines without interleaving distance
// accumulation.
type Session struct {
	mu sync.Mutex

	id      string
	cfg     Config
	cb      Callbacks
	ghost   *ghost.Trajectory
	route   *geo.Route
	tracker *livetrack.Tracker
	machine *StateMachine

	lastPacing model.PacingResult
	lastWallMs int64
}

// NewSession creates an idle session without a ghost.
func NewSession(cfg Config, cb Callbacks) *Session {
	if cfg.DeadbandMs <= 0 {
		cfg.DeadbandMs = DefaultDeadbandMs
	}
	return &Session{
		id:         uuid.NewString(),
		cfg:        cfg,
		cb:         cb,
		tracker:    livetrack.New(cfg.MinPointDistanceMeters),
		machine:    NewStateMachine(cfg.StartProximityMeters, cfg.EndProximityMeters, cfg.MinFinishDistanceMeters),
		lastPacing: model.Unknown(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// LoadGhost validates and installs a reference run. On validation failure
// the previous ghost, if any, stays loaded. Loading resets the lifecycle
// to Idle.
func (s *Session) LoadGhost(samples []model.GeoSample) error {
	tr, err := ghost.New(samples)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Cancel() {
		s.setState(model.StateCancelled)
	}
	s.ghost = tr
	s.route = geo.NewRoute(tr.Points())
	s.tracker = livetrack.New(s.cfg.MinPointDistanceMeters)
	s.machine.Reset()
	s.setState(model.StateIdle)
	s.setPacing(model.Unknown())
	slog.Info("Ghost loaded",
		"samples", tr.Len(),
		"duration_ms", tr.TotalDurationMs(),
		"distance_m", tr.TotalDistanceMeters())
	return nil
}

// ClearGhost cancels any active race and drops the reference run.
func (s *Session) ClearGhost() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Cancel() {
		s.tracker.Stop(s.lastWallMs)
		s.setState(s.machine.Current())
	}
	s.ghost = nil
	s.route = nil
	s.setPacing(model.Unknown())
	slog.Info("Ghost cleared")
}

// Arm moves the session to AwaitingStart so the next fix near the ghost's
// start line begins the race. Requires a loaded ghost.
func (s *Session) Arm() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ghost == nil {
		return ErrNoGhost
	}
	if s.machine.Current().Terminal() {
		// A finished race re-arms by going through Idle first; the previous
		// run's accumulation does not carry over.
		s.machine.Reset()
		s.tracker = livetrack.New(s.cfg.MinPointDistanceMeters)
	}
	if err := s.machine.Arm(); err != nil {
		return err
	}
	s.setState(model.StateAwaitingStart)
	return nil
}

// OnPosition ingests one live fix and returns the pacing result it produced.
// This is the single serialized write path for position data.
func (s *Session) OnPosition(fix model.Fix) model.PacingResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastWallMs = fix.WallClockMs
	p := geo.Point{Lat: fix.Lat, Lon: fix.Lon}

	switch s.machine.Current() {
	case model.StateAwaitingStart:
		// Pre-start fixes only update the display position.
		s.tracker.Ingest(fix)
		if s.ghost != nil && s.machine.CheckStart(geo.Distance(p, s.ghost.Start())) {
			// Race clock starts now; this fix anchors the path.
			s.tracker.Start(fix.WallClockMs)
			s.tracker.Ingest(fix)
			s.setState(model.StateRacing)
			slog.Info("Race started", "session", s.id, "lat", fix.Lat, "lon", fix.Lon)
		}
		return s.lastPacing

	case model.StateRacing:
		accepted := s.tracker.Ingest(fix)

		if s.machine.CheckFinish(geo.Distance(p, s.ghost.End()), s.tracker.TotalDistanceMeters()) {
			s.tracker.Stop(fix.WallClockMs)
			s.setState(model.StateFinished)
			s.setPacing(model.Unknown())
			slog.Info("Race finished",
				"session", s.id,
				"distance_m", s.tracker.TotalDistanceMeters(),
				"elapsed_ms", s.tracker.ElapsedMs(fix.WallClockMs))
			return s.lastPacing
		}

		if accepted {
			s.setPacing(s.computePacing(fix.WallClockMs))
		}
		return s.lastPacing

	default:
		// Idle and terminal states just track position for display.
		s.tracker.Ingest(fix)
		return s.lastPacing
	}
}

// Tick re-evaluates pacing on the clock driver. The race clock runs on wall
// time, so pacing decays toward Behind during a GPS stall even without fixes.
func (s *Session) Tick(wallClockMs int64) model.PacingResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastWallMs = wallClockMs
	if s.machine.Current() != model.StateRacing {
		return s.lastPacing
	}
	s.setPacing(s.computePacing(wallClockMs))
	return s.lastPacing
}

// Stop ends an active race: Finished when enough ground was covered,
// Cancelled otherwise. A no-op in Idle and terminal states.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Stop(s.tracker.TotalDistanceMeters()) {
		s.tracker.Stop(s.lastWallMs)
		s.setState(s.machine.Current())
		s.setPacing(model.Unknown())
		slog.Info("Race stopped", "session", s.id, "state", s.machine.Current())
	}
}

// Cancel aborts an active race. Idempotent in every state.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.machine.Cancel() {
		s.tracker.Stop(s.lastWallMs)
		s.setState(model.StateCancelled)
		s.setPacing(model.Unknown())
		slog.Info("Race cancelled", "session", s.id)
	}
}

// State returns the current lifecycle state.
func (s *Session) State() model.RaceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// Pacing returns the most recent pacing result.
func (s *Session) Pacing() model.PacingResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPacing
}

// LiveSamples returns a copy of the accepted samples of the current run,
// for saving a finished run as a new recorded activity.
func (s *Session) LiveSamples() []model.GeoSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	src := s.tracker.Samples()
	out := make([]model.GeoSample, len(src))
	copy(out, src)
	return out
}

// Snapshot returns the session state for display layers.
func (s *Session) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		SessionID:      s.id,
		State:          s.machine.Current(),
		Pacing:         s.lastPacing,
		ElapsedMs:      s.tracker.ElapsedMs(s.lastWallMs),
		DistanceMeters: s.tracker.TotalDistanceMeters(),
		GhostLoaded:    s.ghost != nil,
	}
	st.StateSince = s.machine.LastTransition(st.State)
	if s.ghost != nil {
		st.GhostDurationMs = s.ghost.TotalDurationMs()
	}
	if cur, ok := s.tracker.Current(); ok {
		st.Lat = cur.Lat
		st.Lon = cur.Lon
		st.HasPosition = true
		if s.route != nil {
			st.RouteDeviationM = s.route.DeviationMeters(cur)
		}
		if s.ghost != nil && st.State == model.StateRacing {
			gp, _ := s.ghost.PositionAt(st.ElapsedMs)
			st.GhostLat = gp.Lat
			st.GhostLon = gp.Lon
			st.GhostBearingDeg = geo.Bearing(cur, gp)
			st.HasGhostPosition = true
		}
	}
	return st
}

// computePacing projects the live distance onto the ghost's distance/time
// curve. Matching by distance traveled is robust to route deviation and
// answers "how long did the ghost need to cover what I've covered".
func (s *Session) computePacing(wallClockMs int64) model.PacingResult {
	if s.ghost == nil || s.machine.Current() != model.StateRacing {
		return model.Unknown()
	}
	covered := s.tracker.TotalDistanceMeters()
	if covered <= 0 {
		return model.Unknown()
	}

	ghostMs := s.ghost.ProjectDistance(covered)
	delta := ghostMs - s.tracker.ElapsedMs(wallClockMs)

	// Ties inside the deadband favor the runner.
	status := model.PacingAhead
	if delta < -s.cfg.DeadbandMs {
		status = model.PacingBehind
	}
	return model.PacingResult{Status: status, TimeDeltaMs: delta}
}

// setPacing stores the result and notifies on change.
func (s *Session) setPacing(r model.PacingResult) {
	if r == s.lastPacing {
		return
	}
	s.lastPacing = r
	if s.cb.OnPacingChanged != nil {
		s.cb.OnPacingChanged(r)
	}
}

// setState notifies the state callback.
func (s *Session) setState(st model.RaceState) {
	if s.cb.OnStateChanged != nil {
		s.cb.OnStateChanged(st)
	}
}
