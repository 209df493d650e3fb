// Package livetrack accumulates a live run from raw position fixes,
// filtering out GPS jitter before it can inflate distance.
package livetrack

import (
	"ghostpace/pkg/geo"
	"ghostpace/pkg/model"
)

// DefaultMinPointDistanceMeters is the noise floor: a fix closer than this
// to the last accepted fix updates the display position but adds no distance.
const DefaultMinPointDistanceMeters = 5.0

// Tracker ingests one fix at a time and keeps the running totals of a live
// run. It is not safe for concurrent use; the race session serializes all
// calls through its own entry point.
type Tracker struct {
	minPointDistance float64

	startWallMs  int64
	started      bool
	stopped      bool
	finalMs      int64
	lastAccepted geo.Point
	hasAccepted  bool
	current      geo.Point
	hasCurrent   bool
	totalMeters  float64
	samples      []model.GeoSample
}

// New creates a tracker with the given noise filter threshold in meters.
// Zero or negative falls back to the default.
func New(minPointDistanceMeters float64) *Tracker {
	if minPointDistanceMeters <= 0 {
		minPointDistanceMeters = DefaultMinPointDistanceMeters
	}
	return &Tracker{minPointDistance: minPointDistanceMeters}
}

// Start resets all accumulation and pins the race clock origin to
// wallClockMs. Fixes delivered before Start are discarded for pacing.
func (t *Tracker) Start(wallClockMs int64) {
	t.startWallMs = wallClockMs
	t.started = true
	t.stopped = false
	t.finalMs = 0
	t.hasAccepted = false
	t.totalMeters = 0
	t.samples = nil
}

// Started reports whether the race clock is running.
func (t *Tracker) Started() bool {
	return t.started && !t.stopped
}

// Stop freezes the run at wallClockMs: the race clock no longer advances
// and later fixes only move the display position. The frozen samples are
// what a save persists.
func (t *Tracker) Stop(wallClockMs int64) {
	if !t.started || t.stopped {
		return
	}
	t.stopped = true
	t.finalMs = t.elapsed(wallClockMs)
}

// Ingest feeds one raw fix. It returns true if the fix passed the noise
// filter and advanced the distance accumulator. Rejected fixes still move
// the current position so displays stay live.
func (t *Tracker) Ingest(fix model.Fix) bool {
	p := geo.Point{Lat: fix.Lat, Lon: fix.Lon}
	t.current = p
	t.hasCurrent = true

	if !t.started || t.stopped {
		return false
	}

	if !t.hasAccepted {
		// First fix after the start anchors the path, contributes no distance.
		t.lastAccepted = p
		t.hasAccepted = true
		t.samples = append(t.samples, model.GeoSample{
			Lat: fix.Lat, Lon: fix.Lon, ElapsedMs: t.elapsed(fix.WallClockMs),
		})
		return true
	}

	d := geo.Distance(t.lastAccepted, p)
	if d < t.minPointDistance {
		return false
	}

	t.totalMeters += d
	t.lastAccepted = p
	t.samples = append(t.samples, model.GeoSample{
		Lat: fix.Lat, Lon: fix.Lon, ElapsedMs: t.elapsed(fix.WallClockMs),
	})
	return true
}

// ElapsedMs returns the race clock at the given wall-clock time. The clock
// runs on wall time, not fix arrival, so a GPS stall still counts against
// the runner.
func (t *Tracker) ElapsedMs(wallClockMs int64) int64 {
	if !t.started {
		return 0
	}
	if t.stopped {
		return t.finalMs
	}
	return t.elapsed(wallClockMs)
}

func (t *Tracker) elapsed(wallClockMs int64) int64 {
	e := wallClockMs - t.startWallMs
	if e < 0 {
		return 0
	}
	return e
}

// TotalDistanceMeters returns the accumulated filtered distance.
func (t *Tracker) TotalDistanceMeters() float64 {
	return t.totalMeters
}

// Current returns the latest known position, accepted or not.
func (t *Tracker) Current() (geo.Point, bool) {
	return t.current, t.hasCurrent
}

// Samples returns the accepted samples of the run so far, timed on the race
// clock. The returned slice is owned by the tracker until the run ends.
func (t *Tracker) Samples() []model.GeoSample {
	return t.samples
}
