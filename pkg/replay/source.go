// Package replay turns a stored run into a synthetic live fix stream, so
// the engine can be exercised end to end without a GPS device.
package replay

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"time"

	"ghostpace/pkg/model"
)

const metersPerDegreeLat = 111195.0

// Config tunes the playback.
type Config struct {
	// SpeedFactor scales playback speed: 1.2 replays the run 20% faster
	// than it was recorded, so the replayed runner beats its own ghost.
	SpeedFactor float64
	// JitterM adds gaussian position noise with this sigma in meters,
	// mimicking consumer GPS.
	JitterM float64
}

// Source replays one recorded run as live fixes.
type Source struct {
	run Samples
	cfg Config
	rng *rand.Rand
}

// Samples is the minimal view of a recorded run the source needs.
type Samples []model.GeoSample

// New creates a source for the given run.
func New(samples []model.GeoSample, cfg Config) (*Source, error) {
	if len(samples) < 2 {
		return nil, errors.New("replay needs at least 2 samples")
	}
	if cfg.SpeedFactor <= 0 {
		cfg.SpeedFactor = 1.0
	}
	return &Source{
		run: samples,
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// Run emits fixes at the recorded cadence scaled by the speed factor,
// stamping them with the actual wall clock. It blocks until the run is
// exhausted or the context is cancelled.
func (s *Source) Run(ctx context.Context, emit func(model.Fix)) error {
	slog.Info("Replay started", "samples", len(s.run), "speed", s.cfg.SpeedFactor, "jitter_m", s.cfg.JitterM)

	prev := int64(0)
	for i, sample := range s.run {
		if i > 0 {
			wait := time.Duration(float64(sample.ElapsedMs-prev)/s.cfg.SpeedFactor) * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		prev = sample.ElapsedMs
		emit(s.fix(sample, time.Now().UnixMilli()))
	}

	slog.Info("Replay finished")
	return nil
}

// Fixes generates the whole fix stream synchronously against a virtual
// wall clock starting at startWallMs. Used by tests and offline tools.
func (s *Source) Fixes(startWallMs int64) []model.Fix {
	out := make([]model.Fix, len(s.run))
	for i, sample := range s.run {
		wall := startWallMs + int64(float64(sample.ElapsedMs)/s.cfg.SpeedFactor)
		out[i] = s.fix(sample, wall)
	}
	return out
}

func (s *Source) fix(sample model.GeoSample, wallMs int64) model.Fix {
	lat, lon := sample.Lat, sample.Lon
	if s.cfg.JitterM > 0 {
		lat += s.rng.NormFloat64() * s.cfg.JitterM / metersPerDegreeLat
		lon += s.rng.NormFloat64() * s.cfg.JitterM / metersPerDegreeLat
	}
	return model.Fix{Lat: lat, Lon: lon, WallClockMs: wallMs}
}
