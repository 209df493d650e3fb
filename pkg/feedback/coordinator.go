// Package feedback turns pacing results into calibrated, rate-limited
// multi-channel signals. It never touches audio or haptic devices; the
// platform adapters consume the abstract ticks it emits.
package feedback

import (
	"log/slog"
	"sync"
	"time"

	"ghostpace/pkg/model"
)

const (
	// DefaultMaxReferenceMs is the time deficit that maps to full intensity.
	DefaultMaxReferenceMs = 30000

	DefaultWhisperThreshold   = 0.4
	DefaultHeartbeatThreshold = 0.6
	DefaultWailThreshold      = 0.5

	DefaultWhisperCooldown   = 8 * time.Second
	DefaultHeartbeatCooldown = 5 * time.Second
	DefaultWailCooldown      = 10 * time.Second
)

// Config holds the coordinator tuning knobs. Zero values fall back to the
// defaults above.
type Config struct {
	MaxReferenceMs     int64
	WhisperThreshold   float64
	HeartbeatThreshold float64
	WailThreshold      float64
	WhisperCooldown    time.Duration
	HeartbeatCooldown  time.Duration
	WailCooldown       time.Duration
}

func (c *Config) applyDefaults() {
	if c.MaxReferenceMs <= 0 {
		c.MaxReferenceMs = DefaultMaxReferenceMs
	}
	if c.WhisperThreshold <= 0 {
		c.WhisperThreshold = DefaultWhisperThreshold
	}
	if c.HeartbeatThreshold <= 0 {
		c.HeartbeatThreshold = DefaultHeartbeatThreshold
	}
	if c.WailThreshold <= 0 {
		c.WailThreshold = DefaultWailThreshold
	}
	if c.WhisperCooldown <= 0 {
		c.WhisperCooldown = DefaultWhisperCooldown
	}
	if c.HeartbeatCooldown <= 0 {
		c.HeartbeatCooldown = DefaultHeartbeatCooldown
	}
	if c.WailCooldown <= 0 {
		c.WailCooldown = DefaultWailCooldown
	}
}

// Coordinator maps pacing to intensity and gates each discrete cue behind
// its own cooldown. Cooldown bookkeeping persists across ticks; everything
// else is derived per tick.
type Coordinator struct {
	mu  sync.Mutex
	cfg Config

	intensity     float64
	lastFiredMs   map[string]int64
	heartbeatEver bool
}

// New creates a coordinator.
func New(cfg Config) *Coordinator {
	cfg.applyDefaults()
	return &Coordinator{
		cfg:         cfg,
		lastFiredMs: make(map[string]int64),
	}
}

// Tick evaluates one pacing result at the given wall-clock time and returns
// the signals the presentation layer should apply. Ahead and Unknown drive
// intensity to zero; the consumer fades rather than cuts.
func (c *Coordinator) Tick(res model.PacingResult, wallClockMs int64) model.FeedbackTick {
	c.mu.Lock()
	defer c.mu.Unlock()

	if res.Status != model.PacingBehind {
		c.intensity = 0
		return model.FeedbackTick{Intensity: 0, AmbientTarget: 0}
	}

	deficit := res.TimeDeltaMs
	if deficit < 0 {
		deficit = -deficit
	}
	intensity := float64(deficit) / float64(c.cfg.MaxReferenceMs)
	if intensity > 1 {
		intensity = 1
	}
	c.intensity = intensity

	tick := model.FeedbackTick{
		Intensity:     intensity,
		AmbientTarget: intensity,
	}

	if intensity >= c.cfg.WhisperThreshold && c.cooldownElapsed(model.CueWhisper, wallClockMs, c.cfg.WhisperCooldown) {
		c.lastFiredMs[model.CueWhisper] = wallClockMs
		tick.Cues = append(tick.Cues, model.CueTrigger{Name: model.CueWhisper, Intensity: intensity})
	}

	if intensity >= c.cfg.HeartbeatThreshold && c.cooldownElapsed(model.CueHeartbeat, wallClockMs, c.cfg.HeartbeatCooldown) {
		c.lastFiredMs[model.CueHeartbeat] = wallClockMs
		tick.Cues = append(tick.Cues, model.CueTrigger{
			Name:      model.CueHeartbeat,
			Intensity: intensity,
			// A heartbeat that may still be sounding restarts instead of
			// overlapping.
			Retrigger: c.heartbeatEver,
		})
		c.heartbeatEver = true
	}

	if len(tick.Cues) > 0 {
		slog.Debug("Feedback cues fired", "intensity", intensity, "cues", len(tick.Cues))
	}
	return tick
}

// TriggerWail fires the high-severity cue on an explicit request, subject
// to the current intensity qualifying and the wail cooldown. Returns the
// trigger and whether it fired.
func (c *Coordinator) TriggerWail(wallClockMs int64) (model.CueTrigger, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.intensity < c.cfg.WailThreshold {
		return model.CueTrigger{}, false
	}
	if !c.cooldownElapsed(model.CueWail, wallClockMs, c.cfg.WailCooldown) {
		return model.CueTrigger{}, false
	}
	c.lastFiredMs[model.CueWail] = wallClockMs
	slog.Debug("Wail cue fired", "intensity", c.intensity)
	return model.CueTrigger{Name: model.CueWail, Intensity: c.intensity}, true
}

// Stop emits the explicit full-teardown signal and clears cooldown state so
// the next race starts fresh. Distinct from a tick with intensity zero.
func (c *Coordinator) Stop() model.FeedbackTick {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.intensity = 0
	c.lastFiredMs = make(map[string]int64)
	c.heartbeatEver = false
	return model.FeedbackTick{Stop: true}
}

// Intensity returns the intensity of the last evaluated tick.
func (c *Coordinator) Intensity() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.intensity
}

// cooldownElapsed reports whether the named cue is allowed to fire again.
// A cue that never fired is always allowed.
func (c *Coordinator) cooldownElapsed(cue string, nowMs int64, cooldown time.Duration) bool {
	last, ok := c.lastFiredMs[cue]
	if !ok {
		return true
	}
	return nowMs-last > cooldown.Milliseconds()
}
