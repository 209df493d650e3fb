package feedback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ghostpace/pkg/model"
)

func behind(deltaMs int64) model.PacingResult {
	return model.PacingResult{Status: model.PacingBehind, TimeDeltaMs: deltaMs}
}

func cueNames(tick model.FeedbackTick) []string {
	names := make([]string, 0, len(tick.Cues))
	for _, c := range tick.Cues {
		names = append(names, c.Name)
	}
	return names
}

func TestIntensityMapping(t *testing.T) {
	tests := []struct {
		name   string
		result model.PacingResult
		want   float64
	}{
		{name: "Ahead is zero", result: model.PacingResult{Status: model.PacingAhead, TimeDeltaMs: 9000}, want: 0},
		{name: "Unknown is zero", result: model.Unknown(), want: 0},
		{name: "Half reference", result: behind(-15000), want: 0.5},
		{name: "Full reference", result: behind(-30000), want: 1.0},
		{name: "Clamped above one", result: behind(-90000), want: 1.0},
		{name: "Small deficit", result: behind(-3000), want: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(Config{})
			tick := c.Tick(tt.result, 0)
			assert.InDelta(t, tt.want, tick.Intensity, 1e-9)
			assert.InDelta(t, tt.want, tick.AmbientTarget, 1e-9, "ambient target tracks intensity")
		})
	}
}

func TestWhisperCooldown(t *testing.T) {
	c := New(Config{})

	// 0.5 intensity: whisper qualifies, heartbeat does not.
	tick := c.Tick(behind(-15000), 0)
	require.Equal(t, []string{model.CueWhisper}, cueNames(tick))

	// Still behind 4 s later: cooldown (8 s) holds the cue.
	tick = c.Tick(behind(-15000), 4000)
	assert.Empty(t, tick.Cues)

	// 8.5 s: qualifies again.
	tick = c.Tick(behind(-15000), 8500)
	assert.Equal(t, []string{model.CueWhisper}, cueNames(tick))
}

func TestHeartbeatRetrigger(t *testing.T) {
	c := New(Config{})

	tick := c.Tick(behind(-21000), 0) // 0.7 intensity
	require.Contains(t, cueNames(tick), model.CueHeartbeat)
	for _, cue := range tick.Cues {
		if cue.Name == model.CueHeartbeat {
			assert.False(t, cue.Retrigger, "first heartbeat must not retrigger")
		}
	}

	tick = c.Tick(behind(-21000), 6000)
	require.Contains(t, cueNames(tick), model.CueHeartbeat)
	for _, cue := range tick.Cues {
		if cue.Name == model.CueHeartbeat {
			assert.True(t, cue.Retrigger, "subsequent heartbeats stop-then-restart")
		}
	}
}

func TestCooldownsAreIndependent(t *testing.T) {
	c := New(Config{})

	// 0.7 intensity fires both whisper and heartbeat.
	tick := c.Tick(behind(-21000), 0)
	require.ElementsMatch(t, []string{model.CueWhisper, model.CueHeartbeat}, cueNames(tick))

	// At 6 s the heartbeat (5 s cooldown) fires again, the whisper (8 s) not.
	tick = c.Tick(behind(-21000), 6000)
	assert.Equal(t, []string{model.CueHeartbeat}, cueNames(tick))
}

func TestWailExplicitTriggerAndCooldown(t *testing.T) {
	c := New(Config{})

	// Establish qualifying intensity (0.6 >= 0.5).
	c.Tick(behind(-18000), 0)

	_, fired := c.TriggerWail(0)
	require.True(t, fired, "wail must fire on first qualifying trigger")

	// Within the 10 s cooldown: held even though intensity still qualifies.
	c.Tick(behind(-18000), 5000)
	_, fired = c.TriggerWail(5000)
	assert.False(t, fired, "wail must not refire at t=5000")

	// Just past the cooldown.
	c.Tick(behind(-18000), 10001)
	_, fired = c.TriggerWail(10001)
	assert.True(t, fired, "wail may refire at t=10001")
}

func TestWailRequiresIntensity(t *testing.T) {
	c := New(Config{})

	c.Tick(behind(-6000), 0) // 0.2 intensity
	_, fired := c.TriggerWail(0)
	assert.False(t, fired, "wail requires intensity >= 0.5")

	c.Tick(model.Unknown(), 1000)
	_, fired = c.TriggerWail(1000)
	assert.False(t, fired)
}

func TestStopSignal(t *testing.T) {
	c := New(Config{})
	c.Tick(behind(-21000), 0)

	tick := c.Stop()
	assert.True(t, tick.Stop, "Stop() emits the explicit teardown signal")
	assert.Zero(t, tick.Intensity)

	// Cooldowns reset: cues fire immediately in the next race.
	tick = c.Tick(behind(-21000), 1000)
	assert.ElementsMatch(t, []string{model.CueWhisper, model.CueHeartbeat}, cueNames(tick))
	for _, cue := range tick.Cues {
		if cue.Name == model.CueHeartbeat {
			assert.False(t, cue.Retrigger, "retrigger state resets on stop")
		}
	}
}

func TestIntensityZeroIsNotStop(t *testing.T) {
	c := New(Config{})
	c.Tick(behind(-21000), 0)

	tick := c.Tick(model.PacingResult{Status: model.PacingAhead, TimeDeltaMs: 3000}, 1000)
	assert.False(t, tick.Stop, "recovering to Ahead fades, it does not tear down")
	assert.Zero(t, tick.AmbientTarget)
}
