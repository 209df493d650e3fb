package race

import (
	"errors"
	"fmt"
	"time"

	"ghostpace/pkg/model"
)

// ErrInvalidTransition signals collaborator misuse, e.g. arming a session
// that is already racing. Runtime conditions (rejected fixes, projection
// clamps) never produce it.
var ErrInvalidTransition = errors.New("invalid state transition")

const (
	// DefaultStartProximityMeters is how close to the ghost's first sample
	// the runner must be for the race to begin.
	DefaultStartProximityMeters = 30.0
	// DefaultEndProximityMeters is how close to the ghost's last sample the
	// runner must be for the race to finish.
	DefaultEndProximityMeters = 30.0
	// DefaultMinFinishDistanceMeters guards against instant finishes on
	// routes whose start and end coincide.
	DefaultMinFinishDistanceMeters = 100.0
)

// StateMachine owns the race lifecycle. All calls arrive through the
// session's serialized entry point.
type StateMachine struct {
	state             model.RaceState
	startProximity    float64
	endProximity      float64
	minFinishDistance float64
	lastTransition    map[model.RaceState]time.Time
}

// NewStateMachine creates a machine in Idle. Non-positive thresholds fall
// back to the defaults.
func NewStateMachine(startProximity, endProximity, minFinishDistance float64) *StateMachine {
	if startProximity <= 0 {
		startProximity = DefaultStartProximityMeters
	}
	if endProximity <= 0 {
		endProximity = DefaultEndProximityMeters
	}
	if minFinishDistance <= 0 {
		minFinishDistance = DefaultMinFinishDistanceMeters
	}
	m := &StateMachine{
		state:             model.StateIdle,
		startProximity:    startProximity,
		endProximity:      endProximity,
		minFinishDistance: minFinishDistance,
		lastTransition:    make(map[model.RaceState]time.Time),
	}
	m.lastTransition[model.StateIdle] = time.Now()
	return m
}

// Current returns the lifecycle state.
func (m *StateMachine) Current() model.RaceState {
	return m.state
}

// LastTransition returns when the machine last entered the given state.
func (m *StateMachine) LastTransition(s model.RaceState) time.Time {
	return m.lastTransition[s]
}

func (m *StateMachine) transition(to model.RaceState) {
	m.state = to
	m.lastTransition[to] = time.Now()
}

// Arm moves Idle to AwaitingStart. Any other origin is a caller error.
func (m *StateMachine) Arm() error {
	if m.state != model.StateIdle {
		return fmt.Errorf("%w: arm from %s", ErrInvalidTransition, m.state)
	}
	m.transition(model.StateAwaitingStart)
	return nil
}

// CheckStart evaluates start proximity while AwaitingStart. Returns true on
// the AwaitingStart -> Racing transition.
func (m *StateMachine) CheckStart(distToStartMeters float64) bool {
	if m.state != model.StateAwaitingStart {
		return false
	}
	if distToStartMeters > m.startProximity {
		return false
	}
	m.transition(model.StateRacing)
	return true
}

// CheckFinish evaluates finish proximity while Racing. The covered-distance
// guard keeps a start-line fix from finishing a loop route instantly.
func (m *StateMachine) CheckFinish(distToEndMeters, coveredMeters float64) bool {
	if m.state != model.StateRacing {
		return false
	}
	if distToEndMeters > m.endProximity || coveredMeters < m.minFinishDistance {
		return false
	}
	m.transition(model.StateFinished)
	return true
}

// Stop ends an active race. Racing resolves to Finished when enough
// distance was covered, otherwise Cancelled; AwaitingStart resolves to
// Cancelled. Idle and terminal states are a no-op. Returns true if the
// state changed.
func (m *StateMachine) Stop(coveredMeters float64) bool {
	switch m.state {
	case model.StateRacing:
		if coveredMeters >= m.minFinishDistance {
			m.transition(model.StateFinished)
		} else {
			m.transition(model.StateCancelled)
		}
		return true
	case model.StateAwaitingStart:
		m.transition(model.StateCancelled)
		return true
	default:
		return false
	}
}

// Cancel aborts an active race. Idempotent in every state.
func (m *StateMachine) Cancel() bool {
	switch m.state {
	case model.StateRacing, model.StateAwaitingStart:
		m.transition(model.StateCancelled)
		return true
	default:
		return false
	}
}

// Reset returns the machine to Idle, e.g. when a new ghost loads.
func (m *StateMachine) Reset() {
	m.transition(model.StateIdle)
}
