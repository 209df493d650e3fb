package model

import (
	"time"
)

// GeoSample is one timed position inside a recorded run.
// ElapsedMs is relative to the start of the run and non-decreasing.
type GeoSample struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	ElapsedMs int64   `json:"elapsed_ms"`
}

// Fix is a raw live position delivered by the caller's location layer.
// Accuracy/speed metadata, if the platform has any, never reaches the core.
type Fix struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	WallClockMs int64   `json:"wall_clock_ms"`
}

// RecordedRun is a stored activity that can be selected as a ghost.
type RecordedRun struct {
	ID        string      `json:"id"`
	Route     string      `json:"route"`
	Samples   []GeoSample `json:"samples"`
	CreatedAt time.Time   `json:"created_at"`
}

// TotalDurationMs returns the elapsed time of the last sample, or 0.
func (r *RecordedRun) TotalDurationMs() int64 {
	if len(r.Samples) == 0 {
		return 0
	}
	return r.Samples[len(r.Samples)-1].ElapsedMs
}

// PacingStatus classifies live performance against the ghost.
type PacingStatus string

const (
	PacingAhead   PacingStatus = "ahead"
	PacingBehind  PacingStatus = "behind"
	PacingUnknown PacingStatus = "unknown"
)

// PacingResult is the outcome of one spatial-to-temporal comparison.
// TimeDeltaMs is signed; positive means the runner is ahead of the ghost.
type PacingResult struct {
	Status      PacingStatus `json:"status"`
	TimeDeltaMs int64        `json:"time_delta_ms"`
}

// Unknown is the zero-information pacing result.
func Unknown() PacingResult {
	return PacingResult{Status: PacingUnknown}
}

// RaceState is the lifecycle state of a race session.
type RaceState string

const (
	StateIdle          RaceState = "idle"
	StateAwaitingStart RaceState = "awaiting_start"
	StateRacing        RaceState = "racing"
	StateFinished      RaceState = "finished"
	StateCancelled     RaceState = "cancelled"
)

// Terminal reports whether the state ends a race.
func (s RaceState) Terminal() bool {
	return s == StateFinished || s == StateCancelled
}

// Cue names emitted by the feedback coordinator. The audio adapter maps
// them to actual assets; the core only knows the names.
const (
	CueWhisper   = "whisper"
	CueHeartbeat = "heartbeat"
	CueWail      = "wail"
)

// CueTrigger asks the presentation layer to fire one discrete cue.
// Retrigger means stop-then-restart if the cue is still sounding.
type CueTrigger struct {
	Name      string  `json:"name"`
	Intensity float64 `json:"intensity"`
	Retrigger bool    `json:"retrigger"`
}

// FeedbackTick is the per-tick output of the feedback coordinator.
// AmbientTarget is the volume the ambient bed should fade toward; Stop is
// the explicit full-teardown signal, distinct from AmbientTarget == 0.
type FeedbackTick struct {
	Intensity     float64      `json:"intensity"`
	AmbientTarget float64      `json:"ambient_target"`
	Cues          []CueTrigger `json:"cues,omitempty"`
	Stop          bool         `json:"stop"`
}
