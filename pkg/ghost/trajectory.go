// Package ghost holds the immutable reference run and the projection math
// that answers "where was the ghost at time t" and "how long did the ghost
// need to cover this distance".
package ghost

import (
	"errors"
	"fmt"
	"sort"

	"ghostpace/pkg/geo"
	"ghostpace/pkg/model"
)

// ErrInvalidTrajectory rejects a reference run with fewer than two samples
// or a non-monotonic time axis.
var ErrInvalidTrajectory = errors.New("invalid trajectory")

// Trajectory is an immutable recorded run plus its derived cumulative
// distance curve. Safe for concurrent readers.
type Trajectory struct {
	samples []model.GeoSample
	// cumDist[i] is the great-circle distance in meters from sample 0 to
	// sample i along the recorded path.
	cumDist []float64
}

// New validates and builds a trajectory. The sample slice is copied so the
// caller cannot mutate it afterwards.
func New(samples []model.GeoSample) (*Trajectory, error) {
	if len(samples) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 samples, got %d", ErrInvalidTrajectory, len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].ElapsedMs < samples[i-1].ElapsedMs {
			return nil, fmt.Errorf("%w: elapsed time decreases at sample %d (%d -> %d ms)",
				ErrInvalidTrajectory, i, samples[i-1].ElapsedMs, samples[i].ElapsedMs)
		}
	}

	t := &Trajectory{
		samples: make([]model.GeoSample, len(samples)),
		cumDist: make([]float64, len(samples)),
	}
	copy(t.samples, samples)

	for i := 1; i < len(samples); i++ {
		d := geo.Distance(
			geo.Point{Lat: samples[i-1].Lat, Lon: samples[i-1].Lon},
			geo.Point{Lat: samples[i].Lat, Lon: samples[i].Lon},
		)
		t.cumDist[i] = t.cumDist[i-1] + d
	}

	return t, nil
}

// Len returns the number of samples.
func (t *Trajectory) Len() int {
	return len(t.samples)
}

// TotalDurationMs returns the elapsed time of the final sample.
func (t *Trajectory) TotalDurationMs() int64 {
	return t.samples[len(t.samples)-1].ElapsedMs
}

// TotalDistanceMeters returns the length of the recorded path.
func (t *Trajectory) TotalDistanceMeters() float64 {
	return t.cumDist[len(t.cumDist)-1]
}

// Start returns the first recorded position.
func (t *Trajectory) Start() geo.Point {
	return geo.Point{Lat: t.samples[0].Lat, Lon: t.samples[0].Lon}
}

// End returns the last recorded position.
func (t *Trajectory) End() geo.Point {
	last := t.samples[len(t.samples)-1]
	return geo.Point{Lat: last.Lat, Lon: last.Lon}
}

// Points returns the trajectory as an ordered point slice, for route
// overlays and deviation checks.
func (t *Trajectory) Points() []geo.Point {
	pts := make([]geo.Point, len(t.samples))
	for i, s := range t.samples {
		pts[i] = geo.Point{Lat: s.Lat, Lon: s.Lon}
	}
	return pts
}

// PositionAt interpolates the ghost's position at elapsedMs. Outside
// [0, TotalDurationMs] the position clamps to the first/last sample and
// outOfRange is true.
func (t *Trajectory) PositionAt(elapsedMs int64) (pos geo.Point, outOfRange bool) {
	if elapsedMs <= t.samples[0].ElapsedMs {
		return geo.Point{Lat: t.samples[0].Lat, Lon: t.samples[0].Lon}, elapsedMs < t.samples[0].ElapsedMs
	}
	last := t.samples[len(t.samples)-1]
	if elapsedMs >= last.ElapsedMs {
		return geo.Point{Lat: last.Lat, Lon: last.Lon}, elapsedMs > last.ElapsedMs
	}

	// First sample with ElapsedMs >= elapsedMs; the bracket is [hi-1, hi].
	hi := sort.Search(len(t.samples), func(i int) bool {
		return t.samples[i].ElapsedMs >= elapsedMs
	})
	lo := hi - 1

	s0, s1 := t.samples[lo], t.samples[hi]
	span := s1.ElapsedMs - s0.ElapsedMs
	if span == 0 {
		return geo.Point{Lat: s1.Lat, Lon: s1.Lon}, false
	}
	frac := float64(elapsedMs-s0.ElapsedMs) / float64(span)
	return geo.Lerp(
		geo.Point{Lat: s0.Lat, Lon: s0.Lon},
		geo.Point{Lat: s1.Lat, Lon: s1.Lon},
		frac,
	), false
}

// ProjectDistance returns the ghost's elapsed time in milliseconds at the
// moment it had covered distanceMeters. Below the first sample it returns 0;
// beyond the recorded path it clamps to the total duration, i.e. the ghost
// has effectively finished.
func (t *Trajectory) ProjectDistance(distanceMeters float64) int64 {
	if distanceMeters <= 0 {
		return t.samples[0].ElapsedMs
	}
	if distanceMeters >= t.TotalDistanceMeters() {
		return t.TotalDurationMs()
	}

	hi := sort.Search(len(t.cumDist), func(i int) bool {
		return t.cumDist[i] >= distanceMeters
	})
	lo := hi - 1

	span := t.cumDist[hi] - t.cumDist[lo]
	if span == 0 {
		return t.samples[hi].ElapsedMs
	}
	frac := (distanceMeters - t.cumDist[lo]) / span
	t0 := t.samples[lo].ElapsedMs
	t1 := t.samples[hi].ElapsedMs
	return t0 + int64(frac*float64(t1-t0))
}
