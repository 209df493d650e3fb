package livetrack

import (
	"testing"

	"ghostpace/pkg/model"
)

// ~11 m per 0.0001 degrees of latitude.
const latStep11m = 0.0001

func TestIngestBeforeStart(t *testing.T) {
	tr := New(5)

	accepted := tr.Ingest(model.Fix{Lat: 51.5, Lon: -0.12, WallClockMs: 1000})
	if accepted {
		t.Error("fix before Start() must not be accepted")
	}
	if _, ok := tr.Current(); !ok {
		t.Error("fix before Start() should still update current position")
	}
	if tr.TotalDistanceMeters() != 0 {
		t.Errorf("distance before start = %.2f, want 0", tr.TotalDistanceMeters())
	}
}

func TestNoiseFilter(t *testing.T) {
	tr := New(5)
	tr.Start(0)

	tr.Ingest(model.Fix{Lat: 51.5, Lon: -0.12, WallClockMs: 0})

	// ~3 m hop: below the 5 m filter.
	accepted := tr.Ingest(model.Fix{Lat: 51.5 + 0.000027, Lon: -0.12, WallClockMs: 1000})
	if accepted {
		t.Error("3 m fix must be rejected by a 5 m filter")
	}
	if tr.TotalDistanceMeters() != 0 {
		t.Errorf("distance after rejected fix = %.2f, want 0", tr.TotalDistanceMeters())
	}

	cur, ok := tr.Current()
	if !ok || cur.Lat == 51.5 {
		t.Error("rejected fix should still update current position")
	}

	// ~11 m hop: accepted, distance measured from the last ACCEPTED fix.
	accepted = tr.Ingest(model.Fix{Lat: 51.5 + latStep11m, Lon: -0.12, WallClockMs: 2000})
	if !accepted {
		t.Fatal("11 m fix must pass a 5 m filter")
	}
	if d := tr.TotalDistanceMeters(); d < 10 || d > 12.5 {
		t.Errorf("distance = %.2f, want ~11", d)
	}
}

func TestElapsedRunsOnWallClock(t *testing.T) {
	tr := New(5)
	tr.Start(10000)

	if got := tr.ElapsedMs(10000); got != 0 {
		t.Errorf("elapsed at start = %d, want 0", got)
	}
	// No fixes delivered at all: the clock still advances.
	if got := tr.ElapsedMs(25000); got != 15000 {
		t.Errorf("elapsed = %d, want 15000", got)
	}
	// Clock skew before the start clamps to zero.
	if got := tr.ElapsedMs(9000); got != 0 {
		t.Errorf("elapsed before start = %d, want 0", got)
	}
}

func TestAccumulation(t *testing.T) {
	tr := New(5)
	tr.Start(0)

	for i := 0; i < 4; i++ {
		tr.Ingest(model.Fix{
			Lat:         51.5 + float64(i)*latStep11m,
			Lon:         -0.12,
			WallClockMs: int64(i) * 1000,
		})
	}

	// Three accepted hops of ~11 m each.
	if d := tr.TotalDistanceMeters(); d < 30 || d > 37 {
		t.Errorf("distance = %.2f, want ~33", d)
	}
	if n := len(tr.Samples()); n != 4 {
		t.Errorf("accepted samples = %d, want 4", n)
	}

	// Start again: everything resets.
	tr.Start(50000)
	if tr.TotalDistanceMeters() != 0 || len(tr.Samples()) != 0 {
		t.Error("Start() must reset distance and samples")
	}
}

func TestStopFreezesRun(t *testing.T) {
	tr := New(5)
	tr.Start(0)

	tr.Ingest(model.Fix{Lat: 51.5, Lon: -0.12, WallClockMs: 0})
	tr.Ingest(model.Fix{Lat: 51.5 + latStep11m, Lon: -0.12, WallClockMs: 10000})

	dist := tr.TotalDistanceMeters()
	samples := len(tr.Samples())

	tr.Stop(12000)

	// Later fixes only move the display position.
	accepted := tr.Ingest(model.Fix{Lat: 51.5 + 10*latStep11m, Lon: -0.12, WallClockMs: 20000})
	if accepted {
		t.Error("fix after Stop() must not be accepted")
	}
	if tr.TotalDistanceMeters() != dist {
		t.Errorf("distance after stop = %.2f, want %.2f", tr.TotalDistanceMeters(), dist)
	}
	if len(tr.Samples()) != samples {
		t.Errorf("samples after stop = %d, want %d", len(tr.Samples()), samples)
	}
	cur, _ := tr.Current()
	if cur.Lat != 51.5+10*latStep11m {
		t.Error("fix after Stop() should still update current position")
	}

	// The race clock freezes at the stop time.
	if got := tr.ElapsedMs(60000); got != 12000 {
		t.Errorf("elapsed after stop = %d, want 12000", got)
	}

	// A new Start clears the freeze.
	tr.Start(100000)
	if !tr.Started() {
		t.Error("Start() after Stop() must restart the clock")
	}
	if tr.ElapsedMs(101000) != 1000 {
		t.Error("clock must run again after restart")
	}
}
