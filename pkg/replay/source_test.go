package replay

import (
	"testing"

	"ghostpace/pkg/model"
	"ghostpace/pkg/race"
)

func runSamples() []model.GeoSample {
	return []model.GeoSample{
		{Lat: 0, Lon: 0, ElapsedMs: 0},
		{Lat: 0, Lon: 0.0025, ElapsedMs: 15000},
		{Lat: 0, Lon: 0.005, ElapsedMs: 30000},
		{Lat: 0, Lon: 0.0075, ElapsedMs: 45000},
		{Lat: 0, Lon: 0.01, ElapsedMs: 60000},
	}
}

func TestNewRejectsShortRuns(t *testing.T) {
	if _, err := New([]model.GeoSample{{Lat: 0, Lon: 0}}, Config{}); err == nil {
		t.Fatal("New() must reject runs with fewer than 2 samples")
	}
}

func TestFixesScaleWithSpeedFactor(t *testing.T) {
	src, err := New(runSamples(), Config{SpeedFactor: 2.0})
	if err != nil {
		t.Fatal(err)
	}

	fixes := src.Fixes(1000)
	if len(fixes) != 5 {
		t.Fatalf("fixes = %d, want 5", len(fixes))
	}
	// A 60 s run at 2x finishes in 30 s of wall time.
	if got := fixes[len(fixes)-1].WallClockMs; got != 31000 {
		t.Errorf("last fix at %d ms, want 31000", got)
	}
	if fixes[0].WallClockMs != 1000 {
		t.Errorf("first fix at %d ms, want 1000", fixes[0].WallClockMs)
	}
}

// A replayed run at 1.2x beats its own recording when raced as a ghost.
func TestReplayedRunnerBeatsOwnGhost(t *testing.T) {
	samples := runSamples()

	session := race.NewSession(race.Config{MinFinishDistanceMeters: 1e9}, race.Callbacks{})
	if err := session.LoadGhost(samples); err != nil {
		t.Fatal(err)
	}
	if err := session.Arm(); err != nil {
		t.Fatal(err)
	}

	src, err := New(samples, Config{SpeedFactor: 1.2})
	if err != nil {
		t.Fatal(err)
	}
	var last model.PacingResult
	for _, fix := range src.Fixes(0) {
		last = session.OnPosition(fix)
	}

	if last.Status != model.PacingAhead {
		t.Fatalf("status = %s, want ahead at 1.2x replay", last.Status)
	}
	// 60 s route at 1.2x takes 50 s: ~10 s ahead at the line.
	if last.TimeDeltaMs < 9000 || last.TimeDeltaMs > 11000 {
		t.Errorf("timeDeltaMs = %d, want ~10000", last.TimeDeltaMs)
	}
}

func TestJitterStaysBounded(t *testing.T) {
	src, err := New(runSamples(), Config{SpeedFactor: 1.0, JitterM: 3})
	if err != nil {
		t.Fatal(err)
	}

	for _, fix := range src.Fixes(0) {
		// 6 sigma in degrees; anything outside is a conversion bug.
		if fix.Lat > 18.0/metersPerDegreeLat || fix.Lat < -18.0/metersPerDegreeLat {
			t.Fatalf("jittered lat %.8f outside expected envelope", fix.Lat)
		}
	}
}
