package ghost

import (
	"errors"
	"math"
	"testing"

	"ghostpace/pkg/model"
)

func samples(triples ...[3]float64) []model.GeoSample {
	out := make([]model.GeoSample, len(triples))
	for i, tr := range triples {
		out[i] = model.GeoSample{Lat: tr[0], Lon: tr[1], ElapsedMs: int64(tr[2])}
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		samples []model.GeoSample
		wantErr bool
	}{
		{
			name:    "Empty",
			samples: nil,
			wantErr: true,
		},
		{
			name:    "Single sample",
			samples: samples([3]float64{51.5, -0.12, 0}),
			wantErr: true,
		},
		{
			name: "Decreasing time",
			samples: samples(
				[3]float64{51.5, -0.12, 0},
				[3]float64{51.501, -0.12, 5000},
				[3]float64{51.502, -0.12, 4000},
			),
			wantErr: true,
		},
		{
			name: "Repeated timestamp allowed",
			samples: samples(
				[3]float64{51.5, -0.12, 0},
				[3]float64{51.501, -0.12, 5000},
				[3]float64{51.502, -0.12, 5000},
			),
			wantErr: false,
		},
		{
			name: "Valid",
			samples: samples(
				[3]float64{51.5, -0.12, 0},
				[3]float64{51.501, -0.12, 5000},
			),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.samples)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTrajectory) {
					t.Errorf("New() error = %v, want ErrInvalidTrajectory", err)
				}
				return
			}
			if err != nil {
				t.Errorf("New() unexpected error: %v", err)
			}
		})
	}
}

func TestPositionAtEndpoints(t *testing.T) {
	tr, err := New(samples(
		[3]float64{0, 0, 0},
		[3]float64{0, 0.005, 30000},
		[3]float64{0, 0.01, 60000},
	))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	first, oor := tr.PositionAt(0)
	if oor || first != tr.Start() {
		t.Errorf("PositionAt(0) = %+v oor=%v, want start sample", first, oor)
	}

	last, oor := tr.PositionAt(tr.TotalDurationMs())
	if oor || last != tr.End() {
		t.Errorf("PositionAt(total) = %+v oor=%v, want end sample", last, oor)
	}

	// Clamping outside the recorded window.
	before, oor := tr.PositionAt(-1000)
	if !oor || before != tr.Start() {
		t.Errorf("PositionAt(-1000) = %+v oor=%v, want clamped start", before, oor)
	}
	after, oor := tr.PositionAt(tr.TotalDurationMs() + 1)
	if !oor || after != tr.End() {
		t.Errorf("PositionAt(past end) = %+v oor=%v, want clamped end", after, oor)
	}
}

func TestPositionAtInterpolates(t *testing.T) {
	tr, err := New(samples(
		[3]float64{0, 0, 0},
		[3]float64{0, 0.01, 60000},
	))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	mid, oor := tr.PositionAt(30000)
	if oor {
		t.Fatal("PositionAt(30000) flagged out of range")
	}
	if math.Abs(mid.Lon-0.005) > 1e-9 || mid.Lat != 0 {
		t.Errorf("PositionAt(30000) = %+v, want lon 0.005", mid)
	}
}

func TestProjectDistanceMonotonic(t *testing.T) {
	tr, err := New(samples(
		[3]float64{0, 0, 0},
		[3]float64{0, 0.003, 20000},
		[3]float64{0, 0.007, 45000},
		[3]float64{0, 0.01, 60000},
	))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	total := tr.TotalDistanceMeters()
	prev := int64(-1)
	for d := 0.0; d <= total; d += total / 200 {
		got := tr.ProjectDistance(d)
		if got < prev {
			t.Fatalf("ProjectDistance not monotonic: %d ms after %d ms at %.1f m", got, prev, d)
		}
		prev = got
	}
}

func TestProjectDistanceClamps(t *testing.T) {
	tr, err := New(samples(
		[3]float64{0, 0, 0},
		[3]float64{0, 0.01, 60000},
	))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if got := tr.ProjectDistance(-5); got != 0 {
		t.Errorf("ProjectDistance(-5) = %d, want 0", got)
	}
	if got := tr.ProjectDistance(0); got != 0 {
		t.Errorf("ProjectDistance(0) = %d, want 0", got)
	}
	if got := tr.ProjectDistance(tr.TotalDistanceMeters() + 100); got != 60000 {
		t.Errorf("ProjectDistance(past end) = %d, want 60000 (ghost finished)", got)
	}
}

func TestProjectDistanceMidpoint(t *testing.T) {
	// ~1.11 km in 60 s at constant speed.
	tr, err := New(samples(
		[3]float64{0, 0, 0},
		[3]float64{0, 0.01, 60000},
	))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	half := tr.TotalDistanceMeters() / 2
	got := tr.ProjectDistance(half)
	if got < 29900 || got > 30100 {
		t.Errorf("ProjectDistance(half) = %d ms, want ~30000", got)
	}
}
