package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name      string
		p1, p2    Point
		expected  float64
		tolerance float64
	}{
		{
			name:      "Same point",
			p1:        Point{Lat: 51.5, Lon: -0.12},
			p2:        Point{Lat: 51.5, Lon: -0.12},
			expected:  0,
			tolerance: 0.001,
		},
		{
			name:      "One degree longitude at equator",
			p1:        Point{Lat: 0, Lon: 0},
			p2:        Point{Lat: 0, Lon: 1},
			expected:  111195, // ~111.2 km
			tolerance: 200,
		},
		{
			name:      "Hundredth degree longitude at equator",
			p1:        Point{Lat: 0, Lon: 0},
			p2:        Point{Lat: 0, Lon: 0.01},
			expected:  1112,
			tolerance: 5,
		},
		{
			name:      "Short hop",
			p1:        Point{Lat: 51.5000, Lon: -0.1200},
			p2:        Point{Lat: 51.5001, Lon: -0.1200},
			expected:  11.1,
			tolerance: 0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			if math.Abs(got-tt.expected) > tt.tolerance {
				t.Errorf("Distance() = %.2f, want %.2f ± %.2f", got, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestLerp(t *testing.T) {
	a := Point{Lat: 10, Lon: 20}
	b := Point{Lat: 12, Lon: 24}

	mid := Lerp(a, b, 0.5)
	if mid.Lat != 11 || mid.Lon != 22 {
		t.Errorf("Lerp midpoint = %+v, want {11 22}", mid)
	}

	if got := Lerp(a, b, -0.5); got != a {
		t.Errorf("Lerp clamped low = %+v, want %+v", got, a)
	}
	if got := Lerp(a, b, 1.5); got != b {
		t.Errorf("Lerp clamped high = %+v, want %+v", got, b)
	}
}

func TestRouteDeviation(t *testing.T) {
	route := NewRoute([]Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
	})

	// Point on the line should be ~0.
	on := route.DeviationMeters(Point{Lat: 0, Lon: 0.005})
	if on > 1 {
		t.Errorf("on-route deviation = %.2f m, want ~0", on)
	}

	// Point ~111 m north of the line.
	off := route.DeviationMeters(Point{Lat: 0.001, Lon: 0.005})
	if off < 90 || off > 130 {
		t.Errorf("off-route deviation = %.2f m, want ~111", off)
	}

	// Point past the end clamps to the last vertex.
	past := route.DeviationMeters(Point{Lat: 0, Lon: 0.02})
	if past < 900 || past > 1300 {
		t.Errorf("past-end deviation = %.2f m, want ~1112", past)
	}
}
