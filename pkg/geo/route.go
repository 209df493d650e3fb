package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Route is a polyline a point can be measured against. It backs the
// off-route indicator; pacing itself compares by distance traveled, not
// by perpendicular projection, so loops and out-and-backs stay unambiguous.
type Route struct {
	line orb.LineString
}

// NewRoute builds a route from ordered points.
func NewRoute(points []Point) *Route {
	line := make(orb.LineString, len(points))
	for i, p := range points {
		line[i] = orb.Point{p.Lon, p.Lat}
	}
	return &Route{line: line}
}

// DeviationMeters returns the approximate distance in meters from p to the
// nearest point on the route.
func (r *Route) DeviationMeters(p Point) float64 {
	if len(r.line) == 0 {
		return math.MaxFloat64
	}
	pt := orb.Point{p.Lon, p.Lat}
	if len(r.line) == 1 {
		return degreesToMeters(planar.Distance(pt, r.line[0]), p.Lat)
	}

	minDist := math.MaxFloat64
	for i := 0; i < len(r.line)-1; i++ {
		d := distanceToSegment(pt, r.line[i], r.line[i+1])
		if d < minDist {
			minDist = d
		}
	}
	return degreesToMeters(minDist, p.Lat)
}

// distanceToSegment calculates the minimum distance from a point to a line segment.
func distanceToSegment(p, a, b orb.Point) float64 {
	// Vector from a to b
	dx := b[0] - a[0]
	dy := b[1] - a[1]

	if dx == 0 && dy == 0 {
		// Segment is a point
		return planar.Distance(p, a)
	}

	// Parameter t for the projection of p onto the line
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / (dx*dx + dy*dy)

	if t < 0 {
		return planar.Distance(p, a)
	} else if t > 1 {
		return planar.Distance(p, b)
	}

	// Closest point on segment
	closest := orb.Point{a[0] + t*dx, a[1] + t*dy}
	return planar.Distance(p, closest)
}

// degreesToMeters converts a distance in degrees to approximate meters at a given latitude.
func degreesToMeters(degrees, lat float64) float64 {
	latRad := lat * math.Pi / 180
	metersPerDegree := 111320 * math.Cos(latRad)
	return degrees * metersPerDegree
}
