// Package geo provides the spherical-earth frame used for ray integration.
//
// Positions are geodetic-looking triples (latitude, longitude in degrees,
// altitude in metres relative to mean sea level, negative below the surface)
// but all conversions treat the earth as a sphere whose radius is the
// Gaussian mean radius of curvature of the WGS-84 ellipsoid at a reference
// latitude. This keeps the local vertical radial, which the ray equations
// and the flat-boundary reflection law rely on.
package geo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

// WGS-84 ellipsoid parameters.
const (
	WGS84SemiMajor     = 6378137.0
	WGS84Eccentricity2 = 0.00669437999014
)

// Position is a point relative to the earth's surface.
type Position struct {
	Latitude  float64 `json:"latitude"`  // degrees north
	Longitude float64 `json:"longitude"` // degrees east
	Altitude  float64 `json:"altitude"`  // metres, negative below sea level
}

// Colatitude returns the polar angle of the position in degrees.
func (p Position) Colatitude() float64 {
	return 90.0 - p.Latitude
}

// IsFinite reports whether every coordinate is a finite number.
func (p Position) IsFinite() bool {
	return isFinite(p.Latitude) && isFinite(p.Longitude) && isFinite(p.Altitude)
}

// Earth is a spherical earth model.
type Earth struct {
	Radius float64 // metres
}

// EarthAt returns the sphere that best fits the WGS-84 ellipsoid near the
// given latitude: the geometric mean of the meridional (M) and prime
// vertical (N) radii of curvature.
func EarthAt(latitude float64) Earth {
	s := math.Sin(units.ToRadians(latitude))
	w := 1 - WGS84Eccentricity2*s*s
	n := WGS84SemiMajor / math.Sqrt(w)
	m := WGS84SemiMajor * (1 - WGS84Eccentricity2) / (w * math.Sqrt(w))
	return Earth{Radius: math.Sqrt(m * n)}
}

// Cartesian converts a position into earth-centred coordinates.
func (e Earth) Cartesian(p Position) r3.Vec {
	r := e.Radius + p.Altitude
	lat := units.ToRadians(p.Latitude)
	lng := units.ToRadians(p.Longitude)
	cl := math.Cos(lat)
	return r3.Vec{
		X: r * cl * math.Cos(lng),
		Y: r * cl * math.Sin(lng),
		Z: r * math.Sin(lat),
	}
}

// Position converts earth-centred coordinates back into a position.
func (e Earth) Position(v r3.Vec) Position {
	r := r3.Norm(v)
	if r == 0 {
		return Position{Altitude: -e.Radius}
	}
	return Position{
		Latitude:  units.ToDegrees(math.Asin(clamp(v.Z/r, -1, 1))),
		Longitude: units.ToDegrees(math.Atan2(v.Y, v.X)),
		Altitude:  r - e.Radius,
	}
}

// Distance returns the straight-line distance between two positions.
func (e Earth) Distance(a, b Position) float64 {
	return r3.Norm(r3.Sub(e.Cartesian(a), e.Cartesian(b)))
}

// MetresPerDegree returns the arc length of one degree of latitude at sea level.
func (e Earth) MetresPerDegree() float64 {
	return e.Radius * units.ToRadians(1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
