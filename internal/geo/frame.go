package geo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

// Local holds the components of a vector in the local (up, north, east)
// basis at some point.
type Local struct {
	Up    float64
	North float64
	East  float64
}

// Frame is the orthonormal local basis at a point on the sphere.
type Frame struct {
	Up    r3.Vec
	North r3.Vec
	East  r3.Vec
}

// FrameAt returns the local basis at the given position. Only latitude and
// longitude matter; altitude moves along Up.
func FrameAt(p Position) Frame {
	lat := units.ToRadians(p.Latitude)
	lng := units.ToRadians(p.Longitude)
	sl, cl := math.Sincos(lat)
	sg, cg := math.Sincos(lng)
	return Frame{
		Up:    r3.Vec{X: cl * cg, Y: cl * sg, Z: sl},
		North: r3.Vec{X: -sl * cg, Y: -sl * sg, Z: cl},
		East:  r3.Vec{X: -sg, Y: cg},
	}
}

// FrameOf returns the local basis at an earth-centred point.
func FrameOf(v r3.Vec) Frame {
	r := r3.Norm(v)
	up := r3.Scale(1/r, v)
	h := math.Hypot(v.X, v.Y)
	if h == 0 {
		// Pole: pick the Greenwich meridian for north and east.
		sign := math.Copysign(1, v.Z)
		return Frame{
			Up:    up,
			North: r3.Vec{X: -sign},
			East:  r3.Vec{Y: 1},
		}
	}
	east := r3.Vec{X: -v.Y / h, Y: v.X / h}
	return Frame{Up: up, North: r3.Cross(up, east), East: east}
}

// Global converts local components into an earth-centred vector.
func (f Frame) Global(l Local) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(l.Up, f.Up), r3.Scale(l.North, f.North)), r3.Scale(l.East, f.East))
}

// Local projects an earth-centred vector onto the local basis.
func (f Frame) Local(v r3.Vec) Local {
	return Local{Up: r3.Dot(v, f.Up), North: r3.Dot(v, f.North), East: r3.Dot(v, f.East)}
}

// Direction returns the unit vector with the given depression/elevation
// (positive up) and azimuth (clockwise from north), both in degrees.
func (f Frame) Direction(de, az float64) r3.Vec {
	sd, cd := math.Sincos(units.ToRadians(de))
	sa, ca := math.Sincos(units.ToRadians(az))
	return f.Global(Local{Up: sd, North: cd * ca, East: cd * sa})
}

// Angles returns the depression/elevation and azimuth of v in degrees.
func (f Frame) Angles(v r3.Vec) (de, az float64) {
	l := f.Local(v)
	n := math.Sqrt(l.Up*l.Up + l.North*l.North + l.East*l.East)
	if n == 0 {
		return 0, 0
	}
	de = units.ToDegrees(math.Asin(clamp(l.Up/n, -1, 1)))
	az = units.ToDegrees(math.Atan2(l.East, l.North))
	return de, az
}
