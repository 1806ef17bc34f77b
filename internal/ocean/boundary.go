package ocean

import (
	"math"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

var lossless = ReflectLossConstant{}

// BoundaryFlat is an interface at a constant depth.
type BoundaryFlat struct {
	Level     float64 // metres below sea level
	Reflector Reflector
}

// NewBoundaryFlat returns a flat interface. A nil reflector is lossless with
// no phase change.
func NewBoundaryFlat(depth float64, r Reflector) *BoundaryFlat {
	if r == nil {
		r = lossless
	}
	return &BoundaryFlat{Level: depth, Reflector: r}
}

// NewSurface returns a flat pressure-release sea surface.
func NewSurface() *BoundaryFlat {
	return NewBoundaryFlat(0, PressureRelease)
}

// Depth implements Boundary.
func (b *BoundaryFlat) Depth(_, _, _ float64) float64 {
	return b.Level
}

// Reflection implements Reflector.
func (b *BoundaryFlat) Reflection(grazing float64, freqs []float64, loss, phase []float64) {
	b.Reflector.Reflection(grazing, freqs, loss, phase)
}

// BoundarySlope is a planar interface that deepens at a constant rate away
// from a reference point. Depth never rises above MinDepth.
type BoundarySlope struct {
	Reference  geo.Position
	Level      float64 // depth at Reference, metres
	SlopeNorth float64 // metres of depth per metre northward
	SlopeEast  float64 // metres of depth per metre eastward
	MinDepth   float64
	Earth      geo.Earth
	Reflector  Reflector
}

// NewBoundarySlope returns a sloped bottom through the reference point.
func NewBoundarySlope(ref geo.Position, depth, slopeNorth, slopeEast float64, r Reflector) *BoundarySlope {
	if r == nil {
		r = lossless
	}
	return &BoundarySlope{
		Reference:  ref,
		Level:      depth,
		SlopeNorth: slopeNorth,
		SlopeEast:  slopeEast,
		MinDepth:   1,
		Earth:      geo.EarthAt(ref.Latitude),
		Reflector:  r,
	}
}

// Depth implements Boundary.
func (b *BoundarySlope) Depth(latitude, longitude, _ float64) float64 {
	m := b.Earth.MetresPerDegree()
	dn := (latitude - b.Reference.Latitude) * m
	de := (longitude - b.Reference.Longitude) * m * math.Cos(units.ToRadians(b.Reference.Latitude))
	return math.Max(b.MinDepth, b.Level+b.SlopeNorth*dn+b.SlopeEast*de)
}

// Reflection implements Reflector.
func (b *BoundarySlope) Reflection(grazing float64, freqs []float64, loss, phase []float64) {
	b.Reflector.Reflection(grazing, freqs, loss, phase)
}

// BoundaryGrid is an interface interpolated from a bathymetry grid.
type BoundaryGrid struct {
	Grid      *Grid2D
	Reflector Reflector
}

// NewBoundaryGrid wraps a bathymetry grid of depths in metres.
func NewBoundaryGrid(g *Grid2D, r Reflector) *BoundaryGrid {
	if r == nil {
		r = lossless
	}
	return &BoundaryGrid{Grid: g, Reflector: r}
}

// Depth implements Boundary.
func (b *BoundaryGrid) Depth(latitude, longitude, _ float64) float64 {
	v, _, _ := b.Grid.Interpolate(latitude, longitude)
	return v
}

// Reflection implements Reflector.
func (b *BoundaryGrid) Reflection(grazing float64, freqs []float64, loss, phase []float64) {
	b.Reflector.Reflection(grazing, freqs, loss, phase)
}
