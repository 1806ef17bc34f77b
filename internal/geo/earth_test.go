package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestEarthAt_GaussianMeanRadius(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 6378101.0302, EarthAt(45).Radius, 1e-3)
	// Equator: sqrt(a * a(1-e2)).
	want := WGS84SemiMajor * math.Sqrt(1-WGS84Eccentricity2)
	assert.InDelta(t, want, EarthAt(0).Radius, 1e-6)
	assert.Greater(t, EarthAt(90).Radius, EarthAt(0).Radius)
}

func TestEarth_RoundTrip(t *testing.T) {
	t.Parallel()

	earth := EarthAt(45)
	positions := []Position{
		{Latitude: 45, Longitude: -45, Altitude: -1000},
		{Latitude: -12.5, Longitude: 170, Altitude: 0},
		{Latitude: 89.9, Longitude: 10, Altitude: -4000},
		{Latitude: 0, Longitude: 180, Altitude: 12},
	}
	for _, p := range positions {
		got := earth.Position(earth.Cartesian(p))
		assert.InDelta(t, p.Latitude, got.Latitude, 1e-9)
		assert.InDelta(t, math.Remainder(p.Longitude-got.Longitude, 360), 0, 1e-9)
		assert.InDelta(t, p.Altitude, got.Altitude, 1e-6)
	}
}

func TestEarth_Distance(t *testing.T) {
	t.Parallel()

	earth := EarthAt(45)
	a := Position{Latitude: 45, Longitude: -45, Altitude: -1000}
	b := Position{Latitude: 45.02, Longitude: -45, Altitude: -1000}
	// Chord length of a 0.02 degree arc at radius R-1000.
	r := earth.Radius - 1000
	want := 2 * r * math.Sin(0.01*math.Pi/180)
	assert.InDelta(t, want, earth.Distance(a, b), 1e-6)
}

func TestFrame_Orthonormal(t *testing.T) {
	t.Parallel()

	for _, p := range []Position{{Latitude: 45, Longitude: -45}, {Latitude: -30, Longitude: 100}} {
		f := FrameAt(p)
		assert.InDelta(t, 1, r3.Norm(f.Up), 1e-12)
		assert.InDelta(t, 1, r3.Norm(f.North), 1e-12)
		assert.InDelta(t, 1, r3.Norm(f.East), 1e-12)
		assert.InDelta(t, 0, r3.Dot(f.Up, f.North), 1e-12)
		assert.InDelta(t, 0, r3.Dot(f.Up, f.East), 1e-12)
		assert.InDelta(t, 0, r3.Dot(f.North, f.East), 1e-12)

		earth := EarthAt(p.Latitude)
		g := FrameOf(earth.Cartesian(p))
		assert.InDelta(t, 0, r3.Norm(r3.Sub(f.Up, g.Up)), 1e-12)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(f.North, g.North)), 1e-12)
		assert.InDelta(t, 0, r3.Norm(r3.Sub(f.East, g.East)), 1e-12)
	}
}

func TestFrame_DirectionAngles(t *testing.T) {
	t.Parallel()

	f := FrameAt(Position{Latitude: 45, Longitude: -45})
	tests := []struct{ de, az float64 }{
		{0, 0}, {30, 45}, {-60, -4}, {10, 170}, {-89, 90},
	}
	for _, tt := range tests {
		de, az := f.Angles(f.Direction(tt.de, tt.az))
		require.InDelta(t, tt.de, de, 1e-9)
		require.InDelta(t, tt.az, az, 1e-9)
	}

	l := f.Local(f.Direction(0, 90))
	assert.InDelta(t, 1, l.East, 1e-12)
	assert.InDelta(t, 0, l.North, 1e-12)
}

func TestPosition_IsFinite(t *testing.T) {
	t.Parallel()

	assert.True(t, Position{Latitude: 1, Longitude: 2, Altitude: -3}.IsFinite())
	assert.False(t, Position{Latitude: math.NaN()}.IsFinite())
	assert.False(t, Position{Altitude: math.Inf(-1)}.IsFinite())
	assert.Equal(t, 45.0, Position{Latitude: 45}.Colatitude())
}
