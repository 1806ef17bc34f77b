package ocean

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Grid2D holds samples on a rectilinear (latitude, longitude) grid, stored
// row-major with longitude varying fastest. Queries outside the axes are
// clamped to the edge values.
type Grid2D struct {
	Latitudes  []float64 `json:"latitudes"`
	Longitudes []float64 `json:"longitudes"`
	Values     []float64 `json:"values"`
}

// Validate checks axis ordering and sample count.
func (g *Grid2D) Validate() error {
	if err := checkAxis("latitudes", g.Latitudes); err != nil {
		return err
	}
	if err := checkAxis("longitudes", g.Longitudes); err != nil {
		return err
	}
	if want := len(g.Latitudes) * len(g.Longitudes); len(g.Values) != want {
		return fmt.Errorf("grid has %d values, want %d", len(g.Values), want)
	}
	return nil
}

// Interpolate returns the bilinear interpolant at (lat, lng) and its partial
// derivatives per degree of latitude and longitude.
func (g *Grid2D) Interpolate(lat, lng float64) (v, dlat, dlng float64) {
	i, fi, si := locate(g.Latitudes, lat)
	j, fj, sj := locate(g.Longitudes, lng)
	nj := len(g.Longitudes)
	at := func(a, b int) float64 { return g.Values[a*nj+b] }
	i1, j1 := next(i, len(g.Latitudes)), next(j, nj)

	v00, v01 := at(i, j), at(i, j1)
	v10, v11 := at(i1, j), at(i1, j1)
	v0 := v00 + fj*(v01-v00)
	v1 := v10 + fj*(v11-v10)
	v = v0 + fi*(v1-v0)
	dlat = si * (v1 - v0)
	dlng = sj * ((1-fi)*(v01-v00) + fi*(v11-v10))
	return v, dlat, dlng
}

// Grid3D holds samples on a (latitude, longitude, depth) grid, stored
// row-major with depth varying fastest.
type Grid3D struct {
	Latitudes  []float64
	Longitudes []float64
	Depths     []float64
	Values     []float64
}

// Validate checks axis ordering and sample count.
func (g *Grid3D) Validate() error {
	if err := checkAxis("latitudes", g.Latitudes); err != nil {
		return err
	}
	if err := checkAxis("longitudes", g.Longitudes); err != nil {
		return err
	}
	if err := checkAxis("depths", g.Depths); err != nil {
		return err
	}
	if want := len(g.Latitudes) * len(g.Longitudes) * len(g.Depths); len(g.Values) != want {
		return fmt.Errorf("grid has %d values, want %d", len(g.Values), want)
	}
	return nil
}

// Interpolate returns the trilinear interpolant and its partial derivatives
// per degree of latitude, per degree of longitude, and per metre of depth.
func (g *Grid3D) Interpolate(lat, lng, depth float64) (v, dlat, dlng, ddepth float64) {
	i, fi, si := locate(g.Latitudes, lat)
	j, fj, sj := locate(g.Longitudes, lng)
	k, fk, sk := locate(g.Depths, depth)
	nj, nk := len(g.Longitudes), len(g.Depths)
	i1, j1, k1 := next(i, len(g.Latitudes)), next(j, nj), next(k, nk)
	at := func(a, b, c int) float64 { return g.Values[(a*nj+b)*nk+c] }

	// Interpolate along depth first, then longitude, then latitude.
	lerp := func(a, b int) (float64, float64) {
		lo, hi := at(a, b, k), at(a, b, k1)
		return lo + fk*(hi-lo), sk * (hi - lo)
	}
	c00, d00 := lerp(i, j)
	c01, d01 := lerp(i, j1)
	c10, d10 := lerp(i1, j)
	c11, d11 := lerp(i1, j1)

	c0 := c00 + fj*(c01-c00)
	c1 := c10 + fj*(c11-c10)
	v = c0 + fi*(c1-c0)
	dlat = si * (c1 - c0)
	dlng = sj * ((1-fi)*(c01-c00) + fi*(c11-c10))
	dz0 := d00 + fj*(d01-d00)
	dz1 := d10 + fj*(d11-d10)
	ddepth = dz0 + fi*(dz1-dz0)
	return v, dlat, dlng, ddepth
}

// locate returns the lower cell index, the fractional offset within the
// cell, and the derivative scale d(offset)/dx, which is zero when x was
// clamped to the axis range.
func locate(axis []float64, x float64) (int, float64, float64) {
	n := len(axis)
	if n == 1 {
		return 0, 0, 0
	}
	if x <= axis[0] {
		return 0, 0, 0
	}
	if x >= axis[n-1] {
		return n - 2, 1, 0
	}
	i := floats.Within(axis, x)
	if i < 0 {
		// NaN query; let it propagate through the interpolant.
		i = 0
	}
	h := axis[i+1] - axis[i]
	return i, (x - axis[i]) / h, 1 / h
}

func next(i, n int) int {
	if i+1 < n {
		return i + 1
	}
	return i
}

func checkAxis(name string, axis []float64) error {
	if len(axis) == 0 {
		return fmt.Errorf("%s axis is empty", name)
	}
	if floats.HasNaN(axis) {
		return fmt.Errorf("%s axis contains NaN", name)
	}
	if len(axis) == 1 {
		return nil
	}
	steps := make([]float64, len(axis)-1)
	floats.SubTo(steps, axis[1:], axis[:len(axis)-1])
	if i := floats.MinIdx(steps); steps[i] <= 0 {
		return fmt.Errorf("%s axis must be strictly increasing at index %d", name, i+1)
	}
	return nil
}

var errNilGrid = errors.New("grid is nil")
