package ocean

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/fsutil"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
)

func testGrid() *Grid2D {
	return &Grid2D{
		Latitudes:  []float64{0, 1, 2},
		Longitudes: []float64{10, 12},
		Values: []float64{
			100, 200,
			300, 400,
			500, 600,
		},
	}
}

func TestGrid2D_Interpolate(t *testing.T) {
	t.Parallel()

	g := testGrid()
	require.NoError(t, g.Validate())

	v, dlat, dlng := g.Interpolate(0, 10)
	assert.InDelta(t, 100, v, 1e-12)

	v, dlat, dlng = g.Interpolate(0.5, 11)
	assert.InDelta(t, 250, v, 1e-12)
	assert.InDelta(t, 200, dlat, 1e-12)
	assert.InDelta(t, 50, dlng, 1e-12)

	// Exactly on an interior node.
	v, _, _ = g.Interpolate(1, 12)
	assert.InDelta(t, 400, v, 1e-12)

	// Clamped outside the axes, with zero slope along the clamped axis.
	v, dlat, dlng = g.Interpolate(5, 11)
	assert.InDelta(t, 550, v, 1e-12)
	assert.Equal(t, 0.0, dlat)
	assert.InDelta(t, 50, dlng, 1e-12)
}

func TestGrid2D_Validate(t *testing.T) {
	t.Parallel()

	g := testGrid()
	g.Values = g.Values[:5]
	assert.Error(t, g.Validate())

	g = testGrid()
	g.Latitudes = []float64{0, 2, 1}
	assert.Error(t, g.Validate())

	g = testGrid()
	g.Longitudes = nil
	assert.Error(t, g.Validate())

	g = testGrid()
	g.Latitudes = []float64{0, 1, 1}
	err := g.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index 2")

	g = testGrid()
	g.Longitudes = []float64{10, math.NaN()}
	assert.Error(t, g.Validate())

	g = &Grid2D{Latitudes: []float64{0}, Longitudes: []float64{10, 12}, Values: []float64{1, 2}}
	assert.NoError(t, g.Validate())
}

func TestLocate(t *testing.T) {
	t.Parallel()

	axis := []float64{0, 1, 3, 7}
	tests := []struct {
		x     float64
		i     int
		frac  float64
		scale float64
	}{
		{-1, 0, 0, 0},
		{0, 0, 0, 0},
		{0.5, 0, 0.5, 1},
		// Interior grid lines belong to the cell above them.
		{1, 1, 0, 0.5},
		{2, 1, 0.5, 0.5},
		{3, 2, 0, 0.25},
		{7, 2, 1, 0},
		{9, 2, 1, 0},
	}
	for _, tt := range tests {
		i, frac, scale := locate(axis, tt.x)
		assert.Equal(t, tt.i, i, "x=%v", tt.x)
		assert.InDelta(t, tt.frac, frac, 1e-12, "x=%v", tt.x)
		assert.InDelta(t, tt.scale, scale, 1e-12, "x=%v", tt.x)
	}

	i, frac, _ := locate([]float64{5}, 100)
	assert.Equal(t, 0, i)
	assert.Equal(t, 0.0, frac)

	_, frac, _ = locate(axis, math.NaN())
	assert.True(t, math.IsNaN(frac))
}

func TestGrid3D_InterpolateLinearField(t *testing.T) {
	t.Parallel()

	// f = 2*lat + 3*lng + 0.5*depth is reproduced exactly.
	g := &Grid3D{
		Latitudes:  []float64{0, 1},
		Longitudes: []float64{0, 2},
		Depths:     []float64{0, 100, 1000},
	}
	for _, lat := range g.Latitudes {
		for _, lng := range g.Longitudes {
			for _, d := range g.Depths {
				g.Values = append(g.Values, 2*lat+3*lng+0.5*d)
			}
		}
	}
	require.NoError(t, g.Validate())

	v, dlat, dlng, ddepth := g.Interpolate(0.25, 1.5, 400)
	assert.InDelta(t, 2*0.25+3*1.5+0.5*400, v, 1e-9)
	assert.InDelta(t, 2, dlat, 1e-9)
	assert.InDelta(t, 3, dlng, 1e-9)
	assert.InDelta(t, 0.5, ddepth, 1e-9)
}

func TestMackenzie(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1534.294375, Mackenzie(25, 35, 0), 1e-9)
	assert.Greater(t, Mackenzie(2, 35, 4000), Mackenzie(2, 35, 1000))
}

func testClimatology() *Climatology {
	c := &Climatology{
		Latitudes:  []float64{40, 50},
		Longitudes: []float64{-50, -40},
		Depths:     []float64{0, 1000, 5000},
	}
	for _, m := range []time.Month{time.January, time.July} {
		month := ClimatologyMonth{Month: m}
		for range c.Latitudes {
			for range c.Longitudes {
				for k := range c.Depths {
					temp := []float64{10, 4, 2}[k]
					if m == time.July {
						temp += 5
					}
					month.Temperature = append(month.Temperature, temp)
					month.Salinity = append(month.Salinity, 35)
				}
			}
		}
		c.Months = append(c.Months, month)
	}
	return c
}

func TestProfileGrid(t *testing.T) {
	t.Parallel()

	epoch := time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC)
	p, err := NewProfileGrid(testClimatology(), epoch, geo.EarthAt(45), AttenuationThorp{})
	require.NoError(t, err)

	assert.Equal(t, time.January, p.Month(0))
	// A month with no data falls back to the first month.
	assert.Equal(t, time.January, p.Month(30*24*3600))

	c, grad := p.SoundSpeed(geo.Position{Latitude: 45, Longitude: -45, Altitude: -1000}, 0)
	assert.InDelta(t, Mackenzie(4, 35, 1000), c, 1e-9)
	assert.InDelta(t, 0, grad.North, 1e-12)
	assert.InDelta(t, 0, grad.East, 1e-12)

	// Sound speed decreases with depth in the upper layer, so it increases going up.
	_, grad = p.SoundSpeed(geo.Position{Latitude: 45, Longitude: -45, Altitude: -500}, 0)
	want := (Mackenzie(10, 35, 0) - Mackenzie(4, 35, 1000)) / 1000
	assert.InDelta(t, want, grad.Up, 1e-9)

	july := epoch.AddDate(0, 6, 0)
	pj, err := NewProfileGrid(testClimatology(), july, geo.EarthAt(45), nil)
	require.NoError(t, err)
	cj, _ := pj.SoundSpeed(geo.Position{Latitude: 45, Longitude: -45, Altitude: -1000}, 0)
	assert.InDelta(t, Mackenzie(9, 35, 1000), cj, 1e-9)
}

func TestNewProfileGrid_Errors(t *testing.T) {
	t.Parallel()

	_, err := NewProfileGrid(nil, time.Time{}, geo.EarthAt(0), nil)
	assert.Error(t, err)

	c := testClimatology()
	c.Months[1].Salinity = c.Months[1].Salinity[:3]
	_, err = NewProfileGrid(c, time.Time{}, geo.EarthAt(0), nil)
	assert.Error(t, err)

	c = testClimatology()
	c.Months[0].Month = 13
	_, err = NewProfileGrid(c, time.Time{}, geo.EarthAt(0), nil)
	assert.Error(t, err)
}

func TestDataCache(t *testing.T) {
	t.Parallel()

	mem := fsutil.NewMemoryFileSystem()
	data, err := json.Marshal(testGrid())
	require.NoError(t, err)
	require.NoError(t, mem.WriteFile("data/bathy.json", data, 0644))
	data, err = json.Marshal(testClimatology())
	require.NoError(t, err)
	require.NoError(t, mem.WriteFile("data/woa.json", data, 0644))

	cache := NewDataCache(mem)
	g1, err := cache.Bathymetry("data/bathy.json")
	require.NoError(t, err)
	g2, err := cache.Bathymetry("data/./bathy.json")
	require.NoError(t, err)
	assert.Same(t, g1, g2)

	cl, err := cache.Climatology("data/woa.json")
	require.NoError(t, err)
	assert.Len(t, cl.Months, 2)
	assert.Equal(t, 2, cache.Len())

	// Reload picks up new file contents.
	deeper := testGrid()
	deeper.Values[0] = 150
	data, err = json.Marshal(deeper)
	require.NoError(t, err)
	require.NoError(t, mem.WriteFile("data/bathy.json", data, 0644))
	require.NoError(t, cache.Reload())
	g3, err := cache.Bathymetry("data/bathy.json")
	require.NoError(t, err)
	assert.Equal(t, 150.0, g3.Values[0])
	assert.Equal(t, 100.0, g1.Values[0])

	cache.Purge()
	assert.Equal(t, 0, cache.Len())

	_, err = cache.Bathymetry("data/missing.json")
	assert.Error(t, err)
	_, err = cache.Bathymetry("data/bathy.txt")
	assert.Error(t, err)

	require.NoError(t, mem.WriteFile("data/bad.json", []byte(`{"latitudes":[1],"longitudes":[1],"values":[]}`), 0644))
	_, err = cache.Bathymetry("data/bad.json")
	assert.Error(t, err)

	b := NewBoundaryGrid(g3, nil)
	assert.InDelta(t, 150, b.Depth(0, 10, 0), 1e-12)
}
