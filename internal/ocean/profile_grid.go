package ocean

import (
	"fmt"
	"math"
	"time"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

// Climatology is a gridded temperature and salinity dataset with one entry
// per available month. Each month stores values on the shared axes, row-major
// with depth varying fastest.
type Climatology struct {
	Latitudes  []float64          `json:"latitudes"`
	Longitudes []float64          `json:"longitudes"`
	Depths     []float64          `json:"depths"`
	Months     []ClimatologyMonth `json:"months"`
}

// ClimatologyMonth holds one month of climatology.
type ClimatologyMonth struct {
	Month       time.Month `json:"month"`
	Temperature []float64  `json:"temperature"` // degrees C
	Salinity    []float64  `json:"salinity"`    // ppt
}

// Validate checks axes and per-month sample counts.
func (c *Climatology) Validate() error {
	if len(c.Months) == 0 {
		return fmt.Errorf("climatology has no months")
	}
	for _, m := range c.Months {
		if m.Month < time.January || m.Month > time.December {
			return fmt.Errorf("climatology month %d out of range", m.Month)
		}
		for _, values := range [][]float64{m.Temperature, m.Salinity} {
			g := Grid3D{Latitudes: c.Latitudes, Longitudes: c.Longitudes, Depths: c.Depths, Values: values}
			if err := g.Validate(); err != nil {
				return fmt.Errorf("climatology month %d: %w", m.Month, err)
			}
		}
	}
	return nil
}

// Mackenzie returns sound speed (m/s) from temperature (C), salinity (ppt),
// and depth (m) using the Mackenzie (1981) nine-term equation.
func Mackenzie(temperature, salinity, depth float64) float64 {
	t, s, d := temperature, salinity-35, depth
	return 1448.96 + 4.591*t - 5.304e-2*t*t + 2.374e-4*t*t*t +
		1.340*s + 1.630e-2*d + 1.675e-7*d*d -
		1.025e-2*t*s - 7.139e-13*t*d*d*d
}

// ProfileGrid is a sound speed profile derived from a climatology. The month
// used for each query is the calendar month of Epoch plus the simulation time.
type ProfileGrid struct {
	Epoch       time.Time
	Earth       geo.Earth
	Attenuation Attenuation

	speeds map[time.Month]*Grid3D
	first  time.Month
}

// NewProfileGrid precomputes a sound speed grid for every month in c.
func NewProfileGrid(c *Climatology, epoch time.Time, earth geo.Earth, att Attenuation) (*ProfileGrid, error) {
	if c == nil {
		return nil, errNilGrid
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	p := &ProfileGrid{
		Epoch:       epoch,
		Earth:       earth,
		Attenuation: att,
		speeds:      make(map[time.Month]*Grid3D, len(c.Months)),
		first:       c.Months[0].Month,
	}
	nk := len(c.Depths)
	for _, m := range c.Months {
		values := make([]float64, len(m.Temperature))
		for n := range values {
			values[n] = Mackenzie(m.Temperature[n], m.Salinity[n], c.Depths[n%nk])
		}
		p.speeds[m.Month] = &Grid3D{
			Latitudes:  c.Latitudes,
			Longitudes: c.Longitudes,
			Depths:     c.Depths,
			Values:     values,
		}
	}
	return p, nil
}

// Month returns the climatology month used at simulation time t.
func (p *ProfileGrid) Month(t float64) time.Month {
	m := p.Epoch.Add(time.Duration(t * float64(time.Second))).Month()
	if _, ok := p.speeds[m]; ok {
		return m
	}
	return p.first
}

// SoundSpeed implements Profile.
func (p *ProfileGrid) SoundSpeed(pos geo.Position, t float64) (float64, geo.Local) {
	g := p.speeds[p.Month(t)]
	c, dlat, dlng, ddepth := g.Interpolate(pos.Latitude, pos.Longitude, -pos.Altitude)
	m := p.Earth.MetresPerDegree()
	cl := math.Cos(units.ToRadians(pos.Latitude))
	grad := geo.Local{Up: -ddepth, North: dlat / m}
	if cl > 1e-9 {
		grad.East = dlng / (m * cl)
	}
	return c, grad
}

// Absorption implements Profile.
func (p *ProfileGrid) Absorption(pos geo.Position, freqs []float64, dst []float64) {
	absorb(p.Attenuation, pos, freqs, dst)
}
