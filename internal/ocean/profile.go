package ocean

import (
	"math"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
)

// ProfileLinear is a sound speed that varies linearly with depth:
// c(z) = Speed + Gradient*z, with z the depth below sea level.
// A zero Gradient gives an isovelocity ocean.
type ProfileLinear struct {
	Speed       float64 // m/s at the sea surface
	Gradient    float64 // (m/s)/m, positive when speed increases with depth
	Attenuation Attenuation
}

// SoundSpeed implements Profile.
func (p *ProfileLinear) SoundSpeed(pos geo.Position, _ float64) (float64, geo.Local) {
	return p.Speed - p.Gradient*pos.Altitude, geo.Local{Up: -p.Gradient}
}

// Absorption implements Profile.
func (p *ProfileLinear) Absorption(pos geo.Position, freqs []float64, dst []float64) {
	absorb(p.Attenuation, pos, freqs, dst)
}

// ProfileMunk is the canonical deep-water sound channel
// c(z) = c1 (1 + eps (eta + exp(-eta) - 1)), eta = 2 (z - z1) / B.
type ProfileMunk struct {
	AxisDepth   float64 // z1, metres
	AxisSpeed   float64 // c1, m/s
	Scale       float64 // B, metres
	Epsilon     float64
	Attenuation Attenuation
}

// NewProfileMunk returns the profile with its textbook coefficients.
func NewProfileMunk(att Attenuation) *ProfileMunk {
	return &ProfileMunk{
		AxisDepth:   1300,
		AxisSpeed:   1500,
		Scale:       1300,
		Epsilon:     0.00737,
		Attenuation: att,
	}
}

// SoundSpeed implements Profile.
func (p *ProfileMunk) SoundSpeed(pos geo.Position, _ float64) (float64, geo.Local) {
	z := -pos.Altitude
	eta := 2 * (z - p.AxisDepth) / p.Scale
	e := math.Exp(-eta)
	c := p.AxisSpeed * (1 + p.Epsilon*(eta+e-1))
	dcdz := p.AxisSpeed * p.Epsilon * (2 / p.Scale) * (1 - e)
	return c, geo.Local{Up: -dcdz}
}

// Absorption implements Profile.
func (p *ProfileMunk) Absorption(pos geo.Position, freqs []float64, dst []float64) {
	absorb(p.Attenuation, pos, freqs, dst)
}

func absorb(a Attenuation, pos geo.Position, freqs []float64, dst []float64) {
	if a == nil {
		for i := range freqs {
			dst[i] = 0
		}
		return
	}
	a.Attenuation(pos, freqs, dst)
}
