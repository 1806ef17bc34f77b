package ocean

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// ReflectLossConstant is a frequency and angle independent reflection.
type ReflectLossConstant struct {
	Loss  float64 // dB
	Phase float64 // radians
}

// Reflection implements Reflector.
func (r ReflectLossConstant) Reflection(_ float64, freqs []float64, loss, phase []float64) {
	for i := range freqs {
		loss[i] = r.Loss
		phase[i] = r.Phase
	}
}

// PressureRelease is the ideal sea surface: no loss, phase inverted.
var PressureRelease = ReflectLossConstant{Phase: -math.Pi}

// ReflectLossRayleigh is the plane-wave reflection coefficient of a fluid
// half-space below the water column.
type ReflectLossRayleigh struct {
	DensityRatio float64 // bottom density / water density
	SpeedRatio   float64 // bottom sound speed / water sound speed
	Attenuation  float64 // dB per wavelength in the bottom
}

// BottomType names a standard sediment.
type BottomType string

const (
	Clay      BottomType = "clay"
	Silt      BottomType = "silt"
	Sand      BottomType = "sand"
	Gravel    BottomType = "gravel"
	Moraine   BottomType = "moraine"
	Chalk     BottomType = "chalk"
	Limestone BottomType = "limestone"
	Basalt    BottomType = "basalt"
)

// Geoacoustic parameters for the standard sediments.
var bottomTypes = map[BottomType]ReflectLossRayleigh{
	Clay:      {DensityRatio: 1.5, SpeedRatio: 1.00, Attenuation: 0.2},
	Silt:      {DensityRatio: 1.7, SpeedRatio: 1.05, Attenuation: 1.0},
	Sand:      {DensityRatio: 1.9, SpeedRatio: 1.1, Attenuation: 0.8},
	Gravel:    {DensityRatio: 2.0, SpeedRatio: 1.2, Attenuation: 0.6},
	Moraine:   {DensityRatio: 2.1, SpeedRatio: 1.3, Attenuation: 0.4},
	Chalk:     {DensityRatio: 2.2, SpeedRatio: 1.6, Attenuation: 0.2},
	Limestone: {DensityRatio: 2.4, SpeedRatio: 2.0, Attenuation: 0.1},
	Basalt:    {DensityRatio: 2.7, SpeedRatio: 3.5, Attenuation: 0.1},
}

// NewReflectLossRayleigh looks up a standard sediment by name.
func NewReflectLossRayleigh(t BottomType) (ReflectLossRayleigh, error) {
	r, ok := bottomTypes[BottomType(strings.ToLower(string(t)))]
	if !ok {
		return ReflectLossRayleigh{}, fmt.Errorf("unknown bottom type %q", t)
	}
	return r, nil
}

// Reflection implements Reflector.
func (r ReflectLossRayleigh) Reflection(grazing float64, freqs []float64, loss, phase []float64) {
	// Loss tangent from dB per wavelength.
	delta := r.Attenuation / (40 * math.Pi * math.Log10(math.E))
	n := complex(1/r.SpeedRatio, 0) * complex(1, delta)
	sin, cos := math.Sincos(grazing)
	m := complex(r.DensityRatio*sin, 0)
	root := cmplx.Sqrt(n*n - complex(cos*cos, 0))
	refl := (m - root) / (m + root)
	amp := cmplx.Abs(refl)
	l := 300.0
	if amp > 0 {
		l = -20 * math.Log10(amp)
	}
	p := cmplx.Phase(refl)
	for i := range freqs {
		loss[i] = l
		phase[i] = p
	}
}
