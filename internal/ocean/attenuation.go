package ocean

import "github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"

// AttenuationConstant is absorption proportional to frequency.
type AttenuationConstant struct {
	Coefficient float64 // dB/(m*Hz)
}

// Attenuation implements Attenuation.
func (a AttenuationConstant) Attenuation(_ geo.Position, freqs []float64, dst []float64) {
	for i, f := range freqs {
		dst[i] = a.Coefficient * f
	}
}

// AttenuationThorp is the Thorp empirical seawater absorption model.
type AttenuationThorp struct{}

// Attenuation implements Attenuation.
func (AttenuationThorp) Attenuation(_ geo.Position, freqs []float64, dst []float64) {
	for i, f := range freqs {
		dst[i] = Thorp(f)
	}
}

// Thorp returns seawater absorption in dB/m at frequency f (Hz).
func Thorp(f float64) float64 {
	k := f / 1000
	k2 := k * k
	dbPerKm := 0.11*k2/(1+k2) + 44*k2/(4100+k2) + 2.75e-4*k2 + 0.003
	return dbPerKm / 1000
}
