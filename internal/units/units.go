// Package units provides shared conversions for angles and
// acoustic levels.
package units

import "math"

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// AmplitudeToDB converts a pressure amplitude ratio to a loss in dB
// (positive means weaker). A zero amplitude maps to +Inf.
func AmplitudeToDB(amp float64) float64 {
	return -20 * math.Log10(amp)
}

// DBToAmplitude converts a loss in dB to a pressure amplitude ratio.
func DBToAmplitude(db float64) float64 {
	return math.Pow(10, -db/20)
}

// IntensityToDB converts an intensity ratio to a loss in dB. A zero
// intensity maps to +Inf.
func IntensityToDB(intensity float64) float64 {
	return -10 * math.Log10(intensity)
}

// WrapPhase maps an angle in radians onto [-pi, pi).
func WrapPhase(phase float64) float64 {
	p := math.Mod(phase+math.Pi, 2*math.Pi)
	if p < 0 {
		p += 2 * math.Pi
	}
	return p - math.Pi
}
