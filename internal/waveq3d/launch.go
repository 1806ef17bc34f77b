package waveq3d

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Linear returns the evenly spaced sequence first, first+increment, ...,
// ending at the last value that does not overshoot last by more than half
// an increment.
func Linear(first, increment, last float64) []float64 {
	if increment == 0 || math.IsNaN(first) || math.IsNaN(increment) || math.IsNaN(last) {
		return []float64{first}
	}
	steps := math.Floor((last-first)/increment + 0.5)
	if steps < 1 {
		return []float64{first}
	}
	n := int(steps) + 1
	return floats.Span(make([]float64, n), first, first+float64(n-1)*increment)
}

// LogSequence returns count values first, first*ratio, first*ratio^2, ...
// It is typically used for frequency bands.
func LogSequence(first, ratio float64, count int) []float64 {
	out := make([]float64, count)
	v := first
	for i := range out {
		out[i] = v
		v *= ratio
	}
	return out
}

// checkFan validates a launch angle sequence.
func checkFan(name string, seq []float64) error {
	if len(seq) < 2 {
		return fmt.Errorf("%w: %s needs at least 2 angles, got %d", ErrLaunchGrid, name, len(seq))
	}
	if floats.HasNaN(seq) {
		return fmt.Errorf("%w: %s contains NaN", ErrLaunchGrid, name)
	}
	for _, v := range seq {
		if math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s contains Inf", ErrLaunchGrid, name)
		}
	}
	up := seq[1] > seq[0]
	for i := 1; i < len(seq); i++ {
		if (up && !(seq[i] > seq[i-1])) || (!up && !(seq[i] < seq[i-1])) {
			return fmt.Errorf("%w: %s at index %d (%g after %g)", ErrNotMonotonic, name, i, seq[i], seq[i-1])
		}
	}
	return nil
}
