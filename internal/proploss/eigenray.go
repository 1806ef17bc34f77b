// Package proploss accumulates eigenrays per target and sums them coherently
// into transmission loss and phase for each frequency.
package proploss

// NoPathLoss is the transmission loss reported when a target has no
// eigenrays, or when its contributions cancel exactly.
const NoPathLoss = 300.0

// Eigenray is one acoustic path from the source to a target.
type Eigenray struct {
	Time      float64   `json:"time"`      // travel time, seconds
	Intensity []float64 `json:"intensity"` // transmission loss per frequency, dB
	Phase     []float64 `json:"phase"`     // phase per frequency, radians

	SourceDE float64 `json:"source_de"` // launch angles, degrees
	SourceAZ float64 `json:"source_az"`
	TargetDE float64 `json:"target_de"` // arrival angles, degrees
	TargetAZ float64 `json:"target_az"`

	Surface int `json:"surface_count"`
	Bottom  int `json:"bottom_count"`
	Caustic int `json:"caustic_count"`

	// Extrapolated is set when the path lies outside the launch fan and was
	// found by extrapolating the wavefront; its accuracy is reduced.
	Extrapolated bool `json:"extrapolated,omitempty"`
}

// Total is the coherent sum of all eigenrays at one frequency.
type Total struct {
	Intensity float64 `json:"intensity"` // dB
	Phase     float64 `json:"phase"`     // radians, [-pi, pi)
}
