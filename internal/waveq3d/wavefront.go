package waveq3d

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
)

// RayState is the state of one ray at one time step.
type RayState struct {
	Position geo.Position // latitude, longitude, altitude
	X        r3.Vec       // earth-centred position, metres
	Slowness r3.Vec       // earth-centred slowness, s/m
	Speed    float64      // sound speed at X
	Gradient r3.Vec       // sound speed gradient at X, earth-centred

	Time     float64 // travel time, seconds
	Distance float64 // path length, metres

	Loss  []float64 // absorption plus boundary loss per frequency, dB
	Phase []float64 // boundary phase per frequency, radians

	Jacobian   float64 // signed ray-tube area per steradian of launch angle
	JacobianOK bool    // false where no neighbours were usable

	Surface int
	Bottom  int
	Caustic int

	Valid bool

	sign    int8 // last nonzero sign of Jacobian
	restart bool // centred history broken by a reflection
}

// Family reports whether two rays have met the same boundaries the same
// number of times.
func (r *RayState) Family(o *RayState) bool {
	return r.Surface == o.Surface && r.Bottom == o.Bottom
}

// copyFrom overwrites r with src, reusing r's per-frequency storage.
func (r *RayState) copyFrom(src *RayState) {
	loss, phase := r.Loss, r.Phase
	*r = *src
	r.Loss = loss
	r.Phase = phase
	copy(r.Loss, src.Loss)
	copy(r.Phase, src.Phase)
}

// Wavefront is the state of every ray in the launch fan at one time, stored
// row-major with azimuth varying fastest.
type Wavefront struct {
	Time  float64
	NumDE int
	NumAZ int
	Rays  []RayState
}

func newWavefront(nde, naz, nfreq int) *Wavefront {
	w := &Wavefront{NumDE: nde, NumAZ: naz, Rays: make([]RayState, nde*naz)}
	loss := make([]float64, nde*naz*nfreq)
	phase := make([]float64, nde*naz*nfreq)
	for k := range w.Rays {
		w.Rays[k].Loss = loss[k*nfreq : (k+1)*nfreq : (k+1)*nfreq]
		w.Rays[k].Phase = phase[k*nfreq : (k+1)*nfreq : (k+1)*nfreq]
	}
	return w
}

// At returns the ray launched at D/E index de and AZ index az.
func (w *Wavefront) At(de, az int) *RayState {
	return &w.Rays[de*w.NumAZ+az]
}

// history is a ring of three wavefronts. head indexes the current slice;
// the slot after it is the next write target and the slot before it holds
// the previous slice.
type history struct {
	slots [3]*Wavefront
	head  int
}

func (h *history) current() *Wavefront  { return h.slots[h.head] }
func (h *history) next() *Wavefront     { return h.slots[(h.head+1)%3] }
func (h *history) previous() *Wavefront { return h.slots[(h.head+2)%3] }

// rotate makes the next slice current; the old previous slot becomes the
// next write target.
func (h *history) rotate() {
	h.head = (h.head + 1) % 3
}
