// Package ocean models the acoustic environment: sound speed, volume
// absorption, and the surface and bottom boundaries with their reflection
// responses. Every model is a value that can be queried concurrently.
package ocean

import (
	"errors"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
)

// Profile describes sound speed and volume absorption in the water column.
type Profile interface {
	// SoundSpeed returns the sound speed (m/s) at p and its gradient in the
	// local frame (1/s) at simulation time t (seconds).
	SoundSpeed(p geo.Position, t float64) (float64, geo.Local)
	// Absorption writes the attenuation coefficient (dB/m) for each
	// frequency (Hz) into dst.
	Absorption(p geo.Position, freqs []float64, dst []float64)
}

// Attenuation computes volume absorption in dB/m for a set of frequencies.
type Attenuation interface {
	Attenuation(p geo.Position, freqs []float64, dst []float64)
}

// Reflector computes the reflection response of an interface at a given
// grazing angle (radians). Loss is in dB (positive means weaker), phase in
// radians.
type Reflector interface {
	Reflection(grazing float64, freqs []float64, loss, phase []float64)
}

// Boundary is a surface or bottom interface.
type Boundary interface {
	// Depth returns the interface depth below mean sea level (metres,
	// positive down) at the given geographic location and time.
	Depth(latitude, longitude, t float64) float64
	Reflector
}

// Ocean composes the environment seen by the wavefront.
type Ocean struct {
	Surface Boundary
	Bottom  Boundary
	Profile Profile
}

// NewIsovelocity returns a constant sound speed ocean over a flat, lossless
// bottom with a pressure-release surface.
func NewIsovelocity(speed, depth float64) *Ocean {
	return &Ocean{
		Surface: NewSurface(),
		Bottom:  NewBoundaryFlat(depth, nil),
		Profile: &ProfileLinear{Speed: speed},
	}
}

// Validate checks that every component is present.
func (o *Ocean) Validate() error {
	if o == nil {
		return errors.New("ocean is nil")
	}
	if o.Surface == nil {
		return errors.New("ocean surface is nil")
	}
	if o.Bottom == nil {
		return errors.New("ocean bottom is nil")
	}
	if o.Profile == nil {
		return errors.New("ocean profile is nil")
	}
	return nil
}
