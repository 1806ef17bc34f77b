package waveq3d

import "errors"

var (
	// ErrLaunchGrid reports a launch fan with too few rays or NaN angles.
	ErrLaunchGrid = errors.New("invalid launch grid")
	// ErrNotMonotonic reports launch angles that are not strictly monotonic.
	ErrNotMonotonic = errors.New("launch angles not strictly monotonic")
	// ErrTimeStep reports a non-positive or non-finite time step.
	ErrTimeStep = errors.New("invalid time step")
	// ErrFrequencies reports an empty or non-positive frequency list.
	ErrFrequencies = errors.New("invalid frequencies")
	// ErrSource reports a source outside the water column.
	ErrSource = errors.New("invalid source")
	// ErrTargets reports a malformed target.
	ErrTargets = errors.New("invalid target")
	// ErrNonFinite reports NaN or infinite ray state. The queue refuses
	// further steps once it has been returned.
	ErrNonFinite = errors.New("non-finite ray state")
)
