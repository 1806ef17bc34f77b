// Package waveq3d marches a fan of acoustic rays through an ocean in
// lock-step, detects the rays that pass through each target, and hands the
// resulting eigenrays to a proploss accumulator.
//
// Rays are integrated in an earth-centred Cartesian frame using the
// slowness form of the ray equations
//
//	dx/dt = c^2 s
//	ds/dt = -grad(c) / c
//
// with a time-centred (leapfrog) update between boundary interactions and a
// second-order midpoint update to restart the scheme after each reflection.
// Only the previous, current, and next wavefronts are retained; callers
// that need the full history stream slices out between steps.
package waveq3d
