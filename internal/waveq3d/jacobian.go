package waveq3d

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

// updateJacobian recomputes the ray-tube Jacobian of ray (i, j) in w and
// counts a caustic when its sign differs from the last nonzero sign seen
// along the ray.
//
// The Jacobian is (dx/dDE x dx/dAZ) . s_hat with angles in radians, using
// central differences where both neighbours are valid members of the same
// family and one-sided differences otherwise. Each reflection flips the
// orientation of the tube, so the result is multiplied by
// (-1)^(surface+bottom) to keep the sign continuous through bounces.
func (q *Queue) updateJacobian(w *Wavefront, i, j int) {
	r := w.At(i, j)
	if !r.Valid {
		r.JacobianOK = false
		return
	}
	dDE, okDE := q.derivative(r, i, len(q.de), q.de, func(k int) *RayState { return w.At(k, j) })
	dAZ, okAZ := q.derivative(r, j, len(q.az), q.az, func(k int) *RayState { return w.At(i, k) })
	if !okDE || !okAZ {
		r.JacobianOK = false
		return
	}
	jac := r3.Dot(r3.Cross(dDE, dAZ), r3.Unit(r.Slowness))
	if (r.Surface+r.Bottom)%2 == 1 {
		jac = -jac
	}
	r.Jacobian = jac
	r.JacobianOK = true

	var sign int8
	switch {
	case jac > 0:
		sign = 1
	case jac < 0:
		sign = -1
	}
	if sign != 0 {
		if r.sign != 0 && sign != r.sign {
			r.Caustic++
		}
		r.sign = sign
	}
}

// derivative estimates dx/dangle at index k of a fan, in metres per radian.
func (q *Queue) derivative(r *RayState, k, n int, angles []float64, at func(int) *RayState) (r3.Vec, bool) {
	usable := func(m int) bool {
		if m < 0 || m >= n {
			return false
		}
		o := at(m)
		return o.Valid && o.Family(r)
	}
	lo, hi := usable(k-1), usable(k+1)
	rad := units.ToRadians(1)
	switch {
	case lo && hi:
		return r3.Scale(1/((angles[k+1]-angles[k-1])*rad), r3.Sub(at(k+1).X, at(k-1).X)), true
	case hi:
		return r3.Scale(1/((angles[k+1]-angles[k])*rad), r3.Sub(at(k+1).X, r.X)), true
	case lo:
		return r3.Scale(1/((angles[k]-angles[k-1])*rad), r3.Sub(r.X, at(k-1).X)), true
	}
	return r3.Vec{}, false
}
