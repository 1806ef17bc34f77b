package waveq3d

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	newtonIterations = 30
	newtonTolerance  = 1e-3 // metres
	newtonLimit      = 5.0  // abandon iterates this many cells outside
)

// cellModel interpolates ray position over a fan cell and a time step.
//
// Along each angle the model is a cubic Hermite spline through the cell's
// two rows (or columns) with tangents taken from a 4-node stencil; in time
// each stencil ray is a cubic Hermite curve using its exact velocity c^2 s
// at both ends. Stencil nodes outside the fan, invalid, or of another
// family are dropped and the tangents fall back to one-sided differences.
type cellModel struct {
	a, b     *Wavefront
	dt       float64
	rows     [4]int
	cols     [4]int
	rowOK    [4]bool
	colOK    [4]bool
	row0     [4]float64 // tangent coefficients at u = 0
	row1     [4]float64 // tangent coefficients at u = 1
	col0     [4]float64
	col1     [4]float64
	ref      *RayState
	nde, naz int
}

func newCellModel(a, b *Wavefront, dt float64, i, j int) *cellModel {
	m := &cellModel{
		a: a, b: b, dt: dt,
		rows: [4]int{i - 1, i, i + 1, i + 2},
		cols: [4]int{j - 1, j, j + 1, j + 2},
		ref:  a.At(i, j),
		nde:  a.NumDE,
		naz:  a.NumAZ,
	}
	for l, c := range m.cols {
		m.colOK[l] = l == 1 || l == 2 || (m.usable(i, c) && m.usable(i+1, c))
	}
	for k, r := range m.rows {
		if k == 1 || k == 2 {
			m.rowOK[k] = true
			continue
		}
		ok := true
		for l, c := range m.cols {
			if m.colOK[l] && !m.usable(r, c) {
				ok = false
				break
			}
		}
		m.rowOK[k] = ok
	}
	m.row0, m.row1 = tangents(m.rowOK)
	m.col0, m.col1 = tangents(m.colOK)
	return m
}

// usable reports whether ray (i, j) is valid and in the reference family at
// both ends of the time step.
func (m *cellModel) usable(i, j int) bool {
	if i < 0 || i >= m.nde || j < 0 || j >= m.naz {
		return false
	}
	ra, rb := m.a.At(i, j), m.b.At(i, j)
	return ra.Valid && rb.Valid && ra.Family(m.ref) && rb.Family(m.ref)
}

// tangents returns finite difference coefficients over stencil nodes
// (-1, 0, 1, 2) for the derivative at nodes 0 and 1, in units of the node
// spacing.
func tangents(ok [4]bool) (m0, m1 [4]float64) {
	switch {
	case ok[0]:
		m0 = [4]float64{-0.5, 0, 0.5, 0}
	case ok[3]:
		m0 = [4]float64{0, -1.5, 2, -0.5}
	default:
		m0 = [4]float64{0, -1, 1, 0}
	}
	switch {
	case ok[3]:
		m1 = [4]float64{0, -0.5, 0, 0.5}
	case ok[0]:
		m1 = [4]float64{0.5, -2, 1.5, 0}
	default:
		m1 = [4]float64{0, -1, 1, 0}
	}
	return m0, m1
}

// hermite returns the cubic Hermite basis h00, h10, h01, h11 at u and
// their derivatives.
func hermite(u float64) (h, d [4]float64) {
	u2 := u * u
	u3 := u2 * u
	h = [4]float64{2*u3 - 3*u2 + 1, u3 - 2*u2 + u, -2*u3 + 3*u2, u3 - u2}
	d = [4]float64{6*u2 - 6*u, 3*u2 - 4*u + 1, -6*u2 + 6*u, 3*u2 - 2*u}
	return h, d
}

// weights folds the Hermite basis and stencil tangents into per-node
// weights (and their derivatives) for the 4-node stencil.
func weights(u float64, m0, m1 [4]float64) (w, dw [4]float64) {
	h, d := hermite(u)
	for k := range w {
		w[k] = h[1]*m0[k] + h[3]*m1[k]
		dw[k] = d[1]*m0[k] + d[3]*m1[k]
	}
	w[1] += h[0]
	w[2] += h[2]
	dw[1] += d[0]
	dw[2] += d[2]
	return w, dw
}

// inTime returns the position of stencil ray (i, j) at fraction tau of the
// step and its derivative with respect to tau.
func (m *cellModel) inTime(i, j int, tau float64) (r3.Vec, r3.Vec) {
	ra, rb := m.a.At(i, j), m.b.At(i, j)
	va := r3.Scale(ra.Speed*ra.Speed*m.dt, ra.Slowness)
	vb := r3.Scale(rb.Speed*rb.Speed*m.dt, rb.Slowness)
	h, d := hermite(tau)
	p := r3.Add(r3.Add(r3.Scale(h[0], ra.X), r3.Scale(h[1], va)), r3.Add(r3.Scale(h[2], rb.X), r3.Scale(h[3], vb)))
	dp := r3.Add(r3.Add(r3.Scale(d[0], ra.X), r3.Scale(d[1], va)), r3.Add(r3.Scale(d[2], rb.X), r3.Scale(d[3], vb)))
	return p, dp
}

// eval returns the modelled position at (u, w, tau) and its partial
// derivatives.
func (m *cellModel) eval(u, w, tau float64) (x, xu, xw, xt r3.Vec) {
	wu, du := weights(u, m.row0, m.row1)
	ww, dw := weights(w, m.col0, m.col1)
	for k, r := range m.rows {
		if wu[k] == 0 && du[k] == 0 {
			continue
		}
		for l, c := range m.cols {
			if ww[l] == 0 && dw[l] == 0 {
				continue
			}
			p, dp := m.inTime(r, c, tau)
			x = r3.Add(x, r3.Scale(wu[k]*ww[l], p))
			xu = r3.Add(xu, r3.Scale(du[k]*ww[l], p))
			xw = r3.Add(xw, r3.Scale(wu[k]*dw[l], p))
			xt = r3.Add(xt, r3.Scale(wu[k]*ww[l], dp))
		}
	}
	return x, xu, xw, xt
}

// solve runs Newton's method for the (u, w, tau) at which the model passes
// through target. It returns the root and the model's direction of travel
// there, or ok == false when the iteration fails to converge.
func (m *cellModel) solve(target r3.Vec) (u, w, tau float64, dir r3.Vec, ok bool) {
	u, w, tau = 0.5, 0.5, 0.5
	jac := mat.NewDense(3, 3, nil)
	rhs := mat.NewVecDense(3, nil)
	var step mat.VecDense
	for it := 0; it < newtonIterations; it++ {
		x, xu, xw, xt := m.eval(u, w, tau)
		f := r3.Sub(x, target)
		for c, col := range [3]r3.Vec{xu, xw, xt} {
			jac.Set(0, c, col.X)
			jac.Set(1, c, col.Y)
			jac.Set(2, c, col.Z)
		}
		rhs.SetVec(0, -f.X)
		rhs.SetVec(1, -f.Y)
		rhs.SetVec(2, -f.Z)
		if err := step.SolveVec(jac, rhs); err != nil {
			return 0, 0, 0, r3.Vec{}, false
		}
		du, dw, dtau := step.AtVec(0), step.AtVec(1), step.AtVec(2)
		biggest := math.Max(math.Abs(du), math.Max(math.Abs(dw), math.Abs(dtau)))
		if math.IsNaN(biggest) {
			return 0, 0, 0, r3.Vec{}, false
		}
		if biggest > 1 {
			du, dw, dtau = du/biggest, dw/biggest, dtau/biggest
		}
		u, w, tau = u+du, w+dw, tau+dtau
		if math.Abs(u) > newtonLimit || math.Abs(w) > newtonLimit || math.Abs(tau) > newtonLimit {
			return 0, 0, 0, r3.Vec{}, false
		}
		if biggest < 1e-12 {
			break
		}
	}
	x, _, _, xt := m.eval(u, w, tau)
	if r3.Norm(r3.Sub(x, target)) > newtonTolerance {
		return 0, 0, 0, r3.Vec{}, false
	}
	return u, w, tau, xt, true
}
