package waveq3d

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/proploss"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

// acceptEps keeps a target lying exactly on a shared ray or time slice in
// the lower-index cell.
const acceptEps = 1e-6

// cell is one quadrilateral of the launch fan between rows i, i+1 and
// columns j, j+1.
type cell struct {
	i, j int
}

// search looks for eigenrays to target n between wavefronts a (earlier) and
// b (later) and adds every one found to the accumulator.
func (q *Queue) search(n int, a, b *Wavefront) error {
	target := q.targets[n]
	for i := 0; i < len(q.de)-1; i++ {
		for j := 0; j < len(q.az)-1; j++ {
			c := cell{i, j}
			if !q.sameFamily(a, b, c) || !q.bracketed(target, a, b, c) {
				continue
			}
			ray, ok := q.interpolate(target, a, b, c)
			if !ok {
				continue
			}
			if err := q.loss.Add(n, ray); err != nil {
				return err
			}
		}
	}
	return nil
}

func (q *Queue) corners(c cell) [4][2]int {
	return [4][2]int{{c.i, c.j}, {c.i + 1, c.j}, {c.i, c.j + 1}, {c.i + 1, c.j + 1}}
}

// sameFamily reports whether all four corners are valid at both times and
// share surface and bottom counts.
func (q *Queue) sameFamily(a, b *Wavefront, c cell) bool {
	ref := a.At(c.i, c.j)
	for _, k := range q.corners(c) {
		ra, rb := a.At(k[0], k[1]), b.At(k[0], k[1])
		if !ra.Valid || !rb.Valid || !ra.Family(ref) || !rb.Family(ref) {
			return false
		}
	}
	return true
}

func (q *Queue) edge(c cell) (firstDE, lastDE, firstAZ, lastAZ bool) {
	return c.i == 0, c.i == len(q.de)-2, c.j == 0, c.j == len(q.az)-2
}

// bracketed is a cheap test that the target could lie inside the volume
// swept by the cell during the step. It never rejects a cell that holds a
// root; the Newton solve makes the final decision.
func (q *Queue) bracketed(target r3.Vec, a, b *Wavefront, c cell) bool {
	corners := q.corners(c)

	stepLen := 0.0
	for _, k := range corners {
		stepLen = math.Max(stepLen, r3.Norm(r3.Sub(b.At(k[0], k[1]).X, a.At(k[0], k[1]).X)))
	}
	deEdge := r3.Sub(b.At(c.i+1, c.j).X, b.At(c.i, c.j).X)
	azEdge := r3.Sub(b.At(c.i, c.j+1).X, b.At(c.i, c.j).X)
	size := r3.Norm(deEdge) + r3.Norm(azEdge)

	firstDE, lastDE, firstAZ, lastAZ := q.edge(c)
	ext := 1.0
	if firstDE || lastDE || firstAZ || lastAZ {
		ext += q.cfg.MaxExtrapolation
	}
	reach := stepLen + ext*size

	// Distance gate.
	near := math.Inf(1)
	for _, w := range [2]*Wavefront{a, b} {
		for _, k := range corners {
			near = math.Min(near, r3.Norm(r3.Sub(target, w.At(k[0], k[1]).X)))
		}
	}
	if near > reach {
		return false
	}

	// Residual sign changes. The target must sit ahead of the earlier
	// wavefront and behind the later one along the mean ray direction, and
	// between the cell's rows and columns, each with a margin for wavefront
	// tilt and curvature inside the cell.
	var dir r3.Vec
	for _, k := range corners {
		dir = r3.Add(dir, a.At(k[0], k[1]).Slowness)
	}
	at := func(ws []*Wavefront, ks ...[2]int) []r3.Vec {
		var pts []r3.Vec
		for _, w := range ws {
			for _, k := range ks {
				pts = append(pts, w.At(k[0], k[1]).X)
			}
		}
		return pts
	}
	early, late, both := []*Wavefront{a}, []*Wavefront{b}, []*Wavefront{a, b}
	if !straddles(target, dir, at(early, corners[:]...), at(late, corners[:]...), reach, false, false) {
		return false
	}
	if !straddles(target, deEdge, at(both, corners[0], corners[2]), at(both, corners[1], corners[3]), reach, firstDE, lastDE) {
		return false
	}
	return straddles(target, azEdge, at(both, corners[0], corners[1]), at(both, corners[2], corners[3]), reach, firstAZ, lastAZ)
}

// straddles reports whether the target residual projected on axis is
// non-negative for some low point and non-positive for some high point, to
// within margin. Open sides are not tested.
func straddles(target, axis r3.Vec, low, high []r3.Vec, margin float64, openLow, openHigh bool) bool {
	n := r3.Norm(axis)
	if n == 0 {
		return true
	}
	axis = r3.Scale(1/n, axis)
	lowMax, highMin := math.Inf(-1), math.Inf(1)
	for _, p := range low {
		lowMax = math.Max(lowMax, r3.Dot(r3.Sub(target, p), axis))
	}
	for _, p := range high {
		highMin = math.Min(highMin, r3.Dot(r3.Sub(target, p), axis))
	}
	return (openLow || lowMax > -margin) && (openHigh || highMin < margin)
}

// interpolate solves for the eigenray through target in cell c and builds
// it, or reports false when the root falls outside the cell's acceptance
// window.
func (q *Queue) interpolate(target r3.Vec, a, b *Wavefront, c cell) (proploss.Eigenray, bool) {
	model := newCellModel(a, b, q.dt, c.i, c.j)
	u, w, tau, dir, ok := model.solve(target)
	if !ok {
		return proploss.Eigenray{}, false
	}
	firstDE, lastDE, firstAZ, lastAZ := q.edge(c)
	if !q.accept(u, firstDE, lastDE) || !q.accept(w, firstAZ, lastAZ) {
		return proploss.Eigenray{}, false
	}
	if !(tau > acceptEps && tau <= 1+acceptEps) {
		return proploss.Eigenray{}, false
	}

	i, j := c.i, c.j
	ref := a.At(i, j)
	ray := proploss.Eigenray{
		Time:         a.Time + tau*q.dt,
		SourceDE:     q.de[i] + u*(q.de[i+1]-q.de[i]),
		SourceAZ:     q.az[j] + w*(q.az[j+1]-q.az[j]),
		Surface:      ref.Surface,
		Bottom:       ref.Bottom,
		Extrapolated: u < -acceptEps || u > 1+acceptEps || w < -acceptEps || w > 1+acceptEps,
		Intensity:    make([]float64, len(q.freqs)),
		Phase:        make([]float64, len(q.freqs)),
	}

	frame := geo.FrameOf(target)
	ray.TargetDE, ray.TargetAZ = frame.Angles(dir)

	// Nearest corner in angle and time supplies the caustic count.
	ni, nj := i, j
	if u >= 0.5 {
		ni = i + 1
	}
	if w >= 0.5 {
		nj = j + 1
	}
	nearest := a.At(ni, nj)
	if tau >= 0.5 {
		nearest = b.At(ni, nj)
	}
	ray.Caustic = nearest.Caustic

	jacobian := func(r *RayState) float64 {
		if r.JacobianOK {
			return r.Jacobian
		}
		return 0
	}
	jac := q.bilinear(a, b, c, u, w, tau)(jacobian)
	if !(math.Abs(jac) > 0) {
		// Extrapolated through zero; fall back to the nearest edge of the cell.
		jac = q.bilinear(a, b, c, clamp01(u), clamp01(w), tau)(jacobian)
	}
	lerp := q.bilinear(a, b, c, clamp01(u), clamp01(w), tau)
	spreading := units.IntensityToDB(math.Cos(units.ToRadians(ray.SourceDE)) / math.Abs(jac))
	if math.IsNaN(spreading) || math.IsInf(spreading, 0) {
		// No usable Jacobian anywhere in the cell.
		return proploss.Eigenray{}, false
	}
	for f := range q.freqs {
		loss := lerp(func(r *RayState) float64 { return r.Loss[f] })
		phase := lerp(func(r *RayState) float64 { return r.Phase[f] })
		ray.Intensity[f] = spreading + loss
		ray.Phase[f] = phase - float64(ray.Caustic)*math.Pi/2
	}
	return ray, true
}

// accept applies the acceptance window for a fractional cell coordinate.
// Interior cells take (eps, 1+eps]; the outermost cells extend outward by
// the extrapolation limit.
func (q *Queue) accept(v float64, first, last bool) bool {
	lo, hi := acceptEps, 1+acceptEps
	if first {
		lo = -q.cfg.MaxExtrapolation
	}
	if last {
		hi = 1 + q.cfg.MaxExtrapolation
	}
	if first && v == lo {
		return true
	}
	return v > lo && v <= hi
}

// bilinear returns an interpolator over the cell's corners, bilinear in
// angle and linear in time.
func (q *Queue) bilinear(a, b *Wavefront, c cell, u, w, tau float64) func(func(*RayState) float64) float64 {
	corners := q.corners(c)
	return func(get func(*RayState) float64) float64 {
		var v float64
		for _, k := range corners {
			wu := 1 - u
			if k[0] == c.i+1 {
				wu = u
			}
			ww := 1 - w
			if k[1] == c.j+1 {
				ww = w
			}
			v += wu * ww * ((1-tau)*get(a.At(k[0], k[1])) + tau*get(b.At(k[0], k[1])))
		}
		return v
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
