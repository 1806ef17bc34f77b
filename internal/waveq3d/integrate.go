package waveq3d

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/ocean"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

// boundaryKind identifies the interface a ray has crossed.
type boundaryKind int

const (
	inWater boundaryKind = iota
	aboveSurface
	belowBottom
)

const (
	bisectIterations = 60
	slopeDelta       = 1e-4 // degrees, for boundary normals
)

// soundSpeed evaluates the profile at an earth-centred point and returns the
// gradient in earth-centred coordinates.
func (q *Queue) soundSpeed(x r3.Vec, t float64) (float64, r3.Vec) {
	pos := q.earth.Position(x)
	c, grad := q.ocean.Profile.SoundSpeed(pos, t)
	if grad == (geo.Local{}) {
		return c, r3.Vec{}
	}
	return c, geo.FrameAt(pos).Global(grad)
}

// rk2 takes one midpoint step of size h.
func (q *Queue) rk2(x, s r3.Vec, h, t float64) (r3.Vec, r3.Vec) {
	c, g := q.soundSpeed(x, t)
	xm := r3.Add(x, r3.Scale(h/2*c*c, s))
	sm := r3.Sub(s, r3.Scale(h/2/c, g))
	cm, gm := q.soundSpeed(xm, t+h/2)
	return r3.Add(x, r3.Scale(h*cm*cm, sm)), r3.Sub(s, r3.Scale(h/cm, gm))
}

// crossing reports which boundary, if any, x lies beyond.
func (q *Queue) crossing(x r3.Vec, t float64) boundaryKind {
	pos := q.earth.Position(x)
	if pos.Altitude > -q.ocean.Surface.Depth(pos.Latitude, pos.Longitude, t) {
		return aboveSurface
	}
	if pos.Altitude < -q.ocean.Bottom.Depth(pos.Latitude, pos.Longitude, t) {
		return belowBottom
	}
	return inWater
}

// outside is positive when x lies beyond the given boundary.
func (q *Queue) outside(kind boundaryKind, x r3.Vec, t float64) float64 {
	pos := q.earth.Position(x)
	if kind == aboveSurface {
		return pos.Altitude + q.ocean.Surface.Depth(pos.Latitude, pos.Longitude, t)
	}
	return -q.ocean.Bottom.Depth(pos.Latitude, pos.Longitude, t) - pos.Altitude
}

// normal returns the unit normal of a boundary pointing out of the water.
func (q *Queue) normal(kind boundaryKind, pos geo.Position, t float64) r3.Vec {
	b := q.boundary(kind)
	m := q.earth.MetresPerDegree()
	dn := (b.Depth(pos.Latitude+slopeDelta, pos.Longitude, t) - b.Depth(pos.Latitude-slopeDelta, pos.Longitude, t)) /
		(2 * slopeDelta * m)
	var de float64
	if cl := math.Cos(units.ToRadians(pos.Latitude)); cl > 1e-9 {
		de = (b.Depth(pos.Latitude, pos.Longitude+slopeDelta, t) - b.Depth(pos.Latitude, pos.Longitude-slopeDelta, t)) /
			(2 * slopeDelta * m * cl)
	}
	f := geo.FrameAt(pos)
	if kind == aboveSurface {
		return r3.Unit(f.Global(geo.Local{Up: 1, North: dn, East: de}))
	}
	return r3.Unit(f.Global(geo.Local{Up: -1, North: -dn, East: -de}))
}

func (q *Queue) boundary(kind boundaryKind) ocean.Boundary {
	if kind == aboveSurface {
		return q.ocean.Surface
	}
	return q.ocean.Bottom
}

// advance computes n, the state of ray c one step later, given p, the same
// ray one step earlier. t is the time of c.
func (q *Queue) advance(p, c, n *RayState, t float64) error {
	n.copyFrom(c)
	n.Time = c.Time + q.dt
	if !c.Valid {
		return nil
	}

	dt := q.dt
	var x, s r3.Vec
	if c.restart || !p.Valid {
		x, s = q.rk2(c.X, c.Slowness, dt, t)
	} else {
		x = r3.Add(p.X, r3.Scale(2*dt*c.Speed*c.Speed, c.Slowness))
		s = r3.Sub(p.Slowness, r3.Scale(2*dt/c.Speed, c.Gradient))
	}
	n.restart = false

	x0, s0 := c.X, c.Slowness
	elapsed, remaining := 0.0, dt
	path := 0.0
	for k := 0; ; k++ {
		kind := q.crossing(x, t+dt)
		if kind == inWater {
			break
		}
		if k >= q.cfg.MaxReflections {
			n.Valid = false
			return nil
		}

		// Bisect along the chord for the fraction of the step at the boundary.
		tc := t + elapsed
		lo, hi := 0.0, 1.0
		seg := r3.Sub(x, x0)
		for it := 0; it < bisectIterations; it++ {
			mid := (lo + hi) / 2
			if q.outside(kind, r3.Add(x0, r3.Scale(mid, seg)), tc+mid*remaining) > 0 {
				hi = mid
			} else {
				lo = mid
			}
		}
		f := (lo + hi) / 2
		hit := r3.Add(x0, r3.Scale(f, seg))
		slow := r3.Add(s0, r3.Scale(f, r3.Sub(s, s0)))
		th := tc + f*remaining
		pos := q.earth.Position(hit)
		ch, _ := q.soundSpeed(hit, th)
		if !(ch > 0) || math.IsInf(ch, 0) {
			n.Valid = false
			return nil
		}
		slow = r3.Scale(1/(ch*r3.Norm(slow)), slow)

		nrm := q.normal(kind, pos, th)
		sn := r3.Dot(slow, nrm)
		if sn > 0 {
			slow = r3.Sub(slow, r3.Scale(2*sn, nrm))
		}
		q.reflect(kind, n, math.Asin(math.Min(1, math.Abs(sn)*ch)))

		path += r3.Norm(r3.Sub(hit, x0))
		elapsed += f * remaining
		remaining *= 1 - f
		x0, s0 = hit, slow
		x, s = q.rk2(hit, slow, remaining, th)
		n.restart = true
	}
	path += r3.Norm(r3.Sub(x, x0))

	if !finite(x) || !finite(s) {
		return ErrNonFinite
	}
	pos := q.earth.Position(x)
	speed, grad := q.soundSpeed(x, t+dt)
	if !(speed > 0) || math.IsInf(speed, 0) {
		n.Valid = false
		return nil
	}
	n.Position = pos
	n.X = x
	n.Slowness = r3.Scale(1/(speed*r3.Norm(s)), s)
	n.Speed = speed
	n.Gradient = grad
	n.Distance = c.Distance + path

	q.absorb(n, pos, path)
	for f := range q.freqs {
		if !finiteScalar(n.Loss[f]) || !finiteScalar(n.Phase[f]) {
			return ErrNonFinite
		}
	}
	return nil
}

// reflect applies the boundary's reflection response to n.
func (q *Queue) reflect(kind boundaryKind, n *RayState, grazing float64) {
	loss := make([]float64, len(q.freqs))
	phase := make([]float64, len(q.freqs))
	q.boundary(kind).Reflection(grazing, q.freqs, loss, phase)
	for f := range q.freqs {
		n.Loss[f] += loss[f]
		n.Phase[f] += phase[f]
	}
	if kind == aboveSurface {
		n.Surface++
	} else {
		n.Bottom++
	}
}

// absorb adds volume attenuation over a path of the given length.
func (q *Queue) absorb(n *RayState, pos geo.Position, path float64) {
	alpha := make([]float64, len(q.freqs))
	q.ocean.Profile.Absorption(pos, q.freqs, alpha)
	for f, a := range alpha {
		n.Loss[f] += a * path
	}
}

func finite(v r3.Vec) bool {
	return finiteScalar(v.X) && finiteScalar(v.Y) && finiteScalar(v.Z)
}

func finiteScalar(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
