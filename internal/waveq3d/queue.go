package waveq3d

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/monitoring"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/ocean"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/proploss"
)

// QueueConfig holds tuning parameters for a wavefront queue.
type QueueConfig struct {
	Workers          int     // concurrent rows per step; 0 means GOMAXPROCS
	MaxExtrapolation float64 // cells beyond the fan edge searched for eigenrays
	MaxReflections   int     // boundary interactions allowed in a single step
	DisableSearch    bool    // march wavefronts without looking for eigenrays
}

// DefaultQueueConfig returns default queue configuration.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Workers:          0,
		MaxExtrapolation: 1.0,
		MaxReflections:   4,
	}
}

// Queue marches a launch fan through an ocean one time step at a time.
type Queue struct {
	cfg     QueueConfig
	ocean   *ocean.Ocean
	earth   geo.Earth
	freqs   []float64
	source  geo.Position
	de, az  []float64
	dt      float64
	targets []r3.Vec

	hist  history
	loss  *proploss.PropLoss
	steps int
	err   error
}

// New creates a queue with the default configuration. See NewWithConfig.
func New(env *ocean.Ocean, freqs []float64, source geo.Position, de, az []float64, dt float64, targets []geo.Position) (*Queue, error) {
	return NewWithConfig(DefaultQueueConfig(), env, freqs, source, de, az, dt, targets)
}

// NewWithConfig validates its inputs, launches every (D/E, AZ) ray from the
// source, and seeds the history with the source slice at t = 0 and a slice
// at t = -dt obtained by integrating backwards.
//
// Angles are in degrees; D/E is positive up and AZ is clockwise from north.
// Frequencies are in Hz and dt in seconds.
func NewWithConfig(cfg QueueConfig, env *ocean.Ocean, freqs []float64, source geo.Position, de, az []float64, dt float64, targets []geo.Position) (*Queue, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if err := checkFan("de", de); err != nil {
		return nil, err
	}
	if err := checkFan("az", az); err != nil {
		return nil, err
	}
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: %g", ErrTimeStep, dt)
	}
	if len(freqs) == 0 {
		return nil, fmt.Errorf("%w: no frequencies", ErrFrequencies)
	}
	for _, f := range freqs {
		if !(f > 0) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: %g Hz", ErrFrequencies, f)
		}
	}
	if err := checkWater(env, source); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSource, err)
	}
	for n, t := range targets {
		if !t.IsFinite() || math.Abs(t.Latitude) > 90 {
			return nil, fmt.Errorf("%w: target %d at %+v", ErrTargets, n, t)
		}
		if surf := -env.Surface.Depth(t.Latitude, t.Longitude, 0); t.Altitude > surf {
			return nil, fmt.Errorf("%w: target %d above the sea surface", ErrTargets, n)
		}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.MaxReflections <= 0 {
		cfg.MaxReflections = DefaultQueueConfig().MaxReflections
	}
	if cfg.MaxExtrapolation < 0 {
		cfg.MaxExtrapolation = 0
	}

	q := &Queue{
		cfg:    cfg,
		ocean:  env,
		earth:  geo.EarthAt(source.Latitude),
		freqs:  append([]float64(nil), freqs...),
		source: source,
		de:     append([]float64(nil), de...),
		az:     append([]float64(nil), az...),
		dt:     dt,
		loss:   proploss.New(targets, freqs),
	}
	q.loss.SetWorkers(cfg.Workers)
	for _, t := range targets {
		q.targets = append(q.targets, q.earth.Cartesian(t))
	}
	for k := range q.hist.slots {
		q.hist.slots[k] = newWavefront(len(de), len(az), len(freqs))
	}
	if err := q.launch(); err != nil {
		return nil, err
	}
	monitoring.Logf("[waveq3d] launched %dx%d rays from %.4f,%.4f,%.1f with dt=%gs and %d targets",
		len(de), len(az), source.Latitude, source.Longitude, source.Altitude, dt, len(targets))
	return q, nil
}

// checkWater reports an error unless p lies strictly inside the water column.
func checkWater(env *ocean.Ocean, p geo.Position) error {
	if !p.IsFinite() || math.Abs(p.Latitude) > 90 {
		return fmt.Errorf("position %+v is not finite", p)
	}
	surf := -env.Surface.Depth(p.Latitude, p.Longitude, 0)
	bottom := -env.Bottom.Depth(p.Latitude, p.Longitude, 0)
	if p.Altitude > surf || p.Altitude < bottom {
		return fmt.Errorf("altitude %g outside water column [%g, %g]", p.Altitude, bottom, surf)
	}
	return nil
}

// launch fills the current slice at the source and the previous slice one
// step back in time.
func (q *Queue) launch() error {
	cur := q.hist.current()
	prev := q.hist.previous()
	cur.Time = 0
	prev.Time = -q.dt

	x0 := q.earth.Cartesian(q.source)
	frame := geo.FrameAt(q.source)
	c, grad := q.soundSpeed(x0, 0)
	if !(c > 0) || math.IsInf(c, 0) {
		return fmt.Errorf("%w: sound speed %g at source", ErrSource, c)
	}
	for i, de := range q.de {
		for j, az := range q.az {
			r := cur.At(i, j)
			r.Position = q.source
			r.X = x0
			r.Slowness = r3.Scale(1/c, frame.Direction(de, az))
			r.Speed = c
			r.Gradient = grad
			r.Valid = true

			p := prev.At(i, j)
			p.copyFrom(r)
			p.X, p.Slowness = q.rk2(r.X, r.Slowness, -q.dt, 0)
			p.Position = q.earth.Position(p.X)
			p.Speed, p.Gradient = q.soundSpeed(p.X, -q.dt)
			p.Time = -q.dt
			p.Distance = -r3.Norm(r3.Sub(p.X, r.X))
		}
	}
	return nil
}

// Step advances every ray by one time step, updates ray-tube Jacobians and
// caustic counts, searches the new bracket for eigenrays, and rotates the
// history. Once Step has returned ErrNonFinite the queue is unusable.
func (q *Queue) Step() error {
	if q.err != nil {
		return q.err
	}
	prev, cur, next := q.hist.previous(), q.hist.current(), q.hist.next()
	next.Time = cur.Time + q.dt

	if err := q.forEachRow(func(i int) error {
		for j := range q.az {
			if err := q.advance(prev.At(i, j), cur.At(i, j), next.At(i, j), cur.Time); err != nil {
				return fmt.Errorf("ray (%d,%d) at t=%gs: %w", i, j, cur.Time, err)
			}
		}
		return nil
	}); err != nil {
		q.err = err
		return err
	}

	_ = q.forEachRow(func(i int) error {
		for j := range q.az {
			q.updateJacobian(next, i, j)
		}
		return nil
	})

	if !q.cfg.DisableSearch && len(q.targets) > 0 {
		g := new(errgroup.Group)
		g.SetLimit(q.cfg.Workers)
		for n := range q.targets {
			g.Go(func() error {
				return q.search(n, cur, next)
			})
		}
		if err := g.Wait(); err != nil {
			q.err = err
			return err
		}
	}

	q.hist.rotate()
	q.steps++
	monitoring.Debugf("[waveq3d] step %d t=%gs eigenrays=%d", q.steps, next.Time, q.loss.Len())
	return nil
}

// forEachRow runs fn for every D/E row on a bounded pool. Rows write only
// their own rays.
func (q *Queue) forEachRow(fn func(i int) error) error {
	g := new(errgroup.Group)
	g.SetLimit(q.cfg.Workers)
	for i := range q.de {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}

// Time returns the time of the current wavefront.
func (q *Queue) Time() float64 { return q.hist.current().Time }

// Steps returns the number of completed steps.
func (q *Queue) Steps() int { return q.steps }

// Current returns the current wavefront. It must be treated as read-only
// and is overwritten by the second following Step.
func (q *Queue) Current() *Wavefront { return q.hist.current() }

// Previous returns the wavefront one step before Current.
func (q *Queue) Previous() *Wavefront { return q.hist.previous() }

// Loss returns the accumulator receiving this queue's eigenrays.
func (q *Queue) Loss() *proploss.PropLoss { return q.loss }

// Earth returns the spherical earth used for integration.
func (q *Queue) Earth() geo.Earth { return q.earth }

// Frequencies returns the frequencies in Hz.
func (q *Queue) Frequencies() []float64 { return q.freqs }

// DE returns the D/E launch angles in degrees.
func (q *Queue) DE() []float64 { return q.de }

// AZ returns the AZ launch angles in degrees.
func (q *Queue) AZ() []float64 { return q.az }

// TimeStep returns dt in seconds.
func (q *Queue) TimeStep() float64 { return q.dt }
