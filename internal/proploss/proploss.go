package proploss

import (
	"fmt"
	"math"
	"math/cmplx"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/units"
)

// PropLoss owns the eigenray lists of a set of targets.
//
// Add may be called concurrently. SumEigenrays recomputes every total from
// the stored lists, so calling it again without adding eigenrays yields the
// same result.
type PropLoss struct {
	targets []geo.Position
	freqs   []float64
	workers int

	mu     sync.RWMutex
	rays   [][]Eigenray
	totals [][]Total
}

// New creates an empty accumulator for the given targets and frequencies.
func New(targets []geo.Position, freqs []float64) *PropLoss {
	p := &PropLoss{
		targets: append([]geo.Position(nil), targets...),
		freqs:   append([]float64(nil), freqs...),
		workers: runtime.GOMAXPROCS(0),
		rays:    make([][]Eigenray, len(targets)),
		totals:  make([][]Total, len(targets)),
	}
	for i := range p.totals {
		p.totals[i] = noPath(len(freqs))
	}
	return p
}

// SetWorkers bounds the number of targets summed concurrently.
func (p *PropLoss) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	p.workers = n
}

// Targets returns the target positions in index order.
func (p *PropLoss) Targets() []geo.Position {
	return p.targets
}

// Frequencies returns the frequencies in Hz.
func (p *PropLoss) Frequencies() []float64 {
	return p.freqs
}

// Add appends an eigenray to the list of the given target.
func (p *PropLoss) Add(target int, ray Eigenray) error {
	if target < 0 || target >= len(p.targets) {
		return fmt.Errorf("target index %d out of range [0, %d)", target, len(p.targets))
	}
	if len(ray.Intensity) != len(p.freqs) || len(ray.Phase) != len(p.freqs) {
		return fmt.Errorf("eigenray has %d intensities and %d phases, want %d",
			len(ray.Intensity), len(ray.Phase), len(p.freqs))
	}
	p.mu.Lock()
	p.rays[target] = append(p.rays[target], ray)
	p.mu.Unlock()
	return nil
}

// Eigenrays returns a copy of the eigenrays found for a target, in the
// order they were added.
func (p *PropLoss) Eigenrays(target int) []Eigenray {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Eigenray(nil), p.rays[target]...)
}

// Len returns the number of eigenrays across all targets.
func (p *PropLoss) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, r := range p.rays {
		n += len(r)
	}
	return n
}

// SumEigenrays computes the coherent total of every (target, frequency)
// pair. Each eigenray contributes the complex amplitude
// 10^(-intensity/20) * exp(i*phase).
func (p *PropLoss) SumEigenrays() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	g := new(errgroup.Group)
	g.SetLimit(p.workers)
	for n := range p.targets {
		g.Go(func() error {
			totals, err := Coherent(p.rays[n], len(p.freqs))
			if err != nil {
				return fmt.Errorf("target %d: %w", n, err)
			}
			p.totals[n] = totals
			return nil
		})
	}
	return g.Wait()
}

// Total returns the coherent loss and phase per frequency for a target.
// Before SumEigenrays is called every entry is NoPathLoss.
func (p *PropLoss) Total(target int) []Total {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Total(nil), p.totals[target]...)
}

// Coherent sums eigenray amplitudes for nfreq frequencies.
func Coherent(rays []Eigenray, nfreq int) ([]Total, error) {
	out := make([]Total, nfreq)
	for f := range out {
		var sum complex128
		for _, r := range rays {
			amp := units.DBToAmplitude(r.Intensity[f])
			if math.IsNaN(amp) || math.IsInf(amp, 0) || math.IsNaN(r.Phase[f]) || math.IsInf(r.Phase[f], 0) {
				return nil, fmt.Errorf("non-finite contribution at frequency %d: intensity %v phase %v",
					f, r.Intensity[f], r.Phase[f])
			}
			sum += cmplx.Rect(amp, r.Phase[f])
		}
		mag := cmplx.Abs(sum)
		if mag == 0 {
			out[f] = Total{Intensity: NoPathLoss}
			continue
		}
		out[f] = Total{
			Intensity: math.Min(units.AmplitudeToDB(mag), NoPathLoss),
			Phase:     units.WrapPhase(cmplx.Phase(sum)),
		}
	}
	return out, nil
}

func noPath(n int) []Total {
	out := make([]Total, n)
	for i := range out {
		out[i].Intensity = NoPathLoss
	}
	return out
}
