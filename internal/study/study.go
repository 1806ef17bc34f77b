// Package study runs a configured propagation scenario end to end: it builds
// the ocean, drives the wavefront queue to the end of the run and hands the
// results to the configured sinks.
package study

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/config"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/export"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/fsutil"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/monitoring"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/ocean"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/proploss"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/storage/sqlite"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/timeutil"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/waveq3d"
)

// Scenario is one configured run.
type Scenario struct {
	Config *config.ScenarioConfig

	// Data caches the grids named by the environment. Nil reads them from
	// the operating system on demand.
	Data *ocean.DataCache

	// Clock stamps and times the run. Nil uses the wall clock.
	Clock timeutil.Clock
}

// RunSink records run metadata and may assign the run id.
type RunSink interface {
	Insert(ctx context.Context, run *sqlite.Run) error
}

// WavefrontSink receives wavefront slices as the queue advances.
type WavefrontSink interface {
	WriteWavefront(ctx context.Context, runID string, step int, w *waveq3d.Wavefront) error
}

// EigenraySink receives the eigenrays and coherent totals at the end of a run.
type EigenraySink interface {
	WriteEigenrays(ctx context.Context, runID string, target int, rays []proploss.Eigenray) error
	WriteTotals(ctx context.Context, runID string, p *proploss.PropLoss) error
}

// Sinks collects the optional outputs of a run. Nil members are skipped.
type Sinks struct {
	Runs       RunSink
	Wavefronts WavefrontSink
	Eigenrays  EigenraySink

	// CSV tables are written under CSVDir when both are set.
	FS     fsutil.FileSystem
	CSVDir string
}

// NewSQLiteSinks returns sinks that persist everything into db.
func NewSQLiteSinks(db *sqlite.DB) Sinks {
	return Sinks{
		Runs:       sqlite.NewRunStore(db.DB),
		Wavefronts: sqlite.NewWavefrontStore(db.DB),
		Eigenrays:  sqlite.NewEigenrayStore(db.DB),
	}
}

// Result summarises a finished run.
type Result struct {
	RunID        string
	Name         string
	Steps        int
	Time         float64
	Eigenrays    int
	Wavefronts   int
	FailedWrites int
	Elapsed      time.Duration
	Loss         *proploss.PropLoss
}

// Totals returns the coherent sums of target i.
func (r *Result) Totals(i int) []proploss.Total {
	return r.Loss.Total(i)
}

// Run executes the scenario. Persistence failures are logged and counted in
// the result; integration failures and cancellation abort the run.
func Run(ctx context.Context, sc Scenario, sinks Sinks) (*Result, error) {
	cfg := sc.Config
	if cfg == nil {
		cfg = config.EmptyScenarioConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	env, err := BuildOcean(cfg, sc.Data)
	if err != nil {
		return nil, err
	}

	q, err := waveq3d.NewWithConfig(cfg.QueueConfig(), env, cfg.GetFrequencies(), cfg.GetSource(),
		cfg.GetDE(), cfg.GetAZ(), cfg.GetTimeStep(), cfg.GetTargets())
	if err != nil {
		return nil, fmt.Errorf("failed to build wavefront queue: %w", err)
	}

	clock := sc.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()

	res := &Result{Name: cfg.GetName(), Loss: q.Loss()}
	if res.RunID, err = startRun(ctx, cfg, sinks.Runs, start); err != nil {
		return nil, err
	}

	monitoring.Logf("[study] %s: run %s, %d x %d rays, %d targets, %d frequencies",
		res.Name, res.RunID, len(q.DE()), len(q.AZ()), len(cfg.GetTargets()), len(q.Frequencies()))

	every := cfg.GetWavefrontEvery()
	record := func() {
		if sinks.Wavefronts == nil || every == 0 || q.Steps()%every != 0 {
			return
		}
		if err := sinks.Wavefronts.WriteWavefront(ctx, res.RunID, q.Steps(), q.Current()); err != nil {
			monitoring.Logf("[study] %s: failed to write wavefront step %d: %v", res.Name, q.Steps(), err)
			res.FailedWrites++
			return
		}
		res.Wavefronts++
	}

	record()
	tmax := cfg.GetTimeMax()
	for q.Time() < tmax {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("study %s cancelled at t=%.3f: %w", res.Name, q.Time(), err)
		}
		if err := q.Step(); err != nil {
			return nil, fmt.Errorf("study %s failed at step %d: %w", res.Name, q.Steps(), err)
		}
		monitoring.Debugf("[study] %s: step %d t=%.4f eigenrays=%d", res.Name, q.Steps(), q.Time(), q.Loss().Len())
		record()
	}

	if err := q.Loss().SumEigenrays(); err != nil {
		return nil, fmt.Errorf("failed to sum eigenrays: %w", err)
	}
	res.Steps = q.Steps()
	res.Time = q.Time()
	res.Eigenrays = q.Loss().Len()

	res.FailedWrites += persist(ctx, res, sinks, cfg.GetFrequencyIndex())
	res.Elapsed = clock.Since(start)

	monitoring.Logf("[study] %s: %d steps to t=%.3f s, %d eigenrays, %d wavefronts written, %d failed writes in %v",
		res.Name, res.Steps, res.Time, res.Eigenrays, res.Wavefronts, res.FailedWrites, res.Elapsed.Round(time.Millisecond))
	return res, nil
}

func startRun(ctx context.Context, cfg *config.ScenarioConfig, runs RunSink, start time.Time) (string, error) {
	if runs == nil {
		return uuid.New().String(), nil
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode scenario: %w", err)
	}
	run := &sqlite.Run{Name: cfg.GetName(), ConfigJSON: raw, CreatedAt: start.UnixNano()}
	if err := runs.Insert(ctx, run); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}
	return run.RunID, nil
}

// persist hands the summed results to the eigenray and CSV sinks and returns
// the number of failed writes.
func persist(ctx context.Context, res *Result, sinks Sinks, freq int) int {
	failed := 0
	fail := func(what string, err error) {
		monitoring.Logf("[study] %s: failed to write %s: %v", res.Name, what, err)
		failed++
	}

	loss := res.Loss
	n := len(loss.Targets())
	if sinks.Eigenrays != nil {
		for i := 0; i < n; i++ {
			if err := sinks.Eigenrays.WriteEigenrays(ctx, res.RunID, i, loss.Eigenrays(i)); err != nil {
				fail(fmt.Sprintf("eigenrays of target %d", i), err)
			}
		}
		if err := sinks.Eigenrays.WriteTotals(ctx, res.RunID, loss); err != nil {
			fail("totals", err)
		}
	}

	if sinks.FS != nil && sinks.CSVDir != "" {
		for i := 0; i < n; i++ {
			path := filepath.Join(sinks.CSVDir, EigenrayFileName(i))
			if err := export.WriteEigenrayFile(sinks.FS, path, loss.Eigenrays(i), freq); err != nil {
				fail(path, err)
			}
		}
		path := filepath.Join(sinks.CSVDir, TotalFileName)
		if err := export.WriteTotalFile(sinks.FS, path, loss, freq); err != nil {
			fail(path, err)
		}
	}
	return failed
}

// TotalFileName is the CSV table of coherent totals written under Sinks.CSVDir.
const TotalFileName = "proploss.csv"

// EigenrayFileName names the CSV eigenray table of target i.
func EigenrayFileName(i int) string {
	return fmt.Sprintf("eigenrays_%03d.csv", i)
}

// BuildOcean maps the scenario environment onto the ocean model. Grid files
// named by the environment are loaded through data.
func BuildOcean(cfg *config.ScenarioConfig, data *ocean.DataCache) (*ocean.Ocean, error) {
	env := cfg.GetEnvironment()
	if err := env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if data == nil {
		data = ocean.NewDataCache(nil)
	}

	var att ocean.Attenuation
	switch env.GetAttenuation() {
	case config.AttenuationConstant:
		att = ocean.AttenuationConstant{Coefficient: env.GetAttenuationCoefficient()}
	case config.AttenuationThorp:
		att = ocean.AttenuationThorp{}
	}

	var profile ocean.Profile
	switch env.GetProfile() {
	case config.ProfileMunk:
		profile = ocean.NewProfileMunk(att)
	case config.ProfileGrid:
		c, err := data.Climatology(env.GetClimatology())
		if err != nil {
			return nil, err
		}
		src := cfg.GetSource()
		grid, err := ocean.NewProfileGrid(c, cfg.GetEpoch(), geo.EarthAt(src.Latitude), att)
		if err != nil {
			return nil, fmt.Errorf("failed to build profile from %s: %w", env.GetClimatology(), err)
		}
		profile = grid
	default:
		profile = &ocean.ProfileLinear{Speed: env.GetSoundSpeed(), Gradient: env.GetGradient(), Attenuation: att}
	}

	var loss ocean.Reflector
	switch env.GetBottomLoss() {
	case config.LossConstant:
		loss = ocean.ReflectLossConstant{Loss: env.GetBottomLossDB()}
	case config.LossRayleigh:
		r, err := ocean.NewReflectLossRayleigh(ocean.BottomType(env.GetBottomType()))
		if err != nil {
			return nil, err
		}
		loss = r
	}

	var bottom ocean.Boundary
	switch env.GetBottom() {
	case config.BottomSlope:
		bottom = ocean.NewBoundarySlope(cfg.GetSource(), env.GetBottomDepth(), env.GetSlopeNorth(), env.GetSlopeEast(), loss)
	case config.BottomGrid:
		g, err := data.Bathymetry(env.GetBathymetry())
		if err != nil {
			return nil, err
		}
		bottom = ocean.NewBoundaryGrid(g, loss)
	default:
		bottom = ocean.NewBoundaryFlat(env.GetBottomDepth(), loss)
	}

	return &ocean.Ocean{Surface: ocean.NewSurface(), Bottom: bottom, Profile: profile}, nil
}
