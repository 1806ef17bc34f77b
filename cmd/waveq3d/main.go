// Command waveq3d runs a propagation scenario and prints the eigenrays found
// at each target.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/config"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/export"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/fsutil"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/monitoring"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/ocean"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/security"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/storage/sqlite"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/study"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/version"
)

var (
	configPath  = flag.String("config", "", "Scenario JSON file (default: search for "+config.DefaultConfigPath+")")
	dbPath      = flag.String("db", "", "SQLite database for run, wavefront and eigenray records")
	csvDir      = flag.String("csv", "", "Directory for eigenray and propagation loss CSV tables")
	wavefronts  = flag.Int("wavefronts", -1, "Record every Nth wavefront slice (0 disables, -1 uses the scenario)")
	workers     = flag.Int("workers", -1, "Worker goroutines (0 uses GOMAXPROCS, -1 uses the scenario)")
	verbose     = flag.Bool("verbose", false, "Log every time step")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

type options struct {
	config     string
	db         string
	csv        string
	wavefronts int
	workers    int
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println("waveq3d", version.String())
		return
	}
	monitoring.SetVerbose(*verbose)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		config:     *configPath,
		db:         *dbPath,
		csv:        *csvDir,
		wavefronts: *wavefronts,
		workers:    *workers,
	}
	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("waveq3d: %v", err)
	}
}

func loadConfig(opts options) (*config.ScenarioConfig, error) {
	var cfg *config.ScenarioConfig
	if opts.config == "" {
		cfg = config.MustLoadDefaultConfig()
	} else {
		var err error
		if cfg, err = config.LoadScenarioConfig(opts.config); err != nil {
			return nil, err
		}
		if err := resolveDataPaths(cfg, filepath.Dir(opts.config)); err != nil {
			return nil, err
		}
	}
	if opts.wavefronts >= 0 {
		cfg.WavefrontEvery = &opts.wavefronts
	}
	if opts.workers >= 0 {
		cfg.Workers = &opts.workers
	}
	return cfg, nil
}

// resolveDataPaths makes grid paths in a scenario file relative to the file.
func resolveDataPaths(cfg *config.ScenarioConfig, dir string) error {
	env := cfg.Environment
	if env == nil {
		return nil
	}
	for _, p := range []*string{env.Climatology, env.Bathymetry} {
		if p == nil {
			continue
		}
		resolved, err := security.ResolveDataPath(dir, *p)
		if err != nil {
			return err
		}
		*p = resolved
	}
	return nil
}

func run(ctx context.Context, opts options, out io.Writer) error {
	for _, path := range []string{opts.db, opts.csv} {
		if path == "" {
			continue
		}
		if err := security.ValidateOutputPath(path); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	var sinks study.Sinks
	if opts.db != "" {
		db, err := sqlite.Open(opts.db)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		sinks = study.NewSQLiteSinks(db)
	}
	if opts.csv != "" {
		sinks.FS = fsutil.OSFileSystem{}
		sinks.CSVDir = opts.csv
	}

	res, err := study.Run(ctx, study.Scenario{Config: cfg, Data: ocean.NewDataCache(nil)}, sinks)
	if err != nil {
		return err
	}
	return printResult(out, res, cfg.GetFrequencyIndex())
}

func printResult(out io.Writer, res *study.Result, freq int) error {
	freqs := res.Loss.Frequencies()
	fmt.Fprintf(out, "# %s run %s: %d steps, t=%.3f s, %d eigenrays at %g Hz\n",
		res.Name, res.RunID, res.Steps, res.Time, res.Eigenrays, freqs[freq])
	if res.FailedWrites > 0 {
		fmt.Fprintf(out, "# %d writes failed\n", res.FailedWrites)
	}

	for i, t := range res.Loss.Targets() {
		total := res.Totals(i)[freq]
		fmt.Fprintf(out, "# target %d at %.6f,%.6f,%.1f: %.2f dB, phase %.4f rad\n",
			i, t.Latitude, t.Longitude, t.Altitude, total.Intensity, total.Phase)
		w := export.NewCSVWriter(out, freq)
		if err := w.WriteEigenrays(res.Loss.Eigenrays(i)); err != nil {
			return err
		}
	}
	return nil
}
