package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/monitoring"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/storage/sqlite"
)

const shortScenario = `{
  "name": "cli_short",
  "de": {"first": -10, "increment": 5, "last": 10},
  "az": {"first": -2, "increment": 2, "last": 2},
  "time_max": 0.45,
  "frequencies": [1000, 5000],
  "frequency_index": 1
}`

func writeScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "short.json")
	require.NoError(t, os.WriteFile(path, []byte(shortScenario), 0o644))
	return path
}

func TestFlagDefaults(t *testing.T) {
	for name, want := range map[string]string{
		"config":     "",
		"db":         "",
		"csv":        "",
		"wavefronts": "-1",
		"workers":    "-1",
		"verbose":    "false",
		"version":    "false",
	} {
		f := flag.Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, want, f.DefValue, name)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeScenario(t)

	cfg, err := loadConfig(options{config: path, wavefronts: -1, workers: -1})
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.GetWavefrontEvery())
	assert.Equal(t, 0, cfg.GetWorkers())

	cfg, err = loadConfig(options{config: path, wavefronts: 5, workers: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.GetWavefrontEvery())
	assert.Equal(t, 2, cfg.GetWorkers())

	_, err = loadConfig(options{config: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)
}

func TestRun_WritesDatabaseAndCSV(t *testing.T) {
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.SetLogger(nil) })

	dir := t.TempDir()
	opts := options{
		config:     writeScenario(t),
		db:         filepath.Join(dir, "runs.db"),
		csv:        filepath.Join(dir, "csv"),
		wavefronts: 2,
		workers:    1,
	}

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), opts, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "# cli_short run "), lines[0])
	assert.Contains(t, lines[0], "5 steps")
	assert.Contains(t, lines[0], "at 5000 Hz")
	assert.Contains(t, lines[1], "300.00 dB")
	assert.True(t, strings.HasPrefix(lines[2], "time,intensity,phase"))

	for _, name := range []string{"eigenrays_000.csv", "proploss.csv"} {
		_, err := os.Stat(filepath.Join(opts.csv, name))
		assert.NoError(t, err, name)
	}

	db, err := sqlite.Open(opts.db)
	require.NoError(t, err)
	defer db.Close()
	runs, err := sqlite.NewRunStore(db.DB).List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "cli_short", runs[0].Name)

	// Slices 0, 2 and 4 of the five steps.
	steps, err := sqlite.NewWavefrontStore(db.DB).Steps(context.Background(), runs[0].RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, steps)
}

func TestLoadConfig_ResolvesGridPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"environment": {
		"profile": "grid", "climatology": "grids/woa.json",
		"bottom": "grid", "bathymetry": "/data/etopo.json"}}`), 0o644))

	cfg, err := loadConfig(options{config: path, wavefronts: -1, workers: -1})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "grids", "woa.json"), cfg.GetEnvironment().GetClimatology())
	assert.Equal(t, "/data/etopo.json", cfg.GetEnvironment().GetBathymetry())

	escape := filepath.Join(dir, "escape.json")
	require.NoError(t, os.WriteFile(escape, []byte(`{"environment": {
		"bottom": "grid", "bathymetry": "../etopo.json"}}`), 0o644))
	_, err = loadConfig(options{config: escape, wavefronts: -1, workers: -1})
	assert.Error(t, err)
}

func TestRun_RejectsOutputOutsideWorkspace(t *testing.T) {
	opts := options{config: writeScenario(t), db: "/proc/waveq3d/runs.db", wavefronts: -1, workers: -1}
	err := run(context.Background(), opts, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output path")
}

func TestRun_BadDatabasePath(t *testing.T) {
	opts := options{
		config:     writeScenario(t),
		db:         filepath.Join(t.TempDir(), "missing", "dir", "runs.db"),
		wavefronts: -1,
		workers:    -1,
	}
	err := run(context.Background(), opts, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database")
}
