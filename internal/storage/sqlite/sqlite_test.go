package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/geo"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/ocean"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/proploss"
	"github.com/kurtlen/UnderSeaModelingLibrary/internal/waveq3d"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func insertRun(t *testing.T, db *DB, name string) *Run {
	t.Helper()
	run := &Run{Name: name, ConfigJSON: json.RawMessage(`{"time_max":3.5}`)}
	require.NoError(t, NewRunStore(db.DB).Insert(context.Background(), run))
	return run
}

func TestOpen_MigratesToLatest(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	for _, table := range []string{"runs", "wavefront_rays", "eigenrays", "proploss"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	// Migrating again is a no-op.
	require.NoError(t, db.MigrateUp())
}

func TestOpen_MigrateDown(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE name = 'eigenrays'`).Scan(&n))
	assert.Zero(t, n)

	require.NoError(t, db.MigrateUp())
}

func TestOpen_Memory(t *testing.T) {
	t.Parallel()

	db, err := Open(":memory:")
	require.NoError(t, err)
	defer db.Close()

	run := insertRun(t, db, "memory")
	got, err := NewRunStore(db.DB).Get(context.Background(), run.RunID)
	require.NoError(t, err)
	assert.Equal(t, "memory", got.Name)
}

func TestRunStore_CRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	store := NewRunStore(db.DB)

	first := insertRun(t, db, "basic")
	assert.Len(t, first.RunID, 36)
	assert.NotZero(t, first.CreatedAt)
	assert.NotEmpty(t, first.Version)

	second := &Run{Name: "concave", CreatedAt: first.CreatedAt + 1}
	require.NoError(t, store.Insert(ctx, second))

	got, err := store.Get(ctx, first.RunID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"time_max":3.5}`, string(got.ConfigJSON))
	assert.Equal(t, first.CreatedAt, got.CreatedAt)

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "concave", runs[0].Name)
	assert.Nil(t, runs[0].ConfigJSON)

	require.NoError(t, store.Delete(ctx, first.RunID))
	_, err = store.Get(ctx, first.RunID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, first.RunID), ErrNotFound)

	// Duplicate IDs are rejected.
	assert.Error(t, store.Insert(ctx, &Run{RunID: second.RunID, Name: "dup"}))
}

func smallQueue(t *testing.T) *waveq3d.Queue {
	t.Helper()
	source := geo.Position{Latitude: 45, Longitude: -45, Altitude: -1000}
	q, err := waveq3d.New(ocean.NewIsovelocity(1500, 3000), []float64{1000}, source,
		waveq3d.Linear(-10, 5, 10), waveq3d.Linear(-5, 5, 5), 0.1, nil)
	require.NoError(t, err)
	return q
}

func TestWavefrontStore_WriteAndRead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	run := insertRun(t, db, "wavefront")
	store := NewWavefrontStore(db.DB)

	q := smallQueue(t)
	require.NoError(t, store.WriteWavefront(ctx, run.RunID, 0, q.Current()))
	for step := 1; step <= 3; step++ {
		require.NoError(t, q.Step())
		require.NoError(t, store.WriteWavefront(ctx, run.RunID, step, q.Current()))
	}
	// Rewriting a step replaces it.
	require.NoError(t, store.WriteWavefront(ctx, run.RunID, 3, q.Current()))

	steps, err := store.Steps(ctx, run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 4, steps)

	rays, err := store.Slice(ctx, run.RunID, 3)
	require.NoError(t, err)
	require.Len(t, rays, 5*3)

	w := q.Current()
	for _, r := range rays {
		want := w.At(r.DEIndex, r.AZIndex)
		assert.Equal(t, 3, r.Step)
		assert.InDelta(t, w.Time, r.Time, 1e-12)
		assert.InDelta(t, want.Position.Latitude, r.Latitude, 1e-12)
		assert.InDelta(t, want.Position.Altitude, r.Altitude, 1e-9)
		assert.InDelta(t, want.Distance, r.Distance, 1e-9)
		assert.Equal(t, want.Valid, r.Valid)
	}
	assert.Equal(t, 0, rays[0].DEIndex)
	assert.Equal(t, 1, rays[1].AZIndex)

	empty, err := store.Slice(ctx, run.RunID, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWavefrontStore_UnknownRun(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	err := NewWavefrontStore(db.DB).WriteWavefront(context.Background(), "missing", 0, smallQueue(t).Current())
	assert.Error(t, err, "foreign key must reject rays without a run")
}

func TestEigenrayStore_RoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	run := insertRun(t, db, "eigenrays")
	store := NewEigenrayStore(db.DB)

	rays := []proploss.Eigenray{
		{Time: 1.995, Intensity: []float64{69.52, 70.1}, Phase: []float64{-math.Pi, -math.Pi},
			SourceDE: 41.9, TargetDE: -41.9, Surface: 1},
		{Time: 1.484, Intensity: []float64{66.95, 67.2}, Phase: []float64{0, 0},
			SourceDE: -0.01, TargetDE: 0.01},
		{Time: 3.05, Intensity: []float64{73.2, 74}, Phase: []float64{0, 0},
			SourceDE: -60.9, TargetDE: 60.9, Bottom: 1, Caustic: 1, Extrapolated: true},
	}
	require.NoError(t, store.WriteEigenrays(ctx, run.RunID, 0, rays))

	got, err := store.Eigenrays(ctx, run.RunID, 0)
	require.NoError(t, err)
	want := []proploss.Eigenray{rays[1], rays[0], rays[2]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("eigenrays mismatch (-want +got):\n%s", diff)
	}

	other, err := store.Eigenrays(ctx, run.RunID, 1)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEigenrayStore_Totals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := setupTestDB(t)
	run := insertRun(t, db, "totals")
	store := NewEigenrayStore(db.DB)

	targets := []geo.Position{
		{Latitude: 45.02, Longitude: -45, Altitude: -1000},
		{Latitude: 45.04, Longitude: -45, Altitude: -500},
	}
	p := proploss.New(targets, []float64{1000})
	require.NoError(t, p.Add(0, proploss.Eigenray{Time: 1, Intensity: []float64{60}, Phase: []float64{0.5}}))
	require.NoError(t, p.SumEigenrays())

	require.NoError(t, store.WriteTotals(ctx, run.RunID, p))
	require.NoError(t, store.WriteTotals(ctx, run.RunID, p))

	got, err := store.Totals(ctx, run.RunID, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 60, got[0].Intensity, 1e-9)
	assert.InDelta(t, 0.5, got[0].Phase, 1e-9)

	got, err = store.Totals(ctx, run.RunID, 1)
	require.NoError(t, err)
	assert.Equal(t, []proploss.Total{{Intensity: proploss.NoPathLoss}}, got)

	_, err = store.Totals(ctx, run.RunID, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting the run cascades.
	require.NoError(t, NewRunStore(db.DB).Delete(ctx, run.RunID))
	_, err = store.Totals(ctx, run.RunID, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRetryOnBusy(t *testing.T) {
	t.Parallel()

	calls := 0
	err := retryOnBusy(func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked (5) (SQLITE_BUSY)")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOnBusy(func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.EqualError(t, err, "constraint failed")
	assert.Equal(t, 1, calls)

	calls = 0
	err = retryOnBusy(func() error {
		calls++
		return fmt.Errorf("insert: %w", errors.New("SQLITE_BUSY"))
	})
	assert.Error(t, err)
	assert.Equal(t, busyAttempts, calls)
}

func TestIsSQLiteBusy(t *testing.T) {
	t.Parallel()

	assert.False(t, isSQLiteBusy(nil))
	assert.False(t, isSQLiteBusy(errors.New("no such table")))
	assert.True(t, isSQLiteBusy(errors.New("database is locked")))
	assert.True(t, isSQLiteBusy(errors.New("sqlite: SQLITE_BUSY")))
}

func TestOpen_PragmasOnEveryConnection(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	db.SetMaxOpenConns(4)
	ctx := context.Background()
	conns := make([]interface{ Close() error }, 0, 3)
	for range 3 {
		conn, err := db.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)

		var fk int
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA foreign_keys`).Scan(&fk))
		assert.Equal(t, 1, fk)
		var mode string
		require.NoError(t, conn.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&mode))
		assert.Equal(t, "wal", mode)
	}
	for _, c := range conns {
		require.NoError(t, c.Close())
	}
}
