package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/waveq3d"
)

// WavefrontRay is one persisted ray of a wavefront slice.
type WavefrontRay struct {
	Step       int     `json:"step"`
	DEIndex    int     `json:"de_index"`
	AZIndex    int     `json:"az_index"`
	Time       float64 `json:"time"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Altitude   float64 `json:"altitude"`
	TravelTime float64 `json:"travel_time"`
	Distance   float64 `json:"distance"`
	Surface    int     `json:"surface"`
	Bottom     int     `json:"bottom"`
	Caustic    int     `json:"caustic"`
	Valid      bool    `json:"valid"`
}

// WavefrontStore records wavefront slices as the queue produces them.
type WavefrontStore struct {
	db *sql.DB
}

// NewWavefrontStore creates a new WavefrontStore.
func NewWavefrontStore(db *sql.DB) *WavefrontStore {
	return &WavefrontStore{db: db}
}

// WriteWavefront stores every ray of w as slice step of the run in a single
// transaction. Writing the same step twice replaces the earlier slice.
func (s *WavefrontStore) WriteWavefront(ctx context.Context, runID string, step int, w *waveq3d.Wavefront) error {
	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin wavefront tx: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO wavefront_rays (
				run_id, step, de_index, az_index, time,
				latitude, longitude, altitude, travel_time, distance,
				surface, bottom, caustic, valid
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare wavefront insert: %w", err)
		}
		defer stmt.Close()

		for i := 0; i < w.NumDE; i++ {
			for j := 0; j < w.NumAZ; j++ {
				r := w.At(i, j)
				if _, err := stmt.ExecContext(ctx,
					runID, step, i, j, w.Time,
					r.Position.Latitude, r.Position.Longitude, r.Position.Altitude, r.Time, r.Distance,
					r.Surface, r.Bottom, r.Caustic, r.Valid,
				); err != nil {
					return fmt.Errorf("insert ray (%d,%d) of step %d: %w", i, j, step, err)
				}
			}
		}
		return tx.Commit()
	})
}

// Slice returns the rays stored for one step in launch order.
func (s *WavefrontStore) Slice(ctx context.Context, runID string, step int) ([]WavefrontRay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT step, de_index, az_index, time,
		       latitude, longitude, altitude, travel_time, distance,
		       surface, bottom, caustic, valid
		FROM wavefront_rays
		WHERE run_id = ? AND step = ?
		ORDER BY de_index, az_index`, runID, step)
	if err != nil {
		return nil, fmt.Errorf("query wavefront: %w", err)
	}
	defer rows.Close()

	var rays []WavefrontRay
	for rows.Next() {
		var r WavefrontRay
		if err := rows.Scan(
			&r.Step, &r.DEIndex, &r.AZIndex, &r.Time,
			&r.Latitude, &r.Longitude, &r.Altitude, &r.TravelTime, &r.Distance,
			&r.Surface, &r.Bottom, &r.Caustic, &r.Valid,
		); err != nil {
			return nil, fmt.Errorf("scan wavefront row: %w", err)
		}
		rays = append(rays, r)
	}
	return rays, rows.Err()
}

// Steps returns the number of distinct slices stored for a run.
func (s *WavefrontStore) Steps(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT step) FROM wavefront_rays WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count wavefront steps: %w", err)
	}
	return n, nil
}
