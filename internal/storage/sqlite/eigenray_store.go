package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kurtlen/UnderSeaModelingLibrary/internal/proploss"
)

// EigenrayStore provides persistence for eigenrays and summed loss.
type EigenrayStore struct {
	db *sql.DB
}

// NewEigenrayStore creates a new EigenrayStore.
func NewEigenrayStore(db *sql.DB) *EigenrayStore {
	return &EigenrayStore{db: db}
}

// WriteEigenrays stores the eigenrays of one target in a single
// transaction.
func (s *EigenrayStore) WriteEigenrays(ctx context.Context, runID string, target int, rays []proploss.Eigenray) error {
	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin eigenray tx: %w", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO eigenrays (
				run_id, target_index, travel_time, intensity_json, phase_json,
				source_de, source_az, target_de, target_az,
				surface, bottom, caustic, extrapolated
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare eigenray insert: %w", err)
		}
		defer stmt.Close()

		for k, ray := range rays {
			intensity, err := json.Marshal(ray.Intensity)
			if err != nil {
				return fmt.Errorf("marshal intensity of eigenray %d: %w", k, err)
			}
			phase, err := json.Marshal(ray.Phase)
			if err != nil {
				return fmt.Errorf("marshal phase of eigenray %d: %w", k, err)
			}
			if _, err := stmt.ExecContext(ctx,
				runID, target, ray.Time, string(intensity), string(phase),
				ray.SourceDE, ray.SourceAZ, ray.TargetDE, ray.TargetAZ,
				ray.Surface, ray.Bottom, ray.Caustic, ray.Extrapolated,
			); err != nil {
				return fmt.Errorf("insert eigenray %d: %w", k, err)
			}
		}
		return tx.Commit()
	})
}

// Eigenrays returns the stored eigenrays of one target ordered by travel
// time.
func (s *EigenrayStore) Eigenrays(ctx context.Context, runID string, target int) ([]proploss.Eigenray, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT travel_time, intensity_json, phase_json,
		       source_de, source_az, target_de, target_az,
		       surface, bottom, caustic, extrapolated
		FROM eigenrays
		WHERE run_id = ? AND target_index = ?
		ORDER BY travel_time, eigenray_id`, runID, target)
	if err != nil {
		return nil, fmt.Errorf("query eigenrays: %w", err)
	}
	defer rows.Close()

	var rays []proploss.Eigenray
	for rows.Next() {
		var ray proploss.Eigenray
		var intensity, phase string
		if err := rows.Scan(
			&ray.Time, &intensity, &phase,
			&ray.SourceDE, &ray.SourceAZ, &ray.TargetDE, &ray.TargetAZ,
			&ray.Surface, &ray.Bottom, &ray.Caustic, &ray.Extrapolated,
		); err != nil {
			return nil, fmt.Errorf("scan eigenray row: %w", err)
		}
		if err := json.Unmarshal([]byte(intensity), &ray.Intensity); err != nil {
			return nil, fmt.Errorf("decode intensity: %w", err)
		}
		if err := json.Unmarshal([]byte(phase), &ray.Phase); err != nil {
			return nil, fmt.Errorf("decode phase: %w", err)
		}
		rays = append(rays, ray)
	}
	return rays, rows.Err()
}

// WriteTotals stores the summed propagation loss of every target in p,
// replacing any totals already recorded for the run.
func (s *EigenrayStore) WriteTotals(ctx context.Context, runID string, p *proploss.PropLoss) error {
	return retryOnBusy(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin proploss tx: %w", err)
		}
		defer tx.Rollback()

		for n, target := range p.Targets() {
			totals := p.Total(n)
			intensity := make([]float64, len(totals))
			phase := make([]float64, len(totals))
			for f, t := range totals {
				intensity[f], phase[f] = t.Intensity, t.Phase
			}
			ij, err := json.Marshal(intensity)
			if err != nil {
				return fmt.Errorf("marshal totals of target %d: %w", n, err)
			}
			pj, err := json.Marshal(phase)
			if err != nil {
				return fmt.Errorf("marshal totals of target %d: %w", n, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO proploss (
					run_id, target_index, latitude, longitude, altitude, intensity_json, phase_json
				) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, n, target.Latitude, target.Longitude, target.Altitude, string(ij), string(pj),
			); err != nil {
				return fmt.Errorf("insert totals of target %d: %w", n, err)
			}
		}
		return tx.Commit()
	})
}

// Totals returns the summed loss of one target.
func (s *EigenrayStore) Totals(ctx context.Context, runID string, target int) ([]proploss.Total, error) {
	var ij, pj string
	err := s.db.QueryRowContext(ctx, `
		SELECT intensity_json, phase_json FROM proploss
		WHERE run_id = ? AND target_index = ?`, runID, target).Scan(&ij, &pj)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("totals of target %d in run %s: %w", target, runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query totals: %w", err)
	}
	var intensity, phase []float64
	if err := json.Unmarshal([]byte(ij), &intensity); err != nil {
		return nil, fmt.Errorf("decode totals: %w", err)
	}
	if err := json.Unmarshal([]byte(pj), &phase); err != nil {
		return nil, fmt.Errorf("decode totals: %w", err)
	}
	if len(intensity) != len(phase) {
		return nil, fmt.Errorf("totals of target %d: %d intensities, %d phases", target, len(intensity), len(phase))
	}
	totals := make([]proploss.Total, len(intensity))
	for f := range totals {
		totals[f] = proploss.Total{Intensity: intensity[f], Phase: phase[f]}
	}
	return totals, nil
}
