// Package store persists recorded runs so a finished activity can become a
// future ghost. The pacing core never touches it.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ghostpace/pkg/db"
	"ghostpace/pkg/ghost"
	"ghostpace/pkg/model"
)

// ErrNotFound is returned when a run ID does not exist.
var ErrNotFound = errors.New("run not found")

// SQLiteStore implements RunStore.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(db *db.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun persists a recorded run. The samples are validated the same way a
// ghost load would validate them, so anything saved here can be raced later.
func (s *SQLiteStore) SaveRun(ctx context.Context, route string, samples []model.GeoSample) (string, error) {
	tr, err := ghost.New(samples)
	if err != nil {
		return "", fmt.Errorf("run not storable: %w", err)
	}

	blob, err := json.Marshal(samples)
	if err != nil {
		return "", fmt.Errorf("failed to encode samples: %w", err)
	}

	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, route, duration_ms, distance_m, samples) VALUES (?, ?, ?, ?, ?)`,
		id, route, tr.TotalDurationMs(), tr.TotalDistanceMeters(), string(blob))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// GetRun loads a run with its full sample list.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*model.RecordedRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, route, samples, created_at FROM runs WHERE id = ?`, id)

	var run model.RecordedRun
	var blob string
	if err := row.Scan(&run.ID, &run.Route, &blob, &run.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to load run: %w", err)
	}
	if err := json.Unmarshal([]byte(blob), &run.Samples); err != nil {
		return nil, fmt.Errorf("failed to decode samples: %w", err)
	}
	return &run, nil
}

// ListRuns returns run summaries without samples, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.RecordedRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, route, created_at FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RecordedRun
	for rows.Next() {
		var run model.RecordedRun
		if err := rows.Scan(&run.ID, &run.Route, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PersonalBest returns the fastest stored run on the named route, or nil
// when the route has no runs yet.
func (s *SQLiteStore) PersonalBest(ctx context.Context, route string) (*model.RecordedRun, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id FROM runs WHERE route = ? ORDER BY duration_ms ASC LIMIT 1`, route)

	var id string
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find personal best: %w", err)
	}
	return s.GetRun(ctx, id)
}
