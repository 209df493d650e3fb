package store

import (
	"context"

	"ghostpace/pkg/model"
)

// RunStore is the repository for recorded runs. Consumers that only read
// runs should depend on this interface, not the concrete store.
type RunStore interface {
	// SaveRun persists a recorded run and returns its assigned ID.
	SaveRun(ctx context.Context, route string, samples []model.GeoSample) (string, error)
	// GetRun loads a run by ID.
	GetRun(ctx context.Context, id string) (*model.RecordedRun, error)
	// ListRuns returns run summaries (without samples), newest first.
	ListRuns(ctx context.Context, limit int) ([]model.RecordedRun, error)
	// PersonalBest returns the fastest run on the named route, or nil.
	PersonalBest(ctx context.Context, route string) (*model.RecordedRun, error)

	// Close closes the store connection.
	Close() error
}
