// Package repository provides optional persistence for accepted
// observations. The tracking core itself is in-memory; callers that want
// durability configure one of the stores here and the tracker writes through
// after every accepted append, rebuilding ledger state at startup.
package repository

import (
	"context"

	"github.com/lesion-track-server/internal/domain"
)

// Store persists accepted observations and restores timelines at startup.
type Store interface {
	// SaveObservation persists a single accepted observation.
	SaveObservation(ctx context.Context, obs domain.Observation) error

	// LoadTimelines returns all persisted observations grouped into
	// timelines, ordered by lesion reference and then by timestamp.
	LoadTimelines(ctx context.Context) ([]*domain.LesionTimeline, error)

	// Close releases the underlying resources.
	Close() error
}
