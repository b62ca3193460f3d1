package storage

import (
	"context"
	"time"

	"dexradar/internal/domain"
)

// SnapshotStore holds the live row per asset identity.
type SnapshotStore interface {
	// Upsert writes the snapshot keyed by (chain_id, token_address).
	// Returns true when a new row was inserted, false when an existing
	// row was updated in place. The check-and-set is atomic per key.
	Upsert(ctx context.Context, s *domain.AssetSnapshot) (inserted bool, err error)

	// GetByKey retrieves the live row. Returns ErrNotFound if absent.
	GetByKey(ctx context.Context, key domain.AssetKey) (*domain.AssetSnapshot, error)

	// GetRecent retrieves up to limit rows, newest write first.
	GetRecent(ctx context.Context, limit int) ([]*domain.AssetSnapshot, error)
}

// ObservationStore holds the append-only metric history that trend
// detection reads.
type ObservationStore interface {
	// Append adds one observation row.
	Append(ctx context.Context, o *domain.Observation) error

	// GetByTimeRange retrieves observations with timestamp within
	// [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end time.Time) ([]*domain.Observation, error)
}
