// Package memory provides in-memory store implementations for tests
// and single-process development runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu   sync.RWMutex
	data map[domain.AssetKey]*domain.AssetSnapshot
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make(map[domain.AssetKey]*domain.AssetSnapshot),
	}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Upsert writes the snapshot under its identity key. Returns true when
// no live row existed.
func (s *SnapshotStore) Upsert(_ context.Context, snap *domain.AssetSnapshot) (bool, error) {
	if snap == nil || snap.ChainID == "" || snap.TokenAddress == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := snap.Key()
	_, exists := s.data[key]

	// Store a copy to prevent external mutation
	snapCopy := copySnapshot(snap)
	s.data[key] = snapCopy
	return !exists, nil
}

// GetByKey retrieves the live row. Returns ErrNotFound if absent.
func (s *SnapshotStore) GetByKey(_ context.Context, key domain.AssetKey) (*domain.AssetSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.data[key]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySnapshot(snap), nil
}

// GetRecent retrieves up to limit rows, newest write first.
func (s *SnapshotStore) GetRecent(_ context.Context, limit int) ([]*domain.AssetSnapshot, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.AssetSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		result = append(result, copySnapshot(snap))
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Timestamp.Equal(result[j].Timestamp) {
			return result[i].Timestamp.After(result[j].Timestamp)
		}
		return result[i].Key().String() < result[j].Key().String()
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func copySnapshot(snap *domain.AssetSnapshot) *domain.AssetSnapshot {
	snapCopy := *snap
	if snap.Links != nil {
		snapCopy.Links = make([]domain.ProfileLink, len(snap.Links))
		copy(snapCopy.Links, snap.Links)
	}
	if snap.Risk != nil {
		riskCopy := *snap.Risk
		if snap.Risk.Risks != nil {
			riskCopy.Risks = make([]domain.RiskFinding, len(snap.Risk.Risks))
			copy(riskCopy.Risks, snap.Risk.Risks)
		}
		snapCopy.Risk = &riskCopy
	}
	return &snapCopy
}
