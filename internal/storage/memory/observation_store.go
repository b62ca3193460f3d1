package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dexradar/internal/domain"
	"dexradar/internal/storage"
)

// ObservationStore is an in-memory implementation of storage.ObservationStore.
type ObservationStore struct {
	mu   sync.RWMutex
	data []*domain.Observation
}

// NewObservationStore creates a new in-memory observation store.
func NewObservationStore() *ObservationStore {
	return &ObservationStore{}
}

// Compile-time interface check.
var _ storage.ObservationStore = (*ObservationStore)(nil)

// Append adds one observation row.
func (s *ObservationStore) Append(_ context.Context, o *domain.Observation) error {
	if o == nil || o.ChainID == "" || o.TokenAddress == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obsCopy := *o
	s.data = append(s.data, &obsCopy)
	return nil
}

// GetByTimeRange retrieves observations within [start, end] inclusive,
// ordered by timestamp ASC.
func (s *ObservationStore) GetByTimeRange(_ context.Context, start, end time.Time) ([]*domain.Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Observation
	for _, o := range s.data {
		if !o.Timestamp.Before(start) && !o.Timestamp.After(end) {
			obsCopy := *o
			result = append(result, &obsCopy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}
