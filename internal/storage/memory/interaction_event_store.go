package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hat-store/internal/domain"
	"hat-store/internal/storage"
)

// InteractionEventStore is an in-memory implementation of storage.InteractionEventStore.
type InteractionEventStore struct {
	mu   sync.RWMutex
	data []*domain.InteractionEvent
	keys map[string]bool
}

// NewInteractionEventStore creates a new in-memory interaction event store.
func NewInteractionEventStore() *InteractionEventStore {
	return &InteractionEventStore{
		data: make([]*domain.InteractionEvent, 0),
		keys: make(map[string]bool),
	}
}

// Compile-time interface check.
var _ storage.InteractionEventStore = (*InteractionEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *InteractionEventStore) Insert(_ context.Context, e *domain.InteractionEvent) error {
	if err := storage.ValidateEvent(e); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[e.EventID] {
		return storage.ErrDuplicateKey
	}

	// Store a copy
	copy := *e
	copy.OccurredAt = e.OccurredAt.UTC()
	s.data = append(s.data, &copy)
	s.keys[e.EventID] = true

	return nil
}

// GetByTimeRange retrieves events of a frame within [start, end).
func (s *InteractionEventStore) GetByTimeRange(_ context.Context, frameID string, start, end time.Time) ([]*domain.InteractionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.InteractionEvent, 0)
	for _, e := range s.data {
		if inRange(e, frameID, start, end) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].OccurredAt.Equal(result[j].OccurredAt) {
			return result[i].OccurredAt.Before(result[j].OccurredAt)
		}
		return result[i].EventID < result[j].EventID
	})

	return result, nil
}

// CountByCustomID counts events of a frame within [start, end) per custom id.
func (s *InteractionEventStore) CountByCustomID(_ context.Context, frameID string, start, end time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, e := range s.data {
		if inRange(e, frameID, start, end) {
			counts[e.CustomID]++
		}
	}
	return counts, nil
}

func inRange(e *domain.InteractionEvent, frameID string, start, end time.Time) bool {
	return e.FrameID == frameID && !e.OccurredAt.Before(start) && e.OccurredAt.Before(end)
}
