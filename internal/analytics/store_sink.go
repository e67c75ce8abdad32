package analytics

import (
	"context"
	"errors"

	"hat-store/internal/domain"
	"hat-store/internal/storage"
)

// StoreSink writes events to an InteractionEventStore.
type StoreSink struct {
	store storage.InteractionEventStore
}

// NewStoreSink creates a sink backed by store.
func NewStoreSink(store storage.InteractionEventStore) *StoreSink {
	return &StoreSink{store: store}
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "store" }

// Write inserts e. A duplicate event id is treated as already delivered.
func (s *StoreSink) Write(ctx context.Context, e *domain.InteractionEvent) error {
	err := s.store.Insert(ctx, e)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}
