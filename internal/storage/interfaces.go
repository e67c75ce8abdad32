package storage

import (
	"context"
	"time"

	"hat-store/internal/domain"
)

// InteractionEventStore provides access to interaction_events storage.
// Events are append-only; time ranges are [start, end).
type InteractionEventStore interface {
	// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
	Insert(ctx context.Context, e *domain.InteractionEvent) error

	// GetByTimeRange retrieves events of a frame within [start, end),
	// ordered by occurred_at ASC, event_id ASC.
	GetByTimeRange(ctx context.Context, frameID string, start, end time.Time) ([]*domain.InteractionEvent, error)

	// CountByCustomID counts events of a frame within [start, end) per custom id.
	CountByCustomID(ctx context.Context, frameID string, start, end time.Time) (map[string]int64, error)
}

// ValidateEvent checks the fields every store requires.
func ValidateEvent(e *domain.InteractionEvent) error {
	if e == nil || e.EventID == "" || e.FrameID == "" || e.OccurredAt.IsZero() {
		return ErrInvalidInput
	}
	return nil
}
