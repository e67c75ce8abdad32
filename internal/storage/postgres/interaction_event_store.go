package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"hat-store/internal/domain"
	"hat-store/internal/observability"
	"hat-store/internal/storage"
)

// InteractionEventStore implements storage.InteractionEventStore using PostgreSQL.
type InteractionEventStore struct {
	pool *Pool
}

// NewInteractionEventStore creates a new InteractionEventStore.
func NewInteractionEventStore(pool *Pool) *InteractionEventStore {
	return &InteractionEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.InteractionEventStore = (*InteractionEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *InteractionEventStore) Insert(ctx context.Context, e *domain.InteractionEvent) (err error) {
	if err := storage.ValidateEvent(e); err != nil {
		return err
	}
	defer observeQuery("insert", time.Now(), &err)

	query := `
		INSERT INTO interaction_events (
			event_id, frame_id, custom_id, route, branch, social_id, button_index, occurred_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		e.EventID,
		e.FrameID,
		e.CustomID,
		e.Route,
		string(e.Branch),
		int64(e.SocialID),
		e.ButtonIndex,
		e.OccurredAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert interaction event: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves events of a frame within [start, end).
func (s *InteractionEventStore) GetByTimeRange(ctx context.Context, frameID string, start, end time.Time) (_ []*domain.InteractionEvent, err error) {
	defer observeQuery("get_by_time_range", time.Now(), &err)

	query := `
		SELECT event_id, frame_id, custom_id, route, branch, social_id, button_index, occurred_at
		FROM interaction_events
		WHERE frame_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at ASC, event_id ASC
	`

	rows, err := s.pool.Query(ctx, query, frameID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("get interaction events by time range: %w", err)
	}
	defer rows.Close()

	return scanInteractionEvents(rows)
}

// CountByCustomID counts events of a frame within [start, end) per custom id.
func (s *InteractionEventStore) CountByCustomID(ctx context.Context, frameID string, start, end time.Time) (_ map[string]int64, err error) {
	defer observeQuery("count_by_custom_id", time.Now(), &err)

	query := `
		SELECT custom_id, COUNT(*)
		FROM interaction_events
		WHERE frame_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY custom_id
	`

	rows, err := s.pool.Query(ctx, query, frameID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("count interaction events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var customID string
		var n int64
		if err := rows.Scan(&customID, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[customID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return counts, nil
}

func scanInteractionEvents(rows pgx.Rows) ([]*domain.InteractionEvent, error) {
	result := make([]*domain.InteractionEvent, 0)
	for rows.Next() {
		var e domain.InteractionEvent
		var branch string
		var socialID int64
		if err := rows.Scan(
			&e.EventID,
			&e.FrameID,
			&e.CustomID,
			&e.Route,
			&branch,
			&socialID,
			&e.ButtonIndex,
			&e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan interaction event: %w", err)
		}
		e.Branch = domain.Branch(branch)
		e.SocialID = uint64(socialID)
		e.OccurredAt = e.OccurredAt.UTC()
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction events: %w", err)
	}
	return result, nil
}

func observeQuery(op string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", op, time.Since(start).Seconds(), *err)
}
