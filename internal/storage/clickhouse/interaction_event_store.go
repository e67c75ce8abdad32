package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"hat-store/internal/domain"
	"hat-store/internal/observability"
	"hat-store/internal/storage"
)

// InteractionEventStore implements storage.InteractionEventStore using ClickHouse.
// MergeTree does not enforce uniqueness, so Insert checks event_id first.
type InteractionEventStore struct {
	conn *Conn
}

// NewInteractionEventStore creates a new InteractionEventStore.
func NewInteractionEventStore(conn *Conn) *InteractionEventStore {
	return &InteractionEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.InteractionEventStore = (*InteractionEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if event_id exists.
func (s *InteractionEventStore) Insert(ctx context.Context, e *domain.InteractionEvent) (err error) {
	if err := storage.ValidateEvent(e); err != nil {
		return err
	}
	defer observeQuery("insert", time.Now(), &err)

	exists, err := s.exists(ctx, e.EventID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO interaction_events (
			event_id, frame_id, custom_id, route, branch, social_id, button_index, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.EventID, e.FrameID, e.CustomID, e.Route, string(e.Branch),
		e.SocialID, uint8(e.ButtonIndex), e.OccurredAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves events of a frame within [start, end).
func (s *InteractionEventStore) GetByTimeRange(ctx context.Context, frameID string, start, end time.Time) (_ []*domain.InteractionEvent, err error) {
	defer observeQuery("get_by_time_range", time.Now(), &err)

	query := `
		SELECT event_id, frame_id, custom_id, route, branch, social_id, button_index, occurred_at
		FROM interaction_events
		WHERE frame_id = ? AND occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, event_id ASC
	`

	rows, err := s.conn.Query(ctx, query, frameID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanInteractionEvents(rows)
}

// CountByCustomID counts events of a frame within [start, end) per custom id.
func (s *InteractionEventStore) CountByCustomID(ctx context.Context, frameID string, start, end time.Time) (_ map[string]int64, err error) {
	defer observeQuery("count_by_custom_id", time.Now(), &err)

	query := `
		SELECT custom_id, count() AS n
		FROM interaction_events
		WHERE frame_id = ? AND occurred_at >= ? AND occurred_at < ?
		GROUP BY custom_id
	`

	rows, err := s.conn.Query(ctx, query, frameID, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("count by custom id: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var customID string
		var n uint64
		if err := rows.Scan(&customID, &n); err != nil {
			return nil, fmt.Errorf("scan count row: %w", err)
		}
		counts[customID] = int64(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate count rows: %w", err)
	}
	return counts, nil
}

// exists checks if an event with the given id exists.
func (s *InteractionEventStore) exists(ctx context.Context, eventID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count() FROM interaction_events WHERE event_id = ?`, eventID,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanInteractionEvents(rows driver.Rows) ([]*domain.InteractionEvent, error) {
	result := make([]*domain.InteractionEvent, 0)
	for rows.Next() {
		var e domain.InteractionEvent
		var branch string
		var buttonIndex uint8
		if err := rows.Scan(
			&e.EventID, &e.FrameID, &e.CustomID, &e.Route, &branch,
			&e.SocialID, &buttonIndex, &e.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan interaction event: %w", err)
		}
		e.Branch = domain.Branch(branch)
		e.ButtonIndex = int(buttonIndex)
		e.OccurredAt = e.OccurredAt.UTC()
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate interaction events: %w", err)
	}
	return result, nil
}

func observeQuery(op string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), *err)
}
