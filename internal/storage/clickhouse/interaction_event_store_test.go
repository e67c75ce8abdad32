package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hat-store/internal/domain"
	"hat-store/internal/storage"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newEvent(id, customID string, at time.Time) *domain.InteractionEvent {
	return &domain.InteractionEvent{
		EventID:     id,
		FrameID:     "hats-store",
		CustomID:    customID,
		Route:       "/" + customID,
		Branch:      domain.BranchSoldOut,
		SocialID:    7,
		ButtonIndex: 2,
		OccurredAt:  at,
	}
}

func TestInteractionEventStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewInteractionEventStore(conn)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newEvent("ch-2", "soldOut", t0.Add(time.Second))))
	require.NoError(t, store.Insert(ctx, newEvent("ch-1", "soldOut", t0)))
	require.NoError(t, store.Insert(ctx, newEvent("ch-3", "purchased", t0.Add(2*time.Second))))

	t.Run("GetByTimeRange", func(t *testing.T) {
		result, err := store.GetByTimeRange(ctx, "hats-store", t0, t0.Add(2*time.Second))
		require.NoError(t, err)
		require.Len(t, result, 2)
		assert.Equal(t, "ch-1", result[0].EventID)
		assert.Equal(t, domain.BranchSoldOut, result[0].Branch)
		assert.Equal(t, 2, result[0].ButtonIndex)
	})

	t.Run("DuplicateEventID", func(t *testing.T) {
		err := store.Insert(ctx, newEvent("ch-1", "soldOut", t0))
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("CountByCustomID", func(t *testing.T) {
		counts, err := store.CountByCustomID(ctx, "hats-store", t0, t0.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, map[string]int64{"soldOut": 2, "purchased": 1}, counts)
	})
}
