package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hat-store/internal/domain"
	"hat-store/internal/storage/memory"
)

type captureSink struct {
	mu     sync.Mutex
	events []*domain.InteractionEvent
	err    error
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Write(_ context.Context, e *domain.InteractionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *captureSink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type blockingSink struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Write(ctx context.Context, _ *domain.InteractionEvent) error {
	s.once.Do(func() { close(s.started) })
	<-s.release
	return nil
}

func TestRecorder_DeliversToAllSinks(t *testing.T) {
	store := memory.NewInteractionEventStore()
	capture := &captureSink{}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	r := NewRecorder(RecorderOptions{
		Sinks: []Sink{NewStoreSink(store), capture},
		Now:   func() time.Time { return fixed },
	})

	ok := r.Record(domain.InteractionEvent{CustomID: "ad", Route: "/ad", Branch: domain.BranchAd, SocialID: 9})
	require.True(t, ok)
	require.NoError(t, r.Close(context.Background()))

	require.Equal(t, 1, capture.len())
	e := capture.events[0]
	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, FrameID, e.FrameID)
	assert.True(t, e.OccurredAt.Equal(fixed))

	stored, err := store.GetByTimeRange(context.Background(), FrameID, fixed, fixed.Add(time.Second))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, e.EventID, stored[0].EventID)
}

func TestRecorder_SinkErrorDoesNotStopDelivery(t *testing.T) {
	failing := &captureSink{err: errors.New("down")}
	ok := &captureSink{}

	r := NewRecorder(RecorderOptions{Sinks: []Sink{failing, ok}})
	r.Record(domain.InteractionEvent{CustomID: "home"})
	r.Record(domain.InteractionEvent{CustomID: "buy"})
	require.NoError(t, r.Close(context.Background()))

	assert.Equal(t, 2, failing.len())
	assert.Equal(t, 2, ok.len())
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRecorder(RecorderOptions{Sinks: []Sink{sink}, BufferSize: 1})

	require.True(t, r.Record(domain.InteractionEvent{CustomID: "first"}))
	<-sink.started

	// Worker is busy; one slot in the buffer.
	assert.True(t, r.Record(domain.InteractionEvent{CustomID: "second"}))

	done := make(chan bool)
	go func() { done <- r.Record(domain.InteractionEvent{CustomID: "third"}) }()
	select {
	case accepted := <-done:
		assert.False(t, accepted)
	case <-time.After(time.Second):
		t.Fatal("Record blocked on a full buffer")
	}

	close(sink.release)
	require.NoError(t, r.Close(context.Background()))
}

func TestRecorder_RecordAfterClose(t *testing.T) {
	r := NewRecorder(RecorderOptions{})
	require.NoError(t, r.Close(context.Background()))
	require.NoError(t, r.Close(context.Background()))

	assert.False(t, r.Record(domain.InteractionEvent{CustomID: "late"}))
}

func TestRecorder_CloseHonoursContext(t *testing.T) {
	sink := &blockingSink{started: make(chan struct{}), release: make(chan struct{})}
	r := NewRecorder(RecorderOptions{Sinks: []Sink{sink}})
	r.Record(domain.InteractionEvent{CustomID: "stuck"})
	<-sink.started

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Close(ctx), context.DeadlineExceeded)

	close(sink.release)
}

func TestStoreSink_DuplicateIsDelivered(t *testing.T) {
	store := memory.NewInteractionEventStore()
	sink := NewStoreSink(store)
	e := &domain.InteractionEvent{EventID: "e1", FrameID: FrameID, OccurredAt: time.Now()}

	require.NoError(t, sink.Write(context.Background(), e))
	assert.NoError(t, sink.Write(context.Background(), e))
}
