// Package analytics records frame interactions without blocking requests.
//
// Events are queued on a bounded buffer and written to every sink by a
// single background worker. A full buffer drops the event and counts it;
// sink errors are logged and counted, never returned to the caller.
package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"hat-store/internal/domain"
	"hat-store/internal/observability"
)

// FrameID identifies this storefront in analytics.
const FrameID = "hats-store"

// Default recorder settings.
const (
	DefaultBufferSize   = 1024
	DefaultWriteTimeout = 5 * time.Second
)

// Sink receives recorded events.
type Sink interface {
	Name() string
	Write(ctx context.Context, e *domain.InteractionEvent) error
}

// Recorder queues interaction events for asynchronous delivery.
type Recorder struct {
	sinks        []Sink
	writeTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan *domain.InteractionEvent
	done   chan struct{}
}

// RecorderOptions contains configuration for creating a Recorder.
type RecorderOptions struct {
	Sinks        []Sink
	BufferSize   int           // Default: 1024
	WriteTimeout time.Duration // Default: 5s per sink write
	Logger       *zap.Logger
	Now          func() time.Time // Default: time.Now
}

// NewRecorder creates a recorder and starts its worker.
func NewRecorder(opts RecorderOptions) *Recorder {
	bufferSize := opts.BufferSize
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	writeTimeout := opts.WriteTimeout
	if writeTimeout == 0 {
		writeTimeout = DefaultWriteTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := &Recorder{
		sinks:        opts.Sinks,
		writeTimeout: writeTimeout,
		logger:       logger,
		now:          now,
		events:       make(chan *domain.InteractionEvent, bufferSize),
		done:         make(chan struct{}),
	}
	go r.run()
	return r
}

// Record queues e and reports whether it was accepted. It never blocks.
// A missing EventID or OccurredAt is filled in.
func (r *Recorder) Record(e domain.InteractionEvent) bool {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.FrameID == "" {
		e.FrameID = FrameID
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}
	e.OccurredAt = e.OccurredAt.UTC()

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		observability.RecordAnalyticsDropped()
		return false
	}

	select {
	case r.events <- &e:
		return true
	default:
		observability.RecordAnalyticsDropped()
		r.logger.Debug("analytics buffer full, event dropped",
			zap.String("custom_id", e.CustomID),
		)
		return false
	}
}

// Close stops accepting events and waits for queued events to drain,
// or for ctx to end.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Recorder) run() {
	defer close(r.done)
	for e := range r.events {
		r.deliver(e)
	}
}

func (r *Recorder) deliver(e *domain.InteractionEvent) {
	for _, sink := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), r.writeTimeout)
		err := sink.Write(ctx, e)
		cancel()

		observability.RecordAnalyticsDelivery(sink.Name(), err)
		if err != nil {
			r.logger.Warn("analytics sink write failed",
				zap.String("sink", sink.Name()),
				zap.String("event_id", e.EventID),
				zap.Error(err),
			)
		}
	}
}
