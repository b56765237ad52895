package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/flagkit/pkg/event"
	"github.com/dmitrymomot/flagkit/pkg/logger"
)

// Batcher buffers events and forwards them to a downstream dispatcher,
// merging the visitors of compatible events into one batch. A batch is
// flushed when it reaches BatchSize visitors, when FlushInterval elapses
// and on Close.
type Batcher struct {
	next    Dispatcher
	cfg     BatchConfig
	log     *slog.Logger
	onError func(error)

	mu     sync.RWMutex
	closed bool
	queue  chan event.LogEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

// BatchOption configures a Batcher.
type BatchOption func(*Batcher)

// WithBatchLogger sets the logger for flush failures.
func WithBatchLogger(l *slog.Logger) BatchOption {
	return func(b *Batcher) {
		if l != nil {
			b.log = l
		}
	}
}

// WithFlushErrorHandler receives downstream errors of background flushes.
func WithFlushErrorHandler(fn func(error)) BatchOption {
	return func(b *Batcher) {
		b.onError = fn
	}
}

// NewBatcher starts the background flusher. Zero config values take
// defaults. Call Close to flush pending events.
func NewBatcher(next Dispatcher, cfg BatchConfig, opts ...BatchOption) *Batcher {
	if next == nil {
		panic("dispatch: downstream dispatcher cannot be nil")
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 30 * time.Second
	}
	if cfg.FlushTimeout <= 0 {
		cfg.FlushTimeout = 10 * time.Second
	}

	b := &Batcher{
		next:  next,
		cfg:   cfg,
		log:   logger.Discard(),
		queue: make(chan event.LogEvent, cfg.BufferSize),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.wg.Add(1)
	go b.worker()
	return b
}

// DispatchEvent queues e. Events whose payload cannot be encoded fail with
// ErrInvalidEvent and never join a batch. When the buffer is full the event
// is delivered synchronously so nothing is dropped.
func (b *Batcher) DispatchEvent(ctx context.Context, e event.LogEvent) error {
	if _, err := json.Marshal(e.Payload); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	select {
	case b.queue <- e:
		b.mu.RUnlock()
		return nil
	default:
	}
	b.mu.RUnlock()

	b.log.WarnContext(ctx, "event buffer full, dispatching synchronously")
	return b.next.DispatchEvent(ctx, e)
}

func (b *Batcher) worker() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.FlushInterval)
	defer ticker.Stop()

	var pending *event.LogEvent
	visitors := 0

	flush := func() {
		if pending == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), b.cfg.FlushTimeout)
		defer cancel()

		if err := b.next.DispatchEvent(ctx, *pending); err != nil {
			b.log.Error("event batch flush failed", logger.Count(visitors), logger.Error(err))
			if b.onError != nil {
				b.onError(err)
			}
		}
		pending, visitors = nil, 0
	}

	add := func(e event.LogEvent) {
		if pending != nil && !mergeable(*pending, e) {
			flush()
		}
		if pending == nil {
			e.Payload.Visitors = slices.Clone(e.Payload.Visitors)
			pending = &e
		} else {
			pending.Payload.Visitors = append(pending.Payload.Visitors, e.Payload.Visitors...)
		}
		visitors = len(pending.Payload.Visitors)
		if visitors >= b.cfg.BatchSize {
			flush()
		}
	}

	for {
		select {
		case e := <-b.queue:
			add(e)
		case <-ticker.C:
			flush()
		case <-b.done:
			for {
				select {
				case e := <-b.queue:
					add(e)
				default:
					flush()
					return
				}
			}
		}
	}
}

func mergeable(a, b event.LogEvent) bool {
	return a.EndpointURL == b.EndpointURL &&
		a.HTTPVerb == b.HTTPVerb &&
		a.Payload.CanMerge(b.Payload)
}

// Close stops accepting events and flushes what is pending. The context
// bounds the wait; pending events may be lost when it expires.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
	b.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
