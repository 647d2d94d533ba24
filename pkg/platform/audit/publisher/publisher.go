// Package publisher fronts an audit store. In synchronous mode Emit returns the
// store's error; with an async buffer events are queued and a background worker
// persists them, dropping events when the buffer is full.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit when the async buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

type Publisher struct {
	store   audit.Store
	logger  *slog.Logger
	metrics *Metrics
	clock   func() time.Time

	bufferSize int
	queue      chan audit.Event
	done       chan struct{}
	closeOnce  sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events and persists them in the background.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithClock sets the clock used to stamp events that arrive without a timestamp.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.queue = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(p.store, p.queue, p.logger)
		go func() {
			defer close(p.done)
			_, failed := w.Run(context.Background())
			if p.metrics != nil && failed > 0 {
				p.metrics.PersistFailures.Add(float64(failed))
			}
		}()
	}
	return p
}

// Emit stamps and categorises the event, then persists or queues it.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock()
	}
	event.Category = event.Action.Category()

	if p.queue == nil {
		if err := p.store.Append(ctx, event); err != nil {
			if p.metrics != nil {
				p.metrics.PersistFailures.Inc()
			}
			return err
		}
		p.observeEmitted(event)
		return nil
	}

	select {
	case p.queue <- event:
		p.observeEmitted(event)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		if p.metrics != nil {
			p.metrics.Dropped.Inc()
		}
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"action", event.Action,
			"registration_id", event.RegistrationID,
		)
		return ErrBufferFull
	}
}

func (p *Publisher) observeEmitted(event audit.Event) {
	if p.metrics != nil {
		p.metrics.Emitted.WithLabelValues(string(event.Category)).Inc()
	}
}

// Close drains queued events. Emit must not be called after Close.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		if p.queue != nil {
			close(p.queue)
			<-p.done
		}
	})
	return nil
}
