package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	dErrors "salesgate/pkg/domain-errors"
	audit "salesgate/pkg/platform/audit"
	"salesgate/pkg/requestcontext"
)

const defaultAppendTimeout = 5 * time.Second

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store         audit.Store
	events        chan audit.Event
	wg            sync.WaitGroup
	logger        *slog.Logger
	async         bool
	appendTimeout time.Duration
	closeOnce     sync.Once
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables async processing with the specified buffer size.
// Events are queued and persisted in a background goroutine.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.events = make(chan audit.Event, size)
			p.async = true
		}
	}
}

// WithPublisherLogger sets a logger for async error reporting.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithAppendTimeout bounds each background Append call.
func WithAppendTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) {
		if d > 0 {
			p.appendTimeout = d
		}
	}
}

func NewPublisher(store audit.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, appendTimeout: defaultAppendTimeout}
	for _, opt := range opts {
		opt(p)
	}
	if p.async {
		p.wg.Add(1)
		go p.processEvents()
	}
	return p
}

// processEvents runs in a goroutine and persists events from the channel.
func (p *Publisher) processEvents() {
	defer p.wg.Done()
	for event := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.appendTimeout)
		err := p.store.Append(ctx, event)
		cancel()
		if err != nil && p.logger != nil {
			p.logger.Error("failed to persist audit event",
				"error", err,
				"action", event.Action,
				"user_id", event.UserID.String(),
			)
		}
	}
}

// Close shuts down the async publisher and waits for pending events to drain.
func (p *Publisher) Close() {
	if !p.async {
		return
	}
	p.closeOnce.Do(func() {
		close(p.events)
		p.wg.Wait()
	})
}

// Emit records an event. Timestamp defaults to the request time.
// In async mode a full buffer drops the event and returns an error.
func (p *Publisher) Emit(ctx context.Context, base audit.Event) error {
	if base.Timestamp.IsZero() {
		base.Timestamp = requestcontext.Now(ctx)
	}
	if p.async {
		// Non-blocking send with context cancellation support
		select {
		case p.events <- base:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			if p.logger != nil {
				p.logger.Warn("audit buffer full, event dropped",
					"action", base.Action,
					"user_id", base.UserID.String(),
				)
			}
			return dErrors.New(dErrors.CodeUnavailable, "audit buffer full")
		}
	}
	return p.store.Append(ctx, base)
}
