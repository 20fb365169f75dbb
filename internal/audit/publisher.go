package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands events to a background worker over a bounded inbox. Emit
// never blocks the matching flow: when the inbox is full the event is
// dropped and logged.
type Publisher struct {
	inbox  chan<- Event
	logger *slog.Logger
	now    func() time.Time
}

// PublisherOption configures the Publisher.
type PublisherOption func(*Publisher)

// WithLogger sets the logger used for dropped events.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithNow overrides the timestamp source for tests.
func WithNow(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(inbox chan<- Event, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		inbox:  inbox,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit queues an event for persistence. A zero timestamp is stamped now.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
			"help_request_id", event.HelpRequestID,
		)
	}
}
