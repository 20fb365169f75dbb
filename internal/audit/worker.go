package audit

import (
	"context"
	"log/slog"
)

// Worker consumes audit events from the publisher's inbox and persists
// them. A failing append is logged and the event is lost; the audit trail
// is best effort and must not stall the matching flow.
type Worker struct {
	sink   Appender
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Appender, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "append audit event",
					"action", event.Action,
					"help_request_id", event.HelpRequestID,
					"error", err,
				)
			}
		}
	}
}
