package achievement

import (
	"context"
	"log/slog"
)

// Worker drains the publisher's inbox into a sink. A failed delivery is
// logged and the event discarded; the worker never stops on sink errors, only
// on context cancellation.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Deliver(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "achievement delivery failed",
					"error", err,
					"type", event.Type,
					"user_id", event.UserID,
				)
			}
		}
	}
}
