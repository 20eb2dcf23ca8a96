package achievement

import (
	"context"
	"log/slog"
)

// Sink delivers events to wherever achievement evaluation happens. Delivery
// errors are reported to the worker, which logs and moves on.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// LogSink writes events to the structured log. It is the fallback sink when
// no broker is configured, and useful in development.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Deliver(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "achievement event",
		"type", event.Type,
		"user_id", event.UserID,
		"product_id", event.ProductID,
		"product_name", event.ProductName,
	)
	return nil
}
