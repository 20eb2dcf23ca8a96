package achievement

import (
	"log/slog"
	"time"

	id "kitclaim/pkg/domain"
)

// Publisher buffers claim events on a bounded channel. NotifyKitClaimed never
// blocks: when the buffer is full the event is dropped and counted, because
// the claim that triggered it has already committed.
type Publisher struct {
	events chan Event
	logger *slog.Logger
	now    func() time.Time
}

const defaultBuffer = 256

type PublisherOption func(*Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

// WithBuffer overrides the channel capacity.
func WithBuffer(size int) PublisherOption {
	return func(p *Publisher) { p.events = make(chan Event, size) }
}

// WithPublisherClock overrides the time source for tests.
func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{
		events: make(chan Event, defaultBuffer),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NotifyKitClaimed enqueues a kit_claimed event without blocking.
func (p *Publisher) NotifyKitClaimed(userID id.UserID, productID id.ProductID, productName string) {
	event := Event{
		Type:        EventKitClaimed,
		UserID:      userID.String(),
		ProductID:   productID.String(),
		ProductName: productName,
		OccurredAt:  p.now().UTC(),
	}

	select {
	case p.events <- event:
	default:
		p.logger.Warn("achievement event dropped, buffer full",
			"user_id", event.UserID,
			"product_id", event.ProductID,
		)
	}
}

// Events exposes the inbox for the worker.
func (p *Publisher) Events() <-chan Event {
	return p.events
}
