package achievement_test

//go:generate mockgen -source=sink.go -destination=mocks/mocks.go -package=mocks Sink

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"kitclaim/internal/achievement"
	"kitclaim/internal/achievement/mocks"
)

func TestWorkerDeliversEvents(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)

	inbox := make(chan achievement.Event, 2)
	event := achievement.Event{Type: achievement.EventKitClaimed, UserID: "u1", ProductID: "p1"}
	inbox <- event

	delivered := make(chan struct{})
	sink.EXPECT().Deliver(gomock.Any(), event).DoAndReturn(
		func(context.Context, achievement.Event) error {
			close(delivered)
			return nil
		})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := achievement.NewWorker(sink, inbox, slog.Default())
	go func() { _ = worker.Run(ctx) }()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestWorkerSurvivesSinkErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)

	inbox := make(chan achievement.Event, 2)
	first := achievement.Event{Type: achievement.EventKitClaimed, UserID: "u1"}
	second := achievement.Event{Type: achievement.EventKitClaimed, UserID: "u2"}
	inbox <- first
	inbox <- second

	delivered := make(chan struct{})
	gomock.InOrder(
		sink.EXPECT().Deliver(gomock.Any(), first).Return(errors.New("broker down")),
		sink.EXPECT().Deliver(gomock.Any(), second).DoAndReturn(
			func(context.Context, achievement.Event) error {
				close(delivered)
				return nil
			}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker := achievement.NewWorker(sink, inbox, slog.Default())
	go func() { _ = worker.Run(ctx) }()

	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("worker stopped after a sink error")
	}
}

func TestWorkerStopsOnCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockSink(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	worker := achievement.NewWorker(sink, make(chan achievement.Event), slog.Default())

	errCh := make(chan error, 1)
	go func() { errCh <- worker.Run(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancellation")
	}
}
