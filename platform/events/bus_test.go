package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"outreach_backend/platform/logger"
)

type testEvent struct {
	BaseEvent
}

func (testEvent) EventName() string { return "test.event" }

func TestPublishSyncRunsAllHandlersAndJoinsErrors(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	calls := 0
	boom := errors.New("boom")

	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		calls++
		return boom
	}))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		calls++
		return nil
	}))

	err := bus.PublishSync(context.Background(), testEvent{BaseEvent: NewBaseEvent()})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error to contain boom, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected both handlers to run, got %d calls", calls)
	}
}

func TestPublishSyncRecoversPanics(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		panic("handler exploded")
	}))

	if err := bus.PublishSync(context.Background(), testEvent{}); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
}

func TestPublishIsAsync(t *testing.T) {
	bus := NewInMemoryBus(logger.New("development"))
	done := make(chan struct{})
	bus.Subscribe("test.event", HandlerFunc(func(context.Context, Event) error {
		close(done)
		return nil
	}))

	bus.Publish(context.Background(), testEvent{})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected async handler to run")
	}
}
