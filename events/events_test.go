package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent() SnapshotReplacedEvent {
	return SnapshotReplacedEvent{
		RunID:      uuid.MustParse("6f1c2d8e-1a2b-4c3d-9e8f-001122334455"),
		Table:      "test_table",
		Rows:       945,
		Columns:    41,
		ReplacedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	var received []SnapshotReplacedEvent
	for i := 0; i < 2; i++ {
		bus.Subscribe(EventTypeSnapshotReplaced, func(ctx context.Context, event Event) {
			mu.Lock()
			defer mu.Unlock()
			if e, ok := event.(SnapshotReplacedEvent); ok {
				received = append(received, e)
			}
		})
	}

	require.NoError(t, bus.Publish(context.Background(), testEvent()))
	bus.Wait()

	assert.Len(t, received, 2)
	assert.Equal(t, testEvent(), received[0])
}

func TestBusHandlerPanicIsContained(t *testing.T) {
	bus := NewBus()

	delivered := make(chan struct{}, 1)
	bus.Subscribe(EventTypeSnapshotReplaced, func(ctx context.Context, event Event) {
		panic("boom")
	})
	bus.Subscribe(EventTypeSnapshotReplaced, func(ctx context.Context, event Event) {
		delivered <- struct{}{}
	})

	require.NoError(t, bus.Publish(context.Background(), testEvent()))
	bus.Wait()

	select {
	case <-delivered:
	default:
		t.Fatal("second handler was not called")
	}
}

func TestBusHandlersOutliveCancelledContext(t *testing.T) {
	bus := NewBus()

	errs := make(chan error, 1)
	bus.Subscribe(EventTypeSnapshotReplaced, func(ctx context.Context, event Event) {
		errs <- ctx.Err()
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Publish(ctx, testEvent()))
	cancel()
	bus.Wait()

	assert.NoError(t, <-errs)
}

func TestBusWithoutSubscribers(t *testing.T) {
	bus := NewBus()
	assert.NoError(t, bus.Publish(context.Background(), testEvent()))
	bus.Wait()
}
