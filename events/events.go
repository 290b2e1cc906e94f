package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeSnapshotReplaced EventType = "snapshot_replaced"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// Publisher accepts events raised by the services
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// SnapshotReplacedEvent is raised after a results table has been fully overwritten
type SnapshotReplacedEvent struct {
	RunID      uuid.UUID `json:"run_id"`
	Table      string    `json:"table"`
	Rows       int       `json:"rows"`
	Columns    int       `json:"columns"`
	ReplacedAt time.Time `json:"replaced_at"`
}

func (e SnapshotReplacedEvent) Type() EventType {
	return EventTypeSnapshotReplaced
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	inflight sync.WaitGroup
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Publish dispatches an event to every handler subscribed to its type.
// Handlers run asynchronously; use Wait to block until they finish.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Handlers outlive the publishing request
	handlerCtx := context.WithoutCancel(ctx)

	for i, handler := range handlers {
		b.inflight.Add(1)
		go func(h Handler, handlerIndex int) {
			defer b.inflight.Done()
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(handlerCtx, event)
		}(handler, i)
	}
	return nil
}

// Wait blocks until all dispatched handlers have returned
func (b *Bus) Wait() {
	b.inflight.Wait()
}
