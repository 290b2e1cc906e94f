package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SubjectSnapshotReplaced is the NATS subject snapshot notifications are sent on
const SubjectSnapshotReplaced = "megamillions.snapshot.replaced"

// messageConn is the subset of *nats.Conn the publisher needs
type messageConn interface {
	Publish(subject string, data []byte) error
	FlushTimeout(timeout time.Duration) error
	Close()
}

// NATSPublisher forwards events to NATS subjects as JSON
type NATSPublisher struct {
	conn         messageConn
	flushTimeout time.Duration
}

// NewNATSPublisher connects to the given comma separated NATS servers
func NewNATSPublisher(servers string) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("megamillions"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(servers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.WithField("servers", servers).Info("Connected to NATS")
	return newNATSPublisher(nc), nil
}

func newNATSPublisher(conn messageConn) *NATSPublisher {
	return &NATSPublisher{conn: conn, flushTimeout: 5 * time.Second}
}

// Subject maps an event to the NATS subject it is published on
func Subject(event Event) string {
	switch event.Type() {
	case EventTypeSnapshotReplaced:
		return SubjectSnapshotReplaced
	default:
		return fmt.Sprintf("megamillions.unknown.%s", event.Type())
	}
}

// Publish serializes the event and publishes it, waiting for the server to
// acknowledge the flush
func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event payload: %w", err)
	}

	subject := Subject(event)
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}
	if err := p.conn.FlushTimeout(p.flushTimeout); err != nil {
		return fmt.Errorf("failed to flush NATS connection: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"subject":   subject,
	}).Debug("Published event to NATS")
	return nil
}

// Handler adapts the publisher into a Bus handler. Failures are logged.
func (p *NATSPublisher) Handler() Handler {
	return func(ctx context.Context, event Event) {
		if err := p.Publish(ctx, event); err != nil {
			log.WithError(err).WithField("eventType", event.Type()).Error("Failed to forward event to NATS")
		}
	}
}

// Close closes the NATS connection
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
