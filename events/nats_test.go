package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	messages   []published
	publishErr error
	flushErr   error
	closed     bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.messages = append(c.messages, published{subject: subject, data: data})
	return nil
}

func (c *fakeConn) FlushTimeout(time.Duration) error {
	return c.flushErr
}

func (c *fakeConn) Close() {
	c.closed = true
}

type unknownEvent struct{}

func (unknownEvent) Type() EventType { return "mystery" }

func TestNATSPublisherPublish(t *testing.T) {
	conn := &fakeConn{}
	publisher := newNATSPublisher(conn)

	require.NoError(t, publisher.Publish(context.Background(), testEvent()))
	require.Len(t, conn.messages, 1)

	assert.Equal(t, SubjectSnapshotReplaced, conn.messages[0].subject)
	assert.JSONEq(t, `{
		"run_id": "6f1c2d8e-1a2b-4c3d-9e8f-001122334455",
		"table": "test_table",
		"rows": 945,
		"columns": 41,
		"replaced_at": "2024-03-01T12:00:00Z"
	}`, string(conn.messages[0].data))
}

func TestNATSPublisherErrors(t *testing.T) {
	t.Run("publish failure", func(t *testing.T) {
		publisher := newNATSPublisher(&fakeConn{publishErr: errors.New("connection closed")})
		assert.ErrorContains(t, publisher.Publish(context.Background(), testEvent()), "failed to publish")
	})

	t.Run("flush failure", func(t *testing.T) {
		publisher := newNATSPublisher(&fakeConn{flushErr: errors.New("timeout")})
		assert.ErrorContains(t, publisher.Publish(context.Background(), testEvent()), "failed to flush")
	})

	t.Run("cancelled context", func(t *testing.T) {
		conn := &fakeConn{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, newNATSPublisher(conn).Publish(ctx, testEvent()), context.Canceled)
		assert.Empty(t, conn.messages)
	})
}

func TestNATSPublisherAsBusHandler(t *testing.T) {
	conn := &fakeConn{}
	publisher := newNATSPublisher(conn)

	bus := NewBus()
	bus.Subscribe(EventTypeSnapshotReplaced, publisher.Handler())
	require.NoError(t, bus.Publish(context.Background(), testEvent()))
	bus.Wait()

	require.Len(t, conn.messages, 1)
	assert.Equal(t, SubjectSnapshotReplaced, conn.messages[0].subject)

	publisher.Close()
	assert.True(t, conn.closed)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, SubjectSnapshotReplaced, Subject(testEvent()))
	assert.Equal(t, "megamillions.unknown.mystery", Subject(unknownEvent{}))
}
