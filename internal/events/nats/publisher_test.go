package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomhost/internal/events"
)

type recordingConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (c *recordingConn) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.subjects = append(c.subjects, subject)
	c.payloads = append(c.payloads, data)
	return nil
}

func TestPublishUsesNamespacedSubject(t *testing.T) {
	conn := &recordingConn{}
	publisher := NewPublisher(conn, "qh")

	err := publisher.Publish(context.Background(), events.Event{
		Type:     events.RoomHostChanged,
		RoomGUID: "room-1",
		UserID:   5,
		Username: "carol",
	})
	require.NoError(t, err)

	require.Len(t, conn.subjects, 1)
	assert.Equal(t, "qh.room.host-changed", conn.subjects[0])

	var decoded events.Event
	require.NoError(t, json.Unmarshal(conn.payloads[0], &decoded))
	assert.EqualValues(t, 5, decoded.UserID)
}

func TestPublishReturnsConnError(t *testing.T) {
	conn := &recordingConn{err: errors.New("disconnected")}
	publisher := NewPublisher(conn, "")

	err := publisher.Publish(context.Background(), events.Event{Type: events.RoomCreated})
	assert.EqualError(t, err, "disconnected")
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	conn := &recordingConn{}
	publisher := NewPublisher(conn, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := publisher.Publish(ctx, events.Event{Type: events.RoomCreated})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, conn.subjects)
}
