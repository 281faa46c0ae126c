package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomhost/internal/testutil"
)

func TestSubjectJoinsNamespaceAndType(t *testing.T) {
	event := Event{Type: RoomUserJoined}
	assert.Equal(t, "roomhost.room.user-joined", event.Subject(DefaultNamespace))
}

func TestEncode(t *testing.T) {
	event := Event{
		Type:     RoomCreated,
		RoomGUID: "abc",
		UserID:   3,
		Username: "alice",
		At:       time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := event.Encode()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "room.created", decoded["type"])
	assert.Equal(t, "abc", decoded["room_guid"])
	assert.Equal(t, "alice", decoded["username"])
}

func TestLogPublisherWritesEvent(t *testing.T) {
	logger, buf := testutil.CaptureLogger()
	publisher := NewLogPublisher(logger)

	err := publisher.Publish(context.Background(), Event{Type: RoomUserLeft, RoomGUID: "abc", UserID: 2, Username: "bob"})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "room event", entry["msg"])
	assert.Equal(t, "room.user-left", entry["type"])
	assert.Equal(t, "bob", entry["username"])
}

func TestNopPublisher(t *testing.T) {
	assert.NoError(t, Nop.Publish(context.Background(), Event{Type: RoomCreated}))
}
