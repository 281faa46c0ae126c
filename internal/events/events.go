// Package events carries room membership changes to interested subscribers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mcoot/roomhost/internal/model"
)

// Type names a room event
type Type string

const (
	RoomCreated     Type = "room.created"
	RoomUserJoined  Type = "room.user-joined"
	RoomUserLeft    Type = "room.user-left"
	RoomHostChanged Type = "room.host-changed"
)

// DefaultNamespace prefixes every published subject or channel
const DefaultNamespace = "roomhost"

// Event describes a change to a room. UserID and Username name the user the
// change is about: the creator, the joiner, the leaver or the new host.
type Event struct {
	Type     Type           `json:"type"`
	RoomGUID model.RoomGUID `json:"room_guid"`
	UserID   model.UserID   `json:"user_id"`
	Username string         `json:"username"`
	At       time.Time      `json:"at"`
}

// Subject returns the routing key for the event under a namespace
func (e Event) Subject(namespace string) string {
	return namespace + "." + string(e.Type)
}

// Encode returns the JSON wire form of the event
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events to a transport
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event
var Nop Publisher = nopPublisher{}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// LogPublisher writes each event to a structured logger
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs events at Info
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.logger.InfoContext(ctx, "room event",
		slog.String("type", string(event.Type)),
		slog.String("room_guid", string(event.RoomGUID)),
		slog.Uint64("user_id", uint64(event.UserID)),
		slog.String("username", event.Username),
	)
	return nil
}
