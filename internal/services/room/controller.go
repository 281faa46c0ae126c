package room

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/roomhost/internal/dependencies/clock"
	"github.com/mcoot/roomhost/internal/dependencies/random"
	"github.com/mcoot/roomhost/internal/events"
	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/storage"
)

// Errors
var (
	ErrNewHostRequired = errors.New("new host is required")
	ErrAlreadyHost     = errors.New("caller is already the host")
	ErrNewHostNotFound = errors.New("new host not found")
)

// guidAttempts bounds retries when a generated guid is already taken
const guidAttempts = 5

// Config holds configuration for the room controller
type Config struct {
	DefaultCapacity int
}

// DefaultConfig returns default room configuration
func DefaultConfig() Config {
	return Config{
		DefaultCapacity: model.DefaultRoomCapacity,
	}
}

// Controller manages room membership: create, join, leave and host handover
type Controller struct {
	storage   storage.Storage
	publisher events.Publisher
	clock     clock.Clock
	random    random.Random
	logger    *slog.Logger
	cfg       Config
}

// NewController creates a new room Controller
func NewController(
	storage storage.Storage,
	publisher events.Publisher,
	clock clock.Clock,
	random random.Random,
	logger *slog.Logger,
	cfg Config,
) *Controller {
	if cfg.DefaultCapacity <= 0 {
		cfg.DefaultCapacity = model.DefaultRoomCapacity
	}
	if publisher == nil {
		publisher = events.Nop
	}
	return &Controller{
		storage:   storage,
		publisher: publisher,
		clock:     clock,
		random:    random,
		logger:    logger,
		cfg:       cfg,
	}
}

// CreateRoom creates a room with the caller as host and first participant
func (c *Controller) CreateRoom(ctx context.Context, identity model.Identity, name string, capacity *int) (*model.Room, error) {
	roomCapacity := c.cfg.DefaultCapacity
	if capacity != nil {
		roomCapacity = *capacity
	}

	if err := model.Validate(model.ValidateRoomName(name), model.ValidateCapacity(roomCapacity)); err != nil {
		return nil, err
	}

	host, err := c.storage.GetUser(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	room := &model.Room{
		Name:         name,
		Host:         host.Summary(),
		Participants: []model.UserSummary{host.Summary()},
		Capacity:     roomCapacity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 1; ; attempt++ {
		room.GUID = model.RoomGUID(c.random.UUID())
		err = c.storage.CreateRoom(ctx, room)
		if !errors.Is(err, model.ErrGUIDConflict) || attempt == guidAttempts {
			break
		}
		c.logger.Warn("room guid collision, retrying", slog.String("guid", string(room.GUID)))
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("room created",
		slog.String("guid", string(room.GUID)),
		slog.Uint64("host_id", uint64(host.ID)),
		slog.Int("capacity", room.Capacity),
	)
	c.publish(ctx, events.RoomCreated, room.GUID, host.Summary())
	return room, nil
}

// ListRooms returns every room
func (c *Controller) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return c.storage.ListRooms(ctx)
}

// GetRoom retrieves a room by guid
func (c *Controller) GetRoom(ctx context.Context, guid model.RoomGUID) (*model.Room, error) {
	return c.storage.GetRoom(ctx, guid)
}

// JoinRoom adds the caller to a room. A full room is reported before an
// existing membership.
func (c *Controller) JoinRoom(ctx context.Context, identity model.Identity, guid model.RoomGUID) (*model.Room, error) {
	var user *model.User
	room, err := c.storage.UpdateRoom(ctx, guid, func(room *model.Room, users storage.UserLookup) error {
		var err error
		if user, err = users(identity.UserID); err != nil {
			return err
		}
		if room.IsFull() {
			return model.ErrRoomFull
		}
		if room.IsParticipant(user.ID) {
			return model.ErrAlreadyParticipant
		}
		room.AddParticipant(user.Summary())
		room.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("user joined room", slog.String("guid", string(guid)), slog.Uint64("user_id", uint64(user.ID)))
	c.publish(ctx, events.RoomUserJoined, guid, user.Summary())
	return room, nil
}

// LeaveRoom removes the caller from a room. The host must hand over first.
func (c *Controller) LeaveRoom(ctx context.Context, identity model.Identity, guid model.RoomGUID) (*model.Room, error) {
	room, err := c.storage.UpdateRoom(ctx, guid, func(room *model.Room, _ storage.UserLookup) error {
		if room.IsHost(identity.UserID) {
			return model.ErrHostCannotLeave
		}
		if !room.IsParticipant(identity.UserID) {
			return model.ErrNotParticipant
		}
		room.RemoveParticipant(identity.UserID)
		room.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("user left room", slog.String("guid", string(guid)), slog.Uint64("user_id", uint64(identity.UserID)))
	c.publish(ctx, events.RoomUserLeft, guid, model.UserSummary{ID: identity.UserID, Username: identity.Username})
	return room, nil
}

// ChangeHost hands the room over to another user. The previous host stays
// on as a participant.
func (c *Controller) ChangeHost(ctx context.Context, identity model.Identity, guid model.RoomGUID, newHostID model.UserID) (*model.Room, error) {
	if newHostID == 0 {
		return nil, ErrNewHostRequired
	}
	if newHostID == identity.UserID {
		return nil, ErrAlreadyHost
	}

	var newHost *model.User
	room, err := c.storage.UpdateRoom(ctx, guid, func(room *model.Room, users storage.UserLookup) error {
		if !room.IsHost(identity.UserID) {
			return model.ErrNotHost
		}
		var err error
		newHost, err = users(newHostID)
		if errors.Is(err, model.ErrUserNotFound) {
			return ErrNewHostNotFound
		}
		if err != nil {
			return err
		}

		oldHost := room.Host
		room.Host = newHost.Summary()
		room.AddParticipant(oldHost)
		room.UpdatedAt = c.clock.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("room host changed",
		slog.String("guid", string(guid)),
		slog.Uint64("old_host_id", uint64(identity.UserID)),
		slog.Uint64("new_host_id", uint64(newHostID)),
	)
	c.publish(ctx, events.RoomHostChanged, guid, newHost.Summary())
	return room, nil
}

// SearchUserRooms returns the rooms the named user participates in
func (c *Controller) SearchUserRooms(ctx context.Context, username string) ([]*model.Room, error) {
	user, err := c.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return c.storage.ListRoomsByParticipant(ctx, user.ID)
}

// publish sends an event; failures are logged and never reach the caller
func (c *Controller) publish(ctx context.Context, eventType events.Type, guid model.RoomGUID, subject model.UserSummary) {
	event := events.Event{
		Type:     eventType,
		RoomGUID: guid,
		UserID:   subject.ID,
		Username: subject.Username,
		At:       c.clock.Now(),
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish room event",
			slog.String("type", string(eventType)),
			slog.String("guid", string(guid)),
			slog.String("error", err.Error()),
		)
	}
}

// ControllerInterface is the room API the HTTP handlers depend on.
type ControllerInterface interface {
	CreateRoom(ctx context.Context, identity model.Identity, name string, capacity *int) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	GetRoom(ctx context.Context, guid model.RoomGUID) (*model.Room, error)
	JoinRoom(ctx context.Context, identity model.Identity, guid model.RoomGUID) (*model.Room, error)
	LeaveRoom(ctx context.Context, identity model.Identity, guid model.RoomGUID) (*model.Room, error)
	ChangeHost(ctx context.Context, identity model.Identity, guid model.RoomGUID, newHostID model.UserID) (*model.Room, error)
	SearchUserRooms(ctx context.Context, username string) ([]*model.Room, error)
}

var _ ControllerInterface = (*Controller)(nil)
