package storage

import (
	"context"

	"github.com/mcoot/roomhost/internal/model"
)

// UserLookup resolves a user inside a room update. A user it returns stays
// present until the update is saved, so the room never references a user
// deleted mid-update. Returns model.ErrUserNotFound for unknown ids.
type UserLookup func(id model.UserID) (*model.User, error)

// RoomMutation changes a room in place. Returning an error aborts the update
// and the error is passed back to the caller unchanged. A mutation must not
// call back into the store; users it needs are read through users.
type RoomMutation func(room *model.Room, users UserLookup) error

// UserStore persists user accounts
type UserStore interface {
	// CreateUser assigns user.ID and persists the user.
	// Returns model.ErrUsernameTaken if the username is in use.
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id model.UserID) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context) ([]*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	// DeleteUser removes the user and their room participations atomically.
	// Returns model.ErrUserHostsRooms while the user hosts any room.
	DeleteUser(ctx context.Context, id model.UserID) error
}

// RoomStore persists rooms and their participant sets
type RoomStore interface {
	// CreateRoom assigns room.ID and persists the room.
	// Returns model.ErrGUIDConflict if the guid is already used.
	CreateRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, guid model.RoomGUID) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	ListRoomsByHost(ctx context.Context, userID model.UserID) ([]*model.Room, error)
	ListRoomsByParticipant(ctx context.Context, userID model.UserID) ([]*model.Room, error)
	// UpdateRoom loads the room, applies fn and saves the result as one
	// atomic step, so concurrent membership changes cannot interleave with
	// each other or with DeleteUser.
	UpdateRoom(ctx context.Context, guid model.RoomGUID, fn RoomMutation) (*model.Room, error)
}

// Storage defines the interface for data persistence
type Storage interface {
	UserStore
	RoomStore

	// Close releases backend connections
	Close() error
}
