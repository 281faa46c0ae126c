package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/storage"
)

// Storage is an in-memory implementation of the storage interface.
// Records are copied on the way in and out so callers never share state.
type Storage struct {
	mu sync.RWMutex

	users         map[model.UserID]*model.User
	usernameIndex map[string]model.UserID
	rooms         map[model.RoomGUID]*model.Room

	nextUserID model.UserID
	nextRoomID model.RoomID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		users:         make(map[model.UserID]*model.User),
		usernameIndex: make(map[string]model.UserID),
		rooms:         make(map[model.RoomGUID]*model.Room),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Close is a no-op for memory storage
func (s *Storage) Close() error {
	return nil
}

// User operations

func (s *Storage) CreateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usernameIndex[user.Username]; taken {
		return model.ErrUsernameTaken
	}

	s.nextUserID++
	user.ID = s.nextUserID
	s.users[user.ID] = copyUser(user)
	s.usernameIndex[user.Username] = user.ID
	return nil
}

func (s *Storage) GetUser(ctx context.Context, id model.UserID) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.usernameIndex[username]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return copyUser(s.users[id]), nil
}

func (s *Storage) ListUsers(ctx context.Context) ([]*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	users := make([]*model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *Storage) UpdateUser(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok {
		return model.ErrUserNotFound
	}
	if existing.Username != user.Username {
		if _, taken := s.usernameIndex[user.Username]; taken {
			return model.ErrUsernameTaken
		}
		delete(s.usernameIndex, existing.Username)
		s.usernameIndex[user.Username] = user.ID
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *Storage) DeleteUser(ctx context.Context, id model.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return model.ErrUserNotFound
	}
	for _, room := range s.rooms {
		if room.IsHost(id) {
			return model.ErrUserHostsRooms
		}
	}
	for _, room := range s.rooms {
		room.RemoveParticipant(id)
	}
	delete(s.usernameIndex, user.Username)
	delete(s.users, id)
	return nil
}

// Room operations

func (s *Storage) CreateRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rooms[room.GUID]; exists {
		return model.ErrGUIDConflict
	}
	if _, err := s.lookupUser(room.Host.ID); err != nil {
		return err
	}
	s.nextRoomID++
	room.ID = s.nextRoomID
	s.rooms[room.GUID] = room.Clone()
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, guid model.RoomGUID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[guid]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return s.filterRooms(func(*model.Room) bool { return true }), nil
}

func (s *Storage) ListRoomsByHost(ctx context.Context, userID model.UserID) ([]*model.Room, error) {
	return s.filterRooms(func(r *model.Room) bool { return r.IsHost(userID) }), nil
}

func (s *Storage) ListRoomsByParticipant(ctx context.Context, userID model.UserID) ([]*model.Room, error) {
	return s.filterRooms(func(r *model.Room) bool { return r.IsParticipant(userID) }), nil
}

func (s *Storage) UpdateRoom(ctx context.Context, guid model.RoomGUID, fn storage.RoomMutation) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.rooms[guid]
	if !ok {
		return nil, model.ErrRoomNotFound
	}

	room := existing.Clone()
	if err := fn(room, s.lookupUser); err != nil {
		return nil, err
	}

	// identity fields are immutable
	room.ID = existing.ID
	room.GUID = existing.GUID
	s.rooms[guid] = room.Clone()
	return room, nil
}

// lookupUser reads a user while the caller holds the lock
func (s *Storage) lookupUser(id model.UserID) (*model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return copyUser(user), nil
}

func (s *Storage) filterRooms(keep func(*model.Room) bool) []*model.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*model.Room, 0)
	for _, r := range s.rooms {
		if keep(r) {
			rooms = append(rooms, r.Clone())
		}
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}

func copyUser(u *model.User) *model.User {
	c := *u
	if u.MobileToken != nil {
		token := *u.MobileToken
		c.MobileToken = &token
	}
	return &c
}
