// Package storagetest holds the behaviour every storage backend must share.
// Backend packages embed Suite and provide a constructor.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/storage"
)

// Suite runs the shared storage contract against a backend
type Suite struct {
	suite.Suite

	// NewStorage returns a fresh, empty backend for each test
	NewStorage func() storage.Storage

	Storage storage.Storage
	Ctx     context.Context
}

func (s *Suite) SetupTest() {
	s.Storage = s.NewStorage()
	s.Ctx = context.Background()
}

func (s *Suite) TearDownTest() {
	if s.Storage != nil {
		_ = s.Storage.Close()
	}
}

// CreateUser persists a user with the given name and returns it
func (s *Suite) CreateUser(username string) *model.User {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	user := &model.User{
		Username:     username,
		PasswordHash: "hash-" + username,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.Storage.CreateUser(s.Ctx, user))
	return user
}

// CreateRoom persists a room hosted by host and returns it
func (s *Suite) CreateRoom(guid string, host *model.User, capacity int) *model.Room {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	room := &model.Room{
		GUID:         model.RoomGUID(guid),
		Name:         "Room " + guid,
		Host:         host.Summary(),
		Participants: []model.UserSummary{host.Summary()},
		Capacity:     capacity,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.Storage.CreateRoom(s.Ctx, room))
	return room
}

// User tests

func (s *Suite) TestCreateAndGetUser() {
	token := "device-1"
	user := &model.User{Username: "alice", PasswordHash: "hash", MobileToken: &token}

	err := s.Storage.CreateUser(s.Ctx, user)
	s.Require().NoError(err)
	s.NotZero(user.ID)

	retrieved, err := s.Storage.GetUser(s.Ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("alice", retrieved.Username)
	s.Equal("hash", retrieved.PasswordHash)
	s.Require().NotNil(retrieved.MobileToken)
	s.Equal("device-1", *retrieved.MobileToken)
}

func (s *Suite) TestCreateUserAssignsDistinctIDs() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.NotEqual(alice.ID, bob.ID)
}

func (s *Suite) TestCreateUserFailsIfUsernameTaken() {
	s.CreateUser("alice")

	err := s.Storage.CreateUser(s.Ctx, &model.User{Username: "alice", PasswordHash: "other"})
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *Suite) TestGetUserNotFound() {
	_, err := s.Storage.GetUser(s.Ctx, 9999)
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestGetUserByUsername() {
	alice := s.CreateUser("alice")

	retrieved, err := s.Storage.GetUserByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(alice.ID, retrieved.ID)

	_, err = s.Storage.GetUserByUsername(s.Ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestConcurrentCreateUserClaimsUsernameOnce() {
	const signups = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
		ids   []model.UserID
	)
	for i := 0; i < signups; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := &model.User{Username: "alice", PasswordHash: "hash"}
			err := s.Storage.CreateUser(s.Ctx, user)
			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, model.ErrUsernameTaken) {
				taken++
			} else if err == nil {
				ids = append(ids, user.ID)
			}
		}()
	}
	wg.Wait()

	s.Require().Len(ids, 1)
	s.Equal(signups-1, taken)

	retrieved, err := s.Storage.GetUserByUsername(s.Ctx, "alice")
	s.Require().NoError(err)
	s.Equal(ids[0], retrieved.ID)

	users, err := s.Storage.ListUsers(s.Ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *Suite) TestListUsers() {
	s.CreateUser("alice")
	s.CreateUser("bob")

	users, err := s.Storage.ListUsers(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("alice", users[0].Username)
	s.Equal("bob", users[1].Username)
}

func (s *Suite) TestUpdateUser() {
	alice := s.CreateUser("alice")
	token := "device-2"
	alice.PasswordHash = "new-hash"
	alice.MobileToken = &token

	s.Require().NoError(s.Storage.UpdateUser(s.Ctx, alice))

	retrieved, err := s.Storage.GetUser(s.Ctx, alice.ID)
	s.Require().NoError(err)
	s.Equal("new-hash", retrieved.PasswordHash)
	s.Require().NotNil(retrieved.MobileToken)
	s.Equal("device-2", *retrieved.MobileToken)
}

func (s *Suite) TestUpdateUserNotFound() {
	err := s.Storage.UpdateUser(s.Ctx, &model.User{ID: 9999, Username: "ghost"})
	s.ErrorIs(err, model.ErrUserNotFound)
}

func (s *Suite) TestDeleteUserRemovesParticipation() {
	host := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	room := s.CreateRoom("room-1", host, 5)
	_, err := s.Storage.UpdateRoom(s.Ctx, room.GUID, func(r *model.Room, _ storage.UserLookup) error {
		r.AddParticipant(bob.Summary())
		return nil
	})
	s.Require().NoError(err)

	s.Require().NoError(s.Storage.DeleteUser(s.Ctx, bob.ID))

	_, err = s.Storage.GetUser(s.Ctx, bob.ID)
	s.ErrorIs(err, model.ErrUserNotFound)
	_, err = s.Storage.GetUserByUsername(s.Ctx, "bob")
	s.ErrorIs(err, model.ErrUserNotFound)

	updated, err := s.Storage.GetRoom(s.Ctx, room.GUID)
	s.Require().NoError(err)
	s.False(updated.IsParticipant(bob.ID))
	s.Len(updated.Participants, 1)
}

func (s *Suite) TestDeleteUserFailsWhileHosting() {
	host := s.CreateUser("alice")
	s.CreateRoom("room-1", host, 5)

	err := s.Storage.DeleteUser(s.Ctx, host.ID)
	s.ErrorIs(err, model.ErrUserHostsRooms)

	_, err = s.Storage.GetUser(s.Ctx, host.ID)
	s.NoError(err)
}

func (s *Suite) TestDeleteUserNotFound() {
	err := s.Storage.DeleteUser(s.Ctx, 9999)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// Room tests

func (s *Suite) TestCreateAndGetRoom() {
	host := s.CreateUser("alice")
	room := s.CreateRoom("room-1", host, 3)
	s.NotZero(room.ID)

	retrieved, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(room.ID, retrieved.ID)
	s.Equal("Room room-1", retrieved.Name)
	s.Equal(3, retrieved.Capacity)
	s.Equal(host.Summary(), retrieved.Host)
	s.Equal([]model.UserSummary{host.Summary()}, retrieved.Participants)
}

func (s *Suite) TestCreateRoomFailsOnDuplicateGUID() {
	host := s.CreateUser("alice")
	s.CreateRoom("room-1", host, 3)

	err := s.Storage.CreateRoom(s.Ctx, &model.Room{
		GUID:         "room-1",
		Name:         "Another",
		Host:         host.Summary(),
		Participants: []model.UserSummary{host.Summary()},
		Capacity:     3,
	})
	s.ErrorIs(err, model.ErrGUIDConflict)
}

func (s *Suite) TestCreateRoomUnknownHost() {
	ghost := &model.User{ID: 9999, Username: "ghost"}

	err := s.Storage.CreateRoom(s.Ctx, &model.Room{
		GUID:         "room-1",
		Name:         "Ghost Room",
		Host:         ghost.Summary(),
		Participants: []model.UserSummary{ghost.Summary()},
		Capacity:     3,
	})
	s.ErrorIs(err, model.ErrUserNotFound)

	_, err = s.Storage.GetRoom(s.Ctx, "room-1")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestGetRoomNotFound() {
	_, err := s.Storage.GetRoom(s.Ctx, "missing")
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestListRooms() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.CreateRoom("room-1", alice, 3)
	s.CreateRoom("room-2", bob, 3)

	rooms, err := s.Storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(rooms, 2)
	s.Equal(model.RoomGUID("room-1"), rooms[0].GUID)
	s.Equal(model.RoomGUID("room-2"), rooms[1].GUID)
}

func (s *Suite) TestListRoomsEmpty() {
	rooms, err := s.Storage.ListRooms(s.Ctx)
	s.Require().NoError(err)
	s.Empty(rooms)
}

func (s *Suite) TestListRoomsByHostAndParticipant() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.CreateRoom("room-1", alice, 3)
	s.CreateRoom("room-2", bob, 3)
	_, err := s.Storage.UpdateRoom(s.Ctx, "room-2", func(r *model.Room, _ storage.UserLookup) error {
		r.AddParticipant(alice.Summary())
		return nil
	})
	s.Require().NoError(err)

	hosted, err := s.Storage.ListRoomsByHost(s.Ctx, alice.ID)
	s.Require().NoError(err)
	s.Require().Len(hosted, 1)
	s.Equal(model.RoomGUID("room-1"), hosted[0].GUID)

	joined, err := s.Storage.ListRoomsByParticipant(s.Ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(joined, 2)

	joined, err = s.Storage.ListRoomsByParticipant(s.Ctx, bob.ID)
	s.Require().NoError(err)
	s.Require().Len(joined, 1)
	s.Equal(model.RoomGUID("room-2"), joined[0].GUID)
}

func (s *Suite) TestUpdateRoomPersistsHostAndParticipants() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.CreateRoom("room-1", alice, 3)

	updated, err := s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, _ storage.UserLookup) error {
		r.AddParticipant(bob.Summary())
		r.Host = bob.Summary()
		return nil
	})
	s.Require().NoError(err)
	s.Equal(bob.ID, updated.Host.ID)

	retrieved, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(bob.Summary(), retrieved.Host)
	s.ElementsMatch([]model.UserSummary{alice.Summary(), bob.Summary()}, retrieved.Participants)
}

func (s *Suite) TestUpdateRoomRemovesParticipant() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.CreateRoom("room-1", alice, 3)
	_, err := s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, _ storage.UserLookup) error {
		r.AddParticipant(bob.Summary())
		return nil
	})
	s.Require().NoError(err)

	_, err = s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, _ storage.UserLookup) error {
		r.RemoveParticipant(bob.ID)
		return nil
	})
	s.Require().NoError(err)

	retrieved, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal([]model.UserSummary{alice.Summary()}, retrieved.Participants)
}

func (s *Suite) TestUpdateRoomAbortsOnMutationError() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.CreateRoom("room-1", alice, 3)
	sentinel := errors.New("abort")

	_, err := s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, _ storage.UserLookup) error {
		r.AddParticipant(bob.Summary())
		return sentinel
	})
	s.ErrorIs(err, sentinel)

	retrieved, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Len(retrieved.Participants, 1)
}

func (s *Suite) TestUpdateRoomNotFound() {
	_, err := s.Storage.UpdateRoom(s.Ctx, "missing", func(r *model.Room, _ storage.UserLookup) error { return nil })
	s.ErrorIs(err, model.ErrRoomNotFound)
}

func (s *Suite) TestUpdateRoomLooksUpUsers() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.CreateRoom("room-1", alice, 3)

	updated, err := s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, users storage.UserLookup) error {
		u, err := users(bob.ID)
		if err != nil {
			return err
		}
		r.AddParticipant(u.Summary())
		return nil
	})
	s.Require().NoError(err)
	s.True(updated.IsParticipant(bob.ID))
}

func (s *Suite) TestUpdateRoomLookupOfDeletedUser() {
	alice := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	s.CreateRoom("room-1", alice, 3)
	s.Require().NoError(s.Storage.DeleteUser(s.Ctx, bob.ID))

	_, err := s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, users storage.UserLookup) error {
		u, err := users(bob.ID)
		if err != nil {
			return err
		}
		r.Host = u.Summary()
		return nil
	})
	s.ErrorIs(err, model.ErrUserNotFound)

	retrieved, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Equal(alice.Summary(), retrieved.Host)
}

func (s *Suite) TestJoinRacingDeleteNeverLeavesDeletedMember() {
	host := s.CreateUser("host")
	s.CreateRoom("room-1", host, 3)

	for i := 0; i < 10; i++ {
		member := s.CreateUser("member" + string(rune('a'+i)))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Storage.DeleteUser(s.Ctx, member.ID)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, users storage.UserLookup) error {
				u, err := users(member.ID)
				if err != nil {
					return err
				}
				r.AddParticipant(u.Summary())
				return nil
			})
		}()
		wg.Wait()

		_, err := s.Storage.GetUser(s.Ctx, member.ID)
		s.Require().ErrorIs(err, model.ErrUserNotFound)

		retrieved, err := s.Storage.GetRoom(s.Ctx, "room-1")
		s.Require().NoError(err)
		s.False(retrieved.IsParticipant(member.ID))
		s.Equal([]model.UserSummary{host.Summary()}, retrieved.Participants)
	}
}

func (s *Suite) TestConcurrentJoinsNeverExceedCapacity() {
	host := s.CreateUser("host")
	s.CreateRoom("room-1", host, 3)

	const joiners = 8
	users := make([]*model.User, joiners)
	for i := range users {
		users[i] = s.CreateUser("joiner" + string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(u *model.User) {
			defer wg.Done()
			_, _ = s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, _ storage.UserLookup) error {
				if r.IsFull() {
					return model.ErrRoomFull
				}
				r.AddParticipant(u.Summary())
				return nil
			})
		}(u)
	}
	wg.Wait()

	retrieved, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Len(retrieved.Participants, 3)
}
