package user

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/roomhost/internal/dependencies/mocks"
	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/services/room"
	"github.com/mcoot/roomhost/internal/services/token"
	"github.com/mcoot/roomhost/internal/storage/memory"
	"github.com/mcoot/roomhost/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	clock   *mocks.MockClock
	tokens  *token.Service
	rooms   *room.Controller
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	random := mocks.NewMockRandom()
	logger := testutil.NopLogger()

	cfg := token.DefaultConfig()
	cfg.SigningKey = []byte("test-secret")
	var err error
	s.tokens, err = token.New(cfg, s.clock, random)
	s.Require().NoError(err)

	authService := auth.New(s.storage, s.tokens, s.clock, logger, auth.Config{BcryptCost: bcrypt.MinCost})
	s.service = New(s.storage, authService, s.clock, logger)
	s.rooms = room.NewController(s.storage, nil, s.clock, random, logger, room.DefaultConfig())
	s.ctx = context.Background()
}

func (s *ServiceSuite) signup(username, password string) model.Identity {
	session, err := s.service.CreateUser(s.ctx, username, password, nil)
	s.Require().NoError(err)
	return model.Identity{UserID: session.UserID, Username: session.Username}
}

// CreateUser tests

func (s *ServiceSuite) TestCreateUserIssuesSession() {
	username := testutil.RandomUsername()
	mobile := "device-token"

	session, err := s.service.CreateUser(s.ctx, username, "password123", &mobile)
	s.Require().NoError(err)
	s.Equal(username, session.Username)

	identity, err := s.tokens.Verify(session.Token)
	s.Require().NoError(err)
	s.Equal(session.UserID, identity.UserID)

	stored, err := s.storage.GetUserByUsername(s.ctx, username)
	s.Require().NoError(err)
	s.NotEqual("password123", stored.PasswordHash)
	s.True(auth.CheckPassword(stored.PasswordHash, "password123"))
	s.Equal("device-token", *stored.MobileToken)
}

func (s *ServiceSuite) TestCreateUserDuplicateUsername() {
	s.signup("alice", "password123")

	_, err := s.service.CreateUser(s.ctx, "alice", "password456", nil)
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func (s *ServiceSuite) TestCreateUserValidates() {
	_, err := s.service.CreateUser(s.ctx, "abc", "xyz", nil)

	var verr *model.ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Len(verr.Fields, 2)
}

func (s *ServiceSuite) TestCreateAndUpdateUserWithLongPasswords() {
	first := strings.Repeat("p", 80)
	second := strings.Repeat("é", 50)
	alice := s.signup("alice", first)

	err := s.service.UpdateUser(s.ctx, alice, first, second, nil)
	s.Require().NoError(err)

	stored, _ := s.storage.GetUser(s.ctx, alice.UserID)
	s.True(auth.CheckPassword(stored.PasswordHash, second))
}

// ListUsers / GetUserByUsername tests

func (s *ServiceSuite) TestListUsers() {
	s.signup("alice", "password123")
	s.signup("bob1", "password123")

	users, err := s.service.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal("alice", users[0].Username)
	s.Equal("bob1", users[1].Username)
}

func (s *ServiceSuite) TestGetUserByUsernameIncludesRooms() {
	alice := s.signup("alice", "password123")
	bob := s.signup("bobby", "password123")

	hosted, err := s.rooms.CreateRoom(s.ctx, alice, testutil.RandomRoomName(), nil)
	s.Require().NoError(err)
	other, err := s.rooms.CreateRoom(s.ctx, bob, testutil.RandomRoomName(), nil)
	s.Require().NoError(err)
	_, err = s.rooms.JoinRoom(s.ctx, alice, other.GUID)
	s.Require().NoError(err)

	profile, err := s.service.GetUserByUsername(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("alice", profile.User.Username)
	s.Require().Len(profile.HostedRooms, 1)
	s.Equal(hosted.GUID, profile.HostedRooms[0].GUID)
	s.Len(profile.JoinedRooms, 2)
}

func (s *ServiceSuite) TestGetUserByUsernameNotFound() {
	_, err := s.service.GetUserByUsername(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrUserNotFound)
}

// UpdateUser tests

func (s *ServiceSuite) TestUpdateUserChangesPasswordAndToken() {
	alice := s.signup("alice", "password123")
	mobile := "new-device"
	s.clock.Advance(time.Minute)

	err := s.service.UpdateUser(s.ctx, alice, "password123", "password456", &mobile)
	s.Require().NoError(err)

	stored, _ := s.storage.GetUser(s.ctx, alice.UserID)
	s.True(auth.CheckPassword(stored.PasswordHash, "password456"))
	s.Equal("new-device", *stored.MobileToken)
	s.Equal(s.clock.Now(), stored.UpdatedAt)
}

func (s *ServiceSuite) TestUpdateUserKeepsTokenWhenOmitted() {
	mobile := "device"
	session, err := s.service.CreateUser(s.ctx, "alice", "password123", &mobile)
	s.Require().NoError(err)
	identity := model.Identity{UserID: session.UserID, Username: session.Username}

	s.Require().NoError(s.service.UpdateUser(s.ctx, identity, "password123", "password456", nil))

	stored, _ := s.storage.GetUser(s.ctx, identity.UserID)
	s.Equal("device", *stored.MobileToken)
}

func (s *ServiceSuite) TestUpdateUserMissingPasswords() {
	alice := s.signup("alice", "password123")

	err := s.service.UpdateUser(s.ctx, alice, "password123", "", nil)
	s.ErrorIs(err, auth.ErrMissingPasswords)
}

func (s *ServiceSuite) TestUpdateUserWrongOldPassword() {
	alice := s.signup("alice", "password123")

	err := s.service.UpdateUser(s.ctx, alice, "wrong", "password456", nil)
	s.ErrorIs(err, auth.ErrInvalidCredentials)
}

func (s *ServiceSuite) TestUpdateUserNotFound() {
	err := s.service.UpdateUser(s.ctx, model.Identity{UserID: 42, Username: "ghost"}, "a", "bbbb", nil)
	s.ErrorIs(err, model.ErrUserNotFound)
}

// DeleteUser tests

func (s *ServiceSuite) TestDeleteUserRemovesParticipation() {
	alice := s.signup("alice", "password123")
	bob := s.signup("bobby", "password123")
	room, err := s.rooms.CreateRoom(s.ctx, alice, testutil.RandomRoomName(), nil)
	s.Require().NoError(err)
	_, err = s.rooms.JoinRoom(s.ctx, bob, room.GUID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteUser(s.ctx, bob))

	_, err = s.storage.GetUser(s.ctx, bob.UserID)
	s.ErrorIs(err, model.ErrUserNotFound)

	stored, _ := s.rooms.GetRoom(s.ctx, room.GUID)
	s.False(stored.IsParticipant(bob.UserID))
}

func (s *ServiceSuite) TestDeleteUserBlockedWhileHosting() {
	alice := s.signup("alice", "password123")
	_, err := s.rooms.CreateRoom(s.ctx, alice, testutil.RandomRoomName(), nil)
	s.Require().NoError(err)

	err = s.service.DeleteUser(s.ctx, alice)
	s.ErrorIs(err, model.ErrUserHostsRooms)
}

func (s *ServiceSuite) TestDeleteUserNotFound() {
	err := s.service.DeleteUser(s.ctx, model.Identity{UserID: 42})
	s.ErrorIs(err, model.ErrUserNotFound)
}

// EnsureUser tests

func (s *ServiceSuite) TestEnsureUserCreatesOnce() {
	created, err := s.service.EnsureUser(s.ctx, "admin", "admin")
	s.Require().NoError(err)
	s.True(created)

	created, err = s.service.EnsureUser(s.ctx, "admin", "different")
	s.Require().NoError(err)
	s.False(created)

	stored, _ := s.storage.GetUserByUsername(s.ctx, "admin")
	s.True(auth.CheckPassword(stored.PasswordHash, "admin"))
}
