package factory

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomhost/internal/config"
	"github.com/mcoot/roomhost/internal/events"
	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/testutil"
)

type IntegrationSuite struct {
	suite.Suite
	app *TestApp
	ctx context.Context
}

func TestIntegrationSuite(t *testing.T) {
	suite.Run(t, new(IntegrationSuite))
}

func (s *IntegrationSuite) SetupTest() {
	s.app = NewTestApp()
	s.ctx = context.Background()
}

func (s *IntegrationSuite) signup(username string) model.Identity {
	session, err := s.app.UserService.CreateUser(s.ctx, username, "password1", nil)
	s.Require().NoError(err)

	identity, err := s.app.AuthService.Verify(session.Token)
	s.Require().NoError(err)
	return identity
}

// Test: Complete room flow from signup to host handover
func (s *IntegrationSuite) TestCompleteRoomFlow() {
	s.app.MockRandom.QueueUUID("b00c-c1ub")

	alice := s.signup("alice")
	bob := s.signup("bobby")
	carol := s.signup("carol")

	capacity := 2
	rm, err := s.app.RoomController.CreateRoom(s.ctx, alice, "Book Club", &capacity)
	s.Require().NoError(err)
	s.Equal(model.RoomGUID("b00c-c1ub"), rm.GUID)

	_, err = s.app.RoomController.JoinRoom(s.ctx, bob, rm.GUID)
	s.Require().NoError(err)

	_, err = s.app.RoomController.JoinRoom(s.ctx, carol, rm.GUID)
	s.ErrorIs(err, model.ErrRoomFull)

	_, err = s.app.RoomController.LeaveRoom(s.ctx, alice, rm.GUID)
	s.ErrorIs(err, model.ErrHostCannotLeave)

	rm, err = s.app.RoomController.ChangeHost(s.ctx, alice, rm.GUID, bob.UserID)
	s.Require().NoError(err)
	s.Equal(bob.UserID, rm.Host.ID)
	s.True(rm.IsParticipant(alice.UserID))

	// bob hosts now, so he cannot delete his account
	s.ErrorIs(s.app.UserService.DeleteUser(s.ctx, bob), model.ErrUserHostsRooms)

	// alice can, and leaves the room with it
	s.Require().NoError(s.app.UserService.DeleteUser(s.ctx, alice))
	rm, err = s.app.RoomController.GetRoom(s.ctx, rm.GUID)
	s.Require().NoError(err)
	s.False(rm.IsParticipant(alice.UserID))

	s.Equal([]events.Type{events.RoomCreated, events.RoomUserJoined, events.RoomHostChanged}, s.app.Events.Types())
}

func (s *IntegrationSuite) TestProfileListsHostedAndJoinedRooms() {
	alice := s.signup("alice")
	bob := s.signup("bobby")

	hosted, err := s.app.RoomController.CreateRoom(s.ctx, alice, testutil.RandomRoomName(), nil)
	s.Require().NoError(err)
	_, err = s.app.RoomController.JoinRoom(s.ctx, bob, hosted.GUID)
	s.Require().NoError(err)

	profile, err := s.app.UserService.GetUserByUsername(s.ctx, "bobby")
	s.Require().NoError(err)
	s.Empty(profile.HostedRooms)
	s.Require().Len(profile.JoinedRooms, 1)
	s.Equal(hosted.GUID, profile.JoinedRooms[0].GUID)
}

func (s *IntegrationSuite) TestTokenExpiresWithMockClock() {
	session, err := s.app.UserService.CreateUser(s.ctx, "alice", "password1", nil)
	s.Require().NoError(err)

	s.app.MockClock.Advance(2 * time.Hour)

	_, err = s.app.AuthService.Verify(session.Token)
	s.Error(err)
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: "integration-secret",
			TokenTTL:  time.Hour,
		},
		Storage: config.StorageConfig{Type: config.StorageMemory},
		Events:  config.EventsConfig{Backend: config.EventsLog},
		Admin: config.AdminConfig{
			Seed:     true,
			Username: "admin",
			Password: "admin",
		},
	}
}

func TestNewWiresMemoryApp(t *testing.T) {
	app, err := New(testConfig(), testutil.NopLogger())
	require.NoError(t, err)
	defer app.Close()

	require.NotNil(t, app.Metrics)
	require.NoError(t, app.SeedAdmin(context.Background(), testConfig().Admin))
	// seeding twice keeps the existing account
	require.NoError(t, app.SeedAdmin(context.Background(), testConfig().Admin))

	users, err := app.UserService.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)

	_, err = app.AuthService.Login(context.Background(), "admin", "admin")
	assert.NoError(t, err)
}

func TestNewWiresSQLiteApp(t *testing.T) {
	cfg := testConfig()
	cfg.Storage = config.StorageConfig{Type: config.StorageSQL, DBDriver: "sqlite", DatabaseURL: ":memory:"}

	app, err := New(cfg, testutil.NopLogger())
	require.NoError(t, err)
	defer app.Close()

	require.NoError(t, app.SeedAdmin(context.Background(), cfg.Admin))
	_, err = app.AuthService.Login(context.Background(), "admin", "admin")
	assert.NoError(t, err)
}

func TestNewWiresRedisApp(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Storage = config.StorageConfig{Type: config.StorageRedis, RedisURL: "redis://" + mr.Addr()}
	cfg.Events = config.EventsConfig{Backend: config.EventsRedis, Namespace: "it"}

	app, err := New(cfg, testutil.NopLogger())
	require.NoError(t, err)
	defer app.Close()

	session, err := app.UserService.CreateUser(context.Background(), "alice", "password1", nil)
	require.NoError(t, err)
	identity, err := app.AuthService.Verify(session.Token)
	require.NoError(t, err)

	rm, err := app.RoomController.CreateRoom(context.Background(), identity, "Book Club", nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRoomCapacity, rm.Capacity)
}

func TestNewRejectsUnknownStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Type = "etcd"

	_, err := New(cfg, testutil.NopLogger())
	assert.ErrorContains(t, err, "invalid storage type")
}

func TestNewRejectsUnknownEventsBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Events.Backend = "kafka"

	_, err := New(cfg, testutil.NopLogger())
	assert.ErrorContains(t, err, "invalid events backend")
}
