package sql

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/storage"
	"github.com/mcoot/roomhost/internal/storage/storagetest"
	"github.com/mcoot/roomhost/internal/testutil"
)

type StorageSuite struct {
	storagetest.Suite
}

func newTestStorage(t *testing.T) *Storage {
	cfg := DefaultConfig()
	cfg.DSN = ":memory:"
	cfg.ConnectAttempts = 1

	s, err := New(cfg, testutil.NopLogger())
	require.NoError(t, err)
	return s
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, &StorageSuite{
		Suite: storagetest.Suite{
			NewStorage: func() storage.Storage { return newTestStorage(t) },
		},
	})
}

func (s *StorageSuite) TestParticipantsLoadInIDOrder() {
	host := s.CreateUser("alice")
	bob := s.CreateUser("bob")
	carol := s.CreateUser("carol")
	s.CreateRoom("room-1", host, 5)

	for _, u := range []*model.User{carol, bob} {
		_, err := s.Storage.UpdateRoom(s.Ctx, "room-1", func(r *model.Room, _ storage.UserLookup) error {
			r.AddParticipant(u.Summary())
			return nil
		})
		s.Require().NoError(err)
	}

	room, err := s.Storage.GetRoom(s.Ctx, "room-1")
	s.Require().NoError(err)
	s.Require().Len(room.Participants, 3)
	s.Equal(host.ID, room.Participants[0].ID)
	s.Equal(bob.ID, room.Participants[1].ID)
	s.Equal(carol.ID, room.Participants[2].ID)
}

func (s *StorageSuite) TestRenameToTakenUsername() {
	s.CreateUser("alice")
	bob := s.CreateUser("bob")

	bob.Username = "alice"
	err := s.Storage.UpdateUser(s.Ctx, bob)
	s.ErrorIs(err, model.ErrUsernameTaken)
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Driver = "oracle"

	_, err := New(cfg, testutil.NopLogger())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}
