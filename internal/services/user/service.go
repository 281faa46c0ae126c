package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/roomhost/internal/dependencies/clock"
	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/storage"
)

// Profile is a user together with the rooms they host and have joined
type Profile struct {
	User        *model.User
	HostedRooms []*model.Room
	JoinedRooms []*model.Room
}

// Service manages user accounts
type Service struct {
	storage storage.Storage
	auth    *auth.Service
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new user Service
func New(storage storage.Storage, auth *auth.Service, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		auth:    auth,
		clock:   clock,
		logger:  logger,
	}
}

// ListUsers returns every user in id order
func (s *Service) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.storage.ListUsers(ctx)
}

// GetUserByUsername returns the user's profile with hosted and joined rooms
func (s *Service) GetUserByUsername(ctx context.Context, username string) (*Profile, error) {
	user, err := s.storage.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	hosted, err := s.storage.ListRoomsByHost(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	joined, err := s.storage.ListRoomsByParticipant(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, HostedRooms: hosted, JoinedRooms: joined}, nil
}

// CreateUser registers a new account and signs the user in
func (s *Service) CreateUser(ctx context.Context, username, password string, mobileToken *string) (*auth.Session, error) {
	err := model.Validate(
		model.ValidateUsername(username),
		model.ValidatePassword(password),
		model.ValidateMobileToken(mobileToken),
	)
	if err != nil {
		return nil, err
	}

	hash, err := s.auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	user := &model.User{
		Username:     username,
		PasswordHash: hash,
		MobileToken:  mobileToken,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", slog.Uint64("user_id", uint64(user.ID)), slog.String("username", username))
	return s.auth.IssueSession(user)
}

// UpdateUser changes the caller's password and optionally their mobile token
func (s *Service) UpdateUser(ctx context.Context, identity model.Identity, oldPassword, newPassword string, mobileToken *string) error {
	if oldPassword == "" || newPassword == "" {
		return auth.ErrMissingPasswords
	}

	user, err := s.storage.GetUser(ctx, identity.UserID)
	if err != nil {
		return err
	}

	if !auth.CheckPassword(user.PasswordHash, oldPassword) {
		return auth.ErrInvalidCredentials
	}

	if err := model.Validate(model.ValidatePassword(newPassword), model.ValidateMobileToken(mobileToken)); err != nil {
		return err
	}

	hash, err := s.auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	if mobileToken != nil {
		user.MobileToken = mobileToken
	}
	user.UpdatedAt = s.clock.Now()

	if err := s.storage.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("user updated", slog.Uint64("user_id", uint64(user.ID)))
	return nil
}

// DeleteUser removes the caller's account. Hosts must hand their rooms over first.
func (s *Service) DeleteUser(ctx context.Context, identity model.Identity) error {
	if err := s.storage.DeleteUser(ctx, identity.UserID); err != nil {
		if errors.Is(err, model.ErrUserHostsRooms) {
			s.logger.Info("user delete blocked by hosted rooms", slog.Uint64("user_id", uint64(identity.UserID)))
		}
		return err
	}

	s.logger.Info("user deleted", slog.Uint64("user_id", uint64(identity.UserID)))
	return nil
}

// EnsureUser creates the account if the username is free; existing users are left untouched
func (s *Service) EnsureUser(ctx context.Context, username, password string) (bool, error) {
	_, err := s.storage.GetUserByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return false, err
	}

	if _, err := s.CreateUser(ctx, username, password, nil); err != nil {
		if errors.Is(err, model.ErrUsernameTaken) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
