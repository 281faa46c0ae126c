package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/roomhost/internal/dependencies/clock"
	"github.com/mcoot/roomhost/internal/model"
	"github.com/mcoot/roomhost/internal/services/token"
	"github.com/mcoot/roomhost/internal/storage"
)

// Errors
var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrMissingPasswords   = errors.New("old and new password are required")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultBcryptCost keeps hashing cheap enough for interactive logins
const DefaultBcryptCost = 8

// Session is the result of a successful authentication
type Session struct {
	Token     string
	UserID    model.UserID
	Username  string
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost: DefaultBcryptCost,
	}
}

// Service handles password checks and session issuance
type Service struct {
	users  storage.UserStore
	tokens *token.Service
	clock  clock.Clock
	logger *slog.Logger
	cost   int
}

// New creates a new auth Service
func New(users storage.UserStore, tokens *token.Service, clock clock.Clock, logger *slog.Logger, cfg Config) *Service {
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = DefaultBcryptCost
	}
	return &Service{
		users:  users,
		tokens: tokens,
		clock:  clock,
		logger: logger,
		cost:   cfg.BcryptCost,
	}
}

// bcryptMaxBytes is the longest input bcrypt reads. Longer passwords are
// truncated to it before hashing and comparing.
const bcryptMaxBytes = 72

func bcryptInput(plain string) []byte {
	b := []byte(plain)
	if len(b) > bcryptMaxBytes {
		b = b[:bcryptMaxBytes]
	}
	return b
}

// HashPassword returns the bcrypt hash of a plaintext password
func (s *Service) HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(bcryptInput(plain), s.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored hash
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), bcryptInput(plain)) == nil
}

// Login verifies credentials and issues a session.
// Unknown users and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return s.IssueSession(user)
}

// ChangePassword replaces the caller's password after checking the old one
func (s *Service) ChangePassword(ctx context.Context, identity model.Identity, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return ErrMissingPasswords
	}

	user, err := s.users.GetUser(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if !CheckPassword(user.PasswordHash, oldPassword) {
		return ErrInvalidCredentials
	}

	if err := model.Validate(model.ValidatePassword(newPassword)); err != nil {
		return err
	}

	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return err
	}

	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logger.Info("password changed", slog.Uint64("user_id", uint64(user.ID)))
	return nil
}

// IssueSession signs a token for an already authenticated user
func (s *Service) IssueSession(user *model.User) (*Session, error) {
	tok, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     tok.Value,
		UserID:    user.ID,
		Username:  user.Username,
		ExpiresAt: tok.ExpiresAt,
	}, nil
}

// Renew issues a fresh token for an identity taken from a verified token
func (s *Service) Renew(identity model.Identity) (token.Token, error) {
	return s.tokens.Issue(identity)
}

// Verify checks a raw token and returns its identity
func (s *Service) Verify(raw string) (model.Identity, error) {
	return s.tokens.Verify(raw)
}
