package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/roomhost/internal/dependencies/clock"
	"github.com/mcoot/roomhost/internal/dependencies/random"
	"github.com/mcoot/roomhost/internal/model"
)

// Errors
var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingKey   = errors.New("token signing key is empty")
)

// Token is a signed bearer token and the moment it stops being accepted
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Claims is the JWT payload carried by every token
type Claims struct {
	UserID   model.UserID `json:"userId"`
	Username string       `json:"username"`
	jwt.RegisteredClaims
}

// Config holds configuration for the token service
type Config struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string
}

// DefaultConfig returns default token configuration without a key
func DefaultConfig() Config {
	return Config{
		TTL:    time.Hour,
		Issuer: "roomhost",
	}
}

// Service issues and verifies HS256 session tokens
type Service struct {
	key    []byte
	ttl    time.Duration
	issuer string
	clock  clock.Clock
	random random.Random
}

// New creates a new token Service
func New(cfg Config, clock clock.Clock, random random.Random) (*Service, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, ErrMissingKey
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	return &Service{
		key:    cfg.SigningKey,
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		clock:  clock,
		random: random,
	}, nil
}

// TTL returns how long an issued token stays valid
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue signs a fresh token for the identity, expiring TTL from now
func (s *Service) Issue(identity model.Identity) (Token, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.ttl)

	claims := Claims{
		UserID:   identity.UserID,
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        s.random.UUID(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return Token{}, err
	}

	// NumericDate truncates to seconds; report what the token actually says
	return Token{Value: signed, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks the signature and expiry and returns the identity in the token
func (s *Service) Verify(raw string) (model.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	if claims.UserID == 0 || claims.Username == "" {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{UserID: claims.UserID, Username: claims.Username}, nil
}
