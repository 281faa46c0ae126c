package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mcoot/roomhost/internal/dependencies/mocks"
	"github.com/mcoot/roomhost/internal/model"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	random  *mocks.MockRandom
	service *Service
	alice   model.Identity
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.random = mocks.NewMockRandom()

	cfg := DefaultConfig()
	cfg.SigningKey = []byte("test-secret")

	var err error
	s.service, err = New(cfg, s.clock, s.random)
	s.Require().NoError(err)

	s.alice = model.Identity{UserID: 7, Username: "alice"}
}

func (s *ServiceSuite) TestIssueAndVerifyRoundTrip() {
	tok, err := s.service.Issue(s.alice)
	s.Require().NoError(err)
	s.NotEmpty(tok.Value)
	s.Equal(s.clock.Now().Add(time.Hour), tok.ExpiresAt)

	identity, err := s.service.Verify(tok.Value)
	s.Require().NoError(err)
	s.Equal(s.alice, identity)
}

func (s *ServiceSuite) TestTokenCarriesUserClaims() {
	s.random.QueueUUID("11111111-2222-4333-8444-555555555555")
	tok, err := s.service.Issue(s.alice)
	s.Require().NoError(err)

	claims := &Claims{}
	_, _, err = jwt.NewParser().ParseUnverified(tok.Value, claims)
	s.Require().NoError(err)
	s.Equal(model.UserID(7), claims.UserID)
	s.Equal("alice", claims.Username)
	s.Equal("11111111-2222-4333-8444-555555555555", claims.ID)
	s.Equal("roomhost", claims.Issuer)
}

func (s *ServiceSuite) TestVerifyRejectsExpiredToken() {
	tok, err := s.service.Issue(s.alice)
	s.Require().NoError(err)

	s.clock.Advance(time.Hour + time.Second)

	_, err = s.service.Verify(tok.Value)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestReissueSlidesExpiry() {
	first, err := s.service.Issue(s.alice)
	s.Require().NoError(err)

	s.clock.Advance(50 * time.Minute)
	second, err := s.service.Issue(s.alice)
	s.Require().NoError(err)

	s.clock.Advance(30 * time.Minute)

	_, err = s.service.Verify(first.Value)
	s.ErrorIs(err, ErrInvalidToken)

	identity, err := s.service.Verify(second.Value)
	s.Require().NoError(err)
	s.Equal(s.alice, identity)
}

func (s *ServiceSuite) TestVerifyRejectsWrongKey() {
	cfg := DefaultConfig()
	cfg.SigningKey = []byte("other-secret")
	other, err := New(cfg, s.clock, s.random)
	s.Require().NoError(err)

	tok, err := other.Issue(s.alice)
	s.Require().NoError(err)

	_, err = s.service.Verify(tok.Value)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyRejectsUnexpectedAlgorithm() {
	claims := Claims{
		UserID:   s.alice.UserID,
		Username: s.alice.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(s.clock.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	s.Require().NoError(err)

	_, err = s.service.Verify(unsigned)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyRejectsMissingClaims() {
	claims := jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(s.clock.Now().Add(time.Hour))}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	s.Require().NoError(err)

	_, err = s.service.Verify(signed)
	s.ErrorIs(err, ErrInvalidToken)
}

func (s *ServiceSuite) TestVerifyRejectsGarbage() {
	_, err := s.service.Verify("not-a-token")
	s.ErrorIs(err, ErrInvalidToken)
}

func TestNewRequiresSigningKey(t *testing.T) {
	_, err := New(DefaultConfig(), mocks.NewMockClock(time.Now()), mocks.NewMockRandom())
	require.ErrorIs(t, err, ErrMissingKey)
}
