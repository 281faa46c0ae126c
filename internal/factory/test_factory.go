package factory

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/roomhost/internal/dependencies/mocks"
	"github.com/mcoot/roomhost/internal/events"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/services/room"
	"github.com/mcoot/roomhost/internal/services/token"
	"github.com/mcoot/roomhost/internal/storage/memory"
)

// TestSigningKey signs tokens issued by a TestApp
const TestSigningKey = "test-signing-key"

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
	Events     *RecordingPublisher
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()
	recorder := &RecordingPublisher{}

	tokenCfg := token.DefaultConfig()
	tokenCfg.SigningKey = []byte(TestSigningKey)
	svc := Services{
		Token: tokenCfg,
		Auth:  auth.Config{BcryptCost: bcrypt.MinCost},
		Rooms: room.DefaultConfig(),
	}

	app, err := newWithDependencies(store, recorder, mockClock, mockRandom, svc, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		// only reachable with an empty signing key
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
		Events:     recorder,
	}
}

// RecordingPublisher keeps every published event in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *RecordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Types returns the types of the recorded events in publish order
func (p *RecordingPublisher) Types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]events.Type, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}
