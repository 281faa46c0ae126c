package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mcoot/roomhost/internal/config"
	"github.com/mcoot/roomhost/internal/dependencies/clock"
	"github.com/mcoot/roomhost/internal/dependencies/random"
	"github.com/mcoot/roomhost/internal/events"
	natsevents "github.com/mcoot/roomhost/internal/events/nats"
	redisevents "github.com/mcoot/roomhost/internal/events/redis"
	"github.com/mcoot/roomhost/internal/metrics"
	"github.com/mcoot/roomhost/internal/services/auth"
	"github.com/mcoot/roomhost/internal/services/room"
	"github.com/mcoot/roomhost/internal/services/token"
	"github.com/mcoot/roomhost/internal/services/user"
	"github.com/mcoot/roomhost/internal/storage"
	"github.com/mcoot/roomhost/internal/storage/memory"
	redisstorage "github.com/mcoot/roomhost/internal/storage/redis"
	sqlstorage "github.com/mcoot/roomhost/internal/storage/sql"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock     clock.Clock
	Random    random.Random
	Publisher events.Publisher
	Metrics   *metrics.Metrics

	// Services
	TokenService   *token.Service
	AuthService    *auth.Service
	UserService    *user.Service
	RoomController *room.Controller

	logger  *slog.Logger
	closers []io.Closer
}

// Services holds the service settings taken from configuration
type Services struct {
	Token token.Config
	Auth  auth.Config
	Rooms room.Config
}

// ServicesFromConfig maps application configuration onto service settings
func ServicesFromConfig(cfg *config.Config) Services {
	tokenCfg := token.DefaultConfig()
	tokenCfg.SigningKey = []byte(cfg.Auth.JWTSecret)
	if cfg.Auth.TokenTTL > 0 {
		tokenCfg.TTL = cfg.Auth.TokenTTL
	}

	authCfg := auth.DefaultConfig()
	if cfg.Auth.BcryptCost > 0 {
		authCfg.BcryptCost = cfg.Auth.BcryptCost
	}

	roomCfg := room.DefaultConfig()
	if cfg.Rooms.DefaultCapacity > 0 {
		roomCfg.DefaultCapacity = cfg.Rooms.DefaultCapacity
	}

	return Services{Token: tokenCfg, Auth: authCfg, Rooms: roomCfg}
}

// New creates a new application with all dependencies wired from configuration
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	store, err := newStorage(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	closers = append(closers, store)

	publisher, closer, err := newPublisher(cfg, store, logger)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("events: %w", err)
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	m := metrics.New()
	app, err := newWithDependencies(store, m.CountPublished(publisher), clock.New(), random.New(), ServicesFromConfig(cfg), logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	app.Metrics = m
	app.closers = closers
	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	publisher events.Publisher,
	clk clock.Clock,
	rnd random.Random,
	svc Services,
	logger *slog.Logger,
) (*App, error) {
	tokenService, err := token.New(svc.Token, clk, rnd)
	if err != nil {
		return nil, err
	}
	authService := auth.New(store, tokenService, clk, logger, svc.Auth)
	userService := user.New(store, authService, clk, logger)
	roomController := room.NewController(store, publisher, clk, rnd, logger, svc.Rooms)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Publisher:      publisher,
		TokenService:   tokenService,
		AuthService:    authService,
		UserService:    userService,
		RoomController: roomController,
		logger:         logger,
	}, nil
}

// SeedAdmin creates the admin account when it does not exist yet
func (a *App) SeedAdmin(ctx context.Context, admin config.AdminConfig) error {
	if !admin.Seed {
		return nil
	}
	created, err := a.UserService.EnsureUser(ctx, admin.Username, admin.Password)
	if err != nil {
		return fmt.Errorf("seeding admin user: %w", err)
	}
	if created {
		a.logger.Info("admin user created", slog.String("username", admin.Username))
	}
	return nil
}

// Close releases the event transport and the storage backend
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func newStorage(cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Type {
	case "", config.StorageMemory:
		return memory.New(), nil
	case config.StorageSQL:
		sqlCfg := sqlstorage.DefaultConfig()
		sqlCfg.Driver = cfg.DBDriver
		sqlCfg.DSN = cfg.DatabaseURL
		if cfg.MaxOpenConns > 0 {
			sqlCfg.MaxOpenConns = cfg.MaxOpenConns
		}
		if cfg.MaxIdleConns > 0 {
			sqlCfg.MaxIdleConns = cfg.MaxIdleConns
		}
		return sqlstorage.New(sqlCfg, logger)
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.RedisURL
		return redisstorage.New(redisCfg)
	default:
		return nil, fmt.Errorf("invalid storage type %q: must be 'memory', 'sql' or 'redis'", cfg.Type)
	}
}

// newPublisher returns the configured event publisher and, when it owns a
// connection, the closer for it
func newPublisher(cfg *config.Config, store storage.Storage, logger *slog.Logger) (events.Publisher, io.Closer, error) {
	switch cfg.Events.Backend {
	case "", config.EventsNone:
		return events.Nop, nil, nil
	case config.EventsLog:
		return events.NewLogPublisher(logger), nil, nil
	case config.EventsRedis:
		// share the store's client when both live in redis
		if rs, ok := store.(*redisstorage.Storage); ok {
			return redisevents.NewPublisher(rs.Client(), cfg.Events.Namespace), nil, nil
		}
		opts, err := goredis.ParseURL(cfg.Storage.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		client := goredis.NewClient(opts)
		return redisevents.NewPublisher(client, cfg.Events.Namespace), client, nil
	case config.EventsNATS:
		publisher, conn, err := natsevents.Connect(cfg.Events.NATSURL, cfg.Events.Namespace)
		if err != nil {
			return nil, nil, err
		}
		return publisher, closerFunc(func() error { return conn.Drain() }), nil
	default:
		return nil, nil, fmt.Errorf("invalid events backend %q", cfg.Events.Backend)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
