// Package config loads server settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageSQL    = "sql"
	StorageRedis  = "redis"
)

// Event backends
const (
	EventsNone  = "none"
	EventsLog   = "log"
	EventsRedis = "redis"
	EventsNATS  = "nats"
)

// developmentSecret signs tokens when APP_ENV=development and no secret is set
const developmentSecret = "dev-secret-change-me"

// Config is the complete server configuration
type Config struct {
	Env       string
	HTTP      HTTPConfig
	Log       LogConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Events    EventsConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Admin     AdminConfig
	Rooms     RoomsConfig
}

type HTTPConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type LogConfig struct {
	Level  slog.Level
	Format string // json or text
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

type StorageConfig struct {
	Type         string
	DBDriver     string
	DatabaseURL  string
	MaxOpenConns int
	MaxIdleConns int
	RedisURL     string
}

type EventsConfig struct {
	Backend   string
	Namespace string
	NATSURL   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

type AdminConfig struct {
	Seed     bool
	Username string
	Password string
}

type RoomsConfig struct {
	DefaultCapacity int
}

// IsDevelopment reports whether APP_ENV=development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("HTTP_HOST", "")
	v.SetDefault("HTTP_PORT", 8080)
	v.SetDefault("HTTP_READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TOKEN_TTL", time.Hour)
	v.SetDefault("BCRYPT_COST", 8)
	v.SetDefault("STORAGE_TYPE", StorageMemory)
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_URL", "roomhost.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_URL", "redis://localhost:6379")
	v.SetDefault("EVENTS_BACKEND", EventsLog)
	v.SetDefault("EVENTS_NAMESPACE", "roomhost")
	v.SetDefault("NATS_URL", "nats://127.0.0.1:4222")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 5.0)
	v.SetDefault("RATE_LIMIT_BURST", 10)
	v.SetDefault("SEED_ADMIN", false)
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin")
	v.SetDefault("DEFAULT_ROOM_CAPACITY", 5)
}

// Load reads ENV_FILE (default .env) if present, then the process environment
func Load() (*Config, error) {
	envFile := viper.New()
	envFile.AutomaticEnv()
	envFile.SetDefault("ENV_FILE", ".env")
	if err := godotenv.Load(envFile.GetString("ENV_FILE")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Env: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:            v.GetString("HTTP_HOST"),
			Port:            v.GetInt("HTTP_PORT"),
			ReadTimeout:     v.GetDuration("HTTP_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("HTTP_WRITE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("HTTP_SHUTDOWN_TIMEOUT"),
		},
		Log: LogConfig{
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
		Auth: AuthConfig{
			JWTSecret:  v.GetString("JWT_SECRET"),
			TokenTTL:   v.GetDuration("TOKEN_TTL"),
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
		Storage: StorageConfig{
			Type:         strings.ToLower(v.GetString("STORAGE_TYPE")),
			DBDriver:     strings.ToLower(v.GetString("DB_DRIVER")),
			DatabaseURL:  v.GetString("DATABASE_URL"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			RedisURL:     v.GetString("REDIS_URL"),
		},
		Events: EventsConfig{
			Backend:   strings.ToLower(v.GetString("EVENTS_BACKEND")),
			Namespace: v.GetString("EVENTS_NAMESPACE"),
			NATSURL:   v.GetString("NATS_URL"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		Admin: AdminConfig{
			Seed:     v.GetBool("SEED_ADMIN"),
			Username: v.GetString("ADMIN_USERNAME"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
		Rooms: RoomsConfig{
			DefaultCapacity: v.GetInt("DEFAULT_ROOM_CAPACITY"),
		},
	}

	if err := cfg.Log.Level.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if cfg.Auth.JWTSecret == "" && cfg.IsDevelopment() {
		cfg.Auth.JWTSecret = developmentSecret
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required unless APP_ENV=development"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("HTTP_PORT %d out of range", c.HTTP.Port))
	}

	switch c.Storage.Type {
	case StorageMemory, StorageRedis:
	case StorageSQL:
		if c.Storage.DBDriver != "postgres" && c.Storage.DBDriver != "sqlite" {
			errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.Storage.DBDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_TYPE must be memory, sql or redis, got %q", c.Storage.Type))
	}

	switch c.Events.Backend {
	case EventsNone, EventsLog, EventsRedis, EventsNATS:
	default:
		errs = append(errs, fmt.Errorf("EVENTS_BACKEND must be none, log, redis or nats, got %q", c.Events.Backend))
	}

	switch c.Log.Format {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format))
	}

	if c.Rooms.DefaultCapacity <= 0 {
		errs = append(errs, errors.New("DEFAULT_ROOM_CAPACITY must be positive"))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
