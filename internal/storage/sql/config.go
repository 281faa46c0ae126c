package sql

import "time"

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds database connection and pool settings
type Config struct {
	// Driver selects the gorm dialector ("postgres" or "sqlite")
	Driver string
	// DSN is the driver-specific connection string
	DSN string

	// Pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// ConnectAttempts bounds retries while the database comes up
	ConnectAttempts int

	// SlowQueryThreshold logs queries slower than this at warn level
	SlowQueryThreshold time.Duration
}

// DefaultConfig returns sensible defaults for a local sqlite database
func DefaultConfig() Config {
	return Config{
		Driver:             DriverSQLite,
		DSN:                "roomhost.db",
		MaxOpenConns:       20,
		MaxIdleConns:       5,
		ConnMaxLifetime:    time.Hour,
		ConnectAttempts:    10,
		SlowQueryThreshold: 500 * time.Millisecond,
	}
}
