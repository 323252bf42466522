package postgres

import "time"

// Config holds PostgreSQL connection settings.
type Config struct {
	// MaintenanceDB is the database the host connection is opened against.
	MaintenanceDB     string        `env:"PG_MAINTENANCE_DB" envDefault:"postgres"`
	SSLMode           string        `env:"PG_SSLMODE" envDefault:"prefer"`
	MaxConns          int32         `env:"PG_HOST_MAX_CONNS" envDefault:"2"`
	HealthCheckPeriod time.Duration `env:"PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	RetryAttempts     int           `env:"PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval     time.Duration `env:"PG_RETRY_INTERVAL" envDefault:"1s"`
}

// DefaultConfig returns the same values as the env defaults.
func DefaultConfig() Config {
	return Config{
		MaintenanceDB:     "postgres",
		SSLMode:           "prefer",
		MaxConns:          2,
		HealthCheckPeriod: time.Minute,
		RetryAttempts:     3,
		RetryInterval:     time.Second,
	}
}
