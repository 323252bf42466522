package orientdb

import "time"

// Config holds OrientDB REST client settings.
type Config struct {
	// Scheme is "http" or "https".
	Scheme string `env:"ORIENTDB_SCHEME" envDefault:"http"`
	// RequestTimeout bounds every REST call.
	RequestTimeout time.Duration `env:"ORIENTDB_REQUEST_TIMEOUT" envDefault:"30s"`
	// RetryAttempts is the number of connect attempts for unreachable servers.
	RetryAttempts int           `env:"ORIENTDB_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"ORIENTDB_RETRY_INTERVAL" envDefault:"1s"`
	// Language is the command language used by Query.
	Language string `env:"ORIENTDB_QUERY_LANGUAGE" envDefault:"sql"`
}

// DefaultConfig mirrors the env defaults.
func DefaultConfig() Config {
	return Config{
		Scheme:         "http",
		RequestTimeout: 30 * time.Second,
		RetryAttempts:  3,
		RetryInterval:  time.Second,
		Language:       "sql",
	}
}
