package neo4j

import "time"

// Config holds Neo4j driver settings.
type Config struct {
	// Scheme is the URI scheme: neo4j, neo4j+s, bolt or bolt+s.
	Scheme                  string        `env:"NEO4J_SCHEME" envDefault:"neo4j"`
	MaxConnectionPoolSize   int           `env:"NEO4J_MAX_POOL_SIZE" envDefault:"50"`
	ConnectionTimeout       time.Duration `env:"NEO4J_CONNECTION_TIMEOUT" envDefault:"30s"`
	MaxTransactionRetryTime time.Duration `env:"NEO4J_MAX_TX_RETRY_TIME" envDefault:"15s"`
	RetryAttempts           int           `env:"NEO4J_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval           time.Duration `env:"NEO4J_RETRY_INTERVAL" envDefault:"500ms"`
}

// DefaultConfig returns the same values as the env defaults.
func DefaultConfig() Config {
	return Config{
		Scheme:                  "neo4j",
		MaxConnectionPoolSize:   50,
		ConnectionTimeout:       30 * time.Second,
		MaxTransactionRetryTime: 15 * time.Second,
		RetryAttempts:           3,
		RetryInterval:           500 * time.Millisecond,
	}
}
