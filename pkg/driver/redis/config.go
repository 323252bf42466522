package redis

import "time"

// Config holds Redis client settings.
type Config struct {
	DialTimeout   time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`   // DialTimeout is the timeout for establishing new connections.
	PoolSize      int           `env:"REDIS_POOL_SIZE" envDefault:"4"`       // PoolSize is the go-redis pool size of each client.
	ScanLimit     int           `env:"REDIS_SCAN_LIMIT" envDefault:"1000"`   // ScanLimit caps how many keys Collections inspects.
	RetryAttempts int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`  // RetryAttempts is the number of connect attempts.
	RetryInterval time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"1s"` // RetryInterval is the pause between connect attempts.
}

// DefaultConfig returns the same values as the env defaults.
func DefaultConfig() Config {
	return Config{
		DialTimeout:   5 * time.Second,
		PoolSize:      4,
		ScanLimit:     1000,
		RetryAttempts: 3,
		RetryInterval: time.Second,
	}
}
