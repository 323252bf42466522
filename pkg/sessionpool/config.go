package sessionpool

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the pool manager tunables.
type Config struct {
	// ClientTTL is also how long a host stays bound to the credentials that
	// first connected to it. Lower it when several users share one host.
	ClientTTL       time.Duration `env:"DBGATE_CLIENT_TTL" envDefault:"24h"`
	PoolTTL         time.Duration `env:"DBGATE_POOL_TTL" envDefault:"30m"`
	PoolMaxSize     int32         `env:"DBGATE_POOL_MAX_SIZE" envDefault:"10"`
	AcquireTimeout  time.Duration `env:"DBGATE_ACQUIRE_TIMEOUT" envDefault:"5s"`
	ConnectTimeout  time.Duration `env:"DBGATE_CONNECT_TIMEOUT" envDefault:"10s"`
	CleanupInterval time.Duration `env:"DBGATE_CLEANUP_INTERVAL" envDefault:"1m"`
}

// DefaultConfig returns the same values as the env defaults.
func DefaultConfig() Config {
	return Config{
		ClientTTL:       24 * time.Hour,
		PoolTTL:         30 * time.Minute,
		PoolMaxSize:     10,
		AcquireTimeout:  5 * time.Second,
		ConnectTimeout:  10 * time.Second,
		CleanupInterval: time.Minute,
	}
}

// Validate checks that every value is usable. CleanupInterval may be zero,
// which disables proactive eviction.
func (c Config) Validate() error {
	var errs []error
	if c.ClientTTL <= 0 {
		errs = append(errs, fmt.Errorf("client ttl must be positive, got %s", c.ClientTTL))
	}
	if c.PoolTTL <= 0 {
		errs = append(errs, fmt.Errorf("pool ttl must be positive, got %s", c.PoolTTL))
	}
	if c.PoolMaxSize <= 0 {
		errs = append(errs, fmt.Errorf("pool max size must be positive, got %d", c.PoolMaxSize))
	}
	if c.AcquireTimeout <= 0 {
		errs = append(errs, fmt.Errorf("acquire timeout must be positive, got %s", c.AcquireTimeout))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect timeout must be positive, got %s", c.ConnectTimeout))
	}
	if c.CleanupInterval < 0 {
		errs = append(errs, fmt.Errorf("cleanup interval must not be negative, got %s", c.CleanupInterval))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
}
