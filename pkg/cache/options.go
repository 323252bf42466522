package cache

import "time"

type options struct {
	cleanupInterval time.Duration
	now             func() time.Time
}

func defaultOptions() *options {
	return &options{
		cleanupInterval: DefaultCleanupInterval,
		now:             time.Now,
	}
}

// Option configures a TTL cache.
type Option func(*options)

// WithCleanupInterval sets how often expired entries are swept proactively.
// Zero disables the janitor; expiration is then enforced on read only.
func WithCleanupInterval(d time.Duration) Option {
	if d < 0 {
		panic("WithCleanupInterval: interval must be >= 0")
	}
	return func(o *options) { o.cleanupInterval = d }
}

// WithClock replaces time.Now as the source of the current time.
func WithClock(now func() time.Time) Option {
	if now == nil {
		panic("WithClock: nil clock")
	}
	return func(o *options) { o.now = now }
}
