package cache

import (
	"sync"
	"time"
)

// EvictReason tells an eviction callback why an entry left the cache.
type EvictReason string

const (
	ReasonExpired  EvictReason = "expired"
	ReasonDeleted  EvictReason = "deleted"
	ReasonReplaced EvictReason = "replaced"
	ReasonCleared  EvictReason = "cleared"
)

// EvictFunc is called for every entry that leaves the cache.
// It runs outside the cache lock, so it may block or call back into the cache.
type EvictFunc[K comparable, V any] func(key K, value V, reason EvictReason)

// DefaultCleanupInterval is how often the janitor sweeps expired entries.
const DefaultCleanupInterval = time.Minute

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

type evicted[K comparable, V any] struct {
	key    K
	value  V
	reason EvictReason
}

// TTL is a thread-safe cache where every entry carries its own expiration.
// Expired entries are never returned by Get, whether or not the janitor has
// swept them yet.
type TTL[K comparable, V any] struct {
	mu      sync.Mutex
	items   map[K]ttlEntry[V]
	onEvict EvictFunc[K, V]
	now     func() time.Time

	stop   chan struct{}
	done   chan struct{}
	closed bool
}

// NewTTL creates an empty cache. Unless WithCleanupInterval(0) is given,
// a janitor goroutine is started; call Close to stop it.
func NewTTL[K comparable, V any](opts ...Option) *TTL[K, V] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	c := &TTL[K, V]{
		items: make(map[K]ttlEntry[V]),
		now:   o.now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}

	if o.cleanupInterval > 0 {
		go c.janitor(o.cleanupInterval)
	} else {
		close(c.done)
	}

	return c
}

// SetEvictCallback sets the function invoked when entries leave the cache.
func (c *TTL[K, V]) SetEvictCallback(fn EvictFunc[K, V]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onEvict = fn
}

// Get returns the live value stored under key.
// An expired entry is removed on the spot and reported as missing.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	entry, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		var zero V
		return zero, false
	}

	if !c.now().Before(entry.expiresAt) {
		delete(c.items, key)
		fn := c.onEvict
		c.mu.Unlock()
		if fn != nil {
			fn(key, entry.value, ReasonExpired)
		}
		var zero V
		return zero, false
	}
	c.mu.Unlock()

	return entry.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores an entry that
// is already expired, which behaves exactly like Delete.
// A previous live value is handed to the eviction callback as replaced.
func (c *TTL[K, V]) Set(key K, value V, ttl time.Duration) {
	now := c.now()

	c.mu.Lock()
	old, existed := c.items[key]
	if ttl <= 0 {
		delete(c.items, key)
	} else {
		c.items[key] = ttlEntry[V]{value: value, expiresAt: now.Add(ttl)}
	}
	fn := c.onEvict
	c.mu.Unlock()

	if !existed || fn == nil {
		return
	}
	switch {
	case !now.Before(old.expiresAt):
		fn(key, old.value, ReasonExpired)
	case ttl <= 0:
		fn(key, old.value, ReasonDeleted)
	default:
		fn(key, old.value, ReasonReplaced)
	}
}

// Delete removes key. It reports whether a live entry was removed.
func (c *TTL[K, V]) Delete(key K) bool {
	c.mu.Lock()
	entry, ok := c.items[key]
	if ok {
		delete(c.items, key)
	}
	fn := c.onEvict
	c.mu.Unlock()

	if !ok {
		return false
	}

	live := c.now().Before(entry.expiresAt)
	if fn != nil {
		if live {
			fn(key, entry.value, ReasonDeleted)
		} else {
			fn(key, entry.value, ReasonExpired)
		}
	}
	return live
}

// Len returns the number of live entries.
func (c *TTL[K, V]) Len() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, entry := range c.items {
		if now.Before(entry.expiresAt) {
			n++
		}
	}
	return n
}

// Keys returns the keys of all live entries in no particular order.
func (c *TTL[K, V]) Keys() []K {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]K, 0, len(c.items))
	for key, entry := range c.items {
		if now.Before(entry.expiresAt) {
			keys = append(keys, key)
		}
	}
	return keys
}

// DeleteExpired sweeps every expired entry and returns how many were removed.
// The janitor calls it periodically; tests with a fake clock call it directly.
func (c *TTL[K, V]) DeleteExpired() int {
	now := c.now()

	c.mu.Lock()
	var out []evicted[K, V]
	for key, entry := range c.items {
		if !now.Before(entry.expiresAt) {
			delete(c.items, key)
			out = append(out, evicted[K, V]{key: key, value: entry.value, reason: ReasonExpired})
		}
	}
	fn := c.onEvict
	c.mu.Unlock()

	c.notify(fn, out)
	return len(out)
}

// Clear removes all entries, reporting each one to the eviction callback.
func (c *TTL[K, V]) Clear() {
	c.mu.Lock()
	out := make([]evicted[K, V], 0, len(c.items))
	for key, entry := range c.items {
		out = append(out, evicted[K, V]{key: key, value: entry.value, reason: ReasonCleared})
	}
	c.items = make(map[K]ttlEntry[V])
	fn := c.onEvict
	c.mu.Unlock()

	c.notify(fn, out)
}

// Close stops the janitor and clears the cache. It is safe to call repeatedly.
func (c *TTL[K, V]) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stop)
	<-c.done
	c.Clear()
	return nil
}

func (c *TTL[K, V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-ticker.C:
			c.DeleteExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *TTL[K, V]) notify(fn EvictFunc[K, V], out []evicted[K, V]) {
	if fn == nil {
		return
	}
	for _, e := range out {
		fn(e.key, e.value, e.reason)
	}
}
