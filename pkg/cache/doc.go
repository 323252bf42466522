// Package cache provides a generic, thread-safe cache with per-entry
// time-to-live.
//
// Entries are evicted lazily on read and proactively by a janitor goroutine.
// Either way the read path upholds one rule: once an entry's deadline has
// passed it is absent, and a Get on it is indistinguishable from a Get on a
// key that was never set.
//
// # Usage
//
//	c := cache.NewTTL[string, *Conn](cache.WithCleanupInterval(time.Minute))
//	defer c.Close()
//
//	c.Set("db1:2424", conn, 24*time.Hour)
//
//	if conn, ok := c.Get("db1:2424"); ok {
//		// use conn
//	}
//
// # Resource Cleanup
//
// Values that hold resources (connections, pools, file handles) should be
// released from the eviction callback. The callback receives the reason the
// entry left the cache and is invoked outside the cache lock:
//
//	c.SetEvictCallback(func(key string, conn *Conn, reason cache.EvictReason) {
//		conn.Close()
//	})
//
// Close stops the janitor and clears the cache, so every remaining value is
// passed to the callback with ReasonCleared.
//
// # Testing
//
// WithClock injects a time source. Combined with WithCleanupInterval(0) and
// DeleteExpired it makes expiration fully deterministic.
package cache
