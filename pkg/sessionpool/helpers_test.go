package sessionpool_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/driver/drivertest"
	"github.com/dmitrymomot/dbgate/pkg/sessionpool"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	db1   = driver.Target{Host: "db1", Port: 2424}
	alice = driver.Credentials{Username: "alice", Password: "secret"}
)

func testConfig() sessionpool.Config {
	cfg := sessionpool.DefaultConfig()
	cfg.CleanupInterval = 0
	cfg.AcquireTimeout = time.Second
	cfg.ConnectTimeout = 5 * time.Second
	return cfg
}

func request(database string) sessionpool.Request {
	return sessionpool.Request{Target: db1, Database: database, Credentials: alice}
}

func newManager(t *testing.T, d *drivertest.Driver, cfg sessionpool.Config, opts ...sessionpool.Option) (*sessionpool.Manager, *clock) {
	t.Helper()
	clk := newClock()
	opts = append([]sessionpool.Option{sessionpool.WithClock(clk.Now)}, opts...)
	m, err := sessionpool.New(d, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, m.Close(ctx))
	})
	return m, clk
}
