package sessionpool_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/driver/drivertest"
	"github.com/dmitrymomot/dbgate/pkg/sessionpool"
)

type poolFixture struct {
	driver  *drivertest.Driver
	clients *sessionpool.ClientRegistry
	pools   *sessionpool.PoolRegistry
	clock   *clock
}

func newPoolFixture(t *testing.T, cfg sessionpool.Config) *poolFixture {
	t.Helper()
	f := &poolFixture{driver: drivertest.New("mydb", "other"), clock: newClock()}

	var err error
	f.clients, err = sessionpool.NewClientRegistry(f.driver, cfg, sessionpool.WithClock(f.clock.Now))
	require.NoError(t, err)
	f.pools, err = sessionpool.NewPoolRegistry(cfg, sessionpool.WithClock(f.clock.Now))
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		_ = f.pools.Close(ctx)
		_ = f.clients.Close(ctx)
	})
	return f
}

func (f *poolFixture) handle(t *testing.T) *sessionpool.ClientHandle {
	t.Helper()
	h, err := f.clients.ConnectOrReuse(context.Background(), db1, alice)
	require.NoError(t, err)
	return h
}

func TestPoolRegistry_GetOrCreate(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	h := f.handle(t)
	ctx := context.Background()

	p1, err := f.pools.GetOrCreate(ctx, h, "mydb")
	require.NoError(t, err)
	p2, err := f.pools.GetOrCreate(ctx, h, "mydb")
	require.NoError(t, err)
	other, err := f.pools.GetOrCreate(ctx, h, "other")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.NotSame(t, p1, other)
	assert.Equal(t, "db1:2424/mydb", p1.Key())
	assert.Equal(t, int32(10), p1.MaxSize())
	assert.Same(t, h, p1.Handle())
	assert.Equal(t, 2, f.pools.Len())
	assert.Equal(t, int64(2), f.driver.SessionsOpened())

	snap := f.pools.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "db1:2424/mydb", snap[0].Key)
	assert.Equal(t, "db1:2424/other", snap[1].Key)
	assert.Equal(t, int32(1), snap[0].Idle)
	assert.Equal(t, int32(0), snap[0].InUse)
}

func TestPoolRegistry_ConcurrentBuild(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	h := f.handle(t)
	gate := drivertest.NewGate()
	f.driver.HoldOpen(gate)

	const callers = 32
	pools := make([]*sessionpool.Pool, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pools[i], errs[i] = f.pools.GetOrCreate(context.Background(), h, "mydb")
		}()
	}

	<-gate.Entered()
	time.Sleep(20 * time.Millisecond)
	gate.Release()
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, pools[0], pools[i])
	}
	assert.Equal(t, int64(1), f.driver.SessionsOpened())
	assert.Equal(t, 1, f.pools.Len())
}

func TestPoolRegistry_CreationFailure(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	h := f.handle(t)
	ctx := context.Background()

	_, err := f.pools.GetOrCreate(ctx, h, "missing")
	require.ErrorIs(t, err, sessionpool.ErrPoolCreationFailed)
	assert.ErrorIs(t, err, driver.ErrDatabaseNotFound)
	assert.Equal(t, 0, f.pools.Len())

	f.driver.FailOpen(errors.New("server busy"))
	_, err = f.pools.GetOrCreate(ctx, h, "mydb")
	require.ErrorIs(t, err, sessionpool.ErrPoolCreationFailed)
	assert.Equal(t, 0, f.pools.Len())

	f.driver.FailOpen(nil)
	p, err := f.pools.GetOrCreate(ctx, h, "mydb")
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestPoolRegistry_InvalidInput(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	h := f.handle(t)
	ctx := context.Background()

	_, err := f.pools.GetOrCreate(ctx, nil, "mydb")
	assert.ErrorIs(t, err, sessionpool.ErrInvalidRequest)

	_, err = f.pools.GetOrCreate(ctx, h, " ")
	assert.ErrorIs(t, err, sessionpool.ErrInvalidRequest)
	assert.Equal(t, int64(0), f.driver.SessionsOpened())
}

func TestPoolRegistry_Bounded(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.PoolMaxSize = 2
	f := newPoolFixture(t, cfg)
	ctx := context.Background()

	p, err := f.pools.GetOrCreate(ctx, f.handle(t), "mydb")
	require.NoError(t, err)

	l1, err := p.Acquire(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	l2, err := p.Acquire(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.NotEqual(t, l1.ID(), l2.ID())
	assert.Equal(t, int32(2), p.Stats().InUse)

	_, err = p.Acquire(ctx, 50*time.Millisecond)
	require.ErrorIs(t, err, sessionpool.ErrPoolExhausted)

	require.NoError(t, l1.Release())
	l3, err := p.Acquire(ctx, 50*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, l2.Release())
	require.NoError(t, l3.Release())
	assert.Equal(t, int32(0), p.Stats().InUse)
	assert.Equal(t, int64(2), f.driver.SessionsOpened())
}

func TestPoolRegistry_AcquireCanceled(t *testing.T) {
	t.Parallel()
	cfg := testConfig()
	cfg.PoolMaxSize = 1
	f := newPoolFixture(t, cfg)

	p, err := f.pools.GetOrCreate(context.Background(), f.handle(t), "mydb")
	require.NoError(t, err)
	held, err := p.Acquire(context.Background(), time.Second)
	require.NoError(t, err)
	defer held.Release()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	_, err = p.Acquire(ctx, 5*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, sessionpool.ErrPoolExhausted)
}

func TestPoolRegistry_Expiry(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	h := f.handle(t)
	ctx := context.Background()

	p1, err := f.pools.GetOrCreate(ctx, h, "mydb")
	require.NoError(t, err)
	lease, err := p1.Acquire(ctx, time.Second)
	require.NoError(t, err)

	f.clock.Advance(31 * time.Minute)

	_, ok := f.pools.Lookup(p1.Key())
	assert.False(t, ok)
	assert.True(t, p1.Expired())

	_, err = lease.Session()
	assert.ErrorIs(t, err, sessionpool.ErrLeaseExpired)
	_, err = p1.Acquire(ctx, time.Second)
	assert.ErrorIs(t, err, sessionpool.ErrPoolExpired)

	p2, err := f.pools.GetOrCreate(ctx, h, "mydb")
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)

	assert.Equal(t, int64(0), f.driver.SessionsClosed())
	require.NoError(t, lease.Release())
	assert.Eventually(t, func() bool { return f.driver.SessionsClosed() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPoolRegistry_ClosedHandleIsMiss(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	ctx := context.Background()

	h1 := f.handle(t)
	p1, err := f.pools.GetOrCreate(ctx, h1, "mydb")
	require.NoError(t, err)

	// Client TTL runs out while the pool TTL has not.
	f.clock.Advance(24*time.Hour + time.Second)
	_, ok := f.clients.Lookup(db1)
	require.False(t, ok)

	_, err = f.pools.GetOrCreate(ctx, h1, "mydb")
	assert.ErrorIs(t, err, sessionpool.ErrConnectionFailed)

	h2 := f.handle(t)
	p2, err := f.pools.GetOrCreate(ctx, h2, "mydb")
	require.NoError(t, err)
	assert.NotSame(t, p1, p2)
	assert.True(t, p1.Expired())
	assert.Same(t, h2, p2.Handle())
}

func TestPoolRegistry_JoinedStaleBuildIsRetried(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	ctx := context.Background()
	gate := drivertest.NewGate()
	f.driver.HoldOpen(gate)

	h1 := f.handle(t)
	staleDone := make(chan struct{})
	go func() {
		defer close(staleDone)
		_, _ = f.pools.GetOrCreate(ctx, h1, "mydb")
	}()
	<-gate.Entered()

	f.clock.Advance(24*time.Hour + time.Second)
	h2 := f.handle(t)
	require.NotSame(t, h1, h2)
	require.True(t, h1.Closed())

	type result struct {
		pool *sessionpool.Pool
		err  error
	}
	fresh := make(chan result, 1)
	go func() {
		p, err := f.pools.GetOrCreate(ctx, h2, "mydb")
		fresh <- result{p, err}
	}()

	// Give the second caller time to join the flight held on h1.
	time.Sleep(20 * time.Millisecond)
	gate.Release()
	<-staleDone

	res := <-fresh
	require.NoError(t, res.err)
	assert.Same(t, h2, res.pool.Handle())

	p, ok := f.pools.Lookup("db1:2424/mydb")
	require.True(t, ok)
	assert.Same(t, res.pool, p)
}

func TestLease_ReleaseOnce(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	ctx := context.Background()

	p, err := f.pools.GetOrCreate(ctx, f.handle(t), "mydb")
	require.NoError(t, err)
	lease, err := p.Acquire(ctx, time.Second)
	require.NoError(t, err)

	assert.Equal(t, "db1:2424/mydb", lease.PoolKey())
	assert.Equal(t, "mydb", lease.Database())
	assert.Equal(t, f.clock.Now(), lease.AcquiredAt())

	sess, err := lease.Session()
	require.NoError(t, err)
	records, err := sess.Query(ctx, "SELECT FROM V", nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mydb", records[0]["database"])

	require.NoError(t, lease.Release())
	assert.ErrorIs(t, lease.Release(), sessionpool.ErrInternalLease)
	assert.ErrorIs(t, lease.Discard(), sessionpool.ErrInternalLease)
	_, err = lease.Session()
	assert.ErrorIs(t, err, sessionpool.ErrInternalLease)

	stats := p.Stats()
	assert.Equal(t, int32(0), stats.InUse)
	assert.Equal(t, int32(1), stats.Idle)
}

func TestLease_Discard(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	ctx := context.Background()

	p, err := f.pools.GetOrCreate(ctx, f.handle(t), "mydb")
	require.NoError(t, err)
	lease, err := p.Acquire(ctx, time.Second)
	require.NoError(t, err)

	require.NoError(t, lease.Discard())
	assert.Eventually(t, func() bool { return f.driver.SessionsClosed() == 1 }, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return p.Stats().Total == 0 }, time.Second, 5*time.Millisecond)
}

func TestPoolRegistry_Close(t *testing.T) {
	t.Parallel()
	f := newPoolFixture(t, testConfig())
	ctx := context.Background()

	p, err := f.pools.GetOrCreate(ctx, f.handle(t), "mydb")
	require.NoError(t, err)
	lease, err := p.Acquire(ctx, time.Second)
	require.NoError(t, err)

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.pools.Close(short), context.DeadlineExceeded)

	require.NoError(t, lease.Release())
	assert.Eventually(t, func() bool { return f.driver.SessionsClosed() == 1 }, time.Second, 5*time.Millisecond)

	_, err = f.pools.GetOrCreate(ctx, f.handle(t), "mydb")
	assert.ErrorIs(t, err, sessionpool.ErrRegistryClosed)
}
