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

func newClients(t *testing.T, d driver.Driver) (*sessionpool.ClientRegistry, *clock) {
	t.Helper()
	clk := newClock()
	r, err := sessionpool.NewClientRegistry(d, testConfig(), sessionpool.WithClock(clk.Now))
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close(context.Background()) })
	return r, clk
}

func TestClientRegistry_Reuse(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	r, _ := newClients(t, d)
	ctx := context.Background()

	h1, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)
	h2, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, int64(1), d.Connects())
	assert.Equal(t, "db1:2424", h1.Key())
	assert.Equal(t, drivertest.Name, h1.Driver())
	assert.Equal(t, 1, r.Len())

	found, ok := r.Lookup(db1)
	require.True(t, ok)
	assert.Same(t, h1, found)
}

func TestClientRegistry_ConcurrentConnect(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	gate := drivertest.NewGate()
	d.HoldConnect(gate)
	r, _ := newClients(t, d)

	const callers = 32
	handles := make([]*sessionpool.ClientHandle, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i], errs[i] = r.ConnectOrReuse(context.Background(), db1, alice)
		}()
	}

	<-gate.Entered()
	time.Sleep(20 * time.Millisecond)
	gate.Release()
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, handles[0], handles[i])
	}
	assert.Equal(t, int64(1), d.Connects())
}

func TestClientRegistry_FailureNotCached(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	d.FailConnect(errors.New("connection refused"))
	r, _ := newClients(t, d)
	ctx := context.Background()

	_, err := r.ConnectOrReuse(ctx, db1, alice)
	require.ErrorIs(t, err, sessionpool.ErrConnectionFailed)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 0, r.Len())

	d.FailConnect(nil)
	h, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int64(2), d.Connects())
}

func TestClientRegistry_BadCredentials(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	d.RequireCredentials("alice", "secret")
	r, _ := newClients(t, d)

	_, err := r.ConnectOrReuse(context.Background(), db1, driver.Credentials{Username: "alice", Password: "wrong"})
	require.ErrorIs(t, err, sessionpool.ErrConnectionFailed)
	assert.ErrorIs(t, err, driver.ErrAuthFailed)
	assert.Equal(t, 0, r.Len())
}

func TestClientRegistry_CredentialsMismatch(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	r, _ := newClients(t, d)
	ctx := context.Background()

	_, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)

	_, err = r.ConnectOrReuse(ctx, db1, driver.Credentials{Username: "alice", Password: "guess"})
	assert.ErrorIs(t, err, sessionpool.ErrCredentialsMismatch)

	_, err = r.ConnectOrReuse(ctx, db1, driver.Credentials{Username: "alicesecret"})
	assert.ErrorIs(t, err, sessionpool.ErrCredentialsMismatch)

	assert.Equal(t, int64(1), d.Connects())
}

func TestClientRegistry_MismatchLastsUntilExpiry(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	r, clk := newClients(t, d)
	ctx := context.Background()
	bob := driver.Credentials{Username: "bob", Password: "hunter2"}

	_, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)

	_, err = r.ConnectOrReuse(ctx, db1, bob)
	assert.ErrorIs(t, err, sessionpool.ErrCredentialsMismatch)

	clk.Advance(23 * time.Hour)
	_, err = r.ConnectOrReuse(ctx, db1, bob)
	assert.ErrorIs(t, err, sessionpool.ErrCredentialsMismatch)
	assert.Equal(t, int64(1), d.Connects())

	clk.Advance(time.Hour + time.Second)
	h, err := r.ConnectOrReuse(ctx, db1, bob)
	require.NoError(t, err)
	assert.False(t, h.Closed())
	assert.Equal(t, int64(2), d.Connects())

	_, err = r.ConnectOrReuse(ctx, db1, alice)
	assert.ErrorIs(t, err, sessionpool.ErrCredentialsMismatch)
}

func TestClientRegistry_InvalidTarget(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	r, _ := newClients(t, d)

	tests := []struct {
		name   string
		target driver.Target
		creds  driver.Credentials
	}{
		{"missing host", driver.Target{Port: 2424}, alice},
		{"blank host", driver.Target{Host: "  ", Port: 2424}, alice},
		{"host with path", driver.Target{Host: "db1/x", Port: 2424}, alice},
		{"missing port", driver.Target{Host: "db1"}, alice},
		{"port out of range", driver.Target{Host: "db1", Port: 70000}, alice},
		{"missing username", db1, driver.Credentials{Password: "secret"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ConnectOrReuse(context.Background(), tt.target, tt.creds)
			assert.ErrorIs(t, err, sessionpool.ErrInvalidRequest)
		})
	}
	assert.Equal(t, int64(0), d.Connects())
}

func TestClientRegistry_ExpiryClosesConnection(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	r, clk := newClients(t, d)
	ctx := context.Background()

	h1, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)

	clk.Advance(24*time.Hour + time.Second)

	_, ok := r.Lookup(db1)
	assert.False(t, ok)
	assert.True(t, h1.Closed())
	assert.Eventually(t, func() bool { return d.ConnsClosed() == 1 }, time.Second, 5*time.Millisecond)

	h2, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assert.Equal(t, int64(2), d.Connects())
}

func TestClientRegistry_CallerCancelDoesNotAbortConnect(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	gate := drivertest.NewGate()
	d.HoldConnect(gate)
	r, _ := newClients(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := r.ConnectOrReuse(ctx, db1, alice)
		errCh <- err
	}()

	<-gate.Entered()
	cancel()
	assert.ErrorIs(t, <-errCh, context.Canceled)

	gate.Release()
	assert.Eventually(t, func() bool { return r.Len() == 1 }, time.Second, 5*time.Millisecond)

	_, err := r.ConnectOrReuse(context.Background(), db1, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Connects())
}

func TestClientRegistry_Close(t *testing.T) {
	t.Parallel()
	d := drivertest.New("mydb")
	r, _ := newClients(t, d)
	ctx := context.Background()

	_, err := r.ConnectOrReuse(ctx, db1, alice)
	require.NoError(t, err)
	_, err = r.ConnectOrReuse(ctx, driver.Target{Host: "db2", Port: 2424}, alice)
	require.NoError(t, err)

	require.NoError(t, r.Close(ctx))
	assert.Equal(t, int64(2), d.ConnsClosed())
	assert.Equal(t, 0, r.Len())

	_, err = r.ConnectOrReuse(ctx, db1, alice)
	assert.ErrorIs(t, err, sessionpool.ErrRegistryClosed)
	assert.NoError(t, r.Close(ctx))
}
