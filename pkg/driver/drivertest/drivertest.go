// Package drivertest provides an in-memory driver.Driver for tests.
//
// The fake counts every connect, session open and close, can be told to fail,
// and can hold a call at its suspension point with a Gate so tests can force
// the interleavings that concurrent registries must survive.
package drivertest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// Name is the identifier reported by the fake driver.
const Name = "fake"

// Gate holds calls until Release is called.
type Gate struct {
	entered   chan struct{}
	release   chan struct{}
	enterOnce sync.Once
	relOnce   sync.Once
}

// NewGate returns a closed-door gate.
func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// Entered is closed once the first call reaches the gate.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets every held and future call through.
func (g *Gate) Release() { g.relOnce.Do(func() { close(g.release) }) }

func (g *Gate) wait(ctx context.Context) error {
	g.enterOnce.Do(func() { close(g.entered) })
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Driver is a configurable fake database server family.
type Driver struct {
	mu          sync.Mutex
	databases   []string
	collections []string
	username    string
	password    string
	connectErr  error
	openErr     error
	listErr     error
	connectGate *Gate
	openGate    *Gate

	connects       atomic.Int64
	connsClosed    atomic.Int64
	sessionsOpened atomic.Int64
	sessionsClosed atomic.Int64
	queries        atomic.Int64
}

// New returns a fake whose servers all expose the given databases.
func New(databases ...string) *Driver {
	return &Driver{
		databases:   databases,
		collections: []string{"V", "E"},
	}
}

// RequireCredentials makes Connect reject any other username/password pair.
func (d *Driver) RequireCredentials(username, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.username, d.password = username, password
}

// FailConnect makes subsequent Connect calls fail with err. Nil clears it.
func (d *Driver) FailConnect(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectErr = err
}

// FailOpen makes subsequent OpenSession calls fail with err. Nil clears it.
func (d *Driver) FailOpen(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openErr = err
}

// FailList makes subsequent ListDatabases calls fail with err. Nil clears it.
func (d *Driver) FailList(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listErr = err
}

// HoldConnect makes Connect wait on g before doing any work.
func (d *Driver) HoldConnect(g *Gate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connectGate = g
}

// HoldOpen makes OpenSession wait on g before doing any work.
func (d *Driver) HoldOpen(g *Gate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openGate = g
}

// Connects returns how many times Connect reached the server.
func (d *Driver) Connects() int64 { return d.connects.Load() }

// ConnsClosed returns how many connections were closed.
func (d *Driver) ConnsClosed() int64 { return d.connsClosed.Load() }

// SessionsOpened returns how many sessions were opened successfully.
func (d *Driver) SessionsOpened() int64 { return d.sessionsOpened.Load() }

// SessionsClosed returns how many sessions were closed.
func (d *Driver) SessionsClosed() int64 { return d.sessionsClosed.Load() }

// Queries returns how many statements were executed.
func (d *Driver) Queries() int64 { return d.queries.Load() }

func (d *Driver) Name() string { return Name }

func (d *Driver) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (driver.Conn, error) {
	d.mu.Lock()
	gate, fail := d.connectGate, d.connectErr
	user, pass := d.username, d.password
	d.mu.Unlock()

	if gate != nil {
		if err := gate.wait(ctx); err != nil {
			return nil, err
		}
	}

	d.connects.Add(1)

	if fail != nil {
		return nil, fail
	}
	if user != "" && (creds.Username != user || creds.Password != pass) {
		return nil, driver.ErrAuthFailed
	}

	return &conn{driver: d, target: target}, nil
}

type conn struct {
	driver *Driver
	target driver.Target
	closed atomic.Bool
	nextID atomic.Int64
}

func (c *conn) ListDatabases(ctx context.Context) ([]string, error) {
	if c.closed.Load() {
		return nil, driver.ErrUnreachable
	}
	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()
	if c.driver.listErr != nil {
		return nil, c.driver.listErr
	}
	return slices.Clone(c.driver.databases), nil
}

func (c *conn) OpenSession(ctx context.Context, database string) (driver.Session, error) {
	d := c.driver
	d.mu.Lock()
	gate, fail := d.openGate, d.openErr
	known := slices.Contains(d.databases, database)
	d.mu.Unlock()

	if gate != nil {
		if err := gate.wait(ctx); err != nil {
			return nil, err
		}
	}
	if c.closed.Load() {
		return nil, driver.ErrUnreachable
	}
	if fail != nil {
		return nil, fail
	}
	if !known {
		return nil, fmt.Errorf("%w: %s", driver.ErrDatabaseNotFound, database)
	}

	d.sessionsOpened.Add(1)
	return &session{
		conn:     c,
		database: database,
		id:       c.nextID.Add(1),
	}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return driver.ErrUnreachable
	}
	return nil
}

func (c *conn) Close(ctx context.Context) error {
	if c.closed.Swap(true) {
		return nil
	}
	c.driver.connsClosed.Add(1)
	return nil
}

type session struct {
	conn     *conn
	database string
	id       int64
	closed   atomic.Bool
}

// Query echoes the statement back. The statement "fail" returns ErrQueryFailed.
func (s *session) Query(ctx context.Context, statement string, params map[string]any) ([]driver.Record, error) {
	if s.closed.Load() {
		return nil, driver.ErrSessionClosed
	}
	s.conn.driver.queries.Add(1)
	if statement == "fail" {
		return nil, driver.ErrQueryFailed
	}
	return []driver.Record{{
		"statement": statement,
		"params":    params,
		"database":  s.database,
		"session":   s.id,
	}}, nil
}

func (s *session) Collections(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, driver.ErrSessionClosed
	}
	d := s.conn.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.collections), nil
}

func (s *session) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return driver.ErrSessionClosed
	}
	s.conn.driver.sessionsClosed.Add(1)
	return nil
}
