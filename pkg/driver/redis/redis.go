package redis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// Name is the driver identifier.
const Name = "redis"

// defaultDatabases is used when CONFIG GET is not permitted.
const defaultDatabases = 16

// Driver connects to Redis servers. Numbered logical databases are its
// databases.
type Driver struct {
	cfg Config
}

// New returns a Redis driver.
func New(cfg Config) *Driver {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.ScanLimit <= 0 {
		cfg.ScanLimit = 1000
	}
	return &Driver{cfg: cfg}
}

// Name returns "redis".
func (d *Driver) Name() string { return Name }

func (d *Driver) options(target driver.Target, creds driver.Credentials, db int) *redis.Options {
	return &redis.Options{
		Addr:        target.Addr(),
		Username:    creds.Username,
		Password:    creds.Password,
		DB:          db,
		DialTimeout: d.cfg.DialTimeout,
		PoolSize:    d.cfg.PoolSize,
	}
}

// Connect pings the server, retrying while it is unreachable.
func (d *Driver) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (driver.Conn, error) {
	var lastErr error
	for attempt := range d.cfg.RetryAttempts {
		client := redis.NewClient(d.options(target, creds, 0))
		err := client.Ping(ctx).Err()
		if err == nil {
			return &conn{driver: d, client: client, target: target, creds: creds}, nil
		}
		_ = client.Close()

		lastErr = classify(err)
		if errors.Is(lastErr, driver.ErrAuthFailed) || attempt == d.cfg.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(d.cfg.RetryInterval):
		}
	}
	return nil, lastErr
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "WRONGPASS") || strings.HasPrefix(msg, "NOAUTH") || strings.HasPrefix(msg, "NOPERM") {
		return errors.Join(driver.ErrAuthFailed, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return errors.Join(driver.ErrUnreachable, err)
	}
	return err
}

type conn struct {
	driver *Driver
	client *redis.Client
	target driver.Target
	creds  driver.Credentials
}

func (c *conn) count(ctx context.Context) int {
	cfg, err := c.client.ConfigGet(ctx, "databases").Result()
	if err != nil {
		return defaultDatabases
	}
	n, err := strconv.Atoi(cfg["databases"])
	if err != nil || n <= 0 {
		return defaultDatabases
	}
	return n
}

func (c *conn) ListDatabases(ctx context.Context) ([]string, error) {
	if err := c.Ping(ctx); err != nil {
		return nil, err
	}
	n := c.count(ctx)
	names := make([]string, n)
	for i := range n {
		names[i] = strconv.Itoa(i)
	}
	return names, nil
}

func (c *conn) OpenSession(ctx context.Context, database string) (driver.Session, error) {
	db, err := strconv.Atoi(database)
	if err != nil || db < 0 || db >= c.count(ctx) {
		return nil, fmt.Errorf("%w: %s", driver.ErrDatabaseNotFound, database)
	}
	client := redis.NewClient(c.driver.options(c.target, c.creds, db))
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, classify(err)
	}
	return &session{client: client, scanLimit: c.driver.cfg.ScanLimit}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	return classify(c.client.Ping(ctx).Err())
}

func (c *conn) Close(ctx context.Context) error {
	return c.client.Close()
}

type session struct {
	client    *redis.Client
	scanLimit int
	closed    bool
}

// Args converts a statement and optional params["args"] into command arguments.
func Args(statement string, params map[string]any) []any {
	fields := strings.Fields(statement)
	args := make([]any, 0, len(fields))
	for _, f := range fields {
		args = append(args, f)
	}
	if extra, ok := params["args"].([]any); ok {
		args = append(args, extra...)
	}
	return args
}

func (s *session) Query(ctx context.Context, statement string, params map[string]any) ([]driver.Record, error) {
	if s.closed {
		return nil, driver.ErrSessionClosed
	}
	args := Args(statement, params)
	if len(args) == 0 {
		return nil, errors.Join(driver.ErrQueryFailed, errors.New("empty command"))
	}

	res, err := s.client.Do(ctx, args...).Result()
	if errors.Is(err, redis.Nil) {
		return []driver.Record{{"result": nil}}, nil
	}
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, classify(err))
	}
	return []driver.Record{{"result": res}}, nil
}

func (s *session) Collections(ctx context.Context) ([]string, error) {
	if s.closed {
		return nil, driver.ErrSessionClosed
	}

	seen := make(map[string]struct{})
	var cursor uint64
	scanned := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, "*", 100).Result()
		if err != nil {
			return nil, classify(err)
		}
		for _, k := range keys {
			seen[Prefix(k)] = struct{}{}
		}
		scanned += len(keys)
		cursor = next
		if cursor == 0 || scanned >= s.scanLimit {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	slices.Sort(out)
	return out, nil
}

func (s *session) Close(ctx context.Context) error {
	if s.closed {
		return driver.ErrSessionClosed
	}
	s.closed = true
	return s.client.Close()
}

// Prefix returns the part of key before the first ':'.
func Prefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
