package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// Name is the driver identifier.
const Name = "postgres"

// SQLSTATE codes mapped to driver errors.
const (
	codeInvalidCatalogName   = "3D000"
	codeInvalidPassword      = "28P01"
	codeInvalidAuthorization = "28000"
)

// Driver connects to PostgreSQL servers through pgx.
type Driver struct {
	cfg Config
}

// New returns a PostgreSQL driver.
func New(cfg Config) *Driver {
	if cfg.MaintenanceDB == "" {
		cfg.MaintenanceDB = "postgres"
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &Driver{cfg: cfg}
}

// Name returns "postgres".
func (d *Driver) Name() string { return Name }

// ConnString builds a postgres:// URL for database on target.
func (d *Driver) ConnString(target driver.Target, creds driver.Credentials, database string) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(creds.Username, creds.Password),
		Host:   target.Addr(),
		Path:   "/" + database,
	}
	if d.cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.cfg.SSLMode}}.Encode()
	}
	return u.String()
}

// Connect opens the host pool with linear backoff between attempts.
// Authentication failures are returned immediately.
func (d *Driver) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (driver.Conn, error) {
	poolCfg, err := pgxpool.ParseConfig(d.ConnString(target, creds, d.cfg.MaintenanceDB))
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	if d.cfg.MaxConns > 0 {
		poolCfg.MaxConns = d.cfg.MaxConns
	}
	if d.cfg.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = d.cfg.HealthCheckPeriod
	}

	var lastErr error
	for i := range d.cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return &conn{driver: d, pool: pool, target: target, creds: creds}, nil
			}
			pool.Close()
		}

		lastErr = classify(err)
		if errors.Is(lastErr, driver.ErrAuthFailed) || i == d.cfg.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(time.Duration(i+1) * d.cfg.RetryInterval):
		}
	}
	return nil, lastErr
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeInvalidCatalogName:
			return errors.Join(driver.ErrDatabaseNotFound, err)
		case codeInvalidPassword, codeInvalidAuthorization:
			return errors.Join(driver.ErrAuthFailed, err)
		}
		return err
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return errors.Join(driver.ErrUnreachable, err)
	}
	return err
}

type conn struct {
	driver *Driver
	pool   *pgxpool.Pool
	target driver.Target
	creds  driver.Credentials
}

func (c *conn) ListDatabases(ctx context.Context) ([]string, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT datname FROM pg_database WHERE NOT datistemplate AND datallowconn ORDER BY datname`)
	if err != nil {
		return nil, classify(err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(err)
	}
	return names, nil
}

func (c *conn) OpenSession(ctx context.Context, database string) (driver.Session, error) {
	pc, err := pgx.Connect(ctx, c.driver.ConnString(c.target, c.creds, database))
	if err != nil {
		return nil, classify(err)
	}
	return &session{conn: pc}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	return classify(c.pool.Ping(ctx))
}

func (c *conn) Close(ctx context.Context) error {
	c.pool.Close()
	return nil
}

type session struct {
	conn *pgx.Conn
}

func (s *session) Query(ctx context.Context, statement string, params map[string]any) ([]driver.Record, error) {
	if s.conn.IsClosed() {
		return nil, driver.ErrSessionClosed
	}

	var args []any
	if len(params) > 0 {
		args = append(args, pgx.NamedArgs(params))
	}
	rows, err := s.conn.Query(ctx, statement, args...)
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, err)
	}
	if records == nil {
		records = []map[string]any{}
	}
	return records, nil
}

func (s *session) Collections(ctx context.Context) ([]string, error) {
	if s.conn.IsClosed() {
		return nil, driver.ErrSessionClosed
	}
	rows, err := s.conn.Query(ctx, `
		SELECT table_schema || '.' || table_name
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		ORDER BY 1`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *session) Close(ctx context.Context) error {
	if s.conn.IsClosed() {
		return driver.ErrSessionClosed
	}
	return s.conn.Close(ctx)
}
