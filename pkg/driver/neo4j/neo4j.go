package neo4j

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// Name is the driver identifier.
const Name = "neo4j"

// Driver connects to Neo4j servers.
type Driver struct {
	cfg Config
}

// New returns a Neo4j driver.
func New(cfg Config) *Driver {
	if cfg.Scheme == "" {
		cfg.Scheme = "neo4j"
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &Driver{cfg: cfg}
}

// Name returns "neo4j".
func (d *Driver) Name() string { return Name }

// Connect opens a driver for target and verifies connectivity.
func (d *Driver) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (driver.Conn, error) {
	uri := d.cfg.Scheme + "://" + target.Addr()
	auth := neo4j.BasicAuth(creds.Username, creds.Password, "")
	configure := func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = d.cfg.MaxConnectionPoolSize
		c.ConnectionAcquisitionTimeout = d.cfg.ConnectionTimeout
		c.MaxTransactionRetryTime = d.cfg.MaxTransactionRetryTime
	}

	var lastErr error
	for attempt := range d.cfg.RetryAttempts {
		drv, err := neo4j.NewDriverWithContext(uri, auth, configure)
		if err != nil {
			return nil, fmt.Errorf("neo4j: %w", err)
		}
		err = drv.VerifyConnectivity(ctx)
		if err == nil {
			return &conn{driver: drv}, nil
		}
		_ = drv.Close(ctx)

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

// classify attaches the matching driver sentinel to a Neo4j error.
func classify(err error) error {
	var nerr *neo4j.Neo4jError
	if errors.As(err, &nerr) {
		switch {
		case strings.HasPrefix(nerr.Code, "Neo.ClientError.Security."):
			return errors.Join(driver.ErrAuthFailed, err)
		case nerr.Code == "Neo.ClientError.Database.DatabaseNotFound":
			return errors.Join(driver.ErrDatabaseNotFound, err)
		}
		return err
	}
	var cerr *neo4j.ConnectivityError
	if errors.As(err, &cerr) {
		return errors.Join(driver.ErrUnreachable, err)
	}
	return err
}

type conn struct {
	driver neo4j.DriverWithContext
}

func (c *conn) ListDatabases(ctx context.Context) ([]string, error) {
	res, err := neo4j.ExecuteQuery(ctx, c.driver, "SHOW DATABASES YIELD name", nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase("system"),
		neo4j.ExecuteQueryWithReadersRouting(),
	)
	if err != nil {
		return nil, classify(err)
	}

	names := make([]string, 0, len(res.Records))
	for _, rec := range res.Records {
		if name, ok := rec.Get("name"); ok {
			if s, ok := name.(string); ok && s != "system" {
				names = append(names, s)
			}
		}
	}
	slices.Sort(names)
	return slices.Compact(names), nil
}

// OpenSession opens a session and runs a trivial statement, because Neo4j
// only reports an unknown database on first use.
func (c *conn) OpenSession(ctx context.Context, database string) (driver.Session, error) {
	s := c.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: database})
	res, err := s.Run(ctx, "RETURN 1", nil)
	if err == nil {
		_, err = res.Consume(ctx)
	}
	if err != nil {
		_ = s.Close(ctx)
		return nil, classify(err)
	}
	return &session{session: s}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	return classify(c.driver.VerifyConnectivity(ctx))
}

func (c *conn) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

type session struct {
	session neo4j.SessionWithContext
	closed  bool
}

func (s *session) Query(ctx context.Context, statement string, params map[string]any) ([]driver.Record, error) {
	if s.closed {
		return nil, driver.ErrSessionClosed
	}
	res, err := s.session.Run(ctx, statement, params)
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, classify(err))
	}
	recs, err := res.Collect(ctx)
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, classify(err))
	}

	out := make([]driver.Record, 0, len(recs))
	for _, rec := range recs {
		row := make(driver.Record, len(rec.Keys))
		for i, key := range rec.Keys {
			row[key] = flatten(rec.Values[i])
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *session) Collections(ctx context.Context) ([]string, error) {
	records, err := s.Query(ctx, "CALL db.labels() YIELD label RETURN label ORDER BY label", nil)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(records))
	for _, rec := range records {
		if l, ok := rec["label"].(string); ok {
			labels = append(labels, l)
		}
	}
	return labels, nil
}

// Close is not safe for concurrent use; a leased session has one owner.
func (s *session) Close(ctx context.Context) error {
	if s.closed {
		return driver.ErrSessionClosed
	}
	s.closed = true
	return s.session.Close(ctx)
}

func flatten(v any) any {
	switch t := v.(type) {
	case dbtype.Node:
		return map[string]any{
			"id":         t.ElementId,
			"labels":     t.Labels,
			"properties": t.Props,
		}
	case dbtype.Relationship:
		return map[string]any{
			"id":         t.ElementId,
			"type":       t.Type,
			"start":      t.StartElementId,
			"end":        t.EndElementId,
			"properties": t.Props,
		}
	case dbtype.Path:
		nodes := make([]any, 0, len(t.Nodes))
		for _, n := range t.Nodes {
			nodes = append(nodes, flatten(n))
		}
		rels := make([]any, 0, len(t.Relationships))
		for _, r := range t.Relationships {
			rels = append(rels, flatten(r))
		}
		return map[string]any{"nodes": nodes, "relationships": rels}
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = flatten(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = flatten(item)
		}
		return out
	default:
		return v
	}
}
