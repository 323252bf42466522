package orientdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// Name is the driver identifier.
const Name = "orientdb"

const sessionCookie = "OSESSIONID"

// StatusError is a non-2xx reply from the server.
type StatusError struct {
	Code    int
	Message string
}

// Error describes the failed request and the server status.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("orientdb: http %d", e.Code)
	}
	return fmt.Sprintf("orientdb: http %d: %s", e.Code, e.Message)
}

// Driver talks to OrientDB servers over REST.
type Driver struct {
	cfg    Config
	client *http.Client
}

// Option configures the driver.
type Option func(*Driver)

// WithHTTPClient replaces the pooled cleanhttp client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *Driver) {
		if c != nil {
			d.client = c
		}
	}
}

// New returns an OrientDB driver. Missing config values take their defaults.
func New(cfg Config, opts ...Option) *Driver {
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.Language == "" {
		cfg.Language = "sql"
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	d := &Driver{cfg: cfg, client: cleanhttp.DefaultPooledClient()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns "orientdb".
func (d *Driver) Name() string { return Name }

// Connect verifies the credentials against the server. Unreachable servers
// are retried; rejected credentials are not.
func (d *Driver) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (driver.Conn, error) {
	c := &conn{
		driver: d,
		base:   d.cfg.Scheme + "://" + target.Addr(),
		creds:  creds,
	}

	var err error
	for attempt := range d.cfg.RetryAttempts {
		if err = c.Ping(ctx); err == nil {
			return c, nil
		}
		if !errors.Is(err, driver.ErrUnreachable) || attempt == d.cfg.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(err, ctx.Err())
		case <-time.After(d.cfg.RetryInterval):
		}
	}
	return nil, err
}

type call struct {
	method  string
	path    string
	body    any
	session string
}

func (d *Driver) do(ctx context.Context, base string, creds driver.Credentials, c call, out any) (*http.Response, error) {
	var body io.Reader
	if c.body != nil {
		b, err := json.Marshal(c.body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, c.method, base+c.path, body)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(creds.Username, creds.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.session})
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, errors.Join(driver.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp, errors.Join(driver.ErrAuthFailed, readStatusError(resp))
	case resp.StatusCode >= http.StatusBadRequest:
		return resp, readStatusError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return resp, fmt.Errorf("orientdb: decode %s: %w", c.path, err)
		}
	}
	return resp, nil
}

func readStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Errors []struct {
			Content string `json:"content"`
		} `json:"errors"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && len(payload.Errors) > 0 {
		parts := make([]string, 0, len(payload.Errors))
		for _, e := range payload.Errors {
			parts = append(parts, e.Content)
		}
		msg = strings.Join(parts, "; ")
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

type conn struct {
	driver *Driver
	base   string
	creds  driver.Credentials
	closed atomic.Bool
}

func (c *conn) do(ctx context.Context, cl call, out any) (*http.Response, error) {
	if c.closed.Load() {
		return nil, driver.ErrUnreachable
	}
	return c.driver.do(ctx, c.base, c.creds, cl, out)
}

func (c *conn) ListDatabases(ctx context.Context) ([]string, error) {
	var out struct {
		Databases []string `json:"databases"`
	}
	if _, err := c.do(ctx, call{method: http.MethodGet, path: "/listDatabases"}, &out); err != nil {
		return nil, err
	}
	slices.Sort(out.Databases)
	return out.Databases, nil
}

func (c *conn) OpenSession(ctx context.Context, database string) (driver.Session, error) {
	dbs, err := c.ListDatabases(ctx)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(dbs, database) {
		return nil, fmt.Errorf("%w: %s", driver.ErrDatabaseNotFound, database)
	}

	resp, err := c.do(ctx, call{method: http.MethodGet, path: "/connect/" + url.PathEscape(database)}, nil)
	if err != nil {
		return nil, err
	}

	var id string
	for _, ck := range resp.Cookies() {
		if ck.Name == sessionCookie {
			id = ck.Value
		}
	}
	if id == "" {
		return nil, fmt.Errorf("orientdb: no %s cookie for database %s", sessionCookie, database)
	}

	return &session{conn: c, database: database, id: id}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	_, err := c.ListDatabases(ctx)
	return err
}

// Close stops the connection from issuing new requests. OrientDB keeps no
// server-side state for the host connection itself.
func (c *conn) Close(ctx context.Context) error {
	c.closed.Store(true)
	return nil
}

type session struct {
	conn     *conn
	database string
	id       string
	closed   atomic.Bool
}

func (s *session) call(method, path string, body any) call {
	return call{method: method, path: path, body: body, session: s.id}
}

func (s *session) Query(ctx context.Context, statement string, params map[string]any) ([]driver.Record, error) {
	if s.closed.Load() {
		return nil, driver.ErrSessionClosed
	}

	body := map[string]any{"command": statement}
	if len(params) > 0 {
		body["parameters"] = params
	}
	path := "/command/" + url.PathEscape(s.database) + "/" + s.conn.driver.cfg.Language

	var out struct {
		Result []driver.Record `json:"result"`
	}
	if _, err := s.conn.do(ctx, s.call(http.MethodPost, path, body), &out); err != nil {
		if errors.Is(err, driver.ErrUnreachable) || errors.Is(err, driver.ErrAuthFailed) {
			return nil, err
		}
		return nil, errors.Join(driver.ErrQueryFailed, err)
	}
	if out.Result == nil {
		out.Result = []driver.Record{}
	}
	return out.Result, nil
}

func (s *session) Collections(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, driver.ErrSessionClosed
	}

	var out struct {
		Clusters []struct {
			Name string `json:"name"`
		} `json:"clusters"`
	}
	path := "/database/" + url.PathEscape(s.database)
	if _, err := s.conn.do(ctx, s.call(http.MethodGet, path, nil), &out); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(out.Clusters))
	for _, c := range out.Clusters {
		names = append(names, c.Name)
	}
	slices.Sort(names)
	return names, nil
}

// Close ends the server-side session. OrientDB answers /disconnect with 401,
// so any HTTP reply counts as success.
func (s *session) Close(ctx context.Context) error {
	if s.closed.Swap(true) {
		return driver.ErrSessionClosed
	}
	_, err := s.conn.do(ctx, s.call(http.MethodGet, "/disconnect", nil), nil)
	if errors.Is(err, driver.ErrUnreachable) {
		return err
	}
	return nil
}
