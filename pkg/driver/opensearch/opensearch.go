package opensearch

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// Name is the driver identifier.
const Name = "opensearch"

// Driver connects to OpenSearch clusters. Indices are its databases.
type Driver struct {
	cfg Config
}

// New returns an OpenSearch driver.
func New(cfg Config) *Driver {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	return &Driver{cfg: cfg}
}

// Name returns "opensearch".
func (d *Driver) Name() string { return Name }

// Connect builds a client for target and checks it with an info request.
func (d *Driver) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (driver.Conn, error) {
	transport := cleanhttp.DefaultPooledTransport()
	if d.cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed dev clusters
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    []string{d.cfg.Scheme + "://" + target.Addr()},
		Username:     creds.Username,
		Password:     creds.Password,
		MaxRetries:   d.cfg.MaxRetries,
		DisableRetry: d.cfg.DisableRetry,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch: %w", err)
	}

	c := &conn{client: client}
	if err := c.Ping(ctx); err != nil {
		transport.CloseIdleConnections()
		return nil, err
	}
	c.transport = transport
	return c, nil
}

// decode checks the response status and decodes the body into out.
func decode(res *opensearchapi.Response, err error, out any) error {
	if err != nil {
		return errors.Join(driver.ErrUnreachable, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 64<<10))
		serr := fmt.Errorf("opensearch: http %d: %s", res.StatusCode, strings.TrimSpace(string(raw)))
		switch res.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return errors.Join(driver.ErrAuthFailed, serr)
		case http.StatusNotFound:
			return errors.Join(driver.ErrDatabaseNotFound, serr)
		}
		return serr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

type conn struct {
	client    *opensearch.Client
	transport *http.Transport
}

func (c *conn) ListDatabases(ctx context.Context) ([]string, error) {
	var rows []struct {
		Index string `json:"index"`
	}
	res, err := c.client.Cat.Indices(
		c.client.Cat.Indices.WithContext(ctx),
		c.client.Cat.Indices.WithFormat("json"),
		c.client.Cat.Indices.WithH("index"),
	)
	err = decode(res, err, &rows)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		if !strings.HasPrefix(r.Index, ".") {
			names = append(names, r.Index)
		}
	}
	slices.Sort(names)
	return names, nil
}

func (c *conn) OpenSession(ctx context.Context, database string) (driver.Session, error) {
	res, err := c.client.Indices.Exists(
		[]string{database},
		c.client.Indices.Exists.WithContext(ctx),
	)
	err = decode(res, err, nil)
	if err != nil {
		return nil, err
	}
	return &session{client: c.client, index: database}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	res, err := c.client.Info(c.client.Info.WithContext(ctx))
	return decode(res, err, nil)
}

func (c *conn) Close(ctx context.Context) error {
	if c.transport != nil {
		c.transport.CloseIdleConnections()
	}
	return nil
}

type session struct {
	client *opensearch.Client
	index  string
	closed bool
}

// SearchBody merges params into the JSON statement. An empty statement
// matches every document.
func SearchBody(statement string, params map[string]any) ([]byte, error) {
	body := map[string]any{}
	if s := strings.TrimSpace(statement); s != "" {
		if err := json.Unmarshal([]byte(s), &body); err != nil {
			return nil, fmt.Errorf("parse search body: %w", err)
		}
	} else {
		body["query"] = map[string]any{"match_all": map[string]any{}}
	}
	for k, v := range params {
		body[k] = v
	}
	return json.Marshal(body)
}

func (s *session) Query(ctx context.Context, statement string, params map[string]any) ([]driver.Record, error) {
	if s.closed {
		return nil, driver.ErrSessionClosed
	}
	body, err := SearchBody(statement, params)
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, err)
	}

	var out struct {
		Hits struct {
			Hits []struct {
				ID     string        `json:"_id"`
				Source driver.Record `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
	)
	err = decode(res, err, &out)
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, err)
	}

	records := make([]driver.Record, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		rec := driver.Record{"_id": h.ID}
		for k, v := range h.Source {
			rec[k] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *session) Collections(ctx context.Context) ([]string, error) {
	if s.closed {
		return nil, driver.ErrSessionClosed
	}
	var out map[string]struct {
		Mappings struct {
			Properties map[string]json.RawMessage `json:"properties"`
		} `json:"mappings"`
	}
	res, err := s.client.Indices.GetMapping(
		s.client.Indices.GetMapping.WithContext(ctx),
		s.client.Indices.GetMapping.WithIndex(s.index),
	)
	err = decode(res, err, &out)
	if err != nil {
		return nil, err
	}

	var fields []string
	for _, idx := range out {
		for name := range idx.Mappings.Properties {
			fields = append(fields, name)
		}
	}
	slices.Sort(fields)
	return slices.Compact(fields), nil
}

// Close is local only; OpenSearch has no server-side session.
func (s *session) Close(ctx context.Context) error {
	if s.closed {
		return driver.ErrSessionClosed
	}
	s.closed = true
	return nil
}
