package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/handler"
	"github.com/dmitrymomot/dbgate/pkg/sessionpool"
)

type connectRequest struct {
	Host     string `header:"X-DB-Host" json:"-"`
	Port     string `header:"X-DB-Port" json:"-"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type connectResponse struct {
	Message   string   `json:"message"`
	Databases []string `json:"databases"`
}

type databaseRequest struct {
	Host     string `header:"X-DB-Host" json:"-"`
	Port     string `header:"X-DB-Port" json:"-"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type databaseResponse struct {
	Message     string   `json:"message"`
	Key         string   `json:"key"`
	Collections []string `json:"collections"`
}

type queryRequest struct {
	Statement string         `json:"statement"`
	Params    map[string]any `json:"params,omitempty"`
}

type queryResponse struct {
	Records []driver.Record `json:"records"`
}

type collectionsResponse struct {
	Collections []string `json:"collections"`
}

type poolsResponse struct {
	Pools []sessionpool.PoolStats `json:"pools"`
}

// target parses the header coordinates. Missing values are left zero for
// the registries to reject.
func target(host, port string) (driver.Target, error) {
	t := driver.Target{Host: strings.TrimSpace(host)}
	if raw := strings.TrimSpace(port); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil {
			return driver.Target{}, errors.Join(sessionpool.ErrInvalidRequest,
				fmt.Errorf("malformed %s header %q", sessionpool.HeaderPort, raw))
		}
		t.Port = p
	}
	return t, nil
}

func (g *gateway) connect(ctx handler.Context, req connectRequest) handler.Response {
	t, err := target(req.Host, req.Port)
	if err != nil {
		return g.fail(ctx, err)
	}
	h, err := g.manager.Connect(ctx, t, driver.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		return g.fail(ctx, err)
	}
	databases, err := h.Conn().ListDatabases(ctx)
	if err != nil {
		return g.fail(ctx, err)
	}
	return handler.JSON(connectResponse{
		Message:   fmt.Sprintf("connected to %s", h.Key()),
		Databases: databases,
	}, handler.WithJSONStatus(http.StatusCreated))
}

func (g *gateway) database(ctx handler.Context, req databaseRequest) handler.Response {
	t, err := target(req.Host, req.Port)
	if err != nil {
		return g.fail(ctx, err)
	}
	sreq := sessionpool.Request{
		Target:      t,
		Database:    strings.TrimSpace(req.Name),
		Credentials: driver.Credentials{Username: req.Username, Password: req.Password},
	}

	var collections []string
	err = g.manager.WithSession(ctx, sreq, func(ctx context.Context, lease *sessionpool.Lease) error {
		sess, err := lease.Session()
		if err != nil {
			return err
		}
		collections, err = sess.Collections(ctx)
		return err
	})
	if err != nil {
		return g.fail(ctx, err)
	}
	return handler.JSON(databaseResponse{
		Message:     fmt.Sprintf("database %s opened", sreq.Database),
		Key:         sreq.PoolKey(),
		Collections: collections,
	})
}

func (g *gateway) query(ctx handler.Context, req queryRequest) handler.Response {
	if strings.TrimSpace(req.Statement) == "" {
		return g.fail(ctx, errors.Join(sessionpool.ErrInvalidRequest, errors.New("statement is required")))
	}
	return g.withSession(ctx, func(sess driver.Session) (any, error) {
		records, err := sess.Query(ctx, req.Statement, req.Params)
		if err != nil {
			return nil, err
		}
		return queryResponse{Records: records}, nil
	})
}

func (g *gateway) collections(ctx handler.Context, _ struct{}) handler.Response {
	return g.withSession(ctx, func(sess driver.Session) (any, error) {
		names, err := sess.Collections(ctx)
		if err != nil {
			return nil, err
		}
		return collectionsResponse{Collections: names}, nil
	})
}

func (g *gateway) pools(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(poolsResponse{Pools: g.manager.Pools().Snapshot()})
}

// withSession runs fn with the session leased by the middleware. A broken
// session is flagged so the middleware discards it.
func (g *gateway) withSession(ctx handler.Context, fn func(driver.Session) (any, error)) handler.Response {
	lease, ok := sessionpool.LeaseFromContext(ctx)
	if !ok {
		return g.fail(ctx, sessionpool.ErrInternalLease)
	}
	sess, err := lease.Session()
	if err != nil {
		return g.fail(ctx, err)
	}
	out, err := fn(sess)
	if err != nil {
		if sessionpool.IsBroken(err) {
			lease.MarkBroken()
		}
		return g.fail(ctx, err)
	}
	return handler.JSON(out)
}

// fail renders err through the gateway error handler.
func (g *gateway) fail(ctx handler.Context, err error) handler.Response {
	return errorResponse{onError: g.onError, ctx: ctx, err: err}
}

type errorResponse struct {
	onError handler.ErrorHandler[handler.Context]
	ctx     handler.Context
	err     error
}

func (e errorResponse) Render(http.ResponseWriter, *http.Request) error {
	e.onError(e.ctx, e.err)
	return nil
}
