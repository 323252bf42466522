package orientdb_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/driver/orientdb"
)

type fakeServer struct {
	*httptest.Server
	disconnects atomic.Int32
	commands    atomic.Int32
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	mux := http.NewServeMux()

	auth := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != "root" || pass != "pw" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"errors":[{"code":401,"content":"401 Unauthorized."}]}`))
				return
			}
			next(w, r)
		}
	}
	session := func(next http.HandlerFunc) http.HandlerFunc {
		return auth(func(w http.ResponseWriter, r *http.Request) {
			ck, err := r.Cookie("OSESSIONID")
			if err != nil || ck.Value != "OS-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next(w, r)
		})
	}

	mux.HandleFunc("GET /listDatabases", auth(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"databases":["mydb","GratefulDeadConcerts"]}`))
	}))
	mux.HandleFunc("GET /connect/{db}", auth(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "OSESSIONID", Value: "OS-1", Path: "/"})
		w.WriteHeader(http.StatusNoContent)
	}))
	mux.HandleFunc("POST /command/{db}/sql", session(func(w http.ResponseWriter, r *http.Request) {
		fs.commands.Add(1)
		var body struct {
			Command    string         `json:"command"`
			Parameters map[string]any `json:"parameters"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if body.Command == "BROKEN" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"errors":[{"code":500,"content":"Error parsing query"}]}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": []map[string]any{{
				"@rid":     "#9:0",
				"db":       r.PathValue("db"),
				"command":  body.Command,
				"username": body.Parameters["name"],
			}},
		})
	}))
	mux.HandleFunc("GET /database/{db}", session(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"clusters":[{"name":"v","id":9},{"name":"e","id":10}],"classes":[]}`))
	}))
	mux.HandleFunc("GET /disconnect", func(w http.ResponseWriter, r *http.Request) {
		fs.disconnects.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) target(t *testing.T) driver.Target {
	t.Helper()
	u, err := url.Parse(fs.URL)
	require.NoError(t, err)
	host, rawPort, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	port, err := strconv.Atoi(rawPort)
	require.NoError(t, err)
	return driver.Target{Host: host, Port: port}
}

func newDriver() *orientdb.Driver {
	cfg := orientdb.DefaultConfig()
	cfg.RetryAttempts = 2
	cfg.RetryInterval = 10 * time.Millisecond
	return orientdb.New(cfg)
}

var root = driver.Credentials{Username: "root", Password: "pw"}

func TestDriver_Connect(t *testing.T) {
	t.Parallel()
	fs := newFakeServer(t)
	d := newDriver()
	ctx := context.Background()

	assert.Equal(t, orientdb.Name, d.Name())

	c, err := d.Connect(ctx, fs.target(t), root)
	require.NoError(t, err)
	defer c.Close(ctx)

	dbs, err := c.ListDatabases(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"GratefulDeadConcerts", "mydb"}, dbs)
	assert.NoError(t, c.Ping(ctx))
}

func TestDriver_ConnectRejectsCredentials(t *testing.T) {
	t.Parallel()
	fs := newFakeServer(t)

	_, err := newDriver().Connect(context.Background(), fs.target(t), driver.Credentials{Username: "root", Password: "nope"})
	require.ErrorIs(t, err, driver.ErrAuthFailed)

	var se *orientdb.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "401 Unauthorized.", se.Message)
}

func TestDriver_ConnectUnreachable(t *testing.T) {
	t.Parallel()
	fs := newFakeServer(t)
	target := fs.target(t)
	fs.Close()

	_, err := newDriver().Connect(context.Background(), target, root)
	assert.ErrorIs(t, err, driver.ErrUnreachable)
}

func TestSession(t *testing.T) {
	t.Parallel()
	fs := newFakeServer(t)
	ctx := context.Background()

	c, err := newDriver().Connect(ctx, fs.target(t), root)
	require.NoError(t, err)

	_, err = c.OpenSession(ctx, "missing")
	require.ErrorIs(t, err, driver.ErrDatabaseNotFound)

	s, err := c.OpenSession(ctx, "mydb")
	require.NoError(t, err)

	records, err := s.Query(ctx, "SELECT FROM V WHERE name = :name", map[string]any{"name": "Jerry"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "mydb", records[0]["db"])
	assert.Equal(t, "Jerry", records[0]["username"])
	assert.Equal(t, "#9:0", records[0]["@rid"])

	_, err = s.Query(ctx, "BROKEN", nil)
	require.ErrorIs(t, err, driver.ErrQueryFailed)
	assert.Contains(t, err.Error(), "Error parsing query")

	cols, err := s.Collections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"e", "v"}, cols)

	require.NoError(t, s.Close(ctx))
	assert.Equal(t, int32(1), fs.disconnects.Load())
	assert.ErrorIs(t, s.Close(ctx), driver.ErrSessionClosed)

	_, err = s.Query(ctx, "SELECT 1", nil)
	assert.ErrorIs(t, err, driver.ErrSessionClosed)
	assert.Equal(t, int32(2), fs.commands.Load())
}

func TestConn_Close(t *testing.T) {
	t.Parallel()
	fs := newFakeServer(t)
	ctx := context.Background()

	c, err := newDriver().Connect(ctx, fs.target(t), root)
	require.NoError(t, err)
	require.NoError(t, c.Close(ctx))

	_, err = c.OpenSession(ctx, "mydb")
	assert.ErrorIs(t, err, driver.ErrUnreachable)
}
