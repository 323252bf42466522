package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/binder"
)

type queryRequest struct {
	Host      string         `header:"X-DB-Host" json:"-"`
	Port      int            `header:"x-db-port" json:"-"`
	Debug     *bool          `header:"X-Debug" json:"-"`
	Tags      []string       `header:"X-Tag" json:"-"`
	Ignored   string         `header:"-" json:"-"`
	Statement string         `json:"statement"`
	Params    map[string]any `json:"params"`
}

func jsonRequest(body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()
	bind := binder.JSON()

	t.Run("decodes body verbatim", func(t *testing.T) {
		t.Parallel()
		var req queryRequest
		err := bind(jsonRequest(`{"statement":"SELECT FROM V WHERE name = '<b>'","params":{"limit":5}}`), &req)
		require.NoError(t, err)
		assert.Equal(t, "SELECT FROM V WHERE name = '<b>'", req.Statement)
		assert.Equal(t, float64(5), req.Params["limit"])
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		cases := map[string]struct {
			req  *http.Request
			want error
		}{
			"unknown field": {jsonRequest(`{"nope":1}`), binder.ErrFailedToParseJSON},
			"empty body":    {jsonRequest(``), binder.ErrFailedToParseJSON},
			"trailing data": {jsonRequest(`{"statement":"a"}{"statement":"b"}`), binder.ErrFailedToParseJSON},
			"too large":     {jsonRequest(`{"statement":"` + strings.Repeat("a", binder.DefaultMaxJSONSize) + `"}`), binder.ErrFailedToParseJSON},
		}
		for name, tc := range cases {
			t.Run(name, func(t *testing.T) {
				var req queryRequest
				assert.ErrorIs(t, bind(tc.req, &req), tc.want)
			})
		}
	})

	t.Run("content type", func(t *testing.T) {
		t.Parallel()
		var req queryRequest
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
		assert.ErrorIs(t, bind(r, &req), binder.ErrMissingContentType)

		r.Header.Set("Content-Type", "text/plain")
		assert.ErrorIs(t, bind(r, &req), binder.ErrUnsupportedMediaType)
	})
}

func TestHeader(t *testing.T) {
	t.Parallel()
	bind := binder.Header()

	r := httptest.NewRequest(http.MethodGet, "/collections", nil)
	r.Header.Set("X-DB-Host", " db1 ")
	r.Header.Set("X-DB-Port", "2424")
	r.Header.Set("X-Debug", "true")
	r.Header.Add("X-Tag", "a,b")
	r.Header.Add("X-Tag", "c")

	var req queryRequest
	require.NoError(t, bind(r, &req))
	assert.Equal(t, "db1", req.Host)
	assert.Equal(t, 2424, req.Port)
	require.NotNil(t, req.Debug)
	assert.True(t, *req.Debug)
	assert.Equal(t, []string{"a", "b", "c"}, req.Tags)

	t.Run("missing headers keep zero values", func(t *testing.T) {
		t.Parallel()
		var req queryRequest
		require.NoError(t, bind(httptest.NewRequest(http.MethodGet, "/", nil), &req))
		assert.Empty(t, req.Host)
		assert.Zero(t, req.Port)
		assert.Nil(t, req.Debug)
	})

	t.Run("bad value", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-DB-Port", "abc")
		var req queryRequest
		err := bind(r, &req)
		require.ErrorIs(t, err, binder.ErrFailedToParseHeader)
		assert.Contains(t, err.Error(), "x-db-port")
	})

	t.Run("non pointer target", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, bind(r, queryRequest{}), binder.ErrFailedToParseHeader)
	})
}
