package postgres_test

import (
	"errors"
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/driver/postgres"
)

func TestConnString(t *testing.T) {
	t.Parallel()
	d := postgres.New(postgres.DefaultConfig())

	raw := d.ConnString(
		driver.Target{Host: "db1", Port: 5432},
		driver.Credentials{Username: "app", Password: "p@ss/word"},
		"orders",
	)
	u, err := url.Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db1:5432", u.Host)
	assert.Equal(t, "/orders", u.Path)
	assert.Equal(t, "app", u.User.Username())
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", pass)
	assert.Equal(t, "prefer", u.Query().Get("sslmode"))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want error
	}{
		{"3D000", driver.ErrDatabaseNotFound},
		{"28P01", driver.ErrAuthFailed},
		{"28000", driver.ErrAuthFailed},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := postgres.Classify(&pgconn.PgError{Code: tt.code})
			assert.ErrorIs(t, err, tt.want)
		})
	}

	plain := errors.New("boom")
	assert.Equal(t, plain, postgres.Classify(plain))
}
