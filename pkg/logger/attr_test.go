package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("pool", logger.PoolKey("db1:2424/mydb"), slog.Int("size", 10))
	require.Equal(t, "pool", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "pool_key", g[0].Key)
	assert.Equal(t, "size", g[1].Key)
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestRequestID(t *testing.T) {
	assert.Equal(t, "abc", logger.RequestID("abc").Value.String())
	assert.True(t, logger.RequestID("").Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	cases := map[string]slog.Attr{
		"host_key":  logger.HostKey("db1:2424"),
		"pool_key":  logger.PoolKey("db1:2424/mydb"),
		"database":  logger.Database("mydb"),
		"lease_id":  logger.LeaseID("l-1"),
		"driver":    logger.Driver("orientdb"),
		"reason":    logger.Reason("expired"),
		"component": logger.Component("sessionpool"),
		"event":     logger.Event("pool_created"),
	}
	for key, attr := range cases {
		assert.Equal(t, key, attr.Key)
		assert.NotEmpty(t, attr.Value.String())
	}

	d := logger.Duration(time.Second)
	assert.Equal(t, "duration", d.Key)
	assert.Equal(t, time.Second, d.Value.Duration())
}
