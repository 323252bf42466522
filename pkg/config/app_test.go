package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/config"
)

func TestApp_Defaults(t *testing.T) {
	var app config.App
	require.NoError(t, config.ForceReloadConfig(&app))

	assert.Equal(t, "orientdb", app.Driver)
	assert.Equal(t, 24*time.Hour, app.Pool.ClientTTL)
	assert.Equal(t, 30*time.Minute, app.Pool.PoolTTL)
	assert.Equal(t, int32(10), app.Pool.PoolMaxSize)
	assert.Equal(t, ":8080", app.HTTP.Addr)
	assert.False(t, app.Tracing.Enabled)
	assert.Equal(t, "otlp", app.Tracing.Exporter)
	assert.NoError(t, app.Validate())
}

func TestApp_Env(t *testing.T) {
	t.Setenv("DBGATE_DRIVER", "neo4j")
	t.Setenv("DBGATE_POOL_MAX_SIZE", "3")
	t.Setenv("DBGATE_ACQUIRE_TIMEOUT", "250ms")
	t.Setenv("DBGATE_TRACING_ENABLED", "true")
	t.Setenv("DBGATE_TRACING_EXPORTER", "stdout")

	var app config.App
	require.NoError(t, config.ForceReloadConfig(&app))
	assert.Equal(t, "neo4j", app.Driver)
	assert.Equal(t, int32(3), app.Pool.PoolMaxSize)
	assert.Equal(t, 250*time.Millisecond, app.Pool.AcquireTimeout)
	assert.True(t, app.Tracing.Enabled)
	assert.Equal(t, "stdout", app.Tracing.Exporter)
	assert.NoError(t, app.Validate())
}

func TestApp_Validate(t *testing.T) {
	var app config.App
	require.NoError(t, config.ForceReloadConfig(&app))

	app.Driver = "cassandra"
	app.Pool.PoolMaxSize = 0
	app.LogLevel = "loud"
	app.Tracing.Enabled = true
	app.Tracing.SampleRate = 5
	err := app.Validate()
	require.ErrorIs(t, err, config.ErrInvalidApp)
	assert.Contains(t, err.Error(), "cassandra")
	assert.Contains(t, err.Error(), "max size")
	assert.Contains(t, err.Error(), "log level")
	assert.Contains(t, err.Error(), "sample rate")
}
