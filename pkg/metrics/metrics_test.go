package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dbgate/pkg/metrics"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.ClientConnect(metrics.ResultCreated)
	m.ClientConnect(metrics.ResultReused)
	m.PoolBuild(metrics.ResultCreated)
	m.PoolBuild(metrics.ResultCreated)
	m.Evicted(metrics.CachePools, "expired")
	m.LeaseAcquired(10 * time.Millisecond)
	m.LeaseAcquired(20 * time.Millisecond)
	m.LeaseReleased()
	m.LeaseFailed("exhausted")

	count, err := testutil.GatherAndCount(reg, "dbgate_client_connects_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP dbgate_pools_cached Live session pools held by the pool registry.
# TYPE dbgate_pools_cached gauge
dbgate_pools_cached 1
# HELP dbgate_leases_in_use Sessions currently leased to requests.
# TYPE dbgate_leases_in_use gauge
dbgate_leases_in_use 1
# HELP dbgate_clients_cached Live host connections held by the client registry.
# TYPE dbgate_clients_cached gauge
dbgate_clients_cached 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"dbgate_pools_cached", "dbgate_leases_in_use", "dbgate_clients_cached"))
}

func TestNilCollector(t *testing.T) {
	t.Parallel()

	var m *metrics.Collector
	assert.NotPanics(t, func() {
		m.ClientConnect(metrics.ResultCreated)
		m.PoolBuild(metrics.ResultFailed)
		m.Evicted(metrics.CacheClients, "expired")
		m.LeaseAcquired(time.Second)
		m.LeaseReleased()
		m.LeaseFailed("exhausted")
	})
}

func TestHandler(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics.New(reg).LeaseFailed("exhausted")

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dbgate_lease_failures_total{reason="exhausted"} 1`)
}
