package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dbgate"

// Result labels.
const (
	ResultCreated = "created"
	ResultReused  = "reused"
	ResultFailed  = "failed"
)

// Cache labels.
const (
	CacheClients = "clients"
	CachePools   = "pools"
)

// Collector records connection, pool and lease activity.
// A nil *Collector is valid and records nothing.
type Collector struct {
	clientConnects *prometheus.CounterVec
	clientsCached  prometheus.Gauge
	poolBuilds     *prometheus.CounterVec
	poolsCached    prometheus.Gauge
	leasesInUse    prometheus.Gauge
	leaseWait      prometheus.Histogram
	leaseFailures  *prometheus.CounterVec
	evictions      *prometheus.CounterVec
}

// New registers the gateway metrics with reg.
// Passing prometheus.DefaultRegisterer exposes them on the default handler.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		clientConnects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "client_connects_total",
			Help:      "Client registry lookups by outcome.",
		}, []string{"result"}),
		clientsCached: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "clients_cached",
			Help:      "Live host connections held by the client registry.",
		}),
		poolBuilds: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pool_builds_total",
			Help:      "Pool registry lookups by outcome.",
		}, []string{"result"}),
		poolsCached: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pools_cached",
			Help:      "Live session pools held by the pool registry.",
		}),
		leasesInUse: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "leases_in_use",
			Help:      "Sessions currently leased to requests.",
		}),
		leaseWait: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lease_wait_seconds",
			Help:      "Time spent waiting for a session lease.",
			Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		leaseFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lease_failures_total",
			Help:      "Failed lease operations by reason.",
		}, []string{"reason"}),
		evictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries removed from registry caches.",
		}, []string{"cache", "reason"}),
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// ClientConnect counts a connect attempt by result. Created handles raise
// the cached clients gauge.
func (c *Collector) ClientConnect(result string) {
	if c == nil {
		return
	}
	c.clientConnects.WithLabelValues(result).Inc()
	if result == ResultCreated {
		c.clientsCached.Inc()
	}
}

// PoolBuild counts a pool lookup or build by result.
func (c *Collector) PoolBuild(result string) {
	if c == nil {
		return
	}
	c.poolBuilds.WithLabelValues(result).Inc()
	if result == ResultCreated {
		c.poolsCached.Inc()
	}
}

// Evicted records an entry leaving cacheName and adjusts the matching gauge.
func (c *Collector) Evicted(cacheName, reason string) {
	if c == nil {
		return
	}
	c.evictions.WithLabelValues(cacheName, reason).Inc()
	switch cacheName {
	case CacheClients:
		c.clientsCached.Dec()
	case CachePools:
		c.poolsCached.Dec()
	}
}

// LeaseAcquired records how long a caller waited for a session.
func (c *Collector) LeaseAcquired(wait time.Duration) {
	if c == nil {
		return
	}
	c.leaseWait.Observe(wait.Seconds())
	c.leasesInUse.Inc()
}

// LeaseReleased lowers the leases in use gauge.
func (c *Collector) LeaseReleased() {
	if c == nil {
		return
	}
	c.leasesInUse.Dec()
}

// LeaseFailed counts a failed lease by error code.
func (c *Collector) LeaseFailed(reason string) {
	if c == nil {
		return
	}
	c.leaseFailures.WithLabelValues(reason).Inc()
}
