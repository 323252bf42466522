// Package metrics exposes Prometheus instrumentation for the connection and
// session pool manager.
//
// Collectors are registered against an explicit prometheus.Registerer so
// tests can use an isolated registry:
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	router.Handle("/metrics", metrics.Handler(reg))
//
// Every recording method is safe to call on a nil *Collector.
package metrics
