// Package gateway exposes the session pool manager over HTTP.
//
// Routes:
//
//	POST /connect      connect or reuse a host connection, list databases
//	POST /database     lease a session once and list its collections
//	POST /query        run a statement on a leased session
//	GET  /collections  list collections on a leased session
//	GET  /pools        snapshot of cached pools
//	GET  /healthz      liveness
//	GET  /readyz       readiness
//	GET  /metrics      Prometheus exposition, when a gatherer is set
//
// /connect and /database take X-DB-Host and X-DB-Port headers and
// credentials in the JSON body. /query and /collections run behind
// sessionpool.Middleware and take X-DB-Host, X-DB-Port, X-DB-Name and
// HTTP Basic credentials.
//
// Bodies use the handler package envelope. Errors are mapped with
// sessionpool.Classify; 503 responses carry Retry-After.
package gateway
