// Package driver defines the boundary between the gateway and database
// client libraries.
//
// The gateway never speaks a wire protocol itself. It manages the lifecycle of
// three driver-owned objects:
//
//   - Conn: one authenticated connection per database server (host:port).
//   - Session: a handle scoped to one database, created from a Conn and
//     pooled by the gateway.
//   - Record: a generic result row.
//
// Implementations live in sub-packages, one per database family:
// orientdb, neo4j, postgres, mongo, redis and opensearch. The drivertest
// package provides an in-memory fake for tests.
package driver
