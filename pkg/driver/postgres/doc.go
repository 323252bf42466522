// Package postgres implements driver.Driver on top of pgx.
//
// The host connection is a small pgxpool.Pool against the maintenance
// database, used to list databases and for health checks. Every session is a
// dedicated *pgx.Conn to the leased database, so session state such as
// SET commands and temporary tables stays with one lease at a time.
//
// Query binds params with pgx.NamedArgs, so statements use @name placeholders.
package postgres
