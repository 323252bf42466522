// Package redis implements driver.Driver with go-redis.
//
// A Redis "database" is a logical DB index ("0", "1", ...). The host
// connection is a client on DB 0; each session is a client bound to its DB.
// Query splits the statement into command arguments, so "GET user:1" runs
// GET with one argument; params["args"] may carry extra arguments.
// Collections reports key prefixes up to the first ':' found by SCAN.
package redis
