package driver

import "errors"

var (
	// ErrAuthFailed is returned when the server rejects the credentials.
	ErrAuthFailed = errors.New("database authentication failed")

	// ErrUnreachable is returned when the server cannot be reached.
	ErrUnreachable = errors.New("database server unreachable")

	// ErrDatabaseNotFound is returned when a session targets an unknown database.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrQueryFailed is returned when the server rejects or fails a statement.
	ErrQueryFailed = errors.New("query failed")

	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("session closed")
)
