package driver

import (
	"context"
	"net"
	"strconv"
)

// Target identifies a database server.
type Target struct {
	Host string
	Port int
}

// Addr returns the host:port form of the target.
func (t Target) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// Credentials are forwarded verbatim to the database server.
type Credentials struct {
	Username string
	Password string
}

// Record is one row, document or node returned by a query.
type Record = map[string]any

// Driver opens connections to one kind of database server.
type Driver interface {
	// Name returns the driver identifier, e.g. "orientdb".
	Name() string

	// Connect authenticates against the server and returns a host-level
	// connection. Implementations must honor ctx cancellation.
	Connect(ctx context.Context, target Target, creds Credentials) (Conn, error)
}

// Conn is an authenticated connection to a database server.
// It is shared by every session pool built for that server.
type Conn interface {
	// ListDatabases returns the names of databases visible to the credentials.
	ListDatabases(ctx context.Context) ([]string, error)

	// OpenSession opens a session scoped to one database.
	// It returns an error joined with ErrDatabaseNotFound when the server
	// rejects the database name.
	OpenSession(ctx context.Context, database string) (Session, error)

	// Ping checks that the server is still reachable.
	Ping(ctx context.Context) error

	// Close releases the connection and everything it holds.
	Close(ctx context.Context) error
}

// Session is a database-scoped handle leased to one request at a time.
type Session interface {
	// Query runs a statement in the session's native query language.
	Query(ctx context.Context, statement string, params map[string]any) ([]Record, error)

	// Collections lists the top-level containers of the database: clusters,
	// labels, tables, collections or indices depending on the server.
	Collections(ctx context.Context) ([]string, error)

	// Close ends the session.
	Close(ctx context.Context) error
}
