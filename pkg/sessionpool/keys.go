package sessionpool

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// HostKey identifies a database server: "host:port".
func HostKey(t driver.Target) string {
	return t.Addr()
}

// PoolKey identifies a database on a server: "host:port/database".
// Host keys never contain a slash, so the first slash splits the two parts.
func PoolKey(hostKey, database string) string {
	return hostKey + "/" + database
}

func invalid(format string, args ...any) error {
	return errors.Join(ErrInvalidRequest, fmt.Errorf(format, args...))
}

func validateTarget(t driver.Target) error {
	host := strings.TrimSpace(t.Host)
	switch {
	case host == "":
		return invalid("host is required")
	case host != t.Host || strings.ContainsAny(host, " \t\r\n/?#@"):
		return invalid("malformed host %q", t.Host)
	case t.Port == 0:
		return invalid("port is required")
	case t.Port < 0 || t.Port > 65535:
		return invalid("port %d out of range", t.Port)
	}
	return nil
}

func validateDatabase(name string) error {
	if strings.TrimSpace(name) == "" {
		return invalid("database name is required")
	}
	return nil
}

func validateCredentials(c driver.Credentials) error {
	if c.Username == "" {
		return invalid("username is required")
	}
	return nil
}
