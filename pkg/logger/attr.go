package logger

import (
	"log/slog"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// RequestID records the request identifier under the key "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// HostKey records a host:port client key.
func HostKey(key string) slog.Attr {
	return slog.String("host_key", key)
}

// PoolKey records a host:port/database pool key.
func PoolKey(key string) slog.Attr {
	return slog.String("pool_key", key)
}

// Database records a database name.
func Database(name string) slog.Attr {
	return slog.String("database", name)
}

// LeaseID records a session lease identifier.
func LeaseID(id string) slog.Attr {
	return slog.String("lease_id", id)
}

// Driver records the database driver name.
func Driver(name string) slog.Attr {
	return slog.String("driver", name)
}

// Reason records why something happened, e.g. an eviction reason.
func Reason(reason string) slog.Attr {
	return slog.String("reason", reason)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}
