package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dmitrymomot/dbgate/pkg/httpserver"
	"github.com/dmitrymomot/dbgate/pkg/sessionpool"
	"github.com/dmitrymomot/dbgate/pkg/tracing"
)

// Drivers lists the accepted DBGATE_DRIVER values.
var Drivers = []string{"orientdb", "neo4j", "postgres", "mongodb", "redis", "opensearch"}

// App is the process configuration of the gateway binary.
type App struct {
	Driver   string `env:"DBGATE_DRIVER" envDefault:"orientdb"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	Service  string `env:"APP_NAME" envDefault:"dbgate"`
	LogLevel string `env:"LOG_LEVEL"`

	Pool    sessionpool.Config
	HTTP    httpserver.Config
	Tracing tracing.Config
}

// Validate reports every invalid value at once.
func (a App) Validate() error {
	var errs []error
	if !slices.Contains(Drivers, a.Driver) {
		errs = append(errs, fmt.Errorf("unknown driver %q, want one of %v", a.Driver, Drivers))
	}
	if err := a.Pool.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := a.Tracing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if a.LogLevel != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(a.LogLevel))); err != nil {
			errs = append(errs, fmt.Errorf("log level: %w", err))
		}
	}
	if a.HTTP.Addr == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidApp}, errs...)...)
	}
	return nil
}
