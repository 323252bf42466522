package tracing

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Supported exporters.
const (
	ExporterOTLP   = "otlp"
	ExporterStdout = "stdout"
)

// Exporters lists the accepted DBGATE_TRACING_EXPORTER values.
var Exporters = []string{ExporterOTLP, ExporterStdout}

// Config holds the tracer provider settings.
type Config struct {
	Enabled      bool          `env:"DBGATE_TRACING_ENABLED" envDefault:"false"`
	Exporter     string        `env:"DBGATE_TRACING_EXPORTER" envDefault:"otlp"`
	Endpoint     string        `env:"DBGATE_TRACING_ENDPOINT" envDefault:"localhost:4317"` // host:port of the OTLP/gRPC collector
	Insecure     bool          `env:"DBGATE_TRACING_INSECURE" envDefault:"false"`
	SampleRate   float64       `env:"DBGATE_TRACING_SAMPLE_RATE" envDefault:"1"`
	BatchTimeout time.Duration `env:"DBGATE_TRACING_BATCH_TIMEOUT" envDefault:"5s"`
}

// DefaultConfig returns the same values as the env defaults.
func DefaultConfig() Config {
	return Config{
		Exporter:     ExporterOTLP,
		Endpoint:     "localhost:4317",
		SampleRate:   1,
		BatchTimeout: 5 * time.Second,
	}
}

// Validate checks a config that has tracing enabled. A disabled config is
// always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	var errs []error
	exporter := strings.ToLower(strings.TrimSpace(c.Exporter))
	if !slices.Contains(Exporters, exporter) {
		errs = append(errs, fmt.Errorf("unknown exporter %q, want one of %v", c.Exporter, Exporters))
	}
	if exporter == ExporterOTLP && strings.TrimSpace(c.Endpoint) == "" {
		errs = append(errs, errors.New("otlp endpoint is empty"))
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("sample rate must be within [0, 1], got %g", c.SampleRate))
	}
	if c.BatchTimeout < 0 {
		errs = append(errs, fmt.Errorf("batch timeout must not be negative, got %s", c.BatchTimeout))
	}
	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidConfig}, errs...)...)
	}
	return nil
}
