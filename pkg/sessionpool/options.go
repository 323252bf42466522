package sessionpool

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/dmitrymomot/dbgate/pkg/logger"
	"github.com/dmitrymomot/dbgate/pkg/metrics"
)

const tracerName = "github.com/dmitrymomot/dbgate/pkg/sessionpool"

type options struct {
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  trace.Tracer
	now     func() time.Time
}

func newOptions(opts []Option) *options {
	o := &options{
		logger: logger.Noop(),
		tracer: noop.NewTracerProvider().Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures registries and the manager.
type Option func(*options)

// WithLogger sets the logger. Nil keeps the discarding default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records registry and lease activity in c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) { o.metrics = c }
}

// WithTracerProvider enables tracing of connects, pool builds and leases.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithClock replaces time.Now. Cache expiry follows the same clock.
func WithClock(now func() time.Time) Option {
	if now == nil {
		panic("sessionpool.WithClock: clock must not be nil")
	}
	return func(o *options) { o.now = now }
}
