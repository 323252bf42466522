package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/dbgate/pkg/binder"
	"github.com/dmitrymomot/dbgate/pkg/handler"
	"github.com/dmitrymomot/dbgate/pkg/httpserver"
	"github.com/dmitrymomot/dbgate/pkg/logger"
	"github.com/dmitrymomot/dbgate/pkg/metrics"
	"github.com/dmitrymomot/dbgate/pkg/sessionpool"
)

// Option configures the router.
type Option func(*gateway)

// WithLogger sets the logger for error responses and lease failures.
func WithLogger(l *slog.Logger) Option {
	return func(g *gateway) {
		if l != nil {
			g.log = l
		}
	}
}

// WithGatherer mounts GET /metrics for g.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(g *gateway) { g.gatherer = gatherer }
}

type gateway struct {
	manager  *sessionpool.Manager
	log      *slog.Logger
	gatherer prometheus.Gatherer
	onError  handler.ErrorHandler[handler.Context]
}

// New returns the HTTP API in front of m.
func New(m *sessionpool.Manager, opts ...Option) http.Handler {
	g := &gateway{manager: m, log: logger.Noop()}
	for _, opt := range opts {
		opt(g)
	}
	g.onError = handler.NewErrorHandler(g.log,
		handler.WithClassifier(sessionpool.Classify),
		handler.WithRetryAfter(sessionpool.RetryAfterSeconds),
	)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.NotFound(g.wrapError(handler.ErrNotFound))
	r.MethodNotAllowed(g.wrapError(handler.ErrMethodNotAllowed))

	r.Get("/healthz", httpserver.HealthCheckHandler(g.log))
	r.Get("/readyz", httpserver.HealthCheckHandler(g.log, m.Ready))
	if g.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(g.gatherer))
	}

	r.Post("/connect", handler.Wrap(g.connect,
		handler.WithBinders[handler.Context, connectRequest](binder.Header(), binder.JSON()),
		handler.WithErrorHandler[handler.Context, connectRequest](g.onError),
	))
	r.Post("/database", handler.Wrap(g.database,
		handler.WithBinders[handler.Context, databaseRequest](binder.Header(), binder.JSON()),
		handler.WithErrorHandler[handler.Context, databaseRequest](g.onError),
	))
	r.Get("/pools", handler.Wrap(g.pools,
		handler.WithErrorHandler[handler.Context, struct{}](g.onError),
	))

	r.Group(func(r chi.Router) {
		r.Use(sessionpool.Middleware(m, sessionpool.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			g.onError(handler.NewContext(w, r), err)
		})))
		r.Post("/query", handler.Wrap(g.query,
			handler.WithBinders[handler.Context, queryRequest](binder.JSON()),
			handler.WithErrorHandler[handler.Context, queryRequest](g.onError),
		))
		r.Get("/collections", handler.Wrap(g.collections,
			handler.WithErrorHandler[handler.Context, struct{}](g.onError),
		))
	})

	return r
}

func (g *gateway) wrapError(err error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.onError(handler.NewContext(w, r), err)
	}
}
