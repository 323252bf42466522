package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dmitrymomot/dbgate/pkg/config"
	"github.com/dmitrymomot/dbgate/pkg/gateway"
	"github.com/dmitrymomot/dbgate/pkg/httpserver"
	"github.com/dmitrymomot/dbgate/pkg/logger"
	"github.com/dmitrymomot/dbgate/pkg/metrics"
	"github.com/dmitrymomot/dbgate/pkg/sessionpool"
	"github.com/dmitrymomot/dbgate/pkg/tracing"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address, overrides HTTP_ADDR")
}

func newLogger(app config.App) *slog.Logger {
	opts := []logger.Option{
		logger.WithEnvironment(app.Env, app.Service),
		logger.WithContextValue("request_id", middleware.RequestIDKey),
	}
	if app.LogLevel != "" {
		opts = append(opts, logger.WithLevelName(app.LogLevel))
	}
	return logger.New(opts...)
}

// setupTracing builds the tracer provider and, when tracing is enabled,
// installs it as the global one.
func setupTracing(ctx context.Context, app config.App, opts ...tracing.Option) (*sdktrace.TracerProvider, error) {
	tp, err := tracing.New(ctx, app.Tracing, app.Service, version, opts...)
	if err != nil {
		return nil, err
	}
	if app.Tracing.Enabled {
		otel.SetTracerProvider(tp)
	}
	return tp, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var app config.App
	if err := config.Load(&app); err != nil {
		return err
	}
	if listenAddr != "" {
		app.HTTP.Addr = listenAddr
	}
	if err := app.Validate(); err != nil {
		return err
	}

	log := newLogger(app)
	logger.SetAsDefault(log)

	d, err := newDriver(app.Driver)
	if err != nil {
		return err
	}

	tp, err := setupTracing(ctx, app)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	manager, err := sessionpool.New(d, app.Pool,
		sessionpool.WithLogger(log),
		sessionpool.WithMetrics(metrics.New(reg)),
		sessionpool.WithTracerProvider(tp),
	)
	if err != nil {
		return errors.Join(err, tp.Shutdown(context.WithoutCancel(ctx)))
	}

	log.InfoContext(ctx, "starting dbgate",
		logger.Driver(d.Name()),
		slog.Duration("client_ttl", app.Pool.ClientTTL),
		slog.Duration("pool_ttl", app.Pool.PoolTTL),
		slog.Int("pool_max_size", int(app.Pool.PoolMaxSize)),
		slog.Bool("tracing", app.Tracing.Enabled),
	)

	srv := httpserver.NewFromConfig(app.HTTP,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(manager.Close),
		httpserver.WithStopHook(tp.Shutdown),
	)
	return srv.Run(ctx, gateway.New(manager,
		gateway.WithLogger(log),
		gateway.WithGatherer(reg),
	))
}
