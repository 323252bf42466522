// Package tracing builds the OpenTelemetry tracer provider for the gateway.
//
// Tracing is off unless DBGATE_TRACING_ENABLED is set. When off, New returns
// a provider that samples nothing, so instrumented code needs no nil checks.
// When on, spans are batched and sent to an OTLP/gRPC collector or printed
// to stdout:
//
//	var cfg tracing.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	tp, err := tracing.New(ctx, cfg, "dbgate", version)
//	if err != nil {
//		return err
//	}
//	otel.SetTracerProvider(tp)
//	defer tp.Shutdown(context.Background())
//
// Shutdown flushes pending spans and must run before the process exits.
package tracing
