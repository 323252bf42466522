// Package logger provides a context-aware wrapper around log/slog with
// functional options, attribute helpers for the gateway's domain keys and
// transparent injection of values stored in context.Context.
//
// New builds a JSON or text slog.Handler and wraps it with
// LogHandlerDecorator, which runs every registered ContextExtractor before
// delegating. Use it to attach request-scoped values such as the request ID:
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "dbgate"),
//		logger.WithContextExtractors(func(ctx context.Context) (slog.Attr, bool) {
//			id := middleware.GetReqID(ctx)
//			return logger.RequestID(id), id != ""
//		}),
//	)
//
//	log.InfoContext(ctx, "pool created",
//		logger.Component("sessionpool"),
//		logger.PoolKey("db1:2424/mydb"),
//	)
//
// Noop returns a logger that discards every record; packages use it when no
// logger is configured.
package logger
