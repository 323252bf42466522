// Package httpserver runs the gateway's HTTP listener with graceful
// shutdown.
//
// Run blocks until the context is canceled, SIGINT or SIGTERM arrives, or
// Shutdown is called. Shutdown drains in-flight requests within the
// configured timeout and then runs stop hooks, which is where the session
// pool manager is closed so that no lease outlives its request:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(manager.Close),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
//
// HealthCheckHandler serves liveness ("ALIVE") and readiness ("READY" or
// "NOT_READY") probes.
//
// Listen errors are joined with ErrStart, drain errors with ErrShutdown and
// hook errors with ErrStopHook.
package httpserver
