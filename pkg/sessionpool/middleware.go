package sessionpool

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/logger"
)

// Headers read by HeaderResolver.
const (
	HeaderHost     = "X-DB-Host"
	HeaderPort     = "X-DB-Port"
	HeaderDatabase = "X-DB-Name"
)

// Resolver extracts a session Request from an inbound HTTP request.
type Resolver func(r *http.Request) (Request, error)

// ErrorHandler writes the response for a failed lease.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareOptions struct {
	resolver Resolver
	onError  ErrorHandler
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareOptions)

// WithResolver replaces HeaderResolver.
func WithResolver(fn Resolver) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.resolver = fn
		}
	}
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(fn ErrorHandler) MiddlewareOption {
	return func(o *middlewareOptions) {
		if fn != nil {
			o.onError = fn
		}
	}
}

// Middleware leases a session for every request and serves the rest of the
// chain inside Manager.WithSession, so the lease is returned once the
// downstream handler is done. Handlers read it with LeaseFromContext.
//
// Failures before the downstream handler runs go to the error handler. A
// release failure after the response was written is only logged.
func Middleware(m *Manager, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := &middlewareOptions{
		resolver: HeaderResolver,
		onError:  DefaultErrorHandler,
	}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req, err := o.resolver(r)
			if err != nil {
				o.onError(w, r, err)
				return
			}

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			err = m.WithSession(r.Context(), req, func(ctx context.Context, _ *Lease) error {
				next.ServeHTTP(ww, r.WithContext(ctx))
				return nil
			})
			if err == nil {
				return
			}
			if ww.Status() == 0 {
				o.onError(w, r, err)
				return
			}
			m.opts.logger.ErrorContext(r.Context(), "session release after response",
				logger.Component("session_middleware"),
				logger.PoolKey(req.PoolKey()),
				logger.Error(err),
			)
		})
	}
}

// HeaderResolver reads the target from X-DB-Host, X-DB-Port and X-DB-Name and
// the credentials from HTTP Basic auth.
func HeaderResolver(r *http.Request) (Request, error) {
	host := strings.TrimSpace(r.Header.Get(HeaderHost))
	if host == "" {
		return Request{}, invalid("missing %s header", HeaderHost)
	}
	rawPort := strings.TrimSpace(r.Header.Get(HeaderPort))
	if rawPort == "" {
		return Request{}, invalid("missing %s header", HeaderPort)
	}
	port, err := strconv.Atoi(rawPort)
	if err != nil {
		return Request{}, invalid("malformed %s header %q", HeaderPort, rawPort)
	}
	database := strings.TrimSpace(r.Header.Get(HeaderDatabase))
	if database == "" {
		return Request{}, invalid("missing %s header", HeaderDatabase)
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return Request{}, invalid("missing basic auth credentials")
	}

	req := Request{
		Target:      driver.Target{Host: host, Port: port},
		Database:    database,
		Credentials: driver.Credentials{Username: user, Password: pass},
	}
	return req, req.Validate()
}

// RetryAfterSeconds is sent with 503 responses.
const RetryAfterSeconds = 1

// DefaultErrorHandler writes a plain-text error with the status from Classify.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", strconv.Itoa(RetryAfterSeconds))
	}
	http.Error(w, fmt.Sprintf("%s: %s", code, http.StatusText(status)), status)
}
