package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/dbgate/pkg/binder"
	"github.com/dmitrymomot/dbgate/pkg/logger"
)

// Classifier maps a domain error to an HTTP status and error code.
type Classifier func(err error) (status int, code string)

// ErrorHandlerOption configures NewErrorHandler.
type ErrorHandlerOption func(*errorHandlerConfig)

type errorHandlerConfig struct {
	classify   Classifier
	retryAfter int
}

// WithClassifier sets the mapping used for errors that are neither an
// HTTPError nor a binder error.
func WithClassifier(c Classifier) ErrorHandlerOption {
	return func(cfg *errorHandlerConfig) { cfg.classify = c }
}

// WithRetryAfter sets the Retry-After seconds sent with 503 responses.
// Zero omits the header.
func WithRetryAfter(seconds int) ErrorHandlerOption {
	return func(cfg *errorHandlerConfig) { cfg.retryAfter = seconds }
}

// classify resolves err to a status and code. HTTPError wins, then binder
// failures, then the classifier.
func classify(err error, c Classifier) (int, string) {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Status, httpErr.Code
	case errors.Is(err, binder.ErrUnsupportedMediaType), errors.Is(err, binder.ErrMissingContentType):
		return http.StatusUnsupportedMediaType, "unsupported_media_type"
	case errors.Is(err, binder.ErrFailedToParseJSON), errors.Is(err, binder.ErrFailedToParseHeader):
		return http.StatusBadRequest, ErrBadRequest.Code
	case c != nil:
		return c(err)
	}
	return http.StatusInternalServerError, ErrInternalError.Code
}

// message exposes the full error chain for client errors and only the top
// sentinel for server errors.
func message(err error, status int) string {
	text := err.Error()
	if status >= http.StatusInternalServerError {
		first, _, _ := strings.Cut(text, "\n")
		return first
	}
	return strings.ReplaceAll(text, "\n", ": ")
}

// NewErrorHandler logs err and renders it as a JSON error envelope.
// Client errors are logged at warn, server errors at error.
func NewErrorHandler(log *slog.Logger, opts ...ErrorHandlerOption) ErrorHandler[Context] {
	if log == nil {
		log = logger.Noop()
	}
	cfg := &errorHandlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		status, code := classify(err, cfg.classify)

		level := slog.LevelError
		if status < http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		log.LogAttrs(r.Context(), level, "request failed",
			logger.RequestID(middleware.GetReqID(r.Context())),
			logger.Error(err),
			slog.Int("status", status),
			slog.String("code", code),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Component("error_handler"),
		)

		var jsonOpts []JSONOption
		if status == http.StatusServiceUnavailable && cfg.retryAfter > 0 {
			jsonOpts = append(jsonOpts, WithJSONHeader("Retry-After", strconv.Itoa(cfg.retryAfter)))
		}
		herr := NewHTTPError(status, code, errors.New(message(err, status)))
		if renderErr := JSONError(herr, jsonOpts...).Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.WarnContext(r.Context(), "write error response", logger.Error(renderErr))
		}
	}
}
