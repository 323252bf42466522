package sessionpool

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

var (
	ErrInvalidConfig       = errors.New("sessionpool: invalid configuration")
	ErrInvalidRequest      = errors.New("sessionpool: invalid request")
	ErrConnectionFailed    = errors.New("sessionpool: connection failed")
	ErrCredentialsMismatch = errors.New("sessionpool: credentials do not match the cached connection")
	ErrPoolCreationFailed  = errors.New("sessionpool: pool creation failed")
	ErrPoolExhausted       = errors.New("sessionpool: pool exhausted")
	ErrPoolExpired         = errors.New("sessionpool: pool expired")
	ErrLeaseExpired        = errors.New("sessionpool: lease outlived its pool")
	ErrInternalLease       = errors.New("sessionpool: lease already released")
	ErrRegistryClosed      = errors.New("sessionpool: registry closed")
)

// errHandleClosed is joined with ErrConnectionFailed when a pool is requested
// for a client handle that was evicted in the meantime. Manager retries it.
var errHandleClosed = errors.New("client handle closed")

// Error codes returned by Classify.
const (
	CodeInvalidRequest      = "invalid_request"
	CodeCredentialsMismatch = "credentials_mismatch"
	CodeAuthFailed          = "auth_failed"
	CodeConnectionFailed    = "connection_failed"
	CodePoolCreationFailed  = "pool_creation_failed"
	CodePoolExhausted       = "pool_exhausted"
	CodePoolExpired         = "pool_expired"
	CodeLeaseExpired        = "lease_expired"
	CodeInternalLease       = "internal_lease_error"
	CodeShuttingDown        = "shutting_down"
	CodeQueryFailed         = "query_failed"
	CodeDatabaseNotFound    = "database_not_found"
	CodeCanceled            = "request_canceled"
	CodeTimeout             = "timeout"
	CodeInternal            = "internal_error"
)

// StatusClientClosedRequest is the non-standard status used when the caller
// went away before a session could be leased.
const StatusClientClosedRequest = 499

// Classify maps an error returned by this package, or by a driver through it,
// to an HTTP status and a stable error code.
// Checks run from most to least specific: a pool creation failure caused by an
// unknown database is still a pool creation failure.
func Classify(err error) (int, string) {
	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, ErrCredentialsMismatch):
		return http.StatusUnauthorized, CodeCredentialsMismatch
	case errors.Is(err, ErrPoolExhausted):
		return http.StatusServiceUnavailable, CodePoolExhausted
	case errors.Is(err, ErrPoolExpired):
		return http.StatusServiceUnavailable, CodePoolExpired
	case errors.Is(err, ErrLeaseExpired):
		return http.StatusServiceUnavailable, CodeLeaseExpired
	case errors.Is(err, ErrRegistryClosed):
		return http.StatusServiceUnavailable, CodeShuttingDown
	case errors.Is(err, ErrConnectionFailed):
		return http.StatusInternalServerError, CodeConnectionFailed
	case errors.Is(err, ErrPoolCreationFailed):
		return http.StatusInternalServerError, CodePoolCreationFailed
	case errors.Is(err, ErrInternalLease):
		return http.StatusInternalServerError, CodeInternalLease
	case errors.Is(err, driver.ErrAuthFailed):
		return http.StatusUnauthorized, CodeAuthFailed
	case errors.Is(err, driver.ErrDatabaseNotFound):
		return http.StatusNotFound, CodeDatabaseNotFound
	case errors.Is(err, driver.ErrQueryFailed):
		return http.StatusBadGateway, CodeQueryFailed
	case errors.Is(err, driver.ErrUnreachable):
		return http.StatusInternalServerError, CodeConnectionFailed
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
