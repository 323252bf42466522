package handler

import (
	"errors"
	"net/http"
)

// ErrNilResponse is reported when a HandlerFunc returns nil.
var ErrNilResponse = errors.New("handler returned nil response")

// HTTPError is an error with a status code and a stable machine-readable
// code.
type HTTPError struct {
	Status int
	Code   string
	Err    error
}

// NewHTTPError wraps err with an HTTP status and error code.
func NewHTTPError(status int, code string, err error) HTTPError {
	return HTTPError{Status: status, Code: code, Err: err}
}

// Error returns the wrapped message, or the code when there is none.
func (e HTTPError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Code
}

// Unwrap returns the wrapped error.
func (e HTTPError) Unwrap() error { return e.Err }

var (
	ErrBadRequest         = HTTPError{Status: http.StatusBadRequest, Code: "bad_request"}
	ErrNotFound           = HTTPError{Status: http.StatusNotFound, Code: "not_found"}
	ErrMethodNotAllowed   = HTTPError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed"}
	ErrInternalError      = HTTPError{Status: http.StatusInternalServerError, Code: "internal_error"}
	ErrServiceUnavailable = HTTPError{Status: http.StatusServiceUnavailable, Code: "service_unavailable"}
)
