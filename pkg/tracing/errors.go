package tracing

import "errors"

var (
	ErrInvalidConfig = errors.New("tracing: invalid configuration")
	ErrExporter      = errors.New("tracing: failed to create exporter")
	ErrResource      = errors.New("tracing: failed to create resource")
)
