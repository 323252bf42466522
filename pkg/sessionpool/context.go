package sessionpool

import (
	"context"
	"errors"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

type leaseContextKey struct{}

var errNoLease = errors.New("no lease in context")

// WithLease stores lease in ctx.
func WithLease(ctx context.Context, lease *Lease) context.Context {
	return context.WithValue(ctx, leaseContextKey{}, lease)
}

// LeaseFromContext returns the lease stored by WithSession or Middleware.
func LeaseFromContext(ctx context.Context) (*Lease, bool) {
	lease, ok := ctx.Value(leaseContextKey{}).(*Lease)
	return lease, ok && lease != nil
}

// SessionFromContext is a shortcut for LeaseFromContext followed by Session.
func SessionFromContext(ctx context.Context) (driver.Session, error) {
	lease, ok := LeaseFromContext(ctx)
	if !ok {
		return nil, errors.Join(ErrInternalLease, errNoLease)
	}
	return lease.Session()
}
