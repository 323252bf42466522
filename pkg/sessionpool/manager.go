package sessionpool

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/logger"
)

// Request names the session a caller wants: which server, which database,
// and the credentials to forward.
type Request struct {
	Target      driver.Target
	Database    string
	Credentials driver.Credentials
}

// Validate reports the first missing or malformed field.
func (r Request) Validate() error {
	if err := validateTarget(r.Target); err != nil {
		return err
	}
	if err := validateDatabase(r.Database); err != nil {
		return err
	}
	return validateCredentials(r.Credentials)
}

// PoolKey returns the key of the pool that serves r.
func (r Request) PoolKey() string {
	return PoolKey(HostKey(r.Target), r.Database)
}

// HandlerFunc runs with a leased session. The lease is also available from
// ctx through LeaseFromContext.
type HandlerFunc func(ctx context.Context, lease *Lease) error

// Manager ties the client and pool registries together and scopes a lease
// to the lifetime of one handler call.
type Manager struct {
	clients *ClientRegistry
	pools   *PoolRegistry
	cfg     Config
	opts    *options
}

// New creates both registries for driver d.
func New(d driver.Driver, cfg Config, opts ...Option) (*Manager, error) {
	clients, err := NewClientRegistry(d, cfg, opts...)
	if err != nil {
		return nil, err
	}
	pools, err := NewPoolRegistry(cfg, opts...)
	if err != nil {
		return nil, errors.Join(err, clients.Close(context.Background()))
	}
	return &Manager{
		clients: clients,
		pools:   pools,
		cfg:     cfg,
		opts:    newOptions(opts),
	}, nil
}

// Clients returns the registry of server connections.
func (m *Manager) Clients() *ClientRegistry { return m.clients }

// Pools returns the registry of per-database session pools.
func (m *Manager) Pools() *PoolRegistry { return m.pools }

// Connect returns the client handle for target, connecting on a miss.
func (m *Manager) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (*ClientHandle, error) {
	return m.clients.ConnectOrReuse(ctx, target, creds)
}

// Acquire resolves the client and pool for req and leases a session.
// The caller owns the lease and must release it; prefer WithSession.
func (m *Manager) Acquire(ctx context.Context, req Request) (*Lease, error) {
	lease, err := m.acquire(ctx, req)
	if err != nil {
		_, code := Classify(err)
		m.opts.metrics.LeaseFailed(code)
		return nil, err
	}
	return lease, nil
}

func (m *Manager) acquire(ctx context.Context, req Request) (*Lease, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	// A pool or handle evicted between lookup and acquire is rebuilt once.
	for range 2 {
		h, err := m.clients.ConnectOrReuse(ctx, req.Target, req.Credentials)
		if err != nil {
			return nil, err
		}
		p, err := m.pools.GetOrCreate(ctx, h, req.Database)
		if err == nil {
			var lease *Lease
			lease, err = p.Acquire(ctx, m.cfg.AcquireTimeout)
			if err == nil {
				return lease, nil
			}
		}
		if !errors.Is(err, ErrPoolExpired) && !errors.Is(err, errHandleClosed) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// WithSession leases a session for req, runs fn and returns the session on
// every exit path, panics included. Release failures are joined with fn's
// error. A session that reports itself closed or unreachable is discarded
// instead of being returned to the pool.
func (m *Manager) WithSession(ctx context.Context, req Request, fn HandlerFunc) (err error) {
	ctx, span := m.opts.tracer.Start(ctx, "sessionpool.WithSession", trace.WithAttributes(
		attribute.String("server.address", req.Target.Host),
		attribute.Int("server.port", req.Target.Port),
		attribute.String("db.namespace", req.Database),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	lease, err := m.Acquire(ctx, req)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("dbgate.lease_id", lease.ID()))

	log := m.opts.logger.With(
		logger.Component("session_manager"),
		logger.PoolKey(lease.PoolKey()),
		logger.LeaseID(lease.ID()),
	)
	log.DebugContext(ctx, "session leased")

	defer func() {
		if r := recover(); r != nil {
			_ = lease.Discard()
			log.ErrorContext(ctx, "handler panicked, session discarded")
			panic(r)
		}
		err = errors.Join(err, m.release(lease, err))
		log.DebugContext(ctx, "session released",
			logger.Duration(m.opts.now().Sub(lease.AcquiredAt())),
			slog.Bool("ok", err == nil),
		)
	}()

	return fn(WithLease(ctx, lease), lease)
}

// IsBroken reports whether err means the session can no longer be reused.
func IsBroken(err error) bool {
	return errors.Is(err, driver.ErrSessionClosed) || errors.Is(err, driver.ErrUnreachable)
}

// Ready reports ErrRegistryClosed once Close has been called.
func (m *Manager) Ready(context.Context) error {
	if m.clients.isClosed() {
		return ErrRegistryClosed
	}
	return nil
}

// Close shuts down pools first, waiting for leases, then closes clients.
func (m *Manager) Close(ctx context.Context) error {
	return errors.Join(m.pools.Close(ctx), m.clients.Close(ctx))
}

func (m *Manager) release(lease *Lease, fnErr error) error {
	if lease.Broken() || IsBroken(fnErr) {
		return lease.Discard()
	}
	return lease.Release()
}
