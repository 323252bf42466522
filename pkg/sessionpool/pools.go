package sessionpool

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/dbgate/pkg/cache"
	"github.com/dmitrymomot/dbgate/pkg/logger"
	"github.com/dmitrymomot/dbgate/pkg/metrics"
)

// PoolRegistry caches one session pool per host:port/database.
type PoolRegistry struct {
	cfg   Config
	opts  *options
	items *cache.TTL[string, *Pool]
	group singleflight.Group

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewPoolRegistry returns an empty registry. Pools are built from the client
// handles passed to GetOrCreate.
func NewPoolRegistry(cfg Config, opts ...Option) (*PoolRegistry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	r := &PoolRegistry{
		cfg:  cfg,
		opts: o,
		items: cache.NewTTL[string, *Pool](
			cache.WithCleanupInterval(cfg.CleanupInterval),
			cache.WithClock(o.now),
		),
	}
	r.items.SetEvictCallback(r.evicted)
	return r, nil
}

// GetOrCreate returns the live pool for database on h's server, building it
// on a miss. At most one build runs per key; concurrent callers share it.
// A cached pool whose client handle was evicted counts as a miss.
func (r *PoolRegistry) GetOrCreate(ctx context.Context, h *ClientHandle, database string) (*Pool, error) {
	if h == nil {
		return nil, invalid("client handle is required")
	}
	if err := validateDatabase(database); err != nil {
		return nil, err
	}
	if h.Closed() {
		return nil, errors.Join(ErrConnectionFailed, errHandleClosed)
	}

	key := PoolKey(h.Key(), database)
	if p, ok := r.lookup(key, h); ok {
		r.opts.metrics.PoolBuild(metrics.ResultReused)
		return p, nil
	}

	// A caller holding a reconnected handle may join a flight started on the
	// evicted one. Its result is not ours, so rebuild once on our handle.
	for range 2 {
		ch := r.group.DoChan(key, func() (any, error) {
			p, err := r.build(ctx, key, h, database)
			return flightResult{pool: p, handle: h}, err
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res = <-ch:
		}
		if fr := res.Val.(flightResult); fr.handle == h {
			if res.Err != nil {
				return nil, res.Err
			}
			return fr.pool, nil
		}
	}
	return nil, errors.Join(ErrConnectionFailed, errHandleClosed)
}

// flightResult tags a build with the handle its leader passed in.
type flightResult struct {
	pool   *Pool
	handle *ClientHandle
}

// Lookup returns the live pool for poolKey without building one.
func (r *PoolRegistry) Lookup(poolKey string) (*Pool, bool) {
	p, ok := r.items.Get(poolKey)
	if !ok || p.Expired() || p.handle.Closed() {
		return nil, false
	}
	return p, true
}

// Len returns the number of cached pools, expired ones included until the
// next lookup or janitor pass removes them.
func (r *PoolRegistry) Len() int { return r.items.Len() }

// Snapshot returns stats for every cached pool, ordered by key.
func (r *PoolRegistry) Snapshot() []PoolStats {
	keys := r.items.Keys()
	out := make([]PoolStats, 0, len(keys))
	for _, key := range keys {
		if p, ok := r.items.Get(key); ok {
			out = append(out, p.Stats())
		}
	}
	slices.SortFunc(out, func(a, b PoolStats) int { return cmp.Compare(a.Key, b.Key) })
	return out
}

// Close evicts every pool and waits until all of them are closed, which
// includes waiting for outstanding leases.
func (r *PoolRegistry) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	_ = r.items.Close()
	return wait(ctx, &r.wg)
}

func (r *PoolRegistry) lookup(key string, h *ClientHandle) (*Pool, bool) {
	p, ok := r.items.Get(key)
	if !ok || p.Expired() || p.handle != h || h.Closed() {
		return nil, false
	}
	return p, true
}

func (r *PoolRegistry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// build runs inside the flight for key.
func (r *PoolRegistry) build(ctx context.Context, key string, h *ClientHandle, database string) (*Pool, error) {
	if p, ok := r.lookup(key, h); ok {
		return p, nil
	}
	if r.isClosed() {
		return nil, ErrRegistryClosed
	}

	// A stale entry can only be replaced from inside the flight.
	r.items.Delete(key)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ConnectTimeout)
	defer cancel()

	ctx, span := r.opts.tracer.Start(ctx, "sessionpool.build_pool", trace.WithAttributes(
		attribute.String("db.system", h.Driver()),
		attribute.String("db.namespace", database),
		attribute.String("dbgate.pool_key", key),
	))
	defer span.End()

	log := r.opts.logger.With(logger.Component("pool_registry"), logger.PoolKey(key))

	p, err := newPool(ctx, key, h, database, r.cfg.PoolMaxSize, r.opts)
	if err != nil {
		r.opts.metrics.PoolBuild(metrics.ResultFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "pool build failed")
		log.WarnContext(ctx, "pool build failed", logger.Error(err))
		return nil, errors.Join(ErrPoolCreationFailed, err)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		p.close()
		return nil, ErrRegistryClosed
	}
	r.items.Set(key, p, r.cfg.PoolTTL)
	r.mu.Unlock()

	r.opts.metrics.PoolBuild(metrics.ResultCreated)
	span.SetStatus(codes.Ok, "")
	log.InfoContext(ctx, "pool created", logger.Database(database))
	return p, nil
}

// evicted stops leasing from the pool immediately and closes it once its
// leases are back.
func (r *PoolRegistry) evicted(key string, p *Pool, reason cache.EvictReason) {
	if !p.expire() {
		return
	}
	r.opts.metrics.Evicted(metrics.CachePools, string(reason))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		p.close()
		r.opts.logger.Info("pool closed",
			logger.Component("pool_registry"),
			logger.PoolKey(key),
			logger.Reason(string(reason)),
		)
	}()
}
