package sessionpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/puddle/v2"

	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/logger"
)

const sessionCloseTimeout = 5 * time.Second

// Pool is a bounded set of sessions for one database on one server.
type Pool struct {
	key       string
	database  string
	handle    *ClientHandle
	maxSize   int32
	createdAt time.Time
	opts      *options

	sessions  *puddle.Pool[driver.Session]
	expired   atomic.Bool
	closeOnce sync.Once
}

// PoolStats is a point-in-time view of a pool.
type PoolStats struct {
	Key       string    `json:"key"`
	HostKey   string    `json:"host_key"`
	Database  string    `json:"database"`
	MaxSize   int32     `json:"max_size"`
	InUse     int32     `json:"in_use"`
	Idle      int32     `json:"idle"`
	Total     int32     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
	Expired   bool      `json:"expired"`
}

// newPool builds the pool and opens its first session, so an unknown
// database fails here instead of on the first lease.
func newPool(ctx context.Context, key string, h *ClientHandle, database string, maxSize int32, o *options) (*Pool, error) {
	p := &Pool{
		key:       key,
		database:  database,
		handle:    h,
		maxSize:   maxSize,
		createdAt: o.now(),
		opts:      o,
	}

	sessions, err := puddle.NewPool(&puddle.Config[driver.Session]{
		Constructor: p.openSession,
		Destructor:  p.closeSession,
		MaxSize:     maxSize,
	})
	if err != nil {
		return nil, err
	}
	p.sessions = sessions

	if err := sessions.CreateResource(ctx); err != nil {
		sessions.Close()
		return nil, err
	}
	return p, nil
}

// Key returns the host:port/database key the pool is cached under.
func (p *Pool) Key() string { return p.key }

// Database returns the database every session of the pool is bound to.
func (p *Pool) Database() string { return p.database }

// Handle returns the client handle the pool derives sessions from.
func (p *Pool) Handle() *ClientHandle { return p.handle }

// MaxSize returns the upper bound on sessions, leased and idle together.
func (p *Pool) MaxSize() int32 { return p.maxSize }

// Expired reports whether the pool left its registry.
func (p *Pool) Expired() bool { return p.expired.Load() }

// Stats returns current session counts.
func (p *Pool) Stats() PoolStats {
	s := p.sessions.Stat()
	return PoolStats{
		Key:       p.key,
		HostKey:   p.handle.Key(),
		Database:  p.database,
		MaxSize:   p.maxSize,
		InUse:     s.AcquiredResources(),
		Idle:      s.IdleResources(),
		Total:     s.TotalResources(),
		CreatedAt: p.createdAt,
		Expired:   p.Expired(),
	}
}

// Acquire leases a session, waiting at most timeout for one to free up.
// A zero timeout waits until ctx is done.
//
// Errors: ErrPoolExhausted when timeout elapses, ErrPoolExpired when the pool
// was evicted, the ctx error when the caller gave up, and ErrConnectionFailed
// when a new session could not be opened.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration) (*Lease, error) {
	if p.Expired() {
		return nil, ErrPoolExpired
	}

	actx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := p.opts.now()
	res, err := p.sessions.Acquire(actx)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case errors.Is(err, puddle.ErrClosedPool):
			return nil, ErrPoolExpired
		case errors.Is(err, context.DeadlineExceeded):
			return nil, errors.Join(ErrPoolExhausted,
				fmt.Errorf("%d of %d sessions in use after %s", p.sessions.Stat().AcquiredResources(), p.maxSize, timeout))
		default:
			return nil, errors.Join(ErrConnectionFailed, err)
		}
	}

	if p.Expired() {
		res.Release()
		return nil, ErrPoolExpired
	}

	now := p.opts.now()
	p.opts.metrics.LeaseAcquired(now.Sub(start))
	return &Lease{
		id:         uuid.NewString(),
		pool:       p,
		res:        res,
		acquiredAt: now,
	}, nil
}

func (p *Pool) openSession(ctx context.Context) (driver.Session, error) {
	if p.handle.Closed() {
		return nil, errors.Join(driver.ErrUnreachable, errHandleClosed)
	}
	return p.handle.conn.OpenSession(ctx, p.database)
}

func (p *Pool) closeSession(s driver.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
	defer cancel()
	if err := s.Close(ctx); err != nil && !errors.Is(err, driver.ErrSessionClosed) {
		p.opts.logger.WarnContext(ctx, "close session",
			logger.Component("pool"),
			logger.PoolKey(p.key),
			logger.Error(err),
		)
	}
}

// expire stops new leases. Outstanding leases keep their session until they
// are released, but Session reports ErrLeaseExpired. It reports whether this
// call did the expiring.
func (p *Pool) expire() bool {
	return p.expired.CompareAndSwap(false, true)
}

// close expires the pool and blocks until every lease is back.
func (p *Pool) close() {
	p.expire()
	p.closeOnce.Do(p.sessions.Close)
}

// Lease is one session checked out of a Pool. Release it exactly once.
type Lease struct {
	id         string
	pool       *Pool
	res        *puddle.Resource[driver.Session]
	acquiredAt time.Time
	done       atomic.Bool
	broken     atomic.Bool
}

// ID returns the lease identifier, a random UUID.
func (l *Lease) ID() string { return l.id }

// PoolKey returns the key of the pool the session came from.
func (l *Lease) PoolKey() string { return l.pool.key }

// Database returns the database the session is bound to.
func (l *Lease) Database() string { return l.pool.database }

// AcquiredAt returns when the session was handed out.
func (l *Lease) AcquiredAt() time.Time { return l.acquiredAt }

// Session returns the leased session.
func (l *Lease) Session() (driver.Session, error) {
	if l.done.Load() {
		return nil, ErrInternalLease
	}
	if l.pool.Expired() {
		return nil, ErrLeaseExpired
	}
	return l.res.Value(), nil
}

// Release returns the session to its pool. Any further Release or Discard
// returns ErrInternalLease and leaves the pool untouched.
func (l *Lease) Release() error {
	if !l.done.CompareAndSwap(false, true) {
		return ErrInternalLease
	}
	l.res.Release()
	l.pool.opts.metrics.LeaseReleased()
	return nil
}

// MarkBroken flags the session so the scope that owns the lease discards it
// instead of returning it to the pool.
func (l *Lease) MarkBroken() { l.broken.Store(true) }

// Broken reports whether MarkBroken was called.
func (l *Lease) Broken() bool { return l.broken.Load() }

// Discard closes the session instead of returning it, for sessions left in
// an unknown state.
func (l *Lease) Discard() error {
	if !l.done.CompareAndSwap(false, true) {
		return ErrInternalLease
	}
	l.res.Destroy()
	l.pool.opts.metrics.LeaseReleased()
	return nil
}
