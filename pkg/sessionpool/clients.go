package sessionpool

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/dbgate/pkg/cache"
	"github.com/dmitrymomot/dbgate/pkg/driver"
	"github.com/dmitrymomot/dbgate/pkg/logger"
	"github.com/dmitrymomot/dbgate/pkg/metrics"
)

// ClientHandle is a cached, authenticated connection to one database server.
type ClientHandle struct {
	key         string
	target      driver.Target
	driverName  string
	conn        driver.Conn
	fingerprint []byte
	createdAt   time.Time
	closed      atomic.Bool
}

// Key returns the host:port key.
func (h *ClientHandle) Key() string { return h.key }

// Target returns the server the handle is connected to.
func (h *ClientHandle) Target() driver.Target { return h.target }

// Driver returns the name of the driver that opened the connection.
func (h *ClientHandle) Driver() string { return h.driverName }

// Conn returns the underlying connection. It is shared; do not close it.
func (h *ClientHandle) Conn() driver.Conn { return h.conn }

// CreatedAt returns when the connection was established.
func (h *ClientHandle) CreatedAt() time.Time { return h.createdAt }

// Closed reports whether the handle was evicted.
func (h *ClientHandle) Closed() bool { return h.closed.Load() }

// ClientRegistry caches one connection per host:port.
type ClientRegistry struct {
	driver driver.Driver
	cfg    Config
	opts   *options
	secret []byte
	items  *cache.TTL[string, *ClientHandle]
	group  singleflight.Group

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewClientRegistry returns an empty registry connecting through d.
func NewClientRegistry(d driver.Driver, cfg Config, opts ...Option) (*ClientRegistry, error) {
	if d == nil {
		return nil, errors.Join(ErrInvalidConfig, errors.New("driver is required"))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	o := newOptions(opts)
	r := &ClientRegistry{
		driver: d,
		cfg:    cfg,
		opts:   o,
		secret: secret,
		items: cache.NewTTL[string, *ClientHandle](
			cache.WithCleanupInterval(cfg.CleanupInterval),
			cache.WithClock(o.now),
		),
	}
	r.items.SetEvictCallback(r.evicted)
	return r, nil
}

// ConnectOrReuse returns the cached handle for target, connecting on a miss.
// Concurrent misses for the same host share one driver Connect call.
// A cached handle is only handed to callers presenting the credentials it was
// opened with; anyone else gets ErrCredentialsMismatch until the handle
// expires, so other users of a host stay locked out for up to Config.ClientTTL.
func (r *ClientRegistry) ConnectOrReuse(ctx context.Context, target driver.Target, creds driver.Credentials) (*ClientHandle, error) {
	if err := validateTarget(target); err != nil {
		return nil, err
	}
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	key := HostKey(target)
	fp := r.fingerprint(creds)

	if h, ok := r.lookup(key); ok {
		r.opts.metrics.ClientConnect(metrics.ResultReused)
		return r.authorize(h, fp)
	}

	ch := r.group.DoChan(key, func() (any, error) {
		return r.connect(ctx, key, target, creds, fp)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return r.authorize(res.Val.(*ClientHandle), fp)
	}
}

// Lookup returns the live handle for target without connecting.
func (r *ClientRegistry) Lookup(target driver.Target) (*ClientHandle, bool) {
	return r.lookup(HostKey(target))
}

// Len returns the number of live handles.
func (r *ClientRegistry) Len() int { return r.items.Len() }

// Close evicts every handle and waits until their connections are closed.
func (r *ClientRegistry) Close(ctx context.Context) error {
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

func (r *ClientRegistry) lookup(key string) (*ClientHandle, bool) {
	h, ok := r.items.Get(key)
	if !ok || h.Closed() {
		return nil, false
	}
	return h, true
}

func (r *ClientRegistry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// connect runs inside the flight for key.
func (r *ClientRegistry) connect(ctx context.Context, key string, target driver.Target, creds driver.Credentials, fp []byte) (*ClientHandle, error) {
	if h, ok := r.lookup(key); ok {
		return h, nil
	}
	if r.isClosed() {
		return nil, ErrRegistryClosed
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.ConnectTimeout)
	defer cancel()

	ctx, span := r.opts.tracer.Start(ctx, "sessionpool.connect", trace.WithAttributes(
		attribute.String("db.system", r.driver.Name()),
		attribute.String("server.address", target.Host),
		attribute.Int("server.port", target.Port),
	))
	defer span.End()

	log := r.opts.logger.With(logger.Component("client_registry"), logger.HostKey(key))
	start := r.opts.now()

	conn, err := r.driver.Connect(ctx, target, creds)
	if err != nil {
		r.opts.metrics.ClientConnect(metrics.ResultFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "connect failed")
		log.WarnContext(ctx, "connect failed", logger.Error(err))
		return nil, errors.Join(ErrConnectionFailed, err)
	}

	h := &ClientHandle{
		key:         key,
		target:      target,
		driverName:  r.driver.Name(),
		conn:        conn,
		fingerprint: fp,
		createdAt:   r.opts.now(),
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.Close(ctx)
		return nil, ErrRegistryClosed
	}
	r.items.Set(key, h, r.cfg.ClientTTL)
	r.mu.Unlock()

	r.opts.metrics.ClientConnect(metrics.ResultCreated)
	span.SetStatus(codes.Ok, "")
	log.InfoContext(ctx, "client connected",
		logger.Driver(h.driverName),
		logger.Duration(h.createdAt.Sub(start)),
	)
	return h, nil
}

func (r *ClientRegistry) authorize(h *ClientHandle, fp []byte) (*ClientHandle, error) {
	if subtle.ConstantTimeCompare(h.fingerprint, fp) != 1 {
		return nil, ErrCredentialsMismatch
	}
	return h, nil
}

func (r *ClientRegistry) fingerprint(c driver.Credentials) []byte {
	mac, err := blake2b.New256(r.secret)
	if err != nil {
		panic(err) // secret is 32 bytes, always a valid key
	}
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(c.Username)))
	mac.Write(n[:])
	mac.Write([]byte(c.Username))
	mac.Write([]byte(c.Password))
	return mac.Sum(nil)
}

// evicted marks the handle closed right away so pools built on it stop being
// served, then closes the connection in the background.
func (r *ClientRegistry) evicted(key string, h *ClientHandle, reason cache.EvictReason) {
	if !h.closed.CompareAndSwap(false, true) {
		return
	}
	r.opts.metrics.Evicted(metrics.CacheClients, string(reason))

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ConnectTimeout)
		defer cancel()

		log := r.opts.logger.With(logger.Component("client_registry"), logger.HostKey(key), logger.Reason(string(reason)))
		if err := h.conn.Close(ctx); err != nil {
			log.WarnContext(ctx, "close client connection", logger.Error(err))
			return
		}
		log.InfoContext(ctx, "client closed")
	}()
}

func wait(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
