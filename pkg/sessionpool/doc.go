// Package sessionpool keeps database connections and session pools for many
// tenants at once.
//
// Three layers cooperate:
//
//   - ClientRegistry caches one authenticated driver.Conn per host:port for
//     Config.ClientTTL and closes it when the entry expires.
//   - PoolRegistry caches one bounded session pool per host:port/database for
//     Config.PoolTTL. Pools are built lazily, at most once per key even under
//     concurrent misses, and hold at most Config.PoolMaxSize sessions.
//   - Manager leases a session from the right pool, passes it to a handler and
//     returns it when the handler is done, on every exit path.
//
// Typical use through the HTTP middleware:
//
//	m, err := sessionpool.New(orientdb.New(), sessionpool.DefaultConfig(),
//		sessionpool.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	defer m.Close(context.Background())
//
//	r := chi.NewRouter()
//	r.With(sessionpool.Middleware(m)).Post("/query", func(w http.ResponseWriter, r *http.Request) {
//		sess, err := sessionpool.SessionFromContext(r.Context())
//		...
//	})
//
// Or directly:
//
//	err := m.WithSession(ctx, req, func(ctx context.Context, lease *sessionpool.Lease) error {
//		sess, err := lease.Session()
//		if err != nil {
//			return err
//		}
//		_, err = sess.Query(ctx, "SELECT FROM V", nil)
//		return err
//	})
//
// # Errors
//
// Every failure wraps one of the Err* sentinels; Classify maps them to an
// HTTP status. Pool exhaustion and expiry map to 503 so callers can retry.
//
// # Credentials
//
// A cached connection remembers a keyed BLAKE2b fingerprint of the
// credentials it was opened with. Requests for the same server with other
// credentials get ErrCredentialsMismatch rather than someone else's
// connection.
package sessionpool
