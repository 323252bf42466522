package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/dbgate/pkg/driver"
)

// Name is the driver identifier.
const Name = "mongodb"

// codeAuthenticationFailed is the server error code for rejected credentials.
const codeAuthenticationFailed = 18

// Driver connects to MongoDB deployments.
type Driver struct {
	cfg Config
}

// New returns a MongoDB driver.
func New(cfg Config) *Driver {
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	return &Driver{cfg: cfg}
}

// Name returns "mongodb".
func (d *Driver) Name() string { return Name }

// ClientOptions returns the options used to connect to target.
func (d *Driver) ClientOptions(target driver.Target, creds driver.Credentials) *options.ClientOptions {
	opts := options.Client().
		ApplyURI("mongodb://" + target.Addr()).
		SetMaxPoolSize(d.cfg.MaxPoolSize).
		SetMinPoolSize(d.cfg.MinPoolSize).
		SetMaxConnIdleTime(d.cfg.MaxConnIdleTime)
	if d.cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(d.cfg.ConnectTimeout)
	}
	if creds.Username != "" {
		opts.SetAuth(options.Credential{
			Username:   creds.Username,
			Password:   creds.Password,
			AuthSource: d.cfg.AuthSource,
		})
	}
	return opts
}

// Connect opens a client for target and pings it, retrying until auth
// fails or the attempts run out.
func (d *Driver) Connect(ctx context.Context, target driver.Target, creds driver.Credentials) (driver.Conn, error) {
	var lastErr error
	for attempt := range d.cfg.RetryAttempts {
		client, err := mongo.Connect(d.ClientOptions(target, creds))
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		if err = client.Ping(ctx, nil); err == nil {
			return &conn{client: client}, nil
		}
		_ = client.Disconnect(ctx)

		lastErr = classify(err)
		if errors.Is(lastErr, driver.ErrAuthFailed) || attempt == d.cfg.RetryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(d.cfg.RetryInterval):
		}
	}
	return nil, lastErr
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == codeAuthenticationFailed {
		return errors.Join(driver.ErrAuthFailed, err)
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return errors.Join(driver.ErrUnreachable, err)
	}
	return err
}

type conn struct {
	client *mongo.Client
}

func (c *conn) ListDatabases(ctx context.Context) ([]string, error) {
	names, err := c.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, classify(err)
	}
	slices.Sort(names)
	return names, nil
}

// OpenSession fails for databases that do not exist yet, since MongoDB would
// otherwise create them on first write.
func (c *conn) OpenSession(ctx context.Context, database string) (driver.Session, error) {
	names, err := c.client.ListDatabaseNames(ctx, bson.D{{Key: "name", Value: database}})
	if err != nil {
		return nil, classify(err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", driver.ErrDatabaseNotFound, database)
	}

	sess, err := c.client.StartSession()
	if err != nil {
		return nil, classify(err)
	}
	return &session{db: c.client.Database(database), sess: sess}, nil
}

func (c *conn) Ping(ctx context.Context) error {
	return classify(c.client.Ping(ctx, nil))
}

func (c *conn) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

type session struct {
	db     *mongo.Database
	sess   *mongo.Session
	closed bool
}

func (s *session) Query(ctx context.Context, statement string, params map[string]any) ([]driver.Record, error) {
	if s.closed {
		return nil, driver.ErrSessionClosed
	}

	var cmd bson.D
	if err := bson.UnmarshalExtJSON([]byte(statement), false, &cmd); err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, fmt.Errorf("parse command: %w", err))
	}
	for k, v := range params {
		cmd = append(cmd, bson.E{Key: k, Value: v})
	}

	raw, err := s.db.RunCommand(mongo.NewSessionContext(ctx, s.sess), cmd).Raw()
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, classify(err))
	}

	rec, err := toRecord(raw)
	if err != nil {
		return nil, errors.Join(driver.ErrQueryFailed, err)
	}
	return []driver.Record{rec}, nil
}

func (s *session) Collections(ctx context.Context) ([]string, error) {
	if s.closed {
		return nil, driver.ErrSessionClosed
	}
	names, err := s.db.ListCollectionNames(mongo.NewSessionContext(ctx, s.sess), bson.D{})
	if err != nil {
		return nil, classify(err)
	}
	slices.Sort(names)
	return names, nil
}

func (s *session) Close(ctx context.Context) error {
	if s.closed {
		return driver.ErrSessionClosed
	}
	s.closed = true
	s.sess.EndSession(ctx)
	return nil
}

// toRecord converts a BSON document to plain JSON types via relaxed
// Extended JSON.
func toRecord(raw bson.Raw) (driver.Record, error) {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, err
	}
	var rec driver.Record
	if err := json.Unmarshal(ext, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}
