// Package natsstore persists node results in a NATS JetStream key-value
// bucket.
package natsstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/specialistvlad/conduit/internal/resultstore"
)

const (
	keyPrefix     = "result."
	encodedPrefix = "b64."
)

var plainKey = regexp.MustCompile(`^[-/_=a-zA-Z0-9]+$`)

// KeyValue is the subset of nats.KeyValue the store needs.
type KeyValue interface {
	Put(key string, value []byte) (uint64, error)
	Get(key string) (nats.KeyValueEntry, error)
}

var _ KeyValue = (nats.KeyValue)(nil)

// Config holds the connection settings.
type Config struct {
	URL     string
	Bucket  string
	Name    string
	Timeout time.Duration
	// Create makes the bucket when it does not exist yet.
	Create bool
}

// Store keeps one entry per label in a bucket.
type Store struct {
	kv   KeyValue
	conn *nats.Conn
}

var _ resultstore.Store = (*Store)(nil)

// New wraps a bucket bound elsewhere.
func New(kv KeyValue) *Store {
	return &Store{kv: kv}
}

// Connect dials the server, binds the bucket and returns a store that owns
// the connection.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("NATS URL cannot be empty")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name cannot be empty")
	}
	if cfg.Name == "" {
		cfg.Name = "conduit"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	logger := ctxlog.FromContext(ctx).With("url", cfg.URL, "bucket", cfg.Bucket)

	type dialResult struct {
		conn *nats.Conn
		err  error
	}
	resultCh := make(chan dialResult, 1)
	go func() {
		conn, err := nats.Connect(cfg.URL,
			nats.Name(cfg.Name),
			nats.Timeout(cfg.Timeout),
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("NATS disconnected.", "error", err)
				}
			}),
			nats.ReconnectHandler(func(nc *nats.Conn) {
				logger.Info("NATS reconnected.", "server", nc.ConnectedUrl())
			}),
		)
		resultCh <- dialResult{conn: conn, err: err}
	}()

	var conn *nats.Conn
	select {
	case <-ctx.Done():
		go func() {
			if res := <-resultCh; res.conn != nil {
				res.conn.Close()
			}
		}()
		return nil, fmt.Errorf("connection cancelled: %w", ctx.Err())
	case res := <-resultCh:
		if res.err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", res.err)
		}
		conn = res.conn
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("JetStream is not enabled on the NATS server: %w", err)
	}
	kv, err := js.KeyValue(cfg.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) && cfg.Create {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{Bucket: cfg.Bucket, Description: "conduit node results"})
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind bucket %q: %w", cfg.Bucket, err)
	}
	logger.Debug("Result bucket bound.")
	return &Store{kv: kv, conn: conn}, nil
}

// Close drains the connection if the store opened it.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

// Put stores the record of one result.
func (s *Store) Put(ctx context.Context, label string, res result.Result) error {
	if err := ctx.Err(); err != nil {
		return resultstore.Wrap("put", label, err)
	}
	data, err := resultstore.EncodeRecord(label, res)
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}
	rev, err := s.kv.Put(Key(label), data)
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}
	ctxlog.FromContext(ctx).Debug("Result written to bucket.", "label", label, "revision", rev)
	return nil
}

// Get reads the latest record of one result.
func (s *Store) Get(ctx context.Context, label string) (result.Result, error) {
	entry, err := s.kv.Get(Key(label))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return result.Null(), resultstore.Wrap("get", label, resultstore.ErrNotFound)
	}
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	rec, err := resultstore.DecodeRecord(entry.Value())
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	return rec.Result, nil
}

// Key maps a label to a valid bucket key. Labels made only of key-safe
// characters are kept readable; anything else is base64url encoded.
func Key(label string) string {
	if plainKey.MatchString(label) {
		return keyPrefix + label
	}
	return keyPrefix + encodedPrefix + base64.RawURLEncoding.EncodeToString([]byte(label))
}
