package badgerstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/specialistvlad/conduit/internal/resultstore"
)

const keyPrefix = "result/"

// Store keeps one record per label under the "result/" key prefix.
type Store struct {
	db    *badger.DB
	owned bool
}

var _ resultstore.Store = (*Store)(nil)

// Open opens a database and returns a store that closes it on Close.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, owned: true}, nil
}

// New wraps a database opened elsewhere. Close leaves it open.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Close closes the database if the store opened it.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Put stores the result in a single transaction.
func (s *Store) Put(ctx context.Context, label string, res result.Result) error {
	if err := ctx.Err(); err != nil {
		return resultstore.Wrap("put", label, err)
	}
	data, err := resultstore.EncodeRecord(label, res)
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+label), data)
	})
	if err != nil {
		return resultstore.Wrap("put", label, err)
	}
	ctxlog.FromContext(ctx).Debug("Result written to badger.", "label", label, "bytes", len(data))
	return nil
}

// Get reads the result back.
func (s *Store) Get(ctx context.Context, label string) (result.Result, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + label))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return result.Null(), resultstore.Wrap("get", label, resultstore.ErrNotFound)
	}
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	rec, err := resultstore.DecodeRecord(data)
	if err != nil {
		return result.Null(), resultstore.Wrap("get", label, err)
	}
	return rec.Result, nil
}

// Labels lists every stored label in key order.
func (s *Store) Labels(ctx context.Context) ([]string, error) {
	var labels []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			labels = append(labels, string(it.Item().Key()[len(keyPrefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, resultstore.Wrap("list", "", err)
	}
	return labels, nil
}
