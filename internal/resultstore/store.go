// Package resultstore defines where node results are persisted once a node
// is done, and provides the in-memory and prefixing implementations.
//
// Backends live in their own packages: fsstore (local directory),
// badgerstore (embedded key-value), blobstore (Azure Blob Storage) and
// natsstore (NATS JetStream key-value).
package resultstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/conduit/internal/result"
)

// ErrNotFound is returned by Get when no result was stored under the label.
var ErrNotFound = errors.New("result not found")

// Store persists node results keyed by label.
//
// Implementations MUST be safe for concurrent use: the executor calls Put from
// one goroutine per node.
type Store interface {
	Put(ctx context.Context, label string, res result.Result) error
	Get(ctx context.Context, label string) (result.Result, error)
}

// StorageError describes a failed store operation.
type StorageError struct {
	Op    string
	Label string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("result store %s %q: %v", e.Op, e.Label, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Wrap returns err as a *StorageError for the given operation, keeping an
// existing *StorageError as is.
func Wrap(op, label string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Label: label, Err: err}
}

// Memory is a Store that keeps results in a map.
type Memory struct {
	mu      sync.RWMutex
	results map[string]result.Result
	puts    map[string]int
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		results: make(map[string]result.Result),
		puts:    make(map[string]int),
	}
}

// Put stores the result.
func (m *Memory) Put(ctx context.Context, label string, res result.Result) error {
	if err := ctx.Err(); err != nil {
		return Wrap("put", label, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[label] = res
	m.puts[label]++
	return nil
}

// Get returns the stored result or ErrNotFound.
func (m *Memory) Get(ctx context.Context, label string) (result.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.results[label]
	if !ok {
		return result.Null(), Wrap("get", label, ErrNotFound)
	}
	return res, nil
}

// Labels returns the stored labels in sorted order.
func (m *Memory) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.results))
	for l := range m.results {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Puts returns how many times a result was stored under label.
func (m *Memory) Puts(label string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts[label]
}

type prefixed struct {
	next   Store
	prefix string
}

// WithPrefix namespaces every label, so that several runs can share one
// backend. The prefix and the label are joined with a slash.
func WithPrefix(next Store, prefix string) Store {
	if prefix == "" {
		return next
	}
	return &prefixed{next: next, prefix: prefix}
}

func (p *prefixed) Put(ctx context.Context, label string, res result.Result) error {
	return p.next.Put(ctx, p.prefix+"/"+label, res)
}

func (p *prefixed) Get(ctx context.Context, label string) (result.Result, error) {
	return p.next.Get(ctx, p.prefix+"/"+label)
}
