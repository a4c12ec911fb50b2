package inmemorystore

import (
	"context"
	"sync"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/nodestore"
	"github.com/specialistvlad/conduit/internal/result"
)

// Store is an in-memory implementation of nodestore.Store.
//
// The store maintains three independent sync.Maps keyed by node label:
//   - states: node.Status
//   - results: result.Result of done nodes
//   - errors: error of failed or skipped nodes
type Store struct {
	states  sync.Map
	results sync.Map
	errors  sync.Map
}

var _ nodestore.Store = (*Store)(nil)

// New creates a new, empty in-memory node state store.
func New() *Store {
	return &Store{}
}

// SetStatus updates the execution status of a specific node.
func (s *Store) SetStatus(ctx context.Context, label string, status node.Status) error {
	s.states.Store(label, status)
	return nil
}

// GetStatus retrieves the execution status of a specific node.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, label string) (node.Status, error) {
	status, ok := s.states.Load(label)
	if !ok {
		return node.StatusPending, nil
	}
	return status.(node.Status), nil
}

// SetResult records the result of a done node.
func (s *Store) SetResult(ctx context.Context, label string, res result.Result) error {
	s.results.Store(label, res)
	return nil
}

// GetResult retrieves the recorded result of a done node.
func (s *Store) GetResult(ctx context.Context, label string) (result.Result, bool, error) {
	res, ok := s.results.Load(label)
	if !ok {
		return result.Null(), false, nil
	}
	return res.(result.Result), true, nil
}

// SetError records the failure error of a node.
func (s *Store) SetError(ctx context.Context, label string, nodeErr error) error {
	s.errors.Store(label, nodeErr)
	return nil
}

// GetError retrieves the recorded error of a node.
func (s *Store) GetError(ctx context.Context, label string) (error, error) {
	err, ok := s.errors.Load(label)
	if !ok {
		return nil, nil // If not found, there is no error.
	}
	return err.(error), nil
}
