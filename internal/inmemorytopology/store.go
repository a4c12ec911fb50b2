package inmemorytopology

import (
	"context"
	"fmt"
	"sync"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/topologystore"
)

// Store implements the topologystore.Store interface using maps and a mutex
// for thread-safe concurrent access.
type Store struct {
	mu    sync.RWMutex
	nodes map[string]*node.Node
	order []string // node labels in insertion order
	arcs  []topologystore.Arc
	seen  map[topologystore.Arc]struct{}
	preds map[string][]string // Key: node label, Value: labels it depends on
	succs map[string][]string // Key: node label, Value: labels depending on it
}

// New creates a new, empty in-memory topology store.
func New() *Store {
	return &Store{
		nodes: make(map[string]*node.Node),
		seen:  make(map[topologystore.Arc]struct{}),
		preds: make(map[string][]string),
		succs: make(map[string][]string),
	}
}

var _ topologystore.Store = (*Store)(nil)

// AddNode adds a new node to the store.
func (s *Store) AddNode(ctx context.Context, n *node.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := n.Label()
	if existing, exists := s.nodes[key]; exists {
		if existing == n {
			// Adding the same node twice is not an error, it's idempotent.
			return nil
		}
		return fmt.Errorf("%w: %q", topologystore.ErrNodeExists, key)
	}
	s.nodes[key] = n
	s.order = append(s.order, key)
	return nil
}

// AddArc creates a dependency link from one node to another.
func (s *Store) AddArc(ctx context.Context, from, to string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[from]; !exists {
		return false, fmt.Errorf("arc source %q: %w", from, topologystore.ErrNodeNotFound)
	}
	if _, exists := s.nodes[to]; !exists {
		return false, fmt.Errorf("arc destination %q: %w", to, topologystore.ErrNodeNotFound)
	}

	arc := topologystore.Arc{From: from, To: to}
	if _, exists := s.seen[arc]; exists {
		return false, nil
	}
	s.seen[arc] = struct{}{}
	s.arcs = append(s.arcs, arc)
	s.preds[to] = append(s.preds[to], from)
	s.succs[from] = append(s.succs[from], to)
	return true, nil
}

// Node retrieves a single node by label.
func (s *Store) Node(ctx context.Context, label string) (*node.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[label]
	return n, ok
}

// AllNodes returns a slice of all nodes in the topology, in insertion order.
func (s *Store) AllNodes(ctx context.Context) []*node.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node.Node, 0, len(s.order))
	for _, label := range s.order {
		nodes = append(nodes, s.nodes[label])
	}
	return nodes
}

// Arcs returns a copy of all arcs in insertion order.
func (s *Store) Arcs(ctx context.Context) []topologystore.Arc {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]topologystore.Arc(nil), s.arcs...)
}

// HasArc reports whether the arc exists.
func (s *Store) HasArc(ctx context.Context, from, to string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.seen[topologystore.Arc{From: from, To: to}]
	return ok
}

// PredecessorsOf returns the labels the given node depends on.
func (s *Store) PredecessorsOf(ctx context.Context, label string) ([]string, error) {
	return s.adjacent(label, s.preds)
}

// SuccessorsOf returns the labels depending on the given node.
func (s *Store) SuccessorsOf(ctx context.Context, label string) ([]string, error) {
	return s.adjacent(label, s.succs)
}

// Len returns the number of nodes.
func (s *Store) Len(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.nodes)
}

func (s *Store) adjacent(label string, index map[string][]string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.nodes[label]; !exists {
		return nil, fmt.Errorf("%w: %q", topologystore.ErrNodeNotFound, label)
	}
	return append([]string{}, index[label]...), nil
}
