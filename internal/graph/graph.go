package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/inmemorytopology"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/topologystore"
)

// Manager builds and serves a dependency graph on top of a topology store.
type Manager struct {
	// mu serializes structural writes so that validation and insertion of an
	// arc happen as one step.
	mu       sync.Mutex
	topology topologystore.Store
}

var _ Graph = (*Manager)(nil)

// New creates a graph manager over the given topology store.
func New(ts topologystore.Store) *Manager {
	return &Manager{topology: ts}
}

// NewInMemory creates a graph manager backed by an in-memory topology store.
func NewInMemory() *Manager {
	return New(inmemorytopology.New())
}

// AddNode registers a node. Registering the same node again is a no-op.
func (m *Manager) AddNode(ctx context.Context, n *node.Node) error {
	if n == nil {
		return errors.New("cannot add a nil node")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.addNodeLocked(ctx, n)
}

// AddArc adds the arc src -> dst, meaning dst depends on src. Nodes that are
// not yet in the graph are registered first. Adding an arc that already
// exists is a no-op. If the arc would create a cycle, or if either node
// clashes with a different node carrying the same label, nothing is changed.
func (m *Manager) AddArc(ctx context.Context, src, dst *node.Node) error {
	if src == nil || dst == nil {
		return errors.New("cannot add an arc with a nil endpoint")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range []*node.Node{src, dst} {
		if existing, ok := m.topology.Node(ctx, n.Label()); ok && existing != n {
			return &Error{Kind: KindDuplicateLabel, Label: n.Label()}
		}
	}
	if err := m.checkArcLocked(ctx, src.Label(), dst.Label()); err != nil {
		return err
	}
	if err := m.addNodeLocked(ctx, src); err != nil {
		return err
	}
	if err := m.addNodeLocked(ctx, dst); err != nil {
		return err
	}
	return m.insertArcLocked(ctx, src.Label(), dst.Label())
}

// Insert adds n together with an arc from every dep to n as one step. Nodes
// not yet in the graph are registered. Every dep is checked before the graph
// is touched, so a nil dep, a label clash or a cycle leaves it unchanged.
func (m *Manager) Insert(ctx context.Context, n *node.Node, deps ...*node.Node) error {
	if n == nil {
		return errors.New("cannot add a nil node")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := map[string]*node.Node{n.Label(): n}
	for _, d := range deps {
		if d == nil {
			return fmt.Errorf("node %q: nil dependency", n.Label())
		}
		if d == n {
			return &Error{Kind: KindCycle, From: n.Label(), To: n.Label(), Cycle: []string{n.Label(), n.Label()}}
		}
		if other, ok := seen[d.Label()]; ok && other != d {
			return &Error{Kind: KindDuplicateLabel, Label: d.Label()}
		}
		seen[d.Label()] = d
	}
	for label, want := range seen {
		if existing, ok := m.topology.Node(ctx, label); ok && existing != want {
			return &Error{Kind: KindDuplicateLabel, Label: label}
		}
	}
	for _, d := range deps {
		if err := m.checkArcLocked(ctx, d.Label(), n.Label()); err != nil {
			return err
		}
	}

	if err := m.addNodeLocked(ctx, n); err != nil {
		return err
	}
	for _, d := range deps {
		if err := m.addNodeLocked(ctx, d); err != nil {
			return err
		}
		if err := m.insertArcLocked(ctx, d.Label(), n.Label()); err != nil {
			return err
		}
	}
	return nil
}

// Connect adds the arc from -> to between two nodes that are already in the
// graph.
func (m *Manager) Connect(ctx context.Context, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, label := range []string{from, to} {
		if _, ok := m.topology.Node(ctx, label); !ok {
			return &Error{Kind: KindUnknownNode, Label: label, From: from, To: to}
		}
	}
	if err := m.checkArcLocked(ctx, from, to); err != nil {
		return err
	}
	return m.insertArcLocked(ctx, from, to)
}

// Node retrieves a node by label.
func (m *Manager) Node(ctx context.Context, label string) (*node.Node, bool) {
	return m.topology.Node(ctx, label)
}

// Nodes returns every node in insertion order.
func (m *Manager) Nodes(ctx context.Context) []*node.Node {
	return m.topology.AllNodes(ctx)
}

// Arcs returns every arc in insertion order.
func (m *Manager) Arcs(ctx context.Context) []topologystore.Arc {
	return m.topology.Arcs(ctx)
}

// PredecessorsOf returns the labels the node directly depends on.
func (m *Manager) PredecessorsOf(ctx context.Context, label string) ([]string, error) {
	preds, err := m.topology.PredecessorsOf(ctx, label)
	if errors.Is(err, topologystore.ErrNodeNotFound) {
		return nil, unknownNode(label)
	}
	return preds, err
}

// SuccessorsOf returns the labels that directly depend on the node.
func (m *Manager) SuccessorsOf(ctx context.Context, label string) ([]string, error) {
	succs, err := m.topology.SuccessorsOf(ctx, label)
	if errors.Is(err, topologystore.ErrNodeNotFound) {
		return nil, unknownNode(label)
	}
	return succs, err
}

// Len returns the number of nodes.
func (m *Manager) Len(ctx context.Context) int {
	return m.topology.Len(ctx)
}

func (m *Manager) addNodeLocked(ctx context.Context, n *node.Node) error {
	err := m.topology.AddNode(ctx, n)
	if errors.Is(err, topologystore.ErrNodeExists) {
		return &Error{Kind: KindDuplicateLabel, Label: n.Label()}
	}
	if err != nil {
		return fmt.Errorf("failed to add node %q: %w", n.Label(), err)
	}
	return nil
}

// checkArcLocked rejects self loops and arcs closing a cycle. Endpoints that
// are not registered yet cannot be part of a cycle.
func (m *Manager) checkArcLocked(ctx context.Context, from, to string) error {
	if from == to {
		return &Error{Kind: KindCycle, From: from, To: to, Cycle: []string{from, to}}
	}
	_, fromKnown := m.topology.Node(ctx, from)
	_, toKnown := m.topology.Node(ctx, to)
	if !fromKnown || !toKnown || m.topology.HasArc(ctx, from, to) {
		return nil
	}
	if path := m.pathLocked(ctx, to, from); path != nil {
		return &Error{Kind: KindCycle, From: from, To: to, Cycle: append(path, to)}
	}
	return nil
}

func (m *Manager) insertArcLocked(ctx context.Context, from, to string) error {
	added, err := m.topology.AddArc(ctx, from, to)
	if err != nil {
		return fmt.Errorf("failed to add arc %q -> %q: %w", from, to, err)
	}
	if added {
		ctxlog.FromContext(ctx).Debug("Arc added.", "from", from, "to", to)
	}
	return nil
}

// pathLocked returns one path from -> ... -> to following successor arcs, or
// nil if to is not reachable.
func (m *Manager) pathLocked(ctx context.Context, from, to string) []string {
	visited := make(map[string]bool)
	var walk func(label string, path []string) []string
	walk = func(label string, path []string) []string {
		path = append(path, label)
		if label == to {
			return path
		}
		if visited[label] {
			return nil
		}
		visited[label] = true
		succs, _ := m.topology.SuccessorsOf(ctx, label)
		for _, s := range succs {
			if found := walk(s, path); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(from, nil)
}
