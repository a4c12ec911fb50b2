// Package topologystore defines the interface for storing and retrieving the
// static structure of a dependency graph (DAG).
//
// The topology store holds the immutable shape of a graph: its nodes and the
// arcs between them. It does not hold anything that changes during a run;
// per-run status, results and errors live in nodestore.
//
// # Lifecycle and Usage
//
// The topology store is:
//  1. **Created** once per graph by the graph.Manager
//  2. **Populated** while the graph is built (nodes and arcs added)
//  3. **Read-only** while a run is in progress (the scheduler reads
//     predecessor and successor sets, the executor looks up nodes)
//
// Cycle detection is not the store's job. The graph.Manager checks every arc
// before handing it to the store.
package topologystore

import (
	"context"
	"errors"

	"github.com/specialistvlad/conduit/internal/node"
)

// ErrNodeExists is returned by AddNode when a different node with the same
// label is already registered.
var ErrNodeExists = errors.New("node label already registered")

// ErrNodeNotFound is returned when an operation references a label that was
// never added.
var ErrNodeNotFound = errors.New("node not found in topology")

// Arc is a directed edge: To depends on From.
type Arc struct {
	From string
	To   string
}

func (a Arc) String() string {
	return a.From + " -> " + a.To
}

// Store is the interface for managing the static topology of a directed
// acyclic graph.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads and writes.
//
// # Ordering
//
// AllNodes and Arcs return items in insertion order. PredecessorsOf and
// SuccessorsOf return labels in the order the arcs were added.
type Store interface {
	// AddNode registers a node. Adding the very same node twice is a no-op;
	// adding a different node under an existing label returns ErrNodeExists.
	AddNode(ctx context.Context, n *node.Node) error

	// AddArc records that 'to' depends on 'from'. Both nodes must already be
	// registered, otherwise ErrNodeNotFound is returned. Adding an arc that
	// already exists is a no-op and reports added == false.
	AddArc(ctx context.Context, from, to string) (added bool, err error)

	// Node retrieves a single node by label.
	Node(ctx context.Context, label string) (*node.Node, bool)

	// AllNodes returns a snapshot of every registered node.
	AllNodes(ctx context.Context) []*node.Node

	// Arcs returns a snapshot of every arc.
	Arcs(ctx context.Context) []Arc

	// HasArc reports whether the arc from -> to exists.
	HasArc(ctx context.Context, from, to string) bool

	// PredecessorsOf returns the labels the given node directly depends on.
	PredecessorsOf(ctx context.Context, label string) ([]string, error)

	// SuccessorsOf returns the labels that directly depend on the given node.
	SuccessorsOf(ctx context.Context, label string) ([]string, error)

	// Len returns the number of registered nodes.
	Len(ctx context.Context) int
}
