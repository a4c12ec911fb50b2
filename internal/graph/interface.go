package graph

import (
	"context"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/topologystore"
)

// Graph is the read-only view of a dependency graph consumed by the
// scheduler, the executor and the analysis helpers.
//
// # Thread-Safety
//
// Implementations MUST be safe for concurrent use.
type Graph interface {
	// Node retrieves a node by label.
	Node(ctx context.Context, label string) (*node.Node, bool)

	// Nodes returns every node in insertion order.
	Nodes(ctx context.Context) []*node.Node

	// Arcs returns every arc in insertion order.
	Arcs(ctx context.Context) []topologystore.Arc

	// PredecessorsOf returns the labels the node directly depends on. It
	// returns an error wrapping ErrUnknownNode for a missing label.
	PredecessorsOf(ctx context.Context, label string) ([]string, error)

	// SuccessorsOf returns the labels that directly depend on the node.
	SuccessorsOf(ctx context.Context, label string) ([]string, error)

	// Len returns the number of nodes.
	Len(ctx context.Context) int
}
