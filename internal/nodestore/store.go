// Package nodestore defines the interface for storing and retrieving the
// dynamic, mutable execution state of nodes during a run.
//
// # Why Node Store Exists
//
// The node store isolates **mutable execution state** (status, results,
// errors) from the **immutable graph structure** (nodes, arcs) managed by
// topologystore. The scheduler is its only writer; reports and tests read it.
//
// # Lifecycle and Usage
//
// The node store is:
//  1. **Created** once per run (ephemeral, not persistent across runs)
//  2. **Initialized** by the scheduler, which sets every node Pending or Ready
//  3. **Mutated** as nodes move through the state machine
//  4. **Discarded** together with the scheduler when the run ends
//
// Results that must outlive a run go to a resultstore.Store instead.
//
// # State Transitions
//
//	Pending → Ready → Running → Done (with result) OR Failed (with error)
//	Pending → Skipped, Ready → Skipped (upstream failure or cancellation)
package nodestore

import (
	"context"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/result"
)

// Store manages the mutable execution state of nodes, keyed by label.
//
// It does NOT manage graph structure. That belongs to topologystore.Store.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads and writes. The scheduler
// serialises its own writes, but reports and observers read concurrently.
type Store interface {
	// SetStatus records the execution status of a node. It does not check
	// the transition; the scheduler does that before calling it.
	SetStatus(ctx context.Context, label string, status node.Status) error

	// GetStatus returns the status of a node, StatusPending if none was set.
	GetStatus(ctx context.Context, label string) (node.Status, error)

	// SetResult caches the result of a completed node.
	SetResult(ctx context.Context, label string, res result.Result) error

	// GetResult returns the cached result of a node and whether one exists.
	GetResult(ctx context.Context, label string) (result.Result, bool, error)

	// SetError records why a node failed or was skipped.
	SetError(ctx context.Context, label string, nodeErr error) error

	// GetError returns the recorded error of a node, nil if there is none.
	GetError(ctx context.Context, label string) (error, error)
}
