package scheduler

import (
	"context"

	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/result"
)

// Scheduler tracks node states for one run and streams the nodes that may
// start.
//
// # Thread-Safety
//
// All methods are safe for concurrent use.
type Scheduler interface {
	// ReadyNodes returns the channel of nodes whose predecessors are all done.
	// Each node appears at most once. The channel is closed when every node
	// is terminal. A node read from the channel may have been skipped by a
	// cancellation in the meantime, in which case MarkRunning fails with
	// ErrNotReady.
	ReadyNodes() <-chan *node.Node

	// MarkRunning moves a node from Ready to Running and returns the results
	// of exactly its direct predecessors. If those results cannot be read the
	// node fails, its descendants are skipped and the error wraps
	// ErrStartFailed.
	MarkRunning(ctx context.Context, label string) (node.PredecessorResults, error)

	// MarkDone moves a node from Running to Done, caches its result and
	// releases every successor whose predecessors are now all done.
	MarkDone(ctx context.Context, label string, res result.Result) error

	// MarkFailed moves a node from Running to Failed and skips every
	// transitive successor that has not started.
	MarkFailed(ctx context.Context, label string, err error) error

	// Cancel skips every node that has not started. Running nodes finish and
	// are recorded normally but release nothing.
	Cancel(ctx context.Context, cause error)

	// Done is closed when every node is terminal.
	Done() <-chan struct{}

	// Status returns the current status of a node.
	Status(label string) (node.Status, bool)

	// Snapshot returns the status of every node.
	Snapshot() map[string]node.Status

	// Notify sequences a run level event with the node transitions and hands
	// it to the observers.
	Notify(ctx context.Context, ev events.Event)
}
