// Package scheduler decides which nodes of a graph may run and records what
// happened to them.
//
// # How It Works
//
// A DefaultScheduler is created for one run. At construction it validates the
// graph, counts every node's unfinished predecessors and enqueues the roots.
// From then on it is driven by the executor:
//
//	for n := range sch.ReadyNodes() {
//	    in, err := sch.MarkRunning(ctx, n.Label())   // exact predecessor results
//	    ...
//	    sch.MarkDone(ctx, n.Label(), res)             // releases successors
//	    // or sch.MarkFailed(ctx, n.Label(), err)     // skips every descendant
//	}
//
// Every transition, counter decrement and cache write happens under a single
// mutex, so a node is enqueued at most once and only after all of its
// predecessors are done. The ready channel is buffered to the node count and
// is closed once every node is terminal.
//
// # Relationship with Other Components
//
//   - **Graph:** read once at construction; it must not change during the run
//   - **Node Store:** receives every status, result and error
//   - **Executor:** consumes ReadyNodes and reports outcomes
//   - **Observers:** receive sequenced events after the lock is released
package scheduler
