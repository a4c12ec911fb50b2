// Package graph provides the dependency graph that a run executes: the set of
// nodes keyed by label and the arcs between them.
//
// # Architecture
//
// The Manager is a thin facade over a topologystore.Store:
//
//	┌─────────────────────────────────────┐
//	│            Graph Manager            │
//	│  (arc validation, cycle rejection,  │
//	│   label lookups, analysis queries)  │
//	└─────────────────┬───────────────────┘
//	                  │
//	                  ▼
//	          ┌──────────────┐
//	          │   Topology   │
//	          │    Store     │
//	          └──────────────┘
//
// The Manager owns every structural write. Each AddArc call checks, under one
// lock, that both endpoints are consistent with what is already registered and
// that the new arc would not close a cycle. Only then does it touch the store,
// so a rejected call leaves the graph exactly as it was.
//
// Execution state (status, results, errors) is not part of the graph. It
// belongs to the scheduler of a single run, which reads the graph through the
// read-only Graph interface.
//
// # Lifecycle
//
//  1. **Creation:** New wraps an empty topology store
//  2. **Population:** nodes and arcs are added directly or through the builder
//  3. **Execution:** a scheduler reads the graph; it must not be mutated while
//     a run is in progress
//
// # Errors
//
// Every structural failure is a *Error whose Unwrap returns one of ErrCycle,
// ErrUnknownNode or ErrDuplicateLabel.
package graph
