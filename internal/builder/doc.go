// Package builder wires nodes into a graph.
//
// It offers two entry points that only rely on the graph's arc primitives:
//
//   - Register and Attach build a node from a Go work function and connect it
//     to its dependencies in one call. A dependency is referenced either by
//     node handle or by label.
//   - Build turns a loaded config.Graph definition into a graph.Manager,
//     resolving each node's kind through the registry.
//
// Neither is involved once a run starts.
package builder
