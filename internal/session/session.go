// Package session defines the core interfaces for creating and managing an
// execution session. It abstracts away the details of local vs. remote execution.
package session

import (
	"context"

	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/executor"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/registry"
)

// SessionFactory creates an execution Session for one graph definition.
// Different implementations can support various backends, such as local or
// distributed execution.
type SessionFactory interface {
	NewSession(
		ctx context.Context,
		def *config.Graph,
		reg *registry.Registry,
	) (Session, error)
}

// Session represents a single execution run and manages its lifecycle.
type Session interface {
	GetExecutor() (executor.Executor, error)
	// Graph returns the built graph, for planning without running it.
	Graph() graph.Graph
	// Close releases any resources held by the session. It accepts a context
	// to allow for graceful cleanup operations.
	Close(ctx context.Context) error
}
