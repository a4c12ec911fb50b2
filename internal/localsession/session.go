// Package localsession provides a concrete implementation of the session.Session
// and session.SessionFactory interfaces for local, in-process execution.
package localsession

import (
	"context"

	"github.com/specialistvlad/conduit/internal/builder"
	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/executor"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/localexecutor"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/resultstore"
	"github.com/specialistvlad/conduit/internal/session"
)

// SessionFactory implements session.SessionFactory for local runs.
type SessionFactory struct {
	// Options are applied to every executor the factory creates.
	Options []localexecutor.Option
	// Results, when set, receives the results of every session, namespaced
	// by graph name.
	Results resultstore.Store
}

var _ session.SessionFactory = (*SessionFactory)(nil)

// NewSession builds the graph and wires a local executor for it.
func (f *SessionFactory) NewSession(
	ctx context.Context,
	def *config.Graph,
	reg *registry.Registry,
) (session.Session, error) {
	logger := ctxlog.FromContext(ctx).With("graph", def.Name)
	logger.Debug("Creating local session.", "nodes", len(def.Nodes))

	g, err := builder.Build(ctx, def, reg)
	if err != nil {
		return nil, err
	}

	opts := append([]localexecutor.Option(nil), f.Options...)
	if f.Results != nil {
		opts = append(opts, localexecutor.WithResultStore(resultstore.WithPrefix(f.Results, def.Name)))
	}

	return &Session{
		name:     def.Name,
		graph:    g,
		executor: localexecutor.New(g, opts...),
	}, nil
}

// Session implements session.Session for local runs.
type Session struct {
	name     string
	graph    *graph.Manager
	executor executor.Executor
}

// GetExecutor returns the executor that was created and wired up by the factory.
func (s *Session) GetExecutor() (executor.Executor, error) {
	return s.executor, nil
}

// Graph returns the built graph.
func (s *Session) Graph() graph.Graph {
	return s.graph
}

// Close has nothing to release: result stores are owned by the caller.
func (s *Session) Close(ctx context.Context) error {
	ctxlog.FromContext(ctx).Debug("Closing local session.", "graph", s.name)
	return nil
}
