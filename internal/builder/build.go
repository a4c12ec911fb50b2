package builder

import (
	"context"
	"fmt"

	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
)

// Build turns a loaded graph definition into a graph. Every node is added
// first, then each depends_on entry becomes an arc, so definitions may list
// nodes in any order.
func Build(ctx context.Context, def *config.Graph, reg *registry.Registry) (*graph.Manager, error) {
	logger := ctxlog.FromContext(ctx).With("graph", def.Name)
	g := graph.NewInMemory()

	for _, nd := range def.Nodes {
		kind, ok := reg.Lookup(nd.Kind)
		if !ok {
			return nil, fmt.Errorf("node %q: unknown kind %q (%s)", nd.Name, nd.Kind, nd.Source)
		}
		opts := []node.Option{node.WithKind(nd.Kind), node.WithTimeout(nd.Timeout)}
		if !nd.Params.IsNull() {
			opts = append(opts, node.WithParams(nd.Params))
		}
		n, err := node.New(nd.Name, kind.Work, opts...)
		if err != nil {
			return nil, err
		}
		if err := g.AddNode(ctx, n); err != nil {
			return nil, fmt.Errorf("node %q (%s): %w", nd.Name, nd.Source, err)
		}
	}

	for _, nd := range def.Nodes {
		for _, dep := range nd.DependsOn {
			if err := g.Connect(ctx, dep, nd.Name); err != nil {
				return nil, fmt.Errorf("node %q (%s): %w", nd.Name, nd.Source, err)
			}
		}
	}

	logger.Debug("Graph built.", "nodes", g.Len(ctx), "arcs", len(g.Arcs(ctx)))
	return g, nil
}
