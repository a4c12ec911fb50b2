// Package value provides the "value" kind: the node's result is its params.
package value

import (
	"context"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Run returns the params unchanged.
func Run(_ context.Context, n *node.Node, _ node.PredecessorResults) (result.Result, error) {
	return result.New(n.Params()), nil
}

// Register registers the kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("value", &registry.Kind{Work: Run})
}
