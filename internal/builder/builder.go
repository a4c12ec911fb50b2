package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/node"
)

// Ref is a reference to a dependency. *node.Node and Label both implement it.
type Ref interface {
	Label() string
}

// Label references a node that is already part of the graph by its label.
type Label string

// Label returns the referenced label.
func (l Label) Label() string {
	return string(l)
}

// Register creates a node from a work function and makes it depend on every
// ref in deps.
func Register(ctx context.Context, g *graph.Manager, label string, work node.WorkFunc, deps ...Ref) (*node.Node, error) {
	n, err := node.New(label, work)
	if err != nil {
		return nil, err
	}
	if err := Attach(ctx, g, n, deps...); err != nil {
		return nil, err
	}
	return n, nil
}

// Attach adds a prebuilt node to the graph and makes it depend on every ref
// in deps. A *node.Node dependency that is not in the graph yet is added
// along with the arc; a Label dependency must already exist. On error the
// graph is left as it was.
func Attach(ctx context.Context, g *graph.Manager, n *node.Node, deps ...Ref) error {
	if n == nil {
		return errors.New("cannot attach a nil node")
	}
	resolved := make([]*node.Node, 0, len(deps))
	for _, dep := range deps {
		switch d := dep.(type) {
		case nil:
			return fmt.Errorf("node %q: nil dependency", n.Label())
		case *node.Node:
			if d == nil {
				return fmt.Errorf("node %q: nil dependency", n.Label())
			}
			resolved = append(resolved, d)
		default:
			found, ok := g.Node(ctx, d.Label())
			if !ok {
				return &graph.Error{Kind: graph.KindUnknownNode, Label: d.Label(), From: d.Label(), To: n.Label()}
			}
			resolved = append(resolved, found)
		}
	}
	if err := g.Insert(ctx, n, resolved...); err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Debug("Node registered.", "label", n.Label(), "dependencies", len(deps))
	return nil
}
