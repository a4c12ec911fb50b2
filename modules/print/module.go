// Package print provides the "print" kind, which writes its message and the
// results of its predecessors to the output.
package print

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out defaults to os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// Params are the static parameters of a print node.
type Params struct {
	Message string `json:"message"`
}

// Run prints the message followed by one line per predecessor, in label
// order. The result is the message.
func (m *Module) Run(ctx context.Context, n *node.Node, in node.PredecessorResults) (result.Result, error) {
	var params Params
	if err := n.DecodeParams(&params); err != nil {
		return result.Null(), err
	}
	ctxlog.FromContext(ctx).Info("Printing input", "label", n.Label(), "inputs", len(in))

	out := m.Out
	if out == nil {
		out = os.Stdout
	}

	// Lines of concurrent nodes must not interleave.
	m.mu.Lock()
	defer m.mu.Unlock()
	if params.Message != "" {
		fmt.Fprintf(out, "[%s] %s\n", n.Label(), params.Message)
	} else {
		fmt.Fprintf(out, "[%s]\n", n.Label())
	}
	if len(in) == 0 {
		fmt.Fprintln(out, "      (no inputs)")
	}
	for _, label := range in.Labels() {
		fmt.Fprintf(out, "      %s = %s\n", label, in[label])
	}

	if params.Message == "" {
		return result.Null(), nil
	}
	return result.String(params.Message), nil
}

// Register registers the kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("print", &registry.Kind{
		Work:      m.Run,
		NewParams: func() any { return new(Params) },
	})
}
