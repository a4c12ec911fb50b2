// Package sleep provides the "sleep" kind, which waits for a duration and
// honours cancellation.
package sleep

import (
	"context"
	"fmt"
	"time"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Params are the static parameters of a sleep node.
type Params struct {
	Duration string `json:"duration"`
}

// Run waits for the configured duration. The result is the duration slept.
func Run(ctx context.Context, n *node.Node, _ node.PredecessorResults) (result.Result, error) {
	var params Params
	if err := n.DecodeParams(&params); err != nil {
		return result.Null(), err
	}
	d, err := time.ParseDuration(params.Duration)
	if err != nil {
		return result.Null(), fmt.Errorf("invalid duration %q: %w", params.Duration, err)
	}

	ctxlog.FromContext(ctx).Debug("Sleeping.", "label", n.Label(), "duration", d)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return result.String(d.String()), nil
	case <-ctx.Done():
		return result.Null(), context.Cause(ctx)
	}
}

// Register registers the kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("sleep", &registry.Kind{
		Work:      Run,
		NewParams: func() any { return new(Params) },
	})
}
