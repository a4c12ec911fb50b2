// Package env_vars provides the "env_vars" kind, which captures environment
// variables into the node's result.
package env_vars

import (
	"context"
	"os"
	"strings"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Environ defaults to os.Environ.
	Environ func() []string
}

// Params select which variables are captured. With neither field set, every
// variable is.
type Params struct {
	Prefix string   `json:"prefix"`
	Names  []string `json:"names"`
}

// Output is the result of an env_vars node.
type Output struct {
	All map[string]string `json:"all"`
}

// Run collects the selected variables.
func (m *Module) Run(_ context.Context, n *node.Node, _ node.PredecessorResults) (result.Result, error) {
	var params Params
	if err := n.DecodeParams(&params); err != nil {
		return result.Null(), err
	}
	environ := m.Environ
	if environ == nil {
		environ = os.Environ
	}

	wanted := make(map[string]bool, len(params.Names))
	for _, name := range params.Names {
		wanted[name] = true
	}

	envMap := make(map[string]string)
	for _, e := range environ() {
		k, v, ok := strings.Cut(e, "=")
		if !ok {
			continue
		}
		if len(wanted) > 0 && !wanted[k] {
			continue
		}
		if !strings.HasPrefix(k, params.Prefix) {
			continue
		}
		envMap[k] = v
	}
	return result.FromGo(Output{All: envMap})
}

// Register registers the kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("env_vars", &registry.Kind{
		Work:      m.Run,
		NewParams: func() any { return new(Params) },
	})
}
