package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Validate performs a strict parity check between the loaded graph
// definitions and the registered Go code: every node must use a known kind,
// and its params must decode into the kind's params struct without unknown
// fields.
func (r *Registry) Validate(ctx context.Context, model *config.Model) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, g := range model.Graphs {
		for _, n := range g.Nodes {
			kind, ok := r.Lookup(n.Kind)
			if !ok {
				errs = append(errs, fmt.Sprintf("graph '%s', node '%s': unknown kind '%s' (%s)", g.Name, n.Name, n.Kind, n.Source))
				continue
			}
			if kind.NewParams == nil {
				continue
			}
			if err := CheckParams(n, kind.NewParams()); err != nil {
				errs = append(errs, fmt.Sprintf("graph '%s', node '%s': %v (%s)", g.Name, n.Name, err, n.Source))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}

	logger.Debug("Registry validated graph definitions.", "graphs", len(model.Graphs), "nodes", model.NodeCount())
	return nil
}

// CheckParams decodes the node's params into target, rejecting attributes
// the target struct does not declare.
func CheckParams(n *config.Node, target any) error {
	if n.Params.IsNull() || !n.Params.IsKnown() {
		return nil
	}
	raw, err := ctyjson.SimpleJSONValue{Value: n.Params}.MarshalJSON()
	if err != nil {
		return fmt.Errorf("params cannot be encoded: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("invalid params: %w", err)
	}
	return nil
}
