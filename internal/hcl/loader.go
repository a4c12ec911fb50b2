package hcl

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/fsutil"
)

// Extension is the file extension the loader picks up.
const Extension = ".hcl"

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	// Env is exposed to params expressions as `env`. Nil means the process
	// environment.
	Env map[string]string
}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "graph", LabelNames: []string{"name"}},
		{Type: "node", LabelNames: []string{"name"}},
	},
}

var graphSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "node", LabelNames: []string{"name"}},
	},
}

// nodeBody is the body of a `node` block.
type nodeBody struct {
	Kind      string         `hcl:"kind"`
	DependsOn []string       `hcl:"depends_on,optional"`
	Params    hcl.Expression `hcl:"params,optional"`
	Timeout   string         `hcl:"timeout,optional"`
}

// Load parses every .hcl file found under paths and merges their nodes into
// one model. Every diagnostic of every file is reported together.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extension)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	evalCtx := newEvalContext(l.env())
	parser := hclparse.NewParser()
	model := config.NewModel()
	var diags hcl.Diagnostics

	for _, file := range files {
		f, parseDiags := parser.ParseHCLFile(file)
		diags = append(diags, parseDiags...)
		if parseDiags.HasErrors() {
			continue
		}

		content, contentDiags := f.Body.Content(rootSchema)
		diags = append(diags, contentDiags...)
		for _, block := range content.Blocks {
			switch block.Type {
			case "node":
				nd, nodeDiags := decodeNode(block, evalCtx)
				diags = append(diags, nodeDiags...)
				if nd != nil {
					g := model.Graph(config.DefaultGraph)
					g.Nodes = append(g.Nodes, nd)
				}
			case "graph":
				diags = append(diags, decodeGraph(block, evalCtx, model)...)
			}
		}
	}

	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to load HCL configuration: %w", diags)
	}
	for _, d := range diags {
		logger.Warn("HCL warning.", "summary", d.Summary, "detail", d.Detail)
	}
	logger.Debug("HCL loading complete.", "graphs", len(model.Graphs), "nodes", model.NodeCount())
	return model, nil
}

func decodeGraph(block *hcl.Block, evalCtx *hcl.EvalContext, model *config.Model) hcl.Diagnostics {
	name := block.Labels[0]
	if name == "" {
		return hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Invalid graph name",
			Detail:   "A graph block needs a non-empty name.",
			Subject:  &block.DefRange,
		}}
	}
	content, diags := block.Body.Content(graphSchema)
	g := model.Graph(name)
	for _, nb := range content.Blocks {
		nd, nodeDiags := decodeNode(nb, evalCtx)
		diags = append(diags, nodeDiags...)
		if nd != nil {
			g.Nodes = append(g.Nodes, nd)
		}
	}
	return diags
}

func decodeNode(block *hcl.Block, evalCtx *hcl.EvalContext) (*config.Node, hcl.Diagnostics) {
	var body nodeBody
	diags := gohcl.DecodeBody(block.Body, evalCtx, &body)
	if diags.HasErrors() {
		return nil, diags
	}

	nd := &config.Node{
		Name:      block.Labels[0],
		Kind:      body.Kind,
		DependsOn: body.DependsOn,
		Source:    fmt.Sprintf("%s:%d", block.DefRange.Filename, block.DefRange.Start.Line),
	}

	if body.Params != nil {
		val, valDiags := body.Params.Value(evalCtx)
		diags = append(diags, valDiags...)
		if valDiags.HasErrors() {
			return nil, diags
		}
		nd.Params = val
	}

	if body.Timeout != "" {
		d, err := time.ParseDuration(body.Timeout)
		if err != nil || d < 0 {
			rng := block.DefRange
			return nil, append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid timeout",
				Detail:   fmt.Sprintf("Node %q has timeout %q; expected a positive duration such as \"30s\".", nd.Name, body.Timeout),
				Subject:  &rng,
			})
		}
		nd.Timeout = d
	}
	return nd, diags
}

func (l *Loader) env() map[string]string {
	if l.Env != nil {
		return l.Env
	}
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}
