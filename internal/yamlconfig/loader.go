// Package yamlconfig provides the YAML implementation of the config.Loader
// interface. It reads the same graphs as the HCL loader:
//
//	nodes:
//	  - name: a
//	    kind: value
//	    params: {n: 1}
//	graphs:
//	  - name: etl
//	    nodes:
//	      - name: extract
//	        kind: http_request
//	        timeout: 30s
//
// Top-level nodes belong to the "main" graph.
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/fsutil"
	"github.com/specialistvlad/conduit/internal/result"
	"gopkg.in/yaml.v3"
)

// Extensions are the file extensions the loader picks up.
var Extensions = []string{".yaml", ".yml"}

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

var _ config.Loader = (*Loader)(nil)

// NewLoader creates a new YAML configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

type fileDoc struct {
	Nodes  []nodeDoc  `yaml:"nodes"`
	Graphs []graphDoc `yaml:"graphs"`
}

type graphDoc struct {
	Name  string    `yaml:"name"`
	Nodes []nodeDoc `yaml:"nodes"`
}

type nodeDoc struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"`
	DependsOn []string `yaml:"depends_on"`
	Params    any      `yaml:"params"`
	Timeout   string   `yaml:"timeout"`

	line int
}

var nodeFields = map[string]bool{"name": true, "kind": true, "depends_on": true, "params": true, "timeout": true}

// UnmarshalYAML keeps the line of the node for error messages. Node.Decode
// does not inherit KnownFields, so unknown keys are checked here.
func (n *nodeDoc) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i]
			if !nodeFields[key.Value] {
				return fmt.Errorf("line %d: field %s not found in node", key.Line, key.Value)
			}
		}
	}
	type plain nodeDoc
	if err := value.Decode((*plain)(n)); err != nil {
		return err
	}
	n.line = value.Line
	return nil
}

// Load parses every YAML file found under paths into one model.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path_count", len(paths))

	files, err := fsutil.FindFiles(paths, Extensions...)
	if err != nil {
		return nil, err
	}

	model := config.NewModel()
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		fm, err := Parse(file, data)
		if err != nil {
			return nil, err
		}
		model.Merge(fm)
	}
	logger.Debug("YAML loading complete.", "files", len(files), "graphs", len(model.Graphs), "nodes", model.NodeCount())
	return model, nil
}

// Parse decodes one document. Unknown fields are rejected.
func Parse(filename string, data []byte) (*config.Model, error) {
	var doc fileDoc
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", filename, err)
	}

	model := config.NewModel()
	add := func(graphName string, docs []nodeDoc) error {
		g := model.Graph(graphName)
		for _, nd := range docs {
			n, err := translateNode(filename, nd)
			if err != nil {
				return err
			}
			g.Nodes = append(g.Nodes, n)
		}
		return nil
	}

	if len(doc.Nodes) > 0 {
		if err := add(config.DefaultGraph, doc.Nodes); err != nil {
			return nil, err
		}
	}
	for _, gd := range doc.Graphs {
		if gd.Name == "" {
			return nil, fmt.Errorf("%s: graph without a name", filename)
		}
		if err := add(gd.Name, gd.Nodes); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func translateNode(filename string, nd nodeDoc) (*config.Node, error) {
	source := fmt.Sprintf("%s:%d", filename, nd.line)
	n := &config.Node{
		Name:      nd.Name,
		Kind:      nd.Kind,
		DependsOn: nd.DependsOn,
		Source:    source,
	}
	if nd.Params != nil {
		params, err := result.FromGo(nd.Params)
		if err != nil {
			return nil, fmt.Errorf("node %q (%s): invalid params: %w", nd.Name, source, err)
		}
		n.Params = params.Value()
	}
	if nd.Timeout != "" {
		d, err := time.ParseDuration(nd.Timeout)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("node %q (%s): invalid timeout %q", nd.Name, source, nd.Timeout)
		}
		n.Timeout = d
	}
	return n, nil
}
