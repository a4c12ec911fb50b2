package config

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// DefaultGraph is the name of the graph that collects nodes declared outside
// of any graph block.
const DefaultGraph = "main"

// Model is the unified, format-agnostic representation of every graph
// definition that was loaded.
type Model struct {
	Graphs []*Graph
}

// Graph is one independently runnable set of nodes.
type Graph struct {
	Name  string
	Nodes []*Node
}

// Node is the format-agnostic representation of a `node` block.
type Node struct {
	Name      string
	Kind      string
	DependsOn []string
	Params    cty.Value
	Timeout   time.Duration
	// Source points at the definition, for error messages.
	Source string
}

// NewModel returns an empty model.
func NewModel() *Model {
	return &Model{}
}

// Graph returns the graph with the given name, creating it if needed.
func (m *Model) Graph(name string) *Graph {
	if name == "" {
		name = DefaultGraph
	}
	for _, g := range m.Graphs {
		if g.Name == name {
			return g
		}
	}
	g := &Graph{Name: name}
	m.Graphs = append(m.Graphs, g)
	return g
}

// Merge appends the nodes of other into m, graph by graph.
func (m *Model) Merge(other *Model) {
	if other == nil {
		return
	}
	for _, g := range other.Graphs {
		dst := m.Graph(g.Name)
		dst.Nodes = append(dst.Nodes, g.Nodes...)
	}
}

// NodeCount returns the number of nodes across all graphs.
func (m *Model) NodeCount() int {
	count := 0
	for _, g := range m.Graphs {
		count += len(g.Nodes)
	}
	return count
}

// Validate checks what can be checked without the registry: names are set
// and unique within their graph.
func (m *Model) Validate() error {
	for _, g := range m.Graphs {
		seen := make(map[string]string, len(g.Nodes))
		for _, n := range g.Nodes {
			if n.Name == "" {
				return fmt.Errorf("graph %q: node without a name at %s", g.Name, n.Source)
			}
			if n.Kind == "" {
				return fmt.Errorf("graph %q: node %q has no kind (%s)", g.Name, n.Name, n.Source)
			}
			if prev, dup := seen[n.Name]; dup {
				return fmt.Errorf("graph %q: node %q defined twice (%s and %s)", g.Name, n.Name, prev, n.Source)
			}
			seen[n.Name] = n.Source
		}
	}
	return nil
}
