package graph

import (
	"context"
)

// Sources returns the labels of nodes without predecessors, in insertion
// order.
func Sources(ctx context.Context, g Graph) []string {
	var out []string
	for _, n := range g.Nodes(ctx) {
		if preds, _ := g.PredecessorsOf(ctx, n.Label()); len(preds) == 0 {
			out = append(out, n.Label())
		}
	}
	return out
}

// Sinks returns the labels of nodes without successors, in insertion order.
func Sinks(ctx context.Context, g Graph) []string {
	var out []string
	for _, n := range g.Nodes(ctx) {
		if succs, _ := g.SuccessorsOf(ctx, n.Label()); len(succs) == 0 {
			out = append(out, n.Label())
		}
	}
	return out
}

// TopologicalSort orders the labels so that every node comes after all of its
// predecessors. Ties are broken by insertion order, so the result is
// deterministic for a given build sequence. A cyclic graph yields a *Error of
// kind KindCycle listing the nodes that could not be ordered.
func TopologicalSort(ctx context.Context, g Graph) ([]string, error) {
	nodes := g.Nodes(ctx)
	indegree := make(map[string]int, len(nodes))
	queue := make([]string, 0, len(nodes))
	for _, n := range nodes {
		preds, err := g.PredecessorsOf(ctx, n.Label())
		if err != nil {
			return nil, err
		}
		indegree[n.Label()] = len(preds)
		if len(preds) == 0 {
			queue = append(queue, n.Label())
		}
	}

	order := make([]string, 0, len(nodes))
	for len(queue) > 0 {
		label := queue[0]
		queue = queue[1:]
		order = append(order, label)

		succs, err := g.SuccessorsOf(ctx, label)
		if err != nil {
			return nil, err
		}
		for _, s := range succs {
			indegree[s]--
			if indegree[s] == 0 {
				queue = append(queue, s)
			}
		}
	}

	if len(order) != len(nodes) {
		var stuck []string
		for _, n := range nodes {
			if indegree[n.Label()] > 0 {
				stuck = append(stuck, n.Label())
			}
		}
		return nil, &Error{Kind: KindCycle, Cycle: stuck}
	}
	return order, nil
}

// Validate checks the whole graph for cycles.
func Validate(ctx context.Context, g Graph) error {
	_, err := TopologicalSort(ctx, g)
	return err
}

// Ancestors returns every node the given node transitively depends on, in
// insertion order.
func Ancestors(ctx context.Context, g Graph, label string) ([]string, error) {
	return reachable(ctx, g, label, g.PredecessorsOf)
}

// Descendants returns every node that transitively depends on the given node,
// in insertion order.
func Descendants(ctx context.Context, g Graph, label string) ([]string, error) {
	return reachable(ctx, g, label, g.SuccessorsOf)
}

func reachable(ctx context.Context, g Graph, label string, next func(context.Context, string) ([]string, error)) ([]string, error) {
	if _, ok := g.Node(ctx, label); !ok {
		return nil, unknownNode(label)
	}
	seen := map[string]bool{}
	stack := []string{label}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		adj, err := next(ctx, cur)
		if err != nil {
			return nil, err
		}
		for _, a := range adj {
			if !seen[a] {
				seen[a] = true
				stack = append(stack, a)
			}
		}
	}

	out := make([]string, 0, len(seen))
	for _, n := range g.Nodes(ctx) {
		if seen[n.Label()] {
			out = append(out, n.Label())
		}
	}
	return out, nil
}

// Paths returns every path from one node to another following dependency
// arcs. A node has a single path of length one to itself; unrelated nodes have
// none.
func Paths(ctx context.Context, g Graph, from, to string) ([][]string, error) {
	for _, label := range []string{from, to} {
		if _, ok := g.Node(ctx, label); !ok {
			return nil, unknownNode(label)
		}
	}
	if err := Validate(ctx, g); err != nil {
		return nil, err
	}
	return pathsBetween(ctx, g, from, func(label string) bool { return label == to })
}

// AllPaths enumerates every path from a source to a sink.
func AllPaths(ctx context.Context, g Graph) ([][]string, error) {
	if err := Validate(ctx, g); err != nil {
		return nil, err
	}
	sinks := map[string]bool{}
	for _, s := range Sinks(ctx, g) {
		sinks[s] = true
	}
	var out [][]string
	for _, src := range Sources(ctx, g) {
		paths, err := pathsBetween(ctx, g, src, func(label string) bool { return sinks[label] })
		if err != nil {
			return nil, err
		}
		out = append(out, paths...)
	}
	return out, nil
}

// pathsBetween walks successor arcs depth first from start and collects every
// path that ends on a node accepted by stop. The graph must be acyclic.
func pathsBetween(ctx context.Context, g Graph, start string, stop func(string) bool) ([][]string, error) {
	var out [][]string
	var walk func(label string, path []string) error
	walk = func(label string, path []string) error {
		path = append(path[:len(path):len(path)], label)
		if stop(label) {
			out = append(out, path)
			return nil
		}
		succs, err := g.SuccessorsOf(ctx, label)
		if err != nil {
			return err
		}
		for _, s := range succs {
			if err := walk(s, path); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(start, nil); err != nil {
		return nil, err
	}
	return out, nil
}

// Level returns the length of the longest path from any source to the node.
// Sources are at level 0. Nodes on the same level never depend on each other.
func Level(ctx context.Context, g Graph, label string) (int, error) {
	levels, err := Levels(ctx, g)
	if err != nil {
		return 0, err
	}
	l, ok := levels[label]
	if !ok {
		return 0, unknownNode(label)
	}
	return l, nil
}

// Levels computes Level for every node at once.
func Levels(ctx context.Context, g Graph) (map[string]int, error) {
	order, err := TopologicalSort(ctx, g)
	if err != nil {
		return nil, err
	}
	levels := make(map[string]int, len(order))
	for _, label := range order {
		preds, err := g.PredecessorsOf(ctx, label)
		if err != nil {
			return nil, err
		}
		lvl := 0
		for _, p := range preds {
			if levels[p]+1 > lvl {
				lvl = levels[p] + 1
			}
		}
		levels[label] = lvl
	}
	return levels, nil
}
