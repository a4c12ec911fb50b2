package app

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/specialistvlad/conduit/internal/graph"
)

// printPlan writes the topological order of g grouped by level.
func printPlan(ctx context.Context, w io.Writer, name string, g graph.Graph) error {
	order, err := graph.TopologicalSort(ctx, g)
	if err != nil {
		return err
	}
	levels, err := graph.Levels(ctx, g)
	if err != nil {
		return err
	}

	byLevel := make(map[int][]string)
	maxLevel := -1
	for _, label := range order {
		lvl := levels[label]
		byLevel[lvl] = append(byLevel[lvl], label)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	fmt.Fprintf(w, "graph %q: %d node(s)\n", name, len(order))
	for lvl := 0; lvl <= maxLevel; lvl++ {
		fmt.Fprintf(w, "  level %d: %s\n", lvl, strings.Join(byLevel[lvl], ", "))
	}
	return nil
}
