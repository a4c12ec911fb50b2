package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func noop(context.Context, *node.Node, node.PredecessorResults) (result.Result, error) {
	return result.Null(), nil
}

func TestRegister_WiresDependencies(t *testing.T) {
	ctx := context.Background()
	g := graph.NewInMemory()

	// Arrange: 1 and 2 are handles, 3 depends on both, 4 references 3 by label.
	n1, err := node.New("1", noop)
	require.NoError(t, err)
	n2, err := node.New("2", noop)
	require.NoError(t, err)

	// Act
	n3, err := Register(ctx, g, "3", noop, n1, n2)
	require.NoError(t, err)
	_, err = Register(ctx, g, "4", noop, Label("3"))
	require.NoError(t, err)

	// Assert
	preds, err := g.PredecessorsOf(ctx, n3.Label())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2"}, preds)

	preds, err = g.PredecessorsOf(ctx, "4")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, preds)
	assert.Equal(t, 4, g.Len(ctx))
}

func TestRegister_UnknownLabelLeavesGraphUnchanged(t *testing.T) {
	ctx := context.Background()
	g := graph.NewInMemory()

	_, err := Register(ctx, g, "a", noop, Label("missing"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, graph.ErrUnknownNode))
	assert.Equal(t, 0, g.Len(ctx))
}

func TestRegister_RejectsCycle(t *testing.T) {
	ctx := context.Background()
	g := graph.NewInMemory()

	a, err := Register(ctx, g, "a", noop)
	require.NoError(t, err)
	b, err := Register(ctx, g, "b", noop, a)
	require.NoError(t, err)

	err = Attach(ctx, g, a, b)

	var gerr *graph.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, graph.KindCycle, gerr.Kind)
}

func TestAttach_NilDependencyLeavesGraphUnchanged(t *testing.T) {
	ctx := context.Background()
	g := graph.NewInMemory()
	a, err := Register(ctx, g, "a", noop)
	require.NoError(t, err)
	n, err := node.New("n", noop)
	require.NoError(t, err)
	var typedNil *node.Node

	for _, deps := range [][]Ref{{a, nil}, {a, typedNil}} {
		err = Attach(ctx, g, n, deps...)

		assert.EqualError(t, err, `node "n": nil dependency`)
		assert.Equal(t, 1, g.Len(ctx))
		assert.Empty(t, g.Arcs(ctx))
	}
}

func TestRegister_DuplicateHandleLeavesGraphUnchanged(t *testing.T) {
	ctx := context.Background()
	g := graph.NewInMemory()

	// Arrange: a and b are in the graph; otherB is a different node that
	// carries the label "b".
	a, err := Register(ctx, g, "a", noop)
	require.NoError(t, err)
	_, err = Register(ctx, g, "b", noop)
	require.NoError(t, err)
	otherB, err := node.New("b", noop)
	require.NoError(t, err)

	// Act
	_, err = Register(ctx, g, "c", noop, a, otherB)

	// Assert
	assert.ErrorIs(t, err, graph.ErrDuplicateLabel)
	assert.Equal(t, 2, g.Len(ctx))
	assert.Empty(t, g.Arcs(ctx))
	_, found := g.Node(ctx, "c")
	assert.False(t, found)
}

func TestAttach_CycleLaterInDepsLeavesGraphUnchanged(t *testing.T) {
	ctx := context.Background()
	g := graph.NewInMemory()

	// Arrange: a -> b, x is isolated.
	a, err := Register(ctx, g, "a", noop)
	require.NoError(t, err)
	b, err := Register(ctx, g, "b", noop, a)
	require.NoError(t, err)
	x, err := Register(ctx, g, "x", noop)
	require.NoError(t, err)
	before := g.Arcs(ctx)

	// Act: x -> a is fine, b -> a closes a cycle.
	err = Attach(ctx, g, a, x, b)

	// Assert
	assert.ErrorIs(t, err, graph.ErrCycle)
	assert.Equal(t, 3, g.Len(ctx))
	assert.Equal(t, before, g.Arcs(ctx))
}

func newRegistry() *registry.Registry {
	r := registry.New()
	r.RegisterKind("noop", &registry.Kind{Work: noop})
	return r
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	params := cty.ObjectVal(map[string]cty.Value{"message": cty.StringVal("hi")})

	// Arrange: nodes declared out of dependency order.
	def := &config.Graph{Name: "main", Nodes: []*config.Node{
		{Name: "c", Kind: "noop", DependsOn: []string{"a", "b"}},
		{Name: "a", Kind: "noop", Params: params, Timeout: time.Second},
		{Name: "b", Kind: "noop", DependsOn: []string{"a"}},
	}}

	// Act
	g, err := Build(ctx, def, newRegistry())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len(ctx))

	preds, err := g.PredecessorsOf(ctx, "c")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, preds)

	a, ok := g.Node(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "noop", a.Kind())
	assert.Equal(t, time.Second, a.Timeout())
	assert.True(t, a.Params().RawEquals(params))

	order, err := graph.TopologicalSort(ctx, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestBuild_Errors(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name    string
		nodes   []*config.Node
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown kind",
			nodes:   []*config.Node{{Name: "a", Kind: "nope", Source: "a.hcl:1"}},
			wantMsg: `node "a": unknown kind "nope" (a.hcl:1)`,
		},
		{
			name:    "unknown dependency",
			nodes:   []*config.Node{{Name: "a", Kind: "noop", DependsOn: []string{"ghost"}}},
			wantErr: graph.ErrUnknownNode,
		},
		{
			name: "cycle",
			nodes: []*config.Node{
				{Name: "a", Kind: "noop", DependsOn: []string{"b"}},
				{Name: "b", Kind: "noop", DependsOn: []string{"a"}},
			},
			wantErr: graph.ErrCycle,
		},
		{
			name: "duplicate label",
			nodes: []*config.Node{
				{Name: "a", Kind: "noop"},
				{Name: "a", Kind: "noop"},
			},
			wantErr: graph.ErrDuplicateLabel,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(ctx, &config.Graph{Name: "main", Nodes: tc.nodes}, newRegistry())
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantMsg != "" {
				assert.EqualError(t, err, tc.wantMsg)
			}
		})
	}
}
