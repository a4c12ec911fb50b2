package localsession

import (
	"context"
	"errors"
	"testing"

	"github.com/specialistvlad/conduit/internal/config"
	"github.com/specialistvlad/conduit/internal/executor"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/localexecutor"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/specialistvlad/conduit/internal/resultstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"go.uber.org/goleak"
)

func testRegistry() *registry.Registry {
	reg := registry.New()
	reg.RegisterKind("value", &registry.Kind{
		Work: func(_ context.Context, n *node.Node, _ node.PredecessorResults) (result.Result, error) {
			return result.New(n.Params()), nil
		},
	})
	reg.RegisterKind("fail", &registry.Kind{
		Work: func(context.Context, *node.Node, node.PredecessorResults) (result.Result, error) {
			return result.Null(), errors.New("boom")
		},
	})
	return reg
}

func testModel() *config.Model {
	m := config.NewModel()
	m.Graph("main").Nodes = []*config.Node{
		{Name: "a", Kind: "value", Params: cty.NumberIntVal(1)},
		{Name: "b", Kind: "value", Params: cty.StringVal("two"), DependsOn: []string{"a"}},
	}
	m.Graph("etl").Nodes = []*config.Node{
		{Name: "a", Kind: "value", Params: cty.True},
		{Name: "x", Kind: "fail", DependsOn: []string{"a"}},
		{Name: "y", Kind: "value", DependsOn: []string{"x"}},
	}
	return m
}

func TestSessionFactory_NewSession(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	results := resultstore.NewMemory()
	f := &SessionFactory{Results: results, Options: []localexecutor.Option{localexecutor.WithConcurrency(1)}}

	sess, err := f.NewSession(ctx, testModel().Graph("main"), testRegistry())
	require.NoError(t, err)
	defer sess.Close(ctx)

	order, err := graph.TopologicalSort(ctx, sess.Graph())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, order)

	exec, err := sess.GetExecutor()
	require.NoError(t, err)
	report, err := exec.Execute(ctx)
	require.NoError(t, err)
	nr, ok := report.Node("b")
	require.True(t, ok)
	assert.Equal(t, node.StatusDone, nr.Status)

	got, err := results.Get(ctx, "main/b")
	require.NoError(t, err)
	assert.True(t, result.String("two").Equal(got))
}

func TestSessionFactory_BuildError(t *testing.T) {
	m := config.NewModel()
	m.Graph("main").Nodes = []*config.Node{{Name: "a", Kind: "nope"}}

	_, err := (&SessionFactory{}).NewSession(context.Background(), m.Graph("main"), testRegistry())

	assert.ErrorContains(t, err, `unknown kind "nope"`)
}

func TestRunAll_IsolatesGraphs(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	results := resultstore.NewMemory()

	jobs, err := RunAll(ctx, &SessionFactory{Results: results}, testModel(), testRegistry(), 1)

	require.Error(t, err)
	assert.ErrorContains(t, err, `graph "etl"`)
	var runErr *executor.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, []string{"x"}, runErr.Failed)
	assert.Equal(t, []string{"y"}, runErr.Skipped)

	require.Len(t, jobs, 2)
	assert.Equal(t, "main", jobs[0].Graph)
	assert.NoError(t, jobs[0].Err)
	assert.Equal(t, "etl", jobs[1].Graph)
	assert.Error(t, jobs[1].Err)
	require.NotNil(t, jobs[1].Report)

	assert.Equal(t, []string{"etl/a", "main/a", "main/b"}, results.Labels())
}

func TestRunAll_Unlimited(t *testing.T) {
	defer goleak.VerifyNone(t)
	m := testModel()
	m.Graphs = m.Graphs[:1]

	jobs, err := RunAll(context.Background(), &SessionFactory{}, m, testRegistry(), 0)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Len(t, jobs[0].Report.Nodes, 2)
}
