package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/specialistvlad/conduit/internal/builder"
	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/executor"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/inmemorystore"
	"github.com/specialistvlad/conduit/internal/inmemorytopology"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/specialistvlad/conduit/internal/resultstore"
	"github.com/specialistvlad/conduit/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// sumWork returns its own weight plus the sum of its inputs.
func sumWork(weight int) node.WorkFunc {
	return func(ctx context.Context, n *node.Node, in node.PredecessorResults) (result.Result, error) {
		total := weight
		for _, label := range in.Labels() {
			var v int
			r, _ := in.Get(label)
			if err := r.Decode(&v); err != nil {
				return result.Null(), err
			}
			total += v
		}
		return result.MustFromGo(total), nil
	}
}

func failWork(err error) node.WorkFunc {
	return func(context.Context, *node.Node, node.PredecessorResults) (result.Result, error) {
		return result.Null(), err
	}
}

// scenario builds the eight node graph. Each node adds its label's number to
// the sum of its inputs. override replaces the work of selected nodes.
func scenario(t *testing.T, override map[string]node.WorkFunc) *graph.Manager {
	t.Helper()
	ctx := context.Background()
	g := graph.NewInMemory()
	deps := []struct {
		label string
		deps  []string
	}{
		{"1", nil}, {"2", nil}, {"3", []string{"1", "2"}}, {"4", []string{"3"}},
		{"5", []string{"3"}}, {"6", []string{"5"}}, {"7", []string{"4", "6"}}, {"8", []string{"7"}},
	}
	for i, d := range deps {
		work := sumWork(i + 1)
		if w, ok := override[d.label]; ok {
			work = w
		}
		refs := make([]builder.Ref, 0, len(d.deps))
		for _, dep := range d.deps {
			refs = append(refs, builder.Label(dep))
		}
		_, err := builder.Register(ctx, g, d.label, work, refs...)
		require.NoError(t, err)
	}
	return g
}

func resultInt(t *testing.T, r result.Result) int {
	t.Helper()
	var v int
	require.NoError(t, r.Decode(&v))
	return v
}

func TestExecute_WorkedScenario(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	store := resultstore.NewMemory()
	var rec events.Recorder
	exec := New(scenario(t, nil), WithResultStore(store), WithObserver(&rec), WithRunID("run-1"))

	// Act
	report, err := exec.Execute(context.Background())

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, report.Nodes, 8)

	// 1=1, 2=2, 3=3+1+2, 4=4+6, 5=5+6, 6=6+11, 7=7+10+17, 8=8+34
	want := map[string]int{"1": 1, "2": 2, "3": 6, "4": 10, "5": 11, "6": 17, "7": 34, "8": 42}
	for label, v := range want {
		nr, ok := report.Node(label)
		require.True(t, ok)
		assert.Equal(t, node.StatusDone, nr.Status, label)
		assert.Equal(t, v, resultInt(t, nr.Result), label)

		stored, err := store.Get(context.Background(), label)
		require.NoError(t, err)
		assert.True(t, nr.Result.Equal(stored), label)
		assert.Equal(t, 1, store.Puts(label), "result of %s persisted once", label)
	}

	evs := rec.Events()
	assert.Equal(t, events.KindRunStarted, evs[2].Kind, "roots are released before the run starts")
	assert.Equal(t, events.KindRunFinished, evs[len(evs)-1].Kind)
}

func TestExecute_CausalOrdering(t *testing.T) {
	defer goleak.VerifyNone(t)
	var rec events.Recorder
	g := scenario(t, nil)

	_, err := New(g, WithObserver(&rec)).Execute(context.Background())
	require.NoError(t, err)

	doneAt := map[string]uint64{}
	runningAt := map[string]uint64{}
	for _, ev := range rec.Events() {
		if ev.Kind != events.KindTransition {
			continue
		}
		switch ev.To {
		case node.StatusDone:
			doneAt[ev.Label] = ev.Seq
		case node.StatusRunning:
			runningAt[ev.Label] = ev.Seq
		}
	}
	for _, a := range g.Arcs(context.Background()) {
		assert.Less(t, doneAt[a.From], runningAt[a.To], "%s ran before %s was done", a.To, a.From)
	}
}

func TestExecute_ResultPersistedBeforeSuccessorRuns(t *testing.T) {
	defer goleak.VerifyNone(t)
	store := resultstore.NewMemory()
	check := func(ctx context.Context, n *node.Node, in node.PredecessorResults) (result.Result, error) {
		for _, p := range in.Labels() {
			if _, err := store.Get(ctx, p); err != nil {
				return result.Null(), fmt.Errorf("predecessor %s not persisted: %w", p, err)
			}
		}
		return sumWork(0)(ctx, n, in)
	}
	override := map[string]node.WorkFunc{}
	for _, l := range []string{"3", "4", "5", "6", "7", "8"} {
		override[l] = check
	}

	_, err := New(scenario(t, override), WithResultStore(store)).Execute(context.Background())

	require.NoError(t, err)
}

func TestExecute_FailurePropagation(t *testing.T) {
	defer goleak.VerifyNone(t)
	boom := errors.New("boom")
	store := resultstore.NewMemory()

	report, err := New(scenario(t, map[string]node.WorkFunc{"3": failWork(boom)}), WithResultStore(store)).
		Execute(context.Background())

	var runErr *executor.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, []string{"3"}, runErr.Failed)
	assert.Equal(t, []string{"4", "5", "6", "7", "8"}, runErr.Skipped)
	assert.ErrorIs(t, err, boom)

	var execErr *executor.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "3", execErr.Label)

	for _, l := range []string{"4", "5", "6", "7", "8"} {
		nr, _ := report.Node(l)
		var skipped *scheduler.SkippedError
		require.ErrorAs(t, nr.Err, &skipped, l)
		assert.Equal(t, "3", skipped.Upstream)
	}
	assert.Equal(t, []string{"1", "2"}, store.Labels())
	assert.Equal(t, err, report.Err())
}

func TestExecute_IndependentBranchContinues(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	g := graph.NewInMemory()
	_, err := builder.Register(ctx, g, "bad", failWork(errors.New("bad")))
	require.NoError(t, err)
	_, err = builder.Register(ctx, g, "after_bad", sumWork(1), builder.Label("bad"))
	require.NoError(t, err)
	_, err = builder.Register(ctx, g, "good", sumWork(1))
	require.NoError(t, err)
	_, err = builder.Register(ctx, g, "after_good", sumWork(1), builder.Label("good"))
	require.NoError(t, err)

	report, err := New(g).Execute(ctx)

	require.Error(t, err)
	counts := report.Counts()
	assert.Equal(t, 2, counts[node.StatusDone])
	assert.Equal(t, 1, counts[node.StatusFailed])
	assert.Equal(t, 1, counts[node.StatusSkipped])
	nr, _ := report.Node("after_good")
	assert.Equal(t, 2, resultInt(t, nr.Result))
}

func TestExecute_PanicBecomesFailure(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	g := graph.NewInMemory()
	_, err := builder.Register(ctx, g, "p", func(context.Context, *node.Node, node.PredecessorResults) (result.Result, error) {
		panic("kaboom")
	})
	require.NoError(t, err)

	report, err := New(g).Execute(ctx)

	assert.ErrorIs(t, err, node.ErrPanic)
	nr, _ := report.Node("p")
	assert.Equal(t, node.StatusFailed, nr.Status)
}

func TestExecute_FanInUnderMaximalConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)
	const width = 16
	ctx := context.Background()
	g := graph.NewInMemory()

	// Every root blocks until all of them run at the same time.
	var started int32
	allRunning := make(chan struct{})
	barrier := func(ctx context.Context, n *node.Node, in node.PredecessorResults) (result.Result, error) {
		if atomic.AddInt32(&started, 1) == width {
			close(allRunning)
		}
		select {
		case <-allRunning:
		case <-time.After(5 * time.Second):
			return result.Null(), errors.New("roots did not run concurrently")
		}
		return result.MustFromGo(1), nil
	}
	refs := make([]builder.Ref, 0, width)
	for i := 0; i < width; i++ {
		n, err := builder.Register(ctx, g, fmt.Sprintf("root-%02d", i), barrier)
		require.NoError(t, err)
		refs = append(refs, n)
	}
	_, err := builder.Register(ctx, g, "sink", sumWork(0), refs...)
	require.NoError(t, err)

	report, err := New(g).Execute(ctx)

	require.NoError(t, err)
	sink, _ := report.Node("sink")
	assert.Equal(t, width, resultInt(t, sink.Result))
}

func TestExecute_ConcurrencyLimit(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	g := graph.NewInMemory()

	var running, peak int32
	work := func(context.Context, *node.Node, node.PredecessorResults) (result.Result, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if cur <= old || atomic.CompareAndSwapInt32(&peak, old, cur) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return result.Null(), nil
	}
	for i := 0; i < 12; i++ {
		_, err := builder.Register(ctx, g, fmt.Sprintf("n%d", i), work)
		require.NoError(t, err)
	}

	_, err := New(g, WithConcurrency(3)).Execute(ctx)

	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Positive(t, atomic.LoadInt32(&peak))
}

func TestExecute_NodeTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	g := graph.NewInMemory()
	wait := func(ctx context.Context, _ *node.Node, _ node.PredecessorResults) (result.Result, error) {
		<-ctx.Done()
		return result.Null(), ctx.Err()
	}
	_, err := builder.Register(ctx, g, "slow", wait)
	require.NoError(t, err)
	quick, err := node.New("quick_deadline", wait, node.WithTimeout(5*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, builder.Attach(ctx, g, quick))

	report, err := New(g, WithNodeTimeout(20*time.Millisecond)).Execute(ctx)

	assert.ErrorIs(t, err, executor.ErrNodeTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	for _, l := range []string{"slow", "quick_deadline"} {
		nr, _ := report.Node(l)
		assert.Equal(t, node.StatusFailed, nr.Status, l)
	}
	nr, _ := report.Node("quick_deadline")
	assert.Contains(t, nr.Err.Error(), "after 5ms")
}

// blockingGraph builds a -> b where a signals started and waits for release.
func blockingGraph(t *testing.T, started chan<- struct{}, release <-chan struct{}, seen *atomic.Value) *graph.Manager {
	t.Helper()
	ctx := context.Background()
	g := graph.NewInMemory()
	a, err := builder.Register(ctx, g, "a", func(ctx context.Context, _ *node.Node, _ node.PredecessorResults) (result.Result, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
		seen.Store(ctx.Err() != nil)
		if err := ctx.Err(); err != nil {
			return result.Null(), err
		}
		return result.String("a"), nil
	})
	require.NoError(t, err)
	_, err = builder.Register(ctx, g, "b", sumWork(0), a)
	require.NoError(t, err)
	return g
}

func TestExecute_CancelLetsRunningNodesFinish(t *testing.T) {
	defer goleak.VerifyNone(t)
	started, release := make(chan struct{}), make(chan struct{})
	var interrupted atomic.Value
	g := blockingGraph(t, started, release, &interrupted)
	ctx, cancel := context.WithCancel(context.Background())

	type outcome struct {
		report *executor.Report
		err    error
	}
	bSkipped := make(chan struct{})
	watcher := events.ObserverFunc(func(_ context.Context, ev events.Event) {
		if ev.Kind == events.KindTransition && ev.Label == "b" && ev.To == node.StatusSkipped {
			close(bSkipped)
		}
	})
	done := make(chan outcome, 1)
	go func() {
		report, err := New(g, WithObserver(watcher)).Execute(ctx)
		done <- outcome{report, err}
	}()

	<-started
	cancel()
	<-bSkipped
	close(release)
	out := <-done

	assert.Equal(t, false, interrupted.Load())
	assert.ErrorIs(t, out.err, context.Canceled)
	a, _ := out.report.Node("a")
	assert.Equal(t, node.StatusDone, a.Status)
	b, _ := out.report.Node("b")
	assert.Equal(t, node.StatusSkipped, b.Status)
	assert.ErrorIs(t, out.report.Cause, context.Canceled)
}

func TestExecute_InterruptOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)
	started, release := make(chan struct{}), make(chan struct{})
	defer close(release)
	var interrupted atomic.Value
	g := blockingGraph(t, started, release, &interrupted)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-started
		cancel()
	}()
	report, err := New(g, WithInterruptOnCancel(true)).Execute(ctx)

	assert.Equal(t, true, interrupted.Load())
	require.Error(t, err)
	a, _ := report.Node("a")
	assert.Equal(t, node.StatusFailed, a.Status)
	assert.ErrorIs(t, a.Err, context.Canceled)
	b, _ := report.Node("b")
	assert.Equal(t, node.StatusSkipped, b.Status)
}

func TestExecute_AlreadyCancelledContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(scenario(t, nil)).Execute(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 8, report.Counts()[node.StatusSkipped])
}

func TestExecute_FailFast(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	g := graph.NewInMemory()

	// b finishes only once the failure of a has cancelled the run.
	cSkipped := make(chan struct{})
	var once sync.Once
	watcher := events.ObserverFunc(func(_ context.Context, ev events.Event) {
		if ev.Kind == events.KindTransition && ev.Label == "c" && ev.To == node.StatusSkipped {
			once.Do(func() { close(cSkipped) })
		}
	})

	_, err := builder.Register(ctx, g, "a", failWork(errors.New("a broke")))
	require.NoError(t, err)
	b, err := builder.Register(ctx, g, "b", func(context.Context, *node.Node, node.PredecessorResults) (result.Result, error) {
		<-cSkipped
		return result.String("b"), nil
	})
	require.NoError(t, err)
	_, err = builder.Register(ctx, g, "c", sumWork(0), b)
	require.NoError(t, err)

	report, err := New(g, WithFailFast(true), WithObserver(watcher)).Execute(ctx)

	var runErr *executor.RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, []string{"a"}, runErr.Failed)
	assert.Equal(t, []string{"c"}, runErr.Skipped)
	bReport, _ := report.Node("b")
	assert.Equal(t, node.StatusDone, bReport.Status)
	assert.Contains(t, report.Cause.Error(), "fail fast")
}

type failingStore struct {
	resultstore.Store
	fail string
}

func (f *failingStore) Put(ctx context.Context, label string, res result.Result) error {
	if label == f.fail {
		return errors.New("disk full")
	}
	return f.Store.Put(ctx, label, res)
}

func TestExecute_StorageFailureIsAWarning(t *testing.T) {
	defer goleak.VerifyNone(t)
	var rec events.Recorder
	store := &failingStore{Store: resultstore.NewMemory(), fail: "3"}

	report, err := New(scenario(t, nil), WithResultStore(store), WithObserver(&rec)).Execute(context.Background())

	require.NoError(t, err)
	nr, _ := report.Node("3")
	assert.Equal(t, node.StatusDone, nr.Status)
	var se *resultstore.StorageError
	require.ErrorAs(t, nr.StorageErr, &se)
	assert.Equal(t, "put", se.Op)
	require.Len(t, report.Warnings(), 1)

	// Successors still received the result.
	eight, _ := report.Node("8")
	assert.Equal(t, 42, resultInt(t, eight.Result))

	var warnings int
	for _, ev := range rec.Events() {
		if ev.Kind == events.KindStorageWarning {
			warnings++
			assert.Equal(t, "3", ev.Label)
		}
	}
	assert.Equal(t, 1, warnings)
}

// flakyState fails every read of a cached result.
type flakyState struct {
	*inmemorystore.Store
}

func (flakyState) GetResult(context.Context, string) (result.Result, bool, error) {
	return result.Null(), false, errors.New("state backend down")
}

func TestExecute_UnreadableInputsFailNode(t *testing.T) {
	defer goleak.VerifyNone(t)

	// Arrange
	exec := New(scenario(t, nil), WithNodeStore(flakyState{inmemorystore.New()}))
	type outcome struct {
		report *executor.Report
		err    error
	}
	done := make(chan outcome, 1)

	// Act
	go func() {
		report, err := exec.Execute(context.Background())
		done <- outcome{report, err}
	}()

	// Assert
	var out outcome
	select {
	case out = <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return after a node failed to read its inputs")
	}
	var runErr *executor.RunError
	require.ErrorAs(t, out.err, &runErr)
	assert.Equal(t, []string{"3"}, runErr.Failed)
	assert.ElementsMatch(t, []string{"4", "5", "6", "7", "8"}, runErr.Skipped)

	three, ok := out.report.Node("3")
	require.True(t, ok)
	assert.Equal(t, node.StatusFailed, three.Status)
	assert.ErrorIs(t, three.Err, scheduler.ErrStartFailed)
	one, _ := out.report.Node("1")
	assert.Equal(t, node.StatusDone, one.Status)
}

func TestExecute_RejectsCyclicGraph(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx := context.Background()
	ts := inmemorytopology.New()
	for _, l := range []string{"1", "2", "3"} {
		n, err := node.New(l, sumWork(0))
		require.NoError(t, err)
		require.NoError(t, ts.AddNode(ctx, n))
	}
	for _, a := range [][2]string{{"1", "2"}, {"2", "3"}, {"3", "1"}} {
		_, err := ts.AddArc(ctx, a[0], a[1])
		require.NoError(t, err)
	}

	report, err := New(graph.New(ts)).Execute(ctx)

	assert.Nil(t, report)
	assert.ErrorIs(t, err, graph.ErrCycle)
}
