package localexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/executor"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/inmemorystore"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/nodestore"
	"github.com/specialistvlad/conduit/internal/resultstore"
	"github.com/specialistvlad/conduit/internal/scheduler"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// Executor implements the executor.Executor interface for local execution.
type Executor struct {
	g        graph.Graph
	state    nodestore.Store
	results  resultstore.Store
	observer events.Observer

	concurrency int
	nodeTimeout time.Duration
	failFast    bool
	interrupt   bool
	runID       string

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

var _ executor.Executor = (*Executor)(nil)

// New creates a local executor for g.
func New(g graph.Graph, opts ...Option) *Executor {
	e := &Executor{g: g}
	for _, opt := range opts {
		opt(e)
	}
	if e.tracerProvider == nil {
		e.tracerProvider = otel.GetTracerProvider()
	}
	if e.meterProvider == nil {
		e.meterProvider = otel.GetMeterProvider()
	}
	return e
}

// run holds the per-run state shared by the node goroutines.
type run struct {
	id      string
	sch     *scheduler.DefaultScheduler
	tracer  trace.Tracer
	metrics *instruments
	// cancel interrupts running work functions when interruption is on.
	cancel context.CancelCauseFunc

	mu    sync.Mutex
	nodes map[string]*executor.NodeReport
}

func (r *run) record(label string, fn func(*executor.NodeReport)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	nr, ok := r.nodes[label]
	if !ok {
		nr = &executor.NodeReport{Label: label}
		r.nodes[label] = nr
	}
	fn(nr)
}

// Execute implements executor.Executor.
func (e *Executor) Execute(ctx context.Context) (*executor.Report, error) {
	runID := e.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = ctxlog.With(ctx, "run_id", runID)
	logger := ctxlog.FromContext(ctx)

	r := &run{
		id:      runID,
		tracer:  e.tracerProvider.Tracer(instrumentationName),
		metrics: newInstruments(ctx, e.meterProvider),
		nodes:   make(map[string]*executor.NodeReport),
	}

	ctx, span := r.tracer.Start(ctx, "conduit.run", trace.WithAttributes(
		attribute.String("conduit.run_id", runID),
		attribute.Int("conduit.nodes", e.g.Len(ctx)),
	))
	defer span.End()

	state := e.state
	if state == nil {
		state = inmemorystore.New()
	}
	sch, err := scheduler.New(ctx, e.g, state,
		scheduler.WithObserver(e.observer),
		scheduler.WithRunID(runID),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	r.sch = sch

	report := &executor.Report{RunID: runID, Started: time.Now()}
	logger.Info("Run started.", "nodes", e.g.Len(ctx), "concurrency", e.concurrency, "fail_fast", e.failFast)
	sch.Notify(ctx, events.Event{Kind: events.KindRunStarted})

	nodeCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	r.cancel = cancel
	if !e.interrupt {
		nodeCtx = context.WithoutCancel(nodeCtx)
	}

	// Cancelling ctx skips whatever has not started yet.
	if ctx.Err() != nil {
		sch.Cancel(context.WithoutCancel(ctx), context.Cause(ctx))
	}
	stop := context.AfterFunc(ctx, func() {
		sch.Cancel(context.WithoutCancel(ctx), context.Cause(ctx))
	})
	defer stop()

	var sem *semaphore.Weighted
	if e.concurrency > 0 {
		sem = semaphore.NewWeighted(int64(e.concurrency))
	}

	var wg sync.WaitGroup
	for n := range sch.ReadyNodes() {
		if sem != nil {
			if err := sem.Acquire(ctx, 1); err != nil {
				sch.Cancel(context.WithoutCancel(ctx), context.Cause(ctx))
				continue
			}
		}
		wg.Add(1)
		go func(n *node.Node) {
			defer wg.Done()
			if sem != nil {
				defer sem.Release(1)
			}
			e.runNode(nodeCtx, r, n)
		}(n)
	}
	wg.Wait()

	report.Finished = time.Now()
	report.Cause = sch.Cause()
	e.fillReport(ctx, report, r, state)
	sch.Notify(ctx, events.Event{Kind: events.KindRunFinished, Err: report.Err()})
	// A cancellation may still be delivering its events on another goroutine.
	sch.Flush()

	if r.metrics.runDuration != nil {
		r.metrics.runDuration.Record(ctx, report.Duration().Seconds())
	}
	counts := report.Counts()
	logger.Info("Run finished.",
		"duration", report.Duration(),
		"done", counts[node.StatusDone],
		"failed", counts[node.StatusFailed],
		"skipped", counts[node.StatusSkipped],
		"warnings", len(report.Warnings()),
	)

	if err := report.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "run failed")
		return report, err
	}
	span.SetStatus(codes.Ok, "")
	return report, nil
}

// runNode executes one node and reports the outcome to the scheduler.
func (e *Executor) runNode(ctx context.Context, r *run, n *node.Node) {
	label := n.Label()
	logger := ctxlog.FromContext(ctx).With("label", label)

	in, err := r.sch.MarkRunning(ctx, label)
	if err != nil {
		if errors.Is(err, scheduler.ErrNotReady) {
			logger.Debug("Node skipped before it started.")
			return
		}
		logger.Error("Failed to start node.", "error", err)
		if errors.Is(err, scheduler.ErrStartFailed) {
			// The scheduler has already marked the node failed.
			now := time.Now()
			r.record(label, func(nr *executor.NodeReport) { nr.Started, nr.Finished = now, now })
			e.countOutcome(ctx, r, label, "failed")
			e.stopOnFailure(ctx, r, err)
		}
		return
	}

	started := time.Now()
	r.record(label, func(nr *executor.NodeReport) { nr.Started = started })

	ctx, span := r.tracer.Start(ctx, "conduit.node", trace.WithAttributes(
		attribute.String("conduit.node", label),
		attribute.String("conduit.kind", n.Kind()),
		attribute.StringSlice("conduit.predecessors", in.Labels()),
		attribute.String("conduit.run_id", r.id),
	))
	defer span.End()

	nodeAttrs := metric.WithAttributes(attribute.String("node", label))
	if r.metrics.activeNodes != nil {
		r.metrics.activeNodes.Add(ctx, 1)
		defer r.metrics.activeNodes.Add(ctx, -1)
	}

	logger.Debug("Node starting.", "predecessors", len(in))
	workCtx := ctx
	timeout := n.Timeout()
	if timeout == 0 {
		timeout = e.nodeTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		workCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	res, err := n.Invoke(workCtx, in)
	duration := time.Since(started)
	if r.metrics.nodeDuration != nil {
		r.metrics.nodeDuration.Record(ctx, duration.Seconds(), nodeAttrs)
	}

	if err != nil {
		if errors.Is(workCtx.Err(), context.DeadlineExceeded) && timeout > 0 {
			err = fmt.Errorf("%w after %s: %w", executor.ErrNodeTimeout, timeout, err)
		}
		execErr := &executor.ExecutionError{Label: label, Err: err}
		e.countOutcome(ctx, r, label, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Node failed.", "duration", duration, "error", err)

		r.record(label, func(nr *executor.NodeReport) { nr.Finished = time.Now() })
		if merr := r.sch.MarkFailed(ctx, label, execErr); merr != nil {
			logger.Error("Failed to record node failure.", "error", merr)
		}
		e.stopOnFailure(ctx, r, execErr)
		return
	}

	// The result is persisted before the scheduler releases the successors.
	if e.results != nil {
		if perr := e.results.Put(context.WithoutCancel(ctx), label, res); perr != nil {
			serr := resultstore.Wrap("put", label, perr)
			logger.Warn("Failed to persist node result.", "error", serr)
			span.AddEvent("storage_failure", trace.WithAttributes(attribute.String("error", serr.Error())))
			if r.metrics.storageFailure != nil {
				r.metrics.storageFailure.Add(ctx, 1, nodeAttrs)
			}
			r.record(label, func(nr *executor.NodeReport) { nr.StorageErr = serr })
			r.sch.Notify(ctx, events.Event{Kind: events.KindStorageWarning, Label: label, Err: serr})
		}
	}

	r.record(label, func(nr *executor.NodeReport) { nr.Finished = time.Now() })
	if err := r.sch.MarkDone(ctx, label, res); err != nil {
		logger.Error("Failed to record node result.", "error", err)
		if merr := r.sch.MarkFailed(ctx, label, &executor.ExecutionError{Label: label, Err: err}); merr != nil {
			logger.Error("Failed to record node failure.", "error", merr)
		}
		e.countOutcome(ctx, r, label, "failed")
		return
	}
	e.countOutcome(ctx, r, label, "done")
	span.SetStatus(codes.Ok, "")
	logger.Debug("Node done.", "duration", duration)
}

func (e *Executor) countOutcome(ctx context.Context, r *run, label, outcome string) {
	if r.metrics.nodeOutcomes == nil {
		return
	}
	r.metrics.nodeOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("node", label),
		attribute.String("outcome", outcome),
	))
}

// stopOnFailure cancels the rest of the run when fail-fast is enabled.
func (e *Executor) stopOnFailure(ctx context.Context, r *run, err error) {
	if !e.failFast {
		return
	}
	cause := fmt.Errorf("fail fast: %w", err)
	r.sch.Cancel(ctx, cause)
	r.cancel(cause)
}

// fillReport lists every node in graph order with its final state.
func (e *Executor) fillReport(ctx context.Context, report *executor.Report, r *run, state nodestore.Store) {
	logger := ctxlog.FromContext(ctx)
	snapshot := r.sch.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range e.g.Nodes(ctx) {
		label := n.Label()
		nr := executor.NodeReport{Label: label, Status: snapshot[label]}
		if timing, ok := r.nodes[label]; ok {
			nr.Started, nr.Finished, nr.StorageErr = timing.Started, timing.Finished, timing.StorageErr
		}
		if res, ok, err := state.GetResult(ctx, label); err != nil {
			logger.Warn("Failed to read node result.", "label", label, "error", err)
		} else if ok {
			nr.Result = res
		}
		if nodeErr, err := state.GetError(ctx, label); err != nil {
			logger.Warn("Failed to read node error.", "label", label, "error", err)
		} else {
			nr.Err = nodeErr
		}
		report.Nodes = append(report.Nodes, nr)
	}
}
