package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/graph"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/nodestore"
	"github.com/specialistvlad/conduit/internal/result"
)

// DefaultScheduler is the reference implementation of the Scheduler
// interface.
type DefaultScheduler struct {
	// mu guards every field below it.
	mu        sync.Mutex
	state     nodestore.Store
	nodes     map[string]*node.Node
	order     []string
	preds     map[string][]string
	succs     map[string][]string
	status    map[string]node.Status
	waiting   map[string]int
	remaining int
	cancelled bool
	cause     error
	seq       uint64
	outbox    []events.Event

	ready     chan *node.Node
	done      chan struct{}
	closeOnce sync.Once

	// delivering is set while one caller drains outbox to the observer. Only
	// that caller delivers, so events arrive in sequence order.
	delivering bool
	idle       *sync.Cond
	observer   events.Observer
	runID    string
}

var _ Scheduler = (*DefaultScheduler)(nil)

// Option configures a DefaultScheduler.
type Option func(*DefaultScheduler)

// WithObserver registers observers for every event of the run.
func WithObserver(observers ...events.Observer) Option {
	return func(s *DefaultScheduler) {
		s.observer = events.Combine(append([]events.Observer{s.observer}, observers...)...)
	}
}

// WithRunID stamps every event with the run's identifier.
func WithRunID(id string) Option {
	return func(s *DefaultScheduler) {
		s.runID = id
	}
}

// New creates a scheduler for one run of g. It fails with a *graph.Error if
// the graph has a cycle. Roots start Ready and are already enqueued when New
// returns; every other node starts Pending.
func New(ctx context.Context, g graph.Graph, state nodestore.Store, opts ...Option) (*DefaultScheduler, error) {
	if err := graph.Validate(ctx, g); err != nil {
		return nil, err
	}

	all := g.Nodes(ctx)
	s := &DefaultScheduler{
		state:     state,
		nodes:     make(map[string]*node.Node, len(all)),
		order:     make([]string, 0, len(all)),
		preds:     make(map[string][]string, len(all)),
		succs:     make(map[string][]string, len(all)),
		status:    make(map[string]node.Status, len(all)),
		waiting:   make(map[string]int, len(all)),
		remaining: len(all),
		ready:     make(chan *node.Node, len(all)),
		done:      make(chan struct{}),
	}
	s.idle = sync.NewCond(&s.mu)
	for _, opt := range opts {
		opt(s)
	}

	for _, n := range all {
		label := n.Label()
		preds, err := g.PredecessorsOf(ctx, label)
		if err != nil {
			return nil, err
		}
		succs, err := g.SuccessorsOf(ctx, label)
		if err != nil {
			return nil, err
		}
		s.nodes[label] = n
		s.order = append(s.order, label)
		s.preds[label] = preds
		s.succs[label] = succs
		s.waiting[label] = len(preds)
		s.status[label] = node.StatusPending
		if err := state.SetStatus(ctx, label, node.StatusPending); err != nil {
			return nil, fmt.Errorf("failed to initialise node %q: %w", label, err)
		}
	}

	s.mu.Lock()
	for _, label := range s.order {
		if s.waiting[label] == 0 {
			s.releaseLocked(ctx, label)
		}
	}
	s.finishLocked()
	s.unlockAndDispatch(ctx)

	ctxlog.FromContext(ctx).Debug("Scheduler created.", "nodes", len(all), "roots", len(s.ready))
	return s, nil
}

// ReadyNodes implements Scheduler.
func (s *DefaultScheduler) ReadyNodes() <-chan *node.Node {
	return s.ready
}

// Done implements Scheduler.
func (s *DefaultScheduler) Done() <-chan struct{} {
	return s.done
}

// MarkRunning implements Scheduler.
func (s *DefaultScheduler) MarkRunning(ctx context.Context, label string) (node.PredecessorResults, error) {
	s.mu.Lock()
	defer s.unlockAndDispatch(ctx)

	st, ok := s.status[label]
	if !ok {
		return nil, &graph.Error{Kind: graph.KindUnknownNode, Label: label}
	}
	if st != node.StatusReady {
		return nil, fmt.Errorf("%w: node %q is %s", ErrNotReady, label, st)
	}

	in, err := s.inputsLocked(ctx, label)
	s.setLocked(ctx, label, node.StatusRunning, nil)
	if err != nil {
		// The node can never get its inputs, so it fails instead of staying
		// Ready forever.
		err = fmt.Errorf("%w: %w", ErrStartFailed, err)
		s.failLocked(ctx, label, err)
		return nil, err
	}
	return in, nil
}

// inputsLocked reads the cached result of every predecessor of label.
func (s *DefaultScheduler) inputsLocked(ctx context.Context, label string) (node.PredecessorResults, error) {
	in := make(node.PredecessorResults, len(s.preds[label]))
	for _, p := range s.preds[label] {
		res, found, err := s.state.GetResult(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("failed to read result of %q for %q: %w", p, label, err)
		}
		if !found {
			return nil, fmt.Errorf("result of predecessor %q missing for %q", p, label)
		}
		in[p] = res
	}
	return in, nil
}

// MarkDone implements Scheduler.
func (s *DefaultScheduler) MarkDone(ctx context.Context, label string, res result.Result) error {
	s.mu.Lock()
	defer s.unlockAndDispatch(ctx)

	if err := s.expectLocked(label, node.StatusRunning, node.StatusDone); err != nil {
		return err
	}
	if err := s.state.SetResult(ctx, label, res); err != nil {
		return fmt.Errorf("failed to cache result of %q: %w", label, err)
	}
	s.setLocked(ctx, label, node.StatusDone, nil)

	if !s.cancelled {
		for _, succ := range s.succs[label] {
			s.waiting[succ]--
			if s.waiting[succ] == 0 && s.status[succ] == node.StatusPending {
				s.releaseLocked(ctx, succ)
			}
		}
	}
	s.finishLocked()
	return nil
}

// MarkFailed implements Scheduler.
func (s *DefaultScheduler) MarkFailed(ctx context.Context, label string, err error) error {
	s.mu.Lock()
	defer s.unlockAndDispatch(ctx)

	if terr := s.expectLocked(label, node.StatusRunning, node.StatusFailed); terr != nil {
		return terr
	}
	s.failLocked(ctx, label, err)
	return nil
}

// failLocked moves a Running node to Failed and skips every descendant that
// is still Pending.
func (s *DefaultScheduler) failLocked(ctx context.Context, label string, err error) {
	s.setLocked(ctx, label, node.StatusFailed, err)

	// Breadth first over the descendants. A node that is already skipped had
	// its own descendants skipped at the same time.
	queue := append([]string(nil), s.succs[label]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if s.status[cur] != node.StatusPending {
			continue
		}
		s.setLocked(ctx, cur, node.StatusSkipped, &SkippedError{Label: cur, Upstream: label, Err: err})
		queue = append(queue, s.succs[cur]...)
	}
	s.finishLocked()
}

// Cancel implements Scheduler.
func (s *DefaultScheduler) Cancel(ctx context.Context, cause error) {
	s.mu.Lock()
	defer s.unlockAndDispatch(ctx)

	if s.cancelled {
		return
	}
	if cause == nil {
		cause = ErrCancelled
	}
	s.cancelled = true
	s.cause = cause

	skipped := 0
	for _, label := range s.order {
		switch s.status[label] {
		case node.StatusPending, node.StatusReady:
			s.setLocked(ctx, label, node.StatusSkipped, &SkippedError{Label: label, Err: cause})
			skipped++
		}
	}
	ctxlog.FromContext(ctx).Info("Run cancelled.", "cause", cause, "skipped", skipped)
	s.finishLocked()
}

// Cause returns the error Cancel was called with, nil if the run was not
// cancelled.
func (s *DefaultScheduler) Cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// Status implements Scheduler.
func (s *DefaultScheduler) Status(label string) (node.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[label]
	return st, ok
}

// Snapshot implements Scheduler.
func (s *DefaultScheduler) Snapshot() map[string]node.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]node.Status, len(s.status))
	for k, v := range s.status {
		out[k] = v
	}
	return out
}

// Notify implements Scheduler.
func (s *DefaultScheduler) Notify(ctx context.Context, ev events.Event) {
	s.mu.Lock()
	s.recordLocked(ev)
	s.unlockAndDispatch(ctx)
}

// expectLocked checks that label exists and is in status from.
func (s *DefaultScheduler) expectLocked(label string, from, to node.Status) error {
	st, ok := s.status[label]
	if !ok {
		return &graph.Error{Kind: graph.KindUnknownNode, Label: label}
	}
	if st != from {
		return fmt.Errorf("%w: node %q is %s, cannot become %s", ErrInvalidTransition, label, st, to)
	}
	return nil
}

// releaseLocked moves a Pending node to Ready and enqueues it. The channel
// has room for every node and each node is released once, so the send never
// blocks.
func (s *DefaultScheduler) releaseLocked(ctx context.Context, label string) {
	s.setLocked(ctx, label, node.StatusReady, nil)
	s.ready <- s.nodes[label]
}

// setLocked applies a transition, mirrors it to the node store and records
// the event. Callers have already checked the transition.
func (s *DefaultScheduler) setLocked(ctx context.Context, label string, to node.Status, nodeErr error) {
	from := s.status[label]
	if !from.CanTransition(to) {
		panic(fmt.Sprintf("scheduler: illegal transition of %q from %s to %s", label, from, to))
	}
	s.status[label] = to
	if to.IsTerminal() {
		s.remaining--
	}

	logger := ctxlog.FromContext(ctx)
	if err := s.state.SetStatus(ctx, label, to); err != nil {
		logger.Warn("Failed to store node status.", "label", label, "status", to, "error", err)
	}
	if nodeErr != nil {
		if err := s.state.SetError(ctx, label, nodeErr); err != nil {
			logger.Warn("Failed to store node error.", "label", label, "error", err)
		}
	}
	s.recordLocked(events.Event{Kind: events.KindTransition, Label: label, From: from, To: to, Err: nodeErr})
}

func (s *DefaultScheduler) recordLocked(ev events.Event) {
	s.seq++
	ev.Seq = s.seq
	ev.RunID = s.runID
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	if s.observer != nil {
		s.outbox = append(s.outbox, ev)
	}
}

// finishLocked closes the channels once every node is terminal.
func (s *DefaultScheduler) finishLocked() {
	if s.remaining > 0 {
		return
	}
	s.closeOnce.Do(func() {
		close(s.ready)
		close(s.done)
	})
}

// unlockAndDispatch releases mu and delivers the queued events. If another
// call is already delivering, the events are left to it and this call returns
// at once. Observers run without mu held, so a slow observer only delays the
// delivering goroutine and an observer may call back into the scheduler.
func (s *DefaultScheduler) unlockAndDispatch(ctx context.Context) {
	if s.delivering || len(s.outbox) == 0 {
		s.mu.Unlock()
		return
	}
	s.delivering = true
	for len(s.outbox) > 0 {
		batch := s.outbox
		s.outbox = nil
		s.mu.Unlock()
		for _, ev := range batch {
			s.observer.OnEvent(ctx, ev)
		}
		s.mu.Lock()
	}
	s.delivering = false
	s.idle.Broadcast()
	s.mu.Unlock()
}

// Flush blocks until every event recorded so far has been delivered. It must
// not be called from an observer.
func (s *DefaultScheduler) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.delivering || len(s.outbox) > 0 {
		s.idle.Wait()
	}
}
