// Package events defines the run events emitted by the scheduler and the
// executor, and the Observer interface that consumes them.
//
// Every event carries a sequence number assigned under the scheduler lock,
// so observers see events in exactly the order the state changes happened.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/conduit/internal/node"
)

// Kind classifies an event.
type Kind int

const (
	// KindTransition is a node status change.
	KindTransition Kind = iota + 1
	// KindRunStarted is emitted once before the first node runs.
	KindRunStarted
	// KindRunFinished is emitted once after every node is terminal.
	KindRunFinished
	// KindStorageWarning is emitted when a result could not be persisted.
	KindStorageWarning
)

var kindNames = map[Kind]string{
	KindTransition:     "transition",
	KindRunStarted:     "run_started",
	KindRunFinished:    "run_finished",
	KindStorageWarning: "storage_warning",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Event describes one thing that happened during a run.
type Event struct {
	Seq   uint64
	RunID string
	Kind  Kind
	// Label is empty for run level events.
	Label string
	// From and To are set for transitions.
	From, To node.Status
	Err      error
	Time     time.Time
}

func (e Event) String() string {
	switch e.Kind {
	case KindTransition:
		return fmt.Sprintf("#%d %s: %s -> %s", e.Seq, e.Label, e.From, e.To)
	case KindStorageWarning:
		return fmt.Sprintf("#%d %s: storage warning: %v", e.Seq, e.Label, e.Err)
	default:
		return fmt.Sprintf("#%d %s", e.Seq, e.Kind)
	}
}

// Observer receives run events. OnEvent is called one event at a time and in
// sequence order, but not always from the goroutine that caused the event: a
// single goroutine delivers everything queued while it is busy. OnEvent should
// return quickly, since a slow observer holds back that goroutine's own node.
// It may call back into the scheduler; those events are queued behind the
// current one.
type Observer interface {
	OnEvent(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, ev Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(ctx context.Context, ev Event) {
	f(ctx, ev)
}

type multi []Observer

func (m multi) OnEvent(ctx context.Context, ev Event) {
	for _, o := range m {
		o.OnEvent(ctx, ev)
	}
}

// Combine fans events out to every non-nil observer, in order. It returns
// nil when there is none.
func Combine(observers ...Observer) Observer {
	var m multi
	for _, o := range observers {
		if o != nil {
			m = append(m, o)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	}
	return m
}

// Recorder is an Observer that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// OnEvent appends the event.
func (r *Recorder) OnEvent(_ context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Transitions returns the recorded transitions of one node, in order.
func (r *Recorder) Transitions(label string) []node.Status {
	var out []node.Status
	for _, ev := range r.Events() {
		if ev.Kind == KindTransition && ev.Label == label {
			out = append(out, ev.To)
		}
	}
	return out
}
