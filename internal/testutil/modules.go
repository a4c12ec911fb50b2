package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
)

// MockSleeperModule registers the "sleeper" kind. It records the execution
// time of each node that uses it.
type MockSleeperModule struct {
	mu             sync.Mutex
	executionTimes map[string]*ExecutionRecord
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing. A nil
// completionChan is allowed.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		executionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Record returns the execution record of a node, or nil if it never ran.
func (m *MockSleeperModule) Record(label string) *ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.executionTimes[label]
}

// Register registers the "sleeper" kind.
func (m *MockSleeperModule) Register(r *registry.Registry) {
	r.RegisterKind("sleeper", &registry.Kind{
		Work: func(ctx context.Context, n *node.Node, _ node.PredecessorResults) (result.Result, error) {
			start := time.Now()
			timer := time.NewTimer(m.sleepDuration)
			defer timer.Stop()
			select {
			case <-timer.C:
			case <-ctx.Done():
				return result.Null(), context.Cause(ctx)
			}
			end := time.Now()

			m.mu.Lock()
			m.executionTimes[n.Label()] = &ExecutionRecord{Start: start, End: end}
			m.mu.Unlock()

			if m.completionChan != nil {
				m.completionChan <- n.Label()
			}
			return result.String(n.Label()), nil
		},
	})
}

// MockFailerModule registers the "failer" kind, which always returns Err.
type MockFailerModule struct {
	Err error
}

// Register registers the "failer" kind.
func (m *MockFailerModule) Register(r *registry.Registry) {
	r.RegisterKind("failer", &registry.Kind{
		Work: func(context.Context, *node.Node, node.PredecessorResults) (result.Result, error) {
			return result.Null(), m.Err
		},
	})
}

// SpyModule registers the "spy" kind. It remembers the predecessor results
// each node received and returns its params unchanged.
type SpyModule struct {
	mu     sync.Mutex
	inputs map[string]node.PredecessorResults
}

// Ran reports whether the node with the given label executed.
func (m *SpyModule) Ran(label string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inputs[label]
	return ok
}

// Inputs returns the predecessor results the node received.
func (m *SpyModule) Inputs(label string) node.PredecessorResults {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[label]
}

// Register registers the "spy" kind.
func (m *SpyModule) Register(r *registry.Registry) {
	r.RegisterKind("spy", &registry.Kind{
		Work: func(_ context.Context, n *node.Node, in node.PredecessorResults) (result.Result, error) {
			m.mu.Lock()
			if m.inputs == nil {
				m.inputs = make(map[string]node.PredecessorResults)
			}
			m.inputs[n.Label()] = in
			m.mu.Unlock()
			return result.New(n.Params()), nil
		},
	})
}
