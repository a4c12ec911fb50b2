package localexecutor

import (
	"time"

	"github.com/specialistvlad/conduit/internal/events"
	"github.com/specialistvlad/conduit/internal/nodestore"
	"github.com/specialistvlad/conduit/internal/resultstore"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option configures an Executor.
type Option func(*Executor)

// WithConcurrency caps the number of nodes running at once. Zero or a
// negative value means no limit.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		e.concurrency = n
	}
}

// WithNodeTimeout sets the default deadline of every node. A node's own
// timeout takes precedence.
func WithNodeTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.nodeTimeout = d
	}
}

// WithFailFast makes the first failure cancel the rest of the run.
func WithFailFast(enabled bool) Option {
	return func(e *Executor) {
		e.failFast = enabled
	}
}

// WithInterruptOnCancel propagates cancellation into running work functions.
// By default they run to completion.
func WithInterruptOnCancel(enabled bool) Option {
	return func(e *Executor) {
		e.interrupt = enabled
	}
}

// WithRunID fixes the run identifier instead of generating one.
func WithRunID(id string) Option {
	return func(e *Executor) {
		e.runID = id
	}
}

// WithObserver registers observers for the run's events.
func WithObserver(observers ...events.Observer) Option {
	return func(e *Executor) {
		e.observer = events.Combine(append([]events.Observer{e.observer}, observers...)...)
	}
}

// WithResultStore persists every result to store.
func WithResultStore(store resultstore.Store) Option {
	return func(e *Executor) {
		e.results = store
	}
}

// WithNodeStore uses state for the run's node state instead of a fresh
// in-memory store.
func WithNodeStore(state nodestore.Store) Option {
	return func(e *Executor) {
		e.state = state
	}
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Executor) {
		e.tracerProvider = tp
	}
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(e *Executor) {
		e.meterProvider = mp
	}
}
