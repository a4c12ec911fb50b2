package node

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/specialistvlad/conduit/internal/result"
	"github.com/zclconf/go-cty/cty"
)

// WorkFunc is the unit of work attached to a node. It receives the node
// itself, so it can read its static parameters, and the results of every
// direct predecessor.
type WorkFunc func(ctx context.Context, n *Node, in PredecessorResults) (result.Result, error)

// ErrPanic is wrapped by the error returned from Invoke when the work
// function panicked.
var ErrPanic = errors.New("work function panicked")

// Node is a single vertex in the execution graph. Its label is its identity:
// two nodes are the same node when their labels match. A Node is immutable
// once created.
type Node struct {
	label   string
	kind    string
	work    WorkFunc
	params  cty.Value
	timeout time.Duration
}

// Option customizes a Node at construction time.
type Option func(*Node)

// WithParams binds static parameters to the node. They are available to the
// work function through Params and DecodeParams.
func WithParams(params cty.Value) Option {
	return func(n *Node) {
		n.params = params
	}
}

// WithKind records the name of the work kind the node was built from.
func WithKind(kind string) Option {
	return func(n *Node) {
		n.kind = kind
	}
}

// WithTimeout sets a per-node execution deadline, overriding the executor's
// default.
func WithTimeout(d time.Duration) Option {
	return func(n *Node) {
		n.timeout = d
	}
}

// New creates a node.
func New(label string, work WorkFunc, opts ...Option) (*Node, error) {
	if label == "" {
		return nil, errors.New("node label must not be empty")
	}
	if work == nil {
		return nil, fmt.Errorf("node %q has no work function", label)
	}
	n := &Node{
		label:  label,
		work:   work,
		params: cty.EmptyObjectVal,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.params == cty.NilVal {
		n.params = cty.EmptyObjectVal
	}
	return n, nil
}

// Label returns the node's unique label.
func (n *Node) Label() string {
	return n.label
}

// Kind returns the work kind name, or an empty string for nodes built
// directly from a Go function.
func (n *Node) Kind() string {
	return n.kind
}

// Params returns the node's static parameters.
func (n *Node) Params() cty.Value {
	return n.params
}

// DecodeParams decodes the static parameters into target using their JSON
// form.
func (n *Node) DecodeParams(target any) error {
	if err := result.New(n.params).Decode(target); err != nil {
		return fmt.Errorf("node %q: %w", n.label, err)
	}
	return nil
}

// Timeout returns the node's own deadline, zero if none was set.
func (n *Node) Timeout() time.Duration {
	return n.timeout
}

// Equal reports whether both nodes have the same label.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.label == other.label
}

func (n *Node) String() string {
	return n.label
}

// Invoke runs the work function. A panic inside the work function is turned
// into an error wrapping ErrPanic.
func (n *Node) Invoke(ctx context.Context, in PredecessorResults) (res result.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = result.Null()
			err = fmt.Errorf("%w: %v\n%s", ErrPanic, r, debug.Stack())
		}
	}()
	return n.work(ctx, n, in)
}
