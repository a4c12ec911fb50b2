package executor

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNodeTimeout is wrapped by the error of a node that exceeded its
// deadline.
var ErrNodeTimeout = errors.New("node timed out")

// ExecutionError is recorded on a node whose work function failed.
type ExecutionError struct {
	Label string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Label, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// RunError is returned by Execute when at least one node failed or was
// skipped.
type RunError struct {
	Failed  []string
	Skipped []string
	// Errs holds the error of every failed node, followed by the
	// cancellation cause if the run was cancelled.
	Errs []error
}

func (e *RunError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run failed: %d node(s) failed, %d skipped", len(e.Failed), len(e.Skipped))
	for _, err := range e.Errs {
		b.WriteString("\n- ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *RunError) Unwrap() []error {
	return e.Errs
}
