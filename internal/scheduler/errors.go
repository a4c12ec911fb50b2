package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotReady is returned by MarkRunning for a node that is not Ready,
	// typically because a cancellation skipped it.
	ErrNotReady = errors.New("node is not ready")
	// ErrStartFailed is returned by MarkRunning when the predecessor results
	// of a Ready node cannot be read. The node is already Failed when it is
	// returned.
	ErrStartFailed = errors.New("node could not start")
	// ErrInvalidTransition is returned when a Mark call does not match the
	// node's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrCancelled is the default cause recorded on nodes skipped by Cancel.
	ErrCancelled = errors.New("run cancelled")
)

// SkippedError is recorded on a node that will never run.
type SkippedError struct {
	Label string
	// Upstream is the failed node that caused the skip. It is empty when the
	// run was cancelled.
	Upstream string
	// Err is the upstream failure or the cancellation cause.
	Err error
}

func (e *SkippedError) Error() string {
	if e.Upstream != "" {
		return fmt.Sprintf("node %q skipped: upstream node %q failed: %v", e.Label, e.Upstream, e.Err)
	}
	if e.Err == nil || errors.Is(e.Err, ErrCancelled) {
		return fmt.Sprintf("node %q skipped: %v", e.Label, ErrCancelled)
	}
	return fmt.Sprintf("node %q skipped: %v: %v", e.Label, ErrCancelled, e.Err)
}

func (e *SkippedError) Unwrap() error {
	return e.Err
}
