package node

import "fmt"

// Status is the execution state of a node within a single run.
type Status int32

const (
	// StatusPending means the node waits for at least one predecessor.
	StatusPending Status = iota
	// StatusReady means every predecessor is done and the node may start.
	StatusReady
	// StatusRunning means the work function is executing.
	StatusRunning
	// StatusDone means the work function returned a result.
	StatusDone
	// StatusFailed means the work function returned an error.
	StatusFailed
	// StatusSkipped means the node will never run, because an upstream node
	// failed or the run was cancelled.
	StatusSkipped
)

var statusNames = [...]string{
	StatusPending: "pending",
	StatusReady:   "ready",
	StatusRunning: "running",
	StatusDone:    "done",
	StatusFailed:  "failed",
	StatusSkipped: "skipped",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return fmt.Sprintf("status(%d)", int32(s))
	}
	return statusNames[s]
}

// MarshalText renders the status by name, so reports read well as JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name.
func (s *Status) UnmarshalText(b []byte) error {
	for i, name := range statusNames {
		if name == string(b) {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown node status %q", string(b))
}

// IsTerminal reports whether the node can no longer change state.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed || s == StatusSkipped
}

// CanTransition reports whether moving from s to next is a legal step of the
// node state machine.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusReady || next == StatusSkipped
	case StatusReady:
		return next == StatusRunning || next == StatusSkipped
	case StatusRunning:
		return next == StatusDone || next == StatusFailed
	default:
		return false
	}
}
