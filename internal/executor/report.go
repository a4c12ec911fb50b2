package executor

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/result"
)

// Report is the outcome of one run.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	// Nodes lists every node in graph insertion order.
	Nodes []NodeReport
	// Cause is set when the run was cancelled.
	Cause error
}

// NodeReport is the outcome of one node.
type NodeReport struct {
	Label  string
	Status node.Status
	Result result.Result
	// Err is the ExecutionError of a failed node or the SkippedError of a
	// skipped one.
	Err error
	// StorageErr is set when the result could not be persisted. The node is
	// still done.
	StorageErr error
	Started    time.Time
	Finished   time.Time
}

// Duration returns how long the node ran, zero if it never started.
func (n NodeReport) Duration() time.Duration {
	if n.Started.IsZero() || n.Finished.IsZero() {
		return 0
	}
	return n.Finished.Sub(n.Started)
}

// Node returns the report of one node.
func (r *Report) Node(label string) (NodeReport, bool) {
	for _, n := range r.Nodes {
		if n.Label == label {
			return n, true
		}
	}
	return NodeReport{}, false
}

// Duration returns the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Failed returns the nodes whose work function failed.
func (r *Report) Failed() []NodeReport {
	return r.withStatus(node.StatusFailed)
}

// Skipped returns the nodes that never ran.
func (r *Report) Skipped() []NodeReport {
	return r.withStatus(node.StatusSkipped)
}

// Warnings returns every storage error of the run.
func (r *Report) Warnings() []error {
	var out []error
	for _, n := range r.Nodes {
		if n.StorageErr != nil {
			out = append(out, n.StorageErr)
		}
	}
	return out
}

// Counts returns the number of nodes per status.
func (r *Report) Counts() map[node.Status]int {
	out := make(map[node.Status]int)
	for _, n := range r.Nodes {
		out[n.Status]++
	}
	return out
}

// Err returns a *RunError if any node failed or was skipped, nil otherwise.
// Storage warnings never make a run fail.
func (r *Report) Err() error {
	failed, skipped := r.Failed(), r.Skipped()
	if len(failed) == 0 && len(skipped) == 0 {
		return nil
	}
	runErr := &RunError{}
	for _, n := range failed {
		runErr.Failed = append(runErr.Failed, n.Label)
		runErr.Errs = append(runErr.Errs, n.Err)
	}
	for _, n := range skipped {
		runErr.Skipped = append(runErr.Skipped, n.Label)
	}
	if r.Cause != nil {
		runErr.Errs = append(runErr.Errs, r.Cause)
	}
	return runErr
}

// Render writes a human readable table of the run.
func (r *Report) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s finished in %s\n", r.RunID, r.Duration().Round(time.Millisecond))
	fmt.Fprintln(tw, "NODE\tSTATUS\tDURATION\tDETAIL")
	for _, n := range r.Nodes {
		detail := ""
		switch {
		case n.Err != nil:
			detail = n.Err.Error()
		case n.StorageErr != nil:
			detail = "warning: " + n.StorageErr.Error()
		case n.Status == node.StatusDone:
			detail = n.Result.String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", n.Label, n.Status, n.Duration().Round(time.Millisecond), detail)
	}
	return tw.Flush()
}

func (r *Report) withStatus(st node.Status) []NodeReport {
	var out []NodeReport
	for _, n := range r.Nodes {
		if n.Status == st {
			out = append(out, n)
		}
	}
	return out
}
