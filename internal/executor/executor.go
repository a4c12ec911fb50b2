// Package executor defines the interface for the graph execution engine and
// the report and errors every implementation returns.
package executor

import "context"

// Executor is responsible for orchestrating the end-to-end execution of a
// graph. It manages concurrency, drives the scheduler and invokes the work
// functions.
//
// Execute blocks until every node is terminal. The report is returned even
// when the run failed; the error is then report.Err().
type Executor interface {
	Execute(ctx context.Context) (*Report, error)
}
