// Package localexecutor provides the in-process implementation of the
// executor.Executor interface.
//
// Every node that becomes ready runs on its own goroutine, optionally bounded
// by a concurrency limit. A done node's result is persisted to the result
// store before its successors are released. A failed node skips its
// descendants while unrelated branches keep running. Cancelling the context
// passed to Execute skips every node that has not started. Running nodes are
// left to finish unless WithInterruptOnCancel is set.
package localexecutor
