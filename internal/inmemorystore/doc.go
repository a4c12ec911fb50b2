// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the nodestore.Store interface.
//
// # Concurrency Model
//
// Unlike inmemorytopology which uses RWMutex, this store uses sync.Map: the
// key space is stable (all labels are known before the run starts) while the
// values change on every transition.
//
// For state that has to survive the process, persist results through a
// resultstore.Store.
package inmemorystore
