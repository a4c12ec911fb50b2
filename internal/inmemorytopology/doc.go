// Package inmemorytopology provides a thread-safe, in-memory implementation
// of the topologystore.Store interface. Predecessor and successor sets are
// indexed by label, so both lookups are constant time.
package inmemorytopology
