package node

import (
	"sort"

	"github.com/specialistvlad/conduit/internal/result"
)

// PredecessorResults maps each direct predecessor's label to the result it
// produced. The scheduler builds it only once every predecessor is done, and
// it always holds exactly one entry per predecessor.
type PredecessorResults map[string]result.Result

// Get returns the result of the named predecessor.
func (p PredecessorResults) Get(label string) (result.Result, bool) {
	r, ok := p[label]
	return r, ok
}

// Labels returns the predecessor labels in sorted order.
func (p PredecessorResults) Labels() []string {
	labels := make([]string, 0, len(p))
	for l := range p {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}
