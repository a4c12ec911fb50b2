package graph

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCycle means an arc would make, or a graph already has, a cycle.
	ErrCycle = errors.New("cycle detected")
	// ErrUnknownNode means an arc or a query referenced a label that is not
	// in the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateLabel means two different nodes were registered under the
	// same label.
	ErrDuplicateLabel = errors.New("duplicate node label")
)

// Kind classifies a structural error.
type Kind int

const (
	KindCycle Kind = iota + 1
	KindUnknownNode
	KindDuplicateLabel
)

// Error is returned for every structural problem found while building or
// validating a graph.
type Error struct {
	Kind Kind
	// Label is the node the error is about, if any.
	Label string
	// From and To describe the offending arc, if any.
	From, To string
	// Cycle lists the labels forming the cycle, first label repeated last.
	Cycle []string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindCycle:
		var b strings.Builder
		if e.From != "" || e.To != "" {
			fmt.Fprintf(&b, "arc %q -> %q would create a cycle", e.From, e.To)
		} else {
			b.WriteString("graph contains a cycle")
		}
		if len(e.Cycle) > 0 {
			b.WriteString(": ")
			b.WriteString(strings.Join(e.Cycle, " -> "))
		}
		return b.String()
	case KindUnknownNode:
		if e.From != "" || e.To != "" {
			return fmt.Sprintf("arc %q -> %q references unknown node %q", e.From, e.To, e.Label)
		}
		return fmt.Sprintf("unknown node %q", e.Label)
	case KindDuplicateLabel:
		return fmt.Sprintf("duplicate node label %q", e.Label)
	default:
		return "graph error"
	}
}

// Unwrap returns the sentinel matching the error kind.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindCycle:
		return ErrCycle
	case KindUnknownNode:
		return ErrUnknownNode
	case KindDuplicateLabel:
		return ErrDuplicateLabel
	default:
		return nil
	}
}

func unknownNode(label string) error {
	return &Error{Kind: KindUnknownNode, Label: label}
}
