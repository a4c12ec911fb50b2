// Package result defines the value produced by a node's work function and
// handed to its successors and to the result store.
//
// A Result wraps a cty.Value, so it can carry any structured payload while
// keeping a typed, serializable form. Two results are equal when their
// contents are equal, regardless of where they were produced.
package result

import (
	"encoding/json"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Result is an immutable value produced by a node. The zero value is a null
// result.
type Result struct {
	v cty.Value
}

// New wraps an existing cty.Value.
func New(v cty.Value) Result {
	return Result{v: v}
}

// Null returns a result with no content.
func Null() Result {
	return Result{}
}

// String is a shorthand for a string result.
func String(s string) Result {
	return Result{v: cty.StringVal(s)}
}

// FromGo converts a native Go value into a result. The value goes through its
// JSON form, so anything encoding/json can marshal is accepted.
func FromGo(v any) (Result, error) {
	if v == nil {
		return Null(), nil
	}
	if r, ok := v.(Result); ok {
		return r, nil
	}
	if cv, ok := v.(cty.Value); ok {
		return New(cv), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal %T: %w", v, err)
	}
	ty, err := ctyjson.ImpliedType(raw)
	if err != nil {
		return Result{}, fmt.Errorf("failed to infer type of %T: %w", v, err)
	}
	cv, err := ctyjson.Unmarshal(raw, ty)
	if err != nil {
		return Result{}, fmt.Errorf("failed to convert %T: %w", v, err)
	}
	return New(cv), nil
}

// MustFromGo is like FromGo but panics on error. Intended for literals in
// work functions and tests.
func MustFromGo(v any) Result {
	r, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return r
}

// Value returns the wrapped cty.Value. A null result yields a dynamically
// typed null.
func (r Result) Value() cty.Value {
	if r.v == cty.NilVal {
		return cty.NullVal(cty.DynamicPseudoType)
	}
	return r.v
}

// IsNull reports whether the result carries no content.
func (r Result) IsNull() bool {
	return r.Value().IsNull()
}

// Equal compares two results by content.
func (r Result) Equal(other Result) bool {
	return r.Value().RawEquals(other.Value())
}

// Decode stores the result's content in the value pointed to by target,
// using the plain JSON representation.
func (r Result) Decode(target any) error {
	raw, err := ctyjson.SimpleJSONValue{Value: r.Value()}.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode result into %T: %w", target, err)
	}
	return nil
}

// MarshalJSON encodes the result together with its type, so that a decoded
// result compares equal to the original.
func (r Result) MarshalJSON() ([]byte, error) {
	return ctyjson.Marshal(r.Value(), cty.DynamicPseudoType)
}

// UnmarshalJSON restores a result written by MarshalJSON.
func (r *Result) UnmarshalJSON(b []byte) error {
	v, err := ctyjson.Unmarshal(b, cty.DynamicPseudoType)
	if err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	r.v = v
	return nil
}

// String renders the plain JSON form of the result for logs.
func (r Result) String() string {
	raw, err := ctyjson.SimpleJSONValue{Value: r.Value()}.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<%s>", r.Value().Type().FriendlyName())
	}
	return string(raw)
}
