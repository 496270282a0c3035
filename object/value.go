// Package object provides the closed set of runtime value types that make
// up Imp-Core's data model: Null, Bool, Num, Text, Object, and FnHandle.
package object

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant of the tagged-sum Value a given value is.
type Kind string

const (
	NullKind     Kind = "null"
	BoolKind     Kind = "bool"
	NumKind      Kind = "num"
	TextKind     Kind = "text"
	ObjectKind   Kind = "object"
	FnHandleKind Kind = "fn_handle"
)

// Value is implemented by every runtime value. A Ref is never a Value: it
// is an AST-only construct resolved to a slot index at compile time.
type Value interface {
	// Kind reports which variant this value is.
	Kind() Kind

	// Inspect returns a human-readable rendering of the value.
	Inspect() string

	// Interface converts the value to a native Go value, for use by host
	// code (e.g. HostPrint's formatting).
	Interface() interface{}

	// Equals reports whether other is the same variant and value. Variant
	// mismatches are never equal, per the data model's strict comparison
	// rule.
	Equals(other Value) bool

	// IsTruthy reports whether this value is considered true as a
	// core::br condition.
	IsTruthy() bool
}

// Null is the sole inhabitant of the null variant.
type Null struct{}

// NullValue is the canonical Null instance.
var NullValue = Null{}

func (Null) Kind() Kind             { return NullKind }
func (Null) Inspect() string        { return "null" }
func (Null) Interface() interface{} { return nil }
func (Null) IsTruthy() bool         { return false }

func (Null) Equals(other Value) bool {
	_, ok := other.(Null)
	return ok
}

// Bool is a boolean value.
type Bool bool

// True and False are the two Bool values, analogous to the teacher's
// shared singleton True/False instances.
const (
	True  Bool = true
	False Bool = false
)

func (b Bool) Kind() Kind             { return BoolKind }
func (b Bool) Interface() interface{} { return bool(b) }
func (b Bool) IsTruthy() bool         { return bool(b) }

func (b Bool) Inspect() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Bool) Equals(other Value) bool {
	o, ok := other.(Bool)
	return ok && o == b
}

// Num is a 64-bit float. NaN and Inf are permitted values; NaN is never
// equal to itself, matching IEEE-754 comparison rules.
type Num float64

func (n Num) Kind() Kind             { return NumKind }
func (n Num) Interface() interface{} { return float64(n) }
func (n Num) IsTruthy() bool         { return float64(n) != 0 }
func (n Num) Inspect() string        { return strconv.FormatFloat(float64(n), 'g', -1, 64) }

func (n Num) Equals(other Value) bool {
	o, ok := other.(Num)
	return ok && float64(o) == float64(n)
}

// Text is an immutable character sequence.
type Text string

func (t Text) Kind() Kind             { return TextKind }
func (t Text) Interface() interface{} { return string(t) }
func (t Text) IsTruthy() bool         { return len(t) > 0 }
func (t Text) Inspect() string        { return strconv.Quote(string(t)) }

func (t Text) Equals(other Value) bool {
	o, ok := other.(Text)
	return ok && o == t
}

// FnHandle is an opaque reference to a function within a CompiledModule,
// identified by module id and function id. It is the only way a function
// value can flow through the data model at runtime.
type FnHandle struct {
	ModuleID   uint32
	FunctionID uint32
}

func (f FnHandle) Kind() Kind             { return FnHandleKind }
func (f FnHandle) Interface() interface{} { return f }
func (f FnHandle) IsTruthy() bool         { return true }

func (f FnHandle) Inspect() string {
	return fmt.Sprintf("fn(%d:%d)", f.ModuleID, f.FunctionID)
}

func (f FnHandle) Equals(other Value) bool {
	o, ok := other.(FnHandle)
	return ok && o == f
}
