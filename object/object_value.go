package object

import "strings"

// NativeFunc is the signature of a host-provided function exposed to
// Imp-Core code as a foreign-function-handle Object.
type NativeFunc func(args []Value) (Value, error)

// Object is an ordered mapping from text key to Value, with
// insertion-order iteration. Objects are shared by reference: mutation
// through any alias is visible to every holder.
//
// A single Object type also represents foreign function handles — the
// foreign bit distinguishes an Object wrapping a host-provided NativeFunc
// from an ordinary data object built with obj::new/obj::set.
type Object struct {
	keys    []string
	values  map[string]Value
	foreign bool
	native  NativeFunc
}

// NewObject returns a new, empty data object.
func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

// NewForeignFunction wraps a host-provided function as an Object tagged
// as a foreign function handle.
func NewForeignFunction(fn NativeFunc) *Object {
	return &Object{values: make(map[string]Value), foreign: true, native: fn}
}

func (o *Object) Kind() Kind { return ObjectKind }

// Set assigns value to key, appending key to the insertion order the
// first time it's seen and leaving the order unchanged on update.
func (o *Object) Set(key string, value Value) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = value
}

// Get returns the value stored at key, if any.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Has reports whether key is present.
func (o *Object) Has(key string) bool {
	_, ok := o.values[key]
	return ok
}

// Keys returns the object's keys in insertion order.
func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Len returns the number of keys in the object.
func (o *Object) Len() int {
	return len(o.keys)
}

// IsForeignFunction reports whether this Object is a foreign-function
// handle rather than a plain data object.
func (o *Object) IsForeignFunction() bool {
	return o.foreign
}

// Native returns the wrapped NativeFunc, or nil if this is not a foreign
// function handle.
func (o *Object) Native() NativeFunc {
	return o.native
}

func (o *Object) Interface() interface{} {
	m := make(map[string]interface{}, len(o.keys))
	for _, k := range o.keys {
		m[k] = o.values[k].Interface()
	}
	return m
}

func (o *Object) Inspect() string {
	if o.foreign {
		return "<foreign fn>"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(o.values[k].Inspect())
	}
	b.WriteByte('}')
	return b.String()
}

func (o *Object) IsTruthy() bool { return true }

// Equals uses reference identity: the data model offers no deep-equality
// operator for objects, matching the spec's "shared by reference" rule.
func (o *Object) Equals(other Value) bool {
	oo, ok := other.(*Object)
	return ok && oo == o
}
