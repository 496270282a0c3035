package vm

import "github.com/OranPie/imp/bytecode"
import "github.com/OranPie/imp/object"

// maxFrameDepth bounds recursion. Spec leaves this as host policy; a
// generous fixed bound lets the VM keep a preallocated frame array instead
// of a growable stack, mirroring the teacher's own fixed-size frame
// storage in vm/frame.go.
const maxFrameDepth = 4096

// frame is one activation record: the four Value arrays the data model
// calls for (args/locals/ret/err), a per-frame try_stack, and enough of
// the calling context to resume the caller when this frame exits.
//
// Unlike the teacher's single shared value stack with fp/sp bookkeeping,
// Imp-Core's frames are fully separate arrays per invariant 4 — a Throw
// must never reach into a caller's try_stack, so each frame owns its own.
type frame struct {
	module *bytecode.CompiledModule
	fn     *bytecode.CompiledFunction
	pc     int

	args     []object.Value
	locals   []object.Value
	ret      []object.Value
	errSlots []object.Value
	tryStack []int

	hasCaller     bool
	callerOutSlot int
}

// reset sizes f's slot arrays to fn's declared counts, reusing backing
// storage across calls the way the teacher's frame.storage array avoids
// reallocating on every invocation.
func (f *frame) reset(module *bytecode.CompiledModule, fn *bytecode.CompiledFunction, args []object.Value, hasCaller bool, callerOutSlot int) {
	f.module = module
	f.fn = fn
	f.pc = 0
	f.hasCaller = hasCaller
	f.callerOutSlot = callerOutSlot

	f.args = fillSlots(f.args, fn.ArgCount())
	for i := range f.args {
		if i < len(args) {
			f.args[i] = args[i]
		} else {
			f.args[i] = object.NullValue
		}
	}

	f.locals = fillSlots(f.locals, fn.LocalCount())
	f.ret = fillSlots(f.ret, fn.RetSlotCount())

	// err slot 0 always exists so a handler that never declares an err::
	// name of its own still has somewhere for a raised error to land.
	errCount := fn.ErrSlotCount()
	if errCount < 1 {
		errCount = 1
	}
	f.errSlots = fillSlots(f.errSlots, errCount)

	f.tryStack = f.tryStack[:0]
}

func fillSlots(s []object.Value, n int) []object.Value {
	if cap(s) < n {
		s = make([]object.Value, n)
	} else {
		s = s[:n]
	}
	for i := range s {
		s[i] = object.NullValue
	}
	return s
}
