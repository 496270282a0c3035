// Package vm executes a CompiledModule: a single-threaded loop over one
// active frame at a time, dispatching on each Instr's opcode exactly as
// described by the interpreter tier. It also implements loader.Runner,
// so the module loader can ask it to run a freshly compiled module's
// initializer to completion without importing the vm package itself.
package vm

import (
	"fmt"
	"io"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/loader"
	"github.com/OranPie/imp/object"
	"github.com/OranPie/imp/op"
)

// VirtualMachine holds the fixed-size frame array and the per-VM state
// (loaded modules, loader cache, host-print sink) that outlives any one
// frame. It is not safe for concurrent use, matching §5's single-threaded
// scheduling model.
type VirtualMachine struct {
	frames [maxFrameDepth]frame
	fp     int

	modulesByID map[uint32]*bytecode.CompiledModule
	loader      *loader.Loader

	// plans caches the direct-threaded tier's compiled form per function,
	// built at first entry. A present-but-nil entry records a function
	// that fell back to the interpreter tier, so buildPlan isn't retried
	// on every call.
	plans map[*bytecode.CompiledFunction]*plan
	noJIT bool

	stdout io.Writer
	log    zerolog.Logger

	finalValue object.Value
}

// New creates a VirtualMachine and its owned module loader, wiring the
// loader's Runner back to the VM itself.
func New(opts ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		fp:          -1,
		modulesByID: map[uint32]*bytecode.CompiledModule{},
		stdout:      os.Stdout,
		log:         zerolog.Nop(),
		finalValue:  object.NullValue,
		noJIT:       noJITEnabled(),
	}
	for _, opt := range opts {
		opt(vm)
	}
	vm.loader = loader.New(vm).WithLogger(vm.log)
	return vm
}

// Run compiles and executes the program rooted at path, returning the
// program's final value: the entry module's init_fn Exit ret[0].
func (vm *VirtualMachine) Run(path string) (object.Value, error) {
	if _, err := vm.loader.LoadEntry(path); err != nil {
		return nil, err
	}
	return vm.finalValue, nil
}

// Modules returns every module this VM has loaded, ordered by module id
// (the entry module is always id 1, so it sorts first). Used by the CLI
// to gather the full module graph a freshly run program reached, for
// handing to the AOT codec's Encode.
func (vm *VirtualMachine) Modules() []*bytecode.CompiledModule {
	ids := make([]uint32, 0, len(vm.modulesByID))
	for id := range vm.modulesByID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	mods := make([]*bytecode.CompiledModule, len(ids))
	for i, id := range ids {
		mods[i] = vm.modulesByID[id]
	}
	return mods
}

// RunModule executes an already-compiled module's initializer directly,
// bypassing the loader. Used by the CLI to run a module decoded straight
// from a .impc file, which carries no on-disk path to resolve further
// imports against the way a freshly parsed .imp file would — its own
// imports were already resolved at compile time, before encoding.
func (vm *VirtualMachine) RunModule(mod *bytecode.CompiledModule) (object.Value, error) {
	if err := vm.RunInit(mod); err != nil {
		return nil, err
	}
	return vm.finalValue, nil
}

// RunInit implements loader.Runner: it runs mod's initializer to
// completion, registering mod so later cross-module Invoke instructions
// can resolve FnHandles that name it.
func (vm *VirtualMachine) RunInit(mod *bytecode.CompiledModule) error {
	vm.modulesByID[mod.ModuleID()] = mod
	if err := vm.pushFrame(mod, mod.FunctionAt(mod.InitFnID()), nil, false, 0); err != nil {
		return err
	}
	target := vm.fp
	return vm.runUntil(target)
}

// pushFrame allocates the next frame slot and makes it active.
func (vm *VirtualMachine) pushFrame(module *bytecode.CompiledModule, fn *bytecode.CompiledFunction, args []object.Value, hasCaller bool, callerOutSlot int) error {
	if vm.fp+1 >= maxFrameDepth {
		return fmt.Errorf("vm: call depth exceeded %d frames", maxFrameDepth)
	}
	vm.fp++
	vm.frames[vm.fp].reset(module, fn, args, hasCaller, callerOutSlot)
	vm.log.Debug().Str("function", fn.Name()).Int("depth", vm.fp).Msg("frame pushed")
	return nil
}

// runUntil steps the active frame until it (and anything it pushed) has
// unwound to below target, or a fatal error stops the VM outright.
func (vm *VirtualMachine) runUntil(target int) error {
	for vm.fp >= target {
		if err := vm.step(); err != nil {
			return err
		}
	}
	return nil
}

// step dispatches exactly one instruction (or the implicit/explicit Exit
// at the end of a function body) against the active frame, through
// whichever tier is selected for that frame's function.
func (vm *VirtualMachine) step() error {
	f := &vm.frames[vm.fp]
	if !vm.noJIT {
		if p := vm.planFor(f.fn); p != nil {
			if f.pc >= len(p.steps) {
				return vm.doExit()
			}
			return p.steps[f.pc](vm, f)
		}
	}
	return vm.interpretStep(f)
}

// planFor returns f's compiled direct-threaded plan, building and caching
// it on first entry, or nil if f contains an opcode outside the tier's
// coverage (in which case every later call also gets nil, without
// retrying buildPlan).
func (vm *VirtualMachine) planFor(fn *bytecode.CompiledFunction) *plan {
	if vm.plans == nil {
		vm.plans = map[*bytecode.CompiledFunction]*plan{}
	}
	if p, ok := vm.plans[fn]; ok {
		return p
	}
	p, ok := buildPlan(fn)
	if !ok {
		vm.plans[fn] = nil
		return nil
	}
	vm.plans[fn] = p
	return p
}

// interpretStep is the reference interpreter tier: a live switch on the
// current instruction's opcode, re-decoding it on every visit. The
// direct-threaded tier in tier.go is built from the exact same per-op
// helper methods called below, so the two tiers can never observably
// diverge (§8 invariant I3) — only the dispatch mechanism differs.
func (vm *VirtualMachine) interpretStep(f *frame) error {
	if f.pc >= f.fn.InstrCount() {
		return vm.doExit()
	}
	instr := f.fn.InstrAt(f.pc)
	switch instr.Op {
	case op.Const:
		vm.setSlot(f, instr.Out, f.fn.ConstAt(instr.Const))
		f.pc++
		return nil
	case op.Move:
		vm.setSlot(f, instr.Out, vm.getSlot(f, instr.A))
		f.pc++
		return nil
	case op.Add, op.Sub, op.Mul, op.Div:
		return vm.stepArith(f, instr)
	case op.Eq, op.Neq, op.Lt, op.Le, op.Gt, op.Ge:
		return vm.stepCompare(f, instr)
	case op.Jump:
		f.pc = instr.PC
		return nil
	case op.Br:
		if vm.getSlot(f, instr.A).IsTruthy() {
			f.pc = instr.PC
		} else {
			f.pc = instr.PC2
		}
		return nil
	case op.Exit:
		return vm.doExit()
	case op.Throw:
		return vm.stepThrow(f, instr)
	case op.TryPush:
		f.tryStack = append(f.tryStack, instr.PC)
		f.pc++
		return nil
	case op.TryPop:
		if n := len(f.tryStack); n > 0 {
			f.tryStack = f.tryStack[:n-1]
		}
		f.pc++
		return nil
	case op.Invoke:
		return vm.stepInvoke(f, instr)
	case op.ObjNew:
		vm.setSlot(f, instr.Out, object.NewObject())
		f.pc++
		return nil
	case op.ObjSet, op.ObjGet, op.ObjHas:
		return vm.stepObj(f, instr)
	case op.StrConcat:
		return vm.stepStrConcat(f, instr)
	case op.StrLen:
		return vm.stepStrLen(f, instr)
	case op.HostPrint:
		vm.stepHostPrint(f, instr)
		f.pc++
		return nil
	case op.ImportModule:
		return vm.stepImport(f, instr)
	case op.ModExport:
		vm.stepModExport(f, instr)
		f.pc++
		return nil
	default:
		return fmt.Errorf("vm: unsupported opcode %s at pc %d in %s", instr.Op, f.pc, f.fn.Name())
	}
}

func (vm *VirtualMachine) getSlot(f *frame, raw int) object.Value {
	space, idx := bytecode.DecodeSlot(raw)
	switch space {
	case bytecode.SlotArg:
		return f.args[idx]
	case bytecode.SlotLocal:
		return f.locals[idx]
	case bytecode.SlotRet:
		return f.ret[idx]
	case bytecode.SlotErr:
		return f.errSlots[idx]
	case bytecode.SlotGlobal:
		return f.module.GetGlobal(idx)
	default:
		return object.NullValue
	}
}

func (vm *VirtualMachine) setSlot(f *frame, raw int, v object.Value) {
	space, idx := bytecode.DecodeSlot(raw)
	switch space {
	case bytecode.SlotArg:
		f.args[idx] = v
	case bytecode.SlotLocal:
		f.locals[idx] = v
	case bytecode.SlotRet:
		f.ret[idx] = v
	case bytecode.SlotErr:
		f.errSlots[idx] = v
	case bytecode.SlotGlobal:
		f.module.SetGlobal(idx, v)
	}
}

func (vm *VirtualMachine) stepArith(f *frame, instr bytecode.Instr) error {
	a, aok := vm.getSlot(f, instr.A).(object.Num)
	b, bok := vm.getSlot(f, instr.B).(object.Num)
	if !aok || !bok {
		return vm.raise(newErrorObject("type_error", "arithmetic requires two Num operands"))
	}
	var result float64
	switch instr.Op {
	case op.Add:
		result = float64(a) + float64(b)
	case op.Sub:
		result = float64(a) - float64(b)
	case op.Mul:
		result = float64(a) * float64(b)
	case op.Div:
		if float64(b) == 0 {
			return vm.raise(newErrorObject("div_by_zero", "division by zero"))
		}
		result = float64(a) / float64(b)
	}
	vm.setSlot(f, instr.Out, object.Num(result))
	f.pc++
	return nil
}

func (vm *VirtualMachine) stepCompare(f *frame, instr bytecode.Instr) error {
	a := vm.getSlot(f, instr.A)
	b := vm.getSlot(f, instr.B)
	switch instr.Op {
	case op.Eq:
		vm.setSlot(f, instr.Out, object.Bool(a.Equals(b)))
		f.pc++
		return nil
	case op.Neq:
		vm.setSlot(f, instr.Out, object.Bool(!a.Equals(b)))
		f.pc++
		return nil
	}
	an, aok := a.(object.Num)
	bn, bok := b.(object.Num)
	if !aok || !bok {
		return vm.raise(newErrorObject("type_error", "ordered comparison requires two Num operands"))
	}
	var result bool
	switch instr.Op {
	case op.Lt:
		result = an < bn
	case op.Le:
		result = an <= bn
	case op.Gt:
		result = an > bn
	case op.Ge:
		result = an >= bn
	}
	vm.setSlot(f, instr.Out, object.Bool(result))
	f.pc++
	return nil
}

func (vm *VirtualMachine) stepThrow(f *frame, instr bytecode.Instr) error {
	code := string(f.fn.ConstAt(instr.Const).(object.Text))
	var msg string
	if instr.MsgIsSlot {
		msg = textOf(vm.getSlot(f, instr.A))
	} else {
		msg = string(f.fn.ConstAt(instr.Const2).(object.Text))
	}
	return vm.raise(newErrorObject(code, msg))
}

// raise implements §4.4's Throw unwind: look for a handler in the active
// frame first, then in each caller in turn, exactly as if that caller had
// thrown the same error object itself (the Open Question resolution for
// cross-module propagation with no try pushed at the call site).
func (vm *VirtualMachine) raise(errObj *object.Object) error {
	for {
		f := &vm.frames[vm.fp]
		if n := len(f.tryStack); n > 0 {
			handlerPC := f.tryStack[n-1]
			f.tryStack = f.tryStack[:n-1]
			f.errSlots[0] = errObj
			f.pc = handlerPC
			return nil
		}
		if vm.fp == 0 {
			code, _ := errObj.Get("code")
			msg, _ := errObj.Get("msg")
			return errz.NewVmError(textOf(code), textOf(msg))
		}
		vm.log.Debug().Int("depth", vm.fp).Str("function", f.fn.Name()).Msg("unwinding on unhandled throw")
		vm.fp--
	}
}

func textOf(v object.Value) string {
	if t, ok := v.(object.Text); ok {
		return string(t)
	}
	return v.Inspect()
}

func newErrorObject(code, msg string) *object.Object {
	o := object.NewObject()
	o.Set("code", object.Text(code))
	o.Set("msg", object.Text(msg))
	return o
}

// doExit validates the active frame's retshape, then either returns its
// ret[0] to the caller's out slot, records it as the program's final
// value (root frame, no caller), or discards it (a module initializer
// run by the loader, which consumes exports rather than a return value).
func (vm *VirtualMachine) doExit() error {
	f := &vm.frames[vm.fp]
	var ret0 object.Value = object.NullValue
	if len(f.ret) > 0 {
		ret0 = f.ret[0]
	}
	if badErr := checkRetshape(f.fn.Retshape(), ret0); badErr != nil {
		return vm.raise(newErrorObject("bad_retshape", badErr.Error()))
	}
	hasCaller, callerOutSlot, wasRoot := f.hasCaller, f.callerOutSlot, vm.fp == 0
	if hasCaller {
		vm.setSlot(&vm.frames[vm.fp-1], callerOutSlot, ret0)
	} else if wasRoot {
		vm.finalValue = ret0
	}
	vm.fp--
	return nil
}

// checkRetshape narrows the Open Question over retshape="object" and null
// (rejected) to a symmetric rule for "scalar": an Object return value is
// rejected, everything else — including null — is accepted.
func checkRetshape(shape bytecode.Retshape, v object.Value) error {
	switch shape {
	case bytecode.RetshapeAny:
		return nil
	case bytecode.RetshapeObject:
		if _, ok := v.(*object.Object); !ok {
			return fmt.Errorf("retshape object requires an Object return value, got %s", v.Kind())
		}
		return nil
	case bytecode.RetshapeScalar:
		if _, ok := v.(*object.Object); ok {
			return fmt.Errorf("retshape scalar rejects an Object return value")
		}
		return nil
	default:
		return fmt.Errorf("unknown retshape %q", shape)
	}
}

func (vm *VirtualMachine) stepInvoke(f *frame, instr bytecode.Instr) error {
	target := vm.getSlot(f, instr.A)
	handle, ok := target.(object.FnHandle)
	if !ok {
		return vm.raise(newErrorObject("invoke_target_not_fn", "invoke target is not a function handle"))
	}
	calleeModule, ok := vm.modulesByID[handle.ModuleID]
	if !ok {
		return vm.raise(newErrorObject("invoke_target_not_fn", "invoke target's module is not loaded"))
	}
	calleeFn := calleeModule.FunctionAt(int(handle.FunctionID))

	args := make([]object.Value, len(instr.Args))
	for i, slot := range instr.Args {
		args[i] = vm.getSlot(f, slot)
	}

	f.pc++
	return vm.pushFrame(calleeModule, calleeFn, args, true, instr.Out)
}

func (vm *VirtualMachine) stepObj(f *frame, instr bytecode.Instr) error {
	target, ok := vm.getSlot(f, instr.A).(*object.Object)
	if !ok {
		return vm.raise(newErrorObject("type_error", "expected an Object operand"))
	}
	key := string(f.fn.ConstAt(instr.Const).(object.Text))
	switch instr.Op {
	case op.ObjSet:
		target.Set(key, vm.getSlot(f, instr.B))
		vm.setSlot(f, instr.Out, target)
	case op.ObjGet:
		val, found := target.Get(key)
		if !found {
			val = object.NullValue
		}
		vm.setSlot(f, instr.Out, val)
	case op.ObjHas:
		vm.setSlot(f, instr.Out, object.Bool(target.Has(key)))
	}
	f.pc++
	return nil
}

func (vm *VirtualMachine) stepStrConcat(f *frame, instr bytecode.Instr) error {
	a, aok := vm.getSlot(f, instr.A).(object.Text)
	b, bok := vm.getSlot(f, instr.B).(object.Text)
	if !aok || !bok {
		return vm.raise(newErrorObject("type_error", "str::concat requires two Text operands"))
	}
	vm.setSlot(f, instr.Out, object.Text(string(a)+string(b)))
	f.pc++
	return nil
}

func (vm *VirtualMachine) stepStrLen(f *frame, instr bytecode.Instr) error {
	v, ok := vm.getSlot(f, instr.A).(object.Text)
	if !ok {
		return vm.raise(newErrorObject("type_error", "str::len requires a Text operand"))
	}
	vm.setSlot(f, instr.Out, object.Num(utf8.RuneCountInString(string(v))))
	f.pc++
	return nil
}

func (vm *VirtualMachine) stepHostPrint(f *frame, instr bytecode.Instr) {
	val := vm.getSlot(f, instr.A)
	fmt.Fprintln(vm.stdout, formatPrintValue(val))
	vm.setSlot(f, instr.Out, val)
}

// formatPrintValue renders a Value for host::print. Interface() alone
// falls short for Null (it returns a bare nil, which fmt renders as
// "<nil>"), hence the explicit case.
func formatPrintValue(v object.Value) string {
	if _, ok := v.(object.Null); ok {
		return "null"
	}
	return fmt.Sprint(v.Interface())
}

func (vm *VirtualMachine) stepImport(f *frame, instr bytecode.Instr) error {
	alias := string(f.fn.ConstAt(instr.Const).(object.Text))
	path := string(f.fn.ConstAt(instr.Const2).(object.Text))
	imported, err := vm.loader.Resolve(f.module.Path(), path)
	if err != nil {
		return err
	}
	loader.BindExports(f.module, alias, imported)
	vm.modulesByID[imported.ModuleID()] = imported
	f.pc++
	return nil
}

func (vm *VirtualMachine) stepModExport(f *frame, instr bytecode.Instr) {
	name := string(f.fn.ConstAt(instr.Const).(object.Text))
	f.module.Export(name, vm.getSlot(f, instr.A))
}
