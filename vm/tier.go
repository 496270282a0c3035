package vm

import (
	"fmt"
	"os"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/object"
	"github.com/OranPie/imp/op"
)

// noJITEnabled reports whether IMP_NO_JIT=1 is set, forcing the
// interpreter tier for every function. Read once per VirtualMachine at
// construction (see New) rather than once per process, so embedders and
// tests can flip the opt-out between runs within the same process.
func noJITEnabled() bool {
	return os.Getenv("IMP_NO_JIT") == "1"
}

// plan is the direct-threaded tier's precompiled form of one function: a
// step closure per instruction index, each already bound to that
// instruction's operands. Dispatch becomes one indirect call through
// plan.steps[f.pc] instead of interpretStep's live switch on instr.Op,
// re-decoding the same Instr value on every visit — an
// equivalence-preserving replacement of the inner loop per §4.5, built
// from the exact same per-op helper methods interpretStep calls, so the
// two tiers can never observably diverge.
type plan struct {
	steps []stepFn
}

type stepFn func(vm *VirtualMachine, f *frame) error

// uncovered reports whether code falls outside the direct-threaded
// tier's documented coverage (data, arithmetic, compare, control, invoke,
// return/exit, throw, try, object ops, host-print, import/export — which
// is every opcode the compiler emits; Label is never emitted). Kept as an explicit allowlist
// rather than inferring coverage from the absence of a case in bindStep,
// so an opcode added to the op package later without a matching tier case
// fails closed into the interpreter instead of being silently
// miscompiled by buildPlan.
func uncovered(code op.Code) bool {
	switch code {
	case op.Const, op.Move,
		op.Add, op.Sub, op.Mul, op.Div,
		op.Eq, op.Neq, op.Lt, op.Le, op.Gt, op.Ge,
		op.Jump, op.Br, op.Exit, op.Throw,
		op.TryPush, op.TryPop,
		op.Invoke,
		op.ObjNew, op.ObjSet, op.ObjGet, op.ObjHas,
		op.StrConcat, op.StrLen,
		op.HostPrint,
		op.ImportModule, op.ModExport:
		return false
	default:
		return true
	}
}

// buildPlan compiles fn's instruction sequence into a plan, or returns
// ok=false if fn contains an opcode outside the tier's coverage — the
// caller falls back to the interpreter for that function's entire body
// in that case, per §4.5's "transparently" fallback rule.
func buildPlan(fn *bytecode.CompiledFunction) (p *plan, ok bool) {
	n := fn.InstrCount()
	steps := make([]stepFn, n)
	for i := 0; i < n; i++ {
		instr := fn.InstrAt(i)
		if uncovered(instr.Op) {
			return nil, false
		}
		steps[i] = bindStep(instr, i)
	}
	return &plan{steps: steps}, true
}

// bindStep returns the step closure for one instruction, capturing its
// already-decoded operands and the plan index to advance to on the
// non-branching path. Ops with a non-trivial type check or control effect
// (arithmetic, compare, invoke, object, string, throw, host-print,
// import, export) simply call the same method interpretStep calls;
// everything else is inlined here since it never raises.
func bindStep(instr bytecode.Instr, index int) stepFn {
	next := index + 1
	switch instr.Op {
	case op.Const:
		return func(vm *VirtualMachine, f *frame) error {
			vm.setSlot(f, instr.Out, f.fn.ConstAt(instr.Const))
			f.pc = next
			return nil
		}
	case op.Move:
		return func(vm *VirtualMachine, f *frame) error {
			vm.setSlot(f, instr.Out, vm.getSlot(f, instr.A))
			f.pc = next
			return nil
		}
	case op.Add, op.Sub, op.Mul, op.Div:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepArith(f, instr) }
	case op.Eq, op.Neq, op.Lt, op.Le, op.Gt, op.Ge:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepCompare(f, instr) }
	case op.Jump:
		return func(vm *VirtualMachine, f *frame) error {
			f.pc = instr.PC
			return nil
		}
	case op.Br:
		return func(vm *VirtualMachine, f *frame) error {
			if vm.getSlot(f, instr.A).IsTruthy() {
				f.pc = instr.PC
			} else {
				f.pc = instr.PC2
			}
			return nil
		}
	case op.Exit:
		return func(vm *VirtualMachine, f *frame) error { return vm.doExit() }
	case op.Throw:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepThrow(f, instr) }
	case op.TryPush:
		return func(vm *VirtualMachine, f *frame) error {
			f.tryStack = append(f.tryStack, instr.PC)
			f.pc = next
			return nil
		}
	case op.TryPop:
		return func(vm *VirtualMachine, f *frame) error {
			if n := len(f.tryStack); n > 0 {
				f.tryStack = f.tryStack[:n-1]
			}
			f.pc = next
			return nil
		}
	case op.Invoke:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepInvoke(f, instr) }
	case op.ObjNew:
		return func(vm *VirtualMachine, f *frame) error {
			vm.setSlot(f, instr.Out, object.NewObject())
			f.pc = next
			return nil
		}
	case op.ObjSet, op.ObjGet, op.ObjHas:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepObj(f, instr) }
	case op.StrConcat:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepStrConcat(f, instr) }
	case op.StrLen:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepStrLen(f, instr) }
	case op.HostPrint:
		return func(vm *VirtualMachine, f *frame) error {
			vm.stepHostPrint(f, instr)
			f.pc = next
			return nil
		}
	case op.ImportModule:
		return func(vm *VirtualMachine, f *frame) error { return vm.stepImport(f, instr) }
	case op.ModExport:
		return func(vm *VirtualMachine, f *frame) error {
			vm.stepModExport(f, instr)
			f.pc = next
			return nil
		}
	default:
		// unreachable: buildPlan calls uncovered before binding any step.
		return func(vm *VirtualMachine, f *frame) error {
			return fmt.Errorf("vm: tier step for unhandled opcode %s", instr.Op)
		}
	}
}
