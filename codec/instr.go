package codec

import (
	"fmt"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/op"
)

// writeInstr encodes one instruction as a single opcode tag byte followed
// by operand fields of fixed shape per tag, mirroring the field subset
// each op actually uses in vm.go's step helpers.
func writeInstr(w *writer, instr bytecode.Instr) error {
	w.u8(uint8(instr.Op))
	switch instr.Op {
	case op.Const:
		w.u32(uint32(instr.Out))
		w.u32(uint32(instr.Const))
	case op.Move:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.Out))
	case op.Add, op.Sub, op.Mul, op.Div,
		op.Eq, op.Neq, op.Lt, op.Le, op.Gt, op.Ge,
		op.StrConcat:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.B))
		w.u32(uint32(instr.Out))
	case op.StrLen:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.Out))
	case op.Jump:
		w.u32(uint32(instr.PC))
	case op.Br:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.PC))
		w.u32(uint32(instr.PC2))
	case op.Exit:
		// no operands
	case op.Throw:
		w.u32(uint32(instr.Const))
		w.bool(instr.MsgIsSlot)
		if instr.MsgIsSlot {
			w.u32(uint32(instr.A))
		} else {
			w.u32(uint32(instr.Const2))
		}
	case op.TryPush:
		w.u32(uint32(instr.PC))
	case op.TryPop:
		// no operands
	case op.Invoke:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.Out))
		w.u32(uint32(len(instr.Args)))
		for _, slot := range instr.Args {
			w.u32(uint32(slot))
		}
	case op.ObjNew:
		w.u32(uint32(instr.Out))
	case op.ObjSet:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.B))
		w.u32(uint32(instr.Const))
		w.u32(uint32(instr.Out))
	case op.ObjGet, op.ObjHas:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.Const))
		w.u32(uint32(instr.Out))
	case op.HostPrint:
		w.u32(uint32(instr.A))
		w.u32(uint32(instr.Out))
	case op.ImportModule:
		w.u32(uint32(instr.Const))
		w.u32(uint32(instr.Const2))
	case op.ModExport:
		w.u32(uint32(instr.Const))
		w.u32(uint32(instr.A))
	default:
		return errz.UnknownTag(0, uint8(instr.Op))
	}
	return nil
}

func readInstr(r *reader) (bytecode.Instr, error) {
	tag, err := r.u8()
	if err != nil {
		return bytecode.Instr{}, err
	}
	code := op.Code(tag)
	instr := bytecode.Instr{Op: code}

	u32 := func() (int, error) {
		v, err := r.u32()
		return int(v), err
	}

	switch code {
	case op.Const:
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
		if instr.Const, err = u32(); err != nil {
			return instr, err
		}
	case op.Move:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
	case op.Add, op.Sub, op.Mul, op.Div,
		op.Eq, op.Neq, op.Lt, op.Le, op.Gt, op.Ge,
		op.StrConcat:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.B, err = u32(); err != nil {
			return instr, err
		}
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
	case op.StrLen:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
	case op.Jump:
		if instr.PC, err = u32(); err != nil {
			return instr, err
		}
	case op.Br:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.PC, err = u32(); err != nil {
			return instr, err
		}
		if instr.PC2, err = u32(); err != nil {
			return instr, err
		}
	case op.Exit, op.TryPop:
		// no operands
	case op.Throw:
		if instr.Const, err = u32(); err != nil {
			return instr, err
		}
		if instr.MsgIsSlot, err = r.bool(); err != nil {
			return instr, err
		}
		if instr.MsgIsSlot {
			if instr.A, err = u32(); err != nil {
				return instr, err
			}
		} else {
			if instr.Const2, err = u32(); err != nil {
				return instr, err
			}
		}
	case op.TryPush:
		if instr.PC, err = u32(); err != nil {
			return instr, err
		}
	case op.Invoke:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
		argc, err := r.u32()
		if err != nil {
			return instr, err
		}
		instr.Args = make([]int, argc)
		for i := range instr.Args {
			if instr.Args[i], err = u32(); err != nil {
				return instr, err
			}
		}
	case op.ObjNew:
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
	case op.ObjSet:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.B, err = u32(); err != nil {
			return instr, err
		}
		if instr.Const, err = u32(); err != nil {
			return instr, err
		}
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
	case op.ObjGet, op.ObjHas:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.Const, err = u32(); err != nil {
			return instr, err
		}
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
	case op.HostPrint:
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
		if instr.Out, err = u32(); err != nil {
			return instr, err
		}
	case op.ImportModule:
		if instr.Const, err = u32(); err != nil {
			return instr, err
		}
		if instr.Const2, err = u32(); err != nil {
			return instr, err
		}
	case op.ModExport:
		if instr.Const, err = u32(); err != nil {
			return instr, err
		}
		if instr.A, err = u32(); err != nil {
			return instr, err
		}
	default:
		return instr, errz.UnknownTag(r.off-1, tag)
	}
	return instr, nil
}

// instrSlots returns every operand field of instr that addresses a slot
// (as opposed to a constant-pool index or a jump target), mirroring the
// field subset dis.go's formatOperands treats as a slot for each opcode.
func instrSlots(instr bytecode.Instr) []int {
	switch instr.Op {
	case op.Const, op.ObjNew:
		return []int{instr.Out}
	case op.Move, op.StrLen:
		return []int{instr.A, instr.Out}
	case op.Add, op.Sub, op.Mul, op.Div,
		op.Eq, op.Neq, op.Lt, op.Le, op.Gt, op.Ge,
		op.StrConcat, op.ObjSet:
		return []int{instr.A, instr.B, instr.Out}
	case op.Br:
		return []int{instr.A}
	case op.Throw:
		if instr.MsgIsSlot {
			return []int{instr.A}
		}
		return nil
	case op.Invoke:
		slots := append([]int{instr.A, instr.Out}, instr.Args...)
		return slots
	case op.ObjGet, op.ObjHas, op.HostPrint:
		return []int{instr.A, instr.Out}
	case op.ModExport:
		return []int{instr.A}
	default:
		return nil
	}
}

// slotCounts holds the slot-space limits a decoded function and its
// module declare, so a decoded instruction's slot operands can be
// checked against the arrays the VM will actually index into.
type slotCounts struct {
	arg, local, ret, err, global int
}

// validateInstrSlots raises errz.IntegrityError for any slot operand of
// instr whose space+index doesn't fit within counts, catching a
// corrupted .impc image before it reaches the VM's getSlot/setSlot and
// panics with a raw Go index-out-of-range.
func validateInstrSlots(instr bytecode.Instr, offset int, counts slotCounts) error {
	for _, raw := range instrSlots(instr) {
		space, idx := bytecode.DecodeSlot(raw)
		var limit int
		switch space {
		case bytecode.SlotArg:
			limit = counts.arg
		case bytecode.SlotLocal:
			limit = counts.local
		case bytecode.SlotRet:
			limit = counts.ret
		case bytecode.SlotErr:
			limit = counts.err
		case bytecode.SlotGlobal:
			limit = counts.global
		default:
			return errz.IntegrityError(offset, fmt.Sprintf("unknown slot space %d", space))
		}
		if idx < 0 || idx >= limit {
			return errz.IntegrityError(offset, fmt.Sprintf(
				"slot index %d out of range for space %d (declared size %d)", idx, space, limit))
		}
	}
	return nil
}
