package bytecode

import "github.com/OranPie/imp/op"

// Instr is a single flat IR instruction. Which fields are meaningful
// depends on Op; see each opcode's comment in the op package for its
// operand shape.
//
// A slot operand names one of five Value homes: a Frame's arg/local/
// return/err array, or the owning module's global table. Rather than
// give Instr five families of index fields, a slot is a single int
// produced by EncodeSlot and read back with DecodeSlot, tagging which
// array it addresses. This keeps every operand a plain int, which keeps
// both the VM's dispatch loop and the AOT codec's fixed-shape decoding
// simple.
type Instr struct {
	Op op.Code

	// A and B are slot-index operands (e.g. arithmetic/compare operands,
	// Br's condition slot, ObjSet/ObjGet/ObjHas's object slot, ModExport's
	// value slot).
	A, B int

	// Out is a destination slot index (e.g. arithmetic/compare results,
	// Move's destination, Invoke's result slot, ObjNew's result).
	Out int

	// Const is the primary constant-pool index (Const's value, Throw's
	// error code, ObjSet/ObjGet/ObjHas's key, ImportModule's alias,
	// ModExport's export name).
	Const int

	// Const2 is a secondary constant-pool index, used only by Throw (the
	// message, when MsgIsSlot is false) and ImportModule (the import
	// path).
	Const2 int

	// MsgIsSlot is set on Throw when the message operand is a slot (A)
	// rather than a constant (Const2).
	MsgIsSlot bool

	// PC is a jump target: Jump's destination, Br's then-branch, or
	// TryPush's handler PC.
	PC int

	// PC2 is Br's else-branch target.
	PC2 int

	// Args holds Invoke's ordered argument slot list.
	Args []int

	// Location is the source position this instruction was compiled
	// from, used for error reporting.
	Location SourceLocation
}

// Label pairs a "core::label" name with its resolved program counter.
// Label instructions never appear in a CompiledFunction's final Code; the
// compiler resolves Jump/Br/TryPush targets from its own name-to-pc map
// and does not use this type.
type Label struct {
	Name string
	PC   int
}

// SlotSpace names which Value array a slot operand addresses.
type SlotSpace uint8

const (
	SlotArg    SlotSpace = 0
	SlotLocal  SlotSpace = 1
	SlotRet    SlotSpace = 2
	SlotErr    SlotSpace = 3
	SlotGlobal SlotSpace = 4
)

const slotSpaceBits = 3
const slotSpaceMask = (1 << slotSpaceBits) - 1

// EncodeSlot packs a (space, index) pair into the single int an Instr
// operand field carries.
func EncodeSlot(space SlotSpace, index int) int {
	return index<<slotSpaceBits | int(space)
}

// DecodeSlot unpacks an Instr operand produced by EncodeSlot.
func DecodeSlot(raw int) (space SlotSpace, index int) {
	return SlotSpace(raw & slotSpaceMask), raw >> slotSpaceBits
}
