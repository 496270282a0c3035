// Package op defines the opcodes used by the compiler, VM, and AOT codec.
package op

// Code is a single-byte opcode tag. The AOT codec (see the codec package)
// encodes each instruction's Code as exactly one byte on the wire, so the
// opcode space must stay within a byte.
type Code uint8

const (
	Invalid Code = 0

	// Data
	Const Code = 1 // Const(out_slot, const_index)
	Move  Code = 2 // Move(dst, src)

	// Arithmetic (a, b, out), on Num operands
	Add Code = 10
	Sub Code = 11
	Mul Code = 12
	Div Code = 13

	// Compare (a, b, out), producing a Bool
	Eq  Code = 20
	Neq Code = 21
	Lt  Code = 22
	Le  Code = 23
	Gt  Code = 24
	Ge  Code = 25

	// Control
	Label Code = 30 // never emitted: the compiler resolves core::label to a pc and emits no instruction for it
	Jump  Code = 31 // Jump(pc)
	Br    Code = 32 // Br(cond_slot, then_pc, else_pc)

	// Function boundary
	Exit  Code = 40
	Throw Code = 41 // Throw(code_const, msg_const_or_slot)

	// Errors
	TryPush Code = 50 // TryPush(handler_pc)
	TryPop  Code = 51

	// Calls
	Invoke Code = 60 // Invoke(target_slot, arg_slots[], out_slot)

	// Object ops
	ObjNew Code = 70 // ObjNew(out)
	ObjSet Code = 71 // ObjSet(obj, key_const, value, out)
	ObjGet Code = 72 // ObjGet(obj, key_const, out)
	ObjHas Code = 73 // ObjHas(obj, key_const, out)

	// String ops
	StrConcat Code = 80 // StrConcat(a, b, out)
	StrLen    Code = 81 // StrLen(v, out)

	// Host
	HostPrint Code = 90 // HostPrint(value)

	// Module
	ImportModule Code = 100 // ImportModule(alias_const, path_const)
	ModExport    Code = 101 // ModExport(name_const, value_slot)
)

// Info describes an opcode for disassembly: its code and mnemonic.
type Info struct {
	Code Code
	Name string
}

var infos = map[Code]Info{
	Const:        {Const, "CONST"},
	Move:         {Move, "MOVE"},
	Add:          {Add, "ADD"},
	Sub:          {Sub, "SUB"},
	Mul:          {Mul, "MUL"},
	Div:          {Div, "DIV"},
	Eq:           {Eq, "EQ"},
	Neq:          {Neq, "NEQ"},
	Lt:           {Lt, "LT"},
	Le:           {Le, "LE"},
	Gt:           {Gt, "GT"},
	Ge:           {Ge, "GE"},
	Label:        {Label, "LABEL"},
	Jump:         {Jump, "JUMP"},
	Br:           {Br, "BR"},
	Exit:         {Exit, "EXIT"},
	Throw:        {Throw, "THROW"},
	TryPush:      {TryPush, "TRY_PUSH"},
	TryPop:       {TryPop, "TRY_POP"},
	Invoke:       {Invoke, "INVOKE"},
	ObjNew:       {ObjNew, "OBJ_NEW"},
	ObjSet:       {ObjSet, "OBJ_SET"},
	ObjGet:       {ObjGet, "OBJ_GET"},
	ObjHas:       {ObjHas, "OBJ_HAS"},
	StrConcat:    {StrConcat, "STR_CONCAT"},
	StrLen:       {StrLen, "STR_LEN"},
	HostPrint:    {HostPrint, "HOST_PRINT"},
	ImportModule: {ImportModule, "IMPORT_MODULE"},
	ModExport:    {ModExport, "MOD_EXPORT"},
}

// GetInfo returns information about the given opcode. The zero Info is
// returned for an unknown code (Name == "").
func GetInfo(code Code) Info {
	return infos[code]
}

// String renders an opcode's mnemonic, or "INVALID" if unknown.
func (c Code) String() string {
	if info, ok := infos[c]; ok {
		return info.Name
	}
	return "INVALID"
}

// BinaryArithOp reports whether c is one of Add/Sub/Mul/Div.
func (c Code) BinaryArithOp() bool {
	switch c {
	case Add, Sub, Mul, Div:
		return true
	}
	return false
}

// CompareOp reports whether c is one of Eq/Neq/Lt/Le/Gt/Ge.
func (c Code) CompareOp() bool {
	switch c {
	case Eq, Neq, Lt, Le, Gt, Ge:
		return true
	}
	return false
}
