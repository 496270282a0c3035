package bytecode

import "github.com/OranPie/imp/object"

// Retshape declares the validated shape of a function's return value,
// checked by Exit.
type Retshape string

const (
	RetshapeScalar Retshape = "scalar"
	RetshapeObject Retshape = "object"
	RetshapeAny    Retshape = "any"
)

// CompiledFunction is an immutable function template: its instruction
// sequence plus the frame-sizing metadata needed to allocate a Frame for
// an invocation.
type CompiledFunction struct {
	id           int
	name         string
	code         []Instr
	consts       []object.Value
	argNames     []string
	localCount   int
	argCount     int
	retSlotCount int
	errSlotCount int
	retshape     Retshape
	moduleID     uint32
}

// CompiledFunctionParams holds the inputs to NewCompiledFunction.
type CompiledFunctionParams struct {
	ID           int
	Name         string
	Code         []Instr
	Consts       []object.Value
	ArgNames     []string
	LocalCount   int
	ArgCount     int
	RetSlotCount int
	ErrSlotCount int
	Retshape     Retshape
	ModuleID     uint32
}

// NewCompiledFunction creates a new immutable CompiledFunction. Input
// slices are copied to prevent the caller from mutating them afterward.
func NewCompiledFunction(params CompiledFunctionParams) *CompiledFunction {
	consts := make([]object.Value, len(params.Consts))
	copy(consts, params.Consts)
	return &CompiledFunction{
		id:           params.ID,
		name:         params.Name,
		code:         copyInstrs(params.Code),
		consts:       consts,
		argNames:     copyStrings(params.ArgNames),
		localCount:   params.LocalCount,
		argCount:     params.ArgCount,
		retSlotCount: params.RetSlotCount,
		errSlotCount: params.ErrSlotCount,
		retshape:     params.Retshape,
		moduleID:     params.ModuleID,
	}
}

// ConstAt returns the constant-pool value at the given index.
func (f *CompiledFunction) ConstAt(index int) object.Value { return f.consts[index] }

// ConstCount returns the number of constants in this function's pool.
func (f *CompiledFunction) ConstCount() int { return len(f.consts) }

func (f *CompiledFunction) ID() int            { return f.id }
func (f *CompiledFunction) Name() string       { return f.name }
func (f *CompiledFunction) ModuleID() uint32   { return f.moduleID }
func (f *CompiledFunction) LocalCount() int    { return f.localCount }
func (f *CompiledFunction) ArgCount() int      { return f.argCount }
func (f *CompiledFunction) RetSlotCount() int  { return f.retSlotCount }
func (f *CompiledFunction) ErrSlotCount() int  { return f.errSlotCount }
func (f *CompiledFunction) Retshape() Retshape { return f.retshape }

// InstrCount returns the number of instructions in this function's body.
func (f *CompiledFunction) InstrCount() int { return len(f.code) }

// InstrAt returns the instruction at the given program counter.
func (f *CompiledFunction) InstrAt(pc int) Instr { return f.code[pc] }

// ArgName returns the name bound to the arg:: slot at the given index.
func (f *CompiledFunction) ArgName(index int) string { return f.argNames[index] }

// ArgNames returns a copy of the ordered argument names.
func (f *CompiledFunction) ArgNames() []string { return copyStrings(f.argNames) }

// bindModuleID finalizes a function's module id once its owning module's
// id has been assigned by the loader, and rewrites any FnHandle constants
// the compiler minted for this module's own functions with the placeholder
// module id 0 (the real id isn't known until after compilation finishes).
func (f *CompiledFunction) bindModuleID(id uint32) {
	f.moduleID = id
	for i, c := range f.consts {
		if h, ok := c.(object.FnHandle); ok && h.ModuleID == 0 {
			f.consts[i] = object.FnHandle{ModuleID: id, FunctionID: h.FunctionID}
		}
	}
}

func copyInstrs(src []Instr) []Instr {
	if src == nil {
		return nil
	}
	dst := make([]Instr, len(src))
	copy(dst, src)
	return dst
}
