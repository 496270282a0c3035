package compiler

import (
	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/object"
)

// pendingInstr wraps an Instr being built for a function body still open.
// Jump/Br/TryPush targets are recorded by label name here and rewritten
// into PC/PC2 once the whole function has been compiled and every label
// in it is known, so forward references work the same as backward ones.
type pendingInstr struct {
	instr bytecode.Instr

	jumpLabel string // op.Jump: resolves into instr.PC
	thenLabel string // op.Br: resolves into instr.PC
	elseLabel string // op.Br: resolves into instr.PC2
	tryLabel  string // op.TryPush: resolves into instr.PC
}

// funcScope tracks the slot assignment state for one function while its
// body is being compiled. local/return/err slots are assigned the first
// time a ref into that namespace is seen; arg slots are fixed in advance
// from the function's declared argument names.
type funcScope struct {
	name     string
	argNames []string
	args     map[string]int

	locals     map[string]int
	localOrder []string

	rets     map[string]int
	retOrder []string

	errs     map[string]int
	errOrder []string

	labels map[string]int // label name -> resolved pc, once seen via core::label
	code   []pendingInstr
	consts []object.Value
}

func newFuncScope(name string, argNames []string) *funcScope {
	args := make(map[string]int, len(argNames))
	for i, n := range argNames {
		args[n] = i
	}
	return &funcScope{
		name:     name,
		argNames: argNames,
		args:     args,
		locals:   map[string]int{},
		rets:     map[string]int{},
		errs:     map[string]int{},
		labels:   map[string]int{},
	}
}

func (s *funcScope) localSlot(name string) int {
	if idx, ok := s.locals[name]; ok {
		return idx
	}
	idx := len(s.localOrder)
	s.locals[name] = idx
	s.localOrder = append(s.localOrder, name)
	return idx
}

func (s *funcScope) retSlot(name string) int {
	if idx, ok := s.rets[name]; ok {
		return idx
	}
	idx := len(s.retOrder)
	s.rets[name] = idx
	s.retOrder = append(s.retOrder, name)
	return idx
}

func (s *funcScope) errSlot(name string) int {
	if idx, ok := s.errs[name]; ok {
		return idx
	}
	idx := len(s.errOrder)
	s.errs[name] = idx
	s.errOrder = append(s.errOrder, name)
	return idx
}

func (s *funcScope) argSlot(name string) (int, bool) {
	idx, ok := s.args[name]
	return idx, ok
}

// addConst appends value to this function's constant pool and returns its
// index. Pool entries are never deduplicated; a handful of repeated
// literals costs nothing a real program would notice.
func (s *funcScope) addConst(value object.Value) int {
	idx := len(s.consts)
	s.consts = append(s.consts, value)
	return idx
}

// pc returns the program counter the next emitted instruction will occupy.
func (s *funcScope) pc() int { return len(s.code) }

func (s *funcScope) emit(instr bytecode.Instr) int {
	s.code = append(s.code, pendingInstr{instr: instr})
	return len(s.code) - 1
}
