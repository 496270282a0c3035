// Package compiler lowers a parsed Imp-Core program into a CompiledModule:
// a flat per-function instruction stream plus the module's global/import/
// export tables. There is no expression tree to walk — every statement is
// a single #call, so compilation is one pass over the statement list that
// opens and closes nested function scopes as it goes.
package compiler

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/OranPie/imp/ast"
	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/internal/token"
	"github.com/OranPie/imp/object"
	"github.com/OranPie/imp/op"
)

// openFunc is a function scope currently being compiled: everything
// between a core::fn::begin and its matching core::fn::end, or the
// implicit top-level scope that holds the module's initializer.
type openFunc struct {
	scope      *funcScope
	id         int
	globalSlot int // where this function's FnHandle is stored once closed; -1 for the init scope, which isn't itself addressable
	retshape   bytecode.Retshape
}

// Compiler lowers one module's AST into a CompiledModule. It is not
// reused across modules — construct a fresh one per Compile call.
type Compiler struct {
	path string

	stack     []*openFunc
	functions map[int]*bytecode.CompiledFunction
	nextFnID  int

	globalIndex map[string]int
	globalOrder []string

	imports []bytecode.Import

	safeCounter int
	errs        *multierror.Error
}

// Compile lowers program into a CompiledModule rooted at path. path is
// only recorded on the module here; canonicalizing it relative to an
// importer is the loader's job.
func Compile(program *ast.Program, path string) (*bytecode.CompiledModule, error) {
	c := &Compiler{
		path:        path,
		functions:   map[int]*bytecode.CompiledFunction{},
		nextFnID:    1, // 0 is reserved for the module initializer
		globalIndex: map[string]int{},
	}

	init := newFuncScope("init", nil)
	c.stack = []*openFunc{{scope: init, id: 0, globalSlot: -1, retshape: bytecode.RetshapeAny}}

	for _, stmt := range program.Statements {
		call, ok := stmt.(*ast.CallStmt)
		if !ok {
			c.addErrorAt(stmt.Pos(), "expected a #call statement, found %s", stmt.String())
			continue
		}
		c.compileCall(call)
	}

	if len(c.stack) != 1 {
		c.addErrorAt(token.NoPos, "%d core::fn::begin scope(s) never closed with a matching core::fn::end", len(c.stack)-1)
	} else {
		c.finalizeScope(c.stack[0])
	}

	if err := c.errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	functions := make([]*bytecode.CompiledFunction, c.nextFnID)
	for id, fn := range c.functions {
		functions[id] = fn
	}
	for id, fn := range functions {
		if fn == nil {
			return nil, &errz.CompileError{Message: fmt.Sprintf("function id %d was opened but never finalized", id)}
		}
	}

	return bytecode.NewCompiledModule(bytecode.CompiledModuleParams{
		Path:        path,
		Functions:   functions,
		GlobalNames: c.globalOrder,
		Imports:     c.imports,
		InitFnID:    0,
	}), nil
}

func (c *Compiler) top() *funcScope { return c.stack[len(c.stack)-1].scope }

func (c *Compiler) addErrorAt(pos token.Position, format string, args ...any) {
	c.errs = multierror.Append(c.errs, &errz.CompileError{
		Message:  fmt.Sprintf(format, args...),
		Position: pos,
	})
}

func (c *Compiler) declareGlobal(name string) int {
	if idx, ok := c.globalIndex[name]; ok {
		return idx
	}
	idx := len(c.globalOrder)
	c.globalIndex[name] = idx
	c.globalOrder = append(c.globalOrder, name)
	return idx
}

// emit appends instr to cur's body, stamping it with call's source
// position for later error reporting.
func (c *Compiler) emit(cur *funcScope, call *ast.CallStmt, instr bytecode.Instr) int {
	pos := call.Pos()
	instr.Location = bytecode.SourceLocation{Line: pos.LineNumber(), Column: pos.ColumnNumber()}
	return cur.emit(instr)
}

// resolveRef turns a namespace::name reference into an encoded Instr slot
// operand. local/arg/return/err address the current frame; any other
// namespace (main, an import alias, ...) is a module global.
func (c *Compiler) resolveRef(cur *funcScope, ref *ast.RefAtom) int {
	switch ref.Namespace {
	case "local":
		return bytecode.EncodeSlot(bytecode.SlotLocal, cur.localSlot(ref.Name))
	case "arg":
		idx, ok := cur.argSlot(ref.Name)
		if !ok {
			c.addErrorAt(ref.Pos(), "function %q has no argument %q", cur.name, ref.Name)
			return 0
		}
		return bytecode.EncodeSlot(bytecode.SlotArg, idx)
	case "return":
		return bytecode.EncodeSlot(bytecode.SlotRet, cur.retSlot(ref.Name))
	case "err":
		return bytecode.EncodeSlot(bytecode.SlotErr, cur.errSlot(ref.Name))
	default:
		full := ref.Namespace + "::" + ref.Name
		return bytecode.EncodeSlot(bytecode.SlotGlobal, c.declareGlobal(full))
	}
}

func parseRefString(s string) (*ast.RefAtom, bool) {
	parts := strings.SplitN(s, "::", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	return &ast.RefAtom{Namespace: parts[0], Name: parts[1]}, true
}

// parseCSVNames splits an "a, b, c" style CSV string into trimmed,
// non-empty entries. An empty input yields an empty (not nil) list.
func parseCSVNames(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atomToValue(e ast.Expr) (object.Value, bool) {
	switch a := e.(type) {
	case *ast.NullAtom:
		return object.NullValue, true
	case *ast.BoolAtom:
		return object.Bool(a.Value), true
	case *ast.NumberAtom:
		return object.Num(a.Value), true
	case *ast.StringAtom:
		return object.Text(a.Value), true
	default:
		return nil, false
	}
}

// --- argument accessors -----------------------------------------------

func (c *Compiler) argKV(call *ast.CallStmt, key string) (*ast.KeyValue, bool) {
	kv := call.Arg(key)
	if kv == nil {
		c.addErrorAt(call.Pos(), "%s is missing required key %q", call.Target.String(), key)
		return nil, false
	}
	return kv, true
}

func (c *Compiler) argRef(call *ast.CallStmt, key string) (*ast.RefAtom, bool) {
	kv, ok := c.argKV(call, key)
	if !ok {
		return nil, false
	}
	ref, ok := kv.Value.(*ast.RefAtom)
	if !ok {
		c.addErrorAt(kv.Pos(), "key %q must be a ref, found %s", key, kv.Value.String())
		return nil, false
	}
	return ref, true
}

func (c *Compiler) argSlotFor(cur *funcScope, call *ast.CallStmt, key string) (int, bool) {
	ref, ok := c.argRef(call, key)
	if !ok {
		return 0, false
	}
	return c.resolveRef(cur, ref), true
}

// valueSlotFor resolves a key that accepts either a ref or a literal atom
// directly (e.g. "core::obj::set ... value=1" rather than spelling out a
// preceding core::const). A literal is lowered to a synthetic Const into a
// fresh local slot, then used exactly like a ref would be.
func (c *Compiler) valueSlotFor(cur *funcScope, call *ast.CallStmt, key string) (int, bool) {
	kv, ok := c.argKV(call, key)
	if !ok {
		return 0, false
	}
	if ref, ok := kv.Value.(*ast.RefAtom); ok {
		return c.resolveRef(cur, ref), true
	}
	val, ok := atomToValue(kv.Value)
	if !ok {
		c.addErrorAt(kv.Pos(), "key %q must be a ref or a literal atom", key)
		return 0, false
	}
	tmp := bytecode.EncodeSlot(bytecode.SlotLocal, cur.localSlot(fmt.Sprintf("__lit_%d", cur.pc())))
	c.emit(cur, call, bytecode.Instr{Op: op.Const, Out: tmp, Const: cur.addConst(val)})
	return tmp, true
}

func (c *Compiler) argString(call *ast.CallStmt, key string) (string, bool) {
	kv, ok := c.argKV(call, key)
	if !ok {
		return "", false
	}
	s, ok := kv.Value.(*ast.StringAtom)
	if !ok {
		c.addErrorAt(kv.Pos(), "key %q must be a string, found %s", key, kv.Value.String())
		return "", false
	}
	return s.Value, true
}

// optionalString is like argString but treats a missing key as "" rather
// than an error (used for fn::begin's args="..." list, which may be empty).
func (c *Compiler) optionalString(call *ast.CallStmt, key string) (string, bool) {
	kv := call.Arg(key)
	if kv == nil {
		return "", true
	}
	s, ok := kv.Value.(*ast.StringAtom)
	if !ok {
		c.addErrorAt(kv.Pos(), "key %q must be a string, found %s", key, kv.Value.String())
		return "", false
	}
	return s.Value, true
}

// --- statement dispatch -------------------------------------------------

func (c *Compiler) compileCall(call *ast.CallStmt) {
	target := call.Target
	if !target.IsCore() {
		c.compileInvoke(call)
		return
	}

	sub := strings.Join(target.Segments[1:], "::")

	if call.HasAnnotation("safe") {
		if sub != "div" {
			c.addErrorAt(target.Pos(), "@safe is only supported on core::div, found core::%s", sub)
			return
		}
		c.compileSafeDiv(call)
		return
	}

	switch sub {
	case "fn::begin":
		c.compileFnBegin(call)
	case "fn::end":
		c.compileFnEnd(call)
	case "label":
		c.compileLabel(call)
	case "jump":
		c.compileJump(call)
	case "br":
		c.compileBr(call)
	case "exit":
		c.emit(c.top(), call, bytecode.Instr{Op: op.Exit})
	case "throw":
		c.compileThrow(call)
	case "try::push":
		c.compileTryPush(call)
	case "try::pop":
		c.emit(c.top(), call, bytecode.Instr{Op: op.TryPop})
	case "const":
		c.compileConst(call)
	case "move":
		c.compileMove(call)
	case "add", "sub", "mul", "div":
		c.compileArith(call, sub)
	case "eq", "neq", "lt", "le", "gt", "ge":
		c.compileCompare(call, sub)
	case "obj::new":
		c.compileObjNew(call)
	case "obj::set":
		c.compileObjSet(call)
	case "obj::get":
		c.compileObjGet(call)
	case "obj::has":
		c.compileObjHas(call)
	case "str::concat":
		c.compileStrConcat(call)
	case "str::len":
		c.compileStrLen(call)
	case "host::print":
		c.compileHostPrint(call)
	case "import":
		c.compileImport(call)
	case "mod::export":
		c.compileModExport(call)
	default:
		c.addErrorAt(target.Pos(), "unknown core op %q", target.String())
	}
}

func (c *Compiler) compileFnBegin(call *ast.CallStmt) {
	nameRef, ok := c.argRef(call, "name")
	if !ok {
		return
	}
	argsStr, ok := c.optionalString(call, "args")
	if !ok {
		return
	}
	retshapeStr, ok := c.argString(call, "retshape")
	if !ok {
		return
	}
	retshape := bytecode.Retshape(retshapeStr)
	switch retshape {
	case bytecode.RetshapeScalar, bytecode.RetshapeObject, bytecode.RetshapeAny:
	default:
		c.addErrorAt(call.Pos(), "invalid retshape %q, expected scalar, object, or any", retshapeStr)
		return
	}

	fullName := nameRef.Namespace + "::" + nameRef.Name
	globalSlot := c.declareGlobal(fullName)

	id := c.nextFnID
	c.nextFnID++
	scope := newFuncScope(fullName, parseCSVNames(argsStr))
	c.stack = append(c.stack, &openFunc{scope: scope, id: id, globalSlot: globalSlot, retshape: retshape})
}

func (c *Compiler) compileFnEnd(call *ast.CallStmt) {
	if len(c.stack) <= 1 {
		c.addErrorAt(call.Pos(), "core::fn::end with no matching core::fn::begin")
		return
	}
	open := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	c.finalizeScope(open)

	enclosing := c.top()
	handle := object.FnHandle{ModuleID: 0, FunctionID: uint32(open.id)}
	constIdx := enclosing.addConst(handle)
	tmp := bytecode.EncodeSlot(bytecode.SlotLocal, enclosing.localSlot(fmt.Sprintf("__fnhandle_%d", open.id)))
	c.emit(enclosing, call, bytecode.Instr{Op: op.Const, Out: tmp, Const: constIdx})
	c.emit(enclosing, call, bytecode.Instr{Op: op.Move, A: tmp, Out: bytecode.EncodeSlot(bytecode.SlotGlobal, open.globalSlot)})
}

// finalizeScope resolves every label reference in open's body and builds
// its CompiledFunction, storing it under its id.
func (c *Compiler) finalizeScope(open *openFunc) {
	scope := open.scope
	code := make([]bytecode.Instr, len(scope.code))
	for i, p := range scope.code {
		instr := p.instr
		if p.jumpLabel != "" {
			pc, ok := scope.labels[p.jumpLabel]
			if !ok {
				c.addErrorAt(token.NoPos, "function %q: jump to undefined label %q", scope.name, p.jumpLabel)
			}
			instr.PC = pc
		}
		if p.thenLabel != "" {
			pc, ok := scope.labels[p.thenLabel]
			if !ok {
				c.addErrorAt(token.NoPos, "function %q: branch to undefined label %q", scope.name, p.thenLabel)
			}
			instr.PC = pc
		}
		if p.elseLabel != "" {
			pc, ok := scope.labels[p.elseLabel]
			if !ok {
				c.addErrorAt(token.NoPos, "function %q: branch to undefined label %q", scope.name, p.elseLabel)
			}
			instr.PC2 = pc
		}
		if p.tryLabel != "" {
			pc, ok := scope.labels[p.tryLabel]
			if !ok {
				c.addErrorAt(token.NoPos, "function %q: try handler label %q is undefined", scope.name, p.tryLabel)
			}
			instr.PC = pc
		}
		code[i] = instr
	}

	c.checkTryBalance(scope, code)

	fn := bytecode.NewCompiledFunction(bytecode.CompiledFunctionParams{
		ID:           open.id,
		Name:         scope.name,
		Code:         code,
		Consts:       scope.consts,
		ArgNames:     scope.argNames,
		LocalCount:   len(scope.localOrder),
		ArgCount:     len(scope.argNames),
		RetSlotCount: len(scope.retOrder),
		ErrSlotCount: len(scope.errOrder),
		Retshape:     open.retshape,
		ModuleID:     0,
	})
	c.functions[open.id] = fn
}

// checkTryBalance walks code's control-flow graph from pc 0, tracking the
// try-handler depth along every path a Jump/Br/TryPush can reach, and
// reports a CompileError if any path leaves a try::push unmatched by a
// try::pop by the time it reaches core::exit or falls off the end of the
// function, if try::pop fires with nothing pushed, or if two paths reach
// the same instruction with different depths. A TryPush's handler is
// treated as reachable directly from the push at the push's pre-push
// depth, matching the runtime's tryStack-pop-then-jump behavior on throw.
func (c *Compiler) checkTryBalance(scope *funcScope, code []bytecode.Instr) {
	n := len(code)
	if n == 0 {
		return
	}

	const unset = -1
	depth := make([]int, n+1) // depth[n] is the depth of falling off the end
	for i := range depth {
		depth[i] = unset
	}

	type pending struct {
		pc, d int
	}
	queue := []pending{{0, 0}}

	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		pc, d := cur.pc, cur.d

		if pc < 0 || pc > n {
			continue
		}
		if depth[pc] != unset {
			if depth[pc] != d {
				c.addErrorAt(token.NoPos, "function %q: try::push/try::pop imbalance — instruction at pc %d reached with handler depth %d on one path and %d on another", scope.name, pc, depth[pc], d)
			}
			continue
		}
		depth[pc] = d

		if pc == n {
			if d != 0 {
				c.addErrorAt(token.NoPos, "function %q: %d try::push without a matching try::pop falls off the end of the function", scope.name, d)
			}
			continue
		}

		switch instr := code[pc]; instr.Op {
		case op.TryPush:
			queue = append(queue, pending{pc + 1, d + 1}, pending{instr.PC, d})
		case op.TryPop:
			if d == 0 {
				c.addErrorAt(token.NoPos, "function %q: try::pop at pc %d has no matching try::push", scope.name, pc)
				continue
			}
			queue = append(queue, pending{pc + 1, d - 1})
		case op.Jump:
			queue = append(queue, pending{instr.PC, d})
		case op.Br:
			queue = append(queue, pending{instr.PC, d}, pending{instr.PC2, d})
		case op.Exit:
			if d != 0 {
				c.addErrorAt(token.NoPos, "function %q: try::push at depth %d still open at core::exit (pc %d)", scope.name, d, pc)
			}
		case op.Throw:
			// a throw either jumps to the innermost open handler, which is
			// already queued from its TryPush at the pre-push depth, or leaves
			// the function; there is no fall-through successor to check.
		default:
			queue = append(queue, pending{pc + 1, d})
		}
	}
}

func (c *Compiler) compileLabel(call *ast.CallStmt) {
	name, ok := c.argString(call, "name")
	if !ok {
		return
	}
	cur := c.top()
	if _, exists := cur.labels[name]; exists {
		c.addErrorAt(call.Pos(), "duplicate label %q in function %q", name, cur.name)
		return
	}
	cur.labels[name] = cur.pc()
}

func (c *Compiler) compileJump(call *ast.CallStmt) {
	to, ok := c.argString(call, "to")
	if !ok {
		return
	}
	cur := c.top()
	idx := c.emit(cur, call, bytecode.Instr{Op: op.Jump})
	cur.code[idx].jumpLabel = to
}

func (c *Compiler) compileBr(call *ast.CallStmt) {
	cur := c.top()
	cond, ok := c.valueSlotFor(cur, call, "cond")
	if !ok {
		return
	}
	thenLabel, ok := c.argString(call, "then")
	if !ok {
		return
	}
	elseLabel, ok := c.argString(call, "else")
	if !ok {
		return
	}
	idx := c.emit(cur, call, bytecode.Instr{Op: op.Br, A: cond})
	cur.code[idx].thenLabel = thenLabel
	cur.code[idx].elseLabel = elseLabel
}

func (c *Compiler) compileThrow(call *ast.CallStmt) {
	cur := c.top()
	codeStr, ok := c.argString(call, "code")
	if !ok {
		return
	}
	kv, ok := c.argKV(call, "msg")
	if !ok {
		return
	}
	instr := bytecode.Instr{Op: op.Throw, Const: cur.addConst(object.Text(codeStr))}
	switch v := kv.Value.(type) {
	case *ast.StringAtom:
		instr.Const2 = cur.addConst(object.Text(v.Value))
	case *ast.RefAtom:
		instr.MsgIsSlot = true
		instr.A = c.resolveRef(cur, v)
	default:
		c.addErrorAt(kv.Pos(), "msg must be a string or a ref")
		return
	}
	c.emit(cur, call, instr)
}

func (c *Compiler) compileTryPush(call *ast.CallStmt) {
	handler, ok := c.argString(call, "handler")
	if !ok {
		return
	}
	cur := c.top()
	idx := c.emit(cur, call, bytecode.Instr{Op: op.TryPush})
	cur.code[idx].tryLabel = handler
}

func (c *Compiler) compileConst(call *ast.CallStmt) {
	cur := c.top()
	out, ok := c.argSlotFor(cur, call, "out")
	if !ok {
		return
	}
	kv, ok := c.argKV(call, "value")
	if !ok {
		return
	}
	val, ok := atomToValue(kv.Value)
	if !ok {
		c.addErrorAt(kv.Pos(), "value must be a literal (null/bool/number/string), not a ref")
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.Const, Out: out, Const: cur.addConst(val)})
}

func (c *Compiler) compileMove(call *ast.CallStmt) {
	cur := c.top()
	dst, ok1 := c.argSlotFor(cur, call, "dst")
	src, ok2 := c.argSlotFor(cur, call, "src")
	if !ok1 || !ok2 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.Move, A: src, Out: dst})
}

func arithOpForName(name string) op.Code {
	switch name {
	case "add":
		return op.Add
	case "sub":
		return op.Sub
	case "mul":
		return op.Mul
	case "div":
		return op.Div
	default:
		return op.Invalid
	}
}

func compareOpForName(name string) op.Code {
	switch name {
	case "eq":
		return op.Eq
	case "neq":
		return op.Neq
	case "lt":
		return op.Lt
	case "le":
		return op.Le
	case "gt":
		return op.Gt
	case "ge":
		return op.Ge
	default:
		return op.Invalid
	}
}

func (c *Compiler) compileArith(call *ast.CallStmt, name string) {
	cur := c.top()
	a, ok1 := c.valueSlotFor(cur, call, "a")
	b, ok2 := c.valueSlotFor(cur, call, "b")
	out, ok3 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 || !ok3 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: arithOpForName(name), A: a, B: b, Out: out})
}

func (c *Compiler) compileSafeDiv(call *ast.CallStmt) {
	cur := c.top()
	a, ok1 := c.valueSlotFor(cur, call, "a")
	b, ok2 := c.valueSlotFor(cur, call, "b")
	out, ok3 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 || !ok3 {
		return
	}
	c.safeCounter++
	handlerLabel := fmt.Sprintf("__safe_div_handler_%d", c.safeCounter)
	endLabel := fmt.Sprintf("__safe_div_end_%d", c.safeCounter)

	pushIdx := c.emit(cur, call, bytecode.Instr{Op: op.TryPush})
	cur.code[pushIdx].tryLabel = handlerLabel
	c.emit(cur, call, bytecode.Instr{Op: op.Div, A: a, B: b, Out: out})
	c.emit(cur, call, bytecode.Instr{Op: op.TryPop})
	jumpIdx := c.emit(cur, call, bytecode.Instr{Op: op.Jump})
	cur.code[jumpIdx].jumpLabel = endLabel

	cur.labels[handlerLabel] = cur.pc()
	c.emit(cur, call, bytecode.Instr{Op: op.Const, Out: out, Const: cur.addConst(object.NullValue)})
	cur.labels[endLabel] = cur.pc()
}

func (c *Compiler) compileCompare(call *ast.CallStmt, name string) {
	cur := c.top()
	a, ok1 := c.valueSlotFor(cur, call, "a")
	b, ok2 := c.valueSlotFor(cur, call, "b")
	out, ok3 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 || !ok3 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: compareOpForName(name), A: a, B: b, Out: out})
}

func (c *Compiler) compileObjNew(call *ast.CallStmt) {
	cur := c.top()
	out, ok := c.argSlotFor(cur, call, "out")
	if !ok {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.ObjNew, Out: out})
}

func (c *Compiler) compileObjSet(call *ast.CallStmt) {
	cur := c.top()
	objSlot, ok1 := c.argSlotFor(cur, call, "obj")
	key, ok2 := c.argString(call, "key")
	valSlot, ok3 := c.valueSlotFor(cur, call, "value")
	out, ok4 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.ObjSet, A: objSlot, B: valSlot, Const: cur.addConst(object.Text(key)), Out: out})
}

func (c *Compiler) compileObjGet(call *ast.CallStmt) {
	cur := c.top()
	objSlot, ok1 := c.argSlotFor(cur, call, "obj")
	key, ok2 := c.argString(call, "key")
	out, ok3 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 || !ok3 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.ObjGet, A: objSlot, Const: cur.addConst(object.Text(key)), Out: out})
}

func (c *Compiler) compileObjHas(call *ast.CallStmt) {
	cur := c.top()
	objSlot, ok1 := c.argSlotFor(cur, call, "obj")
	key, ok2 := c.argString(call, "key")
	out, ok3 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 || !ok3 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.ObjHas, A: objSlot, Const: cur.addConst(object.Text(key)), Out: out})
}

func (c *Compiler) compileStrConcat(call *ast.CallStmt) {
	cur := c.top()
	a, ok1 := c.valueSlotFor(cur, call, "a")
	b, ok2 := c.valueSlotFor(cur, call, "b")
	out, ok3 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 || !ok3 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.StrConcat, A: a, B: b, Out: out})
}

func (c *Compiler) compileStrLen(call *ast.CallStmt) {
	cur := c.top()
	v, ok1 := c.valueSlotFor(cur, call, "value")
	out, ok2 := c.argSlotFor(cur, call, "out")
	if !ok1 || !ok2 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.StrLen, A: v, Out: out})
}

func (c *Compiler) compileHostPrint(call *ast.CallStmt) {
	cur := c.top()
	valSlot, ok := c.valueSlotFor(cur, call, "value")
	if !ok {
		return
	}
	outSlot := valSlot
	if kv := call.Arg("out"); kv != nil {
		ref, ok := kv.Value.(*ast.RefAtom)
		if !ok {
			c.addErrorAt(kv.Pos(), "out must be a ref")
			return
		}
		outSlot = c.resolveRef(cur, ref)
	}
	c.emit(cur, call, bytecode.Instr{Op: op.HostPrint, A: valSlot, Out: outSlot})
}

func (c *Compiler) compileImport(call *ast.CallStmt) {
	cur := c.top()
	alias, ok1 := c.argString(call, "alias")
	path, ok2 := c.argString(call, "path")
	if !ok1 || !ok2 {
		return
	}
	c.imports = append(c.imports, bytecode.Import{Alias: alias, Path: path})
	instr := bytecode.Instr{
		Op:     op.ImportModule,
		Const:  cur.addConst(object.Text(alias)),
		Const2: cur.addConst(object.Text(path)),
	}
	c.emit(cur, call, instr)
}

func (c *Compiler) compileModExport(call *ast.CallStmt) {
	cur := c.top()
	name, ok1 := c.argString(call, "name")
	valSlot, ok2 := c.valueSlotFor(cur, call, "value")
	if !ok1 || !ok2 {
		return
	}
	c.emit(cur, call, bytecode.Instr{Op: op.ModExport, Const: cur.addConst(object.Text(name)), A: valSlot})
}

// compileInvoke lowers a non-core target ("alias::name" or "main::name")
// into an Invoke. Its target_slot is resolved exactly like a ref: the
// loader/initializer is responsible for having already bound a FnHandle
// into that slot by the time this instruction executes.
func (c *Compiler) compileInvoke(call *ast.CallStmt) {
	cur := c.top()
	target := call.Target
	if len(target.Segments) != 2 {
		c.addErrorAt(target.Pos(), "invoke target must be namespace::name, found %q", target.String())
		return
	}
	targetSlot := c.resolveRef(cur, &ast.RefAtom{Namespace: target.Segments[0], Name: target.Segments[1]})

	var argSlots []int
	if kv := call.Arg("args"); kv != nil {
		s, ok := kv.Value.(*ast.StringAtom)
		if !ok {
			c.addErrorAt(kv.Pos(), "args must be a string")
			return
		}
		argSlots = make([]int, 0)
		for _, entry := range parseCSVNames(s.Value) {
			ref, ok := parseRefString(entry)
			if !ok {
				c.addErrorAt(kv.Pos(), "malformed ref %q in args list", entry)
				continue
			}
			argSlots = append(argSlots, c.resolveRef(cur, ref))
		}
	}

	outSlot, ok := c.argSlotFor(cur, call, "out")
	if !ok {
		return
	}

	c.emit(cur, call, bytecode.Instr{Op: op.Invoke, A: targetSlot, Args: argSlots, Out: outSlot})
}
