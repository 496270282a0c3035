package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OranPie/imp/ast"
	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/compiler"
	"github.com/OranPie/imp/object"
	"github.com/OranPie/imp/op"
	"github.com/OranPie/imp/parser"
)

func compile(t *testing.T, src string) *bytecode.CompiledModule {
	t.Helper()
	prog, err := parser.Parse(src, "t.imp")
	require.NoError(t, err)
	mod, err := compiler.Compile(prog, "t.imp")
	require.NoError(t, err)
	return mod
}

func TestCompileArithAndPrint(t *testing.T) {
	mod := compile(t, `
		#call core::const out=local::a value=1;
		#call core::const out=local::b value=2;
		#call core::add a=local::a b=local::b out=local::sum;
		#call core::host::print value=local::sum;
	`)
	init := mod.FunctionAt(mod.InitFnID())
	require.NotNil(t, init)

	var ops []op.Code
	for i := 0; i < init.InstrCount(); i++ {
		ops = append(ops, init.InstrAt(i).Op)
	}
	assert.Equal(t, []op.Code{op.Const, op.Const, op.Add, op.HostPrint}, ops)

	addInstr := init.InstrAt(2)
	aSpace, aIdx := bytecode.DecodeSlot(addInstr.A)
	bSpace, bIdx := bytecode.DecodeSlot(addInstr.B)
	outSpace, _ := bytecode.DecodeSlot(addInstr.Out)
	assert.Equal(t, bytecode.SlotLocal, aSpace)
	assert.Equal(t, bytecode.SlotLocal, bSpace)
	assert.Equal(t, bytecode.SlotLocal, outSpace)
	assert.NotEqual(t, aIdx, bIdx)
}

func TestCompileLiteralOperandsDoNotRequirePrecedingConst(t *testing.T) {
	mod := compile(t, `
		#call core::obj::new out=local::o;
		#call core::obj::set obj=local::o key="k" value=1 out=local::o;
		#call core::obj::get obj=local::o key="k" out=local::v;
	`)
	init := mod.FunctionAt(mod.InitFnID())

	var setInstr bytecode.Instr
	found := false
	for i := 0; i < init.InstrCount(); i++ {
		if instr := init.InstrAt(i); instr.Op == op.ObjSet {
			setInstr = instr
			found = true
		}
	}
	require.True(t, found)

	valueSpace, valueIdx := bytecode.DecodeSlot(setInstr.B)
	assert.Equal(t, bytecode.SlotLocal, valueSpace)

	// the literal must have been lowered into a synthetic Const that
	// targets the same slot ObjSet reads its value from.
	sawLoweredConst := false
	for i := 0; i < init.InstrCount(); i++ {
		instr := init.InstrAt(i)
		if instr.Op != op.Const {
			continue
		}
		_, outIdx := bytecode.DecodeSlot(instr.Out)
		if outIdx == valueIdx {
			sawLoweredConst = true
			assert.Equal(t, object.Num(1), init.ConstAt(instr.Const))
		}
	}
	assert.True(t, sawLoweredConst)
}

func TestCompileFunctionDefinitionBindsFnHandleToGlobal(t *testing.T) {
	mod := compile(t, `
		#call core::fn::begin name=main::double args="x" retshape=scalar;
		#call core::add a=arg::x b=arg::x out=return::out;
		#call core::exit;
		#call core::fn::end;
		#call main::double args="local::seven" out=local::r;
	`)

	require.Equal(t, 2, mod.FunctionCount())

	slot, ok := mod.GlobalSlot("main::double")
	require.True(t, ok)

	init := mod.FunctionAt(mod.InitFnID())
	var sawMove bool
	for i := 0; i < init.InstrCount(); i++ {
		instr := init.InstrAt(i)
		if instr.Op != op.Move {
			continue
		}
		space, idx := bytecode.DecodeSlot(instr.Out)
		if space == bytecode.SlotGlobal && idx == slot {
			sawMove = true
			constInstr := findConstFeeding(init, instr.A)
			require.NotNil(t, constInstr)
			handle, ok := init.ConstAt(constInstr.Const).(object.FnHandle)
			require.True(t, ok)
			assert.Equal(t, uint32(1), handle.FunctionID)
		}
	}
	assert.True(t, sawMove)

	doubleFn := mod.FunctionAt(1)
	require.NotNil(t, doubleFn)
	assert.Equal(t, bytecode.RetshapeScalar, doubleFn.Retshape())
	assert.Equal(t, []string{"x"}, doubleFn.ArgNames())

	var sawInvoke bool
	for i := 0; i < init.InstrCount(); i++ {
		if init.InstrAt(i).Op == op.Invoke {
			sawInvoke = true
		}
	}
	assert.True(t, sawInvoke)
}

func findConstFeeding(fn *bytecode.CompiledFunction, slot int) *bytecode.Instr {
	for i := 0; i < fn.InstrCount(); i++ {
		instr := fn.InstrAt(i)
		if instr.Op == op.Const && instr.Out == slot {
			return &instr
		}
	}
	return nil
}

func TestCompileSafeDivExpandsToTryPushDivTryPop(t *testing.T) {
	mod := compile(t, `
		#call core::const out=local::a value=10;
		#call core::const out=local::b value=0;
		#call @safe core::div a=local::a b=local::b out=local::q;
	`)
	init := mod.FunctionAt(mod.InitFnID())

	var ops []op.Code
	for i := 0; i < init.InstrCount(); i++ {
		ops = append(ops, init.InstrAt(i).Op)
	}
	assert.Equal(t, []op.Code{
		op.Const, op.Const,
		op.TryPush, op.Div, op.TryPop, op.Jump, op.Const,
	}, ops)
}

func TestCompileSafeAnnotationRejectedOnNonDiv(t *testing.T) {
	_, err := compiler.Compile(mustParse(t, `#call @safe core::add a=local::a b=local::b out=local::c;`), "t.imp")
	require.Error(t, err)
}

func TestCompileUnterminatedFnScopeIsAnError(t *testing.T) {
	_, err := compiler.Compile(mustParse(t, `#call core::fn::begin name=main::f args="" retshape=any;`), "t.imp")
	require.Error(t, err)
}

func TestCompileUnknownCoreOpIsAnError(t *testing.T) {
	_, err := compiler.Compile(mustParse(t, `#call core::bogus out=local::a;`), "t.imp")
	require.Error(t, err)
}

func TestCompileInvokeWithoutOutIsAnError(t *testing.T) {
	_, err := compiler.Compile(mustParse(t, `#call main::foo;`), "t.imp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out")
}

func TestCompileUnmatchedTryPushIsAnError(t *testing.T) {
	_, err := compiler.Compile(mustParse(t, `
		#call core::try::push handler="h";
		#call core::exit;
		#call core::label name="h";
		#call core::exit;
	`), "t.imp")
	require.Error(t, err)
}

func TestCompileUnmatchedTryPopIsAnError(t *testing.T) {
	_, err := compiler.Compile(mustParse(t, `
		#call core::try::pop;
		#call core::exit;
	`), "t.imp")
	require.Error(t, err)
}

func TestCompileBalancedTryPushPopAcrossBranchesCompiles(t *testing.T) {
	mod := compile(t, `
		#call core::const out=local::a value=10;
		#call core::const out=local::b value=0;
		#call @safe core::div a=local::a b=local::b out=local::q;
		#call core::exit;
	`)
	require.NotNil(t, mod)
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := parser.Parse(src, "t.imp")
	require.NoError(t, err)
	return prog
}
