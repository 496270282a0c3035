package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/object"
	"github.com/OranPie/imp/op"
)

func TestNewCompiledFunctionBasics(t *testing.T) {
	fn := bytecode.NewCompiledFunction(bytecode.CompiledFunctionParams{
		ID:       0,
		Name:     "sum2",
		ArgNames: []string{"a", "b"},
		Code: []bytecode.Instr{
			{Op: op.Add, A: 0, B: 1, Out: 0},
			{Op: op.Exit},
		},
		Consts:       []object.Value{object.Num(1)},
		LocalCount:   1,
		ArgCount:     2,
		RetSlotCount: 1,
		Retshape:     bytecode.RetshapeScalar,
		ModuleID:     7,
	})

	assert.Equal(t, "sum2", fn.Name())
	assert.Equal(t, 2, fn.ArgCount())
	assert.Equal(t, 2, fn.InstrCount())
	assert.Equal(t, op.Add, fn.InstrAt(0).Op)
	assert.Equal(t, uint32(7), fn.ModuleID())
	assert.Equal(t, bytecode.RetshapeScalar, fn.Retshape())
	assert.Equal(t, object.Num(1), fn.ConstAt(0))
}

func TestCompiledFunctionParamsAreCopied(t *testing.T) {
	code := []bytecode.Instr{{Op: op.Exit}}
	fn := bytecode.NewCompiledFunction(bytecode.CompiledFunctionParams{Code: code})
	code[0].Op = op.Add
	assert.Equal(t, op.Exit, fn.InstrAt(0).Op)
}

func TestCompiledModuleGlobalsRoundtrip(t *testing.T) {
	m := bytecode.NewCompiledModule(bytecode.CompiledModuleParams{
		Path:        "main.imp",
		GlobalNames: []string{"main::sum2"},
		Functions:   []*bytecode.CompiledFunction{bytecode.NewCompiledFunction(bytecode.CompiledFunctionParams{})},
	})

	slot, ok := m.GlobalSlot("main::sum2")
	require.True(t, ok)
	assert.Equal(t, object.NullValue, m.GetGlobal(slot))

	handle := object.FnHandle{ModuleID: 1, FunctionID: 0}
	m.SetGlobal(slot, handle)
	assert.Equal(t, handle, m.GetGlobal(slot))
}

func TestCompiledModuleDeclareGlobalIsIdempotent(t *testing.T) {
	m := bytecode.NewCompiledModule(bytecode.CompiledModuleParams{})
	a := m.DeclareGlobal("alias::fn")
	b := m.DeclareGlobal("alias::fn")
	assert.Equal(t, a, b)
}

func TestCompiledModuleExportsVisibleOnlyWhenSet(t *testing.T) {
	m := bytecode.NewCompiledModule(bytecode.CompiledModuleParams{})
	_, ok := m.ExportedValue("thing")
	assert.False(t, ok)

	m.Export("thing", object.Num(5))
	v, ok := m.ExportedValue("thing")
	require.True(t, ok)
	assert.Equal(t, object.Num(5), v)
}

func TestModuleStats(t *testing.T) {
	fn := bytecode.NewCompiledFunction(bytecode.CompiledFunctionParams{
		Code:   []bytecode.Instr{{Op: op.Exit}},
		Consts: []object.Value{object.Num(1)},
	})
	m := bytecode.NewCompiledModule(bytecode.CompiledModuleParams{
		Functions:   []*bytecode.CompiledFunction{fn},
		GlobalNames: []string{"main::x"},
	})
	stats := bytecode.ModuleStats(m)
	assert.Equal(t, 1, stats.FunctionCount)
	assert.Equal(t, 1, stats.InstructionCount)
	assert.Equal(t, 1, stats.ConstantCount)
	assert.Equal(t, 1, stats.GlobalCount)
}
