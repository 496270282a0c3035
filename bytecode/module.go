package bytecode

import (
	"sort"

	"github.com/OranPie/imp/object"
)

// Import is one "ImportModule(alias, path)" recorded for execution by a
// module's initializer.
type Import struct {
	Alias string
	Path  string
}

// CompiledModule is the runtime form of a compiled source file: a
// function table, a global slot table, and import/export metadata. Its
// shape (functions, imports, the declared export names) is fixed at
// construction; its global slots and exports are mutable — an initializer
// writes FnHandle values into global slots as top-level "core::fn::begin"
// definitions close, and each "core::mod::export" it executes records an
// export. The loader hands a module to importers only after its
// initializer completes cleanly.
type CompiledModule struct {
	moduleID    uint32
	path        string
	functions   []*CompiledFunction
	globalNames []string
	globalIndex map[string]int
	globals     []object.Value
	imports     []Import
	exports     map[string]object.Value
	initFnID    int
}

// CompiledModuleParams holds the inputs to NewCompiledModule.
type CompiledModuleParams struct {
	Path        string
	Functions   []*CompiledFunction
	GlobalNames []string // fully-qualified names, e.g. "main::sum2"
	Imports     []Import
	InitFnID    int
}

// NewCompiledModule creates a new CompiledModule. Its module id is
// assigned separately by the loader (SetModuleID), since the compiler
// itself has no notion of a loader-wide id space.
func NewCompiledModule(params CompiledModuleParams) *CompiledModule {
	index := make(map[string]int, len(params.GlobalNames))
	for i, name := range params.GlobalNames {
		index[name] = i
	}
	functions := make([]*CompiledFunction, len(params.Functions))
	copy(functions, params.Functions)
	globals := make([]object.Value, len(params.GlobalNames))
	for i := range globals {
		globals[i] = object.NullValue
	}
	return &CompiledModule{
		path:        params.Path,
		functions:   functions,
		globalNames: copyStrings(params.GlobalNames),
		globalIndex: index,
		globals:     globals,
		imports:     append([]Import(nil), params.Imports...),
		exports:     make(map[string]object.Value),
		initFnID:    params.InitFnID,
	}
}

// SetModuleID assigns this module's loader-wide id. The loader calls it
// right after compilation and before the initializer runs; the codec's
// Decode calls it to restore an encoded module's id.
func (m *CompiledModule) SetModuleID(id uint32) {
	m.moduleID = id
	for _, fn := range m.functions {
		fn.bindModuleID(id)
	}
}

func (m *CompiledModule) ModuleID() uint32 { return m.moduleID }
func (m *CompiledModule) Path() string     { return m.path }
func (m *CompiledModule) InitFnID() int    { return m.initFnID }

// FunctionCount returns the number of functions defined in this module.
func (m *CompiledModule) FunctionCount() int { return len(m.functions) }

// FunctionAt returns the function with the given id.
func (m *CompiledModule) FunctionAt(id int) *CompiledFunction { return m.functions[id] }

// Imports returns a copy of this module's recorded imports.
func (m *CompiledModule) Imports() []Import {
	return append([]Import(nil), m.imports...)
}

// GlobalSlot resolves a fully-qualified global name (e.g. "main::sum2" or
// an aliased import "alias::name") to its slot index. ok is false if the
// name has never been declared in this module's global table.
func (m *CompiledModule) GlobalSlot(name string) (int, bool) {
	idx, ok := m.globalIndex[name]
	return idx, ok
}

// DeclareGlobal reserves a new global slot for name if it doesn't
// already have one (used when binding an aliased import's exports), and
// returns its index.
func (m *CompiledModule) DeclareGlobal(name string) int {
	if idx, ok := m.globalIndex[name]; ok {
		return idx
	}
	idx := len(m.globals)
	m.globalIndex[name] = idx
	m.globalNames = append(m.globalNames, name)
	m.globals = append(m.globals, object.NullValue)
	return idx
}

// GlobalCount returns the number of declared global slots.
func (m *CompiledModule) GlobalCount() int { return len(m.globalNames) }

// GlobalNameAt returns the fully-qualified name bound to the given global
// slot, in declaration order.
func (m *CompiledModule) GlobalNameAt(slot int) string { return m.globalNames[slot] }

// GetGlobal returns the value stored in the given global slot.
func (m *CompiledModule) GetGlobal(slot int) object.Value { return m.globals[slot] }

// SetGlobal stores value into the given global slot.
func (m *CompiledModule) SetGlobal(slot int, value object.Value) { m.globals[slot] = value }

// Export records value as the module's export under name. The VM calls
// this as the initializer executes "core::mod::export"; the codec's Decode
// calls it to restore encoded exports.
func (m *CompiledModule) Export(name string, value object.Value) { m.exports[name] = value }

// ExportedValue returns the value exported under name, if any.
func (m *CompiledModule) ExportedValue(name string) (object.Value, bool) {
	v, ok := m.exports[name]
	return v, ok
}

// ExportNames returns the names this module has exported.
func (m *CompiledModule) ExportNames() []string {
	names := make([]string, 0, len(m.exports))
	for name := range m.exports {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
