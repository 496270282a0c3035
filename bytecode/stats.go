package bytecode

// Stats summarizes a CompiledModule, useful for auditing a module before
// execution.
type Stats struct {
	FunctionCount    int
	InstructionCount int
	ConstantCount    int
	GlobalCount      int
	ImportCount      int
}

// ModuleStats computes Stats for the given module.
func ModuleStats(m *CompiledModule) Stats {
	s := Stats{
		FunctionCount: m.FunctionCount(),
		ImportCount:   len(m.imports),
		GlobalCount:   len(m.globalNames),
	}
	for i := 0; i < m.FunctionCount(); i++ {
		fn := m.FunctionAt(i)
		s.InstructionCount += fn.InstrCount()
		s.ConstantCount += fn.ConstCount()
	}
	return s
}
