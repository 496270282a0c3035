// Package codec implements the AOT bytecode codec: the binary freeze/thaw
// step between the compiler/loader and the VM described by §4.6. Encode
// takes the module graph the loader assembled (entry module first, every
// transitively imported module it resolved along the way) and produces a
// self-contained .impc image; Decode reverses it into the same shape of
// CompiledModule graph, ready to hand straight to a VirtualMachine via
// RunModule without touching the loader or re-parsing source.
//
// The in-memory CompiledModule graph remains the canonical runtime form;
// this package never executes anything, it only serializes.
package codec

import (
	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/object"
)

var magic = [4]byte{'I', 'M', 'P', 'C'}

const formatVersion uint16 = 1

var retshapeTags = map[bytecode.Retshape]uint8{
	bytecode.RetshapeScalar: 0,
	bytecode.RetshapeObject: 1,
	bytecode.RetshapeAny:    2,
}

var retshapeFromTag = map[uint8]bytecode.Retshape{
	0: bytecode.RetshapeScalar,
	1: bytecode.RetshapeObject,
	2: bytecode.RetshapeAny,
}

// Encode freezes modules into a .impc image. modules[0] must be the entry
// module; every module it (transitively) imports should also be present,
// since a decoded graph resolves FnHandle constants purely by module id
// without access to a loader or the original source tree.
func Encode(modules []*bytecode.CompiledModule) ([]byte, error) {
	w := &writer{}
	w.bytes(magic[:])
	w.u16(formatVersion)
	w.u32(uint32(len(modules)))
	for _, mod := range modules {
		if err := writeModule(w, mod); err != nil {
			return nil, err
		}
	}
	return w.buf.Bytes(), nil
}

// Decode thaws a .impc image into the module graph it encodes, with the
// entry module at index 0. Every module's id and every FnHandle constant's
// (module_id, function_id) pair are preserved exactly as encoded: Encode
// only ever sees an already-resolved graph whose ids were assigned once
// by the loader, so there is nothing to renumber.
func Decode(data []byte) ([]*bytecode.CompiledModule, error) {
	r := newReader(data)

	var got [4]byte
	for i := range got {
		b, err := r.u8()
		if err != nil {
			return nil, err
		}
		got[i] = b
	}
	if got != magic {
		return nil, errz.BadMagic()
	}

	version, err := r.u16()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, errz.UnsupportedVersion(version)
	}

	moduleCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	modules := make([]*bytecode.CompiledModule, moduleCount)
	for i := range modules {
		mod, err := readModule(r)
		if err != nil {
			return nil, err
		}
		modules[i] = mod
	}
	return modules, nil
}

func writeModule(w *writer, mod *bytecode.CompiledModule) error {
	w.u32(mod.ModuleID())
	w.str(mod.Path())

	globalCount := mod.GlobalCount()
	w.u32(uint32(globalCount))
	for i := 0; i < globalCount; i++ {
		w.str(mod.GlobalNameAt(i))
		if err := writeValue(w, mod.GetGlobal(i)); err != nil {
			return err
		}
	}

	imports := mod.Imports()
	w.u32(uint32(len(imports)))
	for _, imp := range imports {
		w.str(imp.Alias)
		w.str(imp.Path)
	}

	exportNames := mod.ExportNames()
	w.u32(uint32(len(exportNames)))
	for _, name := range exportNames {
		value, _ := mod.ExportedValue(name)
		w.str(name)
		if err := writeValue(w, value); err != nil {
			return err
		}
	}

	w.u32(uint32(mod.InitFnID()))

	w.u32(uint32(mod.FunctionCount()))
	for i := 0; i < mod.FunctionCount(); i++ {
		if err := writeFunction(w, mod.FunctionAt(i)); err != nil {
			return err
		}
	}
	return nil
}

// namedValue is one decoded (name, value) pair, used for both a module's
// globals and its exports before they can be applied to a freshly built
// CompiledModule (globals need slots declared first; exports need the
// module to exist at all).
type namedValue struct {
	name  string
	value object.Value
}

func readModule(r *reader) (*bytecode.CompiledModule, error) {
	moduleID, err := r.u32()
	if err != nil {
		return nil, err
	}
	path, err := r.str()
	if err != nil {
		return nil, err
	}

	globalCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	globals := make([]namedValue, globalCount)
	globalNames := make([]string, globalCount)
	for i := range globals {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		value, err := readValue(r)
		if err != nil {
			return nil, err
		}
		globals[i] = namedValue{name: name, value: value}
		globalNames[i] = name
	}

	importCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	imports := make([]bytecode.Import, importCount)
	for i := range imports {
		alias, err := r.str()
		if err != nil {
			return nil, err
		}
		impPath, err := r.str()
		if err != nil {
			return nil, err
		}
		imports[i] = bytecode.Import{Alias: alias, Path: impPath}
	}

	exportCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	exports := make([]namedValue, exportCount)
	for i := range exports {
		name, err := r.str()
		if err != nil {
			return nil, err
		}
		value, err := readValue(r)
		if err != nil {
			return nil, err
		}
		exports[i] = namedValue{name: name, value: value}
	}

	initFnID, err := r.u32()
	if err != nil {
		return nil, err
	}

	funcCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	functions := make([]*bytecode.CompiledFunction, funcCount)
	for i := range functions {
		fn, err := readFunction(r, moduleID, i, int(globalCount))
		if err != nil {
			return nil, err
		}
		functions[i] = fn
	}

	mod := bytecode.NewCompiledModule(bytecode.CompiledModuleParams{
		Path:        path,
		Functions:   functions,
		GlobalNames: globalNames,
		Imports:     imports,
		InitFnID:    int(initFnID),
	})
	mod.SetModuleID(moduleID)

	for i, g := range globals {
		mod.SetGlobal(i, g.value)
	}
	for _, e := range exports {
		mod.Export(e.name, e.value)
	}

	return mod, nil
}
