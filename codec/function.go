package codec

import (
	"fmt"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/object"
)

func writeFunction(w *writer, fn *bytecode.CompiledFunction) error {
	w.str(fn.Name())

	argNames := fn.ArgNames()
	w.u32(uint32(len(argNames)))
	for _, name := range argNames {
		w.str(name)
	}

	w.u32(uint32(fn.LocalCount()))
	w.u32(uint32(fn.RetSlotCount()))
	w.u32(uint32(fn.ErrSlotCount()))

	tag, ok := retshapeTags[fn.Retshape()]
	if !ok {
		return fmt.Errorf("codec: unknown retshape %q", fn.Retshape())
	}
	w.u8(tag)

	w.u32(uint32(fn.ConstCount()))
	for i := 0; i < fn.ConstCount(); i++ {
		if err := writeValue(w, fn.ConstAt(i)); err != nil {
			return err
		}
	}

	w.u32(uint32(fn.InstrCount()))
	for i := 0; i < fn.InstrCount(); i++ {
		if err := writeInstr(w, fn.InstrAt(i)); err != nil {
			return err
		}
	}
	return nil
}

func readFunction(r *reader, moduleID uint32, id int, globalCount int) (*bytecode.CompiledFunction, error) {
	name, err := r.str()
	if err != nil {
		return nil, err
	}

	argCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	argNames := make([]string, argCount)
	for i := range argNames {
		if argNames[i], err = r.str(); err != nil {
			return nil, err
		}
	}

	localCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	retSlotCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	errSlotCount, err := r.u32()
	if err != nil {
		return nil, err
	}

	retshapeTag, err := r.u8()
	if err != nil {
		return nil, err
	}
	retshape, ok := retshapeFromTag[retshapeTag]
	if !ok {
		return nil, fmt.Errorf("codec: unknown retshape tag %d", retshapeTag)
	}

	constCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	consts := make([]object.Value, constCount)
	for i := range consts {
		if consts[i], err = readValue(r); err != nil {
			return nil, err
		}
	}

	instrCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	counts := slotCounts{
		arg:    int(argCount),
		local:  int(localCount),
		ret:    int(retSlotCount),
		err:    int(errSlotCount),
		global: globalCount,
	}
	code := make([]bytecode.Instr, instrCount)
	for i := range code {
		offset := r.off
		if code[i], err = readInstr(r); err != nil {
			return nil, err
		}
		if err := validateInstrSlots(code[i], offset, counts); err != nil {
			return nil, err
		}
	}

	return bytecode.NewCompiledFunction(bytecode.CompiledFunctionParams{
		ID:           id,
		Name:         name,
		Code:         code,
		Consts:       consts,
		ArgNames:     argNames,
		LocalCount:   int(localCount),
		ArgCount:     int(argCount),
		RetSlotCount: int(retSlotCount),
		ErrSlotCount: int(errSlotCount),
		Retshape:     retshape,
		ModuleID:     moduleID,
	}), nil
}
