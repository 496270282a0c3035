// Package dis supports analysis of Imp-Core bytecode by disassembling a
// compiled function's flat instruction stream into a human-readable table,
// for the "imp dump-ir" command.
package dis

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/internal/table"
	"github.com/OranPie/imp/op"
)

// Instruction represents one disassembled instruction and its operands,
// annotated with a human-readable rendering of what it addresses.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operands   string
	Annotation string
}

// Disassemble returns a parsed representation of fn's instruction stream.
// Offset is the instruction index, since the flat IR has no notion of a
// byte offset the way a variable-width bytecode does.
func Disassemble(fn *bytecode.CompiledFunction) ([]Instruction, error) {
	instructions := make([]Instruction, 0, fn.InstrCount())
	for pc := 0; pc < fn.InstrCount(); pc++ {
		instr := fn.InstrAt(pc)
		instructions = append(instructions, Instruction{
			Offset:     pc,
			Name:       instr.Op.String(),
			Opcode:     instr.Op,
			Operands:   formatOperands(fn, instr),
			Annotation: annotate(fn, instr),
		})
	}
	return instructions, nil
}

func slotName(raw int) string {
	space, index := bytecode.DecodeSlot(raw)
	var prefix string
	switch space {
	case bytecode.SlotArg:
		prefix = "arg"
	case bytecode.SlotLocal:
		prefix = "local"
	case bytecode.SlotRet:
		prefix = "return"
	case bytecode.SlotErr:
		prefix = "err"
	case bytecode.SlotGlobal:
		prefix = "global"
	default:
		prefix = "slot"
	}
	return fmt.Sprintf("%s:%d", prefix, index)
}

func formatOperands(fn *bytecode.CompiledFunction, instr bytecode.Instr) string {
	switch instr.Op {
	case op.Const:
		return fmt.Sprintf("%s <- const:%d", slotName(instr.Out), instr.Const)
	case op.Move:
		return fmt.Sprintf("%s <- %s", slotName(instr.Out), slotName(instr.A))
	case op.Add, op.Sub, op.Mul, op.Div,
		op.Eq, op.Neq, op.Lt, op.Le, op.Gt, op.Ge,
		op.StrConcat:
		return fmt.Sprintf("%s <- %s, %s", slotName(instr.Out), slotName(instr.A), slotName(instr.B))
	case op.StrLen:
		return fmt.Sprintf("%s <- %s", slotName(instr.Out), slotName(instr.A))
	case op.Jump:
		return fmt.Sprintf("pc=%d", instr.PC)
	case op.Br:
		return fmt.Sprintf("%s ? pc=%d : pc=%d", slotName(instr.A), instr.PC, instr.PC2)
	case op.Exit, op.TryPop:
		return ""
	case op.Throw:
		if instr.MsgIsSlot {
			return fmt.Sprintf("code=const:%d msg=%s", instr.Const, slotName(instr.A))
		}
		return fmt.Sprintf("code=const:%d msg=const:%d", instr.Const, instr.Const2)
	case op.TryPush:
		return fmt.Sprintf("handler=pc:%d", instr.PC)
	case op.Invoke:
		args := make([]string, len(instr.Args))
		for i, a := range instr.Args {
			args[i] = slotName(a)
		}
		return fmt.Sprintf("%s <- call %s(%s)", slotName(instr.Out), slotName(instr.A), strings.Join(args, ", "))
	case op.ObjNew:
		return fmt.Sprintf("%s <- {}", slotName(instr.Out))
	case op.ObjSet:
		return fmt.Sprintf("%s <- %s[const:%d] = %s", slotName(instr.Out), slotName(instr.A), instr.Const, slotName(instr.B))
	case op.ObjGet, op.ObjHas:
		return fmt.Sprintf("%s <- %s[const:%d]", slotName(instr.Out), slotName(instr.A), instr.Const)
	case op.HostPrint:
		return slotName(instr.A)
	case op.ImportModule:
		return fmt.Sprintf("alias=const:%d path=const:%d", instr.Const, instr.Const2)
	case op.ModExport:
		return fmt.Sprintf("name=const:%d value=%s", instr.Const, slotName(instr.A))
	default:
		return ""
	}
}

func annotate(fn *bytecode.CompiledFunction, instr bytecode.Instr) string {
	switch instr.Op {
	case op.Const:
		if instr.Const < fn.ConstCount() {
			return fn.ConstAt(instr.Const).Inspect()
		}
	case op.Throw:
		if !instr.MsgIsSlot && instr.Const2 < fn.ConstCount() {
			return fn.ConstAt(instr.Const2).Inspect()
		}
	case op.ObjSet, op.ObjGet, op.ObjHas:
		if instr.Const < fn.ConstCount() {
			return fn.ConstAt(instr.Const).Inspect()
		}
	case op.ImportModule, op.ModExport:
		if instr.Const < fn.ConstCount() {
			return fn.ConstAt(instr.Const).Inspect()
		}
	}
	return ""
}

func bold(s string) string {
	return color.New(color.Bold).Sprint(s)
}

func yellow(s string) string {
	return color.New(color.FgYellow).Sprint(s)
}

// Print renders instructions as a box-drawing table to writer.
func Print(instructions []Instruction, writer io.Writer) {
	var rows [][]string
	for _, instr := range instructions {
		rows = append(rows, []string{
			fmt.Sprintf("%d", instr.Offset),
			bold(instr.Name),
			instr.Operands,
			yellow(instr.Annotation),
		})
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERANDS", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignLeft,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(rows).
		Render()
}

// PrintFunction disassembles and prints a single function, labeled with
// its name.
func PrintFunction(fn *bytecode.CompiledFunction, writer io.Writer) error {
	instructions, err := Disassemble(fn)
	if err != nil {
		return err
	}
	fmt.Fprintf(writer, "%s %s\n", bold("function"), fn.Name())
	Print(instructions, writer)
	return nil
}

// PrintModule disassembles and prints every function in mod, in id order.
func PrintModule(mod *bytecode.CompiledModule, writer io.Writer) error {
	for i := 0; i < mod.FunctionCount(); i++ {
		if i > 0 {
			fmt.Fprintln(writer)
		}
		if err := PrintFunction(mod.FunctionAt(i), writer); err != nil {
			return err
		}
	}
	return nil
}
