package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/codec"
	"github.com/OranPie/imp/compiler"
	"github.com/OranPie/imp/dis"
	"github.com/OranPie/imp/parser"
)

func newDumpIRCmd() *cobra.Command {
	var strictBytecode bool
	cmd := &cobra.Command{
		Use:   "dump-ir <file.imp|file.impc>",
		Short: "Print a human-readable rendering of each function's IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dumpIR(args[0], strictBytecode)
		},
	}
	cmd.Flags().BoolVar(&strictBytecode, "strict-bytecode", cfg.StrictBytecode, "require the file extension to match its actual format")
	return cmd
}

func dumpIR(path string, strict bool) error {
	mod, err := loadModuleForInspection(path, strict)
	if err != nil {
		return err
	}
	return dis.PrintModule(mod, os.Stdout)
}

func loadModuleForInspection(path string, strict bool) (*bytecode.CompiledModule, error) {
	isBytecode, data, err := classifyInput(path, strict)
	if err != nil {
		return nil, err
	}

	if isBytecode {
		modules, err := codec.Decode(data)
		if err != nil {
			return nil, err
		}
		if len(modules) == 0 {
			return nil, fmt.Errorf("%s: .impc image has no modules", path)
		}
		return modules[0], nil
	}

	program, err := parser.Parse(string(data), path)
	if err != nil {
		return nil, err
	}
	return compiler.Compile(program, path)
}
