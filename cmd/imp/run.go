package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/OranPie/imp/codec"
	"github.com/OranPie/imp/vm"
)

func newRunCmd() *cobra.Command {
	var strictBytecode bool
	cmd := &cobra.Command{
		Use:   "run <file.imp|file.impc>",
		Short: "Compile or decode a program, then execute it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFile(args[0], strictBytecode)
		},
	}
	cmd.Flags().BoolVar(&strictBytecode, "strict-bytecode", cfg.StrictBytecode, "require the file extension to match its actual format")
	return cmd
}

func runFile(path string, strict bool) error {
	isBytecode, data, err := classifyInput(path, strict)
	if err != nil {
		return err
	}

	opts := []vm.Option{vm.WithStdout(os.Stdout), vm.WithLogger(logOutput)}

	if isBytecode {
		modules, err := codec.Decode(data)
		if err != nil {
			return err
		}
		if len(modules) == 0 {
			return fmt.Errorf("%s: .impc image has no modules", path)
		}
		_, err = vm.New(opts...).RunModule(modules[0])
		return err
	}

	_, err = vm.Run(path, opts...)
	return err
}
