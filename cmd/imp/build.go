package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OranPie/imp/codec"
	"github.com/OranPie/imp/vm"
)

func newBuildCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "build <file.imp>",
		Short: "Compile and freeze a program into a .impc image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return buildFile(args[0], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output .impc path (defaults to the input path with a .impc extension)")
	return cmd
}

func buildFile(path, outPath string) error {
	if outPath == "" {
		outPath = defaultImpcPath(path)
	}

	// Running the program to completion is how the loader resolves every
	// core::import it reaches: each import's initializer executes once,
	// exactly as it would under "imp run", and the resulting modules are
	// what gets frozen.
	machine := vm.New(vm.WithStdout(os.Stdout), vm.WithLogger(logOutput))
	if _, err := machine.Run(path); err != nil {
		return err
	}

	data, err := codec.Encode(machine.Modules())
	if err != nil {
		return err
	}

	return os.WriteFile(outPath, data, 0o644)
}

func defaultImpcPath(path string) string {
	if strings.HasSuffix(path, ".imp") {
		return strings.TrimSuffix(path, ".imp") + ".impc"
	}
	return path + ".impc"
}
