package vm

import (
	"io"

	"github.com/rs/zerolog"
)

// Option configures a VirtualMachine at construction, mirroring the
// teacher's own functional-options pattern in vm/options.go.
type Option func(*VirtualMachine)

// WithStdout sets the writer host::print writes to. Defaults to
// os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(vm *VirtualMachine) { vm.stdout = w }
}

// WithLogger sets the logger used for frame-push/throw/import tracing at
// debug level. Defaults to zerolog.Nop().
func WithLogger(log zerolog.Logger) Option {
	return func(vm *VirtualMachine) { vm.log = log }
}
