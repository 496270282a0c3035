package vm

import "github.com/OranPie/imp/object"

// Run is the package-level convenience entrypoint the CLI uses: build a
// fresh VirtualMachine, load and execute path, and return its final
// value. Mirrors the teacher's own top-level Run helper in shape, though
// this package's VM owns its loader rather than taking compiled code
// directly.
func Run(path string, opts ...Option) (object.Value, error) {
	return New(opts...).Run(path)
}
