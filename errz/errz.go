// Package errz defines the static-phase and runtime error types described
// by the language's error handling design: CompileError, ImportError, and
// DecodeError are fatal failures of a load that occur before any VM state
// exists; VmError carries a throw that unwound past the root frame.
//
// ParseError lives in the parser package, next to the code that raises it;
// the other four live here because the compiler, loader, codec, and vm
// packages raise them and a host embedding the VM wants one place to
// type-switch on. The compiler aggregates its CompileErrors with
// go-multierror.
package errz

import (
	"fmt"

	"github.com/OranPie/imp/internal/token"
)

// CompileError is a static-phase failure raised while lowering an AST into
// a CompiledModule.
type CompileError struct {
	Message  string
	Position token.Position
}

func (e *CompileError) Error() string {
	if e.Position.IsValid() {
		return fmt.Sprintf("compile error at %s:%d:%d: %s",
			e.Position.File, e.Position.LineNumber(), e.Position.ColumnNumber(), e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// ImportErrorReason classifies why an import failed.
type ImportErrorReason string

const (
	ImportReasonCycle    ImportErrorReason = "cycle"
	ImportReasonNotFound ImportErrorReason = "not_found"
	ImportReasonFailed   ImportErrorReason = "failed"
)

// ImportError is a static-phase failure raised by the module loader, either
// because of an import cycle or because loading the imported module failed.
type ImportError struct {
	Path   string
	Reason ImportErrorReason
	Err    error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import error: %s (%s): %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("import error: %s (%s)", e.Path, e.Reason)
}

func (e *ImportError) Unwrap() error { return e.Err }

// DecodeError is a static-phase failure raised while decoding a .impc
// binary module.
type DecodeError struct {
	Message string
	Offset  int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error at offset %d: %s", e.Offset, e.Message)
}

// Decoder error constructors, one per §4.6 decoder error kind.
func BadMagic() *DecodeError {
	return &DecodeError{Message: "bad magic number, expected \"IMPC\""}
}

func UnsupportedVersion(got uint16) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf("unsupported format version %d", got)}
}

func UnknownTag(offset int, tag byte) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf("unknown tag byte 0x%02x", tag), Offset: offset}
}

func UnexpectedEOF(offset int) *DecodeError {
	return &DecodeError{Message: "unexpected end of input", Offset: offset}
}

func IntegrityError(offset int, detail string) *DecodeError {
	return &DecodeError{Message: "integrity violation: " + detail, Offset: offset}
}

// VmError is a thrown error Object that unwound past the root frame. It is
// the only error domain that carries program-raised state rather than a
// static description.
type VmError struct {
	Code    string
	Message string
}

func (e *VmError) Error() string {
	return fmt.Sprintf("unhandled throw [%s]: %s", e.Code, e.Message)
}

// NewVmError builds a VmError from the code/msg pair carried by an error
// Object, as produced by Throw.
func NewVmError(code, msg string) *VmError {
	return &VmError{Code: code, Message: msg}
}
