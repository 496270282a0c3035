// Package loader resolves "core::import" statements into CompiledModule
// graphs: it canonicalizes import paths, compiles source it hasn't seen
// before, and caches the result for reuse across the lifetime of one VM.
//
// The loader never runs a module's initializer itself — that requires a
// VM frame, which the loader doesn't own. It asks the Runner supplied at
// construction to do it, keeping the loader/VM dependency one-directional
// (loader has no import of the vm package) even though the runtime
// behavior is mutually recursive (a module's init may itself import).
package loader

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/compiler"
	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/parser"
)

// Runner executes a freshly compiled module's initializer to completion.
// Implemented by the vm package; a failure here is the compiled module's
// own doing (an unhandled throw, a structural bug) and is returned as-is.
type Runner interface {
	RunInit(mod *bytecode.CompiledModule) error
}

// entry is one loader cache slot. A slot with loading=true and module=nil
// is the placeholder §4.3 step 3 inserts before running a module's
// initializer, so a self-import (directly or through a longer cycle) is
// detected instead of recursing forever.
type entry struct {
	loading bool
	module  *bytecode.CompiledModule
}

// Loader is the per-VM cache and resolver described by §4.3. It is not
// safe for concurrent use — per §5, the loader cache is owned exclusively
// by the one VM driving it.
type Loader struct {
	runner Runner
	log    zerolog.Logger

	cache  map[string]*entry
	nextID uint32
}

// New creates a Loader that delegates initializer execution to runner.
// The zero Logger (zerolog.Nop()) is used if log is not overridden via
// WithLogger.
func New(runner Runner) *Loader {
	return &Loader{
		runner: runner,
		log:    zerolog.Nop(),
		cache:  map[string]*entry{},
		nextID: 1, // module id 0 is reserved for "not yet assigned"
	}
}

// WithLogger returns l configured to log resolution, cache hits, and
// cycle detection at debug level.
func (l *Loader) WithLogger(log zerolog.Logger) *Loader {
	l.log = log
	return l
}

// LoadEntry compiles and runs the root module at path, with no importer
// to canonicalize against. Used by the CLI/VM to start a program.
func (l *Loader) LoadEntry(path string) (*bytecode.CompiledModule, error) {
	return l.resolve(filepath.Clean(path))
}

// Resolve implements §4.3 steps 1-4 for one ImportModule(path) executed
// inside importerPath's initializer, short of binding the result into the
// importer's global table — that's the caller's job, since only the VM
// knows the importing module's global table and the alias it used.
func (l *Loader) Resolve(importerPath, path string) (*bytecode.CompiledModule, error) {
	canonical := filepath.Join(filepath.Dir(importerPath), path)
	return l.resolve(filepath.Clean(canonical))
}

func (l *Loader) resolve(canonical string) (*bytecode.CompiledModule, error) {
	if e, ok := l.cache[canonical]; ok {
		if e.loading {
			l.log.Debug().Str("path", canonical).Msg("import cycle detected")
			return nil, &errz.ImportError{Path: canonical, Reason: errz.ImportReasonCycle}
		}
		l.log.Debug().Str("path", canonical).Msg("import cache hit")
		return e.module, nil
	}

	source, err := os.ReadFile(canonical)
	if err != nil {
		return nil, &errz.ImportError{Path: canonical, Reason: errz.ImportReasonNotFound, Err: err}
	}

	program, err := parser.Parse(string(source), canonical)
	if err != nil {
		return nil, &errz.ImportError{Path: canonical, Reason: errz.ImportReasonFailed, Err: err}
	}

	mod, err := compiler.Compile(program, canonical)
	if err != nil {
		return nil, &errz.ImportError{Path: canonical, Reason: errz.ImportReasonFailed, Err: err}
	}

	id := l.nextID
	l.nextID++
	mod.SetModuleID(id)

	l.cache[canonical] = &entry{loading: true}
	l.log.Debug().Str("path", canonical).Uint32("module_id", id).Msg("running module initializer")

	if err := l.runner.RunInit(mod); err != nil {
		delete(l.cache, canonical)
		switch err.(type) {
		case *errz.ImportError, *errz.VmError:
			// already a typed, self-describing error: an unhandled throw
			// is the module's own failure, not a failure to import it.
			return nil, err
		default:
			return nil, &errz.ImportError{Path: canonical, Reason: errz.ImportReasonFailed, Err: err}
		}
	}

	l.cache[canonical] = &entry{module: mod}
	return mod, nil
}

// BindExports copies every name mod has exported into importer's global
// table under "alias::name", declaring the slot if it doesn't already
// exist. Step 4 of §4.3.
func BindExports(importer *bytecode.CompiledModule, alias string, mod *bytecode.CompiledModule) {
	for _, name := range mod.ExportNames() {
		value, ok := mod.ExportedValue(name)
		if !ok {
			continue
		}
		slot := importer.DeclareGlobal(fmt.Sprintf("%s::%s", alias, name))
		importer.SetGlobal(slot, value)
	}
}
