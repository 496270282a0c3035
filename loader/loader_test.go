package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OranPie/imp/bytecode"
	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/loader"
	"github.com/OranPie/imp/object"
	"github.com/OranPie/imp/op"
)

// fakeRunner stands in for the VM: it interprets the narrow subset of ops
// (const, move, import, mod::export) these tests' fixture modules use,
// recursing into the same loader for nested imports exactly as the real
// VM's ImportModule handler would.
type fakeRunner struct {
	loader *loader.Loader
}

func (r *fakeRunner) RunInit(mod *bytecode.CompiledModule) error {
	init := mod.FunctionAt(mod.InitFnID())
	locals := map[int]object.Value{}
	for i := 0; i < init.InstrCount(); i++ {
		instr := init.InstrAt(i)
		switch instr.Op {
		case op.Const:
			locals[instr.Out] = init.ConstAt(instr.Const)
		case op.Move:
			locals[instr.Out] = locals[instr.A]
		case op.ImportModule:
			alias := string(init.ConstAt(instr.Const).(object.Text))
			path := string(init.ConstAt(instr.Const2).(object.Text))
			imported, err := r.loader.Resolve(mod.Path(), path)
			if err != nil {
				return err
			}
			loader.BindExports(mod, alias, imported)
		case op.ModExport:
			name := string(init.ConstAt(instr.Const).(object.Text))
			mod.Export(name, locals[instr.A])
		}
	}
	return nil
}

func writeFixture(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func newLoader() (*loader.Loader, *fakeRunner) {
	r := &fakeRunner{}
	l := loader.New(r)
	r.loader = l
	return l, r
}

func TestLoadEntryCompilesAndRunsInitializer(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "main.imp", `
		#call core::const out=local::x value=1;
	`)
	l, _ := newLoader()
	mod, err := l.LoadEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), mod.ModuleID())
}

func TestResolveCachesByCanonicalPath(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.imp", `
		#call core::const out=local::x value=42;
		#call core::mod::export name="answer" value=local::x;
	`)
	importer := writeFixture(t, dir, "b.imp", `
		#call core::import alias="a" path="a.imp";
	`)

	l, _ := newLoader()
	first, err := l.Resolve(importer, "a.imp")
	require.NoError(t, err)
	second, err := l.Resolve(importer, "a.imp")
	require.NoError(t, err)
	assert.Same(t, first, second, "second resolve of the same canonical path must reuse the cached module")
}

func TestResolveBindsExportsIntoImporterGlobals(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "a.imp", `
		#call core::const out=local::x value=42;
		#call core::mod::export name="answer" value=local::x;
	`)
	entry := writeFixture(t, dir, "b.imp", `
		#call core::import alias="a" path="a.imp";
	`)

	l, _ := newLoader()
	mod, err := l.LoadEntry(entry)
	require.NoError(t, err)

	slot, ok := mod.GlobalSlot("a::answer")
	require.True(t, ok)
	assert.Equal(t, object.Num(42), mod.GetGlobal(slot))
}

func TestResolveDetectsImportCycle(t *testing.T) {
	dir := t.TempDir()
	entry := writeFixture(t, dir, "cycle.imp", `
		#call core::import alias="self" path="cycle.imp";
	`)

	l, _ := newLoader()
	_, err := l.LoadEntry(entry)
	require.Error(t, err)
	var importErr *errz.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, errz.ImportReasonCycle, importErr.Reason)
}

func TestResolveReportsMissingFileAsNotFound(t *testing.T) {
	dir := t.TempDir()
	l, _ := newLoader()
	_, err := l.Resolve(filepath.Join(dir, "importer.imp"), "missing.imp")
	require.Error(t, err)
	var importErr *errz.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.Equal(t, errz.ImportReasonNotFound, importErr.Reason)
}

func TestResolveRemovesPlaceholderOnInitializerFailure(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "bad.imp", `
		#call core::import alias="x" path="missing.imp";
	`)
	entry := writeFixture(t, dir, "main.imp", `
		#call core::import alias="bad" path="bad.imp";
	`)

	l, _ := newLoader()
	_, err := l.LoadEntry(entry)
	require.Error(t, err)

	// a second attempt should fail the same way, not report a cycle —
	// the failed load's placeholder must not survive.
	_, err = l.LoadEntry(entry)
	require.Error(t, err)
	var importErr *errz.ImportError
	require.ErrorAs(t, err, &importErr)
	assert.NotEqual(t, errz.ImportReasonCycle, importErr.Reason)
}
