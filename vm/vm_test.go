package vm_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OranPie/imp/object"
	"github.com/OranPie/imp/vm"
)

func writeProgram(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "main.imp")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func runCapture(t *testing.T, src string) (string, object.Value, error) {
	t.Helper()
	path := writeProgram(t, src)
	var out bytes.Buffer
	val, err := vm.Run(path, vm.WithStdout(&out))
	return out.String(), val, err
}

func TestRunPrintsSumOfTwoConstants(t *testing.T) {
	out, _, err := runCapture(t, `
		#call core::const out=local::a value=2;
		#call core::const out=local::b value=3;
		#call core::add a=local::a b=local::b out=local::c;
		#call core::host::print value=local::c;
	`)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestSafeDivByZeroPrintsNull(t *testing.T) {
	out, _, err := runCapture(t, `
		#call core::const out=local::a value=10;
		#call core::const out=local::b value=0;
		#call @safe core::div a=local::a b=local::b out=local::q;
		#call core::host::print value=local::q;
	`)
	require.NoError(t, err)
	assert.Equal(t, "null\n", out)
}

func TestObjGetMissingKeyOutput(t *testing.T) {
	out, _, err := runCapture(t, `
		#call core::obj::new out=local::o;
		#call core::obj::set obj=local::o key="k" value=1 out=local::o;
		#call core::obj::get obj=local::o key="missing" out=local::v;
		#call core::host::print value=local::v;
		#call core::obj::has obj=local::o key="k" out=local::h;
		#call core::host::print value=local::h;
	`)
	require.NoError(t, err)
	assert.Equal(t, "null\ntrue\n", out)
}

func TestStrLenCountsUnicodeCharactersNotBytes(t *testing.T) {
	out, _, err := runCapture(t, `
		#call core::const out=local::s value="héllo";
		#call core::str::len value=local::s out=local::n;
		#call core::host::print value=local::n;
	`)
	require.NoError(t, err)
	assert.Equal(t, "5\n", out)
}

func TestInvokeUserFunctionReturnsScalarSum(t *testing.T) {
	out, _, err := runCapture(t, `
		#call core::fn::begin name=main::sum2 args="a,b" retshape=scalar;
		#call core::add a=arg::a b=arg::b out=return::value;
		#call core::exit;
		#call core::fn::end;

		#call core::const out=local::x value=4;
		#call core::const out=local::y value=7;
		#call main::sum2 args="local::x,local::y" out=local::r;
		#call core::host::print value=local::r;
	`)
	require.NoError(t, err)
	assert.Equal(t, "11\n", out)
}

func TestUnhandledThrowSurfacesAsError(t *testing.T) {
	_, _, err := runCapture(t, `
		#call core::throw code="boom" msg="went wrong";
	`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestTryPushCatchesThrownErrorInHandler(t *testing.T) {
	out, _, err := runCapture(t, `
		#call core::try::push handler="handler";
		#call core::throw code="boom" msg="caught me";
		#call core::jump to="after";
		#call core::label name="handler";
		#call core::obj::get obj=err::e key="msg" out=local::m;
		#call core::host::print value=local::m;
		#call core::label name="after";
	`)
	require.NoError(t, err)
	assert.Contains(t, out, "caught me")
}

func TestDirectThreadedTierMatchesInterpreterOnLoop(t *testing.T) {
	src := `
		#call core::fn::begin name=main::count args="n" retshape=scalar;
		#call core::const out=local::acc value=0;
		#call core::const out=local::one value=1;
		#call core::label name="top";
		#call core::eq a=local::acc b=arg::n out=local::done;
		#call core::br cond=local::done then="finish" else="body";
		#call core::label name="body";
		#call core::add a=local::acc b=local::one out=local::acc;
		#call core::jump to="top";
		#call core::label name="finish";
		#call core::move dst=return::value src=local::acc;
		#call core::exit;
		#call core::fn::end;

		#call core::const out=local::n value=10000;
		#call main::count args="local::n" out=local::r;
		#call core::host::print value=local::r;
	`

	path := writeProgram(t, src)

	var jitOut bytes.Buffer
	_, err := vm.Run(path, vm.WithStdout(&jitOut))
	require.NoError(t, err)

	t.Setenv("IMP_NO_JIT", "1")
	var interpOut bytes.Buffer
	_, err = vm.Run(path, vm.WithStdout(&interpOut))
	require.NoError(t, err)

	assert.Equal(t, "10000\n", jitOut.String())
	assert.Equal(t, jitOut.String(), interpOut.String())
}

func TestImportRunsInitializerOnceAcrossRepeatedImports(t *testing.T) {
	dir := t.TempDir()
	bPath := filepath.Join(dir, "b.imp")
	require.NoError(t, os.WriteFile(bPath, []byte(`
		#call core::host::print value="B-init";
		#call core::const out=local::x value=1;
		#call core::mod::export name="x" value=local::x;
	`), 0o644))

	aPath := filepath.Join(dir, "a.imp")
	require.NoError(t, os.WriteFile(aPath, []byte(`
		#call core::import alias="b" path="b.imp";
		#call core::import alias="b2" path="b.imp";
	`), 0o644))

	var out bytes.Buffer
	_, err := vm.Run(aPath, vm.WithStdout(&out))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out.String(), "B-init"))
}
