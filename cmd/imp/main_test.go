package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logOutput = zerolog.Nop()
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fnErr := fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	return buf.String(), fnErr
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const sumProgram = `
#call core::fn::begin name=main::sum2 args="a,b" retshape=scalar;
#call core::add a=arg::a b=arg::b out=return::value;
#call core::exit;
#call core::fn::end;

#call core::const out=local::x value=4;
#call core::const out=local::y value=7;
#call main::sum2 args="local::x,local::y" out=local::r;
#call core::host::print value=local::r;
`

func TestRunFileExecutesSource(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.imp", sumProgram)

	out, err := captureStdout(t, func() error { return runFile(path, false) })
	require.NoError(t, err)
	assert.Equal(t, "11\n", out)
}

func TestBuildThenRunBytecode(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.imp", sumProgram)
	outPath := filepath.Join(dir, "main.impc")

	_, err := captureStdout(t, func() error { return buildFile(path, outPath) })
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, impcMagic))

	out, err := captureStdout(t, func() error { return runFile(outPath, false) })
	require.NoError(t, err)
	assert.Equal(t, "11\n", out)
}

func TestRunFileStrictBytecodeRejectsMismatchedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.impc", sumProgram)

	err := runFile(path, true)
	require.Error(t, err)
}

func TestDumpIRPrintsOpcodeTable(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.imp", sumProgram)

	out, err := captureStdout(t, func() error { return dumpIR(path, false) })
	require.NoError(t, err)
	assert.Contains(t, out, "CONST")
	assert.Contains(t, out, "ADD")
	assert.Contains(t, out, "OFFSET")
}

func TestRunFileSurfacesUnhandledThrow(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "main.imp", `#call core::throw code="boom" msg="went wrong";`)

	_, err := captureStdout(t, func() error { return runFile(path, false) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
