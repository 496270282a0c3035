package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OranPie/imp/ast"
	"github.com/OranPie/imp/parser"
)

func TestParseSimpleCall(t *testing.T) {
	prog, err := parser.Parse(`#call core::const out=local::a value=2;`, "t.imp")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 1)

	call, ok := prog.Statements[0].(*ast.CallStmt)
	require.True(t, ok)
	assert.Equal(t, []string{"core", "const"}, call.Target.Segments)
	assert.True(t, call.Target.IsCore())
	require.Len(t, call.Args, 2)
	assert.Equal(t, "out", call.Args[0].Key)
	ref, ok := call.Args[0].Value.(*ast.RefAtom)
	require.True(t, ok)
	assert.Equal(t, "local", ref.Namespace)
	assert.Equal(t, "a", ref.Name)

	num, ok := call.Args[1].Value.(*ast.NumberAtom)
	require.True(t, ok)
	assert.Equal(t, float64(2), num.Value)
}

func TestParseAnnotation(t *testing.T) {
	prog, err := parser.Parse(`#call @safe core::div a=1 b=0 out=local::q;`, "t.imp")
	require.NoError(t, err)
	call := prog.Statements[0].(*ast.CallStmt)
	assert.True(t, call.HasAnnotation("safe"))
	assert.False(t, call.HasAnnotation("unsafe"))
}

func TestParseMultipleStatements(t *testing.T) {
	src := `
#call core::const out=local::a value=2;
#call core::const out=local::b value=3;
#call core::add a=local::a b=local::b out=local::c;
#call core::host::print value=local::c;
`
	prog, err := parser.Parse(src, "t.imp")
	require.NoError(t, err)
	assert.Len(t, prog.Statements, 4)
}

func TestParseAtomVariants(t *testing.T) {
	src := `#call core::const out=local::a value=true;
#call core::const out=local::b value=false;
#call core::const out=local::c value=null;
#call core::const out=local::d value="hi";`
	prog, err := parser.Parse(src, "t.imp")
	require.NoError(t, err)
	require.Len(t, prog.Statements, 4)

	b := prog.Statements[0].(*ast.CallStmt).Args[1].Value.(*ast.BoolAtom)
	assert.True(t, b.Value)

	n := prog.Statements[2].(*ast.CallStmt).Args[1].Value.(*ast.NullAtom)
	assert.NotNil(t, n)

	s := prog.Statements[3].(*ast.CallStmt).Args[1].Value.(*ast.StringAtom)
	assert.Equal(t, "hi", s.Value)
}

func TestParseMissingSemicolonIsError(t *testing.T) {
	_, err := parser.Parse(`#call core::exit`, "t.imp")
	require.Error(t, err)
}

func TestParseMalformedTargetIsError(t *testing.T) {
	_, err := parser.Parse(`#call core value=1;`, "t.imp")
	require.Error(t, err)
}

func TestParseMissingEqualsIsError(t *testing.T) {
	_, err := parser.Parse(`#call core::const out local::a;`, "t.imp")
	require.Error(t, err)
}

func TestParseCollectsMultipleErrors(t *testing.T) {
	src := `#call core value=1;
#call core::const out local::a;
#call core::exit;`
	_, err := parser.Parse(src, "t.imp")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
}

func TestParseCrossModuleInvokeTarget(t *testing.T) {
	prog, err := parser.Parse(`#call math::sum2 a=1 b=2 out=local::r;`, "t.imp")
	require.NoError(t, err)
	call := prog.Statements[0].(*ast.CallStmt)
	assert.False(t, call.Target.IsCore())
	assert.Equal(t, []string{"math", "sum2"}, call.Target.Segments)
}
