package ast

import (
	"testing"

	"github.com/OranPie/imp/internal/token"
)

func TestCallStmtString(t *testing.T) {
	call := &CallStmt{
		Annotations: []*Annotation{{Name: "safe"}},
		Target:      &Target{Segments: []string{"core", "add"}},
		Args: []*KeyValue{
			{Key: "a", Value: &RefAtom{Namespace: "local", Name: "x"}},
			{Key: "b", Value: &NumberAtom{Text: "2", Value: 2}},
		},
	}
	expected := `#call @safe core::add a=local::x b=2;`
	if got := call.String(); got != expected {
		t.Errorf("CallStmt.String() = %q, want %q", got, expected)
	}
}

func TestCallStmtArgAndHasAnnotation(t *testing.T) {
	call := &CallStmt{
		Annotations: []*Annotation{{Name: "safe"}},
		Args: []*KeyValue{
			{Key: "out", Value: &NullAtom{}},
		},
	}
	if kv := call.Arg("out"); kv == nil {
		t.Errorf("Arg(%q) = nil, want a KeyValue", "out")
	}
	if kv := call.Arg("missing"); kv != nil {
		t.Errorf("Arg(%q) = %v, want nil", "missing", kv)
	}
	if !call.HasAnnotation("safe") {
		t.Errorf("HasAnnotation(%q) = false, want true", "safe")
	}
	if call.HasAnnotation("unsafe") {
		t.Errorf("HasAnnotation(%q) = true, want false", "unsafe")
	}
}

func TestTargetIsCore(t *testing.T) {
	core := &Target{Segments: []string{"core", "exit"}}
	if !core.IsCore() {
		t.Errorf("IsCore() = false, want true for %q", core.String())
	}
	alias := &Target{Segments: []string{"mathlib", "square"}}
	if alias.IsCore() {
		t.Errorf("IsCore() = true, want false for %q", alias.String())
	}
}

func TestBadExpr(t *testing.T) {
	from := token.Position{Line: 1, Column: 5, File: "test.imp"}
	to := token.Position{Line: 1, Column: 15, File: "test.imp"}

	bad := &BadExpr{From: from, To: to}

	if bad.Pos() != from {
		t.Errorf("BadExpr.Pos() = %v, want %v", bad.Pos(), from)
	}
	if bad.End() != to {
		t.Errorf("BadExpr.End() = %v, want %v", bad.End(), to)
	}
	expected := "<bad expression>"
	if bad.String() != expected {
		t.Errorf("BadExpr.String() = %q, want %q", bad.String(), expected)
	}

	var _ Expr = bad
}

func TestBadStmt(t *testing.T) {
	from := token.Position{Line: 2, Column: 1, File: "test.imp"}
	to := token.Position{Line: 2, Column: 20, File: "test.imp"}

	bad := &BadStmt{From: from, To: to}

	if bad.Pos() != from {
		t.Errorf("BadStmt.Pos() = %v, want %v", bad.Pos(), from)
	}
	if bad.End() != to {
		t.Errorf("BadStmt.End() = %v, want %v", bad.End(), to)
	}
	expected := "<bad statement>"
	if bad.String() != expected {
		t.Errorf("BadStmt.String() = %q, want %q", bad.String(), expected)
	}

	var _ Stmt = bad
}

func TestProgramPosEndOnEmptyProgram(t *testing.T) {
	p := &Program{}
	if p.Pos() != token.NoPos {
		t.Errorf("Program.Pos() on empty program = %v, want %v", p.Pos(), token.NoPos)
	}
	if p.End() != token.NoPos {
		t.Errorf("Program.End() on empty program = %v, want %v", p.End(), token.NoPos)
	}
}
