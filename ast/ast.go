// Package ast defines the abstract syntax tree produced by the parser for
// the #call statement grammar.
package ast

import "github.com/OranPie/imp/internal/token"

// Node represents a portion of the syntax tree. All nodes have position
// information indicating where they appear in the source code.
type Node interface {
	// Pos returns the position of the first character belonging to the node.
	Pos() token.Position

	// End returns the position of the first character immediately after the node.
	End() token.Position

	// String returns a human friendly representation of the Node. This should
	// be similar to the original source code, but not necessarily identical.
	String() string
}

// Stmt represents a statement node. Every Imp-Core source file is a flat
// sequence of statements, each one a single #call.
type Stmt interface {
	Node
	stmtNode()
}

// Expr represents an expression node: the Atom value on the right of a
// key=value argument to a #call (a literal or a namespace::name ref).
type Expr interface {
	Node
	exprNode()
}

// Program is the root node: an ordered sequence of top-level statements.
type Program struct {
	Statements []Stmt
}

func (p *Program) Pos() token.Position {
	if len(p.Statements) == 0 {
		return token.NoPos
	}
	return p.Statements[0].Pos()
}

func (p *Program) End() token.Position {
	if len(p.Statements) == 0 {
		return token.NoPos
	}
	return p.Statements[len(p.Statements)-1].End()
}

func (p *Program) String() string {
	var out string
	for _, s := range p.Statements {
		out += s.String() + "\n"
	}
	return out
}

// Annotation is an "@ident" marker preceding a #call's target.
type Annotation struct {
	Name string
	From token.Position
	To   token.Position
}

func (a *Annotation) Pos() token.Position { return a.From }
func (a *Annotation) End() token.Position { return a.To }
func (a *Annotation) String() string      { return "@" + a.Name }

// Target is the "core::seg(::seg)*" or "alias::name" naming a #call's
// destination. Segments holds the "::"-separated path verbatim; the
// compiler decides whether it is a core op or a cross-namespace invoke.
type Target struct {
	Segments []string
	From     token.Position
	To       token.Position
}

func (t *Target) Pos() token.Position { return t.From }
func (t *Target) End() token.Position { return t.To }
func (t *Target) String() string {
	out := t.Segments[0]
	for _, seg := range t.Segments[1:] {
		out += "::" + seg
	}
	return out
}

// IsCore reports whether this target begins with the "core" namespace.
func (t *Target) IsCore() bool {
	return len(t.Segments) > 0 && t.Segments[0] == "core"
}

// KeyValue is one "key=value" pair attached to a #call statement.
type KeyValue struct {
	Key   string
	Value Expr
	From  token.Position
	To    token.Position
}

func (kv *KeyValue) Pos() token.Position { return kv.From }
func (kv *KeyValue) End() token.Position { return kv.To }
func (kv *KeyValue) String() string      { return kv.Key + "=" + kv.Value.String() }

// CallStmt is the sole statement shape of the language:
// #call [@anno ...] target key=value ... ;
type CallStmt struct {
	Annotations []*Annotation
	Target      *Target
	Args        []*KeyValue
	From        token.Position
	To          token.Position
}

func (c *CallStmt) stmtNode() {}

func (c *CallStmt) Pos() token.Position { return c.From }
func (c *CallStmt) End() token.Position { return c.To }

func (c *CallStmt) String() string {
	out := "#call "
	for _, a := range c.Annotations {
		out += a.String() + " "
	}
	out += c.Target.String()
	for _, arg := range c.Args {
		out += " " + arg.String()
	}
	return out + ";"
}

// Arg looks up a key=value argument by key, returning nil if absent.
func (c *CallStmt) Arg(key string) *KeyValue {
	for _, kv := range c.Args {
		if kv.Key == key {
			return kv
		}
	}
	return nil
}

// HasAnnotation reports whether this statement carries the named
// annotation (e.g. "safe" for "@safe").
func (c *CallStmt) HasAnnotation(name string) bool {
	for _, a := range c.Annotations {
		if a.Name == name {
			return true
		}
	}
	return false
}

// NullAtom is the literal "null".
type NullAtom struct {
	From token.Position
	To   token.Position
}

func (a *NullAtom) exprNode()           {}
func (a *NullAtom) Pos() token.Position { return a.From }
func (a *NullAtom) End() token.Position { return a.To }
func (a *NullAtom) String() string      { return "null" }

// BoolAtom is the literal "true" or "false".
type BoolAtom struct {
	Value bool
	From  token.Position
	To    token.Position
}

func (a *BoolAtom) exprNode()           {}
func (a *BoolAtom) Pos() token.Position { return a.From }
func (a *BoolAtom) End() token.Position { return a.To }
func (a *BoolAtom) String() string {
	if a.Value {
		return "true"
	}
	return "false"
}

// NumberAtom is a numeric literal, retained as source text as well as its
// parsed float64 value so the compiler can report the original text on error.
type NumberAtom struct {
	Text  string
	Value float64
	From  token.Position
	To    token.Position
}

func (a *NumberAtom) exprNode()           {}
func (a *NumberAtom) Pos() token.Position { return a.From }
func (a *NumberAtom) End() token.Position { return a.To }
func (a *NumberAtom) String() string      { return a.Text }

// StringAtom is a double-quoted string literal with escapes already resolved.
type StringAtom struct {
	Value string
	From  token.Position
	To    token.Position
}

func (a *StringAtom) exprNode()           {}
func (a *StringAtom) Pos() token.Position { return a.From }
func (a *StringAtom) End() token.Position { return a.To }
func (a *StringAtom) String() string      { return "\"" + a.Value + "\"" }

// RefAtom is a "namespace::name" reference atom, resolved to a slot index
// by the compiler.
type RefAtom struct {
	Namespace string
	Name      string
	From      token.Position
	To        token.Position
}

func (a *RefAtom) exprNode()           {}
func (a *RefAtom) Pos() token.Position { return a.From }
func (a *RefAtom) End() token.Position { return a.To }
func (a *RefAtom) String() string      { return a.Namespace + "::" + a.Name }

// BadExpr represents an expression containing syntax errors. It is used by
// the parser to continue parsing after an error, allowing subsequent
// errors to be detected without giving up.
type BadExpr struct {
	From token.Position
	To   token.Position
}

func (x *BadExpr) exprNode() {}

func (x *BadExpr) Pos() token.Position { return x.From }
func (x *BadExpr) End() token.Position { return x.To }
func (x *BadExpr) String() string      { return "<bad expression>" }

// BadStmt represents a statement containing syntax errors. It is used by
// the parser to continue parsing after an error, allowing subsequent
// errors to be detected without giving up.
type BadStmt struct {
	From token.Position
	To   token.Position
}

func (x *BadStmt) stmtNode() {}

func (x *BadStmt) Pos() token.Position { return x.From }
func (x *BadStmt) End() token.Position { return x.To }
func (x *BadStmt) String() string      { return "<bad statement>" }
