// Package parser turns a token stream into an ast.Program for the #call
// statement grammar.
package parser

import (
	"fmt"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/OranPie/imp/ast"
	"github.com/OranPie/imp/internal/lexer"
	"github.com/OranPie/imp/internal/token"
)

// ParseError is a single static-phase syntax error with a source location.
type ParseError struct {
	Message  string
	Position token.Position
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d:%d: parse error: %s", e.Position.File,
		e.Position.LineNumber(), e.Position.ColumnNumber(), e.Message)
}

// Parser reads a #call-grammar token stream and builds an *ast.Program. It
// collects every ParseError it encounters rather than stopping at the
// first one, resynchronizing at the next statement boundary.
type Parser struct {
	lex  *lexer.Lexer
	cur  token.Token
	peek token.Token

	errs *multierror.Error
}

// New creates a Parser over the given source text. filename tags error
// locations and may be empty.
func New(source string, filename string) (*Parser, error) {
	l := lexer.New(source, filename)
	p := &Parser{lex: l}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	p.cur = p.peek
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.peek = tok
	return nil
}

func (p *Parser) addError(format string, args ...any) {
	p.errs = multierror.Append(p.errs, &ParseError{
		Message:  fmt.Sprintf(format, args...),
		Position: p.cur.StartPosition,
	})
}

// ParseProgram parses the full token stream and returns the resulting AST.
// If one or more ParseErrors were encountered, it returns a non-nil error
// (a *multierror.Error aggregating every error found) alongside whatever
// partial AST could be recovered.
func (p *Parser) ParseProgram() (*ast.Program, error) {
	prog := &ast.Program{}
	for p.cur.Type != token.EOF {
		if p.cur.Type != token.HASHCALL {
			p.addError("expected '#call', got %q", p.cur.Literal)
			p.synchronize()
			continue
		}
		stmt := p.parseCallStmt()
		prog.Statements = append(prog.Statements, stmt)
	}
	if p.errs != nil {
		return prog, p.errs.ErrorOrNil()
	}
	return prog, nil
}

// synchronize skips tokens until the next statement boundary (past a ';'
// or at EOF), so one bad statement doesn't cascade into spurious errors.
func (p *Parser) synchronize() {
	for p.cur.Type != token.EOF && p.cur.Type != token.SEMICOLON {
		if err := p.advance(); err != nil {
			p.addError("%s", err.Error())
			return
		}
	}
	if p.cur.Type == token.SEMICOLON {
		p.advance() //nolint:errcheck
	}
}

func (p *Parser) parseCallStmt() ast.Stmt {
	start := p.cur.StartPosition
	if err := p.advance(); err != nil { // consume "#call"
		p.addError("%s", err.Error())
		return &ast.BadStmt{From: start, To: start}
	}

	var annos []*ast.Annotation
	for p.cur.Type == token.AT {
		anno, err := p.parseAnnotation()
		if err != nil {
			p.addError("%s", err.Error())
			p.synchronize()
			return &ast.BadStmt{From: start, To: p.cur.StartPosition}
		}
		annos = append(annos, anno)
	}

	target, err := p.parseTarget()
	if err != nil {
		p.addError("%s", err.Error())
		p.synchronize()
		return &ast.BadStmt{From: start, To: p.cur.StartPosition}
	}

	var args []*ast.KeyValue
	for p.cur.Type == token.IDENT {
		kv, err := p.parseKeyValue()
		if err != nil {
			p.addError("%s", err.Error())
			p.synchronize()
			return &ast.BadStmt{From: start, To: p.cur.StartPosition}
		}
		args = append(args, kv)
	}

	if p.cur.Type != token.SEMICOLON {
		p.addError("expected ';' to terminate statement, got %q", p.cur.Literal)
		end := p.cur.StartPosition
		p.synchronize()
		return &ast.BadStmt{From: start, To: end}
	}
	end := p.cur.EndPosition
	if err := p.advance(); err != nil { // consume ';'
		p.addError("%s", err.Error())
	}

	return &ast.CallStmt{
		Annotations: annos,
		Target:      target,
		Args:        args,
		From:        start,
		To:          end,
	}
}

func (p *Parser) parseAnnotation() (*ast.Annotation, error) {
	start := p.cur.StartPosition
	if err := p.advance(); err != nil { // consume '@'
		return nil, err
	}
	if p.cur.Type != token.IDENT {
		return nil, &ParseError{
			Message:  fmt.Sprintf("expected annotation name after '@', got %q", p.cur.Literal),
			Position: p.cur.StartPosition,
		}
	}
	name := p.cur.Literal
	end := p.cur.EndPosition
	if err := p.advance(); err != nil {
		return nil, err
	}
	return &ast.Annotation{Name: name, From: start, To: end}, nil
}

func (p *Parser) parseTarget() (*ast.Target, error) {
	start := p.cur.StartPosition
	if p.cur.Type != token.IDENT {
		return nil, &ParseError{
			Message:  fmt.Sprintf("expected target identifier, got %q", p.cur.Literal),
			Position: p.cur.StartPosition,
		}
	}
	segs := []string{p.cur.Literal}
	end := p.cur.EndPosition
	if err := p.advance(); err != nil {
		return nil, err
	}
	for p.cur.Type == token.COLONCOLON {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != token.IDENT {
			return nil, &ParseError{
				Message:  fmt.Sprintf("expected identifier after '::', got %q", p.cur.Literal),
				Position: p.cur.StartPosition,
			}
		}
		segs = append(segs, p.cur.Literal)
		end = p.cur.EndPosition
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if len(segs) < 2 {
		return nil, &ParseError{
			Message:  fmt.Sprintf("malformed target %q: missing '::'", segs[0]),
			Position: start,
		}
	}
	return &ast.Target{Segments: segs, From: start, To: end}, nil
}

func (p *Parser) parseKeyValue() (*ast.KeyValue, error) {
	start := p.cur.StartPosition
	key := p.cur.Literal
	if err := p.advance(); err != nil { // consume key
		return nil, err
	}
	if p.cur.Type != token.ASSIGN {
		return nil, &ParseError{
			Message:  fmt.Sprintf("expected '=' after key %q, got %q", key, p.cur.Literal),
			Position: p.cur.StartPosition,
		}
	}
	if err := p.advance(); err != nil { // consume '='
		return nil, err
	}
	value, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	return &ast.KeyValue{Key: key, Value: value, From: start, To: value.End()}, nil
}

func (p *Parser) parseAtom() (ast.Expr, error) {
	start := p.cur.StartPosition
	end := p.cur.EndPosition

	switch p.cur.Type {
	case token.NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NullAtom{From: start, To: end}, nil
	case token.TRUE, token.FALSE:
		val := p.cur.Type == token.TRUE
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.BoolAtom{Value: val, From: start, To: end}, nil
	case token.NUMBER:
		text := p.cur.Literal
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &ParseError{
				Message:  fmt.Sprintf("invalid numeric literal %q: %s", text, err),
				Position: start,
			}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.NumberAtom{Text: text, Value: f, From: start, To: end}, nil
	case token.STRING:
		text := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StringAtom{Value: text, From: start, To: end}, nil
	case token.IDENT:
		ns := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != token.COLONCOLON {
			return nil, &ParseError{
				Message:  fmt.Sprintf("malformed ref %q: missing '::'", ns),
				Position: start,
			}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != token.IDENT {
			return nil, &ParseError{
				Message:  fmt.Sprintf("expected name after '%s::', got %q", ns, p.cur.Literal),
				Position: p.cur.StartPosition,
			}
		}
		name := p.cur.Literal
		end = p.cur.EndPosition
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.RefAtom{Namespace: ns, Name: name, From: start, To: end}, nil
	default:
		return nil, &ParseError{
			Message:  fmt.Sprintf("expected value, got %q", p.cur.Literal),
			Position: start,
		}
	}
}

// Parse is a convenience wrapper that constructs a Parser and runs it to
// completion in one call.
func Parse(source string, filename string) (*ast.Program, error) {
	p, err := New(source, filename)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}
