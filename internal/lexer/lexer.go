// Package lexer tokenizes Imp-Core source text into a stream of tokens for
// the #call statement grammar.
package lexer

import (
	"fmt"
	"strings"

	"github.com/OranPie/imp/internal/token"
)

// Lexer converts Imp-Core source text into a sequence of tokens.
type Lexer struct {
	input     string
	filename  string
	pos       int  // current byte offset
	readPos   int  // next byte offset to read
	ch        byte // current byte under examination
	line      int  // 0-indexed
	lineStart int  // byte offset of the current line's start
}

// New creates a Lexer for the given input. filename is used only to tag
// error/token positions and may be empty.
func New(input string, filename string) *Lexer {
	l := &Lexer{input: input, filename: filename}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.readPos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPos]
	}
	l.pos = l.readPos
	l.readPos++
}

func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

func (l *Lexer) currentPosition() token.Position {
	return token.Position{
		Char:      l.pos,
		LineStart: l.lineStart,
		Line:      l.line,
		Column:    l.pos - l.lineStart,
		File:      l.filename,
	}
}

// LexError reports a failure to tokenize the input, with a source location.
type LexError struct {
	Message  string
	Position token.Position
}

func (e *LexError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Position.File,
		e.Position.LineNumber(), e.Position.ColumnNumber(), e.Message)
}

func (l *Lexer) errorf(format string, args ...any) error {
	return &LexError{Message: fmt.Sprintf(format, args...), Position: l.currentPosition()}
}

func (l *Lexer) skipWhitespaceAndComments() {
	for {
		for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		}
		if l.ch == '\n' {
			l.readChar()
			l.line++
			l.lineStart = l.pos
			continue
		}
		if l.ch == '#' && l.peekAhead("#call") {
			// "#call" is a keyword, not a comment; stop here.
			return
		}
		if l.ch == '#' {
			// Any other '#'-prefixed line is a comment to end of line.
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
			continue
		}
		return
	}
}

func (l *Lexer) peekAhead(word string) bool {
	if l.pos+len(word) > len(l.input) {
		return false
	}
	return l.input[l.pos:l.pos+len(word)] == word
}

// Next returns the next token in the input, or an error if the input cannot
// be tokenized.
func (l *Lexer) Next() (token.Token, error) {
	l.skipWhitespaceAndComments()

	start := l.currentPosition()

	switch l.ch {
	case 0:
		return l.tok(token.EOF, "", start), nil
	case ';':
		l.readChar()
		return l.tok(token.SEMICOLON, ";", start), nil
	case '=':
		l.readChar()
		return l.tok(token.ASSIGN, "=", start), nil
	case '@':
		l.readChar()
		return l.tok(token.AT, "@", start), nil
	case ':':
		if l.peekChar() == ':' {
			l.readChar()
			l.readChar()
			return l.tok(token.COLONCOLON, "::", start), nil
		}
		return token.Token{}, l.errorf("unexpected character %q (did you mean '::'?)", l.ch)
	case '"':
		return l.readString(start)
	case '#':
		if l.peekAhead("#call") {
			for i := 0; i < 5; i++ { // consume "#call"
				l.readChar()
			}
			return l.tok(token.HASHCALL, "#call", start), nil
		}
		return token.Token{}, l.errorf("unexpected character %q", l.ch)
	}

	if isDigit(l.ch) || (l.ch == '-' && isDigit(l.peekChar())) {
		return l.readNumber(start)
	}
	if isIdentStart(l.ch) {
		return l.readIdentifier(start)
	}

	return token.Token{}, l.errorf("unexpected character %q", l.ch)
}

func (l *Lexer) tok(t token.Type, lit string, start token.Position) token.Token {
	return token.Token{Type: t, Literal: lit, StartPosition: start, EndPosition: l.currentPosition()}
}

func (l *Lexer) readIdentifier(start token.Position) (token.Token, error) {
	begin := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	lit := l.input[begin:l.pos]
	return l.tok(token.LookupIdentifier(lit), lit, start), nil
}

func (l *Lexer) readNumber(start token.Position) (token.Token, error) {
	begin := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		save := l.pos
		l.readChar()
		if l.ch == '+' || l.ch == '-' {
			l.readChar()
		}
		if isDigit(l.ch) {
			for isDigit(l.ch) {
				l.readChar()
			}
		} else {
			// Not a valid exponent; rewind.
			l.pos = save
			l.readPos = save + 1
			l.ch = l.input[save]
		}
	}
	return l.tok(token.NUMBER, l.input[begin:l.pos], start), nil
}

func (l *Lexer) readString(start token.Position) (token.Token, error) {
	var b strings.Builder
	l.readChar() // consume opening quote
	for {
		if l.ch == 0 || l.ch == '\n' {
			return token.Token{}, l.errorf("unterminated string literal")
		}
		if l.ch == '"' {
			l.readChar()
			break
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 0:
				return token.Token{}, l.errorf("unterminated string literal")
			default:
				return token.Token{}, l.errorf("unknown escape sequence '\\%c'", l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	return l.tok(token.STRING, b.String(), start), nil
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
