package token_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OranPie/imp/internal/token"
)

func TestLookupIdentifier(t *testing.T) {
	assert.Equal(t, token.TRUE, token.LookupIdentifier("true"))
	assert.Equal(t, token.FALSE, token.LookupIdentifier("false"))
	assert.Equal(t, token.NULL, token.LookupIdentifier("null"))
	assert.Equal(t, token.IDENT, token.LookupIdentifier("core"))
	assert.Equal(t, token.IDENT, token.LookupIdentifier("main"))
}

func TestPositionLineColumnNumbers(t *testing.T) {
	pos := token.Position{Line: 2, Column: 4}
	assert.Equal(t, 3, pos.LineNumber())
	assert.Equal(t, 5, pos.ColumnNumber())
}

func TestPositionAdvance(t *testing.T) {
	pos := token.Position{Char: 10, LineStart: 8, Line: 1, Column: 2, File: "x.imp"}
	next := pos.Advance(3)
	assert.Equal(t, 13, next.Char)
	assert.Equal(t, 5, next.Column)
	assert.Equal(t, pos.Line, next.Line)
	assert.Equal(t, pos.File, next.File)
}

func TestPositionIsValid(t *testing.T) {
	assert.False(t, token.NoPos.IsValid())
	assert.True(t, (token.Position{File: "x.imp"}).IsValid())
}
