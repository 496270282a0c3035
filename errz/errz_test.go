package errz_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OranPie/imp/errz"
	"github.com/OranPie/imp/internal/token"
)

func TestCompileErrorIncludesPositionWhenValid(t *testing.T) {
	err := &errz.CompileError{
		Message:  "unknown core op",
		Position: token.Position{File: "main.imp", Line: 2, Column: 4},
	}
	assert.Contains(t, err.Error(), "main.imp")
	assert.Contains(t, err.Error(), "unknown core op")
}

func TestCompileErrorWithoutPosition(t *testing.T) {
	err := &errz.CompileError{Message: "bad arity"}
	assert.Equal(t, "compile error: bad arity", err.Error())
}

func TestImportErrorReportsCycle(t *testing.T) {
	err := &errz.ImportError{Path: "a.imp", Reason: errz.ImportReasonCycle}
	assert.Contains(t, err.Error(), "cycle")
	assert.Contains(t, err.Error(), "a.imp")
}

func TestDecodeErrorConstructors(t *testing.T) {
	assert.Contains(t, errz.BadMagic().Error(), "magic")
	assert.Contains(t, errz.UnsupportedVersion(9).Error(), "9")
	assert.Contains(t, errz.UnknownTag(12, 0xff).Error(), "ff")
	assert.Contains(t, errz.UnexpectedEOF(3).Error(), "end of input")
	assert.Contains(t, errz.IntegrityError(5, "slot out of range").Error(), "slot out of range")
}

func TestVmErrorCarriesCodeAndMessage(t *testing.T) {
	err := errz.NewVmError("div_by_zero", "division by zero")
	assert.Equal(t, "div_by_zero", err.Code)
	assert.Contains(t, err.Error(), "division by zero")
}
