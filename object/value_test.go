package object_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OranPie/imp/object"
)

func TestNullEquals(t *testing.T) {
	assert.True(t, object.NullValue.Equals(object.Null{}))
	assert.False(t, object.NullValue.Equals(object.False))
	assert.False(t, object.NullValue.IsTruthy())
}

func TestBoolEquals(t *testing.T) {
	assert.True(t, object.True.Equals(object.Bool(true)))
	assert.False(t, object.True.Equals(object.False))
	assert.False(t, object.True.Equals(object.Num(1)))
}

func TestNumComparisonAndNaN(t *testing.T) {
	a := object.Num(1.5)
	b := object.Num(1.5)
	assert.True(t, a.Equals(b))

	nan := object.Num(math.NaN())
	assert.False(t, nan.Equals(nan))
}

func TestTextEquals(t *testing.T) {
	assert.True(t, object.Text("a").Equals(object.Text("a")))
	assert.False(t, object.Text("a").Equals(object.Text("b")))
	assert.False(t, object.Text("").IsTruthy())
}

func TestFnHandleEquals(t *testing.T) {
	a := object.FnHandle{ModuleID: 1, FunctionID: 2}
	b := object.FnHandle{ModuleID: 1, FunctionID: 2}
	c := object.FnHandle{ModuleID: 1, FunctionID: 3}
	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestVariantMismatchNeverEqual(t *testing.T) {
	assert.False(t, object.Num(0).Equals(object.NullValue))
	assert.False(t, object.Text("0").Equals(object.Num(0)))
	assert.False(t, object.False.Equals(object.NullValue))
}
