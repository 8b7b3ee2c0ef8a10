package mappy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounterOperator(t *testing.T) {
	op := CounterOperator{}
	assert.Equal(t, int64(0), op.Identity())
	v, err := op.Merge(3, 4)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), v)
	assert.True(t, op.IsAssociative())
	assert.True(t, op.IsCommutative())
}

func TestSetUnionOperator(t *testing.T) {
	op := SetUnionOperator[string]{}
	a := map[string]struct{}{"x": {}}
	b := map[string]struct{}{"y": {}}
	merged, err := op.Merge(a, b)
	assert.NoError(t, err)
	assert.Len(t, merged, 2)
	_, okX := merged["x"]
	_, okY := merged["y"]
	assert.True(t, okX)
	assert.True(t, okY)
}

func TestMaxMinOperators(t *testing.T) {
	maxOp := NewMaxOperator[int64](0)
	v, err := maxOp.Merge(3, 9)
	assert.NoError(t, err)
	assert.Equal(t, int64(9), v)

	minOp := NewMinOperator[int64](0)
	v, err = minOp.Merge(3, 9)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestLatestWinsIsNonCommutative(t *testing.T) {
	op := NewLatestWinsOperator("")
	assert.False(t, op.IsAssociative())
	assert.False(t, op.IsCommutative())
	v, err := op.Merge("first", "second")
	assert.NoError(t, err)
	assert.Equal(t, "second", v)
}

func TestFuncOperator(t *testing.T) {
	errBoom := errors.New("boom")
	op := NewFuncOperator(0, func(a, b int) (int, error) {
		if b < 0 {
			return 0, errBoom
		}
		return a + b, nil
	}, true, true)
	v, err := op.Merge(1, 2)
	assert.NoError(t, err)
	assert.Equal(t, 3, v)

	_, err = op.Merge(1, -1)
	assert.ErrorIs(t, err, errBoom)
}
