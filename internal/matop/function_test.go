package matop

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/internal/matrix"
)

func TestUnary_Apply(t *testing.T) {
	fn, err := NewUnary(2, 1, 1, matrix.Sigmoid)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{0, 100}, 2, 1, 1)
	require.NoError(t, err)
	result := matrix.MustNew(2, 1, 1)
	require.NoError(t, fn.Apply(input, result))

	assert.InDelta(t, 0.5, result.At(0, 0, 0), 1e-12)
	assert.InDelta(t, 1.0, result.At(1, 0, 0), 1e-9)
}

func TestUnary_ApplyGradient(t *testing.T) {
	fn, err := NewUnary(1, 1, 1, matrix.Square)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{3}, 1, 1, 1)
	require.NoError(t, err)
	outputGrad, err := matrix.FromSlice([]float64{2}, 1, 1, 1)
	require.NoError(t, err)
	result := matrix.MustNew(1, 1, 1)
	require.NoError(t, fn.ApplyGradient(input, outputGrad, result))

	// d(x²)/dx at 3 is 6, scaled by the output gradient 2.
	assert.Equal(t, 12.0, result.At(0, 0, 0))
}

func TestUnary_RejectsSoftmax(t *testing.T) {
	_, err := NewUnary(2, 2, 1, matrix.Softmax)
	require.ErrorIs(t, err, matrix.ErrConfig)
}

func TestBinary_Apply(t *testing.T) {
	fn, err := NewBinary(2, 1, 1, matrix.Pow)
	require.NoError(t, err)

	a, err := matrix.FromSlice([]float64{2, 3}, 2, 1, 1)
	require.NoError(t, err)
	b, err := matrix.FromSlice([]float64{3, 2}, 2, 1, 1)
	require.NoError(t, err)
	result := matrix.MustNew(2, 1, 1)
	require.NoError(t, fn.Apply(a, b, result))

	assert.Equal(t, 8.0, result.At(0, 0, 0))
	assert.Equal(t, 9.0, result.At(1, 0, 0))
}

func TestBinary_ScalarOperand(t *testing.T) {
	fn, err := NewBinary(2, 1, 1, matrix.Pow)
	require.NoError(t, err)

	a, err := matrix.FromSlice([]float64{2, 3}, 2, 1, 1)
	require.NoError(t, err)
	result := matrix.MustNew(2, 1, 1)
	require.NoError(t, fn.Apply(a, matrix.Scalar(2), result))

	assert.Equal(t, 4.0, result.At(0, 0, 0))
	assert.Equal(t, 9.0, result.At(1, 0, 0))
}

func TestBinary_ApplyGradient(t *testing.T) {
	fn, err := NewBinary(1, 1, 1, matrix.Pow)
	require.NoError(t, err)

	a, err := matrix.FromSlice([]float64{2}, 1, 1, 1)
	require.NoError(t, err)
	b, err := matrix.FromSlice([]float64{3}, 1, 1, 1)
	require.NoError(t, err)
	outputGrad, err := matrix.FromSlice([]float64{1}, 1, 1, 1)
	require.NoError(t, err)

	// ∂(a^b)/∂a = b·a^(b−1) = 3·4 = 12
	gradA := matrix.MustNew(1, 1, 1)
	require.NoError(t, fn.ApplyGradient(a, b, outputGrad, gradA, true))
	assert.InDelta(t, 12.0, gradA.At(0, 0, 0), 1e-12)

	// ∂(a^b)/∂b = a^b·ln(a) = 8·ln(2)
	gradB := matrix.MustNew(1, 1, 1)
	require.NoError(t, fn.ApplyGradient(a, b, outputGrad, gradB, false))
	assert.InDelta(t, 8*math.Log(2), gradB.At(0, 0, 0), 1e-12)
}

func TestBinary_ShapeMismatch(t *testing.T) {
	fn, err := NewBinary(2, 2, 1, matrix.MaxOf)
	require.NoError(t, err)

	a := matrix.MustNew(2, 2, 1)
	b := matrix.MustNew(3, 2, 1)
	result := matrix.MustNew(2, 2, 1)

	require.ErrorIs(t, fn.Apply(a, b, result), matrix.ErrShape)
}
