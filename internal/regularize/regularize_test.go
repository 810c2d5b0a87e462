package regularize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/internal/matrix"
)

func mustMatrix(t *testing.T, values []float64, rows, columns, depth int) *matrix.Matrix {
	t.Helper()
	m, err := matrix.FromSlice(values, rows, columns, depth)
	require.NoError(t, err)
	return m
}

func TestL1(t *testing.T) {
	reg := L1{Lambda: 0.5}

	param := mustMatrix(t, []float64{2, -3, 0}, 3, 1, 1)
	grad := mustMatrix(t, []float64{1, 1, 1}, 3, 1, 1)

	require.NoError(t, reg.Apply(param, grad))

	assert.InDelta(t, 1.5, grad.At(0, 0, 0), 1e-12)
	assert.InDelta(t, 0.5, grad.At(1, 0, 0), 1e-12)
	// Zero weights receive no penalty.
	assert.InDelta(t, 1.0, grad.At(2, 0, 0), 1e-12)
}

func TestL2(t *testing.T) {
	reg := L2{Lambda: 0.1}

	param := mustMatrix(t, []float64{2, -3}, 2, 1, 1)
	grad := mustMatrix(t, []float64{1, 1}, 2, 1, 1)

	require.NoError(t, reg.Apply(param, grad))

	assert.InDelta(t, 1.4, grad.At(0, 0, 0), 1e-12)
	assert.InDelta(t, 0.4, grad.At(1, 0, 0), 1e-12)
}

func TestClipNorm_RescalesLargeGradient(t *testing.T) {
	reg := ClipNorm{Threshold: 1}

	param := mustMatrix(t, []float64{0, 0}, 2, 1, 1)
	grad := mustMatrix(t, []float64{3, -4}, 2, 1, 1)

	require.NoError(t, reg.Apply(param, grad))

	norm, err := grad.Norm(2)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, norm, 1e-12)
	// Direction preserved.
	assert.InDelta(t, 0.6, grad.At(0, 0, 0), 1e-12)
	assert.InDelta(t, -0.8, grad.At(1, 0, 0), 1e-12)
}

func TestClipNorm_LeavesSmallGradient(t *testing.T) {
	reg := ClipNorm{Threshold: 10}

	param := mustMatrix(t, []float64{0, 0}, 2, 1, 1)
	grad := mustMatrix(t, []float64{3, -4}, 2, 1, 1)

	require.NoError(t, reg.Apply(param, grad))

	assert.Equal(t, 3.0, grad.At(0, 0, 0))
	assert.Equal(t, -4.0, grad.At(1, 0, 0))
}

func TestClipNorm_InvalidThreshold(t *testing.T) {
	reg := ClipNorm{}

	param := mustMatrix(t, []float64{1}, 1, 1, 1)
	grad := mustMatrix(t, []float64{1}, 1, 1, 1)

	require.ErrorIs(t, reg.Apply(param, grad), matrix.ErrConfig)
}

func TestRegularize_ShapeMismatch(t *testing.T) {
	param := mustMatrix(t, []float64{1, 2}, 2, 1, 1)
	grad := mustMatrix(t, []float64{1}, 1, 1, 1)

	for _, reg := range []Regularizer{L1{Lambda: 1}, L2{Lambda: 1}, ClipNorm{Threshold: 1}} {
		require.ErrorIs(t, reg.Apply(param, grad), matrix.ErrShape)
	}
}
