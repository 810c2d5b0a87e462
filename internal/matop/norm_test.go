package matop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/internal/matrix"
)

func TestNorm(t *testing.T) {
	norm, err := NewNorm(2, 1, 1, 2)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{3, -4}, 2, 1, 1)
	require.NoError(t, err)

	got, err := norm.Apply(input)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, got, 1e-12)
}

func TestNorm_InvalidPower(t *testing.T) {
	_, err := NewNorm(2, 2, 1, 0)
	require.ErrorIs(t, err, matrix.ErrConfig)
}

func TestNorm_ShapeMismatch(t *testing.T) {
	norm, err := NewNorm(2, 2, 1, 2)
	require.NoError(t, err)

	_, err = norm.Apply(matrix.MustNew(3, 2, 1))
	require.ErrorIs(t, err, matrix.ErrShape)
}

func TestNormalize(t *testing.T) {
	normalize, err := NewNormalize(2, 2, 1, 2.5, 1.25)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)
	result := matrix.MustNew(2, 2, 1)
	require.NoError(t, normalize.Apply(input, result))

	assert.InDelta(t, -1.2, result.At(0, 0, 0), 1e-12)
	assert.InDelta(t, 1.2, result.At(1, 1, 0), 1e-12)
	assert.InDelta(t, 0.0, result.Sum(), 1e-12)
}

func TestNormalize_InvalidVariance(t *testing.T) {
	_, err := NewNormalize(2, 2, 1, 0, 0)
	require.ErrorIs(t, err, matrix.ErrConfig)

	_, err = NewNormalize(2, 2, 1, 0, -1)
	require.ErrorIs(t, err, matrix.ErrConfig)
}

func TestEqual(t *testing.T) {
	equal, err := NewEqual(2, 2, 1)
	require.NoError(t, err)

	source, err := matrix.FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)
	result := matrix.MustNew(2, 2, 1)
	require.NoError(t, equal.Apply(source, result))

	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			assert.Equal(t, source.At(r, c, 0), result.At(r, c, 0))
		}
	}

	// The copy is by value; the source stays independent.
	result.Set(0, 0, 0, 99)
	assert.Equal(t, 1.0, source.At(0, 0, 0))
}
