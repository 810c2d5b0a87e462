package matop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/internal/matrix"
)

func TestMaxPool_RoutesGradientToWinner(t *testing.T) {
	pool, err := NewMaxPool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 5, 3, 2}, 2, 2, 1)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 1)
	winners := make([]Position, pool.WinnerCount())
	require.NoError(t, pool.Apply(input, result, winners))

	assert.Equal(t, 5.0, result.At(0, 0, 0))
	assert.Equal(t, Position{Row: 0, Column: 1}, winners[0])

	outputGrad := matrix.MustNew(1, 1, 1)
	outputGrad.Set(0, 0, 0, 1)
	inputGrad := matrix.MustNew(2, 2, 1)
	require.NoError(t, pool.Gradient().Apply(outputGrad, inputGrad, winners))

	assert.Equal(t, 0.0, inputGrad.At(0, 0, 0))
	assert.Equal(t, 1.0, inputGrad.At(0, 1, 0))
	assert.Equal(t, 0.0, inputGrad.At(1, 0, 0))
	assert.Equal(t, 0.0, inputGrad.At(1, 1, 0))
}

func TestMaxPool_TieBreaksFirstWindowPosition(t *testing.T) {
	pool, err := NewMaxPool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)

	input, err := matrix.Full(2, 2, 1, 7)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 1)
	winners := make([]Position, pool.WinnerCount())
	require.NoError(t, pool.Apply(input, result, winners))

	assert.Equal(t, Position{Row: 0, Column: 0}, winners[0])
}

func TestMaxPool_RequiresWinnerBuffer(t *testing.T) {
	pool, err := NewMaxPool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)

	input := matrix.MustNew(2, 2, 1)
	result := matrix.MustNew(1, 1, 1)

	require.ErrorIs(t, pool.Apply(input, result, nil), matrix.ErrConfig)
}

func TestMaxPool_PreservesDepth(t *testing.T) {
	pool, err := NewMaxPool(4, 4, 3, 2, 2, 2, 1)
	require.NoError(t, err)

	assert.Equal(t, 2, pool.OutRows())
	assert.Equal(t, 2, pool.OutColumns())
	assert.Equal(t, 3, pool.OutDepth())
	assert.Equal(t, 12, pool.WinnerCount())
}

func TestAveragePool(t *testing.T) {
	pool, err := NewAveragePool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 5, 3, 2}, 2, 2, 1)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 1)
	require.NoError(t, pool.Apply(input, result))
	assert.InDelta(t, 2.75, result.At(0, 0, 0), 1e-12)

	outputGrad := matrix.MustNew(1, 1, 1)
	outputGrad.Set(0, 0, 0, 4)
	inputGrad := matrix.MustNew(2, 2, 1)
	require.NoError(t, pool.Gradient().Apply(outputGrad, inputGrad))

	// Even distribution over the window.
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			assert.Equal(t, 1.0, inputGrad.At(r, c, 0))
		}
	}
}

func TestCyclicPool_CyclesAcrossAdvance(t *testing.T) {
	pool, err := NewCyclicPool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 1)
	winners := make([]Position, pool.WinnerCount())

	// Window positions in order: (0,0) (0,1) (1,0) (1,1), then wrap.
	want := []float64{1, 2, 3, 4, 1}
	for step, expected := range want {
		require.NoError(t, pool.Apply(input, result, winners))
		assert.Equal(t, expected, result.At(0, 0, 0), "step %d", step)
		pool.Advance()
	}
}

func TestCyclicPool_StablePositionWithinStep(t *testing.T) {
	pool, err := NewCyclicPool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 1)
	winners := make([]Position, pool.WinnerCount())

	// Repeated Apply calls without Advance read the same position.
	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Apply(input, result, winners))
		assert.Equal(t, 1.0, result.At(0, 0, 0))
	}
}

func TestCyclicPool_GradientRoutesToRecordedPosition(t *testing.T) {
	pool, err := NewCyclicPool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)
	pool.Advance() // position (0,1)

	input, err := matrix.FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 1)
	winners := make([]Position, pool.WinnerCount())
	require.NoError(t, pool.Apply(input, result, winners))
	assert.Equal(t, 2.0, result.At(0, 0, 0))

	outputGrad := matrix.MustNew(1, 1, 1)
	outputGrad.Set(0, 0, 0, 3)
	inputGrad := matrix.MustNew(2, 2, 1)
	require.NoError(t, pool.Gradient().Apply(outputGrad, inputGrad, winners))

	assert.Equal(t, 3.0, inputGrad.At(0, 1, 0))
	assert.Equal(t, 3.0, inputGrad.Sum())
}

func TestCyclicPool_Reset(t *testing.T) {
	pool, err := NewCyclicPool(2, 2, 1, 2, 2, 1, 1)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)
	result := matrix.MustNew(1, 1, 1)
	winners := make([]Position, pool.WinnerCount())

	pool.Advance()
	pool.Advance()
	pool.Reset()

	require.NoError(t, pool.Apply(input, result, winners))
	assert.Equal(t, 1.0, result.At(0, 0, 0))
}

func TestPool_ShapeLawViolation(t *testing.T) {
	_, err := NewMaxPool(6, 6, 1, 3, 3, 2, 1)
	require.ErrorIs(t, err, matrix.ErrShape)

	_, err = NewAveragePool(6, 6, 1, 3, 3, 2, 1)
	require.ErrorIs(t, err, matrix.ErrShape)

	_, err = NewCyclicPool(6, 6, 1, 3, 3, 2, 1)
	require.ErrorIs(t, err, matrix.ErrShape)
}
