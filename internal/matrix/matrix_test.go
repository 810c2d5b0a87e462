package matrix

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidDimensions(t *testing.T) {
	for _, dims := range [][3]int{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}, {-1, 2, 2}} {
		_, err := New(dims[0], dims[1], dims[2])
		require.ErrorIs(t, err, ErrConfig, "dims %v", dims)
	}
}

func TestFromSlice(t *testing.T) {
	m, err := FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3, 1)
	require.NoError(t, err)

	assert.Equal(t, 1.0, m.At(0, 0, 0))
	assert.Equal(t, 3.0, m.At(0, 2, 0))
	assert.Equal(t, 4.0, m.At(1, 0, 0))
	assert.Equal(t, 6.0, m.At(1, 2, 0))
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	_, err := FromSlice([]float64{1, 2, 3}, 2, 2, 1)
	require.ErrorIs(t, err, ErrShape)
}

func TestDepthMajorLayout(t *testing.T) {
	m := MustNew(2, 2, 2)
	m.Set(1, 0, 1, 42)

	assert.Equal(t, 42.0, m.At(1, 0, 1))
	assert.Equal(t, 0.0, m.At(1, 0, 0))
	assert.Equal(t, 0.0, m.At(0, 1, 1))
}

func TestScalar(t *testing.T) {
	s := Scalar(2.5)

	assert.True(t, s.IsScalar())
	assert.Equal(t, 2.5, s.ScalarValue())
	assert.Equal(t, 1, s.Size())
}

func TestOneHot(t *testing.T) {
	m, err := OneHot(10, 4)
	require.NoError(t, err)

	assert.Equal(t, 10, m.Rows())
	assert.Equal(t, 1, m.Columns())
	assert.Equal(t, 1, m.Depth())
	assert.Equal(t, 1.0, m.Sum())

	row, column, depth := m.Argmax()
	assert.Equal(t, 4, row)
	assert.Equal(t, 0, column)
	assert.Equal(t, 0, depth)
}

func TestOneHot_IndexOutOfRange(t *testing.T) {
	_, err := OneHot(10, 10)
	require.ErrorIs(t, err, ErrConfig)

	_, err = OneHot(10, -1)
	require.ErrorIs(t, err, ErrConfig)
}

func TestCopy_Independent(t *testing.T) {
	m, err := FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)

	c := m.Copy()
	c.Set(0, 0, 0, 99)

	assert.Equal(t, 1.0, m.At(0, 0, 0))
	assert.Equal(t, 99.0, c.At(0, 0, 0))
}

func TestMask_ReadsZero(t *testing.T) {
	m, err := FromSlice([]float64{1, 2, 3, 4}, 2, 2, 1)
	require.NoError(t, err)

	mask, err := NewMask(2, 2, 1)
	require.NoError(t, err)
	mask.SetMasked(0, 1, 0, true)
	require.NoError(t, m.SetMask(mask))

	assert.Equal(t, 0.0, m.At(0, 1, 0))
	assert.Equal(t, 2.0, m.RawAt(0, 1, 0))

	m.ClearMask()
	assert.Equal(t, 2.0, m.At(0, 1, 0))
}

func TestMask_ShapeMismatch(t *testing.T) {
	m := MustNew(2, 2, 1)
	mask, err := NewMask(3, 2, 1)
	require.NoError(t, err)

	require.ErrorIs(t, m.SetMask(mask), ErrShape)
}

func TestBernoulliMask_ZeroProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mask, err := NewBernoulliMask(4, 4, 2, 0, rng)
	require.NoError(t, err)

	for d := 0; d < 2; d++ {
		for r := 0; r < 4; r++ {
			for c := 0; c < 4; c++ {
				assert.False(t, mask.IsMasked(r, c, d))
			}
		}
	}
}

func TestBernoulliMask_InvalidProbability(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	_, err := NewBernoulliMask(2, 2, 1, 1, rng)
	require.ErrorIs(t, err, ErrConfig)

	_, err = NewBernoulliMask(2, 2, 1, -0.1, rng)
	require.ErrorIs(t, err, ErrConfig)
}

func TestRandn_Deterministic(t *testing.T) {
	a, err := Randn(3, 3, 1, rand.New(rand.NewSource(11)))
	require.NoError(t, err)
	b, err := Randn(3, 3, 1, rand.New(rand.NewSource(11)))
	require.NoError(t, err)

	assert.True(t, a.SameShape(b))
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			assert.Equal(t, a.At(r, c, 0), b.At(r, c, 0))
		}
	}
}
