package matop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weft-ml/weft/internal/matrix"
)

func TestOutputSize(t *testing.T) {
	tests := []struct {
		name                         string
		in, filter, stride, dilation int
		want                         int
		wantErr                      error
	}{
		{name: "unit stride", in: 5, filter: 3, stride: 1, dilation: 1, want: 3},
		{name: "stride two", in: 7, filter: 3, stride: 2, dilation: 1, want: 3},
		{name: "dilation widens filter", in: 7, filter: 3, stride: 1, dilation: 2, want: 3},
		{name: "filter covers input", in: 4, filter: 4, stride: 1, dilation: 1, want: 1},
		{name: "non-divisible stride", in: 6, filter: 3, stride: 2, dilation: 1, wantErr: matrix.ErrShape},
		{name: "effective filter too large", in: 4, filter: 3, stride: 1, dilation: 2, wantErr: matrix.ErrShape},
		{name: "zero stride", in: 5, filter: 3, stride: 0, dilation: 1, wantErr: matrix.ErrConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OutputSize(tt.in, tt.filter, tt.stride, tt.dilation)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewConvolution_DepthSeparableFilterCount(t *testing.T) {
	_, err := NewConvolution(4, 4, 3, 2, 2, 2, 1, 1, true, true)
	require.ErrorIs(t, err, matrix.ErrConfig)

	conv, err := NewConvolution(4, 4, 3, 2, 2, 3, 1, 1, true, true)
	require.NoError(t, err)
	assert.Equal(t, 3, conv.FilterDepth())
}

func TestNewConvolution_ZeroFilters(t *testing.T) {
	_, err := NewConvolution(4, 4, 1, 2, 2, 0, 1, 1, false, true)
	require.ErrorIs(t, err, matrix.ErrConfig)
}

func TestConvolution_CrossCorrelateIdentity(t *testing.T) {
	// A one-hot filter at (0,0) makes cross-correlation a strided copy.
	conv, err := NewConvolution(3, 3, 1, 2, 2, 1, 1, 1, false, true)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 3, 3, 1)
	require.NoError(t, err)
	filter := matrix.MustNew(2, 2, 1)
	filter.Set(0, 0, 0, 1)

	result := matrix.MustNew(2, 2, 1)
	require.NoError(t, conv.Apply(input, filter, result))

	assert.Equal(t, 1.0, result.At(0, 0, 0))
	assert.Equal(t, 2.0, result.At(0, 1, 0))
	assert.Equal(t, 4.0, result.At(1, 0, 0))
	assert.Equal(t, 5.0, result.At(1, 1, 0))
}

func TestConvolution_RotatesFilter(t *testing.T) {
	// True convolution reads the filter rotated 180°, so the same one-hot
	// filter selects the opposite window corner.
	conv, err := NewConvolution(3, 3, 1, 2, 2, 1, 1, 1, false, false)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 3, 3, 1)
	require.NoError(t, err)
	filter := matrix.MustNew(2, 2, 1)
	filter.Set(0, 0, 0, 1)

	result := matrix.MustNew(2, 2, 1)
	require.NoError(t, conv.Apply(input, filter, result))

	assert.Equal(t, 5.0, result.At(0, 0, 0))
	assert.Equal(t, 6.0, result.At(0, 1, 0))
	assert.Equal(t, 8.0, result.At(1, 0, 0))
	assert.Equal(t, 9.0, result.At(1, 1, 0))
}

func TestConvolution_SumsInputDepths(t *testing.T) {
	conv, err := NewConvolution(2, 2, 2, 2, 2, 1, 1, 1, false, true)
	require.NoError(t, err)
	require.Equal(t, 2, conv.FilterDepth())

	input, err := matrix.FromSlice([]float64{1, 1, 1, 1, 2, 2, 2, 2}, 2, 2, 2)
	require.NoError(t, err)
	filter, err := matrix.FromSlice([]float64{1, 1, 1, 1, 1, 1, 1, 1}, 2, 2, 2)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 1)
	require.NoError(t, conv.Apply(input, filter, result))

	assert.Equal(t, 12.0, result.At(0, 0, 0))
}

func TestConvolution_DepthSeparable(t *testing.T) {
	conv, err := NewConvolution(2, 2, 2, 2, 2, 2, 1, 1, true, true)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{1, 1, 1, 1, 2, 2, 2, 2}, 2, 2, 2)
	require.NoError(t, err)
	filter, err := matrix.FromSlice([]float64{1, 1, 1, 1, 1, 1, 1, 1}, 2, 2, 2)
	require.NoError(t, err)

	result := matrix.MustNew(1, 1, 2)
	require.NoError(t, conv.Apply(input, filter, result))

	// Each filter sees only its own input slice.
	assert.Equal(t, 4.0, result.At(0, 0, 0))
	assert.Equal(t, 8.0, result.At(0, 0, 1))
}

func TestConvolution_GradientsMatchFiniteDifference(t *testing.T) {
	conv, err := NewConvolution(4, 4, 1, 2, 2, 1, 2, 1, false, true)
	require.NoError(t, err)

	input, err := matrix.FromSlice([]float64{
		0.5, -1.2, 0.3, 0.8,
		1.1, 0.2, -0.7, 0.4,
		-0.3, 0.9, 0.6, -0.5,
		0.1, -0.8, 1.3, 0.7,
	}, 4, 4, 1)
	require.NoError(t, err)
	filter, err := matrix.FromSlice([]float64{0.4, -0.6, 0.9, 0.2}, 2, 2, 1)
	require.NoError(t, err)

	outputGrad, err := matrix.FromSlice([]float64{1, -0.5, 0.25, 2}, 2, 2, 1)
	require.NoError(t, err)

	// loss = Σ outputGrad ⊙ conv(input, filter)
	loss := func() float64 {
		out := matrix.MustNew(2, 2, 1)
		require.NoError(t, conv.Apply(input, filter, out))
		weighted, err := out.Multiply(outputGrad)
		require.NoError(t, err)
		return weighted.Sum()
	}

	const h = 1e-6
	const tolerance = 1e-4

	inputGrad := matrix.MustNew(4, 4, 1)
	require.NoError(t, conv.InputGradient(outputGrad, filter, inputGrad))
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			v := input.At(r, c, 0)
			input.Set(r, c, 0, v+h)
			plus := loss()
			input.Set(r, c, 0, v-h)
			minus := loss()
			input.Set(r, c, 0, v)
			assert.InDelta(t, (plus-minus)/(2*h), inputGrad.At(r, c, 0), tolerance, "input (%d,%d)", r, c)
		}
	}

	filterGrad := matrix.MustNew(2, 2, 1)
	require.NoError(t, conv.FilterGradient(outputGrad, input, filterGrad))
	for r := 0; r < 2; r++ {
		for c := 0; c < 2; c++ {
			v := filter.At(r, c, 0)
			filter.Set(r, c, 0, v+h)
			plus := loss()
			filter.Set(r, c, 0, v-h)
			minus := loss()
			filter.Set(r, c, 0, v)
			assert.InDelta(t, (plus-minus)/(2*h), filterGrad.At(r, c, 0), tolerance, "filter (%d,%d)", r, c)
		}
	}
}
