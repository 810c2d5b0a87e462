package matrix

import (
	"fmt"
	"math/rand"
)

// New creates a zero-filled matrix with the given dimensions.
func New(rows, columns, depth int) (*Matrix, error) {
	if rows <= 0 || columns <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%dx%d must be positive", ErrConfig, rows, columns, depth)
	}
	return &Matrix{
		rows:    rows,
		columns: columns,
		depth:   depth,
		data:    make([]float64, rows*columns*depth),
	}, nil
}

// MustNew is New for dimensions known to be valid, typically in tests.
func MustNew(rows, columns, depth int) *Matrix {
	m, err := New(rows, columns, depth)
	if err != nil {
		panic(err)
	}
	return m
}

// FromSlice creates a matrix from values laid out depth-major, rows outer,
// columns inner within each depth slice.
func FromSlice(values []float64, rows, columns, depth int) (*Matrix, error) {
	m, err := New(rows, columns, depth)
	if err != nil {
		return nil, err
	}
	if len(values) != len(m.data) {
		return nil, fmt.Errorf("%w: %d values for %dx%dx%d", ErrShape, len(values), rows, columns, depth)
	}
	copy(m.data, values)
	return m, nil
}

// Scalar creates a 1x1x1 matrix flagged for implicit broadcast.
func Scalar(value float64) *Matrix {
	return &Matrix{
		rows:    1,
		columns: 1,
		depth:   1,
		data:    []float64{value},
		scalar:  true,
	}
}

// Full creates a matrix with every element set to value.
func Full(rows, columns, depth int, value float64) (*Matrix, error) {
	m, err := New(rows, columns, depth)
	if err != nil {
		return nil, err
	}
	m.Fill(value)
	return m, nil
}

// Randn creates a matrix filled with values drawn from N(0, 1).
func Randn(rows, columns, depth int, rng *rand.Rand) (*Matrix, error) {
	m, err := New(rows, columns, depth)
	if err != nil {
		return nil, err
	}
	for i := range m.data {
		m.data[i] = rng.NormFloat64()
	}
	return m, nil
}

// OneHot creates a size × 1 × 1 unit column vector with 1.0 at index.
func OneHot(size, index int) (*Matrix, error) {
	if index < 0 || index >= size {
		return nil, fmt.Errorf("%w: one-hot index %d outside [0,%d)", ErrConfig, index, size)
	}
	m, err := New(size, 1, 1)
	if err != nil {
		return nil, err
	}
	m.Set(index, 0, 0, 1)
	return m, nil
}
