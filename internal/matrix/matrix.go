// Package matrix implements the dense float64 tensor that the rest of the
// framework computes with.
//
// A Matrix is a rows × columns × depth block of float64 values with three
// pieces of optional metadata:
//   - a diagnostic name carried into error messages,
//   - a scalar flag enabling implicit broadcast against non-scalar operands,
//   - an element mask making selected positions read as zero.
//
// Binary operations require matching shapes unless one operand is scalar or
// the operation itself redefines the output shape (dot, join, unjoin).
// Operations either allocate a fresh result or write into a caller-supplied
// one via the *Into variants; input and output are never aliased unless the
// method documents it.
package matrix

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure categories the engine distinguishes.
// Callers test with errors.Is; the wrapped message carries the expected vs.
// actual detail.
var (
	// ErrShape indicates mismatched rows/columns/depth or an index outside
	// the matrix bounds.
	ErrShape = errors.New("matrix: shape mismatch")

	// ErrConfig indicates an invalid construction parameter (zero dimension,
	// non-positive norm power, out-of-range one-hot index).
	ErrConfig = errors.New("matrix: invalid configuration")
)

// Matrix is a dense rows × columns × depth tensor of float64 values.
//
// Values are stored depth-major: slice d is a contiguous rows × columns
// block, rows outer, columns inner. All iteration in this package and in
// matop follows that order, which is also the tie-break order of Argmax.
type Matrix struct {
	rows    int
	columns int
	depth   int
	data    []float64
	name    string
	scalar  bool
	mask    *Mask
}

// Rows returns the row count.
func (m *Matrix) Rows() int { return m.rows }

// Columns returns the column count.
func (m *Matrix) Columns() int { return m.columns }

// Depth returns the depth count.
func (m *Matrix) Depth() int { return m.depth }

// Size returns the total number of elements.
func (m *Matrix) Size() int { return m.rows * m.columns * m.depth }

// Name returns the diagnostic name. Empty unless SetName was called.
func (m *Matrix) Name() string { return m.name }

// SetName attaches a diagnostic name used in error messages. The name has
// no semantic meaning.
func (m *Matrix) SetName(name string) { m.name = name }

// IsScalar reports whether the matrix broadcasts against non-scalar
// operands.
func (m *Matrix) IsScalar() bool { return m.scalar }

// Mask returns the element mask, or nil if none is attached.
func (m *Matrix) Mask() *Mask { return m.mask }

// SetMask attaches an element mask. The mask shape must match the matrix.
func (m *Matrix) SetMask(mask *Mask) error {
	if mask != nil && (mask.rows != m.rows || mask.columns != m.columns || mask.depth != m.depth) {
		return fmt.Errorf("%w: mask %dx%dx%d for matrix %s", ErrShape, mask.rows, mask.columns, mask.depth, m.dims())
	}
	m.mask = mask
	return nil
}

// ClearMask detaches the element mask.
func (m *Matrix) ClearMask() { m.mask = nil }

func (m *Matrix) index(row, column, depth int) int {
	return (depth*m.rows+row)*m.columns + column
}

// At returns the value at (row, column, depth). Masked positions read as
// zero. Out-of-range coordinates panic like a slice access would.
func (m *Matrix) At(row, column, depth int) float64 {
	if m.mask != nil && m.mask.IsMasked(row, column, depth) {
		return 0
	}
	return m.data[m.index(row, column, depth)]
}

// RawAt returns the stored value at (row, column, depth) ignoring the mask.
func (m *Matrix) RawAt(row, column, depth int) float64 {
	return m.data[m.index(row, column, depth)]
}

// Set stores a value at (row, column, depth).
func (m *Matrix) Set(row, column, depth int, value float64) {
	m.data[m.index(row, column, depth)] = value
}

// AddAt adds a value into the element at (row, column, depth).
func (m *Matrix) AddAt(row, column, depth int, value float64) {
	m.data[m.index(row, column, depth)] += value
}

// Scalar returns the broadcast value of a scalar matrix.
func (m *Matrix) ScalarValue() float64 {
	return m.At(0, 0, 0)
}

// SameShape reports whether two matrices have identical dimensions.
func (m *Matrix) SameShape(other *Matrix) bool {
	return m.rows == other.rows && m.columns == other.columns && m.depth == other.depth
}

// Copy returns a deep copy including name, scalar flag and mask.
func (m *Matrix) Copy() *Matrix {
	c := &Matrix{
		rows:    m.rows,
		columns: m.columns,
		depth:   m.depth,
		data:    make([]float64, len(m.data)),
		name:    m.name,
		scalar:  m.scalar,
	}
	copy(c.data, m.data)
	if m.mask != nil {
		c.mask = m.mask.Copy()
	}
	return c
}

// CopyInto writes this matrix's values into result. Mask, name and scalar
// flag are not transferred.
func (m *Matrix) CopyInto(result *Matrix) error {
	if !m.SameShape(result) {
		return fmt.Errorf("%w: copy %s into %s", ErrShape, m.dims(), result.dims())
	}
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				result.Set(r, c, d, m.At(r, c, d))
			}
		}
	}
	return nil
}

// Zero resets every stored value to zero. The mask is untouched.
func (m *Matrix) Zero() {
	for i := range m.data {
		m.data[i] = 0
	}
}

// Fill sets every element to the given value.
func (m *Matrix) Fill(value float64) {
	for i := range m.data {
		m.data[i] = value
	}
}

func (m *Matrix) dims() string {
	label := m.name
	if label == "" {
		label = "matrix"
	}
	return fmt.Sprintf("%s(%dx%dx%d)", label, m.rows, m.columns, m.depth)
}

// String renders the shape and name for diagnostics.
func (m *Matrix) String() string { return m.dims() }
