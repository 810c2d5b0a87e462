package matrix

import (
	"fmt"
	"math"
)

// broadcastShape resolves the output shape of an elementwise binary
// operation: matching shapes pass through, a scalar operand adopts the
// other operand's shape.
func broadcastShape(a, b *Matrix) (rows, columns, depth int, err error) {
	switch {
	case a.scalar && !b.scalar:
		return b.rows, b.columns, b.depth, nil
	case !a.scalar && b.scalar:
		return a.rows, a.columns, a.depth, nil
	case a.SameShape(b):
		return a.rows, a.columns, a.depth, nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: %s vs %s", ErrShape, a.dims(), b.dims())
	}
}

// broadcastAt reads an element honoring the scalar flag.
func (m *Matrix) broadcastAt(row, column, depth int) float64 {
	if m.scalar {
		return m.At(0, 0, 0)
	}
	return m.At(row, column, depth)
}

func (m *Matrix) elementwiseInto(other *Matrix, result *Matrix, op func(a, b float64) float64) error {
	rows, columns, depth, err := broadcastShape(m, other)
	if err != nil {
		return err
	}
	if result.rows != rows || result.columns != columns || result.depth != depth {
		return fmt.Errorf("%w: result %s for %dx%dx%d operation", ErrShape, result.dims(), rows, columns, depth)
	}
	for d := 0; d < depth; d++ {
		for r := 0; r < rows; r++ {
			for c := 0; c < columns; c++ {
				result.Set(r, c, d, op(m.broadcastAt(r, c, d), other.broadcastAt(r, c, d)))
			}
		}
	}
	return nil
}

func (m *Matrix) elementwise(other *Matrix, op func(a, b float64) float64) (*Matrix, error) {
	rows, columns, depth, err := broadcastShape(m, other)
	if err != nil {
		return nil, err
	}
	result, err := New(rows, columns, depth)
	if err != nil {
		return nil, err
	}
	if m.scalar && other.scalar {
		result.scalar = true
	}
	if err := m.elementwiseInto(other, result, op); err != nil {
		return nil, err
	}
	return result, nil
}

// Add returns m + other elementwise with scalar broadcast.
func (m *Matrix) Add(other *Matrix) (*Matrix, error) {
	return m.elementwise(other, func(a, b float64) float64 { return a + b })
}

// AddInto writes m + other into result.
func (m *Matrix) AddInto(other, result *Matrix) error {
	return m.elementwiseInto(other, result, func(a, b float64) float64 { return a + b })
}

// Subtract returns m − other elementwise with scalar broadcast.
func (m *Matrix) Subtract(other *Matrix) (*Matrix, error) {
	return m.elementwise(other, func(a, b float64) float64 { return a - b })
}

// SubtractInto writes m − other into result.
func (m *Matrix) SubtractInto(other, result *Matrix) error {
	return m.elementwiseInto(other, result, func(a, b float64) float64 { return a - b })
}

// Multiply returns m ⊙ other elementwise with scalar broadcast.
func (m *Matrix) Multiply(other *Matrix) (*Matrix, error) {
	return m.elementwise(other, func(a, b float64) float64 { return a * b })
}

// MultiplyInto writes m ⊙ other into result.
func (m *Matrix) MultiplyInto(other, result *Matrix) error {
	return m.elementwiseInto(other, result, func(a, b float64) float64 { return a * b })
}

// Divide returns m / other elementwise with scalar broadcast.
func (m *Matrix) Divide(other *Matrix) (*Matrix, error) {
	return m.elementwise(other, func(a, b float64) float64 { return a / b })
}

// DivideInto writes m / other into result.
func (m *Matrix) DivideInto(other, result *Matrix) error {
	return m.elementwiseInto(other, result, func(a, b float64) float64 { return a / b })
}

// Dot computes the matrix product per depth slice. Requires
// m.columns == other.rows and matching depth; the result is
// m.rows × other.columns × depth.
func (m *Matrix) Dot(other *Matrix) (*Matrix, error) {
	if m.columns != other.rows || m.depth != other.depth {
		return nil, fmt.Errorf("%w: dot %s · %s", ErrShape, m.dims(), other.dims())
	}
	result, err := New(m.rows, other.columns, m.depth)
	if err != nil {
		return nil, err
	}
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < other.columns; c++ {
				sum := 0.0
				for k := 0; k < m.columns; k++ {
					sum += m.At(r, k, d) * other.At(k, c, d)
				}
				result.Set(r, c, d, sum)
			}
		}
	}
	return result, nil
}

// Transpose swaps rows and columns within each depth slice.
func (m *Matrix) Transpose() *Matrix {
	result := &Matrix{
		rows:    m.columns,
		columns: m.rows,
		depth:   m.depth,
		data:    make([]float64, len(m.data)),
	}
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				result.Set(c, r, d, m.At(r, c, d))
			}
		}
	}
	return result
}

// ApplyUnary maps a catalog function over every element. Softmax is
// rejected here; use Softmax instead.
func (m *Matrix) ApplyUnary(fnType UnaryFunctionType) (*Matrix, error) {
	fn, err := UnaryFunctionFor(fnType)
	if err != nil {
		return nil, err
	}
	result, err := New(m.rows, m.columns, m.depth)
	if err != nil {
		return nil, err
	}
	result.scalar = m.scalar
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				result.Set(r, c, d, fn.Fn(m.At(r, c, d)))
			}
		}
	}
	return result, nil
}

// ApplyBinary maps a catalog two-argument function over m and other
// elementwise with scalar broadcast.
func (m *Matrix) ApplyBinary(other *Matrix, fnType BinaryFunctionType) (*Matrix, error) {
	fn, err := BinaryFunctionFor(fnType)
	if err != nil {
		return nil, err
	}
	return m.elementwise(other, fn.Fn)
}

// Softmax computes a max-shifted softmax independently over the rows of
// each column in each depth slice.
func (m *Matrix) Softmax() (*Matrix, error) {
	result, err := New(m.rows, m.columns, m.depth)
	if err != nil {
		return nil, err
	}
	for d := 0; d < m.depth; d++ {
		for c := 0; c < m.columns; c++ {
			maxValue := math.Inf(-1)
			for r := 0; r < m.rows; r++ {
				if v := m.At(r, c, d); v > maxValue {
					maxValue = v
				}
			}
			sum := 0.0
			for r := 0; r < m.rows; r++ {
				e := math.Exp(m.At(r, c, d) - maxValue)
				result.Set(r, c, d, e)
				sum += e
			}
			for r := 0; r < m.rows; r++ {
				result.Set(r, c, d, result.At(r, c, d)/sum)
			}
		}
	}
	return result, nil
}

// Join concatenates m and other along rows (alongRows) or columns.
// The non-joined dimensions and depth must match.
func (m *Matrix) Join(other *Matrix, alongRows bool) (*Matrix, error) {
	if m.depth != other.depth {
		return nil, fmt.Errorf("%w: join %s with %s", ErrShape, m.dims(), other.dims())
	}
	if alongRows && m.columns != other.columns || !alongRows && m.rows != other.rows {
		return nil, fmt.Errorf("%w: join %s with %s", ErrShape, m.dims(), other.dims())
	}
	rows, columns := m.rows, m.columns+other.columns
	if alongRows {
		rows, columns = m.rows+other.rows, m.columns
	}
	result, err := New(rows, columns, m.depth)
	if err != nil {
		return nil, err
	}
	if err := result.embedAt(m, 0, 0); err != nil {
		return nil, err
	}
	atRow, atColumn := 0, m.columns
	if alongRows {
		atRow, atColumn = m.rows, 0
	}
	if err := result.embedAt(other, atRow, atColumn); err != nil {
		return nil, err
	}
	return result, nil
}

// Unjoin extracts the rows × columns submatrix starting at
// (atRow, atColumn) across all depth slices.
func (m *Matrix) Unjoin(atRow, atColumn, rows, columns int) (*Matrix, error) {
	if atRow < 0 || atColumn < 0 || atRow+rows > m.rows || atColumn+columns > m.columns {
		return nil, fmt.Errorf("%w: unjoin %dx%d at (%d,%d) from %s", ErrShape, rows, columns, atRow, atColumn, m.dims())
	}
	result, err := New(rows, columns, m.depth)
	if err != nil {
		return nil, err
	}
	for d := 0; d < m.depth; d++ {
		for r := 0; r < rows; r++ {
			for c := 0; c < columns; c++ {
				result.Set(r, c, d, m.At(atRow+r, atColumn+c, d))
			}
		}
	}
	return result, nil
}

// embedAt writes src into m starting at (atRow, atColumn). Depths must
// match and src must fit.
func (m *Matrix) embedAt(src *Matrix, atRow, atColumn int) error {
	if src.depth != m.depth || atRow+src.rows > m.rows || atColumn+src.columns > m.columns {
		return fmt.Errorf("%w: embed %s at (%d,%d) of %s", ErrShape, src.dims(), atRow, atColumn, m.dims())
	}
	for d := 0; d < src.depth; d++ {
		for r := 0; r < src.rows; r++ {
			for c := 0; c < src.columns; c++ {
				m.Set(atRow+r, atColumn+c, d, src.At(r, c, d))
			}
		}
	}
	return nil
}

// AddAtOffset accumulates src into m starting at (atRow, atColumn).
// Used to scatter unjoin gradients back into the source shape.
func (m *Matrix) AddAtOffset(src *Matrix, atRow, atColumn int) error {
	if src.depth != m.depth || atRow+src.rows > m.rows || atColumn+src.columns > m.columns {
		return fmt.Errorf("%w: accumulate %s at (%d,%d) of %s", ErrShape, src.dims(), atRow, atColumn, m.dims())
	}
	for d := 0; d < src.depth; d++ {
		for r := 0; r < src.rows; r++ {
			for c := 0; c < src.columns; c++ {
				m.AddAt(atRow+r, atColumn+c, d, src.At(r, c, d))
			}
		}
	}
	return nil
}

// Norm computes the p-norm: (Σ |v|^p)^(1/p) over all elements.
func (m *Matrix) Norm(p int) (float64, error) {
	if p <= 0 {
		return 0, fmt.Errorf("%w: norm power %d must be positive", ErrConfig, p)
	}
	sum := 0.0
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				sum += math.Pow(math.Abs(m.At(r, c, d)), float64(p))
			}
		}
	}
	return math.Pow(sum, 1/float64(p)), nil
}

// Normalize returns a matrix with every element rewritten to
// (v − mean) / variance.
func (m *Matrix) Normalize(mean, variance float64) (*Matrix, error) {
	if variance <= 0 {
		return nil, fmt.Errorf("%w: normalize variance %v must be positive", ErrConfig, variance)
	}
	result, err := New(m.rows, m.columns, m.depth)
	if err != nil {
		return nil, err
	}
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				result.Set(r, c, d, (m.At(r, c, d)-mean)/variance)
			}
		}
	}
	return result, nil
}

// ExpandToDepth replicates a single-slice matrix across the requested
// number of depth slices.
func (m *Matrix) ExpandToDepth(depth int) (*Matrix, error) {
	if m.depth != 1 {
		return nil, fmt.Errorf("%w: expand requires depth 1, have %s", ErrShape, m.dims())
	}
	if depth < 1 {
		return nil, fmt.Errorf("%w: target depth %d must be positive", ErrConfig, depth)
	}
	result, err := New(m.rows, m.columns, depth)
	if err != nil {
		return nil, err
	}
	for d := 0; d < depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				result.Set(r, c, d, m.At(r, c, 0))
			}
		}
	}
	return result, nil
}

// Sum returns the sum of all elements.
func (m *Matrix) Sum() float64 {
	sum := 0.0
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				sum += m.At(r, c, d)
			}
		}
	}
	return sum
}

// Mean returns the arithmetic mean of all elements.
func (m *Matrix) Mean() float64 {
	return m.Sum() / float64(m.Size())
}

// Variance returns the population variance of all elements.
func (m *Matrix) Variance() float64 {
	mean := m.Mean()
	sum := 0.0
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				diff := m.At(r, c, d) - mean
				sum += diff * diff
			}
		}
	}
	return sum / float64(m.Size())
}

// Min returns the smallest element.
func (m *Matrix) Min() float64 {
	minValue := math.Inf(1)
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				minValue = math.Min(minValue, m.At(r, c, d))
			}
		}
	}
	return minValue
}

// Max returns the largest element.
func (m *Matrix) Max() float64 {
	maxValue := math.Inf(-1)
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				maxValue = math.Max(maxValue, m.At(r, c, d))
			}
		}
	}
	return maxValue
}

// Argmax returns the coordinate of the maximal element. Ties break toward
// the first coordinate encountered in depth-major, row-major order.
func (m *Matrix) Argmax() (row, column, depth int) {
	best := math.Inf(-1)
	for d := 0; d < m.depth; d++ {
		for r := 0; r < m.rows; r++ {
			for c := 0; c < m.columns; c++ {
				if v := m.At(r, c, d); v > best {
					best = v
					row, column, depth = r, c, d
				}
			}
		}
	}
	return row, column, depth
}
