// Package matop provides reusable matrix operation functors.
//
// Each functor is parameterized by its iteration shape at construction,
// validating dimensions once and amortizing that check over many Apply
// calls with different concrete matrices. Two families exist:
//   - reducers that accumulate a scalar over all elements (Norm),
//   - transformers that write into a result matrix (Normalize, Equal,
//     SoftmaxGradient, the convolution and pooling operations).
//
// Convolution and pooling forwards are paired with shape-dual gradient
// functors. The pooling gradients consult the winning positions recorded
// during the forward pass.
package matop

import (
	"fmt"

	"github.com/weft-ml/weft/internal/matrix"
)

// checkShape verifies that a matrix matches the functor's frozen
// iteration shape.
func checkShape(m *matrix.Matrix, rows, columns, depth int, role string) error {
	if m.Rows() != rows || m.Columns() != columns || m.Depth() != depth {
		return fmt.Errorf("%w: %s is %s, operation expects %dx%dx%d",
			matrix.ErrShape, role, m, rows, columns, depth)
	}
	return nil
}

// checkDims rejects non-positive iteration dimensions at construction.
func checkDims(rows, columns, depth int) error {
	if rows <= 0 || columns <= 0 || depth <= 0 {
		return fmt.Errorf("%w: operation shape %dx%dx%d must be positive", matrix.ErrConfig, rows, columns, depth)
	}
	return nil
}
