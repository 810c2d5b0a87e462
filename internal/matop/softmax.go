package matop

import (
	"fmt"

	"github.com/weft-ml/weft/internal/matrix"
)

// SoftmaxGradient builds the Jacobian-style matrix used as the per-column
// building block of the softmax chain rule.
//
// For a softmax output column vector s of length n, Apply produces the
// n × n matrix J with
//
//	J[i][j] = (i == j ? 1 : 0) − s[j]
//
// The input gradient then follows as Jᵀ · (s ⊙ outputGrad); see the
// softmax expression in the graph package.
type SoftmaxGradient struct {
	rows  int
	depth int
}

// NewSoftmaxGradient creates the softmax gradient builder for column
// vectors of the given length.
func NewSoftmaxGradient(rows, depth int) (*SoftmaxGradient, error) {
	if err := checkDims(rows, 1, depth); err != nil {
		return nil, err
	}
	return &SoftmaxGradient{rows: rows, depth: depth}, nil
}

// Apply builds the rows × rows Jacobian matrix for a softmax output
// column vector.
func (op *SoftmaxGradient) Apply(softmaxOutput *matrix.Matrix) (*matrix.Matrix, error) {
	if softmaxOutput.Columns() != 1 {
		return nil, fmt.Errorf("%w: softmax gradient needs a column vector, got %s", matrix.ErrShape, softmaxOutput)
	}
	if err := checkShape(softmaxOutput, op.rows, 1, op.depth, "softmax output"); err != nil {
		return nil, err
	}
	result, err := matrix.New(op.rows, op.rows, op.depth)
	if err != nil {
		return nil, err
	}
	for d := 0; d < op.depth; d++ {
		for i := 0; i < op.rows; i++ {
			for j := 0; j < op.rows; j++ {
				value := -softmaxOutput.At(j, 0, d)
				if i == j {
					value++
				}
				result.Set(i, j, d, value)
			}
		}
	}
	return result, nil
}
