package matop

import (
	"fmt"
	"math"

	"github.com/weft-ml/weft/internal/matrix"
)

// Norm accumulates |value|^p over all elements and takes the 1/p root.
type Norm struct {
	rows    int
	columns int
	depth   int
	p       int
}

// NewNorm creates a p-norm reducer over the given iteration shape.
func NewNorm(rows, columns, depth, p int) (*Norm, error) {
	if err := checkDims(rows, columns, depth); err != nil {
		return nil, err
	}
	if p <= 0 {
		return nil, fmt.Errorf("%w: norm power %d must be positive", matrix.ErrConfig, p)
	}
	return &Norm{rows: rows, columns: columns, depth: depth, p: p}, nil
}

// Apply computes the p-norm of input.
func (op *Norm) Apply(input *matrix.Matrix) (float64, error) {
	if err := checkShape(input, op.rows, op.columns, op.depth, "norm input"); err != nil {
		return 0, err
	}
	sum := 0.0
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.rows; r++ {
			for c := 0; c < op.columns; c++ {
				sum += math.Pow(math.Abs(input.At(r, c, d)), float64(op.p))
			}
		}
	}
	return math.Pow(sum, 1/float64(op.p)), nil
}

// Normalize rewrites every element to (value − mean) / variance.
type Normalize struct {
	rows     int
	columns  int
	depth    int
	mean     float64
	variance float64
}

// NewNormalize creates a normalize transformer over the given iteration
// shape.
func NewNormalize(rows, columns, depth int, mean, variance float64) (*Normalize, error) {
	if err := checkDims(rows, columns, depth); err != nil {
		return nil, err
	}
	if variance <= 0 {
		return nil, fmt.Errorf("%w: normalize variance %v must be positive", matrix.ErrConfig, variance)
	}
	return &Normalize{rows: rows, columns: columns, depth: depth, mean: mean, variance: variance}, nil
}

// Apply writes the normalized input into result.
func (op *Normalize) Apply(input, result *matrix.Matrix) error {
	if err := checkShape(input, op.rows, op.columns, op.depth, "normalize input"); err != nil {
		return err
	}
	if err := checkShape(result, op.rows, op.columns, op.depth, "normalize result"); err != nil {
		return err
	}
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.rows; r++ {
			for c := 0; c < op.columns; c++ {
				result.Set(r, c, d, (input.At(r, c, d)-op.mean)/op.variance)
			}
		}
	}
	return nil
}

// Equal copies every element of the source into the result.
type Equal struct {
	rows    int
	columns int
	depth   int
}

// NewEqual creates a copy transformer over the given iteration shape.
func NewEqual(rows, columns, depth int) (*Equal, error) {
	if err := checkDims(rows, columns, depth); err != nil {
		return nil, err
	}
	return &Equal{rows: rows, columns: columns, depth: depth}, nil
}

// Apply copies source values into result.
func (op *Equal) Apply(source, result *matrix.Matrix) error {
	if err := checkShape(source, op.rows, op.columns, op.depth, "equal source"); err != nil {
		return err
	}
	if err := checkShape(result, op.rows, op.columns, op.depth, "equal result"); err != nil {
		return err
	}
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.rows; r++ {
			for c := 0; c < op.columns; c++ {
				result.Set(r, c, d, source.At(r, c, d))
			}
		}
	}
	return nil
}
