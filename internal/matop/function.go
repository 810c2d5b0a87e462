package matop

import (
	"github.com/weft-ml/weft/internal/matrix"
)

// Unary applies an elementwise catalog function, with a gradient form
// that scales the output gradient by the derivative at the forward input.
type Unary struct {
	rows    int
	columns int
	depth   int
	fn      matrix.UnaryFunction
}

// NewUnary creates an elementwise unary transformer. Softmax is rejected
// by the catalog lookup; it needs cross-element context.
func NewUnary(rows, columns, depth int, fnType matrix.UnaryFunctionType) (*Unary, error) {
	if err := checkDims(rows, columns, depth); err != nil {
		return nil, err
	}
	fn, err := matrix.UnaryFunctionFor(fnType)
	if err != nil {
		return nil, err
	}
	return &Unary{rows: rows, columns: columns, depth: depth, fn: fn}, nil
}

// Apply writes fn(input) into result.
func (op *Unary) Apply(input, result *matrix.Matrix) error {
	if err := checkShape(input, op.rows, op.columns, op.depth, "unary input"); err != nil {
		return err
	}
	if err := checkShape(result, op.rows, op.columns, op.depth, "unary result"); err != nil {
		return err
	}
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.rows; r++ {
			for c := 0; c < op.columns; c++ {
				result.Set(r, c, d, op.fn.Fn(input.At(r, c, d)))
			}
		}
	}
	return nil
}

// ApplyGradient writes outputGrad ⊙ fn'(input) into result.
func (op *Unary) ApplyGradient(input, outputGrad, result *matrix.Matrix) error {
	if err := checkShape(input, op.rows, op.columns, op.depth, "unary input"); err != nil {
		return err
	}
	if err := checkShape(outputGrad, op.rows, op.columns, op.depth, "unary output gradient"); err != nil {
		return err
	}
	if err := checkShape(result, op.rows, op.columns, op.depth, "unary gradient result"); err != nil {
		return err
	}
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.rows; r++ {
			for c := 0; c < op.columns; c++ {
				result.Set(r, c, d, outputGrad.At(r, c, d)*op.fn.Derivative(input.At(r, c, d)))
			}
		}
	}
	return nil
}

// Binary applies an elementwise two-argument catalog function with scalar
// broadcast on either operand, plus per-argument gradient forms.
type Binary struct {
	rows    int
	columns int
	depth   int
	fn      matrix.BinaryFunction
}

// NewBinary creates an elementwise binary transformer. The iteration shape
// is the shape of the non-scalar operand.
func NewBinary(rows, columns, depth int, fnType matrix.BinaryFunctionType) (*Binary, error) {
	if err := checkDims(rows, columns, depth); err != nil {
		return nil, err
	}
	fn, err := matrix.BinaryFunctionFor(fnType)
	if err != nil {
		return nil, err
	}
	return &Binary{rows: rows, columns: columns, depth: depth, fn: fn}, nil
}

func (op *Binary) at(m *matrix.Matrix, r, c, d int) float64 {
	if m.IsScalar() {
		return m.At(0, 0, 0)
	}
	return m.At(r, c, d)
}

func (op *Binary) checkOperand(m *matrix.Matrix, role string) error {
	if m.IsScalar() {
		return nil
	}
	return checkShape(m, op.rows, op.columns, op.depth, role)
}

// Apply writes fn(a, b) into result.
func (op *Binary) Apply(a, b, result *matrix.Matrix) error {
	if err := op.checkOperand(a, "binary first operand"); err != nil {
		return err
	}
	if err := op.checkOperand(b, "binary second operand"); err != nil {
		return err
	}
	if err := checkShape(result, op.rows, op.columns, op.depth, "binary result"); err != nil {
		return err
	}
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.rows; r++ {
			for c := 0; c < op.columns; c++ {
				result.Set(r, c, d, op.fn.Fn(op.at(a, r, c, d), op.at(b, r, c, d)))
			}
		}
	}
	return nil
}

// ApplyGradient writes the partial-derivative contribution for one
// argument into result: outputGrad ⊙ ∂fn/∂a when first is true, otherwise
// outputGrad ⊙ ∂fn/∂b.
func (op *Binary) ApplyGradient(a, b, outputGrad, result *matrix.Matrix, first bool) error {
	if err := op.checkOperand(a, "binary first operand"); err != nil {
		return err
	}
	if err := op.checkOperand(b, "binary second operand"); err != nil {
		return err
	}
	if err := checkShape(outputGrad, op.rows, op.columns, op.depth, "binary output gradient"); err != nil {
		return err
	}
	if err := checkShape(result, op.rows, op.columns, op.depth, "binary gradient result"); err != nil {
		return err
	}
	derivative := op.fn.DerivativeA
	if !first {
		derivative = op.fn.DerivativeB
	}
	for d := 0; d < op.depth; d++ {
		for r := 0; r < op.rows; r++ {
			for c := 0; c < op.columns; c++ {
				result.Set(r, c, d, outputGrad.At(r, c, d)*derivative(op.at(a, r, c, d), op.at(b, r, c, d)))
			}
		}
	}
	return nil
}
