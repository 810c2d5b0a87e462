package graph

import (
	"github.com/weft-ml/weft/internal/matop"
	"github.com/weft-ml/weft/internal/matrix"
)

// unaryOp applies an elementwise catalog function through a reusable
// matop functor; backward scales the output gradient by the derivative at
// the forward input.
type unaryOp struct {
	noTransient
	a, result *Node
	fn        *matop.Unary
}

func (op *unaryOp) forward(sample int) error {
	a, err := argMatrix(KindUnary, op.a, sample)
	if err != nil {
		return err
	}
	out, err := matrix.New(op.result.Rows(), op.result.Columns(), op.result.Depth())
	if err != nil {
		return err
	}
	if err := op.fn.Apply(a, out); err != nil {
		return err
	}
	return op.result.SetMatrix(sample, out)
}

func (op *unaryOp) backward(sample int) error {
	g, err := resultGradient(KindUnary, op.result, sample)
	if err != nil {
		return err
	}
	if op.a.StopGradient() {
		return nil
	}
	ga, err := matrix.New(op.a.Rows(), op.a.Columns(), op.a.Depth())
	if err != nil {
		return err
	}
	if err := op.fn.ApplyGradient(op.a.Matrix(sample), g, ga); err != nil {
		return err
	}
	return cumulate(op.a, sample, ga, false)
}

// binaryOp applies an elementwise two-argument catalog function; each
// argument receives its own partial-derivative contribution.
type binaryOp struct {
	noTransient
	a, b, result *Node
	fn           *matop.Binary
}

func (op *binaryOp) forward(sample int) error {
	a, err := argMatrix(KindBinary, op.a, sample)
	if err != nil {
		return err
	}
	b, err := argMatrix(KindBinary, op.b, sample)
	if err != nil {
		return err
	}
	out, err := matrix.New(op.result.Rows(), op.result.Columns(), op.result.Depth())
	if err != nil {
		return err
	}
	if err := op.fn.Apply(a, b, out); err != nil {
		return err
	}
	return op.result.SetMatrix(sample, out)
}

func (op *binaryOp) backward(sample int) error {
	g, err := resultGradient(KindBinary, op.result, sample)
	if err != nil {
		return err
	}
	a := op.a.Matrix(sample)
	b := op.b.Matrix(sample)
	for _, side := range []struct {
		node  *Node
		first bool
	}{{op.a, true}, {op.b, false}} {
		if side.node.StopGradient() {
			continue
		}
		partial, err := matrix.New(op.result.Rows(), op.result.Columns(), op.result.Depth())
		if err != nil {
			return err
		}
		if err := op.fn.ApplyGradient(a, b, g, partial, side.first); err != nil {
			return err
		}
		if err := cumulate(side.node, sample, partial, false); err != nil {
			return err
		}
	}
	return nil
}

// softmaxOp computes a max-shifted softmax over a column vector. Backward
// builds the Jacobian block J[i][j] = (i==j ? 1 : 0) − s[j] through the
// matop functor and feeds the chain rule as
//
//	∂L/∂x = Jᵀ · (s ⊙ ∂L/∂s)
type softmaxOp struct {
	noTransient
	a, result *Node
	grad      *matop.SoftmaxGradient
}

func (op *softmaxOp) forward(sample int) error {
	a, err := argMatrix(KindSoftmax, op.a, sample)
	if err != nil {
		return err
	}
	s, err := a.Softmax()
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, s)
}

func (op *softmaxOp) backward(sample int) error {
	g, err := resultGradient(KindSoftmax, op.result, sample)
	if err != nil {
		return err
	}
	if op.a.StopGradient() {
		return nil
	}
	s := op.result.Matrix(sample)
	jacobian, err := op.grad.Apply(s)
	if err != nil {
		return err
	}
	weighted, err := s.Multiply(g)
	if err != nil {
		return err
	}
	ga, err := jacobian.Transpose().Dot(weighted)
	if err != nil {
		return err
	}
	return cumulate(op.a, sample, ga, false)
}
