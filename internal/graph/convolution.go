package graph

import (
	"github.com/weft-ml/weft/internal/matop"
	"github.com/weft-ml/weft/internal/matrix"
)

// convOp covers both convolution and cross-correlation expressions; the
// matop functor carries the mode. Backward pushes independent
// contributions into the input and the filter.
type convOp struct {
	noTransient
	kind          Kind
	input, filter *Node
	result        *Node
	conv          *matop.Convolution
}

func (op *convOp) forward(sample int) error {
	input, err := argMatrix(op.kind, op.input, sample)
	if err != nil {
		return err
	}
	filter, err := argMatrix(op.kind, op.filter, sample)
	if err != nil {
		return err
	}
	out, err := matrix.New(op.result.Rows(), op.result.Columns(), op.result.Depth())
	if err != nil {
		return err
	}
	if err := op.conv.Apply(input, filter, out); err != nil {
		return err
	}
	return op.result.SetMatrix(sample, out)
}

func (op *convOp) backward(sample int) error {
	g, err := resultGradient(op.kind, op.result, sample)
	if err != nil {
		return err
	}
	if !op.input.StopGradient() {
		ig, err := matrix.New(op.input.Rows(), op.input.Columns(), op.input.Depth())
		if err != nil {
			return err
		}
		if err := op.conv.InputGradient(g, op.filter.Matrix(sample), ig); err != nil {
			return err
		}
		if err := cumulate(op.input, sample, ig, false); err != nil {
			return err
		}
	}
	if !op.filter.StopGradient() {
		fg, err := matrix.New(op.filter.Rows(), op.filter.Columns(), op.filter.Depth())
		if err != nil {
			return err
		}
		if err := op.conv.FilterGradient(g, op.input.Matrix(sample), fg); err != nil {
			return err
		}
		if err := cumulate(op.filter, sample, fg, false); err != nil {
			return err
		}
	}
	return nil
}
