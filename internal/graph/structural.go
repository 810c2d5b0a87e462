package graph

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/weft-ml/weft/internal/matrix"
)

// joinOp concatenates two arguments along rows or columns; backward
// slices the output gradient back apart.
type joinOp struct {
	noTransient
	a, b, result *Node
	alongRows    bool
}

func (op *joinOp) forward(sample int) error {
	a, err := argMatrix(KindJoin, op.a, sample)
	if err != nil {
		return err
	}
	b, err := argMatrix(KindJoin, op.b, sample)
	if err != nil {
		return err
	}
	joined, err := a.Join(b, op.alongRows)
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, joined)
}

func (op *joinOp) backward(sample int) error {
	g, err := resultGradient(KindJoin, op.result, sample)
	if err != nil {
		return err
	}
	if !op.a.StopGradient() {
		ga, err := g.Unjoin(0, 0, op.a.Rows(), op.a.Columns())
		if err != nil {
			return err
		}
		if err := cumulate(op.a, sample, ga, false); err != nil {
			return err
		}
	}
	if !op.b.StopGradient() {
		atRow, atColumn := 0, op.a.Columns()
		if op.alongRows {
			atRow, atColumn = op.a.Rows(), 0
		}
		gb, err := g.Unjoin(atRow, atColumn, op.b.Rows(), op.b.Columns())
		if err != nil {
			return err
		}
		if err := cumulate(op.b, sample, gb, false); err != nil {
			return err
		}
	}
	return nil
}

// unjoinOp slices a submatrix out of its argument; backward scatters the
// output gradient into the argument's shape at the slice offset, zero
// elsewhere.
type unjoinOp struct {
	noTransient
	a, result       *Node
	atRow, atColumn int
}

func (op *unjoinOp) forward(sample int) error {
	a, err := argMatrix(KindUnjoin, op.a, sample)
	if err != nil {
		return err
	}
	slice, err := a.Unjoin(op.atRow, op.atColumn, op.result.Rows(), op.result.Columns())
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, slice)
}

func (op *unjoinOp) backward(sample int) error {
	g, err := resultGradient(KindUnjoin, op.result, sample)
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
	if err := ga.AddAtOffset(g, op.atRow, op.atColumn); err != nil {
		return err
	}
	return cumulate(op.a, sample, ga, false)
}

// dropoutOp draws a fresh Bernoulli mask per sample each step, scales the
// surviving elements by 1/(1−p) (inverted dropout) and attaches the mask
// to the result so masked positions read as zero. Backward is mask-aware:
// it routes gradient only through surviving positions, with the same
// scale. The masks are the expression's per-sample transient state.
type dropoutOp struct {
	a, result   *Node
	probability float64

	mu    sync.Mutex
	rng   *rand.Rand
	masks []*matrix.Mask
}

func (op *dropoutOp) begin(batch int) {
	for len(op.masks) < batch {
		op.masks = append(op.masks, nil)
	}
}

func (op *dropoutOp) reset() {
	for i := range op.masks {
		op.masks[i] = nil
	}
}

func (op *dropoutOp) drawMask() (*matrix.Mask, error) {
	// rand.Rand is not safe for concurrent sample workers.
	op.mu.Lock()
	defer op.mu.Unlock()
	return matrix.NewBernoulliMask(op.a.Rows(), op.a.Columns(), op.a.Depth(), op.probability, op.rng)
}

func (op *dropoutOp) forward(sample int) error {
	a, err := argMatrix(KindDropout, op.a, sample)
	if err != nil {
		return err
	}
	mask, err := op.drawMask()
	if err != nil {
		return err
	}
	op.masks[sample] = mask

	scale := 1 / (1 - op.probability)
	out, err := matrix.New(op.a.Rows(), op.a.Columns(), op.a.Depth())
	if err != nil {
		return err
	}
	for d := 0; d < op.a.Depth(); d++ {
		for r := 0; r < op.a.Rows(); r++ {
			for c := 0; c < op.a.Columns(); c++ {
				out.Set(r, c, d, a.At(r, c, d)*scale)
			}
		}
	}
	if err := out.SetMask(mask); err != nil {
		return err
	}
	return op.result.SetMatrix(sample, out)
}

func (op *dropoutOp) backward(sample int) error {
	g, err := resultGradient(KindDropout, op.result, sample)
	if err != nil {
		return err
	}
	if op.a.StopGradient() {
		return nil
	}
	mask := op.masks[sample]
	if mask == nil {
		return fmt.Errorf("%w: %v mask for sample %d", ErrMissingValue, KindDropout, sample)
	}
	scale := 1 / (1 - op.probability)
	ga, err := matrix.New(op.a.Rows(), op.a.Columns(), op.a.Depth())
	if err != nil {
		return err
	}
	for d := 0; d < op.a.Depth(); d++ {
		for r := 0; r < op.a.Rows(); r++ {
			for c := 0; c < op.a.Columns(); c++ {
				if mask.IsMasked(r, c, d) {
					continue
				}
				ga.Set(r, c, d, g.At(r, c, d)*scale)
			}
		}
	}
	return cumulate(op.a, sample, ga, false)
}
