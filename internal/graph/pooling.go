package graph

import (
	"fmt"

	"github.com/weft-ml/weft/internal/matop"
	"github.com/weft-ml/weft/internal/matrix"
)

// winnerArena holds the per-sample winning positions a routing pool
// records during forward. Buffers are sized once per batch and cleared,
// not reallocated, between steps.
type winnerArena struct {
	winners  [][]matop.Position
	recorded []bool
	size     int
}

func (a *winnerArena) resize(batch int) {
	for len(a.winners) < batch {
		a.winners = append(a.winners, make([]matop.Position, a.size))
		a.recorded = append(a.recorded, false)
	}
}

func (a *winnerArena) reset() {
	for i := range a.recorded {
		a.recorded[i] = false
	}
}

func (a *winnerArena) take(sample int) []matop.Position {
	a.recorded[sample] = true
	return a.winners[sample]
}

func (a *winnerArena) get(kind Kind, sample int) ([]matop.Position, error) {
	if sample >= len(a.recorded) || !a.recorded[sample] {
		return nil, fmt.Errorf("%w: %v winning positions for sample %d", ErrMissingValue, kind, sample)
	}
	return a.winners[sample], nil
}

// maxPoolOp records the argmax coordinate of each filter window during
// forward and routes the entire output gradient to exactly that
// coordinate during backward.
type maxPoolOp struct {
	a, result *Node
	fwd       *matop.MaxPool
	bwd       *matop.MaxPoolGradient
	arena     winnerArena
}

func (op *maxPoolOp) begin(batch int) { op.arena.resize(batch) }
func (op *maxPoolOp) reset()          { op.arena.reset() }

func (op *maxPoolOp) forward(sample int) error {
	a, err := argMatrix(KindMaxPool, op.a, sample)
	if err != nil {
		return err
	}
	out, err := matrix.New(op.result.Rows(), op.result.Columns(), op.result.Depth())
	if err != nil {
		return err
	}
	if err := op.fwd.Apply(a, out, op.arena.take(sample)); err != nil {
		return err
	}
	return op.result.SetMatrix(sample, out)
}

func (op *maxPoolOp) backward(sample int) error {
	g, err := resultGradient(KindMaxPool, op.result, sample)
	if err != nil {
		return err
	}
	if op.a.StopGradient() {
		return nil
	}
	winners, err := op.arena.get(KindMaxPool, sample)
	if err != nil {
		return err
	}
	ga, err := matrix.New(op.a.Rows(), op.a.Columns(), op.a.Depth())
	if err != nil {
		return err
	}
	if err := op.bwd.Apply(g, ga, winners); err != nil {
		return err
	}
	return cumulate(op.a, sample, ga, false)
}

// averagePoolOp distributes the output gradient evenly over each filter
// window; it needs no per-sample transient state.
type averagePoolOp struct {
	noTransient
	a, result *Node
	fwd       *matop.AveragePool
	bwd       *matop.AveragePoolGradient
}

func (op *averagePoolOp) forward(sample int) error {
	a, err := argMatrix(KindAveragePool, op.a, sample)
	if err != nil {
		return err
	}
	out, err := matrix.New(op.result.Rows(), op.result.Columns(), op.result.Depth())
	if err != nil {
		return err
	}
	if err := op.fwd.Apply(a, out); err != nil {
		return err
	}
	return op.result.SetMatrix(sample, out)
}

func (op *averagePoolOp) backward(sample int) error {
	g, err := resultGradient(KindAveragePool, op.result, sample)
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
	if err := op.bwd.Apply(g, ga); err != nil {
		return err
	}
	return cumulate(op.a, sample, ga, false)
}

// cyclicPoolOp selects one window position per step, cycling across
// steps; like max pooling, backward routes gradient only to the recorded
// coordinates.
type cyclicPoolOp struct {
	a, result *Node
	fwd       *matop.CyclicPool
	bwd       *matop.MaxPoolGradient
	arena     winnerArena
	started   bool
}

// begin advances the cycle position once per step. The first step uses
// the initial position.
func (op *cyclicPoolOp) begin(batch int) {
	op.arena.resize(batch)
	if op.started {
		op.fwd.Advance()
	}
	op.started = true
}

func (op *cyclicPoolOp) reset() {
	op.arena.reset()
}

func (op *cyclicPoolOp) forward(sample int) error {
	a, err := argMatrix(KindCyclicPool, op.a, sample)
	if err != nil {
		return err
	}
	out, err := matrix.New(op.result.Rows(), op.result.Columns(), op.result.Depth())
	if err != nil {
		return err
	}
	if err := op.fwd.Apply(a, out, op.arena.take(sample)); err != nil {
		return err
	}
	return op.result.SetMatrix(sample, out)
}

func (op *cyclicPoolOp) backward(sample int) error {
	g, err := resultGradient(KindCyclicPool, op.result, sample)
	if err != nil {
		return err
	}
	if op.a.StopGradient() {
		return nil
	}
	winners, err := op.arena.get(KindCyclicPool, sample)
	if err != nil {
		return err
	}
	ga, err := matrix.New(op.a.Rows(), op.a.Columns(), op.a.Depth())
	if err != nil {
		return err
	}
	if err := op.bwd.Apply(g, ga, winners); err != nil {
		return err
	}
	return cumulate(op.a, sample, ga, false)
}
