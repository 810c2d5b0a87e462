package graph

import (
	"fmt"

	"github.com/weft-ml/weft/internal/matrix"
	"github.com/weft-ml/weft/internal/parallel"
)

func parallelDefault() parallel.Config {
	return parallel.DefaultConfig()
}

// Procedure is a built computation graph: an ordered expression list over
// a fixed node set. Build it once, then drive it for many training steps;
// Forward and Backward walk the same expressions every step while only
// per-sample values, gradients and operator transients change.
type Procedure struct {
	exprs  []*Expression
	nodes  []*Node
	inputs []*Node
	output *Node
	params []*Node

	cfg   parallel.Config
	batch int

	// singleStep is set when any expression kind executes once per step
	// instead of once per sample. Such procedures run the batch serially
	// so the single-step expression observes its arguments in order.
	singleStep bool
}

// SetParallelism configures how samples fan out across workers.
func (p *Procedure) SetParallelism(cfg parallel.Config) {
	p.cfg = cfg
}

// Parameters returns the registered trainable nodes in handle order.
func (p *Procedure) Parameters() []*Node {
	return p.params
}

// Inputs returns the procedure's input nodes in feed order.
func (p *Procedure) Inputs() []*Node {
	return p.inputs
}

// Output returns the node Backward seeds.
func (p *Procedure) Output() *Node {
	return p.output
}

// Expressions returns the ordered expression list.
func (p *Procedure) Expressions() []*Expression {
	return p.exprs
}

// BatchSize returns the sample count of the most recent forward pass, or
// zero before the first.
func (p *Procedure) BatchSize() int {
	return p.batch
}

func (p *Procedure) sampleConfig() parallel.Config {
	if p.singleStep {
		cfg := p.cfg
		cfg.Enabled = false
		return cfg
	}
	return p.cfg
}

// Forward runs one forward pass over a mini-batch. One batch slice is
// supplied per input node, all of equal nonzero length; the return value
// holds the output node's matrix per sample index. Samples fan out across
// the worker pool and the call returns only after every sample finished,
// with the first error if any failed.
func (p *Procedure) Forward(inputBatches ...[]*matrix.Matrix) ([]*matrix.Matrix, error) {
	if len(inputBatches) != len(p.inputs) {
		return nil, fmt.Errorf("%w: %d input batches for %d input nodes", matrix.ErrConfig, len(inputBatches), len(p.inputs))
	}
	batch := len(inputBatches[0])
	if batch == 0 {
		return nil, fmt.Errorf("%w: empty batch", matrix.ErrConfig)
	}
	for i, ib := range inputBatches {
		if len(ib) != batch {
			return nil, fmt.Errorf("%w: input %q batch length %d, want %d", matrix.ErrConfig, p.inputs[i].Name(), len(ib), batch)
		}
	}

	p.batch = batch
	for _, n := range p.nodes {
		n.resize(batch)
	}
	for i, in := range p.inputs {
		for s, m := range inputBatches[i] {
			if err := in.SetMatrix(s, m); err != nil {
				return nil, fmt.Errorf("input %q, sample %d: %w", in.Name(), s, err)
			}
		}
	}
	for _, e := range p.exprs {
		e.op.begin(batch)
	}

	err := parallel.ForEach(batch, p.sampleConfig(), func(s int) error {
		for _, e := range p.exprs {
			if err := e.op.forward(s); err != nil {
				return fmt.Errorf("forward %s, sample %d: %w", e, s, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	outputs := make([]*matrix.Matrix, batch)
	for s := range outputs {
		m := p.output.Matrix(s)
		if m == nil {
			return nil, fmt.Errorf("%w: output %q, sample %d", ErrMissingValue, p.output.Name(), s)
		}
		outputs[s] = m
	}
	return outputs, nil
}

// Backward runs one backward pass, seeding the output node with one
// externally supplied gradient per sample index and walking the
// expressions in reverse registration order. Contributions sum into each
// node's accumulator; summation is order independent, so the result does
// not depend on worker scheduling.
func (p *Procedure) Backward(outputGrads []*matrix.Matrix) error {
	if p.batch == 0 {
		return fmt.Errorf("%w: backward before any forward pass", ErrMissingValue)
	}
	if len(outputGrads) != p.batch {
		return fmt.Errorf("%w: %d output gradients for batch of %d", matrix.ErrConfig, len(outputGrads), p.batch)
	}
	for s, g := range outputGrads {
		if err := p.output.CumulateGradient(s, g, false); err != nil {
			return fmt.Errorf("output gradient, sample %d: %w", s, err)
		}
	}
	return parallel.ForEach(p.batch, p.sampleConfig(), func(s int) error {
		for i := len(p.exprs) - 1; i >= 0; i-- {
			e := p.exprs[i]
			if err := e.op.backward(s); err != nil {
				return fmt.Errorf("backward %s, sample %d: %w", e, s, err)
			}
		}
		return nil
	})
}

// Reset ends a training step: per-sample values and all gradient
// accumulators are discarded and operator transients cleared. Parameter
// and constant values persist. Pre-seed recurrent state nodes with
// SetMatrix after Reset and before the next Forward.
func (p *Procedure) Reset() {
	for _, e := range p.exprs {
		e.op.reset()
	}
	for _, n := range p.nodes {
		n.ResetGradients()
		n.resetValues()
	}
	p.batch = 0
}
