// Package graph implements the reverse-mode automatic differentiation
// graph: nodes holding per-sample values and gradient accumulators,
// expressions recording one operation each, and the procedure that drives
// forward and backward passes across a mini-batch.
package graph

import (
	"errors"
	"fmt"
	"sync"

	"github.com/weft-ml/weft/internal/matrix"
)

// Sentinel errors for the graph failure categories.
var (
	// ErrMissingValue indicates a node was queried before any forward pass
	// populated it for the requested sample index. This is a
	// graph-construction or ordering bug and is never retried.
	ErrMissingValue = errors.New("graph: value not populated")

	// ErrBuild indicates a structural problem detected while assembling a
	// procedure.
	ErrBuild = errors.New("graph: invalid graph structure")
)

// Node holds, for every sample index of a mini-batch, one value matrix and
// one lazily created gradient accumulator. The accumulator is the sum of
// every backward contribution routed to the node during a training step,
// independent of arrival order.
//
// A single node (parameters, constants) shares one value and one gradient
// accumulator across all sample indices; contributions from concurrent
// sample workers are serialized by the node's mutex.
type Node struct {
	name         string
	rows         int
	columns      int
	depth        int
	single       bool
	stopGradient bool
	regularized  bool
	weight       bool
	handle       int

	mu          sync.Mutex
	values      []*matrix.Matrix
	grads       []*matrix.Matrix
	singleValue *matrix.Matrix
	singleGrad  *matrix.Matrix
}

func newNode(name string, rows, columns, depth int) (*Node, error) {
	if rows <= 0 || columns <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: node %q dimensions %dx%dx%d must be positive", matrix.ErrConfig, name, rows, columns, depth)
	}
	return &Node{name: name, rows: rows, columns: columns, depth: depth, handle: -1}, nil
}

func newSingleNode(name string, value *matrix.Matrix, stopGradient bool) *Node {
	return &Node{
		name:         name,
		rows:         value.Rows(),
		columns:      value.Columns(),
		depth:        value.Depth(),
		single:       true,
		stopGradient: stopGradient,
		handle:       -1,
		singleValue:  value,
	}
}

// Name returns the node's diagnostic name.
func (n *Node) Name() string { return n.name }

// Rows returns the row count of the node's matrices.
func (n *Node) Rows() int { return n.rows }

// Columns returns the column count of the node's matrices.
func (n *Node) Columns() int { return n.columns }

// Depth returns the depth of the node's matrices.
func (n *Node) Depth() int { return n.depth }

// StopGradient reports whether backward propagation into this node is
// suppressed.
func (n *Node) StopGradient() bool { return n.stopGradient }

// Single reports whether the node shares one matrix across all sample
// indices (parameters and constants).
func (n *Node) Single() bool { return n.single }

// IsWeight reports whether the node was registered as a trainable weight.
func (n *Node) IsWeight() bool { return n.weight }

// IsRegularized reports whether regularizers should see this parameter.
func (n *Node) IsRegularized() bool { return n.regularized }

// Handle returns the integer handle assigned at parameter registration,
// or -1 for unregistered nodes. Optimizer state is stored in parallel
// arrays indexed by this handle.
func (n *Node) Handle() int { return n.handle }

// resize grows the per-sample slices to the batch size. Existing entries
// are preserved so explicit recurrence can pre-seed sample values.
func (n *Node) resize(batch int) {
	if n.single {
		return
	}
	for len(n.values) < batch {
		n.values = append(n.values, nil)
	}
	for len(n.grads) < batch {
		n.grads = append(n.grads, nil)
	}
}

// Matrix returns the value for a sample index, or nil if none was set.
func (n *Node) Matrix(sample int) *matrix.Matrix {
	if n.single {
		return n.singleValue
	}
	if sample < 0 || sample >= len(n.values) {
		return nil
	}
	return n.values[sample]
}

func (n *Node) checkShape(m *matrix.Matrix) error {
	if m.Rows() != n.rows || m.Columns() != n.columns || m.Depth() != n.depth {
		return fmt.Errorf("%w: %s assigned to node %q (%dx%dx%d)", matrix.ErrShape, m, n.name, n.rows, n.columns, n.depth)
	}
	return nil
}

// SetMatrix stores the value for a sample index. For single nodes the
// sample index is ignored and the shared value is replaced.
func (n *Node) SetMatrix(sample int, m *matrix.Matrix) error {
	if err := n.checkShape(m); err != nil {
		return err
	}
	if n.single {
		n.singleValue = m
		return nil
	}
	if sample < 0 || sample >= len(n.values) {
		return fmt.Errorf("%w: sample index %d outside batch of %d for node %q", matrix.ErrConfig, sample, len(n.values), n.name)
	}
	n.values[sample] = m
	return nil
}

// Gradient returns the accumulated gradient for a sample index. It fails
// if no forward pass populated the node's value for that sample; it
// returns nil (without error) when the value exists but no contribution
// has arrived yet. Single nodes share one accumulator across samples.
func (n *Node) Gradient(sample int) (*matrix.Matrix, error) {
	if n.single {
		n.mu.Lock()
		defer n.mu.Unlock()
		return n.singleGrad, nil
	}
	if sample < 0 || sample >= len(n.values) || n.values[sample] == nil {
		return nil, fmt.Errorf("%w: node %q has no value for sample %d", ErrMissingValue, n.name, sample)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.grads[sample], nil
}

// CumulateGradient adds (or subtracts, when negate is set) a contribution
// into the accumulator for a sample index, creating a zero accumulator on
// first contribution. Stop-gradient nodes silently ignore contributions so
// graph code never special-cases leaf or constant nodes.
func (n *Node) CumulateGradient(sample int, contribution *matrix.Matrix, negate bool) error {
	if n.stopGradient {
		return nil
	}
	if err := n.checkShape(contribution); err != nil {
		return err
	}
	if !n.single && (sample < 0 || sample >= len(n.grads)) {
		return fmt.Errorf("%w: sample index %d outside batch of %d for node %q", matrix.ErrConfig, sample, len(n.grads), n.name)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	target := n.singleGrad
	if !n.single {
		target = n.grads[sample]
	}
	if target == nil {
		zero, err := matrix.New(n.rows, n.columns, n.depth)
		if err != nil {
			return err
		}
		target = zero
		if n.single {
			n.singleGrad = zero
		} else {
			n.grads[sample] = zero
		}
	}
	if negate {
		return target.SubtractInto(contribution, target)
	}
	return target.AddInto(contribution, target)
}

// ResetGradients discards all gradient accumulators. Values are untouched.
func (n *Node) ResetGradients() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.singleGrad = nil
	for i := range n.grads {
		n.grads[i] = nil
	}
}

// resetValues discards per-sample values. Single nodes keep their shared
// value; this is what preserves parameters across steps.
func (n *Node) resetValues() {
	for i := range n.values {
		n.values[i] = nil
	}
}

// String renders the node name and shape for diagnostics.
func (n *Node) String() string {
	return fmt.Sprintf("%s(%dx%dx%d)", n.name, n.rows, n.columns, n.depth)
}
