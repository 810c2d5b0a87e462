package graph

import (
	"fmt"

	"github.com/weft-ml/weft/internal/matrix"
)

// Kind identifies an expression's operation. New kinds are introduced by
// adding an entry to the registration table; the procedure engine
// dispatches purely through the operator contract and never inspects
// operation semantics.
type Kind int

// Built-in expression kinds.
const (
	KindAdd Kind = iota
	KindSubtract
	KindMultiply
	KindDivide
	KindDot
	KindUnary
	KindBinary
	KindSoftmax
	KindJoin
	KindUnjoin
	KindConvolution
	KindCrossCorrelation
	KindMaxPool
	KindAveragePool
	KindCyclicPool
	KindDropout
)

// kindInfo is one registration table entry.
type kindInfo struct {
	name string
	// singleStep marks kinds whose forward/backward run once for the
	// whole batch instead of once per sample index. Decided at
	// registration, a build-time property of the kind.
	singleStep bool
}

var kindTable = map[Kind]kindInfo{}

func registerKind(k Kind, name string, singleStep bool) {
	kindTable[k] = kindInfo{name: name, singleStep: singleStep}
}

func init() {
	registerKind(KindAdd, "ADD", false)
	registerKind(KindSubtract, "SUBTRACT", false)
	registerKind(KindMultiply, "MULTIPLY", false)
	registerKind(KindDivide, "DIVIDE", false)
	registerKind(KindDot, "DOT", false)
	registerKind(KindUnary, "UNARY_FUNCTION", false)
	registerKind(KindBinary, "BINARY_FUNCTION", false)
	registerKind(KindSoftmax, "SOFTMAX", false)
	registerKind(KindJoin, "JOIN", false)
	registerKind(KindUnjoin, "UNJOIN", false)
	registerKind(KindConvolution, "CONVOLUTION", false)
	registerKind(KindCrossCorrelation, "CROSS_CORRELATION", false)
	registerKind(KindMaxPool, "MAX_POOL", false)
	registerKind(KindAveragePool, "AVERAGE_POOL", false)
	registerKind(KindCyclicPool, "CYCLIC_POOL", false)
	registerKind(KindDropout, "DROPOUT", false)
}

// String returns the registered kind name.
func (k Kind) String() string {
	if info, ok := kindTable[k]; ok {
		return info.name
	}
	return fmt.Sprintf("KIND(%d)", int(k))
}

// SingleStep reports whether expressions of this kind execute once per
// step rather than once per sample index.
func (k Kind) SingleStep() bool {
	return kindTable[k].singleStep
}

// operator is the per-kind payload behind an expression: how to compute
// the result for one sample index and how to push gradient contributions
// back into the arguments.
type operator interface {
	forward(sample int) error
	backward(sample int) error

	// begin runs once at the start of each forward pass, before any
	// sample fans out: it grows per-sample transient buffers to the
	// batch size and advances whatever per-step state the operation
	// keeps (the cyclic pool position).
	begin(batch int)

	// reset clears per-sample transient state between training steps.
	// Buffers are cleared, not reallocated.
	reset()
}

// noTransient is embedded by operators without per-sample working state.
type noTransient struct{}

func (noTransient) begin(int) {}
func (noTransient) reset()    {}

// Expression is one computation-graph edge: an operation kind, its
// argument nodes and its result node. Structural identity is immutable
// after creation; only per-sample transient working state inside the
// operator mutates during a step.
type Expression struct {
	id     int
	kind   Kind
	args   []*Node
	result *Node
	op     operator
}

// ID returns the expression's position in the procedure's ordered list.
func (e *Expression) ID() int { return e.id }

// Kind returns the operation kind.
func (e *Expression) Kind() Kind { return e.kind }

// Args returns the argument nodes.
func (e *Expression) Args() []*Node { return e.args }

// Result returns the result node. A result node is written by exactly one
// expression.
func (e *Expression) Result() *Node { return e.result }

// String renders the expression for diagnostics.
func (e *Expression) String() string {
	return fmt.Sprintf("#%d %v -> %s", e.id, e.kind, e.result.Name())
}

// argMatrix fetches an argument's value for a sample index, failing with a
// missing-value error naming the expression when absent.
func argMatrix(kind Kind, n *Node, sample int) (*matrix.Matrix, error) {
	m := n.Matrix(sample)
	if m == nil {
		return nil, fmt.Errorf("%w: %v argument %q, sample %d", ErrMissingValue, kind, n.Name(), sample)
	}
	return m, nil
}

// resultGradient fetches the result node's accumulated gradient for a
// sample index, failing when no contribution has arrived.
func resultGradient(kind Kind, n *Node, sample int) (*matrix.Matrix, error) {
	g, err := n.Gradient(sample)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %v result gradient %q, sample %d", ErrMissingValue, kind, n.Name(), sample)
	}
	return g, nil
}

// cumulate routes a gradient contribution into an argument node, summing
// the contribution down to the node's shape when the node is a broadcast
// scalar. Stop-gradient nodes are skipped before any work is done.
func cumulate(n *Node, sample int, contribution *matrix.Matrix, negate bool) error {
	if n.StopGradient() {
		return nil
	}
	if n.Rows() == 1 && n.Columns() == 1 && n.Depth() == 1 && contribution.Size() > 1 {
		contribution = matrix.Scalar(contribution.Sum())
	}
	return n.CumulateGradient(sample, contribution, negate)
}
