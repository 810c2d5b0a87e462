package graph

import (
	"fmt"
	"math/rand"

	"github.com/weft-ml/weft/internal/matop"
	"github.com/weft-ml/weft/internal/matrix"
)

// Builder assembles a procedure's expression graph. Expressions are
// appended in dependency order by construction: every argument node must
// already exist when an operation is added, and each operation creates a
// fresh result node, so the insertion order is a topological order and
// every result node has exactly one writer.
//
// All shape validation happens here, at graph-build time; a procedure
// that builds successfully only fails at runtime for missing values.
type Builder struct {
	nodes  map[*Node]struct{}
	exprs  []*Expression
	params []*Node
	rng    *rand.Rand
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes: make(map[*Node]struct{}),
		rng:   rand.New(rand.NewSource(rand.Int63())),
	}
}

// Seed fixes the random source used by stochastic expressions (dropout).
func (b *Builder) Seed(seed int64) {
	b.rng = rand.New(rand.NewSource(seed))
}

func (b *Builder) adopt(n *Node) *Node {
	b.nodes[n] = struct{}{}
	return n
}

func (b *Builder) checkArg(kind Kind, n *Node) error {
	if n == nil {
		return fmt.Errorf("%w: %v argument is nil", ErrBuild, kind)
	}
	if _, ok := b.nodes[n]; !ok {
		return fmt.Errorf("%w: %v argument %q does not belong to this graph", ErrBuild, kind, n.Name())
	}
	return nil
}

func (b *Builder) newResult(kind Kind, rows, columns, depth int) (*Node, error) {
	n, err := newNode(fmt.Sprintf("%v_%d", kind, len(b.exprs)), rows, columns, depth)
	if err != nil {
		return nil, err
	}
	return b.adopt(n), nil
}

func (b *Builder) append(kind Kind, args []*Node, result *Node, op operator) *Node {
	b.exprs = append(b.exprs, &Expression{
		id:     len(b.exprs),
		kind:   kind,
		args:   args,
		result: result,
		op:     op,
	})
	return result
}

// Input declares a mini-batch input node with per-sample values supplied
// to Procedure.Forward.
func (b *Builder) Input(name string, rows, columns, depth int) (*Node, error) {
	n, err := newNode(name, rows, columns, depth)
	if err != nil {
		return nil, err
	}
	return b.adopt(n), nil
}

// State declares a per-sample node whose values the caller seeds directly
// via SetMatrix before Forward. Recurrent layers thread state (the
// previous output) through such nodes, making the recurrence an explicit
// edge rather than hidden coupling.
func (b *Builder) State(name string, rows, columns, depth int) (*Node, error) {
	return b.Input(name, rows, columns, depth)
}

// Parameter registers a trainable matrix shared across all sample
// indices. The returned node carries the integer handle optimizers key
// their state on. Gradient contributions from every sample sum into one
// accumulator.
func (b *Builder) Parameter(m *matrix.Matrix, regularized, weight bool) *Node {
	name := m.Name()
	if name == "" {
		name = fmt.Sprintf("parameter_%d", len(b.params))
	}
	n := newSingleNode(name, m, false)
	n.regularized = regularized
	n.weight = weight
	n.handle = len(b.params)
	b.params = append(b.params, n)
	return b.adopt(n)
}

// Constant registers a fixed matrix shared across all sample indices.
// Constant nodes are stop-gradient: backward contributions are silently
// dropped and no optimizer ever updates them.
func (b *Builder) Constant(m *matrix.Matrix) *Node {
	name := m.Name()
	if name == "" {
		name = "constant"
	}
	return b.adopt(newSingleNode(name, m, true))
}

// StopGradient marks a node so that no backward contribution is accepted
// or propagated through it.
func (b *Builder) StopGradient(n *Node) *Node {
	n.stopGradient = true
	return n
}

// broadcastDims resolves result dimensions for elementwise operations,
// treating 1x1x1 nodes as broadcast scalars.
func broadcastDims(kind Kind, a, c *Node) (rows, columns, depth int, err error) {
	aScalar := a.Rows() == 1 && a.Columns() == 1 && a.Depth() == 1
	cScalar := c.Rows() == 1 && c.Columns() == 1 && c.Depth() == 1
	switch {
	case a.Rows() == c.Rows() && a.Columns() == c.Columns() && a.Depth() == c.Depth():
		return a.Rows(), a.Columns(), a.Depth(), nil
	case aScalar:
		return c.Rows(), c.Columns(), c.Depth(), nil
	case cScalar:
		return a.Rows(), a.Columns(), a.Depth(), nil
	default:
		return 0, 0, 0, fmt.Errorf("%w: %v arguments %s vs %s", matrix.ErrShape, kind, a, c)
	}
}

func (b *Builder) elementwise(kind Kind, a, c *Node, makeOp func(result *Node) operator) (*Node, error) {
	if err := b.checkArg(kind, a); err != nil {
		return nil, err
	}
	if err := b.checkArg(kind, c); err != nil {
		return nil, err
	}
	rows, columns, depth, err := broadcastDims(kind, a, c)
	if err != nil {
		return nil, err
	}
	result, err := b.newResult(kind, rows, columns, depth)
	if err != nil {
		return nil, err
	}
	return b.append(kind, []*Node{a, c}, result, makeOp(result)), nil
}

// Add appends result = a + c.
func (b *Builder) Add(a, c *Node) (*Node, error) {
	return b.elementwise(KindAdd, a, c, func(result *Node) operator {
		return &addOp{a: a, b: c, result: result}
	})
}

// Subtract appends result = a − c.
func (b *Builder) Subtract(a, c *Node) (*Node, error) {
	return b.elementwise(KindSubtract, a, c, func(result *Node) operator {
		return &subOp{a: a, b: c, result: result}
	})
}

// Multiply appends result = a ⊙ c.
func (b *Builder) Multiply(a, c *Node) (*Node, error) {
	return b.elementwise(KindMultiply, a, c, func(result *Node) operator {
		return &mulOp{a: a, b: c, result: result}
	})
}

// Divide appends result = a / c.
func (b *Builder) Divide(a, c *Node) (*Node, error) {
	return b.elementwise(KindDivide, a, c, func(result *Node) operator {
		return &divOp{a: a, b: c, result: result}
	})
}

// Dot appends the matrix product result = a · c.
func (b *Builder) Dot(a, c *Node) (*Node, error) {
	if err := b.checkArg(KindDot, a); err != nil {
		return nil, err
	}
	if err := b.checkArg(KindDot, c); err != nil {
		return nil, err
	}
	if a.Columns() != c.Rows() || a.Depth() != c.Depth() {
		return nil, fmt.Errorf("%w: %v %s · %s", matrix.ErrShape, KindDot, a, c)
	}
	result, err := b.newResult(KindDot, a.Rows(), c.Columns(), a.Depth())
	if err != nil {
		return nil, err
	}
	return b.append(KindDot, []*Node{a, c}, result, &dotOp{a: a, b: c, result: result}), nil
}

// Unary appends an elementwise catalog function. Softmax routes to the
// whole-matrix Softmax expression since it needs cross-element context.
func (b *Builder) Unary(a *Node, fnType matrix.UnaryFunctionType) (*Node, error) {
	if fnType == matrix.Softmax {
		return b.Softmax(a)
	}
	if err := b.checkArg(KindUnary, a); err != nil {
		return nil, err
	}
	fn, err := matop.NewUnary(a.Rows(), a.Columns(), a.Depth(), fnType)
	if err != nil {
		return nil, err
	}
	result, err := b.newResult(KindUnary, a.Rows(), a.Columns(), a.Depth())
	if err != nil {
		return nil, err
	}
	return b.append(KindUnary, []*Node{a}, result, &unaryOp{a: a, result: result, fn: fn}), nil
}

// Binary appends an elementwise two-argument catalog function.
func (b *Builder) Binary(a, c *Node, fnType matrix.BinaryFunctionType) (*Node, error) {
	if err := b.checkArg(KindBinary, a); err != nil {
		return nil, err
	}
	if err := b.checkArg(KindBinary, c); err != nil {
		return nil, err
	}
	rows, columns, depth, err := broadcastDims(KindBinary, a, c)
	if err != nil {
		return nil, err
	}
	fn, err := matop.NewBinary(rows, columns, depth, fnType)
	if err != nil {
		return nil, err
	}
	result, err := b.newResult(KindBinary, rows, columns, depth)
	if err != nil {
		return nil, err
	}
	return b.append(KindBinary, []*Node{a, c}, result, &binaryOp{a: a, b: c, result: result, fn: fn}), nil
}

// Softmax appends a max-shifted softmax over a column vector.
func (b *Builder) Softmax(a *Node) (*Node, error) {
	if err := b.checkArg(KindSoftmax, a); err != nil {
		return nil, err
	}
	if a.Columns() != 1 {
		return nil, fmt.Errorf("%w: %v needs a column vector, got %s", matrix.ErrShape, KindSoftmax, a)
	}
	grad, err := matop.NewSoftmaxGradient(a.Rows(), a.Depth())
	if err != nil {
		return nil, err
	}
	result, err := b.newResult(KindSoftmax, a.Rows(), 1, a.Depth())
	if err != nil {
		return nil, err
	}
	return b.append(KindSoftmax, []*Node{a}, result, &softmaxOp{a: a, result: result, grad: grad}), nil
}

// Join appends the concatenation of a and c along rows (alongRows) or
// columns.
func (b *Builder) Join(a, c *Node, alongRows bool) (*Node, error) {
	if err := b.checkArg(KindJoin, a); err != nil {
		return nil, err
	}
	if err := b.checkArg(KindJoin, c); err != nil {
		return nil, err
	}
	if a.Depth() != c.Depth() ||
		(alongRows && a.Columns() != c.Columns()) ||
		(!alongRows && a.Rows() != c.Rows()) {
		return nil, fmt.Errorf("%w: %v %s with %s", matrix.ErrShape, KindJoin, a, c)
	}
	rows, columns := a.Rows(), a.Columns()+c.Columns()
	if alongRows {
		rows, columns = a.Rows()+c.Rows(), a.Columns()
	}
	result, err := b.newResult(KindJoin, rows, columns, a.Depth())
	if err != nil {
		return nil, err
	}
	return b.append(KindJoin, []*Node{a, c}, result, &joinOp{a: a, b: c, result: result, alongRows: alongRows}), nil
}

// Unjoin appends the rows × columns slice of a starting at
// (atRow, atColumn).
func (b *Builder) Unjoin(a *Node, atRow, atColumn, rows, columns int) (*Node, error) {
	if err := b.checkArg(KindUnjoin, a); err != nil {
		return nil, err
	}
	if atRow < 0 || atColumn < 0 || rows <= 0 || columns <= 0 ||
		atRow+rows > a.Rows() || atColumn+columns > a.Columns() {
		return nil, fmt.Errorf("%w: %v %dx%d at (%d,%d) from %s", matrix.ErrShape, KindUnjoin, rows, columns, atRow, atColumn, a)
	}
	result, err := b.newResult(KindUnjoin, rows, columns, a.Depth())
	if err != nil {
		return nil, err
	}
	return b.append(KindUnjoin, []*Node{a}, result, &unjoinOp{a: a, result: result, atRow: atRow, atColumn: atColumn}), nil
}

// Dropout appends an inverted-dropout expression masking each element
// independently with the given probability.
func (b *Builder) Dropout(a *Node, probability float64) (*Node, error) {
	if err := b.checkArg(KindDropout, a); err != nil {
		return nil, err
	}
	if probability < 0 || probability >= 1 {
		return nil, fmt.Errorf("%w: dropout probability %v outside [0,1)", matrix.ErrConfig, probability)
	}
	result, err := b.newResult(KindDropout, a.Rows(), a.Columns(), a.Depth())
	if err != nil {
		return nil, err
	}
	return b.append(KindDropout, []*Node{a}, result, &dropoutOp{
		a:           a,
		result:      result,
		probability: probability,
		rng:         b.rng,
	}), nil
}

func (b *Builder) convolution(kind Kind, input, filter *Node, filters, stride, dilation int, depthSeparable, crossCorrelate bool) (*Node, error) {
	if err := b.checkArg(kind, input); err != nil {
		return nil, err
	}
	if err := b.checkArg(kind, filter); err != nil {
		return nil, err
	}
	conv, err := matop.NewConvolution(
		input.Rows(), input.Columns(), input.Depth(),
		filter.Rows(), filter.Columns(),
		filters, stride, dilation, depthSeparable, crossCorrelate,
	)
	if err != nil {
		return nil, err
	}
	if filter.Depth() != conv.FilterDepth() {
		return nil, fmt.Errorf("%w: %v filter %s needs depth %d", matrix.ErrShape, kind, filter, conv.FilterDepth())
	}
	result, err := b.newResult(kind, conv.OutRows(), conv.OutColumns(), conv.OutDepth())
	if err != nil {
		return nil, err
	}
	return b.append(kind, []*Node{input, filter}, result, &convOp{
		kind:   kind,
		input:  input,
		filter: filter,
		result: result,
		conv:   conv,
	}), nil
}

// Convolve appends a convolution (filter rotated 180°) of input with the
// filter bank held by the filter node.
func (b *Builder) Convolve(input, filter *Node, filters, stride, dilation int, depthSeparable bool) (*Node, error) {
	return b.convolution(KindConvolution, input, filter, filters, stride, dilation, depthSeparable, false)
}

// CrossCorrelate appends a cross-correlation (filter applied as-is).
func (b *Builder) CrossCorrelate(input, filter *Node, filters, stride, dilation int, depthSeparable bool) (*Node, error) {
	return b.convolution(KindCrossCorrelation, input, filter, filters, stride, dilation, depthSeparable, true)
}

// MaxPool appends a max pooling expression.
func (b *Builder) MaxPool(a *Node, filterRows, filterColumns, stride, dilation int) (*Node, error) {
	if err := b.checkArg(KindMaxPool, a); err != nil {
		return nil, err
	}
	fwd, err := matop.NewMaxPool(a.Rows(), a.Columns(), a.Depth(), filterRows, filterColumns, stride, dilation)
	if err != nil {
		return nil, err
	}
	result, err := b.newResult(KindMaxPool, fwd.OutRows(), fwd.OutColumns(), fwd.OutDepth())
	if err != nil {
		return nil, err
	}
	op := &maxPoolOp{a: a, result: result, fwd: fwd, bwd: fwd.Gradient()}
	op.arena.size = fwd.WinnerCount()
	return b.append(KindMaxPool, []*Node{a}, result, op), nil
}

// AveragePool appends an average pooling expression.
func (b *Builder) AveragePool(a *Node, filterRows, filterColumns, stride, dilation int) (*Node, error) {
	if err := b.checkArg(KindAveragePool, a); err != nil {
		return nil, err
	}
	fwd, err := matop.NewAveragePool(a.Rows(), a.Columns(), a.Depth(), filterRows, filterColumns, stride, dilation)
	if err != nil {
		return nil, err
	}
	result, err := b.newResult(KindAveragePool, fwd.OutRows(), fwd.OutColumns(), fwd.OutDepth())
	if err != nil {
		return nil, err
	}
	return b.append(KindAveragePool, []*Node{a}, result, &averagePoolOp{a: a, result: result, fwd: fwd, bwd: fwd.Gradient()}), nil
}

// CyclicPool appends a cyclic pooling expression.
func (b *Builder) CyclicPool(a *Node, filterRows, filterColumns, stride, dilation int) (*Node, error) {
	if err := b.checkArg(KindCyclicPool, a); err != nil {
		return nil, err
	}
	fwd, err := matop.NewCyclicPool(a.Rows(), a.Columns(), a.Depth(), filterRows, filterColumns, stride, dilation)
	if err != nil {
		return nil, err
	}
	result, err := b.newResult(KindCyclicPool, fwd.OutRows(), fwd.OutColumns(), fwd.OutDepth())
	if err != nil {
		return nil, err
	}
	op := &cyclicPoolOp{a: a, result: result, fwd: fwd, bwd: fwd.Gradient()}
	op.arena.size = fwd.WinnerCount()
	return b.append(KindCyclicPool, []*Node{a}, result, op), nil
}

// Build finalizes the graph into a procedure. The inputs are the nodes
// Forward feeds per-sample batches into, in order; output designates the
// node Backward seeds with externally supplied gradients.
func (b *Builder) Build(inputs []*Node, output *Node) (*Procedure, error) {
	if len(b.exprs) == 0 {
		return nil, fmt.Errorf("%w: no expressions", ErrBuild)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: no input nodes", ErrBuild)
	}
	for _, in := range inputs {
		if _, ok := b.nodes[in]; !ok || in == nil {
			return nil, fmt.Errorf("%w: input node does not belong to this graph", ErrBuild)
		}
		if in.Single() {
			return nil, fmt.Errorf("%w: input node %q is a shared parameter or constant", ErrBuild, in.Name())
		}
	}
	if output == nil {
		return nil, fmt.Errorf("%w: no output node", ErrBuild)
	}
	produced := false
	for _, e := range b.exprs {
		if e.result == output {
			produced = true
			break
		}
	}
	if !produced {
		return nil, fmt.Errorf("%w: output node %q is not produced by any expression", ErrBuild, output.Name())
	}

	nodes := make([]*Node, 0, len(b.nodes))
	for n := range b.nodes {
		nodes = append(nodes, n)
	}
	singleStep := false
	for _, e := range b.exprs {
		if e.kind.SingleStep() {
			singleStep = true
			break
		}
	}
	return &Procedure{
		exprs:      b.exprs,
		nodes:      nodes,
		inputs:     inputs,
		output:     output,
		params:     b.params,
		cfg:        parallelDefault(),
		singleStep: singleStep,
	}, nil
}
