package graph

// Elementwise arithmetic and matrix product expressions. Forward math
// delegates to the matrix package; backward pushes each argument's
// partial-derivative contribution independently, honoring stop-gradient
// and scalar broadcast.

// addOp computes result = a + b; both arguments receive the output
// gradient unchanged.
type addOp struct {
	noTransient
	a, b, result *Node
}

func (op *addOp) forward(sample int) error {
	a, err := argMatrix(KindAdd, op.a, sample)
	if err != nil {
		return err
	}
	b, err := argMatrix(KindAdd, op.b, sample)
	if err != nil {
		return err
	}
	sum, err := a.Add(b)
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, sum)
}

func (op *addOp) backward(sample int) error {
	g, err := resultGradient(KindAdd, op.result, sample)
	if err != nil {
		return err
	}
	if err := cumulate(op.a, sample, g, false); err != nil {
		return err
	}
	return cumulate(op.b, sample, g, false)
}

// subOp computes result = a − b; the second argument's contribution is
// negated.
type subOp struct {
	noTransient
	a, b, result *Node
}

func (op *subOp) forward(sample int) error {
	a, err := argMatrix(KindSubtract, op.a, sample)
	if err != nil {
		return err
	}
	b, err := argMatrix(KindSubtract, op.b, sample)
	if err != nil {
		return err
	}
	diff, err := a.Subtract(b)
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, diff)
}

func (op *subOp) backward(sample int) error {
	g, err := resultGradient(KindSubtract, op.result, sample)
	if err != nil {
		return err
	}
	if err := cumulate(op.a, sample, g, false); err != nil {
		return err
	}
	return cumulate(op.b, sample, g, true)
}

// mulOp computes result = a ⊙ b; each argument's contribution is the
// output gradient scaled by the other argument.
type mulOp struct {
	noTransient
	a, b, result *Node
}

func (op *mulOp) forward(sample int) error {
	a, err := argMatrix(KindMultiply, op.a, sample)
	if err != nil {
		return err
	}
	b, err := argMatrix(KindMultiply, op.b, sample)
	if err != nil {
		return err
	}
	product, err := a.Multiply(b)
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, product)
}

func (op *mulOp) backward(sample int) error {
	g, err := resultGradient(KindMultiply, op.result, sample)
	if err != nil {
		return err
	}
	a := op.a.Matrix(sample)
	b := op.b.Matrix(sample)
	if !op.a.StopGradient() {
		ga, err := g.Multiply(b)
		if err != nil {
			return err
		}
		if err := cumulate(op.a, sample, ga, false); err != nil {
			return err
		}
	}
	if !op.b.StopGradient() {
		gb, err := g.Multiply(a)
		if err != nil {
			return err
		}
		if err := cumulate(op.b, sample, gb, false); err != nil {
			return err
		}
	}
	return nil
}

// divOp computes result = a / b with
// ∂/∂a = g / b and ∂/∂b = −g·a / b².
type divOp struct {
	noTransient
	a, b, result *Node
}

func (op *divOp) forward(sample int) error {
	a, err := argMatrix(KindDivide, op.a, sample)
	if err != nil {
		return err
	}
	b, err := argMatrix(KindDivide, op.b, sample)
	if err != nil {
		return err
	}
	quotient, err := a.Divide(b)
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, quotient)
}

func (op *divOp) backward(sample int) error {
	g, err := resultGradient(KindDivide, op.result, sample)
	if err != nil {
		return err
	}
	a := op.a.Matrix(sample)
	b := op.b.Matrix(sample)
	if !op.a.StopGradient() {
		ga, err := g.Divide(b)
		if err != nil {
			return err
		}
		if err := cumulate(op.a, sample, ga, false); err != nil {
			return err
		}
	}
	if !op.b.StopGradient() {
		b2, err := b.Multiply(b)
		if err != nil {
			return err
		}
		numerator, err := g.Multiply(a)
		if err != nil {
			return err
		}
		gb, err := numerator.Divide(b2)
		if err != nil {
			return err
		}
		if err := cumulate(op.b, sample, gb, true); err != nil {
			return err
		}
	}
	return nil
}

// dotOp computes the matrix product result = a · b with
// ∂/∂a = g · bᵀ and ∂/∂b = aᵀ · g.
type dotOp struct {
	noTransient
	a, b, result *Node
}

func (op *dotOp) forward(sample int) error {
	a, err := argMatrix(KindDot, op.a, sample)
	if err != nil {
		return err
	}
	b, err := argMatrix(KindDot, op.b, sample)
	if err != nil {
		return err
	}
	product, err := a.Dot(b)
	if err != nil {
		return err
	}
	return op.result.SetMatrix(sample, product)
}

func (op *dotOp) backward(sample int) error {
	g, err := resultGradient(KindDot, op.result, sample)
	if err != nil {
		return err
	}
	a := op.a.Matrix(sample)
	b := op.b.Matrix(sample)
	if !op.a.StopGradient() {
		ga, err := g.Dot(b.Transpose())
		if err != nil {
			return err
		}
		if err := cumulate(op.a, sample, ga, false); err != nil {
			return err
		}
	}
	if !op.b.StopGradient() {
		gb, err := a.Transpose().Dot(g)
		if err != nil {
			return err
		}
		if err := cumulate(op.b, sample, gb, false); err != nil {
			return err
		}
	}
	return nil
}
