package optim

import (
	"math"

	"github.com/weft-ml/weft/internal/matrix"
)

// AdaDelta implements the AdaDelta optimizer, which adapts per-element
// learning rates from running averages of squared gradients and squared
// updates and needs no explicit learning rate.
//
// Update rule:
//
//	E[g²] = rho * E[g²] + (1-rho) * gradient²
//	delta = -sqrt(E[dx²] + eps) / sqrt(E[g²] + eps) * gradient
//	E[dx²] = rho * E[dx²] + (1-rho) * delta²
//	param = param + delta
//
// Reference: "ADADELTA: An Adaptive Learning Rate Method" (Zeiler, 2012).
type AdaDelta struct {
	rho float64
	eps float64

	avgSqGrad   []*matrix.Matrix
	avgSqUpdate []*matrix.Matrix
}

// AdaDeltaConfig holds configuration for the AdaDelta optimizer.
type AdaDeltaConfig struct {
	Rho float64 // Decay rate for the running averages (default: 0.95)
	Eps float64 // Numerical stability term (default: 1e-6)
}

// NewAdaDelta creates an AdaDelta optimizer, filling in defaults for zero
// fields.
func NewAdaDelta(config AdaDeltaConfig) *AdaDelta {
	if config.Rho == 0 {
		config.Rho = 0.95
	}
	if config.Eps == 0 {
		config.Eps = 1e-6
	}
	return &AdaDelta{rho: config.Rho, eps: config.Eps}
}

// Step applies one AdaDelta update in place. A nil gradient is a no-op.
func (o *AdaDelta) Step(handle int, param, grad *matrix.Matrix) error {
	if grad == nil {
		return nil
	}
	if err := checkStep(param, grad); err != nil {
		return err
	}
	eg2, err := stateSlot(&o.avgSqGrad, handle, param)
	if err != nil {
		return err
	}
	edx2, err := stateSlot(&o.avgSqUpdate, handle, param)
	if err != nil {
		return err
	}
	for d := 0; d < param.Depth(); d++ {
		for r := 0; r < param.Rows(); r++ {
			for c := 0; c < param.Columns(); c++ {
				g := grad.At(r, c, d)
				g2 := o.rho*eg2.At(r, c, d) + (1-o.rho)*g*g
				eg2.Set(r, c, d, g2)
				delta := -math.Sqrt(edx2.At(r, c, d)+o.eps) / math.Sqrt(g2+o.eps) * g
				edx2.Set(r, c, d, o.rho*edx2.At(r, c, d)+(1-o.rho)*delta*delta)
				param.AddAt(r, c, d, delta)
			}
		}
	}
	return nil
}
