package optim

import (
	"math"

	"github.com/weft-ml/weft/internal/matrix"
)

// Adam implements the Adam (Adaptive Moment Estimation) optimizer.
//
// Update rule:
//
//	m_t = beta1 * m_{t-1} + (1-beta1) * gradient
//	v_t = beta2 * v_{t-1} + (1-beta2) * gradient²
//	m_hat = m_t / (1 - beta1^t)
//	v_hat = v_t / (1 - beta2^t)
//	param = param - lr * m_hat / (sqrt(v_hat) + eps)
//
// Reference: "Adam: A Method for Stochastic Optimization" (Kingma & Ba,
// 2014).
type Adam struct {
	lr    float64
	beta1 float64
	beta2 float64
	eps   float64

	m []*matrix.Matrix
	v []*matrix.Matrix
	t []int
}

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig struct {
	LR    float64    // Learning rate (default: 0.001)
	Betas [2]float64 // Moving-average coefficients (default: [0.9, 0.999])
	Eps   float64    // Numerical stability term (default: 1e-8)
}

// NewAdam creates an Adam optimizer, filling in defaults for zero fields.
func NewAdam(config AdamConfig) *Adam {
	if config.LR == 0 {
		config.LR = 0.001
	}
	if config.Betas[0] == 0 {
		config.Betas[0] = 0.9
	}
	if config.Betas[1] == 0 {
		config.Betas[1] = 0.999
	}
	if config.Eps == 0 {
		config.Eps = 1e-8
	}
	return &Adam{lr: config.LR, beta1: config.Betas[0], beta2: config.Betas[1], eps: config.Eps}
}

// Step applies one Adam update in place. The bias-correction timestep is
// tracked per handle, so parameters that skip steps stay correctly
// corrected. A nil gradient is a no-op.
func (o *Adam) Step(handle int, param, grad *matrix.Matrix) error {
	if grad == nil {
		return nil
	}
	if err := checkStep(param, grad); err != nil {
		return err
	}
	m, err := stateSlot(&o.m, handle, param)
	if err != nil {
		return err
	}
	v, err := stateSlot(&o.v, handle, param)
	if err != nil {
		return err
	}
	for len(o.t) <= handle {
		o.t = append(o.t, 0)
	}
	o.t[handle]++
	correction1 := 1 - math.Pow(o.beta1, float64(o.t[handle]))
	correction2 := 1 - math.Pow(o.beta2, float64(o.t[handle]))

	for d := 0; d < param.Depth(); d++ {
		for r := 0; r < param.Rows(); r++ {
			for c := 0; c < param.Columns(); c++ {
				g := grad.At(r, c, d)
				mt := o.beta1*m.At(r, c, d) + (1-o.beta1)*g
				vt := o.beta2*v.At(r, c, d) + (1-o.beta2)*g*g
				m.Set(r, c, d, mt)
				v.Set(r, c, d, vt)
				mHat := mt / correction1
				vHat := vt / correction2
				param.AddAt(r, c, d, -o.lr*mHat/(math.Sqrt(vHat)+o.eps))
			}
		}
	}
	return nil
}

// LR returns the current learning rate.
func (o *Adam) LR() float64 { return o.lr }

// SetLR updates the learning rate, for schedulers.
func (o *Adam) SetLR(lr float64) { o.lr = lr }
