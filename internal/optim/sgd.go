package optim

import (
	"github.com/weft-ml/weft/internal/matrix"
)

// SGD implements stochastic gradient descent with optional momentum.
//
// Update rule without momentum:
//
//	param = param - lr * gradient
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param = param - lr * velocity
type SGD struct {
	lr       float64
	momentum float64
	velocity []*matrix.Matrix
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float64 // Learning rate (default: 0.01)
	Momentum float64 // Momentum factor (default: 0.0, range: [0, 1))
}

// NewSGD creates an SGD optimizer, filling in defaults for zero fields.
func NewSGD(config SGDConfig) *SGD {
	if config.LR == 0 {
		config.LR = 0.01
	}
	return &SGD{lr: config.LR, momentum: config.Momentum}
}

// Step applies one SGD update in place. A nil gradient is a no-op.
func (o *SGD) Step(handle int, param, grad *matrix.Matrix) error {
	if grad == nil {
		return nil
	}
	if err := checkStep(param, grad); err != nil {
		return err
	}
	if o.momentum == 0 {
		for d := 0; d < param.Depth(); d++ {
			for r := 0; r < param.Rows(); r++ {
				for c := 0; c < param.Columns(); c++ {
					param.AddAt(r, c, d, -o.lr*grad.At(r, c, d))
				}
			}
		}
		return nil
	}
	v, err := stateSlot(&o.velocity, handle, param)
	if err != nil {
		return err
	}
	for d := 0; d < param.Depth(); d++ {
		for r := 0; r < param.Rows(); r++ {
			for c := 0; c < param.Columns(); c++ {
				vel := o.momentum*v.At(r, c, d) + grad.At(r, c, d)
				v.Set(r, c, d, vel)
				param.AddAt(r, c, d, -o.lr*vel)
			}
		}
	}
	return nil
}

// LR returns the current learning rate.
func (o *SGD) LR() float64 { return o.lr }

// SetLR updates the learning rate, for schedulers.
func (o *SGD) SetLR(lr float64) { o.lr = lr }
