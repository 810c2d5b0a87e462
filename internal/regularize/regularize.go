// Package regularize implements weight regularizers that adjust a
// parameter's accumulated gradient before the optimizer step. Regularizers
// only ever see parameters registered as regularized.
package regularize

import (
	"fmt"

	"github.com/weft-ml/weft/internal/matrix"
)

// Regularizer folds a penalty term into a parameter's gradient in place.
type Regularizer interface {
	Apply(param, grad *matrix.Matrix) error
}

func check(param, grad *matrix.Matrix) error {
	if param == nil || grad == nil {
		return fmt.Errorf("%w: nil parameter or gradient", matrix.ErrConfig)
	}
	if !param.SameShape(grad) {
		return fmt.Errorf("%w: gradient %s for parameter %s", matrix.ErrShape, grad, param)
	}
	return nil
}

// L1 adds the lasso penalty gradient lambda * sign(param).
type L1 struct {
	Lambda float64
}

// Apply folds the L1 penalty into grad.
func (reg L1) Apply(param, grad *matrix.Matrix) error {
	if err := check(param, grad); err != nil {
		return err
	}
	for d := 0; d < param.Depth(); d++ {
		for r := 0; r < param.Rows(); r++ {
			for c := 0; c < param.Columns(); c++ {
				switch v := param.At(r, c, d); {
				case v > 0:
					grad.AddAt(r, c, d, reg.Lambda)
				case v < 0:
					grad.AddAt(r, c, d, -reg.Lambda)
				}
			}
		}
	}
	return nil
}

// L2 adds the ridge penalty gradient 2 * lambda * param.
type L2 struct {
	Lambda float64
}

// Apply folds the L2 penalty into grad.
func (reg L2) Apply(param, grad *matrix.Matrix) error {
	if err := check(param, grad); err != nil {
		return err
	}
	for d := 0; d < param.Depth(); d++ {
		for r := 0; r < param.Rows(); r++ {
			for c := 0; c < param.Columns(); c++ {
				grad.AddAt(r, c, d, 2*reg.Lambda*param.At(r, c, d))
			}
		}
	}
	return nil
}

// ClipNorm rescales the gradient when its L2 norm exceeds the threshold,
// leaving its direction unchanged.
type ClipNorm struct {
	Threshold float64
}

// Apply clips grad in place.
func (reg ClipNorm) Apply(param, grad *matrix.Matrix) error {
	if err := check(param, grad); err != nil {
		return err
	}
	if reg.Threshold <= 0 {
		return fmt.Errorf("%w: clip threshold %v must be positive", matrix.ErrConfig, reg.Threshold)
	}
	norm, err := grad.Norm(2)
	if err != nil {
		return err
	}
	if norm <= reg.Threshold || norm == 0 {
		return nil
	}
	scale := reg.Threshold / norm
	for d := 0; d < grad.Depth(); d++ {
		for r := 0; r < grad.Rows(); r++ {
			for c := 0; c < grad.Columns(); c++ {
				grad.Set(r, c, d, grad.At(r, c, d)*scale)
			}
		}
	}
	return nil
}
