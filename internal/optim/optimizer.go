// Package optim implements gradient-descent optimizers.
//
// Per-parameter state (velocity, moment estimates) lives in slices
// indexed by the integer handle assigned when the parameter was
// registered with the graph builder. Handles survive serialization round
// trips, unlike matrix identity.
//
// Example usage:
//
//	optimizer := optim.NewAdam(optim.AdamConfig{LR: 0.001})
//
//	for step := 0; step < steps; step++ {
//	    outputs, _ := proc.Forward(batch)
//	    proc.Backward(lossGradients(outputs, targets))
//	    for _, p := range proc.Parameters() {
//	        grad, _ := p.Gradient(0)
//	        optimizer.Step(p.Handle(), p.Matrix(0), grad)
//	    }
//	    proc.Reset()
//	}
package optim

import (
	"errors"
	"fmt"

	"github.com/weft-ml/weft/internal/matrix"
)

// ErrHandle indicates a Step call with an invalid parameter handle.
var ErrHandle = errors.New("optim: invalid parameter handle")

// Optimizer applies one accumulated gradient to one parameter in place.
//
// A nil gradient is a valid call and a no-op: the parameter did not
// participate in the step.
type Optimizer interface {
	Step(handle int, param, grad *matrix.Matrix) error
}

// stateSlot grows state to cover handle and returns the matrix stored
// there, zero-initializing it to the parameter's shape on first use.
func stateSlot(state *[]*matrix.Matrix, handle int, param *matrix.Matrix) (*matrix.Matrix, error) {
	if handle < 0 {
		return nil, fmt.Errorf("%w: %d", ErrHandle, handle)
	}
	for len(*state) <= handle {
		*state = append(*state, nil)
	}
	if (*state)[handle] == nil {
		m, err := matrix.New(param.Rows(), param.Columns(), param.Depth())
		if err != nil {
			return nil, err
		}
		(*state)[handle] = m
	}
	s := (*state)[handle]
	if !s.SameShape(param) {
		return nil, fmt.Errorf("%w: handle %d state is %s, parameter is %s", ErrHandle, handle, s, param)
	}
	return s, nil
}

func checkStep(param, grad *matrix.Matrix) error {
	if param == nil {
		return fmt.Errorf("%w: nil parameter", matrix.ErrConfig)
	}
	if !param.SameShape(grad) {
		return fmt.Errorf("%w: gradient %s for parameter %s", matrix.ErrShape, grad, param)
	}
	return nil
}
