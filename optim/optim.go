// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"github.com/weft-ml/weft/internal/optim"
	"github.com/weft-ml/weft/internal/regularize"
)

// Optimizer applies one accumulated gradient to one parameter in place.
type Optimizer = optim.Optimizer

// ErrHandle indicates a Step call with an invalid parameter handle.
var ErrHandle = optim.ErrHandle

// SGD (Stochastic Gradient Descent)

// SGD is stochastic gradient descent with optional momentum.
type SGD = optim.SGD

// SGDConfig contains configuration for the SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates an SGD optimizer.
func NewSGD(config SGDConfig) *SGD {
	return optim.NewSGD(config)
}

// Adam (Adaptive Moment Estimation)

// Adam is the Adam optimizer.
type Adam = optim.Adam

// AdamConfig contains configuration for the Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates an Adam optimizer with bias correction.
func NewAdam(config AdamConfig) *Adam {
	return optim.NewAdam(config)
}

// AdaDelta

// AdaDelta is the AdaDelta optimizer.
type AdaDelta = optim.AdaDelta

// AdaDeltaConfig contains configuration for the AdaDelta optimizer.
type AdaDeltaConfig = optim.AdaDeltaConfig

// NewAdaDelta creates an AdaDelta optimizer.
func NewAdaDelta(config AdaDeltaConfig) *AdaDelta {
	return optim.NewAdaDelta(config)
}

// Regularizers

// Regularizer folds a penalty term into a parameter's gradient in place.
type Regularizer = regularize.Regularizer

// L1 adds the lasso penalty gradient.
type L1 = regularize.L1

// L2 adds the ridge penalty gradient.
type L2 = regularize.L2

// ClipNorm rescales gradients whose L2 norm exceeds a threshold.
type ClipNorm = regularize.ClipNorm
