// Copyright 2025 Weft ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms and weight regularizers
// for training.
//
// # Overview
//
// This package contains:
//   - SGD: stochastic gradient descent with momentum
//   - Adam: adaptive moment estimation with bias correction
//   - AdaDelta: adaptive learning rates without a global rate
//   - L1, L2, ClipNorm regularizers
//   - Optimizer and Regularizer interfaces for custom implementations
//
// Optimizer state is keyed by the integer handle each parameter received
// at registration, never by matrix identity.
//
// # Basic Usage
//
//	optimizer := optim.NewAdam(optim.AdamConfig{LR: 0.001})
//	clip := optim.ClipNorm{Threshold: 5}
//
//	for step := 0; step < steps; step++ {
//	    outputs, _ := proc.Forward(batch)
//	    _ = proc.Backward(lossGradients(outputs, targets))
//	    for _, p := range proc.Parameters() {
//	        grad, _ := p.Gradient(0)
//	        if p.IsRegularized() {
//	            _ = clip.Apply(p.Matrix(0), grad)
//	        }
//	        _ = optimizer.Step(p.Handle(), p.Matrix(0), grad)
//	    }
//	    proc.Reset()
//	}
package optim
