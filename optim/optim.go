// Copyright 2025 The Loft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the public API for gradient-based optimizers.
//
// Optimizers honor the trainable flag on parameters: the frozen base
// weights of an adapted network are skipped without any special wiring.
package optim

import (
	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/optim"
	"github.com/loft-ml/loft/internal/tensor"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer[B tensor.Backend] = optim.Optimizer[B]

// SGD implements stochastic gradient descent with optional momentum.
type SGD[B tensor.Backend] = optim.SGD[B]

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr float32) *SGD[B] {
	return optim.NewSGD(params, lr)
}
