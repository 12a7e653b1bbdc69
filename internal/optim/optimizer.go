// Package optim implements gradient-based optimizers.
//
// Optimizers operate on nn.Parameter slices and honor the trainable flag:
// frozen parameters (the base weights of an adapted network) are skipped
// entirely, so adapter fine-tuning needs no special optimizer wiring.
package optim

import (
	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

// Optimizer updates parameters from their accumulated gradients.
type Optimizer[B tensor.Backend] interface {
	// Step applies one update using the current gradients. Parameters
	// that are frozen or have no gradient are left untouched.
	Step()

	// ZeroGrad clears the gradients of all managed parameters.
	ZeroGrad()
}

// trainable reports whether a parameter should be updated this step.
func trainable[B tensor.Backend](p *nn.Parameter[B]) bool {
	return p.Trainable() && p.Grad() != nil
}
