package nn

import (
	"github.com/loft-ml/loft/internal/tensor"
)

// Parameter represents a named parameter tensor in a neural network.
//
// Parameters carry a trainable flag: optimizers must skip parameters whose
// flag is off. Freezing a pretrained network around its adapters is done by
// toggling this flag, never by removing parameters.
type Parameter[B tensor.Backend] struct {
	name      string
	tensor    *tensor.Tensor[B]
	grad      *tensor.Tensor[B]
	trainable bool
}

// NewParameter creates a new trainable parameter.
//
// The name is local to the owning module (e.g. "weight", "lora_A.weight");
// tree walkers prefix it with the module path.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return &Parameter[B]{
		name:      name,
		tensor:    t,
		trainable: true,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[B] {
	return p.tensor
}

// Trainable reports whether the parameter receives updates.
func (p *Parameter[B]) Trainable() bool {
	return p.trainable
}

// SetTrainable freezes (false) or unfreezes (true) the parameter.
func (p *Parameter[B]) SetTrainable(trainable bool) {
	p.trainable = trainable
}

// Grad returns the gradient tensor, or nil if none has been set.
func (p *Parameter[B]) Grad() *tensor.Tensor[B] {
	return p.grad
}

// SetGrad sets the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient tensor.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}
