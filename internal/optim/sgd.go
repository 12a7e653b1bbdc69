package optim

import (
	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
//	v = momentum · v + grad
//	w = w - lr · v
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	velocities map[*nn.Parameter[B]][]float32
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], lr float32) *SGD[B] {
	return &SGD[B]{
		params:     params,
		lr:         lr,
		velocities: make(map[*nn.Parameter[B]][]float32),
	}
}

// WithMomentum sets the momentum coefficient and returns the optimizer.
func (s *SGD[B]) WithMomentum(momentum float32) *SGD[B] {
	s.momentum = momentum
	return s
}

// Step applies one SGD update to every trainable parameter with a gradient.
func (s *SGD[B]) Step() {
	for _, p := range s.params {
		if !trainable(p) {
			continue
		}

		data := p.Tensor().Data()
		grad := p.Grad().Data()

		if s.momentum == 0 {
			for i := range data {
				data[i] -= s.lr * grad[i]
			}
			continue
		}

		v, ok := s.velocities[p]
		if !ok {
			v = make([]float32, len(data))
			s.velocities[p] = v
		}
		for i := range data {
			v[i] = s.momentum*v[i] + grad[i]
			data[i] -= s.lr * v[i]
		}
	}
}

// ZeroGrad clears the gradients of all managed parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, p := range s.params {
		p.ZeroGrad()
	}
}

var _ Optimizer[tensor.Backend] = (*SGD[tensor.Backend])(nil)
