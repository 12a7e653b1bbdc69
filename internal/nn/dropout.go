package nn

import (
	"fmt"
	"math/rand"

	"github.com/loft-ml/loft/internal/tensor"
)

// Dropout implements inverted dropout.
//
// In training mode each element is zeroed with probability p and the
// survivors are scaled by 1/(1-p), so the expected activation is unchanged.
// In evaluation mode (and always when p == 0) the layer is the identity.
type Dropout[B tensor.Backend] struct {
	p        float32
	training bool
	backend  B
}

// NewDropout creates a dropout layer. Requires 0 <= p < 1.
// The layer starts in training mode.
func NewDropout[B tensor.Backend](p float32, backend B) *Dropout[B] {
	if p < 0 || p >= 1 {
		panic(fmt.Sprintf("Dropout: probability must be in [0, 1), got %g", p))
	}
	return &Dropout[B]{p: p, training: true, backend: backend}
}

// Forward applies dropout. Shape and dtype are always preserved.
func (d *Dropout[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	if !d.training || d.p == 0 {
		return input
	}

	scale := 1 / (1 - d.p)
	mask := tensor.Zeros[B](input.Shape(), d.backend)
	maskData := mask.Data()
	for i := range maskData {
		if rand.Float32() >= d.p { //nolint:gosec // not security-critical
			maskData[i] = scale
		}
	}
	return input.Mul(mask)
}

// Parameters returns an empty slice: dropout has no trainable parameters.
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}

// Train switches between training and evaluation mode.
func (d *Dropout[B]) Train(mode bool) {
	d.training = mode
}

// P returns the drop probability.
func (d *Dropout[B]) P() float32 {
	return d.p
}
