package nn

import (
	"math"
	"math/rand"

	"github.com/loft-ml/loft/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Values are drawn from U(-b, b) with b = sqrt(6/(fan_in + fan_out)),
// which maintains activation variance across layers.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))

	t := tensor.Zeros[B](shape, backend)
	data := t.Data()
	for i := range data {
		//nolint:gosec // math/rand for weight initialization (not security-critical)
		data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// KaimingUniform initializes weights from U(-b, b) with
// b = sqrt(6 / ((1 + a²) · fan_in)), the He initialization used for layers
// followed by leaky-ReLU-family nonlinearities with negative slope a.
//
// With a = √5 this reduces to U(-1/sqrt(fan_in), 1/sqrt(fan_in)), the
// common default for dense-layer weights.
func KaimingUniform[B tensor.Backend](a float64, fanIn int, shape tensor.Shape, backend B) *tensor.Tensor[B] {
	bound := math.Sqrt(6.0 / ((1.0 + a*a) * float64(fanIn)))

	t := tensor.Zeros[B](shape, backend)
	data := t.Data()
	for i := range data {
		//nolint:gosec // math/rand for weight initialization (not security-critical)
		data[i] = float32((rand.Float64()*2.0 - 1.0) * bound)
	}
	return t
}

// Zeros creates a zero-filled tensor (bias initialization).
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return tensor.Zeros[B](shape, backend)
}

// Ones creates a tensor filled with ones.
func Ones[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return tensor.Ones[B](shape, backend)
}

// Randn creates a tensor with values drawn from N(0, 1).
func Randn[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[B] {
	return tensor.Randn[B](shape, backend)
}
