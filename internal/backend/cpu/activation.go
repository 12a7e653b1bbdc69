package cpu

import (
	"fmt"
	"math"

	"github.com/loft-ml/loft/internal/tensor"
)

// Softmax computes softmax along the specified dimension.
// Softmax(x_i) = exp(x_i - max) / sum(exp(x_j - max)) for j in dimension.
func (cpu *CPUBackend) Softmax(x *tensor.RawTensor, dim int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if dim < 0 {
		dim = ndim + dim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("softmax: dimension %d out of range for tensor of rank %d", dim, ndim))
	}

	result, err := tensor.NewRaw(shape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("softmax: %v", err))
	}

	src, dst := x.Float32(), result.Float32()
	strides := shape.ComputeStrides()
	dimSize := shape[dim]
	dimStride := strides[dim]

	numRows := x.NumElements() / dimSize

	for row := 0; row < numRows; row++ {
		// Base offset of this softmax group: decompose row over the
		// non-dim axes.
		base := 0
		rem := row
		for d := ndim - 1; d >= 0; d-- {
			if d == dim {
				continue
			}
			base += (rem % shape[d]) * strides[d]
			rem /= shape[d]
		}

		// Max-subtract for numerical stability.
		maxVal := src[base]
		for i := 1; i < dimSize; i++ {
			if v := src[base+i*dimStride]; v > maxVal {
				maxVal = v
			}
		}

		sum := float32(0)
		for i := 0; i < dimSize; i++ {
			e := float32(math.Exp(float64(src[base+i*dimStride] - maxVal)))
			dst[base+i*dimStride] = e
			sum += e
		}

		for i := 0; i < dimSize; i++ {
			dst[base+i*dimStride] /= sum
		}
	}
	return result
}
