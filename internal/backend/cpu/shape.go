package cpu

import (
	"fmt"

	"github.com/loft-ml/loft/internal/tensor"
)

// Reshape returns a view of the tensor with a new shape. Tensors produced
// by this backend are always contiguous, so reshape is zero-copy.
func (cpu *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("reshape: cannot reshape %v (%d elements) to %v (%d elements)",
			t.Shape(), t.NumElements(), newShape, newShape.NumElements()))
	}
	return t.View(newShape)
}

// Transpose permutes the tensor's axes. With no axes given it performs the
// 2D transpose; otherwise axes must be a permutation of [0, ndim).
// The result is a contiguous copy.
func (cpu *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		if ndim != 2 {
			panic(fmt.Sprintf("transpose: implicit transpose requires 2D tensor, got %dD", ndim))
		}
		axes = []int{1, 0}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	seen := make([]bool, ndim)
	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes permutation %v for rank %d", axes, ndim))
		}
		seen[ax] = true
		outShape[i] = shape[ax]
	}

	result, err := tensor.NewRaw(outShape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("transpose: failed to create result tensor: %v", err))
	}

	src, dst := t.Float32(), result.Float32()
	srcStrides := t.Strides()
	outStrides := outShape.ComputeStrides()

	idx := make([]int, ndim)
	for flat := range dst {
		rem := flat
		for d := 0; d < ndim; d++ {
			idx[d] = rem / outStrides[d]
			rem %= outStrides[d]
		}

		srcOff := 0
		for d := 0; d < ndim; d++ {
			srcOff += idx[d] * srcStrides[axes[d]]
		}
		dst[flat] = src[srcOff]
	}
	return result
}
