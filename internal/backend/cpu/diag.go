package cpu

import (
	"fmt"

	"github.com/loft-ml/loft/internal/tensor"
)

// DiagEmbed expands the last axis into a diagonal matrix:
// (..., n) -> (..., n, n). Off-diagonal elements are zero.
func (cpu *CPUBackend) DiagEmbed(x *tensor.RawTensor) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) == 0 {
		panic("diagembed: scalar input not supported")
	}

	n := shape[len(shape)-1]
	outShape := append(shape.Clone(), n)

	result, err := tensor.NewRaw(outShape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("diagembed: %v", err))
	}

	src, dst := x.Float32(), result.Float32()
	rows := x.NumElements() / n
	for row := 0; row < rows; row++ {
		for i := 0; i < n; i++ {
			dst[row*n*n+i*n+i] = src[row*n+i]
		}
	}
	return result
}
