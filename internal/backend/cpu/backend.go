// Package cpu implements the pure-Go CPU backend for tensor operations.
package cpu

import (
	"fmt"

	"github.com/loft-ml/loft/internal/tensor"
)

// CPUBackend implements tensor operations on CPU in pure Go.
type CPUBackend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{device: tensor.CPU}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (cpu *CPUBackend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (cpu *CPUBackend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return cpu.binaryOp("mul", a, b, func(x, y float32) float32 { return x * y })
}

// MulScalar multiplies every element by a scalar.
func (cpu *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float32) *tensor.RawTensor {
	result, err := tensor.NewRaw(x.Shape(), cpu.device)
	if err != nil {
		panic(fmt.Sprintf("mulscalar: %v", err))
	}

	src := x.Float32()
	dst := result.Float32()
	for i := range src {
		dst[i] = src[i] * scalar
	}
	return result
}

// binaryOp applies fn element-wise, broadcasting the operands if needed.
func (cpu *CPUBackend) binaryOp(name string, a, b *tensor.RawTensor, fn func(x, y float32) float32) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result, err := tensor.NewRaw(outShape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("%s: failed to create result tensor: %v", name, err))
	}

	aData, bData := a.Float32(), b.Float32()
	dst := result.Float32()

	if !needsBroadcast {
		// Fast path: identical shapes.
		for i := range dst {
			dst[i] = fn(aData[i], bData[i])
		}
		return result
	}

	aStrides := broadcastStrides(a.Shape(), outShape)
	bStrides := broadcastStrides(b.Shape(), outShape)
	outStrides := outShape.ComputeStrides()

	idx := make([]int, len(outShape))
	for flat := 0; flat < len(dst); flat++ {
		rem := flat
		for d := range outShape {
			idx[d] = rem / outStrides[d]
			rem %= outStrides[d]
		}

		aOff, bOff := 0, 0
		for d := range outShape {
			aOff += idx[d] * aStrides[d]
			bOff += idx[d] * bStrides[d]
		}
		dst[flat] = fn(aData[aOff], bData[bOff])
	}
	return result
}

// broadcastStrides computes effective strides of shape when broadcast to
// outShape: broadcast dimensions (size 1 or missing) get stride 0.
func broadcastStrides(shape, outShape tensor.Shape) []int {
	strides := shape.ComputeStrides()
	out := make([]int, len(outShape))
	offset := len(outShape) - len(shape)
	for d := range outShape {
		if d < offset {
			out[d] = 0
			continue
		}
		if shape[d-offset] == 1 && outShape[d] != 1 {
			out[d] = 0
		} else {
			out[d] = strides[d-offset]
		}
	}
	return out
}
