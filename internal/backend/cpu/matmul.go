package cpu

import (
	"fmt"

	"github.com/loft-ml/loft/internal/tensor"
)

// MatMul performs matrix multiplication: (M, K) @ (K, N) -> (M, N).
// Naive O(n³) implementation.
func (cpu *CPUBackend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()

	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: only 2D tensors supported, got %dD and %dD", len(aShape), len(bShape)))
	}

	m, k := aShape[0], aShape[1]
	kAlt, n := bShape[0], bShape[1]
	if k != kAlt {
		panic(fmt.Sprintf("matmul: shape mismatch [%d,%d] @ [%d,%d]", m, k, kAlt, n))
	}

	result, err := tensor.NewRaw(tensor.Shape{m, n}, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("matmul: failed to create result tensor: %v", err))
	}

	matmulFloat32(result.Float32(), a.Float32(), b.Float32(), m, k, n)
	return result
}

// BatchMatMul performs batched matrix multiplication for 3D/4D tensors.
// For 3D: [B, M, K] @ [B, K, N] -> [B, M, N]
// For 4D: [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
func (cpu *CPUBackend) BatchMatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()

	if len(aShape) != len(bShape) || (len(aShape) != 3 && len(aShape) != 4) {
		panic(fmt.Sprintf("batchmatmul: expected matching 3D or 4D tensors, got %v and %v", aShape, bShape))
	}

	nBatchDims := len(aShape) - 2
	batch := 1
	for d := 0; d < nBatchDims; d++ {
		if aShape[d] != bShape[d] {
			panic(fmt.Sprintf("batchmatmul: batch dimension %d mismatch: %v vs %v", d, aShape, bShape))
		}
		batch *= aShape[d]
	}

	m, k := aShape[nBatchDims], aShape[nBatchDims+1]
	kAlt, n := bShape[nBatchDims], bShape[nBatchDims+1]
	if k != kAlt {
		panic(fmt.Sprintf("batchmatmul: inner dimension mismatch: %v @ %v", aShape, bShape))
	}

	outShape := append(aShape[:nBatchDims].Clone(), m, n)
	result, err := tensor.NewRaw(outShape, cpu.device)
	if err != nil {
		panic(fmt.Sprintf("batchmatmul: failed to create result tensor: %v", err))
	}

	aData, bData, cData := a.Float32(), b.Float32(), result.Float32()
	for i := 0; i < batch; i++ {
		matmulFloat32(
			cData[i*m*n:(i+1)*m*n],
			aData[i*m*k:(i+1)*m*k],
			bData[i*k*n:(i+1)*k*n],
			m, k, n,
		)
	}
	return result
}

// matmulFloat32 computes C[i,j] = sum_k A[i,k] * B[k,j].
func matmulFloat32(c, a, b []float32, m, k, n int) {
	for i := 0; i < m; i++ {
		for j := 0; j < n; j++ {
			sum := float32(0)
			for kIdx := 0; kIdx < k; kIdx++ {
				sum += a[i*k+kIdx] * b[kIdx*n+j]
			}
			c[i*n+j] = sum
		}
	}
}
