package tensor

import "fmt"

// Add performs element-wise addition (with broadcasting).
func (t *Tensor[B]) Add(other *Tensor[B]) *Tensor[B] {
	result := t.backend.Add(t.raw, other.raw)
	return New(result, t.backend)
}

// Sub performs element-wise subtraction (with broadcasting).
func (t *Tensor[B]) Sub(other *Tensor[B]) *Tensor[B] {
	result := t.backend.Sub(t.raw, other.raw)
	return New(result, t.backend)
}

// Mul performs element-wise multiplication (with broadcasting).
func (t *Tensor[B]) Mul(other *Tensor[B]) *Tensor[B] {
	result := t.backend.Mul(t.raw, other.raw)
	return New(result, t.backend)
}

// MulScalar multiplies every element by a scalar.
func (t *Tensor[B]) MulScalar(scalar float32) *Tensor[B] {
	result := t.backend.MulScalar(t.raw, scalar)
	return New(result, t.backend)
}

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (t *Tensor[B]) MatMul(other *Tensor[B]) *Tensor[B] {
	result := t.backend.MatMul(t.raw, other.raw)
	return New(result, t.backend)
}

// BatchMatMul performs batched matrix multiplication for 3D/4D tensors.
func (t *Tensor[B]) BatchMatMul(other *Tensor[B]) *Tensor[B] {
	result := t.backend.BatchMatMul(t.raw, other.raw)
	return New(result, t.backend)
}

// Reshape returns a tensor with the same data and a new shape.
// The total number of elements must be preserved.
func (t *Tensor[B]) Reshape(newShape ...int) *Tensor[B] {
	result := t.backend.Reshape(t.raw, Shape(newShape))
	return New(result, t.backend)
}

// Transpose permutes the tensor's axes. Called without arguments on a 2D
// tensor it swaps the two axes; otherwise axes must be a permutation of
// [0, ndim).
func (t *Tensor[B]) Transpose(axes ...int) *Tensor[B] {
	result := t.backend.Transpose(t.raw, axes...)
	return New(result, t.backend)
}

// T is shorthand for the 2D transpose.
func (t *Tensor[B]) T() *Tensor[B] {
	return t.Transpose()
}

// Softmax computes softmax along the given dimension.
// Negative dims count from the end.
func (t *Tensor[B]) Softmax(dim int) *Tensor[B] {
	result := t.backend.Softmax(t.raw, dim)
	return New(result, t.backend)
}

// DiagEmbed expands the last axis into a diagonal matrix:
// (..., n) -> (..., n, n).
func (t *Tensor[B]) DiagEmbed() *Tensor[B] {
	result := t.backend.DiagEmbed(t.raw)
	return New(result, t.backend)
}

// Unsqueeze inserts a dimension of size 1 at the given position.
// Negative dims count from the end (-1 appends).
func (t *Tensor[B]) Unsqueeze(dim int) *Tensor[B] {
	shape := t.Shape()
	if dim < 0 {
		dim = len(shape) + dim + 1
	}
	if dim < 0 || dim > len(shape) {
		panic(fmt.Sprintf("unsqueeze: dimension %d out of range for tensor of rank %d", dim, len(shape)))
	}

	newShape := make([]int, 0, len(shape)+1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, 1)
	newShape = append(newShape, shape[dim:]...)
	return t.Reshape(newShape...)
}

// Squeeze removes a dimension of size 1 at the given position.
func (t *Tensor[B]) Squeeze(dim int) *Tensor[B] {
	shape := t.Shape()
	if dim < 0 {
		dim = len(shape) + dim
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("squeeze: dimension %d out of range for tensor of rank %d", dim, len(shape)))
	}
	if shape[dim] != 1 {
		panic(fmt.Sprintf("squeeze: dimension %d has size %d, expected 1", dim, shape[dim]))
	}

	newShape := make([]int, 0, len(shape)-1)
	newShape = append(newShape, shape[:dim]...)
	newShape = append(newShape, shape[dim+1:]...)
	return t.Reshape(newShape...)
}
