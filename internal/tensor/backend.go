package tensor

// Backend defines the interface that compute backends must implement.
// Backends handle the actual computation for tensor operations; the Tensor
// type is a thin typed wrapper dispatching to its backend.
//
// Implementations:
//   - CPU: pure Go (internal/backend/cpu)
type Backend interface {
	// Element-wise binary operations (with NumPy-style broadcasting)
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor

	// MulScalar multiplies every element by a scalar.
	MulScalar(x *RawTensor, scalar float32) *RawTensor

	// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// BatchMatMul performs batched matrix multiplication for 3D/4D tensors
	// with equal leading (batch) dimensions:
	//   [B, M, K]    @ [B, K, N]    -> [B, M, N]
	//   [B, H, M, K] @ [B, H, K, N] -> [B, H, M, N]
	BatchMatMul(a, b *RawTensor) *RawTensor

	// Shape operations
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Softmax computes softmax along the given dimension (negative dims
	// count from the end).
	Softmax(x *RawTensor, dim int) *RawTensor

	// DiagEmbed expands the last axis into a diagonal matrix:
	// (..., n) -> (..., n, n).
	DiagEmbed(x *RawTensor) *RawTensor

	// Metadata
	Name() string
	Device() Device
}
