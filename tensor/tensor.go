// Copyright 2025 The Loft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in Loft.
//
// The package defines the core types for backend-dispatched float32
// tensors:
//   - Tensor[B]: generic tensor bound to a compute backend
//   - RawTensor: low-level flat-buffer representation
//   - Backend: interface for device-specific compute implementations
//   - Shape, Device: core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, backend)
//	y := tensor.Ones(tensor.Shape{2, 3}, backend)
//	z := x.Add(y)
package tensor

import (
	"github.com/loft-ml/loft/internal/tensor"
)

// Type aliases for public API

// Shape represents the dimensions of a tensor.
// Example: Shape{2, 3, 4} represents a 3D tensor with dimensions 2×3×4.
type Shape = tensor.Shape

// Device represents the device where tensor data resides.
type Device = tensor.Device

// Device constants.
const (
	CPU Device = tensor.CPU
)

// Backend is the interface compute backends implement.
type Backend = tensor.Backend

// RawTensor is the low-level tensor representation: a flat float32 buffer
// with row-major layout.
type RawTensor = tensor.RawTensor

// Tensor is a float32 tensor bound to a compute backend B.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, backend)
//	y := x.MatMul(x.T())
type Tensor[B Backend] = tensor.Tensor[B]

// Creation functions

// Zeros creates a tensor filled with zeros.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Zeros[B](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Ones[B](shape, b)
}

// Full creates a tensor filled with a specific value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	return tensor.Full[B](shape, value, b)
}

// Randn creates a tensor filled with random values from N(0, 1).
func Randn[B Backend](shape Shape, b B) *Tensor[B] {
	return tensor.Randn[B](shape, b)
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
//
// Example:
//
//	data := []float32{1, 2, 3, 4, 5, 6}
//	x, err := tensor.FromSlice(data, tensor.Shape{2, 3}, backend)
func FromSlice[B Backend](data []float32, shape Shape, b B) (*Tensor[B], error) {
	return tensor.FromSlice[B](data, shape, b)
}

// New creates a tensor from a raw tensor.
//
// This is a low-level function. Most users should use creation functions
// like Zeros, Ones, or FromSlice instead.
func New[B Backend](raw *RawTensor, b B) *Tensor[B] {
	return tensor.New[B](raw, b)
}

// NewRaw creates a new raw tensor with the given shape and device.
//
// This is a low-level function. Most users should use high-level creation
// functions instead.
func NewRaw(shape Shape, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, device)
}

// Utility functions

// BroadcastShapes computes the broadcast shape for two shapes following
// NumPy broadcasting rules. Returns the resulting shape and a flag
// indicating whether the first operand needs broadcasting.
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	return tensor.BroadcastShapes(a, b)
}
