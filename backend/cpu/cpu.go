// Copyright 2025 The Loft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU compute backend.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros(tensor.Shape{2, 3}, backend)
package cpu

import (
	"github.com/loft-ml/loft/internal/backend/cpu"
)

// CPUBackend is the pure Go implementation of tensor.Backend.
type CPUBackend = cpu.CPUBackend

// New creates a CPU backend.
func New() *CPUBackend {
	return cpu.New()
}
