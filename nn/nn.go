// Copyright 2025 The Loft Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the public API for Loft's neural network building
// blocks.
//
// The package re-exports:
//   - Module, Composite, TrainMode: the module-tree interfaces
//   - Parameter: named tensors with a trainable flag
//   - Linear, Dropout: layers
//   - ModuleMap, Sequential: containers
//   - NamedModules, NamedParameters: tree walkers over dotted paths
//
// Example:
//
//	backend := cpu.New()
//	model := nn.NewModuleMap[*cpu.CPUBackend]().
//	    Add("proj", nn.NewLinear(768, 768, backend)).
//	    Add("drop", nn.NewDropout[*cpu.CPUBackend](0.1, backend))
package nn

import (
	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Composite is a Module that exposes its children as a named tree.
type Composite[B tensor.Backend] = nn.Composite[B]

// TrainMode is implemented by modules whose forward behavior differs
// between training and evaluation.
type TrainMode = nn.TrainMode

// Parameter is a named tensor with a trainable flag and gradient slot.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// Linear is a fully connected layer computing y = x @ W.T + b.
type Linear[B tensor.Backend] = nn.Linear[B]

// Dropout is an inverted-dropout layer with train/eval mode.
type Dropout[B tensor.Backend] = nn.Dropout[B]

// ModuleMap is an ordered name -> module container implementing Composite.
type ModuleMap[B tensor.Backend] = nn.ModuleMap[B]

// Sequential chains modules, addressing children by decimal index.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NamedModule pairs a module with its dotted path inside a tree.
type NamedModule[B tensor.Backend] = nn.NamedModule[B]

// NamedParameter pairs a parameter with its dotted path inside a tree.
type NamedParameter[B tensor.Backend] = nn.NamedParameter[B]

// NewParameter creates a named trainable parameter around a tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// NewLinear creates a Linear layer with Xavier weights and a zero bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// NewLinearFromParams creates a Linear layer around existing parameters.
// The parameters are shared by reference; bias may be nil.
func NewLinearFromParams[B tensor.Backend](
	inFeatures, outFeatures int,
	weight, bias *Parameter[B],
	backend B,
) *Linear[B] {
	return nn.NewLinearFromParams(inFeatures, outFeatures, weight, bias, backend)
}

// NewDropout creates an inverted-dropout layer with drop probability p.
func NewDropout[B tensor.Backend](p float32, backend B) *Dropout[B] {
	return nn.NewDropout[B](p, backend)
}

// NewModuleMap creates an empty ModuleMap.
func NewModuleMap[B tensor.Backend]() *ModuleMap[B] {
	return nn.NewModuleMap[B]()
}

// NewSequential creates a Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// NamedModules returns every module reachable from root, depth-first, with
// dotted paths built from Composite child names.
func NamedModules[B tensor.Backend](root Module[B]) []NamedModule[B] {
	return nn.NamedModules(root)
}

// NamedParameters returns every parameter reachable from root with its
// dotted path.
func NamedParameters[B tensor.Backend](root Module[B]) []NamedParameter[B] {
	return nn.NamedParameters(root)
}

// Visit calls fn for every module reachable from root with its dotted path.
func Visit[B tensor.Backend](root Module[B], fn func(path string, m Module[B])) {
	nn.Visit(root, fn)
}
