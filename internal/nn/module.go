// Package nn implements the neural network building blocks used by Loft.
//
// This package provides:
//   - Module interface: base interface for all NN components
//   - Composite interface: named module trees (enumerate/get/set children)
//   - Parameter: named tensors with a trainable flag
//   - Linear: fully connected layer
//   - Dropout: inverted dropout with train/eval mode
//   - ModuleMap, Sequential: containers
//
// Design inspired by PyTorch's nn.Module but adapted for Go generics: the
// dynamic attribute walking of torch (named_modules, get_submodule) becomes
// the explicit Composite interface.
package nn

import (
	"github.com/loft-ml/loft/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Type parameter B must satisfy the tensor.Backend interface.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[B]) *tensor.Tensor[B]

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters. Returns an empty slice for
	// modules without parameters.
	Parameters() []*Parameter[B]
}

// Composite is a Module that exposes its children as a named tree.
//
// It is the capability the adapter matcher/replacer operates on: children
// can be enumerated, looked up, and structurally replaced by name. Dotted
// paths over nested Composites address any sub-module in the tree.
type Composite[B tensor.Backend] interface {
	Module[B]

	// ChildNames returns the names of the direct children, in a stable
	// order.
	ChildNames() []string

	// Child returns the direct child with the given name.
	Child(name string) (Module[B], bool)

	// SetChild replaces the direct child with the given name.
	// Returns an error if no such child exists.
	SetChild(name string, module Module[B]) error
}

// TrainMode is implemented by modules whose forward behavior differs
// between training and evaluation (dropout, adapter layers).
type TrainMode interface {
	// Train switches the module into training (true) or evaluation
	// (false) mode.
	Train(mode bool)
}
