package nn

import (
	"fmt"

	"github.com/loft-ml/loft/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [batch_size, in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the optional bias vector with shape [out_features]
//
// Weights are initialized with Xavier/Glorot, biases with zeros.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features], nil when the layer has no bias
	backend     B
}

// NewLinear creates a new Linear layer with a bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	weight := NewParameter("weight",
		Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend))
	bias := NewParameter("bias", Zeros(tensor.Shape{outFeatures}, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// NewLinearFromParams creates a Linear layer around existing parameter
// objects. The parameters are used by reference, not copied, so pretrained
// values (and gradients) stay shared with any other holder. bias may be nil.
//
// The weight shape must be [outFeatures, inFeatures].
func NewLinearFromParams[B tensor.Backend](
	inFeatures, outFeatures int,
	weight, bias *Parameter[B],
	backend B,
) *Linear[B] {
	expected := tensor.Shape{outFeatures, inFeatures}
	if !weight.Tensor().Shape().Equal(expected) {
		panic(fmt.Sprintf("Linear: weight shape %v does not match [out=%d, in=%d]",
			weight.Tensor().Shape(), outFeatures, inFeatures))
	}

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes y = x @ W.T + b.
//
// Input shape: [batch_size, in_features]
// Output shape: [batch_size, out_features]
func (l *Linear[B]) Forward(input *tensor.Tensor[B]) *tensor.Tensor[B] {
	inputShape := input.Shape()
	if len(inputShape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", inputShape))
	}
	if inputShape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got %d", l.inFeatures, inputShape[1]))
	}

	// [batch, in] @ [in, out] = [batch, out]
	output := input.MatMul(l.weight.Tensor().T())

	if l.bias != nil {
		// Reshape bias to [1, out] for broadcasting over the batch.
		output = output.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
	}
	return output
}

// Parameters returns [weight, bias] if bias is present, otherwise [weight].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	if l.bias != nil {
		return []*Parameter[B]{l.weight, l.bias}
	}
	return []*Parameter[B]{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter (nil when the layer has no bias).
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}

// BackendOf returns the layer's compute backend.
func (l *Linear[B]) BackendOf() B {
	return l.backend
}
