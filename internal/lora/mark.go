package lora

import (
	"fmt"
	"strings"

	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

// markOnlyAdapterTrainable freezes every parameter in the tree except the
// adapter projections, then selectively re-enables biases per the bias
// training mode. Adapter parameters are recognized by the Marker in their
// name, so the mask is structural and survives checkpoint round-trips.
func markOnlyAdapterTrainable[B tensor.Backend](
	root nn.Composite[B],
	bias BiasMode,
	layers []*Layer[B],
) error {
	for _, np := range nn.NamedParameters[B](root) {
		np.Param.SetTrainable(strings.Contains(np.Path, Marker))
	}

	switch bias {
	case BiasNone:
	case BiasAll:
		for _, np := range nn.NamedParameters[B](root) {
			if strings.Contains(np.Path, "bias") {
				np.Param.SetTrainable(true)
			}
		}
	case BiasLoRAOnly:
		for _, l := range layers {
			if b := l.Bias(); b != nil {
				b.SetTrainable(true)
			}
		}
	default:
		return fmt.Errorf("%w: %q", ErrBiasMode, bias)
	}
	return nil
}
