package lora

import (
	"fmt"
	"math"

	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

// Heads is the fixed head count of the low-rank decomposition. The feature
// axis is split into Heads independent sub-problems sharing the same rank,
// so in_features and out_features must both be divisible by it.
const Heads = 4

// Marker identifies adapter parameters by name. Every trainable parameter
// introduced by adaptation carries it; the freeze mask keys on it.
const Marker = "lora_"

// Layer wraps one frozen dense transform with a trainable low-rank update.
//
// The layer holds the base weight [out, in] (or [in, out] under fanInFanOut)
// and optional bias by reference, transplanted from the replaced module
// rather than copied, plus three small projections:
//
//	lora_A: in/Heads -> r
//	lora_R: in/Heads -> r (router) or r² (router mixer), optional
//	lora_B: r -> out/Heads
//
// Forward output is base(x) + unfold(B(gate·A(fold(dropout(x)))))·alpha/r,
// where fold splits the feature axis into Heads and folds the head axis
// into the batch axis. With r == 0, or after a merge, the layer computes
// exactly the frozen base path.
type Layer[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	r           int
	alpha       float32
	scaling     float32
	fanInFanOut bool
	mergeWeight bool
	routerMixer bool

	weight *nn.Parameter[B] // frozen base weight
	bias   *nn.Parameter[B] // optional frozen base bias

	loraA   *nn.Linear[B]
	loraR   *nn.Linear[B] // nil unless the router is enabled
	loraB   *nn.Linear[B]
	dropout *nn.Dropout[B]

	merged   bool
	disabled bool
	training bool
	backend  B
}

// NewLayer builds an adapter layer around an existing weight and optional
// bias. The parameters are shared by reference so externally loaded
// pretrained values are preserved; adapter parameters are created on the
// same backend (and therefore device) as the transplanted weight.
//
// Panics if r > 0 and the feature dimensions are not divisible by Heads.
func NewLayer[B tensor.Backend](
	inFeatures, outFeatures int,
	weight, bias *nn.Parameter[B],
	cfg Config,
	backend B,
) *Layer[B] {
	l := &Layer[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		r:           cfg.R,
		alpha:       cfg.Alpha,
		scaling:     cfg.Scaling(),
		fanInFanOut: cfg.FanInFanOut,
		mergeWeight: cfg.MergeWeights,
		routerMixer: cfg.RouterMixer,
		weight:      weight,
		bias:        bias,
		dropout:     nn.NewDropout[B](cfg.Dropout, backend),
		training:    true,
		backend:     backend,
	}

	if cfg.R == 0 {
		return l
	}

	if inFeatures%Heads != 0 || outFeatures%Heads != 0 {
		panic(fmt.Sprintf(
			"lora: in_features (%d) and out_features (%d) must be divisible by the head count (%d)",
			inFeatures, outFeatures, Heads))
	}

	inHead := inFeatures / Heads
	outHead := outFeatures / Heads

	// A follows the dense-layer default init, B starts at zero: a fresh
	// adapter computes exactly the frozen base function.
	aWeight := nn.NewParameter("lora_A.weight",
		nn.KaimingUniform[B](math.Sqrt(5), inHead, tensor.Shape{cfg.R, inHead}, backend))
	l.loraA = nn.NewLinearFromParams(inHead, cfg.R, aWeight, nil, backend)

	if cfg.Router {
		routerOut := cfg.R
		if cfg.RouterMixer {
			routerOut = cfg.R * cfg.R
		}
		rWeight := nn.NewParameter("lora_R.weight",
			nn.KaimingUniform[B](math.Sqrt(5), inHead, tensor.Shape{routerOut, inHead}, backend))
		l.loraR = nn.NewLinearFromParams(inHead, routerOut, rWeight, nil, backend)
	}

	bWeight := nn.NewParameter("lora_B.weight",
		nn.Zeros[B](tensor.Shape{outHead, cfg.R}, backend))
	l.loraB = nn.NewLinearFromParams(cfg.R, outHead, bWeight, nil, backend)

	// Freeze the pretrained weight; only the low-rank update trains.
	weight.SetTrainable(false)

	return l
}

// Forward computes the adapted transformation for 2D [batch, in] or 3D
// [batch, seq, in] inputs. The output restores the input's leading
// dimensions with the feature axis mapped to out_features.
func (l *Layer[B]) Forward(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	if l.disabled {
		panic("lora: adapters are disabled for this layer; disabling without merging is not a supported execution mode")
	}

	base := l.basePath(x)
	if l.r == 0 || l.merged {
		return base
	}

	shape := x.Shape()
	dx := l.dropout.Forward(x)

	// Head fold: split the feature axis into Heads groups and fold the
	// head axis into the batch axis.
	//   2D: [b, h·d]    -> [b·h, d]
	//   3D: [b, s, h·d] -> [b·h, s, d]
	var folded *tensor.Tensor[B]
	switch len(shape) {
	case 2:
		folded = dx.Reshape(shape[0]*Heads, l.inFeatures/Heads)
	case 3:
		folded = dx.
			Reshape(shape[0], shape[1], Heads, l.inFeatures/Heads).
			Transpose(0, 2, 1, 3).
			Reshape(shape[0]*Heads, shape[1], l.inFeatures/Heads)
	default:
		panic(fmt.Sprintf("lora: expected 2D or 3D input, got shape %v", shape))
	}

	left := l.project(l.loraA, folded) // (..., r)

	moe := left
	if l.loraR != nil {
		gate := l.project(l.loraR, folded).Softmax(-1)
		if l.routerMixer {
			// (..., r²) -> (..., r, r): dense cross-channel mixing.
			gs := gate.Shape()
			mixShape := append([]int{}, gs[:len(gs)-1]...)
			mixShape = append(mixShape, l.r, l.r)
			gate = gate.Reshape(mixShape...)
		} else {
			// (..., r) -> (..., r, r): independent per-channel gating.
			gate = gate.DiagEmbed()
		}

		// Batched contraction of left against the gate:
		// (..., r) x (..., r, r) -> (..., r).
		mm := left.Unsqueeze(-2).BatchMatMul(gate)
		moe = mm.Squeeze(len(mm.Shape()) - 2)
	}

	low := l.project(l.loraB, moe).MulScalar(l.scaling)

	// Undo the head fold.
	switch len(shape) {
	case 2:
		low = low.Reshape(shape[0], l.outFeatures)
	case 3:
		low = low.
			Reshape(shape[0], Heads, shape[1], l.outFeatures/Heads).
			Transpose(0, 2, 1, 3).
			Reshape(shape[0], shape[1], l.outFeatures)
	}

	return low.Add(base)
}

// basePath applies the frozen dense transform to the raw input.
func (l *Layer[B]) basePath(x *tensor.Tensor[B]) *tensor.Tensor[B] {
	w := l.weight.Tensor()
	if !l.fanInFanOut {
		w = w.T() // stored [out, in] -> [in, out]
	}

	shape := x.Shape()
	switch len(shape) {
	case 2:
		out := x.MatMul(w)
		if l.bias != nil {
			out = out.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
		}
		return out
	case 3:
		flat := x.Reshape(shape[0]*shape[1], shape[2])
		out := flat.MatMul(w)
		if l.bias != nil {
			out = out.Add(l.bias.Tensor().Reshape(1, l.outFeatures))
		}
		return out.Reshape(shape[0], shape[1], l.outFeatures)
	default:
		panic(fmt.Sprintf("lora: expected 2D or 3D input, got shape %v", shape))
	}
}

// project applies a sub-projection to a 2D or 3D tensor by flattening the
// leading dimensions around the dense layer.
func (l *Layer[B]) project(lin *nn.Linear[B], x *tensor.Tensor[B]) *tensor.Tensor[B] {
	shape := x.Shape()
	if len(shape) == 2 {
		return lin.Forward(x)
	}
	flat := x.Reshape(shape[0]*shape[1], shape[2])
	return lin.Forward(flat).Reshape(shape[0], shape[1], lin.OutFeatures())
}

// Train switches the layer between training and evaluation mode.
//
// Entering evaluation with merge-on-eval enabled folds the low-rank delta
// into the base weight; re-entering training subtracts it back out. Merge
// arithmetic is only defined for the no-router configuration; entering a
// merging eval on a routed layer panics.
func (l *Layer[B]) Train(mode bool) {
	l.training = mode
	l.dropout.Train(mode)

	if mode {
		if l.merged && l.r > 0 {
			l.applyDelta(-1)
		}
		l.merged = false
		return
	}

	if l.mergeWeight && !l.merged && l.r > 0 {
		if l.loraR != nil {
			panic("lora: merging weights is not supported for router-augmented layers")
		}
		l.applyDelta(1)
		l.merged = true
	}
}

// Eval switches the layer into evaluation mode (see Train).
func (l *Layer[B]) Eval() {
	l.Train(false)
}

// applyDelta adds sign · scaling · (B·A) to the base weight, per head.
// The effective update is block-diagonal: head i maps its input slice
// through the shared B·A block onto its output slice.
func (l *Layer[B]) applyDelta(sign float32) {
	inHead := l.inFeatures / Heads
	outHead := l.outFeatures / Heads

	aw := l.loraA.Weight().Tensor().Data() // [r, inHead]
	bw := l.loraB.Weight().Tensor().Data() // [outHead, r]
	w := l.weight.Tensor().Data()

	for head := 0; head < Heads; head++ {
		for i := 0; i < outHead; i++ {
			for j := 0; j < inHead; j++ {
				var sum float32
				for k := 0; k < l.r; k++ {
					sum += bw[i*l.r+k] * aw[k*inHead+j]
				}
				delta := sign * l.scaling * sum

				row := head*outHead + i
				col := head*inHead + j
				if l.fanInFanOut {
					w[col*l.outFeatures+row] += delta
				} else {
					w[row*l.inFeatures+col] += delta
				}
			}
		}
	}
}

// Parameters returns the base weight and bias plus the adapter projections.
func (l *Layer[B]) Parameters() []*nn.Parameter[B] {
	params := []*nn.Parameter[B]{l.weight}
	if l.bias != nil {
		params = append(params, l.bias)
	}
	if l.r > 0 {
		params = append(params, l.loraA.Parameters()...)
		if l.loraR != nil {
			params = append(params, l.loraR.Parameters()...)
		}
		params = append(params, l.loraB.Parameters()...)
	}
	return params
}

// Weight returns the frozen base weight parameter.
func (l *Layer[B]) Weight() *nn.Parameter[B] { return l.weight }

// Bias returns the base bias parameter (nil when the layer has no bias).
func (l *Layer[B]) Bias() *nn.Parameter[B] { return l.bias }

// LoraA returns the down projection (nil when r == 0).
func (l *Layer[B]) LoraA() *nn.Linear[B] { return l.loraA }

// LoraR returns the router projection (nil when r == 0 or no router).
func (l *Layer[B]) LoraR() *nn.Linear[B] { return l.loraR }

// LoraB returns the up projection (nil when r == 0).
func (l *Layer[B]) LoraB() *nn.Linear[B] { return l.loraB }

// Rank returns the adapter rank r.
func (l *Layer[B]) Rank() int { return l.r }

// Scaling returns the scaling factor alpha/r (0 when r == 0).
func (l *Layer[B]) Scaling() float32 { return l.scaling }

// InFeatures returns the input feature count.
func (l *Layer[B]) InFeatures() int { return l.inFeatures }

// OutFeatures returns the output feature count.
func (l *Layer[B]) OutFeatures() int { return l.outFeatures }

// Merged reports whether the low-rank delta is currently folded into the
// base weight.
func (l *Layer[B]) Merged() bool { return l.merged }

// Disabled reports whether the adapter is globally disabled.
func (l *Layer[B]) Disabled() bool { return l.disabled }

// SetDisabled toggles the adapter's disabled flag. A disabled layer
// rejects Forward calls; use merge-on-eval to run without adapter math.
func (l *Layer[B]) SetDisabled(disabled bool) { l.disabled = disabled }
