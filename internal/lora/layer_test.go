package lora

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loft-ml/loft/internal/backend/cpu"
	"github.com/loft-ml/loft/internal/nn"
	"github.com/loft-ml/loft/internal/tensor"
)

func weightParam(t *testing.T, data []float32, shape tensor.Shape, b *cpu.CPUBackend) *nn.Parameter[*cpu.CPUBackend] {
	t.Helper()
	tn, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return nn.NewParameter("weight", tn)
}

func input(t *testing.T, data []float32, shape tensor.Shape, b *cpu.CPUBackend) *tensor.Tensor[*cpu.CPUBackend] {
	t.Helper()
	x, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return x
}

// fill overwrites a projection's weight buffer with a constant.
func fill(lin *nn.Linear[*cpu.CPUBackend], v float32) {
	data := lin.Weight().Tensor().Data()
	for i := range data {
		data[i] = v
	}
}

func TestLayer_RankZeroIsBasePath(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	layer := NewLayer(2, 2, w, nil, Config{R: 0, Alpha: 1}, backend)

	x := input(t, []float32{1, 1}, tensor.Shape{1, 2}, backend)
	out := layer.Forward(x)

	// y = x @ W.T = [1+2, 3+4]
	assert.InDelta(t, 3, out.At(0, 0), 1e-6)
	assert.InDelta(t, 7, out.At(0, 1), 1e-6)
	assert.Nil(t, layer.LoraA())
	assert.Nil(t, layer.LoraB())

	// Without adapter math the base weight stays trainable.
	assert.True(t, w.Trainable())
}

func TestLayer_FreshAdapterMatchesBase(t *testing.T) {
	backend := cpu.New()

	wData := make([]float32, 8*8)
	for i := range wData {
		wData[i] = float32(i%7) * 0.25
	}
	w := weightParam(t, wData, tensor.Shape{8, 8}, backend)

	base := NewLayer(8, 8, nn.NewParameter("weight", w.Tensor().Clone()), nil, Config{R: 0, Alpha: 16}, backend)
	adapted := NewLayer(8, 8, w, nil, Config{R: 4, Alpha: 16}, backend)

	x := input(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{1, 8}, backend)

	want := base.Forward(x).Data()
	got := adapted.Forward(x).Data()

	// lora_B starts at zero, so a fresh adapter computes the frozen base
	// function exactly.
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-6, "element %d", i)
	}
}

func TestLayer_FreezesBaseWeight(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 16), tensor.Shape{4, 4}, backend)
	layer := NewLayer(4, 4, w, nil, Config{R: 1, Alpha: 1}, backend)

	assert.False(t, w.Trainable())
	assert.True(t, layer.LoraA().Weight().Trainable())
	assert.True(t, layer.LoraB().Weight().Trainable())
}

func TestLayer_KnownDelta(t *testing.T) {
	backend := cpu.New()

	// Zero base weight, r=1, heads of size 1: the adapter contribution for
	// head h is scaling * b * a * x_h.
	w := weightParam(t, make([]float32, 16), tensor.Shape{4, 4}, backend)
	layer := NewLayer(4, 4, w, nil, Config{R: 1, Alpha: 2}, backend)

	fill(layer.LoraA(), 3)
	fill(layer.LoraB(), 5)

	x := input(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 4}, backend)
	out := layer.Forward(x)

	// scaling = alpha/r = 2, so each feature is 2 * 5 * 3 * x = 30x.
	require.True(t, out.Shape().Equal(tensor.Shape{1, 4}))
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 30*float32(i+1), out.At(0, i), 1e-5, "head %d", i)
	}
}

func TestLayer_3DInputShape(t *testing.T) {
	backend := cpu.New()

	wData := make([]float32, 8*8)
	for i := 0; i < 8; i++ {
		wData[i*8+i] = 1 // identity
	}
	w := weightParam(t, wData, tensor.Shape{8, 8}, backend)
	layer := NewLayer(8, 8, w, nil, Config{R: 2, Alpha: 4}, backend)

	xData := make([]float32, 2*3*8)
	for i := range xData {
		xData[i] = float32(i) * 0.1
	}
	x := input(t, xData, tensor.Shape{2, 3, 8}, backend)

	out := layer.Forward(x)
	require.True(t, out.Shape().Equal(tensor.Shape{2, 3, 8}))

	// Identity base, zero lora_B: output equals input.
	for i, v := range x.Data() {
		assert.InDelta(t, v, out.Data()[i], 1e-5, "element %d", i)
	}
}

func TestLayer_RouterUniformGateScalesByRank(t *testing.T) {
	backend := cpu.New()

	const r = 2
	plainW := weightParam(t, make([]float32, 64), tensor.Shape{8, 8}, backend)
	routedW := weightParam(t, make([]float32, 64), tensor.Shape{8, 8}, backend)

	plain := NewLayer(8, 8, plainW, nil, Config{R: r, Alpha: 4}, backend)
	routed := NewLayer(8, 8, routedW, nil, Config{R: r, Alpha: 4, Router: true}, backend)
	require.NotNil(t, routed.LoraR())

	// Same A and B on both layers; zero router logits give a uniform
	// softmax gate of 1/r per channel.
	copy(routed.LoraA().Weight().Tensor().Data(), plain.LoraA().Weight().Tensor().Data())
	fill(plain.LoraB(), 1)
	fill(routed.LoraB(), 1)
	fill(routed.LoraR(), 0)

	x := input(t, []float32{1, -2, 3, -4, 5, -6, 7, -8}, tensor.Shape{1, 8}, backend)

	plainOut := plain.Forward(x).Data()
	routedOut := routed.Forward(x).Data()

	for i := range plainOut {
		assert.InDelta(t, plainOut[i]/r, routedOut[i], 1e-5, "element %d", i)
	}
}

func TestLayer_RouterMixerKnownValues(t *testing.T) {
	backend := cpu.New()

	// r=2, heads of size 1. Zero mixer logits give a uniform r×r gate of
	// 1/r² per cell, so every mixed channel is mean(left)/r.
	const r = 2
	w := weightParam(t, make([]float32, 16), tensor.Shape{4, 4}, backend)
	layer := NewLayer(4, 4, w, nil, Config{R: r, Alpha: float32(r), Router: true, RouterMixer: true}, backend)

	// lora_R produces r² logits per head.
	require.Equal(t, r*r, layer.LoraR().OutFeatures())

	aData := layer.LoraA().Weight().Tensor().Data() // [r, 1]
	aData[0], aData[1] = 2, 6
	fill(layer.LoraB(), 1) // [1, r]
	fill(layer.LoraR(), 0)

	x := input(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 4}, backend)
	out := layer.Forward(x)

	// left = [2x, 6x], mixed channel = (2x+6x)/4 = 2x, output =
	// scaling * (b0+b1) * 2x = 1 * 2 * 2x = 4x.
	for i := 0; i < 4; i++ {
		assert.InDelta(t, 4*float32(i+1), out.At(0, i), 1e-5, "head %d", i)
	}
}

func TestLayer_RouterGateIsNormalized(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 64), tensor.Shape{8, 8}, backend)
	layer := NewLayer(8, 8, w, nil, Config{R: 2, Alpha: 4, Router: true}, backend)

	// With A = identity-ish and B = 1, the output per head is
	// scaling * sum_k(gate_k * left_k); bounded by max(left) since the
	// gate is a probability distribution.
	fill(layer.LoraA(), 1)
	fill(layer.LoraB(), 1)

	x := input(t, []float32{1, 1, 1, 1, 1, 1, 1, 1}, tensor.Shape{1, 8}, backend)
	out := layer.Forward(x)

	// left_k = 2 for every channel, so regardless of the gate weights the
	// convex combination is exactly 2 and the output is scaling * 2 = 4.
	for i := 0; i < 8; i++ {
		assert.InDelta(t, 4, out.At(0, i), 1e-5, "feature %d", i)
	}
}

func TestLayer_MergeUnmergeRoundTrip(t *testing.T) {
	backend := cpu.New()

	wData := []float32{
		1, 0, 0, 0,
		0, 2, 0, 0,
		0, 0, 3, 0,
		0, 0, 0, 4,
	}
	w := weightParam(t, wData, tensor.Shape{4, 4}, backend)
	original := w.Tensor().Clone()

	layer := NewLayer(4, 4, w, nil, Config{R: 1, Alpha: 1, MergeWeights: true}, backend)
	fill(layer.LoraA(), 3)
	fill(layer.LoraB(), 5)

	x := input(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 4}, backend)
	trainOut := layer.Forward(x).Data()

	layer.Eval()
	require.True(t, layer.Merged())
	evalOut := layer.Forward(x).Data()

	// The merged weight must reproduce the decomposed computation.
	for i := range trainOut {
		assert.InDelta(t, trainOut[i], evalOut[i], 1e-4, "element %d", i)
	}

	layer.Train(true)
	require.False(t, layer.Merged())
	for i, v := range original.Data() {
		assert.InDelta(t, v, w.Tensor().Data()[i], 1e-4, "weight element %d", i)
	}
}

func TestLayer_MergeWithRouterPanics(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 64), tensor.Shape{8, 8}, backend)
	layer := NewLayer(8, 8, w, nil, Config{R: 2, Alpha: 4, Router: true, MergeWeights: true}, backend)

	assert.Panics(t, func() { layer.Eval() })
}

func TestLayer_EvalWithoutMergeKeepsWeight(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	original := w.Tensor().Clone()

	layer := NewLayer(2, 2, w, nil, Config{R: 0, Alpha: 1}, backend)
	layer.Eval()

	assert.False(t, layer.Merged())
	assert.Equal(t, original.Data(), w.Tensor().Data())
}

func TestLayer_DisabledForwardPanics(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 16), tensor.Shape{4, 4}, backend)
	layer := NewLayer(4, 4, w, nil, Config{R: 1, Alpha: 1}, backend)
	layer.SetDisabled(true)

	x := input(t, []float32{1, 2, 3, 4}, tensor.Shape{1, 4}, backend)
	assert.Panics(t, func() { layer.Forward(x) })

	layer.SetDisabled(false)
	assert.NotPanics(t, func() { layer.Forward(x) })
}

func TestLayer_IndivisibleFeaturesPanic(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 36), tensor.Shape{6, 6}, backend)
	assert.Panics(t, func() {
		NewLayer(6, 6, w, nil, Config{R: 2, Alpha: 4}, backend)
	})

	// r == 0 skips the adapter projections and the divisibility rule.
	assert.NotPanics(t, func() {
		NewLayer(6, 6, w, nil, Config{R: 0, Alpha: 4}, backend)
	})
}

func TestLayer_FanInFanOutBasePath(t *testing.T) {
	backend := cpu.New()

	// Transposed storage [in, out]: y = x @ W.
	w := weightParam(t, []float32{1, 3, 2, 4}, tensor.Shape{2, 2}, backend)
	layer := NewLayer(2, 2, w, nil, Config{R: 0, Alpha: 1, FanInFanOut: true}, backend)

	x := input(t, []float32{1, 1}, tensor.Shape{1, 2}, backend)
	out := layer.Forward(x)

	assert.InDelta(t, 3, out.At(0, 0), 1e-6)
	assert.InDelta(t, 7, out.At(0, 1), 1e-6)
}

func TestLayer_ProjectionShapes(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 768*768), tensor.Shape{768, 768}, backend)
	layer := NewLayer(768, 768, w, nil, Config{R: 8, Alpha: 16, Router: true}, backend)

	assert.Equal(t, 192, layer.LoraA().InFeatures())
	assert.Equal(t, 8, layer.LoraA().OutFeatures())
	assert.Equal(t, 192, layer.LoraR().InFeatures())
	assert.Equal(t, 8, layer.LoraR().OutFeatures())
	assert.Equal(t, 8, layer.LoraB().InFeatures())
	assert.Equal(t, 192, layer.LoraB().OutFeatures())
	assert.InDelta(t, 2.0, layer.Scaling(), 1e-6)
}

func TestLayer_HalvingAlphaHalvesContribution(t *testing.T) {
	backend := cpu.New()

	build := func(alpha float32) *Layer[*cpu.CPUBackend] {
		w := weightParam(t, make([]float32, 64), tensor.Shape{8, 8}, backend)
		l := NewLayer(8, 8, w, nil, Config{R: 2, Alpha: alpha}, backend)
		fill(l.LoraA(), 1)
		fill(l.LoraB(), 1)
		return l
	}

	x := input(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{1, 8}, backend)

	full := build(16).Forward(x).Data()
	half := build(8).Forward(x).Data()

	// Zero base weight: the output is the low-rank contribution alone.
	for i := range full {
		assert.InDelta(t, full[i]/2, half[i], 1e-5, "element %d", i)
	}
}

func TestLayer_EndToEndRoutedForward(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 768*768), tensor.Shape{768, 768}, backend)
	layer := NewLayer(768, 768, w, nil, Config{R: 8, Alpha: 16, Router: true}, backend)

	xData := make([]float32, 4*16*768)
	for i := range xData {
		xData[i] = float32(i%13) * 0.01
	}
	x := input(t, xData, tensor.Shape{4, 16, 768}, backend)

	out := layer.Forward(x)
	assert.True(t, out.Shape().Equal(tensor.Shape{4, 16, 768}))
}

func TestLayer_DropoutPreservesShape(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 64), tensor.Shape{8, 8}, backend)
	layer := NewLayer(8, 8, w, nil, Config{R: 2, Alpha: 4, Dropout: 0.01}, backend)
	fill(layer.LoraB(), 1)

	xData := make([]float32, 2*5*8)
	for i := range xData {
		xData[i] = 1
	}
	x := input(t, xData, tensor.Shape{2, 5, 8}, backend)

	// Training mode with stochastic dropout: values vary, shape never does.
	for run := 0; run < 3; run++ {
		out := layer.Forward(x)
		assert.True(t, out.Shape().Equal(tensor.Shape{2, 5, 8}), "run %d", run)
	}
}

func TestLayer_ScalingHalvesWhenRankDoubles(t *testing.T) {
	assert.InDelta(t, 2.0, Config{R: 8, Alpha: 16}.Scaling(), 1e-6)
	assert.InDelta(t, 1.0, Config{R: 16, Alpha: 16}.Scaling(), 1e-6)
	assert.InDelta(t, 0.0, Config{R: 0, Alpha: 16}.Scaling(), 1e-6)
}

func TestLayer_BiasAddedInBasePath(t *testing.T) {
	backend := cpu.New()

	w := weightParam(t, make([]float32, 16), tensor.Shape{4, 4}, backend)
	bt, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{4}, backend)
	require.NoError(t, err)
	bias := nn.NewParameter("bias", bt)

	layer := NewLayer(4, 4, w, bias, Config{R: 0, Alpha: 1}, backend)

	x := input(t, []float32{0, 0, 0, 0}, tensor.Shape{1, 4}, backend)
	out := layer.Forward(x)
	assert.Equal(t, []float32{1, 2, 3, 4}, out.Data())
}
