package nn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loft-ml/loft/internal/backend/cpu"
	"github.com/loft-ml/loft/internal/tensor"
)

func newParam(t *testing.T, name string, data []float32, shape tensor.Shape, b *cpu.CPUBackend) *Parameter[*cpu.CPUBackend] {
	t.Helper()
	tn, err := tensor.FromSlice(data, shape, b)
	require.NoError(t, err)
	return NewParameter(name, tn)
}

func TestLinear_KnownValues(t *testing.T) {
	backend := cpu.New()

	// y = x @ W.T + b with W = [[1, 2], [3, 4]], b = [0.5, -0.5].
	weight := newParam(t, "weight", []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	bias := newParam(t, "bias", []float32{0.5, -0.5}, tensor.Shape{2}, backend)
	lin := NewLinearFromParams(2, 2, weight, bias, backend)

	x, err := tensor.FromSlice([]float32{1, 1}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	out := lin.Forward(x)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 2}))
	assert.InDelta(t, 3.5, out.At(0, 0), 1e-6)
	assert.InDelta(t, 6.5, out.At(0, 1), 1e-6)
}

func TestLinear_NoBias(t *testing.T) {
	backend := cpu.New()

	weight := newParam(t, "weight", []float32{2, 0, 0, 2}, tensor.Shape{2, 2}, backend)
	lin := NewLinearFromParams(2, 2, weight, nil, backend)

	x, err := tensor.FromSlice([]float32{3, 4}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	out := lin.Forward(x)
	assert.InDelta(t, 6.0, out.At(0, 0), 1e-6)
	assert.InDelta(t, 8.0, out.At(0, 1), 1e-6)

	assert.Len(t, lin.Parameters(), 1)
}

func TestLinearFromParams_SharesByReference(t *testing.T) {
	backend := cpu.New()

	weight := newParam(t, "weight", []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	lin := NewLinearFromParams(2, 2, weight, nil, backend)

	// Mutating the original parameter must be visible through the layer.
	weight.Tensor().Data()[0] = 42
	assert.Equal(t, float32(42), lin.Weight().Tensor().Data()[0])
	assert.Same(t, weight, lin.Weight())
}

func TestLinearFromParams_ShapeMismatchPanics(t *testing.T) {
	backend := cpu.New()

	weight := newParam(t, "weight", []float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	assert.Panics(t, func() {
		NewLinearFromParams(4, 1, weight, nil, backend)
	})
}

func TestDropout_EvalIsIdentity(t *testing.T) {
	backend := cpu.New()

	d := NewDropout[*cpu.CPUBackend](0.5, backend)
	d.Train(false)

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	out := d.Forward(x)
	assert.Equal(t, x.Data(), out.Data())
}

func TestDropout_TrainScalesSurvivors(t *testing.T) {
	backend := cpu.New()

	d := NewDropout[*cpu.CPUBackend](0.5, backend)

	x, err := tensor.FromSlice([]float32{1, 1, 1, 1, 1, 1, 1, 1}, tensor.Shape{8}, backend)
	require.NoError(t, err)

	out := d.Forward(x)
	for i, v := range out.Data() {
		if v != 0 && v != 2 {
			t.Errorf("element %d: got %g, want 0 or 2 (scale 1/(1-p))", i, v)
		}
	}
}

func TestDropout_ZeroProbability(t *testing.T) {
	backend := cpu.New()

	d := NewDropout[*cpu.CPUBackend](0, backend)
	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	assert.Equal(t, x.Data(), d.Forward(x).Data())
}

func TestDropout_InvalidProbabilityPanics(t *testing.T) {
	backend := cpu.New()

	assert.Panics(t, func() { NewDropout[*cpu.CPUBackend](1, backend) })
	assert.Panics(t, func() { NewDropout[*cpu.CPUBackend](-0.1, backend) })
}

func TestModuleMap_ForwardInInsertionOrder(t *testing.T) {
	backend := cpu.New()

	// first doubles, second adds nothing; order matters for the shapes.
	w1 := newParam(t, "weight", []float32{2, 0, 0, 2}, tensor.Shape{2, 2}, backend)
	w2 := newParam(t, "weight", []float32{1, 0, 0, 1, 1, 0}, tensor.Shape{3, 2}, backend)

	m := NewModuleMap[*cpu.CPUBackend]().
		Add("double", NewLinearFromParams(2, 2, w1, nil, backend)).
		Add("expand", NewLinearFromParams(2, 3, w2, nil, backend))

	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)

	out := m.Forward(x)
	require.True(t, out.Shape().Equal(tensor.Shape{1, 3}))
	assert.Equal(t, []string{"double", "expand"}, m.ChildNames())
}

func TestModuleMap_DuplicateNamePanics(t *testing.T) {
	backend := cpu.New()

	m := NewModuleMap[*cpu.CPUBackend]().Add("a", NewLinear(2, 2, backend))
	assert.Panics(t, func() { m.Add("a", NewLinear(2, 2, backend)) })
}

func TestModuleMap_SetChildReplaces(t *testing.T) {
	backend := cpu.New()

	old := NewLinear(2, 2, backend)
	m := NewModuleMap[*cpu.CPUBackend]().Add("proj", old)

	repl := NewLinear(2, 2, backend)
	require.NoError(t, m.SetChild("proj", repl))

	got, ok := m.Child("proj")
	require.True(t, ok)
	assert.Same(t, repl, got)

	assert.Error(t, m.SetChild("missing", repl))
}

func TestSequential_ChildrenByIndex(t *testing.T) {
	backend := cpu.New()

	s := NewSequential[*cpu.CPUBackend](
		NewLinear(4, 3, backend),
		NewLinear(3, 2, backend),
	)

	assert.Equal(t, []string{"0", "1"}, s.ChildNames())

	child, ok := s.Child("1")
	require.True(t, ok)
	assert.Same(t, s.Module(1), child)

	_, ok = s.Child("2")
	assert.False(t, ok)
	_, ok = s.Child("x")
	assert.False(t, ok)
}

func TestNamedModules_DottedPaths(t *testing.T) {
	backend := cpu.New()

	inner := NewModuleMap[*cpu.CPUBackend]().
		Add("q", NewLinear(4, 4, backend)).
		Add("v", NewLinear(4, 4, backend))
	root := NewModuleMap[*cpu.CPUBackend]().Add("attn", inner)

	var paths []string
	for _, nm := range NamedModules[*cpu.CPUBackend](root) {
		paths = append(paths, nm.Path)
	}
	assert.Equal(t, []string{"", "attn", "attn.q", "attn.v"}, paths)
}

func TestVisit_SamePathsAsNamedModules(t *testing.T) {
	backend := cpu.New()

	inner := NewModuleMap[*cpu.CPUBackend]().Add("q", NewLinear(4, 4, backend))
	root := NewModuleMap[*cpu.CPUBackend]().Add("attn", inner)

	var visited []string
	Visit[*cpu.CPUBackend](root, func(path string, _ Module[*cpu.CPUBackend]) {
		visited = append(visited, path)
	})
	assert.Equal(t, []string{"", "attn", "attn.q"}, visited)
}

func TestNamedParameters_PathsAndCount(t *testing.T) {
	backend := cpu.New()

	inner := NewModuleMap[*cpu.CPUBackend]().Add("q", NewLinear(4, 4, backend))
	root := NewModuleMap[*cpu.CPUBackend]().Add("attn", inner)

	params := NamedParameters[*cpu.CPUBackend](root)
	require.Len(t, params, 2) // weight + bias

	var paths []string
	for _, np := range params {
		paths = append(paths, np.Path)
	}
	assert.Equal(t, []string{"attn.q.weight", "attn.q.bias"}, paths)
}

func TestParameter_TrainableFlag(t *testing.T) {
	backend := cpu.New()

	p := newParam(t, "weight", []float32{1}, tensor.Shape{1}, backend)
	assert.True(t, p.Trainable())

	p.SetTrainable(false)
	assert.False(t, p.Trainable())

	g := tensor.Zeros[*cpu.CPUBackend](tensor.Shape{1}, backend)
	p.SetGrad(g)
	assert.Same(t, g, p.Grad())
	p.ZeroGrad()
	assert.Nil(t, p.Grad())
}
