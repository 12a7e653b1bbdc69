package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loft-ml/loft/internal/backend/cpu"
	"github.com/loft-ml/loft/internal/tensor"
)

func TestShape_Basics(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.ComputeStrides())
	assert.True(t, s.Equal(tensor.Shape{2, 3, 4}))
	assert.False(t, s.Equal(tensor.Shape{2, 3}))

	assert.NoError(t, s.Validate())
	assert.Error(t, tensor.Shape{2, 0}.Validate())
	assert.Error(t, tensor.Shape{-1, 3}.Validate())

	clone := s.Clone()
	clone[0] = 9
	assert.Equal(t, 2, s[0])
}

func TestBroadcastShapes(t *testing.T) {
	out, needs, err := tensor.BroadcastShapes(tensor.Shape{3, 1}, tensor.Shape{3, 4})
	require.NoError(t, err)
	assert.True(t, needs)
	assert.True(t, out.Equal(tensor.Shape{3, 4}))

	out, needs, err = tensor.BroadcastShapes(tensor.Shape{2, 2}, tensor.Shape{2, 2})
	require.NoError(t, err)
	assert.False(t, needs)
	assert.True(t, out.Equal(tensor.Shape{2, 2}))

	_, _, err = tensor.BroadcastShapes(tensor.Shape{3}, tensor.Shape{4})
	assert.Error(t, err)
}

func TestFromSlice_LengthMismatch(t *testing.T) {
	backend := cpu.New()

	_, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{2, 2}, backend)
	assert.Error(t, err)
}

func TestTensor_AtSetClone(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	assert.Equal(t, float32(3), x.At(1, 0))
	x.Set(9, 1, 0)
	assert.Equal(t, float32(9), x.At(1, 0))

	clone := x.Clone()
	clone.Set(0, 1, 0)
	assert.Equal(t, float32(9), x.At(1, 0), "clone must not alias the original")

	assert.Panics(t, func() { x.At(2, 0) })
	assert.Panics(t, func() { x.At(0) })
}

func TestTensor_UnsqueezeSqueeze(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	u := x.Unsqueeze(-2)
	assert.True(t, u.Shape().Equal(tensor.Shape{2, 1, 3}))

	u2 := x.Unsqueeze(0)
	assert.True(t, u2.Shape().Equal(tensor.Shape{1, 2, 3}))

	s := u.Squeeze(1)
	assert.True(t, s.Shape().Equal(tensor.Shape{2, 3}))

	assert.Panics(t, func() { x.Squeeze(0) }, "squeeze of a non-1 dimension")
}

func TestTensor_TShorthand(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	tr := x.T()
	assert.True(t, tr.Shape().Equal(tensor.Shape{3, 2}))
	assert.Equal(t, float32(2), tr.At(1, 0))
}

func TestWrapRaw_SharesBuffer(t *testing.T) {
	buf := []float32{1, 2, 3, 4}
	raw, err := tensor.WrapRaw(buf, tensor.Shape{2, 2}, tensor.CPU)
	require.NoError(t, err)

	buf[0] = 42
	assert.Equal(t, float32(42), raw.Float32()[0])

	_, err = tensor.WrapRaw(buf, tensor.Shape{5}, tensor.CPU)
	assert.Error(t, err)
}
