package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Zeros creates a tensor filled with zeros.
func Zeros[B Backend](shape Shape, b B) *Tensor[B] {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(fmt.Sprintf("zeros: %v", err))
	}
	return New(raw, b)
}

// Ones creates a tensor filled with ones.
func Ones[B Backend](shape Shape, b B) *Tensor[B] {
	return Full(shape, 1, b)
}

// Full creates a tensor filled with the given value.
func Full[B Backend](shape Shape, value float32, b B) *Tensor[B] {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(fmt.Sprintf("full: %v", err))
	}
	data := raw.Float32()
	for i := range data {
		data[i] = value
	}
	return New(raw, b)
}

// Randn creates a tensor with values drawn from N(0, 1).
func Randn[B Backend](shape Shape, b B) *Tensor[B] {
	raw, err := NewRaw(shape, b.Device())
	if err != nil {
		panic(fmt.Sprintf("randn: %v", err))
	}
	data := raw.Float32()
	for i := 0; i < len(data); i += 2 {
		// Box-Muller transform
		u1 := rand.Float64() //nolint:gosec // not security-critical
		u2 := rand.Float64() //nolint:gosec // not security-critical
		r := math.Sqrt(-2.0 * math.Log(u1+1e-12))
		data[i] = float32(r * math.Cos(2*math.Pi*u2))
		if i+1 < len(data) {
			data[i+1] = float32(r * math.Sin(2*math.Pi*u2))
		}
	}
	return New(raw, b)
}
