// Package toolbox stores dense feed-forward networks and implements their
// forward pass and per-example backpropagation.
//
// Layers are counted from the input (layer 0) to the output.  Edges belong to
// the layer of their destination node and are addressed as (from, to), where
// from indexes the previous layer.
package toolbox

import (
	"fmt"

	"github.com/chewxy/math32"
)

// AF32 is a dense row-major float32 array.
type AF32 struct {
	V     []float32
	Shape []int
}

func MakeAF32(shape ...int) *AF32 {
	for _, s := range shape {
		if s <= 0 {
			panic(fmt.Sprintf("invalid shape: %v", shape))
		}
	}
	size := 1
	for _, s := range shape {
		size *= s
	}

	return &AF32{
		V:     make([]float32, size),
		Shape: shape,
	}
}

// MakeFilledAF32 is MakeAF32 with every element set to v.
func MakeFilledAF32(v float32, shape ...int) *AF32 {
	a := MakeAF32(shape...)
	a.Fill(v)
	return a
}

func AF32Copy(in *AF32) *AF32 {
	if in == nil {
		return nil
	}
	shapeCopy := make([]int, len(in.Shape))
	copy(shapeCopy, in.Shape)
	vCopy := make([]float32, len(in.V))
	copy(vCopy, in.V)
	return &AF32{
		V:     vCopy,
		Shape: shapeCopy,
	}
}

func (a *AF32) Fill(v float32) {
	for i := range a.V {
		a.V[i] = v
	}
}

func (a *AF32) At1(idx int) float32 {
	if len(a.Shape) != 1 {
		panic("At1() invalid for len(shape) != 1")
	}
	if idx < 0 || idx >= a.Shape[0] {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, a.Shape[0]))
	}
	return a.V[idx]
}

func (a *AF32) Set1(idx int, v float32) {
	if len(a.Shape) != 1 {
		panic("Set1() invalid for len(shape) != 1")
	}
	if idx < 0 || idx >= a.Shape[0] {
		panic(fmt.Sprintf("index %d out of range [0, %d)", idx, a.Shape[0]))
	}
	a.V[idx] = v
}

func (a *AF32) At2(idx0, idx1 int) float32 {
	if len(a.Shape) != 2 {
		panic("At2() invalid for len(shape) != 2")
	}
	a.check2(idx0, idx1)
	return a.V[idx0*a.Shape[1]+idx1]
}

func (a *AF32) Set2(idx0, idx1 int, v float32) {
	if len(a.Shape) != 2 {
		panic("Set2() invalid for len(shape) != 2")
	}
	a.check2(idx0, idx1)
	a.V[idx0*a.Shape[1]+idx1] = v
}

// Row returns the storage of row idx0 of a 2D array.  The returned slice
// shares storage with a.
func (a *AF32) Row(idx0 int) []float32 {
	if len(a.Shape) != 2 {
		panic("Row() invalid for len(shape) != 2")
	}
	a.check2(idx0, 0)
	return a.V[idx0*a.Shape[1] : (idx0+1)*a.Shape[1]]
}

// Without the explicit check, an out-of-range column would silently alias
// the next row.
func (a *AF32) check2(idx0, idx1 int) {
	if idx0 < 0 || idx0 >= a.Shape[0] || idx1 < 0 || idx1 >= a.Shape[1] {
		panic(fmt.Sprintf("index (%d, %d) out of range for shape %v", idx0, idx1, a.Shape))
	}
}

// Epsilon is the float32 machine epsilon, the tolerance used by network
// equality.
const Epsilon = float32(1.1920929e-07)

// approxEqual treats NaN as equal to anything, since uncomputed slots are
// NaN-filled.
func approxEqual(x, y float32) bool {
	if x == y || math32.IsNaN(x) || math32.IsNaN(y) {
		return true
	}
	return math32.Abs(x-y) <= Epsilon
}

// AF32ApproxEqual compares two arrays element-wise with approxEqual.  Two nil
// arrays are equal.
func AF32ApproxEqual(x, y *AF32) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}
	if len(x.V) != len(y.V) || len(x.Shape) != len(y.Shape) {
		return false
	}
	for i := range x.Shape {
		if x.Shape[i] != y.Shape[i] {
			return false
		}
	}
	for i := range x.V {
		if !approxEqual(x.V[i], y.V[i]) {
			return false
		}
	}
	return true
}
