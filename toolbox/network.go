package toolbox

import (
	"fmt"
	"iter"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
)

// Geometry lists the number of nodes on each layer, input layer first.
type Geometry []int

func (g Geometry) Equal(other Geometry) bool {
	if len(g) != len(other) {
		return false
	}
	for i := range g {
		if g[i] != other[i] {
			return false
		}
	}
	return true
}

func (g Geometry) String() string {
	parts := make([]string, len(g))
	for i, n := range g {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// ParseGeometry parses a comma-separated list of layer sizes, such as
// "784,16,8,10".
func ParseGeometry(s string) (Geometry, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty geometry")
	}
	var g Geometry
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("while parsing layer size %q: %w", part, err)
		}
		if n <= 0 {
			return nil, fmt.Errorf("layer size must be positive, got %d", n)
		}
		g = append(g, n)
	}
	return g, nil
}

// Signal is an input, output or target vector.
type Signal []float32

type Layer struct {
	Z *AF32 // Weighted sums.  Shape (size).  Nil for the input layer.
	A *AF32 // Activations.  Shape (size)

	W *AF32 // Weights of incoming edges.  Shape (prevSize, size).  Nil for the input layer.
	B *AF32 // Biases of incoming edges.  Shape (prevSize, size).  Nil for the input layer.
}

func (lay *Layer) Size() int {
	return lay.A.Shape[0]
}

// Network stores the coefficients of a dense network along with the results
// of the last forward pass.  The same structure serves as the memo table of
// backpropagation, see Cache.
type Network struct {
	Layers []*Layer
}

// MakeNetwork allocates a network with the given geometry.  Every coefficient
// is NaN until the network is initialized.
func MakeNetwork(geometry Geometry) *Network {
	if len(geometry) == 0 {
		panic("empty geometry")
	}

	nan := math32.NaN()
	net := &Network{
		Layers: make([]*Layer, len(geometry)),
	}
	for i, size := range geometry {
		if size <= 0 {
			panic(fmt.Sprintf("invalid geometry: %v", geometry))
		}
		lay := &Layer{
			A: MakeFilledAF32(nan, size),
		}
		if i > 0 {
			lay.Z = MakeFilledAF32(nan, size)
			lay.W = MakeFilledAF32(nan, geometry[i-1], size)
			lay.B = MakeFilledAF32(nan, geometry[i-1], size)
		}
		net.Layers[i] = lay
	}
	return net
}

func (net *Network) Geometry() Geometry {
	g := make(Geometry, len(net.Layers))
	for i, lay := range net.Layers {
		g[i] = lay.Size()
	}
	return g
}

func (net *Network) LayerCount() int {
	return len(net.Layers)
}

func (net *Network) LayerSize(ilayer int) int {
	return net.layer(ilayer).Size()
}

func (net *Network) layer(ilayer int) *Layer {
	if ilayer < 0 || ilayer >= len(net.Layers) {
		panic(fmt.Sprintf("layer %d out of range [0, %d)", ilayer, len(net.Layers)))
	}
	return net.Layers[ilayer]
}

// edgeLayer is layer() for accessors that need incoming edges or weighted
// sums, which the input layer doesn't have.
func (net *Network) edgeLayer(ilayer int) *Layer {
	if ilayer == 0 {
		panic("the input layer has no incoming edges")
	}
	return net.layer(ilayer)
}

func (net *Network) A(ilayer, inode int) float32 {
	return net.layer(ilayer).A.At1(inode)
}

func (net *Network) SetA(ilayer, inode int, v float32) {
	net.layer(ilayer).A.Set1(inode, v)
}

func (net *Network) Z(ilayer, inode int) float32 {
	return net.edgeLayer(ilayer).Z.At1(inode)
}

func (net *Network) SetZ(ilayer, inode int, v float32) {
	net.edgeLayer(ilayer).Z.Set1(inode, v)
}

func (net *Network) W(ilayer, ifrom, ito int) float32 {
	return net.edgeLayer(ilayer).W.At2(ifrom, ito)
}

func (net *Network) SetW(ilayer, ifrom, ito int, v float32) {
	net.edgeLayer(ilayer).W.Set2(ifrom, ito, v)
}

func (net *Network) B(ilayer, ifrom, ito int) float32 {
	return net.edgeLayer(ilayer).B.At2(ifrom, ito)
}

func (net *Network) SetB(ilayer, ifrom, ito int, v float32) {
	net.edgeLayer(ilayer).B.Set2(ifrom, ito, v)
}

// SetInput copies signal into the activations of the input layer.
func (net *Network) SetInput(signal Signal) {
	in := net.layer(0)
	if len(signal) != in.Size() {
		panic(fmt.Sprintf("input signal has length %d, input layer has %d nodes", len(signal), in.Size()))
	}
	copy(in.A.V, signal)
}

// Output returns a copy of the weighted sums of the output layer.  The output
// cost derivative is taken with respect to these values, so they are the
// network's readout.
func (net *Network) Output() Signal {
	ilayer := len(net.Layers) - 1
	if ilayer == 0 {
		return net.Activations(0)
	}
	out := make(Signal, net.LayerSize(ilayer))
	copy(out, net.Layers[ilayer].Z.V)
	return out
}

// Activations returns a copy of the activations of layer ilayer.
func (net *Network) Activations(ilayer int) Signal {
	lay := net.layer(ilayer)
	out := make(Signal, lay.Size())
	copy(out, lay.A.V)
	return out
}

// Edges yields the (from, to) index pair of every incoming edge of layer
// ilayer, from-major.
func (net *Network) Edges(ilayer int) iter.Seq2[int, int] {
	net.edgeLayer(ilayer)
	lenFrom := net.LayerSize(ilayer - 1)
	lenTo := net.LayerSize(ilayer)

	return func(yield func(int, int) bool) {
		for ifrom := 0; ifrom < lenFrom; ifrom++ {
			for ito := 0; ito < lenTo; ito++ {
				if !yield(ifrom, ito) {
					return
				}
			}
		}
	}
}

// Reset sets every coefficient of every layer to NaN.
func (net *Network) Reset() {
	nan := math32.NaN()
	for _, lay := range net.Layers {
		lay.A.Fill(nan)
		if lay.Z != nil {
			lay.Z.Fill(nan)
			lay.W.Fill(nan)
			lay.B.Fill(nan)
		}
	}
}

func (net *Network) Clone() *Network {
	out := &Network{
		Layers: make([]*Layer, len(net.Layers)),
	}
	for i, lay := range net.Layers {
		out.Layers[i] = &Layer{
			Z: AF32Copy(lay.Z),
			A: AF32Copy(lay.A),
			W: AF32Copy(lay.W),
			B: AF32Copy(lay.B),
		}
	}
	return out
}

// Equal reports whether two networks have the same geometry and, within
// Epsilon, the same coefficients.  NaN compares equal to anything.
func (net *Network) Equal(other *Network) bool {
	if !net.Geometry().Equal(other.Geometry()) {
		return false
	}
	for i := range net.Layers {
		l, r := net.Layers[i], other.Layers[i]
		if !AF32ApproxEqual(l.A, r.A) || !AF32ApproxEqual(l.Z, r.Z) ||
			!AF32ApproxEqual(l.W, r.W) || !AF32ApproxEqual(l.B, r.B) {
			return false
		}
	}
	return true
}
