package toolbox

import (
	"github.com/chewxy/math32"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Generator produces initial values for weights and biases.
type Generator func() float32

// Initialize sets every weight and bias of net from gen, visiting each edge
// once.
func Initialize(net *Network, gen Generator) {
	for ilayer := 1; ilayer < net.LayerCount(); ilayer++ {
		for ifrom, ito := range net.Edges(ilayer) {
			net.SetW(ilayer, ifrom, ito, gen())
			net.SetB(ilayer, ifrom, ito, gen())
		}
	}
}

func Constant(v float32) Generator {
	return func() float32 {
		return v
	}
}

// Sequence cycles through vs.
func Sequence(vs ...float32) Generator {
	if len(vs) == 0 {
		panic("empty sequence")
	}
	i := 0
	return func() float32 {
		v := vs[i]
		i = (i + 1) % len(vs)
		return v
	}
}

// Uniform samples [lo, hi) with a source seeded by seed.
func Uniform(lo, hi float32, seed uint64) Generator {
	dist := distuv.Uniform{
		Min: float64(lo),
		Max: float64(hi),
		Src: rand.NewSource(seed),
	}
	top := math32.Nextafter(hi, lo)
	return func() float32 {
		// Rounding to float32 can land exactly on hi.
		return min(float32(dist.Rand()), top)
	}
}

// InitializeRandom draws every weight and bias uniformly from [0, 1).
func InitializeRandom(net *Network, seed uint64) {
	Initialize(net, Uniform(0, 1, seed))
}
