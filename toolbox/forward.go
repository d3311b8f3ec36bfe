package toolbox

// ForwardPropagation computes weighted sums and activations layer by layer.
type ForwardPropagation struct {
	Activate ActivationFunc
}

// Run sets the input layer to input and recomputes every other layer.
func (fp *ForwardPropagation) Run(net *Network, input Signal) {
	net.SetInput(input)

	for ilayer := 1; ilayer < net.LayerCount(); ilayer++ {
		fp.propagate(net, ilayer)
		fp.activate(net, ilayer)
	}
}

// Every edge carries its own bias, so a node's sum includes one bias per
// incoming edge.  Equivalent to
//
//	for ito := range lenTo {
//		var sum float32
//		for ifrom := range lenFrom {
//			sum += net.A(ilayer-1, ifrom)*net.W(ilayer, ifrom, ito) + net.B(ilayer, ifrom, ito)
//		}
//		net.SetZ(ilayer, ito, sum)
//	}
//
// but walks W and B row by row, which matches their storage order.
func (fp *ForwardPropagation) propagate(net *Network, ilayer int) {
	prev := net.Layers[ilayer-1]
	lay := net.edgeLayer(ilayer)

	z := lay.Z.V
	for ito := range z {
		z[ito] = 0
	}
	for ifrom := 0; ifrom < prev.Size(); ifrom++ {
		a := prev.A.V[ifrom]
		w := lay.W.Row(ifrom)
		b := lay.B.Row(ifrom)
		for ito := range z {
			z[ito] += a*w[ito] + b[ito]
		}
	}
}

func (fp *ForwardPropagation) activate(net *Network, ilayer int) {
	lay := net.Layers[ilayer]
	for i, z := range lay.Z.V {
		lay.A.V[i] = fp.Activate(z)
	}
}
