package toolbox

import "fmt"

// BackPropagation trains a network one example at a time by gradient descent.
//
// Partial derivatives of the cost are evaluated recursively with the chain
// rule and memoized in a Cache shaped like the trained network:
//
//	dC/dz(l, n) = OutputCostDerivative(target[n], z(l, n))       l is the output layer
//	            = dC/da(l, n) * ActivationDerivative(z(l, n))    otherwise
//	dC/da(l, n) = sum over to of dC/dz(l+1, to) * w(l+1, n, to)
//	dC/dw(l, from, to) = dC/dz(l, to) * a(l-1, from)
//	dC/db(l, from, to) = dC/dz(l, to)
type BackPropagation struct {
	OutputCostDerivative CostDerivativeFunc
	ActivationDerivative ActivationFunc
	LearningRate         float32

	cache *Cache
}

// NewBackPropagation allocates the memo table for networks with the geometry
// of net.
func NewBackPropagation(net *Network, outputCostDerivative CostDerivativeFunc, activationDerivative ActivationFunc, learningRate float32) *BackPropagation {
	return &BackPropagation{
		OutputCostDerivative: outputCostDerivative,
		ActivationDerivative: activationDerivative,
		LearningRate:         learningRate,
		cache:                MakeCache(net.Geometry()),
	}
}

// Cache returns the partial derivatives computed by the last call to Run.
func (bp *BackPropagation) Cache() *Cache {
	return bp.cache
}

// Run updates the weights and biases of net towards producing target.
//
// Forward propagation must already have been run on net for the matching
// input.  Every gradient is computed before any coefficient changes, so the
// whole step is taken against the coefficients the example started with.
func (bp *BackPropagation) Run(net *Network, target Signal) {
	if !net.Geometry().Equal(bp.cache.net.Geometry()) {
		panic(fmt.Sprintf("network geometry %v does not match cache geometry %v", net.Geometry(), bp.cache.net.Geometry()))
	}
	if len(target) != net.LayerSize(net.LayerCount()-1) {
		panic(fmt.Sprintf("target signal has length %d, output layer has %d nodes", len(target), net.LayerSize(net.LayerCount()-1)))
	}

	bp.cache.Reset()

	for ilayer := net.LayerCount() - 1; ilayer >= 1; ilayer-- {
		for ifrom, ito := range net.Edges(ilayer) {
			bp.dcdw(net, target, ilayer, ifrom, ito)
			bp.dcdb(net, target, ilayer, ifrom, ito)
		}
	}

	rate := bp.LearningRate
	for ilayer := net.LayerCount() - 1; ilayer >= 1; ilayer-- {
		lay := net.Layers[ilayer]
		grads := bp.cache.net.Layers[ilayer]
		for i := range lay.W.V {
			lay.W.V[i] -= rate * grads.W.V[i]
			lay.B.V[i] -= rate * grads.B.V[i]
		}
	}
}

func (bp *BackPropagation) dcdz(net *Network, target Signal, izlayer, iz int) float32 {
	if v, ok := bp.cache.Z(izlayer, iz); ok {
		return v
	}

	z := net.Z(izlayer, iz)
	var ret float32
	if izlayer == net.LayerCount()-1 {
		ret = bp.OutputCostDerivative(target[iz], z)
	} else {
		ret = bp.dcda(net, target, izlayer, iz) * bp.ActivationDerivative(z)
	}

	bp.cache.SetZ(izlayer, iz, ret)
	return ret
}

// The output layer's activations feed nothing, so dcda is never evaluated
// there.
func (bp *BackPropagation) dcda(net *Network, target Signal, ialayer, ia int) float32 {
	if v, ok := bp.cache.A(ialayer, ia); ok {
		return v
	}

	var ret float32
	for iz := 0; iz < net.LayerSize(ialayer+1); iz++ {
		ret += bp.dcdz(net, target, ialayer+1, iz) * dzda(net, ialayer, ia, iz)
	}

	bp.cache.SetA(ialayer, ia, ret)
	return ret
}

func (bp *BackPropagation) dcdw(net *Network, target Signal, ilayer, ifrom, ito int) float32 {
	if v, ok := bp.cache.W(ilayer, ifrom, ito); ok {
		return v
	}

	ret := bp.dcdz(net, target, ilayer, ito) * dzdw(net, ilayer, ifrom, ito)
	bp.cache.SetW(ilayer, ifrom, ito, ret)
	return ret
}

func (bp *BackPropagation) dcdb(net *Network, target Signal, ilayer, ifrom, ito int) float32 {
	if v, ok := bp.cache.B(ilayer, ifrom, ito); ok {
		return v
	}

	ret := bp.dcdz(net, target, ilayer, ito) * dzdb(net, ilayer, ifrom, ito)
	bp.cache.SetB(ilayer, ifrom, ito, ret)
	return ret
}

// dzda is the partial derivative of z(ialayer+1, iz) with respect to
// a(ialayer, ia).
func dzda(net *Network, ialayer, ia, iz int) float32 {
	return net.W(ialayer+1, ia, iz)
}

func dzdw(net *Network, ilayer, ifrom, ito int) float32 {
	return net.A(ilayer-1, ifrom)
}

func dzdb(net *Network, ilayer, ifrom, ito int) float32 {
	return 1
}
