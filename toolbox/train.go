package toolbox

import (
	"context"

	"github.com/chewxy/math32"
)

// Dataset supplies training examples.  Input and Target return signals sized
// to the input and output layers of the network being trained.
type Dataset interface {
	Len() int
	Input(i int) Signal
	Target(i int) Signal
}

// Trainer runs forward then backward propagation on each example.
type Trainer struct {
	Forward  *ForwardPropagation
	Backward *BackPropagation
}

func NewTrainer(net *Network, activation Activation, outputCostDerivative CostDerivativeFunc, learningRate float32) *Trainer {
	return &Trainer{
		Forward:  &ForwardPropagation{Activate: activation.Fn},
		Backward: NewBackPropagation(net, outputCostDerivative, activation.Derivative, learningRate),
	}
}

// Step trains net on a single example.
func (t *Trainer) Step(net *Network, input, target Signal) {
	t.Forward.Run(net, input)
	t.Backward.Run(net, target)
}

// Train runs Step on every example of ds in order.  progress, if non-nil, is
// called after each example with its index and ds.Len().  ctx is checked
// between examples.
func (t *Trainer) Train(ctx context.Context, net *Network, ds Dataset, progress func(i, n int)) error {
	n := ds.Len()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.Step(net, ds.Input(i), ds.Target(i))
		if progress != nil {
			progress(i, n)
		}
	}
	return nil
}

// Predict runs forward propagation and returns the network's output.
func Predict(net *Network, fp *ForwardPropagation, input Signal) Signal {
	fp.Run(net, input)
	return net.Output()
}

// ArgMax returns the index of the largest element of s.  Ties go to the
// lowest index.
func ArgMax(s Signal) int {
	if len(s) == 0 {
		panic("ArgMax of empty signal")
	}
	best := 0
	score := math32.Inf(-1)
	for i, v := range s {
		if v > score {
			best = i
			score = v
		}
	}
	return best
}

type Evaluation struct {
	Total   int
	Correct int

	// Mean over the examples of MeanSquaredError(target, output).
	Loss float32
}

func (e Evaluation) Percent() float32 {
	if e.Total == 0 {
		return 0
	}
	return float32(e.Correct) / float32(e.Total) * 100
}

// Evaluate runs every example of ds through net, counting the examples whose
// largest output matches the largest target element.
func Evaluate(net *Network, fp *ForwardPropagation, ds Dataset) Evaluation {
	var e Evaluation
	for i := 0; i < ds.Len(); i++ {
		target := ds.Target(i)
		out := Predict(net, fp, ds.Input(i))
		if ArgMax(out) == ArgMax(target) {
			e.Correct++
		}
		e.Loss += MeanSquaredError(target, out)
		e.Total++
	}
	if e.Total > 0 {
		e.Loss /= float32(e.Total)
	}
	return e
}

// InputStub returns a NaN-filled signal sized to the input layer.
func InputStub(net *Network) Signal {
	return signalStub(net, 0)
}

// OutputStub returns a NaN-filled signal sized to the output layer.
func OutputStub(net *Network) Signal {
	return signalStub(net, net.LayerCount()-1)
}

func signalStub(net *Network, ilayer int) Signal {
	s := make(Signal, net.LayerSize(ilayer))
	for i := range s {
		s[i] = math32.NaN()
	}
	return s
}
