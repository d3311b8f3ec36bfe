// Command gradient-descent-linreg fits a line with a one-edge network trained
// by backpropagation, and with hand-coded batch gradient descent, and logs
// both fits.
package main

import (
	"flag"
	"log"

	"github.com/ahmedtd/backprop/toolbox"
)

var (
	learningRate = flag.Float64("learning-rate", 0.01, "Step size for both fits")
	epochs       = flag.Int("epochs", 20000, "Passes over the data set")
)

func main() {
	flag.Parse()

	x := []float32{1.0, 2.0, 3.0}
	y := []float32{3.0, 4.0, 5.0}
	rate := float32(*learningRate)

	net := toolbox.MakeNetwork(toolbox.Geometry{1, 1})
	toolbox.Initialize(net, toolbox.Constant(0))
	trainer := toolbox.NewTrainer(net, toolbox.LinearActivation.Activation(), toolbox.MeanSquaredErrorDerivative, rate)
	for i := 0; i < *epochs; i++ {
		for k := range x {
			trainer.Step(net, toolbox.Signal{x[k]}, toolbox.Signal{y[k]})
		}
		if i%1000 == 0 {
			l := line{m: net.W(1, 0, 0), b: net.B(1, 0, 0)}
			log.Printf("epoch=%v m=%v b=%v loss=%v", i, l.m, l.b, l.loss(x, y))
		}
	}
	fit := line{m: net.W(1, 0, 0), b: net.B(1, 0, 0)}
	log.Printf("network m=%v b=%v loss=%v", fit.m, fit.b, fit.loss(x, y))

	var batch line
	for range *epochs {
		batch = batch.step(x, y, rate)
	}
	log.Printf("batch m=%v b=%v loss=%v", batch.m, batch.b, batch.loss(x, y))
}

// line is y = m*x + b.
type line struct {
	m, b float32
}

// loss is half the mean squared residual over the points.
func (l line) loss(x, y []float32) float32 {
	var sum float32
	for i := range x {
		r := l.m*x[i] + l.b - y[i]
		sum += r * r
	}
	return sum / (2 * float32(len(x)))
}

// step takes one gradient descent step on loss using every point.
func (l line) step(x, y []float32, rate float32) line {
	var gradM, gradB float32
	for i := range x {
		r := l.m*x[i] + l.b - y[i]
		gradM += r * x[i]
		gradB += r
	}
	n := float32(len(x))
	return line{
		m: l.m - rate*gradM/n,
		b: l.b - rate*gradB/n,
	}
}
