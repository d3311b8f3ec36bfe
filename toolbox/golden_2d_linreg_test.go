package toolbox

import (
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
)

// With two inputs the output node carries one bias per incoming edge.  Both
// receive the same gradient, so their sum moves like a single bias stepped at
// twice the rate.
func TestAgreesWithGolden2DLinreg(t *testing.T) {
	rate := float32(0.01)
	epochs := 20

	x0, x1, y := generate2DLinRegDataset(1000)

	net := MakeNetwork(Geometry{2, 1})
	Initialize(net, Constant(0))
	trainer := NewTrainer(net, LinearActivation.Activation(), MeanSquaredErrorDerivative, rate)
	for range epochs {
		for i := range y {
			trainer.Step(net, Signal{x0[i], x1[i]}, Signal{y[i]})
		}
	}
	gotM0, gotM1 := net.W(1, 0, 0), net.W(1, 1, 0)
	gotB := net.B(1, 0, 0) + net.B(1, 1, 0)
	t.Logf("toolkit m0=%v m1=%v b=%v", gotM0, gotM1, gotB)

	if net.B(1, 0, 0) != net.B(1, 1, 0) {
		t.Errorf("Edge biases diverged: %v != %v", net.B(1, 0, 0), net.B(1, 1, 0))
	}

	m0, m1, b := stochastic2DLinReg(x0, x1, y, rate, epochs)
	t.Logf("hand-coded m0=%v m1=%v b=%v", m0, m1, b)

	if math32.Abs(gotM0-m0) > 0.001 {
		t.Errorf("Disagreement on m0 parameter; got %v, want %v", gotM0, m0)
	}
	if math32.Abs(gotM1-m1) > 0.001 {
		t.Errorf("Disagreement on m1 parameter; got %v, want %v", gotM1, m1)
	}
	if math32.Abs(gotB-b) > 0.001 {
		t.Errorf("Disagreement on b parameter; got %v, want %v", gotB, b)
	}
}

func generate2DLinRegDataset(n int) (x0, x1, y []float32) {
	r := rand.New(rand.NewSource(12345))

	x0 = make([]float32, n)
	x1 = make([]float32, n)
	y = make([]float32, n)
	for i := range n {
		x0[i] = r.Float32()
		x1[i] = r.Float32()
		y[i] = 10*x0[i] + 3*x1[i] + 30 + (r.Float32()-0.5)*10
	}
	return x0, x1, y
}

func stochastic2DLinReg(x0, x1, y []float32, rate float32, epochs int) (m0, m1, b float32) {
	for range epochs {
		for i := range y {
			pred := x0[i]*m0 + x1[i]*m1 + b
			d := -2*y[i] + 2*pred
			m0 -= rate * (d * x0[i])
			m1 -= rate * (d * x1[i])
			b -= 2 * rate * d
		}
	}
	return m0, m1, b
}
