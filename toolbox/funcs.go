package toolbox

import (
	"fmt"

	"github.com/chewxy/math32"
)

// ActivationFunc is an activation function or its derivative with respect to
// the weighted sum.
type ActivationFunc func(z float32) float32

// CostDerivativeFunc is the derivative of the cost with respect to the
// weighted sum z of an output node whose desired value is target.
type CostDerivativeFunc func(target, z float32) float32

// Activation pairs an activation function with its derivative.
type Activation struct {
	Name       string
	Fn         ActivationFunc
	Derivative ActivationFunc
}

type ActivationType int

const (
	StepActivation ActivationType = iota
	LinearActivation
	SigmoidActivation
)

func (t ActivationType) Activation() Activation {
	switch t {
	case StepActivation:
		return Activation{Name: "step", Fn: Step, Derivative: StepDerivative}
	case LinearActivation:
		return Activation{Name: "linear", Fn: Linear, Derivative: LinearDerivative}
	case SigmoidActivation:
		return Activation{Name: "sigmoid", Fn: Sigmoid, Derivative: SigmoidDerivative}
	default:
		panic("unhandled activation function")
	}
}

func (t ActivationType) String() string {
	return t.Activation().Name
}

func ParseActivationType(name string) (ActivationType, error) {
	switch name {
	case "step", "relu":
		return StepActivation, nil
	case "linear":
		return LinearActivation, nil
	case "sigmoid":
		return SigmoidActivation, nil
	default:
		return 0, fmt.Errorf("unknown activation function %q", name)
	}
}

// Step passes positive sums through and clamps negative ones to zero.
func Step(z float32) float32 {
	if z < 0 {
		return 0
	}
	return z
}

func StepDerivative(z float32) float32 {
	if z < 0 {
		return 0
	}
	return 1
}

func Linear(z float32) float32 {
	return z
}

func LinearDerivative(z float32) float32 {
	return 1
}

func Sigmoid(z float32) float32 {
	return 1 / (1 + math32.Exp(-z))
}

func SigmoidDerivative(z float32) float32 {
	s := Sigmoid(z)
	return s * (1 - s)
}

// MeanSquaredErrorDerivative is the derivative of (z - target)^2.
func MeanSquaredErrorDerivative(target, z float32) float32 {
	return -2*target + 2*z
}

// MeanSquaredError is the mean over the elements of the squared difference
// between out and target.
func MeanSquaredError(target, out Signal) float32 {
	if len(target) != len(out) {
		panic("target and output must have same length")
	}
	if len(target) == 0 {
		return 0
	}
	var loss float32
	for i := range target {
		diff := out[i] - target[i]
		loss += diff * diff
	}
	return loss / float32(len(target))
}
