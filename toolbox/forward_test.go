package toolbox

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestForwardPropagationFinite(t *testing.T) {
	net := MakeNetwork(Geometry{2, 4, 2, 4})
	InitializeRandom(net, 12345)

	input := InputStub(net)
	gen := Uniform(0, 1, 54321)
	for i := range input {
		input[i] = gen()
	}

	fp := &ForwardPropagation{Activate: Step}
	fp.Run(net, input)

	for ilayer := 1; ilayer < net.LayerCount(); ilayer++ {
		for inode := 0; inode < net.LayerSize(ilayer); inode++ {
			if math32.IsNaN(net.A(ilayer, inode)) || math32.IsNaN(net.Z(ilayer, inode)) {
				t.Errorf("layer %d node %d not computed", ilayer, inode)
			}
		}
	}
}

func TestForwardPropagationDeterministic(t *testing.T) {
	net := MakeNetwork(Geometry{3, 5, 2})
	InitializeRandom(net, 3)
	fp := &ForwardPropagation{Activate: Sigmoid}
	input := Signal{0.1, 0.7, 0.3}

	fp.Run(net, input)
	first := net.Clone()
	fp.Run(net, input)

	for ilayer := 1; ilayer < net.LayerCount(); ilayer++ {
		if diff := cmp.Diff(net.Layers[ilayer].Z.V, first.Layers[ilayer].Z.V); diff != "" {
			t.Errorf("layer %d sums changed; diff (-got +want)\n%s", ilayer, diff)
		}
		if diff := cmp.Diff(net.Layers[ilayer].A.V, first.Layers[ilayer].A.V); diff != "" {
			t.Errorf("layer %d activations changed; diff (-got +want)\n%s", ilayer, diff)
		}
	}
}

func TestForwardPropagationHandComputed(t *testing.T) {
	net := MakeNetwork(Geometry{2, 2, 2})
	Initialize(net, Constant(0.5))

	fp := &ForwardPropagation{Activate: Step}
	fp.Run(net, Signal{1, 0})

	// Layer 1: (1*0.5 + 0.5) + (0*0.5 + 0.5) = 1.5 on both nodes.
	// Layer 2: 2 * (1.5*0.5 + 0.5) = 2.5 on both nodes.
	if diff := cmp.Diff(net.Activations(1), Signal{1.5, 1.5}); diff != "" {
		t.Errorf("Wrong hidden activations; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(net.Activations(2), Signal{2.5, 2.5}); diff != "" {
		t.Errorf("Wrong output activations; diff (-got +want)\n%s", diff)
	}
	if diff := cmp.Diff(net.Output(), Signal{2.5, 2.5}); diff != "" {
		t.Errorf("Wrong output; diff (-got +want)\n%s", diff)
	}
}

func TestForwardPropagationStepClampsNegativeSums(t *testing.T) {
	net := MakeNetwork(Geometry{1, 1})
	net.SetW(1, 0, 0, -2)
	net.SetB(1, 0, 0, 0.5)

	fp := &ForwardPropagation{Activate: Step}
	fp.Run(net, Signal{1})

	if got := net.Z(1, 0); got != -1.5 {
		t.Errorf("Z(1, 0) = %v, want -1.5", got)
	}
	if got := net.A(1, 0); got != 0 {
		t.Errorf("A(1, 0) = %v, want 0", got)
	}
	// The readout is the sum, not the clamped activation.
	if diff := cmp.Diff(net.Output(), Signal{-1.5}); diff != "" {
		t.Errorf("Wrong output; diff (-got +want)\n%s", diff)
	}
}

func TestForwardPropagationMatchesNaiveSum(t *testing.T) {
	net := MakeNetwork(Geometry{4, 3, 2})
	InitializeRandom(net, 99)
	fp := &ForwardPropagation{Activate: Sigmoid}
	input := Signal{0.25, 0.5, 0.75, 1}
	fp.Run(net, input)

	prev := []float32(input)
	for ilayer := 1; ilayer < net.LayerCount(); ilayer++ {
		wantZ := make([]float32, net.LayerSize(ilayer))
		wantA := make([]float32, net.LayerSize(ilayer))
		for ito := range wantZ {
			var sum float32
			for ifrom := range prev {
				sum += prev[ifrom]*net.W(ilayer, ifrom, ito) + net.B(ilayer, ifrom, ito)
			}
			wantZ[ito] = sum
			wantA[ito] = Sigmoid(sum)
		}

		if diff := cmp.Diff(net.Layers[ilayer].Z.V, wantZ, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("layer %d: wrong sums; diff (-got +want)\n%s", ilayer, diff)
		}
		if diff := cmp.Diff(net.Layers[ilayer].A.V, wantA, cmpopts.EquateApprox(0, 1e-6)); diff != "" {
			t.Errorf("layer %d: wrong activations; diff (-got +want)\n%s", ilayer, diff)
		}
		prev = wantA
	}
}

func TestForwardPropagationNaNInput(t *testing.T) {
	net := MakeNetwork(Geometry{2, 1})
	Initialize(net, Constant(1))
	fp := &ForwardPropagation{Activate: Linear}
	fp.Run(net, Signal{math32.NaN(), 1})

	if !math32.IsNaN(net.Z(1, 0)) {
		t.Errorf("NaN input didn't propagate, got %v", net.Z(1, 0))
	}
}
