package main

import (
	"testing"

	"github.com/chewxy/math32"
)

func TestLineStepConverges(t *testing.T) {
	x := []float32{1, 2, 3}
	y := []float32{3, 4, 5}

	var l line
	for range 20000 {
		l = l.step(x, y, 0.01)
	}
	if math32.Abs(l.m-1) > 0.01 || math32.Abs(l.b-2) > 0.02 {
		t.Errorf("got m=%v b=%v, want m=1 b=2", l.m, l.b)
	}
	if got := (line{m: 1, b: 2}).loss(x, y); got != 0 {
		t.Errorf("loss of exact fit = %v", got)
	}
}
