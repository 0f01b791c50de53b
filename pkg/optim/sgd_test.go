package optim

import (
	"math"
	"testing"
)

func TestStep(t *testing.T) {
	w := []float64{1, 2}
	NewSGD(0.5).Step(w, []float64{2, -2})
	if w[0] != 0 || w[1] != 3 {
		t.Fatalf("w = %v, want [0 3]", w)
	}
}

func TestMomentumAccumulates(t *testing.T) {
	o := NewMomentumSGD(0.1, 0.9)
	w := []float64{0}
	o.Update(0, w, []float64{1})
	o.Update(0, w, []float64{1})
	// v1 = -0.1, v2 = 0.9*-0.1 - 0.1 = -0.19
	if math.Abs(w[0]+0.29) > 1e-12 {
		t.Fatalf("w = %v, want -0.29", w[0])
	}
	other := []float64{0}
	o.Update(1, other, []float64{1})
	if math.Abs(other[0]+0.1) > 1e-12 {
		t.Fatal("parameter groups must keep separate velocities")
	}
}
