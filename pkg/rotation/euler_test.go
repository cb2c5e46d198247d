package rotation

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestEulerIdentity(t *testing.T) {
	e := Flatten(Euler(0, 0, 0))
	want := [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}
	for i := range e {
		if math.Abs(e[i]-want[i]) > 1e-12 {
			t.Fatalf("Euler(0,0,0) = %v, want identity", e)
		}
	}
}

func TestEulerIsRotation(t *testing.T) {
	angles := [][3]float64{{10, 20, 30}, {-45, 90, 180}, {359, 1, 77}}
	for _, a := range angles {
		m := Euler(a[0], a[1], a[2])
		if !IsRotation(m, 1e-9) {
			t.Errorf("Euler(%v) is not a rotation", a)
		}
	}
	if IsRotation(mat.NewDense(3, 3, []float64{2, 0, 0, 0, 1, 0, 0, 0, 1}), 1e-9) {
		t.Error("scaled matrix reported as rotation")
	}
}

func TestInPlane(t *testing.T) {
	e := Flatten(InPlane(90))
	// psi rotates the xy plane: first row (cos, sin), second row (-sin, cos)
	if math.Abs(e[0]) > 1e-12 || math.Abs(e[1]-1) > 1e-12 || math.Abs(e[3]+1) > 1e-12 || math.Abs(e[4]) > 1e-12 {
		t.Errorf("InPlane(90) = %v", e)
	}
	if math.Abs(e[8]-1) > 1e-12 {
		t.Errorf("InPlane must leave z fixed, got %f", e[8])
	}
}

func TestDistance(t *testing.T) {
	a := InPlane(10)
	b := InPlane(35)
	if d := Distance(a, b); math.Abs(d-25) > 1e-9 {
		t.Errorf("Distance = %f, want 25", d)
	}
	if d := Distance(a, a); d > 1e-6 {
		t.Errorf("self distance = %f", d)
	}
}
