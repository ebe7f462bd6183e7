package kernelfn

import (
	"math"
	"testing"
)

var features = []float64{
	1, 2, // row 0
	3, 4, // row 1
	0, 0, // row 2
}

func TestDot(t *testing.T) {
	kernel := Dot(features, 2)
	v, err := kernel(0, 1)
	if err != nil {
		t.Fatalf("Dot: %v", err)
	}
	want := 1*3 + 2*4.0
	if v != want {
		t.Errorf("Dot(0,1) = %v, want %v", v, want)
	}
}

func TestRBF(t *testing.T) {
	kernel := RBF(features, 2, 0.5)
	v, err := kernel(2, 2)
	if err != nil {
		t.Fatalf("RBF: %v", err)
	}
	if v != 1 {
		t.Errorf("RBF(2,2) = %v, want 1 (zero distance to itself)", v)
	}
}

func TestLinearIsSymmetric(t *testing.T) {
	kernel := Linear()
	a, err := kernel(1, 3)
	if err != nil {
		t.Fatalf("Linear: %v", err)
	}
	b, err := kernel(3, 1)
	if err != nil {
		t.Fatalf("Linear: %v", err)
	}
	if a != b {
		t.Errorf("Linear(1,3) = %v, Linear(3,1) = %v, want equal", a, b)
	}
}

func TestPoly(t *testing.T) {
	kernel := Poly(features, 2, 2, 1.0, 1.0)
	v, err := kernel(0, 1)
	if err != nil {
		t.Fatalf("Poly: %v", err)
	}
	dot := 1*3 + 2*4.0
	want := math.Pow(dot+1, 2)
	if v != want {
		t.Errorf("Poly(0,1) = %v, want %v", v, want)
	}
}

func TestPolyIsSymmetric(t *testing.T) {
	kernel := Poly(features, 2, 3, 0.5, 1.0)
	a, err := kernel(0, 1)
	if err != nil {
		t.Fatalf("Poly: %v", err)
	}
	b, err := kernel(1, 0)
	if err != nil {
		t.Fatalf("Poly: %v", err)
	}
	if a != b {
		t.Errorf("Poly(0,1) = %v, Poly(1,0) = %v, want equal", a, b)
	}
}
