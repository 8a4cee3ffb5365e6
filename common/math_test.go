package common

import (
	"math"
	"testing"
)

func TestMul4Identity(t *testing.T) {
	a := make([]float32, 16)
	id := make([]float32, 16)
	Identity(id)
	for i := range a {
		a[i] = float32(i + 1)
	}
	out := make([]float32, 16)
	Mul4(out, a, id)
	if !ApproxEqual(out, a, 0) {
		t.Fatalf("a*I = %v, want %v", out, a)
	}
	Mul4(out, id, a)
	if !ApproxEqual(out, a, 0) {
		t.Fatalf("I*a = %v, want %v", out, a)
	}
}

func TestInvert4RoundTrip(t *testing.T) {
	m := make([]float32, 16)
	LookAt(m, 3, 4, 5, 0, 0, 0, 0, 1, 0)
	inv := make([]float32, 16)
	if !Invert4(inv, m) {
		t.Fatal("Invert4 reported singular matrix")
	}
	out := make([]float32, 16)
	Mul4(out, m, inv)
	id := make([]float32, 16)
	Identity(id)
	if !ApproxEqual(out, id, 1e-5) {
		t.Fatalf("m*inv(m) = %v, want identity", out)
	}
}

func TestInvert4Singular(t *testing.T) {
	m := make([]float32, 16)
	out := make([]float32, 16)
	out[0] = 42
	if Invert4(out, m) {
		t.Fatal("zero matrix must not invert")
	}
	if out[0] != 42 {
		t.Fatal("output modified for singular matrix")
	}
}

func TestOrthoDepthRange(t *testing.T) {
	m := make([]float32, 16)
	Ortho(m, -10, 10, -10, 10, 1, 101)

	// a point on the near plane (view space z = -near) maps to depth 0, far plane to 1
	depth := func(z float32) float32 { return m[10]*z + m[14] }
	if d := depth(-1); math.Abs(float64(d)) > 1e-6 {
		t.Errorf("near depth = %v, want 0", d)
	}
	if d := depth(-101); math.Abs(float64(d-1)) > 1e-6 {
		t.Errorf("far depth = %v, want 1", d)
	}
}

func TestStripTranslation(t *testing.T) {
	view := make([]float32, 16)
	LookAt(view, 10, 2, -7, 10, 2, -8, 0, 1, 0)
	out := make([]float32, 16)
	StripTranslation(out, view)
	if out[12] != 0 || out[13] != 0 || out[14] != 0 {
		t.Fatalf("translation not cleared: %v", out[12:15])
	}
	for i := 0; i < 12; i++ {
		if out[i] != view[i] {
			t.Fatalf("rotation element %d changed: %v != %v", i, out[i], view[i])
		}
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce("", "", "b", "c"); got != "b" {
		t.Errorf("Coalesce = %q, want b", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Errorf("Coalesce = %d, want 0", got)
	}
}

func TestFrustumSphereTests(t *testing.T) {
	proj := make([]float32, 16)
	Perspective(proj, math.Pi/2, 1, 0.1, 100)
	f := ExtractFrustum(proj)

	cases := []struct {
		name   string
		center [3]float32
		radius float32
		want   bool
	}{
		{"ahead", [3]float32{0, 0, -10}, 1, true},
		{"behind", [3]float32{0, 0, 10}, 1, false},
		{"past far", [3]float32{0, 0, -200}, 1, false},
		{"right of view", [3]float32{20, 0, -10}, 1, false},
		{"straddles right plane", [3]float32{10.5, 0, -10}, 1, true},
		{"large sphere behind", [3]float32{0, 0, 5}, 6, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := f.IntersectsSphere(tc.center, tc.radius); got != tc.want {
				t.Fatalf("IntersectsSphere(%v, %v) = %v, want %v", tc.center, tc.radius, got, tc.want)
			}
		})
	}
}
