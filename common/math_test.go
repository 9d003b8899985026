package common

import (
	"math"
	"testing"
)

func matricesClose(t *testing.T, got, want []float32, tol float32) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("matrix length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if diff := float32(math.Abs(float64(got[i] - want[i]))); diff > tol {
			t.Fatalf("element %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestIdentity(t *testing.T) {
	m := []float32{
		2, 3, 4, 5,
		6, 7, 8, 9,
		1, 1, 1, 1,
		2, 2, 2, 2,
	}
	Identity(m)
	want := []float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	matricesClose(t, m, want, 0)
}

func TestMul4WithIdentity(t *testing.T) {
	id := make([]float32, 16)
	Identity(id)

	m := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	out := make([]float32, 16)

	Mul4(out, id, m)
	matricesClose(t, out, m, 0)

	Mul4(out, m, id)
	matricesClose(t, out, m, 0)
}

func TestMul4ComposesTranslations(t *testing.T) {
	a := make([]float32, 16)
	b := make([]float32, 16)
	Identity(a)
	Identity(b)
	a[12], a[13], a[14] = 1, 2, 3
	b[12], b[13], b[14] = 10, 20, 30

	out := make([]float32, 16)
	Mul4(out, a, b)

	if out[12] != 11 || out[13] != 22 || out[14] != 33 {
		t.Fatalf("translation composition wrong: got (%v, %v, %v)", out[12], out[13], out[14])
	}
}

func TestMul4AliasedOutput(t *testing.T) {
	a := make([]float32, 16)
	Identity(a)
	a[12] = 5

	// out aliases a; Mul4 must buffer internally.
	Mul4(a, a, a)
	if a[12] != 10 {
		t.Fatalf("aliased multiply wrong: got tx=%v, want 10", a[12])
	}
}

func TestBuildModelMatrixTranslationAndScale(t *testing.T) {
	out := make([]float32, 16)
	BuildModelMatrix(out, 1, 2, 3, 0, 0, 0, 2, 4, 8)

	want := []float32{
		2, 0, 0, 0,
		0, 4, 0, 0,
		0, 0, 8, 0,
		1, 2, 3, 1,
	}
	matricesClose(t, out, want, 1e-6)
}

func TestBuildModelMatrixRotationY(t *testing.T) {
	out := make([]float32, 16)
	BuildModelMatrix(out, 0, 0, 0, 0, float32(math.Pi/2), 0, 1, 1, 1)

	// +Z axis rotates onto +X under a 90 degree yaw.
	x := out[8]
	z := out[10]
	if math.Abs(float64(x-1)) > 1e-6 || math.Abs(float64(z)) > 1e-6 {
		t.Fatalf("yaw rotation wrong: z column maps to (%v, _, %v)", x, z)
	}
}

func TestInvert4RoundTrip(t *testing.T) {
	m := make([]float32, 16)
	BuildModelMatrix(m, 3, -2, 7, 0.4, 1.1, -0.6, 2, 2, 2)

	inv := make([]float32, 16)
	if !Invert4(inv, m) {
		t.Fatal("expected invertible matrix")
	}

	prod := make([]float32, 16)
	Mul4(prod, m, inv)

	id := make([]float32, 16)
	Identity(id)
	matricesClose(t, prod, id, 1e-4)
}

func TestInvert4Singular(t *testing.T) {
	m := make([]float32, 16) // all zeros, det = 0
	out := []float32{
		9, 9, 9, 9,
		9, 9, 9, 9,
		9, 9, 9, 9,
		9, 9, 9, 9,
	}
	if Invert4(out, m) {
		t.Fatal("expected singular matrix to fail")
	}
	if out[0] != 9 {
		t.Fatal("output must be untouched on failure")
	}
}

func TestInstanceTransform(t *testing.T) {
	m := make([]float32, 16)
	Identity(m)
	m[12], m[13], m[14] = 4, 5, 6

	rows := InstanceTransform(m)
	want := [12]float32{
		1, 0, 0, 4,
		0, 1, 0, 5,
		0, 0, 1, 6,
	}
	if rows != want {
		t.Fatalf("instance transform wrong: got %v", rows)
	}
}

func TestNormalMatrixIdentity(t *testing.T) {
	m := make([]float32, 16)
	Identity(m)

	n := NormalMatrix(m)
	want := [12]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}
	if n != want {
		t.Fatalf("normal matrix of identity wrong: got %v", n)
	}
}

func TestNormalMatrixUniformScale(t *testing.T) {
	m := make([]float32, 16)
	Identity(m)
	m[0], m[5], m[10] = 2, 2, 2

	n := NormalMatrix(m)
	for _, i := range []int{0, 5, 10} {
		if math.Abs(float64(n[i]-0.5)) > 1e-6 {
			t.Fatalf("diagonal %d: got %v, want 0.5", i, n[i])
		}
	}
}

func TestNormalMatrixSingularFallsBack(t *testing.T) {
	m := make([]float32, 16) // zero upper 3x3
	n := NormalMatrix(m)
	if n[0] != 1 || n[5] != 1 || n[10] != 1 {
		t.Fatalf("singular fallback should be identity: got %v", n)
	}
}

func TestSliceToBytes(t *testing.T) {
	data := []float32{1, 2, 3}
	b := SliceToBytes(data)
	if len(b) != 12 {
		t.Fatalf("expected 12 bytes, got %d", len(b))
	}
	if SliceToBytes([]float32(nil)) != nil {
		t.Fatal("empty slice must yield nil")
	}
}

func TestStructToBytes(t *testing.T) {
	type packed struct {
		A uint32
		B uint32
	}
	v := packed{A: 1, B: 2}
	b := StructToBytes(&v)
	if len(b) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(b))
	}
	if b[0] != 1 || b[4] != 2 {
		t.Fatalf("little-endian layout wrong: % x", b)
	}
}

func TestCoalesce(t *testing.T) {
	if got := Coalesce(0, 0, 7, 9); got != 7 {
		t.Fatalf("expected 7, got %d", got)
	}
	if got := Coalesce("", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Coalesce(0, 0); got != 0 {
		t.Fatalf("expected zero value, got %d", got)
	}
}
