package camera

import (
	"math"
	"testing"
)

func approx(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestDefaultRig(t *testing.T) {
	c := NewCamera()

	x, y, z := c.Position()
	if !approx(x, 0) || !approx(y, 0) || !approx(z, 5) {
		t.Errorf("default position = (%v, %v, %v), want (0, 0, 5)", x, y, z)
	}
	if c.Revision() != 0 {
		t.Errorf("fresh camera revision = %d, want 0", c.Revision())
	}
}

func TestOrbitKeepsRadius(t *testing.T) {
	c := NewCamera(WithTarget(1, 2, 3), WithRadius(4))

	c.Orbit(0.7, 0.3)
	c.Orbit(-1.2, 0.1)

	x, y, z := c.Position()
	dx, dy, dz := x-1, y-2, z-3
	dist := float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
	if !approx(dist, 4) {
		t.Errorf("distance from target = %v, want 4", dist)
	}
}

func TestOrbitClampsPitch(t *testing.T) {
	c := NewCamera(WithRadius(2))

	// Try to push past the pole; the camera must stay below it.
	c.Orbit(0, 10)
	_, y, _ := c.Position()
	if y >= 2 {
		t.Errorf("camera reached the pole: y = %v", y)
	}
}

func TestDollyClampsRadius(t *testing.T) {
	c := NewCamera(WithRadius(1))

	c.Dolly(0.5)
	if !approx(c.Radius(), 0.5) {
		t.Errorf("radius after dolly = %v, want 0.5", c.Radius())
	}

	// Zooming hard into the target stops at the minimum radius.
	for i := 0; i < 64; i++ {
		c.Dolly(0.1)
	}
	if c.Radius() < minRadius {
		t.Errorf("radius fell below minimum: %v", c.Radius())
	}

	// Non-positive factors are ignored.
	r := c.Radius()
	c.Dolly(0)
	if c.Radius() != r {
		t.Error("zero dolly factor must be a no-op")
	}
}

func TestPanMovesTargetInScreenPlane(t *testing.T) {
	c := NewCamera(WithRadius(2))

	// Default rig looks down -Z, so screen right is +X and screen up is +Y.
	c.Pan(1, 0)
	x, y, z := c.Target()
	if !approx(x, 2) || !approx(y, 0) || !approx(z, 0) {
		t.Errorf("target after right pan = (%v, %v, %v), want (2, 0, 0)", x, y, z)
	}

	c.Pan(0, 1)
	_, y, _ = c.Target()
	if !approx(y, 2) {
		t.Errorf("target y after up pan = %v, want 2", y)
	}
}

func TestRevisionTracksMutations(t *testing.T) {
	c := NewCamera()

	rev := c.Revision()
	c.Orbit(0.1, 0)
	if c.Revision() == rev {
		t.Error("orbit must bump the revision")
	}

	rev = c.Revision()
	c.SetFov(1.0)
	if c.Revision() == rev {
		t.Error("fov change must bump the revision")
	}

	rev = c.Revision()
	c.State()
	if c.Revision() != rev {
		t.Error("reading state must not bump the revision")
	}
}

func TestStateMatricesAgree(t *testing.T) {
	c := NewCamera(WithTarget(0, 0, 0), WithRadius(3), WithAspect(1.5))

	s := c.State()
	if s.Revision != c.Revision() {
		t.Fatalf("state revision = %d, want %d", s.Revision, c.Revision())
	}
	if !approx(s.Position[2], 3) {
		t.Errorf("state position = %v", s.Position)
	}

	// The view matrix maps the camera position to the view-space origin.
	p := s.Position
	vx := s.View[0]*p[0] + s.View[4]*p[1] + s.View[8]*p[2] + s.View[12]
	vy := s.View[1]*p[0] + s.View[5]*p[1] + s.View[9]*p[2] + s.View[13]
	vz := s.View[2]*p[0] + s.View[6]*p[1] + s.View[10]*p[2] + s.View[14]
	if !approx(vx, 0) || !approx(vy, 0) || !approx(vz, 0) {
		t.Errorf("view * position = (%v, %v, %v), want origin", vx, vy, vz)
	}

	// InverseViewProjection really is the inverse: their product applied to
	// a probe point gives the point back.
	probe := [4]float32{0.25, -0.5, 0.5, 1}
	fwd := mulVec4(s.ViewProjection, probe)
	back := mulVec4(s.InverseViewProjection, fwd)
	if back[3] == 0 {
		t.Fatal("round trip lost the w component")
	}
	for i := 0; i < 3; i++ {
		if !approx(back[i]/back[3], probe[i]/probe[3]) {
			t.Errorf("round trip component %d = %v, want %v", i, back[i]/back[3], probe[i])
		}
	}
}

func mulVec4(m [16]float32, v [4]float32) [4]float32 {
	var out [4]float32
	for r := 0; r < 4; r++ {
		out[r] = m[r]*v[0] + m[4+r]*v[1] + m[8+r]*v[2] + m[12+r]*v[3]
	}
	return out
}
