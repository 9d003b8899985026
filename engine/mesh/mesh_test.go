package mesh

import (
	"testing"

	"github.com/Hurleyworks/Cook/common"
)

func triangleMesh(name string) Mesh {
	return NewMesh(
		WithName(name),
		WithPositions([]common.Vec3{
			common.XYZ(0, 0, 0),
			common.XYZ(1, 0, 0),
			common.XYZ(0, 1, 0),
		}),
		WithSurface("tri", []uint32{0, 1, 2}),
	)
}

func TestMeshCounts(t *testing.T) {
	m := triangleMesh("tri")
	if m.Name() != "tri" {
		t.Fatalf("name: got %q", m.Name())
	}
	if m.VertexCount() != 3 {
		t.Fatalf("vertex count: got %d, want 3", m.VertexCount())
	}
	if m.TriangleCount() != 1 {
		t.Fatalf("triangle count: got %d, want 1", m.TriangleCount())
	}
	if len(m.Surfaces()) != 1 {
		t.Fatalf("surface count: got %d, want 1", len(m.Surfaces()))
	}
}

func TestMeshBounds(t *testing.T) {
	m := triangleMesh("tri")
	b := m.Bounds()
	if b.Min != common.XYZ(0, 0, 0) || b.Max != common.XYZ(1, 1, 0) {
		t.Fatalf("bounds wrong: [%v, %v]", b.Min, b.Max)
	}
}

func TestContentHashEqualForEqualContent(t *testing.T) {
	a := triangleMesh("first")
	b := triangleMesh("second")
	// The name must not participate in the digest.
	if a.ContentHash() != b.ContentHash() {
		t.Fatalf("equal content must hash equal: %x vs %x", a.ContentHash(), b.ContentHash())
	}
}

func TestContentHashDetectsVertexChange(t *testing.T) {
	a := triangleMesh("a")
	b := NewMesh(
		WithPositions([]common.Vec3{
			common.XYZ(0, 0, 0),
			common.XYZ(1, 0, 0),
			common.XYZ(0, 1, 0.0001),
		}),
		WithSurface("tri", []uint32{0, 1, 2}),
	)
	if a.ContentHash() == b.ContentHash() {
		t.Fatal("a single-component position change must change the digest")
	}
}

func TestContentHashDetectsIndexChange(t *testing.T) {
	a := triangleMesh("a")
	b := NewMesh(
		WithPositions([]common.Vec3{
			common.XYZ(0, 0, 0),
			common.XYZ(1, 0, 0),
			common.XYZ(0, 1, 0),
		}),
		WithSurface("tri", []uint32{0, 2, 1}),
	)
	if a.ContentHash() == b.ContentHash() {
		t.Fatal("winding change must change the digest")
	}
}

func TestContentHashDetectsSurfaceSplit(t *testing.T) {
	positions := []common.Vec3{
		common.XYZ(0, 0, 0),
		common.XYZ(1, 0, 0),
		common.XYZ(0, 1, 0),
		common.XYZ(1, 1, 0),
	}
	single := NewMesh(
		WithPositions(positions),
		WithSurface("all", []uint32{0, 1, 2, 1, 3, 2}),
	)
	split := NewMesh(
		WithPositions(positions),
		WithSurface("front", []uint32{0, 1, 2}),
		WithSurface("back", []uint32{1, 3, 2}),
	)
	if single.ContentHash() == split.ContentHash() {
		t.Fatal("surface partitioning must change the digest")
	}
}

func TestVertexBytesLayout(t *testing.T) {
	m := NewMesh(
		WithPositions([]common.Vec3{common.XYZ(1, 2, 3)}),
		WithNormals([]common.Vec3{common.XYZ(0, 1, 0)}),
	)
	data := m.VertexBytes()
	if len(data) != 32 {
		t.Fatalf("expected 32 bytes per vertex, got %d", len(data))
	}

	var v GPUVertex
	if v.Size() != 32 {
		t.Fatalf("GPUVertex size: got %d, want 32", v.Size())
	}
	v.Position = [3]float32{1, 2, 3}
	v.Normal = [3]float32{0, 1, 0}
	want := v.Marshal()
	for i := range want {
		if data[i] != want[i] {
			t.Fatalf("byte %d differs: got %x, want %x", i, data[i], want[i])
		}
	}
}

func TestVertexBytesZeroFillsMissingNormals(t *testing.T) {
	m := NewMesh(
		WithPositions([]common.Vec3{common.XYZ(1, 0, 0), common.XYZ(0, 1, 0)}),
	)
	data := m.VertexBytes()
	if len(data) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(data))
	}
	for i := 16; i < 28; i++ {
		if data[i] != 0 {
			t.Fatalf("normal bytes must be zero, byte %d is %x", i, data[i])
		}
	}
}

func TestComputedNormals(t *testing.T) {
	m := NewMesh(
		WithPositions([]common.Vec3{
			common.XYZ(0, 0, 0),
			common.XYZ(1, 0, 0),
			common.XYZ(0, 0, -1),
		}),
		WithSurface("tri", []uint32{0, 1, 2}),
		WithComputedNormals(),
	)
	normals := m.Normals()
	if len(normals) != 3 {
		t.Fatalf("expected 3 normals, got %d", len(normals))
	}
	for i, n := range normals {
		if n != common.XYZ(0, 1, 0) {
			t.Fatalf("normal %d: got %v, want (0, 1, 0)", i, n)
		}
	}
}

func TestComputedNormalsKeepExplicitOnes(t *testing.T) {
	explicit := []common.Vec3{common.XYZ(1, 0, 0)}
	m := NewMesh(
		WithPositions([]common.Vec3{common.XYZ(0, 0, 0)}),
		WithNormals(explicit),
		WithComputedNormals(),
	)
	if m.Normals()[0] != common.XYZ(1, 0, 0) {
		t.Fatal("explicit normals must win over computed ones")
	}
}

func TestSurfaceHelpers(t *testing.T) {
	s := Surface{Name: "s", Indices: []uint32{0, 1, 2, 3, 4}}
	if s.TriangleCount() != 1 {
		t.Fatalf("partial triangles must not count: got %d", s.TriangleCount())
	}
	if s.Empty() {
		t.Fatal("surface with one whole triangle is not empty")
	}

	empty := Surface{Name: "e", Indices: []uint32{0, 1}}
	if !empty.Empty() {
		t.Fatal("two indices cannot form a triangle")
	}
}

func TestCube(t *testing.T) {
	c := Cube("box", 2)
	if c.VertexCount() != 24 {
		t.Fatalf("cube vertex count: got %d, want 24", c.VertexCount())
	}
	if c.TriangleCount() != 12 {
		t.Fatalf("cube triangle count: got %d, want 12", c.TriangleCount())
	}
	b := c.Bounds()
	if b.Min != common.XYZ(-1, -1, -1) || b.Max != common.XYZ(1, 1, 1) {
		t.Fatalf("cube bounds wrong: [%v, %v]", b.Min, b.Max)
	}
}

func TestPlane(t *testing.T) {
	p := Plane("ground", 10, 4)
	if p.TriangleCount() != 2 {
		t.Fatalf("plane triangle count: got %d, want 2", p.TriangleCount())
	}
	b := p.Bounds()
	if b.Min != common.XYZ(-5, 0, -2) || b.Max != common.XYZ(5, 0, 2) {
		t.Fatalf("plane bounds wrong: [%v, %v]", b.Min, b.Max)
	}
	for _, n := range p.Normals() {
		if n != common.XYZ(0, 1, 0) {
			t.Fatalf("plane normal wrong: %v", n)
		}
	}
}

func TestCubesShareContentHash(t *testing.T) {
	if Cube("a", 1).ContentHash() != Cube("b", 1).ContentHash() {
		t.Fatal("identical cubes must share a content hash")
	}
	if Cube("a", 1).ContentHash() == Cube("a", 2).ContentHash() {
		t.Fatal("different edge lengths must not share a content hash")
	}
}
