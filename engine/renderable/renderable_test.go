package renderable

import (
	"testing"

	"github.com/Hurleyworks/Cook/engine/mesh"
)

func TestNewNodeDefaults(t *testing.T) {
	n := NewNode()

	if n.ID() != 0 {
		t.Fatalf("expected an unregistered node to carry ID 0; got %d", n.ID())
	}
	if n.Mesh() != nil {
		t.Fatalf("expected no mesh by default")
	}
	if n.SceneOwned() {
		t.Fatalf("expected a fresh node to be unowned")
	}
	if n.VisibilityMask() != 0xFF {
		t.Fatalf("expected the default visibility mask 0xFF; got %#x", n.VisibilityMask())
	}
	if n.LightImportance() != 0 || n.MaterialSlot() != 0 {
		t.Fatalf("expected zero light importance and the default material slot")
	}

	m := n.WorldTransform()
	for i, v := range m {
		want := float32(0)
		if i%5 == 0 {
			want = 1
		}
		if v != want {
			t.Fatalf("expected the identity transform; element %d is %v", i, v)
		}
	}
}

func TestNodeOptions(t *testing.T) {
	cube := mesh.Cube("cube", 1)
	n := NewNode(
		WithName("hero"),
		WithMesh(cube),
		WithPosition(1, 2, 3),
		WithVisibilityMask(0x0F),
		WithLightImportance(2.5),
		WithMaterialSlot(3),
	)

	if n.Name() != "hero" {
		t.Fatalf("expected the name to be set; got %q", n.Name())
	}
	if n.Mesh() != cube {
		t.Fatalf("expected the mesh to be set")
	}
	m := n.WorldTransform()
	if m[12] != 1 || m[13] != 2 || m[14] != 3 {
		t.Fatalf("expected the translation (1,2,3); got (%v,%v,%v)", m[12], m[13], m[14])
	}
	if m[0] != 1 || m[5] != 1 || m[10] != 1 || m[15] != 1 {
		t.Fatalf("expected an otherwise identity transform")
	}
	if n.VisibilityMask() != 0x0F {
		t.Fatalf("expected the mask 0x0F; got %#x", n.VisibilityMask())
	}
	if n.LightImportance() != 2.5 || n.MaterialSlot() != 3 {
		t.Fatalf("expected the shading parameters to be set")
	}
}

func TestNodeSetters(t *testing.T) {
	n := NewNode()

	plane := mesh.Plane("floor", 4, 4)
	n.SetMesh(plane)
	if n.Mesh() != plane {
		t.Fatalf("expected the mesh to update")
	}

	var m [16]float32
	m[0], m[5], m[10], m[15] = 2, 2, 2, 1
	n.SetWorldTransform(m)
	if got := n.WorldTransform(); got[0] != 2 {
		t.Fatalf("expected the transform to update; got %v", got[0])
	}

	n.SetSceneOwned(true)
	if !n.SceneOwned() {
		t.Fatalf("expected the ownership flag to set")
	}
	n.SetSceneOwned(false)
	if n.SceneOwned() {
		t.Fatalf("expected the ownership flag to clear")
	}

	n.SetVisibilityMask(1)
	n.SetLightImportance(4)
	n.SetMaterialSlot(7)
	n.SetID(99)
	if n.VisibilityMask() != 1 || n.LightImportance() != 4 || n.MaterialSlot() != 7 || n.ID() != 99 {
		t.Fatalf("expected all setters to land")
	}
}

func TestRegistryAssignsIDs(t *testing.T) {
	r := NewRegistry()

	a := NewNode(WithName("a"))
	b := NewNode(WithName("b"))
	refA := r.Add(a)
	refB := r.Add(b)

	if a.ID() == 0 || b.ID() == 0 {
		t.Fatalf("expected both nodes to receive IDs")
	}
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct IDs; both got %d", a.ID())
	}
	if refA.ID() != a.ID() || refB.ID() != b.ID() {
		t.Fatalf("expected references to carry the node IDs")
	}
	if r.Count() != 2 {
		t.Fatalf("expected 2 registrations; got %d", r.Count())
	}

	// A node that already carries an ID keeps it.
	c := NewNode()
	c.SetID(500)
	r.Add(c)
	if c.ID() != 500 {
		t.Fatalf("expected the preset ID to survive; got %d", c.ID())
	}
	if got, ok := r.Get(500); !ok || got != c {
		t.Fatalf("expected the node to be registered under its preset ID")
	}
}

func TestWeakRefResolve(t *testing.T) {
	r := NewRegistry()
	n := NewNode(WithName("target"))
	ref := r.Add(n)

	got, ok := ref.Resolve()
	if !ok || got != n {
		t.Fatalf("expected the reference to resolve to the node")
	}

	if !r.Remove(n.ID()) {
		t.Fatalf("expected the removal to succeed")
	}
	if got, ok := ref.Resolve(); ok || got != nil {
		t.Fatalf("expected the reference to expire after removal")
	}

	// The ID survives expiry so resources can still be torn down by ID.
	if ref.ID() != n.ID() {
		t.Fatalf("expected the expired reference to keep its ID")
	}
}

func TestReAddExpiresOldRefs(t *testing.T) {
	r := NewRegistry()
	n := NewNode()

	first := r.Add(n)
	r.Remove(n.ID())
	second := r.Add(n)

	if _, ok := first.Resolve(); ok {
		t.Fatalf("expected the first reference to stay expired after a re-add")
	}
	if got, ok := second.Resolve(); !ok || got != n {
		t.Fatalf("expected the second reference to resolve")
	}

	// Re-registering a live ID expires the outstanding references too.
	third := r.Add(n)
	if _, ok := second.Resolve(); ok {
		t.Fatalf("expected re-registration to expire the previous reference")
	}
	if _, ok := third.Resolve(); !ok {
		t.Fatalf("expected the latest reference to resolve")
	}
	if r.Count() != 1 {
		t.Fatalf("expected a single registration; got %d", r.Count())
	}
}

func TestRefByID(t *testing.T) {
	r := NewRegistry()
	n := NewNode()
	r.Add(n)

	ref, ok := r.Ref(n.ID())
	if !ok {
		t.Fatalf("expected a reference for a live ID")
	}
	if got, ok := ref.Resolve(); !ok || got != n {
		t.Fatalf("expected the issued reference to resolve")
	}

	if _, ok := r.Ref(9999); ok {
		t.Fatalf("expected no reference for an unknown ID")
	}
}

func TestZeroWeakRef(t *testing.T) {
	var ref WeakRef
	if ref.ID() != 0 {
		t.Fatalf("expected the zero reference to carry ID 0")
	}
	if got, ok := ref.Resolve(); ok || got != nil {
		t.Fatalf("expected the zero reference to never resolve")
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	n := NewNode()
	r.Add(n)

	if !r.Remove(n.ID()) {
		t.Fatalf("expected the first removal to report true")
	}
	if r.Remove(n.ID()) {
		t.Fatalf("expected the second removal to report false")
	}
	if r.Count() != 0 {
		t.Fatalf("expected an empty registry; got %d", r.Count())
	}
	if _, ok := r.Get(n.ID()); ok {
		t.Fatalf("expected the lookup to miss after removal")
	}
}

func TestClearExpiresAll(t *testing.T) {
	r := NewRegistry()
	refs := make([]WeakRef, 0, 3)
	for i := 0; i < 3; i++ {
		refs = append(refs, r.Add(NewNode()))
	}

	r.Clear()
	if r.Count() != 0 {
		t.Fatalf("expected an empty registry after Clear; got %d", r.Count())
	}
	for i, ref := range refs {
		if _, ok := ref.Resolve(); ok {
			t.Fatalf("expected reference %d to expire on Clear", i)
		}
	}
}

func TestAddNilNodePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Add(nil) to panic")
		}
	}()
	NewRegistry().Add(nil)
}
