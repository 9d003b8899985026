package scene

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/engine/mesh"
	"github.com/Hurleyworks/Cook/engine/renderable"
)

func newTestDevice(options ...gpu.DeviceBuilderOption) gpu.Device {
	return gpu.NewDevice(gpu.BackendTypeNull, append([]gpu.DeviceBuilderOption{gpu.WithLabel("Test Device")}, options...)...)
}

// addTestNode registers a cube node with the registry and returns its
// reference. Cubes with equal edge lengths share geometry records; distinct
// edges force distinct records.
func addTestNode(reg renderable.Registry, name string, edge, x float32, options ...renderable.NodeBuilderOption) renderable.WeakRef {
	opts := append([]renderable.NodeBuilderOption{
		renderable.WithName(name),
		renderable.WithMesh(mesh.Cube(name, edge)),
		renderable.WithPosition(x, 0, 0),
	}, options...)
	return reg.Add(renderable.NewNode(opts...))
}

func readUint32At(t *testing.T, buf gpu.Buffer, offset uint64) uint32 {
	t.Helper()
	var b [4]byte
	if err := buf.Read(offset, b[:]); err != nil {
		t.Fatalf("read at offset %d: %v", offset, err)
	}
	return binary.LittleEndian.Uint32(b[:])
}

func readFloat32At(t *testing.T, buf gpu.Buffer, offset uint64) float32 {
	t.Helper()
	return math.Float32frombits(readUint32At(t, buf, offset))
}

func identityWorld() [16]float32 {
	var m [16]float32
	common.Identity(m[:])
	return m
}

func TestNewHandlerNilDeviceMustPanic(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic for a nil device")
		}
	}()
	NewHandler(nil)
}

func TestUninitializedOperationsFail(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	h := NewHandler(d)

	if h.AddRenderableNode(renderable.WeakRef{}) {
		t.Fatal("add must fail before initialization")
	}
	if h.RemoveRenderableNodeByID(1) {
		t.Fatal("remove must fail before initialization")
	}
	if h.UpdateNodeTransform(1, identityWorld()) {
		t.Fatal("transform update must fail before initialization")
	}
	if _, ok := h.RegisterMaterial(common.MaterialProperties{Name: "m"}); ok {
		t.Fatal("material registration must fail before initialization")
	}
	if h.BuildAccelerationStructures() {
		t.Fatal("build must fail before initialization")
	}
	if h.TraversableHandle() != gpu.NullTraversable {
		t.Fatal("uninitialized handler must report the null handle")
	}
	if h.SBTRecordCount() != 0 {
		t.Fatal("uninitialized handler must report zero records")
	}
	h.AdvanceFrame()
	h.Finalize()
}

func TestInitializeIdempotent(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	h := NewHandler(d)

	if !h.Initialize() {
		t.Fatal("initialize failed")
	}
	created := d.Stats().BuffersCreated
	if !h.Initialize() {
		t.Fatal("second initialize must succeed")
	}
	if got := d.Stats().BuffersCreated; got != created {
		t.Fatalf("second initialize must not allocate: %d buffers grew to %d", created, got)
	}
}

func TestFinalizeReleasesEverything(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	ref := addTestNode(reg, "crate", 1, 0)
	if !h.AddRenderableNode(ref) {
		t.Fatal("add failed")
	}
	if !h.BuildAccelerationStructures() {
		t.Fatal("build failed")
	}

	h.Finalize()
	stats := d.Stats()
	if stats.BuffersLive != 0 || stats.AccelsLive != 0 {
		t.Fatalf("finalize must drain the device: %d buffers, %d accels live", stats.BuffersLive, stats.AccelsLive)
	}
	node, _ := ref.Resolve()
	if node.SceneOwned() {
		t.Fatal("finalize must clear scene ownership")
	}

	// Finalizing twice is harmless, and the handler can come back up.
	h.Finalize()
	if !h.Initialize() {
		t.Fatal("re-initialize failed")
	}
	if !h.AddRenderableNode(ref) {
		t.Fatal("add after re-initialize failed")
	}
	if !h.BuildAccelerationStructures() || h.TraversableHandle() == gpu.NullTraversable {
		t.Fatal("build after re-initialize failed")
	}
}

func TestEmptySceneBuilds(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	h := NewHandler(d)
	h.Initialize()

	if !h.BuildAccelerationStructures() {
		t.Fatal("an empty scene must build successfully")
	}
	if h.TraversableHandle() != gpu.NullTraversable {
		t.Fatal("an empty scene must carry the null handle")
	}
	if h.HasGeometry() || h.NodeCount() != 0 {
		t.Fatal("an empty scene must report no geometry")
	}
	if got := d.Stats().AccelBuilds; got != 0 {
		t.Fatalf("an empty build must not touch the device: %d builds", got)
	}
}

func TestAddNodeIdempotent(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	ref := addTestNode(reg, "crate", 1, 0)
	if !h.AddRenderableNode(ref) {
		t.Fatal("add failed")
	}
	if !h.AddRenderableNode(ref) {
		t.Fatal("re-adding a registered node must succeed")
	}
	if h.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", h.NodeCount())
	}
	node, _ := ref.Resolve()
	if !node.SceneOwned() {
		t.Fatal("added node must be marked scene owned")
	}
}

func TestAddExpiredReferenceFails(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	ref := addTestNode(reg, "crate", 1, 0)
	reg.Remove(ref.ID())
	if h.AddRenderableNode(ref) {
		t.Fatal("adding through an expired reference must fail")
	}
	if h.NodeCount() != 0 {
		t.Fatal("failed add must leave the scene empty")
	}
}

func TestAddNodeWithoutMeshFails(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d, WithMaxInstances(1))
	h.Initialize()

	bare := reg.Add(renderable.NewNode(renderable.WithName("empty")))
	if h.AddRenderableNode(bare) {
		t.Fatal("a node without a mesh must be rejected")
	}

	// The rejection must not consume the only instance slot.
	if !h.AddRenderableNode(addTestNode(reg, "crate", 1, 0)) {
		t.Fatal("add after rejected node failed")
	}
}

func TestRemoveSymmetric(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	ref := addTestNode(reg, "crate", 1, 0)
	h.AddRenderableNode(ref)

	if !h.RemoveRenderableNode(ref) {
		t.Fatal("remove failed")
	}
	if h.RemoveRenderableNode(ref) {
		t.Fatal("removing an absent node must fail")
	}
	if h.NodeCount() != 0 {
		t.Fatal("scene must be empty after removal")
	}
	node, _ := ref.Resolve()
	if node.SceneOwned() {
		t.Fatal("removed node must not stay scene owned")
	}
}

func TestRemoveByIDAfterNodeDestroyed(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()
	baseline := d.Stats().BuffersLive

	ref := addTestNode(reg, "crate", 1, 0)
	h.AddRenderableNode(ref)
	id := ref.ID()

	// Destroying the node expires the reference but not the scene entry.
	reg.Remove(id)
	if h.RemoveRenderableNode(ref) {
		t.Fatal("reference removal must fail once the node is destroyed")
	}
	if !h.RemoveRenderableNodeByID(id) {
		t.Fatal("removal by ID must still tear down the scene entry")
	}
	if got := d.Stats().BuffersLive; got != baseline {
		t.Fatalf("orphaned resources leaked: %d buffers live, want %d", got, baseline)
	}
}

func TestGeometrySharing(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	// Same edge length, same content digest: one record for both nodes.
	refA := addTestNode(reg, "crate a", 1, -2)
	refB := addTestNode(reg, "crate b", 1, 2)

	h.AddRenderableNode(refA)
	if got := d.Stats().AccelBuilds; got != 1 {
		t.Fatalf("first add must build one bottom-level structure, got %d builds", got)
	}
	h.AddRenderableNode(refB)
	if got := d.Stats().AccelBuilds; got != 1 {
		t.Fatalf("second add must reuse the record, got %d builds", got)
	}

	if !h.BuildAccelerationStructures() {
		t.Fatal("build failed")
	}
	if got := d.Stats().AccelsLive; got != 2 {
		t.Fatalf("expected one bottom-level and one top-level structure, got %d", got)
	}

	// The first removal must keep the shared record alive.
	h.RemoveRenderableNode(refA)
	if got := d.Stats().AccelsLive; got != 2 {
		t.Fatalf("shared geometry must survive the first removal, got %d accels", got)
	}
	h.RemoveRenderableNode(refB)
	if got := d.Stats().AccelsLive; got != 1 {
		t.Fatalf("last removal must destroy the record, got %d accels", got)
	}

	// The empty rebuild drops the top-level structure too.
	if !h.BuildAccelerationStructures() {
		t.Fatal("empty rebuild failed")
	}
	if h.TraversableHandle() != gpu.NullTraversable {
		t.Fatal("empty rebuild must reset the handle")
	}
	if got := d.Stats().AccelsLive; got != 0 {
		t.Fatalf("expected no live structures, got %d", got)
	}
}

func TestInstanceSlotExhaustion(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d, WithMaxInstances(2))
	h.Initialize()

	refA := addTestNode(reg, "a", 1, -2)
	refB := addTestNode(reg, "b", 1, 0)
	refC := addTestNode(reg, "c", 1, 2)

	if !h.AddRenderableNode(refA) || !h.AddRenderableNode(refB) {
		t.Fatal("adds within capacity failed")
	}
	if h.AddRenderableNode(refC) {
		t.Fatal("add beyond capacity must fail")
	}
	if h.NodeCount() != 2 {
		t.Fatalf("expected 2 nodes, got %d", h.NodeCount())
	}

	// Freed slots are recycled.
	h.RemoveRenderableNode(refB)
	if !h.AddRenderableNode(refC) {
		t.Fatal("add after removal failed")
	}
}

func TestRollbackOnGeometryInstanceExhaustion(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d, WithMaxGeometryInstances(1))
	h.Initialize()

	refA := addTestNode(reg, "a", 1, -2)
	if !h.AddRenderableNode(refA) {
		t.Fatal("first add failed")
	}
	live := d.Stats()

	// Distinct edge length, so the failed add creates and must destroy its
	// own geometry record.
	refB := addTestNode(reg, "b", 2, 2)
	if h.AddRenderableNode(refB) {
		t.Fatal("add must fail when geometry instance slots are exhausted")
	}
	after := d.Stats()
	if after.BuffersLive != live.BuffersLive || after.AccelsLive != live.AccelsLive {
		t.Fatalf("failed add leaked resources: %d/%d buffers, %d/%d accels",
			after.BuffersLive, live.BuffersLive, after.AccelsLive, live.AccelsLive)
	}
	if h.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", h.NodeCount())
	}

	// The rolled-back slots must be reusable.
	h.RemoveRenderableNode(refA)
	if !h.AddRenderableNode(refB) {
		t.Fatal("add after rollback failed")
	}
}

func TestChurnAtCapacity(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d, WithMaxInstances(2))
	h.Initialize()

	refA := addTestNode(reg, "a", 1, -2)
	refB := addTestNode(reg, "b", 2, 0)
	refC := addTestNode(reg, "c", 3, 2)

	h.AddRenderableNode(refA)
	if !h.BuildAccelerationStructures() {
		t.Fatal("build 1 failed")
	}
	h1 := h.TraversableHandle()

	h.AddRenderableNode(refB)
	if !h.BuildAccelerationStructures() {
		t.Fatal("build 2 failed")
	}
	h2 := h.TraversableHandle()

	h.RemoveRenderableNode(refA)
	h.AddRenderableNode(refC)
	if !h.BuildAccelerationStructures() {
		t.Fatal("build 3 failed")
	}
	h3 := h.TraversableHandle()

	for i, handle := range []gpu.TraversableHandle{h1, h2, h3} {
		if handle == gpu.NullTraversable {
			t.Fatalf("build %d produced the null handle", i+1)
		}
	}
	if h1 == h2 || h2 == h3 {
		t.Fatal("each rebuild must produce a fresh handle")
	}

	h.RemoveRenderableNode(refB)
	h.RemoveRenderableNode(refC)
	if !h.BuildAccelerationStructures() {
		t.Fatal("empty build failed")
	}
	if h.TraversableHandle() != gpu.NullTraversable || h.HasGeometry() {
		t.Fatal("empty scene must reset to the null handle")
	}

	if !h.AddRenderableNode(refA) {
		t.Fatal("re-add failed")
	}
	if !h.BuildAccelerationStructures() || h.TraversableHandle() == gpu.NullTraversable {
		t.Fatal("rebuild after re-add failed")
	}
}

func TestBuildFailureKeepsPreviousHandle(t *testing.T) {
	injected := errors.New("injected build failure")
	failTopLevel := false
	d := newTestDevice(gpu.WithBuildFault(func(label string) error {
		if failTopLevel && label == "tlas" {
			return injected
		}
		return nil
	}))
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	h.AddRenderableNode(addTestNode(reg, "a", 1, -2))
	if !h.BuildAccelerationStructures() {
		t.Fatal("initial build failed")
	}
	prev := h.TraversableHandle()

	h.AddRenderableNode(addTestNode(reg, "b", 2, 2))
	failTopLevel = true
	if h.BuildAccelerationStructures() {
		t.Fatal("faulted build must report failure")
	}
	if h.TraversableHandle() != prev {
		t.Fatal("failed build must keep the previous handle")
	}

	failTopLevel = false
	if !h.BuildAccelerationStructures() {
		t.Fatal("retry failed")
	}
	if h.TraversableHandle() == prev || h.TraversableHandle() == gpu.NullTraversable {
		t.Fatal("retry must produce a fresh handle")
	}
	if got := h.SBTRecordCount(); got != 2 {
		t.Fatalf("expected 2 shading records, got %d", got)
	}
}

func TestUpdateNodeTransform(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	ref := addTestNode(reg, "crate", 1, 0)
	h.AddRenderableNode(ref)
	h.BuildAccelerationStructures()
	builds := d.Stats().AccelBuilds

	world := identityWorld()
	world[12] = 3
	if !h.UpdateNodeTransform(ref.ID(), world) {
		t.Fatal("transform update failed")
	}
	node, _ := ref.Resolve()
	if got := node.WorldTransform(); got[12] != 3 {
		t.Fatalf("node transform not updated: x = %v", got[12])
	}

	// The first node occupies instance slot 0; translation x sits at element
	// 12 of the stored matrix.
	impl := h.(*handler)
	if got := readFloat32At(t, impl.instDataBuf[0], 12*4); got != 3 {
		t.Fatalf("instance data not rewritten: x = %v", got)
	}

	if !h.BuildAccelerationStructures() {
		t.Fatal("rebuild failed")
	}
	if got := d.Stats().AccelBuilds; got != builds+1 {
		t.Fatalf("transform update must dirty the structure: %d builds, want %d", got, builds+1)
	}

	// A clean scene skips the structure build entirely.
	if !h.BuildAccelerationStructures() {
		t.Fatal("clean build failed")
	}
	if got := d.Stats().AccelBuilds; got != builds+1 {
		t.Fatalf("clean build must not rebuild: %d builds", got)
	}

	if h.UpdateNodeTransform(9999, world) {
		t.Fatal("updating an unknown node must fail")
	}
}

func TestAdvanceFrameSnapshotsInstanceData(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()

	ref := addTestNode(reg, "crate", 1, 1)
	h.AddRenderableNode(ref)

	h.AdvanceFrame()
	world := identityWorld()
	world[12] = 5
	h.UpdateNodeTransform(ref.ID(), world)

	impl := h.(*handler)
	if got := readFloat32At(t, impl.instDataBuf[0], 12*4); got != 5 {
		t.Fatalf("current frame must hold the new transform: x = %v", got)
	}
	if got := readFloat32At(t, impl.instDataBuf[1], 12*4); got != 1 {
		t.Fatalf("previous frame must hold the old transform: x = %v", got)
	}
}

func TestMaterialRegistry(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	h := NewHandler(d, WithMaxMaterials(2))
	h.Initialize()
	impl := h.(*handler)

	// Slot 0 carries the default material.
	if got := readFloat32At(t, impl.materialBuf, 0); got != 0.8 {
		t.Fatalf("default base color = %v, want 0.8", got)
	}
	if got := readFloat32At(t, impl.materialBuf, 20); got != 0.5 {
		t.Fatalf("default roughness = %v, want 0.5", got)
	}

	s, ok := h.RegisterMaterial(common.MaterialProperties{
		Name:          "red light",
		BaseColor:     [4]float32{1, 0, 0, 1},
		Metallic:      0.1,
		Roughness:     0.3,
		IOR:           1.45,
		Emission:      [3]float32{5, 4, 3},
		EmissiveScale: 2,
	})
	if !ok || s != 1 {
		t.Fatalf("expected slot 1, got (%d, %v)", s, ok)
	}
	base := uint64(s) * gpuMaterialSize
	if got := readFloat32At(t, impl.materialBuf, base); got != 1 {
		t.Fatalf("base color not written: %v", got)
	}
	if got := readFloat32At(t, impl.materialBuf, base+32); got != 5 {
		t.Fatalf("emission not written: %v", got)
	}
	if got := readFloat32At(t, impl.materialBuf, base+44); got != 2 {
		t.Fatalf("emissive scale not written: %v", got)
	}

	if _, ok := h.RegisterMaterial(common.MaterialProperties{Name: "overflow"}); ok {
		t.Fatal("registration beyond capacity must fail")
	}

	if !h.UpdateMaterial(s, common.MaterialProperties{Name: "red light", Roughness: 0.9}) {
		t.Fatal("material update failed")
	}
	if got := readFloat32At(t, impl.materialBuf, base+20); got != 0.9 {
		t.Fatalf("material not rewritten: roughness = %v", got)
	}
	if h.UpdateMaterial(7, common.MaterialProperties{}) {
		t.Fatal("updating a free slot must fail")
	}

	if h.UnregisterMaterial(0) {
		t.Fatal("the default material slot must not be freeable")
	}
	if !h.UnregisterMaterial(s) {
		t.Fatal("unregister failed")
	}
	if h.UnregisterMaterial(s) {
		t.Fatal("double unregister must fail")
	}
	if s2, ok := h.RegisterMaterial(common.MaterialProperties{Name: "recycled"}); !ok || s2 != 1 {
		t.Fatalf("freed slot must be recycled: (%d, %v)", s2, ok)
	}
}

func TestLightDistributionUpload(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d, WithMaxInstances(4))
	h.Initialize()
	impl := h.(*handler)

	// An empty scene uploads a header-only distribution.
	h.BuildAccelerationStructures()
	if got := readUint32At(t, impl.lightDistBuf, 0); got != 0 {
		t.Fatalf("empty scene distribution count = %d, want 0", got)
	}

	// Plain node in slot 0, emissive node in slot 1.
	plain := addTestNode(reg, "crate", 1, -2)
	lamp := addTestNode(reg, "lamp", 2, 2, renderable.WithLightImportance(2))
	h.AddRenderableNode(plain)
	h.AddRenderableNode(lamp)
	h.BuildAccelerationStructures()

	if got := readUint32At(t, impl.lightDistBuf, 0); got != 4 {
		t.Fatalf("distribution count = %d, want the instance capacity 4", got)
	}
	if got := readFloat32At(t, impl.lightDistBuf, 4); got != 2 {
		t.Fatalf("distribution integral = %v, want 2", got)
	}
	if got := readFloat32At(t, impl.lightDistBuf, 8); got != 0 {
		t.Fatalf("cdf[0] = %v, want 0 for the non-emissive slot", got)
	}
	if got := readFloat32At(t, impl.lightDistBuf, 12); got != 1 {
		t.Fatalf("cdf[1] = %v, want 1 for the emissive slot", got)
	}

	// Removing the light empties the distribution but keeps the count.
	h.RemoveRenderableNode(lamp)
	h.BuildAccelerationStructures()
	if got := readFloat32At(t, impl.lightDistBuf, 4); got != 0 {
		t.Fatalf("integral after light removal = %v, want 0", got)
	}
	if got := readUint32At(t, impl.lightDistBuf, 0); got != 4 {
		t.Fatalf("count after light removal = %d, want 4", got)
	}
}

func TestRemovalPatchesMovedInstance(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()
	impl := h.(*handler)

	refA := addTestNode(reg, "a", 1, -1)
	refB := addTestNode(reg, "b", 1, 0)
	refC := addTestNode(reg, "c", 1, 1)
	h.AddRenderableNode(refA)
	h.AddRenderableNode(refB)
	h.AddRenderableNode(refC)

	// Removing the head swaps the tail instance into its list position.
	if !h.RemoveRenderableNode(refA) {
		t.Fatal("remove failed")
	}
	if got := impl.nodes[refC.ID()].ListIndex; got != 0 {
		t.Fatalf("moved node index = %d, want 0", got)
	}
	if got := impl.nodes[refB.ID()].ListIndex; got != 1 {
		t.Fatalf("unmoved node index = %d, want 1", got)
	}

	// The patched index must route updates to the right instance.
	world := identityWorld()
	world[12] = 9
	if !h.UpdateNodeTransform(refC.ID(), world) {
		t.Fatal("update through patched index failed")
	}
	inst, ok := impl.tlas.Instance(0)
	if !ok || inst.InstanceID != 2 {
		t.Fatalf("instance 0 = (%+v, %v), want instance slot 2", inst, ok)
	}
	if inst.Transform[3] != 9 {
		t.Fatalf("instance transform x = %v, want 9", inst.Transform[3])
	}

	// Removal through the patched index tears down the right node.
	if !h.RemoveRenderableNode(refC) {
		t.Fatal("remove of moved node failed")
	}
	if h.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", h.NodeCount())
	}
	if got := impl.nodes[refB.ID()].ListIndex; got != 0 {
		t.Fatalf("remaining node index = %d, want 0", got)
	}
	if !h.BuildAccelerationStructures() || h.TraversableHandle() == gpu.NullTraversable {
		t.Fatal("build after churn failed")
	}
	if got := h.SBTRecordCount(); got != 1 {
		t.Fatalf("expected 1 shading record, got %d", got)
	}
}

func TestGeometryInstanceRecordWritten(t *testing.T) {
	d := newTestDevice()
	defer d.Release()
	reg := renderable.NewRegistry()
	h := NewHandler(d)
	h.Initialize()
	impl := h.(*handler)

	ref := reg.Add(renderable.NewNode(
		renderable.WithName("crate"),
		renderable.WithMesh(mesh.Cube("crate", 1)),
		renderable.WithMaterialSlot(0),
	))
	h.AddRenderableNode(ref)

	// First node: geometry instance slot 0. A unit cube has 12 triangles.
	if got := readUint32At(t, impl.geomInstBuf, 16); got != 12 {
		t.Fatalf("triangle count = %d, want 12", got)
	}
	if got := readUint32At(t, impl.geomInstBuf, 24); got != 0 {
		t.Fatalf("geometry instance slot = %d, want 0", got)
	}

	// The emissive flag follows the node's light importance.
	if got := readUint32At(t, impl.instDataBuf[0], 180); got != 0 {
		t.Fatalf("non-emissive node flagged emissive: %d", got)
	}
}
