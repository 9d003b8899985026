// Package scene orchestrates the render-side bookkeeping for a dynamic set of
// renderable nodes: slot-based allocation of the per-node GPU table entries,
// reference-counted geometry sharing, the top-level acceleration structure,
// and the light sampling distribution. The Handler is the public surface the
// renderer drives; every mutating operation returns a boolean success
// indicator and converts internal errors into log records.
package scene

import (
	"errors"
	"fmt"

	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/geometry"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/engine/renderable"
	"github.com/Hurleyworks/Cook/engine/sampling"
	"github.com/Hurleyworks/Cook/engine/slot"
	"github.com/Hurleyworks/Cook/engine/tlas"
	"github.com/Hurleyworks/Cook/log"
)

var logger = log.New("scene")

// ErrInvalidReference is returned when a node reference has expired, carries
// no identifier, or the node lacks the geometry required to render it.
var ErrInvalidReference = errors.New("scene: node reference expired or invalid")

const (
	defaultMaxMaterials         = 256
	defaultMaxGeometryInstances = 1024
	defaultMaxInstances         = 1024
)

type handler struct {
	device gpu.Device

	maxMaterials uint32
	maxGeomInsts uint32
	maxInstances uint32

	initialized bool

	instSlots     *slot.Allocator
	geomInstSlots *slot.Allocator
	materialSlots *slot.Allocator

	cache geometry.Cache
	tlas  tlas.Manager

	nodes map[uint64]NodeResource

	materialBuf  gpu.Buffer
	geomInstBuf  gpu.Buffer
	instDataBuf  [2]gpu.Buffer // [0] current frame, [1] previous frame
	lightDistBuf gpu.Buffer
}

// Handler composes the slot allocators, geometry cache, device data buffers
// and top-level structure into the add/remove/build surface the renderer
// consumes. It is driven from a single goroutine (the frame thread); it is
// not safe for concurrent use.
type Handler interface {
	// Initialize allocates the fixed-capacity slot pools and device buffers,
	// registers the default material in slot 0, and creates an empty
	// top-level structure. Idempotent: calling it on an initialized handler
	// succeeds without side effects.
	//
	// Returns:
	//   - bool: true on success or when already initialized
	Initialize() bool

	// Finalize releases all device memory and destroys the top-level
	// structure in reverse dependency order. Outstanding node registrations
	// are torn down with it. Safe to call multiple times.
	Finalize()

	// AddRenderableNode registers a node with the scene: resolves its
	// geometry through the cache, allocates an instance and a
	// geometry-instance slot, populates the per-slot device records, and
	// appends a top-level instance. Adding an already registered ID is a
	// successful no-op. Any mid-step failure unwinds everything acquired, so
	// a failed add leaves no partial state.
	//
	// Parameters:
	//   - ref: weak reference to the node to add
	//
	// Returns:
	//   - bool: true if the node is registered when the call returns
	AddRenderableNode(ref renderable.WeakRef) bool

	// RemoveRenderableNode resolves the reference and removes the node by
	// its identifier. Fails if the reference has already expired; use
	// RemoveRenderableNodeByID to tear down resources of destroyed nodes.
	//
	// Parameters:
	//   - ref: weak reference to the node to remove
	//
	// Returns:
	//   - bool: true if the node was registered and is now removed
	RemoveRenderableNode(ref renderable.WeakRef) bool

	// RemoveRenderableNodeByID removes a node by identifier: releases its
	// slots, drops its geometry reference (destroying the shared record at
	// zero), removes its top-level instance, clears the node's ownership
	// flag if the node is still reachable, and erases the table entry.
	//
	// Parameters:
	//   - id: the node identifier
	//
	// Returns:
	//   - bool: true if the node was registered, false if the ID is absent
	RemoveRenderableNodeByID(id uint64) bool

	// UpdateNodeTransform rewrites a registered node's world transform: the
	// node itself, its current-frame instance data record, and its top-level
	// instance, marking the structure dirty.
	//
	// Parameters:
	//   - id: the node identifier
	//   - world: column-major 4x4 world matrix
	//
	// Returns:
	//   - bool: true if the node is registered and still resolvable
	UpdateNodeTransform(id uint64, world [16]float32) bool

	// AdvanceFrame snapshots the current instance data into the
	// previous-frame buffer. Call it at the top of a frame, before that
	// frame's transform mutations, so motion vectors see last frame's state.
	AdvanceFrame()

	// RegisterMaterial allocates a material slot and uploads the material.
	//
	// Parameters:
	//   - m: the material properties to upload
	//
	// Returns:
	//   - uint32: the allocated slot
	//   - bool: false when the material pool is exhausted
	RegisterMaterial(m common.MaterialProperties) (uint32, bool)

	// UpdateMaterial rewrites the material behind an allocated slot.
	//
	// Parameters:
	//   - s: the material slot
	//   - m: the new material properties
	//
	// Returns:
	//   - bool: false if the slot is not in use
	UpdateMaterial(s uint32, m common.MaterialProperties) bool

	// UnregisterMaterial frees a material slot. Slot 0 holds the default
	// material and cannot be freed.
	//
	// Parameters:
	//   - s: the material slot
	//
	// Returns:
	//   - bool: true if the slot was in use and is now free
	UnregisterMaterial(s uint32) bool

	// BuildAccelerationStructures rebuilds the top-level structure if any
	// add, remove, or transform update dirtied it, then rebuilds and uploads
	// the light sampling distribution. An empty scene builds successfully to
	// the null handle. On a failed build the previous handle stays in place
	// and the structure stays dirty.
	//
	// Returns:
	//   - bool: true if the structure is consistent when the call returns
	BuildAccelerationStructures() bool

	// TraversableHandle returns the handle of the last successful build, or
	// the null handle for an empty or uninitialized scene.
	//
	// Returns:
	//   - gpu.TraversableHandle: the current top-level handle
	TraversableHandle() gpu.TraversableHandle

	// NodeCount returns the number of registered nodes.
	//
	// Returns:
	//   - int: the node count
	NodeCount() int

	// HasGeometry reports whether any node is registered.
	//
	// Returns:
	//   - bool: true if the scene holds renderable geometry
	HasGeometry() bool

	// SBTRecordCount returns the number of shading records the binding
	// table needs for the current instance list, regenerated on every
	// build.
	//
	// Returns:
	//   - uint32: the cumulative surface count across all instances
	SBTRecordCount() uint32
}

var _ Handler = &handler{}

// NewHandler creates a scene handler on the given device. Capacities default
// to 256 materials, 1024 geometry instances, and 1024 instances; the handler
// allocates nothing until Initialize.
//
// Parameters:
//   - device: the GPU device owning all buffers and builds
//   - options: functional options to configure the handler
//
// Returns:
//   - Handler: the newly created handler
func NewHandler(device gpu.Device, options ...HandlerBuilderOption) Handler {
	if device == nil {
		panic("scene: NewHandler requires a non-nil Device")
	}
	h := &handler{
		device:       device,
		maxMaterials: defaultMaxMaterials,
		maxGeomInsts: defaultMaxGeometryInstances,
		maxInstances: defaultMaxInstances,
	}
	for _, option := range options {
		option(h)
	}
	return h
}

func (h *handler) Initialize() bool {
	if h.initialized {
		logger.Debugf("scene handler already initialized")
		return true
	}

	logger.Debugf("initializing scene handler: %d materials, %d geometry instances, %d instances",
		h.maxMaterials, h.maxGeomInsts, h.maxInstances)

	h.instSlots = slot.NewAllocator(h.maxInstances)
	h.geomInstSlots = slot.NewAllocator(h.maxGeomInsts)
	h.materialSlots = slot.NewAllocator(h.maxMaterials)
	h.cache = geometry.NewCache(h.device)
	h.tlas = tlas.NewManager(h.device)
	h.nodes = make(map[uint64]NodeResource)

	var created []gpu.Buffer
	fail := func(stage string, err error) bool {
		for i := len(created) - 1; i >= 0; i-- {
			created[i].Release()
		}
		h.materialBuf, h.geomInstBuf, h.lightDistBuf = nil, nil, nil
		h.instDataBuf[0], h.instDataBuf[1] = nil, nil
		h.instSlots, h.geomInstSlots, h.materialSlots = nil, nil, nil
		h.cache, h.tlas, h.nodes = nil, nil, nil
		logger.Warningf("failed to initialize scene handler: %s: %v", stage, err)
		return false
	}

	usage := gpu.BufferUsageStorage | gpu.BufferUsageCopyDst | gpu.BufferUsageCopySrc
	var err error
	if h.materialBuf, err = h.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: "scene materials",
		Size:  uint64(h.maxMaterials) * gpuMaterialSize,
		Usage: usage,
	}); err != nil {
		return fail("create material buffer", err)
	}
	created = append(created, h.materialBuf)

	if h.geomInstBuf, err = h.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: "scene geometry instances",
		Size:  uint64(h.maxGeomInsts) * gpuGeomInstanceSize,
		Usage: usage,
	}); err != nil {
		return fail("create geometry instance buffer", err)
	}
	created = append(created, h.geomInstBuf)

	for i := range h.instDataBuf {
		if h.instDataBuf[i], err = h.device.CreateBuffer(&gpu.BufferDescriptor{
			Label: fmt.Sprintf("scene instance data %d", i),
			Size:  uint64(h.maxInstances) * gpuInstanceDataSize,
			Usage: usage,
		}); err != nil {
			return fail("create instance data buffer", err)
		}
		created = append(created, h.instDataBuf[i])
	}

	if h.lightDistBuf, err = h.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: "scene light distribution",
		Size:  sampling.HeaderSize + 4*uint64(h.maxInstances),
		Usage: usage,
	}); err != nil {
		return fail("create light distribution buffer", err)
	}
	created = append(created, h.lightDistBuf)

	// Slot 0 always holds the default material so surfaces without an
	// explicit slot shade sensibly.
	if _, err = h.materialSlots.Acquire(); err != nil {
		return fail("reserve default material slot", err)
	}
	defaultMat := GPUMaterial{
		BaseColor: [4]float32{0.8, 0.8, 0.8, 1},
		Roughness: 0.5,
		IOR:       1.5,
	}
	if err = h.materialBuf.Write(0, defaultMat.Marshal()); err != nil {
		return fail("upload default material", err)
	}

	h.initialized = true
	logger.Infof("scene handler initialized")
	return true
}

func (h *handler) Finalize() {
	if !h.initialized {
		return
	}

	// Reverse dependency order: the top-level structure goes first, then the
	// geometry it references, then the per-slot data buffers.
	h.tlas.Release()

	for id, res := range h.nodes {
		if node, ok := res.Ref.Resolve(); ok {
			node.SetSceneOwned(false)
		}
		h.cache.Release(res.GeometryHash)
		delete(h.nodes, id)
	}
	h.cache.Clear()

	for _, buf := range []gpu.Buffer{h.instDataBuf[1], h.instDataBuf[0], h.geomInstBuf, h.materialBuf, h.lightDistBuf} {
		if buf != nil {
			buf.Release()
		}
	}
	h.instDataBuf[0], h.instDataBuf[1] = nil, nil
	h.materialBuf, h.geomInstBuf, h.lightDistBuf = nil, nil, nil

	h.instSlots, h.geomInstSlots, h.materialSlots = nil, nil, nil
	h.cache, h.tlas, h.nodes = nil, nil, nil
	h.initialized = false
	logger.Debugf("scene handler finalized")
}

func (h *handler) AddRenderableNode(ref renderable.WeakRef) bool {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return false
	}
	if err := h.addNode(ref); err != nil {
		logger.Warningf("failed to add node %d: %v", ref.ID(), err)
		return false
	}
	return true
}

// addNode performs the transactional registration described on
// AddRenderableNode. Resources are acquired in the order instance slot,
// geometry reference, geometry-instance slot, top-level instance; every
// failure path releases them in reverse.
func (h *handler) addNode(ref renderable.WeakRef) error {
	node, ok := ref.Resolve()
	if !ok {
		return fmt.Errorf("%w: reference expired", ErrInvalidReference)
	}
	id := node.ID()
	if id == 0 {
		return fmt.Errorf("%w: node has no identifier", ErrInvalidReference)
	}
	if _, exists := h.nodes[id]; exists {
		logger.Debugf("node %d already present in scene", id)
		return nil
	}
	m := node.Mesh()
	if m == nil {
		return fmt.Errorf("%w: node %d has no mesh", ErrInvalidReference, id)
	}

	instSlot, err := h.instSlots.Acquire()
	if err != nil {
		return fmt.Errorf("instance slots: %w", err)
	}

	rec, _, err := h.cache.GetOrCreate(m)
	if err != nil {
		h.instSlots.Release(instSlot)
		return err
	}

	geomSlot, err := h.geomInstSlots.Acquire()
	if err != nil {
		h.cache.Release(rec.Hash)
		h.instSlots.Release(instSlot)
		return fmt.Errorf("geometry instance slots: %w", err)
	}

	world := node.WorldTransform()
	listIndex := h.tlas.Register(tlas.Instance{
		InstanceID:     instSlot,
		Transform:      common.InstanceTransform(world[:]),
		Handle:         rec.Handle,
		VisibilityMask: node.VisibilityMask(),
		SurfaceCount:   rec.SurfaceCount(),
		LocalBounds:    rec.Bounds,
	})

	if err := h.writeNodeData(node, rec, instSlot, geomSlot, world); err != nil {
		h.tlas.Unregister(listIndex)
		h.geomInstSlots.Release(geomSlot)
		h.cache.Release(rec.Hash)
		h.instSlots.Release(instSlot)
		return err
	}

	h.nodes[id] = NodeResource{
		Ref:          ref,
		NodeID:       id,
		InstanceSlot: instSlot,
		GeomInstSlot: geomSlot,
		GeometryHash: rec.Hash,
		ListIndex:    listIndex,
	}
	node.SetSceneOwned(true)

	logger.Infof("added node %d to scene (instance slot %d)", id, instSlot)
	logger.Debugf("scene now contains %d nodes", len(h.nodes))
	return nil
}

func (h *handler) writeNodeData(node renderable.Node, rec *geometry.Record, instSlot, geomSlot uint32, world [16]float32) error {
	// One geometry-instance record per node; the first surface's index
	// buffer stands in for the mesh.
	geomInst := GPUGeometryInstance{
		VertexBufferID: rec.VertexBuffer.ID(),
		IndexBufferID:  rec.Surfaces[0].IndexBuffer.ID(),
		TriangleCount:  rec.TriangleCount,
		MaterialSlot:   node.MaterialSlot(),
		GeomInstSlot:   geomSlot,
	}
	if err := h.geomInstBuf.Write(uint64(geomSlot)*gpuGeomInstanceSize, geomInst.Marshal()); err != nil {
		return fmt.Errorf("write geometry instance data: %w", err)
	}
	return h.writeInstanceData(node, instSlot, world)
}

func (h *handler) writeInstanceData(node renderable.Node, instSlot uint32, world [16]float32) error {
	data := GPUInstanceData{
		Transform:     world,
		CurToPrev:     world,
		NormalMatrix:  common.NormalMatrix(world[:]),
		UniformScale:  1,
		EmissiveScale: 1,
	}
	if node.LightImportance() > 0 {
		data.IsEmissive = 1
	}
	if err := h.instDataBuf[0].Write(uint64(instSlot)*gpuInstanceDataSize, data.Marshal()); err != nil {
		return fmt.Errorf("write instance data: %w", err)
	}
	return nil
}

func (h *handler) RemoveRenderableNode(ref renderable.WeakRef) bool {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return false
	}
	if _, ok := ref.Resolve(); !ok {
		logger.Debugf("cannot remove node: reference expired")
		return false
	}
	return h.RemoveRenderableNodeByID(ref.ID())
}

func (h *handler) RemoveRenderableNodeByID(id uint64) bool {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return false
	}
	res, ok := h.nodes[id]
	if !ok {
		logger.Debugf("node %d not found in scene", id)
		return false
	}

	movedSlot, moved := h.tlas.Unregister(res.ListIndex)
	if moved {
		// The list tail was swapped into res.ListIndex; find the node that
		// owns that instance slot and update its stored index.
		for movedID, movedRes := range h.nodes {
			if movedRes.InstanceSlot == movedSlot {
				movedRes.ListIndex = res.ListIndex
				h.nodes[movedID] = movedRes
				break
			}
		}
	}

	h.instSlots.Release(res.InstanceSlot)
	h.geomInstSlots.Release(res.GeomInstSlot)
	h.cache.Release(res.GeometryHash)

	if node, ok := res.Ref.Resolve(); ok {
		node.SetSceneOwned(false)
	}

	delete(h.nodes, id)
	logger.Infof("removed node %d from scene", id)
	logger.Debugf("scene now contains %d nodes", len(h.nodes))
	return true
}

func (h *handler) UpdateNodeTransform(id uint64, world [16]float32) bool {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return false
	}
	res, ok := h.nodes[id]
	if !ok {
		logger.Debugf("node %d not found in scene", id)
		return false
	}
	node, ok := res.Ref.Resolve()
	if !ok {
		logger.Debugf("cannot update node %d: reference expired", id)
		return false
	}

	node.SetWorldTransform(world)
	if err := h.writeInstanceData(node, res.InstanceSlot, world); err != nil {
		logger.Warningf("failed to update node %d: %v", id, err)
		return false
	}
	h.tlas.UpdateTransform(res.ListIndex, common.InstanceTransform(world[:]))
	return true
}

func (h *handler) AdvanceFrame() {
	if !h.initialized {
		return
	}
	data := make([]byte, h.instDataBuf[0].Size())
	if err := h.instDataBuf[0].Read(0, data); err != nil {
		logger.Warningf("advance frame: read instance data: %v", err)
		return
	}
	if err := h.instDataBuf[1].Write(0, data); err != nil {
		logger.Warningf("advance frame: write previous instance data: %v", err)
	}
}

func (h *handler) RegisterMaterial(m common.MaterialProperties) (uint32, bool) {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return 0, false
	}
	s, err := h.materialSlots.Acquire()
	if err != nil {
		logger.Warningf("failed to register material %q: %v", m.Name, err)
		return 0, false
	}
	if err := h.writeMaterial(s, &m); err != nil {
		h.materialSlots.Release(s)
		logger.Warningf("failed to register material %q: %v", m.Name, err)
		return 0, false
	}
	logger.Debugf("registered material %q in slot %d", m.Name, s)
	return s, true
}

func (h *handler) UpdateMaterial(s uint32, m common.MaterialProperties) bool {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return false
	}
	if !h.materialSlots.InUse(s) {
		logger.Warningf("cannot update material: slot %d not in use", s)
		return false
	}
	if err := h.writeMaterial(s, &m); err != nil {
		logger.Warningf("failed to update material slot %d: %v", s, err)
		return false
	}
	return true
}

func (h *handler) UnregisterMaterial(s uint32) bool {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return false
	}
	if s == 0 {
		logger.Warningf("material slot 0 holds the default material and cannot be freed")
		return false
	}
	return h.materialSlots.Release(s)
}

func (h *handler) writeMaterial(s uint32, m *common.MaterialProperties) error {
	g := GPUMaterial{
		BaseColor:     m.BaseColor,
		Metallic:      m.Metallic,
		Roughness:     m.Roughness,
		IOR:           m.IOR,
		Emission:      m.Emission,
		EmissiveScale: m.EmissiveScale,
	}
	return h.materialBuf.Write(uint64(s)*gpuMaterialSize, g.Marshal())
}

func (h *handler) BuildAccelerationStructures() bool {
	if !h.initialized {
		logger.Warningf("scene handler not initialized")
		return false
	}

	if h.tlas.State() == tlas.StateDirty {
		if err := h.tlas.Build(); err != nil {
			logger.Warningf("failed to build acceleration structures: %v", err)
			return false
		}
	}

	h.uploadLightDistribution()
	return true
}

// uploadLightDistribution rebuilds the emissive instance CDF from the
// registered nodes' light importance, indexed by instance slot so kernels
// can go straight from a sampled index to the instance data arrays.
func (h *handler) uploadLightDistribution() {
	var weights []float32
	if len(h.nodes) > 0 {
		weights = make([]float32, h.maxInstances)
		for _, res := range h.nodes {
			if node, ok := res.Ref.Resolve(); ok {
				if w := node.LightImportance(); w > 0 {
					weights[res.InstanceSlot] = w
				}
			}
		}
	}
	dist := sampling.NewDistribution(weights)
	if err := h.lightDistBuf.Write(0, dist.Marshal()); err != nil {
		logger.Warningf("failed to upload light distribution: %v", err)
		return
	}
	logger.Debugf("light distribution rebuilt: %d items, integral %.3f", dist.Count(), dist.Integral())
}

func (h *handler) TraversableHandle() gpu.TraversableHandle {
	if !h.initialized {
		return gpu.NullTraversable
	}
	return h.tlas.Handle()
}

func (h *handler) NodeCount() int {
	return len(h.nodes)
}

func (h *handler) HasGeometry() bool {
	return len(h.nodes) > 0
}

func (h *handler) SBTRecordCount() uint32 {
	if !h.initialized {
		return 0
	}
	return h.tlas.SBTRecordCount()
}
