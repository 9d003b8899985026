// Package tlas maintains the top-level acceleration structure: the ordered
// instance list, its device descriptor buffer, and the instance hierarchy
// the ray tracing kernels traverse first.
package tlas

import (
	"errors"
	"fmt"

	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/accel"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/log"
)

var logger = log.New("tlas")

// ErrAccelBuild is returned when the device rejects a top-level structure
// build. The previous handle stays in place, so callers keep tracing against
// a stale but valid structure.
var ErrAccelBuild = errors.New("tlas: acceleration structure build failed")

const defaultMinLeafInstances = 1

// Manager owns the scene's instance list and top-level structure. It is
// driven from a single goroutine (the frame thread); it is not safe for
// concurrent use.
type Manager interface {
	// Register appends an instance to the list and marks the structure
	// dirty.
	//
	// Parameters:
	//   - inst: the instance to append
	//
	// Returns:
	//   - uint32: the instance's index in the list, stable until an
	//     unregister swap moves another instance into it
	Register(inst Instance) uint32

	// Unregister removes the instance at index by swapping the last list
	// entry into its place, then marks the structure dirty. An out of range
	// index is ignored.
	//
	// Parameters:
	//   - index: the list index to remove
	//
	// Returns:
	//   - uint32: the InstanceID of the instance that moved into index, if any
	//   - bool: whether a swap moved an instance
	Unregister(index uint32) (movedID uint32, moved bool)

	// UpdateTransform rewrites the world transform of the instance at index
	// and marks the structure dirty.
	//
	// Parameters:
	//   - index: the list index to update
	//   - transform: the new world transform in row-major 3x4 layout
	//
	// Returns:
	//   - bool: false if index is out of range
	UpdateTransform(index uint32, transform [12]float32) bool

	// Instance returns a copy of the instance at index.
	//
	// Parameters:
	//   - index: the list index to read
	//
	// Returns:
	//   - Instance: the instance contents
	//   - bool: false if index is out of range
	Instance(index uint32) (Instance, bool)

	// Build rebuilds the top-level structure from the current instance
	// list. An empty list succeeds with a null handle and StateEmpty. The
	// shader binding table layout is regenerated, device buffers grow but
	// never shrink, and the rebuild is always complete rather than
	// incremental. On failure the previous handle stays valid and the
	// manager remains dirty.
	//
	// Returns:
	//   - error: ErrAccelBuild wrapping the device failure, or nil
	Build() error

	// Handle returns the traversable handle of the last successful build,
	// gpu.NullTraversable while empty.
	//
	// Returns:
	//   - gpu.TraversableHandle: the current handle
	Handle() gpu.TraversableHandle

	// Count returns the number of registered instances.
	//
	// Returns:
	//   - int: the instance count
	Count() int

	// State reports where the structure stands relative to the instance
	// list.
	//
	// Returns:
	//   - State: the current state
	State() State

	// SBTRecordCount returns the total shader binding table record count of
	// the last build's layout.
	//
	// Returns:
	//   - uint32: the record count
	SBTRecordCount() uint32

	// MarkDirty forces the next Build to run even if the instance list has
	// not changed, for callers that mutated referenced bottom-level
	// structures.
	MarkDirty()

	// Release frees the manager's device buffers and destroys the current
	// structure. Safe to call more than once.
	Release()
}

// manager is the implementation of the Manager interface.
type manager struct {
	device  gpu.Device
	builder accel.Builder
	label   string

	instances  []Instance
	state      State
	handle     gpu.TraversableHandle
	sbtRecords uint32

	// Device buffers, grown monotonically across builds.
	instanceBuf gpu.Buffer
	leafRefs    gpu.Buffer
	dest        gpu.Buffer
	scratch     gpu.Buffer

	minLeafInstances int
}

// instanceVolume adapts one registered instance to the acceleration builder.
type instanceVolume struct {
	bounds common.AABB
	index  uint32 // list index of the instance
}

func (v *instanceVolume) Bounds() common.AABB { return v.bounds }
func (v *instanceVolume) Center() common.Vec3 { return v.bounds.Center() }

// Ensure manager implements Manager interface.
var _ Manager = &manager{}

// NewManager creates a new Manager building on the given device. NewManager
// panics if the device is nil.
//
// Parameters:
//   - device: the device that owns the structure and its buffers (must not be nil)
//   - options: functional options to further configure the manager
//
// Returns:
//   - Manager: the newly created manager
func NewManager(device gpu.Device, options ...ManagerBuilderOption) Manager {
	if device == nil {
		panic("tlas: NewManager requires a non-nil Device")
	}

	m := &manager{
		device:           device,
		label:            "tlas",
		state:            StateEmpty,
		minLeafInstances: defaultMinLeafInstances,
	}

	for _, option := range options {
		option(m)
	}

	m.builder = accel.NewBuilder(accel.WithMaxLeafItems(m.minLeafInstances))

	return m
}

func (m *manager) Register(inst Instance) uint32 {
	m.instances = append(m.instances, inst)
	m.state = StateDirty
	return uint32(len(m.instances) - 1)
}

func (m *manager) Unregister(index uint32) (uint32, bool) {
	if int(index) >= len(m.instances) {
		logger.Warningf("tlas %q: unregister of out of range index %d ignored", m.label, index)
		return 0, false
	}

	last := len(m.instances) - 1
	moved := int(index) != last
	if moved {
		m.instances[index] = m.instances[last]
	}
	m.instances = m.instances[:last]
	m.state = StateDirty

	if moved {
		return m.instances[index].InstanceID, true
	}
	return 0, false
}

func (m *manager) UpdateTransform(index uint32, transform [12]float32) bool {
	if int(index) >= len(m.instances) {
		return false
	}
	m.instances[index].Transform = transform
	m.state = StateDirty
	return true
}

func (m *manager) Instance(index uint32) (Instance, bool) {
	if int(index) >= len(m.instances) {
		return Instance{}, false
	}
	return m.instances[index], true
}

func (m *manager) Build() error {
	if len(m.instances) == 0 {
		if m.handle != gpu.NullTraversable {
			m.device.DestroyAccel(m.handle)
			m.handle = gpu.NullTraversable
		}
		m.sbtRecords = 0
		m.state = StateEmpty
		logger.Debugf("tlas %q: built empty, handle %d", m.label, m.handle)
		return nil
	}

	// Regenerate the shader binding table layout and the descriptor payload.
	// Offsets are the cumulative surface counts in list order.
	descriptors := make([]byte, 0, len(m.instances)*gpuInstanceSize)
	volumes := make([]accel.Volume, len(m.instances))
	sbtOffset := uint32(0)
	for i := range m.instances {
		inst := &m.instances[i]
		g := GPUInstance{
			Transform:      inst.Transform,
			InstanceID:     inst.InstanceID,
			SBTOffset:      sbtOffset,
			VisibilityMask: inst.VisibilityMask,
			Flags:          inst.Flags,
			BlasHandle:     uint64(inst.Handle),
		}
		descriptors = append(descriptors, g.Marshal()...)
		sbtOffset += inst.SurfaceCount

		volumes[i] = &instanceVolume{bounds: inst.worldBounds(), index: uint32(i)}
	}

	// Instance hierarchy over world bounds. Leaves linearize list indices
	// into the order the leaf reference buffer is uploaded in.
	order := make([]uint32, 0, len(m.instances))
	nodes := m.builder.Build(volumes, func(leaf *accel.Node, items []accel.Volume) {
		leaf.SetLeaf(uint32(len(order)), uint32(len(items)))
		for _, item := range items {
			order = append(order, item.(*instanceVolume).index)
		}
	})
	payload := accel.MarshalNodes(nodes)
	mem := gpu.AccelMemoryRequirements(uint32(len(nodes)))

	if err := m.ensureBuffers(uint64(len(descriptors)), uint64(len(order))*4, mem); err != nil {
		return fmt.Errorf("tlas %q: %w: %v", m.label, ErrAccelBuild, err)
	}
	if err := m.instanceBuf.Write(0, descriptors); err != nil {
		return fmt.Errorf("tlas %q: upload instances: %w: %v", m.label, ErrAccelBuild, err)
	}
	if err := m.leafRefs.Write(0, common.SliceToBytes(order)); err != nil {
		return fmt.Errorf("tlas %q: upload leaf references: %w: %v", m.label, ErrAccelBuild, err)
	}

	newHandle, err := m.device.BuildAccel(&gpu.AccelBuildDescriptor{
		Label:   m.label,
		Nodes:   payload,
		Dest:    m.dest,
		Scratch: m.scratch,
	})
	if err != nil {
		// The previous structure stays in place; a stale hierarchy beats a
		// broken one.
		return fmt.Errorf("tlas %q: %w: %v", m.label, ErrAccelBuild, err)
	}

	if m.handle != gpu.NullTraversable {
		m.device.DestroyAccel(m.handle)
	}
	m.handle = newHandle
	m.sbtRecords = sbtOffset
	m.state = StateBuilt

	logger.Debugf("tlas %q: built %d instances, %d nodes, %d sbt records, handle %d",
		m.label, len(m.instances), len(nodes), m.sbtRecords, m.handle)
	return nil
}

func (m *manager) Handle() gpu.TraversableHandle {
	return m.handle
}

func (m *manager) Count() int {
	return len(m.instances)
}

func (m *manager) State() State {
	return m.state
}

func (m *manager) SBTRecordCount() uint32 {
	return m.sbtRecords
}

func (m *manager) MarkDirty() {
	if m.state == StateBuilt {
		m.state = StateDirty
	}
}

func (m *manager) Release() {
	for _, buf := range []*gpu.Buffer{&m.scratch, &m.instanceBuf, &m.leafRefs, &m.dest} {
		if *buf != nil {
			(*buf).Release()
			*buf = nil
		}
	}
	if m.handle != gpu.NullTraversable {
		m.device.DestroyAccel(m.handle)
		m.handle = gpu.NullTraversable
	}
	m.instances = nil
	m.sbtRecords = 0
	m.state = StateEmpty
}

// ensureBuffers grows the build buffers to the given sizes. Existing buffers
// that are already large enough are kept, so capacity only ever grows within
// a session.
func (m *manager) ensureBuffers(instanceBytes, refBytes uint64, mem gpu.AccelMemory) error {
	dataUsage := gpu.BufferUsageStorage | gpu.BufferUsageCopyDst | gpu.BufferUsageCopySrc

	var err error
	if m.instanceBuf, err = m.ensure(m.instanceBuf, m.label+" instances", instanceBytes, dataUsage); err != nil {
		return err
	}
	if m.leafRefs, err = m.ensure(m.leafRefs, m.label+" leaf refs", refBytes, dataUsage); err != nil {
		return err
	}
	if m.dest, err = m.ensure(m.dest, m.label+" output", mem.OutputSize, dataUsage); err != nil {
		return err
	}
	if m.scratch, err = m.ensure(m.scratch, m.label+" scratch", mem.ScratchSize, gpu.BufferUsageStorage|gpu.BufferUsageCopyDst); err != nil {
		return err
	}
	return nil
}

func (m *manager) ensure(current gpu.Buffer, label string, size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	if current != nil && current.Size() >= size {
		return current, nil
	}
	if current != nil {
		current.Release()
	}
	return m.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: label,
		Size:  size,
		Usage: usage,
	})
}
