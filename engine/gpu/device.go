package gpu

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Hurleyworks/Cook/log"
)

var logger = log.New("gpu")

// Acceleration structure build errors.
var (
	// ErrEmptyBuild is returned when a build descriptor carries no nodes.
	ErrEmptyBuild = errors.New("gpu: acceleration build with no nodes")

	// ErrDestTooSmall is returned when the output buffer cannot hold the
	// built structure.
	ErrDestTooSmall = errors.New("gpu: acceleration output buffer too small")

	// ErrScratchTooSmall is returned when the scratch buffer is smaller than
	// the build requires.
	ErrScratchTooSmall = errors.New("gpu: acceleration scratch buffer too small")
)

// Stats is a snapshot of the device's resource accounting. The counters cover
// every buffer and acceleration structure created through the Device, which
// lets lifecycle tests prove that teardown released everything.
type Stats struct {
	// BuffersCreated counts all buffers ever created on this device.
	BuffersCreated uint64

	// BuffersLive counts buffers created and not yet released.
	BuffersLive uint64

	// BytesLive is the total size of all live buffers.
	BytesLive uint64

	// PeakBytes is the highest BytesLive observed.
	PeakBytes uint64

	// AccelBuilds counts all acceleration structure builds ever submitted.
	AccelBuilds uint64

	// AccelsLive counts built structures not yet destroyed.
	AccelsLive uint64
}

// device is the implementation of the Device interface.
type device struct {
	mu *sync.Mutex

	label       string
	backendType DeviceBackendType
	backend     DeviceBackend

	accels     map[TraversableHandle]accelRecord
	nextHandle uint64
	stats      Stats

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	buildFault           func(label string) error
}

type accelRecord struct {
	label     string
	nodeCount uint32
	destID    uint64
}

// Device defines the interface for the GPU device layer.
//
// It owns buffer creation and acceleration structure builds for one logical
// device, keeps centralized resource statistics, and dispatches the actual
// data movement to a backend. All methods are safe for concurrent use, and
// queued operations complete in submission order.
type Device interface {
	// Label retrieves the device identifier.
	//
	// Returns:
	//   - string: the device label
	Label() string

	// BackendType returns which backend implementation this device runs on.
	//
	// Returns:
	//   - DeviceBackendType: the backend type
	BackendType() DeviceBackendType

	// CreateBuffer allocates a device buffer and registers it with the
	// device's resource accounting.
	//
	// Parameters:
	//   - desc: the buffer label, size, and usage flags
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if allocation fails
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// BuildAccel validates a build descriptor, uploads the packed nodes into
	// the descriptor's Dest buffer, and returns a fresh handle for the built
	// structure. The previous structure in a rebuilt slot stays valid until
	// the caller destroys its handle, so in-flight work never observes a
	// half-built structure.
	//
	// Parameters:
	//   - desc: the build input, output buffer, and scratch buffer
	//
	// Returns:
	//   - TraversableHandle: the handle of the built structure
	//   - error: ErrEmptyBuild, ErrDestTooSmall, ErrScratchTooSmall, or a
	//     backend upload error; the returned handle is NullTraversable on failure
	BuildAccel(desc *AccelBuildDescriptor) (TraversableHandle, error)

	// DestroyAccel forgets a built structure. The backing Dest buffer is
	// caller-owned and is not released.
	//
	// Parameters:
	//   - handle: the structure to destroy
	//
	// Returns:
	//   - bool: true if the handle was live, false for NullTraversable or an
	//     unknown handle
	DestroyAccel(handle TraversableHandle) bool

	// AccelNodeCount reports the node count of a live structure.
	//
	// Parameters:
	//   - handle: the structure to query
	//
	// Returns:
	//   - uint32: the node count of the structure's last build
	//   - bool: false if the handle is not live
	AccelNodeCount(handle TraversableHandle) (uint32, bool)

	// Sync blocks until the device has drained all queued work.
	Sync()

	// Stats returns a snapshot of the device's resource accounting.
	//
	// Returns:
	//   - Stats: the current counters
	Stats() Stats

	// Release tears down the device. Live buffers are caller-owned and must
	// be released before this call; remaining live structures are forgotten.
	Release()
}

var _ Device = &device{}

// NewDevice creates a new Device instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of device backend to use (e.g., WGPU or Null)
//   - options: variadic list of DeviceBuilderOption functions to configure the Device
//
// Returns:
//   - Device: a new instance of Device configured with the specified backend and options
func NewDevice(backendType DeviceBackendType, options ...DeviceBuilderOption) Device {
	d := &device{
		mu:          &sync.Mutex{},
		label:       "Main Device",
		backendType: backendType,
		accels:      make(map[TraversableHandle]accelRecord),
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(d)
	}

	switch backendType {
	case BackendTypeNull:
		d.backend = newNullDeviceBackend(d)
	case BackendTypeWGPU:
		fallthrough
	default:
		d.backend = newWGPUDeviceBackend(d.label, d.forceFallbackAdapter, d)
	}

	return d
}

func (d *device) Label() string {
	return d.label
}

func (d *device) BackendType() DeviceBackendType {
	return d.backendType
}

func (d *device) CreateBuffer(desc *BufferDescriptor) (Buffer, error) {
	buf, err := d.backend.CreateBuffer(desc)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.stats.BuffersCreated++
	d.stats.BuffersLive++
	d.stats.BytesLive += desc.Size
	if d.stats.BytesLive > d.stats.PeakBytes {
		d.stats.PeakBytes = d.stats.BytesLive
	}
	d.mu.Unlock()

	return buf, nil
}

func (d *device) BuildAccel(desc *AccelBuildDescriptor) (TraversableHandle, error) {
	if desc == nil || len(desc.Nodes) == 0 {
		return NullTraversable, ErrEmptyBuild
	}
	if len(desc.Nodes)%AccelNodeSize != 0 {
		return NullTraversable, fmt.Errorf("gpu: build input for %q is not a whole number of nodes (%d bytes)", desc.Label, len(desc.Nodes))
	}
	if desc.Dest == nil || desc.Scratch == nil {
		return NullTraversable, fmt.Errorf("gpu: build for %q is missing output or scratch buffer", desc.Label)
	}

	nodeCount := uint32(len(desc.Nodes) / AccelNodeSize)
	mem := AccelMemoryRequirements(nodeCount)
	if desc.Dest.Size() < mem.OutputSize {
		return NullTraversable, fmt.Errorf("%w: %q needs %d bytes, output has %d", ErrDestTooSmall, desc.Label, mem.OutputSize, desc.Dest.Size())
	}
	if desc.Scratch.Size() < mem.ScratchSize {
		return NullTraversable, fmt.Errorf("%w: %q needs %d bytes, scratch has %d", ErrScratchTooSmall, desc.Label, mem.ScratchSize, desc.Scratch.Size())
	}

	if d.buildFault != nil {
		if err := d.buildFault(desc.Label); err != nil {
			return NullTraversable, err
		}
	}

	if err := d.backend.SubmitAccelBuild(desc); err != nil {
		return NullTraversable, err
	}

	d.mu.Lock()
	d.nextHandle++
	handle := TraversableHandle(d.nextHandle)
	d.accels[handle] = accelRecord{
		label:     desc.Label,
		nodeCount: nodeCount,
		destID:    desc.Dest.ID(),
	}
	d.stats.AccelBuilds++
	d.stats.AccelsLive++
	d.mu.Unlock()

	logger.Debugf("built accel %q: %d nodes, handle %d", desc.Label, nodeCount, handle)
	return handle, nil
}

func (d *device) DestroyAccel(handle TraversableHandle) bool {
	if handle == NullTraversable {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.accels[handle]; !exists {
		return false
	}
	delete(d.accels, handle)
	d.stats.AccelsLive--
	return true
}

func (d *device) AccelNodeCount(handle TraversableHandle) (uint32, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	rec, exists := d.accels[handle]
	if !exists {
		return 0, false
	}
	return rec.nodeCount, true
}

func (d *device) Sync() {
	d.backend.Sync()
}

func (d *device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

func (d *device) Release() {
	d.mu.Lock()
	if d.stats.BuffersLive > 0 {
		logger.Warningf("device %q released with %d live buffers (%d bytes)", d.label, d.stats.BuffersLive, d.stats.BytesLive)
	}
	d.accels = make(map[TraversableHandle]accelRecord)
	d.stats.AccelsLive = 0
	d.mu.Unlock()

	d.backend.Release()
}

// noteBufferReleased is called by backend buffers when they are released.
func (d *device) noteBufferReleased(size uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stats.BuffersLive--
	d.stats.BytesLive -= size
}

// bufferSink receives release notifications from backend buffers so the
// device's accounting stays accurate no matter which backend allocated them.
type bufferSink interface {
	noteBufferReleased(size uint64)
}

var _ bufferSink = &device{}
