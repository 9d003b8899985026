package gpu

// DeviceBackendType identifies the GPU backend implementation used by the Device.
type DeviceBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based device backend.
	BackendTypeWGPU DeviceBackendType = iota

	// BackendTypeNull selects the in-memory device backend. It performs no
	// native GPU calls, shadows every buffer in host memory, and tracks
	// allocations exactly, which makes it the backend of choice for tests
	// and headless tooling.
	BackendTypeNull
)

// TraversableHandle identifies a built acceleration structure on the device.
// Handle 0 (NullTraversable) is valid and means "no structure": launching a
// trace against it reports misses for every ray, which is the correct result
// for an empty scene.
type TraversableHandle uint64

// NullTraversable is the handle of the empty acceleration structure.
const NullTraversable TraversableHandle = 0

// AccelNodeSize is the byte stride of one packed acceleration structure node
// as uploaded to the device. Build input must be a whole number of nodes.
const AccelNodeSize = 32

// accelAlign is the allocation granularity for acceleration memory sizes.
const accelAlign = 256

// AccelBuildDescriptor describes one acceleration structure build. The caller
// owns both device buffers: Dest outlives the build and backs the returned
// handle, Scratch is only needed while the build runs and may be released or
// reused as soon as BuildAccel returns.
type AccelBuildDescriptor struct {
	// Label identifies the structure in logs and error messages.
	Label string

	// Nodes is the packed node array to build from, AccelNodeSize bytes per
	// node.
	Nodes []byte

	// Dest is the output buffer the built structure lives in. Must be at
	// least AccelMemoryRequirements(...).OutputSize bytes.
	Dest Buffer

	// Scratch is the working memory for the build. Must be at least
	// AccelMemoryRequirements(...).ScratchSize bytes.
	Scratch Buffer
}

// AccelMemory reports the buffer sizes one acceleration build needs.
type AccelMemory struct {
	// OutputSize is the minimum size of the Dest buffer in bytes.
	OutputSize uint64

	// ScratchSize is the minimum size of the Scratch buffer in bytes.
	ScratchSize uint64
}

// AccelMemoryRequirements computes the output and scratch sizes for building
// an acceleration structure over the given node count. The formula is
// deterministic, so callers can size buffers ahead of the build and grow them
// monotonically across rebuilds.
//
// Parameters:
//   - nodeCount: the number of packed nodes in the build input
//
// Returns:
//   - AccelMemory: the required output and scratch sizes
func AccelMemoryRequirements(nodeCount uint32) AccelMemory {
	nodeBytes := uint64(nodeCount) * AccelNodeSize
	scratch := nodeBytes / 2
	if scratch < 512 {
		scratch = 512
	}
	return AccelMemory{
		OutputSize:  alignUp(nodeBytes, accelAlign),
		ScratchSize: alignUp(scratch, accelAlign),
	}
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) / align * align
}

// DeviceBackend is the backend interface for the Device. Validation, handle
// bookkeeping, and statistics live in the Device; the backend only moves data
// and talks to the native API.
type DeviceBackend interface {
	// CreateBuffer allocates a device buffer.
	//
	// Parameters:
	//   - desc: the buffer label, size, and usage flags
	//
	// Returns:
	//   - Buffer: the created buffer
	//   - error: an error if the native allocation fails
	CreateBuffer(desc *BufferDescriptor) (Buffer, error)

	// SubmitAccelBuild uploads the packed nodes of a validated build into the
	// descriptor's Dest buffer through the device queue.
	//
	// Parameters:
	//   - desc: the validated build descriptor
	//
	// Returns:
	//   - error: an error if the upload fails
	SubmitAccelBuild(desc *AccelBuildDescriptor) error

	// Sync blocks until the device has drained all queued work.
	Sync()

	// Release tears down the backend's native resources.
	Release()
}
