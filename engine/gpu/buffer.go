package gpu

import (
	"errors"
	"sync/atomic"
)

// BufferUsage is a bitmask describing how a buffer may be used. The wgpu
// backend translates these to native usage flags; the null backend enforces
// the same rules against its in-memory shadow storage so tests exercise the
// identical validation paths.
type BufferUsage uint32

const (
	// BufferUsageStorage allows binding as a read/write storage buffer in shaders.
	BufferUsageStorage BufferUsage = 1 << iota

	// BufferUsageUniform allows binding as a uniform buffer in shaders.
	BufferUsageUniform

	// BufferUsageVertex allows binding as a vertex buffer.
	BufferUsageVertex

	// BufferUsageIndex allows binding as an index buffer.
	BufferUsageIndex

	// BufferUsageCopySrc allows the buffer to be the source of copy commands.
	// Required for Read.
	BufferUsageCopySrc

	// BufferUsageCopyDst allows the buffer to be the destination of copy and
	// queue write commands. Required for Write.
	BufferUsageCopyDst
)

// Buffer lifecycle and access errors.
var (
	// ErrBufferReleased is returned when accessing a buffer after Release.
	ErrBufferReleased = errors.New("gpu: buffer already released")

	// ErrOutOfRange is returned when a read or write extends past the buffer size.
	ErrOutOfRange = errors.New("gpu: access beyond buffer size")

	// ErrInvalidUsage is returned when a buffer's usage flags do not permit
	// the requested operation.
	ErrInvalidUsage = errors.New("gpu: buffer usage does not permit operation")

	// ErrMisaligned is returned when a read or write offset or size is not a
	// multiple of 4 bytes, which queue transfers require.
	ErrMisaligned = errors.New("gpu: offset and size must be 4-byte aligned")
)

// BufferDescriptor describes a device buffer to create.
type BufferDescriptor struct {
	// Label identifies the buffer in logs and native captures.
	Label string

	// Size is the buffer size in bytes.
	Size uint64

	// Usage is the set of allowed operations for this buffer.
	Usage BufferUsage
}

// Buffer is a handle to a device-resident allocation. Writes go through the
// device queue and land before any later queued work; reads block until the
// device has finished producing the requested range.
type Buffer interface {
	// ID returns the process-unique identifier for this buffer. Scene data
	// tables store buffer IDs rather than pointers, mirroring how device
	// addresses are recorded in GPU-visible structs.
	//
	// Returns:
	//   - uint64: the buffer identifier, stable for the buffer's lifetime
	ID() uint64

	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the buffer label
	Label() string

	// Size returns the buffer size in bytes.
	//
	// Returns:
	//   - uint64: the size in bytes
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	//
	// Returns:
	//   - BufferUsage: the usage bitmask
	Usage() BufferUsage

	// Write copies data into the buffer at the given byte offset. The buffer
	// must carry BufferUsageCopyDst, and offset and length must be 4-byte
	// aligned. The copy is ordered with respect to all other queue operations
	// on the owning device.
	//
	// Parameters:
	//   - offset: destination byte offset within the buffer
	//   - data: the bytes to copy
	//
	// Returns:
	//   - error: ErrBufferReleased, ErrInvalidUsage, ErrMisaligned, or
	//     ErrOutOfRange on failure
	Write(offset uint64, data []byte) error

	// Read copies len(dst) bytes out of the buffer starting at the given byte
	// offset, blocking until the device has flushed pending work. The buffer
	// must carry BufferUsageCopySrc, and offset and length must be 4-byte
	// aligned.
	//
	// Parameters:
	//   - offset: source byte offset within the buffer
	//   - dst: the destination slice; its length determines the read size
	//
	// Returns:
	//   - error: ErrBufferReleased, ErrInvalidUsage, ErrMisaligned, or
	//     ErrOutOfRange on failure
	Read(offset uint64, dst []byte) error

	// Release frees the device allocation. Further Write or Read calls fail
	// with ErrBufferReleased. Release is idempotent.
	Release()
}

// nextBufferID hands out process-unique buffer identifiers across all
// backends. ID 0 is never assigned so it can mean "no buffer" in GPU records.
var nextBufferID atomic.Uint64

func newBufferID() uint64 {
	return nextBufferID.Add(1)
}

// checkAccess validates a read or write against buffer usage, transfer
// alignment, and bounds. Both backends share it so the null backend rejects
// exactly what the native queue would.
func checkAccess(size, offset uint64, n int, usage, required BufferUsage) error {
	if usage&required == 0 {
		return ErrInvalidUsage
	}
	if offset%4 != 0 || n%4 != 0 {
		return ErrMisaligned
	}
	if offset+uint64(n) > size {
		return ErrOutOfRange
	}
	return nil
}
