package tlas

import (
	"encoding/binary"
	"math"
	"unsafe"
)

const gpuInstanceSize = 80

// GPUInstance is the device-resident instance descriptor consumed by the
// top-level structure build and the ray tracing kernels. The layout matches
// the 80-byte hardware instance descriptor format: a row-major 3x4 transform
// followed by the identification words and the referenced bottom-level
// structure handle.
// Size: 80 bytes (16-byte aligned).
type GPUInstance struct {
	Transform      [12]float32 // offset  0: world transform, three rows of four (48 bytes)
	InstanceID     uint32      // offset 48: caller-chosen identifier, reported by hit kernels (4 bytes)
	SBTOffset      uint32      // offset 52: first shader binding table record of this instance (4 bytes)
	VisibilityMask uint32      // offset 56: ray visibility mask, low 8 bits significant (4 bytes)
	Flags          uint32      // offset 60: instance flags (4 bytes)
	BlasHandle     uint64      // offset 64: traversable handle of the bottom-level structure (8 bytes)
	_              uint64      // offset 72: padding to 16-byte stride (8 bytes)
}

// Size returns the size of the GPUInstance struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer ready for GPU upload.
func (g *GPUInstance) Marshal() []byte {
	buf := make([]byte, gpuInstanceSize)
	for i, f := range g.Transform {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(f))
	}
	binary.LittleEndian.PutUint32(buf[48:52], g.InstanceID)
	binary.LittleEndian.PutUint32(buf[52:56], g.SBTOffset)
	binary.LittleEndian.PutUint32(buf[56:60], g.VisibilityMask)
	binary.LittleEndian.PutUint32(buf[60:64], g.Flags)
	binary.LittleEndian.PutUint64(buf[64:72], g.BlasHandle)
	return buf
}
