package mesh

import (
	"encoding/binary"
	"math"
	"unsafe"
)

const gpuVertexSize = 32

// GPUVertex is the GPU-aligned representation of a single mesh vertex in the
// ray tracing vertex buffers. Position and normal each pad out to a vec4 so
// the struct indexes cleanly from WGSL storage arrays.
// Size: 32 bytes (std430 aligned).
type GPUVertex struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	_        float32    // offset 12: padding to vec4 boundary (4 bytes)
	Normal   [3]float32 // offset 16: vertex normal for shading (12 bytes)
	_        float32    // offset 28: padding to vec4 boundary (4 bytes)
}

// Size returns the size of the GPUVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertex struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, gpuVertexSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Normal[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Normal[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.Normal[2]))
	return buf
}
