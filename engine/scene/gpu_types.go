package scene

import (
	"encoding/binary"
	"math"
	"unsafe"
)

const (
	gpuMaterialSize     = 48
	gpuGeomInstanceSize = 32
	gpuInstanceDataSize = 192
)

// GPUMaterial is the GPU-aligned representation of one material table slot.
// Size: 48 bytes (std430 aligned).
type GPUMaterial struct {
	BaseColor     [4]float32 // offset  0: albedo RGBA (16 bytes)
	Metallic      float32    // offset 16: metallic factor (4 bytes)
	Roughness     float32    // offset 20: roughness factor (4 bytes)
	IOR           float32    // offset 24: index of refraction (4 bytes)
	_             uint32     // offset 28: padding to vec4 boundary (4 bytes)
	Emission      [3]float32 // offset 32: emitted radiance RGB (12 bytes)
	EmissiveScale float32    // offset 44: emission multiplier (4 bytes)
}

// Size returns the size of the GPUMaterial struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUMaterial) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMaterial struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 48-byte buffer ready for GPU upload.
func (g *GPUMaterial) Marshal() []byte {
	buf := make([]byte, gpuMaterialSize)
	for i, v := range g.BaseColor {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(g.Metallic))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(g.Roughness))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(g.IOR))
	for i, v := range g.Emission {
		binary.LittleEndian.PutUint32(buf[32+i*4:32+i*4+4], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[44:48], math.Float32bits(g.EmissiveScale))
	return buf
}

// GPUGeometryInstance is the GPU-aligned record behind one geometry-instance
// slot. Buffer IDs stand in for device addresses; the kernel side resolves
// them through its binding table.
// Size: 32 bytes (std430 aligned).
type GPUGeometryInstance struct {
	VertexBufferID uint64 // offset  0: ID of the shared vertex buffer (8 bytes)
	IndexBufferID  uint64 // offset  8: ID of the surface index buffer (8 bytes)
	TriangleCount  uint32 // offset 16: triangles across the whole mesh (4 bytes)
	MaterialSlot   uint32 // offset 20: material table slot (4 bytes)
	GeomInstSlot   uint32 // offset 24: this record's own slot (4 bytes)
	_              uint32 // offset 28: padding (4 bytes)
}

// Size returns the size of the GPUGeometryInstance struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUGeometryInstance) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUGeometryInstance struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (g *GPUGeometryInstance) Marshal() []byte {
	buf := make([]byte, gpuGeomInstanceSize)
	binary.LittleEndian.PutUint64(buf[0:8], g.VertexBufferID)
	binary.LittleEndian.PutUint64(buf[8:16], g.IndexBufferID)
	binary.LittleEndian.PutUint32(buf[16:20], g.TriangleCount)
	binary.LittleEndian.PutUint32(buf[20:24], g.MaterialSlot)
	binary.LittleEndian.PutUint32(buf[24:28], g.GeomInstSlot)
	return buf
}

// GPUInstanceData is the GPU-aligned per-instance record read by the ray
// tracing kernel, one per instance slot in the double-buffered instance data
// arrays. Matrices are column-major; the normal matrix is the
// inverse-transpose upper 3x3 padded to three vec4 rows.
// Size: 192 bytes (std430 aligned).
type GPUInstanceData struct {
	Transform     [16]float32 // offset   0: current world transform (64 bytes)
	CurToPrev     [16]float32 // offset  64: motion transform to the previous frame (64 bytes)
	NormalMatrix  [12]float32 // offset 128: inverse-transpose 3x3, vec4-padded rows (48 bytes)
	UniformScale  float32     // offset 176: uniform scale factor (4 bytes)
	IsEmissive    uint32      // offset 180: 1 if the instance carries emissive surfaces (4 bytes)
	EmissiveScale float32     // offset 184: emission multiplier (4 bytes)
	_             uint32      // offset 188: padding (4 bytes)
}

// Size returns the size of the GPUInstanceData struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUInstanceData) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUInstanceData struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 192-byte buffer ready for GPU upload.
func (g *GPUInstanceData) Marshal() []byte {
	buf := make([]byte, gpuInstanceDataSize)
	for i, v := range g.Transform {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	for i, v := range g.CurToPrev {
		binary.LittleEndian.PutUint32(buf[64+i*4:64+i*4+4], math.Float32bits(v))
	}
	for i, v := range g.NormalMatrix {
		binary.LittleEndian.PutUint32(buf[128+i*4:128+i*4+4], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[176:180], math.Float32bits(g.UniformScale))
	binary.LittleEndian.PutUint32(buf[180:184], g.IsEmissive)
	binary.LittleEndian.PutUint32(buf[184:188], math.Float32bits(g.EmissiveScale))
	return buf
}
