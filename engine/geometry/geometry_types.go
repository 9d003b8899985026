package geometry

import (
	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/gpu"
)

// SurfaceRecord is the device-resident form of one mesh surface: its index
// buffer plus the surface's triangle range within the mesh. Triangle indices
// are global across the mesh's usable surfaces in declaration order, the same
// numbering the acceleration structure's leaf references use.
type SurfaceRecord struct {
	// Name is the surface identifier, unique within the mesh.
	Name string

	// IndexBuffer holds the surface's triangle indices, three uint32 per
	// triangle.
	IndexBuffer gpu.Buffer

	// FirstTriangle is the surface's starting index in the mesh's global
	// triangle numbering.
	FirstTriangle uint32

	// TriangleCount is the number of complete triangles in the surface.
	TriangleCount uint32
}

// Record is the shared device representation of one distinct mesh: the
// vertex buffer, per-surface index buffers, and the mesh's bottom-level
// acceleration structure. Records are owned by the Cache, shared between
// every node whose mesh carries the same content hash, and destroyed when
// the last reference is released. Callers treat a Record as read-only.
type Record struct {
	// Hash is the mesh content digest the record is keyed by.
	Hash uint64

	// VertexBuffer holds the packed vertex data shared by all surfaces.
	VertexBuffer gpu.Buffer

	// VertexCount is the number of vertices in VertexBuffer.
	VertexCount uint32

	// Surfaces lists the device-resident surfaces in mesh declaration order.
	Surfaces []SurfaceRecord

	// TriangleCount is the total triangle count across all surfaces.
	TriangleCount uint32

	// TriangleRefs maps acceleration structure leaf order back to global
	// triangle indices, one uint32 per triangle.
	TriangleRefs gpu.Buffer

	// Accel is the output memory the bottom-level structure lives in.
	Accel gpu.Buffer

	// Handle is the traversable handle of the built bottom-level structure.
	Handle gpu.TraversableHandle

	// Bounds is the model-space bounding box of the mesh.
	Bounds common.AABB

	// refs counts the nodes sharing this record. Only the cache's
	// GetOrCreate and Release entry points touch it.
	refs uint32
}

// SurfaceCount returns the number of device-resident surfaces.
func (r *Record) SurfaceCount() uint32 {
	return uint32(len(r.Surfaces))
}
