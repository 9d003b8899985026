package mesh

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"sync"

	"github.com/Hurleyworks/Cook/common"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	name           string
	positions      []common.Vec3
	normals        []common.Vec3
	surfaces       []Surface
	computeNormals bool

	hashOnce   sync.Once
	hash       uint64
	boundsOnce sync.Once
	bounds     common.AABB
}

// Mesh defines the interface for an immutable triangle mesh shared between
// scene nodes. A Mesh holds CPU-side positions, normals, and one or more
// indexed surfaces; the geometry cache turns it into GPU buffers and an
// acceleration structure keyed by ContentHash, so two meshes with identical
// content share one set of device resources.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Positions retrieves the vertex positions in model space.
	// The returned slice is shared; callers must not modify it.
	//
	// Returns:
	//   - []common.Vec3: the vertex positions
	Positions() []common.Vec3

	// Normals retrieves the per-vertex normals. The slice is empty when the
	// mesh was built without normals and without WithComputedNormals.
	//
	// Returns:
	//   - []common.Vec3: the vertex normals
	Normals() []common.Vec3

	// Surfaces retrieves the indexed surfaces of this mesh. Each surface
	// becomes one geometry record in the mesh's acceleration structure.
	//
	// Returns:
	//   - []Surface: the surfaces
	Surfaces() []Surface

	// VertexCount returns the number of vertices.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// TriangleCount returns the total number of triangles across all surfaces.
	//
	// Returns:
	//   - int: the triangle count
	TriangleCount() int

	// Bounds returns the axis-aligned bounding box of all vertex positions.
	// Computed on first call and cached.
	//
	// Returns:
	//   - common.AABB: the model-space bounds
	Bounds() common.AABB

	// ContentHash returns a digest over the vertex positions and surface
	// indices. Two meshes with equal content hash to the same value, which is
	// what lets the geometry cache share device resources between them.
	// Computed on first call and cached.
	//
	// Returns:
	//   - uint64: the content digest
	ContentHash() uint64

	// VertexBytes assembles the GPU vertex buffer contents: one GPUVertex
	// record per vertex, positions interleaved with normals. Missing normals
	// are written as zeros.
	//
	// Returns:
	//   - []byte: the packed vertex data ready for upload
	VertexBytes() []byte
}

var _ Mesh = &mesh{}

// NewMesh creates a new Mesh instance with the specified options applied.
// The mesh is immutable once built.
//
// Parameters:
//   - options: a variadic list of MeshBuilderOption functions to configure the Mesh
//
// Returns:
//   - Mesh: a new instance of Mesh configured with the provided options
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{}
	for _, opt := range options {
		opt(m)
	}
	if m.computeNormals && len(m.normals) == 0 {
		m.normals = smoothNormals(m.positions, m.surfaces)
	}
	return m
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Positions() []common.Vec3 {
	return m.positions
}

func (m *mesh) Normals() []common.Vec3 {
	return m.normals
}

func (m *mesh) Surfaces() []Surface {
	return m.surfaces
}

func (m *mesh) VertexCount() int {
	return len(m.positions)
}

func (m *mesh) TriangleCount() int {
	total := 0
	for i := range m.surfaces {
		total += m.surfaces[i].TriangleCount()
	}
	return total
}

func (m *mesh) Bounds() common.AABB {
	m.boundsOnce.Do(func() {
		box := common.EmptyAABB()
		for _, p := range m.positions {
			box = box.Include(p)
		}
		m.bounds = box
	})
	return m.bounds
}

func (m *mesh) ContentHash() uint64 {
	m.hashOnce.Do(func() {
		m.hash = m.computeContentHash()
	})
	return m.hash
}

// computeContentHash folds vertex count, triangle count, every position
// component, and every surface's index list into an FNV-1a digest. The full
// data is hashed rather than a sparse sample so meshes that differ only in a
// few vertices never collide into a shared geometry group.
func (m *mesh) computeContentHash() uint64 {
	h := fnv.New64a()
	var scratch [4]byte

	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(scratch[:], v)
		h.Write(scratch[:])
	}

	putU32(uint32(len(m.positions)))
	putU32(uint32(m.TriangleCount()))
	for _, p := range m.positions {
		putU32(math.Float32bits(p[0]))
		putU32(math.Float32bits(p[1]))
		putU32(math.Float32bits(p[2]))
	}
	for i := range m.surfaces {
		s := &m.surfaces[i]
		putU32(uint32(len(s.Indices)))
		for _, idx := range s.Indices {
			putU32(idx)
		}
	}
	return h.Sum64()
}

func (m *mesh) VertexBytes() []byte {
	buf := make([]byte, 0, len(m.positions)*gpuVertexSize)
	var v GPUVertex
	for i, p := range m.positions {
		v.Position = [3]float32{p[0], p[1], p[2]}
		if i < len(m.normals) {
			n := m.normals[i]
			v.Normal = [3]float32{n[0], n[1], n[2]}
		} else {
			v.Normal = [3]float32{}
		}
		buf = append(buf, v.Marshal()...)
	}
	return buf
}

// smoothNormals computes area-weighted vertex normals from the triangle
// surfaces. Cross products of unnormalized edges weight each face's
// contribution by its area, then the per-vertex sums are normalized.
func smoothNormals(positions []common.Vec3, surfaces []Surface) []common.Vec3 {
	normals := make([]common.Vec3, len(positions))
	for si := range surfaces {
		indices := surfaces[si].Indices
		for t := 0; t+2 < len(indices); t += 3 {
			i0, i1, i2 := indices[t], indices[t+1], indices[t+2]
			if int(i0) >= len(positions) || int(i1) >= len(positions) || int(i2) >= len(positions) {
				continue
			}
			e1 := positions[i1].Sub(positions[i0])
			e2 := positions[i2].Sub(positions[i0])
			face := e1.Cross(e2)
			normals[i0] = normals[i0].Add(face)
			normals[i1] = normals[i1].Add(face)
			normals[i2] = normals[i2].Add(face)
		}
	}
	for i := range normals {
		if l := normals[i].Len(); l > 0 {
			normals[i] = normals[i].Scale(1 / l)
		}
	}
	return normals
}
