// Package geometry caches the device-resident form of meshes. Each distinct
// mesh, keyed by content hash, gets one reference-counted Record holding its
// GPU buffers and bottom-level acceleration structure; nodes sharing a mesh
// share the record instead of rebuilding it.
package geometry

import (
	"errors"
	"fmt"

	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/accel"
	"github.com/Hurleyworks/Cook/engine/gpu"
	"github.com/Hurleyworks/Cook/engine/mesh"
	"github.com/Hurleyworks/Cook/log"
)

var logger = log.New("geometry")

// ErrNoUsableSurfaces is returned when a mesh carries no surface with at
// least one complete, in-range triangle.
var ErrNoUsableSurfaces = errors.New("geometry: mesh has no usable surfaces")

const defaultMaxLeafTriangles = 8

// Cache deduplicates device geometry by mesh content hash. The cache is
// driven from a single goroutine (the frame thread); it is not safe for
// concurrent use.
type Cache interface {
	// GetOrCreate returns the record for the mesh's content hash, building
	// the device buffers and bottom-level structure on first sight. On a hit
	// the record's reference count is incremented and created is false. A
	// failed create leaves no partial device state.
	//
	// Parameters:
	//   - m: the mesh to resolve
	//
	// Returns:
	//   - *Record: the shared record, owned by the cache
	//   - bool: true if this call built the record, false on a cache hit
	//   - error: ErrNoUsableSurfaces or a wrapped device failure
	GetOrCreate(m mesh.Mesh) (*Record, bool, error)

	// Release drops one reference to the record keyed by hash. When the
	// count reaches zero the record's device buffers and bottom-level
	// structure are destroyed and the entry is erased. Releasing an absent
	// hash is ignored.
	//
	// Parameters:
	//   - hash: the content hash whose reference to drop
	//
	// Returns:
	//   - bool: true if this call destroyed the record
	Release(hash uint64) bool

	// Lookup returns the record for a hash without touching its reference
	// count.
	//
	// Parameters:
	//   - hash: the content hash to look up
	//
	// Returns:
	//   - *Record: the record, or nil
	//   - bool: whether the hash is cached
	Lookup(hash uint64) (*Record, bool)

	// RefCount reports the reference count for a hash, zero if absent.
	//
	// Parameters:
	//   - hash: the content hash to query
	//
	// Returns:
	//   - uint32: the current reference count
	RefCount(hash uint64) uint32

	// Count returns the number of distinct cached records.
	//
	// Returns:
	//   - int: the record count
	Count() int

	// Clear destroys every cached record regardless of outstanding
	// references. Intended for teardown after all nodes are removed; records
	// still referenced are logged and destroyed anyway.
	Clear()
}

// cache is the implementation of the Cache interface.
type cache struct {
	device  gpu.Device
	builder accel.Builder
	records map[uint64]*Record

	maxLeafTriangles int
}

// triangleVolume adapts one mesh triangle to the acceleration builder.
type triangleVolume struct {
	bounds common.AABB
	index  uint32 // global triangle index within the mesh
}

func (v *triangleVolume) Bounds() common.AABB { return v.bounds }
func (v *triangleVolume) Center() common.Vec3 { return v.bounds.Center() }

// Ensure cache implements Cache interface.
var _ Cache = &cache{}

// NewCache creates a new Cache building on the given device. NewCache panics
// if the device is nil.
//
// Parameters:
//   - device: the device that owns the cached buffers and structures (must not be nil)
//   - options: functional options to further configure the cache
//
// Returns:
//   - Cache: the newly created cache
func NewCache(device gpu.Device, options ...CacheBuilderOption) Cache {
	if device == nil {
		panic("geometry: NewCache requires a non-nil Device")
	}

	c := &cache{
		device:           device,
		records:          make(map[uint64]*Record),
		maxLeafTriangles: defaultMaxLeafTriangles,
	}

	for _, option := range options {
		option(c)
	}

	c.builder = accel.NewBuilder(accel.WithMaxLeafItems(c.maxLeafTriangles))

	return c
}

func (c *cache) GetOrCreate(m mesh.Mesh) (*Record, bool, error) {
	if m == nil {
		return nil, false, fmt.Errorf("geometry: nil mesh")
	}

	hash := m.ContentHash()
	if rec, ok := c.records[hash]; ok {
		rec.refs++
		logger.Debugf("geometry %q: cache hit for %016x, refs %d", m.Name(), hash, rec.refs)
		return rec, false, nil
	}

	rec, err := c.create(m, hash)
	if err != nil {
		return nil, false, err
	}
	rec.refs = 1
	c.records[hash] = rec
	return rec, true, nil
}

func (c *cache) Release(hash uint64) bool {
	rec, ok := c.records[hash]
	if !ok {
		return false
	}

	rec.refs--
	if rec.refs > 0 {
		return false
	}

	c.destroy(rec)
	delete(c.records, hash)
	return true
}

func (c *cache) Lookup(hash uint64) (*Record, bool) {
	rec, ok := c.records[hash]
	return rec, ok
}

func (c *cache) RefCount(hash uint64) uint32 {
	rec, ok := c.records[hash]
	if !ok {
		return 0
	}
	return rec.refs
}

func (c *cache) Count() int {
	return len(c.records)
}

func (c *cache) Clear() {
	for hash, rec := range c.records {
		if rec.refs > 0 {
			logger.Warningf("geometry %016x destroyed with %d outstanding references", hash, rec.refs)
		}
		c.destroy(rec)
		delete(c.records, hash)
	}
}

// create builds the full device representation of a mesh: vertex buffer,
// per-surface index buffers, leaf reference buffer, and the bottom-level
// acceleration structure. Build scratch is released as soon as the build
// call returns. Any failure unwinds every allocation made so far, so a
// failed create leaves no partial state.
func (c *cache) create(m mesh.Mesh, hash uint64) (*Record, error) {
	name := m.Name()

	usable := usableSurfaces(m)
	if len(usable) == 0 {
		return nil, fmt.Errorf("geometry %q: %w", name, ErrNoUsableSurfaces)
	}

	rec := &Record{
		Hash:        hash,
		VertexCount: uint32(m.VertexCount()),
		Bounds:      m.Bounds(),
	}

	var created []gpu.Buffer
	fail := func(stage string, err error) (*Record, error) {
		for i := len(created) - 1; i >= 0; i-- {
			created[i].Release()
		}
		return nil, fmt.Errorf("geometry %q: %s: %w", name, stage, err)
	}

	dataUsage := gpu.BufferUsageStorage | gpu.BufferUsageCopyDst | gpu.BufferUsageCopySrc

	vertexBytes := m.VertexBytes()
	vb, err := c.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: name + " vertices",
		Size:  uint64(len(vertexBytes)),
		Usage: dataUsage,
	})
	if err != nil {
		return fail("create vertex buffer", err)
	}
	created = append(created, vb)
	if err := vb.Write(0, vertexBytes); err != nil {
		return fail("upload vertices", err)
	}
	rec.VertexBuffer = vb

	positions := m.Positions()
	volumes := make([]accel.Volume, 0, m.TriangleCount())
	firstTriangle := uint32(0)
	for si := range usable {
		surf := &usable[si]
		triCount := uint32(surf.TriangleCount())
		indices := surf.Indices[:triCount*3]

		ib, err := c.device.CreateBuffer(&gpu.BufferDescriptor{
			Label: name + "/" + surf.Name + " indices",
			Size:  uint64(len(indices)) * 4,
			Usage: dataUsage,
		})
		if err != nil {
			return fail("create index buffer", err)
		}
		created = append(created, ib)
		if err := ib.Write(0, common.SliceToBytes(indices)); err != nil {
			return fail("upload indices", err)
		}

		rec.Surfaces = append(rec.Surfaces, SurfaceRecord{
			Name:          surf.Name,
			IndexBuffer:   ib,
			FirstTriangle: firstTriangle,
			TriangleCount: triCount,
		})

		for t := uint32(0); t < triCount; t++ {
			i0, i1, i2 := indices[t*3], indices[t*3+1], indices[t*3+2]
			b := common.EmptyAABB().
				Include(positions[i0]).
				Include(positions[i1]).
				Include(positions[i2])
			volumes = append(volumes, &triangleVolume{bounds: b, index: firstTriangle + t})
		}
		firstTriangle += triCount
	}
	rec.TriangleCount = firstTriangle

	// Build the triangle hierarchy. Leaves linearize their triangles into
	// the order the leaf reference buffer is uploaded in.
	order := make([]uint32, 0, firstTriangle)
	nodes := c.builder.Build(volumes, func(leaf *accel.Node, items []accel.Volume) {
		leaf.SetLeaf(uint32(len(order)), uint32(len(items)))
		for _, item := range items {
			order = append(order, item.(*triangleVolume).index)
		}
	})

	refs, err := c.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: name + " leaf refs",
		Size:  uint64(len(order)) * 4,
		Usage: dataUsage,
	})
	if err != nil {
		return fail("create leaf reference buffer", err)
	}
	created = append(created, refs)
	if err := refs.Write(0, common.SliceToBytes(order)); err != nil {
		return fail("upload leaf references", err)
	}
	rec.TriangleRefs = refs

	payload := accel.MarshalNodes(nodes)
	mem := gpu.AccelMemoryRequirements(uint32(len(nodes)))
	dest, err := c.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: name + " blas",
		Size:  mem.OutputSize,
		Usage: dataUsage,
	})
	if err != nil {
		return fail("create blas output", err)
	}
	created = append(created, dest)

	scratch, err := c.device.CreateBuffer(&gpu.BufferDescriptor{
		Label: name + " blas scratch",
		Size:  mem.ScratchSize,
		Usage: gpu.BufferUsageStorage | gpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fail("create blas scratch", err)
	}

	handle, err := c.device.BuildAccel(&gpu.AccelBuildDescriptor{
		Label:   name,
		Nodes:   payload,
		Dest:    dest,
		Scratch: scratch,
	})
	// Scratch lifetime ends when the build call returns.
	scratch.Release()
	if err != nil {
		return fail("build blas", err)
	}
	rec.Accel = dest
	rec.Handle = handle

	logger.Debugf("geometry %q: built %016x, %d vertices, %d triangles, %d surfaces, handle %d",
		name, hash, rec.VertexCount, rec.TriangleCount, len(rec.Surfaces), handle)
	return rec, nil
}

// destroy releases a record's device resources in reverse creation order.
func (c *cache) destroy(rec *Record) {
	c.device.DestroyAccel(rec.Handle)
	rec.Accel.Release()
	rec.TriangleRefs.Release()
	for i := len(rec.Surfaces) - 1; i >= 0; i-- {
		rec.Surfaces[i].IndexBuffer.Release()
	}
	rec.VertexBuffer.Release()
	logger.Debugf("geometry %016x destroyed", rec.Hash)
}

// usableSurfaces filters a mesh's surfaces down to those with at least one
// complete triangle whose indices are all in vertex range. Surfaces with out
// of range indices are dropped with a warning rather than failing the mesh.
func usableSurfaces(m mesh.Mesh) []mesh.Surface {
	vertexCount := uint32(m.VertexCount())
	var usable []mesh.Surface
	for _, surf := range m.Surfaces() {
		if surf.Empty() {
			continue
		}
		inRange := true
		for _, idx := range surf.Indices[:surf.TriangleCount()*3] {
			if idx >= vertexCount {
				inRange = false
				break
			}
		}
		if !inRange {
			logger.Warningf("geometry %q: surface %q indexes outside the vertex range, skipping", m.Name(), surf.Name)
			continue
		}
		usable = append(usable, surf)
	}
	return usable
}
