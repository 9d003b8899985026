package mesh

// Surface is a contiguous group of triangles within a Mesh that shares one
// shading setup. Each surface gets its own triangle index buffer on the
// device and its own geometry record in the mesh's acceleration structure.
type Surface struct {
	// Name is the surface identifier (for debugging and buffer labels).
	Name string

	// Indices is the triangle index list, three entries per triangle,
	// referencing the parent mesh's vertex positions.
	Indices []uint32
}

// TriangleCount returns the number of whole triangles in the surface's
// index list.
//
// Returns:
//   - int: the triangle count
func (s *Surface) TriangleCount() int {
	return len(s.Indices) / 3
}

// Empty reports whether the surface contains no complete triangle.
//
// Returns:
//   - bool: true if the surface has fewer than three indices
func (s *Surface) Empty() bool {
	return len(s.Indices) < 3
}
