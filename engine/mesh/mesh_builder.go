package mesh

import (
	"github.com/Hurleyworks/Cook/common"
)

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*mesh)

// WithName is an option builder that sets the name of the Mesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithPositions is an option builder that sets the vertex positions of the Mesh.
//
// Parameters:
//   - positions: the model-space vertex positions
//
// Returns:
//   - MeshBuilderOption: a function that applies the positions option to a mesh
func WithPositions(positions []common.Vec3) MeshBuilderOption {
	return func(m *mesh) {
		m.positions = positions
	}
}

// WithNormals is an option builder that sets the per-vertex normals of the Mesh.
//
// Parameters:
//   - normals: the vertex normals, parallel to the positions slice
//
// Returns:
//   - MeshBuilderOption: a function that applies the normals option to a mesh
func WithNormals(normals []common.Vec3) MeshBuilderOption {
	return func(m *mesh) {
		m.normals = normals
	}
}

// WithSurfaces is an option builder that sets the indexed surfaces of the Mesh.
//
// Parameters:
//   - surfaces: the surfaces to set
//
// Returns:
//   - MeshBuilderOption: a function that applies the surfaces option to a mesh
func WithSurfaces(surfaces ...Surface) MeshBuilderOption {
	return func(m *mesh) {
		m.surfaces = surfaces
	}
}

// WithSurface is an option builder that appends a single indexed surface to the Mesh.
//
// Parameters:
//   - name: the surface identifier
//   - indices: the triangle index list (three entries per triangle)
//
// Returns:
//   - MeshBuilderOption: a function that appends the surface to a mesh
func WithSurface(name string, indices []uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.surfaces = append(m.surfaces, Surface{Name: name, Indices: indices})
	}
}

// WithComputedNormals is an option builder that requests area-weighted smooth
// normals derived from the positions and surface indices. The computation runs
// after all other options are applied and only when no explicit normals were
// provided.
//
// Returns:
//   - MeshBuilderOption: a function that enables normal computation on a mesh
func WithComputedNormals() MeshBuilderOption {
	return func(m *mesh) {
		m.computeNormals = true
	}
}
