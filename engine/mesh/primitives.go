package mesh

import (
	"github.com/Hurleyworks/Cook/common"
)

// Cube builds an axis-aligned cube centered at the origin. Each face has its
// own four vertices so normals stay hard across edges. The cube carries a
// single surface holding all twelve triangles.
//
// Parameters:
//   - name: the mesh identifier
//   - edge: the cube edge length
//
// Returns:
//   - Mesh: the cube mesh
func Cube(name string, edge float32) Mesh {
	h := edge / 2

	// face order: +X, -X, +Y, -Y, +Z, -Z
	faceNormals := []common.Vec3{
		common.XYZ(1, 0, 0),
		common.XYZ(-1, 0, 0),
		common.XYZ(0, 1, 0),
		common.XYZ(0, -1, 0),
		common.XYZ(0, 0, 1),
		common.XYZ(0, 0, -1),
	}
	faceCorners := [][4]common.Vec3{
		{common.XYZ(h, -h, -h), common.XYZ(h, h, -h), common.XYZ(h, h, h), common.XYZ(h, -h, h)},
		{common.XYZ(-h, -h, h), common.XYZ(-h, h, h), common.XYZ(-h, h, -h), common.XYZ(-h, -h, -h)},
		{common.XYZ(-h, h, -h), common.XYZ(-h, h, h), common.XYZ(h, h, h), common.XYZ(h, h, -h)},
		{common.XYZ(-h, -h, h), common.XYZ(-h, -h, -h), common.XYZ(h, -h, -h), common.XYZ(h, -h, h)},
		{common.XYZ(-h, -h, h), common.XYZ(h, -h, h), common.XYZ(h, h, h), common.XYZ(-h, h, h)},
		{common.XYZ(h, -h, -h), common.XYZ(-h, -h, -h), common.XYZ(-h, h, -h), common.XYZ(h, h, -h)},
	}

	positions := make([]common.Vec3, 0, 24)
	normals := make([]common.Vec3, 0, 24)
	indices := make([]uint32, 0, 36)
	for f := 0; f < 6; f++ {
		base := uint32(len(positions))
		for c := 0; c < 4; c++ {
			positions = append(positions, faceCorners[f][c])
			normals = append(normals, faceNormals[f])
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}

	return NewMesh(
		WithName(name),
		WithPositions(positions),
		WithNormals(normals),
		WithSurface("faces", indices),
	)
}

// Plane builds a flat rectangle in the XZ plane facing +Y, centered at the
// origin. Useful as a ground plane or, combined with an emissive material, an
// area light.
//
// Parameters:
//   - name: the mesh identifier
//   - width: the extent along X
//   - depth: the extent along Z
//
// Returns:
//   - Mesh: the plane mesh
func Plane(name string, width, depth float32) Mesh {
	hw, hd := width/2, depth/2
	up := common.XYZ(0, 1, 0)

	positions := []common.Vec3{
		common.XYZ(-hw, 0, -hd),
		common.XYZ(-hw, 0, hd),
		common.XYZ(hw, 0, hd),
		common.XYZ(hw, 0, -hd),
	}
	normals := []common.Vec3{up, up, up, up}
	indices := []uint32{0, 1, 2, 0, 2, 3}

	return NewMesh(
		WithName(name),
		WithPositions(positions),
		WithNormals(normals),
		WithSurface("quad", indices),
	)
}
