package renderable

import (
	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/mesh"
)

// NodeBuilderOption is a functional option for configuring a Node during construction.
type NodeBuilderOption func(*node)

// WithName sets the display name of the Node.
//
// Parameters:
//   - name: the name used in diagnostics
//
// Returns:
//   - NodeBuilderOption: functional option to set the name
func WithName(name string) NodeBuilderOption {
	return func(n *node) {
		n.name = name
	}
}

// WithMesh sets the Mesh for this Node.
//
// Parameters:
//   - m: the Mesh to associate
//
// Returns:
//   - NodeBuilderOption: functional option to set the mesh
func WithMesh(m mesh.Mesh) NodeBuilderOption {
	return func(n *node) {
		n.msh = m
	}
}

// WithWorldTransform sets the initial world transform of the Node.
//
// Parameters:
//   - m: column-major 4x4 world matrix
//
// Returns:
//   - NodeBuilderOption: functional option to set the transform
func WithWorldTransform(m [16]float32) NodeBuilderOption {
	return func(n *node) {
		n.transform = m
	}
}

// WithPosition sets the initial world transform to a pure translation.
//
// Parameters:
//   - x: the x position
//   - y: the y position
//   - z: the z position
//
// Returns:
//   - NodeBuilderOption: functional option to set a translation transform
func WithPosition(x, y, z float32) NodeBuilderOption {
	return func(n *node) {
		var m [16]float32
		common.Identity(m[:])
		m[12], m[13], m[14] = x, y, z
		n.transform = m
	}
}

// WithVisibilityMask sets the 8-bit ray visibility mask of the Node.
//
// Parameters:
//   - mask: the visibility mask
//
// Returns:
//   - NodeBuilderOption: functional option to set the mask
func WithVisibilityMask(mask uint32) NodeBuilderOption {
	return func(n *node) {
		n.visibilityMask = mask
	}
}

// WithLightImportance sets the Node's weight in the emissive instance
// distribution.
//
// Parameters:
//   - importance: the sampling weight, 0 to exclude the node
//
// Returns:
//   - NodeBuilderOption: functional option to set the weight
func WithLightImportance(importance float32) NodeBuilderOption {
	return func(n *node) {
		n.lightImportance = importance
	}
}

// WithMaterialSlot sets the material table slot this Node's surfaces shade
// with.
//
// Parameters:
//   - slot: the material slot, 0 for the default material
//
// Returns:
//   - NodeBuilderOption: functional option to set the slot
func WithMaterialSlot(slot uint32) NodeBuilderOption {
	return func(n *node) {
		n.materialSlot = slot
	}
}
