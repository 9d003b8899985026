// Package renderable defines the scene-facing node type and the registry that
// tracks nodes by stable integer ID. Nodes are referenced through
// generation-checked WeakRefs rather than owning pointers, so the caller's
// scene graph and the render-side bookkeeping have fully independent
// lifetimes.
package renderable

import (
	"sync/atomic"

	"github.com/Hurleyworks/Cook/engine/mesh"
)

type node struct {
	id              uint64
	name            string
	msh             mesh.Mesh
	transform       [16]float32
	sceneOwned      atomic.Bool
	visibilityMask  uint32
	lightImportance float32
	materialSlot    uint32
}

// Node is a renderable scene entity: a mesh plus a world transform and the
// per-instance shading parameters consumed when the node is registered with a
// scene handler. The world transform is a column-major 4x4 matrix.
type Node interface {
	// ID returns the node's unique identifier, or 0 if the node has never
	// been registered.
	//
	// Returns:
	//   - uint64: the node ID
	ID() uint64

	// Name returns the node's display name used in diagnostics.
	//
	// Returns:
	//   - string: the name, possibly empty
	Name() string

	// Mesh returns the Mesh associated with this node, or nil if not set.
	//
	// Returns:
	//   - mesh.Mesh: the associated mesh or nil
	Mesh() mesh.Mesh

	// WorldTransform returns the node's world transform.
	//
	// Returns:
	//   - [16]float32: column-major 4x4 world matrix
	WorldTransform() [16]float32

	// SceneOwned reports whether a scene handler currently holds render
	// resources for this node. The flag is set by the handler on a
	// successful add and cleared on removal.
	//
	// Returns:
	//   - bool: true while the node is registered with a scene
	SceneOwned() bool

	// VisibilityMask returns the 8-bit ray visibility mask for this node's
	// top-level instance.
	//
	// Returns:
	//   - uint32: the visibility mask (0xFF by default)
	VisibilityMask() uint32

	// LightImportance returns the node's weight in the emissive instance
	// distribution. Zero excludes the node from light sampling.
	//
	// Returns:
	//   - float32: the sampling weight
	LightImportance() float32

	// MaterialSlot returns the material table slot this node's surfaces
	// shade with. Slot 0 is the default material.
	//
	// Returns:
	//   - uint32: the material slot
	MaterialSlot() uint32

	// SetID sets the node's unique identifier.
	//
	// Parameters:
	//   - id: the ID to assign
	SetID(id uint64)

	// SetMesh assigns a Mesh to this node.
	//
	// Parameters:
	//   - m: the Mesh to associate
	SetMesh(m mesh.Mesh)

	// SetWorldTransform replaces the node's world transform.
	//
	// Parameters:
	//   - m: column-major 4x4 world matrix
	SetWorldTransform(m [16]float32)

	// SetSceneOwned sets the scene ownership flag.
	//
	// Parameters:
	//   - owned: true while a scene holds resources for this node
	SetSceneOwned(owned bool)

	// SetVisibilityMask sets the 8-bit ray visibility mask.
	//
	// Parameters:
	//   - mask: the visibility mask
	SetVisibilityMask(mask uint32)

	// SetLightImportance sets the node's emissive sampling weight.
	//
	// Parameters:
	//   - importance: the sampling weight, 0 to exclude
	SetLightImportance(importance float32)

	// SetMaterialSlot sets the material table slot for this node's surfaces.
	//
	// Parameters:
	//   - slot: the material slot
	SetMaterialSlot(slot uint32)
}

var _ Node = &node{}

// NewNode creates a new Node configured with the given options. The transform
// defaults to identity and the visibility mask to 0xFF.
//
// Parameters:
//   - options: functional options to configure the node
//
// Returns:
//   - Node: the newly created node
func NewNode(options ...NodeBuilderOption) Node {
	n := &node{
		transform: [16]float32{
			1, 0, 0, 0,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		},
		visibilityMask: 0xFF,
	}
	for _, option := range options {
		option(n)
	}
	return n
}

func (n *node) ID() uint64 {
	return n.id
}

func (n *node) Name() string {
	return n.name
}

func (n *node) Mesh() mesh.Mesh {
	return n.msh
}

func (n *node) WorldTransform() [16]float32 {
	return n.transform
}

func (n *node) SceneOwned() bool {
	return n.sceneOwned.Load()
}

func (n *node) VisibilityMask() uint32 {
	return n.visibilityMask
}

func (n *node) LightImportance() float32 {
	return n.lightImportance
}

func (n *node) MaterialSlot() uint32 {
	return n.materialSlot
}

func (n *node) SetID(id uint64) {
	n.id = id
}

func (n *node) SetMesh(m mesh.Mesh) {
	n.msh = m
}

func (n *node) SetWorldTransform(m [16]float32) {
	n.transform = m
}

func (n *node) SetSceneOwned(owned bool) {
	n.sceneOwned.Store(owned)
}

func (n *node) SetVisibilityMask(mask uint32) {
	n.visibilityMask = mask
}

func (n *node) SetLightImportance(importance float32) {
	n.lightImportance = importance
}

func (n *node) SetMaterialSlot(slot uint32) {
	n.materialSlot = slot
}
