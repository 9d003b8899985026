package scene

import (
	"github.com/Hurleyworks/Cook/engine/renderable"
)

// NodeResource tracks every render-side resource held for one registered
// node. An entry exists in the handler's table exactly while the node is
// successfully added and not yet removed; its slots are valid allocator
// indices for that whole span.
type NodeResource struct {
	// Ref is the non-owning reference to the logical node. It may expire
	// while the entry is live; removal by ID still works then.
	Ref renderable.WeakRef

	// NodeID is the node's stable identifier and the table key.
	NodeID uint64

	// InstanceSlot indexes the double-buffered instance data arrays and the
	// light distribution. It doubles as the instance ID in the top-level
	// structure.
	InstanceSlot uint32

	// GeomInstSlot indexes the geometry-instance data array.
	GeomInstSlot uint32

	// GeometryHash keys the shared geometry record this node holds a
	// reference on.
	GeometryHash uint64

	// ListIndex is the node's current position in the top-level instance
	// list. It changes when another node's removal swaps the list.
	ListIndex uint32
}
