package tlas

import (
	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/gpu"
)

// State describes where the top-level structure stands relative to its
// instance list.
type State int

const (
	// StateEmpty means no instances are registered and the handle is null.
	StateEmpty State = iota

	// StateDirty means the instance list changed since the last build; the
	// handle, if any, describes a stale structure.
	StateDirty

	// StateBuilt means the handle is live and consistent with the current
	// instance list.
	StateBuilt
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateDirty:
		return "dirty"
	case StateBuilt:
		return "built"
	}
	return "unknown"
}

// Instance is one placement of a bottom-level structure in the scene.
type Instance struct {
	// InstanceID is a caller-chosen identifier carried through to the
	// device descriptor and reported back by Unregister when a swap moves
	// the instance.
	InstanceID uint32

	// Transform is the world transform in row-major 3x4 layout.
	Transform [12]float32

	// Handle is the traversable handle of the instance's bottom-level
	// structure.
	Handle gpu.TraversableHandle

	// VisibilityMask gates which rays see the instance, low 8 bits
	// significant.
	VisibilityMask uint32

	// Flags holds the instance flag bits of the device descriptor.
	Flags uint32

	// SurfaceCount is the number of shader binding table records the
	// instance's geometry contributes. Per-instance table offsets are the
	// cumulative sums of these counts in list order.
	SurfaceCount uint32

	// LocalBounds is the model-space bounding box of the instance's
	// geometry. World bounds are derived from it at build time.
	LocalBounds common.AABB
}

// worldBounds returns the instance bounds in world space.
func (i *Instance) worldBounds() common.AABB {
	return i.LocalBounds.Transform(i.Transform)
}
