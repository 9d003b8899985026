package accel

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/gpu"
)

// Node is one packed element of a bounding volume hierarchy as uploaded to
// the device. Each node carries its bounding box plus two data words whose
// meaning depends on the node kind:
//
//   - Inner nodes: LData and RData hold the indices of the left and right
//     child nodes. Both are strictly positive because the root always
//     occupies index 0.
//   - Leaf nodes: LData holds -(first+1) where first is the index of the
//     leaf's first item in the builder's linearized item order, and RData
//     holds the item count. The +1 bias keeps LData strictly negative even
//     for the first item, so the sign alone identifies the node kind.
//
// Size: 32 bytes (std430 aligned), matching gpu.AccelNodeSize.
type Node struct {
	Min   common.Vec3 // offset  0: bounding box min extent (12 bytes)
	LData int32       // offset 12: left child index or -(first item + 1) (4 bytes)
	Max   common.Vec3 // offset 16: bounding box max extent (12 bytes)
	RData int32       // offset 28: right child index or leaf item count (4 bytes)
}

// SetBounds stores the bounding box of the node.
func (n *Node) SetBounds(b common.AABB) {
	n.Min = b.Min
	n.Max = b.Max
}

// Bounds returns the bounding box of the node.
func (n *Node) Bounds() common.AABB {
	return common.AABB{Min: n.Min, Max: n.Max}
}

// SetChildren marks the node as an inner node pointing at the given left and
// right child indices.
func (n *Node) SetChildren(left, right uint32) {
	n.LData = int32(left)
	n.RData = int32(right)
}

// Children returns the left and right child indices of an inner node.
func (n *Node) Children() (left, right uint32) {
	return uint32(n.LData), uint32(n.RData)
}

// SetLeaf marks the node as a leaf spanning count items starting at first in
// the linearized item order.
func (n *Node) SetLeaf(first, count uint32) {
	n.LData = -(int32(first) + 1)
	n.RData = int32(count)
}

// Leaf returns the first item index and item count of a leaf node.
func (n *Node) Leaf() (first, count uint32) {
	return uint32(-n.LData - 1), uint32(n.RData)
}

// IsLeaf reports whether the node is a leaf.
func (n *Node) IsLeaf() bool {
	return n.LData < 0
}

// Size returns the size of the Node struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (n *Node) Size() int {
	return int(unsafe.Sizeof(*n))
}

// Marshal serializes the Node into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer ready for GPU upload.
func (n *Node) Marshal() []byte {
	buf := make([]byte, gpu.AccelNodeSize)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(n.Min[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(n.Min[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(n.Min[2]))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(n.LData))
	binary.LittleEndian.PutUint32(buf[16:20], math.Float32bits(n.Max[0]))
	binary.LittleEndian.PutUint32(buf[20:24], math.Float32bits(n.Max[1]))
	binary.LittleEndian.PutUint32(buf[24:28], math.Float32bits(n.Max[2]))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(n.RData))
	return buf
}

// MarshalNodes serializes a node list into the packed build input format
// consumed by gpu.Device.BuildAccel, gpu.AccelNodeSize bytes per node.
//
// Parameters:
//   - nodes: the node list to serialize
//
// Returns:
//   - []byte: the packed node array, or nil for an empty list.
func MarshalNodes(nodes []Node) []byte {
	if len(nodes) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(nodes)*gpu.AccelNodeSize)
	for i := range nodes {
		buf = append(buf, nodes[i].Marshal()...)
	}
	return buf
}
