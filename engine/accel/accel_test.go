package accel

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/engine/gpu"
)

type testVolume struct {
	bounds common.AABB
}

func (v *testVolume) Bounds() common.AABB { return v.bounds }
func (v *testVolume) Center() common.Vec3 { return v.bounds.Center() }

func boxVolume(minCorner, maxCorner common.Vec3) *testVolume {
	return &testVolume{bounds: common.NewAABB(minCorner, maxCorner)}
}

// quadrantVolumes returns four unit boxes in separate XZ quadrants.
func quadrantVolumes() []Volume {
	return []Volume{
		boxVolume(common.Vec3{-2, 0, -2}, common.Vec3{-1, 1, -1}),
		boxVolume(common.Vec3{1, 0, -2}, common.Vec3{2, 1, -1}),
		boxVolume(common.Vec3{-2, 0, 1}, common.Vec3{-1, 1, 2}),
		boxVolume(common.Vec3{1, 0, 1}, common.Vec3{2, 1, 2}),
	}
}

// countingLeafCb returns a leaf callback that records call and item counts
// and assigns a linearized item range to every leaf.
func countingLeafCb(calls *int, items *int) LeafCallback {
	return func(leaf *Node, leafItems []Volume) {
		leaf.SetLeaf(uint32(*items), uint32(len(leafItems)))
		*calls++
		*items += len(leafItems)
	}
}

func TestBuildLeafCallback(t *testing.T) {
	volumes := quadrantVolumes()

	// One item per leaf: a full split down to four leaves under three inner nodes.
	calls, items := 0, 0
	nodes := NewBuilder(WithMaxLeafItems(1)).Build(volumes, countingLeafCb(&calls, &items))
	if calls != 4 {
		t.Fatalf("expected leaf callback to be called 4 times; called %d", calls)
	}
	if items != 4 {
		t.Fatalf("expected 4 items partitioned into leaves; got %d", items)
	}
	if len(nodes) != 7 {
		t.Fatalf("expected tree to have 7 nodes; got %d", len(nodes))
	}

	// Two items per leaf: one root split.
	calls, items = 0, 0
	nodes = NewBuilder(WithMaxLeafItems(2)).Build(volumes, countingLeafCb(&calls, &items))
	if calls != 2 {
		t.Fatalf("expected leaf callback to be called 2 times; called %d", calls)
	}
	if len(nodes) != 3 {
		t.Fatalf("expected tree to have 3 nodes; got %d", len(nodes))
	}
	for _, leaf := range []Node{nodes[1], nodes[2]} {
		if !leaf.IsLeaf() {
			t.Fatalf("expected both children of the root to be leaves")
		}
		if _, count := leaf.Leaf(); count != 2 {
			t.Fatalf("expected 2 items per leaf; got %d", count)
		}
	}
}

func TestBuildRootBounds(t *testing.T) {
	volumes := quadrantVolumes()
	calls, items := 0, 0
	nodes := NewBuilder(WithMaxLeafItems(1)).Build(volumes, countingLeafCb(&calls, &items))

	root := nodes[0].Bounds()
	want := common.NewAABB(common.Vec3{-2, 0, -2}, common.Vec3{2, 1, 2})
	if root.Min != want.Min || root.Max != want.Max {
		t.Fatalf("expected root bounds %v..%v; got %v..%v", want.Min, want.Max, root.Min, root.Max)
	}
}

func TestBuildSingleLeaf(t *testing.T) {
	volumes := []Volume{boxVolume(common.Vec3{0, 0, 0}, common.Vec3{1, 2, 3})}

	calls, items := 0, 0
	nodes := NewBuilder().Build(volumes, countingLeafCb(&calls, &items))
	if len(nodes) != 1 {
		t.Fatalf("expected a single node; got %d", len(nodes))
	}
	if !nodes[0].IsLeaf() {
		t.Fatalf("expected the single node to be a leaf")
	}
	first, count := nodes[0].Leaf()
	if first != 0 || count != 1 {
		t.Fatalf("expected leaf range 0..1; got first %d count %d", first, count)
	}
	b := nodes[0].Bounds()
	if b.Min != (common.Vec3{0, 0, 0}) || b.Max != (common.Vec3{1, 2, 3}) {
		t.Fatalf("expected leaf bounds to match the item; got %v..%v", b.Min, b.Max)
	}
}

func TestBuildEmpty(t *testing.T) {
	calls := 0
	nodes := NewBuilder().Build(nil, func(leaf *Node, items []Volume) {
		calls++
	})
	if nodes != nil {
		t.Fatalf("expected nil node list for empty input; got %d nodes", len(nodes))
	}
	if calls != 0 {
		t.Fatalf("expected no leaf callbacks for empty input; got %d", calls)
	}
}

func TestBuildNilCallbackPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected Build with a nil leaf callback to panic")
		}
	}()
	NewBuilder().Build(quadrantVolumes(), nil)
}

func TestBuildCoincidentCentroids(t *testing.T) {
	// Six identical boxes share a centroid, so no split can separate them.
	// The builder must settle for one oversized leaf instead of recursing.
	volumes := make([]Volume, 6)
	for i := range volumes {
		volumes[i] = boxVolume(common.Vec3{0, 0, 0}, common.Vec3{1, 1, 1})
	}

	calls, items := 0, 0
	nodes := NewBuilder(WithMaxLeafItems(4)).Build(volumes, countingLeafCb(&calls, &items))
	if len(nodes) != 1 {
		t.Fatalf("expected a single oversized leaf; got %d nodes", len(nodes))
	}
	if calls != 1 || items != 6 {
		t.Fatalf("expected one leaf holding all 6 items; got %d calls over %d items", calls, items)
	}
}

func TestBuildTreeInvariants(t *testing.T) {
	// A 4x4x4 grid of unit boxes with gaps, so every level has clean splits.
	volumes := make([]Volume, 0, 64)
	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			for z := 0; z < 4; z++ {
				base := common.Vec3{float32(x) * 3, float32(y) * 3, float32(z) * 3}
				volumes = append(volumes, boxVolume(base, base.Add(common.Vec3{1, 1, 1})))
			}
		}
	}

	var order []Volume
	nodes := NewBuilder(WithMaxLeafItems(2)).Build(volumes, func(leaf *Node, items []Volume) {
		leaf.SetLeaf(uint32(len(order)), uint32(len(items)))
		order = append(order, items...)
	})

	if len(order) != len(volumes) {
		t.Fatalf("expected all %d items linearized; got %d", len(volumes), len(order))
	}
	seen := make(map[Volume]bool, len(order))
	for _, item := range order {
		if seen[item] {
			t.Fatalf("expected each item to be assigned to exactly one leaf")
		}
		seen[item] = true
	}

	// Walk the tree: children in range, child bounds inside parent bounds,
	// leaf ranges covering the item order exactly once.
	covered := make([]bool, len(order))
	var walk func(index uint32)
	walk = func(index uint32) {
		if index >= uint32(len(nodes)) {
			t.Fatalf("expected node index below %d; got %d", len(nodes), index)
		}
		node := nodes[index]
		if node.IsLeaf() {
			first, count := node.Leaf()
			if count == 0 {
				t.Fatalf("expected every leaf to hold at least one item")
			}
			for i := first; i < first+count; i++ {
				if covered[i] {
					t.Fatalf("expected leaf ranges not to overlap; item %d covered twice", i)
				}
				covered[i] = true
			}
			return
		}
		left, right := node.Children()
		if left == 0 || right == 0 {
			t.Fatalf("expected inner node children to never point at the root")
		}
		for _, child := range []uint32{left, right} {
			cb := nodes[child].Bounds()
			pb := node.Bounds()
			if cb.Min[0] < pb.Min[0] || cb.Min[1] < pb.Min[1] || cb.Min[2] < pb.Min[2] ||
				cb.Max[0] > pb.Max[0] || cb.Max[1] > pb.Max[1] || cb.Max[2] > pb.Max[2] {
				t.Fatalf("expected child %d bounds %v..%v inside parent %v..%v",
					child, cb.Min, cb.Max, pb.Min, pb.Max)
			}
		}
		walk(left)
		walk(right)
	}
	walk(0)

	for i, ok := range covered {
		if !ok {
			t.Fatalf("expected leaf ranges to cover every item; item %d missing", i)
		}
	}
}

func TestBuildSeparatesClusters(t *testing.T) {
	// Two tight clusters far apart. The root split must put one cluster in
	// each subtree rather than mixing them.
	volumes := make([]Volume, 0, 8)
	for i := 0; i < 4; i++ {
		base := common.Vec3{float32(i), 0, 0}
		volumes = append(volumes, boxVolume(base, base.Add(common.Vec3{0.5, 0.5, 0.5})))
	}
	for i := 0; i < 4; i++ {
		base := common.Vec3{float32(i) + 100, 0, 0}
		volumes = append(volumes, boxVolume(base, base.Add(common.Vec3{0.5, 0.5, 0.5})))
	}

	calls, items := 0, 0
	nodes := NewBuilder(WithMaxLeafItems(4)).Build(volumes, countingLeafCb(&calls, &items))
	if len(nodes) != 3 {
		t.Fatalf("expected a root and two cluster leaves; got %d nodes", len(nodes))
	}

	left, right := nodes[0].Children()
	lb, rb := nodes[left].Bounds(), nodes[right].Bounds()
	if lb.Max[0] >= 100 {
		t.Fatalf("expected left subtree to hold only the near cluster; max x %v", lb.Max[0])
	}
	if rb.Min[0] < 100 {
		t.Fatalf("expected right subtree to hold only the far cluster; min x %v", rb.Min[0])
	}
}

func TestNodeEncoding(t *testing.T) {
	var n Node

	n.SetLeaf(0, 5)
	if !n.IsLeaf() {
		t.Fatalf("expected a leaf after SetLeaf, even for item index 0")
	}
	if first, count := n.Leaf(); first != 0 || count != 5 {
		t.Fatalf("expected leaf range 0..5; got first %d count %d", first, count)
	}

	n.SetLeaf(7, 3)
	if first, count := n.Leaf(); first != 7 || count != 3 {
		t.Fatalf("expected leaf range 7..10; got first %d count %d", first, count)
	}

	n.SetChildren(1, 2)
	if n.IsLeaf() {
		t.Fatalf("expected an inner node after SetChildren")
	}
	if left, right := n.Children(); left != 1 || right != 2 {
		t.Fatalf("expected children 1 and 2; got %d and %d", left, right)
	}

	b := common.NewAABB(common.Vec3{-1, -2, -3}, common.Vec3{4, 5, 6})
	n.SetBounds(b)
	if got := n.Bounds(); got.Min != b.Min || got.Max != b.Max {
		t.Fatalf("expected bounds to round-trip; got %v..%v", got.Min, got.Max)
	}
}

func TestNodeMarshal(t *testing.T) {
	var n Node
	n.SetBounds(common.NewAABB(common.Vec3{-1, 2, -3}, common.Vec3{4, -5, 6}))
	n.SetLeaf(2, 9)

	if n.Size() != gpu.AccelNodeSize {
		t.Fatalf("expected node size %d; got %d", gpu.AccelNodeSize, n.Size())
	}

	buf := n.Marshal()
	if len(buf) != gpu.AccelNodeSize {
		t.Fatalf("expected %d marshaled bytes; got %d", gpu.AccelNodeSize, len(buf))
	}

	f32At := func(off int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4]))
	}
	i32At := func(off int) int32 {
		return int32(binary.LittleEndian.Uint32(buf[off : off+4]))
	}

	if f32At(0) != -1 || f32At(4) != 2 || f32At(8) != -3 {
		t.Fatalf("expected min extent at offset 0; got %v %v %v", f32At(0), f32At(4), f32At(8))
	}
	if i32At(12) != -3 {
		t.Fatalf("expected LData -3 for first item 2; got %d", i32At(12))
	}
	if f32At(16) != 4 || f32At(20) != -5 || f32At(24) != 6 {
		t.Fatalf("expected max extent at offset 16; got %v %v %v", f32At(16), f32At(20), f32At(24))
	}
	if i32At(28) != 9 {
		t.Fatalf("expected RData 9; got %d", i32At(28))
	}
}

func TestMarshalNodes(t *testing.T) {
	if MarshalNodes(nil) != nil {
		t.Fatalf("expected nil payload for an empty node list")
	}

	nodes := make([]Node, 3)
	for i := range nodes {
		nodes[i].SetBounds(common.NewAABB(
			common.Vec3{float32(i), 0, 0},
			common.Vec3{float32(i) + 1, 1, 1},
		))
		nodes[i].SetLeaf(uint32(i), 1)
	}

	buf := MarshalNodes(nodes)
	if len(buf) != 3*gpu.AccelNodeSize {
		t.Fatalf("expected %d bytes; got %d", 3*gpu.AccelNodeSize, len(buf))
	}
	for i := range nodes {
		single := nodes[i].Marshal()
		start := i * gpu.AccelNodeSize
		for j, bb := range single {
			if buf[start+j] != bb {
				t.Fatalf("expected node %d bytes to match its own marshaling at offset %d", i, j)
			}
		}
	}
}
