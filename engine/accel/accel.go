// Package accel builds the packed bounding volume hierarchies that back both
// levels of the ray tracing acceleration structure: per-mesh triangle trees
// and the top-level instance tree.
package accel

import (
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Hurleyworks/Cook/common"
	"github.com/Hurleyworks/Cook/log"
)

var logger = log.New("bvh")

const (
	// The builder will not place split candidates on an axis whose bounding
	// box side is shorter than this threshold.
	minSideLength float32 = 1e-3

	defaultMaxLeafItems = 4
	defaultSplitBuckets = 32

	// maxSplitBuckets keeps the candidate count of one partition step, at
	// most 3*(buckets-1), under the score queue size so SubmitTask never
	// blocks the partition loop.
	maxSplitBuckets = 64
	scoreQueueSize  = 256
)

// Volume is implemented by anything the builder can partition. Meshes
// contribute one Volume per triangle, the top-level instance list one per
// instance.
type Volume interface {
	// Bounds returns the axis-aligned bounding box of the volume.
	//
	// Returns:
	//   - common.AABB: the bounding box of the volume
	Bounds() common.AABB

	// Center returns the centroid the builder partitions by.
	//
	// Returns:
	//   - common.Vec3: the partitioning centroid of the volume
	Center() common.Vec3
}

// LeafCallback is invoked once for every leaf the builder creates, before the
// leaf is appended to the node list. The callback owns item assignment: it
// linearizes the leaf's items into the caller's ordered item list and records
// their range on the leaf with SetLeaf.
type LeafCallback func(leaf *Node, items []Volume)

// Builder constructs packed bounding volume hierarchies over sets of bounded
// volumes, scoring splits with the surface area heuristic.
type Builder interface {
	// Build partitions the given volumes into a hierarchy and returns the
	// packed node list, root first. The leaf callback is invoked for every
	// leaf and must not be nil. An empty volume list yields a nil node list.
	// Builds are serialized; concurrent callers block.
	//
	// Parameters:
	//   - volumes: the volumes to partition
	//   - leafCb: the callback that assigns items to each created leaf
	//
	// Returns:
	//   - []Node: the packed node list, or nil if volumes is empty
	Build(volumes []Volume, leafCb LeafCallback) []Node
}

type builder struct {
	mu *sync.Mutex

	maxLeafItems int
	splitBuckets int
	workers      int

	// pool manages a bounded set of reusable goroutines for split candidate
	// scoring. Workers persist across builds, avoiding per-build goroutine
	// spawn/teardown overhead.
	pool worker.DynamicWorkerPool

	// Per-build state, valid only while Build holds mu.
	nodes  []Node
	leafCb LeafCallback
	stats  buildStats
}

type buildStats struct {
	totalItems       int
	partitionedItems int
	inner            int
	leafs            int
	maxDepth         int
}

type splitCandidate struct {
	axis  int
	point float32

	leftCount, rightCount int
	score                 float32
}

// Ensure builder implements Builder interface.
var _ Builder = &builder{}

// NewBuilder creates a new Builder with the given options applied over the
// defaults: leaf size 4, 32 split buckets per axis, and one scoring worker
// per spare CPU.
//
// Parameters:
//   - options: functional options to further configure the builder
//
// Returns:
//   - Builder: the newly created builder
func NewBuilder(options ...BuilderOption) Builder {
	b := &builder{
		mu:           &sync.Mutex{},
		maxLeafItems: defaultMaxLeafItems,
		splitBuckets: defaultSplitBuckets,
		workers:      max(runtime.NumCPU()-1, 1),
	}

	for _, option := range options {
		option(b)
	}

	if b.maxLeafItems < 1 {
		b.maxLeafItems = 1
	}
	if b.splitBuckets < 2 {
		b.splitBuckets = 2
	} else if b.splitBuckets > maxSplitBuckets {
		b.splitBuckets = maxSplitBuckets
	}

	// Initialize the score pool after options so WithWorkers can override the default.
	// Queue size of 256 holds every candidate of one partition step with headroom.
	b.pool = worker.NewDynamicWorkerPool(b.workers, scoreQueueSize, 1*time.Second)

	return b
}

func (b *builder) Build(volumes []Volume, leafCb LeafCallback) []Node {
	if leafCb == nil {
		panic("accel: Build requires a non-nil leaf callback")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if len(volumes) == 0 {
		return nil
	}

	b.nodes = make([]Node, 0, 2*len(volumes))
	b.leafCb = leafCb
	b.stats = buildStats{totalItems: len(volumes)}

	start := time.Now()
	b.partition(volumes, 0)
	logger.Debugf(
		"built BVH over %d items: %d nodes (%d leafs), max depth %d, %d ms",
		b.stats.totalItems, len(b.nodes), b.stats.leafs, b.stats.maxDepth,
		time.Since(start).Milliseconds(),
	)

	nodes := b.nodes
	b.nodes = nil
	b.leafCb = nil
	return nodes
}

// partition recursively splits the item list and returns the index of the
// node it produced.
func (b *builder) partition(items []Volume, depth int) uint32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	bounds := common.EmptyAABB()
	for _, item := range items {
		bounds = bounds.Union(item.Bounds())
	}

	var node Node
	node.SetBounds(bounds)

	// Not enough items to be worth splitting.
	if len(items) <= b.maxLeafItems {
		return b.createLeaf(&node, items)
	}

	// A split has to beat the cost of leaving the node unpartitioned.
	bestScore := scorePartition(items)
	best := -1

	candidates := b.enumerateSplits(bounds)
	if len(candidates) > 0 {
		// Fan candidate scoring out across the pool. A WaitGroup provides the
		// barrier since pool.Wait blocks until workers idle-exit, which is
		// unsuitable mid-build.
		var wg sync.WaitGroup
		for i := range candidates {
			wg.Add(1)
			c := &candidates[i] // capture for closure
			b.pool.SubmitTask(worker.Task{
				ID: i,
				Do: func() (any, error) {
					defer wg.Done()
					c.leftCount, c.rightCount, c.score = scoreSplit(items, c.axis, c.point)
					return nil, nil
				},
			})
		}
		wg.Wait()

		for i := range candidates {
			if candidates[i].score < bestScore {
				bestScore = candidates[i].score
				best = i
			}
		}
	}

	// No candidate improves on the unpartitioned node. This also covers
	// degenerate item sets whose centroids coincide, where every split
	// leaves one side empty.
	if best < 0 {
		return b.createLeaf(&node, items)
	}

	chosen := candidates[best]
	left := make([]Volume, 0, chosen.leftCount)
	right := make([]Volume, 0, chosen.rightCount)
	for _, item := range items {
		if item.Center()[chosen.axis] < chosen.point {
			left = append(left, item)
		} else {
			right = append(right, item)
		}
	}

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, node)
	b.stats.inner++

	leftIndex := b.partition(left, depth+1)
	rightIndex := b.partition(right, depth+1)
	b.nodes[nodeIndex].SetChildren(leftIndex, rightIndex)

	return uint32(nodeIndex)
}

// enumerateSplits places evenly spaced split candidates strictly inside the
// node bounds on every axis wide enough to split.
func (b *builder) enumerateSplits(bounds common.AABB) []splitCandidate {
	size := bounds.Size()
	candidates := make([]splitCandidate, 0, 3*(b.splitBuckets-1))
	for axis := 0; axis < 3; axis++ {
		if size[axis] < minSideLength {
			continue
		}
		step := size[axis] / float32(b.splitBuckets)
		for i := 1; i < b.splitBuckets; i++ {
			candidates = append(candidates, splitCandidate{
				axis:  axis,
				point: bounds.Min[axis] + float32(i)*step,
			})
		}
	}
	return candidates
}

// createLeaf hands the node to the leaf callback for item assignment, then
// appends it and returns its index.
func (b *builder) createLeaf(node *Node, items []Volume) uint32 {
	b.leafCb(node, items)

	nodeIndex := len(b.nodes)
	b.nodes = append(b.nodes, *node)

	b.stats.leafs++
	b.stats.partitionedItems += len(items)

	return uint32(nodeIndex)
}

// scoreSplit computes the surface area heuristic cost of splitting items at
// point along axis: left count times left box area plus right count times
// right box area, lower is better. Splits that leave either side empty score
// the worst possible value so they are never selected.
func scoreSplit(items []Volume, axis int, point float32) (leftCount, rightCount int, score float32) {
	leftBounds := common.EmptyAABB()
	rightBounds := common.EmptyAABB()
	for _, item := range items {
		if item.Center()[axis] < point {
			leftCount++
			leftBounds = leftBounds.Union(item.Bounds())
		} else {
			rightCount++
			rightBounds = rightBounds.Union(item.Bounds())
		}
	}

	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	score = float32(leftCount)*halfArea(leftBounds) + float32(rightCount)*halfArea(rightBounds)
	return leftCount, rightCount, score
}

// scorePartition computes the surface area heuristic cost of keeping all
// items together in one node.
func scorePartition(items []Volume) float32 {
	if len(items) == 0 {
		return math.MaxFloat32
	}
	bounds := common.EmptyAABB()
	for _, item := range items {
		bounds = bounds.Union(item.Bounds())
	}
	return float32(len(items)) * halfArea(bounds)
}

// halfArea returns half the surface area of the box, the quantity the
// surface area heuristic weighs item counts by.
func halfArea(b common.AABB) float32 {
	d := b.Size()
	return d[0]*d[1] + d[1]*d[2] + d[0]*d[2]
}
