package accel

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/go-gl/mathgl/mgl32"
)

// Default build parameters.
const (
	DefaultLeafSize = 4
	DefaultBuckets  = 12
	DefaultMaxDepth = 32

	// defaultParallelThreshold is the primitive count below which preparation runs on the calling goroutine.
	defaultParallelThreshold = 4096
	prepChunkSize            = 1024
)

// Builder builds a Tree from a primitive list. Builds are deterministic: the same input always yields
// the same tree regardless of how preparation work is scheduled.
type Builder interface {
	// Build partitions primitives into a tree using binned SAH splits along the longest axis.
	//
	// Parameters:
	//   - primitives: the primitives to partition; the slice is not retained
	//
	// Returns:
	//   - *Tree: the built tree; zero primitives yield a tree with no nodes
	//   - error: a *common.ValidationError for inverted bounds or too many primitives
	Build(primitives []Primitive) (*Tree, error)

	// LeafSize returns the maximum number of primitives a leaf holds before depth runs out.
	LeafSize() int

	// Buckets returns the number of SAH buckets.
	Buckets() int

	// MaxDepth returns the depth at which nodes become leaves unconditionally.
	MaxDepth() int
}

// builder is the implementation of the Builder interface.
type builder struct {
	leafSize          int
	buckets           int
	maxDepth          int
	workers           int
	parallelThreshold int
	logger            log.Logger

	poolOnce *sync.Once
	pool     worker.DynamicWorkerPool
}

var _ Builder = &builder{}

// NewBuilder creates a Builder with the given options applied.
//
// Parameters:
//   - options: builder options
//
// Returns:
//   - Builder: the builder
//   - error: a *common.ConfigurationError if an option is out of range
func NewBuilder(options ...BuilderOption) (Builder, error) {
	b := &builder{
		leafSize:          DefaultLeafSize,
		buckets:           DefaultBuckets,
		maxDepth:          DefaultMaxDepth,
		workers:           defaultWorkers(),
		parallelThreshold: defaultParallelThreshold,
		logger:            log.New("accel"),
		poolOnce:          &sync.Once{},
	}
	for _, option := range options {
		option(b)
	}

	switch {
	case b.leafSize < 1:
		return nil, &common.ConfigurationError{Setting: "leaf-size", Reason: fmt.Sprintf("must be at least 1, got %d", b.leafSize)}
	case b.buckets < 2:
		return nil, &common.ConfigurationError{Setting: "buckets", Reason: fmt.Sprintf("must be at least 2, got %d", b.buckets)}
	case b.maxDepth < 1:
		return nil, &common.ConfigurationError{Setting: "max-depth", Reason: fmt.Sprintf("must be at least 1, got %d", b.maxDepth)}
	case b.workers < 1:
		return nil, &common.ConfigurationError{Setting: "workers", Reason: fmt.Sprintf("must be at least 1, got %d", b.workers)}
	}
	return b, nil
}

func (b *builder) LeafSize() int { return b.leafSize }
func (b *builder) Buckets() int  { return b.buckets }
func (b *builder) MaxDepth() int { return b.maxDepth }

// buildState holds the working arrays of one Build call.
type buildState struct {
	bounds    []AABB
	centroids []mgl32.Vec3
	indices   []uint32
	scratch   []uint32
	nodes     []Node
	stats     Stats

	bucketCounts []int
	bucketBounds []AABB
}

func (b *builder) Build(primitives []Primitive) (*Tree, error) {
	start := time.Now()
	n := len(primitives)
	if n > MaxPrimitives {
		return nil, &common.ValidationError{
			PrimitiveID: primitives[MaxPrimitives].ID,
			Reason:      fmt.Sprintf("%d primitives exceed the limit of %d", n, MaxPrimitives),
		}
	}

	s := &buildState{
		bounds:       make([]AABB, n),
		centroids:    make([]mgl32.Vec3, n),
		indices:      make([]uint32, n),
		scratch:      make([]uint32, n),
		bucketCounts: make([]int, b.buckets),
		bucketBounds: make([]AABB, b.buckets),
		stats:        Stats{Primitives: n},
	}
	if err := b.prepare(primitives, s); err != nil {
		return nil, err
	}

	if n > 0 {
		s.nodes = make([]Node, 0, 2*n/b.leafSize+1)
		b.partition(s, 0, n, 0)
	}

	s.stats.Nodes = len(s.nodes)
	s.stats.Duration = time.Since(start)
	b.logger.Debugf(
		"BVH build time: %d us, primitives: %d, nodes: %d, leafs: %d, maxDepth: %d, fallbacks: %d",
		s.stats.Duration.Microseconds(), n, s.stats.Nodes, s.stats.Leafs, s.stats.MaxDepth, s.stats.Fallbacks,
	)
	return &Tree{Nodes: s.nodes, PrimitiveIndices: s.indices, Stats: s.stats}, nil
}

// prepare validates bounds and fills bounds, centroids and the identity index array. Large inputs are
// split into chunks on the worker pool; each chunk writes only its own index range and reports its
// first invalid primitive, so the lowest failing index wins regardless of scheduling.
func (b *builder) prepare(primitives []Primitive, s *buildState) error {
	n := len(primitives)
	if n < b.parallelThreshold || b.workers == 1 {
		return prepareRange(primitives, s, 0, n)
	}

	b.poolOnce.Do(func() {
		b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	})

	chunks := (n + prepChunkSize - 1) / prepChunkSize
	errs := make([]error, chunks)
	var wg sync.WaitGroup
	for c := 0; c < chunks; c++ {
		lo := c * prepChunkSize
		hi := min(lo+prepChunkSize, n)
		id := c
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				errs[id] = prepareRange(primitives, s, lo, hi)
				return nil, errs[id]
			},
		})
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func prepareRange(primitives []Primitive, s *buildState, lo, hi int) error {
	for i := lo; i < hi; i++ {
		p := primitives[i]
		for axis := XAxis; axis <= ZAxis; axis++ {
			// Written as a negated <= so NaN bounds are rejected too.
			if !(p.Bounds[0][axis] <= p.Bounds[1][axis]) {
				return &common.ValidationError{
					PrimitiveID: p.ID,
					Reason: fmt.Sprintf("inverted bounds on axis %s: min %g > max %g",
						axis, p.Bounds[0][axis], p.Bounds[1][axis]),
				}
			}
		}
		s.bounds[i] = p.Bounds
		s.centroids[i] = p.Bounds.Centroid()
		s.indices[i] = uint32(i)
	}
	return nil
}

// partition builds the subtree over indices[lo:hi] and returns its node index. Nodes are appended in
// pre-order so the left child always directly follows its parent.
func (b *builder) partition(s *buildState, lo, hi, depth int) uint32 {
	s.stats.MaxDepth = max(s.stats.MaxDepth, depth)

	nodeIndex := uint32(len(s.nodes))
	s.nodes = append(s.nodes, Node{})

	bounds, centroidBounds := EmptyAABB(), EmptyAABB()
	for _, idx := range s.indices[lo:hi] {
		bounds = bounds.Union(s.bounds[idx])
		centroidBounds = centroidBounds.Extend(s.centroids[idx])
	}

	count := hi - lo
	if count <= b.leafSize || depth >= b.maxDepth {
		s.nodes[nodeIndex] = Node{Bounds: bounds, Axis: NoAxis, First: uint32(lo), Count: uint32(count)}
		s.stats.Leafs++
		return nodeIndex
	}

	axis := bounds.LongestAxis()
	mid := -1
	if centroidBounds.Extent()[axis] > 0 {
		mid = b.splitSAH(s, lo, hi, axis, centroidBounds)
	}
	if mid <= lo || mid >= hi {
		// Every centroid shares a coordinate on this axis, so rank order is the input order.
		mid = lo + count/2
		s.stats.Fallbacks++
	}

	b.partition(s, lo, mid, depth+1)
	right := b.partition(s, mid, hi, depth+1)
	s.nodes[nodeIndex] = Node{Bounds: bounds, Axis: axis, Right: right}
	return nodeIndex
}

// splitSAH bins centroids along axis, picks the cheapest bucket boundary and stably partitions
// indices[lo:hi] around it. It returns the first index of the right half.
func (b *builder) splitSAH(s *buildState, lo, hi int, axis Axis, centroidBounds AABB) int {
	k := b.buckets
	// Binning runs in float64 so subnormal extents and boxes near the float32 range stay finite.
	cmin := float64(centroidBounds[0][axis])
	extent := float64(centroidBounds[1][axis]) - cmin
	if !(extent > 0) || math.IsInf(extent, 0) {
		return -1
	}
	bucketOf := func(idx uint32) int {
		t := (float64(s.centroids[idx][axis]) - cmin) / extent
		return min(k-1, max(0, int(t*float64(k))))
	}

	for i := range k {
		s.bucketCounts[i] = 0
		s.bucketBounds[i] = EmptyAABB()
	}
	for _, idx := range s.indices[lo:hi] {
		bi := bucketOf(idx)
		s.bucketCounts[bi]++
		s.bucketBounds[bi] = s.bucketBounds[bi].Union(s.bounds[idx])
	}

	// Suffix sweep so each boundary is evaluated in O(1).
	rightCount := make([]int, k)
	rightArea := make([]float32, k)
	acc, accCount := EmptyAABB(), 0
	for i := k - 1; i > 0; i-- {
		acc = acc.Union(s.bucketBounds[i])
		accCount += s.bucketCounts[i]
		rightCount[i] = accCount
		rightArea[i] = acc.SurfaceArea()
	}

	best, bestCost := -1, float32(0)
	acc, accCount = EmptyAABB(), 0
	for i := 0; i < k-1; i++ {
		acc = acc.Union(s.bucketBounds[i])
		accCount += s.bucketCounts[i]
		rc := rightCount[i+1]
		if accCount == 0 || rc == 0 {
			continue
		}
		cost := float32(accCount)*acc.SurfaceArea() + float32(rc)*rightArea[i+1]
		if best < 0 || cost < bestCost {
			best, bestCost = i, cost
		}
	}
	if best < 0 {
		return -1
	}

	left, right := lo, 0
	for _, idx := range s.indices[lo:hi] {
		if bucketOf(idx) <= best {
			s.indices[left] = idx
			left++
		} else {
			s.scratch[right] = idx
			right++
		}
	}
	copy(s.indices[left:hi], s.scratch[:right])
	return left
}
