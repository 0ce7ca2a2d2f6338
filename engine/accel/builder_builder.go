package accel

import (
	"runtime"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
)

// BuilderOption is a functional option used to configure a Builder during construction.
type BuilderOption func(*builder)

func defaultWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

// WithLeafSize sets the primitive count at or below which a node becomes a leaf.
//
// Parameters:
//   - n: the leaf threshold, at least 1
//
// Returns:
//   - BuilderOption: the option
func WithLeafSize(n int) BuilderOption {
	return func(b *builder) {
		b.leafSize = n
	}
}

// WithBuckets sets the number of SAH buckets.
//
// Parameters:
//   - n: the bucket count, at least 2
//
// Returns:
//   - BuilderOption: the option
func WithBuckets(n int) BuilderOption {
	return func(b *builder) {
		b.buckets = n
	}
}

// WithMaxDepth sets the depth at which nodes become leaves regardless of size.
//
// Parameters:
//   - n: the maximum depth, at least 1
//
// Returns:
//   - BuilderOption: the option
func WithMaxDepth(n int) BuilderOption {
	return func(b *builder) {
		b.maxDepth = n
	}
}

// WithWorkers sets the worker count used to prepare large inputs.
func WithWorkers(n int) BuilderOption {
	return func(b *builder) {
		b.workers = n
	}
}

// WithParallelThreshold sets the primitive count from which preparation is spread across workers.
func WithParallelThreshold(n int) BuilderOption {
	return func(b *builder) {
		b.parallelThreshold = n
	}
}

// WithLogger sets the logger that receives build statistics.
func WithLogger(logger log.Logger) BuilderOption {
	return func(b *builder) {
		b.logger = logger
	}
}
