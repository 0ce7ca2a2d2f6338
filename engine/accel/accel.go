// Package accel builds bounding volume hierarchies over scene primitives and flattens them into the
// node layout the ray tracing kernel traverses.
package accel

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/image/math/f32"
)

// Axis indexes a coordinate axis.
type Axis int

const (
	XAxis Axis = iota
	YAxis
	ZAxis
)

// NoAxis marks a leaf, which has no split axis.
const NoAxis Axis = -1

func (a Axis) String() string {
	switch a {
	case XAxis:
		return "x"
	case YAxis:
		return "y"
	case ZAxis:
		return "z"
	default:
		return "none"
	}
}

// MaxPrimitives is the largest primitive count whose indices survive the f32 node encoding exactly.
const MaxPrimitives = 1 << 24

// FlatNodeSize is the size in bytes of one flattened node.
const FlatNodeSize = 32

// AABB is an axis-aligned box stored as {min, max}.
type AABB [2]mgl32.Vec3

// EmptyAABB returns a box that is the identity for Union.
func EmptyAABB() AABB {
	return AABB{
		{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32},
		{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32},
	}
}

// Union returns the smallest box containing b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{
		{min(b[0][0], o[0][0]), min(b[0][1], o[0][1]), min(b[0][2], o[0][2])},
		{max(b[1][0], o[1][0]), max(b[1][1], o[1][1]), max(b[1][2], o[1][2])},
	}
}

// Extend returns the smallest box containing b and p.
func (b AABB) Extend(p mgl32.Vec3) AABB {
	return b.Union(AABB{p, p})
}

// Centroid returns the center of the box. Halving before the sum keeps it finite for any finite box.
func (b AABB) Centroid() mgl32.Vec3 {
	return b[0].Mul(0.5).Add(b[1].Mul(0.5))
}

// Extent returns max - min.
func (b AABB) Extent() mgl32.Vec3 {
	return b[1].Sub(b[0])
}

// SurfaceArea returns the surface area of the box, or 0 for an empty box.
func (b AABB) SurfaceArea() float32 {
	d := b.Extent()
	if d[0] < 0 || d[1] < 0 || d[2] < 0 {
		return 0
	}
	return 2 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}

// LongestAxis returns the axis with the largest extent. Ties resolve to the lowest axis.
func (b AABB) LongestAxis() Axis {
	d := b.Extent()
	axis := XAxis
	if d[1] > d[axis] {
		axis = YAxis
	}
	if d[2] > d[axis] {
		axis = ZAxis
	}
	return axis
}

// Primitive is an opaque scene item with world-space bounds. The ID is carried into errors only;
// the tree refers to primitives by their position in the input slice.
type Primitive struct {
	ID     uint64
	Bounds AABB
}

// Node is a build-time tree node. The left child of an internal node is always the node that follows
// it; Right holds the index of the right child. Leaves reference PrimitiveIndices[First:First+Count].
type Node struct {
	Bounds AABB
	Axis   Axis
	First  uint32
	Count  uint32
	Right  uint32
}

// IsLeaf reports whether the node references primitives.
func (n Node) IsLeaf() bool {
	return n.Count > 0
}

// FlatNode is the GPU node layout: two vec4<f32>. Min.w holds the first primitive slot for leaves or
// the right child index for internal nodes; Max.w holds the primitive count, 0 for internal nodes.
type FlatNode struct {
	Min f32.Vec4
	Max f32.Vec4
}

// Stats describes one build.
type Stats struct {
	Primitives int
	Nodes      int
	Leafs      int
	MaxDepth   int
	Fallbacks  int
	Duration   time.Duration
}

// Tree is an immutable hierarchy in pre-order with the root at index 0.
type Tree struct {
	Nodes            []Node
	PrimitiveIndices []uint32
	Stats            Stats
}

// NodeCount returns the number of nodes in the tree.
func (t *Tree) NodeCount() int {
	return len(t.Nodes)
}

// Flatten converts the tree into the GPU node layout.
func (t *Tree) Flatten() []FlatNode {
	out := make([]FlatNode, len(t.Nodes))
	for i, n := range t.Nodes {
		w := float32(n.Right)
		if n.IsLeaf() {
			w = float32(n.First)
		}
		out[i] = FlatNode{
			Min: f32.Vec4{n.Bounds[0][0], n.Bounds[0][1], n.Bounds[0][2], w},
			Max: f32.Vec4{n.Bounds[1][0], n.Bounds[1][1], n.Bounds[1][2], float32(n.Count)},
		}
	}
	return out
}

// Bytes encodes the flattened nodes little-endian, FlatNodeSize bytes per node.
func (t *Tree) Bytes() []byte {
	flat := t.Flatten()
	buf := make([]byte, len(flat)*FlatNodeSize)
	for i, n := range flat {
		off := i * FlatNodeSize
		for j := 0; j < 4; j++ {
			binary.LittleEndian.PutUint32(buf[off+4*j:], math.Float32bits(n.Min[j]))
			binary.LittleEndian.PutUint32(buf[off+16+4*j:], math.Float32bits(n.Max[j]))
		}
	}
	return buf
}

// UploadBytes returns Bytes, or one zeroed node for an empty tree so the storage binding is never
// smaller than a node. The kernel is told the real node count separately.
func (t *Tree) UploadBytes() []byte {
	if len(t.Nodes) == 0 {
		return make([]byte, FlatNodeSize)
	}
	return t.Bytes()
}

// IndexBytes encodes PrimitiveIndices as little-endian u32.
func (t *Tree) IndexBytes() []byte {
	buf := make([]byte, 4*len(t.PrimitiveIndices))
	for i, v := range t.PrimitiveIndices {
		binary.LittleEndian.PutUint32(buf[4*i:], v)
	}
	return buf
}
