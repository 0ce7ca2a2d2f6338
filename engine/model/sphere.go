package model

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sphere tessellates a unit UV sphere centred on the origin. Rings and segments are clamped to at
// least 2 and 3. Normals equal positions.
//
// Parameters:
//   - rings: the number of latitude bands
//   - segments: the number of longitude slices
//
// Returns:
//   - Model: the sphere mesh
func Sphere(rings, segments int) Model {
	rings = max(rings, 2)
	segments = max(segments, 3)

	vertices := make([]GPUVertex, 0, (rings+1)*(segments+1))
	for r := 0; r <= rings; r++ {
		theta := math.Pi * float64(r) / float64(rings)
		sinT, cosT := math.Sincos(theta)
		for s := 0; s <= segments; s++ {
			phi := 2 * math.Pi * float64(s) / float64(segments)
			sinP, cosP := math.Sincos(phi)
			p := mgl32.Vec3{float32(sinT * cosP), float32(cosT), float32(sinT * sinP)}
			vertices = append(vertices, GPUVertex{Position: p, Normal: p})
		}
	}

	indices := make([]uint32, 0, rings*segments*6)
	stride := uint32(segments + 1)
	for r := uint32(0); r < uint32(rings); r++ {
		for s := uint32(0); s < uint32(segments); s++ {
			a := r*stride + s
			b := a + stride
			indices = append(indices, a, a+1, b, b, a+1, b+1)
		}
	}

	return NewModel(
		WithName(fmt.Sprintf("sphere_%dx%d", rings, segments)),
		WithVertices(vertices),
		WithIndices(indices),
	)
}
