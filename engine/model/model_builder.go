package model

import (
	"github.com/Carmen-Shannon/oxy-hybrid/common"
)

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithVertices sets the mesh vertices and derives the bounding radius from them.
//
// Parameters:
//   - vertices: the mesh vertices
//
// Returns:
//   - ModelBuilderOption: a function that applies the vertex data to a model
func WithVertices(vertices []GPUVertex) ModelBuilderOption {
	return func(m *model) {
		m.vertexData = make([]byte, 0, len(vertices)*GPUVertexSize)
		m.boundingRadius = 0
		for i := range vertices {
			m.vertexData = append(m.vertexData, vertices[i].Marshal()...)
			m.boundingRadius = max(m.boundingRadius, vertices[i].Position.Len())
		}
		m.vertexCount = len(vertices)
	}
}

// WithIndices sets the triangle-list indices of the mesh.
//
// Parameters:
//   - indices: the vertex indices, three per triangle
//
// Returns:
//   - ModelBuilderOption: a function that applies the index data to a model
func WithIndices(indices []uint32) ModelBuilderOption {
	return func(m *model) {
		m.indexData = make([]byte, 4*len(indices))
		common.PutUint32s(m.indexData, 0, indices...)
		m.indexCount = len(indices)
	}
}
