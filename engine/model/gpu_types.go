package model

import (
	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUVertexSize is the stride of GPUVertex in a vertex buffer.
const GPUVertexSize = 24

// GPUVertex is the standard raster vertex: position at offset 0, normal at offset 12.
type GPUVertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Marshal serializes the vertex into GPUVertexSize bytes.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (g *GPUVertex) Marshal() []byte {
	buf := make([]byte, GPUVertexSize)
	common.PutFloat32s(buf, 0, g.Position[0], g.Position[1], g.Position[2], g.Normal[0], g.Normal[1], g.Normal[2])
	return buf
}

// VertexLayout returns the vertex buffer layout matching GPUVertex.
//
// Returns:
//   - wgpu.VertexBufferLayout: the layout for vertex buffer slot 0
func VertexLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: GPUVertexSize,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
		},
	}
}
