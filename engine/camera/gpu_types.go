package camera

import (
	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUSceneUniformSize is the size of the raster scene uniform in bytes.
const GPUSceneUniformSize = 80

// GPUSceneUniform is the raster pass scene uniform (bind group 0 of the gbuffer program).
// Layout: view_proj mat4x4<f32> at 0, camera_pos vec4<f32> at 64.
type GPUSceneUniform struct {
	ViewProj       mgl32.Mat4
	CameraPosition mgl32.Vec3
}

// SceneUniform captures the camera's current matrices for upload.
//
// Parameters:
//   - c: the camera
//
// Returns:
//   - GPUSceneUniform: the uniform contents
func SceneUniform(c Camera) GPUSceneUniform {
	return GPUSceneUniform{ViewProj: c.ViewProjection(), CameraPosition: c.Position()}
}

// Marshal serializes the uniform into a GPUSceneUniformSize byte buffer.
//
// Returns:
//   - []byte: the serialized bytes
func (g *GPUSceneUniform) Marshal() []byte {
	buf := make([]byte, GPUSceneUniformSize)
	off := common.PutMat4(buf, 0, g.ViewProj)
	common.PutFloat32s(buf, off, g.CameraPosition[0], g.CameraPosition[1], g.CameraPosition[2], 1)
	return buf
}
