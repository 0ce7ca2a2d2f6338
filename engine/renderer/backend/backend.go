// Package backend defines the device abstraction the renderer core is written against.
//
// The Device and Surface interfaces expose only the operations the resource manager, pipeline manager
// and frame passes need. NewWGPU provides the WebGPU implementation; package backendtest provides an
// in-memory implementation for tests.
package backend

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// Object is the common behaviour of every device-side handle.
type Object interface {
	// Label returns the debug label the object was created with.
	//
	// Returns:
	//   - string: the object's label
	Label() string

	// Release frees the device-side object. Using the handle after Release is undefined.
	Release()
}

// Buffer is a device buffer handle.
type Buffer interface {
	Object

	// Size returns the allocated size of the buffer in bytes.
	//
	// Returns:
	//   - uint64: the buffer size in bytes
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	//
	// Returns:
	//   - wgpu.BufferUsage: the usage flags
	Usage() wgpu.BufferUsage
}

// TextureView is a view onto a texture or a presentation surface image.
type TextureView interface {
	Label() string
}

// Texture is a 2D device texture handle with a default full view.
type Texture interface {
	Object

	// Width returns the texture width in texels.
	Width() uint32

	// Height returns the texture height in texels.
	Height() uint32

	// Format returns the texel format of the texture.
	Format() wgpu.TextureFormat

	// View returns the default view covering the whole texture.
	//
	// Returns:
	//   - TextureView: the default view
	View() TextureView
}

// Sampler is a device sampler handle.
type Sampler interface{ Object }

// ShaderModule is a compiled shader module handle.
type ShaderModule interface{ Object }

// BindGroupLayout is a binding-layout handle.
type BindGroupLayout interface{ Object }

// BindGroup is a bound resource set handle.
type BindGroup interface{ Object }

// RenderPipeline is a compiled render pipeline handle.
type RenderPipeline interface{ Object }

// ComputePipeline is a compiled compute pipeline handle.
type ComputePipeline interface{ Object }

// Limits is the subset of adapter limits the renderer checks at startup.
type Limits struct {
	MaxBindGroups                     uint32
	MaxStorageBuffersPerShaderStage   uint32
	MaxStorageTexturesPerShaderStage  uint32
	MaxComputeInvocationsPerWorkgroup uint32
	MaxComputeWorkgroupSizeX          uint32
	MaxComputeWorkgroupSizeY          uint32
	MaxTextureDimension2D             uint32
	MinUniformBufferOffsetAlignment   uint32
	MaxBufferSize                     uint64
}

// Feature names reported in Capabilities.Features.
const (
	FeatureTimestampQuery = "timestamp-query"
	FeatureShaderF16      = "shader-f16"
)

// Capabilities describes what the device supports.
type Capabilities struct {
	Limits   Limits
	Features []string
}

// HasFeature reports whether name is present in the feature list.
func (c Capabilities) HasFeature(name string) bool {
	for _, f := range c.Features {
		if f == name {
			return true
		}
	}
	return false
}

// Device is the device-object factory and command submission interface.
//
// All Create* methods either return a live object or an error; they never return a partially
// constructed handle.
type Device interface {
	// Capabilities returns the limits and optional features of the device.
	//
	// Returns:
	//   - Capabilities: the device capabilities
	Capabilities() Capabilities

	// CreateBuffer allocates a buffer.
	//
	// Parameters:
	//   - desc: the buffer descriptor
	//
	// Returns:
	//   - Buffer: the new buffer
	//   - error: an error if the allocation failed
	CreateBuffer(desc BufferDescriptor) (Buffer, error)

	// WriteBuffer enqueues a write of data into buf at offset on the device queue.
	//
	// Parameters:
	//   - buf: the destination buffer
	//   - offset: the destination offset in bytes
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if the write is out of range
	WriteBuffer(buf Buffer, offset uint64, data []byte) error

	// CreateTexture allocates a 2D texture and its default view.
	//
	// Parameters:
	//   - desc: the texture descriptor
	//
	// Returns:
	//   - Texture: the new texture
	//   - error: an error if the allocation failed
	CreateTexture(desc TextureDescriptor) (Texture, error)

	// CreateSampler creates a sampler.
	//
	// Parameters:
	//   - desc: the sampler descriptor
	//
	// Returns:
	//   - Sampler: the new sampler
	//   - error: an error if creation failed
	CreateSampler(desc SamplerDescriptor) (Sampler, error)

	// CreateShaderModule compiles WGSL source into a shader module.
	//
	// Parameters:
	//   - label: the debug label, usually the shader key
	//   - source: the WGSL source text
	//
	// Returns:
	//   - ShaderModule: the compiled module
	//   - error: an error carrying compiler diagnostics if compilation failed
	CreateShaderModule(label, source string) (ShaderModule, error)

	// CreateBindGroupLayout creates a binding layout.
	//
	// Parameters:
	//   - desc: the layout descriptor
	//
	// Returns:
	//   - BindGroupLayout: the new layout
	//   - error: an error if creation failed
	CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error)

	// CreateBindGroup creates a bind group against a layout.
	//
	// Parameters:
	//   - desc: the bind group descriptor
	//
	// Returns:
	//   - BindGroup: the new bind group
	//   - error: an error if creation failed
	CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error)

	// CreateRenderPipeline compiles a render pipeline.
	//
	// Parameters:
	//   - desc: the render pipeline descriptor
	//
	// Returns:
	//   - RenderPipeline: the compiled pipeline
	//   - error: an error if compilation or linking failed
	CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error)

	// CreateComputePipeline compiles a compute pipeline.
	//
	// Parameters:
	//   - desc: the compute pipeline descriptor
	//
	// Returns:
	//   - ComputePipeline: the compiled pipeline
	//   - error: an error if compilation or linking failed
	CreateComputePipeline(desc ComputePipelineDescriptor) (ComputePipeline, error)

	// CreateCommandEncoder begins recording a command list. The recorded commands are executed
	// in order once Submit is called on the encoder.
	//
	// Parameters:
	//   - label: the debug label
	//
	// Returns:
	//   - CommandEncoder: the recording encoder
	//   - error: an error if the encoder could not be created
	CreateCommandEncoder(label string) (CommandEncoder, error)

	// Release frees the device and its queue.
	Release()
}

// CommandEncoder records render and compute passes for a single queue submission.
type CommandEncoder interface {
	// BeginRenderPass starts a render pass. The pass must be ended before another pass begins.
	//
	// Parameters:
	//   - desc: the attachments and clear values for the pass
	//
	// Returns:
	//   - RenderPass: the recording pass
	BeginRenderPass(desc RenderPassDescriptor) RenderPass

	// BeginComputePass starts a compute pass.
	//
	// Parameters:
	//   - label: the debug label
	//
	// Returns:
	//   - ComputePass: the recording pass
	BeginComputePass(label string) ComputePass

	// Submit finishes recording and submits the command list to the queue. The encoder cannot be
	// reused afterwards.
	//
	// Returns:
	//   - error: an error if the command list could not be finished
	Submit() error

	// Discard abandons the recording without submitting it.
	Discard()
}

// RenderPass records draw commands.
type RenderPass interface {
	SetPipeline(p RenderPipeline)
	SetBindGroup(index uint32, group BindGroup)
	SetVertexBuffer(slot uint32, buf Buffer)
	SetIndexBuffer(buf Buffer)
	Draw(vertexCount, instanceCount uint32)
	DrawIndexed(indexCount, instanceCount uint32)

	// End closes the pass.
	//
	// Returns:
	//   - error: an error if the pass recorded invalid commands
	End() error
}

// ComputePass records dispatch commands.
type ComputePass interface {
	SetPipeline(p ComputePipeline)
	SetBindGroup(index uint32, group BindGroup)
	Dispatch(x, y, z uint32)

	// End closes the pass.
	//
	// Returns:
	//   - error: an error if the pass recorded invalid commands
	End() error
}

// Surface is the presentation target a frame is composited into.
type Surface interface {
	// Configure (re)configures the surface for the given pixel size.
	//
	// Parameters:
	//   - width: the surface width in pixels
	//   - height: the surface height in pixels
	//
	// Returns:
	//   - error: an error if configuration failed
	Configure(width, height uint32) error

	// Format returns the presentation texel format.
	Format() wgpu.TextureFormat

	// Acquire returns a view of the current frame image.
	//
	// Returns:
	//   - TextureView: the current frame image
	//   - error: an error if no image could be acquired
	Acquire() (TextureView, error)

	// Present presents the acquired frame image and releases it.
	//
	// Returns:
	//   - error: an error if nothing was acquired
	Present() error

	// Release frees the surface.
	Release()
}
