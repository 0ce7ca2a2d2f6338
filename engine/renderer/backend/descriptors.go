package backend

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferDescriptor describes a buffer allocation.
type BufferDescriptor struct {
	Label string
	Size  uint64
	Usage wgpu.BufferUsage
}

// TextureDescriptor describes a 2D texture allocation.
type TextureDescriptor struct {
	Label  string
	Width  uint32
	Height uint32
	Format wgpu.TextureFormat
	Usage  wgpu.TextureUsage
}

// SamplerDescriptor describes a sampler. Zero fields fall back to clamp-to-edge addressing and linear filtering.
type SamplerDescriptor struct {
	Label        string
	AddressModeU wgpu.AddressMode
	AddressModeV wgpu.AddressMode
	AddressModeW wgpu.AddressMode
	MagFilter    wgpu.FilterMode
	MinFilter    wgpu.FilterMode
	MipmapFilter wgpu.MipmapFilterMode
}

// BindGroupEntry binds exactly one of Buffer, View or Sampler at Binding.
type BindGroupEntry struct {
	Binding uint32
	Buffer  Buffer
	View    TextureView
	Sampler Sampler
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	Label   string
	Layout  BindGroupLayout
	Entries []BindGroupEntry
}

// ColorTarget describes one color attachment of a render pipeline.
type ColorTarget struct {
	Format    wgpu.TextureFormat
	Blend     *wgpu.BlendState
	WriteMask wgpu.ColorWriteMask
}

// RenderPipelineDescriptor describes a render pipeline. A DepthFormat of wgpu.TextureFormatUndefined disables depth testing.
type RenderPipelineDescriptor struct {
	Label              string
	Module             ShaderModule
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexLayouts      []wgpu.VertexBufferLayout
	ColorTargets       []ColorTarget
	DepthFormat        wgpu.TextureFormat
	DepthCompare       wgpu.CompareFunction
	DepthWrite         bool
	Topology           wgpu.PrimitiveTopology
	FrontFace          wgpu.FrontFace
	CullMode           wgpu.CullMode
	BindGroupLayouts   []BindGroupLayout
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	Label            string
	Module           ShaderModule
	EntryPoint       string
	BindGroupLayouts []BindGroupLayout
}

// ColorAttachment is one color target of a render pass. The attachment is always cleared to Clear and stored.
type ColorAttachment struct {
	View  TextureView
	Clear wgpu.Color
}

// DepthAttachment is the depth target of a render pass, cleared to ClearDepth.
type DepthAttachment struct {
	View       TextureView
	ClearDepth float32
}

// RenderPassDescriptor describes the attachments of a render pass.
type RenderPassDescriptor struct {
	Label            string
	ColorAttachments []ColorAttachment
	Depth            *DepthAttachment
}
