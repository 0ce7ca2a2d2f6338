// Package gbuffer manages the geometry-pass render targets.
package gbuffer

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// Texel formats of the G-buffer targets.
const (
	PositionFormat = wgpu.TextureFormatRGBA32Float
	NormalFormat   = wgpu.TextureFormatRGBA16Float
	AlbedoFormat   = wgpu.TextureFormatRGBA8Unorm
	DepthFormat    = wgpu.TextureFormatDepth24Plus
)

// Resource keys of the G-buffer targets.
const (
	PositionKey = "gbuffer.position"
	NormalKey   = "gbuffer.normal"
	AlbedoKey   = "gbuffer.albedo"
	DepthKey    = "gbuffer.depth"
)

// KeyPrefix is shared by every G-buffer resource key.
const KeyPrefix = "gbuffer."

// GBuffer holds the geometry-pass targets. The textures are owned by the resource manager and are only
// valid until Destroy or the next Create after a resize.
type GBuffer struct {
	Position backend.Texture
	Normal   backend.Texture
	Albedo   backend.Texture
	Depth    backend.Texture

	Width  uint32
	Height uint32
}

// Create allocates the G-buffer targets at the given size.
//
// Parameters:
//   - resources: the resource manager that will own the targets
//   - width: the target width in pixels
//   - height: the target height in pixels
//
// Returns:
//   - *GBuffer: the allocated targets
//   - error: a *common.ResourceCreationError if any target could not be created; targets created
//     before the failure are destroyed
func Create(resources resource.Manager, width, height uint32) (*GBuffer, error) {
	g := &GBuffer{Width: width, Height: height}
	targets := []struct {
		key    string
		format wgpu.TextureFormat
		dst    *backend.Texture
	}{
		{PositionKey, PositionFormat, &g.Position},
		{NormalKey, NormalFormat, &g.Normal},
		{AlbedoKey, AlbedoFormat, &g.Albedo},
		{DepthKey, DepthFormat, &g.Depth},
	}
	for _, target := range targets {
		usage := wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
		if target.format == DepthFormat {
			usage = wgpu.TextureUsageRenderAttachment
		}
		tex, err := resources.CreateTexture(target.key, backend.TextureDescriptor{
			Width:  width,
			Height: height,
			Format: target.format,
			Usage:  usage,
		})
		if err != nil {
			resources.DestroyPrefix(KeyPrefix)
			return nil, err
		}
		*target.dst = tex
	}
	return g, nil
}

// Destroy releases every target through the resource manager.
func (g *GBuffer) Destroy(resources resource.Manager) {
	for _, key := range []string{PositionKey, NormalKey, AlbedoKey, DepthKey} {
		resources.Destroy(key)
	}
	g.Position, g.Normal, g.Albedo, g.Depth = nil, nil, nil, nil
}

// ColorAttachments returns the color targets in location order. Every target clears to zero except
// albedo alpha, which clears to one.
func (g *GBuffer) ColorAttachments() []backend.ColorAttachment {
	return []backend.ColorAttachment{
		{View: g.Position.View(), Clear: wgpu.Color{}},
		{View: g.Normal.View(), Clear: wgpu.Color{}},
		{View: g.Albedo.View(), Clear: wgpu.Color{A: 1}},
	}
}

// DepthAttachment returns the depth target cleared to the far plane.
func (g *GBuffer) DepthAttachment() *backend.DepthAttachment {
	return &backend.DepthAttachment{View: g.Depth.View(), ClearDepth: 1}
}

// ColorTargets returns the pipeline color targets matching ColorAttachments.
func ColorTargets() []backend.ColorTarget {
	return []backend.ColorTarget{
		{Format: PositionFormat, WriteMask: wgpu.ColorWriteMaskAll},
		{Format: NormalFormat, WriteMask: wgpu.ColorWriteMaskAll},
		{Format: AlbedoFormat, WriteMask: wgpu.ColorWriteMaskAll},
	}
}
