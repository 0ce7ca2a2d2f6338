package pass

import (
	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/gbuffer"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Composition pass resource names.
const (
	CompositionPipelineName = "composition"
	CompositionLayoutName   = "composition"

	BlendUniformKey     = "composition.blend"
	CompositionGroupKey = "composition.group"
)

// Bindings of the composition program, all in group 0.
const (
	BindingSampler   = 0
	BindingNormal    = 1
	BindingAlbedo    = 2
	BindingRaytraced = 3
	BindingBlend     = 4
)

// BlendUniformSize is the size of the blend uniform: params vec4 with the factor in x.
const BlendUniformSize = 16

// DefaultBlend weights raster and ray traced images equally.
const DefaultBlend = 0.5

type compositionPass struct {
	resources resource.Manager
	pipelines pipeline.Manager

	format   wgpu.TextureFormat
	blend    float32
	provider bind_group_provider.BindGroupProvider
}

// CompositionPass draws a full-screen triangle that mixes the shaded G-buffer with the ray traced
// image by the blend factor: 0 shows only the raster result, 1 only the traced image.
type CompositionPass interface {
	// Name returns the pass label.
	Name() string

	// Prepare compiles the composition pipeline for the surface format.
	//
	// Returns:
	//   - error: a *common.ShaderCompileError or *common.ResourceCreationError
	Prepare() error

	// Format returns the texel format the pipeline targets.
	Format() wgpu.TextureFormat

	// SetFormat retargets the pass at a presentation format. When the format differs from the
	// current one the compiled pipeline is dropped and rebuilt on the next Encode.
	//
	// Parameters:
	//   - format: the configured surface format
	SetFormat(format wgpu.TextureFormat)

	// Blend returns the blend factor.
	Blend() float32

	// SetBlend sets the blend factor, clamped to [0, 1].
	//
	// Parameters:
	//   - factor: the weight of the ray traced image
	SetBlend(factor float32)

	// Invalidate drops the bind group so it is rebuilt against the current G-buffer and raytrace
	// output textures. Call after either is recreated.
	Invalidate()

	// Encode records the composition into target.
	//
	// Parameters:
	//   - enc: the frame encoder
	//   - target: the presentation view
	//
	// Returns:
	//   - error: a compile, creation or *common.PassExecutionError
	Encode(enc backend.CommandEncoder, target backend.TextureView) error

	// Release destroys the blend uniform and the bind group.
	Release()
}

var _ CompositionPass = &compositionPass{}

// NewCompositionPass creates a composition pass.
//
// Parameters:
//   - resources: the resource manager
//   - pipelines: the pipeline manager
//   - options: builder options
//
// Returns:
//   - CompositionPass: the pass
func NewCompositionPass(resources resource.Manager, pipelines pipeline.Manager, options ...CompositionPassBuilderOption) CompositionPass {
	c := &compositionPass{
		resources: resources,
		pipelines: pipelines,
		format:    wgpu.TextureFormatBGRA8Unorm,
		blend:     DefaultBlend,
	}
	for _, option := range options {
		option(c)
	}
	c.blend = clamp01(c.blend)
	return c
}

func clamp01(f float32) float32 {
	return min(max(f, 0), 1)
}

func (c *compositionPass) Name() string               { return CompositionName }
func (c *compositionPass) Blend() float32             { return c.blend }
func (c *compositionPass) Format() wgpu.TextureFormat { return c.format }

func (c *compositionPass) SetFormat(format wgpu.TextureFormat) {
	if format == c.format {
		return
	}
	c.format = format
	c.pipelines.Invalidate(CompositionPipelineName)
}

func (c *compositionPass) SetBlend(factor float32) {
	c.blend = clamp01(factor)
}

func (c *compositionPass) request() pipeline.RenderPipelineRequest {
	texture := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		}
	}
	return pipeline.RenderPipelineRequest{
		ShaderKey:    shader.KeyComposition,
		ColorTargets: []backend.ColorTarget{{Format: c.format, WriteMask: wgpu.ColorWriteMaskAll}},
		BindGroupLayouts: []pipeline.LayoutDescriptor{layout(CompositionLayoutName,
			wgpu.BindGroupLayoutEntry{
				Binding:    BindingSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
			texture(BindingNormal),
			texture(BindingAlbedo),
			texture(BindingRaytraced),
			uniformEntry(BindingBlend, wgpu.ShaderStageFragment),
		)},
	}
}

func (c *compositionPass) Prepare() error {
	_, err := c.prepare()
	return err
}

func (c *compositionPass) prepare() (pipeline.Pipeline, error) {
	if c.format == wgpu.TextureFormatUndefined {
		return nil, &common.ConfigurationError{Setting: "surface format", Reason: "composition target format is undefined, configure the surface first"}
	}
	p, err := c.pipelines.GetOrCreateRenderPipeline(CompositionPipelineName, c.request())
	if err != nil {
		return nil, err
	}
	if _, err := c.resources.StandardSampler(); err != nil {
		return nil, err
	}
	if _, err := c.resources.CreateUniformBuffer(BlendUniformKey, BlendUniformSize); err != nil {
		return nil, err
	}
	if c.provider == nil {
		c.provider = bind_group_provider.NewBindGroupProvider(CompositionGroupKey,
			bind_group_provider.WithLabel("composition"),
			bind_group_provider.WithLayout(p.Layout(0)),
			bind_group_provider.WithSampler(BindingSampler, resource.StandardSamplerKey),
			bind_group_provider.WithTextureView(BindingNormal, gbuffer.NormalKey),
			bind_group_provider.WithTextureView(BindingAlbedo, gbuffer.AlbedoKey),
			bind_group_provider.WithTextureView(BindingRaytraced, OutputKey),
			bind_group_provider.WithBuffer(BindingBlend, BlendUniformKey),
			bind_group_provider.WithOwned(BlendUniformKey),
		)
	}
	return p, nil
}

func (c *compositionPass) Invalidate() {
	if c.provider != nil {
		c.provider.Invalidate(c.resources)
	}
}

func (c *compositionPass) Encode(enc backend.CommandEncoder, target backend.TextureView) error {
	p, err := c.prepare()
	if err != nil {
		return err
	}
	params := make([]byte, BlendUniformSize)
	common.PutFloat32s(params, 0, c.blend, 0, 0, 0)
	if err := c.resources.WriteBuffer(BlendUniformKey, 0, params); err != nil {
		return &common.PassExecutionError{Pass: CompositionName, Err: err}
	}
	group, err := c.provider.BindGroup(c.resources)
	if err != nil {
		return err
	}

	rp := enc.BeginRenderPass(backend.RenderPassDescriptor{
		Label:            CompositionName,
		ColorAttachments: []backend.ColorAttachment{{View: target, Clear: ClearColor}},
	})
	rp.SetPipeline(p.Render())
	rp.SetBindGroup(0, group)
	rp.Draw(3, 1)
	if err := rp.End(); err != nil {
		return &common.PassExecutionError{Pass: CompositionName, Err: err}
	}
	return nil
}

func (c *compositionPass) Release() {
	if c.provider != nil {
		c.provider.Release(c.resources)
		c.provider = nil
	}
}
