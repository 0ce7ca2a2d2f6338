package backend

import (
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuBuffer struct {
	buf   *wgpu.Buffer
	label string
	size  uint64
	usage wgpu.BufferUsage
}

func (b *wgpuBuffer) Label() string           { return b.label }
func (b *wgpuBuffer) Size() uint64            { return b.size }
func (b *wgpuBuffer) Usage() wgpu.BufferUsage { return b.usage }
func (b *wgpuBuffer) Release()                { b.buf.Release() }

type wgpuTextureView struct {
	view  *wgpu.TextureView
	label string
}

func (v *wgpuTextureView) Label() string { return v.label }

type wgpuTexture struct {
	tex  *wgpu.Texture
	view *wgpuTextureView
	desc TextureDescriptor
}

func (t *wgpuTexture) Label() string              { return t.desc.Label }
func (t *wgpuTexture) Width() uint32              { return t.desc.Width }
func (t *wgpuTexture) Height() uint32             { return t.desc.Height }
func (t *wgpuTexture) Format() wgpu.TextureFormat { return t.desc.Format }
func (t *wgpuTexture) View() TextureView          { return t.view }

func (t *wgpuTexture) Release() {
	t.view.view.Release()
	t.tex.Release()
}

type wgpuSampler struct {
	samp  *wgpu.Sampler
	label string
}

func (s *wgpuSampler) Label() string { return s.label }
func (s *wgpuSampler) Release()      { s.samp.Release() }

type wgpuShaderModule struct {
	mod   *wgpu.ShaderModule
	label string
}

func (m *wgpuShaderModule) Label() string { return m.label }
func (m *wgpuShaderModule) Release()      { m.mod.Release() }

type wgpuBindGroupLayout struct {
	layout *wgpu.BindGroupLayout
	label  string
}

func (l *wgpuBindGroupLayout) Label() string { return l.label }
func (l *wgpuBindGroupLayout) Release()      { l.layout.Release() }

type wgpuBindGroup struct {
	group *wgpu.BindGroup
	label string
}

func (g *wgpuBindGroup) Label() string { return g.label }
func (g *wgpuBindGroup) Release()      { g.group.Release() }

type wgpuRenderPipeline struct {
	pipeline *wgpu.RenderPipeline
	label    string
}

func (p *wgpuRenderPipeline) Label() string { return p.label }
func (p *wgpuRenderPipeline) Release()      { p.pipeline.Release() }

type wgpuComputePipeline struct {
	pipeline *wgpu.ComputePipeline
	label    string
}

func (p *wgpuComputePipeline) Label() string { return p.label }
func (p *wgpuComputePipeline) Release()      { p.pipeline.Release() }
