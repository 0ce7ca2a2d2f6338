package backend

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDevice implements Device on top of cogentcore/webgpu.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	caps   Capabilities
	logger log.Logger
}

// wgpuSurface implements Surface for a window-backed wgpu surface.
type wgpuSurface struct {
	mu *sync.Mutex

	owner       *wgpuDevice
	surface     *wgpu.Surface
	format      wgpu.TextureFormat
	presentMode wgpu.PresentMode

	frameTexture *wgpu.Texture
	frameView    *wgpu.TextureView
}

var (
	_ Device  = &wgpuDevice{}
	_ Surface = &wgpuSurface{}
)

// NewWGPU creates a WebGPU instance, surface, adapter, device and queue for the given surface descriptor.
// The calling goroutine is locked to its OS thread, as required by the native surface.
//
// Adapter or device acquisition failure is reported as a *common.ConfigurationError.
//
// Parameters:
//   - surfaceDescriptor: the platform surface descriptor, usually obtained from the window
//   - options: functional options for adapter selection and presentation
//
// Returns:
//   - Device: the device
//   - Surface: the presentation surface bound to the device
//   - error: an error if no suitable adapter or device is available
func NewWGPU(surfaceDescriptor *wgpu.SurfaceDescriptor, options ...WGPUBuilderOption) (Device, Surface, error) {
	cfg := &wgpuConfig{
		presentMode: wgpu.PresentModeFifo,
		logger:      log.New("backend"),
	}
	for _, opt := range options {
		opt(cfg)
	}

	runtime.LockOSThread()

	d := &wgpuDevice{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
		logger:   cfg.logger,
	}
	s := &wgpuSurface{
		mu:          &sync.Mutex{},
		owner:       d,
		presentMode: cfg.presentMode,
	}
	if surfaceDescriptor != nil {
		s.surface = d.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.forceFallbackAdapter,
		CompatibleSurface:    s.surface,
	})
	if err != nil {
		return nil, nil, &common.ConfigurationError{Setting: "adapter", Reason: "no compatible adapter", Err: err}
	}
	d.adapter = a

	if a.HasFeature(wgpu.FeatureNameTimestampQuery) {
		d.caps.Features = append(d.caps.Features, FeatureTimestampQuery)
	}
	if a.HasFeature(wgpu.FeatureNameShaderF16) {
		d.caps.Features = append(d.caps.Features, FeatureShaderF16)
	}

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		// Capabilities is read back from the device below, so Require sees the granted limits.
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: a.GetLimits().Limits,
		},
	})
	if err != nil {
		return nil, nil, &common.ConfigurationError{Setting: "device", Reason: "device request rejected", Err: err}
	}
	d.device = dev
	d.queue = dev.GetQueue()
	d.caps.Limits = limitsFrom(dev.GetLimits().Limits)

	d.logger.Infof("device ready: features=%v uniform alignment=%d", d.caps.Features, d.caps.Limits.MinUniformBufferOffsetAlignment)
	return d, s, nil
}

func (d *wgpuDevice) Capabilities() Capabilities {
	return d.caps
}

func (d *wgpuDevice) CreateBuffer(desc BufferDescriptor) (Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBuffer{buf: buf, label: desc.Label, size: desc.Size, usage: desc.Usage}, nil
}

func (d *wgpuDevice) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this device", buf.Label())
	}
	if offset+uint64(len(data)) > wb.size {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q (%d bytes)", len(data), offset, wb.label, wb.size)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.WriteBuffer(wb.buf, offset, data)
	return nil
}

func (d *wgpuDevice) CreateTexture(desc TextureDescriptor) (Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        desc.Format,
		Usage:         desc.Usage,
	})
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	return &wgpuTexture{tex: tex, view: &wgpuTextureView{view: view, label: desc.Label}, desc: desc}, nil
}

func (d *wgpuDevice) CreateSampler(desc SamplerDescriptor) (Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         desc.Label,
		AddressModeU:  common.Coalesce(desc.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(desc.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(desc.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(desc.MagFilter, wgpu.FilterModeLinear),
		MinFilter:     common.Coalesce(desc.MinFilter, wgpu.FilterModeLinear),
		MipmapFilter:  common.Coalesce(desc.MipmapFilter, wgpu.MipmapFilterModeLinear),
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuSampler{samp: samp, label: desc.Label}, nil
}

func (d *wgpuDevice) CreateShaderModule(label, source string) (ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mod, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuShaderModule{mod: mod, label: label}, nil
}

func (d *wgpuDevice) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.device.CreateBindGroupLayout(&desc)
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroupLayout{layout: layout, label: desc.Label}, nil
}

func (d *wgpuDevice) CreateBindGroup(desc BindGroupDescriptor) (BindGroup, error) {
	layout, ok := desc.Layout.(*wgpuBindGroupLayout)
	if !ok {
		return nil, fmt.Errorf("bind group %q: layout was not created by this device", desc.Label)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, e := range desc.Entries {
		entry := wgpu.BindGroupEntry{Binding: e.Binding}
		switch {
		case e.Buffer != nil:
			entry.Buffer = e.Buffer.(*wgpuBuffer).buf
			entry.Offset = 0
			entry.Size = wgpu.WholeSize
		case e.View != nil:
			entry.TextureView = e.View.(*wgpuTextureView).view
		case e.Sampler != nil:
			entry.Sampler = e.Sampler.(*wgpuSampler).samp
		default:
			return nil, fmt.Errorf("bind group %q: binding %d has no resource", desc.Label, e.Binding)
		}
		entries[i] = entry
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuBindGroup{group: group, label: desc.Label}, nil
}

func (d *wgpuDevice) pipelineLayout(label string, layouts []BindGroupLayout) (*wgpu.PipelineLayout, error) {
	native := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, l := range layouts {
		wl, ok := l.(*wgpuBindGroupLayout)
		if !ok {
			return nil, fmt.Errorf("pipeline %q: bind group layout %d was not created by this device", label, i)
		}
		native[i] = wl.layout
	}
	return d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: native,
	})
}

func (d *wgpuDevice) CreateRenderPipeline(desc RenderPipelineDescriptor) (RenderPipeline, error) {
	mod, ok := desc.Module.(*wgpuShaderModule)
	if !ok {
		return nil, errors.New("render pipeline requires a shader module created by this device")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.pipelineLayout(desc.Label, desc.BindGroupLayouts)
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	targets := make([]wgpu.ColorTargetState, len(desc.ColorTargets))
	for i, t := range desc.ColorTargets {
		targets[i] = wgpu.ColorTargetState{
			Format:    t.Format,
			Blend:     t.Blend,
			WriteMask: common.Coalesce(t.WriteMask, wgpu.ColorWriteMaskAll),
		}
	}

	var depth *wgpu.DepthStencilState
	if desc.DepthFormat != wgpu.TextureFormatUndefined {
		depth = &wgpu.DepthStencilState{
			Format:            desc.DepthFormat,
			DepthWriteEnabled: desc.DepthWrite,
			DepthCompare:      common.Coalesce(desc.DepthCompare, wgpu.CompareFunctionLess),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     mod.mod,
			EntryPoint: desc.VertexEntryPoint,
			Buffers:    desc.VertexLayouts,
		},
		Fragment: &wgpu.FragmentState{
			Module:     mod.mod,
			EntryPoint: desc.FragmentEntryPoint,
			Targets:    targets,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  common.Coalesce(desc.Topology, wgpu.PrimitiveTopologyTriangleList),
			FrontFace: common.Coalesce(desc.FrontFace, wgpu.FrontFaceCCW),
			CullMode:  desc.CullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: depth,
	})
	if err != nil {
		return nil, err
	}
	return &wgpuRenderPipeline{pipeline: created, label: desc.Label}, nil
}

func (d *wgpuDevice) CreateComputePipeline(desc ComputePipelineDescriptor) (ComputePipeline, error) {
	mod, ok := desc.Module.(*wgpuShaderModule)
	if !ok {
		return nil, errors.New("compute pipeline requires a shader module created by this device")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.pipelineLayout(desc.Label, desc.BindGroupLayouts)
	if err != nil {
		return nil, err
	}
	defer layout.Release()

	created, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     mod.mod,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return nil, err
	}
	return &wgpuComputePipeline{pipeline: created, label: desc.Label}, nil
}

func (d *wgpuDevice) CreateCommandEncoder(label string) (CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	encoder, err := d.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, err
	}
	return &wgpuCommandEncoder{owner: d, encoder: encoder}, nil
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

type wgpuCommandEncoder struct {
	owner   *wgpuDevice
	encoder *wgpu.CommandEncoder
}

func (e *wgpuCommandEncoder) BeginRenderPass(desc RenderPassDescriptor) RenderPass {
	colors := make([]wgpu.RenderPassColorAttachment, len(desc.ColorAttachments))
	for i, c := range desc.ColorAttachments {
		colors[i] = wgpu.RenderPassColorAttachment{
			View:       nativeView(c.View),
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: c.Clear,
		}
	}

	rp := &wgpu.RenderPassDescriptor{
		Label:            desc.Label,
		ColorAttachments: colors,
	}
	if desc.Depth != nil {
		rp.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            nativeView(desc.Depth.View),
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: desc.Depth.ClearDepth,
		}
	}
	return &wgpuRenderPass{pass: e.encoder.BeginRenderPass(rp)}
}

func (e *wgpuCommandEncoder) BeginComputePass(label string) ComputePass {
	return &wgpuComputePass{pass: e.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})}
}

func (e *wgpuCommandEncoder) Submit() error {
	defer e.Discard()

	commandBuffer, err := e.encoder.Finish(nil)
	if err != nil {
		return err
	}
	defer commandBuffer.Release()

	e.owner.mu.Lock()
	defer e.owner.mu.Unlock()
	e.owner.queue.Submit(commandBuffer)
	return nil
}

func (e *wgpuCommandEncoder) Discard() {
	if e.encoder != nil {
		e.encoder.Release()
		e.encoder = nil
	}
}

type wgpuRenderPass struct {
	pass *wgpu.RenderPassEncoder
}

func (p *wgpuRenderPass) SetPipeline(rp RenderPipeline) {
	p.pass.SetPipeline(rp.(*wgpuRenderPipeline).pipeline)
}

func (p *wgpuRenderPass) SetBindGroup(index uint32, group BindGroup) {
	p.pass.SetBindGroup(index, group.(*wgpuBindGroup).group, nil)
}

func (p *wgpuRenderPass) SetVertexBuffer(slot uint32, buf Buffer) {
	p.pass.SetVertexBuffer(slot, buf.(*wgpuBuffer).buf, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) SetIndexBuffer(buf Buffer) {
	p.pass.SetIndexBuffer(buf.(*wgpuBuffer).buf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
}

func (p *wgpuRenderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *wgpuRenderPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuRenderPass) End() error {
	p.pass.End()
	p.pass.Release()
	return nil
}

type wgpuComputePass struct {
	pass *wgpu.ComputePassEncoder
}

func (p *wgpuComputePass) SetPipeline(cp ComputePipeline) {
	p.pass.SetPipeline(cp.(*wgpuComputePipeline).pipeline)
}

func (p *wgpuComputePass) SetBindGroup(index uint32, group BindGroup) {
	p.pass.SetBindGroup(index, group.(*wgpuBindGroup).group, nil)
}

func (p *wgpuComputePass) Dispatch(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

func (p *wgpuComputePass) End() error {
	p.pass.End()
	p.pass.Release()
	return nil
}

func (s *wgpuSurface) Configure(width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.surface == nil {
		return errors.New("surface was created without a surface descriptor")
	}
	capabilities := s.surface.GetCapabilities(s.owner.adapter)
	if len(capabilities.Formats) == 0 {
		return &common.ConfigurationError{Setting: "surface", Reason: "adapter reports no surface formats"}
	}
	s.format = capabilities.Formats[0]

	s.surface.Configure(s.owner.adapter, s.owner.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.format,
		Width:       width,
		Height:      height,
		PresentMode: s.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	return nil
}

func (s *wgpuSurface) Format() wgpu.TextureFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

func (s *wgpuSurface) Acquire() (TextureView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frameTexture != nil {
		return nil, errors.New("previous frame surface not yet presented")
	}
	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	s.frameTexture = tex
	s.frameView = view
	return &wgpuTextureView{view: view, label: "Surface Frame"}, nil
}

func (s *wgpuSurface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frameTexture == nil {
		return errors.New("no acquired frame to present")
	}
	s.surface.Present()
	s.frameView.Release()
	s.frameTexture.Release()
	s.frameView = nil
	s.frameTexture = nil
	return nil
}

func (s *wgpuSurface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.surface != nil {
		s.surface.Release()
		s.surface = nil
	}
}

func nativeView(v TextureView) *wgpu.TextureView {
	if v == nil {
		return nil
	}
	return v.(*wgpuTextureView).view
}
