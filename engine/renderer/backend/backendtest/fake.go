// Package backendtest provides an in-memory backend.Device and backend.Surface for tests.
//
// The fake records every allocation, release, buffer write and recorded command so tests can assert
// identity, allocation counts and pass ordering without a GPU.
package backendtest

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// Object kinds used by the allocation counters.
const (
	KindBuffer          = "buffer"
	KindTexture         = "texture"
	KindSampler         = "sampler"
	KindShaderModule    = "shader-module"
	KindBindGroupLayout = "bind-group-layout"
	KindBindGroup       = "bind-group"
	KindRenderPipeline  = "render-pipeline"
	KindComputePipeline = "compute-pipeline"
	KindEncoder         = "encoder"
	// KindSubmit is only meaningful to FailNext; it fails the next encoder submission.
	KindSubmit = "submit"
)

// ErrInjected is the default error returned by injected failures.
var ErrInjected = errors.New("injected failure")

// Device is a fake backend.Device.
type Device struct {
	mu *sync.Mutex

	caps     backend.Capabilities
	nextID   int
	created  map[string]int
	released map[string]int
	failNext map[string]error

	// ShaderCheck, when set, is consulted by CreateShaderModule; a non-nil error fails compilation.
	ShaderCheck func(label, source string) error

	commands   []string
	violations []string
	writes     []Write
}

// Write records one WriteBuffer call.
type Write struct {
	Buffer string
	Offset uint64
	Data   []byte
}

var _ backend.Device = &Device{}

// NewDevice returns a fake device with limits comfortably above the renderer's requirements.
//
// Returns:
//   - *Device: the fake device
func NewDevice() *Device {
	return &Device{
		mu: &sync.Mutex{},
		caps: backend.Capabilities{
			Limits: backend.Limits{
				MaxBindGroups:                     4,
				MaxStorageBuffersPerShaderStage:   8,
				MaxStorageTexturesPerShaderStage:  4,
				MaxComputeInvocationsPerWorkgroup: 256,
				MaxComputeWorkgroupSizeX:          256,
				MaxComputeWorkgroupSizeY:          256,
				MaxTextureDimension2D:             8192,
				MinUniformBufferOffsetAlignment:   256,
				MaxBufferSize:                     1 << 28,
			},
		},
		created:  make(map[string]int),
		released: make(map[string]int),
		failNext: make(map[string]error),
	}
}

// SetCapabilities replaces the reported capabilities.
func (d *Device) SetCapabilities(caps backend.Capabilities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.caps = caps
}

// FailNext makes the next creation of kind fail with err (ErrInjected when err is nil).
func (d *Device) FailNext(kind string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		err = ErrInjected
	}
	d.failNext[kind] = err
}

// Created returns how many objects of kind have been created.
func (d *Device) Created(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind]
}

// Released returns how many objects of kind have been released.
func (d *Device) Released(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.released[kind]
}

// Live returns how many objects of kind are currently allocated.
func (d *Device) Live(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created[kind] - d.released[kind]
}

// Commands returns a copy of the recorded command log.
func (d *Device) Commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.commands...)
}

// ResetCommands clears the command log.
func (d *Device) ResetCommands() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = nil
}

// Violations returns every use of a released object observed so far.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

// Writes returns a copy of the recorded buffer writes.
func (d *Device) Writes() []Write {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Write(nil), d.writes...)
}

func (d *Device) record(format string, args ...any) {
	d.commands = append(d.commands, fmt.Sprintf(format, args...))
}

func (d *Device) use(o *Object, context string) {
	if o != nil && o.released {
		d.violations = append(d.violations, fmt.Sprintf("%s uses released %s %q", context, o.kind, o.label))
	}
}

// allocate must be called with d.mu held.
// useEntries checks every resource referenced by entries. Caller must hold the mutex.
func (d *Device) useEntries(entries []backend.BindGroupEntry, context string) {
	for _, e := range entries {
		switch {
		case e.Buffer != nil:
			d.use(e.Buffer.(*Buffer).Object, context)
		case e.View != nil:
			if v, ok := e.View.(*View); ok && v.Texture != nil {
				d.use(v.Texture.Object, context)
			}
		case e.Sampler != nil:
			d.use(e.Sampler.(*Object), context)
		}
	}
}

func (d *Device) allocate(kind, label string) (*Object, error) {
	if err, ok := d.failNext[kind]; ok {
		delete(d.failNext, kind)
		return nil, err
	}
	d.nextID++
	d.created[kind]++
	return &Object{dev: d, kind: kind, label: label, id: d.nextID}, nil
}

func (d *Device) Capabilities() backend.Capabilities {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.caps
}

func (d *Device) CreateBuffer(desc backend.BufferDescriptor) (backend.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Size > d.caps.Limits.MaxBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds device limit %d", desc.Size, d.caps.Limits.MaxBufferSize)
	}
	o, err := d.allocate(KindBuffer, desc.Label)
	if err != nil {
		return nil, err
	}
	return &Buffer{Object: o, size: desc.Size, usage: desc.Usage, Data: make([]byte, desc.Size)}, nil
}

func (d *Device) WriteBuffer(buf backend.Buffer, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := buf.(*Buffer)
	if !ok {
		return fmt.Errorf("buffer %q was not created by this device", buf.Label())
	}
	d.use(b.Object, "write")
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write of %d bytes at offset %d overflows buffer %q (%d bytes)", len(data), offset, b.label, b.size)
	}
	copy(b.Data[offset:], data)
	d.writes = append(d.writes, Write{Buffer: b.label, Offset: offset, Data: append([]byte(nil), data...)})
	return nil
}

func (d *Device) CreateTexture(desc backend.TextureDescriptor) (backend.Texture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q has zero extent", desc.Label)
	}
	o, err := d.allocate(KindTexture, desc.Label)
	if err != nil {
		return nil, err
	}
	t := &Texture{Object: o, Desc: desc}
	t.view = &View{label: desc.Label, Texture: t}
	return t, nil
}

func (d *Device) CreateSampler(desc backend.SamplerDescriptor) (backend.Sampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.allocate(KindSampler, desc.Label)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (d *Device) CreateShaderModule(label, source string) (backend.ShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ShaderCheck != nil {
		if err := d.ShaderCheck(label, source); err != nil {
			return nil, err
		}
	}
	o, err := d.allocate(KindShaderModule, label)
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (d *Device) CreateBindGroupLayout(desc wgpu.BindGroupLayoutDescriptor) (backend.BindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	o, err := d.allocate(KindBindGroupLayout, desc.Label)
	if err != nil {
		return nil, err
	}
	return &Layout{Object: o, Desc: desc}, nil
}

func (d *Device) CreateBindGroup(desc backend.BindGroupDescriptor) (backend.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, ok := desc.Layout.(*Layout)
	if !ok {
		return nil, fmt.Errorf("bind group %q: layout was not created by this device", desc.Label)
	}
	d.use(layout.Object, "bind group "+desc.Label)
	if len(desc.Entries) != len(layout.Desc.Entries) {
		return nil, fmt.Errorf("bind group %q: %d entries for a layout with %d", desc.Label, len(desc.Entries), len(layout.Desc.Entries))
	}
	for _, e := range desc.Entries {
		if e.Buffer == nil && e.View == nil && e.Sampler == nil {
			return nil, fmt.Errorf("bind group %q: binding %d has no resource", desc.Label, e.Binding)
		}
	}
	d.useEntries(desc.Entries, "bind group "+desc.Label)
	o, err := d.allocate(KindBindGroup, desc.Label)
	if err != nil {
		return nil, err
	}
	return &BindGroup{Object: o, Entries: desc.Entries}, nil
}

func (d *Device) CreateRenderPipeline(desc backend.RenderPipelineDescriptor) (backend.RenderPipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Module == nil {
		return nil, errors.New("render pipeline requires a shader module")
	}
	o, err := d.allocate(KindRenderPipeline, desc.Label)
	if err != nil {
		return nil, err
	}
	return &RenderPipeline{Object: o, Desc: desc}, nil
}

func (d *Device) CreateComputePipeline(desc backend.ComputePipelineDescriptor) (backend.ComputePipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if desc.Module == nil {
		return nil, errors.New("compute pipeline requires a shader module")
	}
	o, err := d.allocate(KindComputePipeline, desc.Label)
	if err != nil {
		return nil, err
	}
	return &ComputePipeline{Object: o, Desc: desc}, nil
}

func (d *Device) CreateCommandEncoder(label string) (backend.CommandEncoder, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.allocate(KindEncoder, label); err != nil {
		return nil, err
	}
	d.record("encoder %s", label)
	return &Encoder{dev: d, label: label}, nil
}

func (d *Device) Release() {}

// Object is the fake handle shared by every kind.
type Object struct {
	dev      *Device
	kind     string
	label    string
	id       int
	released bool
}

func (o *Object) Label() string { return o.label }

// ID returns the unique allocation id.
func (o *Object) ID() int { return o.id }

// IsReleased reports whether Release has been called.
func (o *Object) IsReleased() bool {
	o.dev.mu.Lock()
	defer o.dev.mu.Unlock()
	return o.released
}

func (o *Object) Release() {
	o.dev.mu.Lock()
	defer o.dev.mu.Unlock()
	if o.released {
		o.dev.violations = append(o.dev.violations, fmt.Sprintf("double release of %s %q", o.kind, o.label))
		return
	}
	o.released = true
	o.dev.released[o.kind]++
}

// Buffer is a fake buffer whose Data reflects every write.
type Buffer struct {
	*Object
	size  uint64
	usage wgpu.BufferUsage
	Data  []byte
}

func (b *Buffer) Size() uint64            { return b.size }
func (b *Buffer) Usage() wgpu.BufferUsage { return b.usage }

// Texture is a fake texture.
type Texture struct {
	*Object
	Desc backend.TextureDescriptor
	view *View
}

func (t *Texture) Width() uint32              { return t.Desc.Width }
func (t *Texture) Height() uint32             { return t.Desc.Height }
func (t *Texture) Format() wgpu.TextureFormat { return t.Desc.Format }
func (t *Texture) View() backend.TextureView  { return t.view }

// View is a fake texture view. Texture is nil for surface images.
type View struct {
	label   string
	Texture *Texture
}

func (v *View) Label() string { return v.label }

func (v *View) describe() string {
	if v.Texture == nil {
		return v.label
	}
	return fmt.Sprintf("%s@%dx%d", v.label, v.Texture.Desc.Width, v.Texture.Desc.Height)
}

// Layout is a fake bind group layout.
type Layout struct {
	*Object
	Desc wgpu.BindGroupLayoutDescriptor
}

// BindGroup is a fake bind group.
type BindGroup struct {
	*Object
	Entries []backend.BindGroupEntry
}

// RenderPipeline is a fake render pipeline.
type RenderPipeline struct {
	*Object
	Desc backend.RenderPipelineDescriptor
}

// ComputePipeline is a fake compute pipeline.
type ComputePipeline struct {
	*Object
	Desc backend.ComputePipelineDescriptor
}

// Encoder records passes into the device command log.
type Encoder struct {
	dev   *Device
	label string
	done  bool
}

func (e *Encoder) BeginRenderPass(desc backend.RenderPassDescriptor) backend.RenderPass {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()

	targets := make([]string, 0, len(desc.ColorAttachments)+1)
	for _, c := range desc.ColorAttachments {
		v := c.View.(*View)
		if v.Texture != nil {
			e.dev.use(v.Texture.Object, "render pass "+desc.Label)
		}
		targets = append(targets, v.describe())
	}
	if desc.Depth != nil {
		v := desc.Depth.View.(*View)
		if v.Texture != nil {
			e.dev.use(v.Texture.Object, "render pass "+desc.Label)
		}
		targets = append(targets, "depth:"+v.describe())
	}
	e.dev.record("render-pass %s [%s]", desc.Label, strings.Join(targets, " "))
	return renderPass{&pass{dev: e.dev, label: desc.Label}}
}

func (e *Encoder) BeginComputePass(label string) backend.ComputePass {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	e.dev.record("compute-pass %s", label)
	return computePass{&pass{dev: e.dev, label: label}}
}

func (e *Encoder) Submit() error {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	if e.done {
		return errors.New("encoder already finished")
	}
	e.done = true
	if err, ok := e.dev.failNext[KindSubmit]; ok {
		delete(e.dev.failNext, KindSubmit)
		e.dev.record("discard %s", e.label)
		return err
	}
	e.dev.record("submit %s", e.label)
	return nil
}

func (e *Encoder) Discard() {
	e.dev.mu.Lock()
	defer e.dev.mu.Unlock()
	if !e.done {
		e.done = true
		e.dev.record("discard %s", e.label)
	}
}

// pass implements both backend.RenderPass and backend.ComputePass.
type pass struct {
	dev   *Device
	label string
}

func (p *pass) setPipeline(o *Object) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.use(o, "pass "+p.label)
	p.dev.record("pipeline %s", o.label)
}

func (p *pass) SetBindGroup(index uint32, group backend.BindGroup) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	bg := group.(*BindGroup)
	p.dev.use(bg.Object, "pass "+p.label)
	p.dev.useEntries(bg.Entries, "pass "+p.label+" group "+bg.label)
	p.dev.record("bind %d %s", index, bg.label)
}

func (p *pass) SetVertexBuffer(slot uint32, buf backend.Buffer) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.use(buf.(*Buffer).Object, "pass "+p.label)
}

func (p *pass) SetIndexBuffer(buf backend.Buffer) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.use(buf.(*Buffer).Object, "pass "+p.label)
}

func (p *pass) Draw(vertexCount, instanceCount uint32) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.record("draw %d %d", vertexCount, instanceCount)
}

func (p *pass) DrawIndexed(indexCount, instanceCount uint32) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.record("draw-indexed %d %d", indexCount, instanceCount)
}

func (p *pass) Dispatch(x, y, z uint32) {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.record("dispatch %d %d %d", x, y, z)
}

func (p *pass) End() error {
	p.dev.mu.Lock()
	defer p.dev.mu.Unlock()
	p.dev.record("end %s", p.label)
	return nil
}

type renderPass struct{ *pass }

func (r renderPass) SetPipeline(pl backend.RenderPipeline) {
	r.setPipeline(pl.(*RenderPipeline).Object)
}

type computePass struct{ *pass }

func (c computePass) SetPipeline(pl backend.ComputePipeline) {
	c.setPipeline(pl.(*ComputePipeline).Object)
}

// Surface is a fake presentation surface.
type Surface struct {
	mu *sync.Mutex

	dev        *Device
	width      uint32
	height     uint32
	preferred  wgpu.TextureFormat
	format     wgpu.TextureFormat
	configured int
	acquired   bool
	presented  int

	// FailAcquire, when set, is returned by the next Acquire call.
	FailAcquire error
}

var _ backend.Surface = &Surface{}

// NewSurface returns a fake surface that records into dev's command log. Like a real surface it
// reports an undefined format until the first Configure, then BGRA8Unorm.
func NewSurface(dev *Device) *Surface {
	return &Surface{mu: &sync.Mutex{}, dev: dev, preferred: wgpu.TextureFormatBGRA8Unorm}
}

// SetPreferredFormat sets the format the next Configure selects.
func (s *Surface) SetPreferredFormat(format wgpu.TextureFormat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preferred = format
}

func (s *Surface) Configure(width, height uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
	s.format = s.preferred
	s.configured++
	return nil
}

func (s *Surface) Format() wgpu.TextureFormat {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.format
}

func (s *Surface) Acquire() (backend.TextureView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAcquire != nil {
		err := s.FailAcquire
		s.FailAcquire = nil
		return nil, err
	}
	if s.acquired {
		return nil, errors.New("previous frame surface not yet presented")
	}
	s.acquired = true
	return &View{label: "surface"}, nil
}

func (s *Surface) Present() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acquired {
		return errors.New("no acquired frame to present")
	}
	s.acquired = false
	s.presented++
	s.dev.mu.Lock()
	s.dev.record("present")
	s.dev.mu.Unlock()
	return nil
}

func (s *Surface) Release() {}

// Size returns the last configured size.
func (s *Surface) Size() (uint32, uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Configured returns how many times Configure was called.
func (s *Surface) Configured() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configured
}

// Presented returns how many frames were presented.
func (s *Surface) Presented() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}
