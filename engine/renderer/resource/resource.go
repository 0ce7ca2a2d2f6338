// Package resource owns every device object the renderer creates, addressed by caller-chosen string keys.
package resource

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Kind identifies the type of object bound to a key.
type Kind int

// Kinds are ordered so that dependents sort after what they depend on.
const (
	KindBuffer Kind = iota
	KindTexture
	KindSampler
	KindShaderModule
	KindBindGroupLayout
	KindBindGroup
	KindRenderPipeline
	KindComputePipeline
)

// Kinds lists every Kind in dependency order.
var Kinds = []Kind{
	KindBuffer, KindTexture, KindSampler, KindShaderModule,
	KindBindGroupLayout, KindBindGroup, KindRenderPipeline, KindComputePipeline,
}

func (k Kind) String() string {
	switch k {
	case KindBuffer:
		return "buffer"
	case KindTexture:
		return "texture"
	case KindSampler:
		return "sampler"
	case KindShaderModule:
		return "shader module"
	case KindBindGroupLayout:
		return "bind group layout"
	case KindBindGroup:
		return "bind group"
	case KindRenderPipeline:
		return "render pipeline"
	case KindComputePipeline:
		return "compute pipeline"
	default:
		return "unknown"
	}
}

// StandardSamplerKey is the key StandardSampler binds.
const StandardSamplerKey = "sampler.standard"

// storageFallbackSize is the size of the zeroed buffer created for an empty storage upload.
const storageFallbackSize = 16

type entry struct {
	kind  Kind
	obj   backend.Object
	bytes uint64
}

// Stats summarizes the live objects held by a Manager.
type Stats struct {
	Counts       map[Kind]int
	BufferBytes  uint64
	TextureBytes uint64
}

// Total returns the number of live objects across all kinds.
func (s Stats) Total() int {
	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// manager is the implementation of the Manager interface.
type manager struct {
	mu *sync.Mutex

	device    backend.Device
	library   *shader.Library
	validator shader.Validator
	logger    log.Logger

	entries map[string]*entry
}

// Manager is the single authority for device-object creation. Every object lives under exactly one
// string key across all kinds. Create calls are get-or-create: asking again for a bound key returns the
// existing object without allocating. The Manager owns everything it creates; lookups hand out
// non-owning references that are invalid once the key is destroyed.
type Manager interface {
	// Device returns the device objects are created on.
	Device() backend.Device

	// Library returns the shader library CreateShaderModule compiles from.
	Library() *shader.Library

	// CreateBuffer returns the buffer bound to key, allocating it when unbound. COPY_DST is always added
	// to usage. When the buffer is allocated and data is non-nil, data is uploaded at offset 0.
	//
	// Parameters:
	//   - key: the resource key
	//   - size: the buffer size in bytes, must be non-zero
	//   - usage: the requested usage flags
	//   - data: optional initial contents, no longer than size
	//
	// Returns:
	//   - backend.Buffer: the bound buffer
	//   - error: a *common.ResourceCreationError if the buffer could not be created
	CreateBuffer(key string, size uint64, usage wgpu.BufferUsage, data []byte) (backend.Buffer, error)

	// CreateStorageBuffer returns the storage buffer bound to key, allocating it from data when unbound.
	// The buffer has STORAGE, COPY_DST and COPY_SRC usage. Empty data allocates a zeroed 16-byte buffer.
	//
	// Parameters:
	//   - key: the resource key
	//   - data: the buffer contents
	//
	// Returns:
	//   - backend.Buffer: the bound buffer
	//   - error: a *common.ResourceCreationError if the buffer could not be created
	CreateStorageBuffer(key string, data []byte) (backend.Buffer, error)

	// CreateUniformBuffer returns the uniform buffer bound to key. The size is rounded up to the
	// device's uniform offset alignment.
	//
	// Parameters:
	//   - key: the resource key
	//   - size: the minimum size in bytes
	//
	// Returns:
	//   - backend.Buffer: the bound buffer
	//   - error: a *common.ResourceCreationError if the buffer could not be created
	CreateUniformBuffer(key string, size uint64) (backend.Buffer, error)

	// CreateTexture returns the texture bound to key, allocating it from desc when unbound.
	//
	// Parameters:
	//   - key: the resource key
	//   - desc: the texture descriptor; an empty label is replaced by key
	//
	// Returns:
	//   - backend.Texture: the bound texture
	//   - error: a *common.ResourceCreationError if the texture could not be created
	CreateTexture(key string, desc backend.TextureDescriptor) (backend.Texture, error)

	// CreateStorageTexture returns a texture usable as a compute storage image and a sampled texture.
	//
	// Parameters:
	//   - key: the resource key
	//   - width: the width in texels
	//   - height: the height in texels
	//   - format: the texel format, wgpu.TextureFormatUndefined selects rgba8unorm
	//
	// Returns:
	//   - backend.Texture: the bound texture
	//   - error: a *common.ResourceCreationError if the texture could not be created
	CreateStorageTexture(key string, width, height uint32, format wgpu.TextureFormat) (backend.Texture, error)

	// CreateSampler returns the sampler bound to key, allocating it from desc when unbound.
	CreateSampler(key string, desc backend.SamplerDescriptor) (backend.Sampler, error)

	// StandardSampler returns the shared linear clamp-to-edge sampler bound to StandardSamplerKey.
	StandardSampler() (backend.Sampler, error)

	// CreateShaderModule returns the module compiled from the library program named key. A program that
	// fails to compile is not cached, so a later call after the source is corrected compiles again.
	//
	// Parameters:
	//   - key: the shader program name, also used as the resource key
	//
	// Returns:
	//   - backend.ShaderModule: the compiled module
	//   - error: a *common.ShaderCompileError on compile failure, or a *common.ResourceCreationError
	CreateShaderModule(key string) (backend.ShaderModule, error)

	// CreateBindGroupLayout returns the layout bound to key, allocating it from desc when unbound.
	CreateBindGroupLayout(key string, desc wgpu.BindGroupLayoutDescriptor) (backend.BindGroupLayout, error)

	// CreateBindGroup returns the bind group bound to key, allocating it when unbound.
	//
	// Parameters:
	//   - key: the resource key
	//   - layout: the layout the group is created against
	//   - entries: one resource per binding of layout
	//
	// Returns:
	//   - backend.BindGroup: the bound group
	//   - error: a *common.ResourceCreationError if the group could not be created
	CreateBindGroup(key string, layout backend.BindGroupLayout, entries []backend.BindGroupEntry) (backend.BindGroup, error)

	// CreateRenderPipeline returns the render pipeline bound to key, compiling it when unbound.
	//
	// Returns:
	//   - backend.RenderPipeline: the bound pipeline
	//   - error: a *common.ShaderCompileError if linking failed
	CreateRenderPipeline(key string, desc backend.RenderPipelineDescriptor) (backend.RenderPipeline, error)

	// CreateComputePipeline returns the compute pipeline bound to key, compiling it when unbound.
	//
	// Returns:
	//   - backend.ComputePipeline: the bound pipeline
	//   - error: a *common.ShaderCompileError if linking failed
	CreateComputePipeline(key string, desc backend.ComputePipelineDescriptor) (backend.ComputePipeline, error)

	// Buffer looks up a buffer by key.
	Buffer(key string) (backend.Buffer, bool)
	// Texture looks up a texture by key.
	Texture(key string) (backend.Texture, bool)
	// Sampler looks up a sampler by key.
	Sampler(key string) (backend.Sampler, bool)
	// ShaderModule looks up a shader module by key.
	ShaderModule(key string) (backend.ShaderModule, bool)
	// BindGroupLayout looks up a bind group layout by key.
	BindGroupLayout(key string) (backend.BindGroupLayout, bool)
	// BindGroup looks up a bind group by key.
	BindGroup(key string) (backend.BindGroup, bool)
	// RenderPipeline looks up a render pipeline by key.
	RenderPipeline(key string) (backend.RenderPipeline, bool)
	// ComputePipeline looks up a compute pipeline by key.
	ComputePipeline(key string) (backend.ComputePipeline, bool)

	// Has reports whether any object is bound to key.
	Has(key string) bool

	// Keys returns the bound keys with the given prefix in sorted order.
	Keys(prefix string) []string

	// WriteBuffer writes data into the buffer bound to key.
	//
	// Parameters:
	//   - key: the buffer key
	//   - offset: the destination offset in bytes
	//   - data: the bytes to write
	//
	// Returns:
	//   - error: an error if key is not a buffer or the write is out of range
	WriteBuffer(key string, offset uint64, data []byte) error

	// Destroy releases the object bound to key and unbinds the key. Unbound keys are ignored.
	Destroy(key string)

	// DestroyPrefix destroys every key starting with prefix and returns how many were destroyed.
	DestroyPrefix(prefix string) int

	// DestroyAll releases every object, dependents first.
	DestroyAll()

	// Stats returns per-kind counts and the bytes held by buffers and textures.
	Stats() Stats
}

var _ Manager = &manager{}

// NewManager creates a Manager that allocates on device and compiles programs from library.
//
// Parameters:
//   - device: the device to allocate on
//   - library: the shader library CreateShaderModule reads from
//   - options: builder options
//
// Returns:
//   - Manager: the resource manager
func NewManager(device backend.Device, library *shader.Library, options ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:        &sync.Mutex{},
		device:    device,
		library:   library,
		validator: shader.NagaValidator{},
		logger:    log.New("resource"),
		entries:   make(map[string]*entry),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *manager) Device() backend.Device {
	return m.device
}

func (m *manager) Library() *shader.Library {
	return m.library
}

// getOrCreate returns the object bound to key or binds the result of create. It must be called with m.mu held.
func getOrCreate[T backend.Object](m *manager, key string, kind Kind, create func() (T, uint64, error)) (T, error) {
	var zero T
	if key == "" {
		return zero, &common.ResourceCreationError{Key: key, Reason: "empty key"}
	}
	if e, ok := m.entries[key]; ok {
		if e.kind != kind {
			return zero, &common.ResourceCreationError{
				Key:    key,
				Reason: fmt.Sprintf("key is bound to a %s, requested a %s", e.kind, kind),
			}
		}
		return e.obj.(T), nil
	}
	obj, bytes, err := create()
	if err != nil {
		return zero, err
	}
	m.entries[key] = &entry{kind: kind, obj: obj, bytes: bytes}
	m.logger.Debugf("created %s %q", kind, key)
	return obj, nil
}

func lookup[T backend.Object](m *manager, key string, kind Kind) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero T
	e, ok := m.entries[key]
	if !ok || e.kind != kind {
		return zero, false
	}
	return e.obj.(T), true
}

func (m *manager) CreateBuffer(key string, size uint64, usage wgpu.BufferUsage, data []byte) (backend.Buffer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBuffer(key, size, usage, data)
}

func (m *manager) createBuffer(key string, size uint64, usage wgpu.BufferUsage, data []byte) (backend.Buffer, error) {
	return getOrCreate(m, key, KindBuffer, func() (backend.Buffer, uint64, error) {
		if size == 0 {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "buffer size must be non-zero"}
		}
		if uint64(len(data)) > size {
			return nil, 0, &common.ResourceCreationError{
				Key:    key,
				Reason: fmt.Sprintf("initial data of %d bytes exceeds buffer size %d", len(data), size),
			}
		}
		buf, err := m.device.CreateBuffer(backend.BufferDescriptor{Label: key, Size: size, Usage: usage | wgpu.BufferUsageCopyDst})
		if err != nil {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "device allocation failed", Err: err}
		}
		if data != nil {
			if err := m.device.WriteBuffer(buf, 0, data); err != nil {
				buf.Release()
				return nil, 0, &common.ResourceCreationError{Key: key, Reason: "initial upload failed", Err: err}
			}
		}
		return buf, size, nil
	})
}

func (m *manager) CreateStorageBuffer(key string, data []byte) (backend.Buffer, error) {
	if len(data) == 0 {
		data = make([]byte, storageFallbackSize)
	}
	size := common.AlignUp(uint64(len(data)), 4)
	if size != uint64(len(data)) {
		padded := make([]byte, size)
		copy(padded, data)
		data = padded
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBuffer(key, size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc, data)
}

func (m *manager) CreateUniformBuffer(key string, size uint64) (backend.Buffer, error) {
	size = common.AlignUp(size, m.device.Capabilities().UniformAlignment())

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBuffer(key, size, wgpu.BufferUsageUniform, nil)
}

func (m *manager) CreateTexture(key string, desc backend.TextureDescriptor) (backend.Texture, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getOrCreate(m, key, KindTexture, func() (backend.Texture, uint64, error) {
		if desc.Width == 0 || desc.Height == 0 {
			return nil, 0, &common.ResourceCreationError{
				Key:    key,
				Reason: fmt.Sprintf("texture extent %dx%d is empty", desc.Width, desc.Height),
			}
		}
		desc.Label = common.Coalesce(desc.Label, key)
		tex, err := m.device.CreateTexture(desc)
		if err != nil {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "device allocation failed", Err: err}
		}
		return tex, uint64(desc.Width) * uint64(desc.Height) * bytesPerTexel(desc.Format), nil
	})
}

func (m *manager) CreateStorageTexture(key string, width, height uint32, format wgpu.TextureFormat) (backend.Texture, error) {
	return m.CreateTexture(key, backend.TextureDescriptor{
		Label:  key,
		Width:  width,
		Height: height,
		Format: common.Coalesce(format, wgpu.TextureFormatRGBA8Unorm),
		Usage:  wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
}

func (m *manager) CreateSampler(key string, desc backend.SamplerDescriptor) (backend.Sampler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getOrCreate(m, key, KindSampler, func() (backend.Sampler, uint64, error) {
		desc.Label = common.Coalesce(desc.Label, key)
		s, err := m.device.CreateSampler(desc)
		if err != nil {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "device allocation failed", Err: err}
		}
		return s, 0, nil
	})
}

func (m *manager) StandardSampler() (backend.Sampler, error) {
	return m.CreateSampler(StandardSamplerKey, backend.SamplerDescriptor{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeLinear,
		MinFilter:    wgpu.FilterModeLinear,
		MipmapFilter: wgpu.MipmapFilterModeLinear,
	})
}

func (m *manager) CreateShaderModule(key string) (backend.ShaderModule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getOrCreate(m, key, KindShaderModule, func() (backend.ShaderModule, uint64, error) {
		if m.library == nil {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "no shader library configured"}
		}
		source, ok := m.library.Source(key)
		if !ok {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "no shader program registered under key"}
		}
		if m.validator != nil {
			if err := m.validator.Validate(key, source); err != nil {
				return nil, 0, asCompileError(key, err)
			}
		}
		mod, err := m.device.CreateShaderModule(key, source)
		if err != nil {
			return nil, 0, asCompileError(key, err)
		}
		return mod, 0, nil
	})
}

func (m *manager) CreateBindGroupLayout(key string, desc wgpu.BindGroupLayoutDescriptor) (backend.BindGroupLayout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getOrCreate(m, key, KindBindGroupLayout, func() (backend.BindGroupLayout, uint64, error) {
		desc.Label = common.Coalesce(desc.Label, key)
		l, err := m.device.CreateBindGroupLayout(desc)
		if err != nil {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "layout creation failed", Err: err}
		}
		return l, 0, nil
	})
}

func (m *manager) CreateBindGroup(key string, layout backend.BindGroupLayout, entries []backend.BindGroupEntry) (backend.BindGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getOrCreate(m, key, KindBindGroup, func() (backend.BindGroup, uint64, error) {
		if layout == nil {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "bind group requires a layout"}
		}
		g, err := m.device.CreateBindGroup(backend.BindGroupDescriptor{Label: key, Layout: layout, Entries: entries})
		if err != nil {
			return nil, 0, &common.ResourceCreationError{Key: key, Reason: "bind group creation failed", Err: err}
		}
		return g, 0, nil
	})
}

func (m *manager) CreateRenderPipeline(key string, desc backend.RenderPipelineDescriptor) (backend.RenderPipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getOrCreate(m, key, KindRenderPipeline, func() (backend.RenderPipeline, uint64, error) {
		desc.Label = common.Coalesce(desc.Label, key)
		p, err := m.device.CreateRenderPipeline(desc)
		if err != nil {
			return nil, 0, asCompileError(key, err)
		}
		return p, 0, nil
	})
}

func (m *manager) CreateComputePipeline(key string, desc backend.ComputePipelineDescriptor) (backend.ComputePipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return getOrCreate(m, key, KindComputePipeline, func() (backend.ComputePipeline, uint64, error) {
		desc.Label = common.Coalesce(desc.Label, key)
		p, err := m.device.CreateComputePipeline(desc)
		if err != nil {
			return nil, 0, asCompileError(key, err)
		}
		return p, 0, nil
	})
}

func (m *manager) Buffer(key string) (backend.Buffer, bool) {
	return lookup[backend.Buffer](m, key, KindBuffer)
}

func (m *manager) Texture(key string) (backend.Texture, bool) {
	return lookup[backend.Texture](m, key, KindTexture)
}

func (m *manager) Sampler(key string) (backend.Sampler, bool) {
	return lookup[backend.Sampler](m, key, KindSampler)
}

func (m *manager) ShaderModule(key string) (backend.ShaderModule, bool) {
	return lookup[backend.ShaderModule](m, key, KindShaderModule)
}

func (m *manager) BindGroupLayout(key string) (backend.BindGroupLayout, bool) {
	return lookup[backend.BindGroupLayout](m, key, KindBindGroupLayout)
}

func (m *manager) BindGroup(key string) (backend.BindGroup, bool) {
	return lookup[backend.BindGroup](m, key, KindBindGroup)
}

func (m *manager) RenderPipeline(key string) (backend.RenderPipeline, bool) {
	return lookup[backend.RenderPipeline](m, key, KindRenderPipeline)
}

func (m *manager) ComputePipeline(key string) (backend.ComputePipeline, bool) {
	return lookup[backend.ComputePipeline](m, key, KindComputePipeline)
}

func (m *manager) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func (m *manager) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *manager) WriteBuffer(key string, offset uint64, data []byte) error {
	buf, ok := m.Buffer(key)
	if !ok {
		return &common.ResourceCreationError{Key: key, Reason: "no buffer bound to key"}
	}
	if err := m.device.WriteBuffer(buf, offset, data); err != nil {
		return fmt.Errorf("failed to write buffer %q: %w", key, err)
	}
	return nil
}

func (m *manager) Destroy(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroy(key)
}

func (m *manager) destroy(key string) {
	e, ok := m.entries[key]
	if !ok {
		return
	}
	delete(m.entries, key)
	e.obj.Release()
	m.logger.Debugf("destroyed %s %q", e.kind, key)
}

func (m *manager) DestroyPrefix(prefix string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := m.sortedKeys(func(k string) bool { return strings.HasPrefix(k, prefix) })
	for _, k := range keys {
		m.destroy(k)
	}
	return len(keys)
}

func (m *manager) DestroyAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range m.sortedKeys(nil) {
		m.destroy(k)
	}
}

// sortedKeys returns matching keys with dependents first, then by key. It must be called with m.mu held.
func (m *manager) sortedKeys(match func(string) bool) []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if match == nil || match(k) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		ki, kj := m.entries[keys[i]].kind, m.entries[keys[j]].kind
		if ki != kj {
			return ki > kj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (m *manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Stats{Counts: make(map[Kind]int, len(Kinds))}
	for _, e := range m.entries {
		s.Counts[e.kind]++
		switch e.kind {
		case KindBuffer:
			s.BufferBytes += e.bytes
		case KindTexture:
			s.TextureBytes += e.bytes
		}
	}
	return s
}

func asCompileError(key string, err error) error {
	if common.IsShaderCompileError(err) {
		return err
	}
	return &common.ShaderCompileError{Shader: key, Diagnostics: shader.Diagnostics(err), Err: err}
}

func bytesPerTexel(format wgpu.TextureFormat) uint64 {
	switch format {
	case wgpu.TextureFormatRGBA32Float, wgpu.TextureFormatRGBA32Uint, wgpu.TextureFormatRGBA32Sint:
		return 16
	case wgpu.TextureFormatRGBA16Float, wgpu.TextureFormatRGBA16Uint, wgpu.TextureFormatRGBA16Sint, wgpu.TextureFormatRG32Float:
		return 8
	case wgpu.TextureFormatR8Unorm:
		return 1
	default:
		return 4
	}
}
