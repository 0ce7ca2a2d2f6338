package bind_group_provider

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// key is the resource key the assembled bind group is bound to.
	key string

	layout backend.BindGroupLayout

	// The following maps hold resource manager keys by binding index.

	buffers      map[int]string
	textureViews map[int]string
	samplers     map[int]string

	// owned lists the keys this provider destroys on Release in addition to its bind group.
	owned []string

	vertexBuffer string
	indexBuffer  string
	indexCount   int
}

// BindGroupProvider assembles one bind group from resources held by the resource manager. It stores
// keys, never handles, so the group can be rebuilt after any of its resources is recreated.
//
// Usage pattern:
//  1. Create a provider with the layout and the key of each bound resource
//  2. Call BindGroup(resources) each frame; the group is created on first use and cached by key
//  3. After recreating a bound resource, call Invalidate(resources) so the next BindGroup rebuilds
//  4. Call Release(resources) to destroy the group and any resources the provider owns
type BindGroupProvider interface {
	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Key returns the resource key of the assembled bind group.
	//
	// Returns:
	//   - string: the bind group key
	Key() string

	// Layout returns the layout the group is created against.
	Layout() backend.BindGroupLayout

	// SetLayout replaces the layout and invalidates nothing; call Invalidate if the group already exists.
	SetLayout(layout backend.BindGroupLayout)

	// Buffer returns the buffer key bound at binding, or an empty string.
	Buffer(binding int) string

	// SetBuffer binds the buffer stored under key at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - key: the buffer's resource key
	SetBuffer(binding int, key string)

	// SetTextureView binds the default view of the texture stored under key at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - key: the texture's resource key
	SetTextureView(binding int, key string)

	// SetSampler binds the sampler stored under key at binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - key: the sampler's resource key
	SetSampler(binding int, key string)

	// VertexBuffer returns the vertex buffer key used for draw calls, or an empty string.
	VertexBuffer() string

	// SetVertexBuffer records the vertex buffer key used for draw calls.
	SetVertexBuffer(key string)

	// IndexBuffer returns the index buffer key used for draw calls, or an empty string.
	IndexBuffer() string

	// IndexCount returns the number of indices for draw calls.
	IndexCount() int

	// SetIndexBuffer records the index buffer key and the number of indices to draw.
	SetIndexBuffer(key string, count int)

	// Own marks keys as owned by this provider so Release destroys them.
	Own(keys ...string)

	// BindGroup returns the assembled bind group, creating it when it is not bound.
	//
	// Parameters:
	//   - resources: the resource manager holding every referenced key
	//
	// Returns:
	//   - backend.BindGroup: the bind group
	//   - error: a *common.ResourceCreationError if a referenced key is missing or creation failed
	BindGroup(resources resource.Manager) (backend.BindGroup, error)

	// Invalidate destroys the assembled bind group so the next BindGroup call rebuilds it.
	Invalidate(resources resource.Manager)

	// Release destroys the bind group and every owned key.
	Release(resources resource.Manager)
}

// Compile-time check that bindGroupProvider implements BindGroupProvider
var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider whose group is bound to key.
//
// Parameters:
//   - key: the resource key of the assembled bind group
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(key string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:        key,
		key:          key,
		buffers:      make(map[int]string),
		textureViews: make(map[int]string),
		samplers:     make(map[int]string),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Key() string {
	return p.key
}

func (p *bindGroupProvider) Layout() backend.BindGroupLayout {
	return p.layout
}

func (p *bindGroupProvider) SetLayout(layout backend.BindGroupLayout) {
	p.layout = layout
}

func (p *bindGroupProvider) Buffer(binding int) string {
	return p.buffers[binding]
}

func (p *bindGroupProvider) SetBuffer(binding int, key string) {
	p.buffers[binding] = key
}

func (p *bindGroupProvider) SetTextureView(binding int, key string) {
	p.textureViews[binding] = key
}

func (p *bindGroupProvider) SetSampler(binding int, key string) {
	p.samplers[binding] = key
}

func (p *bindGroupProvider) VertexBuffer() string {
	return p.vertexBuffer
}

func (p *bindGroupProvider) SetVertexBuffer(key string) {
	p.vertexBuffer = key
}

func (p *bindGroupProvider) IndexBuffer() string {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetIndexBuffer(key string, count int) {
	p.indexBuffer = key
	p.indexCount = count
}

func (p *bindGroupProvider) Own(keys ...string) {
	p.owned = append(p.owned, keys...)
}

func (p *bindGroupProvider) BindGroup(resources resource.Manager) (backend.BindGroup, error) {
	if g, ok := resources.BindGroup(p.key); ok {
		return g, nil
	}
	entries, err := p.entries(resources)
	if err != nil {
		return nil, err
	}
	return resources.CreateBindGroup(p.key, p.layout, entries)
}

func (p *bindGroupProvider) entries(resources resource.Manager) ([]backend.BindGroupEntry, error) {
	entries := make([]backend.BindGroupEntry, 0, len(p.buffers)+len(p.textureViews)+len(p.samplers))
	for binding, key := range p.buffers {
		buf, ok := resources.Buffer(key)
		if !ok {
			return nil, p.missing(binding, "buffer", key)
		}
		entries = append(entries, backend.BindGroupEntry{Binding: uint32(binding), Buffer: buf})
	}
	for binding, key := range p.textureViews {
		tex, ok := resources.Texture(key)
		if !ok {
			return nil, p.missing(binding, "texture", key)
		}
		entries = append(entries, backend.BindGroupEntry{Binding: uint32(binding), View: tex.View()})
	}
	for binding, key := range p.samplers {
		s, ok := resources.Sampler(key)
		if !ok {
			return nil, p.missing(binding, "sampler", key)
		}
		entries = append(entries, backend.BindGroupEntry{Binding: uint32(binding), Sampler: s})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Binding < entries[j].Binding
	})
	return entries, nil
}

func (p *bindGroupProvider) missing(binding int, kind, key string) error {
	return &common.ResourceCreationError{
		Key:    p.key,
		Reason: fmt.Sprintf("binding %d references %s %q which is not bound", binding, kind, key),
	}
}

func (p *bindGroupProvider) Invalidate(resources resource.Manager) {
	resources.Destroy(p.key)
}

func (p *bindGroupProvider) Release(resources resource.Manager) {
	resources.Destroy(p.key)
	for _, key := range p.owned {
		resources.Destroy(key)
	}
	p.owned = nil
}
