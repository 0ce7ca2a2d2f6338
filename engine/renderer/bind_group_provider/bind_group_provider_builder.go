package bind_group_provider

import "github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithLabel sets the debug label, which defaults to the bind group key.
func WithLabel(label string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.label = label
	}
}

// WithLayout sets the bind group layout for this provider.
//
// Parameters:
//   - layout: the bind group layout to use for this provider
//
// Returns:
//   - BindGroupProviderOption: a function that sets the layout for this provider
func WithLayout(layout backend.BindGroupLayout) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.layout = layout
	}
}

// WithBuffer binds a buffer key at a binding index.
//
// Parameters:
//   - binding: the binding index for this buffer
//   - key: the buffer's resource key
//
// Returns:
//   - BindGroupProviderOption: a function that binds the buffer
func WithBuffer(binding int, key string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.buffers[binding] = key
	}
}

// WithTextureView binds a texture key at a binding index.
func WithTextureView(binding int, key string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.textureViews[binding] = key
	}
}

// WithSampler binds a sampler key at a binding index.
func WithSampler(binding int, key string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.samplers[binding] = key
	}
}

// WithOwned marks keys as owned by the provider so Release destroys them.
func WithOwned(keys ...string) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.owned = append(p.owned, keys...)
	}
}
