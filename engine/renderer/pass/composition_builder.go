package pass

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// CompositionPassBuilderOption is a functional option used to configure a CompositionPass during construction.
type CompositionPassBuilderOption func(*compositionPass)

// WithSurfaceFormat sets the texel format of the presentation target.
//
// Parameters:
//   - format: the surface format
//
// Returns:
//   - CompositionPassBuilderOption: the option
func WithSurfaceFormat(format wgpu.TextureFormat) CompositionPassBuilderOption {
	return func(c *compositionPass) {
		c.format = format
	}
}

// WithBlend sets the initial blend factor.
func WithBlend(factor float32) CompositionPassBuilderOption {
	return func(c *compositionPass) {
		c.blend = factor
	}
}
