package backend

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

type wgpuConfig struct {
	forceFallbackAdapter bool
	presentMode          wgpu.PresentMode
	logger               log.Logger
}

// WGPUBuilderOption is a functional option applied by NewWGPU.
type WGPUBuilderOption func(*wgpuConfig)

// WithForceFallbackAdapter forces WGPU to use a CPU/software fallback adapter instead of
// hardware GPU acceleration. This requires a software Vulkan ICD to be installed on the system
// (e.g. SwiftShader or lavapipe).
//
// Parameters:
//   - force: true to force the software fallback adapter, false to use hardware (default)
//
// Returns:
//   - WGPUBuilderOption: option function to apply
func WithForceFallbackAdapter(force bool) WGPUBuilderOption {
	return func(c *wgpuConfig) {
		c.forceFallbackAdapter = force
	}
}

// WithPresentMode sets the surface present mode.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - WGPUBuilderOption: option function to apply
func WithPresentMode(mode PresentMode) WGPUBuilderOption {
	return func(c *wgpuConfig) {
		switch mode {
		case PresentModeVSync:
			c.presentMode = wgpu.PresentModeFifo
		default:
			c.presentMode = wgpu.PresentModeImmediate
		}
	}
}

// WithLogger overrides the backend logger.
func WithLogger(logger log.Logger) WGPUBuilderOption {
	return func(c *wgpuConfig) {
		c.logger = logger
	}
}
