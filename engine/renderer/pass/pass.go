// Package pass encodes the three stages of a hybrid frame: the raster pass fills the G-buffer, the
// raytrace pass traces the sphere set through the flattened BVH into a storage image, and the
// composition pass blends both into the presentation target.
//
// Passes never own device objects directly. Every buffer, texture and bind group is created through
// the resource manager under a fixed key, and pipelines come from the pipeline manager by name.
package pass

import (
	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// Pass names used as labels and in PassExecutionError.
const (
	RasterName      = "raster"
	RaytraceName    = "raytrace"
	CompositionName = "composition"
	DiagnosticName  = "diagnostic"
)

// ClearColor is the background of the presented frame.
var ClearColor = wgpu.Color{R: 0.1, G: 0.1, B: 0.3, A: 1}

// DiagnosticColor is the flat color shown for a frame that failed with a recoverable error.
var DiagnosticColor = wgpu.Color{R: 0.6, G: 0.0, B: 0.6, A: 1}

// EncodeClear records a render pass that only clears target to color. It binds no pipeline, so it
// succeeds even when every program failed to compile.
//
// Parameters:
//   - enc: the frame encoder
//   - target: the view to clear
//   - color: the clear color
//
// Returns:
//   - error: a *common.PassExecutionError if the pass could not be closed
func EncodeClear(enc backend.CommandEncoder, target backend.TextureView, color wgpu.Color) error {
	rp := enc.BeginRenderPass(backend.RenderPassDescriptor{
		Label:            DiagnosticName,
		ColorAttachments: []backend.ColorAttachment{{View: target, Clear: color}},
	})
	if err := rp.End(); err != nil {
		return &common.PassExecutionError{Pass: DiagnosticName, Err: err}
	}
	return nil
}

func uniformEntry(binding uint32, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: visibility,
		Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
	}
}

func layout(name string, entries ...wgpu.BindGroupLayoutEntry) pipeline.LayoutDescriptor {
	return pipeline.LayoutDescriptor{
		Name:       name,
		Descriptor: wgpu.BindGroupLayoutDescriptor{Label: name, Entries: entries},
	}
}
