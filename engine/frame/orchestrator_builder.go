package frame

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
)

// OrchestratorBuilderOption is a functional option used to configure an Orchestrator during construction.
type OrchestratorBuilderOption func(*orchestrator)

// WithBuilder sets the acceleration structure builder.
//
// Parameters:
//   - b: the builder
//
// Returns:
//   - OrchestratorBuilderOption: the option
func WithBuilder(b accel.Builder) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.builder = b
	}
}

// WithSize sets the initial framebuffer size. The G-buffer is allocated on the first frame.
//
// Parameters:
//   - width: width in pixels
//   - height: height in pixels
//
// Returns:
//   - OrchestratorBuilderOption: the option
func WithSize(width, height uint32) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.pending = &extent{width, height}
	}
}

// WithTile sets the raytrace workgroup edge length.
func WithTile(tile uint32) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.tile = tile
	}
}

// WithBlend sets the composition blend factor, clamped to [0, 1].
func WithBlend(factor float32) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.blend = factor
	}
}

// WithMeshDetail sets the tessellation of the raster sphere mesh.
func WithMeshDetail(rings, segments int) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.rings, o.segments = rings, segments
	}
}

// WithClassifier sets the failure classifier.
//
// Parameters:
//   - c: the classifier; nil restores DefaultClassifier
//
// Returns:
//   - OrchestratorBuilderOption: the option
func WithClassifier(c Classifier) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.classify = c
	}
}

// WithHaltOnError makes every frame failure fatal when halt is true.
func WithHaltOnError(halt bool) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		if halt {
			o.classify = HaltOnError
		}
	}
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger log.Logger) OrchestratorBuilderOption {
	return func(o *orchestrator) {
		o.logger = logger
	}
}
