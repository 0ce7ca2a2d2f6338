package pass

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
)

// RasterPassBuilderOption is a functional option used to configure a RasterPass during construction.
type RasterPassBuilderOption func(*rasterPass)

// WithMeshDetail sets the tessellation of the sphere mesh every object is drawn with.
//
// Parameters:
//   - rings: latitude bands
//   - segments: longitude slices
//
// Returns:
//   - RasterPassBuilderOption: the option
func WithMeshDetail(rings, segments int) RasterPassBuilderOption {
	return func(r *rasterPass) {
		r.rings = rings
		r.segments = segments
	}
}

// WithRasterLogger sets the logger used for entity resource messages.
func WithRasterLogger(logger log.Logger) RasterPassBuilderOption {
	return func(r *rasterPass) {
		r.logger = logger
	}
}
