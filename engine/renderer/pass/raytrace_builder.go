package pass

// RaytracePassBuilderOption is a functional option used to configure a RaytracePass during construction.
type RaytracePassBuilderOption func(*raytracePass)

// WithTile sets the compute workgroup edge length. It must match the workgroup size the raytrace
// program declares or Prepare fails with a ConfigurationError.
//
// Parameters:
//   - tile: the workgroup edge length
//
// Returns:
//   - RaytracePassBuilderOption: the option
func WithTile(tile uint32) RaytracePassBuilderOption {
	return func(r *raytracePass) {
		r.tile = tile
	}
}
