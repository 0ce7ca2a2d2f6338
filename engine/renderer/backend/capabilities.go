package backend

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// Minimum limits the hybrid frame requires. The raytrace kernel binds three read-only storage buffers
// and one storage texture in a single group; the raster pass uses two bind groups.
const (
	RequiredBindGroups              = 2
	RequiredStorageBuffersPerStage  = 3
	RequiredStorageTexturesPerStage = 1
)

// DefaultUniformAlignment is used when a device reports no uniform offset alignment.
const DefaultUniformAlignment = 256

// limitsFrom copies the limits the renderer checks out of a device limit set.
func limitsFrom(l wgpu.Limits) Limits {
	return Limits{
		MaxBindGroups:                     l.MaxBindGroups,
		MaxStorageBuffersPerShaderStage:   l.MaxStorageBuffersPerShaderStage,
		MaxStorageTexturesPerShaderStage:  l.MaxStorageTexturesPerShaderStage,
		MaxComputeInvocationsPerWorkgroup: l.MaxComputeInvocationsPerWorkgroup,
		MaxComputeWorkgroupSizeX:          l.MaxComputeWorkgroupSizeX,
		MaxComputeWorkgroupSizeY:          l.MaxComputeWorkgroupSizeY,
		MaxTextureDimension2D:             l.MaxTextureDimension2D,
		MinUniformBufferOffsetAlignment:   l.MinUniformBufferOffsetAlignment,
		MaxBufferSize:                     l.MaxBufferSize,
	}
}

// UniformAlignment returns the minimum uniform buffer alignment, falling back to DefaultUniformAlignment.
func (c Capabilities) UniformAlignment() uint64 {
	if c.Limits.MinUniformBufferOffsetAlignment == 0 {
		return DefaultUniformAlignment
	}
	return uint64(c.Limits.MinUniformBufferOffsetAlignment)
}

// Require checks the limits the renderer depends on for a compute tile of tileSize×tileSize invocations.
//
// Parameters:
//   - tileSize: the compute workgroup edge length
//
// Returns:
//   - error: a *common.ConfigurationError naming the first unsatisfied limit, or nil
func (c Capabilities) Require(tileSize uint32) error {
	l := c.Limits
	checks := []struct {
		name     string
		have     uint64
		required uint64
	}{
		{"maxBindGroups", uint64(l.MaxBindGroups), RequiredBindGroups},
		{"maxStorageBuffersPerShaderStage", uint64(l.MaxStorageBuffersPerShaderStage), RequiredStorageBuffersPerStage},
		{"maxStorageTexturesPerShaderStage", uint64(l.MaxStorageTexturesPerShaderStage), RequiredStorageTexturesPerStage},
		{"maxComputeInvocationsPerWorkgroup", uint64(l.MaxComputeInvocationsPerWorkgroup), uint64(tileSize) * uint64(tileSize)},
		{"maxComputeWorkgroupSizeX", uint64(l.MaxComputeWorkgroupSizeX), uint64(tileSize)},
		{"maxComputeWorkgroupSizeY", uint64(l.MaxComputeWorkgroupSizeY), uint64(tileSize)},
	}
	for _, chk := range checks {
		if chk.have < chk.required {
			return &common.ConfigurationError{
				Setting: chk.name,
				Reason:  fmt.Sprintf("device supports %d, need %d", chk.have, chk.required),
			}
		}
	}
	return nil
}
