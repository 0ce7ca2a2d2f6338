package backend

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestRequireUsesGrantedLimits(t *testing.T) {
	granted := wgpu.Limits{
		MaxBindGroups:                     4,
		MaxStorageBuffersPerShaderStage:   8,
		MaxStorageTexturesPerShaderStage:  4,
		MaxComputeInvocationsPerWorkgroup: 256,
		MaxComputeWorkgroupSizeX:          256,
		MaxComputeWorkgroupSizeY:          256,
		MinUniformBufferOffsetAlignment:   256,
		MaxBufferSize:                     1 << 28,
	}
	caps := Capabilities{Limits: limitsFrom(granted)}
	if caps.Limits.MaxComputeInvocationsPerWorkgroup != 256 || caps.Limits.MaxBufferSize != 1<<28 {
		t.Fatalf("limitsFrom() = %+v", caps.Limits)
	}
	if err := caps.Require(8); err != nil {
		t.Errorf("Require(8) error = %v", err)
	}
	var ce *common.ConfigurationError
	if err := caps.Require(16); !errors.As(err, &ce) {
		t.Fatalf("Require(16) error = %v, want ConfigurationError", err)
	}
	if ce.Setting != "maxComputeInvocationsPerWorkgroup" {
		t.Errorf("Require(16) setting = %q", ce.Setting)
	}
	if caps.UniformAlignment() != 256 {
		t.Errorf("UniformAlignment() = %d, want 256", caps.UniformAlignment())
	}
}
