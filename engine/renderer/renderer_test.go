package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend/backendtest"
)

func TestNewContextChecksLimits(t *testing.T) {
	dev := backendtest.NewDevice()
	caps := dev.Capabilities()
	caps.Limits.MaxStorageBuffersPerShaderStage = 2
	dev.SetCapabilities(caps)

	_, err := NewContext(dev, nil, WithValidator(nil))
	if !common.IsConfigurationError(err) {
		t.Fatalf("NewContext() error = %v, want ConfigurationError", err)
	}
}

func TestNewContextTileAgainstInvocations(t *testing.T) {
	dev := backendtest.NewDevice()
	if _, err := NewContext(dev, nil, WithValidator(nil), WithTile(32)); !common.IsConfigurationError(err) {
		t.Errorf("NewContext(tile 32) error = %v, want ConfigurationError", err)
	}
}

func TestContextRelease(t *testing.T) {
	dev := backendtest.NewDevice()
	surface := backendtest.NewSurface(dev)
	ctx, err := NewContext(dev, surface, WithValidator(nil))
	if err != nil {
		t.Fatal(err)
	}
	if err := ctx.Configure(320, 240); err != nil {
		t.Fatal(err)
	}
	if w, h := surface.Size(); w != 320 || h != 240 {
		t.Errorf("surface size = %dx%d, want 320x240", w, h)
	}
	if _, err := ctx.Resources.CreateUniformBuffer("u", 16); err != nil {
		t.Fatal(err)
	}
	ctx.Release()
	if got := dev.Live(backendtest.KindBuffer); got != 0 {
		t.Errorf("live buffers after Release = %d, want 0", got)
	}
}
