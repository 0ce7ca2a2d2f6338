package resource

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend/backendtest"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const brokenMarker = "BROKEN"

func newTestManager(t *testing.T, options ...shader.LibraryBuilderOption) (Manager, *backendtest.Device, *shader.Library) {
	t.Helper()
	lib, err := shader.NewLibrary(options...)
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	dev := backendtest.NewDevice()
	validator := shader.ValidatorFunc(func(key, source string) error {
		if strings.Contains(source, brokenMarker) {
			return &common.ShaderCompileError{Shader: key, Diagnostics: []string{"unexpected token " + brokenMarker}}
		}
		return nil
	})
	return NewManager(dev, lib, WithValidator(validator)), dev, lib
}

func TestCreateBufferIsGetOrCreate(t *testing.T) {
	m, dev, _ := newTestManager(t)

	first, err := m.CreateBuffer("b", 64, wgpu.BufferUsageVertex, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	second, err := m.CreateBuffer("b", 64, wgpu.BufferUsageVertex, nil)
	if err != nil {
		t.Fatalf("CreateBuffer() second call error = %v", err)
	}
	if first != second {
		t.Error("CreateBuffer() returned a different handle for the same key")
	}
	if got := dev.Created(backendtest.KindBuffer); got != 1 {
		t.Errorf("device buffer allocations = %d, want 1", got)
	}
	if first.Usage()&wgpu.BufferUsageCopyDst == 0 {
		t.Error("buffer usage is missing COPY_DST")
	}
}

func TestCreateBufferUploadsInitialData(t *testing.T) {
	m, _, _ := newTestManager(t)

	buf, err := m.CreateBuffer("b", 8, wgpu.BufferUsageStorage, []byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("CreateBuffer() error = %v", err)
	}
	data := buf.(*backendtest.Buffer).Data
	if data[0] != 1 || data[3] != 4 || data[4] != 0 {
		t.Errorf("buffer contents = %v, want initial data followed by zeros", data)
	}
}

func TestCreateBufferRejectsBadSizes(t *testing.T) {
	m, dev, _ := newTestManager(t)

	if _, err := m.CreateBuffer("zero", 0, wgpu.BufferUsageUniform, nil); !common.IsResourceCreationError(err) {
		t.Errorf("size 0 error = %v, want ResourceCreationError", err)
	}
	if m.Has("zero") {
		t.Error("failed key is bound")
	}
	if _, err := m.CreateBuffer("small", 2, wgpu.BufferUsageUniform, []byte{1, 2, 3}); !common.IsResourceCreationError(err) {
		t.Errorf("oversized data error = %v, want ResourceCreationError", err)
	}
	if got := dev.Created(backendtest.KindBuffer); got != 0 {
		t.Errorf("device buffer allocations = %d, want 0", got)
	}
}

func TestDeviceFailureLeavesKeyUnbound(t *testing.T) {
	m, dev, _ := newTestManager(t)
	dev.FailNext(backendtest.KindBuffer, nil)

	_, err := m.CreateBuffer("b", 16, wgpu.BufferUsageUniform, nil)
	var rce *common.ResourceCreationError
	if !errors.As(err, &rce) {
		t.Fatalf("CreateBuffer() error = %v, want ResourceCreationError", err)
	}
	if rce.Key != "b" {
		t.Errorf("Key = %q, want b", rce.Key)
	}
	if !errors.Is(err, backendtest.ErrInjected) {
		t.Error("error does not wrap the device failure")
	}
	if m.Has("b") {
		t.Error("key bound after failed allocation")
	}
	if _, err := m.CreateBuffer("b", 16, wgpu.BufferUsageUniform, nil); err != nil {
		t.Errorf("retry error = %v", err)
	}
}

func TestUniformBufferRoundsToAlignment(t *testing.T) {
	m, dev, _ := newTestManager(t)

	buf, err := m.CreateUniformBuffer("u", 96)
	if err != nil {
		t.Fatalf("CreateUniformBuffer() error = %v", err)
	}
	if buf.Size() != 256 {
		t.Errorf("Size() = %d, want 256", buf.Size())
	}

	caps := dev.Capabilities()
	caps.Limits.MinUniformBufferOffsetAlignment = 64
	dev.SetCapabilities(caps)
	buf, err = m.CreateUniformBuffer("u64", 96)
	if err != nil {
		t.Fatalf("CreateUniformBuffer() error = %v", err)
	}
	if buf.Size() != 128 {
		t.Errorf("Size() with 64-byte alignment = %d, want 128", buf.Size())
	}
}

func TestStorageBufferFallbackAndUsage(t *testing.T) {
	m, _, _ := newTestManager(t)

	buf, err := m.CreateStorageBuffer("empty", nil)
	if err != nil {
		t.Fatalf("CreateStorageBuffer() error = %v", err)
	}
	if buf.Size() != 16 {
		t.Errorf("empty storage Size() = %d, want 16", buf.Size())
	}
	want := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	if buf.Usage() != want {
		t.Errorf("Usage() = %v, want %v", buf.Usage(), want)
	}

	odd, err := m.CreateStorageBuffer("odd", []byte{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("CreateStorageBuffer() error = %v", err)
	}
	if odd.Size() != 8 {
		t.Errorf("Size() = %d, want 8", odd.Size())
	}
}

func TestKindMismatch(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.CreateUniformBuffer("shared", 16); err != nil {
		t.Fatal(err)
	}
	_, err := m.CreateStorageTexture("shared", 4, 4, wgpu.TextureFormatUndefined)
	if !common.IsResourceCreationError(err) {
		t.Errorf("CreateStorageTexture() on a buffer key error = %v, want ResourceCreationError", err)
	}
	if _, ok := m.Texture("shared"); ok {
		t.Error("Texture() lookup succeeded for a buffer key")
	}
	if _, ok := m.Buffer("shared"); !ok {
		t.Error("Buffer() lookup failed")
	}
}

func TestStorageTextureDefaults(t *testing.T) {
	m, _, _ := newTestManager(t)
	tex, err := m.CreateStorageTexture("out", 800, 600, wgpu.TextureFormatUndefined)
	if err != nil {
		t.Fatalf("CreateStorageTexture() error = %v", err)
	}
	if tex.Format() != wgpu.TextureFormatRGBA8Unorm {
		t.Errorf("Format() = %v, want rgba8unorm", tex.Format())
	}
	usage := tex.(*backendtest.Texture).Desc.Usage
	if usage != wgpu.TextureUsageStorageBinding|wgpu.TextureUsageTextureBinding {
		t.Errorf("usage = %v, want storage|texture binding", usage)
	}
	if got := m.Stats().TextureBytes; got != 800*600*4 {
		t.Errorf("TextureBytes = %d, want %d", got, 800*600*4)
	}
}

func TestDestroy(t *testing.T) {
	m, dev, _ := newTestManager(t)
	buf, _ := m.CreateBuffer("b", 16, wgpu.BufferUsageUniform, nil)

	m.Destroy("b")
	if m.Has("b") {
		t.Error("key still bound after Destroy")
	}
	if !buf.(*backendtest.Buffer).IsReleased() {
		t.Error("buffer not released")
	}
	m.Destroy("b")
	m.Destroy("never-bound")
	if got := dev.Released(backendtest.KindBuffer); got != 1 {
		t.Errorf("releases = %d, want 1", got)
	}

	again, _ := m.CreateBuffer("b", 16, wgpu.BufferUsageUniform, nil)
	if again == buf {
		t.Error("recreate after destroy returned the released handle")
	}
}

func TestDestroyPrefixAndAll(t *testing.T) {
	m, dev, _ := newTestManager(t)
	for _, k := range []string{"entity.1.uniform", "entity.2.uniform", "scene.uniform"} {
		if _, err := m.CreateUniformBuffer(k, 16); err != nil {
			t.Fatal(err)
		}
	}
	if n := m.DestroyPrefix("entity."); n != 2 {
		t.Errorf("DestroyPrefix() = %d, want 2", n)
	}
	if got := m.Keys(""); len(got) != 1 || got[0] != "scene.uniform" {
		t.Errorf("Keys() = %v, want [scene.uniform]", got)
	}

	layout, _ := m.CreateBindGroupLayout("layout", wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0, Visibility: wgpu.ShaderStageVertex, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}}},
	})
	ub, _ := m.Buffer("scene.uniform")
	if _, err := m.CreateBindGroup("group", layout, []backend.BindGroupEntry{{Binding: 0, Buffer: ub}}); err != nil {
		t.Fatalf("CreateBindGroup() error = %v", err)
	}

	m.DestroyAll()
	if got := m.Stats().Total(); got != 0 {
		t.Errorf("Stats().Total() after DestroyAll = %d, want 0", got)
	}
	for _, kind := range []string{backendtest.KindBuffer, backendtest.KindBindGroup, backendtest.KindBindGroupLayout} {
		if live := dev.Live(kind); live != 0 {
			t.Errorf("live %s = %d, want 0", kind, live)
		}
	}
	if v := dev.Violations(); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}
}

func TestShaderModuleFailureIsNotCached(t *testing.T) {
	m, dev, lib := newTestManager(t, shader.WithSource("kernel", "@compute @workgroup_size(8, 8) fn main() { BROKEN }"))

	_, err := m.CreateShaderModule("kernel")
	var sce *common.ShaderCompileError
	if !errors.As(err, &sce) {
		t.Fatalf("CreateShaderModule() error = %v, want ShaderCompileError", err)
	}
	if sce.Shader != "kernel" || len(sce.Diagnostics) == 0 {
		t.Errorf("ShaderCompileError = %+v, want shader name and diagnostics", sce)
	}
	if m.Has("kernel") {
		t.Error("failed module is cached")
	}

	lib.Set("kernel", "@compute @workgroup_size(8, 8) fn main() {}")
	mod, err := m.CreateShaderModule("kernel")
	if err != nil {
		t.Fatalf("CreateShaderModule() after fix error = %v", err)
	}
	again, _ := m.CreateShaderModule("kernel")
	if mod != again {
		t.Error("second CreateShaderModule() returned a different module")
	}
	if got := dev.Created(backendtest.KindShaderModule); got != 1 {
		t.Errorf("module allocations = %d, want 1", got)
	}
}

func TestShaderModuleUnknownProgram(t *testing.T) {
	m, _, _ := newTestManager(t)
	if _, err := m.CreateShaderModule("nope"); !common.IsResourceCreationError(err) {
		t.Errorf("CreateShaderModule(unknown) error = %v, want ResourceCreationError", err)
	}
}

func TestDeviceCompileErrorIsWrapped(t *testing.T) {
	m, dev, _ := newTestManager(t)
	dev.ShaderCheck = func(label, source string) error {
		return errors.New("error: entry point missing\n  at line 3")
	}
	_, err := m.CreateShaderModule(shader.KeyGBuffer)
	var sce *common.ShaderCompileError
	if !errors.As(err, &sce) {
		t.Fatalf("error = %v, want ShaderCompileError", err)
	}
	if len(sce.Diagnostics) != 2 {
		t.Errorf("Diagnostics = %q, want 2 lines", sce.Diagnostics)
	}
}

func TestStandardSamplerIsShared(t *testing.T) {
	m, dev, _ := newTestManager(t)
	a, err := m.StandardSampler()
	if err != nil {
		t.Fatal(err)
	}
	b, _ := m.StandardSampler()
	if a != b || dev.Created(backendtest.KindSampler) != 1 {
		t.Error("StandardSampler() allocated more than once")
	}
}

func TestWriteBuffer(t *testing.T) {
	m, dev, _ := newTestManager(t)
	if err := m.WriteBuffer("missing", 0, []byte{1}); err == nil {
		t.Error("WriteBuffer() on an unbound key returned nil")
	}
	if _, err := m.CreateUniformBuffer("u", 16); err != nil {
		t.Fatal(err)
	}
	if err := m.WriteBuffer("u", 4, []byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("WriteBuffer() error = %v", err)
	}
	w := dev.Writes()
	if len(w) != 1 || w[0].Buffer != "u" || w[0].Offset != 4 {
		t.Errorf("writes = %+v, want one write to u at offset 4", w)
	}
}

func TestStatsCountsKinds(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.CreateUniformBuffer("a", 16)
	m.CreateStorageBuffer("b", make([]byte, 32))
	m.StandardSampler()

	s := m.Stats()
	if s.Counts[KindBuffer] != 2 || s.Counts[KindSampler] != 1 {
		t.Errorf("Counts = %v, want 2 buffers and 1 sampler", s.Counts)
	}
	if s.BufferBytes != 256+32 {
		t.Errorf("BufferBytes = %d, want %d", s.BufferBytes, 256+32)
	}
}
