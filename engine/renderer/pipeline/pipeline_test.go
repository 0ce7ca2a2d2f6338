package pipeline

import (
	"errors"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend/backendtest"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func newTestPipelines(t *testing.T, options ...shader.LibraryBuilderOption) (Manager, resource.Manager, *backendtest.Device, *shader.Library) {
	t.Helper()
	lib, err := shader.NewLibrary(options...)
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	dev := backendtest.NewDevice()
	validator := shader.ValidatorFunc(func(key, source string) error {
		if strings.Contains(source, "syntax error") {
			return &common.ShaderCompileError{Shader: key, Diagnostics: []string{"1:1 syntax error"}}
		}
		return nil
	})
	res := resource.NewManager(dev, lib, resource.WithValidator(validator))
	return NewManager(res), res, dev, lib
}

var uniformLayout = LayoutDescriptor{
	Name: "test.uniform",
	Descriptor: wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{{
			Binding:    0,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform},
		}},
	},
}

func TestShaderFixAndRetry(t *testing.T) {
	pm, res, dev, lib := newTestPipelines(t, shader.WithSource("kernel", "@compute @workgroup_size(8, 8) fn main() { syntax error }"))
	req := ComputePipelineRequest{ShaderKey: "kernel", BindGroupLayouts: []LayoutDescriptor{uniformLayout}, Tile: 8}

	_, err := pm.GetOrCreateComputePipeline("rt", req)
	var sce *common.ShaderCompileError
	if !errors.As(err, &sce) {
		t.Fatalf("first call error = %v, want ShaderCompileError", err)
	}
	if sce.Shader != "kernel" || len(sce.Diagnostics) == 0 {
		t.Errorf("ShaderCompileError = %+v, want shader and diagnostics", sce)
	}
	if _, ok := pm.Pipeline("rt"); ok {
		t.Error("failed pipeline is cached")
	}
	if res.Has("kernel") || res.Has(PipelineKeyPrefix+"rt") {
		t.Error("failed compile left objects in the resource manager")
	}

	lib.Set("kernel", "@compute @workgroup_size(8, 8) fn main() {}")
	p, err := pm.GetOrCreateComputePipeline("rt", req)
	if err != nil {
		t.Fatalf("retry error = %v", err)
	}
	again, err := pm.GetOrCreateComputePipeline("rt", req)
	if err != nil || again != p {
		t.Errorf("cached lookup = %v, %v; want the same pipeline", again, err)
	}
	if got := dev.Created(backendtest.KindComputePipeline); got != 1 {
		t.Errorf("compute pipeline allocations = %d, want 1", got)
	}
	if got := p.EntryPoints(); len(got) != 1 || got[0] != "main" {
		t.Errorf("EntryPoints() = %v, want [main]", got)
	}
	if p.WorkgroupSize() != [3]uint32{8, 8, 1} {
		t.Errorf("WorkgroupSize() = %v", p.WorkgroupSize())
	}
}

func TestDeviceLinkFailureIsNotCached(t *testing.T) {
	pm, res, dev, _ := newTestPipelines(t)
	dev.FailNext(backendtest.KindRenderPipeline, errors.New("vertex output does not match fragment input"))

	req := RenderPipelineRequest{
		ShaderKey:    shader.KeyGBuffer,
		ColorTargets: []backend.ColorTarget{{Format: wgpu.TextureFormatRGBA8Unorm, WriteMask: wgpu.ColorWriteMaskAll}},
	}
	_, err := pm.GetOrCreateRenderPipeline("g", req)
	if !common.IsShaderCompileError(err) {
		t.Fatalf("error = %v, want ShaderCompileError", err)
	}
	if res.Has(shader.KeyGBuffer) {
		t.Error("shader module cached after link failure")
	}
	if _, err := pm.GetOrCreateRenderPipeline("g", req); err != nil {
		t.Errorf("retry error = %v", err)
	}
}

func TestEntryPointResolution(t *testing.T) {
	src := `
@vertex fn vertex_entry() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fragment_entry() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`
	pm, _, _, _ := newTestPipelines(t, shader.WithSource("custom", src))

	p, err := pm.GetOrCreateRenderPipeline("discovered", RenderPipelineRequest{ShaderKey: "custom"})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.EntryPoints(); got[0] != "vertex_entry" || got[1] != "fragment_entry" {
		t.Errorf("discovered entry points = %v", got)
	}

	p, err = pm.GetOrCreateRenderPipeline("explicit", RenderPipelineRequest{ShaderKey: "custom", VertexEntryPoint: "other_vs"})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.EntryPoints(); got[0] != "other_vs" || got[1] != "fragment_entry" {
		t.Errorf("explicit entry points = %v", got)
	}

	p, err = pm.GetOrCreateRenderPipeline("builtin", RenderPipelineRequest{ShaderKey: shader.KeyComposition})
	if err != nil {
		t.Fatal(err)
	}
	if got := p.EntryPoints(); got[0] != DefaultVertexEntryPoint || got[1] != DefaultFragmentEntryPoint {
		t.Errorf("builtin entry points = %v", got)
	}
}

func TestRenderPipelineDescriptor(t *testing.T) {
	pm, _, _, _ := newTestPipelines(t)
	p, err := pm.GetOrCreateRenderPipeline("g", RenderPipelineRequest{
		ShaderKey:   shader.KeyGBuffer,
		DepthFormat: wgpu.TextureFormatDepth24Plus,
		CullMode:    wgpu.CullModeBack,
	})
	if err != nil {
		t.Fatal(err)
	}
	desc := p.Render().(*backendtest.RenderPipeline).Desc
	if desc.DepthCompare != wgpu.CompareFunctionLess || !desc.DepthWrite {
		t.Errorf("depth state = %v/%v, want less with writes", desc.DepthCompare, desc.DepthWrite)
	}
	if desc.Topology != wgpu.PrimitiveTopologyTriangleList || desc.CullMode != wgpu.CullModeBack {
		t.Errorf("primitive state = %v/%v", desc.Topology, desc.CullMode)
	}
}

func TestTileMismatchIsConfigurationError(t *testing.T) {
	pm, _, _, _ := newTestPipelines(t)
	_, err := pm.GetOrCreateComputePipeline("rt", ComputePipelineRequest{ShaderKey: shader.KeyRaytrace, Tile: 16})
	if !common.IsConfigurationError(err) {
		t.Errorf("error = %v, want ConfigurationError", err)
	}
}

func TestLayoutsAreSharedByName(t *testing.T) {
	pm, _, dev, _ := newTestPipelines(t, shader.WithSource("a", "@compute @workgroup_size(1) fn main() {}"), shader.WithSource("b", "@compute @workgroup_size(1) fn main() {}"))

	pa, err := pm.GetOrCreateComputePipeline("a", ComputePipelineRequest{ShaderKey: "a", BindGroupLayouts: []LayoutDescriptor{uniformLayout}})
	if err != nil {
		t.Fatal(err)
	}
	pb, err := pm.GetOrCreateComputePipeline("b", ComputePipelineRequest{ShaderKey: "b", BindGroupLayouts: []LayoutDescriptor{uniformLayout}})
	if err != nil {
		t.Fatal(err)
	}
	if pa.Layout(0) != pb.Layout(0) {
		t.Error("pipelines with the same layout name got different layouts")
	}
	if got := dev.Created(backendtest.KindBindGroupLayout); got != 1 {
		t.Errorf("layout allocations = %d, want 1", got)
	}
	if pa.Layout(1) != nil {
		t.Error("Layout(1) out of range is not nil")
	}
}

func TestInvalidateAndStats(t *testing.T) {
	pm, res, dev, _ := newTestPipelines(t)
	if _, err := pm.GetOrCreateComputePipeline("rt", ComputePipelineRequest{ShaderKey: shader.KeyRaytrace}); err != nil {
		t.Fatal(err)
	}
	if _, err := pm.GetOrCreateRenderPipeline("comp", RenderPipelineRequest{ShaderKey: shader.KeyComposition}); err != nil {
		t.Fatal(err)
	}
	s := pm.Stats()
	if s.Render != 1 || s.Compute != 1 || len(s.Names) != 2 || s.Names[0] != "comp" {
		t.Errorf("Stats() = %+v", s)
	}

	if _, err := pm.GetOrCreateRenderPipeline("rt", RenderPipelineRequest{ShaderKey: shader.KeyComposition}); !common.IsResourceCreationError(err) {
		t.Errorf("render request for a compute name error = %v, want ResourceCreationError", err)
	}

	pm.Invalidate("rt")
	if res.Has(shader.KeyRaytrace) || res.Has(PipelineKeyPrefix+"rt") {
		t.Error("Invalidate left objects bound")
	}
	if _, err := pm.GetOrCreateComputePipeline("rt", ComputePipelineRequest{ShaderKey: shader.KeyRaytrace}); err != nil {
		t.Fatal(err)
	}
	if got := dev.Created(backendtest.KindComputePipeline); got != 2 {
		t.Errorf("compute pipeline allocations = %d, want 2 after invalidate", got)
	}
}

func TestSharedModuleOutlivesOnePipeline(t *testing.T) {
	pm, res, dev, _ := newTestPipelines(t, shader.WithSource("k", "@compute @workgroup_size(8, 8) fn main() {}"))
	req := ComputePipelineRequest{ShaderKey: "k", BindGroupLayouts: []LayoutDescriptor{uniformLayout}}
	if _, err := pm.GetOrCreateComputePipeline("a", req); err != nil {
		t.Fatal(err)
	}
	b, err := pm.GetOrCreateComputePipeline("b", req)
	if err != nil {
		t.Fatal(err)
	}
	if got := dev.Created(backendtest.KindShaderModule); got != 1 {
		t.Errorf("module allocations = %d, want 1 shared module", got)
	}

	pm.Invalidate("a")
	if !res.Has("k") {
		t.Fatal("Invalidate released a module still used by another pipeline")
	}
	if got, _ := pm.GetOrCreateComputePipeline("b", req); got != b {
		t.Error("surviving pipeline was recompiled")
	}

	dev.FailNext(backendtest.KindComputePipeline, errors.New("link failed"))
	if _, err := pm.GetOrCreateComputePipeline("c", req); err == nil {
		t.Fatal("expected link failure")
	}
	if !res.Has("k") {
		t.Error("link failure released a module still used by another pipeline")
	}

	pm.Invalidate("b")
	if res.Has("k") {
		t.Error("module still bound after its last pipeline was invalidated")
	}
	if v := dev.Violations(); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}
}

func TestLibraryUpdateRecompilesCachedPipelines(t *testing.T) {
	pm, res, dev, lib := newTestPipelines(t, shader.WithSource("k", "@compute @workgroup_size(8, 8) fn main() {}"))
	req := ComputePipelineRequest{ShaderKey: "k", Tile: 8}
	first, err := pm.GetOrCreateComputePipeline("a", req)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := pm.GetOrCreateComputePipeline("b", req); err != nil {
		t.Fatal(err)
	}

	lib.Set("k", "@compute @workgroup_size(8, 8) fn trace() {}")
	second, err := pm.GetOrCreateComputePipeline("a", req)
	if err != nil {
		t.Fatal(err)
	}
	if second == first {
		t.Fatal("cached pipeline returned after its program changed")
	}
	if got := second.EntryPoints(); len(got) != 1 || got[0] != "trace" {
		t.Errorf("EntryPoints() = %v, want [trace]", got)
	}
	if _, ok := pm.Pipeline("b"); ok {
		t.Error("sibling pipeline on the old module is still cached")
	}
	if got := dev.Created(backendtest.KindShaderModule); got != 2 {
		t.Errorf("module allocations = %d, want 2", got)
	}
	if !res.Has("k") {
		t.Error("recompiled module is not bound")
	}

	lib.Set("k", "@compute @workgroup_size(8, 8) fn trace() { syntax error }")
	if _, err := pm.GetOrCreateComputePipeline("a", req); !common.IsShaderCompileError(err) {
		t.Fatalf("error = %v, want ShaderCompileError", err)
	}
	if _, ok := pm.Pipeline("a"); ok {
		t.Error("stale pipeline kept after a failed recompile")
	}
}
