package frame

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/game_object"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend/backendtest"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pass"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/scene"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

type harness struct {
	dev     *backendtest.Device
	surface *backendtest.Surface
	lib     *shader.Library
	rc      *renderer.Context
	scene   scene.Scene
	orch    Orchestrator
}

func staticScene(n int) scene.Scene {
	objs := make([]game_object.GameObject, n)
	for i := range objs {
		objs[i] = game_object.NewGameObject(
			game_object.WithPosition(mgl32.Vec3{float32(i) * 2, 0, 0}),
			game_object.WithColor(scene.GoldenColor(i)),
		)
	}
	return scene.NewScene(scene.WithObjects(objs...))
}

func newHarness(t *testing.T, sc scene.Scene, options ...OrchestratorBuilderOption) *harness {
	t.Helper()
	lib, err := shader.NewLibrary()
	if err != nil {
		t.Fatal(err)
	}
	dev := backendtest.NewDevice()
	surface := backendtest.NewSurface(dev)
	rc, err := renderer.NewContext(dev, surface,
		renderer.WithLibrary(lib),
		renderer.WithValidator(shader.ValidatorFunc(func(key, source string) error {
			if strings.Contains(source, "BROKEN") {
				return errors.New("unexpected token BROKEN")
			}
			return nil
		})),
	)
	if err != nil {
		t.Fatal(err)
	}
	orch, err := NewOrchestrator(rc, sc, options...)
	if err != nil {
		t.Fatalf("NewOrchestrator() error = %v", err)
	}
	return &harness{dev: dev, surface: surface, lib: lib, rc: rc, scene: sc, orch: orch}
}

func (h *harness) render(t *testing.T) Report {
	t.Helper()
	h.dev.ResetCommands()
	report, err := h.orch.RenderFrame(context.Background(), 1.0/60)
	if err != nil {
		t.Fatalf("RenderFrame() error = %v", err)
	}
	return report
}

func countPrefix(commands []string, prefix string) int {
	n := 0
	for _, c := range commands {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func TestStateOrder(t *testing.T) {
	h := newHarness(t, staticScene(3))

	first := h.render(t)
	want := []State{StateIdle, StateLogicUpdate, StateAccelRefresh, StateRaster, StateRaytrace, StateComposition, StatePresent}
	if !slices.Equal(first.States, want) {
		t.Errorf("first frame = %s, want refresh included", first.Path())
	}
	if !first.Rebuilt || first.Degraded || first.Draws != 3 {
		t.Errorf("first frame report = %+v", first)
	}

	second := h.render(t)
	want = []State{StateIdle, StateLogicUpdate, StateRaster, StateRaytrace, StateComposition, StatePresent}
	if !slices.Equal(second.States, want) {
		t.Errorf("second frame = %s, want no refresh", second.Path())
	}
	if second.Rebuilt || second.NodeCount != first.NodeCount {
		t.Errorf("clean frame rebuilt = %v node count = %d, want false and %d", second.Rebuilt, second.NodeCount, first.NodeCount)
	}
	if h.orch.Generation() != 1 {
		t.Errorf("Generation() = %d, want 1", h.orch.Generation())
	}
}

func TestOneSubmissionInPassOrder(t *testing.T) {
	h := newHarness(t, staticScene(2))
	h.render(t)

	var order []string
	for _, c := range h.dev.Commands() {
		for _, prefix := range []string{"render-pass raster", "compute-pass raytrace", "render-pass composition", "submit", "present"} {
			if strings.HasPrefix(c, prefix) {
				order = append(order, prefix)
			}
		}
	}
	want := []string{"render-pass raster", "compute-pass raytrace", "render-pass composition", "submit", "present"}
	if !slices.Equal(order, want) {
		t.Errorf("command order = %v, want %v", order, want)
	}
	if h.surface.Presented() != 1 {
		t.Errorf("Presented() = %d, want 1", h.surface.Presented())
	}
}

func TestGenerationSwap(t *testing.T) {
	h := newHarness(t, staticScene(4))
	h.render(t)
	if !h.rc.Resources.Has("accel.nodes.1") {
		t.Fatalf("generation 1 buffers missing: %v", h.rc.Resources.Keys("accel."))
	}

	h.scene.Move(2, 50, 0, 0)
	report := h.render(t)
	if !report.Rebuilt || h.orch.Generation() != 2 {
		t.Fatalf("rebuilt = %v generation = %d, want true and 2", report.Rebuilt, h.orch.Generation())
	}
	for _, key := range []string{"accel.nodes.1", "accel.indices.1", "scene.primitives.1"} {
		if h.rc.Resources.Has(key) {
			t.Errorf("%s survived the swap", key)
		}
	}
	for _, key := range []string{"accel.nodes.2", "accel.indices.2", "scene.primitives.2"} {
		if !h.rc.Resources.Has(key) {
			t.Errorf("%s missing after the swap", key)
		}
	}
	if h.scene.Dirty() {
		t.Error("dirty flag still set after a successful rebuild")
	}
	if v := h.dev.Violations(); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}
}

func TestResize(t *testing.T) {
	h := newHarness(t, staticScene(3), WithSize(800, 600))
	first := h.render(t)
	if first.Dispatch != [3]uint32{100, 75, 1} {
		t.Errorf("dispatch at 800x600 = %v, want [100 75 1]", first.Dispatch)
	}
	textures := h.dev.Live(backendtest.KindTexture)

	h.orch.Resize(1600, 1200)
	report := h.render(t)
	if report.Degraded {
		t.Fatalf("resized frame degraded: %v", report.Err)
	}
	if report.Dispatch != [3]uint32{200, 150, 1} {
		t.Errorf("dispatch at 1600x1200 = %v, want [200 150 1]", report.Dispatch)
	}
	log := strings.Join(h.dev.Commands(), "\n")
	for _, target := range []string{"gbuffer.position@1600x1200", "gbuffer.albedo@1600x1200", "depth:gbuffer.depth@1600x1200"} {
		if !strings.Contains(log, target) {
			t.Errorf("raster pass does not target %s:\n%s", target, log)
		}
	}
	if w, ht := h.surface.Size(); w != 1600 || ht != 1200 {
		t.Errorf("surface size = %dx%d, want 1600x1200", w, ht)
	}
	if w, ht := h.orch.Size(); w != 1600 || ht != 1200 {
		t.Errorf("Size() = %dx%d, want 1600x1200", w, ht)
	}
	if got := h.dev.Live(backendtest.KindTexture); got != textures {
		t.Errorf("live textures = %d after resize, want %d", got, textures)
	}
	if v := h.dev.Violations(); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}
	if aspect := h.scene.Camera().Aspect(); aspect != 4.0/3.0 {
		t.Errorf("camera aspect = %v, want 4/3", aspect)
	}
}

func TestDispatchRoundsUp(t *testing.T) {
	h := newHarness(t, staticScene(1), WithSize(801, 601))
	if report := h.render(t); report.Dispatch != [3]uint32{101, 76, 1} {
		t.Errorf("Dispatch = %v, want [101 76 1]", report.Dispatch)
	}
}

func TestRecoverableFailurePresentsDiagnosticFrame(t *testing.T) {
	h := newHarness(t, staticScene(2))
	h.dev.FailNext(backendtest.KindSubmit, nil)

	report := h.render(t)
	if !report.Degraded {
		t.Fatal("frame with a failed submit was not degraded")
	}
	var passErr *common.PassExecutionError
	if !errors.As(report.Err, &passErr) {
		t.Errorf("Report.Err = %v, want PassExecutionError", report.Err)
	}
	if countPrefix(h.dev.Commands(), "render-pass "+"diagnostic") != 1 {
		t.Errorf("no diagnostic pass in %v", h.dev.Commands())
	}
	if h.surface.Presented() != 1 {
		t.Errorf("Presented() = %d, want 1", h.surface.Presented())
	}

	if next := h.render(t); next.Degraded {
		t.Errorf("frame after recovery degraded: %v", next.Err)
	}
}

func TestHaltOnError(t *testing.T) {
	h := newHarness(t, staticScene(2), WithHaltOnError(true))
	h.dev.FailNext(backendtest.KindSubmit, nil)

	_, err := h.orch.RenderFrame(context.Background(), 0)
	var passErr *common.PassExecutionError
	if !errors.As(err, &passErr) || passErr.Pass != "submit" {
		t.Fatalf("RenderFrame() error = %v, want submit PassExecutionError", err)
	}
	if countPrefix(h.dev.Commands(), "render-pass diagnostic") != 0 {
		t.Error("diagnostic frame presented under halt-on-error")
	}
}

func TestConfigurationErrorIsFatal(t *testing.T) {
	h := newHarness(t, staticScene(1), WithTile(16))
	_, err := h.orch.RenderFrame(context.Background(), 0)
	if !common.IsConfigurationError(err) {
		t.Errorf("RenderFrame() error = %v, want ConfigurationError", err)
	}
}

func TestShaderFixAndRetry(t *testing.T) {
	h := newHarness(t, staticScene(2))
	good, _ := h.lib.Source(shader.KeyRaytrace)
	h.lib.Set(shader.KeyRaytrace, "@compute @workgroup_size(8, 8) fn main() { BROKEN }")

	report := h.render(t)
	if !report.Degraded || !common.IsShaderCompileError(report.Err) {
		t.Fatalf("broken shader frame degraded = %v err = %v", report.Degraded, report.Err)
	}

	h.lib.Set(shader.KeyRaytrace, good)
	if report := h.render(t); report.Degraded {
		t.Errorf("frame after fix degraded: %v", report.Err)
	}
}

func TestShaderHotReload(t *testing.T) {
	h := newHarness(t, staticScene(2))
	h.render(t)
	src, _ := h.lib.Source(shader.KeyRaytrace)

	h.lib.Set(shader.KeyRaytrace, src+"\n")
	if report := h.render(t); report.Degraded {
		t.Fatalf("frame after reload degraded: %v", report.Err)
	}
	if got := h.dev.Created(backendtest.KindComputePipeline); got != 2 {
		t.Errorf("compute pipeline allocations = %d, want 2 after reload", got)
	}
	if got := h.dev.Created(backendtest.KindRenderPipeline); got != 2 {
		t.Errorf("render pipeline allocations = %d, want 2 untouched", got)
	}
	if v := h.dev.Violations(); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}
}

func TestCompositionTargetsConfiguredFormat(t *testing.T) {
	h := newHarness(t, staticScene(2))
	h.surface.SetPreferredFormat(wgpu.TextureFormatRGBA8Unorm)

	if report := h.render(t); report.Degraded {
		t.Fatalf("frame degraded: %v", report.Err)
	}
	format := func() wgpu.TextureFormat {
		p, ok := h.rc.Pipelines.Pipeline(pass.CompositionPipelineName)
		if !ok {
			t.Fatal("composition pipeline not cached")
		}
		return p.Render().(*backendtest.RenderPipeline).Desc.ColorTargets[0].Format
	}
	if got := format(); got != h.surface.Format() {
		t.Errorf("composition target = %v, want surface format %v", got, h.surface.Format())
	}

	h.surface.SetPreferredFormat(wgpu.TextureFormatBGRA8Unorm)
	h.orch.Resize(640, 480)
	if report := h.render(t); report.Degraded {
		t.Fatalf("frame after reconfigure degraded: %v", report.Err)
	}
	if got := format(); got != wgpu.TextureFormatBGRA8Unorm {
		t.Errorf("composition target after reconfigure = %v, want bgra8unorm", got)
	}
	if v := h.dev.Violations(); len(v) != 0 {
		t.Errorf("violations = %v", v)
	}
}

// moveOnSnapshot moves object 1 right after the orchestrator snapshots the scene, the way a
// concurrent logic tick can.
type moveOnSnapshot struct {
	scene.Scene
	moved bool
}

func (m *moveOnSnapshot) Snapshot() ([]accel.Primitive, []byte, uint64) {
	prims, payload, version := m.Scene.Snapshot()
	if !m.moved {
		m.moved = true
		m.Scene.Move(1, 0, 40, 0)
	}
	return prims, payload, version
}

func TestChangeDuringRebuildIsNotLost(t *testing.T) {
	sc := &moveOnSnapshot{Scene: staticScene(3)}
	h := newHarness(t, sc)

	if report := h.render(t); !report.Rebuilt {
		t.Fatal("first frame did not rebuild")
	}
	if !sc.Dirty() {
		t.Fatal("move made during the rebuild was cleared")
	}
	report := h.render(t)
	if !report.Rebuilt {
		t.Fatal("frame after the concurrent move did not rebuild")
	}
	if top := h.orch.Tree().Nodes[0].Bounds[1][1]; top != 41 {
		t.Errorf("root bounds max y = %v, want 41", top)
	}
	if sc.Dirty() {
		t.Error("dirty flag still set after catching up")
	}
}

func TestFailedRebuildKeepsDirtyFlag(t *testing.T) {
	sc := staticScene(2)
	h := newHarness(t, sc)
	h.render(t)

	bad := sc.Add(game_object.NewGameObject(game_object.WithRadius(-1)))
	report := h.render(t)
	if !report.Degraded || !common.IsValidationError(report.Err) {
		t.Fatalf("invalid primitive frame degraded = %v err = %v", report.Degraded, report.Err)
	}
	if !sc.Dirty() || h.orch.Generation() != 1 {
		t.Errorf("dirty = %v generation = %d, want true and 1", sc.Dirty(), h.orch.Generation())
	}

	sc.Remove(bad)
	if report := h.render(t); report.Degraded || !report.Rebuilt || h.orch.Generation() != 2 {
		t.Errorf("recovery frame = %+v generation %d", report, h.orch.Generation())
	}
}

func TestAnimatedSceneRebuildsEachFrame(t *testing.T) {
	h := newHarness(t, scene.NewDemoScene(5))
	h.render(t)
	if report := h.render(t); !report.Rebuilt {
		t.Error("frame with a moving sphere did not rebuild")
	}
}

func TestCancelledContext(t *testing.T) {
	h := newHarness(t, staticScene(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.orch.RenderFrame(ctx, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("RenderFrame() error = %v, want context.Canceled", err)
	}
	if len(h.dev.Commands()) != 0 {
		t.Errorf("cancelled frame recorded %v", h.dev.Commands())
	}
}

func TestRelease(t *testing.T) {
	h := newHarness(t, staticScene(3))
	h.render(t)
	h.orch.Release()
	for _, prefix := range []string{"accel.", "scene.", "gbuffer.", "raster.", "raytrace.", "composition."} {
		if keys := h.rc.Resources.Keys(prefix); len(keys) != 0 {
			t.Errorf("keys %v survived Release", keys)
		}
	}
}

func TestHeadlessContextRejected(t *testing.T) {
	rc, err := renderer.NewContext(backendtest.NewDevice(), nil, renderer.WithValidator(nil))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewOrchestrator(rc, staticScene(1)); !common.IsConfigurationError(err) {
		t.Errorf("NewOrchestrator() error = %v, want ConfigurationError", err)
	}
}
