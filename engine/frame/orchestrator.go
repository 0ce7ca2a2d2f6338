package frame

import (
	"context"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/gbuffer"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pass"
)

// Default framebuffer size used until the first Resize.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Resource key prefixes of the per-generation acceleration buffers.
const (
	NodesKeyPrefix      = "accel.nodes."
	IndicesKeyPrefix    = "accel.indices."
	PrimitivesKeyPrefix = "scene.primitives."
)

type extent struct {
	width, height uint32
}

// generation names the three buffers uploaded by one acceleration refresh.
type generation uint64

func (g generation) nodes() string      { return fmt.Sprintf("%s%d", NodesKeyPrefix, g) }
func (g generation) indices() string    { return fmt.Sprintf("%s%d", IndicesKeyPrefix, g) }
func (g generation) primitives() string { return fmt.Sprintf("%s%d", PrimitivesKeyPrefix, g) }

// orchestrator is the implementation of the Orchestrator interface.
type orchestrator struct {
	mu *sync.Mutex

	rc     *renderer.Context
	source Source

	builder  accel.Builder
	classify Classifier
	logger   log.Logger

	tile     uint32
	blend    float32
	rings    int
	segments int

	raster      pass.RasterPass
	raytrace    pass.RaytracePass
	composition pass.CompositionPass

	gbuf    *gbuffer.GBuffer
	size    extent
	pending *extent

	tree  *accel.Tree
	gen   generation
	frame uint64

	// view is the surface image acquired by the current frame and not yet presented.
	view backend.TextureView
}

// Orchestrator runs the frame state machine against a renderer context and a scene source.
// RenderFrame must be called from a single goroutine; Resize may be called from any goroutine.
type Orchestrator interface {
	// RenderFrame advances the scene by dt and renders and presents one frame.
	//
	// Parameters:
	//   - ctx: cancels the frame before any work is encoded
	//   - dt: the elapsed time since the previous frame in seconds
	//
	// Returns:
	//   - Report: the states visited and the per-pass results
	//   - error: a fatal failure or the context error; recoverable failures are reported through
	//     Report.Degraded and Report.Err instead
	RenderFrame(ctx context.Context, dt float32) (Report, error)

	// Resize records a new framebuffer size, applied at the start of the next frame. Zero sizes
	// are ignored.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height uint32)

	// Size returns the framebuffer size the current targets were allocated at.
	Size() (uint32, uint32)

	// SetBlend sets the composition blend factor.
	SetBlend(factor float32)

	// Tree returns the acceleration structure bound to the raytrace pass, or nil before the first refresh.
	Tree() *accel.Tree

	// Generation returns the generation number of the bound acceleration buffers.
	Generation() uint64

	// Release destroys every resource the orchestrator and its passes created.
	Release()
}

var _ Orchestrator = &orchestrator{}

// NewOrchestrator creates an Orchestrator rendering source through rc.
//
// Parameters:
//   - rc: the renderer context; it must have a presentation surface
//   - source: the scene to render
//   - options: functional options to configure the orchestrator
//
// Returns:
//   - Orchestrator: the orchestrator
//   - error: a *common.ConfigurationError for an invalid tunable or a headless context
func NewOrchestrator(rc *renderer.Context, source Source, options ...OrchestratorBuilderOption) (Orchestrator, error) {
	o := &orchestrator{
		mu:       &sync.Mutex{},
		rc:       rc,
		source:   source,
		classify: DefaultClassifier,
		logger:   log.New("frame"),
		tile:     pass.DefaultTile,
		blend:    pass.DefaultBlend,
		rings:    pass.DefaultMeshRings,
		segments: pass.DefaultMeshSegments,
		pending:  &extent{DefaultWidth, DefaultHeight},
	}
	for _, opt := range options {
		opt(o)
	}
	if o.classify == nil {
		o.classify = DefaultClassifier
	}
	if rc.Surface == nil {
		return nil, &common.ConfigurationError{Setting: "surface", Reason: "frame orchestration needs a presentation surface"}
	}
	if o.tile == 0 {
		return nil, &common.ConfigurationError{Setting: "tile", Reason: "tile size must be positive"}
	}
	if o.pending.width == 0 || o.pending.height == 0 {
		return nil, &common.ConfigurationError{
			Setting: "size",
			Reason:  fmt.Sprintf("framebuffer size %dx%d is empty", o.pending.width, o.pending.height),
		}
	}
	if o.builder == nil {
		b, err := accel.NewBuilder(accel.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		o.builder = b
	}

	o.raster = pass.NewRasterPass(rc.Resources, rc.Pipelines,
		pass.WithMeshDetail(o.rings, o.segments),
		pass.WithRasterLogger(o.logger),
	)
	o.raytrace = pass.NewRaytracePass(rc.Resources, rc.Pipelines, pass.WithTile(o.tile))
	o.composition = pass.NewCompositionPass(rc.Resources, rc.Pipelines, pass.WithBlend(o.blend))
	return o, nil
}

func (o *orchestrator) Resize(width, height uint32) {
	if width == 0 || height == 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = &extent{width, height}
}

func (o *orchestrator) Size() (uint32, uint32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.size.width, o.size.height
}

func (o *orchestrator) SetBlend(factor float32) {
	o.composition.SetBlend(factor)
}

func (o *orchestrator) Tree() *accel.Tree {
	return o.tree
}

func (o *orchestrator) Generation() uint64 {
	return uint64(o.gen)
}

func (o *orchestrator) RenderFrame(ctx context.Context, dt float32) (Report, error) {
	o.frame++
	report := Report{Frame: o.frame, States: []State{StateIdle}}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	err := o.run(&report, dt)
	if err == nil {
		return report, nil
	}
	if o.classify(err) == Fatal {
		o.logger.Errorf("frame %d failed (%s), halting: %v", o.frame, Fatal, err)
		o.abandonView()
		return report, err
	}

	o.logger.Warningf("frame %d failed (%s), presenting diagnostic frame: %v", o.frame, Recoverable, err)
	report.Degraded = true
	report.Err = err
	if derr := o.diagnostic(); derr != nil {
		o.logger.Warningf("frame %d diagnostic frame failed: %v", o.frame, derr)
		o.abandonView()
		return report, nil
	}
	report.States = append(report.States, StatePresent)
	return report, nil
}

// run executes one frame. It returns the first failure, after discarding the partially recorded
// command encoder.
func (o *orchestrator) run(report *Report, dt float32) error {
	if err := o.applyResize(); err != nil {
		return err
	}

	report.States = append(report.States, StateLogicUpdate)
	o.source.Update(dt)

	if o.source.Dirty() || o.tree == nil {
		report.States = append(report.States, StateAccelRefresh)
		if err := o.refresh(); err != nil {
			return err
		}
		report.Rebuilt = true
	}
	report.NodeCount = o.tree.NodeCount()

	enc, err := o.rc.Device.CreateCommandEncoder(fmt.Sprintf("frame %d", o.frame))
	if err != nil {
		return &common.PassExecutionError{Pass: "encoder", Err: err}
	}
	submitted := false
	defer func() {
		if !submitted {
			enc.Discard()
		}
	}()

	cam := o.source.Camera()

	report.States = append(report.States, StateRaster)
	draws, err := o.raster.Encode(enc, o.gbuf, cam, o.source.Objects())
	if err != nil {
		return err
	}
	report.Draws = draws

	report.States = append(report.States, StateRaytrace)
	dispatch, err := o.raytrace.Encode(enc, cam, o.source.Elapsed())
	if err != nil {
		return err
	}
	report.Dispatch = dispatch

	report.States = append(report.States, StateComposition)
	view, err := o.acquire()
	if err != nil {
		return err
	}
	if err := o.composition.Encode(enc, view); err != nil {
		return err
	}

	submitted = true
	if err := enc.Submit(); err != nil {
		return &common.PassExecutionError{Pass: "submit", Err: err}
	}

	report.States = append(report.States, StatePresent)
	return o.present()
}

// applyResize recreates the size-dependent targets when a resize is pending. Bind groups that
// reference the old targets are invalidated before the targets are destroyed.
func (o *orchestrator) applyResize() error {
	o.mu.Lock()
	pending := o.pending
	o.mu.Unlock()
	if pending == nil {
		return nil
	}

	w, h := pending.width, pending.height
	if err := o.rc.Configure(w, h); err != nil {
		return &common.ResourceCreationError{Key: "surface", Reason: fmt.Sprintf("configure %dx%d", w, h), Err: err}
	}

	o.composition.SetFormat(o.rc.Surface.Format())
	o.composition.Invalidate()
	if err := o.raytrace.Resize(w, h); err != nil {
		return err
	}
	if o.gbuf != nil {
		o.gbuf.Destroy(o.rc.Resources)
		o.gbuf = nil
	}
	g, err := gbuffer.Create(o.rc.Resources, w, h)
	if err != nil {
		return err
	}
	o.gbuf = g
	if cam := o.source.Camera(); cam != nil {
		cam.SetAspect(float32(w) / float32(h))
	}

	o.mu.Lock()
	if o.pending == pending {
		o.pending = nil
	}
	o.size = *pending
	o.mu.Unlock()
	o.logger.Infof("framebuffer resized to %dx%d", w, h)
	return nil
}

// refresh rebuilds the acceleration structure and swaps the raytrace pass to a new buffer
// generation. The previous generation stays bound if any step fails.
func (o *orchestrator) refresh() error {
	primitives, payload, version := o.source.Snapshot()
	tree, err := o.builder.Build(primitives)
	if err != nil {
		return err
	}

	next := o.gen + 1
	uploads := []struct {
		key  string
		data []byte
	}{
		{next.nodes(), tree.UploadBytes()},
		{next.indices(), tree.IndexBytes()},
		{next.primitives(), payload},
	}
	for i, u := range uploads {
		if _, err := o.rc.Resources.CreateStorageBuffer(u.key, u.data); err != nil {
			for _, done := range uploads[:i] {
				o.rc.Resources.Destroy(done.key)
			}
			return err
		}
	}

	o.raytrace.SetGeometry(pass.Geometry{
		SpheresKey: next.primitives(),
		NodesKey:   next.nodes(),
		IndicesKey: next.indices(),
		NodeCount:  uint32(tree.NodeCount()),
	})
	if o.gen > 0 {
		o.rc.Resources.Destroy(o.gen.nodes())
		o.rc.Resources.Destroy(o.gen.indices())
		o.rc.Resources.Destroy(o.gen.primitives())
	}
	o.gen = next
	o.tree = tree
	if !o.source.ClearDirty(version) {
		o.logger.Debugf("scene changed during rebuild of generation %d, rebuilding next frame", next)
	}
	o.logger.Debugf("acceleration structure generation %d: %d primitives, %d nodes", next, tree.Stats.Primitives, tree.NodeCount())
	return nil
}

func (o *orchestrator) acquire() (backend.TextureView, error) {
	if o.view != nil {
		return o.view, nil
	}
	view, err := o.rc.Surface.Acquire()
	if err != nil {
		return nil, &common.PassExecutionError{Pass: pass.CompositionName, Err: err}
	}
	o.view = view
	return view, nil
}

func (o *orchestrator) present() error {
	o.view = nil
	if err := o.rc.Surface.Present(); err != nil {
		return &common.PassExecutionError{Pass: "present", Err: err}
	}
	return nil
}

// abandonView presents an acquired surface image that no pass will write, so the next frame can
// acquire again.
func (o *orchestrator) abandonView() {
	if o.view != nil {
		if err := o.present(); err != nil {
			o.logger.Warningf("releasing surface image: %v", err)
		}
	}
}

// diagnostic presents a frame cleared to pass.DiagnosticColor.
func (o *orchestrator) diagnostic() error {
	enc, err := o.rc.Device.CreateCommandEncoder(fmt.Sprintf("frame %d %s", o.frame, pass.DiagnosticName))
	if err != nil {
		return err
	}
	view, err := o.acquire()
	if err != nil {
		enc.Discard()
		return err
	}
	if err := pass.EncodeClear(enc, view, pass.DiagnosticColor); err != nil {
		enc.Discard()
		return err
	}
	if err := enc.Submit(); err != nil {
		return err
	}
	return o.present()
}

func (o *orchestrator) Release() {
	o.composition.Release()
	o.raytrace.Release()
	o.raster.Release()
	if o.gbuf != nil {
		o.gbuf.Destroy(o.rc.Resources)
		o.gbuf = nil
	}
	if o.gen > 0 {
		o.rc.Resources.Destroy(o.gen.nodes())
		o.rc.Resources.Destroy(o.gen.indices())
		o.rc.Resources.Destroy(o.gen.primitives())
	}
}
