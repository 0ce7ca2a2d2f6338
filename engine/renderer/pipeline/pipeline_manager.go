package pipeline

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Resource key prefixes for objects the Manager creates through the resource manager.
const (
	PipelineKeyPrefix = "pipeline."
	LayoutKeyPrefix   = "layout."
)

// Stats summarizes the pipelines held by a Manager.
type Stats struct {
	Render  int
	Compute int
	Names   []string
}

// manager is the implementation of the Manager interface.
type manager struct {
	mu *sync.Mutex

	resources resource.Manager
	logger    log.Logger
	pipelines map[string]*pipeline
}

// Manager compiles and caches pipelines by name. Device objects are created and owned by the resource
// manager; the Manager only names them. Shader modules are shared by every pipeline compiled from the
// same program and are released once no cached pipeline references them. A pipeline that fails to
// compile is not cached, so the next request recompiles from the current source. When a program's
// library revision changes, every pipeline compiled from it is rebuilt on its next request.
type Manager interface {
	// GetOrCreateRenderPipeline returns the render pipeline cached under name, compiling it when absent
	// or when its program was replaced in the library since it was compiled.
	//
	// Parameters:
	//   - name: the pipeline name
	//   - req: the pipeline description, only read on first creation
	//
	// Returns:
	//   - Pipeline: the compiled pipeline
	//   - error: a *common.ShaderCompileError if compilation failed
	GetOrCreateRenderPipeline(name string, req RenderPipelineRequest) (Pipeline, error)

	// GetOrCreateComputePipeline returns the compute pipeline cached under name, compiling it when absent
	// or when its program was replaced in the library since it was compiled.
	//
	// Parameters:
	//   - name: the pipeline name
	//   - req: the pipeline description, only read on first creation
	//
	// Returns:
	//   - Pipeline: the compiled pipeline
	//   - error: a *common.ShaderCompileError if compilation failed, or a *common.ConfigurationError
	//     if the declared workgroup size does not match req.Tile
	GetOrCreateComputePipeline(name string, req ComputePipelineRequest) (Pipeline, error)

	// Pipeline looks up a compiled pipeline by name.
	Pipeline(name string) (Pipeline, bool)

	// Invalidate drops the pipeline cached under name so the next request recompiles it. Its shader
	// module is released too unless another cached pipeline still uses it. Layouts are kept.
	Invalidate(name string)

	// Stats returns the number of cached pipelines per type and their names in sorted order.
	Stats() Stats
}

var _ Manager = &manager{}

// NewManager creates a pipeline Manager on top of a resource manager.
//
// Parameters:
//   - resources: the resource manager that owns every compiled object
//   - options: builder options
//
// Returns:
//   - Manager: the pipeline manager
func NewManager(resources resource.Manager, options ...ManagerBuilderOption) Manager {
	m := &manager{
		mu:        &sync.Mutex{},
		resources: resources,
		logger:    log.New("pipeline"),
		pipelines: make(map[string]*pipeline),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *manager) GetOrCreateRenderPipeline(name string, req RenderPipelineRequest) (Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pipelines[name]; ok {
		if p.pipelineType != PipelineTypeRender {
			return nil, &common.ResourceCreationError{Key: PipelineKeyPrefix + name, Reason: "name is bound to a compute pipeline"}
		}
		if !m.stale(p) {
			return p, nil
		}
		m.dropProgram(p.shaderKey)
	}

	prog, module, rev, err := m.compileModule(req.ShaderKey)
	if err != nil {
		return nil, err
	}
	layouts, err := m.layouts(req.BindGroupLayouts)
	if err != nil {
		m.releaseModule(req.ShaderKey)
		return nil, err
	}

	vs := resolveEntryPoint(req.VertexEntryPoint, prog, shader.StageVertex, DefaultVertexEntryPoint)
	fs := resolveEntryPoint(req.FragmentEntryPoint, prog, shader.StageFragment, DefaultFragmentEntryPoint)
	desc := backend.RenderPipelineDescriptor{
		Label:              name,
		Module:             module,
		VertexEntryPoint:   vs,
		FragmentEntryPoint: fs,
		VertexLayouts:      req.VertexLayouts,
		ColorTargets:       req.ColorTargets,
		DepthFormat:        req.DepthFormat,
		Topology:           common.Coalesce(req.Topology, wgpu.PrimitiveTopologyTriangleList),
		FrontFace:          common.Coalesce(req.FrontFace, wgpu.FrontFaceCCW),
		CullMode:           common.Coalesce(req.CullMode, wgpu.CullModeNone),
		BindGroupLayouts:   layouts,
	}
	if req.DepthFormat != wgpu.TextureFormatUndefined {
		desc.DepthCompare = wgpu.CompareFunctionLess
		desc.DepthWrite = true
	}

	rp, err := m.resources.CreateRenderPipeline(PipelineKeyPrefix+name, desc)
	if err != nil {
		m.releaseModule(req.ShaderKey)
		m.logger.Errorf("render pipeline %q failed: %v", name, err)
		return nil, err
	}

	p := &pipeline{
		pipelineType: PipelineTypeRender,
		pipelineKey:  name,
		shaderKey:    req.ShaderKey,
		revision:     rev,
		entryPoints:  []string{vs, fs},
		render:       rp,
		layouts:      layouts,
	}
	m.pipelines[name] = p
	m.logger.Infof("render pipeline %q ready (%s: %s/%s)", name, req.ShaderKey, vs, fs)
	return p, nil
}

func (m *manager) GetOrCreateComputePipeline(name string, req ComputePipelineRequest) (Pipeline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pipelines[name]; ok {
		if p.pipelineType != PipelineTypeCompute {
			return nil, &common.ResourceCreationError{Key: PipelineKeyPrefix + name, Reason: "name is bound to a render pipeline"}
		}
		if !m.stale(p) {
			return p, nil
		}
		m.dropProgram(p.shaderKey)
	}

	prog, module, rev, err := m.compileModule(req.ShaderKey)
	if err != nil {
		return nil, err
	}
	wg := prog.WorkgroupSize()
	if req.Tile != 0 && (wg[0] != req.Tile || wg[1] != req.Tile) {
		m.releaseModule(req.ShaderKey)
		return nil, &common.ConfigurationError{
			Setting: "tile",
			Reason:  fmt.Sprintf("shader %q declares workgroup size %dx%d, tile size is %d", req.ShaderKey, wg[0], wg[1], req.Tile),
		}
	}
	layouts, err := m.layouts(req.BindGroupLayouts)
	if err != nil {
		m.releaseModule(req.ShaderKey)
		return nil, err
	}

	entry := resolveEntryPoint(req.EntryPoint, prog, shader.StageCompute, DefaultComputeEntryPoint)
	cp, err := m.resources.CreateComputePipeline(PipelineKeyPrefix+name, backend.ComputePipelineDescriptor{
		Label:            name,
		Module:           module,
		EntryPoint:       entry,
		BindGroupLayouts: layouts,
	})
	if err != nil {
		m.releaseModule(req.ShaderKey)
		m.logger.Errorf("compute pipeline %q failed: %v", name, err)
		return nil, err
	}

	p := &pipeline{
		pipelineType:  PipelineTypeCompute,
		pipelineKey:   name,
		shaderKey:     req.ShaderKey,
		revision:      rev,
		entryPoints:   []string{entry},
		compute:       cp,
		layouts:       layouts,
		workgroupSize: wg,
	}
	m.pipelines[name] = p
	m.logger.Infof("compute pipeline %q ready (%s: %s, workgroup %v)", name, req.ShaderKey, entry, wg)
	return p, nil
}

func (m *manager) Pipeline(name string) (Pipeline, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipelines[name]
	if !ok {
		return nil, false
	}
	return p, true
}

func (m *manager) Invalidate(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pipelines[name]
	if !ok {
		return
	}
	delete(m.pipelines, name)
	m.resources.Destroy(PipelineKeyPrefix + name)
	m.releaseModule(p.shaderKey)
}

func (m *manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s Stats
	for name, p := range m.pipelines {
		if p.pipelineType == PipelineTypeRender {
			s.Render++
		} else {
			s.Compute++
		}
		s.Names = append(s.Names, name)
	}
	sort.Strings(s.Names)
	return s
}

// compileModule parses the program for entry point discovery and compiles its module through the resource
// manager. It also returns the library revision the module was compiled from. Caller must hold the mutex.
func (m *manager) compileModule(shaderKey string) (shader.Shader, backend.ShaderModule, uint64, error) {
	lib := m.resources.Library()
	rev := lib.Revision(shaderKey)
	for _, p := range m.pipelines {
		if p.shaderKey == shaderKey && p.revision != rev {
			m.dropProgram(shaderKey)
			break
		}
	}
	prog, err := lib.Shader(shaderKey)
	if err != nil {
		return nil, nil, 0, &common.ResourceCreationError{Key: shaderKey, Reason: "unknown shader program", Err: err}
	}
	module, err := m.resources.CreateShaderModule(shaderKey)
	if err != nil {
		m.logger.Errorf("shader %q failed to compile: %v", shaderKey, err)
		return nil, nil, 0, err
	}
	return prog, module, rev, nil
}

// stale reports whether the program p was compiled from has been replaced since. Caller must hold the mutex.
func (m *manager) stale(p *pipeline) bool {
	return m.resources.Library().Revision(p.shaderKey) != p.revision
}

// dropProgram evicts every pipeline compiled from shaderKey and then its module. Caller must hold the mutex.
func (m *manager) dropProgram(shaderKey string) {
	for name, p := range m.pipelines {
		if p.shaderKey == shaderKey {
			delete(m.pipelines, name)
			m.resources.Destroy(PipelineKeyPrefix + name)
		}
	}
	m.resources.Destroy(shaderKey)
	m.logger.Infof("shader %q changed, recompiling its pipelines", shaderKey)
}

// releaseModule destroys the module of shaderKey unless a cached pipeline still uses it. Caller must hold the mutex.
func (m *manager) releaseModule(shaderKey string) {
	for _, p := range m.pipelines {
		if p.shaderKey == shaderKey {
			return
		}
	}
	m.resources.Destroy(shaderKey)
}

func (m *manager) layouts(descs []LayoutDescriptor) ([]backend.BindGroupLayout, error) {
	layouts := make([]backend.BindGroupLayout, 0, len(descs))
	for _, d := range descs {
		desc := d.Descriptor
		desc.Label = common.Coalesce(desc.Label, d.Name)
		l, err := m.resources.CreateBindGroupLayout(LayoutKeyPrefix+d.Name, desc)
		if err != nil {
			return nil, err
		}
		layouts = append(layouts, l)
	}
	return layouts, nil
}

func resolveEntryPoint(requested string, prog shader.Shader, stage shader.Stage, fallback string) string {
	return common.Coalesce(requested, prog.EntryPoint(stage), fallback)
}
