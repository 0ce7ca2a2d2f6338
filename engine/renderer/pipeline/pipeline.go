package pipeline

import (
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType identifies whether a pipeline is a compute pipeline or a render pipeline.
type PipelineType int

const (
	// PipelineTypeCompute indicates a compute pipeline with a single compute shader entry point.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender indicates a render pipeline with vertex and fragment shader entry points.
	PipelineTypeRender
)

func (t PipelineType) String() string {
	if t == PipelineTypeRender {
		return "render"
	}
	return "compute"
}

// Default entry point names used when a request does not name one and the program declares none.
const (
	DefaultVertexEntryPoint   = "vs_main"
	DefaultFragmentEntryPoint = "fs_main"
	DefaultComputeEntryPoint  = "main"
)

// LayoutDescriptor is a bind group layout with the name it is cached under.
type LayoutDescriptor struct {
	Name       string
	Descriptor wgpu.BindGroupLayoutDescriptor
}

// RenderPipelineRequest describes a render pipeline to compile. Layouts are listed in group order.
type RenderPipelineRequest struct {
	ShaderKey          string
	VertexEntryPoint   string
	FragmentEntryPoint string
	VertexLayouts      []wgpu.VertexBufferLayout
	ColorTargets       []backend.ColorTarget
	// DepthFormat enables depth testing with a less-than compare and depth writes when not Undefined.
	DepthFormat      wgpu.TextureFormat
	CullMode         wgpu.CullMode
	Topology         wgpu.PrimitiveTopology
	FrontFace        wgpu.FrontFace
	BindGroupLayouts []LayoutDescriptor
}

// ComputePipelineRequest describes a compute pipeline to compile.
type ComputePipelineRequest struct {
	ShaderKey        string
	EntryPoint       string
	BindGroupLayouts []LayoutDescriptor
	// Tile, when non-zero, must equal the x and y workgroup size declared by the program.
	Tile uint32
}

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineType PipelineType
	pipelineKey  string
	shaderKey    string
	revision     uint64
	entryPoints  []string

	render        backend.RenderPipeline
	compute       backend.ComputePipeline
	layouts       []backend.BindGroupLayout
	workgroupSize [3]uint32
}

// Pipeline is a compiled pipeline together with the bind group layouts it was linked against.
// The underlying device objects are owned by the resource manager.
type Pipeline interface {
	// Type returns the type of the pipeline
	//
	// Returns:
	//   - PipelineType: the type of the pipeline (render or compute)
	Type() PipelineType

	// PipelineKey returns the name the pipeline is cached under.
	//
	// Returns:
	//   - string: the pipeline name
	PipelineKey() string

	// ShaderKey returns the program the pipeline was compiled from.
	ShaderKey() string

	// EntryPoints returns the resolved entry points: vertex and fragment for render pipelines, the
	// compute entry point for compute pipelines.
	EntryPoints() []string

	// Render returns the render pipeline, or nil for a compute pipeline.
	Render() backend.RenderPipeline

	// Compute returns the compute pipeline, or nil for a render pipeline.
	Compute() backend.ComputePipeline

	// Layout returns the bind group layout of the given group.
	//
	// Parameters:
	//   - group: the bind group index
	//
	// Returns:
	//   - backend.BindGroupLayout: the layout, or nil if the index is out of range
	Layout(group int) backend.BindGroupLayout

	// WorkgroupSize returns the declared workgroup size of a compute pipeline.
	WorkgroupSize() [3]uint32
}

var _ Pipeline = &pipeline{}

func (p *pipeline) Type() PipelineType {
	return p.pipelineType
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) ShaderKey() string {
	return p.shaderKey
}

func (p *pipeline) EntryPoints() []string {
	return p.entryPoints
}

func (p *pipeline) Render() backend.RenderPipeline {
	return p.render
}

func (p *pipeline) Compute() backend.ComputePipeline {
	return p.compute
}

func (p *pipeline) Layout(group int) backend.BindGroupLayout {
	if group < 0 || group >= len(p.layouts) {
		return nil
	}
	return p.layouts[group]
}

func (p *pipeline) WorkgroupSize() [3]uint32 {
	return p.workgroupSize
}
