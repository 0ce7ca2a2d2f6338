package pass

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/camera"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Raytrace pass resource names.
const (
	RaytracePipelineName = "raytrace"
	RaytraceLayoutName   = "raytrace"

	OutputKey          = "raytrace.output"
	RaytraceUniformKey = "raytrace.ubo"
	RaytraceGroupKey   = "raytrace.group"
)

// Bindings of the raytrace program, all in group 0.
const (
	BindingSpheres  = 0
	BindingUniforms = 1
	BindingOutput   = 2
	BindingNodes    = 3
	BindingIndices  = 4
)

// OutputFormat is the texel format of the ray traced image.
const OutputFormat = wgpu.TextureFormatRGBA8Unorm

// RaytraceUniformSize is the size of the kernel uniform: inv_view_proj mat4, camera_pos vec4,
// screen_dims vec2, time f32, node_count u32.
const RaytraceUniformSize = 96

// DefaultTile is the compute workgroup edge length.
const DefaultTile = 8

// ErrNoGeometry is returned by Encode before SetGeometry has been called.
var ErrNoGeometry = errors.New("no acceleration structure bound")

// Geometry names the buffers the kernel traverses. NodeCount is the real node count, which is 0 for
// an empty scene even though the nodes buffer then holds one placeholder node.
type Geometry struct {
	SpheresKey string
	NodesKey   string
	IndicesKey string
	NodeCount  uint32
}

type raytracePass struct {
	resources resource.Manager
	pipelines pipeline.Manager

	tile          uint32
	width, height uint32
	geometry      Geometry
	provider      bind_group_provider.BindGroupProvider
}

// RaytracePass dispatches the ray tracing kernel over the output image, one invocation per pixel in
// tile×tile workgroups.
type RaytracePass interface {
	// Name returns the pass label.
	Name() string

	// Tile returns the workgroup edge length.
	Tile() uint32

	// Size returns the output image size.
	Size() (width, height uint32)

	// Prepare compiles the kernel and allocates the output image and uniform at the given size.
	//
	// Parameters:
	//   - width: output width in pixels
	//   - height: output height in pixels
	//
	// Returns:
	//   - error: a *common.ShaderCompileError, *common.ConfigurationError when the program's
	//     workgroup size differs from the tile, or *common.ResourceCreationError
	Prepare(width, height uint32) error

	// Resize destroys the output image and recreates it at the new size. The bind group is rebuilt on
	// the next Encode.
	//
	// Parameters:
	//   - width: output width in pixels
	//   - height: output height in pixels
	//
	// Returns:
	//   - error: a *common.ResourceCreationError
	Resize(width, height uint32) error

	// SetGeometry switches the kernel to a new set of scene buffers. The previous buffers are no
	// longer referenced once this returns and may be destroyed.
	//
	// Parameters:
	//   - g: the new buffer keys and node count
	SetGeometry(g Geometry)

	// Geometry returns the buffers currently bound.
	Geometry() Geometry

	// Encode writes the kernel uniform and records the dispatch.
	//
	// Parameters:
	//   - enc: the frame encoder
	//   - cam: the camera rays are generated from
	//   - time: elapsed scene time in seconds
	//
	// Returns:
	//   - [3]uint32: the workgroup counts dispatched
	//   - error: ErrNoGeometry wrapped in a *common.PassExecutionError, or a creation error
	Encode(enc backend.CommandEncoder, cam camera.Camera, time float32) ([3]uint32, error)

	// Release destroys the output image, the uniform and the bind group.
	Release()
}

var _ RaytracePass = &raytracePass{}

// NewRaytracePass creates a raytrace pass.
//
// Parameters:
//   - resources: the resource manager
//   - pipelines: the pipeline manager
//   - options: builder options
//
// Returns:
//   - RaytracePass: the pass
func NewRaytracePass(resources resource.Manager, pipelines pipeline.Manager, options ...RaytracePassBuilderOption) RaytracePass {
	r := &raytracePass{
		resources: resources,
		pipelines: pipelines,
		tile:      DefaultTile,
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *raytracePass) Name() string { return RaytraceName }
func (r *raytracePass) Tile() uint32 { return r.tile }

func (r *raytracePass) Size() (uint32, uint32) {
	return r.width, r.height
}

func (r *raytracePass) request() pipeline.ComputePipelineRequest {
	readOnly := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer:     wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage},
		}
	}
	return pipeline.ComputePipelineRequest{
		ShaderKey: shader.KeyRaytrace,
		Tile:      r.tile,
		BindGroupLayouts: []pipeline.LayoutDescriptor{layout(RaytraceLayoutName,
			readOnly(BindingSpheres),
			uniformEntry(BindingUniforms, wgpu.ShaderStageCompute),
			wgpu.BindGroupLayoutEntry{
				Binding:    BindingOutput,
				Visibility: wgpu.ShaderStageCompute,
				StorageTexture: wgpu.StorageTextureBindingLayout{
					Access:        wgpu.StorageTextureAccessWriteOnly,
					Format:        OutputFormat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			readOnly(BindingNodes),
			readOnly(BindingIndices),
		)},
	}
}

func (r *raytracePass) Prepare(width, height uint32) error {
	_, err := r.prepare(width, height)
	return err
}

func (r *raytracePass) prepare(width, height uint32) (pipeline.Pipeline, error) {
	p, err := r.pipelines.GetOrCreateComputePipeline(RaytracePipelineName, r.request())
	if err != nil {
		return nil, err
	}
	if _, err := r.resources.CreateStorageTexture(OutputKey, width, height, OutputFormat); err != nil {
		return nil, err
	}
	r.width, r.height = width, height
	if _, err := r.resources.CreateUniformBuffer(RaytraceUniformKey, RaytraceUniformSize); err != nil {
		return nil, err
	}
	if r.provider == nil {
		r.provider = bind_group_provider.NewBindGroupProvider(RaytraceGroupKey,
			bind_group_provider.WithLabel("raytrace"),
			bind_group_provider.WithLayout(p.Layout(0)),
			bind_group_provider.WithBuffer(BindingUniforms, RaytraceUniformKey),
			bind_group_provider.WithTextureView(BindingOutput, OutputKey),
			bind_group_provider.WithOwned(RaytraceUniformKey, OutputKey),
		)
		r.applyGeometry()
	}
	return p, nil
}

func (r *raytracePass) Resize(width, height uint32) error {
	if r.provider != nil {
		r.provider.Invalidate(r.resources)
	}
	r.resources.Destroy(OutputKey)
	if _, err := r.resources.CreateStorageTexture(OutputKey, width, height, OutputFormat); err != nil {
		return err
	}
	r.width, r.height = width, height
	return nil
}

func (r *raytracePass) SetGeometry(g Geometry) {
	r.geometry = g
	if r.provider != nil {
		r.applyGeometry()
	}
}

func (r *raytracePass) applyGeometry() {
	r.provider.Invalidate(r.resources)
	r.provider.SetBuffer(BindingSpheres, r.geometry.SpheresKey)
	r.provider.SetBuffer(BindingNodes, r.geometry.NodesKey)
	r.provider.SetBuffer(BindingIndices, r.geometry.IndicesKey)
}

func (r *raytracePass) Geometry() Geometry {
	return r.geometry
}

func (r *raytracePass) uniform(cam camera.Camera, time float32) []byte {
	buf := make([]byte, RaytraceUniformSize)
	off := common.PutMat4(buf, 0, cam.InverseViewProjection())
	pos := cam.Position()
	off = common.PutFloat32s(buf, off, pos[0], pos[1], pos[2], 1, float32(r.width), float32(r.height), time)
	common.PutUint32s(buf, off, r.geometry.NodeCount)
	return buf
}

func (r *raytracePass) Encode(enc backend.CommandEncoder, cam camera.Camera, time float32) ([3]uint32, error) {
	var dispatch [3]uint32
	if r.geometry.NodesKey == "" {
		return dispatch, &common.PassExecutionError{Pass: RaytraceName, Err: ErrNoGeometry}
	}
	p, err := r.prepare(r.width, r.height)
	if err != nil {
		return dispatch, err
	}
	if err := r.resources.WriteBuffer(RaytraceUniformKey, 0, r.uniform(cam, time)); err != nil {
		return dispatch, &common.PassExecutionError{Pass: RaytraceName, Err: err}
	}
	group, err := r.provider.BindGroup(r.resources)
	if err != nil {
		return dispatch, err
	}

	dispatch = [3]uint32{common.CeilDiv(r.width, r.tile), common.CeilDiv(r.height, r.tile), 1}
	cp := enc.BeginComputePass(RaytraceName)
	cp.SetPipeline(p.Compute())
	cp.SetBindGroup(0, group)
	cp.Dispatch(dispatch[0], dispatch[1], dispatch[2])
	if err := cp.End(); err != nil {
		return [3]uint32{}, &common.PassExecutionError{Pass: RaytraceName, Err: err}
	}
	return dispatch, nil
}

func (r *raytracePass) Release() {
	if r.provider != nil {
		r.provider.Release(r.resources)
		r.provider = nil
	}
}
