package pass

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/camera"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/game_object"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/log"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/model"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/backend"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/gbuffer"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/resource"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// Raster pass resource names.
const (
	RasterPipelineName = "gbuffer"
	SceneLayoutName    = "gbuffer.scene"
	EntityLayoutName   = "gbuffer.entity"

	SceneUniformKey   = "raster.scene.ubo"
	SceneGroupKey     = "raster.scene.group"
	MeshVertexKey     = "raster.mesh.vertices"
	MeshIndexKey      = "raster.mesh.indices"
	EntityKeyPrefix   = "raster.entity."
	EntityUniformSize = 80
)

// Default sphere tessellation.
const (
	DefaultMeshRings    = 16
	DefaultMeshSegments = 32
)

type rasterPass struct {
	resources resource.Manager
	pipelines pipeline.Manager
	logger    log.Logger

	rings, segments int
	mesh            model.Model
	sceneProvider   bind_group_provider.BindGroupProvider
	entities        map[uint64]bind_group_provider.BindGroupProvider
}

// RasterPass draws every enabled scene object into the G-buffer with depth testing. Group 0 holds the
// scene uniform (view-projection and camera position); group 1 holds one uniform per entity (model
// matrix and color).
type RasterPass interface {
	// Name returns the pass label.
	Name() string

	// Prepare compiles the G-buffer pipeline and uploads the sphere mesh. Calling it again is cheap.
	//
	// Returns:
	//   - error: a *common.ShaderCompileError or *common.ResourceCreationError
	Prepare() error

	// Encode records the G-buffer pass. Per-entity resources are created for new objects and released
	// for objects that disappeared since the previous call.
	//
	// Parameters:
	//   - enc: the frame encoder
	//   - target: the G-buffer to draw into
	//   - cam: the camera providing the view-projection
	//   - objects: the objects to draw, in any order
	//
	// Returns:
	//   - int: the number of draw calls recorded
	//   - error: a compile, creation or *common.PassExecutionError
	Encode(enc backend.CommandEncoder, target *gbuffer.GBuffer, cam camera.Camera, objects []game_object.GameObject) (int, error)

	// EntityCount returns the number of objects with live per-entity resources.
	EntityCount() int

	// Release destroys every resource the pass created except the shared pipeline and layouts.
	Release()
}

var _ RasterPass = &rasterPass{}

// NewRasterPass creates a raster pass.
//
// Parameters:
//   - resources: the resource manager
//   - pipelines: the pipeline manager
//   - options: builder options
//
// Returns:
//   - RasterPass: the pass
func NewRasterPass(resources resource.Manager, pipelines pipeline.Manager, options ...RasterPassBuilderOption) RasterPass {
	r := &rasterPass{
		resources: resources,
		pipelines: pipelines,
		logger:    log.New("pass"),
		rings:     DefaultMeshRings,
		segments:  DefaultMeshSegments,
		entities:  make(map[uint64]bind_group_provider.BindGroupProvider),
	}
	for _, option := range options {
		option(r)
	}
	return r
}

func (r *rasterPass) Name() string {
	return RasterName
}

func (r *rasterPass) EntityCount() int {
	return len(r.entities)
}

func (r *rasterPass) request() pipeline.RenderPipelineRequest {
	return pipeline.RenderPipelineRequest{
		ShaderKey:     shader.KeyGBuffer,
		VertexLayouts: []wgpu.VertexBufferLayout{model.VertexLayout()},
		ColorTargets:  gbuffer.ColorTargets(),
		DepthFormat:   gbuffer.DepthFormat,
		CullMode:      wgpu.CullModeBack,
		BindGroupLayouts: []pipeline.LayoutDescriptor{
			layout(SceneLayoutName, uniformEntry(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)),
			layout(EntityLayoutName, uniformEntry(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment)),
		},
	}
}

func (r *rasterPass) Prepare() error {
	_, err := r.prepare()
	return err
}

func (r *rasterPass) prepare() (pipeline.Pipeline, error) {
	p, err := r.pipelines.GetOrCreateRenderPipeline(RasterPipelineName, r.request())
	if err != nil {
		return nil, err
	}

	if r.mesh == nil {
		r.mesh = model.Sphere(r.rings, r.segments)
	}
	if _, err := r.resources.CreateBuffer(MeshVertexKey, uint64(len(r.mesh.VertexData())), wgpu.BufferUsageVertex, r.mesh.VertexData()); err != nil {
		return nil, err
	}
	if _, err := r.resources.CreateBuffer(MeshIndexKey, uint64(len(r.mesh.IndexData())), wgpu.BufferUsageIndex, r.mesh.IndexData()); err != nil {
		return nil, err
	}

	if _, err := r.resources.CreateUniformBuffer(SceneUniformKey, camera.GPUSceneUniformSize); err != nil {
		return nil, err
	}
	if r.sceneProvider == nil {
		r.sceneProvider = bind_group_provider.NewBindGroupProvider(SceneGroupKey,
			bind_group_provider.WithLabel("raster scene"),
			bind_group_provider.WithLayout(p.Layout(0)),
			bind_group_provider.WithBuffer(0, SceneUniformKey),
			bind_group_provider.WithOwned(SceneUniformKey),
		)
	}
	return p, nil
}

// entity returns the provider for obj, creating its uniform buffer on first use.
func (r *rasterPass) entity(obj game_object.GameObject, entityLayout backend.BindGroupLayout) (bind_group_provider.BindGroupProvider, error) {
	if p, ok := r.entities[obj.ID()]; ok {
		return p, nil
	}
	prefix := EntityKeyPrefix + strconv.FormatUint(obj.ID(), 10)
	ubo := prefix + ".ubo"
	if _, err := r.resources.CreateUniformBuffer(ubo, EntityUniformSize); err != nil {
		return nil, err
	}
	p := bind_group_provider.NewBindGroupProvider(prefix+".group",
		bind_group_provider.WithLabel(fmt.Sprintf("entity %d", obj.ID())),
		bind_group_provider.WithLayout(entityLayout),
		bind_group_provider.WithBuffer(0, ubo),
		bind_group_provider.WithOwned(ubo),
	)
	r.entities[obj.ID()] = p
	r.logger.Debugf("created raster resources for entity %d", obj.ID())
	return p, nil
}

func entityUniform(obj game_object.GameObject) []byte {
	buf := make([]byte, EntityUniformSize)
	off := common.PutMat4(buf, 0, obj.ModelMatrix())
	c := obj.Color()
	common.PutFloat32s(buf, off, c[0], c[1], c[2], 1)
	return buf
}

func (r *rasterPass) Encode(enc backend.CommandEncoder, target *gbuffer.GBuffer, cam camera.Camera, objects []game_object.GameObject) (int, error) {
	p, err := r.prepare()
	if err != nil {
		return 0, err
	}

	scene := camera.SceneUniform(cam)
	if err := r.resources.WriteBuffer(SceneUniformKey, 0, scene.Marshal()); err != nil {
		return 0, &common.PassExecutionError{Pass: RasterName, Err: err}
	}
	sceneGroup, err := r.sceneProvider.BindGroup(r.resources)
	if err != nil {
		return 0, err
	}

	groups := make([]backend.BindGroup, 0, len(objects))
	live := make(map[uint64]struct{}, len(objects))
	for _, obj := range objects {
		provider, err := r.entity(obj, p.Layout(1))
		if err != nil {
			return 0, err
		}
		write := bind_group_provider.BufferWrite{Provider: provider, Binding: 0, Data: entityUniform(obj)}
		if err := write.Apply(r.resources); err != nil {
			return 0, &common.PassExecutionError{Pass: RasterName, Err: err}
		}
		g, err := provider.BindGroup(r.resources)
		if err != nil {
			return 0, err
		}
		groups = append(groups, g)
		live[obj.ID()] = struct{}{}
	}
	for id, provider := range r.entities {
		if _, ok := live[id]; !ok {
			provider.Release(r.resources)
			delete(r.entities, id)
			r.logger.Debugf("released raster resources for entity %d", id)
		}
	}

	vb, ok := r.resources.Buffer(MeshVertexKey)
	if !ok {
		return 0, &common.PassExecutionError{Pass: RasterName, Err: fmt.Errorf("mesh buffer %q is not bound", MeshVertexKey)}
	}
	ib, ok := r.resources.Buffer(MeshIndexKey)
	if !ok {
		return 0, &common.PassExecutionError{Pass: RasterName, Err: fmt.Errorf("mesh buffer %q is not bound", MeshIndexKey)}
	}

	rp := enc.BeginRenderPass(backend.RenderPassDescriptor{
		Label:            RasterName,
		ColorAttachments: target.ColorAttachments(),
		Depth:            target.DepthAttachment(),
	})
	rp.SetPipeline(p.Render())
	rp.SetBindGroup(0, sceneGroup)
	rp.SetVertexBuffer(0, vb)
	rp.SetIndexBuffer(ib)
	for _, g := range groups {
		rp.SetBindGroup(1, g)
		rp.DrawIndexed(uint32(r.mesh.IndexCount()), 1)
	}
	if err := rp.End(); err != nil {
		return 0, &common.PassExecutionError{Pass: RasterName, Err: err}
	}
	return len(groups), nil
}

func (r *rasterPass) Release() {
	for id, provider := range r.entities {
		provider.Release(r.resources)
		delete(r.entities, id)
	}
	if r.sceneProvider != nil {
		r.sceneProvider.Release(r.resources)
		r.sceneProvider = nil
	}
	r.resources.Destroy(MeshVertexKey)
	r.resources.Destroy(MeshIndexKey)
}
