package game_object

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/go-gl/mathgl/mgl32"
)

// GPUSphereSize is the size in bytes of one sphere in the primitive payload.
const GPUSphereSize = 32

// Material values understood by the ray tracing kernel.
const (
	MaterialDiffuse  float32 = 0
	MaterialSpecular float32 = 1
)

type gameObject struct {
	mu *sync.Mutex

	id       uint64
	enabled  bool
	position mgl32.Vec3
	radius   float32
	color    mgl32.Vec3
	material float32

	// bob animation: the object oscillates vertically around anchor
	anchor    mgl32.Vec3
	bobHeight float32
	bobSpeed  float32
}

// GameObject is a sphere entity in a scene. It is both rasterized (as a scaled sphere mesh) and
// ray traced (as an analytic sphere in the primitive payload).
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled reports whether the object is rendered.
	//
	// Returns:
	//   - bool: true if the object is drawn and traced
	Enabled() bool

	// Position returns the world-space center.
	//
	// Returns:
	//   - mgl32.Vec3: the center
	Position() mgl32.Vec3

	// Radius returns the sphere radius.
	Radius() float32

	// Color returns the linear RGB albedo.
	Color() mgl32.Vec3

	// Material returns the material code (MaterialDiffuse or MaterialSpecular).
	Material() float32

	// Animated reports whether Animate moves the object.
	Animated() bool

	// Bounds returns the world-space box enclosing the sphere.
	//
	// Returns:
	//   - accel.AABB: the bounding box
	Bounds() accel.AABB

	// ModelMatrix returns the transform from the unit sphere mesh to world space.
	//
	// Returns:
	//   - mgl32.Mat4: translation times uniform scale by radius
	ModelMatrix() mgl32.Mat4

	// MarshalSphere serializes the object into the GPU sphere layout: center.xyz, radius,
	// color.rgb, material.
	//
	// Returns:
	//   - []byte: GPUSphereSize bytes
	MarshalSphere() []byte

	// Animate evaluates the bob animation at elapsed time t.
	//
	// Parameters:
	//   - t: seconds since the scene started
	//
	// Returns:
	//   - bool: true if the position changed
	Animate(t float32) bool

	// SetID sets the object's unique identifier.
	//
	// Parameters:
	//   - id: the identifier
	SetID(id uint64)

	// SetEnabled sets whether the object is rendered.
	//
	// Parameters:
	//   - enabled: true to render the object
	SetEnabled(enabled bool)

	// SetPosition moves the object and its animation anchor.
	//
	// Parameters:
	//   - p: the new center
	SetPosition(p mgl32.Vec3)

	// SetColor sets the albedo.
	//
	// Parameters:
	//   - c: linear RGB color
	SetColor(c mgl32.Vec3)
}

var _ GameObject = &gameObject{}

// NewGameObject creates a new GameObject configured with the given options. Objects default to an
// enabled white diffuse unit sphere at the origin.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the newly created object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:      &sync.Mutex{},
		enabled: true,
		radius:  1,
		color:   mgl32.Vec3{1, 1, 1},
	}
	for _, option := range options {
		option(obj)
	}
	obj.anchor = obj.position
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *gameObject) Enabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}

func (g *gameObject) Position() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Radius() float32 {
	return g.radius
}

func (g *gameObject) Color() mgl32.Vec3 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.color
}

func (g *gameObject) Material() float32 {
	return g.material
}

func (g *gameObject) Animated() bool {
	return g.bobHeight != 0 && g.bobSpeed != 0
}

func (g *gameObject) Bounds() accel.AABB {
	g.mu.Lock()
	defer g.mu.Unlock()
	r := mgl32.Vec3{g.radius, g.radius, g.radius}
	return accel.AABB{g.position.Sub(r), g.position.Add(r)}
}

func (g *gameObject) ModelMatrix() mgl32.Mat4 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return mgl32.Translate3D(g.position[0], g.position[1], g.position[2]).Mul4(mgl32.Scale3D(g.radius, g.radius, g.radius))
}

func (g *gameObject) MarshalSphere() []byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	buf := make([]byte, GPUSphereSize)
	common.PutFloat32s(buf, 0,
		g.position[0], g.position[1], g.position[2], g.radius,
		g.color[0], g.color[1], g.color[2], g.material,
	)
	return buf
}

func (g *gameObject) Animate(t float32) bool {
	if !g.Animated() {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	next := g.anchor.Add(mgl32.Vec3{0, g.bobHeight * float32(math.Sin(float64(t*g.bobSpeed))), 0})
	if next == g.position {
		return false
	}
	g.position = next
	return true
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
}

func (g *gameObject) SetPosition(p mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = p
	g.anchor = p
}

func (g *gameObject) SetColor(c mgl32.Vec3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.color = c
}
