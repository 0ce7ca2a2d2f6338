// Package scene holds the sphere entities that are rasterized and ray traced each frame, and reports
// when their geometry changed so the acceleration structure can be rebuilt.
package scene

import (
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/camera"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
)

type scene struct {
	mu *sync.Mutex

	name    string
	camera  camera.Camera
	objects []game_object.GameObject
	nextID  uint64
	elapsed float32
	dirty   bool
	version uint64
}

// Scene is the primitive source for the frame orchestrator. Objects keep insertion order; the
// primitive list and the payload always enumerate the enabled objects in that same order, so
// primitive i of the acceleration input is sphere i of the payload.
type Scene interface {
	// Name returns the scene's identifier.
	Name() string

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// SetCamera replaces the scene's camera.
	//
	// Parameters:
	//   - cam: the new camera
	SetCamera(cam camera.Camera)

	// Add appends an object to the scene and marks the scene dirty. Objects without an ID are
	// assigned the next free one.
	//
	// Parameters:
	//   - obj: the object to add
	//
	// Returns:
	//   - uint64: the object ID
	Add(obj game_object.GameObject) uint64

	// Get retrieves an object by ID, or nil if not found.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - game_object.GameObject: the object or nil
	Get(id uint64) game_object.GameObject

	// Move repositions an object and marks the scene dirty.
	//
	// Parameters:
	//   - id: the object's unique ID
	//   - x, y, z: the new center
	//
	// Returns:
	//   - bool: false if no object has the ID
	Move(id uint64, x, y, z float32) bool

	// Remove deletes an object by ID and marks the scene dirty.
	//
	// Parameters:
	//   - id: the object's unique ID
	//
	// Returns:
	//   - bool: false if no object has the ID
	Remove(id uint64) bool

	// Clear removes every object and marks the scene dirty.
	Clear()

	// Count returns the number of objects, enabled or not.
	Count() int

	// Objects returns the enabled objects in payload order.
	//
	// Returns:
	//   - []game_object.GameObject: a copy of the enabled object list
	Objects() []game_object.GameObject

	// Update advances scene time by dt and runs object animations. Any movement marks the scene dirty.
	//
	// Parameters:
	//   - dt: elapsed seconds since the previous update
	Update(dt float32)

	// Elapsed returns the total scene time in seconds.
	Elapsed() float32

	// Primitives returns the bounds of the enabled objects in payload order.
	//
	// Returns:
	//   - []accel.Primitive: one primitive per enabled object, ID = object ID
	Primitives() []accel.Primitive

	// Payload returns the GPU sphere data of the enabled objects, game_object.GPUSphereSize bytes each.
	//
	// Returns:
	//   - []byte: the packed spheres
	Payload() []byte

	// Snapshot returns Primitives and Payload computed from the same state, together with the
	// change version that state was taken at.
	//
	// Returns:
	//   - []accel.Primitive: the primitives
	//   - []byte: the packed spheres
	//   - uint64: the change version, to be passed to ClearDirty
	Snapshot() ([]accel.Primitive, []byte, uint64)

	// Dirty reports whether geometry changed since the last successful ClearDirty.
	Dirty() bool

	// MarkDirty forces the next frame to rebuild the acceleration structure.
	MarkDirty()

	// ClearDirty acknowledges a rebuild from the snapshot taken at version. The flag stays set if
	// the scene changed after that snapshot.
	//
	// Parameters:
	//   - version: the version returned by Snapshot
	//
	// Returns:
	//   - bool: true if the flag was cleared
	ClearDirty(version uint64) bool
}

var _ Scene = &scene{}

// NewScene creates an empty scene. The scene starts dirty so the first frame builds the acceleration
// structure even when no object is ever added.
//
// Parameters:
//   - options: functional options to configure the scene
//
// Returns:
//   - Scene: the new scene
func NewScene(options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:     &sync.Mutex{},
		name:   "scene",
		nextID: 1,
		dirty:  true,
	}
	for _, option := range options {
		option(s)
	}
	if s.camera == nil {
		s.camera = camera.NewCamera()
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Camera() camera.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

func (s *scene) SetCamera(cam camera.Camera) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = cam
}

func (s *scene) Add(obj game_object.GameObject) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(obj)
}

// add registers obj. Caller must hold the mutex.
func (s *scene) add(obj game_object.GameObject) uint64 {
	if obj.ID() == 0 {
		obj.SetID(s.nextID)
	}
	s.nextID = max(s.nextID, obj.ID()+1)
	s.objects = append(s.objects, obj)
	s.touch()
	return obj.ID()
}

func (s *scene) Get(id uint64) game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.objects[i]
	}
	return nil
}

func (s *scene) Move(id uint64, x, y, z float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.objects[i].SetPosition(mgl32.Vec3{x, y, z})
	s.touch()
	return true
}

func (s *scene) Remove(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.objects = slices.Delete(s.objects, i, i+1)
	s.touch()
	return true
}

func (s *scene) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects = nil
	s.touch()
}

func (s *scene) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func (s *scene) Objects() []game_object.GameObject {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled()
}

func (s *scene) Update(dt float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed += dt
	for _, obj := range s.objects {
		if obj.Animate(s.elapsed) && obj.Enabled() {
			s.touch()
		}
	}
}

func (s *scene) Elapsed() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

func (s *scene) Primitives() []accel.Primitive {
	prims, _, _ := s.Snapshot()
	return prims
}

func (s *scene) Payload() []byte {
	_, payload, _ := s.Snapshot()
	return payload
}

func (s *scene) Snapshot() ([]accel.Primitive, []byte, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	objs := s.enabled()
	prims := make([]accel.Primitive, len(objs))
	payload := make([]byte, 0, len(objs)*game_object.GPUSphereSize)
	for i, obj := range objs {
		prims[i] = accel.Primitive{ID: obj.ID(), Bounds: obj.Bounds()}
		payload = append(payload, obj.MarshalSphere()...)
	}
	return prims, payload, s.version
}

func (s *scene) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

func (s *scene) MarkDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
}

func (s *scene) ClearDirty(version uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return false
	}
	s.dirty = false
	return true
}

// touch records a geometry change. Caller must hold the mutex.
func (s *scene) touch() {
	s.dirty = true
	s.version++
}

// enabled returns the enabled objects in insertion order. Caller must hold the mutex.
func (s *scene) enabled() []game_object.GameObject {
	out := make([]game_object.GameObject, 0, len(s.objects))
	for _, obj := range s.objects {
		if obj.Enabled() {
			out = append(out, obj)
		}
	}
	return out
}

// indexOf returns the position of id in the object list, or -1. Caller must hold the mutex.
func (s *scene) indexOf(id uint64) int {
	return slices.IndexFunc(s.objects, func(obj game_object.GameObject) bool { return obj.ID() == id })
}
