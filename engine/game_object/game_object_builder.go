package game_object

import (
	"github.com/go-gl/mathgl/mgl32"
)

// GameObjectBuilderOption is a functional option for configuring a GameObject during construction.
type GameObjectBuilderOption func(*gameObject)

// WithID sets the ID of the GameObject.
//
// Parameters:
//   - id: unique identifier for the GameObject
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the ID
func WithID(id uint64) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.id = id
	}
}

// WithEnabled sets whether the GameObject is rendered.
//
// Parameters:
//   - enabled: true to render the object, false to skip it
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the Enabled state
func WithEnabled(enabled bool) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.enabled = enabled
	}
}

// WithPosition sets the world-space center of the GameObject.
//
// Parameters:
//   - p: the center
//
// Returns:
//   - GameObjectBuilderOption: functional option to set the position
func WithPosition(p mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.position = p
	}
}

// WithRadius sets the sphere radius.
func WithRadius(r float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.radius = r
	}
}

// WithColor sets the linear RGB albedo.
func WithColor(c mgl32.Vec3) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.color = c
	}
}

// WithMaterial sets the material code.
func WithMaterial(m float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.material = m
	}
}

// WithBob makes the object oscillate vertically around its starting position.
//
// Parameters:
//   - height: the oscillation amplitude in world units
//   - speed: the angular speed in radians per second
//
// Returns:
//   - GameObjectBuilderOption: functional option to enable the animation
func WithBob(height, speed float32) GameObjectBuilderOption {
	return func(obj *gameObject) {
		obj.bobHeight = height
		obj.bobSpeed = speed
	}
}
