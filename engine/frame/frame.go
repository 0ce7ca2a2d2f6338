// Package frame sequences the passes of one presented frame: logic update, conditional acceleration
// structure refresh, raster, raytrace, composition and present.
package frame

import (
	"strings"

	"github.com/Carmen-Shannon/oxy-hybrid/common"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/camera"
	"github.com/Carmen-Shannon/oxy-hybrid/engine/game_object"
)

// State is a step of the per-frame state machine.
type State int

const (
	StateIdle State = iota
	StateLogicUpdate
	StateAccelRefresh
	StateRaster
	StateRaytrace
	StateComposition
	StatePresent
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateLogicUpdate:
		return "LogicUpdate"
	case StateAccelRefresh:
		return "AccelRefresh"
	case StateRaster:
		return "RasterPass"
	case StateRaytrace:
		return "RaytracePass"
	case StateComposition:
		return "CompositionPass"
	case StatePresent:
		return "Present"
	default:
		return "Unknown"
	}
}

// Source is the scene the orchestrator renders. scene.Scene satisfies it.
type Source interface {
	// Camera returns the camera the frame is rendered from.
	Camera() camera.Camera

	// Objects returns the enabled entities in a stable order.
	Objects() []game_object.GameObject

	// Update advances animation by dt seconds, marking the source dirty when geometry moved.
	Update(dt float32)

	// Elapsed returns the accumulated animation time in seconds.
	Elapsed() float32

	// Snapshot returns the primitives and their GPU payload in matching order, and the change
	// version they were taken at.
	Snapshot() ([]accel.Primitive, []byte, uint64)

	// Dirty reports whether geometry changed since the last successful refresh.
	Dirty() bool

	// ClearDirty resets the dirty flag unless the source changed after the snapshot at version.
	ClearDirty(version uint64) bool
}

// Report describes what a call to RenderFrame did.
type Report struct {
	// Frame is the 1-based frame number.
	Frame uint64

	// States lists the states visited, in order.
	States []State

	// Rebuilt is true when the acceleration structure was rebuilt this frame.
	Rebuilt bool

	// NodeCount is the node count of the tree bound to the raytrace pass.
	NodeCount int

	// Draws is the number of entities drawn into the G-buffer.
	Draws int

	// Dispatch is the raytrace workgroup grid.
	Dispatch [3]uint32

	// Degraded is true when the frame failed and a diagnostic frame was presented instead.
	Degraded bool

	// Err is the recoverable failure that degraded the frame, if any.
	Err error
}

// Path renders the visited states as "A → B → C".
func (r Report) Path() string {
	names := make([]string, len(r.States))
	for i, s := range r.States {
		names[i] = s.String()
	}
	return strings.Join(names, " → ")
}

// Severity is the classification of a frame failure.
type Severity int

const (
	// Recoverable failures degrade the frame and rendering continues.
	Recoverable Severity = iota
	// Fatal failures are returned to the caller, which is expected to stop the loop.
	Fatal
)

func (s Severity) String() string {
	if s == Fatal {
		return "fatal"
	}
	return "recoverable"
}

// Classifier decides how a frame failure is handled.
type Classifier func(err error) Severity

// DefaultClassifier treats configuration errors as fatal and everything else as recoverable.
func DefaultClassifier(err error) Severity {
	if common.IsConfigurationError(err) {
		return Fatal
	}
	return Recoverable
}

// HaltOnError treats every failure as fatal.
func HaltOnError(error) Severity {
	return Fatal
}
