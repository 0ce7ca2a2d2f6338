package scene

import (
	"math"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/game_object"
	"github.com/go-gl/mathgl/mgl32"
)

// Demo layout constants.
const (
	DemoSphereRadius = 0.8
	DemoSpacing      = 2.0
	GroundRadius     = 100.0
)

// goldenAngle is the golden angle as a fraction of a full turn.
const goldenAngle = 0.38196601125

// GoldenColor returns a saturated color whose hue advances by the golden angle per index.
//
// Parameters:
//   - i: the entity index
//
// Returns:
//   - mgl32.Vec3: linear RGB in [0, 1]
func GoldenColor(i int) mgl32.Vec3 {
	h := math.Mod(float64(i)*goldenAngle, 1)
	return hsvToRGB(h, 0.65, 0.9)
}

func hsvToRGB(h, s, v float64) mgl32.Vec3 {
	h6 := h * 6
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h6, 2)-1))
	m := v - c
	var r, g, b float64
	switch int(h6) % 6 {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return mgl32.Vec3{float32(r + m), float32(g + m), float32(b + m)}
}

// NewDemoScene builds a row of count colored spheres centred on the origin above a large ground
// sphere. Every third sphere is specular and the middle one bobs up and down, so the scene turns
// dirty on every update.
//
// Parameters:
//   - count: the number of spheres in the row
//   - options: additional scene options
//
// Returns:
//   - Scene: the populated scene
func NewDemoScene(count int, options ...SceneBuilderOption) Scene {
	s := NewScene(append([]SceneBuilderOption{WithName("demo")}, options...)...)

	start := -float32(count-1) * DemoSpacing / 2
	for i := 0; i < count; i++ {
		opts := []game_object.GameObjectBuilderOption{
			game_object.WithPosition(mgl32.Vec3{start + float32(i)*DemoSpacing, 0, 0}),
			game_object.WithRadius(DemoSphereRadius),
			game_object.WithColor(GoldenColor(i)),
		}
		if i%3 == 2 {
			opts = append(opts, game_object.WithMaterial(game_object.MaterialSpecular))
		}
		if i == count/2 {
			opts = append(opts, game_object.WithBob(1, 1.5))
		}
		s.Add(game_object.NewGameObject(opts...))
	}

	s.Add(game_object.NewGameObject(
		game_object.WithPosition(mgl32.Vec3{0, -GroundRadius - DemoSphereRadius, 0}),
		game_object.WithRadius(GroundRadius),
		game_object.WithColor(mgl32.Vec3{0.5, 0.5, 0.5}),
	))
	return s
}
