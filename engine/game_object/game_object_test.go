package game_object

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-hybrid/engine/accel"
	"github.com/go-gl/mathgl/mgl32"
)

func TestBoundsAndPayload(t *testing.T) {
	g := NewGameObject(
		WithPosition(mgl32.Vec3{1, 2, 3}),
		WithRadius(0.5),
		WithColor(mgl32.Vec3{0.25, 0.5, 0.75}),
		WithMaterial(MaterialSpecular),
	)
	want := accel.AABB{{0.5, 1.5, 2.5}, {1.5, 2.5, 3.5}}
	if got := g.Bounds(); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}

	buf := g.MarshalSphere()
	if len(buf) != GPUSphereSize {
		t.Fatalf("len(MarshalSphere()) = %d, want %d", len(buf), GPUSphereSize)
	}
	wantFloats := []float32{1, 2, 3, 0.5, 0.25, 0.5, 0.75, 1}
	for i, w := range wantFloats {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:])); got != w {
			t.Errorf("payload[%d] = %v, want %v", i, got, w)
		}
	}

	p := g.ModelMatrix().Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if p.Vec3() != (mgl32.Vec3{1.5, 2, 3}) {
		t.Errorf("ModelMatrix maps the unit x pole to %v", p.Vec3())
	}
}

func TestAnimate(t *testing.T) {
	still := NewGameObject()
	if still.Animated() || still.Animate(1) {
		t.Error("object without bob reports movement")
	}

	g := NewGameObject(WithPosition(mgl32.Vec3{0, 1, 0}), WithBob(2, math.Pi/2))
	if !g.Animated() {
		t.Fatal("Animated() = false")
	}
	if !g.Animate(1) {
		t.Fatal("Animate(1) = false, want movement")
	}
	if got := g.Position(); math.Abs(float64(got[1]-3)) > 1e-5 {
		t.Errorf("Position().y = %v, want 3", got[1])
	}
	if g.Animate(1) {
		t.Error("Animate at the same time moved again")
	}

	g.SetPosition(mgl32.Vec3{5, 0, 0})
	g.Animate(0)
	if got := g.Position(); got != (mgl32.Vec3{5, 0, 0}) {
		t.Errorf("Position() after re-anchor = %v", got)
	}
}
