package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestDefaults(t *testing.T) {
	c := NewCamera()
	if c.Position() != (mgl32.Vec3{0, 0, 10}) {
		t.Errorf("Position() = %v, want (0,0,10)", c.Position())
	}
	if c.Fov() != float32(2*math.Pi/5) || c.Near() != 0.1 || c.Far() != 100 {
		t.Errorf("perspective = %v %v %v", c.Fov(), c.Near(), c.Far())
	}
}

func TestDepthRangeIsZeroToOne(t *testing.T) {
	c := NewCamera()
	vp := c.ViewProjection()
	project := func(z float32) float32 {
		v := vp.Mul4x1(mgl32.Vec4{0, 0, z, 1})
		return v[2] / v[3]
	}
	// The eye sits at z=10 looking down -Z.
	if got := project(10 - 0.1); math.Abs(float64(got)) > 1e-4 {
		t.Errorf("near plane depth = %v, want 0", got)
	}
	if got := project(10 - 100); math.Abs(float64(got-1)) > 1e-3 {
		t.Errorf("far plane depth = %v, want 1", got)
	}
}

func TestInverseViewProjection(t *testing.T) {
	c := NewCamera(WithAspect(16.0/9.0), WithTarget(mgl32.Vec3{1, 2, 0}))
	id := c.InverseViewProjection().Mul4(c.ViewProjection())
	if !id.ApproxEqualThreshold(mgl32.Ident4(), 1e-4) {
		t.Errorf("inverse * viewProj = %v, want identity", id)
	}

	before := c.ViewProjection()
	c.SetAspect(1)
	if c.ViewProjection() == before {
		t.Error("SetAspect did not update the view-projection")
	}
}

func TestSceneUniformMarshal(t *testing.T) {
	c := NewCamera()
	u := SceneUniform(c)
	buf := u.Marshal()
	if len(buf) != GPUSceneUniformSize {
		t.Fatalf("len(Marshal()) = %d, want %d", len(buf), GPUSceneUniformSize)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[72:])); got != 10 {
		t.Errorf("camera_pos.z = %v, want 10", got)
	}
	if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[0:])); got != u.ViewProj[0] {
		t.Errorf("view_proj[0] = %v, want %v", got, u.ViewProj[0])
	}
}
